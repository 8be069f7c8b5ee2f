package services

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"github.com/shopspring/decimal"
)

const payoutMessageType = "pacs.008.001.08"

// PayoutOrder describes one shopkeeper payout to be executed off-platform.
type PayoutOrder struct {
	InstructionID string
	EndToEndID    string
	Amount        decimal.Decimal
	Currency      string
	DebtorName    string
	DebtorBIC     string
	CreditorName  string
	CreditorID    string
	ValueDate     time.Time
}

// ISO20022Service renders settlement payouts as pacs.008 credit transfers.
type ISO20022Service struct {
	newMsgID func() string
	now      func() time.Time
}

func NewISO20022Service() *ISO20022Service {
	return &ISO20022Service{
		newMsgID: uuid.NewString,
		now:      time.Now,
	}
}

// CreatePacs008 creates a pacs.008 FIToFICustomerCreditTransfer message
func (iso *ISO20022Service) CreatePacs008(order *PayoutOrder) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	if !order.Amount.IsPositive() {
		return nil, fmt.Errorf("payout amount must be positive, got %s", order.Amount)
	}
	if len(order.Currency) != 3 {
		return nil, fmt.Errorf("invalid currency code %q", order.Currency)
	}

	creDtTm := iso.now()
	settlementDate := order.ValueDate
	if settlementDate.IsZero() {
		settlementDate = creDtTm
	}
	value, _ := order.Amount.Round(2).Float64()

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(iso.newMsgID()),
			CreDtTm: common.ISODateTime(creDtTm),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(order.Currency),
				Value: value,
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG", // Clearing
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(order.InstructionID)}[0],
					EndToEndId: common.Max35Text(order.EndToEndID),
					TxId:       &[]common.Max35Text{common.Max35Text(order.InstructionID)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(order.Currency),
					Value: value,
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(order.DebtorBIC)}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(order.DebtorName)}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						ClrSysMmbId: &pacs_v08.ClearingSystemMemberIdentification2{
							MmbId: common.Max35Text(order.CreditorID),
						},
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(order.CreditorName)}[0],
				},
			},
		},
	}

	return doc, nil
}

// ConvertToXML converts ISO20022 document to XML string
func (iso *ISO20022Service) ConvertToXML(doc any) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}
