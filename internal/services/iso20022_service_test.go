package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestISO20022Service_CreatePacs008(t *testing.T) {
	service := NewISO20022Service()
	service.newMsgID = func() string { return "MSG-1" }
	service.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	order := &PayoutOrder{
		InstructionID: "STL-ABC234-20260102030405",
		EndToEndID:    "STL-ABC234-20260102030405",
		Amount:        dec("1500.25"),
		Currency:      "INR",
		DebtorName:    "Udhaar Platform",
		DebtorBIC:     "UDHRINBBXXX",
		CreditorName:  "Kirana Store",
		CreditorID:    "ABC234",
	}

	t.Run("successful creation", func(t *testing.T) {
		doc, err := service.CreatePacs008(order)
		require.NoError(t, err)

		assert.Equal(t, "MSG-1", string(doc.GrpHdr.MsgId))
		assert.Equal(t, "1", string(doc.GrpHdr.NbOfTxs))
		assert.Equal(t, 1500.25, doc.GrpHdr.TtlIntrBkSttlmAmt.Value)
		require.Len(t, doc.CdtTrfTxInf, 1)
		assert.Equal(t, order.EndToEndID, string(doc.CdtTrfTxInf[0].PmtId.EndToEndId))
		assert.Equal(t, "Kirana Store", string(*doc.CdtTrfTxInf[0].Cdtr.Nm))

		xmlData, err := service.ConvertToXML(doc)
		require.NoError(t, err)
		assert.Contains(t, xmlData, "MSG-1")
		assert.Contains(t, xmlData, "UDHRINBBXXX")
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		bad := *order
		bad.Amount = dec("0")
		_, err := service.CreatePacs008(&bad)
		assert.Error(t, err)
	})

	t.Run("rejects malformed currency", func(t *testing.T) {
		bad := *order
		bad.Currency = "RUPEE"
		_, err := service.CreatePacs008(&bad)
		assert.Error(t, err)
	})
}
