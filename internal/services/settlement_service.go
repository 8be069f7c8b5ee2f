package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/udhaarpay/backend/internal/audit"
	"github.com/udhaarpay/backend/internal/config"
	"github.com/udhaarpay/backend/internal/metrics"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/store"
)

// Payout is a rendered payout instruction for the owner to submit elsewhere.
type Payout struct {
	ShopkeeperID string          `json:"shopkeeperId"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	MessageType  string          `json:"messageType"`
	XML          string          `json:"xml"`
}

// SettlementService folds payments into what the platform owes each shopkeeper.
// pending + settled == principal of all payments holds for every shopkeeper.
type SettlementService struct {
	store     store.Store
	directory *DirectoryService
	iso       *ISO20022Service
	cfg       *config.LedgerConfig
	audit     *audit.Logger
	now       func() time.Time
}

func NewSettlementService(st store.Store, directory *DirectoryService, iso *ISO20022Service, cfg *config.LedgerConfig, auditLogger *audit.Logger) *SettlementService {
	return &SettlementService{
		store:     st,
		directory: directory,
		iso:       iso,
		cfg:       cfg,
		audit:     auditLogger,
		now:       time.Now,
	}
}

func (s *SettlementService) Summary(ctx context.Context, shopkeeperID string) (*models.SettlementSummary, error) {
	payments, err := s.store.ListTransactions(ctx, models.TransactionFilter{
		ShopkeeperID: shopkeeperID,
		Type:         models.TxTypePayment,
	})
	if err != nil {
		return nil, err
	}
	settled, err := s.store.SettledAmount(ctx, shopkeeperID)
	if err != nil {
		return nil, err
	}
	return models.SummarizePayments(shopkeeperID, payments, settled), nil
}

func (s *SettlementService) PendingSettlement(ctx context.Context, shopkeeperID string) (decimal.Decimal, error) {
	summary, err := s.Summary(ctx, shopkeeperID)
	if err != nil {
		return decimal.Zero, err
	}
	return summary.PendingSettlement, nil
}

// MarkSettled records an owner payout. It fails with OutOfRange when the
// settled total would pass the all-time principal.
func (s *SettlementService) MarkSettled(ctx context.Context, shopkeeperID string, amount decimal.Decimal, note, by string) (*models.SettlementRecord, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if _, err := s.directory.RequireRole(ctx, shopkeeperID, models.RoleShopkeeper); err != nil {
		return nil, err
	}

	rec, err := s.store.RecordSettlement(ctx, shopkeeperID, func(payments []*models.Transaction, settled decimal.Decimal) (*models.SettlementRecord, error) {
		summary := models.SummarizePayments(shopkeeperID, payments, settled)
		if amount.GreaterThan(summary.PendingSettlement) {
			return nil, fmt.Errorf("%w: settling %s exceeds pending settlement %s", models.ErrOutOfRange,
				amount.StringFixed(models.MinorUnits), summary.PendingSettlement.StringFixed(models.MinorUnits))
		}
		return &models.SettlementRecord{
			ID:           uuid.NewString(),
			ShopkeeperID: shopkeeperID,
			Amount:       amount,
			Note:         note,
			SettledBy:    by,
			CreatedAt:    s.now().UTC(),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SettlementsRecorded.Inc()
	s.audit.LogSettlement(rec.ID, shopkeeperID, by, amount)
	return rec, nil
}

// ListPending is the owner wallet view: one summary per shopkeeper with
// payments, largest pending first.
func (s *SettlementService) ListPending(ctx context.Context) ([]*models.SettlementSummary, error) {
	payments, err := s.store.ListTransactions(ctx, models.TransactionFilter{Type: models.TxTypePayment})
	if err != nil {
		return nil, err
	}
	settled, err := s.store.SettledAmounts(ctx)
	if err != nil {
		return nil, err
	}

	byShop := make(map[string][]*models.Transaction)
	for _, p := range payments {
		byShop[p.ShopkeeperID] = append(byShop[p.ShopkeeperID], p)
	}

	out := make([]*models.SettlementSummary, 0, len(byShop))
	for shopID, ps := range byShop {
		out = append(out, models.SummarizePayments(shopID, ps, settled[shopID]))
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].PendingSettlement.Cmp(out[j].PendingSettlement); c != 0 {
			return c > 0
		}
		return out[i].ShopkeeperID < out[j].ShopkeeperID
	})
	return out, nil
}

func (s *SettlementService) ListSettlements(ctx context.Context, shopkeeperID string) ([]*models.SettlementRecord, error) {
	return s.store.ListSettlements(ctx, shopkeeperID)
}

// PayoutInstruction renders the pending amount as a pacs.008 document. It is
// advisory; nothing is recorded until MarkSettled.
func (s *SettlementService) PayoutInstruction(ctx context.Context, shopkeeperID string) (*Payout, error) {
	shop, err := s.directory.RequireRole(ctx, shopkeeperID, models.RoleShopkeeper)
	if err != nil {
		return nil, err
	}
	summary, err := s.Summary(ctx, shopkeeperID)
	if err != nil {
		return nil, err
	}
	if !summary.PendingSettlement.IsPositive() {
		return nil, fmt.Errorf("%w: nothing pending for shopkeeper %s", models.ErrInvalidState, shopkeeperID)
	}

	creditorName := shop.DisplayName
	if shop.Shopkeeper != nil && shop.Shopkeeper.ShopName != "" {
		creditorName = shop.Shopkeeper.ShopName
	}

	// Max35Text: keep ids short, account UUIDs do not fit.
	instructionID := "STL-" + shop.ShortCode + "-" + s.now().UTC().Format("20060102150405")
	order := &PayoutOrder{
		InstructionID: instructionID,
		EndToEndID:    instructionID,
		Amount:        summary.PendingSettlement,
		Currency:      s.cfg.Currency,
		DebtorName:    s.cfg.PayoutDebtorName,
		DebtorBIC:     s.cfg.PayoutDebtorBIC,
		CreditorName:  creditorName,
		CreditorID:    shop.ShortCode,
	}
	doc, err := s.iso.CreatePacs008(order)
	if err != nil {
		return nil, err
	}
	xmlData, err := s.iso.ConvertToXML(doc)
	if err != nil {
		return nil, err
	}

	return &Payout{
		ShopkeeperID: shopkeeperID,
		Amount:       summary.PendingSettlement,
		Currency:     s.cfg.Currency,
		MessageType:  payoutMessageType,
		XML:          xmlData,
	}, nil
}
