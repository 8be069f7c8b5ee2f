// Package memory is an in-process store used by tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/store"
)

type Store struct {
	mu sync.RWMutex

	accounts     map[string]*models.Account
	accountCodes map[string]string // role:code -> account id

	requests    map[string]*models.ConnectionRequest
	connections map[string]*models.Connection // pair key

	policies map[string]*models.CreditPolicy
	limits   map[string]*models.CustomerLimit // pair key

	transactions []*models.Transaction
	references   map[string]*models.Transaction
	balances     map[string]*models.PairBalance // pair key

	settings    map[string]*models.PlatformSetting
	settlements []*models.SettlementRecord
	settled     map[string]decimal.Decimal

	// One lock per pair (and per shopkeeper for settlements), never a global write lock.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:     make(map[string]*models.Account),
		accountCodes: make(map[string]string),
		requests:     make(map[string]*models.ConnectionRequest),
		connections:  make(map[string]*models.Connection),
		policies:     make(map[string]*models.CreditPolicy),
		limits:       make(map[string]*models.CustomerLimit),
		references:   make(map[string]*models.Transaction),
		balances:     make(map[string]*models.PairBalance),
		settings:     make(map[string]*models.PlatformSetting),
		settled:      make(map[string]decimal.Decimal),
		locks:        make(map[string]*sync.Mutex),
	}
}

func pairKey(customerID, shopkeeperID string) string {
	return customerID + "|" + shopkeeperID
}

func codeKey(role models.Role, code string) string {
	return string(role) + ":" + code
}

func (s *Store) lockFor(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Account methods

func (s *Store) CreateAccount(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID]; exists {
		return models.ErrInvalidInput
	}
	key := codeKey(a.Role, a.ShortCode)
	if _, taken := s.accountCodes[key]; taken {
		return models.ErrShortCodeTaken
	}
	cp := *a
	s.accounts[a.ID] = &cp
	s.accountCodes[key] = a.ID
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) GetAccountByCode(_ context.Context, role models.Role, code string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.accountCodes[codeKey(role, code)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *s.accounts[id]
	return &cp, nil
}

// Connection methods

func (s *Store) CreateConnectionRequest(_ context.Context, req *models.ConnectionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.connections[pairKey(req.CustomerID, req.ShopkeeperID)]; ok {
		return models.ErrAlreadyConnected
	}
	for _, r := range s.requests {
		if r.CustomerID == req.CustomerID && r.ShopkeeperID == req.ShopkeeperID && r.IsPending() {
			return models.ErrDuplicatePending
		}
	}
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *Store) GetConnectionRequest(_ context.Context, requestID string) (*models.ConnectionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[requestID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ResolveConnectionRequest(_ context.Context, requestID string, status models.RequestStatus, at time.Time) (*models.ConnectionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !r.IsPending() {
		return nil, models.ErrInvalidState
	}

	r.Status = status
	resolved := at
	r.ResolvedAt = &resolved

	if status == models.RequestStatusApproved {
		key := pairKey(r.CustomerID, r.ShopkeeperID)
		if _, exists := s.connections[key]; !exists {
			s.connections[key] = &models.Connection{
				CustomerID:   r.CustomerID,
				ShopkeeperID: r.ShopkeeperID,
				RequestID:    r.ID,
				CreatedAt:    at,
			}
		}
	}

	cp := *r
	return &cp, nil
}

func (s *Store) ListConnectionRequests(_ context.Context, accountID string, status models.RequestStatus) ([]*models.ConnectionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.ConnectionRequest{}
	for _, r := range s.requests {
		if r.CustomerID != accountID && r.ShopkeeperID != accountID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetConnection(_ context.Context, customerID, shopkeeperID string) (*models.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.connections[pairKey(customerID, shopkeeperID)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListConnections(_ context.Context, accountID string) ([]*models.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Connection{}
	for _, c := range s.connections {
		if c.CustomerID == accountID || c.ShopkeeperID == accountID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Credit policy methods

func (s *Store) GetCreditPolicy(_ context.Context, shopkeeperID string) (*models.CreditPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[shopkeeperID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpsertCreditPolicy(_ context.Context, p *models.CreditPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.policies[p.ShopkeeperID] = &cp
	return nil
}

func (s *Store) GetCustomerLimit(_ context.Context, shopkeeperID, customerID string) (*models.CustomerLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.limits[pairKey(customerID, shopkeeperID)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *Store) UpsertCustomerLimit(_ context.Context, l *models.CustomerLimit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *l
	s.limits[pairKey(l.CustomerID, l.ShopkeeperID)] = &cp
	return nil
}

// Ledger methods

func (s *Store) AppendToPair(ctx context.Context, customerID, shopkeeperID string, fn store.AppendFunc) ([]*models.Transaction, *models.PairBalance, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	lock := s.lockFor("pair:" + pairKey(customerID, shopkeeperID))
	lock.Lock()
	defer lock.Unlock()

	key := pairKey(customerID, shopkeeperID)

	s.mu.RLock()
	state := store.PairState{
		CustomerID:   customerID,
		ShopkeeperID: shopkeeperID,
		Balance:      s.foldLocked(customerID, shopkeeperID),
		Cached:       decimal.Zero,
	}
	if row, ok := s.balances[key]; ok {
		state.Cached = row.Balance
		state.Version = row.Version
	}
	s.mu.RUnlock()

	entries, err := fn(state)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if e.Reference != "" {
			if _, dup := s.references[e.Reference]; dup {
				return nil, nil, models.ErrDuplicatePayment
			}
		}
	}
	if row, ok := s.balances[key]; ok && row.Version != state.Version {
		return nil, nil, models.ErrConflict
	}

	balance := state.Balance
	out := make([]*models.Transaction, 0, len(entries))
	for _, e := range entries {
		stored := *e
		s.transactions = append(s.transactions, &stored)
		if stored.Reference != "" {
			s.references[stored.Reference] = &stored
		}
		balance = balance.Add(stored.BalanceEffect())
		ret := stored
		out = append(out, &ret)
	}

	row := &models.PairBalance{
		CustomerID:   customerID,
		ShopkeeperID: shopkeeperID,
		Balance:      balance,
		Version:      state.Version + 1,
		UpdatedAt:    time.Now(),
	}
	s.balances[key] = row
	rowCopy := *row
	return out, &rowCopy, nil
}

func (s *Store) foldLocked(customerID, shopkeeperID string) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range s.transactions {
		if tx.CustomerID == customerID && tx.ShopkeeperID == shopkeeperID {
			balance = balance.Add(tx.BalanceEffect())
		}
	}
	return balance
}

// ListTransactions returns matching entries newest first.
func (s *Store) ListTransactions(_ context.Context, filter models.TransactionFilter) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Transaction{}
	for i := len(s.transactions) - 1; i >= 0; i-- {
		tx := s.transactions[i]
		if !filter.Matches(tx) {
			continue
		}
		cp := *tx
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetTransactionByReference(_ context.Context, reference string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.references[reference]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *Store) GetPairBalance(_ context.Context, customerID, shopkeeperID string) (*models.PairBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.balances[pairKey(customerID, shopkeeperID)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *Store) ListPairBalances(_ context.Context, filter store.PairFilter) ([]*models.PairBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.PairBalance{}
	for _, row := range s.balances {
		if filter.CustomerID != "" && row.CustomerID != filter.CustomerID {
			continue
		}
		if filter.ShopkeeperID != "" && row.ShopkeeperID != filter.ShopkeeperID {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Platform settings

func (s *Store) GetSetting(_ context.Context, key string) (*models.PlatformSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.settings[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *Store) PutSetting(_ context.Context, settings ...*models.PlatformSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, setting := range settings {
		cp := *setting
		s.settings[setting.Key] = &cp
	}
	return nil
}

// Settlement methods

func (s *Store) RecordSettlement(ctx context.Context, shopkeeperID string, fn store.SettleFunc) (*models.SettlementRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := s.lockFor("settle:" + shopkeeperID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	payments := []*models.Transaction{}
	for _, tx := range s.transactions {
		if tx.ShopkeeperID == shopkeeperID && tx.Type == models.TxTypePayment {
			cp := *tx
			payments = append(payments, &cp)
		}
	}
	settled := s.settled[shopkeeperID]
	s.mu.RUnlock()

	rec, err := fn(payments, settled)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	s.settlements = append(s.settlements, &stored)
	s.settled[shopkeeperID] = s.settled[shopkeeperID].Add(rec.Amount)
	out := stored
	return &out, nil
}

func (s *Store) ListSettlements(_ context.Context, shopkeeperID string) ([]*models.SettlementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.SettlementRecord{}
	for i := len(s.settlements) - 1; i >= 0; i-- {
		if s.settlements[i].ShopkeeperID == shopkeeperID {
			cp := *s.settlements[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) SettledAmount(_ context.Context, shopkeeperID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settled[shopkeeperID], nil
}

func (s *Store) SettledAmounts(_ context.Context) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]decimal.Decimal, len(s.settled))
	for k, v := range s.settled {
		out[k] = v
	}
	return out, nil
}

// Core methods

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
