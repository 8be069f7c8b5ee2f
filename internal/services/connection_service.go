package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/udhaarpay/backend/internal/audit"
	"github.com/udhaarpay/backend/internal/metrics"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/store"
)

// ConnectionService runs the pairing workflow: pending -> approved | rejected.
type ConnectionService struct {
	store     store.Store
	directory *DirectoryService
	limiter   *RequestLimiter
	audit     *audit.Logger
	now       func() time.Time
}

// NewConnectionService wires the pairing workflow. limiter may be nil.
func NewConnectionService(st store.Store, directory *DirectoryService, limiter *RequestLimiter, auditLogger *audit.Logger) *ConnectionService {
	return &ConnectionService{
		store:     st,
		directory: directory,
		limiter:   limiter,
		audit:     auditLogger,
		now:       time.Now,
	}
}

// CreateRequest opens a pending request between a customer and a shopkeeper.
func (s *ConnectionService) CreateRequest(ctx context.Context, customerID, shopkeeperID string, source models.RequestSource) (*models.ConnectionRequest, error) {
	if _, err := s.directory.RequireRole(ctx, customerID, models.RoleCustomer); err != nil {
		return nil, err
	}
	if _, err := s.directory.RequireRole(ctx, shopkeeperID, models.RoleShopkeeper); err != nil {
		return nil, err
	}
	if source == "" {
		source = models.RequestSourceManual
	}
	if err := s.limiter.Check(ctx, customerID); err != nil {
		return nil, err
	}

	req := &models.ConnectionRequest{
		ID:           uuid.NewString(),
		CustomerID:   customerID,
		ShopkeeperID: shopkeeperID,
		Status:       models.RequestStatusPending,
		Source:       source,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateConnectionRequest(ctx, req); err != nil {
		return nil, err
	}
	s.limiter.Record(ctx, customerID)

	metrics.ConnectionRequests.WithLabelValues(string(models.RequestStatusPending)).Inc()
	log.Printf("[CONNECTIONS] request %s opened: customer=%s shopkeeper=%s source=%s", req.ID, customerID, shopkeeperID, source)
	return req, nil
}

// CreateRequestByCode is the manual path: the customer types the shop's short code.
func (s *ConnectionService) CreateRequestByCode(ctx context.Context, customerID, shopCode string) (*models.ConnectionRequest, error) {
	shopkeeperID, err := s.directory.ResolveByCode(ctx, models.RoleShopkeeper, shopCode)
	if err != nil {
		return nil, err
	}
	return s.CreateRequest(ctx, customerID, shopkeeperID, models.RequestSourceManual)
}

// Approve marks the request approved and inserts the edge atomically.
// actorID must be the request's shopkeeper.
func (s *ConnectionService) Approve(ctx context.Context, requestID, actorID string) (*models.ConnectionRequest, error) {
	return s.resolve(ctx, requestID, actorID, models.RequestStatusApproved)
}

func (s *ConnectionService) Reject(ctx context.Context, requestID, actorID string) (*models.ConnectionRequest, error) {
	return s.resolve(ctx, requestID, actorID, models.RequestStatusRejected)
}

func (s *ConnectionService) resolve(ctx context.Context, requestID, actorID string, status models.RequestStatus) (*models.ConnectionRequest, error) {
	req, err := s.store.GetConnectionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ShopkeeperID != actorID {
		return nil, fmt.Errorf("%w: only the shopkeeper can resolve request %s", models.ErrForbidden, requestID)
	}

	resolved, err := s.store.ResolveConnectionRequest(ctx, requestID, status, s.now().UTC())
	if err != nil {
		return nil, err
	}

	metrics.ConnectionRequests.WithLabelValues(string(status)).Inc()
	s.audit.LogOperation(actorID, "CONNECTION_"+string(status), map[string]string{
		"request_id":  resolved.ID,
		"customer_id": resolved.CustomerID,
	})
	return resolved, nil
}

func (s *ConnectionService) ListRequests(ctx context.Context, accountID string, status models.RequestStatus) ([]*models.ConnectionRequest, error) {
	return s.store.ListConnectionRequests(ctx, accountID, status)
}

func (s *ConnectionService) ListConnections(ctx context.Context, accountID string) ([]*models.Connection, error) {
	return s.store.ListConnections(ctx, accountID)
}

func (s *ConnectionService) IsConnected(ctx context.Context, customerID, shopkeeperID string) (bool, error) {
	_, err := s.store.GetConnection(ctx, customerID, shopkeeperID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
