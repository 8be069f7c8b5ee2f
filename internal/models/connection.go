package models

import "time"

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// RequestSource records how the customer reached the shopkeeper
type RequestSource string

const (
	RequestSourceManual RequestSource = "manual"
	RequestSourceQR     RequestSource = "qr"
)

// ConnectionRequest is a proposed pairing between a customer and a shopkeeper.
// Terminal once it leaves pending; a retry needs a fresh request.
type ConnectionRequest struct {
	ID           string        `json:"id" db:"id"`
	CustomerID   string        `json:"customerId" db:"customer_id"`
	ShopkeeperID string        `json:"shopkeeperId" db:"shopkeeper_id"`
	Status       RequestStatus `json:"status" db:"status"`
	Source       RequestSource `json:"source" db:"source"`
	CreatedAt    time.Time     `json:"createdAt" db:"created_at"`
	ResolvedAt   *time.Time    `json:"resolvedAt,omitempty" db:"resolved_at"`
}

// IsPending reports whether the request can still be approved or rejected
func (r *ConnectionRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// Connection is the approved edge between a customer and a shopkeeper.
// A single edge is stored per pair and read from either side.
type Connection struct {
	CustomerID   string    `json:"customerId" db:"customer_id"`
	ShopkeeperID string    `json:"shopkeeperId" db:"shopkeeper_id"`
	RequestID    string    `json:"requestId" db:"request_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Counterparty returns the other side of the edge as seen from accountID.
func (c *Connection) Counterparty(accountID string) string {
	if c.CustomerID == accountID {
		return c.ShopkeeperID
	}
	return c.CustomerID
}
