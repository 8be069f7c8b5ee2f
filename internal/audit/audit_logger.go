package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	Timestamp     time.Time        `json:"timestamp"`
	EventType     string           `json:"event_type"`
	TransactionID string           `json:"transaction_id,omitempty"`
	CustomerID    string           `json:"customer_id,omitempty"`
	ShopkeeperID  string           `json:"shopkeeper_id,omitempty"`
	Actor         string           `json:"actor,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Status        string           `json:"status"`
	Details       any              `json:"details,omitempty"`
}

// Logger writes one JSON line per ledger event.
type Logger struct {
	printf func(format string, v ...any)
}

func NewLogger() *Logger {
	return &Logger{printf: log.Printf}
}

func (a *Logger) LogAppend(transactionID, customerID, shopkeeperID, entryType string, amount decimal.Decimal) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "LEDGER_APPEND",
		TransactionID: transactionID,
		CustomerID:    customerID,
		ShopkeeperID:  shopkeeperID,
		Amount:        &amount,
		Status:        "SUCCESS",
		Details:       map[string]string{"type": entryType},
	})
}

func (a *Logger) LogDenial(customerID, shopkeeperID string, amount decimal.Decimal, reason string) {
	a.log(Event{
		Timestamp:    time.Now(),
		EventType:    "CREDIT_DENIED",
		CustomerID:   customerID,
		ShopkeeperID: shopkeeperID,
		Amount:       &amount,
		Status:       "DENIED",
		Details:      map[string]string{"reason": reason},
	})
}

func (a *Logger) LogSettlement(settlementID, shopkeeperID, actor string, amount decimal.Decimal) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "SETTLEMENT",
		TransactionID: settlementID,
		ShopkeeperID:  shopkeeperID,
		Actor:         actor,
		Amount:        &amount,
		Status:        "SUCCESS",
	})
}

func (a *Logger) LogOperation(actor, operation string, details map[string]string) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: operation,
		Actor:     actor,
		Status:    "SUCCESS",
		Details:   details,
	})
}

func (a *Logger) LogError(customerID, shopkeeperID string, err error) {
	a.log(Event{
		Timestamp:    time.Now(),
		EventType:    "ERROR",
		CustomerID:   customerID,
		ShopkeeperID: shopkeeperID,
		Status:       "FAILED",
		Details:      map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	a.printf("AUDIT: %s", string(data))
}
