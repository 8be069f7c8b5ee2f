package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/udhaarpay/backend/internal/metrics"
)

const EventCreditLimitReached = "CREDIT_LIMIT_REACHED"

// Notification is handed to the external dispatcher. It never affects ledger state.
type Notification struct {
	Event        string          `json:"event"`
	CustomerID   string          `json:"customerId"`
	ShopkeeperID string          `json:"shopkeeperId"`
	Balance      decimal.Decimal `json:"balance"`
	Limit        decimal.Decimal `json:"limit"`
	Attempted    decimal.Decimal `json:"attempted"`
	At           time.Time       `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// RedisNotifier queues notifications on a Redis list for the dispatch worker.
type RedisNotifier struct {
	redis *redis.Client
	queue string
}

func (n *RedisNotifier) Notify(ctx context.Context, note Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return err
	}
	if err := n.redis.RPush(ctx, n.queue, payload).Err(); err != nil {
		return err
	}
	metrics.NotificationsQueued.WithLabelValues(note.Event).Inc()
	return nil
}

// LogNotifier is used when no queue is available.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, note Notification) error {
	log.Printf("[NOTIFY] %s customer=%s shopkeeper=%s balance=%s limit=%s",
		note.Event, note.CustomerID, note.ShopkeeperID, note.Balance.StringFixed(2), note.Limit.StringFixed(2))
	return nil
}

func NewNotifier(rdb *redis.Client, queue string) Notifier {
	if rdb == nil {
		return LogNotifier{}
	}
	return &RedisNotifier{redis: rdb, queue: queue}
}
