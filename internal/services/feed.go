package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/udhaarpay/backend/internal/metrics"
)

const feedBuffer = 16

// BalanceUpdate is one change-feed message, emitted after every committed append.
type BalanceUpdate struct {
	CustomerID    string          `json:"customerId"`
	ShopkeeperID  string          `json:"shopkeeperId"`
	Balance       decimal.Decimal `json:"balance"`
	Version       int             `json:"version"`
	TransactionID string          `json:"transactionId,omitempty"`
	At            time.Time       `json:"at"`
}

type feedSub struct {
	ch chan BalanceUpdate
}

// BalanceFeed fans balance updates out to subscribers of a pair. With Redis
// configured, updates travel over a pub/sub channel so every instance sees
// every append; Run must be started to receive them.
type BalanceFeed struct {
	mu      sync.RWMutex
	subs    map[string]map[*feedSub]struct{}
	redis   *redis.Client
	channel string
}

func NewBalanceFeed(rdb *redis.Client, channel string) *BalanceFeed {
	return &BalanceFeed{
		subs:    make(map[string]map[*feedSub]struct{}),
		redis:   rdb,
		channel: channel,
	}
}

// Subscribe returns a channel of updates for the pair. The channel is closed
// once ctx is done.
func (f *BalanceFeed) Subscribe(ctx context.Context, customerID, shopkeeperID string) <-chan BalanceUpdate {
	key := customerID + "|" + shopkeeperID
	sub := &feedSub{ch: make(chan BalanceUpdate, feedBuffer)}

	f.mu.Lock()
	if f.subs[key] == nil {
		f.subs[key] = make(map[*feedSub]struct{})
	}
	f.subs[key][sub] = struct{}{}
	f.mu.Unlock()
	metrics.FeedSubscribers.Inc()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs[key], sub)
		if len(f.subs[key]) == 0 {
			delete(f.subs, key)
		}
		close(sub.ch)
		f.mu.Unlock()
		metrics.FeedSubscribers.Dec()
	}()

	return sub.ch
}

// Publish announces an update. It never fails the caller: the ledger write has
// already committed.
func (f *BalanceFeed) Publish(ctx context.Context, u BalanceUpdate) {
	if f.redis == nil {
		f.deliver(u)
		return
	}

	payload, err := json.Marshal(u)
	if err != nil {
		log.Printf("[FEED] failed to encode update: %v", err)
		return
	}
	if err := f.redis.Publish(ctx, f.channel, payload).Err(); err != nil {
		log.Printf("[FEED] publish failed, delivering locally: %v", err)
		f.deliver(u)
	}
}

// Run relays updates from Redis to local subscribers until ctx is done.
func (f *BalanceFeed) Run(ctx context.Context) error {
	if f.redis == nil {
		return nil
	}

	pubsub := f.redis.Subscribe(ctx, f.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	log.Printf("[FEED] listening on %s", f.channel)

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var u BalanceUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				log.Printf("[FEED] dropping malformed update: %v", err)
				continue
			}
			f.deliver(u)
		}
	}
}

func (f *BalanceFeed) deliver(u BalanceUpdate) {
	key := u.CustomerID + "|" + u.ShopkeeperID

	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs[key] {
		select {
		case sub.ch <- u:
		default:
			log.Printf("[FEED] subscriber for %s is behind, dropping update v%d", key, u.Version)
		}
	}
}
