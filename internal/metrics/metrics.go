// Package metrics holds the Prometheus collectors for the ledger service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LedgerAppends counts committed ledger entries by type.
var LedgerAppends = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "udhaar",
	Subsystem: "ledger",
	Name:      "appends_total",
	Help:      "Total ledger entries appended, by entry type.",
}, []string{"type"})

// CreditDenials counts credit requests refused by the policy gate.
var CreditDenials = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "udhaar",
	Subsystem: "ledger",
	Name:      "credit_denials_total",
	Help:      "Total credit appends denied, by reason.",
}, []string{"reason"})

var AppendConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "udhaar",
	Subsystem: "ledger",
	Name:      "append_conflicts_total",
	Help:      "Total per-pair append attempts lost to a concurrent writer.",
})

var PaymentReplays = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "udhaar",
	Subsystem: "ledger",
	Name:      "payment_replays_total",
	Help:      "Total payment webhooks recognised as replays of an earlier reference.",
})

var AppendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "udhaar",
	Subsystem: "ledger",
	Name:      "append_duration_seconds",
	Help:      "Latency of ledger appends including retries.",
	Buckets:   prometheus.DefBuckets,
}, []string{"type"})

var ConnectionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "udhaar",
	Subsystem: "connections",
	Name:      "requests_total",
	Help:      "Connection request transitions, by resulting status.",
}, []string{"status"})

var SettlementsRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "udhaar",
	Subsystem: "settlement",
	Name:      "recorded_total",
	Help:      "Total owner settlements recorded.",
})

var FeedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "udhaar",
	Subsystem: "feed",
	Name:      "subscribers",
	Help:      "Current number of balance change-feed subscribers.",
})

var NotificationsQueued = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "udhaar",
	Subsystem: "notifications",
	Name:      "queued_total",
	Help:      "Notifications handed to the dispatch queue, by event.",
}, []string{"event"})
