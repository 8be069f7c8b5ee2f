package config

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type LedgerConfig struct {
	StoreDriver string
	Currency    string

	DefaultCreditLimit    decimal.Decimal
	MinCreditLimit        decimal.Decimal
	MaxCreditLimit        decimal.Decimal
	DefaultCommissionRate decimal.Decimal

	ShortCodeLength   int
	ShortCodeAttempts int
	ShortCodeCacheTTL time.Duration
	MaxAppendAttempts int

	PairingQRTTL      time.Duration
	NotificationQueue string
	BalanceChannel    string

	// Connection requests a customer may open per window.
	MaxRequestsPerWindow int
	RequestRateWindow    time.Duration

	PayoutDebtorName string
	PayoutDebtorBIC  string
}

func setLedgerDefaults() {
	viper.SetDefault("ledger.store_driver", "postgres")
	viper.SetDefault("ledger.currency", "INR")
	viper.SetDefault("ledger.default_credit_limit", "1000")
	viper.SetDefault("ledger.min_credit_limit", "250")
	viper.SetDefault("ledger.max_credit_limit", "5000")
	viper.SetDefault("ledger.default_commission_rate", "2.5")
	viper.SetDefault("ledger.short_code_length", 6)
	viper.SetDefault("ledger.short_code_attempts", 5)
	viper.SetDefault("ledger.short_code_cache_ttl", 24*time.Hour)
	viper.SetDefault("ledger.max_append_attempts", 3)
	viper.SetDefault("ledger.pairing_qr_ttl", 5*time.Minute)
	viper.SetDefault("ledger.notification_queue", "notifications:queue")
	viper.SetDefault("ledger.balance_channel", "ledger:balances")
	viper.SetDefault("ledger.max_requests_per_window", 10)
	viper.SetDefault("ledger.request_rate_window", time.Hour)
	viper.SetDefault("ledger.payout_debtor_name", "Udhaar Platform")
	viper.SetDefault("ledger.payout_debtor_bic", "UDHRINBBXXX")
}

// LoadLedgerConfig reads the ledger.* keys, falling back to defaults for
// anything unset or unparsable.
func LoadLedgerConfig() *LedgerConfig {
	setLedgerDefaults()

	return &LedgerConfig{
		StoreDriver:           viper.GetString("ledger.store_driver"),
		Currency:              viper.GetString("ledger.currency"),
		DefaultCreditLimit:    getDecimal("ledger.default_credit_limit", 1000),
		MinCreditLimit:        getDecimal("ledger.min_credit_limit", 250),
		MaxCreditLimit:        getDecimal("ledger.max_credit_limit", 5000),
		DefaultCommissionRate: getDecimal("ledger.default_commission_rate", 2.5),
		ShortCodeLength:       atLeast(viper.GetInt("ledger.short_code_length"), 4),
		ShortCodeAttempts:     atLeast(viper.GetInt("ledger.short_code_attempts"), 1),
		ShortCodeCacheTTL:     viper.GetDuration("ledger.short_code_cache_ttl"),
		MaxAppendAttempts:     atLeast(viper.GetInt("ledger.max_append_attempts"), 1),
		PairingQRTTL:          viper.GetDuration("ledger.pairing_qr_ttl"),
		NotificationQueue:     viper.GetString("ledger.notification_queue"),
		BalanceChannel:        viper.GetString("ledger.balance_channel"),
		MaxRequestsPerWindow:  atLeast(viper.GetInt("ledger.max_requests_per_window"), 1),
		RequestRateWindow:     viper.GetDuration("ledger.request_rate_window"),
		PayoutDebtorName:      viper.GetString("ledger.payout_debtor_name"),
		PayoutDebtorBIC:       viper.GetString("ledger.payout_debtor_bic"),
	}
}

// DefaultLedgerConfig is the built-in configuration, used by tests.
func DefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		StoreDriver:           "memory",
		Currency:              "INR",
		DefaultCreditLimit:    decimal.NewFromInt(1000),
		MinCreditLimit:        decimal.NewFromInt(250),
		MaxCreditLimit:        decimal.NewFromInt(5000),
		DefaultCommissionRate: decimal.RequireFromString("2.5"),
		ShortCodeLength:       6,
		ShortCodeAttempts:     5,
		ShortCodeCacheTTL:     24 * time.Hour,
		MaxAppendAttempts:     3,
		PairingQRTTL:          5 * time.Minute,
		NotificationQueue:     "notifications:queue",
		BalanceChannel:        "ledger:balances",
		MaxRequestsPerWindow:  10,
		RequestRateWindow:     time.Hour,
		PayoutDebtorName:      "Udhaar Platform",
		PayoutDebtorBIC:       "UDHRINBBXXX",
	}
}

func getDecimal(key string, fallback float64) decimal.Decimal {
	raw := viper.GetString(key)
	v, err := decimal.NewFromString(raw)
	if err != nil {
		log.Printf("[CONFIG] invalid decimal for %s (%q), using %v", key, raw, fallback)
		return decimal.NewFromFloat(fallback)
	}
	return v
}

func atLeast(v, min int) int {
	if v < min {
		return min
	}
	return v
}
