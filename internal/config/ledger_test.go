package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoadLedgerConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		viper.Reset()

		cfg := LoadLedgerConfig()
		assert.Equal(t, "INR", cfg.Currency)
		assert.True(t, cfg.MinCreditLimit.Equal(decimal.NewFromInt(250)))
		assert.True(t, cfg.MaxCreditLimit.Equal(decimal.NewFromInt(5000)))
		assert.True(t, cfg.DefaultCommissionRate.Equal(decimal.RequireFromString("2.5")))
		assert.Equal(t, 3, cfg.MaxAppendAttempts)
		assert.Equal(t, 5*time.Minute, cfg.PairingQRTTL)
	})

	t.Run("overrides", func(t *testing.T) {
		viper.Reset()
		viper.Set("ledger.default_commission_rate", "3.75")
		viper.Set("ledger.max_append_attempts", 0)

		cfg := LoadLedgerConfig()
		assert.True(t, cfg.DefaultCommissionRate.Equal(decimal.RequireFromString("3.75")))
		assert.Equal(t, 1, cfg.MaxAppendAttempts)
	})

	t.Run("bad decimal falls back", func(t *testing.T) {
		viper.Reset()
		viper.Set("ledger.default_credit_limit", "lots")

		cfg := LoadLedgerConfig()
		assert.True(t, cfg.DefaultCreditLimit.Equal(decimal.NewFromInt(1000)))
	})
}
