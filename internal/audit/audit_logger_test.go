package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger() (*Logger, *[]string) {
	lines := []string{}
	return &Logger{printf: func(format string, v ...any) {
		lines = append(lines, fmt.Sprintf(format, v...))
	}}, &lines
}

func decode(t *testing.T, line string) map[string]any {
	t.Helper()
	require.True(t, strings.HasPrefix(line, "AUDIT: "))
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "AUDIT: ")), &out))
	return out
}

func TestLogger(t *testing.T) {
	t.Run("append", func(t *testing.T) {
		l, lines := captureLogger()
		l.LogAppend("tx1", "cust1", "shop1", "credit", decimal.RequireFromString("99.50"))

		require.Len(t, *lines, 1)
		event := decode(t, (*lines)[0])
		assert.Equal(t, "LEDGER_APPEND", event["event_type"])
		assert.Equal(t, "tx1", event["transaction_id"])
		assert.Equal(t, "99.5", event["amount"])
	})

	t.Run("error", func(t *testing.T) {
		l, lines := captureLogger()
		l.LogError("cust1", "shop1", errors.New("boom"))

		event := decode(t, (*lines)[0])
		assert.Equal(t, "FAILED", event["status"])
		assert.Equal(t, map[string]any{"error": "boom"}, event["details"])
	})
}
