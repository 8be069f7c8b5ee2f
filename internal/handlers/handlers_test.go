package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/udhaarpay/backend/internal/audit"
	"github.com/udhaarpay/backend/internal/config"
	"github.com/udhaarpay/backend/internal/database/memory"
	mW "github.com/udhaarpay/backend/internal/middleware"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/services"
)

type testEnv struct {
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	viper.Set("jwt.secret_key", "handler-test-secret")
	mW.InitAuthMiddleware(nil)

	st := memory.New()
	cfg := config.DefaultLedgerConfig()
	al := audit.NewLogger()

	directory := services.NewDirectoryService(st, nil, cfg, al)
	connections := services.NewConnectionService(st, directory, nil, al)
	feed := services.NewBalanceFeed(nil, cfg.BalanceChannel)
	balances := services.NewBalanceService(st, feed)
	policy := services.NewPolicyService(st, directory, balances, cfg, al)
	commission := services.NewCommissionService(st, cfg, al)
	ledger := services.NewLedgerService(st, connections, directory, policy, commission, feed,
		services.NewNotifier(nil, cfg.NotificationQueue), cfg, al)
	settlement := services.NewSettlementService(st, directory, services.NewISO20022Service(), cfg, al)
	qr := services.NewQRService(nil, directory, connections, cfg.PairingQRTTL)

	api := &API{
		Accounts:    NewAccountHandler(directory),
		Connections: NewConnectionHandler(connections),
		Ledger:      NewLedgerHandler(ledger),
		Balances:    NewBalanceHandler(balances),
		Policy:      NewPolicyHandler(policy),
		Platform:    NewPlatformHandler(commission, policy),
		Settlements: NewSettlementHandler(settlement),
		QR:          NewQRHandler(qr),
	}

	r := chi.NewRouter()
	r.Route("/api/v1", api.Register)
	return &testEnv{router: r}
}

func token(t *testing.T, accountID string, role models.Role) string {
	t.Helper()
	tok, err := mW.IssueToken(accountID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewBuffer(raw)
	}

	r := httptest.NewRequest(method, "/api/v1"+path, buf)
	r.Header.Set("Content-Type", "application/json")
	if tok != "" {
		r.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// connected enrolls shop-1 and cust-1 and connects them through the API.
func (e *testEnv) connected(t *testing.T) (shopTok, custTok string) {
	t.Helper()
	shopTok = token(t, "shop-1", models.RoleShopkeeper)
	custTok = token(t, "cust-1", models.RoleCustomer)

	w := e.do(t, "POST", "/accounts/enroll", shopTok, map[string]string{"displayName": "Kirana", "shopName": "Kirana Store"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	shopCode := decodeBody(t, w)["shortCode"].(string)

	w = e.do(t, "POST", "/accounts/enroll", custTok, map[string]string{"displayName": "Asha"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, "POST", "/connections", custTok, map[string]string{"shopCode": shopCode})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reqID := decodeBody(t, w)["id"].(string)

	w = e.do(t, "POST", "/connections/"+reqID+"/approve", shopTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return shopTok, custTok
}

func TestAuthRequired(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "GET", "/balance?customerId=c&shopkeeperId=s", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccountHandlers(t *testing.T) {
	e := newTestEnv(t)
	shopTok := token(t, "shop-1", models.RoleShopkeeper)
	systemTok := token(t, "gateway", models.RoleSystem)

	w := e.do(t, "POST", "/accounts/enroll", shopTok, map[string]string{"displayName": "Kirana"})
	require.Equal(t, http.StatusCreated, w.Code)
	acct := decodeBody(t, w)
	assert.Equal(t, "shop-1", acct["id"])
	assert.Equal(t, "shopkeeper", acct["role"])

	w = e.do(t, "GET", "/accounts/resolve?role=shopkeeper&code="+strings.ToLower(acct["shortCode"].(string)), shopTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "shop-1", decodeBody(t, w)["accountId"])

	t.Run("system enrolls on behalf", func(t *testing.T) {
		w := e.do(t, "POST", "/accounts/enroll", systemTok, map[string]string{"accountId": "cust-9", "role": "customer", "displayName": "Ravi"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = e.do(t, "GET", "/accounts/cust-9", shopTok, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("system must name the account", func(t *testing.T) {
		w := e.do(t, "POST", "/accounts/enroll", systemTok, map[string]string{"displayName": "Ravi"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown account", func(t *testing.T) {
		w := e.do(t, "GET", "/accounts/nobody", shopTok, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NotFound", decodeBody(t, w)["code"])
	})
}

func TestConnectionHandlers(t *testing.T) {
	e := newTestEnv(t)
	shopTok, custTok := e.connected(t)

	w := e.do(t, "POST", "/connections", custTok, map[string]string{"shopkeeperId": "shop-1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AlreadyConnected", decodeBody(t, w)["code"])

	w = e.do(t, "GET", "/connections", shopTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var conns []models.Connection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conns))
	require.Len(t, conns, 1)
	assert.Equal(t, "cust-1", conns[0].CustomerID)

	t.Run("customers cannot approve", func(t *testing.T) {
		w := e.do(t, "POST", "/connections/any/approve", custTok, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("needs shop id or code", func(t *testing.T) {
		w := e.do(t, "POST", "/connections", custTok, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad status filter", func(t *testing.T) {
		w := e.do(t, "GET", "/connections/requests?status=maybe", custTok, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLedgerHandlers(t *testing.T) {
	e := newTestEnv(t)
	shopTok, custTok := e.connected(t)
	systemTok := token(t, "gateway", models.RoleSystem)

	w := e.do(t, "POST", "/transactions/credit", shopTok, `{"customerId":"cust-1","amount":"1000","notes":"rice"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Run("limit exceeded", func(t *testing.T) {
		w := e.do(t, "POST", "/transactions/credit", shopTok, `{"customerId":"cust-1","amount":1}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp services.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "CreditLimitExceeded", resp.Code)
		assert.Equal(t, "LimitExceeded", resp.Details["reason"])
		assert.Equal(t, "1000.00", resp.Details["limit"])
	})

	t.Run("strict bodies", func(t *testing.T) {
		w := e.do(t, "POST", "/transactions/credit", shopTok, `{"customerId":"cust-1","amount":"5","tip":1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = e.do(t, "POST", "/transactions/credit", shopTok, `{"customerId":"cust-1","amount":"5"}{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = e.do(t, "POST", "/transactions/credit", shopTok, `{"customerId":"cust-1"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["details"], "Amount")
	})

	t.Run("invalid amount", func(t *testing.T) {
		w := e.do(t, "POST", "/transactions/credit", shopTok, `{"customerId":"cust-1","amount":"-3"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "InvalidAmount", decodeBody(t, w)["code"])
	})

	t.Run("shopkeepers only credit their own ledger", func(t *testing.T) {
		w := e.do(t, "POST", "/transactions/credit", shopTok, `{"customerId":"cust-1","shopkeeperId":"shop-2","amount":"5"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("customers cannot post payments", func(t *testing.T) {
		w := e.do(t, "POST", "/transactions/payment", custTok, `{"customerId":"cust-1","shopkeeperId":"shop-1","amount":"1"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	body := `{"customerId":"cust-1","shopkeeperId":"shop-1","amount":"1025","reference":"pay_1"}`
	w = e.do(t, "POST", "/transactions/payment", systemTok, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decodeBody(t, w)
	assert.Equal(t, false, first["replayed"])

	w = e.do(t, "POST", "/transactions/payment", systemTok, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["replayed"])

	w = e.do(t, "GET", "/balance?shopkeeperId=shop-1", custTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "-25.00", decodeBody(t, w)["balance"])

	t.Run("customers only read their own balance", func(t *testing.T) {
		w := e.do(t, "GET", "/balance?customerId=cust-2&shopkeeperId=shop-1", custTok, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	w = e.do(t, "GET", "/transactions?type=commission", shopTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var commissions []models.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &commissions))
	require.Len(t, commissions, 1)
	assert.Equal(t, "25", commissions[0].Amount.String())

	w = e.do(t, "GET", "/transactions?since=yesterday", shopTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPolicyAndPlatformHandlers(t *testing.T) {
	e := newTestEnv(t)
	shopTok, custTok := e.connected(t)
	ownerTok := token(t, "owner-1", models.RoleOwner)

	w := e.do(t, "PUT", "/policy/shopkeeper/shop-1/default-limit", shopTok, `{"value":"9000"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "OutOfRange", decodeBody(t, w)["code"])

	w = e.do(t, "PUT", "/policy/shopkeeper/shop-1/default-limit", shopTok, `{"value":"2000"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, "PUT", "/policy/shopkeeper/shop-2/default-limit", shopTok, `{"value":"2000"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, "PUT", "/policy/shopkeeper/shop-1/customer/cust-1", shopTok, `{"limitType":"manual","manualLimit":"300","creditEnabled":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, "GET", "/policy/shopkeeper/shop-1/customer/cust-1", shopTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "300.00", decodeBody(t, w)["effectiveLimit"])

	w = e.do(t, "GET", "/policy/authorize?customerId=cust-1&amount=300.01", shopTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decision := decodeBody(t, w)
	assert.Equal(t, false, decision["allowed"])
	assert.Equal(t, "LimitExceeded", decision["reason"])

	w = e.do(t, "PUT", "/policy/shopkeeper/shop-1/customer/cust-1", custTok, `{"limitType":"default","creditEnabled":true}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	t.Run("platform is owner only", func(t *testing.T) {
		w := e.do(t, "PUT", "/platform/commission-rate", shopTok, `{"rate":"1"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = e.do(t, "PUT", "/platform/commission-rate", ownerTok, `{"rate":"150"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		w = e.do(t, "PUT", "/platform/commission-rate", ownerTok, `{"rate":"3"}`)
		assert.Equal(t, http.StatusOK, w.Code)

		w = e.do(t, "PUT", "/platform/credit-limit-bounds", ownerTok, `{"min":"100","max":"50"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		w = e.do(t, "GET", "/platform/commission", ownerTok, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", decodeBody(t, w)["currentRate"])
	})
}

func TestSettlementHandlers(t *testing.T) {
	e := newTestEnv(t)
	shopTok, _ := e.connected(t)
	ownerTok := token(t, "owner-1", models.RoleOwner)
	systemTok := token(t, "gateway", models.RoleSystem)

	w := e.do(t, "POST", "/transactions/payment", systemTok, `{"customerId":"cust-1","shopkeeperId":"shop-1","amount":"1025"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, "GET", "/settlements/pending/shop-1", shopTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1000", decodeBody(t, w)["pendingSettlement"])

	w = e.do(t, "POST", "/settlements/shop-1/mark-settled", shopTok, `{"amount":"10"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, "POST", "/settlements/shop-1/mark-settled", ownerTok, `{"amount":"1000.01"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "OutOfRange", decodeBody(t, w)["code"])

	w = e.do(t, "GET", "/settlements/shop-1/payout", ownerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	payout := decodeBody(t, w)
	assert.Equal(t, "pacs.008.001.08", payout["messageType"])
	assert.Contains(t, payout["xml"], "<?xml")

	w = e.do(t, "POST", "/settlements/shop-1/mark-settled", ownerTok, `{"amount":"400","note":"NEFT"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, "GET", "/settlements", ownerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []models.SettlementSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "600", pending[0].PendingSettlement.String())

	w = e.do(t, "GET", "/settlements/shop-1/history", shopTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.SettlementRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history, 1)
}

func TestBalanceStream(t *testing.T) {
	e := newTestEnv(t)
	shopTok, custTok := e.connected(t)

	w := e.do(t, "POST", "/transactions/credit", shopTok, `{"customerId":"cust-1","amount":"150"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	r := httptest.NewRequest("GET", "/api/v1/balance/stream?shopkeeperId=shop-1", nil).WithContext(ctx)
	r.Header.Set("Authorization", "Bearer "+custTok)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: balance")
	assert.Contains(t, rec.Body.String(), `"balance":"150"`)
}

func TestQRHandlersWithoutRedis(t *testing.T) {
	e := newTestEnv(t)
	shopTok, custTok := e.connected(t)

	w := e.do(t, "POST", "/qr/pairing", shopTok, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = e.do(t, "POST", "/qr/scan", custTok, `{"token":"abc"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = e.do(t, "POST", "/qr/pairing", custTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStatusFor(t *testing.T) {
	cases := map[string]int{
		"InvalidAmount":       http.StatusBadRequest,
		"NotConnected":        http.StatusUnprocessableEntity,
		"CreditLimitExceeded": http.StatusUnprocessableEntity,
		"DuplicatePending":    http.StatusConflict,
		"Conflict":            http.StatusConflict,
		"Forbidden":           http.StatusForbidden,
		"RateLimited":         http.StatusTooManyRequests,
		"Internal":            http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, statusFor(code), code)
	}
}

func TestNonNumericAmounts(t *testing.T) {
	e := newTestEnv(t)
	shopTok, _ := e.connected(t)
	ownerTok := token(t, "owner-1", models.RoleOwner)
	systemTok := token(t, "gateway", models.RoleSystem)

	cases := []struct {
		name, method, path, tok, body string
	}{
		{"credit", "POST", "/transactions/credit", shopTok, `{"customerId":"cust-1","amount":"ten"}`},
		{"credit bool", "POST", "/transactions/credit", shopTok, `{"customerId":"cust-1","amount":true}`},
		{"payment", "POST", "/transactions/payment", systemTok, `{"customerId":"cust-1","shopkeeperId":"shop-1","amount":"1,000"}`},
		{"default limit", "PUT", "/policy/shopkeeper/shop-1/default-limit", shopTok, `{"value":"lots"}`},
		{"manual limit", "PUT", "/policy/shopkeeper/shop-1/customer/cust-1", shopTok, `{"limitType":"manual","manualLimit":"x","creditEnabled":true}`},
		{"mark settled", "POST", "/settlements/shop-1/mark-settled", ownerTok, `{"amount":""}`},
		{"limit bounds", "PUT", "/platform/credit-limit-bounds", ownerTok, `{"min":"low","max":"5000"}`},
		{"authorize", "GET", "/policy/authorize?customerId=cust-1&amount=ten", shopTok, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body any
			if tc.body != "" {
				body = tc.body
			}
			w := e.do(t, tc.method, tc.path, tc.tok, body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "InvalidAmount", decodeBody(t, w)["code"])
		})
	}

	t.Run("numeric strings and numbers still decode", func(t *testing.T) {
		w := e.do(t, "POST", "/transactions/credit", shopTok, `{"customerId":"cust-1","amount":" 12.50 "}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		w = e.do(t, "POST", "/transactions/credit", shopTok, `{"customerId":"cust-1","amount":7.5}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = e.do(t, "GET", "/balance?customerId=cust-1", shopTok, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "20.00", decodeBody(t, w)["balance"])
	})

	t.Run("missing amount is still invalid input", func(t *testing.T) {
		w := e.do(t, "POST", "/transactions/credit", shopTok, `{"customerId":"cust-1","amount":null}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "InvalidInput", decodeBody(t, w)["code"])
	})
}
