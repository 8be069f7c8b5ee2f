package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mW "github.com/udhaarpay/backend/internal/middleware"
	"github.com/udhaarpay/backend/internal/models"
)

// API groups the handlers mounted under /api/v1.
type API struct {
	Accounts    *AccountHandler
	Connections *ConnectionHandler
	Ledger      *LedgerHandler
	Balances    *BalanceHandler
	Policy      *PolicyHandler
	Platform    *PlatformHandler
	Settlements *SettlementHandler
	QR          *QRHandler

	// RequestTimeout bounds every route except the balance stream.
	RequestTimeout time.Duration
}

var (
	customerOnly   = mW.RequireRole(models.RoleCustomer)
	shopkeeperOnly = mW.RequireRole(models.RoleShopkeeper)
	ownerOnly      = mW.RequireRole(models.RoleOwner)
	shopOrOwner    = mW.RequireRole(models.RoleShopkeeper, models.RoleOwner)
)

func (a *API) Register(r chi.Router) {
	timeout := a.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r.Post("/auth/logout", mW.Logout)

	// Long-lived stream, no request timeout.
	r.Group(func(r chi.Router) {
		r.Use(mW.AuthMiddleware)
		r.Get("/balance/stream", a.Balances.Stream)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Use(mW.AuthMiddleware)

		// Accounts
		r.Post("/accounts/enroll", a.Accounts.Enroll)
		r.Get("/accounts/resolve", a.Accounts.Resolve)
		r.Get("/accounts/{id}", a.Accounts.Get)

		// Connections
		r.Get("/connections", a.Connections.List)
		r.Get("/connections/requests", a.Connections.ListRequests)
		r.With(customerOnly).Post("/connections", a.Connections.Create)
		r.With(shopkeeperOnly).Post("/connections/{id}/approve", a.Connections.Approve)
		r.With(shopkeeperOnly).Post("/connections/{id}/reject", a.Connections.Reject)

		// Ledger
		r.Get("/transactions", a.Ledger.ListTransactions)
		r.With(shopkeeperOnly).Post("/transactions/credit", a.Ledger.Credit)
		r.With(mW.RequireRole(models.RoleSystem, models.RoleOwner)).Post("/transactions/payment", a.Ledger.Payment)

		// Balances
		r.Get("/balance", a.Balances.Get)
		r.Get("/balances", a.Balances.List)
		r.With(ownerOnly).Post("/balance/reconcile", a.Balances.Reconcile)

		// Credit policy
		r.With(mW.RequireRole(models.RoleShopkeeper, models.RoleOwner, models.RoleSystem)).Get("/policy/authorize", a.Policy.Authorize)
		r.Route("/policy/shopkeeper/{id}", func(r chi.Router) {
			r.Use(shopOrOwner)
			r.Get("/default-limit", a.Policy.GetDefaultLimit)
			r.Put("/default-limit", a.Policy.SetDefaultLimit)
			r.Get("/customer/{cid}", a.Policy.GetCustomerLimit)
			r.Put("/customer/{cid}", a.Policy.SetCustomerLimit)
		})

		// Platform
		r.Route("/platform", func(r chi.Router) {
			r.Use(ownerOnly)
			r.Put("/commission-rate", a.Platform.SetCommissionRate)
			r.Get("/commission", a.Platform.Commission)
			r.Put("/credit-limit-bounds", a.Platform.SetLimitBounds)
		})

		// Settlements
		r.With(ownerOnly).Get("/settlements", a.Settlements.List)
		r.With(shopOrOwner).Get("/settlements/pending/{shopkeeperId}", a.Settlements.Pending)
		r.With(shopOrOwner).Get("/settlements/{shopkeeperId}/history", a.Settlements.History)
		r.With(ownerOnly).Post("/settlements/{shopkeeperId}/mark-settled", a.Settlements.MarkSettled)
		r.With(ownerOnly).Get("/settlements/{shopkeeperId}/payout", a.Settlements.Payout)

		// Pairing QR
		r.With(shopkeeperOnly).Post("/qr/pairing", a.QR.GeneratePairing)
		r.With(customerOnly).Post("/qr/scan", a.QR.Scan)
	})
}
