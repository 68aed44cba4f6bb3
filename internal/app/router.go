package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/billhive/billhive/internal/auth"
	"github.com/billhive/billhive/internal/billing"
	"github.com/billhive/billhive/internal/masterdata"
	"github.com/billhive/billhive/internal/observability"
	"github.com/billhive/billhive/internal/payments"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Metrics           *observability.Metrics
	AuthHandler       *auth.Handler
	AuthMiddleware    func(http.Handler) http.Handler
	BillingHandler    *billing.Handler
	PaymentsHandler   *payments.Handler
	MasterDataHandler *masterdata.Handler
}

// NewRouter constructs the chi.Router with Billhive defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.Metrics.Middleware)

	r.Handle("/metrics", params.Metrics.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware)
			r.Route("/business", params.MasterDataHandler.MountBusinessRoutes)
			r.Route("/customers", params.MasterDataHandler.MountCustomerRoutes)
			r.Route("/products", params.MasterDataHandler.MountProductRoutes)
			r.Route("/invoices", params.BillingHandler.MountRoutes)
			r.Route("/payments", params.PaymentsHandler.MountRoutes)
		})
	})

	return r
}
