package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stocklens/stocklens/internal/catalog/categories"
	"github.com/stocklens/stocklens/internal/catalog/products"
	"github.com/stocklens/stocklens/internal/dashboard"
	"github.com/stocklens/stocklens/internal/members"
	"github.com/stocklens/stocklens/internal/observability"
	"github.com/stocklens/stocklens/internal/orders"
	"github.com/stocklens/stocklens/internal/shared"
	"github.com/stocklens/stocklens/internal/stocks"
	"github.com/stocklens/stocklens/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	Resolver shared.Resolver

	ProductHandler   *products.Handler
	CategoryHandler  *categories.Handler
	StockHandler     *stocks.Handler
	OrderHandler     *orders.Handler
	MemberHandler    *members.Handler
	DashboardHandler *dashboard.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with StockLens defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Resolver: params.Resolver,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		if params.Resolver != nil {
			r.Use(PrincipalMiddleware(params.Logger, params.Resolver))
		}

		if params.ProductHandler != nil {
			r.Route("/products", params.ProductHandler.MountRoutes)
		}
		if params.CategoryHandler != nil {
			r.Route("/categories", params.CategoryHandler.MountRoutes)
		}
		if params.StockHandler != nil {
			r.Route("/stocks", params.StockHandler.MountRoutes)
		}
		if params.OrderHandler != nil {
			r.Route("/orders", params.OrderHandler.MountRoutes)
		}
		if params.MemberHandler != nil {
			r.Route("/members", params.MemberHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
	})

	return r
}
