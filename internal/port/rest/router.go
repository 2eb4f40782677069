package rest

import (
	"net/http"

	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	JWTSecret   string
	AdminRole   string
	MetricsPath string
}

func NewRouter(h *Handler, cfg RouterConfig, m *metrics.Metrics, log logger.Logger) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(RequestLogger(log, m))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if m != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Method(http.MethodGet, path, m.Handler())
	}

	mux.Get("/api/search", h.Search)
	mux.Get("/api/products/{id}", h.GetProduct)
	mux.Get("/api/markets/{id}", h.GetMarket)
	mux.Get("/api/boosts/{slot}", h.SelectBoosted)
	mux.Get("/api/categories/{id}", h.GetCategory)
	mux.Post("/api/contact-us", h.ContactUs)

	mux.Group(func(r chi.Router) {
		r.Use(JWTAuth(cfg.JWTSecret, log))

		r.Post("/api/products", h.CreateProduct)
		r.Delete("/api/products/{id}", h.DeleteProduct)
		r.Post("/api/products/{id}/boosts", h.PurchaseBoost)
		r.Post("/api/markets", h.CreateMarket)
		r.Delete("/api/markets/{id}", h.DeleteMarket)
		r.Get("/api/me/listings", h.MyListings)

		r.Get("/api/cart", h.ListCart)
		r.Post("/api/cart/items", h.AddCartItem)
		r.Put("/api/cart/items", h.UpdateCartItem)
		r.Get("/api/cart/items/{itemId}", h.GetCartItem)
		r.Delete("/api/cart/items/{itemId}", h.RemoveCartItem)

		r.Get("/api/orders/preview", h.PreviewOrder)
		r.Post("/api/orders", h.BuyProduct)
		r.Get("/api/orders", h.ListOrders)
		r.Get("/api/orders/{id}", h.GetOrder)

		r.Post("/api/subscriptions/{id}/consume", h.ConsumeSubscription)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(cfg.AdminRole))
			r.Post("/api/admin/categories/{id}/resync", h.ResyncCategory)
		})
	})

	return mux
}
