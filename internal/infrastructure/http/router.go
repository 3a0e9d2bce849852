package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(handler *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", handler.Healthz)

		r.Post("/transactions", handler.CreateTransaction)
		r.Route("/transactions/{id}", func(r chi.Router) {
			r.Get("/", handler.GetTransaction)
			r.Post("/checkout", handler.Checkout)
			r.Post("/returns", handler.ReturnItems)
			r.Post("/void", handler.Void)
			r.Post("/comp", handler.Comp)
			r.Get("/ledger", handler.ListLedger)
		})

		r.Route("/customers/{customerID}", func(r chi.Router) {
			r.Get("/payment-methods", handler.ListPaymentMethods)
			r.Post("/payment-methods", handler.AddPaymentMethod)
			r.Delete("/payment-methods/{methodID}", handler.DeletePaymentMethod)
			r.Put("/payment-methods/{methodID}/primary", handler.SetPrimaryPaymentMethod)
			r.Post("/profile/sync", handler.SyncProfile)
			r.Delete("/profile", handler.DeleteProfile)
		})

		r.Post("/ledger-entries/{id}/reconcile", handler.ReconcileEntry)
	})

	return r
}
