package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *StorefrontHandler, allowOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Logger)
	r.Use(CORS(allowOrigins))

	r.Get("/health", healthHandler)

	r.Get("/api/products", h.ListProducts)

	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Post("/product", h.AddProduct)
		r.Patch("/items/{variantId}", h.SetQuantity)
		r.Delete("/items/{variantId}", h.RemoveItem)
		r.Get("/subtotal", h.Subtotal)
		r.Get("/badge", h.GetBadge)
		r.Post("/badge/refresh", h.RefreshBadge)
		r.Post("/checkout", h.Checkout)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "service": "storefront"}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
