package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nolanmyles20/tacticaloffroad/internal/cart"
	"github.com/nolanmyles20/tacticaloffroad/internal/storefront"
)

type StorefrontHandler struct {
	session *storefront.Session
}

func NewStorefrontHandler(session *storefront.Session) *StorefrontHandler {
	return &StorefrontHandler{session: session}
}

func (h *StorefrontHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")
	tags := r.URL.Query()["tag"]

	products := h.session.Catalog.Filter(platform, tags)
	writeJSON(w, http.StatusOK, products)
}

func (h *StorefrontHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := opCtx(r)
	defer cancel()

	writeJSON(w, http.StatusOK, h.session.Store.Read(ctx))
}

func (h *StorefrontHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := opCtx(r)
	defer cancel()

	writeJSON(w, http.StatusOK, h.session.Store.Clear(ctx))
}

func (h *StorefrontHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VariantID  string `json:"variantId"`
		Qty        int    `json:"qty"`
		Title      string `json:"title"`
		Image      string `json:"image"`
		PriceCents int    `json:"priceCents"`
		ProductID  string `json:"productId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.VariantID == "" {
		writeError(w, http.StatusBadRequest, "missing variantId")
		return
	}

	ctx, cancel := opCtx(r)
	defer cancel()

	c := h.session.Store.Add(ctx, cart.AddInput{
		VariantID:  body.VariantID,
		Qty:        body.Qty,
		Title:      body.Title,
		Image:      body.Image,
		PriceCents: body.PriceCents,
		ProductID:  body.ProductID,
	})
	writeJSON(w, http.StatusOK, c)
}

// AddProduct is the catalog-driven add: options are resolved server-side to a
// variant. An unresolvable combination returns the unchanged cart; the
// storefront never shows an add-to-cart error.
func (h *StorefrontHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID  string   `json:"productId"`
		Options    []string `json:"options"`
		Qty        int      `json:"qty"`
		Powdercoat bool     `json:"powdercoat"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.ProductID == "" {
		writeError(w, http.StatusBadRequest, "missing productId")
		return
	}

	ctx, cancel := opCtx(r)
	defer cancel()

	c := h.session.AddFromCatalog(ctx, storefront.AddRequest{
		ProductID:  body.ProductID,
		Options:    body.Options,
		Qty:        body.Qty,
		Powdercoat: body.Powdercoat,
	})
	writeJSON(w, http.StatusOK, c)
}

func (h *StorefrontHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	variantID := chi.URLParam(r, "variantId")
	if variantID == "" {
		writeError(w, http.StatusBadRequest, "missing variantId")
		return
	}

	var body struct {
		Qty int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := opCtx(r)
	defer cancel()

	writeJSON(w, http.StatusOK, h.session.Store.SetQuantity(ctx, variantID, body.Qty))
}

func (h *StorefrontHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	variantID := chi.URLParam(r, "variantId")
	if variantID == "" {
		writeError(w, http.StatusBadRequest, "missing variantId")
		return
	}

	ctx, cancel := opCtx(r)
	defer cancel()

	writeJSON(w, http.StatusOK, h.session.Store.Remove(ctx, variantID))
}

func (h *StorefrontHandler) GetBadge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": h.session.Badge.Count()})
}

// RefreshBadge is the became-visible trigger: refresh now, return the result.
func (h *StorefrontHandler) RefreshBadge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := opCtx(r)
	defer cancel()

	h.session.Badge.Wake(ctx)
	writeJSON(w, http.StatusOK, map[string]int{"count": h.session.Badge.Count()})
}

func (h *StorefrontHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := opCtx(r)
	defer cancel()

	res := h.session.Checkout(ctx)
	writeJSON(w, http.StatusOK, res)
}

func (h *StorefrontHandler) Subtotal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := opCtx(r)
	defer cancel()

	writeJSON(w, http.StatusOK, map[string]int{"subtotalCents": h.session.Store.SubtotalCents(ctx)})
}

func opCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 3*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
