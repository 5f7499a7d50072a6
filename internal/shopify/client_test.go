package shopify

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nolanmyles20/tacticaloffroad/internal/cart"
	"github.com/nolanmyles20/tacticaloffroad/internal/kv"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *kv.Memory) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	mem := kv.NewMemory()
	c := NewClient(Config{
		Shop:    "tacticaloffroad.myshopify.com",
		Token:   "test-token",
		BaseURL: srv.URL,
	}, srv.Client(), mem, log.New(io.Discard, "", 0))
	return c, mem
}

type graphqlEcho struct {
	t       *testing.T
	handler func(query string, variables map[string]any) any
}

func (g graphqlEcho) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Shopify-Storefront-Access-Token") != "test-token" {
		g.t.Errorf("missing storefront token header")
	}

	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.t.Fatalf("decode graphql request: %v", err)
	}

	data := g.handler(req.Query, req.Variables)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func TestEnsureCartCreatesOnceAndCaches(t *testing.T) {
	calls := 0
	c, mem := newTestClient(t, graphqlEcho{t: t, handler: func(query string, _ map[string]any) any {
		if !strings.Contains(query, "cartCreate") {
			t.Fatalf("unexpected query %q", query)
		}
		calls++
		return map[string]any{"cartCreate": map[string]any{"cart": map[string]any{"id": "gid://shopify/Cart/abc"}}}
	}})
	ctx := context.Background()

	id1, err := c.EnsureCart(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id2, err := c.EnsureCart(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if id1 != "gid://shopify/Cart/abc" || id1 != id2 {
		t.Fatalf("unexpected ids %q %q", id1, id2)
	}
	if calls != 1 {
		t.Fatalf("expected one cartCreate call, got %d", calls)
	}
	if cached, _ := mem.Get(ctx, CartIDKey); cached != id1 {
		t.Fatalf("cart id not cached, got %q", cached)
	}
}

func TestTotalQuantity(t *testing.T) {
	c, mem := newTestClient(t, graphqlEcho{t: t, handler: func(query string, variables map[string]any) any {
		if variables["id"] != "cart-1" {
			t.Fatalf("unexpected cart id %v", variables["id"])
		}
		return map[string]any{"cart": map[string]any{"totalQuantity": 5}}
	}})
	ctx := context.Background()
	if _, err := mem.Put(ctx, CartIDKey, "cart-1"); err != nil {
		t.Fatalf("seed cart id: %v", err)
	}

	qty, err := c.TotalQuantity(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 5 {
		t.Fatalf("expected 5, got %d", qty)
	}
}

func TestTotalQuantityMissingRemoteCartIsZero(t *testing.T) {
	c, mem := newTestClient(t, graphqlEcho{t: t, handler: func(string, map[string]any) any {
		return map[string]any{"cart": nil}
	}})
	ctx := context.Background()
	if _, err := mem.Put(ctx, CartIDKey, "cart-gone"); err != nil {
		t.Fatalf("seed cart id: %v", err)
	}

	qty, err := c.TotalQuantity(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 0 {
		t.Fatalf("expected 0 for missing remote cart, got %d", qty)
	}
}

func TestAddLineConvertsVariantToGID(t *testing.T) {
	var gotLines []any
	c, mem := newTestClient(t, graphqlEcho{t: t, handler: func(query string, variables map[string]any) any {
		gotLines, _ = variables["lines"].([]any)
		return map[string]any{"cartLinesAdd": map[string]any{"cart": map[string]any{"totalQuantity": 3}}}
	}})
	ctx := context.Background()
	if _, err := mem.Put(ctx, CartIDKey, "cart-1"); err != nil {
		t.Fatalf("seed cart id: %v", err)
	}

	total, err := c.AddLine(ctx, "4455", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected remote total 3, got %d", total)
	}

	if len(gotLines) != 1 {
		t.Fatalf("expected one line, got %v", gotLines)
	}
	line := gotLines[0].(map[string]any)
	if line["merchandiseId"] != "gid://shopify/ProductVariant/4455" {
		t.Fatalf("unexpected merchandise id %v", line["merchandiseId"])
	}
	if line["quantity"] != float64(1) {
		t.Fatalf("expected quantity clamped to 1, got %v", line["quantity"])
	}
}

func TestSessionQuantity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cart.js", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"item_count": 4})
	})
	c, _ := newTestClient(t, mux)

	qty, err := c.SessionQuantity(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 4 {
		t.Fatalf("expected 4, got %d", qty)
	}
}

func TestSessionQuantityErrorStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cart.js", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	})
	c, _ := newTestClient(t, mux)

	if _, err := c.SessionQuantity(context.Background()); err == nil {
		t.Fatalf("expected error for non-200 status")
	}
}

func TestGraphqlErrorsSurface(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": "invalid token"}},
		})
	})
	c, _ := newTestClient(t, mux)

	if _, err := c.EnsureCart(context.Background()); err == nil {
		t.Fatalf("expected graphql errors to surface")
	}
}

func TestBuildCheckoutRedirectURL(t *testing.T) {
	c, _ := newTestClient(t, http.NewServeMux())

	lines := []cart.Line{
		{VariantID: "111", Qty: 2},
		{VariantID: "222", Qty: 1},
	}
	got := c.BuildCheckoutRedirectURL(lines)
	if !strings.HasSuffix(got, "/cart/111:2,222:1") {
		t.Fatalf("unexpected permalink %q", got)
	}

	if got := c.BuildCheckoutRedirectURL(nil); got != "" {
		t.Fatalf("empty cart must yield empty permalink, got %q", got)
	}
}

func TestCheckoutURL(t *testing.T) {
	c, _ := newTestClient(t, http.NewServeMux())
	if !strings.HasSuffix(c.CheckoutURL(), "/checkout") {
		t.Fatalf("unexpected checkout url %q", c.CheckoutURL())
	}
}
