package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/nolanmyles20/tacticaloffroad/internal/kv"
)

// CartIDKey caches the Storefront cart id between sessions so the remote
// fallback can find a cart created in an earlier visit.
const CartIDKey = "sf_cart_id"

type Config struct {
	// Shop is the myshopify domain, e.g. "tacticaloffroad.myshopify.com".
	Shop       string
	Token      string
	APIVersion string

	// BaseURL overrides "https://<shop>"; tests point it at a local server.
	BaseURL string
}

// Client talks to the platform's cart surfaces: the Storefront GraphQL API
// and the cookie-scoped /cart.js endpoint. It never owns cart truth; callers
// decide how to degrade its errors.
type Client struct {
	baseURL  string
	endpoint string
	token    string
	http     *http.Client
	store    kv.Store
	logger   *log.Logger
}

func NewClient(cfg Config, httpClient *http.Client, store kv.Store, logger *log.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://" + cfg.Shop
	}
	version := cfg.APIVersion
	if version == "" {
		version = "2025-01"
	}

	return &Client{
		baseURL:  base,
		endpoint: fmt.Sprintf("%s/api/%s/graphql.json", base, version),
		token:    cfg.Token,
		http:     httpClient,
		store:    store,
		logger:   logger,
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) graphql(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Storefront-Access-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("storefront request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("storefront status %d", resp.StatusCode)
	}

	var gq graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gq); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(gq.Errors) > 0 {
		return fmt.Errorf("storefront error: %s", gq.Errors[0].Message)
	}

	if out != nil {
		if err := json.Unmarshal(gq.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// EnsureCart returns the cached Storefront cart id, creating a remote cart
// and caching its id on first use.
func (c *Client) EnsureCart(ctx context.Context) (string, error) {
	if id, err := c.store.Get(ctx, CartIDKey); err == nil && id != "" {
		return id, nil
	}

	var data struct {
		CartCreate struct {
			Cart struct {
				ID string `json:"id"`
			} `json:"cart"`
		} `json:"cartCreate"`
	}
	if err := c.graphql(ctx, `mutation CreateCart { cartCreate { cart { id } } }`, nil, &data); err != nil {
		return "", err
	}

	id := data.CartCreate.Cart.ID
	if id == "" {
		return "", fmt.Errorf("cartCreate returned no id")
	}
	if _, err := c.store.Put(ctx, CartIDKey, id); err != nil {
		c.logger.Printf("shopify: cache cart id: %v", err)
	}
	return id, nil
}

// TotalQuantity reports the remote Storefront cart's totalQuantity. A cart
// that no longer exists remotely counts as zero.
func (c *Client) TotalQuantity(ctx context.Context) (int, error) {
	id, err := c.EnsureCart(ctx)
	if err != nil {
		return 0, err
	}

	var data struct {
		Cart *struct {
			TotalQuantity int `json:"totalQuantity"`
		} `json:"cart"`
	}
	query := `query GetCart($id: ID!) { cart(id: $id) { totalQuantity } }`
	if err := c.graphql(ctx, query, map[string]any{"id": id}, &data); err != nil {
		return 0, err
	}
	if data.Cart == nil {
		return 0, nil
	}
	return data.Cart.TotalQuantity, nil
}

// AddLine mirrors a line into the remote cart and returns the remote total.
// Kept for the platform-cart flow; the local add path does not call it.
func (c *Client) AddLine(ctx context.Context, variantID string, qty int) (int, error) {
	id, err := c.EnsureCart(ctx)
	if err != nil {
		return 0, err
	}
	if qty < 1 {
		qty = 1
	}

	var data struct {
		CartLinesAdd struct {
			Cart struct {
				TotalQuantity int `json:"totalQuantity"`
			} `json:"cart"`
		} `json:"cartLinesAdd"`
	}
	query := `
mutation AddLines($cartId: ID!, $lines: [CartLineInput!]!) {
  cartLinesAdd(cartId: $cartId, lines: $lines) { cart { totalQuantity } }
}`
	variables := map[string]any{
		"cartId": id,
		"lines": []map[string]any{
			{"merchandiseId": VariantGID(variantID), "quantity": qty},
		},
	}
	if err := c.graphql(ctx, query, variables, &data); err != nil {
		return 0, err
	}
	return data.CartLinesAdd.Cart.TotalQuantity, nil
}

// SessionQuantity reads the cookie-scoped platform cart via /cart.js. The
// cookie is often blocked by privacy settings, so callers treat any failure
// as "no session cart".
func (c *Client) SessionQuantity(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cart.js", nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("cart.js request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("cart.js status %d", resp.StatusCode)
	}

	var body struct {
		ItemCount int `json:"item_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode cart.js: %w", err)
	}
	return body.ItemCount, nil
}

// VariantGID converts a numeric variant id to the Storefront global id form.
func VariantGID(variantID string) string {
	return "gid://shopify/ProductVariant/" + variantID
}
