package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrNoVariant means an option combination has no purchasable variant behind
// it. Adds hitting this are dropped, never surfaced to the shopper.
var ErrNoVariant = errors.New("catalog: no variant for option combination")

type OptionLabels struct {
	First  string `json:"first,omitempty"`
	Second string `json:"second,omitempty"`
	Third  string `json:"third,omitempty"`
}

// VariantNode is one level of the option tree: either a leaf variant id or a
// map of the next option's values. The tree is 1-3 levels deep.
type VariantNode struct {
	ID       string
	Children map[string]VariantNode
}

func (n *VariantNode) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &n.ID)
	}
	return json.Unmarshal(data, &n.Children)
}

func (n VariantNode) MarshalJSON() ([]byte, error) {
	if n.ID != "" {
		return json.Marshal(n.ID)
	}
	return json.Marshal(n.Children)
}

type Product struct {
	ID                  string                 `json:"id"`
	Title               string                 `json:"title"`
	Desc                string                 `json:"desc"`
	Image               string                 `json:"image"`
	BasePrice           float64                `json:"basePrice"`
	Platforms           []string               `json:"platforms"`
	Tags                []string               `json:"tags"`
	Simple              bool                   `json:"simple,omitempty"`
	OptionLabels        OptionLabels           `json:"option_labels,omitempty"`
	VariantIDs          map[string]VariantNode `json:"variant_ids"`
	PowdercoatVariantID string                 `json:"powdercoat_variant_id,omitempty"`
	PowdercoatPrice     float64                `json:"powdercoat_price,omitempty"`
}

// PriceCents converts the catalog's dollar base price to integer cents.
func (p Product) PriceCents() int {
	return int(math.Round(p.BasePrice * 100))
}

// PowdercoatPriceCents returns the add-on price in cents; the catalog's
// historical default is $50 when a powdercoat variant exists without a price.
func (p Product) PowdercoatPriceCents() int {
	if p.PowdercoatPrice > 0 {
		return int(math.Round(p.PowdercoatPrice * 100))
	}
	return 5000
}

// ResolveVariant walks the option tree with the given option values in order
// and returns the variant id at the leaf. Any unknown value, short path or
// left-over depth resolves to ErrNoVariant.
func (p Product) ResolveVariant(options ...string) (string, error) {
	node := VariantNode{Children: p.VariantIDs}
	for _, opt := range options {
		if node.Children == nil {
			return "", fmt.Errorf("%w: extra option %q on product %s", ErrNoVariant, opt, p.ID)
		}
		next, ok := node.Children[opt]
		if !ok {
			return "", fmt.Errorf("%w: option %q on product %s", ErrNoVariant, opt, p.ID)
		}
		node = next
	}
	if node.ID == "" {
		return "", fmt.Errorf("%w: incomplete options on product %s", ErrNoVariant, p.ID)
	}
	return node.ID, nil
}

// Catalog is the static product source; loaded once, read-only afterwards.
type Catalog struct {
	products []Product
	byID     map[string]Product
}

func Load(r io.Reader) (*Catalog, error) {
	var products []Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &Catalog{products: products, byID: byID}, nil
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (c *Catalog) Products() []Product {
	return c.products
}

func (c *Catalog) Find(id string) (Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Filter returns products matching the platform (empty matches all) that
// carry every requested tag, preserving catalog order. The result is never
// nil so it always encodes as a JSON array.
func (c *Catalog) Filter(platform string, tags []string) []Product {
	out := []Product{}
	for _, p := range c.products {
		if platform != "" && !contains(p.Platforms, platform) {
			continue
		}
		if !containsAll(p.Tags, tags) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsAll(list, wanted []string) bool {
	for _, w := range wanted {
		if !contains(list, w) {
			return false
		}
	}
	return true
}
