package cart

// Line is one purchasable variant in the cart plus its display metadata.
// VariantID is the unique key within a cart; Qty is always >= 1 once persisted.
type Line struct {
	VariantID  string `json:"variantId"`
	Qty        int    `json:"qty"`
	Title      string `json:"title,omitempty"`
	Image      string `json:"image,omitempty"`
	PriceCents int    `json:"price_cents,omitempty"`
	ProductID  string `json:"productId,omitempty"`
}

type Cart struct {
	Lines []Line `json:"lines"`
}

// Count sums line quantities; this is the number the badge shows.
func (c Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Qty
	}
	return n
}

func (c Cart) SubtotalCents() int {
	sum := 0
	for _, l := range c.Lines {
		sum += l.PriceCents * l.Qty
	}
	return sum
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
