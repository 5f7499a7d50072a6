package storefront

import (
	"context"
	"log"

	"github.com/nolanmyles20/tacticaloffroad/internal/badge"
	"github.com/nolanmyles20/tacticaloffroad/internal/cart"
	"github.com/nolanmyles20/tacticaloffroad/internal/catalog"
	"github.com/nolanmyles20/tacticaloffroad/internal/contracts"
	"github.com/nolanmyles20/tacticaloffroad/internal/shopify"
)

// CheckoutPublisher announces a checkout handoff to downstream consumers.
type CheckoutPublisher interface {
	PublishCartCheckedOut(ctx context.Context, env contracts.EventEnvelope) error
}

// Session owns one storefront's state for the lifetime of the process: the
// local cart, the catalog, the remote platform client and the badge. All
// UI-facing operations go through it; there is no ambient package state.
type Session struct {
	Store   *cart.Store
	Catalog *catalog.Catalog
	Shopify *shopify.Client
	Badge   *badge.Reconciler

	publisher CheckoutPublisher
	logger    *log.Logger
}

func NewSession(store *cart.Store, cat *catalog.Catalog, client *shopify.Client, rec *badge.Reconciler, publisher CheckoutPublisher, logger *log.Logger) *Session {
	s := &Session{
		Store:     store,
		Catalog:   cat,
		Shopify:   client,
		Badge:     rec,
		publisher: publisher,
		logger:    logger,
	}

	// Every local mutation updates the badge immediately from local truth,
	// then schedules the staged remote re-checks.
	store.OnMutate = func(ctx context.Context) {
		rec.Refresh(ctx)
		rec.NoteMutation(ctx)
	}

	return s
}

// AddRequest is a catalog-driven add: the variant is resolved from the
// product's option tree rather than supplied directly.
type AddRequest struct {
	ProductID  string
	Options    []string
	Qty        int
	Powdercoat bool
}

// AddFromCatalog resolves the variant for the chosen options and adds it,
// plus the optional powdercoat add-on line. An unknown product or an option
// combination with no variant drops the add silently; the diagnostic log is
// the only trace, per the storefront's no-error-dialog policy.
func (s *Session) AddFromCatalog(ctx context.Context, req AddRequest) cart.Cart {
	p, ok := s.Catalog.Find(req.ProductID)
	if !ok {
		s.logger.Printf("storefront: add for unknown product %q dropped", req.ProductID)
		return s.Store.Read(ctx)
	}

	opts := req.Options
	if p.Simple && len(opts) == 0 {
		// simple products carry a fixed Solo/Default variant path
		opts = []string{"Solo", "Default"}
	}

	variantID, err := p.ResolveVariant(opts...)
	if err != nil {
		s.logger.Printf("storefront: %v", err)
		return s.Store.Read(ctx)
	}

	c := s.Store.Add(ctx, cart.AddInput{
		VariantID:  variantID,
		Qty:        req.Qty,
		Title:      p.Title,
		Image:      p.Image,
		PriceCents: p.PriceCents(),
		ProductID:  p.ID,
	})

	if req.Powdercoat && p.PowdercoatVariantID != "" {
		c = s.Store.Add(ctx, cart.AddInput{
			VariantID:  p.PowdercoatVariantID,
			Qty:        1,
			Title:      "Powdercoat Black",
			Image:      p.Image,
			PriceCents: p.PowdercoatPriceCents(),
			ProductID:  p.ID,
		})
	}

	return c
}

// CheckoutResult carries the permalink handoff. RedirectURL is empty when
// the cart was empty and no handoff happened.
type CheckoutResult struct {
	Cart        cart.Cart `json:"cart"`
	RedirectURL string    `json:"redirectUrl,omitempty"`
	CheckoutURL string    `json:"checkoutUrl,omitempty"`
}

// Checkout reads the full local cart and, if non-empty, builds the platform
// permalink enumerating every line in stored order. The local cart is kept as
// the recovery copy; order confirmation is never observed here.
func (s *Session) Checkout(ctx context.Context) CheckoutResult {
	c := s.Store.Read(ctx)
	if c.IsEmpty() {
		return CheckoutResult{Cart: c}
	}

	res := CheckoutResult{
		Cart:        c,
		RedirectURL: s.Shopify.BuildCheckoutRedirectURL(c.Lines),
		CheckoutURL: s.Shopify.CheckoutURL(),
	}

	if s.publisher != nil {
		env := contracts.BuildCartCheckedOutEvent(c, contracts.EnvelopeOptions{
			PartitionKey: cart.CartKey,
			Sequence:     s.Store.Revision(),
			CheckoutURL:  res.RedirectURL,
		})
		if err := s.publisher.PublishCartCheckedOut(ctx, env); err != nil {
			s.logger.Printf("storefront: publish checkout event: %v", err)
		}
	}

	return res
}
