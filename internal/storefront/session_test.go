package storefront

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nolanmyles20/tacticaloffroad/internal/badge"
	"github.com/nolanmyles20/tacticaloffroad/internal/cart"
	"github.com/nolanmyles20/tacticaloffroad/internal/catalog"
	"github.com/nolanmyles20/tacticaloffroad/internal/contracts"
	"github.com/nolanmyles20/tacticaloffroad/internal/events"
	"github.com/nolanmyles20/tacticaloffroad/internal/kv"
	"github.com/nolanmyles20/tacticaloffroad/internal/shopify"
)

const testProducts = `[
  {
    "id": "humvee-roof-rack",
    "title": "Humvee Roof Rack",
    "image": "assets/roof-rack.jpg",
    "basePrice": 1499.99,
    "platforms": ["Humvee"],
    "tags": ["storage"],
    "variant_ids": {"Steel": {"Full": "101"}},
    "powdercoat_variant_id": "900",
    "powdercoat_price": 75
  },
  {
    "id": "recovery-strap",
    "title": "Recovery Strap",
    "image": "assets/strap.jpg",
    "basePrice": 59,
    "platforms": ["Humvee", "Jeep"],
    "tags": ["recovery"],
    "simple": true,
    "variant_ids": {"Solo": {"Default": "301"}}
  }
]`

func newTestSession(t *testing.T, store kv.Store, bus *events.Bus, pub CheckoutPublisher) *Session {
	t.Helper()

	logger := log.New(io.Discard, "", 0)
	cat, err := catalog.Load(strings.NewReader(testProducts))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	var notifier cart.Notifier
	if bus != nil {
		notifier = bus
	}
	cartStore := cart.NewStore(store, notifier, logger)
	client := shopify.NewClient(shopify.Config{
		Shop:    "tacticaloffroad.myshopify.com",
		BaseURL: "https://tacticaloffroad.myshopify.com",
	}, http.DefaultClient, store, logger)
	rec := badge.New(cartStore, nil, logger, badge.WithRecheckOffsets(time.Millisecond))

	return NewSession(cartStore, cat, client, rec, pub, logger)
}

func TestAddFromCatalogResolvesVariant(t *testing.T) {
	s := newTestSession(t, kv.NewMemory(), nil, nil)
	ctx := context.Background()

	c := s.AddFromCatalog(ctx, AddRequest{
		ProductID: "humvee-roof-rack",
		Options:   []string{"Steel", "Full"},
		Qty:       2,
	})

	if len(c.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(c.Lines))
	}
	l := c.Lines[0]
	if l.VariantID != "101" || l.Qty != 2 {
		t.Fatalf("unexpected line %+v", l)
	}
	if l.Title != "Humvee Roof Rack" || l.PriceCents != 149999 || l.ProductID != "humvee-roof-rack" {
		t.Fatalf("catalog metadata not carried onto line: %+v", l)
	}
}

func TestAddFromCatalogPowdercoatAddOn(t *testing.T) {
	s := newTestSession(t, kv.NewMemory(), nil, nil)
	ctx := context.Background()

	c := s.AddFromCatalog(ctx, AddRequest{
		ProductID:  "humvee-roof-rack",
		Options:    []string{"Steel", "Full"},
		Qty:        1,
		Powdercoat: true,
	})

	if len(c.Lines) != 2 {
		t.Fatalf("expected rack plus powdercoat line, got %d", len(c.Lines))
	}
	coat := c.Lines[1]
	if coat.VariantID != "900" || coat.Qty != 1 || coat.Title != "Powdercoat Black" || coat.PriceCents != 7500 {
		t.Fatalf("unexpected powdercoat line %+v", coat)
	}
}

func TestAddFromCatalogSimpleProductNeedsNoOptions(t *testing.T) {
	s := newTestSession(t, kv.NewMemory(), nil, nil)

	c := s.AddFromCatalog(context.Background(), AddRequest{
		ProductID: "recovery-strap",
		Qty:       1,
	})

	if len(c.Lines) != 1 || c.Lines[0].VariantID != "301" {
		t.Fatalf("simple product should resolve its fixed variant, got %+v", c.Lines)
	}
}

func TestAddFromCatalogMissingVariantIsSilentlyDropped(t *testing.T) {
	s := newTestSession(t, kv.NewMemory(), nil, nil)
	ctx := context.Background()

	c := s.AddFromCatalog(ctx, AddRequest{
		ProductID: "humvee-roof-rack",
		Options:   []string{"Titanium", "Full"},
		Qty:       1,
	})
	if len(c.Lines) != 0 {
		t.Fatalf("missing variant must add nothing, got %+v", c.Lines)
	}

	c = s.AddFromCatalog(ctx, AddRequest{ProductID: "no-such-product", Qty: 1})
	if len(c.Lines) != 0 {
		t.Fatalf("unknown product must add nothing, got %+v", c.Lines)
	}
}

type recordingCheckoutPublisher struct {
	envelopes []contracts.EventEnvelope
}

func (r *recordingCheckoutPublisher) PublishCartCheckedOut(ctx context.Context, env contracts.EventEnvelope) error {
	r.envelopes = append(r.envelopes, env)
	return nil
}

func TestCheckoutEnumeratesLinesInOrder(t *testing.T) {
	pub := &recordingCheckoutPublisher{}
	s := newTestSession(t, kv.NewMemory(), nil, pub)
	ctx := context.Background()

	s.Store.Add(ctx, cart.AddInput{VariantID: "111", Qty: 2})
	s.Store.Add(ctx, cart.AddInput{VariantID: "222", Qty: 1})

	res := s.Checkout(ctx)

	if !strings.HasSuffix(res.RedirectURL, "/cart/111:2,222:1") {
		t.Fatalf("unexpected permalink %q", res.RedirectURL)
	}
	if !strings.HasSuffix(res.CheckoutURL, "/checkout") {
		t.Fatalf("unexpected checkout url %q", res.CheckoutURL)
	}

	// the local cart stays as the recovery copy
	if got := s.Store.Count(ctx); got != 3 {
		t.Fatalf("checkout must not clear the local cart, count=%d", got)
	}

	if len(pub.envelopes) != 1 {
		t.Fatalf("expected one checkout event, got %d", len(pub.envelopes))
	}
	env := pub.envelopes[0]
	if env.Sequence != 2 {
		t.Fatalf("expected sequence from storage revision, got %d", env.Sequence)
	}
	if len(env.Payload.Lines) != 2 || env.Payload.Lines[0].VariantID != "111" || env.Payload.Lines[1].VariantID != "222" {
		t.Fatalf("event lines wrong: %+v", env.Payload.Lines)
	}
}

func TestCheckoutEmptyCartIsNoOp(t *testing.T) {
	pub := &recordingCheckoutPublisher{}
	s := newTestSession(t, kv.NewMemory(), nil, pub)

	res := s.Checkout(context.Background())
	if res.RedirectURL != "" || res.CheckoutURL != "" {
		t.Fatalf("empty cart must not hand off: %+v", res)
	}
	if !res.Cart.IsEmpty() {
		t.Fatalf("expected empty cart in result")
	}
	if len(pub.envelopes) != 0 {
		t.Fatalf("empty checkout must not publish events")
	}
}

// Two sessions sharing the same durable store and ping bus stand in for two
// browser tabs of the same origin.
func TestCrossSessionBadgePropagation(t *testing.T) {
	shared := kv.NewMemory()
	bus := events.NewBus()

	tabA := newTestSession(t, shared, bus, nil)
	tabB := newTestSession(t, shared, bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pings, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		tabB.Badge.Run(ctx, pings)
		close(done)
	}()

	tabA.Store.Add(ctx, cart.AddInput{VariantID: "111", Qty: 2})

	deadline := time.Now().Add(2 * time.Second)
	for tabB.Badge.Count() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("tab B badge never reached 2, got %d", tabB.Badge.Count())
		}
		time.Sleep(2 * time.Millisecond)
	}

	// last write wins on the shared key: tab B overwrites, tab A re-reads
	tabB.Store.SetQuantity(ctx, "111", 5)
	if got := tabA.Store.Count(ctx); got != 5 {
		t.Fatalf("tab A should read tab B's write, got %d", got)
	}

	cancel()
	<-done
}
