package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nolanmyles20/tacticaloffroad/internal/kv"
)

const (
	// CartKey holds the full cart snapshot as JSON.
	CartKey = "headless_cart_v1"
	// PingKey holds an opaque changing value; other sessions watch it to
	// know the cart key changed without comparing snapshots.
	PingKey = "headless_cart_ping"
)

// Notifier fans a cart-changed ping out to other storefront sessions.
type Notifier interface {
	NotifyCartChanged(ctx context.Context, ping string) error
}

// AddInput carries one add-to-cart request. Zero-valued optional fields are
// treated as "not supplied" and never overwrite existing line metadata.
type AddInput struct {
	VariantID  string
	Qty        int
	Title      string
	Image      string
	PriceCents int
	ProductID  string
}

// Store is the single authority for pending-purchase state. Every mutation
// persists the full snapshot, bumps the ping key and notifies other sessions
// before returning. Reads always go to storage, so a mutation made by any
// session is visible to the next Read.
type Store struct {
	store    kv.Store
	notifier Notifier
	logger   *log.Logger

	revision atomic.Int64

	// OnMutate, when set, is invoked after every successful mutation.
	// The badge reconciler hooks its post-mutation re-check here.
	OnMutate func(ctx context.Context)
}

func NewStore(store kv.Store, notifier Notifier, logger *log.Logger) *Store {
	return &Store{store: store, notifier: notifier, logger: logger}
}

// Read returns the persisted cart. Absent, corrupt or unreadable storage all
// degrade to an empty cart; Read never fails.
func (s *Store) Read(ctx context.Context) Cart {
	c, _ := s.read(ctx)
	return c
}

// read separates "no cart" from a failing backend. Absent and corrupt
// snapshots are an empty cart; any other Get error is returned so mutations
// never persist a snapshot built from a misread.
func (s *Store) read(ctx context.Context) (Cart, error) {
	raw, err := s.store.Get(ctx, CartKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return Cart{}, nil
		}
		return Cart{}, err
	}

	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Cart{}, nil
	}
	return c, nil
}

// Add merges a line into the cart. An existing variant gets its quantity
// incremented by max(1, in.Qty) and only non-zero optional fields overwrite
// the stored metadata; a new variant is appended with qty = max(1, in.Qty).
func (s *Store) Add(ctx context.Context, in AddInput) Cart {
	c, err := s.read(ctx)
	if err != nil {
		s.logger.Printf("cart: read before add: %v", err)
		return c
	}
	if in.VariantID == "" {
		s.logger.Printf("cart: add without variant id dropped")
		return c
	}

	qty := in.Qty
	if qty < 1 {
		qty = 1
	}

	merged := false
	for i := range c.Lines {
		if c.Lines[i].VariantID != in.VariantID {
			continue
		}
		c.Lines[i].Qty += qty
		if in.Title != "" {
			c.Lines[i].Title = in.Title
		}
		if in.Image != "" {
			c.Lines[i].Image = in.Image
		}
		if in.PriceCents > 0 {
			c.Lines[i].PriceCents = in.PriceCents
		}
		if in.ProductID != "" {
			c.Lines[i].ProductID = in.ProductID
		}
		merged = true
		break
	}

	if !merged {
		c.Lines = append(c.Lines, Line{
			VariantID:  in.VariantID,
			Qty:        qty,
			Title:      in.Title,
			Image:      in.Image,
			PriceCents: in.PriceCents,
			ProductID:  in.ProductID,
		})
	}

	s.persist(ctx, c)
	return c
}

// SetQuantity sets (not adds) a line's quantity. qty <= 0 removes the line.
// Unknown variants are a no-op and do not touch storage.
func (s *Store) SetQuantity(ctx context.Context, variantID string, qty int) Cart {
	c, err := s.read(ctx)
	if err != nil {
		s.logger.Printf("cart: read before set quantity: %v", err)
		return c
	}

	idx := -1
	for i := range c.Lines {
		if c.Lines[i].VariantID == variantID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return c
	}

	if qty <= 0 {
		c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	} else {
		c.Lines[idx].Qty = qty
	}

	s.persist(ctx, c)
	return c
}

// Remove deletes the line for variantID if present; no-op otherwise.
func (s *Store) Remove(ctx context.Context, variantID string) Cart {
	c, err := s.read(ctx)
	if err != nil {
		s.logger.Printf("cart: read before remove: %v", err)
		return c
	}

	kept := c.Lines[:0]
	removed := false
	for _, l := range c.Lines {
		if l.VariantID == variantID {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	if !removed {
		return c
	}
	c.Lines = kept

	s.persist(ctx, c)
	return c
}

func (s *Store) Clear(ctx context.Context) Cart {
	c := Cart{}
	s.persist(ctx, c)
	return c
}

func (s *Store) Count(ctx context.Context) int {
	return s.Read(ctx).Count()
}

func (s *Store) SubtotalCents(ctx context.Context) int {
	return s.Read(ctx).SubtotalCents()
}

// Revision reports the storage revision of the last snapshot this session
// wrote; zero before the first write.
func (s *Store) Revision() int64 {
	return s.revision.Load()
}

// persist writes the full snapshot and bumps the ping key. Write failures are
// logged and otherwise swallowed: the in-memory result still stands and the
// next successful mutation rewrites the whole cart anyway.
func (s *Store) persist(ctx context.Context, c Cart) {
	raw, err := json.Marshal(c)
	if err != nil {
		s.logger.Printf("cart: marshal snapshot: %v", err)
		return
	}

	rev, err := s.store.Put(ctx, CartKey, string(raw))
	if err != nil {
		s.logger.Printf("cart: persist snapshot: %v", err)
	} else {
		s.revision.Store(rev)
	}

	ping := uuid.NewString()
	if _, err := s.store.Put(ctx, PingKey, ping); err != nil {
		s.logger.Printf("cart: bump ping key: %v", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyCartChanged(ctx, ping); err != nil {
			s.logger.Printf("cart: notify change: %v", err)
		}
	}

	if s.OnMutate != nil {
		s.OnMutate(ctx)
	}
}
