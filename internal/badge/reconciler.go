package badge

import (
	"context"
	"log"
	"sync"
	"time"
)

// LocalCart is the authoritative local count source.
type LocalCart interface {
	Count(ctx context.Context) int
}

// RemoteCart supplies the best-effort remote signals consulted only when the
// local cart is empty.
type RemoteCart interface {
	TotalQuantity(ctx context.Context) (int, error)
	SessionQuantity(ctx context.Context) (int, error)
}

const (
	defaultInterval      = 15 * time.Second
	defaultRemoteTimeout = 5 * time.Second
)

// Offsets at which the badge re-checks after a local mutation, absorbing the
// remote platform's eventual-consistency lag.
var defaultRecheckOffsets = []time.Duration{time.Second, 3 * time.Second, 6 * time.Second}

// Reconciler derives the single displayed item count. Local truth wins; the
// remote cart is consulted only when the local cart is empty, to recover
// carts created through another entry point. Remote failures degrade to zero
// and are never surfaced.
type Reconciler struct {
	local         LocalCart
	remote        RemoteCart
	logger        *log.Logger
	interval      time.Duration
	remoteTimeout time.Duration
	offsets       []time.Duration

	// OnChange, when set, observes every change of the displayed count.
	OnChange func(n int)

	mu          sync.Mutex
	count       int
	retryCancel context.CancelFunc
}

type Option func(*Reconciler)

func WithInterval(d time.Duration) Option {
	return func(r *Reconciler) { r.interval = d }
}

func WithRemoteTimeout(d time.Duration) Option {
	return func(r *Reconciler) { r.remoteTimeout = d }
}

func WithRecheckOffsets(offsets ...time.Duration) Option {
	return func(r *Reconciler) { r.offsets = offsets }
}

func New(local LocalCart, remote RemoteCart, logger *log.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		local:         local,
		remote:        remote,
		logger:        logger,
		interval:      defaultInterval,
		remoteTimeout: defaultRemoteTimeout,
		offsets:       defaultRecheckOffsets,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Count returns the currently displayed badge value.
func (r *Reconciler) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Refresh recomputes the badge once and returns the new value.
func (r *Reconciler) Refresh(ctx context.Context) int {
	if localQty := r.local.Count(ctx); localQty > 0 {
		r.set(localQty)
		return localQty
	}

	remoteA, remoteB := r.remoteSignals(ctx)
	qty := remoteA
	if remoteB > qty {
		qty = remoteB
	}
	if qty < 0 {
		qty = 0
	}
	r.set(qty)
	return qty
}

// remoteSignals queries the Storefront cart and the cookie-session cart
// concurrently; either failure counts as zero.
func (r *Reconciler) remoteSignals(ctx context.Context) (int, int) {
	if r.remote == nil {
		return 0, 0
	}

	rctx, cancel := context.WithTimeout(ctx, r.remoteTimeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		sfQty  int
		sesQty int
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		n, err := r.remote.TotalQuantity(rctx)
		if err != nil {
			r.logger.Printf("badge: storefront quantity: %v", err)
			return
		}
		sfQty = n
	}()
	go func() {
		defer wg.Done()
		n, err := r.remote.SessionQuantity(rctx)
		if err != nil {
			r.logger.Printf("badge: session quantity: %v", err)
			return
		}
		sesQty = n
	}()
	wg.Wait()

	return sfQty, sesQty
}

// Run refreshes on a fixed interval and on every cross-session ping until ctx
// is cancelled. Callers own the ping subscription's lifecycle.
func (r *Reconciler) Run(ctx context.Context, pings <-chan string) {
	r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.cancelRecheck()
			return
		case <-ticker.C:
			r.Refresh(ctx)
		case _, ok := <-pings:
			if !ok {
				pings = nil
				continue
			}
			r.Refresh(ctx)
		}
	}
}

// Wake is the visibility-became-active trigger.
func (r *Reconciler) Wake(ctx context.Context) {
	r.Refresh(ctx)
}

// NoteMutation runs the staged post-mutation re-checks as one cancellable
// task. A newer mutation supersedes the previous task, so rapid repeated adds
// never stack overlapping re-check timers.
func (r *Reconciler) NoteMutation(ctx context.Context) {
	// Detach from the caller's (likely request-scoped) context so the
	// re-checks outlive the triggering request.
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	r.mu.Lock()
	if r.retryCancel != nil {
		r.retryCancel()
	}
	r.retryCancel = cancel
	r.mu.Unlock()

	go func() {
		elapsed := time.Duration(0)
		for _, offset := range r.offsets {
			select {
			case <-taskCtx.Done():
				return
			case <-time.After(offset - elapsed):
			}
			elapsed = offset
			r.Refresh(taskCtx)
		}
	}()
}

func (r *Reconciler) cancelRecheck() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retryCancel != nil {
		r.retryCancel()
		r.retryCancel = nil
	}
}

func (r *Reconciler) set(n int) {
	r.mu.Lock()
	changed := n != r.count
	r.count = n
	onChange := r.OnChange
	r.mu.Unlock()

	if changed && onChange != nil {
		onChange(n)
	}
}
