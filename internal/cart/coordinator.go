// Package cart implements optimistic cart mutations: the user sees the
// would-be result immediately, the server is asked afterwards, and a failed
// request restores the exact pre-mutation snapshot. After every settlement an
// authoritative refetch heals any drift between speculation and server truth.
package cart

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"fieldcart/internal/domain"
	"fieldcart/internal/metrics"
	"fieldcart/internal/notify"
)

// API is the REST seam the coordinator commits mutations through.
type API interface {
	GetCart(ctx context.Context) (*domain.Cart, error)
	AddCartItem(ctx context.Context, productID string, quantity int) error
	UpdateCartQuantity(ctx context.Context, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, productID string) error
}

// State of the in-flight mutation, per the coordinator's state machine
// Idle -> Speculating -> AwaitingServer -> {Reconciled | RolledBack} -> Idle.
type State string

const (
	StateIdle           State = "idle"
	StateSpeculating    State = "speculating"
	StateAwaitingServer State = "awaiting-server"
	StateReconciled     State = "reconciled"
	StateRolledBack     State = "rolled-back"
)

// Coordinator owns the live cart snapshot for one view. The mutex guards
// memory only; two rapid mutations are deliberately not serialized against
// each other's server round-trips, matching the behavior this was built to
// reproduce.
type Coordinator struct {
	mu       sync.Mutex
	api      API
	notifier notify.Notifier
	log      zerolog.Logger

	cart          *domain.Cart
	state         State
	cancelRefetch context.CancelFunc
	refetches     sync.WaitGroup
}

func NewCoordinator(api API, notifier notify.Notifier, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		api:      api,
		notifier: notifier,
		log:      log.With().Str("component", "cart").Logger(),
		cart:     &domain.Cart{},
		state:    StateIdle,
	}
}

// Load fetches the authoritative cart, replacing local state. On failure the
// prior cart is left untouched.
func (c *Coordinator) Load(ctx context.Context) error {
	cart, err := c.api.GetCart(ctx)
	if err != nil {
		c.notifier.Error("error loading cart")
		return err
	}
	c.mu.Lock()
	c.cart = cart
	c.mu.Unlock()
	return nil
}

// Cart returns a copy of the live cart for rendering.
func (c *Coordinator) Cart() *domain.Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.Clone()
}

// State returns the current mutation state for the view layer.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UpdateQuantity optimistically sets a line's quantity. Quantities below 1
// are rejected before anything happens: no request, no speculative render.
// Removal is the only path to zero.
func (c *Coordinator) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return nil
	}

	c.mu.Lock()
	line := c.cart.Line(productID)
	if line == nil {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	snapshot := c.beginMutation()
	line.Quantity = quantity
	c.cart.Recalculate()
	c.state = StateAwaitingServer
	c.mu.Unlock()

	err := c.api.UpdateCartQuantity(ctx, productID, quantity)
	c.settle(err, snapshot, "cart updated", "failed to update cart")
	return err
}

// Remove optimistically drops a line, subtracting its contribution from the
// grand total before the server answers.
func (c *Coordinator) Remove(ctx context.Context, productID string) error {
	c.mu.Lock()
	if c.cart.Line(productID) == nil {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	snapshot := c.beginMutation()
	kept := c.cart.Lines[:0:0]
	for _, l := range c.cart.Lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	c.cart.Lines = kept
	c.cart.Recalculate()
	c.state = StateAwaitingServer
	c.mu.Unlock()

	err := c.api.RemoveCartItem(ctx, productID)
	c.settle(err, snapshot, "item removed from cart", "failed to remove item")
	return err
}

// Add is a plain, non-optimistic mutation: request first, then refetch. Only
// update and remove get the speculative treatment.
func (c *Coordinator) Add(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidInput
	}
	err := c.api.AddCartItem(ctx, productID, quantity)
	if err != nil {
		c.notifier.Error("failed to add item to cart")
	} else {
		c.notifier.Success("item added to cart")
	}
	c.mu.Lock()
	c.scheduleRefetch()
	c.mu.Unlock()
	return err
}

// Wait blocks until every scheduled refetch has settled. The terminal client
// calls it on shutdown; tests use it for determinism.
func (c *Coordinator) Wait() {
	c.refetches.Wait()
}

// beginMutation cancels any pending background refetch so the snapshot about
// to be taken cannot be clobbered mid-flight, then captures the snapshot.
// Callers must hold the mutex.
func (c *Coordinator) beginMutation() *domain.Cart {
	if c.cancelRefetch != nil {
		c.cancelRefetch()
		c.cancelRefetch = nil
	}
	c.state = StateSpeculating
	return c.cart.Clone()
}

// settle applies the rollback-or-reconcile step and schedules the
// authoritative refetch that returns the machine to Idle.
func (c *Coordinator) settle(err error, snapshot *domain.Cart, okMsg, failMsg string) {
	c.mu.Lock()
	if err != nil {
		c.cart = snapshot
		c.state = StateRolledBack
		metrics.CartMutations.WithLabelValues("rolled_back").Inc()
	} else {
		c.state = StateReconciled
		metrics.CartMutations.WithLabelValues("reconciled").Inc()
	}
	c.scheduleRefetch()
	c.mu.Unlock()

	if err != nil {
		c.log.Warn().Err(err).Msg("cart mutation failed, rolled back")
		c.notifier.Error(failMsg)
	} else {
		c.notifier.Success(okMsg)
	}
}

// scheduleRefetch starts the post-settlement background refetch. Callers
// must hold the mutex. The stored cancel func lets the next mutation abort a
// refetch that has not landed yet. The machine returns to Idle once the
// refetch finishes either way; on failure the last known cart stands.
func (c *Coordinator) scheduleRefetch() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelRefetch = cancel
	c.refetches.Add(1)
	go func() {
		defer c.refetches.Done()
		cart, err := c.api.GetCart(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.log.Warn().Err(err).Msg("cart refetch failed")
			c.state = StateIdle
			return
		}
		c.cart = cart
		c.state = StateIdle
	}()
}
