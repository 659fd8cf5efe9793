package cart_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"fieldcart/internal/cart"
	"fieldcart/internal/domain"
	"fieldcart/internal/notify"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) GetCart(ctx context.Context) (*domain.Cart, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockAPI) AddCartItem(ctx context.Context, productID string, quantity int) error {
	args := m.Called(ctx, productID, quantity)
	return args.Error(0)
}

func (m *MockAPI) UpdateCartQuantity(ctx context.Context, productID string, quantity int) error {
	args := m.Called(ctx, productID, quantity)
	return args.Error(0)
}

func (m *MockAPI) RemoveCartItem(ctx context.Context, productID string) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func oneLineCart() *domain.Cart {
	c := &domain.Cart{Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 2, UnitPrice: 10},
	}}
	c.Recalculate()
	return c
}

func newCoordinator(t *testing.T, api *MockAPI, initial *domain.Cart) (*cart.Coordinator, *notify.Recorder) {
	t.Helper()
	recorder := notify.NewRecorder()
	c := cart.NewCoordinator(api, recorder, zerolog.Nop())
	api.On("GetCart", mock.Anything).Return(initial, nil).Once()
	assert.NoError(t, c.Load(context.Background()))
	return c, recorder
}

// A quantity change renders immediately; when the server rejects it, the
// cart reverts field-for-field to the pre-mutation snapshot.
func TestUpdateQuantityRollback(t *testing.T) {
	api := new(MockAPI)
	c, recorder := newCoordinator(t, api, oneLineCart())

	// While the request is on the wire the speculative result is already
	// visible: quantity 3, total 30, awaiting the server.
	api.On("UpdateCartQuantity", mock.Anything, "p1", 3).Run(func(mock.Arguments) {
		speculative := c.Cart()
		assert.Equal(t, 3, speculative.Lines[0].Quantity)
		assert.Equal(t, 30.0, speculative.Total)
		assert.Equal(t, cart.StateAwaitingServer, c.State())
	}).Return(domain.ErrUnavailable).Once()

	// Hold the post-settlement refetch open so the terminal state is
	// observable, then let it fail.
	refetchStarted := make(chan struct{})
	finishRefetch := make(chan struct{})
	api.On("GetCart", mock.Anything).Run(func(mock.Arguments) {
		close(refetchStarted)
		<-finishRefetch
	}).Return(nil, domain.ErrUnavailable).Once()

	err := c.UpdateQuantity(context.Background(), "p1", 3)
	assert.Error(t, err)
	<-refetchStarted

	got := c.Cart()
	assert.Equal(t, oneLineCart(), got)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.Equal(t, 20.0, got.Total)
	assert.NotEmpty(t, recorder.Errors())
	assert.Equal(t, cart.StateRolledBack, c.State())

	// A failed refetch still returns the machine to Idle; the snapshot stands.
	close(finishRefetch)
	c.Wait()
	assert.Equal(t, cart.StateIdle, c.State())
	assert.Equal(t, oneLineCart(), c.Cart())
}

func TestUpdateQuantitySuccess(t *testing.T) {
	api := new(MockAPI)
	c, recorder := newCoordinator(t, api, oneLineCart())

	serverCart := &domain.Cart{Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 3, UnitPrice: 10},
	}}
	serverCart.Recalculate()

	api.On("UpdateCartQuantity", mock.Anything, "p1", 3).Return(nil).Once()
	api.On("GetCart", mock.Anything).Return(serverCart, nil).Once()

	assert.NoError(t, c.UpdateQuantity(context.Background(), "p1", 3))
	c.Wait()

	got := c.Cart()
	assert.Equal(t, 3, got.Lines[0].Quantity)
	assert.Equal(t, 30.0, got.Total)
	assert.NotEmpty(t, recorder.Successes())
	assert.Equal(t, cart.StateIdle, c.State())
}

// Decrements below the quantity floor never reach the network and change
// nothing locally.
func TestQuantityFloor(t *testing.T) {
	api := new(MockAPI)
	c, recorder := newCoordinator(t, api, oneLineCart())

	assert.NoError(t, c.UpdateQuantity(context.Background(), "p1", 0))
	assert.NoError(t, c.UpdateQuantity(context.Background(), "p1", -4))
	c.Wait()

	got := c.Cart()
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.Equal(t, 20.0, got.Total)
	assert.Empty(t, recorder.Errors())
	api.AssertNotCalled(t, "UpdateCartQuantity", mock.Anything, mock.Anything, mock.Anything)
}

func TestRemove(t *testing.T) {
	t.Run("Rollback", func(t *testing.T) {
		api := new(MockAPI)
		c, recorder := newCoordinator(t, api, oneLineCart())

		api.On("RemoveCartItem", mock.Anything, "p1").Return(domain.ErrUnavailable).Once()
		api.On("GetCart", mock.Anything).Return(nil, domain.ErrUnavailable).Maybe()

		assert.Error(t, c.Remove(context.Background(), "p1"))
		c.Wait()

		assert.Equal(t, oneLineCart(), c.Cart())
		assert.NotEmpty(t, recorder.Errors())
	})

	t.Run("Success", func(t *testing.T) {
		api := new(MockAPI)
		c, _ := newCoordinator(t, api, oneLineCart())

		empty := &domain.Cart{}
		api.On("RemoveCartItem", mock.Anything, "p1").Return(nil).Once()
		api.On("GetCart", mock.Anything).Return(empty, nil).Once()

		assert.NoError(t, c.Remove(context.Background(), "p1"))
		c.Wait()

		got := c.Cart()
		assert.Empty(t, got.Lines)
		assert.Equal(t, 0.0, got.Total)
	})

	t.Run("UnknownLine", func(t *testing.T) {
		api := new(MockAPI)
		c, _ := newCoordinator(t, api, oneLineCart())

		err := c.Remove(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		api.AssertNotCalled(t, "RemoveCartItem", mock.Anything, mock.Anything)
	})
}

func TestAdd(t *testing.T) {
	api := new(MockAPI)
	c, recorder := newCoordinator(t, api, &domain.Cart{})

	afterAdd := &domain.Cart{Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 1, UnitPrice: 10},
	}}
	afterAdd.Recalculate()

	api.On("AddCartItem", mock.Anything, "p1", 1).Return(nil).Once()
	api.On("GetCart", mock.Anything).Return(afterAdd, nil).Once()

	assert.NoError(t, c.Add(context.Background(), "p1", 1))
	c.Wait()

	assert.Equal(t, afterAdd, c.Cart())
	assert.NotEmpty(t, recorder.Successes())

	// Zero quantity is rejected before any request.
	assert.ErrorIs(t, c.Add(context.Background(), "p1", 0), domain.ErrInvalidInput)
}
