package storefront

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
)

type fakeSyncer struct {
	mu    sync.Mutex
	calls []int
	err   error
	// hold blocks the sync of holdQty until released.
	holdQty int
	hold    chan struct{}
}

func (f *fakeSyncer) UpdateQuantity(_ context.Context, _ string, qty int) error {
	if f.hold != nil && qty == f.holdQty {
		<-f.hold
		return errors.New("timeout")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, qty)
	return f.err
}

func (f *fakeSyncer) Calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func newCart(t *testing.T, p Persister, opts ...CartOption) *Cart {
	t.Helper()
	c, err := NewCart(context.Background(), "cart:test", p, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestCartLoadsOnInitAndPersistsMutations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPersister()

	first := newCart(t, store)
	item, err := first.Add(ctx, saleProduct("p-1"), 2, []pricing.Attribute{{Name: "Color", Value: "Red"}})
	require.NoError(t, err)

	again, err := first.Add(ctx, saleProduct("p-1"), 1, []pricing.Attribute{{Name: "Color", Value: "Red"}})
	require.NoError(t, err)
	assert.Equal(t, item.Key, again.Key)
	assert.Equal(t, 3, again.Quantity)

	_, err = first.Add(ctx, saleProduct("p-1"), 1, []pricing.Attribute{{Name: "Color", Value: "Green"}})
	require.NoError(t, err)

	second := newCart(t, store)
	items := second.Items()
	require.Len(t, items, 2)
	assert.Equal(t, item.Key, items[0].Key)
	assert.Equal(t, 3, items[0].Quantity)

	require.NoError(t, second.Remove(ctx, item.Key))
	third := newCart(t, store)
	assert.Len(t, third.Items(), 1)
	assert.ErrorIs(t, third.Remove(ctx, "missing"), ErrItemNotFound)
}

func TestCartPricesLinesWithEngine(t *testing.T) {
	c := newCart(t, nil)
	_, err := c.Add(context.Background(), saleProduct("p-1"), 3, nil)
	require.NoError(t, err)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.InDelta(t, 720, lines[0].Price.UnitPrice, 1e-9)
	assert.InDelta(t, 2160, c.Subtotal(), 1e-9)
	assert.Equal(t, 3, c.Units())
}

func TestCartQuantityClampsToOne(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, nil)
	item, err := c.Add(ctx, plainProduct("p-1", 100), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)

	require.NoError(t, c.SetQuantity(ctx, item.Key, -4))
	got, _ := c.Item(item.Key)
	assert.Equal(t, 1, got.Quantity)
}

func TestCartDebouncesQuantitySync(t *testing.T) {
	ctx := context.Background()
	syncer := &fakeSyncer{}
	c := newCart(t, nil, WithQuantitySync(syncer), WithQuantityDebounce(20*time.Millisecond))
	item, err := c.Add(ctx, plainProduct("p-1", 100), 1, nil)
	require.NoError(t, err)

	for q := 2; q <= 6; q++ {
		require.NoError(t, c.SetQuantity(ctx, item.Key, q))
		got, _ := c.Item(item.Key)
		if got.Quantity != q {
			t.Fatalf("expected optimistic quantity %d, got %d", q, got.Quantity)
		}
	}

	waitFor(t, func() bool { return len(syncer.Calls()) == 1 })
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, []int{6}, syncer.Calls())
	waitFor(t, func() bool { return !c.SyncPending(item.Key) })
}

func TestCartRollsBackFailedSyncToPreBurstValue(t *testing.T) {
	ctx := context.Background()
	syncer := &fakeSyncer{err: errors.New("cart service unavailable")}
	var failed []string
	var mu sync.Mutex
	store := NewMemoryPersister()
	c := newCart(t, store,
		WithQuantitySync(syncer),
		WithQuantityDebounce(5*time.Millisecond),
		WithSyncErrorHandler(func(key string, _ error) {
			mu.Lock()
			failed = append(failed, key)
			mu.Unlock()
		}),
	)
	item, err := c.Add(ctx, plainProduct("p-1", 100), 2, nil)
	require.NoError(t, err)

	require.NoError(t, c.SetQuantity(ctx, item.Key, 5))
	require.NoError(t, c.SetQuantity(ctx, item.Key, 7))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failed) == 1
	})
	got, _ := c.Item(item.Key)
	assert.Equal(t, 2, got.Quantity)

	reloaded := newCart(t, store)
	assert.Equal(t, 2, reloaded.Items()[0].Quantity)
}

func TestCartStaleSyncFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	syncer := &fakeSyncer{holdQty: 3, hold: make(chan struct{})}
	c := newCart(t, nil, WithQuantitySync(syncer), WithQuantityDebounce(time.Millisecond))
	item, err := c.Add(ctx, plainProduct("p-1", 100), 1, nil)
	require.NoError(t, err)

	require.NoError(t, c.SetQuantity(ctx, item.Key, 3))
	time.Sleep(20 * time.Millisecond) // the sync for 3 is now in flight
	require.NoError(t, c.SetQuantity(ctx, item.Key, 4))
	waitFor(t, func() bool { return len(syncer.Calls()) == 1 })

	close(syncer.hold)
	time.Sleep(20 * time.Millisecond)

	got, _ := c.Item(item.Key)
	assert.Equal(t, 4, got.Quantity)
	assert.False(t, c.SyncPending(item.Key))
}

func TestCartSelectAttributeAndRefresh(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, nil)
	item, err := c.Add(ctx, saleProduct("p-1"), 3, []pricing.Attribute{{Name: "Color", Value: "Red"}})
	require.NoError(t, err)

	require.NoError(t, c.SelectAttribute(ctx, item.Key, "Color", "Green"))
	got, _ := c.Item(item.Key)
	assert.Equal(t, []pricing.Attribute{{Name: "Color", Value: "Green"}}, got.Selected)

	updated := saleProduct("p-1")
	updated.Sale = nil
	n, err := c.RefreshProduct(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.InDelta(t, 900, c.Lines()[0].Price.UnitPrice, 1e-9)
}
