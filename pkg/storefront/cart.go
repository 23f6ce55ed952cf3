package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/scheduler"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// DefaultQuantityDebounce is how long quantity edits on one line settle before
// they are synced.
const DefaultQuantityDebounce = 300 * time.Millisecond

var (
	ErrItemNotFound   = errors.New("storefront: cart item not found")
	ErrInvalidProduct = errors.New("storefront: product snapshot is required")
)

// CartItem is one line: a product plus an ordered attribute selection. Quantity
// is always at least 1.
type CartItem struct {
	Key      string                `json:"key"`
	Quantity int                   `json:"quantity"`
	Selected []pricing.Attribute   `json:"selectedAttributes"`
	Product  types.ProductSnapshot `json:"product"`
}

// PricedLine is a cart item with its current engine price.
type PricedLine struct {
	Item  CartItem
	Price pricing.LinePrice
}

// QuantitySyncer pushes a settled quantity to the remote cart.
type QuantitySyncer interface {
	UpdateQuantity(ctx context.Context, itemKey string, quantity int) error
}

type CartOption func(*Cart)

func WithQuantitySync(s QuantitySyncer) CartOption {
	return func(c *Cart) { c.syncer = s }
}

func WithQuantityDebounce(d time.Duration) CartOption {
	return func(c *Cart) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithCartScheduler shares a scheduler. The cart stops schedulers it creates
// itself on Close, never shared ones.
func WithCartScheduler(s *scheduler.Scheduler) CartOption {
	return func(c *Cart) {
		if s != nil {
			c.sched = s
			c.ownSched = false
		}
	}
}

func WithCartEngine(e *pricing.Engine) CartOption {
	return func(c *Cart) {
		if e != nil {
			c.engine = e
		}
	}
}

func WithCartLogger(l *logger.Logger) CartOption {
	return func(c *Cart) {
		if l != nil {
			c.logg = l
		}
	}
}

// WithSyncErrorHandler is called after a failed sync has been rolled back.
func WithSyncErrorHandler(fn func(itemKey string, err error)) CartOption {
	return func(c *Cart) { c.onSyncError = fn }
}

// Cart owns the cart items. It loads once on construction and persists after
// every mutation.
type Cart struct {
	mu          sync.Mutex
	key         string
	items       []CartItem
	persister   Persister
	syncer      QuantitySyncer
	sched       *scheduler.Scheduler
	ownSched    bool
	delay       time.Duration
	engine      *pricing.Engine
	logg        *logger.Logger
	onSyncError func(itemKey string, err error)
	// baseline holds the last quantity known to the remote cart for lines with
	// unsynced edits. Failed syncs roll back to it.
	baseline map[string]int
}

func NewCart(ctx context.Context, key string, persister Persister, opts ...CartOption) (*Cart, error) {
	if persister == nil {
		persister = NewMemoryPersister()
	}
	c := &Cart{
		key:       key,
		persister: persister,
		sched:     scheduler.New(),
		ownSched:  true,
		delay:     DefaultQuantityDebounce,
		engine:    pricing.NewEngine(),
		logg:      logger.Nop(),
		baseline:  map[string]int{},
	}
	for _, opt := range opts {
		opt(c)
	}

	var stored []CartItem
	found, err := persister.Load(ctx, key, &stored)
	if err != nil {
		return nil, err
	}
	if found {
		for _, item := range stored {
			if item.Key == "" || item.Product.ID == "" {
				continue
			}
			if item.Quantity < 1 {
				item.Quantity = 1
			}
			c.items = append(c.items, item)
		}
	}
	return c, nil
}

// Close cancels pending quantity syncs.
func (c *Cart) Close() {
	if c.ownSched {
		c.sched.Stop()
	}
}

// Items returns a copy of the current lines.
func (c *Cart) Items() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneItems(c.items)
}

// Item returns one line by key.
func (c *Cart) Item(itemKey string) (CartItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(itemKey); i >= 0 {
		return cloneItem(c.items[i]), true
	}
	return CartItem{}, false
}

// Add puts a selection in the cart. Adding a product with an identical
// selection increases the existing line instead of creating a new one.
func (c *Cart) Add(ctx context.Context, product types.ProductSnapshot, quantity int, selected []pricing.Attribute) (CartItem, error) {
	if product.ID == "" {
		return CartItem{}, ErrInvalidProduct
	}
	if quantity < 1 {
		quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	attrsKey := pricing.AttributesKey(selected)
	for i := range c.items {
		if c.items[i].Product.ID == product.ID && pricing.AttributesKey(c.items[i].Selected) == attrsKey {
			c.items[i].Quantity += quantity
			c.items[i].Product = product
			if err := c.saveLocked(ctx); err != nil {
				return CartItem{}, err
			}
			return cloneItem(c.items[i]), nil
		}
	}

	item := CartItem{
		Key:      uuid.NewString(),
		Quantity: quantity,
		Selected: append([]pricing.Attribute(nil), selected...),
		Product:  product,
	}
	c.items = append(c.items, item)
	if err := c.saveLocked(ctx); err != nil {
		return CartItem{}, err
	}
	return cloneItem(item), nil
}

// Remove deletes a line and drops any pending quantity sync for it.
func (c *Cart) Remove(ctx context.Context, itemKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(itemKey)
	if i < 0 {
		return ErrItemNotFound
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.baseline, itemKey)
	c.sched.Cancel(quantityKey(itemKey))
	return c.saveLocked(ctx)
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range c.items {
		c.sched.Cancel(quantityKey(item.Key))
	}
	c.items = nil
	c.baseline = map[string]int{}
	return c.saveLocked(ctx)
}

// SetQuantity applies the edit locally at once and syncs the settled value
// after the debounce. A failed sync restores the quantity the line had before
// the burst of edits began. Quantities below 1 clamp to 1.
func (c *Cart) SetQuantity(ctx context.Context, itemKey string, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(itemKey)
	if i < 0 {
		return ErrItemNotFound
	}
	if _, pending := c.baseline[itemKey]; !pending {
		c.baseline[itemKey] = c.items[i].Quantity
	}
	c.items[i].Quantity = quantity
	if err := c.saveLocked(ctx); err != nil {
		return err
	}

	if c.syncer == nil {
		delete(c.baseline, itemKey)
		return nil
	}
	c.sched.Schedule(quantityKey(itemKey), c.delay, func(runCtx context.Context, tok scheduler.Token) {
		c.syncQuantity(runCtx, tok, itemKey, quantity)
	})
	return nil
}

func (c *Cart) syncQuantity(ctx context.Context, tok scheduler.Token, itemKey string, quantity int) {
	err := c.syncer.UpdateQuantity(ctx, itemKey, quantity)

	c.mu.Lock()
	if tok.Stale() {
		// A newer edit owns the line now. A success still moves the rollback
		// point since the remote cart holds this value.
		if err == nil {
			if _, pending := c.baseline[itemKey]; pending {
				c.baseline[itemKey] = quantity
			}
		}
		c.mu.Unlock()
		return
	}

	if err == nil {
		delete(c.baseline, itemKey)
		c.mu.Unlock()
		return
	}

	prev, pending := c.baseline[itemKey]
	delete(c.baseline, itemKey)
	if i := c.indexLocked(itemKey); i >= 0 && pending {
		c.items[i].Quantity = prev
		if saveErr := c.saveLocked(ctx); saveErr != nil {
			c.logg.Error(ctx, "cart.rollback_persist_failed", saveErr)
		}
	}
	c.mu.Unlock()

	ctx = c.logg.WithFields(ctx, map[string]any{"item_key": itemKey, "quantity": quantity})
	c.logg.Warn(ctx, "cart.quantity_sync_failed: "+err.Error())
	if c.onSyncError != nil {
		c.onSyncError(itemKey, err)
	}
}

// SyncPending reports whether a line has edits the remote cart has not confirmed.
func (c *Cart) SyncPending(itemKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, pending := c.baseline[itemKey]
	return pending
}

// SelectAttribute replaces the value chosen for one attribute name, adding the
// attribute if the line had none under that name.
func (c *Cart) SelectAttribute(ctx context.Context, itemKey, name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(itemKey)
	if i < 0 {
		return ErrItemNotFound
	}
	selected := append([]pricing.Attribute(nil), c.items[i].Selected...)
	replaced := false
	for j := range selected {
		if selected[j].Name == name {
			selected[j].Value = value
			replaced = true
			break
		}
	}
	if !replaced {
		selected = append(selected, pricing.Attribute{Name: name, Value: value})
	}
	c.items[i].Selected = selected
	return c.saveLocked(ctx)
}

// RefreshProduct swaps in a newer snapshot on every line for that product.
// It reports how many lines changed.
func (c *Cart) RefreshProduct(ctx context.Context, product types.ProductSnapshot) (int, error) {
	if product.ID == "" {
		return 0, ErrInvalidProduct
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for i := range c.items {
		if c.items[i].Product.ID == product.ID {
			c.items[i].Product = product
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, c.saveLocked(ctx)
}

// Lines prices every line with the current snapshots.
func (c *Cart) Lines() []PricedLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]PricedLine, 0, len(c.items))
	for _, item := range c.items {
		price := c.engine.Price(item.Product.PricingItem(item.Selected), item.Quantity)
		out = append(out, PricedLine{Item: cloneItem(item), Price: price})
	}
	return out
}

// Subtotal is the unrounded sum of line totals.
func (c *Cart) Subtotal() float64 {
	total := 0.0
	for _, line := range c.Lines() {
		total += line.Price.TotalPrice
	}
	return total
}

// Units is the total quantity across lines.
func (c *Cart) Units() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) indexLocked(itemKey string) int {
	for i := range c.items {
		if c.items[i].Key == itemKey {
			return i
		}
	}
	return -1
}

func (c *Cart) saveLocked(ctx context.Context) error {
	items := c.items
	if items == nil {
		items = []CartItem{}
	}
	if err := c.persister.Save(ctx, c.key, items); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

func quantityKey(itemKey string) string {
	return "qty:" + itemKey
}

func cloneItem(item CartItem) CartItem {
	item.Selected = append([]pricing.Attribute(nil), item.Selected...)
	return item
}

func cloneItems(items []CartItem) []CartItem {
	out := make([]CartItem, 0, len(items))
	for _, item := range items {
		out = append(out, cloneItem(item))
	}
	return out
}
