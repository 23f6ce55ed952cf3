package storefront

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/scheduler"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

const (
	// DefaultShippingDebounce lets address typing settle before quoting.
	DefaultShippingDebounce = 1000 * time.Millisecond
	shippingKey             = "shipping"
)

// QuoteAPI is the pair of shipping endpoints the negotiator uses.
type QuoteAPI interface {
	ShippingQuote(ctx context.Context, req types.ShippingQuoteRequest) (*types.ShippingQuoteResponse, error)
	GuestQuote(ctx context.Context, req types.GuestQuoteRequest) (*types.GuestQuoteResponse, error)
}

// ShippingInput is everything a quote depends on.
type ShippingInput struct {
	Destination types.Destination
	Items       []types.ShippingQuoteItem
	Method      enums.DeliveryMethod
}

// Fingerprint changes whenever the destination, the items or the method do.
// Item order does not matter.
func (in ShippingInput) Fingerprint() string {
	items := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, it.Product+"|"+pricing.AttributesKey(it.SelectedAttributes)+"|"+strconv.Itoa(it.Qty))
	}
	sort.Strings(items)
	return strings.Join([]string{string(in.method()), in.Destination.Key(), strings.Join(items, ";")}, "#")
}

func (in ShippingInput) method() enums.DeliveryMethod {
	if in.Method == "" {
		return enums.DeliveryMethodNormal
	}
	return in.Method
}

func (in ShippingInput) units() int {
	n := 0
	for _, it := range in.Items {
		n += it.Qty
	}
	return n
}

// ShippingInputFor builds the quote input from the cart's current lines.
func ShippingInputFor(cart *Cart, dest types.Destination, method enums.DeliveryMethod) ShippingInput {
	lines := cart.Lines()
	items := make([]types.ShippingQuoteItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, types.ShippingQuoteItem{
			Product:            line.Item.Product.ID,
			Qty:                line.Item.Quantity,
			SelectedAttributes: line.Item.Selected,
			UnitPrice:          pricing.RoundMoney(line.Price.UnitPrice),
			TotalPrice:         pricing.RoundMoney(line.Price.TotalPrice),
		})
	}
	return ShippingInput{Destination: dest, Items: items, Method: method}
}

// ShippingQuote is a resolved quote for one fingerprint.
type ShippingQuote struct {
	Cost          float64
	NormalCost    float64
	Currency      string
	EstimatedDays int
	Method        enums.DeliveryMethod
	Source        enums.QuoteSource
	Destination   types.Destination
	Fingerprint   string
}

// ShippingState is a snapshot of the negotiation.
type ShippingState struct {
	Phase enums.ShippingPhase
	Input ShippingInput
	Quote *ShippingQuote
	Err   error
}

type ShippingOption func(*ShippingNegotiator)

func WithShippingDebounce(d time.Duration) ShippingOption {
	return func(n *ShippingNegotiator) {
		if d >= 0 {
			n.delay = d
		}
	}
}

// WithShippingScheduler shares a scheduler. Shared schedulers are not stopped
// by Close.
func WithShippingScheduler(s *scheduler.Scheduler) ShippingOption {
	return func(n *ShippingNegotiator) {
		if s != nil {
			n.sched = s
			n.ownSched = false
		}
	}
}

// WithShippingCurrency labels guest quotes, which carry no currency.
func WithShippingCurrency(currency string) ShippingOption {
	return func(n *ShippingNegotiator) {
		if currency != "" {
			n.currency = currency
		}
	}
}

// WithShippingListener is called after every state change, outside the lock.
func WithShippingListener(fn func(ShippingState)) ShippingOption {
	return func(n *ShippingNegotiator) { n.listener = fn }
}

func WithShippingLogger(l *logger.Logger) ShippingOption {
	return func(n *ShippingNegotiator) {
		if l != nil {
			n.logg = l
		}
	}
}

// ShippingNegotiator keeps one shipping quote current for a changing input.
// Inputs are debounced, at most one result is applied per input, and results
// for superseded inputs are dropped.
type ShippingNegotiator struct {
	mu       sync.Mutex
	api      QuoteAPI
	sched    *scheduler.Scheduler
	ownSched bool
	delay    time.Duration
	currency string
	logg     *logger.Logger
	listener func(ShippingState)
	state    ShippingState
	fp       string
}

func NewShippingNegotiator(api QuoteAPI, opts ...ShippingOption) *ShippingNegotiator {
	n := &ShippingNegotiator{
		api:      api,
		sched:    scheduler.New(),
		ownSched: true,
		delay:    DefaultShippingDebounce,
		currency: "NGN",
		logg:     logger.Nop(),
		state:    ShippingState{Phase: enums.ShippingPhaseIdle},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Close stops any pending quote.
func (n *ShippingNegotiator) Close() {
	if n.ownSched {
		n.sched.Stop()
	} else {
		n.sched.Cancel(shippingKey)
	}
}

func (n *ShippingNegotiator) State() ShippingState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snapshotLocked()
}

// Update feeds a new input. Pickup resolves at once to a zero cost. Missing
// destination or items reset to idle. Re-sending the current input while a
// quote is pending or resolved does nothing.
func (n *ShippingNegotiator) Update(in ShippingInput) {
	in.Items = append([]types.ShippingQuoteItem(nil), in.Items...)
	fp := in.Fingerprint()

	n.mu.Lock()
	if fp == n.fp && n.state.Phase != enums.ShippingPhaseIdle && n.state.Phase != enums.ShippingPhaseFailed {
		n.mu.Unlock()
		return
	}
	n.fp = fp
	n.state.Input = in
	n.state.Err = nil
	n.state.Quote = nil

	switch {
	case in.method() == enums.DeliveryMethodPickup:
		n.sched.Cancel(shippingKey)
		n.state.Phase = enums.ShippingPhaseResolved
		n.state.Quote = &ShippingQuote{
			Currency:    n.currency,
			Method:      enums.DeliveryMethodPickup,
			Source:      enums.QuoteSourcePickup,
			Destination: in.Destination,
			Fingerprint: fp,
		}
	case in.Destination.IsZero() || in.units() < 1:
		n.sched.Cancel(shippingKey)
		n.state.Phase = enums.ShippingPhaseIdle
	default:
		n.state.Phase = enums.ShippingPhaseDebouncing
		n.sched.Schedule(shippingKey, n.delay, func(ctx context.Context, tok scheduler.Token) {
			n.fetch(ctx, tok, in, fp)
		})
	}
	st := n.snapshotLocked()
	n.mu.Unlock()
	n.notify(st)
}

// Reset drops the current quote and any pending request.
func (n *ShippingNegotiator) Reset() {
	n.mu.Lock()
	n.sched.Cancel(shippingKey)
	n.fp = ""
	n.state = ShippingState{Phase: enums.ShippingPhaseIdle}
	st := n.snapshotLocked()
	n.mu.Unlock()
	n.notify(st)
}

// QuoteFor returns the resolved quote only if it was computed for exactly in.
func (n *ShippingNegotiator) QuoteFor(in ShippingInput) (*ShippingQuote, bool) {
	fp := in.Fingerprint()
	n.mu.Lock()
	defer n.mu.Unlock()
	q := n.state.Quote
	if n.state.Phase != enums.ShippingPhaseResolved || q == nil || q.Fingerprint != fp {
		return nil, false
	}
	cp := *q
	return &cp, true
}

func (n *ShippingNegotiator) fetch(ctx context.Context, tok scheduler.Token, in ShippingInput, fp string) {
	n.mu.Lock()
	if tok.Stale() {
		n.mu.Unlock()
		return
	}
	n.state.Phase = enums.ShippingPhaseFetching
	st := n.snapshotLocked()
	n.mu.Unlock()
	n.notify(st)

	quote, err := n.resolve(ctx, in)

	n.mu.Lock()
	if tok.Stale() || n.fp != fp {
		n.mu.Unlock()
		return
	}
	if err != nil {
		n.state.Phase = enums.ShippingPhaseFailed
		n.state.Err = err
		n.logg.Warn(n.logg.WithField(ctx, "destination", in.Destination.Key()), "shipping.quote_failed: "+err.Error())
	} else {
		quote.Fingerprint = fp
		n.state.Phase = enums.ShippingPhaseResolved
		n.state.Quote = quote
	}
	st = n.snapshotLocked()
	n.mu.Unlock()
	n.notify(st)
}

// resolve asks the authenticated endpoint for the normal cost and falls back to
// the guest endpoint only on 401. Express is derived locally.
func (n *ShippingNegotiator) resolve(ctx context.Context, in ShippingInput) (*ShippingQuote, error) {
	method := in.method()
	quote := &ShippingQuote{Method: method, Destination: in.Destination, Currency: n.currency}

	resp, err := n.api.ShippingQuote(ctx, types.ShippingQuoteRequest{
		Items:           in.Items,
		ShippingAddress: in.Destination,
		DeliveryType:    enums.DeliveryMethodNormal,
	})
	switch {
	case err == nil:
		quote.Source = enums.QuoteSourceAuthenticated
		quote.NormalCost = resp.ShippingCost
		quote.EstimatedDays = resp.EstimatedDays
		if resp.Currency != "" {
			quote.Currency = resp.Currency
		}
	case errors.Is(err, ErrUnauthorized):
		guest, gerr := n.api.GuestQuote(ctx, guestRequest(in))
		if gerr != nil {
			return nil, fmt.Errorf("guest shipping quote: %w", gerr)
		}
		quote.Source = enums.QuoteSourceGuest
		quote.NormalCost = guest.Amount
	default:
		return nil, fmt.Errorf("shipping quote: %w", err)
	}

	quote.Cost = pricing.ApplyDeliverySurcharge(method, quote.NormalCost)
	return quote, nil
}

func guestRequest(in ShippingInput) types.GuestQuoteRequest {
	items := make([]types.GuestQuoteItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, types.GuestQuoteItem{ProductID: it.Product, Quantity: it.Qty})
	}
	return types.GuestQuoteRequest{Items: items, Destination: in.Destination}
}

func (n *ShippingNegotiator) snapshotLocked() ShippingState {
	st := n.state
	st.Input.Items = append([]types.ShippingQuoteItem(nil), n.state.Input.Items...)
	if n.state.Quote != nil {
		q := *n.state.Quote
		st.Quote = &q
	}
	return st
}

func (n *ShippingNegotiator) notify(st ShippingState) {
	if n.listener != nil {
		n.listener(st)
	}
}
