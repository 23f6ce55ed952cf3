package shipping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// RateCache is the subset of the redis client used to cache rate rows.
type RateCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	ShippingRateKey(country, stateCode string) string
}

// Cost is a resolved shipping price for one destination and delivery method.
type Cost struct {
	Amount        float64
	EstimatedDays int
	Currency      string
	Source        enums.QuoteSource
}

// Service quotes shipping for authenticated shoppers and guests.
type Service interface {
	Quote(ctx context.Context, req types.ShippingQuoteRequest) (*types.ShippingQuoteResponse, error)
	GuestQuote(ctx context.Context, req types.GuestQuoteRequest) (*types.GuestQuoteResponse, error)
	CostFor(ctx context.Context, dest types.Destination, units int, method enums.DeliveryMethod, source enums.QuoteSource) (Cost, error)
}

// Config carries the tunables the service needs from pkg/config.
type Config struct {
	DefaultCountry string
	Currency       string
	CacheTTL       time.Duration
}

type service struct {
	repo    *Repository
	cache   RateCache
	cfg     Config
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

// NewService constructs a shipping service. cache may be nil.
func NewService(repo *Repository, cache RateCache, cfg Config, m *metrics.CheckoutMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, cache: cache, cfg: cfg, metrics: m, logg: logg}, nil
}

// Quote prices delivery of the items as base + perItem × (units − 1), with the
// express surcharge applied for express delivery.
func (s *service) Quote(ctx context.Context, req types.ShippingQuoteRequest) (*types.ShippingQuoteResponse, error) {
	var units int
	var subtotal float64
	for _, item := range req.Items {
		units += item.Qty
		subtotal += item.TotalPrice
	}

	cost, err := s.CostFor(ctx, req.ShippingAddress, units, req.DeliveryType, enums.QuoteSourceAuthenticated)
	if err != nil {
		return nil, err
	}

	return &types.ShippingQuoteResponse{
		ShippingCost:   cost.Amount,
		DeliveryType:   req.DeliveryType,
		Destination:    req.ShippingAddress,
		Currency:       cost.Currency,
		ItemsSubtotal:  pricing.RoundMoney(subtotal),
		EstimatedTotal: pricing.RoundMoney(subtotal + cost.Amount),
		EstimatedDays:  cost.EstimatedDays,
	}, nil
}

// GuestQuote returns the destination's flat rate. The guest endpoint has no
// method field, so the client applies the express surcharge itself.
func (s *service) GuestQuote(ctx context.Context, req types.GuestQuoteRequest) (*types.GuestQuoteResponse, error) {
	var units int
	for _, item := range req.Items {
		units += item.Quantity
	}
	cost, err := s.CostFor(ctx, req.Destination, units, enums.DeliveryMethodNormal, enums.QuoteSourceGuest)
	if err != nil {
		return nil, err
	}
	return &types.GuestQuoteResponse{Amount: cost.Amount}, nil
}

// CostFor is the single source of shipping prices for quotes and checkout.
func (s *service) CostFor(ctx context.Context, dest types.Destination, units int, method enums.DeliveryMethod, source enums.QuoteSource) (Cost, error) {
	if method == "" {
		method = enums.DeliveryMethodNormal
	}
	if !method.IsValid() {
		return Cost{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery type %q", method))
	}
	if method == enums.DeliveryMethodPickup {
		s.metrics.IncQuote(enums.QuoteSourcePickup.String())
		return Cost{Currency: s.cfg.Currency, Source: enums.QuoteSourcePickup}, nil
	}
	if units < 1 {
		return Cost{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if strings.TrimSpace(dest.StateCode) == "" && strings.TrimSpace(dest.CountryName) == "" {
		return Cost{}, pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	}

	rate, err := s.rate(ctx, dest)
	if err != nil {
		return Cost{}, err
	}

	var normal float64
	if source == enums.QuoteSourceGuest {
		normal = rate.FlatRate
	} else {
		normal = rate.BaseCost + rate.PerItemCost*float64(units-1)
	}

	currency := rate.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	s.metrics.IncQuote(source.String())
	return Cost{
		Amount:        pricing.ApplyDeliverySurcharge(method, pricing.RoundMoney(normal)),
		EstimatedDays: rate.EstimatedDays,
		Currency:      currency,
		Source:        source,
	}, nil
}

func (s *service) rate(ctx context.Context, dest types.Destination) (*models.ShippingRate, error) {
	country := strings.TrimSpace(dest.CountryName)
	if country == "" {
		country = s.cfg.DefaultCountry
	}

	var key string
	if s.cache != nil {
		key = s.cache.ShippingRateKey(country, dest.StateCode)
		var cached models.ShippingRate
		found, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("shipping rate cache read failed: %v", err))
		} else if found {
			return &cached, nil
		}
	}

	rate, err := s.repo.FindRate(ctx, country, dest.StateCode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping rate")
	}
	if rate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping is not available to this destination").
			WithDetails(map[string]any{"country": country, "stateCode": dest.StateCode})
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, rate, s.cfg.CacheTTL); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("shipping rate cache write failed: %v", err))
		}
	}
	return rate, nil
}
