package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-checkout/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
	"github.com/google/uuid"
)

// Service exposes the read side of the catalog used for pricing.
type Service interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*types.ProductSnapshot, error)
	Snapshots(ctx context.Context, productIDs []string) (map[string]*types.ProductSnapshot, error)
	PriceQuote(ctx context.Context, req types.PriceQuoteRequest) (*pricing.LinePrice, error)
}

type service struct {
	repo     *Repository
	engine   *pricing.Engine
	currency string
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, engine *pricing.Engine, currency string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	return &service{repo: repo, engine: engine, currency: currency}, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*types.ProductSnapshot, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	snap := ToSnapshot(product, s.currency)
	if snap == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return snap, nil
}

// Snapshots resolves every id it can. Unknown, malformed or inactive ids are
// simply missing from the result so callers can report them per line.
func (s *service) Snapshots(ctx context.Context, productIDs []string) (map[string]*types.ProductSnapshot, error) {
	ids := make([]uuid.UUID, 0, len(productIDs))
	seen := map[uuid.UUID]struct{}{}
	for _, raw := range productIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	products, err := s.repo.FindProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	out := make(map[string]*types.ProductSnapshot, len(products))
	for id, product := range products {
		if snap := ToSnapshot(product, s.currency); snap != nil {
			out[id.String()] = snap
		}
	}
	return out, nil
}

func (s *service) PriceQuote(ctx context.Context, req types.PriceQuoteRequest) (*pricing.LinePrice, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId must be a uuid")
	}
	snap, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	line := s.engine.Price(snap.PricingItem(req.SelectedAttributes), req.Quantity)
	return &line, nil
}
