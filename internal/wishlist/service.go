package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/pagination"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

type productFinder interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service keeps the signed-in shopper's wishlist so it follows them across devices.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*types.WishlistPage, error)
	Add(ctx context.Context, userID, productID uuid.UUID) (*types.WishlistEntry, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (*types.WishlistEntry, error)
}

type service struct {
	repo     *Repository
	products productFinder
}

func NewService(repo *Repository, products productFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*types.WishlistPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view your wishlist")
	}
	decoded, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.ListIDs(ctx, userID, decoded, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	return &page, nil
}

// Add only accepts products that are still on sale in the catalog.
func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) (*types.WishlistEntry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to save products")
	}
	product, err := s.products.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err := s.repo.AddItem(ctx, userID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wishlist item")
	}
	return &types.WishlistEntry{ProductID: productID.String(), Saved: true}, nil
}

// Remove succeeds whether or not the product was saved.
func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) (*types.WishlistEntry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to edit your wishlist")
	}
	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return &types.WishlistEntry{ProductID: productID.String(), Saved: false}, nil
}
