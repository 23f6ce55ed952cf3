package catalog

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository loads priced products and applies the stock movements of an accepted order.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *Repository) withPricing(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Attributes", byPosition).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("min_qty ASC")
		}).
		Preload("Sale").
		Preload("Sale.Variants", byPosition)
}

// FindProduct loads the product with attributes, tiers and sale.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.withPricing(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProducts loads every product in ids. Missing ids are absent from the map.
func (r *Repository) FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.withPricing(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// DecrementStock removes qty units from the product, failing when fewer remain.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
			WithDetails(map[string]any{"productId": productID.String()})
	}
	return nil
}

// DecrementOptionStock removes qty units from each selected option that tracks its own stock.
func (r *Repository) DecrementOptionStock(ctx context.Context, productID uuid.UUID, selected []pricing.Attribute, qty int) error {
	for _, attr := range selected {
		res := r.db.WithContext(ctx).
			Model(&models.AttributeOption{}).
			Where("product_id = ? AND name = ? AND value = ? AND stock IS NOT NULL AND stock >= ?", productID, attr.Name, attr.Value, qty).
			Update("stock", gorm.Expr("stock - ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			continue
		}

		var tracked int64
		if err := r.db.WithContext(ctx).
			Model(&models.AttributeOption{}).
			Where("product_id = ? AND name = ? AND value = ? AND stock IS NOT NULL", productID, attr.Name, attr.Value).
			Count(&tracked).Error; err != nil {
			return err
		}
		if tracked > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("insufficient stock for %s %s", attr.Name, attr.Value)).
				WithDetails(map[string]any{"productId": productID.String()})
		}
	}
	return nil
}

// IncrementVariantBought records qty units sold through a sale variant. A capped
// variant refuses units past max_buys.
func (r *Repository) IncrementVariantBought(ctx context.Context, variantID uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&models.SaleVariant{}).
		Where("id = ? AND (max_buys <= 0 OR bought_count + ? <= max_buys)", variantID, qty).
		Update("bought_count", gorm.Expr("bought_count + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "sale capacity exceeded").
			WithDetails(map[string]any{"variantId": variantID.String()})
	}
	return nil
}

// IncrementSaleVariantAt bumps the bought count of the product's sale variant at
// index, using the same position order the pricing snapshot exposes.
func (r *Repository) IncrementSaleVariantAt(ctx context.Context, productID uuid.UUID, index, qty int) error {
	variant, err := r.saleVariantAt(ctx, productID, index)
	if err != nil || variant == nil {
		return err
	}
	return r.IncrementVariantBought(ctx, variant.ID, qty)
}

// ReleaseSaleVariantAt gives qty units of capacity back to the sale variant at index.
func (r *Repository) ReleaseSaleVariantAt(ctx context.Context, productID uuid.UUID, index, qty int) error {
	variant, err := r.saleVariantAt(ctx, productID, index)
	if err != nil || variant == nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.SaleVariant{}).
		Where("id = ?", variant.ID).
		Update("bought_count", gorm.Expr("CASE WHEN bought_count > ? THEN bought_count - ? ELSE 0 END", qty, qty)).
		Error
}

func (r *Repository) saleVariantAt(ctx context.Context, productID uuid.UUID, index int) (*models.SaleVariant, error) {
	if index < 0 {
		return nil, nil
	}
	var variant models.SaleVariant
	err := r.db.WithContext(ctx).
		Joins("JOIN product_sales ON product_sales.id = sale_variants.sale_id").
		Where("product_sales.product_id = ?", productID).
		Order("sale_variants.position ASC").
		Offset(index).
		Limit(1).
		Find(&variant).Error
	if err != nil {
		return nil, err
	}
	if variant.ID == uuid.Nil {
		return nil, nil
	}
	return &variant, nil
}

// Restock returns qty units to the product and to each selected option that tracks its own stock.
func (r *Repository) Restock(ctx context.Context, productID uuid.UUID, selected []pricing.Attribute, qty int) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", qty)).Error; err != nil {
		return err
	}
	for _, attr := range selected {
		if err := r.db.WithContext(ctx).
			Model(&models.AttributeOption{}).
			Where("product_id = ? AND name = ? AND value = ? AND stock IS NOT NULL", productID, attr.Name, attr.Value).
			Update("stock", gorm.Expr("stock + ?", qty)).Error; err != nil {
			return err
		}
	}
	return nil
}
