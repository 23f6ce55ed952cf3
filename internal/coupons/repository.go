package coupons

import (
	"context"

	"github.com/angelmondragon/storefront-checkout/pkg/coupon"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"gorm.io/gorm"
)

// Repository persists discount codes.
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

// FindByCode looks a coupon up by its normalized code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var row models.Coupon
	if err := r.db.WithContext(ctx).First(&row, "code = ?", coupon.NormalizeCode(code)).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByCodes loads every known code. Unknown codes are absent from the map.
func (r *Repository) FindByCodes(ctx context.Context, codes []string) (map[string]*models.Coupon, error) {
	out := map[string]*models.Coupon{}
	if len(codes) == 0 {
		return out, nil
	}
	normalized := make([]string, 0, len(codes))
	for _, c := range codes {
		normalized = append(normalized, coupon.NormalizeCode(c))
	}
	var rows []models.Coupon
	if err := r.db.WithContext(ctx).Where("code IN ?", normalized).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].Code] = &rows[i]
	}
	return out, nil
}

// IncrementUsage consumes one use of code, failing once the limit is reached.
func (r *Repository) IncrementUsage(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND (usage_limit = 0 OR used_count < usage_limit)", coupon.NormalizeCode(code)).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon usage limit reached").
			WithDetails(map[string]any{"code": coupon.NormalizeCode(code)})
	}
	return nil
}

// ReleaseUsage gives back one use of code. The count never drops below zero.
func (r *Repository) ReleaseUsage(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND used_count > 0", coupon.NormalizeCode(code)).
		Update("used_count", gorm.Expr("used_count - 1")).
		Error
}
