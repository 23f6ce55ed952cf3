package shipping

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-checkout/pkg/db"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads configured shipping rate rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindRate returns the state row for the destination, falling back to the
// country-wide row. A nil rate with a nil error means the destination is not served.
func (r *Repository) FindRate(ctx context.Context, country, stateCode string) (*models.ShippingRate, error) {
	country = strings.TrimSpace(country)
	stateCode = strings.TrimSpace(stateCode)

	if stateCode != "" {
		rate, err := r.find(ctx, country, stateCode)
		if err != nil || rate != nil {
			return rate, err
		}
	}
	return r.find(ctx, country, "")
}

func (r *Repository) find(ctx context.Context, country, stateCode string) (*models.ShippingRate, error) {
	var row models.ShippingRate
	err := r.db.WithContext(ctx).
		Where("LOWER(country_name) = LOWER(?) AND UPPER(state_code) = UPPER(?)", country, stateCode).
		First(&row).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
