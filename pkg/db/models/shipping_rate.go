package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShippingRate prices delivery to a state. An empty StateCode is the
// country-wide fallback row.
type ShippingRate struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CountryName   string    `gorm:"column:country_name;not null;uniqueIndex:idx_shipping_rates_destination"`
	StateCode     string    `gorm:"column:state_code;not null;uniqueIndex:idx_shipping_rates_destination"`
	StateName     string    `gorm:"column:state_name;not null"`
	BaseCost      float64   `gorm:"column:base_cost;type:numeric(12,2);not null"`
	PerItemCost   float64   `gorm:"column:per_item_cost;type:numeric(12,2);not null"`
	FlatRate      float64   `gorm:"column:flat_rate;type:numeric(12,2);not null"`
	EstimatedDays int       `gorm:"column:estimated_days;not null"`
	Currency      string    `gorm:"column:currency;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ShippingRate) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
