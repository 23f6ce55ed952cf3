package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Coupon struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Code          string     `gorm:"column:code;not null;uniqueIndex"`
	DiscountType  string     `gorm:"column:discount_type;type:varchar(16);not null"`
	Discount      float64    `gorm:"column:discount;type:numeric(12,2);not null"`
	MinOrderValue float64    `gorm:"column:min_order_value;type:numeric(12,2);not null"`
	AppliesTo     string     `gorm:"column:applies_to;type:varchar(16);not null"`
	ProductIDs    []string   `gorm:"column:product_ids;type:jsonb;serializer:json"`
	CategoryIDs   []string   `gorm:"column:category_ids;type:jsonb;serializer:json"`
	Stackable     bool       `gorm:"column:stackable;not null"`
	IsActive      bool       `gorm:"column:is_active;not null"`
	ValidFrom     *time.Time `gorm:"column:valid_from"`
	ValidUntil    *time.Time `gorm:"column:valid_until"`
	UsageLimit    int        `gorm:"column:usage_limit;not null"`
	UsedCount     int        `gorm:"column:used_count;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
