package catalog

import (
	"fmt"
	"testing"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:catalog_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func mustCreateProduct(t *testing.T, conn *gorm.DB) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:       "Linen Shirt",
		CategoryID: "apparel",
		BasePrice:  1000,
		Currency:   "NGN",
		Stock:      10,
		IsActive:   true,
		Attributes: []models.AttributeOption{
			{Name: "Color", Value: "Red", PriceOverride: floatPtr(1200), Position: 0},
			{Name: "Color", Value: "Blue", Stock: intPtr(0), Position: 1},
			{Name: "Color", Value: "Green", Stock: intPtr(4), Position: 2},
			{Name: "Size", Value: "XL", Stock: intPtr(0), Position: 3},
		},
		Tiers: []models.PricingTier{
			{MinQty: 5, Strategy: "percentOff", Value: 20, Position: 1},
			{MinQty: 1, MaxQty: intPtr(4), Strategy: "percentOff", Value: 10, Position: 0},
		},
		Sale: &models.ProductSale{
			Type:         "normal",
			DiscountType: "percent",
			Discount:     20,
			Variants: []models.SaleVariant{
				{AttributeName: "Color", AttributeValue: "Green", DiscountType: "percent", Discount: 50, MaxBuys: 5, BoughtCount: 1},
			},
		},
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}
