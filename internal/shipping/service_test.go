package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type memoryCache struct {
	data   map[string][]byte
	reads  int
	writes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	c.reads++
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	c.writes++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *memoryCache) ShippingRateKey(country, state string) string {
	return "sf:shipping_rate:" + strings.ToLower(country) + ":" + strings.ToLower(state)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:shipping_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func seedRates(t *testing.T, conn *gorm.DB) {
	t.Helper()
	rows := []models.ShippingRate{
		{CountryName: "Nigeria", StateCode: "LA", StateName: "Lagos", BaseCost: 2000, PerItemCost: 500, FlatRate: 3500, EstimatedDays: 2, Currency: "NGN"},
		{CountryName: "Nigeria", StateCode: "", BaseCost: 4000, PerItemCost: 800, FlatRate: 5000, EstimatedDays: 5, Currency: "NGN"},
	}
	require.NoError(t, conn.Create(&rows).Error)
}

func newTestService(t *testing.T, cache RateCache) Service {
	t.Helper()
	conn := openTestDB(t)
	seedRates(t, conn)
	svc, err := NewService(NewRepository(conn), cache, Config{DefaultCountry: "Nigeria", Currency: "NGN", CacheTTL: time.Minute}, nil, nil)
	require.NoError(t, err)
	return svc
}

var lagos = types.Destination{CountryName: "Nigeria", StateName: "Lagos", StateCode: "LA", LGAName: "Ikeja"}

func TestQuoteUsesStateRow(t *testing.T) {
	svc := newTestService(t, nil)

	res, err := svc.Quote(context.Background(), types.ShippingQuoteRequest{
		Items: []types.ShippingQuoteItem{
			{Product: uuid.NewString(), Qty: 2, UnitPrice: 1000, TotalPrice: 2000},
			{Product: uuid.NewString(), Qty: 1, UnitPrice: 500, TotalPrice: 500},
		},
		ShippingAddress: lagos,
		DeliveryType:    enums.DeliveryMethodNormal,
	})
	require.NoError(t, err)
	assert.InDelta(t, 3000, res.ShippingCost, 1e-9)
	assert.InDelta(t, 2500, res.ItemsSubtotal, 1e-9)
	assert.InDelta(t, 5500, res.EstimatedTotal, 1e-9)
	assert.Equal(t, 2, res.EstimatedDays)
	assert.Equal(t, "NGN", res.Currency)
}

func TestQuoteFallsBackToCountryRowAndAppliesExpress(t *testing.T) {
	svc := newTestService(t, nil)
	kano := types.Destination{CountryName: "nigeria", StateName: "Kano", StateCode: "KN"}

	cost, err := svc.CostFor(context.Background(), kano, 1, enums.DeliveryMethodExpress, enums.QuoteSourceAuthenticated)
	require.NoError(t, err)
	assert.InDelta(t, 6000, cost.Amount, 1e-9)
	assert.Equal(t, 5, cost.EstimatedDays)
}

func TestGuestQuoteReturnsFlatRate(t *testing.T) {
	svc := newTestService(t, nil)

	res, err := svc.GuestQuote(context.Background(), types.GuestQuoteRequest{
		Items:       []types.GuestQuoteItem{{ProductID: uuid.NewString(), Quantity: 4}},
		Destination: lagos,
	})
	require.NoError(t, err)
	assert.InDelta(t, 3500, res.Amount, 1e-9)
}

func TestPickupIsFreeWithoutLookup(t *testing.T) {
	cache := newMemoryCache()
	svc := newTestService(t, cache)

	cost, err := svc.CostFor(context.Background(), types.Destination{}, 0, enums.DeliveryMethodPickup, enums.QuoteSourceAuthenticated)
	require.NoError(t, err)
	assert.Zero(t, cost.Amount)
	assert.Equal(t, enums.QuoteSourcePickup, cost.Source)
	assert.Zero(t, cache.reads)
}

func TestUnknownDestinationIsNotFound(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.CostFor(context.Background(), types.Destination{CountryName: "Ghana", StateCode: "AA"}, 1, enums.DeliveryMethodNormal, enums.QuoteSourceGuest)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.CostFor(context.Background(), lagos, 1, "teleport", enums.QuoteSourceGuest)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRatesAreCached(t *testing.T) {
	cache := newMemoryCache()
	svc := newTestService(t, cache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CostFor(ctx, lagos, 1, enums.DeliveryMethodNormal, enums.QuoteSourceGuest)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, cache.writes)
	assert.Equal(t, 3, cache.reads)
	_, ok := cache.data["sf:shipping_rate:nigeria:la"]
	assert.True(t, ok)
}
