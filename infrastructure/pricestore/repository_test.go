package pricestore

import (
	"context"
	"fmt"
	"testing"
	"time"

	domainPricestore "github.com/ozcart/salewatch/domains/pricestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	repo, err := NewRepository(db)
	require.NoError(t, err)
	return repo
}

func price(v float64) *float64 { return &v }

func TestRecordPriceAssignsIDAndTimestamp(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.RecordPrice(context.Background(), domainPricestore.PriceRecord{
		Retailer:    "woolworths",
		Product:     "Full Cream Milk 2L [WOW:123456]",
		DisplayName: "Full Cream Milk 2L",
		Price:       price(3.10),
		Postcode:    "2000",
	})
	require.NoError(t, err)

	latest, err := repo.LatestPrice(context.Background(), "woolworths", "Full Cream Milk 2L [WOW:123456]")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.NotEmpty(t, latest.ID)
	assert.False(t, latest.RecordedAt.IsZero())
	assert.InDelta(t, 3.10, *latest.Price, 0.001)
}

func TestRecordPriceRejectsBlankProduct(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.RecordPrice(context.Background(), domainPricestore.PriceRecord{
		Retailer: "woolworths",
		Product:  "   ",
	})
	assert.Error(t, err)
}

func TestPriceHistoryNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := repo.RecordPrice(context.Background(), domainPricestore.PriceRecord{
			Retailer:   "coles",
			Product:    "Tasty Cheese 500g [COL:998877]",
			Price:      price(8.00 + float64(i)),
			Postcode:   "2000",
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	history, err := repo.PriceHistory(context.Background(), "Tasty Cheese 500g [COL:998877]", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.InDelta(t, 10.00, *history[0].Price, 0.001)
	assert.InDelta(t, 8.00, *history[2].Price, 0.001)
}

func TestPriceHistoryHonorsLimit(t *testing.T) {
	repo := newTestRepository(t)

	for i := 0; i < 5; i++ {
		err := repo.RecordPrice(context.Background(), domainPricestore.PriceRecord{
			Retailer: "woolworths",
			Product:  "Weet-Bix 1.2kg [WOW:111]",
			Price:    price(7.50),
			Postcode: fmt.Sprintf("20%02d", i),
		})
		require.NoError(t, err)
	}

	history, err := repo.PriceHistory(context.Background(), "Weet-Bix 1.2kg [WOW:111]", 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestLatestPriceMissingProduct(t *testing.T) {
	repo := newTestRepository(t)

	latest, err := repo.LatestPrice(context.Background(), "woolworths", "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestLatestPriceScopedToRetailer(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.RecordPrice(context.Background(), domainPricestore.PriceRecord{
		Retailer: "woolworths",
		Product:  "Milk 2L [WOW:1]",
		Price:    price(3.10),
	}))

	latest, err := repo.LatestPrice(context.Background(), "coles", "Milk 2L [WOW:1]")
	require.NoError(t, err)
	assert.Nil(t, latest)
}
