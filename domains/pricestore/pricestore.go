package pricestore

import (
	"context"
	"time"
)

// PriceRecord is one observed price point for a product at a retailer.
// Product carries the internal name including the adapter's uniqueness
// disambiguator; DisplayName is what a user sees.
type PriceRecord struct {
	ID          string    `json:"id"`
	Retailer    string    `json:"retailer"`
	Product     string    `json:"product"`
	DisplayName string    `json:"display_name"`
	Price       *float64  `json:"price,omitempty"`
	Was         *float64  `json:"was,omitempty"`
	OnSale      bool      `json:"on_sale"`
	PromoText   string    `json:"promo_text,omitempty"`
	URL         string    `json:"url,omitempty"`
	Stockcode   string    `json:"stockcode,omitempty"`
	Postcode    string    `json:"postcode"`
	RecordedAt  time.Time `json:"recorded_at"`
}

type IPriceStoreRepository interface {
	RecordPrice(ctx context.Context, record PriceRecord) error
	PriceHistory(ctx context.Context, product string, limit int) ([]PriceRecord, error)
	LatestPrice(ctx context.Context, retailer, product string) (*PriceRecord, error)
}
