package pricestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	domainPricestore "github.com/ozcart/salewatch/domains/pricestore"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 50

type priceRecordModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	Retailer    string `gorm:"size:64;index:idx_retailer_product"`
	Product     string `gorm:"size:512;index:idx_retailer_product;index:idx_product"`
	DisplayName string `gorm:"size:512"`
	Price       *float64
	Was         *float64
	OnSale      bool
	PromoText   string    `gorm:"size:256"`
	URL         string    `gorm:"size:1024"`
	Stockcode   string    `gorm:"size:64"`
	Postcode    string    `gorm:"size:8"`
	RecordedAt  time.Time `gorm:"index"`
}

func (priceRecordModel) TableName() string {
	return "price_records"
}

// Repository persists price observations through gorm, so the same code
// serves both the SQLite default and Postgres deployments.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&priceRecordModel{}); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) RecordPrice(ctx context.Context, record domainPricestore.PriceRecord) error {
	if strings.TrimSpace(record.Product) == "" {
		return errors.New("product cannot be blank")
	}

	model := priceRecordModel{
		ID:          record.ID,
		Retailer:    record.Retailer,
		Product:     record.Product,
		DisplayName: record.DisplayName,
		Price:       record.Price,
		Was:         record.Was,
		OnSale:      record.OnSale,
		PromoText:   record.PromoText,
		URL:         record.URL,
		Stockcode:   record.Stockcode,
		Postcode:    record.Postcode,
		RecordedAt:  record.RecordedAt,
	}
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if model.RecordedAt.IsZero() {
		model.RecordedAt = time.Now().UTC()
	}

	return r.db.WithContext(ctx).Create(&model).Error
}

// PriceHistory returns the most recent observations for a product across
// all retailers, newest first.
func (r *Repository) PriceHistory(ctx context.Context, product string, limit int) ([]domainPricestore.PriceRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var models []priceRecordModel
	err := r.db.WithContext(ctx).
		Where("product = ?", product).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	records := make([]domainPricestore.PriceRecord, 0, len(models))
	for _, m := range models {
		records = append(records, m.toDomain())
	}
	return records, nil
}

func (r *Repository) LatestPrice(ctx context.Context, retailer, product string) (*domainPricestore.PriceRecord, error) {
	var model priceRecordModel
	err := r.db.WithContext(ctx).
		Where("retailer = ? AND product = ?", retailer, product).
		Order("recorded_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record := model.toDomain()
	return &record, nil
}

func (m priceRecordModel) toDomain() domainPricestore.PriceRecord {
	return domainPricestore.PriceRecord{
		ID:          m.ID,
		Retailer:    m.Retailer,
		Product:     m.Product,
		DisplayName: m.DisplayName,
		Price:       m.Price,
		Was:         m.Was,
		OnSale:      m.OnSale,
		PromoText:   m.PromoText,
		URL:         m.URL,
		Stockcode:   m.Stockcode,
		Postcode:    m.Postcode,
		RecordedAt:  m.RecordedAt,
	}
}

var _ domainPricestore.IPriceStoreRepository = (*Repository)(nil)
