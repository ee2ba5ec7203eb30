package usecase

import (
	"context"
	"math"
	"time"

	"github.com/ozcart/salewatch/domains/catalog"
	domainPricestore "github.com/ozcart/salewatch/domains/pricestore"
	"github.com/ozcart/salewatch/domains/source"
	"github.com/ozcart/salewatch/pkg/degrade"
	"github.com/ozcart/salewatch/pkg/matching"
	"github.com/ozcart/salewatch/pkg/priceworker"
	"github.com/sirupsen/logrus"
)

type saleCheckService struct {
	adapters        []source.Adapter
	fallbacks       map[string]source.Fallback
	orchestrator    *degrade.Manager
	matcher         *matching.Matcher
	store           domainPricestore.IPriceStoreRepository
	pool            *priceworker.Pool
	maxAlternatives int
}

// NewSaleCheckService wires the check pipeline: fan-out through the
// degradation orchestrator, ranking through the matcher, and asynchronous
// price recording through the worker pool. The store and pool are optional;
// without them checks still run, they just leave no history.
func NewSaleCheckService(
	adapters []source.Adapter,
	fallbacks map[string]source.Fallback,
	orchestrator *degrade.Manager,
	matcher *matching.Matcher,
	store domainPricestore.IPriceStoreRepository,
	pool *priceworker.Pool,
	maxAlternatives int,
) catalog.ISaleCheckUsecase {
	if maxAlternatives <= 0 {
		maxAlternatives = 8
	}
	if fallbacks == nil {
		fallbacks = map[string]source.Fallback{}
	}
	return &saleCheckService{
		adapters:        adapters,
		fallbacks:       fallbacks,
		orchestrator:    orchestrator,
		matcher:         matcher,
		store:           store,
		pool:            pool,
		maxAlternatives: maxAlternatives,
	}
}

func (s *saleCheckService) CheckItems(ctx context.Context, items []string, postcode string) (catalog.CheckItemsResponse, error) {
	results := make([]catalog.ItemResult, 0, len(items)*len(s.adapters))

	for _, item := range items {
		logrus.WithFields(logrus.Fields{
			"item":     item,
			"postcode": postcode,
		}).Info("[CHECK] Checking item")

		retailerResults := s.searchAllSources(ctx, item, postcode)

		// Iterate in adapter registration order so response ordering is
		// deterministic.
		for _, adapter := range s.adapters {
			name := adapter.Name()
			result := s.buildItemResult(item, name, retailerResults[name].Data)
			results = append(results, result)
			s.recordPrices(postcode, result)
		}
	}

	return catalog.CheckItemsResponse{
		Results:      results,
		Postcode:     postcode,
		ItemsChecked: len(items),
	}, nil
}

func (s *saleCheckService) searchAllSources(ctx context.Context, item, postcode string) map[string]degrade.ServiceResult {
	searches := make(map[string]source.SearchFunc, len(s.adapters))
	fallbacks := make(map[string]source.FallbackFunc)

	for _, adapter := range s.adapters {
		adapter := adapter
		searches[adapter.Name()] = func(ctx context.Context) ([]catalog.Candidate, error) {
			return adapter.Search(ctx, item, postcode)
		}
		if fb, ok := s.fallbacks[adapter.Name()]; ok {
			fallbacks[adapter.Name()] = func(ctx context.Context) ([]catalog.Candidate, error) {
				return fb.Search(ctx, item, postcode)
			}
		}
	}

	return s.orchestrator.ExecuteMultiSource(ctx, searches, fallbacks)
}

// buildItemResult ranks a retailer's candidates against the query. The top
// match fills the headline fields; the remaining ranked matches become
// alternatives, with potential savings computed against the best match's
// price.
func (s *saleCheckService) buildItemResult(item, retailer string, candidates []catalog.Candidate) catalog.ItemResult {
	result := catalog.ItemResult{
		Input:            item,
		Retailer:         retailer,
		Alternatives:     []catalog.Alternative{},
		PotentialSavings: []catalog.PotentialSaving{},
	}

	if len(candidates) == 0 {
		return result
	}

	matches := s.matcher.TopMatches(item, candidates, s.maxAlternatives)
	if len(matches) == 0 {
		logrus.WithFields(logrus.Fields{
			"item":             item,
			"retailer":         retailer,
			"candidates_count": len(candidates),
		}).Info("[CHECK] No suitable match found")
		return result
	}

	best := matches[0].Candidate
	bestName := best.Name
	result.BestMatch = &bestName
	result.OnSale = best.OnSale()
	result.Price = best.Price
	result.Was = best.Was
	result.PromoText = best.PromoText
	result.URL = best.URL
	result.InStock = best.InStock

	for _, match := range matches[1:] {
		alt := match.Candidate
		result.Alternatives = append(result.Alternatives, catalog.Alternative{
			Name:       alt.Name,
			Price:      alt.Price,
			Was:        alt.Was,
			OnSale:     alt.OnSale(),
			PromoText:  alt.PromoText,
			URL:        alt.URL,
			MatchScore: round2(match.Score.TotalScore),
		})

		if best.Price != nil && alt.Price != nil {
			saving := *best.Price - *alt.Price
			if saving > 0 {
				result.PotentialSavings = append(result.PotentialSavings, catalog.PotentialSaving{
					Alternative:      alt.Name,
					CurrentPrice:     round2(*best.Price),
					AlternativePrice: round2(*alt.Price),
					Savings:          round2(saving),
					Percentage:       round1(saving / *best.Price * 100),
				})
			}
		}
	}

	return result
}

// recordPrices hands the observed prices to the worker pool. Persistence is
// strictly best-effort: a missing store, a full queue, or a write error
// never affects the check result.
func (s *saleCheckService) recordPrices(postcode string, result catalog.ItemResult) {
	if s.store == nil || s.pool == nil {
		return
	}

	records := make([]domainPricestore.PriceRecord, 0, 1+len(result.Alternatives))

	if result.BestMatch != nil && result.Price != nil {
		records = append(records, domainPricestore.PriceRecord{
			Retailer:   result.Retailer,
			Product:    *result.BestMatch,
			Price:      result.Price,
			Was:        result.Was,
			OnSale:     result.OnSale,
			PromoText:  result.PromoText,
			URL:        result.URL,
			Postcode:   postcode,
			RecordedAt: time.Now().UTC(),
		})
	}
	for _, alt := range result.Alternatives {
		if alt.Name == "" || alt.Price == nil {
			continue
		}
		records = append(records, domainPricestore.PriceRecord{
			Retailer:   result.Retailer,
			Product:    alt.Name,
			Price:      alt.Price,
			Was:        alt.Was,
			OnSale:     alt.OnSale,
			PromoText:  alt.PromoText,
			URL:        alt.URL,
			Postcode:   postcode,
			RecordedAt: time.Now().UTC(),
		})
	}

	for _, record := range records {
		record := record
		s.pool.Dispatch(priceworker.Job{
			Retailer: record.Retailer,
			Product:  record.Product,
			Handler: func(ctx context.Context) error {
				return s.store.RecordPrice(ctx, record)
			},
		})
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
