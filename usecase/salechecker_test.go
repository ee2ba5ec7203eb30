package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ozcart/salewatch/domains/catalog"
	domainPricestore "github.com/ozcart/salewatch/domains/pricestore"
	"github.com/ozcart/salewatch/domains/source"
	"github.com/ozcart/salewatch/pkg/degrade"
	"github.com/ozcart/salewatch/pkg/matching"
	"github.com/ozcart/salewatch/pkg/priceworker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	name       string
	candidates []catalog.Candidate
	err        error
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Search(context.Context, string, string) ([]catalog.Candidate, error) {
	return a.candidates, a.err
}

type fakeStore struct {
	mu      sync.Mutex
	records []domainPricestore.PriceRecord
}

func (s *fakeStore) RecordPrice(_ context.Context, record domainPricestore.PriceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *fakeStore) PriceHistory(context.Context, string, int) ([]domainPricestore.PriceRecord, error) {
	return nil, nil
}

func (s *fakeStore) LatestPrice(context.Context, string, string) (*domainPricestore.PriceRecord, error) {
	return nil, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func price(v float64) *float64 { return &v }

func milkCandidates() []catalog.Candidate {
	return []catalog.Candidate{
		{Name: "Full Cream Milk 2L [WOW:1]", DisplayName: "Full Cream Milk 2L", Price: price(3.10), Was: price(3.60), PromoFlag: true, Retailer: "woolworths"},
		{Name: "Lite Milk 2L [WOW:2]", DisplayName: "Lite Milk 2L", Price: price(2.80), Retailer: "woolworths"},
		{Name: "Dog Shampoo 500ml [WOW:3]", DisplayName: "Dog Shampoo 500ml", Price: price(12.00), Retailer: "woolworths"},
	}
}

func newCheckService(adapters []source.Adapter, fallbacks map[string]source.Fallback) catalog.ISaleCheckUsecase {
	return NewSaleCheckService(
		adapters,
		fallbacks,
		degrade.NewManager(degrade.DefaultConfig()),
		matching.NewMatcher(matching.DefaultConfig()),
		nil,
		nil,
		8,
	)
}

func TestCheckItemsBestMatchAndAlternatives(t *testing.T) {
	adapter := &fakeAdapter{name: "woolworths", candidates: milkCandidates()}
	svc := newCheckService([]source.Adapter{adapter}, nil)

	resp, err := svc.CheckItems(context.Background(), []string{"full cream milk 2L"}, "2000")
	require.NoError(t, err)

	assert.Equal(t, 1, resp.ItemsChecked)
	assert.Equal(t, "2000", resp.Postcode)
	require.Len(t, resp.Results, 1)

	result := resp.Results[0]
	assert.Equal(t, "full cream milk 2L", result.Input)
	assert.Equal(t, "woolworths", result.Retailer)
	require.NotNil(t, result.BestMatch)
	assert.Equal(t, "Full Cream Milk 2L [WOW:1]", *result.BestMatch)
	assert.True(t, result.OnSale)
	require.NotNil(t, result.Price)

	// The dog shampoo candidate falls below the similarity bar, so only
	// the other milk remains as an alternative.
	require.Len(t, result.Alternatives, 1)
	assert.Contains(t, result.Alternatives[0].Name, "Milk 2L")
	assert.Greater(t, result.Alternatives[0].MatchScore, 0.0)
}

func TestCheckItemsPotentialSavings(t *testing.T) {
	adapter := &fakeAdapter{name: "woolworths", candidates: milkCandidates()}
	svc := newCheckService([]source.Adapter{adapter}, nil)

	resp, err := svc.CheckItems(context.Background(), []string{"full cream milk 2L"}, "2000")
	require.NoError(t, err)

	result := resp.Results[0]
	require.NotNil(t, result.BestMatch)
	assert.Equal(t, "Full Cream Milk 2L [WOW:1]", *result.BestMatch)
	require.Len(t, result.PotentialSavings, 1)

	saving := result.PotentialSavings[0]
	assert.Equal(t, "Lite Milk 2L [WOW:2]", saving.Alternative)
	assert.InDelta(t, 3.10, saving.CurrentPrice, 0.001)
	assert.InDelta(t, 2.80, saving.AlternativePrice, 0.001)
	assert.InDelta(t, 0.30, saving.Savings, 0.001)
	assert.InDelta(t, 9.7, saving.Percentage, 0.001)
}

func TestCheckItemsNoCandidatesYieldsEmptyResult(t *testing.T) {
	adapter := &fakeAdapter{name: "woolworths"}
	svc := newCheckService([]source.Adapter{adapter}, nil)

	resp, err := svc.CheckItems(context.Background(), []string{"milk"}, "2000")
	require.NoError(t, err)

	result := resp.Results[0]
	assert.Nil(t, result.BestMatch)
	assert.False(t, result.OnSale)
	assert.Nil(t, result.Price)
	assert.Empty(t, result.Alternatives)
	assert.Empty(t, result.PotentialSavings)
}

func TestCheckItemsSourceFailureNeverFailsCheck(t *testing.T) {
	healthy := &fakeAdapter{name: "woolworths", candidates: milkCandidates()}
	broken := &fakeAdapter{name: "coles", err: errors.New("api down")}
	svc := newCheckService([]source.Adapter{healthy, broken}, nil)

	resp, err := svc.CheckItems(context.Background(), []string{"milk 2L"}, "2000")
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	assert.NotNil(t, resp.Results[0].BestMatch)
	assert.Equal(t, "coles", resp.Results[1].Retailer)
	assert.Nil(t, resp.Results[1].BestMatch)
}

type fallbackFunc func(ctx context.Context, query, postcode string) ([]catalog.Candidate, error)

func (f fallbackFunc) Search(ctx context.Context, query, postcode string) ([]catalog.Candidate, error) {
	return f(ctx, query, postcode)
}

func TestCheckItemsFallbackSupplyingResults(t *testing.T) {
	broken := &fakeAdapter{name: "woolworths", err: errors.New("api down")}
	fallbacks := map[string]source.Fallback{
		"woolworths": fallbackFunc(func(context.Context, string, string) ([]catalog.Candidate, error) {
			return milkCandidates(), nil
		}),
	}
	svc := newCheckService([]source.Adapter{broken}, fallbacks)

	resp, err := svc.CheckItems(context.Background(), []string{"milk 2L"}, "2000")
	require.NoError(t, err)
	require.NotNil(t, resp.Results[0].BestMatch)
}

func TestCheckItemsMultipleItemsOrderedByAdapter(t *testing.T) {
	first := &fakeAdapter{name: "woolworths", candidates: milkCandidates()}
	second := &fakeAdapter{name: "coles", candidates: milkCandidates()}
	svc := newCheckService([]source.Adapter{first, second}, nil)

	resp, err := svc.CheckItems(context.Background(), []string{"milk 2L", "bread"}, "2000")
	require.NoError(t, err)
	require.Len(t, resp.Results, 4)
	assert.Equal(t, 2, resp.ItemsChecked)

	assert.Equal(t, "woolworths", resp.Results[0].Retailer)
	assert.Equal(t, "coles", resp.Results[1].Retailer)
	assert.Equal(t, "milk 2L", resp.Results[0].Input)
	assert.Equal(t, "bread", resp.Results[2].Input)
}

func TestCheckItemsRecordsPricesAsynchronously(t *testing.T) {
	adapter := &fakeAdapter{name: "woolworths", candidates: milkCandidates()}
	store := &fakeStore{}
	pool := priceworker.NewPool(2, 10)
	pool.Start(context.Background())
	defer pool.Stop()

	svc := NewSaleCheckService(
		[]source.Adapter{adapter},
		nil,
		degrade.NewManager(degrade.DefaultConfig()),
		matching.NewMatcher(matching.DefaultConfig()),
		store,
		pool,
		8,
	)

	_, err := svc.CheckItems(context.Background(), []string{"milk 2L"}, "2000")
	require.NoError(t, err)

	// Best match plus one priced alternative.
	assert.Eventually(t, func() bool { return store.count() == 2 },
		2*time.Second, 10*time.Millisecond)
}
