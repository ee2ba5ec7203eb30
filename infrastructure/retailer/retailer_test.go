package retailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ozcart/salewatch/infrastructure/searchcache"
	"github.com/ozcart/salewatch/pkg/httpretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDoer struct {
	body  string
	err   error
	calls int
}

func (d *stubDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Header:     http.Header{},
	}, nil
}

const woolworthsPayload = `{
	"Products": [
		{"Products": [
			{
				"DisplayName": "Full Cream Milk",
				"PackageSize": "2L",
				"Stockcode": 123456,
				"Price": 3.10,
				"WasPrice": 3.60,
				"IsOnSpecial": true,
				"SavingsAmount": 0.50,
				"UrlFriendlyName": "full-cream-milk",
				"IsAvailable": true
			},
			{
				"Name": "Lite Milk 1L",
				"Stockcode": "654321",
				"Price": 2.20,
				"WasPrice": 2.20
			}
		]}
	]
}`

func TestParseWoolworthsPayload(t *testing.T) {
	results := parseWoolworthsPayload(json.RawMessage(woolworthsPayload))
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, "Full Cream Milk 2L [WOW:123456]", first.Name)
	assert.Equal(t, "Full Cream Milk 2L", first.DisplayName)
	assert.Equal(t, "123456", first.Stockcode)
	require.NotNil(t, first.Price)
	assert.InDelta(t, 3.10, *first.Price, 0.001)
	require.NotNil(t, first.Was)
	assert.InDelta(t, 3.60, *first.Was, 0.001)
	assert.True(t, first.PromoFlag)
	assert.Equal(t, "Save $0.50", first.PromoText)
	assert.Equal(t, "https://www.woolworths.com.au/shop/productdetails/123456/full-cream-milk", first.URL)
	require.NotNil(t, first.InStock)
	assert.True(t, *first.InStock)
	assert.True(t, first.OnSale())

	second := results[1]
	assert.Equal(t, "Lite Milk 1L [WOW:654321]", second.Name)
	assert.Nil(t, second.Was, "equal was and now prices collapse to nil")
	assert.Nil(t, second.InStock)
	assert.False(t, second.OnSale())
}

func TestParseWoolworthsPayloadMalformed(t *testing.T) {
	assert.Nil(t, parseWoolworthsPayload(nil))
	assert.Nil(t, parseWoolworthsPayload(json.RawMessage(`[1,2,3]`)))
	assert.Empty(t, parseWoolworthsPayload(json.RawMessage(`{"Products":"nope"}`)))
}

func TestParseWoolworthsProductMissingFields(t *testing.T) {
	result := parseWoolworthsProduct(fields{})
	assert.Equal(t, "Unknown Product", result.Name)
	assert.Nil(t, result.Price)
	assert.Empty(t, result.URL)
}

func TestWoolworthsSearchUsesCache(t *testing.T) {
	doer := &stubDoer{body: woolworthsPayload}
	cache := searchcache.NewMemory(10, time.Minute)
	adapter := NewWoolworths(httpretry.New(doer, httpretry.DefaultConfig()), cache)

	first, err := adapter.Search(context.Background(), "milk 2L", "2000")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, doer.calls)

	second, err := adapter.Search(context.Background(), "milk 2L", "2000")
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Equal(t, 1, doer.calls, "second search must be served from cache")
}

func TestWoolworthsSearchCachesEmptyResults(t *testing.T) {
	doer := &stubDoer{body: `{"Products":[]}`}
	cache := searchcache.NewMemory(10, time.Minute)
	adapter := NewWoolworths(httpretry.New(doer, httpretry.DefaultConfig()), cache)

	first, err := adapter.Search(context.Background(), "unobtainium", "2000")
	require.NoError(t, err)
	assert.Empty(t, first)

	second, err := adapter.Search(context.Background(), "unobtainium", "2000")
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 1, doer.calls)
}

const colesPayload = `{
	"results": [
		{
			"name": "Tasty Cheese Block",
			"size": "500g",
			"id": 998877,
			"pricing": {"now": 8.00, "was": 10.50, "promotionDescription": "Special"},
			"availability": true
		}
	]
}`

func TestParseColesPayload(t *testing.T) {
	results := parseColesPayload(json.RawMessage(colesPayload))
	require.Len(t, results, 1)

	product := results[0]
	assert.Equal(t, "Tasty Cheese Block 500g [COL:998877]", product.Name)
	assert.Equal(t, "Tasty Cheese Block 500g", product.DisplayName)
	assert.Equal(t, "998877", product.Stockcode)
	require.NotNil(t, product.Price)
	assert.InDelta(t, 8.00, *product.Price, 0.001)
	assert.Equal(t, "Special", product.PromoText)
	assert.True(t, product.PromoFlag)
	assert.Contains(t, product.URL, "998877")
}

func TestColesSearchExhaustionIsAnError(t *testing.T) {
	doer := &stubDoer{err: errors.New("connection refused")}
	cache := searchcache.NewMemory(10, time.Minute)
	executor := httpretry.New(doer, httpretry.Config{MaxAttempts: 1, BackoffFactor: 0.001, Timeout: time.Second})
	adapter := NewColes(executor, cache)

	results, err := adapter.Search(context.Background(), "milk", "2000")
	require.Error(t, err)
	assert.Empty(t, results)

	_, hit := cache.GetEntry("coles", "milk", "2000")
	assert.False(t, hit, "failed searches must not poison the cache")
}

func TestPriceFromText(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{"$4.50", 4.50, true},
		{"was $10.00", 10.00, true},
		{"2", 2, true},
		{"no price here", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		got := priceFromText(tc.text)
		if !tc.ok {
			assert.Nil(t, got, tc.text)
			continue
		}
		require.NotNil(t, got, tc.text)
		assert.InDelta(t, tc.want, *got, 0.001, tc.text)
	}
}

const searchPageHTML = `<html><body>
	<div data-testid="product-tile">
		<h3 data-testid="product-title">Full Cream Milk 2L</h3>
		<span data-testid="price-dollars">$3.10</span>
		<span data-testid="was-price">$3.60</span>
		<span data-testid="product-badge">Half Price</span>
		<a href="/shop/productdetails/123456/full-cream-milk">View</a>
	</div>
	<div data-testid="product-tile">
		<h3>Lite Milk 1L</h3>
		<span class="price">$2.20</span>
	</div>
	<div data-testid="product-tile"><span>no title, skipped</span></div>
</body></html>`

func TestHTMLFallbackSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "searchTerm=milk")
		w.Write([]byte(searchPageHTML))
	}))
	defer server.Close()

	fallback := NewHTMLFallback(server.Client())
	fallback.baseURL = server.URL

	results, err := fallback.Search(context.Background(), "milk", "2000")
	require.NoError(t, err)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, "Full Cream Milk 2L", first.Name)
	require.NotNil(t, first.Price)
	assert.InDelta(t, 3.10, *first.Price, 0.001)
	require.NotNil(t, first.Was)
	assert.InDelta(t, 3.60, *first.Was, 0.001)
	assert.Equal(t, "Half Price", first.PromoText)
	assert.True(t, first.PromoFlag)
	assert.Equal(t, server.URL+"/shop/productdetails/123456/full-cream-milk", first.URL)

	second := results[1]
	assert.Equal(t, "Lite Milk 1L", second.Name)
	assert.False(t, second.PromoFlag)
}

func TestHTMLFallbackNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	fallback := NewHTMLFallback(server.Client())
	fallback.baseURL = server.URL

	_, err := fallback.Search(context.Background(), "milk", "2000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
