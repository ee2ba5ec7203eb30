package retailer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	domainCache "github.com/ozcart/salewatch/domains/cache"
	"github.com/ozcart/salewatch/domains/catalog"
	"github.com/ozcart/salewatch/domains/source"
	"github.com/ozcart/salewatch/pkg/httpretry"
	"github.com/sirupsen/logrus"
)

const (
	woolworthsBaseURL = "https://www.woolworths.com.au"
	woolworthsAPIBase = "https://www.woolworths.com.au/apis/ui"
	woolworthsPerPage = 36
)

var woolworthsHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-AU,en;q=0.9",
	"Referer":         "https://www.woolworths.com.au/shop/search/products",
	"Origin":          "https://www.woolworths.com.au",
}

// Woolworths searches the retailer's public product API. Results pass
// through the search cache so repeated queries within the TTL never hit the
// network.
type Woolworths struct {
	executor *httpretry.Executor
	cache    domainCache.ISearchCache
}

func NewWoolworths(executor *httpretry.Executor, cache domainCache.ISearchCache) *Woolworths {
	return &Woolworths{executor: executor, cache: cache}
}

func (w *Woolworths) Name() string {
	return "woolworths"
}

func (w *Woolworths) Search(ctx context.Context, query, postcode string) ([]catalog.Candidate, error) {
	start := time.Now()

	if cached, hit := w.cache.GetEntry(w.Name(), query, postcode); hit {
		logrus.WithFields(logrus.Fields{
			"query":         query,
			"postcode":      postcode,
			"retailer":      w.Name(),
			"cache_hit":     true,
			"results_count": len(cached),
		}).Info("[CHECK] Cache hit for search")
		return cached, nil
	}

	params := url.Values{}
	params.Set("searchTerm", query)
	params.Set("postcode", postcode)
	params.Set("pageNumber", "1")
	params.Set("pageSize", fmt.Sprint(woolworthsPerPage))
	params.Set("sortType", "Relevance")

	payload := w.executor.FetchJSON(ctx, woolworthsAPIBase+"/Search/products", params, woolworthsHeaders)
	if payload == nil {
		return nil, fmt.Errorf("woolworths search failed for %q", query)
	}

	results := parseWoolworthsPayload(payload)

	// Empty result sets are cached too, so a query with no matches does
	// not re-hit the API on every check.
	w.cache.Put(w.Name(), query, postcode, results)

	logrus.WithFields(logrus.Fields{
		"query":         query,
		"postcode":      postcode,
		"retailer":      w.Name(),
		"cache_hit":     false,
		"latency":       time.Since(start).Seconds(),
		"results_count": len(results),
	}).Info("[CHECK] Search completed")

	return results, nil
}

// parseWoolworthsPayload walks the API's doubly nested Products arrays. A
// malformed group or product is skipped rather than failing the batch.
func parseWoolworthsPayload(payload json.RawMessage) []catalog.Candidate {
	if payload == nil {
		return nil
	}

	var top map[string]interface{}
	if err := json.Unmarshal(payload, &top); err != nil {
		logrus.WithError(err).Warn("[CHECK] Unexpected Woolworths payload shape")
		return nil
	}

	var results []catalog.Candidate
	for _, group := range fields(top).list("Products") {
		for _, product := range group.list("Products") {
			results = append(results, parseWoolworthsProduct(product))
		}
	}
	return results
}

func parseWoolworthsProduct(product fields) catalog.Candidate {
	rawName := product.str("DisplayName", "Name")
	if rawName == "" {
		rawName = "Unknown Product"
	}

	displayName := rawName
	if size := product.str("PackageSize", "Size"); size != "" &&
		!strings.Contains(strings.ToLower(rawName), strings.ToLower(size)) {
		displayName = strings.TrimSpace(rawName + " " + size)
	}

	// The internal name carries the stockcode so visually identical SKUs
	// (say 60g and 140g variants) can never be conflated downstream. The
	// display name stays clean for user-facing output.
	stockcode := woolworthsStockcode(product)
	name := displayName
	if stockcode != "" {
		name = fmt.Sprintf("%s [WOW:%s]", displayName, stockcode)
	}

	price := product.num("Price")
	was := product.num("WasPrice")
	if price != nil && was != nil && *was == *price {
		was = nil
	}

	promoText := ""
	if savings := product.num("SavingsAmount"); savings != nil && *savings > 0 {
		promoText = fmt.Sprintf("Save $%.2f", *savings)
	}

	productURL := ""
	if stockcode != "" {
		productURL = fmt.Sprintf("%s/shop/productdetails/%s/%s",
			woolworthsBaseURL, stockcode, product.str("UrlFriendlyName"))
	}

	return catalog.Candidate{
		Name:        name,
		DisplayName: displayName,
		Price:       price,
		Was:         was,
		PromoText:   promoText,
		PromoFlag:   product.boolean("IsOnSpecial", "IsHalfPrice"),
		URL:         productURL,
		InStock:     product.boolPtr("IsAvailable", "IsInStock"),
		Retailer:    "woolworths",
		Stockcode:   stockcode,
	}
}

var _ source.Adapter = (*Woolworths)(nil)

func woolworthsStockcode(product fields) string {
	if s := product.str("Stockcode"); s != "" {
		return s
	}
	// Stockcodes arrive as numbers in most responses.
	if n := product.num("Stockcode"); n != nil {
		return fmt.Sprintf("%.0f", *n)
	}
	return ""
}
