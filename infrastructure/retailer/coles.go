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
	colesBaseURL   = "https://www.coles.com.au"
	colesSearchAPI = "https://www.coles.com.au/api/bff/products/search"
	colesPerPage   = 36
)

var colesHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-AU,en;q=0.9",
	"Referer":         "https://www.coles.com.au/search",
	"Origin":          "https://www.coles.com.au",
}

// Coles searches the retailer's storefront API. Same shape as the
// Woolworths adapter: cache in front, retrying executor behind, tolerant
// payload parsing.
type Coles struct {
	executor *httpretry.Executor
	cache    domainCache.ISearchCache
}

func NewColes(executor *httpretry.Executor, cache domainCache.ISearchCache) *Coles {
	return &Coles{executor: executor, cache: cache}
}

func (c *Coles) Name() string {
	return "coles"
}

func (c *Coles) Search(ctx context.Context, query, postcode string) ([]catalog.Candidate, error) {
	start := time.Now()

	if cached, hit := c.cache.GetEntry(c.Name(), query, postcode); hit {
		logrus.WithFields(logrus.Fields{
			"query":         query,
			"postcode":      postcode,
			"retailer":      c.Name(),
			"cache_hit":     true,
			"results_count": len(cached),
		}).Info("[CHECK] Cache hit for search")
		return cached, nil
	}

	params := url.Values{}
	params.Set("searchTerm", query)
	params.Set("postcode", postcode)
	params.Set("page", "1")
	params.Set("pageSize", fmt.Sprint(colesPerPage))

	payload := c.executor.FetchJSON(ctx, colesSearchAPI, params, colesHeaders)
	if payload == nil {
		return nil, fmt.Errorf("coles search failed for %q", query)
	}

	results := parseColesPayload(payload)
	c.cache.Put(c.Name(), query, postcode, results)

	logrus.WithFields(logrus.Fields{
		"query":         query,
		"postcode":      postcode,
		"retailer":      c.Name(),
		"cache_hit":     false,
		"latency":       time.Since(start).Seconds(),
		"results_count": len(results),
	}).Info("[CHECK] Search completed")

	return results, nil
}

func parseColesPayload(payload json.RawMessage) []catalog.Candidate {
	if payload == nil {
		return nil
	}

	var top map[string]interface{}
	if err := json.Unmarshal(payload, &top); err != nil {
		logrus.WithError(err).Warn("[CHECK] Unexpected Coles payload shape")
		return nil
	}

	var results []catalog.Candidate
	for _, product := range fields(top).list("results") {
		results = append(results, parseColesProduct(product))
	}
	return results
}

func parseColesProduct(product fields) catalog.Candidate {
	rawName := product.str("name", "description")
	if rawName == "" {
		rawName = "Unknown Product"
	}

	displayName := rawName
	if size := product.str("size", "packageSize"); size != "" &&
		!strings.Contains(strings.ToLower(rawName), strings.ToLower(size)) {
		displayName = strings.TrimSpace(rawName + " " + size)
	}

	id := colesProductID(product)
	name := displayName
	if id != "" {
		name = fmt.Sprintf("%s [COL:%s]", displayName, id)
	}

	var pricing fields
	if m, ok := product["pricing"].(map[string]interface{}); ok {
		pricing = fields(m)
	} else {
		pricing = fields{}
	}

	price := pricing.num("now", "comparable")
	was := pricing.num("was")
	if price != nil && was != nil && *was == *price {
		was = nil
	}

	promoText := pricing.str("promotionDescription", "promotionType")
	promoFlag := product.boolean("onSpecial", "isOnSpecial")
	if was != nil && price != nil && *price < *was {
		promoFlag = true
	}

	productURL := ""
	if id != "" {
		slug := strings.ToLower(strings.ReplaceAll(displayName, " ", "-"))
		productURL = fmt.Sprintf("%s/product/%s-%s", colesBaseURL, url.PathEscape(slug), id)
	}

	return catalog.Candidate{
		Name:        name,
		DisplayName: displayName,
		Price:       price,
		Was:         was,
		PromoText:   promoText,
		PromoFlag:   promoFlag,
		URL:         productURL,
		InStock:     product.boolPtr("availability", "isAvailable"),
		Retailer:    "coles",
		Stockcode:   id,
	}
}

var _ source.Adapter = (*Coles)(nil)

func colesProductID(product fields) string {
	if s := product.str("id", "productId"); s != "" {
		return s
	}
	if n := product.num("id", "productId"); n != nil {
		return fmt.Sprintf("%.0f", *n)
	}
	return ""
}
