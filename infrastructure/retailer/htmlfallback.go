package retailer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ozcart/salewatch/domains/catalog"
	"github.com/ozcart/salewatch/domains/source"
	"github.com/sirupsen/logrus"
)

const fallbackMaxResults = 24

// HTMLFallback scrapes the Woolworths search page when the JSON API path is
// exhausted. It is wired in as the degradation orchestrator's explicit
// fallback function, so it only ever runs after the primary has already
// failed.
type HTMLFallback struct {
	client  *http.Client
	baseURL string
}

func NewHTMLFallback(client *http.Client) *HTMLFallback {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLFallback{client: client, baseURL: woolworthsBaseURL}
}

func (h *HTMLFallback) Search(ctx context.Context, query, postcode string) ([]catalog.Candidate, error) {
	searchURL := fmt.Sprintf("%s/shop/search/products?searchTerm=%s", h.baseURL, url.QueryEscape(query))

	logrus.WithFields(logrus.Fields{
		"query":    query,
		"postcode": postcode,
		"retailer": "woolworths",
		"fallback": "html",
	}).Info("[CHECK] API path exhausted, attempting HTML fallback")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", woolworthsHeaders["User-Agent"])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-AU,en;q=0.5")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	results := h.extractProducts(doc)
	logrus.Infof("[CHECK] HTML fallback found %d products", len(results))
	return results, nil
}

// extractProducts tries each known tile selector in order and stops at the
// first one that matches anything; the markup varies between page versions.
func (h *HTMLFallback) extractProducts(doc *goquery.Document) []catalog.Candidate {
	tileSelectors := []string{
		`[data-testid="product-tile"]`,
		".product-tile",
		".product-item",
		".search-result-item",
	}

	for _, selector := range tileSelectors {
		tiles := doc.Find(selector)
		if tiles.Length() == 0 {
			continue
		}

		var results []catalog.Candidate
		tiles.EachWithBreak(func(_ int, tile *goquery.Selection) bool {
			if candidate, ok := h.extractProduct(tile); ok {
				results = append(results, candidate)
			}
			return len(results) < fallbackMaxResults
		})
		return results
	}
	return nil
}

func (h *HTMLFallback) extractProduct(tile *goquery.Selection) (catalog.Candidate, bool) {
	name := firstText(tile,
		`[data-testid="product-title"]`, ".product-title", "h3", ".title", `[data-testid="product-name"]`)
	if name == "" {
		return catalog.Candidate{}, false
	}

	price := firstPrice(tile,
		`[data-testid="price-dollars"]`, ".price-dollars", ".current-price", ".price")
	was := firstPrice(tile,
		`[data-testid="was-price"]`, ".was-price", ".strikethrough-price")
	promoText := firstText(tile,
		`[data-testid="product-badge"]`, ".product-badge", ".promotion-text", ".special-offer")

	productURL := ""
	if href, ok := tile.Find("a[href]").First().Attr("href"); ok && href != "" {
		if strings.HasPrefix(href, "/") {
			productURL = h.baseURL + href
		} else {
			productURL = href
		}
	}

	promoFlag := was != nil && price != nil && *was > *price

	return catalog.Candidate{
		Name:        name,
		DisplayName: name,
		Price:       price,
		Was:         was,
		PromoText:   promoText,
		PromoFlag:   promoFlag,
		URL:         productURL,
		Retailer:    "woolworths",
	}, true
}

var _ source.Fallback = (*HTMLFallback)(nil)

func firstText(tile *goquery.Selection, selectors ...string) string {
	for _, selector := range selectors {
		if node := tile.Find(selector).First(); node.Length() > 0 {
			if text := strings.TrimSpace(node.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

func firstPrice(tile *goquery.Selection, selectors ...string) *float64 {
	if text := firstText(tile, selectors...); text != "" {
		return priceFromText(text)
	}
	return nil
}
