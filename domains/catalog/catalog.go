package catalog

import "context"

// Candidate is one product record returned by a retailer source for a query.
// Name carries the source's opaque uniqueness token (e.g. a stockcode suffix)
// so visually similar SKUs never collapse into one record; DisplayName is the
// clean user-facing form.
type Candidate struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Price       *float64 `json:"price"`
	Was         *float64 `json:"was"`
	PromoText   string   `json:"promoText,omitempty"`
	PromoFlag   bool     `json:"promoFlag"`
	URL         string   `json:"url,omitempty"`
	InStock     *bool    `json:"inStock"`
	Retailer    string   `json:"retailer"`
	Stockcode   string   `json:"stockcode,omitempty"`
}

// OnSale reports whether the candidate should be flagged as discounted:
// an explicit promo flag, a current price below the previous price, or any
// promotional text all count.
func (c Candidate) OnSale() bool {
	if c.PromoFlag {
		return true
	}
	if c.Price != nil && c.Was != nil && *c.Price < *c.Was {
		return true
	}
	return c.PromoText != ""
}

type Alternative struct {
	Name       string   `json:"name"`
	Price      *float64 `json:"price"`
	Was        *float64 `json:"was"`
	OnSale     bool     `json:"onSale"`
	PromoText  string   `json:"promoText,omitempty"`
	URL        string   `json:"url,omitempty"`
	MatchScore float64  `json:"matchScore"`
}

// PotentialSaving describes a cheaper ranked alternative relative to the
// best match's price.
type PotentialSaving struct {
	Alternative      string  `json:"alternative"`
	CurrentPrice     float64 `json:"currentPrice"`
	AlternativePrice float64 `json:"alternativePrice"`
	Savings          float64 `json:"savings"`
	Percentage       float64 `json:"percentage"`
}

// ItemResult is the per (input item, retailer) outcome of a check. A missing
// best match is a normal outcome, not an error: BestMatch stays nil and the
// pricing fields are empty.
type ItemResult struct {
	Input            string            `json:"input"`
	Retailer         string            `json:"retailer"`
	BestMatch        *string           `json:"bestMatch"`
	Alternatives     []Alternative     `json:"alternatives"`
	OnSale           bool              `json:"onSale"`
	Price            *float64          `json:"price"`
	Was              *float64          `json:"was"`
	PromoText        string            `json:"promoText,omitempty"`
	URL              string            `json:"url,omitempty"`
	InStock          *bool             `json:"inStock"`
	PotentialSavings []PotentialSaving `json:"potentialSavings"`
}

type CheckItemsRequest struct {
	Items    []string `json:"items"`
	Postcode string   `json:"postcode"`
}

type CheckItemsResponse struct {
	Results      []ItemResult `json:"results"`
	Postcode     string       `json:"postcode"`
	ItemsChecked int          `json:"itemsChecked"`
}

type ISaleCheckUsecase interface {
	CheckItems(ctx context.Context, items []string, postcode string) (CheckItemsResponse, error)
}
