package cache

import "github.com/ozcart/salewatch/domains/catalog"

type Stats struct {
	Size         int    `json:"size"`
	MaxSize      int    `json:"max_size"`
	ExpiredItems int    `json:"expired_items"`
	DefaultTTL   string `json:"default_ttl"`
	HumanNote    string `json:"note,omitempty"`
}

// ISearchCache stores retailer search results keyed by (source, query,
// location). Query and location are normalized before key derivation, so
// "  Milk 2L " and "milk 2l" address the same entry. Empty and nil payloads
// are valid cached values; GetEntry exposes the distinct exists signal for
// callers that must tell them apart from a miss.
type ISearchCache interface {
	Get(source, query, location string) []catalog.Candidate
	GetEntry(source, query, location string) ([]catalog.Candidate, bool)
	Put(source, query, location string, value []catalog.Candidate)
	PutTTL(source, query, location string, value []catalog.Candidate, ttlSeconds int)
	Clear()
	Size() int
	Stats() Stats
}
