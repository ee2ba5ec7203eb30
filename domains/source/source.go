package source

import (
	"context"

	"github.com/ozcart/salewatch/domains/catalog"
)

// Adapter performs one retailer's product search. A failure is an explicit
// error return; it is absorbed into a degraded result by the orchestration
// layer, never surfaced past it.
type Adapter interface {
	Name() string
	Search(ctx context.Context, query, postcode string) ([]catalog.Candidate, error)
}

// Fallback is a secondary searcher for a retailer, invoked only after the
// primary path has already failed.
type Fallback interface {
	Search(ctx context.Context, query, postcode string) ([]catalog.Candidate, error)
}

// SearchFunc is the primary operation handed to the degradation manager,
// already bound to a query and location.
type SearchFunc func(ctx context.Context) ([]catalog.Candidate, error)

// FallbackFunc is the bound form of Fallback.
type FallbackFunc func(ctx context.Context) ([]catalog.Candidate, error)
