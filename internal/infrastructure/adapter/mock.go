package adapter

import (
	"time"

	"github.com/cartwise/backend/internal/domain"
)

// Fixed placeholder prices for the degraded result set.
const (
	mockLowPriceCents  = 299
	mockHighPriceCents = 449
)

// mockResult is the deterministic fallback an adapter returns on any internal
// failure: two items with fixed placeholder prices, so ranking downstream
// still has input. Callers can tell it apart via the Degraded flag.
func mockResult(store, keyword, location string) domain.SearchResult {
	now := time.Now()
	return domain.SearchResult{
		Degraded: true,
		Quotes: []domain.PriceQuote{
			{
				Store:        store,
				Location:     location,
				PriceCents:   mockLowPriceCents,
				Unit:         "each",
				Quantity:     1,
				ProductTitle: keyword + " (store brand)",
				Brand:        "Store Brand",
				FetchedAt:    now,
			},
			{
				Store:        store,
				Location:     location,
				PriceCents:   mockHighPriceCents,
				Unit:         "each",
				Quantity:     1,
				ProductTitle: keyword + " (name brand)",
				Brand:        "National Brand",
				FetchedAt:    now,
			},
		},
	}
}
