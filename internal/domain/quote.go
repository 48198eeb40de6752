package domain

import "time"

// PriceQuote is one store's priced product match for an ingredient at a
// location. Prices are kept in currency minor units (cents) so totals never
// accumulate float error. Quotes are upserted on refresh and superseded, never
// hard-deleted; FetchedAt is monotonically non-decreasing per
// (ingredient, store, location) key.
type PriceQuote struct {
	IngredientID string    `json:"ingredientId"`
	Store        string    `json:"store"`
	Location     string    `json:"location"`
	PriceCents   int64     `json:"priceCents"`
	Unit         string    `json:"unit"`
	Quantity     float64   `json:"quantity"`
	ProductTitle string    `json:"productTitle"`
	Brand        string    `json:"brand,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	FetchedAt    time.Time `json:"fetchedAt"`
	FromCache    bool      `json:"fromCache"`
}

// QuoteKey identifies the cache row a quote belongs to.
type QuoteKey struct {
	IngredientID string
	Store        string
	Location     string
}

// RawCandidate is one unprocessed product snippet from a retailer's search
// surface, before structured extraction.
type RawCandidate struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	URL      string `json:"url,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// StructuredProduct is the output of the extraction step for one candidate.
type StructuredProduct struct {
	Title      string  `json:"title"`
	Brand      string  `json:"brand,omitempty"`
	PriceCents int64   `json:"priceCents"`
	Quantity   float64 `json:"quantity,omitempty"`
	Unit       string  `json:"unit,omitempty"`
	ImageURL   string  `json:"image_url,omitempty"`
}

// SearchResult is what a store adapter always returns. Adapters never fail:
// when the underlying fetch or extraction fails they degrade to a small
// deterministic mock result set so downstream aggregation has something to
// rank. Degraded marks that fallback.
type SearchResult struct {
	Quotes   []PriceQuote `json:"quotes"`
	Degraded bool         `json:"degraded"`
}
