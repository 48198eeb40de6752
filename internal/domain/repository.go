package domain

import "context"

// IngredientRepository defines persistence for canonical ingredients.
// Canonical names are unique; ingredients are immutable once created.
type IngredientRepository interface {
	FindByCanonicalName(ctx context.Context, canonicalName string) (*Ingredient, error)
	Create(ctx context.Context, canonicalName string) (*Ingredient, error)
}

// QuoteRepository defines persistence for price quotes. Upsert overwrites any
// existing row for the key (last-write-wins) while keeping FetchedAt
// monotonically non-decreasing.
type QuoteRepository interface {
	Latest(ctx context.Context, key QuoteKey) (*PriceQuote, error)
	Upsert(ctx context.Context, quote *PriceQuote) error
}

// Fetcher is the outbound HTTP capability adapters depend on. The concrete
// gateway enforces the shared rate limit, in-flight dedupe, and short-TTL
// response caching.
type Fetcher interface {
	Do(ctx context.Context, req FetchRequest) ([]byte, error)
}

// FetchRequest describes one outbound call through the fetch gateway.
type FetchRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Extractor turns raw product snippets into structured products. Implemented
// by the LLM-backed reader extractor in production and a deterministic static
// extractor in tests; callers rely only on the contract and its timeout.
type Extractor interface {
	Extract(ctx context.Context, keyword string, candidates []RawCandidate) ([]StructuredProduct, error)
}

// StoreAdapter is the uniform contract every retailer adapter satisfies.
// Search never returns an error; internal failures degrade to mock data.
type StoreAdapter interface {
	Store() string
	Search(ctx context.Context, keyword, location string) SearchResult
}
