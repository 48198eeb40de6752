package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cartwise/backend/internal/domain"
)

// PriceServiceConfig holds configuration for the price service.
type PriceServiceConfig struct {
	FreshnessWindow    time.Duration
	EnableDebugLogging bool
}

// PriceOptions scope one lookup.
type PriceOptions struct {
	Location     string
	ForceRefresh bool
}

// StoreFailure records one store that returned no usable quote.
type StoreFailure struct {
	Store  string `json:"store"`
	Reason string `json:"reason"`
}

// PriceResult is the outcome of one getOrRefresh fan-out: quotes for the
// stores that succeeded, failures for the rest. A failed store never fails
// the whole lookup.
type PriceResult struct {
	Quotes   []domain.PriceQuote `json:"quotes"`
	Failures []StoreFailure      `json:"failures"`
}

// refreshCall is one in-progress refresh that concurrent callers for the same
// (ingredient, store, location) key await instead of issuing a second adapter
// call.
type refreshCall struct {
	done  chan struct{}
	quote *domain.PriceQuote
	err   error
}

// PriceService answers "give me fresh-enough price data or go fetch it" per
// (ingredient, store, location) key. It is the only writer of the quote
// repository; adapters and the standardizer stay stateless.
type PriceService struct {
	quotes       domain.QuoteRepository
	adapters     map[string]domain.StoreAdapter
	standardizer *UnitStandardizer
	freshness    time.Duration
	debug        bool

	mu         sync.Mutex
	refreshing map[domain.QuoteKey]*refreshCall
}

// NewPriceService creates a price service over the given adapters.
func NewPriceService(
	quotes domain.QuoteRepository,
	adapters []domain.StoreAdapter,
	standardizer *UnitStandardizer,
	config PriceServiceConfig,
) *PriceService {
	byStore := make(map[string]domain.StoreAdapter, len(adapters))
	for _, a := range adapters {
		byStore[a.Store()] = a
	}

	freshness := config.FreshnessWindow
	if freshness == 0 {
		freshness = 24 * time.Hour
	}

	return &PriceService{
		quotes:       quotes,
		adapters:     byStore,
		standardizer: standardizer,
		freshness:    freshness,
		debug:        config.EnableDebugLogging,
		refreshing:   make(map[domain.QuoteKey]*refreshCall),
	}
}

// GetOrRefresh resolves prices for one ingredient across the requested
// stores. Stores with a cached quote younger than the freshness window are
// served from cache (FromCache=true) unless ForceRefresh is set; everything
// else goes through the adapter, the unit standardizer, and an upsert.
// Per-store lookups run in parallel; failures are collected, not propagated.
func (s *PriceService) GetOrRefresh(
	ctx context.Context,
	ingredient *domain.Ingredient,
	storeIDs []string,
	opts PriceOptions,
) PriceResult {
	type storeOutcome struct {
		quote   *domain.PriceQuote
		failure *StoreFailure
	}

	outcomes := make([]storeOutcome, len(storeIDs))

	var wg sync.WaitGroup
	for i, storeID := range storeIDs {
		wg.Add(1)
		go func(i int, storeID string) {
			defer wg.Done()
			quote, err := s.resolveStore(ctx, ingredient, storeID, opts)
			if err != nil {
				outcomes[i] = storeOutcome{failure: &StoreFailure{Store: storeID, Reason: err.Error()}}
				return
			}
			outcomes[i] = storeOutcome{quote: quote}
		}(i, storeID)
	}
	wg.Wait()

	var result PriceResult
	for _, o := range outcomes {
		if o.quote != nil {
			result.Quotes = append(result.Quotes, *o.quote)
		}
		if o.failure != nil {
			result.Failures = append(result.Failures, *o.failure)
		}
	}
	return result
}

// resolveStore serves one (ingredient, store) pair from cache or refresh.
func (s *PriceService) resolveStore(
	ctx context.Context,
	ingredient *domain.Ingredient,
	storeID string,
	opts PriceOptions,
) (*domain.PriceQuote, error) {
	key := domain.QuoteKey{
		IngredientID: ingredient.ID,
		Store:        storeID,
		Location:     opts.Location,
	}

	if !opts.ForceRefresh {
		cached, err := s.quotes.Latest(ctx, key)
		if err == nil && time.Since(cached.FetchedAt) < s.freshness {
			fresh := *cached
			fresh.FromCache = true
			return &fresh, nil
		}
		if err != nil && !errors.Is(err, domain.ErrQuoteNotFound) {
			return nil, err
		}
	}

	return s.refreshKey(ctx, ingredient, key)
}

// refreshKey guarantees at most one outstanding refresh per key: the first
// caller performs the adapter fetch, later callers attach to its result.
func (s *PriceService) refreshKey(
	ctx context.Context,
	ingredient *domain.Ingredient,
	key domain.QuoteKey,
) (*domain.PriceQuote, error) {
	s.mu.Lock()
	if call, ok := s.refreshing[key]; ok {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.quote, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	s.refreshing[key] = call
	s.mu.Unlock()

	call.quote, call.err = s.doRefresh(ctx, ingredient, key)

	s.mu.Lock()
	delete(s.refreshing, key)
	s.mu.Unlock()
	close(call.done)

	return call.quote, call.err
}

// doRefresh runs the adapter, standardizes the best candidate's unit, and
// upserts the resulting quote. Degraded (mock) adapter results are reported
// as failures and never persisted.
func (s *PriceService) doRefresh(
	ctx context.Context,
	ingredient *domain.Ingredient,
	key domain.QuoteKey,
) (*domain.PriceQuote, error) {
	adapter, ok := s.adapters[key.Store]
	if !ok {
		return nil, fmt.Errorf("%w: unknown store %q", domain.ErrInvalidRequest, key.Store)
	}

	result := adapter.Search(ctx, ingredient.CanonicalName, key.Location)
	if result.Degraded {
		return nil, fmt.Errorf("%w: %s degraded to mock data", domain.ErrReaderFailure, key.Store)
	}
	if len(result.Quotes) == 0 {
		return nil, fmt.Errorf("no products found at %s", key.Store)
	}

	// Adapters sort ascending by price; the head is the best-known price.
	quote := result.Quotes[0]
	quote.IngredientID = key.IngredientID
	quote.Location = key.Location
	quote.FromCache = false

	resolution := s.standardizer.Resolve(quote.ProductTitle, quote.Unit, ingredient.CanonicalName, domain.SourceScraper)
	if resolution.Status == domain.ResolutionSuccess {
		quote.Unit = resolution.ResolvedUnit
		quote.Quantity = resolution.ResolvedQuantity
	} else if s.debug {
		// The quote is still usable, just without a validated unit.
		log.Printf("[PRICE] unit unresolved for %q at %s", quote.ProductTitle, key.Store)
	}

	if err := s.quotes.Upsert(ctx, &quote); err != nil {
		return nil, fmt.Errorf("upserting quote: %w", err)
	}

	return &quote, nil
}
