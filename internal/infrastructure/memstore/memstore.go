package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cartwise/backend/internal/domain"
	"github.com/google/uuid"
)

// IngredientStore is a thread-safe in-memory implementation of
// domain.IngredientRepository. Canonical names are unique; Create is
// idempotent and returns the existing row for a name already present.
type IngredientStore struct {
	mu     sync.RWMutex
	byName map[string]domain.Ingredient
}

// NewIngredientStore creates an empty ingredient store.
func NewIngredientStore() *IngredientStore {
	return &IngredientStore{
		byName: make(map[string]domain.Ingredient),
	}
}

// FindByCanonicalName looks up an ingredient by its canonical name.
func (s *IngredientStore) FindByCanonicalName(ctx context.Context, canonicalName string) (*domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ing, ok := s.byName[canonicalName]
	if !ok {
		return nil, domain.ErrIngredientNotFound
	}
	return &ing, nil
}

// Create inserts a new canonical ingredient, or returns the existing row when
// the name is already present.
func (s *IngredientStore) Create(ctx context.Context, canonicalName string) (*domain.Ingredient, error) {
	if canonicalName == "" {
		return nil, domain.ErrUnresolvableName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byName[canonicalName]; ok {
		return &existing, nil
	}

	ing := domain.Ingredient{
		ID:            uuid.NewString(),
		CanonicalName: canonicalName,
		CreatedAt:     time.Now(),
	}
	s.byName[canonicalName] = ing
	return &ing, nil
}

// Size returns the number of stored ingredients (for debugging/monitoring).
func (s *IngredientStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byName)
}

// QuoteStore is a thread-safe in-memory implementation of
// domain.QuoteRepository. Rows are only ever superseded, never hard-deleted.
type QuoteStore struct {
	mu     sync.RWMutex
	quotes map[domain.QuoteKey]domain.PriceQuote
}

// NewQuoteStore creates an empty quote store.
func NewQuoteStore() *QuoteStore {
	return &QuoteStore{
		quotes: make(map[domain.QuoteKey]domain.PriceQuote),
	}
}

// Latest returns the most recent quote for a key.
func (s *QuoteStore) Latest(ctx context.Context, key domain.QuoteKey) (*domain.PriceQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quote, ok := s.quotes[key]
	if !ok {
		return nil, domain.ErrQuoteNotFound
	}
	return &quote, nil
}

// Upsert overwrites any existing row for the quote's key, last-write-wins.
// FetchedAt stays monotonically non-decreasing per key: a write carrying an
// older timestamp keeps the existing one.
func (s *QuoteStore) Upsert(ctx context.Context, quote *domain.PriceQuote) error {
	if quote == nil {
		return domain.ErrInvalidRequest
	}
	if quote.PriceCents < 0 {
		return fmt.Errorf("%w: negative price", domain.ErrInvalidRequest)
	}

	key := domain.QuoteKey{
		IngredientID: quote.IngredientID,
		Store:        quote.Store,
		Location:     quote.Location,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *quote
	if existing, ok := s.quotes[key]; ok && existing.FetchedAt.After(stored.FetchedAt) {
		stored.FetchedAt = existing.FetchedAt
	}
	s.quotes[key] = stored
	return nil
}

// Size returns the number of stored quotes (for debugging/monitoring).
func (s *QuoteStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quotes)
}
