package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/cartwise/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredientStore_CreateIsIdempotent(t *testing.T) {
	s := NewIngredientStore()

	first, err := s.Create(context.Background(), "chicken breast")
	require.NoError(t, err)
	second, err := s.Create(context.Background(), "chicken breast")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, s.Size())
}

func TestIngredientStore_EmptyNameRejected(t *testing.T) {
	s := NewIngredientStore()

	_, err := s.Create(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrUnresolvableName)
}

func TestIngredientStore_FindMissing(t *testing.T) {
	s := NewIngredientStore()

	_, err := s.FindByCanonicalName(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrIngredientNotFound)
}

func TestQuoteStore_UpsertAndLatest(t *testing.T) {
	s := NewQuoteStore()
	key := domain.QuoteKey{IngredientID: "ing-1", Store: "walmart", Location: "12345"}

	err := s.Upsert(context.Background(), &domain.PriceQuote{
		IngredientID: "ing-1",
		Store:        "walmart",
		Location:     "12345",
		PriceCents:   199,
		FetchedAt:    time.Now(),
	})
	require.NoError(t, err)

	got, err := s.Latest(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(199), got.PriceCents)
}

func TestQuoteStore_LatestMissing(t *testing.T) {
	s := NewQuoteStore()

	_, err := s.Latest(context.Background(), domain.QuoteKey{IngredientID: "x"})

	assert.ErrorIs(t, err, domain.ErrQuoteNotFound)
}

func TestQuoteStore_FetchedAtIsMonotonic(t *testing.T) {
	s := NewQuoteStore()
	key := domain.QuoteKey{IngredientID: "ing-1", Store: "walmart", Location: "12345"}
	newer := time.Now()
	older := newer.Add(-time.Hour)

	err := s.Upsert(context.Background(), &domain.PriceQuote{
		IngredientID: "ing-1", Store: "walmart", Location: "12345",
		PriceCents: 199, FetchedAt: newer,
	})
	require.NoError(t, err)

	// A stale write still updates the row but keeps the newer timestamp.
	err = s.Upsert(context.Background(), &domain.PriceQuote{
		IngredientID: "ing-1", Store: "walmart", Location: "12345",
		PriceCents: 149, FetchedAt: older,
	})
	require.NoError(t, err)

	got, err := s.Latest(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(149), got.PriceCents)
	assert.True(t, got.FetchedAt.Equal(newer))
}

func TestQuoteStore_RejectsInvalidWrites(t *testing.T) {
	s := NewQuoteStore()

	assert.ErrorIs(t, s.Upsert(context.Background(), nil), domain.ErrInvalidRequest)
	assert.ErrorIs(t, s.Upsert(context.Background(), &domain.PriceQuote{
		IngredientID: "ing-1", Store: "walmart", PriceCents: -5,
	}), domain.ErrInvalidRequest)
	assert.Equal(t, 0, s.Size())
}
