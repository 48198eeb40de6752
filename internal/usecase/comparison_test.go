package usecase

import (
	"encoding/json"
	"testing"

	"github.com/cartwise/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quote(store string, cents int64) domain.PriceQuote {
	return domain.PriceQuote{Store: store, PriceCents: cents, Unit: "each", Quantity: 1}
}

func TestCompare_CheapestVersusBestValue(t *testing.T) {
	svc := NewComparisonService()

	list := []domain.ShoppingListItem{
		{ID: "milk", Name: "Milk", Quantity: 1},
		{ID: "eggs", Name: "Eggs", Quantity: 1},
	}
	rows := map[string][]domain.PriceQuote{
		"milk": {quote("storeA", 200), quote("storeB", 100)},
		"eggs": {quote("storeA", 300)},
	}

	comparisons := svc.Compare(list, rows, nil)
	require.Len(t, comparisons, 2)

	// Sorted by total ascending: the sparse store first.
	b, a := comparisons[0], comparisons[1]
	require.Equal(t, "storeB", b.Store)
	require.Equal(t, "storeA", a.Store)

	assert.Equal(t, int64(100), b.TotalCents)
	assert.Len(t, b.MissingIngredients, 1)
	assert.Equal(t, int64(500), a.TotalCents)
	assert.Empty(t, a.MissingIngredients)

	// Cheapest is the raw minimum; best value penalizes the missing item
	// (100 + 2000 = 2100 against A's 500).
	assert.True(t, b.IsCheapest)
	assert.False(t, b.IsBestValue)
	assert.True(t, a.IsBestValue)
	assert.False(t, a.IsCheapest)

	assert.Equal(t, int64(400), b.SavingsCents)
	assert.Equal(t, int64(0), a.SavingsCents)
}

func TestCompare_LowestQuotePerItemAndQuantityMultiplier(t *testing.T) {
	svc := NewComparisonService()

	list := []domain.ShoppingListItem{
		{ID: "rice", Name: "Rice", Quantity: 2.5},
	}
	rows := map[string][]domain.PriceQuote{
		"rice": {quote("storeA", 399), quote("storeA", 299)},
	}

	comparisons := svc.Compare(list, rows, nil)
	require.Len(t, comparisons, 1)

	// Lowest of the two quotes, times the requested quantity, rounded.
	assert.Equal(t, int64(748), comparisons[0].TotalCents)
	require.Len(t, comparisons[0].Items, 1)
	assert.Equal(t, int64(299), comparisons[0].Items[0].Quote.PriceCents)
}

func TestCompare_TieBreaksOnStoreID(t *testing.T) {
	svc := NewComparisonService()

	list := []domain.ShoppingListItem{{ID: "milk", Name: "Milk", Quantity: 1}}
	rows := map[string][]domain.PriceQuote{
		"milk": {quote("zebra", 100), quote("alpha", 100)},
	}

	comparisons := svc.Compare(list, rows, nil)
	require.Len(t, comparisons, 2)

	assert.Equal(t, "alpha", comparisons[0].Store)
	assert.True(t, comparisons[0].IsCheapest)
	assert.True(t, comparisons[0].IsBestValue)
	assert.False(t, comparisons[1].IsCheapest)
}

func TestCompare_NearestMarkerDoesNotAffectRanking(t *testing.T) {
	svc := NewComparisonService()

	list := []domain.ShoppingListItem{{ID: "milk", Name: "Milk", Quantity: 1}}
	rows := map[string][]domain.PriceQuote{
		"milk": {quote("storeA", 100), quote("storeB", 200)},
	}
	travel := map[string]float64{"storeA": 25, "storeB": 5}

	comparisons := svc.Compare(list, rows, travel)
	require.Len(t, comparisons, 2)

	assert.Equal(t, "storeA", comparisons[0].Store)
	assert.True(t, comparisons[0].IsCheapest)
	assert.False(t, comparisons[0].IsNearest)
	assert.True(t, comparisons[1].IsNearest)
	assert.Equal(t, 5.0, comparisons[1].TravelMinutes)
}

func TestCompare_Idempotent(t *testing.T) {
	svc := NewComparisonService()

	list := []domain.ShoppingListItem{
		{ID: "milk", Name: "Milk", Quantity: 1},
		{ID: "eggs", Name: "Eggs", Quantity: 2},
	}
	rows := map[string][]domain.PriceQuote{
		"milk": {quote("storeA", 200), quote("storeB", 100)},
		"eggs": {quote("storeA", 300), quote("storeB", 350)},
	}

	first, err := json.Marshal(svc.Compare(list, rows, nil))
	require.NoError(t, err)
	second, err := json.Marshal(svc.Compare(list, rows, nil))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCompare_NoQuotesAtAll(t *testing.T) {
	svc := NewComparisonService()

	comparisons := svc.Compare(
		[]domain.ShoppingListItem{{ID: "milk", Name: "Milk", Quantity: 1}},
		map[string][]domain.PriceQuote{},
		nil,
	)

	assert.Nil(t, comparisons)
}
