package usecase

import (
	"math"
	"sort"

	"github.com/cartwise/backend/internal/domain"
)

// missingItemPenaltyCents is the fixed best-value penalty per shopping-list
// item a store cannot supply ($20 in minor units).
const missingItemPenaltyCents = 2000

// ComparisonService converts per-item price rows into ranked store-level
// shopping totals. Compare is pure and idempotent: identical inputs produce
// identical output, including tie-break order.
type ComparisonService struct{}

// NewComparisonService creates a comparison service.
func NewComparisonService() *ComparisonService {
	return &ComparisonService{}
}

// Compare builds one comparison row per store that quoted at least one item.
// For every (item, store) pair only the lowest-priced quote is kept; totals
// accumulate price x requested quantity. The cheapest store is the plain
// minimum total; best value additionally penalizes each missing item, so a
// nearly-complete store can beat a cheap but sparse one. When travel minutes
// are supplied the nearest store is marked without affecting price ranking.
func (s *ComparisonService) Compare(
	shoppingList []domain.ShoppingListItem,
	priceRowsPerItem map[string][]domain.PriceQuote,
	travelMinutes map[string]float64,
) []domain.StoreComparison {
	stores := collectStores(priceRowsPerItem)
	if len(stores) == 0 {
		return nil
	}

	comparisons := make([]domain.StoreComparison, 0, len(stores))
	for _, store := range stores {
		comparison := domain.StoreComparison{Store: store}

		for _, item := range shoppingList {
			best, found := lowestQuote(priceRowsPerItem[item.ID], store)
			if !found {
				comparison.MissingIngredients = append(comparison.MissingIngredients, item)
				continue
			}

			quantity := item.Quantity
			if quantity <= 0 {
				quantity = 1
			}
			comparison.TotalCents += int64(math.Round(float64(best.PriceCents) * quantity))
			comparison.Items = append(comparison.Items, domain.MatchedItem{Item: item, Quote: best})
		}

		if minutes, ok := travelMinutes[store]; ok {
			comparison.TravelMinutes = minutes
		}

		comparisons = append(comparisons, comparison)
	}

	rank(comparisons, travelMinutes)

	sort.SliceStable(comparisons, func(i, j int) bool {
		if comparisons[i].TotalCents != comparisons[j].TotalCents {
			return comparisons[i].TotalCents < comparisons[j].TotalCents
		}
		return comparisons[i].Store < comparisons[j].Store
	})

	return comparisons
}

// rank fills savings and the cheapest / best-value / nearest markers.
func rank(comparisons []domain.StoreComparison, travelMinutes map[string]float64) {
	if len(comparisons) == 0 {
		return
	}

	maxTotal := comparisons[0].TotalCents
	for _, c := range comparisons[1:] {
		if c.TotalCents > maxTotal {
			maxTotal = c.TotalCents
		}
	}

	cheapest, bestValue, nearest := 0, 0, -1
	for i := range comparisons {
		comparisons[i].SavingsCents = maxTotal - comparisons[i].TotalCents

		if less(comparisons[i].TotalCents, comparisons[i].Store,
			comparisons[cheapest].TotalCents, comparisons[cheapest].Store) {
			cheapest = i
		}

		if less(valueScore(comparisons[i]), comparisons[i].Store,
			valueScore(comparisons[bestValue]), comparisons[bestValue].Store) {
			bestValue = i
		}

		if _, ok := travelMinutes[comparisons[i].Store]; ok {
			if nearest < 0 || comparisons[i].TravelMinutes < comparisons[nearest].TravelMinutes {
				nearest = i
			}
		}
	}

	comparisons[cheapest].IsCheapest = true
	comparisons[bestValue].IsBestValue = true
	if nearest >= 0 {
		comparisons[nearest].IsNearest = true
	}
}

// valueScore is the best-value ranking score: total plus a fixed penalty per
// missing ingredient.
func valueScore(c domain.StoreComparison) int64 {
	return c.TotalCents + missingItemPenaltyCents*int64(len(c.MissingIngredients))
}

// less orders by score then store ID, the deterministic tie-break.
func less(scoreA int64, storeA string, scoreB int64, storeB string) bool {
	if scoreA != scoreB {
		return scoreA < scoreB
	}
	return storeA < storeB
}

// lowestQuote selects the minimum-priced quote a store returned for an item.
func lowestQuote(quotes []domain.PriceQuote, store string) (domain.PriceQuote, bool) {
	var best domain.PriceQuote
	found := false
	for _, q := range quotes {
		if q.Store != store {
			continue
		}
		if !found || q.PriceCents < best.PriceCents {
			best = q
			found = true
		}
	}
	return best, found
}

// collectStores gathers the distinct stores across all rows in sorted order,
// so iteration is deterministic.
func collectStores(priceRowsPerItem map[string][]domain.PriceQuote) []string {
	seen := make(map[string]bool)
	var stores []string
	for _, quotes := range priceRowsPerItem {
		for _, q := range quotes {
			if !seen[q.Store] {
				seen[q.Store] = true
				stores = append(stores, q.Store)
			}
		}
	}
	sort.Strings(stores)
	return stores
}
