package domain

import "time"

// ShoppingListItem is a read-only input supplied by the shopping-list feature.
type ShoppingListItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
}

// MatchedItem pairs a shopping-list item with the quote selected for it at a
// particular store.
type MatchedItem struct {
	Item  ShoppingListItem `json:"item"`
	Quote PriceQuote       `json:"quote"`
}

// StoreComparison is one store's row in a ranked shopping comparison. It is a
// derived view, recomputed fully on every request and never persisted.
type StoreComparison struct {
	Store              string             `json:"store"`
	Items              []MatchedItem      `json:"items"`
	TotalCents         int64              `json:"totalCents"`
	SavingsCents       int64              `json:"savingsCents"`
	MissingIngredients []ShoppingListItem `json:"missingIngredients"`
	IsCheapest         bool               `json:"isCheapest"`
	IsBestValue        bool               `json:"isBestValue"`
	IsNearest          bool               `json:"isNearest,omitempty"`
	TravelMinutes      float64            `json:"travelMinutes,omitempty"`
}

// StoreOutcome is the per-store result of one ingredient's price resolution.
type StoreOutcome struct {
	Store     string `json:"store"`
	Status    string `json:"status"` // "success", "cached", or "failed"
	Reason    string `json:"reason,omitempty"`
	FromCache bool   `json:"fromCache"`
}

// IngredientResult is the per-ingredient breakdown in a batch run.
type IngredientResult struct {
	Name         string         `json:"name"`
	IngredientID string         `json:"ingredientId,omitempty"`
	RecipeID     string         `json:"recipeId,omitempty"`
	Stores       []StoreOutcome `json:"stores"`
	Quotes       []PriceQuote   `json:"quotes,omitempty"`
}

// BatchRunResult aggregates one orchestrator invocation. Scraped is derived as
// Successful minus Cached. The result is ephemeral; callers log or discard it.
type BatchRunResult struct {
	RunID            string             `json:"runId"`
	TotalIngredients int                `json:"totalIngredients"`
	TotalStores      int                `json:"totalStores"`
	Successful       int                `json:"successful"`
	Cached           int                `json:"cached"`
	Scraped          int                `json:"scraped"`
	Failed           int                `json:"failed"`
	Retried          int                `json:"retried"`
	Duration         time.Duration      `json:"-"`
	Results          []IngredientResult `json:"results"`
}

// SuccessRate returns the fraction of (ingredient, store) pairs that resolved.
func (r *BatchRunResult) SuccessRate() float64 {
	attempts := r.Successful + r.Failed
	if attempts == 0 {
		return 0
	}
	return float64(r.Successful) / float64(attempts)
}
