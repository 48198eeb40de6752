package domain

import "time"

// Ingredient is a canonical grocery concept independent of any specific
// branded product. The canonical name is lower-cased, punctuation-stripped,
// and whitespace-collapsed before an ingredient is created or looked up.
type Ingredient struct {
	ID            string    `json:"id"`
	CanonicalName string    `json:"canonicalName"`
	CreatedAt     time.Time `json:"createdAt"`
}

// IngredientInput is one entry in a batch price-resolution request.
type IngredientInput struct {
	Name     string `json:"name" binding:"required"`
	RecipeID string `json:"recipeId,omitempty"`
}

// Stores is the fixed set of retailers in the reference deployment.
var Stores = []string{
	"walmart",
	"target",
	"kroger",
	"meijer",
	"aldi",
	"safeway",
	"traderjoes",
	"99ranch",
}
