package models

import "github.com/google/uuid"

// RecipeRequest is the body of create and replace calls
type RecipeRequest struct {
	Name        string           `json:"name"`
	Ingredients []IngredientLine `json:"ingredients"`
}

// IngredientLookupRequest is the body of POST /api/v1/ingredients
type IngredientLookupRequest struct {
	ID uuid.UUID `json:"id"`
}

// RecipeDocument is the JSON document a PATCH is applied to
type RecipeDocument struct {
	Name        string           `json:"name"`
	Ingredients []IngredientLine `json:"ingredients"`
}

// RecipeEvent is published on the recipe.events topic after a successful write
type RecipeEvent struct {
	Type     string    `json:"type"`
	RecipeID uuid.UUID `json:"recipe_id"`
	Name     string    `json:"name,omitempty"`
	Version  int64     `json:"version,omitempty"`
	Lines    int       `json:"ingredients"`
}

// Recipe event types
const (
	EventRecipeCreated  = "recipe.created"
	EventRecipeReplaced = "recipe.replaced"
	EventRecipeDeleted  = "recipe.deleted"
)

// IntegrityReport lists rows that break the composition invariants
type IntegrityReport struct {
	OrphanIngredients []uuid.UUID        `json:"orphan_ingredients"`
	DanglingLinks     []RecipeIngredient `json:"dangling_links"`
}

// Clean reports whether nothing was found
func (r *IntegrityReport) Clean() bool {
	return len(r.OrphanIngredients) == 0 && len(r.DanglingLinks) == 0
}
