package models

import (
	"time"

	"github.com/google/uuid"
)

// Recipe is a recipe header row
// Maps to: recipe table
type Recipe struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"rec_name" json:"name"`
	CreatedAt time.Time `db:"inserted_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Incremented on every replace; clients echo it back in If-Match
	Version int64 `db:"version" json:"version"`
}

// Ingredient is one ingredient definition. Rows are never updated, only
// inserted and deleted, and names are not deduplicated across recipes.
// Maps to: ingredient table
type Ingredient struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// RecipeIngredient links a recipe to one ingredient definition
// Maps to: recipe_ingredients table, natural key (recid, indid)
type RecipeIngredient struct {
	Amount       float64   `db:"amount" json:"amount"`
	Unit         string    `db:"unit" json:"unit"`
	RecipeID     uuid.UUID `db:"recid" json:"recipe_id"`
	IngredientID uuid.UUID `db:"indid" json:"ingredient_id"`

	// Index of the line in the list the recipe was written with
	Position int `db:"position" json:"position"`
}

// IngredientLine is the (name, amount, unit) triple clients read and write
type IngredientLine struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// RecipeWithIngredients is the full aggregate
type RecipeWithIngredients struct {
	*Recipe
	Ingredients []IngredientLine `json:"ingredients"`
}
