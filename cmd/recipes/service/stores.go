package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/recipes/cmd/recipes/models"
)

// RecipeStore persists recipe header rows
type RecipeStore interface {
	Insert(ctx context.Context, recipe *models.Recipe) error
	List(ctx context.Context) ([]*models.Recipe, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
	ReplaceFields(ctx context.Context, id uuid.UUID, name string, updatedAt time.Time, expectedVersion *int64) (int64, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (int64, error)
}

// IngredientStore persists ingredient definition rows
type IngredientStore interface {
	BulkInsert(ctx context.Context, ingredients []*models.Ingredient) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ingredient, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// LinkStore persists recipe/ingredient links
type LinkStore interface {
	BulkInsert(ctx context.Context, links []*models.RecipeIngredient) error
	ListByRecipe(ctx context.Context, recipeID uuid.UUID) ([]*models.RecipeIngredient, error)
	DeleteByIngredientID(ctx context.Context, ingredientID uuid.UUID) error
}

// IntegrityStore finds and removes rows that break the composition invariants
type IntegrityStore interface {
	OrphanIngredients(ctx context.Context) ([]uuid.UUID, error)
	DanglingLinks(ctx context.Context) ([]*models.RecipeIngredient, error)
	DeleteLink(ctx context.Context, recipeID, ingredientID uuid.UUID) error
}

// TxRunner groups the statements fn issues through ctx into one transaction
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// IngredientValidator rejects ingredient lines before anything is written
type IngredientValidator interface {
	Validate(name string, amount float64, unit string) error
}

// Recorder receives operation timings and consumed events
type Recorder interface {
	RecordDuration(operation, result string, start time.Time)
	RecordEvent(event string, attrs map[string]any)
}
