package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lyzr/recipes/cmd/recipes/models"
	"github.com/lyzr/recipes/common/apperrors"
	"github.com/lyzr/recipes/common/db"
)

// IngredientRepository handles database operations for ingredient definitions
type IngredientRepository struct {
	db *db.DB
}

// NewIngredientRepository creates a new ingredient repository
func NewIngredientRepository(db *db.DB) *IngredientRepository {
	return &IngredientRepository{db: db}
}

// BulkInsert writes all ingredients in one statement; one bad row fails the batch
func (r *IngredientRepository) BulkInsert(ctx context.Context, ingredients []*models.Ingredient) error {
	if len(ingredients) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(ingredients))
	names := make([]string, len(ingredients))
	for i, ingr := range ingredients {
		ids[i] = ingr.ID
		names[i] = ingr.Name
	}

	query := `
		INSERT INTO ingredient (id, name)
		SELECT * FROM UNNEST($1::uuid[], $2::text[])
	`

	if _, err := r.db.Querier(ctx).Exec(ctx, query, ids, names); err != nil {
		return apperrors.Write("insert ingredients", err)
	}

	return nil
}

// GetByID retrieves one ingredient definition
func (r *IngredientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	ingr := &models.Ingredient{}
	err := r.db.Querier(ctx).QueryRow(ctx, `SELECT id, name FROM ingredient WHERE id = $1`, id).Scan(
		&ingr.ID,
		&ingr.Name,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("ingredient", id)
	}
	if err != nil {
		return nil, apperrors.Read("get ingredient", err)
	}

	return ingr, nil
}

// DeleteByID removes one ingredient definition; a missing row is a no-op
func (r *IngredientRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM ingredient WHERE id = $1`, id); err != nil {
		return apperrors.Write("delete ingredient", err)
	}
	return nil
}
