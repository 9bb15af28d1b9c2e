package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lyzr/recipes/cmd/recipes/models"
	"github.com/lyzr/recipes/common/apperrors"
	"github.com/lyzr/recipes/common/db"
)

// RecipeIngredientRepository handles database operations for recipe/ingredient links
type RecipeIngredientRepository struct {
	db *db.DB
}

// NewRecipeIngredientRepository creates a new link repository
func NewRecipeIngredientRepository(db *db.DB) *RecipeIngredientRepository {
	return &RecipeIngredientRepository{db: db}
}

// BulkInsert writes all links in one statement; one bad row fails the batch
func (r *RecipeIngredientRepository) BulkInsert(ctx context.Context, links []*models.RecipeIngredient) error {
	if len(links) == 0 {
		return nil
	}

	amounts := make([]float64, len(links))
	units := make([]string, len(links))
	recipeIDs := make([]uuid.UUID, len(links))
	ingredientIDs := make([]uuid.UUID, len(links))
	positions := make([]int32, len(links))
	for i, link := range links {
		amounts[i] = link.Amount
		units[i] = link.Unit
		recipeIDs[i] = link.RecipeID
		ingredientIDs[i] = link.IngredientID
		positions[i] = int32(link.Position)
	}

	query := `
		INSERT INTO recipe_ingredients (amount, unit, recid, indid, position)
		SELECT * FROM UNNEST($1::float8[], $2::text[], $3::uuid[], $4::uuid[], $5::int4[])
	`

	if _, err := r.db.Querier(ctx).Exec(ctx, query, amounts, units, recipeIDs, ingredientIDs, positions); err != nil {
		return apperrors.Write("insert recipe ingredients", err)
	}

	return nil
}

// ListByRecipe returns a recipe's links in insertion order. No links is an
// empty slice, not an error.
func (r *RecipeIngredientRepository) ListByRecipe(ctx context.Context, recipeID uuid.UUID) ([]*models.RecipeIngredient, error) {
	query := `
		SELECT amount, unit, recid, indid, position
		FROM recipe_ingredients
		WHERE recid = $1
		ORDER BY position
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, recipeID)
	if err != nil {
		return nil, apperrors.Read("list recipe ingredients", err)
	}
	defer rows.Close()

	return scanLinks(rows)
}

// DeleteByIngredientID removes every link to the ingredient, whichever recipe owns it
func (r *RecipeIngredientRepository) DeleteByIngredientID(ctx context.Context, ingredientID uuid.UUID) error {
	if _, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM recipe_ingredients WHERE indid = $1`, ingredientID); err != nil {
		return apperrors.Write("delete recipe ingredients", err)
	}
	return nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanLinks(rows rowScanner) ([]*models.RecipeIngredient, error) {
	links := make([]*models.RecipeIngredient, 0)
	for rows.Next() {
		link := &models.RecipeIngredient{}
		var position int32
		if err := rows.Scan(
			&link.Amount,
			&link.Unit,
			&link.RecipeID,
			&link.IngredientID,
			&position,
		); err != nil {
			return nil, apperrors.Read("scan recipe ingredient", err)
		}
		link.Position = int(position)
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Read("list recipe ingredients", err)
	}

	return links, nil
}
