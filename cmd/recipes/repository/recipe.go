package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lyzr/recipes/cmd/recipes/models"
	"github.com/lyzr/recipes/common/apperrors"
	"github.com/lyzr/recipes/common/db"
)

// RecipeRepository handles database operations for recipe headers
type RecipeRepository struct {
	db *db.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *db.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// Insert appends one recipe row
func (r *RecipeRepository) Insert(ctx context.Context, recipe *models.Recipe) error {
	query := `
		INSERT INTO recipe (id, rec_name, inserted_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		recipe.ID,
		recipe.Name,
		recipe.CreatedAt,
		recipe.UpdatedAt,
		recipe.Version,
	)
	if err != nil {
		return apperrors.Write("insert recipe", err)
	}

	return nil
}

// List returns every recipe in no particular order
func (r *RecipeRepository) List(ctx context.Context) ([]*models.Recipe, error) {
	query := `SELECT id, rec_name, inserted_at, updated_at, version FROM recipe`

	rows, err := r.db.Querier(ctx).Query(ctx, query)
	if err != nil {
		return nil, apperrors.Read("list recipes", err)
	}
	defer rows.Close()

	recipes := make([]*models.Recipe, 0)
	for rows.Next() {
		recipe := &models.Recipe{}
		if err := rows.Scan(
			&recipe.ID,
			&recipe.Name,
			&recipe.CreatedAt,
			&recipe.UpdatedAt,
			&recipe.Version,
		); err != nil {
			return nil, apperrors.Read("scan recipe", err)
		}
		recipes = append(recipes, recipe)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Read("list recipes", err)
	}

	return recipes, nil
}

// GetByID retrieves one recipe header
func (r *RecipeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	query := `
		SELECT id, rec_name, inserted_at, updated_at, version
		FROM recipe
		WHERE id = $1
	`

	recipe := &models.Recipe{}
	err := r.db.Querier(ctx).QueryRow(ctx, query, id).Scan(
		&recipe.ID,
		&recipe.Name,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
		&recipe.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("recipe", id)
	}
	if err != nil {
		return nil, apperrors.Read("get recipe", err)
	}

	return recipe, nil
}

// ReplaceFields sets name and updated_at and bumps the version. When
// expectedVersion is non-nil the row only matches at that version. Zero
// affected rows is not an error; the caller decides what it means.
func (r *RecipeRepository) ReplaceFields(ctx context.Context, id uuid.UUID, name string, updatedAt time.Time, expectedVersion *int64) (int64, error) {
	query := `
		UPDATE recipe
		SET rec_name = $2, updated_at = $3, version = version + 1
		WHERE id = $1 AND ($4::bigint IS NULL OR version = $4)
	`

	tag, err := r.db.Querier(ctx).Exec(ctx, query, id, name, updatedAt, expectedVersion)
	if err != nil {
		return 0, apperrors.Write("update recipe", err)
	}

	return tag.RowsAffected(), nil
}

// DeleteByID deletes at most one recipe row and reports how many went
func (r *RecipeRepository) DeleteByID(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM recipe WHERE id = $1`, id)
	if err != nil {
		return 0, apperrors.Write("delete recipe", err)
	}

	return tag.RowsAffected(), nil
}
