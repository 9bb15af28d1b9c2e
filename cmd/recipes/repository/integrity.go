package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lyzr/recipes/cmd/recipes/models"
	"github.com/lyzr/recipes/common/apperrors"
	"github.com/lyzr/recipes/common/db"
)

// IntegrityRepository finds and removes rows that break the composition
// invariants, which only a failed non-transactional write can leave behind
type IntegrityRepository struct {
	db *db.DB
}

// NewIntegrityRepository creates a new integrity repository
func NewIntegrityRepository(db *db.DB) *IntegrityRepository {
	return &IntegrityRepository{db: db}
}

// OrphanIngredients lists ingredient rows no link references
func (r *IntegrityRepository) OrphanIngredients(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT i.id
		FROM ingredient i
		WHERE NOT EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.indid = i.id)
		ORDER BY i.id
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query)
	if err != nil {
		return nil, apperrors.Read("list orphan ingredients", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Read("scan orphan ingredient", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Read("list orphan ingredients", err)
	}

	return ids, nil
}

// DanglingLinks lists links whose recipe or ingredient row is missing
func (r *IntegrityRepository) DanglingLinks(ctx context.Context) ([]*models.RecipeIngredient, error) {
	query := `
		SELECT ri.amount, ri.unit, ri.recid, ri.indid, ri.position
		FROM recipe_ingredients ri
		WHERE NOT EXISTS (SELECT 1 FROM recipe r WHERE r.id = ri.recid)
		   OR NOT EXISTS (SELECT 1 FROM ingredient i WHERE i.id = ri.indid)
		ORDER BY ri.recid, ri.position
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query)
	if err != nil {
		return nil, apperrors.Read("list dangling links", err)
	}
	defer rows.Close()

	return scanLinks(rows)
}

// DeleteLink removes one link by its natural key
func (r *IntegrityRepository) DeleteLink(ctx context.Context, recipeID, ingredientID uuid.UUID) error {
	query := `DELETE FROM recipe_ingredients WHERE recid = $1 AND indid = $2`
	if _, err := r.db.Querier(ctx).Exec(ctx, query, recipeID, ingredientID); err != nil {
		return apperrors.Write("delete link", err)
	}
	return nil
}
