package service

import (
	"context"
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/lyzr/recipes/cmd/recipes/models"
	"github.com/lyzr/recipes/common/apperrors"
	"github.com/lyzr/recipes/common/validation"
)

var patchValidator = validation.NewPatchValidator()

// Patch applies an RFC 6902 document to {name, ingredients} and replaces the
// recipe with the result. Without an explicit expectedVersion the version
// read here is enforced, so a concurrent replace turns into ErrConflict.
func (s *CompositionService) Patch(ctx context.Context, recipeID uuid.UUID, rawPatch []byte, expectedVersion *int64) (*models.RecipeWithIngredients, error) {
	var ops []map[string]interface{}
	if err := json.Unmarshal(rawPatch, &ops); err != nil {
		return nil, apperrors.Invalid("patch must be a JSON array of operations: %v", err)
	}
	if err := patchValidator.ValidateOperations(ops); err != nil {
		return nil, err
	}

	patch, err := jsonpatch.DecodePatch(rawPatch)
	if err != nil {
		return nil, apperrors.Invalid("decode patch: %v", err)
	}

	current, err := s.Get(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	if expectedVersion != nil && *expectedVersion != current.Version {
		return nil, conflict(recipeID, current.Version, *expectedVersion)
	}
	version := current.Version

	doc, err := json.Marshal(models.RecipeDocument{
		Name:        current.Name,
		Ingredients: current.Ingredients,
	})
	if err != nil {
		return nil, err
	}

	patched, err := patch.Apply(doc)
	if err != nil {
		return nil, apperrors.Invalid("apply patch: %v", err)
	}

	var next models.RecipeDocument
	if err := json.Unmarshal(patched, &next); err != nil {
		return nil, apperrors.Invalid("patched recipe: %v", err)
	}

	status, err := s.Replace(ctx, recipeID, next.Name, next.Ingredients, &version)
	if err != nil {
		return nil, err
	}
	if status == ReplaceNotFound {
		return nil, apperrors.NotFound("recipe", recipeID)
	}

	s.log.WithContext(ctx).Info("patched recipe", "recipe_id", recipeID, "operations", len(ops))

	return s.Get(ctx, recipeID)
}
