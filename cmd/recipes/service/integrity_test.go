package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/recipes/cmd/recipes/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrityRepairAfterPartialFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	integrity := NewIntegrityService(f.store.Integrity, f.store.Ingredients, f.store, f.svc.log)

	healthy, err := f.svc.Create(ctx, "Healthy", pancakes)
	require.NoError(t, err)

	report, err := integrity.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())

	// link insert fails: two orphaned definitions
	f.links.failInsert = true
	_, err = f.svc.Create(ctx, "Broken", pancakes)
	require.Error(t, err)
	f.links.failInsert = false

	// a link to a recipe that no longer exists, with its definition
	ghost := &models.Ingredient{ID: uuid.New(), Name: "ghost"}
	require.NoError(t, f.store.Ingredients.BulkInsert(ctx, []*models.Ingredient{ghost}))
	require.NoError(t, f.store.Links.BulkInsert(ctx, []*models.RecipeIngredient{
		{Amount: 1, Unit: "g", RecipeID: uuid.New(), IngredientID: ghost.ID},
	}))

	report, err = integrity.Check(ctx)
	require.NoError(t, err)
	assert.Len(t, report.OrphanIngredients, 2)
	assert.Len(t, report.DanglingLinks, 1)

	repaired, err := integrity.Repair(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, repaired.DanglingLinks, 1)
	assert.Len(t, repaired.OrphanIngredients, 3, "the ghost definition is orphaned once its link goes")

	report, err = integrity.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())

	lines, err := f.svc.Read(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, pancakes, lines)
}

func TestRepairKeepsDefinitionsLinkedWhileSettling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	integrity := NewIntegrityService(f.store.Integrity, f.store.Ingredients, f.store, f.svc.log)

	recipe, err := f.svc.Create(ctx, "Pancakes", pancakes)
	require.NoError(t, err)

	// stale is left over from an old failure; pending belongs to a Create
	// that has inserted its definitions but not its links yet
	stale := &models.Ingredient{ID: uuid.New(), Name: "stale"}
	pending := &models.Ingredient{ID: uuid.New(), Name: "sugar"}
	require.NoError(t, f.store.Ingredients.BulkInsert(ctx, []*models.Ingredient{stale, pending}))

	late := &models.Ingredient{ID: uuid.New(), Name: "late"}
	integrity.sleep = func(ctx context.Context, d time.Duration) error {
		assert.Equal(t, time.Second, d)
		require.NoError(t, f.store.Links.BulkInsert(ctx, []*models.RecipeIngredient{
			{Amount: 1, Unit: "tbsp", RecipeID: recipe.ID, IngredientID: pending.ID, Position: 2},
		}))
		require.NoError(t, f.store.Ingredients.BulkInsert(ctx, []*models.Ingredient{late}))
		return nil
	}

	repaired, err := integrity.Repair(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{stale.ID}, repaired.OrphanIngredients)
	assert.Empty(t, repaired.DanglingLinks)

	report, err := integrity.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{late.ID}, report.OrphanIngredients, "rows that appeared during the window are left for the next run")

	lines, err := f.svc.Read(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, append(append([]models.IngredientLine{}, pancakes...), line("sugar", 1, "tbsp")), lines)
}

func TestRepairSettleHonoursCancellation(t *testing.T) {
	f := newFixture(t)
	integrity := NewIntegrityService(f.store.Integrity, f.store.Ingredients, f.store, f.svc.log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := integrity.Repair(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
