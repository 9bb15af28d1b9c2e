package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/recipes/cmd/recipes/models"
	"github.com/lyzr/recipes/common/cache"
	"github.com/lyzr/recipes/common/logger"
	"github.com/lyzr/recipes/common/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadIsCachedUntilWrite(t *testing.T) {
	c := cache.NewMemoryCache(logger.Discard())
	t.Cleanup(func() { _ = c.Close() })

	f := newFixture(t, withCache(c))
	ctx := context.Background()

	recipe, err := f.svc.Create(ctx, "Pancakes", pancakes)
	require.NoError(t, err)

	lines, err := f.svc.Read(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, pancakes, lines)

	_, found, err := c.Get(ctx, cacheKey(recipe.ID))
	require.NoError(t, err)
	assert.True(t, found)

	// a second read is served from the cache even if the rows vanish underneath
	links, err := f.store.Links.ListByRecipe(ctx, recipe.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.Links.DeleteByIngredientID(ctx, links[0].IngredientID))

	lines, err = f.svc.Read(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, pancakes, lines)

	next := []models.IngredientLine{line("oat milk", 300, "ml")}
	_, err = f.svc.Replace(ctx, recipe.ID, "Vegan pancakes", next, nil)
	require.NoError(t, err)

	_, found, err = c.Get(ctx, cacheKey(recipe.ID))
	require.NoError(t, err)
	assert.False(t, found, "replace invalidates")

	lines, err = f.svc.Read(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, next, lines)

	_, err = f.svc.Delete(ctx, recipe.ID)
	require.NoError(t, err)

	lines, err = f.svc.Read(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Empty(t, lines, "delete invalidates")
}

func TestReadRacingWriteDoesNotCacheOldLines(t *testing.T) {
	writes := []struct {
		name  string
		write func(ctx context.Context, f *fixture, id uuid.UUID) ([]models.IngredientLine, error)
	}{
		{"replace", func(ctx context.Context, f *fixture, id uuid.UUID) ([]models.IngredientLine, error) {
			next := []models.IngredientLine{line("flour", 250, "g")}
			_, err := f.svc.Replace(ctx, id, "Pancakes v2", next, nil)
			return next, err
		}},
		{"delete", func(ctx context.Context, f *fixture, id uuid.UUID) ([]models.IngredientLine, error) {
			_, err := f.svc.Delete(ctx, id)
			return []models.IngredientLine{}, err
		}},
	}

	for _, tt := range writes {
		t.Run(tt.name, func(t *testing.T) {
			bothModes(t, func(t *testing.T, opts ...fixtureOption) {
				c := cache.NewMemoryCache(logger.Discard())
				t.Cleanup(func() { _ = c.Close() })

				f := newFixture(t, append(opts, withCache(c))...)
				ctx := context.Background()

				recipe, err := f.svc.Create(ctx, "Pancakes", pancakes)
				require.NoError(t, err)
				links, err := f.store.Links.ListByRecipe(ctx, recipe.ID)
				require.NoError(t, err)
				last := links[len(links)-1].IngredientID

				// stall the reader once it holds every old row, before it fills the cache
				paused := make(chan struct{})
				release := make(chan struct{})
				var once sync.Once
				f.ingredients.afterGet = func(id uuid.UUID) {
					if id == last {
						once.Do(func() {
							close(paused)
							<-release
						})
					}
				}

				type readResult struct {
					lines []models.IngredientLine
					err   error
				}
				done := make(chan readResult, 1)
				go func() {
					lines, err := f.svc.Read(ctx, recipe.ID)
					done <- readResult{lines, err}
				}()

				select {
				case <-paused:
				case <-time.After(2 * time.Second):
					t.Fatal("reader never reached the stores")
				}

				want, err := tt.write(ctx, f, recipe.ID)
				require.NoError(t, err)
				close(release)

				first := <-done
				require.NoError(t, first.err)
				assert.Equal(t, pancakes, first.lines, "the racing read saw the rows as they were")

				got, err := f.svc.Read(ctx, recipe.ID)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			})
		})
	}
}

func TestFailedReplaceStillInvalidates(t *testing.T) {
	c := cache.NewMemoryCache(logger.Discard())
	t.Cleanup(func() { _ = c.Close() })

	f := newFixture(t, withCache(c))
	ctx := context.Background()

	recipe, err := f.svc.Create(ctx, "Pancakes", pancakes)
	require.NoError(t, err)
	_, err = f.svc.Read(ctx, recipe.ID)
	require.NoError(t, err)

	f.links.failInsert = true
	_, err = f.svc.Replace(ctx, recipe.ID, "Pancakes", pancakes, nil)
	require.Error(t, err)

	lines, err := f.svc.Read(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Empty(t, lines, "reads reflect the partial state, not a stale entry")
}

func TestEventsArePublishedAndRecorded(t *testing.T) {
	q := queue.NewMemoryQueue(logger.Discard())
	t.Cleanup(func() { _ = q.Close() })

	f := newFixture(t, withQueue(q))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []models.RecipeEvent
	require.NoError(t, q.Subscribe(ctx, EventsTopic, func(ctx context.Context, key string, value []byte) error {
		var ev models.RecipeEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			return err
		}
		mu.Lock()
		seen = append(seen, ev)
		mu.Unlock()
		return nil
	}))

	recipe, err := f.svc.Create(ctx, "Pancakes", pancakes)
	require.NoError(t, err)
	_, err = f.svc.Replace(ctx, recipe.ID, "Pancakes v2", pancakes[:1], nil)
	require.NoError(t, err)
	_, err = f.svc.Delete(ctx, recipe.ID)
	require.NoError(t, err)

	// not-found outcomes publish nothing
	_, err = f.svc.Delete(ctx, recipe.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, models.EventRecipeCreated, seen[0].Type)
	assert.Equal(t, 2, seen[0].Lines)
	assert.Equal(t, int64(1), seen[0].Version)
	assert.Equal(t, models.EventRecipeReplaced, seen[1].Type)
	assert.Equal(t, "Pancakes v2", seen[1].Name)
	assert.Equal(t, models.EventRecipeDeleted, seen[2].Type)
	for _, ev := range seen {
		assert.Equal(t, recipe.ID, ev.RecipeID)
	}
}

func TestSubscribeEventsFeedsTelemetry(t *testing.T) {
	q := queue.NewMemoryQueue(logger.Discard())
	t.Cleanup(func() { _ = q.Close() })

	f := newFixture(t, withQueue(q))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.svc.SubscribeEvents(ctx))

	recipe, err := f.svc.Create(ctx, "Pancakes", pancakes)
	require.NoError(t, err)
	_, err = f.svc.Delete(ctx, recipe.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.recorder.eventTypes()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{models.EventRecipeCreated, models.EventRecipeDeleted}, f.recorder.eventTypes())
}

func TestNoQueueIsFine(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.SubscribeEvents(context.Background()))

	_, err := f.svc.Create(context.Background(), "Pancakes", pancakes)
	assert.NoError(t, err)
}
