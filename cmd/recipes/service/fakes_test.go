package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/recipes/cmd/recipes/models"
	"github.com/lyzr/recipes/cmd/recipes/repository"
	"github.com/lyzr/recipes/common/apperrors"
	"github.com/lyzr/recipes/common/cache"
	"github.com/lyzr/recipes/common/ids"
	"github.com/lyzr/recipes/common/logger"
	"github.com/lyzr/recipes/common/queue"
	"github.com/lyzr/recipes/common/validation"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected storage fault")

// faultyIngredients fails BulkInsert, or the Nth DeleteByID, on demand.
// afterGet runs after every GetByID so tests can stall a reader.
type faultyIngredients struct {
	IngredientStore
	failInsert   bool
	failDeleteAt int
	deletes      int
	afterGet     func(id uuid.UUID)
}

func (f *faultyIngredients) GetByID(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	ingr, err := f.IngredientStore.GetByID(ctx, id)
	if f.afterGet != nil {
		f.afterGet(id)
	}
	return ingr, err
}

func (f *faultyIngredients) BulkInsert(ctx context.Context, ingredients []*models.Ingredient) error {
	if f.failInsert {
		return apperrors.Write("insert ingredients", errInjected)
	}
	return f.IngredientStore.BulkInsert(ctx, ingredients)
}

func (f *faultyIngredients) DeleteByID(ctx context.Context, id uuid.UUID) error {
	f.deletes++
	if f.failDeleteAt > 0 && f.deletes == f.failDeleteAt {
		return apperrors.Write("delete ingredient", errInjected)
	}
	return f.IngredientStore.DeleteByID(ctx, id)
}

// faultyLinks fails BulkInsert on demand
type faultyLinks struct {
	LinkStore
	failInsert bool
}

func (f *faultyLinks) BulkInsert(ctx context.Context, links []*models.RecipeIngredient) error {
	if f.failInsert {
		return apperrors.Write("insert recipe ingredients", errInjected)
	}
	return f.LinkStore.BulkInsert(ctx, links)
}

type recordedEvent struct {
	event string
	attrs map[string]any
}

// fakeRecorder captures telemetry calls
type fakeRecorder struct {
	mu        sync.Mutex
	durations []string
	events    []recordedEvent
}

func (r *fakeRecorder) RecordDuration(operation, result string, start time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations = append(r.durations, operation+":"+result)
}

func (r *fakeRecorder) RecordEvent(event string, attrs map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event, attrs})
}

func (r *fakeRecorder) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.event
	}
	return types
}

type fixture struct {
	svc         *CompositionService
	store       *repository.MemoryStore
	ingredients *faultyIngredients
	links       *faultyLinks
	cache       *cache.MemoryCache
	queue       *queue.MemoryQueue
	recorder    *fakeRecorder
}

type fixtureOption func(*CompositionDeps)

func transactional(d *CompositionDeps) { d.Transactional = true }

func withCache(c *cache.MemoryCache) fixtureOption {
	return func(d *CompositionDeps) { d.Cache = c }
}

func withQueue(q *queue.MemoryQueue) fixtureOption {
	return func(d *CompositionDeps) { d.Queue = q }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	f := &fixture{
		store:       store,
		ingredients: &faultyIngredients{IngredientStore: store.Ingredients},
		links:       &faultyLinks{LinkStore: store.Links},
		recorder:    &fakeRecorder{},
	}

	rules, err := validation.NewIngredientRules(nil)
	require.NoError(t, err)

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	deps := CompositionDeps{
		Recipes:     store.Recipes,
		Ingredients: f.ingredients,
		Links:       f.links,
		Tx:          store,
		IDs:         &ids.Sequence{},
		Rules:       rules,
		Telemetry:   f.recorder,
		Logger:      logger.Discard(),
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	if c, ok := deps.Cache.(*cache.MemoryCache); ok {
		f.cache = c
	}
	if q, ok := deps.Queue.(*queue.MemoryQueue); ok {
		f.queue = q
	}

	f.svc = NewCompositionService(deps)
	return f
}

func (f *fixture) counts() [3]int {
	r, i, l := f.store.Counts()
	return [3]int{r, i, l}
}
