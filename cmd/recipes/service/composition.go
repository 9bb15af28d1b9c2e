package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/recipes/cmd/recipes/models"
	"github.com/lyzr/recipes/common/apperrors"
	"github.com/lyzr/recipes/common/cache"
	"github.com/lyzr/recipes/common/ids"
	"github.com/lyzr/recipes/common/logger"
	"github.com/lyzr/recipes/common/metrics"
	"github.com/lyzr/recipes/common/queue"
)

// EventsTopic carries models.RecipeEvent messages keyed by recipe id
const EventsTopic = "recipe.events"

// ReplaceStatus is the outcome of a Replace that did not fail
type ReplaceStatus string

const (
	Replaced        ReplaceStatus = "replaced"
	ReplaceNotFound ReplaceStatus = "not_found"
)

// DeleteStatus is the outcome of a Delete that did not fail
type DeleteStatus string

const (
	Deleted        DeleteStatus = "deleted"
	DeleteNotFound DeleteStatus = "not_found"
)

// CompositionDeps wires a CompositionService. Recipes, Ingredients, Links and
// Logger are required; everything else is optional.
type CompositionDeps struct {
	Recipes     RecipeStore
	Ingredients IngredientStore
	Links       LinkStore

	// Tx is used for Create, Replace and Delete when Transactional is set
	Tx            TxRunner
	Transactional bool

	IDs       ids.Generator
	Rules     IngredientValidator
	Cache     cache.Cache
	CacheTTL  time.Duration
	Queue     queue.Queue
	Telemetry Recorder
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
	Now       func() time.Time
}

// CompositionService keeps recipes, ingredient definitions and links
// consistent. Every write replaces a recipe's ingredient set wholesale:
// fresh definition rows are bulk inserted, then the links pairing them with
// the recipe, and removal deletes each link by ingredient id followed by the
// definition row.
//
// Without a transaction each statement commits on its own and the first
// fault abandons the remaining steps, leaving what already ran in place.
type CompositionService struct {
	recipes     RecipeStore
	ingredients IngredientStore
	links       LinkStore
	tx          TxRunner
	ids         ids.Generator
	rules       IngredientValidator
	cache       cache.Cache
	cacheTTL    time.Duration
	queue       queue.Queue
	telemetry   Recorder
	metrics     *metrics.Metrics
	log         *logger.Logger
	now         func() time.Time

	guard cacheGuard
}

// cacheGuard orders cache fills against invalidations. Each stripe counts the
// invalidations of the recipes hashed to it; a fill only lands if the count
// has not moved since its read began.
type cacheGuard struct {
	stripes [64]cacheStripe
}

type cacheStripe struct {
	mu  sync.Mutex
	gen uint64
}

func (g *cacheGuard) stripe(recipeID uuid.UUID) *cacheStripe {
	return &g.stripes[int(recipeID[15])%len(g.stripes)]
}

// NewCompositionService creates a composition service
func NewCompositionService(deps CompositionDeps) *CompositionService {
	s := &CompositionService{
		recipes:     deps.Recipes,
		ingredients: deps.Ingredients,
		links:       deps.Links,
		ids:         deps.IDs,
		rules:       deps.Rules,
		cache:       deps.Cache,
		cacheTTL:    deps.CacheTTL,
		queue:       deps.Queue,
		telemetry:   deps.Telemetry,
		metrics:     deps.Metrics,
		log:         deps.Logger,
		now:         deps.Now,
	}
	if deps.Transactional {
		s.tx = deps.Tx
	}
	if s.ids == nil {
		s.ids = ids.Random{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = 5 * time.Minute
	}
	return s
}

// Transactional reports whether writes run inside one transaction
func (s *CompositionService) Transactional() bool {
	return s.tx != nil
}

// Create inserts the recipe header, then one fresh definition per line, then
// the links pairing them by position. An error means the recipe may be
// partially persisted when the service is not transactional.
func (s *CompositionService) Create(ctx context.Context, name string, lines []models.IngredientLine) (recipe *models.Recipe, err error) {
	start := time.Now()
	defer func() { s.record("create", start, err) }()

	if err := s.validate(lines); err != nil {
		return nil, err
	}

	now := s.now()
	recipe = &models.Recipe{
		ID:        s.ids.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}

	err = s.atomically(ctx, func(ctx context.Context) error {
		if err := s.recipes.Insert(ctx, recipe); err != nil {
			return err
		}
		return s.insertIngredients(ctx, recipe.ID, lines)
	})
	if err != nil {
		s.log.WithContext(ctx).Error("failed to create recipe", "recipe_id", recipe.ID, "error", err)
		return nil, err
	}

	s.invalidate(ctx, recipe.ID)
	s.publish(ctx, models.RecipeEvent{
		Type:     models.EventRecipeCreated,
		RecipeID: recipe.ID,
		Name:     recipe.Name,
		Version:  recipe.Version,
		Lines:    len(lines),
	})

	s.log.WithContext(ctx).Info("created recipe",
		"recipe_id", recipe.ID,
		"name", recipe.Name,
		"ingredients", len(lines),
	)

	return recipe, nil
}

// Read resolves a recipe's links into ingredient lines in the order they were
// written. An unknown recipe yields an empty slice. A link whose definition
// row is missing is an integrity fault and fails with apperrors.ErrNotFound.
func (s *CompositionService) Read(ctx context.Context, recipeID uuid.UUID) (lines []models.IngredientLine, err error) {
	start := time.Now()
	defer func() { s.record("read", start, err) }()

	if lines, ok := s.cached(ctx, recipeID); ok {
		return lines, nil
	}
	gen := s.generation(recipeID)

	links, err := s.links.ListByRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	lines = make([]models.IngredientLine, 0, len(links))
	for _, link := range links {
		ingr, err := s.ingredients.GetByID(ctx, link.IngredientID)
		if err != nil {
			s.log.WithContext(ctx).Error("link references missing ingredient",
				"recipe_id", recipeID,
				"ingredient_id", link.IngredientID,
				"error", err,
			)
			return nil, err
		}
		lines = append(lines, models.IngredientLine{
			Name:   ingr.Name,
			Amount: link.Amount,
			Unit:   link.Unit,
		})
	}

	s.store(ctx, recipeID, lines, gen)
	return lines, nil
}

// Replace rewrites the header and swaps the whole ingredient set. With a
// non-nil expectedVersion the header must still be at that version, otherwise
// apperrors.ErrConflict is returned before anything is written. An unknown id
// returns ReplaceNotFound and leaves the ingredient rows alone.
func (s *CompositionService) Replace(ctx context.Context, recipeID uuid.UUID, name string, lines []models.IngredientLine, expectedVersion *int64) (status ReplaceStatus, err error) {
	start := time.Now()
	defer func() { s.record("replace", start, err) }()

	if err := s.validate(lines); err != nil {
		return "", err
	}

	defer s.invalidate(ctx, recipeID)

	err = s.atomically(ctx, func(ctx context.Context) error {
		n, err := s.recipes.ReplaceFields(ctx, recipeID, name, s.now(), expectedVersion)
		if err != nil {
			return err
		}
		if n == 0 {
			if expectedVersion == nil {
				status = ReplaceNotFound
				return nil
			}
			return s.missingOrConflict(ctx, recipeID, *expectedVersion, &status)
		}

		if err := s.removeIngredients(ctx, recipeID); err != nil {
			return err
		}
		if err := s.insertIngredients(ctx, recipeID, lines); err != nil {
			return err
		}

		status = Replaced
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrConflict) {
			s.log.WithContext(ctx).Error("failed to replace recipe", "recipe_id", recipeID, "error", err)
		}
		return "", err
	}

	if status == Replaced {
		s.publish(ctx, models.RecipeEvent{
			Type:     models.EventRecipeReplaced,
			RecipeID: recipeID,
			Name:     name,
			Lines:    len(lines),
		})
		s.log.WithContext(ctx).Info("replaced recipe", "recipe_id", recipeID, "ingredients", len(lines))
	}

	return status, nil
}

// missingOrConflict tells an unknown recipe apart from a stale version
func (s *CompositionService) missingOrConflict(ctx context.Context, recipeID uuid.UUID, expected int64, status *ReplaceStatus) error {
	current, err := s.recipes.GetByID(ctx, recipeID)
	if errors.Is(err, apperrors.ErrNotFound) {
		*status = ReplaceNotFound
		return nil
	}
	if err != nil {
		return err
	}
	return conflict(recipeID, current.Version, expected)
}

func conflict(recipeID uuid.UUID, current, expected int64) error {
	return fmt.Errorf("recipe %s is at version %d, expected %d: %w",
		recipeID, current, expected, apperrors.ErrConflict)
}

// Delete removes the recipe's ingredients, then its header
func (s *CompositionService) Delete(ctx context.Context, recipeID uuid.UUID) (status DeleteStatus, err error) {
	start := time.Now()
	defer func() { s.record("delete", start, err) }()

	defer s.invalidate(ctx, recipeID)

	err = s.atomically(ctx, func(ctx context.Context) error {
		if err := s.removeIngredients(ctx, recipeID); err != nil {
			return err
		}

		n, err := s.recipes.DeleteByID(ctx, recipeID)
		if err != nil {
			return err
		}

		status = DeleteNotFound
		if n > 0 {
			status = Deleted
		}
		return nil
	})
	if err != nil {
		s.log.WithContext(ctx).Error("failed to delete recipe", "recipe_id", recipeID, "error", err)
		return "", err
	}

	if status == Deleted {
		s.publish(ctx, models.RecipeEvent{Type: models.EventRecipeDeleted, RecipeID: recipeID})
		s.log.WithContext(ctx).Info("deleted recipe", "recipe_id", recipeID)
	}

	return status, nil
}

// ListAll returns every recipe header in no particular order
func (s *CompositionService) ListAll(ctx context.Context) (recipes []*models.Recipe, err error) {
	start := time.Now()
	defer func() { s.record("list", start, err) }()

	return s.recipes.List(ctx)
}

// Get returns the header together with its ingredient lines
func (s *CompositionService) Get(ctx context.Context, recipeID uuid.UUID) (*models.RecipeWithIngredients, error) {
	recipe, err := s.recipes.GetByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	lines, err := s.Read(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	return &models.RecipeWithIngredients{Recipe: recipe, Ingredients: lines}, nil
}

// Ingredient looks up one ingredient definition
func (s *CompositionService) Ingredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	return s.ingredients.GetByID(ctx, id)
}

func (s *CompositionService) validate(lines []models.IngredientLine) error {
	if s.rules == nil {
		return nil
	}
	for i, line := range lines {
		if err := s.rules.Validate(line.Name, line.Amount, line.Unit); err != nil {
			return fmt.Errorf("ingredient %d: %w", i, err)
		}
	}
	return nil
}

// insertIngredients writes one fresh definition per line in one statement,
// then the links in one statement. Link i pairs with definition i.
func (s *CompositionService) insertIngredients(ctx context.Context, recipeID uuid.UUID, lines []models.IngredientLine) error {
	ingredients := make([]*models.Ingredient, len(lines))
	links := make([]*models.RecipeIngredient, len(lines))

	for i, line := range lines {
		ingredients[i] = &models.Ingredient{ID: s.ids.New(), Name: line.Name}
		links[i] = &models.RecipeIngredient{
			Amount:       line.Amount,
			Unit:         line.Unit,
			RecipeID:     recipeID,
			IngredientID: ingredients[i].ID,
			Position:     i,
		}
	}

	if err := s.ingredients.BulkInsert(ctx, ingredients); err != nil {
		return err
	}
	return s.links.BulkInsert(ctx, links)
}

// removeIngredients runs one delete pair per current link: every link to the
// ingredient id, then the definition row.
func (s *CompositionService) removeIngredients(ctx context.Context, recipeID uuid.UUID) error {
	links, err := s.links.ListByRecipe(ctx, recipeID)
	if err != nil {
		return err
	}

	for _, link := range links {
		if err := s.links.DeleteByIngredientID(ctx, link.IngredientID); err != nil {
			return err
		}
		if err := s.ingredients.DeleteByID(ctx, link.IngredientID); err != nil {
			return err
		}
	}

	return nil
}

func (s *CompositionService) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithinTx(ctx, fn)
}

func (s *CompositionService) record(operation string, start time.Time, err error) {
	result := resultOf(err)
	if s.telemetry != nil {
		s.telemetry.RecordDuration(operation, result, start)
		return
	}
	s.metrics.ObserveOperation(operation, result, time.Since(start))
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrInvalid):
		return "invalid"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func cacheKey(recipeID uuid.UUID) string {
	return "recipe:" + recipeID.String() + ":ingredients"
}

func (s *CompositionService) cached(ctx context.Context, recipeID uuid.UUID) ([]models.IngredientLine, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, found, err := s.cache.Get(ctx, cacheKey(recipeID))
	if err != nil {
		s.log.WithContext(ctx).Warn("ingredient cache read failed", "recipe_id", recipeID, "error", err)
		return nil, false
	}
	s.metrics.CacheLookup(found)
	if !found {
		return nil, false
	}

	var lines []models.IngredientLine
	if err := json.Unmarshal(data, &lines); err != nil {
		s.log.WithContext(ctx).Warn("discarding corrupt cache entry", "recipe_id", recipeID, "error", err)
		return nil, false
	}
	return lines, true
}

// generation snapshots the invalidation count before a read hits the stores
func (s *CompositionService) generation(recipeID uuid.UUID) uint64 {
	st := s.guard.stripe(recipeID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.gen
}

// store caches lines read at generation gen. A write that finished in the
// meantime may have changed the rows, so the fill is dropped.
func (s *CompositionService) store(ctx context.Context, recipeID uuid.UUID, lines []models.IngredientLine, gen uint64) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(lines)
	if err != nil {
		return
	}

	st := s.guard.stripe(recipeID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.gen != gen {
		s.log.WithContext(ctx).Debug("skipping cache fill after concurrent write", "recipe_id", recipeID)
		return
	}
	if err := s.cache.Set(ctx, cacheKey(recipeID), data, s.cacheTTL); err != nil {
		s.log.WithContext(ctx).Warn("ingredient cache write failed", "recipe_id", recipeID, "error", err)
	}
}

func (s *CompositionService) invalidate(ctx context.Context, recipeID uuid.UUID) {
	if s.cache == nil {
		return
	}

	st := s.guard.stripe(recipeID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.gen++
	if err := s.cache.Delete(context.WithoutCancel(ctx), cacheKey(recipeID)); err != nil {
		s.log.WithContext(ctx).Warn("ingredient cache invalidation failed", "recipe_id", recipeID, "error", err)
	}
}
