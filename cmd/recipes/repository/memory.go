package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/recipes/cmd/recipes/models"
	"github.com/lyzr/recipes/common/apperrors"
)

type linkKey struct {
	recipeID     uuid.UUID
	ingredientID uuid.UUID
}

type memoryState struct {
	recipes     map[uuid.UUID]models.Recipe
	ingredients map[uuid.UUID]models.Ingredient
	links       map[linkKey]models.RecipeIngredient
}

func (s memoryState) clone() memoryState {
	c := memoryState{
		recipes:     make(map[uuid.UUID]models.Recipe, len(s.recipes)),
		ingredients: make(map[uuid.UUID]models.Ingredient, len(s.ingredients)),
		links:       make(map[linkKey]models.RecipeIngredient, len(s.links)),
	}
	for k, v := range s.recipes {
		c.recipes[k] = v
	}
	for k, v := range s.ingredients {
		c.ingredients[k] = v
	}
	for k, v := range s.links {
		c.links[k] = v
	}
	return c
}

// MemoryStore keeps the three relations in process. It backs STORE_DRIVER=memory
// and the service tests. Transactions are serialized and roll back by
// restoring a snapshot.
type MemoryStore struct {
	mu    sync.RWMutex
	state memoryState

	txMu sync.Mutex

	Recipes     *MemoryRecipeRepository
	Ingredients *MemoryIngredientRepository
	Links       *MemoryRecipeIngredientRepository
	Integrity   *MemoryIntegrityRepository
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		state: memoryState{
			recipes:     make(map[uuid.UUID]models.Recipe),
			ingredients: make(map[uuid.UUID]models.Ingredient),
			links:       make(map[linkKey]models.RecipeIngredient),
		},
	}
	s.Recipes = &MemoryRecipeRepository{s: s}
	s.Ingredients = &MemoryIngredientRepository{s: s}
	s.Links = &MemoryRecipeIngredientRepository{s: s}
	s.Integrity = &MemoryIntegrityRepository{s: s}
	return s
}

type memoryTxKey struct{}

// WithinTx runs fn and restores the pre-call state if it fails or panics.
// Nested calls join the outer transaction.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(memoryTxKey{}) == s {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	committed := false
	defer func() {
		if !committed {
			s.mu.Lock()
			s.state = snapshot
			s.mu.Unlock()
		}
	}()

	if err := fn(context.WithValue(ctx, memoryTxKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

// Counts reports row counts per relation
func (s *MemoryStore) Counts() (recipes, ingredients, links int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.recipes), len(s.state.ingredients), len(s.state.links)
}

// MemoryRecipeRepository is the in-memory recipe header store
type MemoryRecipeRepository struct {
	s *MemoryStore
}

// Insert appends one recipe row
func (r *MemoryRecipeRepository) Insert(ctx context.Context, recipe *models.Recipe) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.state.recipes[recipe.ID]; exists {
		return apperrors.Write("insert recipe", errDuplicateKey)
	}
	r.s.state.recipes[recipe.ID] = *recipe
	return nil
}

// List returns every recipe in no particular order
func (r *MemoryRecipeRepository) List(ctx context.Context) ([]*models.Recipe, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recipes := make([]*models.Recipe, 0, len(r.s.state.recipes))
	for _, recipe := range r.s.state.recipes {
		recipe := recipe
		recipes = append(recipes, &recipe)
	}
	return recipes, nil
}

// GetByID retrieves one recipe header
func (r *MemoryRecipeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recipe, ok := r.s.state.recipes[id]
	if !ok {
		return nil, apperrors.NotFound("recipe", id)
	}
	return &recipe, nil
}

// ReplaceFields sets name and updated time and bumps the version
func (r *MemoryRecipeRepository) ReplaceFields(ctx context.Context, id uuid.UUID, name string, updatedAt time.Time, expectedVersion *int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	recipe, ok := r.s.state.recipes[id]
	if !ok || (expectedVersion != nil && recipe.Version != *expectedVersion) {
		return 0, nil
	}
	recipe.Name = name
	recipe.UpdatedAt = updatedAt
	recipe.Version++
	r.s.state.recipes[id] = recipe
	return 1, nil
}

// DeleteByID deletes at most one recipe row
func (r *MemoryRecipeRepository) DeleteByID(ctx context.Context, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.state.recipes[id]; !ok {
		return 0, nil
	}
	delete(r.s.state.recipes, id)
	return 1, nil
}

// MemoryIngredientRepository is the in-memory ingredient definition store
type MemoryIngredientRepository struct {
	s *MemoryStore
}

// BulkInsert writes all ingredients or none
func (r *MemoryIngredientRepository) BulkInsert(ctx context.Context, ingredients []*models.Ingredient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := make(map[uuid.UUID]bool, len(ingredients))
	for _, ingr := range ingredients {
		if _, exists := r.s.state.ingredients[ingr.ID]; exists || seen[ingr.ID] {
			return apperrors.Write("insert ingredients", errDuplicateKey)
		}
		seen[ingr.ID] = true
	}
	for _, ingr := range ingredients {
		r.s.state.ingredients[ingr.ID] = *ingr
	}
	return nil
}

// GetByID retrieves one ingredient definition
func (r *MemoryIngredientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ingr, ok := r.s.state.ingredients[id]
	if !ok {
		return nil, apperrors.NotFound("ingredient", id)
	}
	return &ingr, nil
}

// DeleteByID removes one ingredient definition
func (r *MemoryIngredientRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.state.ingredients, id)
	return nil
}

// MemoryRecipeIngredientRepository is the in-memory link store
type MemoryRecipeIngredientRepository struct {
	s *MemoryStore
}

// BulkInsert writes all links or none
func (r *MemoryRecipeIngredientRepository) BulkInsert(ctx context.Context, links []*models.RecipeIngredient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := make(map[linkKey]bool, len(links))
	for _, link := range links {
		key := linkKey{link.RecipeID, link.IngredientID}
		if _, exists := r.s.state.links[key]; exists || seen[key] {
			return apperrors.Write("insert recipe ingredients", errDuplicateKey)
		}
		seen[key] = true
	}
	for _, link := range links {
		r.s.state.links[linkKey{link.RecipeID, link.IngredientID}] = *link
	}
	return nil
}

// ListByRecipe returns a recipe's links ordered by position
func (r *MemoryRecipeIngredientRepository) ListByRecipe(ctx context.Context, recipeID uuid.UUID) ([]*models.RecipeIngredient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	links := make([]*models.RecipeIngredient, 0)
	for key, link := range r.s.state.links {
		if key.recipeID == recipeID {
			link := link
			links = append(links, &link)
		}
	}
	sortLinks(links)
	return links, nil
}

// DeleteByIngredientID removes every link to the ingredient
func (r *MemoryRecipeIngredientRepository) DeleteByIngredientID(ctx context.Context, ingredientID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for key := range r.s.state.links {
		if key.ingredientID == ingredientID {
			delete(r.s.state.links, key)
		}
	}
	return nil
}

// MemoryIntegrityRepository scans the in-memory relations for invariant breaks
type MemoryIntegrityRepository struct {
	s *MemoryStore
}

// OrphanIngredients lists ingredient rows no link references
func (r *MemoryIntegrityRepository) OrphanIngredients(ctx context.Context) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	referenced := make(map[uuid.UUID]bool, len(r.s.state.links))
	for key := range r.s.state.links {
		referenced[key.ingredientID] = true
	}

	ids := make([]uuid.UUID, 0)
	for id := range r.s.state.ingredients {
		if !referenced[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// DanglingLinks lists links whose recipe or ingredient row is missing
func (r *MemoryIntegrityRepository) DanglingLinks(ctx context.Context) ([]*models.RecipeIngredient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	links := make([]*models.RecipeIngredient, 0)
	for key, link := range r.s.state.links {
		_, hasRecipe := r.s.state.recipes[key.recipeID]
		_, hasIngredient := r.s.state.ingredients[key.ingredientID]
		if !hasRecipe || !hasIngredient {
			link := link
			links = append(links, &link)
		}
	}
	sortLinks(links)
	return links, nil
}

// DeleteLink removes one link by its natural key
func (r *MemoryIntegrityRepository) DeleteLink(ctx context.Context, recipeID, ingredientID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.state.links, linkKey{recipeID, ingredientID})
	return nil
}

func sortLinks(links []*models.RecipeIngredient) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].RecipeID != links[j].RecipeID {
			return links[i].RecipeID.String() < links[j].RecipeID.String()
		}
		return links[i].Position < links[j].Position
	})
}
