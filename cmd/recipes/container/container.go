package container

import (
	"fmt"

	"github.com/lyzr/recipes/cmd/recipes/repository"
	"github.com/lyzr/recipes/cmd/recipes/service"
	"github.com/lyzr/recipes/common/bootstrap"
	"github.com/lyzr/recipes/common/ratelimit"
	"github.com/lyzr/recipes/common/validation"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	Components *bootstrap.Components

	// Repositories, backed by Postgres or by MemoryStore
	Recipes     service.RecipeStore
	Ingredients service.IngredientStore
	Links       service.LinkStore
	Integrity   service.IntegrityStore
	Tx          service.TxRunner

	// Services
	CompositionService *service.CompositionService
	IntegrityService   *service.IntegrityService

	// RateLimiter is nil unless rate limiting is enabled
	RateLimiter *ratelimit.RateLimiter
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config
	c := &Container{Components: components}

	switch cfg.Store.Driver {
	case "postgres":
		if components.DB == nil {
			return nil, fmt.Errorf("postgres store selected but no database is connected")
		}
		c.Recipes = repository.NewRecipeRepository(components.DB)
		c.Ingredients = repository.NewIngredientRepository(components.DB)
		c.Links = repository.NewRecipeIngredientRepository(components.DB)
		c.Integrity = repository.NewIntegrityRepository(components.DB)
		c.Tx = components.DB
	case "memory":
		store := repository.NewMemoryStore()
		c.Recipes = store.Recipes
		c.Ingredients = store.Ingredients
		c.Links = store.Links
		c.Integrity = store.Integrity
		c.Tx = store
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}

	rules, err := validation.NewIngredientRules(cfg.Composition.IngredientRules)
	if err != nil {
		return nil, fmt.Errorf("failed to compile ingredient rules: %w", err)
	}

	deps := service.CompositionDeps{
		Recipes:       c.Recipes,
		Ingredients:   c.Ingredients,
		Links:         c.Links,
		Tx:            c.Tx,
		Transactional: cfg.Composition.Transactional,
		Rules:         rules,
		Cache:         components.Cache,
		CacheTTL:      cfg.Composition.CacheTTL,
		Queue:         components.Queue,
		Metrics:       components.Metrics,
		Logger:        components.Logger,
	}
	if components.Telemetry != nil {
		deps.Telemetry = components.Telemetry
	}

	c.CompositionService = service.NewCompositionService(deps)
	c.IntegrityService = service.NewIntegrityService(c.Integrity, c.Ingredients, c.Tx, components.Logger)

	if cfg.RateLimit.Enabled && components.Redis != nil {
		c.RateLimiter = ratelimit.NewRateLimiter(components.Redis.GetUnderlying(), components.Logger)
	}

	components.Logger.Info("service container ready",
		"store", cfg.Store.Driver,
		"transactional", c.CompositionService.Transactional(),
		"ingredient_rules", rules.Exprs(),
		"rate_limit", c.RateLimiter != nil,
	)

	return c, nil
}
