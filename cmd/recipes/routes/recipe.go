package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/recipes/cmd/recipes/container"
	"github.com/lyzr/recipes/cmd/recipes/handlers"
	"github.com/lyzr/recipes/common/middleware"
)

// RegisterRecipeRoutes registers all recipe and ingredient routes
func RegisterRecipeRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewRecipeHandler(c)

	api := e.Group("/api/v1")
	if c.RateLimiter != nil {
		limits := c.Components.Config.RateLimit
		api.Use(middleware.GlobalRateLimitMiddleware(c.RateLimiter, limits.Global))
		api.Use(middleware.ClientRateLimitMiddleware(c.RateLimiter, limits.PerClient))
	}

	recipes := api.Group("/recipes")
	{
		recipes.POST("", h.CreateRecipe)                  // POST /api/v1/recipes
		recipes.GET("", h.ListRecipes)                    // GET /api/v1/recipes
		recipes.GET("/:id", h.GetRecipe)                  // GET /api/v1/recipes/{id}
		recipes.GET("/:id/ingredients", h.GetIngredients) // GET /api/v1/recipes/{id}/ingredients
		recipes.PUT("/:id", h.ReplaceRecipe)              // PUT /api/v1/recipes/{id}
		recipes.PATCH("/:id", h.PatchRecipe)              // PATCH /api/v1/recipes/{id}
		recipes.DELETE("/:id", h.DeleteRecipe)            // DELETE /api/v1/recipes/{id}
	}

	api.POST("/ingredients", h.GetIngredient) // POST /api/v1/ingredients {"id": ...}
}

// RegisterHealthRoutes registers the health check endpoint
func RegisterHealthRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewHealthHandler(c.Components)
	e.GET("/health", h.Health)
}
