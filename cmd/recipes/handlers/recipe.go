package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/lyzr/recipes/cmd/recipes/container"
	"github.com/lyzr/recipes/cmd/recipes/models"
	"github.com/lyzr/recipes/cmd/recipes/service"
	"github.com/lyzr/recipes/common/apperrors"
)

// RecipeHandler handles recipe requests
type RecipeHandler struct {
	container *container.Container
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(c *container.Container) *RecipeHandler {
	return &RecipeHandler{container: c}
}

// CreateRecipe creates a recipe with its ingredients
// POST /api/v1/recipes
func (h *RecipeHandler) CreateRecipe(c echo.Context) error {
	var req models.RecipeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	recipe, err := h.container.CompositionService.Create(c.Request().Context(), req.Name, req.Ingredients)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusCreated, recipe)
}

// ListRecipes lists every recipe header
// GET /api/v1/recipes
func (h *RecipeHandler) ListRecipes(c echo.Context) error {
	recipes, err := h.container.CompositionService.ListAll(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, recipes)
}

// GetRecipe returns a recipe with its ingredients
// GET /api/v1/recipes/:id
func (h *RecipeHandler) GetRecipe(c echo.Context) error {
	id, err := recipeID(c)
	if err != nil {
		return err
	}

	recipe, err := h.container.CompositionService.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}

	c.Response().Header().Set("ETag", strconv.FormatInt(recipe.Version, 10))
	return c.JSON(http.StatusOK, recipe)
}

// GetIngredients returns the ingredient lines of a recipe, empty for an unknown id
// GET /api/v1/recipes/:id/ingredients
func (h *RecipeHandler) GetIngredients(c echo.Context) error {
	id, err := recipeID(c)
	if err != nil {
		return err
	}

	lines, err := h.container.CompositionService.Read(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, lines)
}

// ReplaceRecipe replaces name and ingredient set
// PUT /api/v1/recipes/:id  (optional If-Match: <version>)
func (h *RecipeHandler) ReplaceRecipe(c echo.Context) error {
	id, err := recipeID(c)
	if err != nil {
		return err
	}

	version, err := ifMatch(c)
	if err != nil {
		return err
	}

	var req models.RecipeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	ctx := c.Request().Context()
	status, err := h.container.CompositionService.Replace(ctx, id, req.Name, req.Ingredients, version)
	if err != nil {
		return h.fail(c, err)
	}
	if status == service.ReplaceNotFound {
		return notFound(c, id)
	}

	recipe, err := h.container.CompositionService.Get(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}

	c.Response().Header().Set("ETag", strconv.FormatInt(recipe.Version, 10))
	return c.JSON(http.StatusOK, recipe)
}

// PatchRecipe applies a JSON Patch to {name, ingredients}
// PATCH /api/v1/recipes/:id  (optional If-Match: <version>)
func (h *RecipeHandler) PatchRecipe(c echo.Context) error {
	id, err := recipeID(c)
	if err != nil {
		return err
	}

	version, err := ifMatch(c)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	recipe, err := h.container.CompositionService.Patch(c.Request().Context(), id, body, version)
	if err != nil {
		return h.fail(c, err)
	}

	c.Response().Header().Set("ETag", strconv.FormatInt(recipe.Version, 10))
	return c.JSON(http.StatusOK, recipe)
}

// DeleteRecipe deletes a recipe and its ingredients
// DELETE /api/v1/recipes/:id
func (h *RecipeHandler) DeleteRecipe(c echo.Context) error {
	id, err := recipeID(c)
	if err != nil {
		return err
	}

	status, err := h.container.CompositionService.Delete(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	if status == service.DeleteNotFound {
		return notFound(c, id)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":     id,
		"status": string(status),
	})
}

// GetIngredient looks up one ingredient definition by id
// POST /api/v1/ingredients  {"id": "..."}
func (h *RecipeHandler) GetIngredient(c echo.Context) error {
	var req models.IngredientLookupRequest
	if err := c.Bind(&req); err != nil || req.ID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "id is required",
		})
	}

	ingr, err := h.container.CompositionService.Ingredient(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, ingr)
}

func recipeID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid recipe id format")
	}
	return id, nil
}

// ifMatch parses an optional If-Match header holding a recipe version
func ifMatch(c echo.Context) (*int64, error) {
	raw := strings.Trim(strings.TrimPrefix(c.Request().Header.Get("If-Match"), "W/"), `"`)
	if raw == "" {
		return nil, nil
	}

	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "If-Match must be a recipe version")
	}
	return &version, nil
}

func notFound(c echo.Context, id uuid.UUID) error {
	return c.JSON(http.StatusNotFound, map[string]interface{}{
		"error": "recipe not found",
		"id":    id,
	})
}

// fail maps the error taxonomy onto status codes
func (h *RecipeHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrInvalid):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]interface{}{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		return c.JSON(http.StatusConflict, map[string]interface{}{"error": err.Error()})
	}

	h.container.Components.Logger.WithContext(c.Request().Context()).Error("request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err,
	)
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": "internal error",
	})
}
