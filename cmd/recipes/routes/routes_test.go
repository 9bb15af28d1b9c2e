package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/lyzr/recipes/cmd/recipes/container"
	"github.com/lyzr/recipes/cmd/recipes/models"
	"github.com/lyzr/recipes/common/bootstrap"
	"github.com/lyzr/recipes/common/config"
	"github.com/lyzr/recipes/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	e *echo.Echo
	c *container.Container
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.Service.Name = "recipes"
	cfg.Service.Port = 3000
	cfg.Store.Driver = "memory"
	cfg.Queue.Type = "memory"
	cfg.Cache.Enabled = true
	cfg.Cache.Type = "memory"
	cfg.Composition.Transactional = true

	ctx := context.Background()
	components, err := bootstrap.Setup(ctx, "recipes",
		bootstrap.WithCustomConfig(cfg),
		bootstrap.WithCustomLogger(logger.Discard()),
		bootstrap.WithoutTelemetry(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = components.Shutdown(ctx) })

	c, err := container.NewContainer(components)
	require.NoError(t, err)

	e := echo.New()
	RegisterHealthRoutes(e, c)
	RegisterRecipeRoutes(e, c)

	return &testServer{e: e, c: c}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const pancakesBody = `{"name": "Pancakes", "ingredients": [
	{"name": "flour", "amount": 200, "unit": "g"},
	{"name": "egg", "amount": 2, "unit": "unit"}
]}`

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok", "service": "recipes"}`, rec.Body.String())
}

func TestRecipeLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/recipes", pancakesBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Recipe](t, rec)
	assert.Equal(t, "Pancakes", created.Name)
	assert.Equal(t, int64(1), created.Version)
	base := "/api/v1/recipes/" + created.ID.String()

	rec = s.do(t, http.MethodGet, "/api/v1/recipes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Recipe](t, rec), 1)

	rec = s.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("ETag"))
	full := decode[models.RecipeWithIngredients](t, rec)
	assert.Equal(t, []models.IngredientLine{
		{Name: "flour", Amount: 200, Unit: "g"},
		{Name: "egg", Amount: 2, Unit: "unit"},
	}, full.Ingredients)

	rec = s.do(t, http.MethodPut, base, `{"name": "Pancakes v2", "ingredients": [{"name": "flour", "amount": 250, "unit": "g"}]}`, "If-Match", `"1"`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	replaced := decode[models.RecipeWithIngredients](t, rec)
	assert.Equal(t, "Pancakes v2", replaced.Name)
	assert.Equal(t, int64(2), replaced.Version)
	assert.Equal(t, "2", rec.Header().Get("ETag"))

	rec = s.do(t, http.MethodPut, base, pancakesBody, "If-Match", "1")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPatch, base, `[{"op": "add", "path": "/ingredients/-", "value": {"name": "sugar", "amount": 1, "unit": "tbsp"}}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decode[models.RecipeWithIngredients](t, rec)
	assert.Len(t, patched.Ingredients, 2)
	assert.Equal(t, int64(3), patched.Version)

	rec = s.do(t, http.MethodGet, base+"/ingredients", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lines := decode[[]models.IngredientLine](t, rec)
	assert.Equal(t, "sugar", lines[1].Name)

	rec = s.do(t, http.MethodDelete, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id": "`+created.ID.String()+`", "status": "deleted"}`, rec.Body.String())

	rec = s.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, base+"/ingredients", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestIngredientLookup(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	recipe, err := s.c.CompositionService.Create(ctx, "Toast", []models.IngredientLine{{Name: "bread", Amount: 1, Unit: "slice"}})
	require.NoError(t, err)
	links, err := s.c.Links.ListByRecipe(ctx, recipe.ID)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/v1/ingredients", `{"id": "`+links[0].IngredientID.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bread", decode[models.Ingredient](t, rec).Name)

	rec = s.do(t, http.MethodPost, "/api/v1/ingredients", `{"id": "`+uuid.NewString()+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/ingredients", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t)
	unknown := "/api/v1/recipes/" + uuid.NewString()

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		headers []string
		want    int
	}{
		{"malformed id", http.MethodGet, "/api/v1/recipes/not-a-uuid", "", nil, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/v1/recipes", `{"name":`, nil, http.StatusBadRequest},
		{"rule violation", http.MethodPost, "/api/v1/recipes", `{"name": "x", "ingredients": [{"name": "egg", "amount": -1, "unit": "unit"}]}`, nil, http.StatusBadRequest},
		{"bad If-Match", http.MethodPut, unknown, pancakesBody, []string{"If-Match", "abc"}, http.StatusBadRequest},
		{"replace unknown", http.MethodPut, unknown, pancakesBody, nil, http.StatusNotFound},
		{"patch unknown", http.MethodPatch, unknown, `[{"op": "replace", "path": "/name", "value": "x"}]`, nil, http.StatusNotFound},
		{"patch outside document", http.MethodPatch, unknown, `[{"op": "replace", "path": "/id", "value": "x"}]`, nil, http.StatusBadRequest},
		{"get unknown", http.MethodGet, unknown, "", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body, tt.headers...)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateEmptyRecipe(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/recipes", `{"name": "Empty", "ingredients": []}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[models.Recipe](t, rec)

	rec = s.do(t, http.MethodGet, "/api/v1/recipes/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[models.RecipeWithIngredients](t, rec).Ingredients)
}
