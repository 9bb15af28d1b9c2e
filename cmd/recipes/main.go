package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lyzr/recipes/cmd/recipes/container"
	"github.com/lyzr/recipes/cmd/recipes/routes"
	"github.com/lyzr/recipes/common/bootstrap"
	"github.com/lyzr/recipes/common/db"
	commonmw "github.com/lyzr/recipes/common/middleware"
	"github.com/lyzr/recipes/common/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bootstrap common components (DB, redis, logger, queue, cache, telemetry)
	components, err := bootstrap.Setup(ctx, "recipes", bootstrap.WithDBInitHook(db.EnsureSchema))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap recipes: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(context.Background())

	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		components.Logger.Error("Failed to initialize service container", "error", err)
		os.Exit(1)
	}

	if err := serviceContainer.CompositionService.SubscribeEvents(ctx); err != nil {
		components.Logger.Warn("recipe events disabled", "error", err)
	}

	e := setupEcho()
	setupMiddleware(e)
	registerRoutes(e, serviceContainer)

	if err := startServer(e, components); err != nil {
		components.Logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(commonmw.RequestContext())
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterHealthRoutes(e, serviceContainer)
	routes.RegisterRecipeRoutes(e, serviceContainer)
}

// startServer serves until SIGINT/SIGTERM, then drains in-flight requests
func startServer(e *echo.Echo, components *bootstrap.Components) error {
	cfg := components.Config.Service
	srv := server.New("recipes", cfg.Port, e, cfg.ShutdownTimeout, components.Logger)
	return srv.Start()
}
