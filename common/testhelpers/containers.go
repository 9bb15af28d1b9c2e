// Package testhelpers starts the Docker-backed dependencies used by
// integration tests. Every helper skips under -short or without Docker.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lyzr/recipes/common/db"
	"github.com/lyzr/recipes/common/logger"
	rediscommon "github.com/lyzr/recipes/common/redis"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresImage = "postgres:16-alpine"
	RedisImage    = "redis:7-alpine"
)

var (
	sharedDB     *db.DB
	sharedDBOnce sync.Once
	sharedDBErr  error
)

func skipWithoutDocker(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// GetTestDB returns a Postgres database with the recipe schema applied. The
// container is created once and reused across all tests in the run; callers
// call Truncate to start from empty tables.
func GetTestDB(t *testing.T) *db.DB {
	t.Helper()
	skipWithoutDocker(t)

	sharedDBOnce.Do(func() {
		sharedDB, sharedDBErr = setupTestDB()
	})

	if sharedDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedDBErr)
	}

	return sharedDB
}

func setupTestDB() (*db.DB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "recipes_test",
			"POSTGRES_USER":     "recipes",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://recipes:test_password@%s:%s/recipes_test?sslmode=disable",
		host, port.Port())

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to ping test database: %w", err)
	}

	database := db.Wrap(pool, logger.Discard())
	if err := db.EnsureSchema(ctx, database); err != nil {
		return nil, err
	}

	return database, nil
}

// Truncate empties the recipe tables
func Truncate(t *testing.T, database *db.DB) {
	t.Helper()

	_, err := database.Exec(context.Background(), `TRUNCATE recipe, ingredient, recipe_ingredients`)
	if err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
}

// StartRedis starts a Redis container for one test and returns a connected client
func StartRedis(t *testing.T) *rediscommon.Client {
	t.Helper()
	skipWithoutDocker(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        RedisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get redis endpoint: %v", err)
	}

	client, err := rediscommon.New(ctx, rediscommon.Options{Addr: endpoint}, logger.Discard())
	if err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return client
}
