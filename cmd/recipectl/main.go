package main

import (
	"context"
	"io"
	"os"

	"github.com/lyzr/recipes/cmd/recipectl/cli"
	"github.com/lyzr/recipes/cmd/recipes/container"
	"github.com/lyzr/recipes/common/bootstrap"
	"github.com/lyzr/recipes/common/db"
	"github.com/lyzr/recipes/common/logger"
)

func main() {
	os.Exit(cli.Execute(context.Background(), cli.NewRootCommand(openStore)))
}

// openStore bootstraps only the store; recipectl needs no queue, cache or telemetry
func openStore(ctx context.Context, logs io.Writer, verbose bool) (cli.Integrity, func(), error) {
	log := logger.Discard()
	if verbose {
		log = logger.NewWithWriter(logs, "debug", "text")
	}

	components, err := bootstrap.Setup(ctx, "recipectl",
		bootstrap.WithCustomLogger(log),
		bootstrap.WithDBInitHook(db.EnsureSchema),
		bootstrap.WithoutQueue(),
		bootstrap.WithoutCache(),
		bootstrap.WithoutTelemetry(),
	)
	if err != nil {
		return nil, nil, err
	}

	c, err := container.NewContainer(components)
	if err != nil {
		_ = components.Shutdown(ctx)
		return nil, nil, err
	}

	return c.IntegrityService, func() { _ = components.Shutdown(context.Background()) }, nil
}
