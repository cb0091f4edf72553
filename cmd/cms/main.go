// Command cms serves the local content API the blog reads from during development.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/nasermirzaei89/spacetraveling"
)

func main() {
	ctx := context.Background()

	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		slog.WarnContext(ctx, "failed to load .env file", "error", err)
	}

	slog.SetDefault(spacetraveling.NewLoggerFromEnv(os.Stdout))

	app, err := spacetraveling.NewCMSApp(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create cms app", "error", err)
		os.Exit(1)
	}

	err = app.Run(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to run cms app", "error", err)
		os.Exit(1)
	}
}
