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

	app, err := spacetraveling.NewApp(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create app", "error", err)
		os.Exit(1)
	}

	err = app.Run(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to run app", "error", err)
		os.Exit(1)
	}
}
