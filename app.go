package spacetraveling

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/nasermirzaei89/env"
	"github.com/nasermirzaei89/spacetraveling/cms"
	"github.com/nasermirzaei89/spacetraveling/contents"
	"github.com/nasermirzaei89/spacetraveling/db/sqlite3"
	"github.com/nasermirzaei89/spacetraveling/metrics"
	"github.com/nasermirzaei89/spacetraveling/prismic"
	"github.com/nasermirzaei89/spacetraveling/server"
	"github.com/nasermirzaei89/spacetraveling/web"
)

const (
	DefaultPrismicAPIEndpoint = "http://localhost:8081/api/v2"
	DefaultRevalidate         = 30 * time.Minute
	DefaultContentAPITimeout  = 10 * time.Second
	DefaultCMSPort            = "8081"
)

type App struct {
	server  *server.Server
	handler http.Handler
	web     *web.Handler
	db      *sql.DB
}

// NewApp wires the blog against the content API named by PRISMIC_API_ENDPOINT.
func NewApp(ctx context.Context) (*App, error) {
	revalidate, err := getDurationFromEnv("REVALIDATE", DefaultRevalidate)
	if err != nil {
		return nil, err
	}

	timeout, err := getDurationFromEnv("CONTENT_API_TIMEOUT", DefaultContentAPITimeout)
	if err != nil {
		return nil, err
	}

	clientOpts := []prismic.Option{prismic.WithHTTPClient(&http.Client{Timeout: timeout})}

	var m *metrics.Metrics
	if env.GetBool("METRICS_ENABLED", true) {
		m = metrics.New()
		clientOpts = append(clientOpts, prismic.WithObserver(m))
	}

	client, err := prismic.NewClient(
		env.GetString("PRISMIC_API_ENDPOINT", DefaultPrismicAPIEndpoint),
		env.GetString("PRISMIC_ACCESS_TOKEN", ""),
		clientOpts...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create content api client: %w", err)
	}

	contentsSvc := contents.NewService(client)

	var webHandler *web.Handler

	if m != nil {
		webHandler, err = web.NewHandler(contentsSvc, revalidate, m)
	} else {
		webHandler, err = web.NewHandler(contentsSvc, revalidate, nil)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP handler: %w", err)
	}

	var handler http.Handler = webHandler

	if m != nil {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", m.Handler())
		mux.Handle("/", webHandler)
		handler = mux
	}

	slog.DebugContext(ctx, "app configured", "revalidate", revalidate, "contentAPITimeout", timeout, "metrics", m != nil)

	app := &App{
		server:  newServer("HOST", "PORT", server.DefaultPort),
		handler: handler,
		web:     webHandler,
		db:      nil,
	}

	return app, nil
}

// NewCMSApp wires the local content API backed by sqlite.
func NewCMSApp(ctx context.Context) (*App, error) {
	db, err := sqlite3.NewDB(ctx, env.GetString("CMS_DB_DSN", "file:cms.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	err = sqlite3.MigrateUp(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	cmsSvc := cms.NewService(sqlite3.NewDocumentRepository(db))

	err = cmsSvc.Seed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed content store: %w", err)
	}

	app := &App{
		server:  newServer("CMS_HOST", "CMS_PORT", DefaultCMSPort),
		handler: cms.NewHandler(cmsSvc, env.GetString("PRISMIC_ACCESS_TOKEN", "")),
		web:     nil,
		db:      db,
	}

	return app, nil
}

func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) Run(ctx context.Context) error {
	// Handle SIGINT (CTRL+C) gracefully.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	defer app.close(ctx)

	err := app.server.Run(ctx, app.handler)
	if err != nil {
		return fmt.Errorf("failed to run server: %w", err)
	}

	return nil
}

func (app *App) close(ctx context.Context) {
	if app.web != nil {
		app.web.Wait()
	}

	if app.db != nil {
		err := app.db.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close database", "error", err)
		}
	}
}

func newServer(hostKey, portKey, defaultPort string) *server.Server {
	server := &server.Server{
		Port: env.GetString(portKey, defaultPort),
		Host: env.GetString(hostKey, ""),
		TLS: server.ServerTLS{
			Enabled: env.GetBool("TLS_ENABLED", false),
			Mode:    env.GetString("TLS_MODE", server.DefaultTLSMode),
			AutoCert: &server.ServerTLSAutoCert{
				CacheDir: env.GetString("TLS_AUTOCERT_CACHE_DIR", "./cert-cache"),
				Domains:  env.GetStringSlice("TLS_AUTOCERT_DOMAINS", []string{}),
				Email:    env.GetString("TLS_AUTOCERT_EMAIL", ""),
			},
			CertFile: env.GetString("TLS_CERT_FILE", ""),
			KeyFile:  env.GetString("TLS_KEY_FILE", ""),
		},
	}

	return server
}

func getDurationFromEnv(key string, def time.Duration) (time.Duration, error) {
	raw := env.GetString(key, "")
	if raw == "" {
		return def, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}

	return d, nil
}

func GetLogLevelFromEnv() slog.Level {
	levelStr := env.GetString("LOG_LEVEL", "info")
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", levelStr)

		return slog.LevelInfo
	}
}

// NewLoggerFromEnv builds a text or json logger per LOG_FORMAT.
func NewLoggerFromEnv(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: GetLogLevelFromEnv()}

	switch format := env.GetString("LOG_FORMAT", "text"); format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts))
	case "text":
		return slog.New(slog.NewTextHandler(w, opts))
	default:
		slog.Warn("unknown log format, defaulting to text", "format", format)

		return slog.New(slog.NewTextHandler(w, opts))
	}
}
