// Command listingflow runs the conversational listing-content
// orchestrator: WebSocket front end, turn engine, and the content
// workflow graph behind it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/rovista/listingflow/internal/config"
	"github.com/rovista/listingflow/internal/content"
	"github.com/rovista/listingflow/internal/engine"
	"github.com/rovista/listingflow/internal/gen"
	"github.com/rovista/listingflow/internal/history"
	"github.com/rovista/listingflow/internal/server"
	"github.com/rovista/listingflow/internal/session"
)

const shutdownGrace = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "listingflow:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (.yaml or .json)")
	flag.Parse()

	// Best effort; a missing .env just means the environment is already set.
	_ = godotenv.Load()

	settings, err := config.SettingsFromFile(*configPath)
	if err != nil {
		return err
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevel(settings.LogLevel),
	}))
	slog.SetDefault(logger)

	secret := os.Getenv("LISTINGFLOW_JWT_SECRET")
	if secret == "" {
		return errors.New("LISTINGFLOW_JWT_SECRET is not set")
	}

	steps := &content.Steps{
		Text: gen.NewOpenAIText(
			gen.WithTextAPIKey(os.Getenv("OPENAI_API_KEY")),
			gen.WithTextModel(settings.TextModel),
		),
		Image: gen.NewOpenAIImage(
			gen.WithImageAPIKey(os.Getenv("OPENAI_API_KEY")),
			gen.WithImageModel(settings.ImageModel),
			gen.WithAssetDir(settings.AssetDir),
			gen.WithImageLogger(logger),
		),
		Publisher: gen.NewSocialPublisher(
			settings.PublishEndpoint,
			os.Getenv("LISTINGFLOW_PUBLISH_TOKEN"),
		),
		Destination: settings.Destination,
		CallTimeout: settings.CallTimeout,
	}

	graph, err := content.BuildGraph(steps, content.Flags{VisualAssets: settings.VisualAssets})
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	sessions := session.NewStore(
		session.WithTTL(settings.SessionTTL),
		session.WithSweepInterval(settings.SweepInterval),
		session.WithLogger(logger),
	)
	sessions.Start()
	defer sessions.Stop()

	var turns history.Store
	if settings.HistoryPath != "" {
		turns, err = history.NewSQLiteStore(settings.HistoryPath)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
	} else {
		turns = history.NewMemoryStore()
	}
	defer turns.Close()

	eng := engine.New(graph, sessions,
		engine.WithLogger(logger),
		engine.WithHistory(turns),
		engine.WithMetrics(settings.Metrics),
		engine.WithTracing(settings.Tracing),
	)

	// Turns run under this context so shutdown can stop collaborator
	// calls that outlive their connection.
	runCtx, stopRuns := context.WithCancel(context.Background())
	defer stopRuns()

	srv := server.New(eng, sessions,
		server.NewVerifier([]byte(secret), settings.Identities),
		server.WithLogger(logger),
		server.WithBaseContext(runCtx),
	)

	httpServer := &http.Server{
		Addr:    settings.ListenAddr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			slog.String("addr", settings.ListenAddr),
			slog.Bool("visual_assets", settings.VisualAssets))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	stopRuns()
	return nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
