package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trapline/trapline/internal/api"
	"github.com/trapline/trapline/internal/archive"
	"github.com/trapline/trapline/internal/config"
	"github.com/trapline/trapline/internal/engine"
	"github.com/trapline/trapline/internal/events"
	"github.com/trapline/trapline/internal/observability/metrics"
	"github.com/trapline/trapline/internal/persona"
	"github.com/trapline/trapline/internal/report"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("trapline starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persona agent. Without a Groq key the agent runs on canned fallback
	// replies, which keeps local development and the tester platform's
	// smoke checks working.
	var llm *persona.Client
	if cfg.GroqAPIKey != "" {
		llm = persona.NewClient(cfg.GroqAPIKey, cfg.GroqModel)
		slog.Info("groq client ready", "model", cfg.GroqModel)
	} else {
		slog.Warn("GROQ_API_KEY not set — persona agent will use fallback replies")
	}
	agent := persona.NewAgent(llm, slog.Default())

	// Report archive (optional)
	var store *archive.Store
	if cfg.DatabaseURL != "" {
		var err error
		store, err = archive.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		slog.Info("report archive connected")
	} else {
		slog.Warn("DATABASE_URL not set — reports will not be archived")
	}

	// Event broker (optional)
	var broker *events.Client
	if cfg.NatsURL != "" {
		var err error
		broker, err = events.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer broker.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	m := metrics.New(nil)
	dispatcher := report.NewDispatcher(cfg.CollectorURL, slog.Default())

	policy := engine.DefaultPolicy()
	if cfg.EngagementWindowTurns > 0 {
		policy.EngagementWindowTurns = cfg.EngagementWindowTurns
	}
	if cfg.MinTurnsBeforeStop > 0 {
		policy.MinTurnsBeforeStop = cfg.MinTurnsBeforeStop
	}
	if cfg.MaxTurns > 0 {
		policy.MaxTurns = cfg.MaxTurns
	}

	eng := engine.New(agent, dispatcher, archiverOrNil(store), publisherOrNil(broker), policy, m, slog.Default())

	srv := api.NewServer(cfg.Port, cfg.APIKey, eng, slog.Default())
	httpSrv := &http.Server{
		Addr:              srv.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("API server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("trapline ready", "port", cfg.Port, "agent_available", agent.Available())

	// Graceful shutdown: stop accepting turns, then let in-flight report
	// dispatches drain.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown error", "error", err)
	}
	eng.Wait()
	slog.Info("trapline stopped")
}

// archiverOrNil avoids handing the engine a typed-nil interface.
func archiverOrNil(s *archive.Store) engine.Archiver {
	if s == nil {
		return nil
	}
	return s
}

func publisherOrNil(c *events.Client) engine.Publisher {
	if c == nil {
		return nil
	}
	return c
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
