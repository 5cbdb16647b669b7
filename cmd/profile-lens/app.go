package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kevinmichaelchen/profile-lens/internal/config"
	"github.com/kevinmichaelchen/profile-lens/internal/embedding"
	"github.com/kevinmichaelchen/profile-lens/internal/github"
	"github.com/kevinmichaelchen/profile-lens/internal/history"
	"github.com/kevinmichaelchen/profile-lens/internal/llm"
	"github.com/kevinmichaelchen/profile-lens/internal/session"
	"github.com/kevinmichaelchen/profile-lens/internal/surrealdb"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	github   *github.Client
	llm      *llm.Client
	db       *surrealdb.Client
	recorder *history.Recorder
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)

	var strategy github.Strategy = github.FirstPageStrategy{}
	if cfg.GitHubAllPages {
		strategy = github.AllPagesStrategy{MaxPages: cfg.GitHubMaxPages}
	}
	ghClient, err := github.NewClient(github.Options{
		Token:    cfg.GitHubToken,
		BaseURL:  cfg.GitHubAPIURL,
		Timeout:  cfg.HTTPTimeout,
		Strategy: strategy,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		github: ghClient,
		llm:    llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel),
	}

	if cfg.HasHistory() {
		if err := a.openHistory(ctx); err != nil {
			// A lookup still works without history.
			logger.Warn("history disabled", "error", err)
		}
	}
	return a, nil
}

func (a *app) openHistory(ctx context.Context) error {
	db, err := surrealdb.NewClient(ctx, a.cfg)
	if err != nil {
		return err
	}
	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close(ctx)
		return err
	}

	var embedder history.Embedder
	if a.cfg.HasEmbeddings() {
		embedder = embedding.NewClient(a.cfg.EmbeddingBaseURL, a.cfg.EmbeddingAPIKey, a.cfg.EmbeddingModel)
	}
	a.db = db
	a.recorder = history.NewRecorder(db, embedder, a.logger)
	return nil
}

func (a *app) close(ctx context.Context) {
	if a.db != nil {
		_ = a.db.Close(ctx)
	}
}

func (a *app) orchestrator() *session.Orchestrator {
	opts := []session.Option{session.WithLogger(a.logger)}
	if a.recorder != nil {
		opts = append(opts, session.WithOnDone(a.recorder.Record))
	}
	return session.New(a.github, a.llm, opts...)
}

// requireHistory opens SurrealDB for the commands that only make sense
// with history.
func requireHistory(ctx context.Context, cfg *config.Config) (*history.Recorder, func(), error) {
	if !cfg.HasHistory() {
		return nil, nil, fmt.Errorf("SURREAL_URL is not set; history is disabled")
	}
	db, err := surrealdb.NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	var embedder history.Embedder
	if cfg.HasEmbeddings() {
		embedder = embedding.NewClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	return history.NewRecorder(db, embedder, logger), func() { _ = db.Close(ctx) }, nil
}

func newLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
