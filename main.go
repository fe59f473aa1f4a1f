package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tickertalk/server/internal/agent/extract"
	"github.com/tickertalk/server/internal/agent/graph"
	"github.com/tickertalk/server/internal/agent/model"
	"github.com/tickertalk/server/internal/agent/repo"
	"github.com/tickertalk/server/internal/agent/store"
	"github.com/tickertalk/server/internal/core"
	logx "github.com/tickertalk/server/pkg/logger"
	pkgpostgres "github.com/tickertalk/server/pkg/postgres"
	pkgredis "github.com/tickertalk/server/pkg/redis"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`
	MetricsAddr string           `envconfig:"METRICS_ADDR"`

	// Infrastructure
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Router       model.RouterModelConfig
	SQL          model.SQLModelConfig
	Synth        model.SynthModelConfig
	Embedding    model.EmbeddingConfig
	Price        model.PriceConfig
	News         model.NewsConfig
	Conversation model.ConversationConfig
}

func loadConfig() (*AppConfig, error) {
	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	logx.Init(logx.LoggerOpts{
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	return &cfg, nil
}

// app owns the long-lived clients for one command invocation.
type app struct {
	cfg     *AppConfig
	rdb     *redis.Client
	db      *sql.DB
	runner  graph.Runner
	metrics *http.Server
}

func newApp(ctx context.Context, cfg *AppConfig) (*app, error) {
	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise redis client: %w", err)
	}
	logx.Debug().Msg("Connected to Redis successfully")

	db, err := cfg.Postgres.New(ctx)
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("initialise postgres pool: %w", err)
	}
	logx.Debug().Msg("Connected to Postgres successfully")

	a := &app{cfg: cfg, rdb: rdb, db: db}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.serveMetrics()
	return a, nil
}

func (a *app) build(ctx context.Context) error {
	cfg := a.cfg

	symbols := extract.DefaultSymbols()
	known, err := store.KnownTickers(ctx, a.db, cfg.Price.Table, cfg.News.Table)
	if err != nil {
		logx.Warn().Err(err).Msg("continuing with the built-in symbol table")
	} else {
		symbols = symbols.WithKnown(known...)
	}

	embedder, err := store.NewOllamaEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return err
	}
	news, err := store.NewNewsIndex(a.db, embedder, cfg.News.Table)
	if err != nil {
		return err
	}

	a.runner, err = graph.BuildRunner(ctx, graph.Config{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		RouterModel:  cfg.Router,
		SQLModel:     cfg.SQL,
		SynthModel:   cfg.Synth,
		Price:        cfg.Price,
		News:         cfg.News,
		Conversation: cfg.Conversation,
		Symbols:      symbols,
		PriceStore:   store.NewPriceStore(a.db),
		NewsIndex:    news,
		MemoryRepo:   repo.NewRedisMemoryRepository(a.rdb, cfg.Conversation.TTL),
		Metrics:      graph.NewMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("build runner: %w", err)
	}
	return nil
}

func (a *app) serveMetrics() {
	if a.cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logx.Info().Str("addr", a.cfg.MetricsAddr).Msg("serving metrics")
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

func (a *app) Close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logx.Fatal().Err(err).Msg("command failed")
	}
}
