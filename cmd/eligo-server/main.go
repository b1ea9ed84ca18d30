package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/geosift/eligo/internal/cache"
	"github.com/geosift/eligo/internal/cache/redisstore"
	"github.com/geosift/eligo/internal/config"
	"github.com/geosift/eligo/internal/eligibility"
	"github.com/geosift/eligo/internal/events"
	"github.com/geosift/eligo/internal/loader"
	"github.com/geosift/eligo/internal/logger"
	"github.com/geosift/eligo/internal/observability"
	"github.com/geosift/eligo/internal/server"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; the environment always wins
	_ = godotenv.Load()

	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "eligo-server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting eligo-server",
		"addr", cfg.Addr,
		"version", Version,
		"default_crs", cfg.DefaultCRS,
		"cache", cfg.CacheEnabled,
		"events", cfg.Events.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fileLoader, err := loader.New(appLog, cfg.LayerCacheSize)
	if err != nil {
		appLog.Error("loader setup failed", "err", err)
		return 1
	}
	engine := eligibility.New(appLog, fileLoader, cfg.PreprocessWorkers)

	var store cache.Interface
	if cfg.CacheEnabled {
		rc, err := redisstore.New(ctx, cfg.RedisAddr,
			redisstore.WithReadTimeout(cfg.CacheOpTimeout),
			redisstore.WithWriteTimeout(cfg.CacheOpTimeout))
		if err != nil {
			appLog.Error("redis setup failed", "err", err)
			return 1
		}
		defer func() { _ = rc.Close() }()
		store = rc
	}

	var pub events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		kp, err := events.NewKafka(appLog, cfg.Events.Brokers, cfg.Events.Topic)
		if err != nil {
			appLog.Error("kafka setup failed", "err", err)
			return 1
		}
		defer func() { _ = kp.Close() }()
		pub = kp
	}

	h := server.NewHandler(appLog, cfg, engine, store, pub)
	if err := server.Run(ctx, cfg, appLog, h); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
