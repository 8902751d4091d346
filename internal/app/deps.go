package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"chunklab/internal/cache"
	"chunklab/internal/chunker"
	"chunklab/internal/config"
	"chunklab/internal/logger"
	"chunklab/internal/metrics"
	"chunklab/internal/preview"
	"chunklab/internal/queue"
	"chunklab/internal/tokens"
)

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Engine   *chunker.Engine
	Cache    cache.Cache
	// Queue is nil unless the binary talks to NATS.
	Queue queue.Queue
	// Local runs previews in this process.
	Local *preview.Service
	// Previewer is what handlers call: Local, or a Remote over Queue.
	Previewer preview.Previewer
}

// Build loads env and config and wires the gateway's dependencies.
func Build(service string) (Deps, error) {
	cfg, log, err := load(service)
	if err != nil {
		return Deps{}, err
	}
	return Assemble(context.Background(), cfg, log, cfg.PreviewBackend == config.BackendQueue)
}

// BuildWorker is Build for a NATS worker: the queue is mandatory and
// previews always run locally.
func BuildWorker(service string) (Deps, error) {
	cfg, log, err := load(service)
	if err != nil {
		return Deps{}, err
	}
	if cfg.QueueURL == "" {
		return Deps{}, fmt.Errorf("QUEUE_URL is required for %s", service)
	}
	deps, err := Assemble(context.Background(), cfg, log, true)
	if err != nil {
		return Deps{}, err
	}
	deps.Previewer = deps.Local
	return deps, nil
}

func load(service string) (config.Config, *slog.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger.New(cfg.LogLevel, service), nil
}

// Assemble wires components from an already loaded config. withQueue
// connects to NATS; the Previewer is then Remote when PREVIEW_BACKEND=queue.
func Assemble(ctx context.Context, cfg config.Config, log *slog.Logger, withQueue bool) (Deps, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	engine := chunker.New(tokens.New(cfg.TokenizerBackend))
	log.Info("token estimator ready", "backend", cfg.TokenizerBackend)

	c := buildCache(cfg, log)
	local := preview.NewService(log, engine, c, m, preview.Options{
		Backend:      cfg.TokenizerBackend,
		MaxTextBytes: cfg.MaxTextBytes,
		Timeout:      cfg.PreviewTimeout,
		CacheTTL:     cfg.CacheTTL,
	})

	deps := Deps{
		Config:    cfg,
		Log:       log,
		Registry:  reg,
		Metrics:   m,
		Engine:    engine,
		Cache:     c,
		Local:     local,
		Previewer: local,
	}
	if !withQueue {
		return deps, nil
	}

	q, err := buildQueue(ctx, cfg, log)
	if err != nil {
		_ = c.Close()
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	deps.Queue = q
	if cfg.PreviewBackend == config.BackendQueue {
		deps.Previewer = preview.NewRemote(log, q, cfg.QueueSubject, cfg.QueueRetries, cfg.QueueRetryBase)
		log.Info("forwarding previews to workers", "subject", cfg.QueueSubject, "retries", cfg.QueueRetries)
	}
	return deps, nil
}

// Close releases the cache and queue connections.
func (d Deps) Close() {
	if d.Queue != nil {
		d.Queue.Close()
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			d.Log.Warn("cache close failed", "err", err)
		}
	}
}

// buildCache falls back to the no-op cache when Redis is unreachable so
// previews keep working without it.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	if cfg.CacheProvider != config.CacheRedis {
		return cache.NewNoOpCache()
	}
	rc, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn("redis unavailable; caching disabled", "addr", cfg.RedisAddr, "err", err)
		return cache.NewNoOpCache()
	}
	log.Info("using Redis cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	return rc
}

func buildQueue(ctx context.Context, cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("QUEUE_URL is required")
	}
	nc, err := queue.Connect(ctx, cfg.QueueURL, 5, 200*time.Millisecond, log)
	if err != nil {
		return nil, err
	}
	log.Info("using NATS queue", "url", cfg.QueueURL)
	return queue.NewNATS(log, nc, cfg.QueueTimeout), nil
}
