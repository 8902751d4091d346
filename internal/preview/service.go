package preview

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chunklab/internal/cache"
	"chunklab/internal/chunker"
	"chunklab/internal/metrics"
)

// Chunker is the part of *chunker.Engine the service needs.
type Chunker interface {
	Has(key string) bool
	PreviewContext(ctx context.Context, text, key string, params chunker.Params) (chunker.Result, error)
}

// Options tune a Service. Zero values disable the corresponding limit.
type Options struct {
	// Backend names the token estimator; it is part of the cache key.
	Backend      string
	MaxTextBytes int
	Timeout      time.Duration
	CacheTTL     time.Duration
}

// Service runs previews in-process.
type Service struct {
	log     *slog.Logger
	engine  Chunker
	cache   cache.Cache
	metrics *metrics.Metrics
	opts    Options
}

// NewService wires a Service. A nil cache disables caching; nil metrics
// records nothing.
func NewService(log *slog.Logger, engine Chunker, c cache.Cache, m *metrics.Metrics, opts Options) *Service {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return &Service{log: log, engine: engine, cache: c, metrics: m, opts: opts}
}

func (s *Service) Preview(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	text := *req.Text
	if s.opts.MaxTextBytes > 0 && len(text) > s.opts.MaxTextBytes {
		return Response{}, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTextTooLarge, len(text), s.opts.MaxTextBytes)
	}

	label := req.StrategyKey
	if !s.engine.Has(label) {
		label = "other"
	}
	log := s.log.With("strategy", label)

	key, cacheable := cacheKey(s.opts.Backend, req.StrategyKey, req.Params, text)
	cacheable = cacheable && label != "other"
	if cacheable {
		if entry, err := s.cache.GetPreview(ctx, key); err != nil {
			log.Warn("cache lookup failed", "err", err)
		} else if entry != nil {
			s.metrics.CacheHit()
			return Response{PreviewID: uuid.NewString(), Chunks: entry.Chunks, Metrics: entry.Metrics, Cached: true}, nil
		} else {
			s.metrics.CacheMiss()
		}
	}

	start := time.Now()
	res, err := s.run(ctx, text, req.StrategyKey, req.Params)
	elapsed := time.Since(start)
	s.metrics.ObservePreview(label, elapsed, res.Metrics.TotalChunks, res.Metrics.TotalTokens, err)
	if err != nil {
		log.Debug("preview failed", "err", err, "duration_ms", elapsed.Milliseconds())
		return Response{}, err
	}
	log.Debug("preview complete", "chunks", res.Metrics.TotalChunks, "duration_ms", elapsed.Milliseconds())

	if cacheable {
		entry := &cache.Entry{Chunks: res.Chunks, Metrics: res.Metrics}
		if err := s.cache.SetPreview(ctx, key, entry, s.opts.CacheTTL); err != nil {
			log.Warn("cache store failed", "err", err)
		}
	}
	return Response{PreviewID: uuid.NewString(), Chunks: res.Chunks, Metrics: res.Metrics}, nil
}

type outcome struct {
	res chunker.Result
	err error
}

// run executes the strategy on its own goroutine and stops waiting once the
// time budget or the caller's context ends. The strategy polls the same
// context and gives up shortly after; its result is dropped.
func (s *Service) run(parent context.Context, text, key string, params chunker.Params) (chunker.Result, error) {
	ctx := parent
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.opts.Timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("strategy %s panicked: %v", key, r)}
			}
		}()
		res, err := s.engine.PreviewContext(ctx, text, key, params)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err == nil || ctx.Err() == nil {
			return o.res, o.err
		}
	case <-ctx.Done():
	}
	if err := parent.Err(); err != nil {
		return chunker.Result{}, err
	}
	return chunker.Result{}, fmt.Errorf("%w after %s", ErrTimeout, s.opts.Timeout)
}

// cacheKey digests everything that determines a preview. It reports false
// when params cannot be encoded, in which case the request is not cached.
func cacheKey(backend, strategy string, params chunker.Params, text string) (string, bool) {
	p, err := json.Marshal(params)
	if err != nil {
		return "", false
	}
	h := sha256.New()
	for _, part := range [][]byte{[]byte(backend), []byte(strategy), p} {
		h.Write(part)
		h.Write([]byte{0})
	}
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil)), true
}

