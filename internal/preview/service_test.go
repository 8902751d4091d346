package preview

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chunklab/internal/cache"
	"chunklab/internal/chunker"
	"chunklab/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

// stubChunker counts calls and optionally blocks or panics. A blocked call
// returns early when its context ends and records that in stopped.
type stubChunker struct {
	calls   atomic.Int32
	stopped chan error
	delay   time.Duration
	panicky bool
}

func (s *stubChunker) Has(key string) bool { return key == "slow" }

func (s *stubChunker) PreviewContext(ctx context.Context, _, _ string, _ chunker.Params) (chunker.Result, error) {
	s.calls.Add(1)
	if s.panicky {
		panic("bad strategy")
	}
	select {
	case <-time.After(s.delay):
		return chunker.Result{Chunks: []chunker.Chunk{}}, nil
	case <-ctx.Done():
		if s.stopped != nil {
			s.stopped <- ctx.Err()
		}
		return chunker.Result{}, ctx.Err()
	}
}

func newService(t *testing.T, c cache.Cache) (*Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return NewService(discardLogger(), chunker.New(nil), c, m, Options{
		Backend:      "heuristic",
		MaxTextBytes: 64,
		Timeout:      time.Second,
		CacheTTL:     time.Minute,
	}), m
}

func TestServiceValidation(t *testing.T) {
	svc, _ := newService(t, nil)

	tests := []struct {
		name    string
		req     Request
		wantMsg string
	}{
		{"missing text", Request{StrategyKey: "fixed"}, "text is required"},
		{"missing strategy", Request{Text: strPtr("hi")}, "strategy_key is required"},
		{"missing both", Request{}, "text is required; strategy_key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Preview(context.Background(), tt.req)
			require.ErrorIs(t, err, chunker.ErrInvalidRequest)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, http.StatusBadRequest, StatusFor(err))
		})
	}
}

func TestServiceEmptyTextYieldsEmptyEnvelope(t *testing.T) {
	svc, _ := newService(t, nil)

	resp, err := svc.Preview(context.Background(), Request{Text: strPtr(""), StrategyKey: "recursive"})
	require.NoError(t, err)
	assert.NotNil(t, resp.Chunks)
	assert.Empty(t, resp.Chunks)
	assert.Equal(t, chunker.Metrics{}, resp.Metrics)
	assert.NotEmpty(t, resp.PreviewID)
}

func TestServiceFixedPreview(t *testing.T) {
	svc, m := newService(t, nil)

	resp, err := svc.Preview(context.Background(), Request{
		Text:        strPtr("abcdefghijklmnopqrstuvwxyz"),
		StrategyKey: "fixed",
		Params:      chunker.Params{"unit": "chars", "size": 10.0, "overlap": 2.0},
	})
	require.NoError(t, err)
	require.Len(t, resp.Chunks, 4)
	assert.Equal(t, 8, resp.Chunks[1].StartChar)
	assert.Equal(t, 24, resp.Chunks[3].StartChar)
	assert.Equal(t, 4, resp.Metrics.TotalChunks)
	assert.False(t, resp.Cached)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Previews.WithLabelValues("fixed", metrics.OutcomeOK)))
}

func TestServiceErrors(t *testing.T) {
	svc, m := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Preview(ctx, Request{Text: strPtr("x"), StrategyKey: "semantic"})
	require.ErrorIs(t, err, chunker.ErrNotImplemented)
	assert.Equal(t, http.StatusNotImplemented, StatusFor(err))

	_, err = svc.Preview(ctx, Request{Text: strPtr("x"), StrategyKey: "paragraph"})
	require.ErrorIs(t, err, chunker.ErrUnknownStrategy)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Previews.WithLabelValues("other", metrics.OutcomeError)))

	_, err = svc.Preview(ctx, Request{Text: strPtr(string(make([]byte, 65))), StrategyKey: "fixed"})
	require.ErrorIs(t, err, ErrTextTooLarge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, StatusFor(err))
}

func TestServiceCacheHit(t *testing.T) {
	c := new(cache.MockCache)
	entry := &cache.Entry{
		Chunks:  []chunker.Chunk{{Text: "cached", EndChar: 6, TokenCount: 2}},
		Metrics: chunker.Metrics{TotalChunks: 1, TotalTokens: 2, AvgTokensPerChunk: 2, MaxTokens: 2, MinTokens: 2},
	}
	c.On("GetPreview", mock.Anything, mock.AnythingOfType("string")).Return(entry, nil)

	svc, m := newService(t, c)
	resp, err := svc.Preview(context.Background(), Request{Text: strPtr("cached"), StrategyKey: "fixed"})
	require.NoError(t, err)
	assert.True(t, resp.Cached)
	assert.Equal(t, entry.Chunks, resp.Chunks)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	c.AssertNotCalled(t, "SetPreview", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceCacheMissStoresResult(t *testing.T) {
	c := new(cache.MockCache)
	c.On("GetPreview", mock.Anything, mock.AnythingOfType("string")).Return(nil, nil)
	c.On("SetPreview", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(e *cache.Entry) bool {
		return e.Metrics.TotalChunks == 1 && e.Chunks[0].Text == "hello"
	}), time.Minute).Return(errors.New("redis down"))

	svc, m := newService(t, c)
	resp, err := svc.Preview(context.Background(), Request{Text: strPtr("hello"), StrategyKey: "sentence"})
	require.NoError(t, err, "cache write failures must not fail the preview")
	assert.False(t, resp.Cached)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	c.AssertExpectations(t)
}

func TestServiceSkipsCacheForUnknownStrategies(t *testing.T) {
	c := new(cache.MockCache)
	svc, _ := newService(t, c)

	_, err := svc.Preview(context.Background(), Request{Text: strPtr("x"), StrategyKey: "paragraph"})
	require.Error(t, err)
	c.AssertNotCalled(t, "GetPreview", mock.Anything, mock.Anything)
}

func TestServiceTimeout(t *testing.T) {
	stub := &stubChunker{delay: 200 * time.Millisecond}
	svc := NewService(discardLogger(), stub, nil, nil, Options{Timeout: 10 * time.Millisecond})

	_, err := svc.Preview(context.Background(), Request{Text: strPtr("x"), StrategyKey: "slow"})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(err))
	assert.Equal(t, CodeTimeout, CodeFor(err))
}

func TestServiceTimeoutStopsStrategy(t *testing.T) {
	stub := &stubChunker{delay: time.Minute, stopped: make(chan error, 1)}
	svc := NewService(discardLogger(), stub, nil, nil, Options{Timeout: 10 * time.Millisecond})

	_, err := svc.Preview(context.Background(), Request{Text: strPtr("x"), StrategyKey: "slow"})
	require.ErrorIs(t, err, ErrTimeout)

	select {
	case err := <-stub.stopped:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("strategy kept running after the time budget")
	}
}

func TestServiceTimeoutWithRealEngine(t *testing.T) {
	svc := NewService(discardLogger(), chunker.New(nil), nil, nil, Options{Timeout: time.Nanosecond})
	text := strings.Repeat("x", 1<<20)

	_, err := svc.Preview(context.Background(), Request{
		Text:        &text,
		StrategyKey: "fixed",
		Params:      chunker.Params{"unit": "chars", "size": 1.0, "overlap": 0.0},
	})
	require.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
}

func TestServiceCallerCancellation(t *testing.T) {
	stub := &stubChunker{delay: 200 * time.Millisecond}
	svc := NewService(discardLogger(), stub, nil, nil, Options{Timeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Preview(ctx, Request{Text: strPtr("x"), StrategyKey: "slow"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestServiceRecoversStrategyPanic(t *testing.T) {
	stub := &stubChunker{panicky: true}
	svc := NewService(discardLogger(), stub, nil, nil, Options{})

	_, err := svc.Preview(context.Background(), Request{Text: strPtr("x"), StrategyKey: "slow"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, http.StatusInternalServerError, StatusFor(err))
}

func TestCacheKey(t *testing.T) {
	k1, ok := cacheKey("heuristic", "fixed", chunker.Params{"size": 10.0, "unit": "chars"}, "text")
	require.True(t, ok)
	k2, _ := cacheKey("heuristic", "fixed", chunker.Params{"unit": "chars", "size": 10.0}, "text")
	assert.Equal(t, k1, k2, "param order must not matter")

	k3, _ := cacheKey("tiktoken", "fixed", chunker.Params{"size": 10.0, "unit": "chars"}, "text")
	assert.NotEqual(t, k1, k3)

	k4, _ := cacheKey("heuristic", "fixed", nil, "text")
	assert.NotEqual(t, k1, k4)

	_, ok = cacheKey("heuristic", "fixed", chunker.Params{"bad": func() {}}, "text")
	assert.False(t, ok)
}

func TestStatusAndCode(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{chunker.ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest},
		{chunker.ErrUnknownStrategy, http.StatusBadRequest, CodeUnknownStrategy},
		{chunker.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented},
		{ErrTextTooLarge, http.StatusRequestEntityTooLarge, CodeTextTooLarge},
		{ErrTimeout, http.StatusUnprocessableEntity, CodeTimeout},
		{ErrUnavailable, http.StatusServiceUnavailable, CodeUnavailable},
		{errors.New("other"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusFor(tt.err), tt.err.Error())
		assert.Equal(t, tt.code, CodeFor(tt.err), tt.err.Error())
	}
}
