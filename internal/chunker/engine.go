package chunker

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"chunklab/internal/tokens"
)

// Strategy partitions text into chunks.
// Implementations poll ctx in their loops and return ctx.Err() once it
// ends.
type Strategy interface {
	Chunk(ctx context.Context, text string, params Params) ([]Chunk, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, text string, params Params) ([]Chunk, error)

func (f StrategyFunc) Chunk(ctx context.Context, text string, params Params) ([]Chunk, error) {
	return f(ctx, text, params)
}

// Result is the envelope returned by Preview.
type Result struct {
	Chunks  []Chunk `json:"chunks"`
	Metrics Metrics `json:"metrics"`
}

// Engine dispatches preview requests to strategies by key. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	est        tokens.Estimator
	strategies map[string]Strategy
}

// New builds an engine around est; a nil estimator means the heuristic.
func New(est tokens.Estimator) *Engine {
	if est == nil {
		est = tokens.Heuristic{}
	}
	e := &Engine{est: est}
	e.strategies = map[string]Strategy{
		KeyFixed: StrategyFunc(func(ctx context.Context, text string, p Params) ([]Chunk, error) {
			return e.fixed(ctx, text, FixedConfigFrom(p))
		}),
		KeyRecursive: StrategyFunc(func(ctx context.Context, text string, p Params) ([]Chunk, error) {
			return e.recursive(ctx, text, RecursiveConfigFrom(p))
		}),
		KeySentence: StrategyFunc(func(ctx context.Context, text string, p Params) ([]Chunk, error) {
			return e.sentence(ctx, text, SentenceConfigFrom(p))
		}),
		KeyStructure: StrategyFunc(func(ctx context.Context, text string, p Params) ([]Chunk, error) {
			return e.structure(ctx, text, StructureConfigFrom(p))
		}),
		KeySemantic: StrategyFunc(func(context.Context, string, Params) ([]Chunk, error) {
			return nil, fmt.Errorf("%w: semantic chunking requires embedding API key", ErrNotImplemented)
		}),
	}
	return e
}

// Estimator returns the token estimator the engine counts with.
func (e *Engine) Estimator() tokens.Estimator {
	return e.est
}

// Has reports whether key names a registered strategy, supported or not.
func (e *Engine) Has(key string) bool {
	_, ok := e.strategies[key]
	return ok
}

// Keys lists registered strategy keys in sorted order.
func (e *Engine) Keys() []string {
	keys := make([]string, 0, len(e.strategies))
	for k := range e.strategies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Preview runs the strategy named by key and computes metrics over the
// result. Zero chunks yield an empty envelope rather than an error.
func (e *Engine) Preview(text, key string, params Params) (Result, error) {
	return e.PreviewContext(context.Background(), text, key, params)
}

// PreviewContext is Preview with a context the strategy polls while it
// runs. Once ctx ends the strategy stops early and ctx.Err() is returned.
func (e *Engine) PreviewContext(ctx context.Context, text, key string, params Params) (Result, error) {
	if key == "" {
		return Result{}, fmt.Errorf("%w: strategy_key is required", ErrInvalidRequest)
	}
	s, ok := e.strategies[key]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, key)
	}

	chunks, err := s.Chunk(ctx, text, params)
	if err != nil {
		return Result{}, err
	}
	m, err := ComputeMetrics(chunks)
	if errors.Is(err, ErrEmptyResult) {
		return Result{Chunks: []Chunk{}, Metrics: Metrics{}}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Chunks: chunks, Metrics: m}, nil
}
