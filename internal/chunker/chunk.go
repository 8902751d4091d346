// Package chunker splits text into bounded, token-budgeted, overlapping
// chunks. Each strategy is a pure function of (text, params); offsets are
// half-open rune positions into the original text.
package chunker

import (
	"context"
	"strings"

	"chunklab/internal/tokens"
)

// Chunk represents one span of the source text.
type Chunk struct {
	Ordinal    int    `json:"ordinal"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// cancelCheckInterval is how many loop steps run between context polls.
const cancelCheckInterval = 64

// builder appends chunks over an immutable rune slice.
type builder struct {
	ctx       context.Context
	src       []rune
	est       tokens.Estimator
	tokenizer string
	chunks    []Chunk
	steps     int
}

func newBuilder(ctx context.Context, src []rune, est tokens.Estimator, tokenizer string) *builder {
	return &builder{ctx: ctx, src: src, est: est, tokenizer: tokenizer}
}

// stopped reports whether ctx has ended. It polls on the first step and
// every cancelCheckInterval steps after that.
func (b *builder) stopped() bool {
	poll := b.steps%cancelCheckInterval == 0
	b.steps++
	return poll && b.ctx.Err() != nil
}

func (b *builder) add(start, end int) {
	text := strings.TrimSpace(string(b.src[start:end]))
	b.chunks = append(b.chunks, Chunk{
		Ordinal:    len(b.chunks),
		StartChar:  start,
		EndChar:    end,
		Text:       text,
		TokenCount: b.est.EstimateTokens(text, b.tokenizer),
	})
}

// addNonBlank skips spans that are empty after trimming.
func (b *builder) addNonBlank(start, end int) {
	if strings.TrimSpace(string(b.src[start:end])) == "" {
		return
	}
	b.add(start, end)
}

// result returns the chunks built so far, or ctx.Err() once ctx has ended.
func (b *builder) result() ([]Chunk, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}
	if b.chunks == nil {
		return []Chunk{}, nil
	}
	return b.chunks, nil
}
