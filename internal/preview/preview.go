// Package preview is the request boundary in front of the chunking engine.
// Service runs previews in-process; Remote forwards them to a worker over
// NATS. Both satisfy Previewer, so the gateway does not care which it has.
package preview

import (
	"context"
	"errors"
	"net/http"

	"chunklab/internal/chunker"
)

var (
	ErrTextTooLarge = errors.New("text too large")
	ErrTimeout      = errors.New("preview timed out")
	ErrUnavailable  = errors.New("preview backend unavailable")
)

// Request is the chunk-preview envelope. Text is a pointer so that an
// absent field can be told apart from an empty string.
type Request struct {
	Text        *string        `json:"text" validate:"required"`
	StrategyKey string         `json:"strategy_key" validate:"required"`
	Params      chunker.Params `json:"params,omitempty"`
}

// Response is a successful preview.
type Response struct {
	PreviewID string          `json:"preview_id"`
	Chunks    []chunker.Chunk `json:"chunks"`
	Metrics   chunker.Metrics `json:"metrics"`
	Cached    bool            `json:"cached"`
}

// Previewer produces previews.
type Previewer interface {
	Preview(ctx context.Context, req Request) (Response, error)
}

// Error codes carried in error bodies and worker replies.
const (
	CodeInvalidRequest  = "invalid_request"
	CodeUnknownStrategy = "unknown_strategy"
	CodeNotImplemented  = "not_implemented"
	CodeTextTooLarge    = "text_too_large"
	CodeTimeout         = "timeout"
	CodeUnavailable     = "unavailable"
	CodeInternal        = "internal"
)

var codes = []struct {
	err    error
	code   string
	status int
}{
	{chunker.ErrInvalidRequest, CodeInvalidRequest, http.StatusBadRequest},
	{chunker.ErrUnknownStrategy, CodeUnknownStrategy, http.StatusBadRequest},
	{chunker.ErrNotImplemented, CodeNotImplemented, http.StatusNotImplemented},
	{ErrTextTooLarge, CodeTextTooLarge, http.StatusRequestEntityTooLarge},
	{ErrTimeout, CodeTimeout, http.StatusUnprocessableEntity},
	{ErrUnavailable, CodeUnavailable, http.StatusServiceUnavailable},
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.status
		}
	}
	return http.StatusInternalServerError
}

// CodeFor maps an error to its stable error code.
func CodeFor(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

func sentinelFor(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
