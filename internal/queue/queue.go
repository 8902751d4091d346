package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"chunklab/internal/retry"
)

// MsgIDHeader carries the request id across the broker.
const MsgIDHeader = "Msg-Id"

// Message is one request delivered to a Handler.
type Message struct {
	ID         uuid.UUID
	Subject    string
	Data       []byte
	ReceivedAt time.Time
}

// Handler produces the reply body for a request. Returning an error drops
// the request without a reply.
type Handler func(context.Context, Message) ([]byte, error)

// Requester sends a request and waits for its reply.
type Requester interface {
	Request(ctx context.Context, subject string, body []byte) ([]byte, error)
}

// Queue exposes request/reply over a shared subject with load-balanced
// consumers.
type Queue interface {
	Requester
	Serve(ctx context.Context, subject, group string, handler Handler) error
	Close()
}

// RequestWithRetry retries requests that failed transiently with
// exponential backoff. Other failures, and any failure once ctx has ended,
// are returned after the first attempt.
func RequestWithRetry(ctx context.Context, q Requester, subject string, body []byte, attempts int, base time.Duration) ([]byte, error) {
	var reply []byte
	err := retry.Do(ctx, attempts, base, func(int) error {
		var err error
		reply, err = q.Request(ctx, subject, body)
		if err != nil && (ctx.Err() != nil || !IsTransient(err)) {
			return retry.Permanent(err)
		}
		return err
	})
	return reply, err
}

// IsTransient reports whether a request failed because no worker was
// listening or none answered in time.
func IsTransient(err error) bool {
	return errors.Is(err, nats.ErrNoResponders) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
