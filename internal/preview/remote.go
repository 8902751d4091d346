package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chunklab/internal/queue"
)

// Remote forwards previews to a worker over request/reply. Requests that
// find no worker, or time out waiting for one, are retried.
type Remote struct {
	log      *slog.Logger
	q        queue.Requester
	subject  string
	attempts int
	base     time.Duration
}

// NewRemote builds a Remote making up to attempts requests per preview,
// backing off exponentially from base between them.
func NewRemote(log *slog.Logger, q queue.Requester, subject string, attempts int, base time.Duration) *Remote {
	return &Remote{log: log, q: q, subject: subject, attempts: attempts, base: base}
}

func (r *Remote) Preview(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode preview request: %w", err)
	}

	data, err := queue.RequestWithRetry(ctx, r.q, r.subject, body, r.attempts, r.base)
	if err != nil {
		r.log.Warn("worker request failed", "subject", r.subject, "err", err)
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var reply Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		return Response{}, fmt.Errorf("decode worker reply: %w", err)
	}
	if reply.Error != "" {
		r.log.Debug("worker returned error", "code", reply.Code, "err", reply.Error)
		return Response{}, &remoteError{code: reply.Code, msg: reply.Error}
	}
	if reply.Response == nil {
		return Response{}, errors.New("worker reply has neither response nor error")
	}
	return *reply.Response, nil
}

// remoteError carries a worker-side failure. It unwraps to the sentinel
// named by its code so errors.Is keeps working across the wire.
type remoteError struct {
	code string
	msg  string
}

func (e *remoteError) Error() string { return e.msg }

func (e *remoteError) Unwrap() error { return sentinelFor(e.code) }
