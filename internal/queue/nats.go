package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"chunklab/internal/retry"
)

// Connect dials url, retrying with exponential backoff.
func Connect(ctx context.Context, url string, attempts int, base time.Duration, log *slog.Logger) (*nats.Conn, error) {
	var nc *nats.Conn
	err := retry.Do(ctx, attempts, base, func(attempt int) error {
		var err error
		nc, err = nats.Connect(url, nats.Name("chunklab"))
		if err != nil {
			log.Warn("nats connect failed", "url", url, "attempt", attempt+1, "err", err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// NewNATS constructs a NATS-backed queue. timeout bounds requests whose
// context carries no deadline.
func NewNATS(log *slog.Logger, nc *nats.Conn, timeout time.Duration) Queue {
	return &natsQueue{log: log, nc: nc, timeout: timeout}
}

type natsQueue struct {
	log     *slog.Logger
	nc      *nats.Conn
	timeout time.Duration
}

func (q *natsQueue) Request(ctx context.Context, subject string, body []byte) ([]byte, error) {
	if subject == "" {
		return nil, errors.New("subject required")
	}
	if _, ok := ctx.Deadline(); !ok && q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	msg := nats.NewMsg(subject)
	msg.Header.Set(MsgIDHeader, uuid.NewString())
	msg.Data = body

	reply, err := q.nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return nil, err
	}
	return reply.Data, nil
}

func (q *natsQueue) Serve(ctx context.Context, subject, group string, handler Handler) error {
	sub, err := q.nc.QueueSubscribe(subject, group, func(msg *nats.Msg) {
		q.handleMessage(ctx, msg, handler)
	})
	if err != nil {
		return err
	}
	q.log.Info("serving requests", "subject", subject, "group", group)
	<-ctx.Done()
	return sub.Drain()
}

func (q *natsQueue) handleMessage(ctx context.Context, msg *nats.Msg, handler Handler) {
	m := newMessage(msg, time.Now())
	reply, err := handler(ctx, m)
	if err != nil {
		q.log.Error("request handler failed", "id", m.ID, "subject", m.Subject, "err", err)
		return
	}
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(reply); err != nil {
		q.log.Error("failed to send reply", "id", m.ID, "subject", m.Subject, "err", err)
	}
}

func (q *natsQueue) Close() {
	q.nc.Close()
}

// newMessage copies msg into a Message, reusing the sender's id when it
// carried a valid one.
func newMessage(msg *nats.Msg, now time.Time) Message {
	id := uuid.Nil
	if msg.Header != nil {
		if parsed, err := uuid.Parse(msg.Header.Get(MsgIDHeader)); err == nil {
			id = parsed
		}
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	return Message{ID: id, Subject: msg.Subject, Data: msg.Data, ReceivedAt: now}
}
