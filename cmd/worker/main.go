package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"chunklab/internal/app"
	"chunklab/internal/httputil"
	"chunklab/internal/preview"
	"chunklab/internal/queue"
)

const workerGroup = "preview-workers"

func main() {
	deps, err := app.BuildWorker("worker")
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()
	deps.Log.Info("preview worker starting", "subject", deps.Config.QueueSubject)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Serve preview requests
	g.Go(func() error {
		return deps.Queue.Serve(ctx, deps.Config.QueueSubject, workerGroup, handler(deps))
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, deps.Config.Port, promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("worker stopped", "err", err)
	}
}

func handler(deps app.Deps) queue.Handler {
	return func(ctx context.Context, msg queue.Message) ([]byte, error) {
		deps.Log.Debug("preview request received", "id", msg.ID, "bytes", len(msg.Data))
		return preview.HandleRequest(ctx, deps.Previewer, msg.Data), nil
	}
}
