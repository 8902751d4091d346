package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chunklab/internal/app"
	"chunklab/internal/chunker"
	"chunklab/internal/extract"
	"chunklab/internal/httputil"
	"chunklab/internal/preview"
)

func main() {
	deps, err := app.Build("gateway")
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           routes(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	deps.Log.Info("gateway listening", "addr", srv.Addr, "backend", deps.Config.PreviewBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		deps.Log.Error("server failed", "err", err)
	}
}

func routes(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log, deps.Config.CORSOrigins)

	r.Post("/chunk-preview", previewHandler(deps))
	r.Post("/chunk-preview/upload", uploadHandler(deps))
	r.Get("/strategies", strategiesHandler())
	r.Delete("/cache", purgeHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

// bodyLimit leaves room for JSON escaping and params around the text.
func bodyLimit(deps app.Deps) int64 {
	return 2*int64(deps.Config.MaxTextBytes) + 64<<10
}

func previewHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req preview.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, bodyLimit(deps))).Decode(&req); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writePreviewError(deps, w, fmt.Errorf("%w: request body exceeds %d bytes", preview.ErrTextTooLarge, maxErr.Limit))
				return
			}
			writePreviewError(deps, w, fmt.Errorf("%w: invalid JSON body", chunker.ErrInvalidRequest))
			return
		}
		runPreview(deps, w, r, req)
	}
}

func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxFileSize {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), preview.CodeTextTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+1<<20)

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "file is required", preview.CodeInvalidRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), preview.CodeTextTooLarge)
			return
		}

		contentType := extract.TypeFor(header.Filename)
		if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
			if parsed, _, err := mime.ParseMediaType(ct); err == nil {
				contentType = parsed
			}
		}
		if !extract.Allowed(contentType) {
			httputil.WriteError(w, http.StatusBadRequest, "unsupported file type (only TXT, Markdown and PDF allowed)", preview.CodeInvalidRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}
		text, err := extract.Text(header.Filename, contentType, content)
		if err != nil {
			deps.Log.Warn("text extraction failed", "filename", header.Filename, "err", err)
			httputil.WriteError(w, http.StatusUnprocessableEntity, "could not extract text from file", preview.CodeInvalidRequest)
			return
		}

		req := preview.Request{Text: &text, StrategyKey: r.FormValue("strategy_key")}
		if raw := r.FormValue("params"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Params); err != nil {
				writePreviewError(deps, w, fmt.Errorf("%w: params must be a JSON object", chunker.ErrInvalidRequest))
				return
			}
		}
		runPreview(deps, w, r, req)
	}
}

func runPreview(deps app.Deps, w http.ResponseWriter, r *http.Request, req preview.Request) {
	resp, err := deps.Previewer.Preview(r.Context(), req)
	if err != nil {
		writePreviewError(deps, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func writePreviewError(deps app.Deps, w http.ResponseWriter, err error) {
	status := preview.StatusFor(err)
	if status >= http.StatusInternalServerError {
		deps.Log.Error("preview failed", "err", err, "status", status)
	}
	httputil.WriteError(w, status, err.Error(), preview.CodeFor(err))
}

func strategiesHandler() http.HandlerFunc {
	catalog := chunker.Catalog()
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"strategies": catalog})
	}
}

func purgeHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Cache.Purge(r.Context())
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to purge cache", err, http.StatusInternalServerError)
			return
		}
		deps.Log.Info("preview cache purged", "keys", n)
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"purged": n})
	}
}
