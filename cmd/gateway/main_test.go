package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chunklab/internal/app"
	"chunklab/internal/cache"
	"chunklab/internal/chunker"
	"chunklab/internal/config"
	"chunklab/internal/httputil"
	"chunklab/internal/preview"
)

func testConfig() config.Config {
	return config.Config{
		MaxTextBytes:     1024,
		MaxUploadSize:    1024 * 1024, // 1MB for tests
		PreviewTimeout:   time.Second,
		TokenizerBackend: "heuristic",
		CacheProvider:    config.CacheNone,
		PreviewBackend:   config.BackendLocal,
		CORSOrigins:      []string{"*"},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestDeps wires a real engine behind the HTTP surface.
func newTestDeps(t *testing.T) app.Deps {
	t.Helper()
	deps, err := app.Assemble(context.Background(), testConfig(), discardLogger(), false)
	require.NoError(t, err)
	return deps
}

// newMockDeps routes previews to a mock.
func newMockDeps(p preview.Previewer) app.Deps {
	return app.Deps{
		Config:    testConfig(),
		Log:       discardLogger(),
		Cache:     cache.NewNoOpCache(),
		Previewer: p,
	}
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestChunkPreview(t *testing.T) {
	h := routes(newTestDeps(t))

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		check      func(*testing.T, preview.Response)
	}{
		{
			name:       "fixed chars",
			body:       `{"text":"abcdefghijklmnopqrstuvwxyz","strategy_key":"fixed","params":{"unit":"chars","size":10,"overlap":2}}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp preview.Response) {
				require.Len(t, resp.Chunks, 4)
				starts := make([]int, len(resp.Chunks))
				for i, c := range resp.Chunks {
					starts[i] = c.StartChar
				}
				assert.Equal(t, []int{0, 8, 16, 24}, starts)
				assert.Equal(t, "yz", resp.Chunks[3].Text)
				assert.Equal(t, 4, resp.Metrics.TotalChunks)
				assert.NotEmpty(t, resp.PreviewID)
			},
		},
		{
			name:       "recursive paragraphs",
			body:       `{"text":"Para one.\n\nPara two.\n\nPara three.","strategy_key":"recursive","params":{"size":15,"overlap":0,"separators":["\n\n"]}}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp preview.Response) {
				require.Len(t, resp.Chunks, 3)
				assert.Equal(t, "Para three.", resp.Chunks[2].Text)
			},
		},
		{
			name:       "structure headers",
			body:       `{"text":"# A\nalpha body\n## B\nbeta body\n","strategy_key":"structure"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp preview.Response) {
				require.Len(t, resp.Chunks, 2)
				assert.Equal(t, 15, resp.Chunks[1].StartChar)
			},
		},
		{
			name:       "empty text",
			body:       `{"text":"","strategy_key":"sentence"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp preview.Response) {
				assert.Empty(t, resp.Chunks)
				assert.Equal(t, chunker.Metrics{}, resp.Metrics)
			},
		},
		{"semantic", `{"text":"x","strategy_key":"semantic"}`, http.StatusNotImplemented, preview.CodeNotImplemented, nil},
		{"unknown strategy", `{"text":"x","strategy_key":"paragraph"}`, http.StatusBadRequest, preview.CodeUnknownStrategy, nil},
		{"missing text", `{"strategy_key":"fixed"}`, http.StatusBadRequest, preview.CodeInvalidRequest, nil},
		{"missing strategy", `{"text":"x"}`, http.StatusBadRequest, preview.CodeInvalidRequest, nil},
		{"malformed json", `{"text":`, http.StatusBadRequest, preview.CodeInvalidRequest, nil},
		{"text too large", fmt.Sprintf(`{"text":%q,"strategy_key":"fixed"}`, strings.Repeat("a", 2000)), http.StatusRequestEntityTooLarge, preview.CodeTextTooLarge, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, h, "/chunk-preview", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			if tt.wantCode != "" {
				var body httputil.ErrorBody
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.wantCode, body.Code)
				assert.NotEmpty(t, body.Error)
				return
			}
			var resp preview.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}
}

func TestChunkPreviewOversizedBody(t *testing.T) {
	h := routes(newTestDeps(t))
	// Limit is 2*1024 + 64KiB.
	body := fmt.Sprintf(`{"text":%q,"strategy_key":"fixed"}`, strings.Repeat("a", 80<<10))
	w := postJSON(t, h, "/chunk-preview", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestChunkPreviewUsesPreviewer(t *testing.T) {
	p := new(preview.MockPreviewer)
	p.On("Preview", mock.Anything, mock.MatchedBy(func(req preview.Request) bool {
		return req.StrategyKey == "fixed" && *req.Text == "hi" && req.Params.Int("size", 0) == 5
	})).Return(preview.Response{PreviewID: "p1", Chunks: []chunker.Chunk{}}, nil).Once()
	p.On("Preview", mock.Anything, mock.Anything).Return(preview.Response{}, preview.ErrUnavailable).Once()

	h := routes(newMockDeps(p))

	w := postJSON(t, h, "/chunk-preview", `{"text":"hi","strategy_key":"fixed","params":{"size":5}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"preview_id": "p1"`)

	w = postJSON(t, h, "/chunk-preview", `{"text":"hi","strategy_key":"recursive"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	p.AssertExpectations(t)
}

func TestUploadHandler(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		content     []byte
		fields      map[string]string
		wantStatus  int
		wantChunks  int
	}{
		{
			name:        "markdown upload",
			filename:    "doc.md",
			contentType: "text/markdown; charset=utf-8",
			content:     []byte("# A\nalpha\n# B\nbeta\n"),
			fields:      map[string]string{"strategy_key": "structure"},
			wantStatus:  http.StatusOK,
			wantChunks:  2,
		},
		{
			name:       "missing Content-Type detects from extension",
			filename:   "test.txt",
			content:    []byte("abcdefghijklmnopqrstuvwxyz"),
			fields:     map[string]string{"strategy_key": "fixed", "params": `{"unit":"chars","size":10,"overlap":2}`},
			wantStatus: http.StatusOK,
			wantChunks: 4,
		},
		{
			name:       "unsupported extension",
			filename:   "test.docx",
			content:    []byte("content"),
			fields:     map[string]string{"strategy_key": "fixed"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "unsupported Content-Type",
			filename:    "test.doc",
			contentType: "application/msword",
			content:     []byte("content"),
			fields:      map[string]string{"strategy_key": "fixed"},
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:       "file too large",
			filename:   "large.txt",
			content:    make([]byte, 2*1024*1024), // 2MB
			fields:     map[string]string{"strategy_key": "fixed"},
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:       "invalid params",
			filename:   "test.txt",
			content:    []byte("content"),
			fields:     map[string]string{"strategy_key": "fixed", "params": "size=10"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing strategy",
			filename:   "test.txt",
			content:    []byte("content"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "broken pdf",
			filename:    "broken.pdf",
			contentType: "application/pdf",
			content:     []byte("not a pdf"),
			fields:      map[string]string{"strategy_key": "fixed"},
			wantStatus:  http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t)
			handler := uploadHandler(deps)

			req, err := createMultipartRequest(tt.filename, tt.contentType, tt.content, tt.fields)
			require.NoError(t, err)

			w := httptest.NewRecorder()
			handler(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusOK {
				var resp preview.Response
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Len(t, resp.Chunks, tt.wantChunks)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		handler := uploadHandler(newTestDeps(t))

		req := httptest.NewRequest(http.MethodPost, "/chunk-preview/upload", nil)
		req.Header.Set("Content-Type", "multipart/form-data")
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestStrategiesEndpoint(t *testing.T) {
	h := routes(newTestDeps(t))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/strategies", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Strategies []chunker.StrategyInfo `json:"strategies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	keys := map[string]bool{}
	for _, s := range body.Strategies {
		keys[s.Key] = s.Available
	}
	assert.Equal(t, map[string]bool{"fixed": true, "recursive": true, "sentence": true, "structure": true, "semantic": false}, keys)
}

func TestPurgeEndpoint(t *testing.T) {
	c := new(cache.MockCache)
	c.On("Purge", mock.Anything).Return(4, nil).Once()
	c.On("Purge", mock.Anything).Return(0, errors.New("redis down")).Once()

	deps := newMockDeps(new(preview.MockPreviewer))
	deps.Cache = c
	h := routes(deps)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cache", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"purged": 4`)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cache", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	c.AssertExpectations(t)
}

func TestHealthAndMetrics(t *testing.T) {
	deps := newTestDeps(t)
	h := routes(deps)

	postJSON(t, h, "/chunk-preview", `{"text":"hello","strategy_key":"fixed"}`)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `chunklab_previews_total{outcome="ok",strategy="fixed"} 1`)
}

func createMultipartRequest(filename, contentType string, content []byte, fields map[string]string) (*http.Request, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, err
		}
	}

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}

	if _, err := part.Write(content); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, "/chunk-preview/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req, nil
}
