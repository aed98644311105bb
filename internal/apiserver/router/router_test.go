package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanq-io/hanq/internal/apiserver/handler"
	"github.com/hanq-io/hanq/internal/apiserver/loader"
	"github.com/hanq-io/hanq/internal/model"
)

type stubService struct{}

func (stubService) Query(ctx context.Context, req *model.QARequest) (*model.QAResult, error) {
	return &model.QAResult{Question: req.Question}, nil
}

func (stubService) Index(ctx context.Context, path string, recreate bool) (*model.IndexStats, error) {
	return &model.IndexStats{}, nil
}

func (stubService) Stats(ctx context.Context) (map[string]any, error) {
	return map[string]any{"collection": "korquad_docs"}, nil
}

func newTestEngine(t *testing.T, cfg Config) http.Handler {
	t.Helper()

	ldr := loader.New(nil, "data/korquad.json")
	ldr.MarkReady("ready")

	infoFn := func(ctx context.Context) (*model.SystemInfo, error) {
		return &model.SystemInfo{Version: "test"}, nil
	}

	h := handler.NewQAHandler(stubService{}, ldr, infoFn, 60*time.Second, "data/korquad.json")
	return New(h, cfg)
}

func TestRoutes(t *testing.T) {
	engine := newTestEngine(t, Config{})

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/v1/qa", `{"question":"한국의 수도는 어디인가요?"}`, http.StatusOK},
		{http.MethodGet, "/v1/stats", "", http.StatusOK},
		{http.MethodGet, "/v1/system/info", "", http.StatusOK},
		{http.MethodGet, "/v1/loading/status", "", http.StatusOK},
		{http.MethodGet, "/v1/nonexistent", "", http.StatusNotFound},
	}

	for _, tc := range cases {
		var body *strings.Reader
		if tc.body != "" {
			body = strings.NewReader(tc.body)
		} else {
			body = strings.NewReader("")
		}

		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, body)
		if tc.body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		engine.ServeHTTP(w, req)
		assert.Equalf(t, tc.want, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRequestIDHeaderOnResponses(t *testing.T) {
	engine := newTestEngine(t, Config{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORSEnabled(t *testing.T) {
	engine := newTestEngine(t, Config{EnableCORS: true})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/v1/qa", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
