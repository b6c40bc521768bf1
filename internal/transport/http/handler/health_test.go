package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthEngine(h *HealthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/healthz", h.Check)
	return r
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(HealthInfo{
		SessionCount: func() int { return 2 },
		VisionLoaded: func() bool { return false },
	})
	r := healthEngine(h)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"message":"RAG Chatbot API is running"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","cnn_model_loaded":false,"sessions":2}`, w.Body.String())
}

func TestCheck(t *testing.T) {
	ok := DependencyCheck{Name: "redis", Check: func(context.Context) error { return nil }}
	down := DependencyCheck{Name: "mysql", Check: func(context.Context) error { return errors.New("dial tcp: refused") }}
	info := HealthInfo{AppName: "docqa", Env: "test", StartedAt: time.Now()}

	w := serve(healthEngine(NewHealthHandler(info, ok)), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":{"ok":true}`)

	w = serve(healthEngine(NewHealthHandler(info, ok, down)), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, map[string]any{"ok": false, "message": "dial tcp: refused"}, deps["mysql"])
}
