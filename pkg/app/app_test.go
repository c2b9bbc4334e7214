package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"lanesched/pkg/config"
	"lanesched/pkg/logger"
	"lanesched/pkg/middleware"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	return f.err
}

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		db       Pinger
		expected int
	}{
		{name: "reachable", db: fakePinger{}, expected: http.StatusOK},
		{name: "unreachable", db: fakePinger{err: errors.New("no reachable servers")}, expected: http.StatusServiceUnavailable},
		{name: "not configured", db: nil, expected: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(tt.db, logger.Discard()).RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rec.Code != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, rec.Code)
			}
		})
	}
}

type echoHandler struct {
	calls int
}

func (e *echoHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/echo", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		e.calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":"ok"}`))
	})
}

func newTestApplication(h *echoHandler) *Application {
	cfg := config.FromEnv()
	cfg.Log = logger.Discard()
	cfg.RateLimitRequests = 100
	cfg.RateLimitWindow = time.Minute
	cfg.RequestTimeout = time.Second
	cfg.IdempotencyTTL = time.Minute
	cfg.MaxRequestSize = 1024

	a := NewApplication(cfg)
	a.SetApp(h)
	return a
}

func TestApplication_MiddlewareStack(t *testing.T) {
	h := &echoHandler{}
	a := newTestApplication(h)
	defer a.idempotencyStore.Stop()
	defer a.rateLimiter.Stop()
	handler := a.Handler()

	post := func(body, contentType, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/echo", strings.NewReader(body))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if key != "" {
			req.Header.Set(middleware.IdempotencyHeader, key)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := post(`{}`, "application/json", ""); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec := post(`{}`, "text/plain", ""); rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}

	first := post(`{}`, "application/json", "k-1")
	second := post(`{}`, "application/json", "k-1")
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("expected both idempotent calls to succeed, got %d and %d", first.Code, second.Code)
	}
	if second.Header().Get(middleware.ReplayedHeader) == "" {
		t.Error("expected the second call to be a replay")
	}
	if h.calls != 2 {
		t.Errorf("expected the handler to run twice (once plain, once keyed), got %d", h.calls)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected /health 200, got %d", rec.Code)
	}
}
