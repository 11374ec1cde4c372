package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dineflow/api/internal/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	handler := middleware.RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/outlets/x", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["status"] != int64(http.StatusNotFound) {
		t.Errorf("status field: got %v", ctx["status"])
	}
	if ctx["path"] != "/outlets/x" {
		t.Errorf("path field: got %v", ctx["path"])
	}
	if entries[0].Level != zap.WarnLevel {
		t.Errorf("level: got %v, want warn", entries[0].Level)
	}
}
