package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil).Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name   string
		deps   map[string]Pinger
		status int
		redis  string
	}{
		{"no dependencies", map[string]Pinger{"redis": nil}, http.StatusOK, ""},
		{"healthy", map[string]Pinger{"redis": pingFunc(func(context.Context) error { return nil })}, http.StatusOK, "ok"},
		{"unhealthy", map[string]Pinger{"redis": pingFunc(func(context.Context) error { return errors.New("refused") })}, http.StatusServiceUnavailable, "unhealthy: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.deps).Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body struct {
				Checks map[string]string `json:"checks"`
			}
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body.Checks["redis"] != tt.redis {
				t.Errorf("redis check = %q, want %q", body.Checks["redis"], tt.redis)
			}
		})
	}
}
