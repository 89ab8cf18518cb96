package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/config"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestHealthHandler_Liveness(t *testing.T) {
	cfg := &config.Config{Version: "test-version", Env: "test"}
	handler := NewHealthHandler(cfg, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.Liveness(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if body := rec.Body.String(); body != "ok" {
		t.Errorf("expected body 'ok', got %q", body)
	}
}

func TestHealthHandler_Ping(t *testing.T) {
	cfg := &config.Config{Version: "1.2.3", Env: "test"}
	handler := NewHealthHandler(cfg, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()

	handler.Ping(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
	if response.Version != "1.2.3" {
		t.Errorf("expected version '1.2.3', got '%s'", response.Version)
	}
	if response.Service != "askdb-engine" {
		t.Errorf("expected service 'askdb-engine', got '%s'", response.Service)
	}
	if response.Environment != "test" {
		t.Errorf("expected environment 'test', got '%s'", response.Environment)
	}
	if response.GoVersion == "" {
		t.Error("expected non-empty go_version")
	}
	if response.Hostname == "" {
		t.Error("expected non-empty hostname")
	}
}

func TestHealthHandler_Health_WithoutDB(t *testing.T) {
	cfg := &config.Config{Version: "test-version", Env: "test"}
	handler := NewHealthHandler(cfg, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
	if response.Database != "not_configured" {
		t.Errorf("expected database 'not_configured', got '%s'", response.Database)
	}
	if response.UptimeSeconds < 0 {
		t.Errorf("expected non-negative uptime, got %d", response.UptimeSeconds)
	}
}

func TestHealthHandler_Health_DBReachable(t *testing.T) {
	cfg := &config.Config{Version: "test-version", Env: "test"}
	handler := NewHealthHandler(cfg, fakePinger{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Database != "ok" {
		t.Errorf("expected database 'ok', got '%s'", response.Database)
	}
}

func TestHealthHandler_Health_DBUnreachable(t *testing.T) {
	cfg := &config.Config{Version: "test-version", Env: "test"}
	handler := NewHealthHandler(cfg, fakePinger{err: errors.New("connection refused")}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "degraded" {
		t.Errorf("expected status 'degraded', got '%s'", response.Status)
	}
	if response.Database != "unreachable" {
		t.Errorf("expected database 'unreachable', got '%s'", response.Database)
	}
}

func TestHealthHandler_RegisterRoutes(t *testing.T) {
	cfg := &config.Config{}
	handler := NewHealthHandler(cfg, nil, zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("/health: expected status %d, got %d", http.StatusOK, rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("/ping: expected status %d, got %d", http.StatusOK, rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("/api/health: expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
