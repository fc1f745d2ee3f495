package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestReadyHandler_OK(t *testing.T) {
	handler := NewReadyHandler(nil, func(ctx context.Context) error { return nil })

	req := httptest.NewRequest("GET", "/api/ready", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %s", body["status"])
	}
}

func TestReadyHandler_Down(t *testing.T) {
	handler := NewReadyHandler(nil, func(ctx context.Context) error { return errors.New("login rejected") })

	req := httptest.NewRequest("GET", "/api/ready", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestReadyHandler_CheckIsBounded(t *testing.T) {
	handler := NewReadyHandler(nil, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	handler.timeout = 20 * time.Millisecond

	req := httptest.NewRequest("GET", "/api/ready", nil)
	w := httptest.NewRecorder()

	start := time.Now()
	handler.ServeHTTP(w, req)

	if time.Since(start) > time.Second {
		t.Error("expected readiness check to honour its timeout")
	}
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}
