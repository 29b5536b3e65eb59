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

func TestHealthHandlers_Healthz(t *testing.T) {
	now := time.Date(2024, 3, 18, 9, 30, 0, 0, time.UTC)
	h := NewHealthHandlers(WithHealthClock(func() time.Time { return now }))

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("status field = %v, want ok", resp["status"])
	}
	if resp["timestamp"] != now.Format(time.RFC3339) {
		t.Fatalf("timestamp = %v", resp["timestamp"])
	}
}

func TestHealthHandlers_ReadyzReportsChecks(t *testing.T) {
	h := NewHealthHandlers(
		WithReadinessCheck("firestore", func(context.Context) error { return nil }),
		WithReadinessCheck("gateway", func(context.Context) error { return nil }),
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("status = %q, want ok", resp.Status)
	}
	if resp.Checks["firestore"] != "ok" || resp.Checks["gateway"] != "ok" {
		t.Fatalf("checks = %v", resp.Checks)
	}
}

func TestHealthHandlers_ReadyzFailingCheck(t *testing.T) {
	h := NewHealthHandlers(
		WithReadinessCheck("firestore", func(context.Context) error { return errors.New("deadline exceeded") }),
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var resp struct {
		Status  string            `json:"status"`
		Checks  map[string]string `json:"checks"`
		Details []string          `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "unavailable" || resp.Checks["firestore"] != "unavailable" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Details) != 1 {
		t.Fatalf("details = %v, want one entry", resp.Details)
	}
}
