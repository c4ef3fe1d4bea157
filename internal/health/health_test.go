package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHandler(t *testing.T) {
	t.Run("zero timeout uses default", func(t *testing.T) {
		h := NewHandler(0)
		if h.checkTimeout != DefaultCheckTimeout {
			t.Errorf("expected %v timeout, got %v", DefaultCheckTimeout, h.checkTimeout)
		}
	})

	t.Run("with custom timeout", func(t *testing.T) {
		h := NewHandler(10 * time.Second)
		if h.checkTimeout != 10*time.Second {
			t.Errorf("expected 10s timeout, got %v", h.checkTimeout)
		}
	})
}

func TestHandler_RegisterCheck(t *testing.T) {
	h := NewHandler(0)
	h.RegisterCheck("test", func(ctx context.Context) error {
		return nil
	})

	h.checksMu.RLock()
	_, exists := h.checks["test"]
	h.checksMu.RUnlock()

	if !exists {
		t.Error("check should be registered")
	}
}

func TestHandler_Healthz(t *testing.T) {
	h := NewHandler(0)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.Healthz()(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var response Response
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %v", response.Status)
	}
}

func TestHandler_Readyz(t *testing.T) {
	t.Run("healthy with no checks", func(t *testing.T) {
		h := NewHandler(0)
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()

		h.Readyz()(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}

		var response Response
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.Status != StatusHealthy {
			t.Errorf("expected status healthy, got %v", response.Status)
		}
	})

	t.Run("healthy with passing checks", func(t *testing.T) {
		h := NewHandler(0)
		h.RegisterCheck("check1", func(ctx context.Context) error {
			return nil
		})
		h.RegisterCheck("check2", func(ctx context.Context) error {
			return nil
		})

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()

		h.Readyz()(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}

		var response Response
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.Status != StatusHealthy {
			t.Errorf("expected status healthy, got %v", response.Status)
		}
		if len(response.Checks) != 2 {
			t.Errorf("expected 2 checks, got %d", len(response.Checks))
		}
	})

	t.Run("unhealthy with failing check", func(t *testing.T) {
		h := NewHandler(0)
		h.RegisterCheck("check1", func(ctx context.Context) error {
			return nil
		})
		h.RegisterCheck("check2", func(ctx context.Context) error {
			return errors.New("event loop stopped")
		})

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()

		h.Readyz()(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rec.Code)
		}

		var response Response
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.Status != StatusUnhealthy {
			t.Errorf("expected status unhealthy, got %v", response.Status)
		}
	})
}

func TestStatus_String(t *testing.T) {
	if StatusHealthy != "healthy" {
		t.Error("StatusHealthy should be 'healthy'")
	}
	if StatusUnhealthy != "unhealthy" {
		t.Error("StatusUnhealthy should be 'unhealthy'")
	}
}

func TestHandler_Check(t *testing.T) {
	h := NewHandler(time.Second)
	h.RegisterCheck("worker_pool", func(ctx context.Context) error {
		return nil
	})
	h.RegisterCheck("event_loop", func(ctx context.Context) error {
		return errors.New("shutdown in progress")
	})

	response := h.Check(context.Background())
	if response.Status != StatusUnhealthy {
		t.Errorf("expected status unhealthy, got %v", response.Status)
	}
	if response.Failed != 1 {
		t.Errorf("expected 1 failed check, got %d", response.Failed)
	}
	if len(response.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(response.Checks))
	}
	if response.Checks[0].Name != "event_loop" || response.Checks[1].Name != "worker_pool" {
		t.Errorf("expected checks sorted by name, got %s, %s", response.Checks[0].Name, response.Checks[1].Name)
	}
	if response.Checks[0].Message != "shutdown in progress" {
		t.Errorf("unexpected message %q", response.Checks[0].Message)
	}
}

func TestHandler_CheckTimeout(t *testing.T) {
	h := NewHandler(20 * time.Millisecond)
	h.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	response := h.Check(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("check did not honour timeout, took %v", elapsed)
	}
	if response.Status != StatusUnhealthy {
		t.Errorf("expected status unhealthy, got %v", response.Status)
	}
}

func TestFlagCheck(t *testing.T) {
	up := true
	check := FlagCheck(func() bool { return up }, "event loop stopped")

	if err := check(context.Background()); err != nil {
		t.Errorf("expected nil while up, got %v", err)
	}
	up = false
	err := check(context.Background())
	if err == nil || err.Error() != "event loop stopped" {
		t.Errorf("expected reason once down, got %v", err)
	}
}

func TestHandler_HealthzReportsUptime(t *testing.T) {
	h := NewHandler(0)
	h.RegisterCheck("event_loop", FlagCheck(func() bool { return false }, "stopped"))

	rec := httptest.NewRecorder()
	h.Healthz()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("liveness must not depend on checks, got %d", rec.Code)
	}
	var response Response
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Uptime == "" {
		t.Error("expected uptime in liveness response")
	}
}
