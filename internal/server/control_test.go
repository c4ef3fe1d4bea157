package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sahmadiut/pgw-sim/internal/cdr"
	"github.com/sahmadiut/pgw-sim/internal/config"
	"github.com/sahmadiut/pgw-sim/pkg/logger"
)

func newHandlerTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultServerConfig()
	cfg.Blacklist = []string{blacklistedIMSI}
	s, err := New(cfg, logger.Nop(), WithRecorder(cdr.New(&syncBuffer{})))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func TestCheckSubscriber(t *testing.T) {
	s := newHandlerTestServer(t)
	s.Table().Insert(allowedIMSI, nil)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantBody   string
	}{
		{"active", "/check_subscriber?imsi=" + allowedIMSI, http.StatusOK, "active\n"},
		{"unknown", "/check_subscriber?imsi=001010999999999", http.StatusOK, "not active\n"},
		{"empty value", "/check_subscriber?imsi=", http.StatusOK, "not active\n"},
		{"missing parameter", "/check_subscriber", http.StatusBadRequest, "Missing 'imsi' parameter\n"},
		{"other parameter only", "/check_subscriber?id=" + allowedIMSI, http.StatusBadRequest, "Missing 'imsi' parameter\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, http.MethodGet, tt.target)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestCheckSubscriberIsCaseSensitive(t *testing.T) {
	s := newHandlerTestServer(t)
	s.Table().Insert("abc", nil)

	if body := serve(s, http.MethodGet, "/check_subscriber?imsi=ABC").Body.String(); body != "not active\n" {
		t.Errorf("expected case-sensitive lookup, got %q", body)
	}
	if body := serve(s, http.MethodGet, "/check_subscriber?imsi=abc").Body.String(); body != "active\n" {
		t.Errorf("expected exact match to be active, got %q", body)
	}
}

func TestStopHandler(t *testing.T) {
	s := newHandlerTestServer(t)

	rec := serve(s, http.MethodPost, "/stop")
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "stopping\n" {
		t.Errorf("expected body %q, got %q", "stopping\n", rec.Body.String())
	}
	if s.Running() {
		t.Error("running flag should be cleared by /stop")
	}

	// A second request is still answered.
	if rec := serve(s, http.MethodPost, "/stop"); rec.Code != http.StatusOK {
		t.Errorf("repeat /stop returned %d", rec.Code)
	}
}

func TestStopRequiresPost(t *testing.T) {
	s := newHandlerTestServer(t)

	rec := serve(s, http.MethodGet, "/stop")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
	if !s.Running() {
		t.Error("GET /stop must not trigger shutdown")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newHandlerTestServer(t)

	rec := serve(s, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pgw_datagrams_received_total") {
		t.Error("metrics output should include pgw counters")
	}
}

func TestReadinessFollowsShutdown(t *testing.T) {
	s := newHandlerTestServer(t)

	if rec := serve(s, http.MethodGet, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("expected ready before shutdown, got %d", rec.Code)
	}
	if rec := serve(s, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("expected live, got %d", rec.Code)
	}

	s.Shutdown()

	if rec := serve(s, http.MethodGet, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected not ready after shutdown, got %d", rec.Code)
	}
}
