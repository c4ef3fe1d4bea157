// Package health provides liveness and readiness endpoints for the PGW control plane.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is serving.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is stopped or stopping.
	StatusUnhealthy Status = "unhealthy"
)

// Check is a function that performs a health check.
type Check func(ctx context.Context) error

// FlagCheck turns a liveness flag into a Check that fails with reason
// once the flag reads false.
func FlagCheck(up func() bool, reason string) Check {
	return func(ctx context.Context) error {
		if !up() {
			return errors.New(reason)
		}
		return nil
	}
}

// CheckResult represents the result of a health check.
type CheckResult struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency"`
}

// Response is the health check response.
type Response struct {
	Status    Status        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime,omitempty"`
	Checks    []CheckResult `json:"checks,omitempty"`
	Failed    int           `json:"failed,omitempty"`
}

// DefaultCheckTimeout bounds a readiness pass when no timeout is given.
const DefaultCheckTimeout = 5 * time.Second

// Handler serves /healthz and /readyz from a registry of named checks.
type Handler struct {
	checks       map[string]Check
	checksMu     sync.RWMutex
	checkTimeout time.Duration
	started      time.Time
}

// NewHandler creates a health handler whose readiness pass is bounded by
// checkTimeout. Zero or less means DefaultCheckTimeout.
func NewHandler(checkTimeout time.Duration) *Handler {
	if checkTimeout <= 0 {
		checkTimeout = DefaultCheckTimeout
	}
	return &Handler{
		checks:       make(map[string]Check),
		checkTimeout: checkTimeout,
		started:      time.Now(),
	}
}

// RegisterCheck registers a readiness check, replacing any with the same name.
func (h *Handler) RegisterCheck(name string, check Check) {
	h.checksMu.Lock()
	defer h.checksMu.Unlock()
	h.checks[name] = check
}

// Healthz answers liveness probes. It never runs checks: a process that can
// answer HTTP is alive.
func (h *Handler) Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, &Response{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
			Uptime:    time.Since(h.started).Truncate(time.Second).String(),
		})
	}
}

// Readyz runs every registered check and answers 200 if all pass, 503 otherwise.
func (h *Handler) Readyz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := h.Check(r.Context())
		status := http.StatusOK
		if response.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, response)
	}
}

// Check runs every registered check once and returns the aggregate result.
func (h *Handler) Check(ctx context.Context) *Response {
	ctx, cancel := context.WithTimeout(ctx, h.checkTimeout)
	defer cancel()

	h.checksMu.RLock()
	checks := make(map[string]Check, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.checksMu.RUnlock()

	response := &Response{
		Status: StatusHealthy,
		Checks: make([]CheckResult, 0, len(checks)),
	}

	results := make(chan CheckResult, len(checks))
	var wg sync.WaitGroup
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			start := time.Now()
			err := check(ctx)
			r := CheckResult{Name: name, Status: StatusHealthy, Latency: time.Since(start)}
			if err != nil {
				r.Status = StatusUnhealthy
				r.Message = err.Error()
			}
			results <- r
		}(name, check)
	}
	wg.Wait()
	close(results)

	for r := range results {
		response.Checks = append(response.Checks, r)
		if r.Status == StatusUnhealthy {
			response.Status = StatusUnhealthy
			response.Failed++
		}
	}
	sort.Slice(response.Checks, func(i, j int) bool {
		return response.Checks[i].Name < response.Checks[j].Name
	})
	response.Timestamp = time.Now()

	return response
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
