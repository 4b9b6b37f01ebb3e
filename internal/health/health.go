// Package health serves the liveness and readiness probes.
//
//   - GET /healthz answers 200 while the process can serve HTTP.
//   - GET /readyz runs every registered [Checker] concurrently. A failing
//     critical checker makes the instance unready (503). A failing optional
//     checker only marks it "degraded" and keeps it in rotation: with every
//     generation circuit open the catalog still answers most descriptions.
//
// The readiness body lists each check with its outcome and latency.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Overall probe states.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFail     = "fail"
)

// Checker is a named readiness check.
type Checker struct {
	// Name keys the check in the JSON response ("catalog", "database").
	Name string

	// Critical checks take the instance out of rotation when they fail.
	Critical bool

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

type checkResult struct {
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	Critical   bool    `json:"critical"`
	DurationMS float64 `json:"duration_ms"`
}

type result struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks,omitempty"`
}

// Handler serves the probes. The checker list is fixed at construction.
type Handler struct {
	checkers []Checker
}

// New returns a [Handler] evaluating checkers on each /readyz request.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: StatusOK})
}

// Readyz is the readiness probe.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	results := make([]checkResult, len(h.checkers))
	var wg sync.WaitGroup
	for i, c := range h.checkers {
		wg.Go(func() {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			start := time.Now()
			err := c.Check(ctx)
			res := checkResult{
				Status:     StatusOK,
				Critical:   c.Critical,
				DurationMS: float64(time.Since(start).Microseconds()) / 1000,
			}
			if err != nil {
				res.Status = StatusFail
				res.Error = err.Error()
			}
			results[i] = res
		})
	}
	wg.Wait()

	out := result{Status: StatusOK, Checks: make(map[string]checkResult, len(h.checkers))}
	for i, c := range h.checkers {
		res := results[i]
		out.Checks[c.Name] = res
		if res.Status == StatusOK {
			continue
		}
		slog.Warn("readiness check failed", "check", c.Name, "critical", c.Critical, "err", res.Error)
		switch {
		case c.Critical:
			out.Status = StatusFail
		case out.Status == StatusOK:
			out.Status = StatusDegraded
		}
	}

	code := http.StatusOK
	if out.Status == StatusFail {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, out)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
