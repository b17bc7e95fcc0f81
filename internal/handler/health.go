package handler

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db     Pinger
	checks map[string]Pinger
}

// NewHealthHandler creates a new health handler. The database is always
// checked; extra checks are added with WithCheck.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		checks: make(map[string]Pinger),
	}
}

// WithCheck adds a named dependency to the readiness check.
func (h *HealthHandler) WithCheck(name string, p Pinger) *HealthHandler {
	h.checks[name] = p
	return h
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db == nil || h.db.Ping(ctx) != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"reason": "database unreachable",
		})
		return
	}

	var down []string
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			down = append(down, name)
		}
	}
	if len(down) > 0 {
		sort.Strings(down)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":      "not ready",
			"reason":      "dependency unreachable",
			"unreachable": down,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
