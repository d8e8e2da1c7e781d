package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Router uses the standard library http.ServeMux; every handler owns its
// own path switch.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// handleTree registers h for both the collection path and its subtree.
func (r *Router) handleTree(base string, h http.Handler) {
	r.mux.Handle(base, h)
	r.mux.Handle(base+"/", h)
}

// Handlers everything the API serves; nil entries are skipped.
type Handlers struct {
	Auth       *AuthHandler
	Rescue     *RescueHandler
	Evacuation *EvacuationHandler
	Alerts     *AlertHandler
	Profiles   *ProfileHandler
	Equipment  *EquipmentHandler
	Scratch    *ScratchHandler
	Map        *MapHandler
	Reports    *ReportHandler
	Changes    *ChangesHandler

	// Checks back /health; any failing check answers 503.
	Checks map[string]HealthCheck
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) bool

const healthTimeout = 2 * time.Second

// Register mounts all API routes under /api/v1 plus /health.
func (r *Router) Register(h Handlers) {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), healthTimeout)
		defer cancel()
		status := map[string]string{"status": "ok"}
		healthy := true
		for name, check := range h.Checks {
			if check(ctx) {
				status[name] = "ok"
				continue
			}
			status[name] = "down"
			healthy = false
		}
		if !healthy {
			status["status"] = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, Result[map[string]string]{
				Code: ResultError, Type: "error", Message: "degraded", Result: status,
			})
			return
		}
		writeJSON(w, http.StatusOK, Ok(status))
	})
	if h.Auth != nil {
		r.handleTree("/api/v1/auth", h.Auth)
	}
	if h.Rescue != nil {
		r.handleTree("/api/v1/rescue-requests", h.Rescue)
	}
	if h.Evacuation != nil {
		r.handleTree("/api/v1/evacuation-centers", h.Evacuation)
		r.handleTree("/api/v1/evacuees", h.Evacuation)
	}
	if h.Alerts != nil {
		r.handleTree("/api/v1/alerts", h.Alerts)
		r.handleTree("/api/v1/forecasts", h.Alerts)
		r.handleTree("/api/v1/flood-zones", h.Alerts)
	}
	if h.Profiles != nil {
		r.handleTree("/api/v1/profiles", h.Profiles)
		r.handleTree("/api/v1/rescuers", h.Profiles)
	}
	if h.Equipment != nil {
		r.handleTree("/api/v1/equipment", h.Equipment)
	}
	if h.Scratch != nil {
		r.handleTree("/api/v1/scratch", h.Scratch)
	}
	if h.Map != nil {
		r.handleTree("/api/v1/map", h.Map)
		r.handleTree("/api/v1/routes", h.Map)
	}
	if h.Reports != nil {
		r.handleTree("/api/v1/reports", h.Reports)
	}
	if h.Changes != nil {
		r.HandleHandler("/api/v1/changes", h.Changes)
	}
}
