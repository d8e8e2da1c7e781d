package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/service"
)

const (
	alertsPrefix     = "/api/v1/alerts"
	forecastsPrefix  = "/api/v1/forecasts"
	floodZonesPrefix = "/api/v1/flood-zones"
)

// AlertHandler serves alerts, forecasts and flood zones.
type AlertHandler struct {
	alerts service.AlertService
	logger *zap.Logger
}

func NewAlertHandler(alerts service.AlertService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{alerts: alerts, logger: logger}
}

func (h *AlertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	switch {
	case pathHasPrefix(r.URL.Path, forecastsPrefix):
		switch r.Method {
		case http.MethodGet:
			items, err := h.alerts.ListForecasts(ctx, parseInt(q.Get("limit"), 7))
			respond(w, h.logger, items, err)
		case http.MethodPost, http.MethodPut:
			var f domain.WeatherForecast
			if err := readBodyJSON(r, maxBodyBytes, &f); err != nil {
				writeError(w, h.logger, err)
				return
			}
			out, err := h.alerts.UpsertForecast(ctx, callerFrom(ctx), &f)
			respond(w, h.logger, out, err)
		default:
			methodNotAllowed(w)
		}
		return
	case pathHasPrefix(r.URL.Path, floodZonesPrefix):
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		items, err := h.alerts.ListFloodZones(ctx)
		respond(w, h.logger, items, err)
		return
	}

	parts := pathTail(r.URL.Path, alertsPrefix)
	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			items, err := h.alerts.ListActive(ctx, q.Get("zone"))
			respond(w, h.logger, items, err)
		case http.MethodPost:
			var req service.BroadcastRequest
			if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
				writeError(w, h.logger, err)
				return
			}
			out, err := h.alerts.Broadcast(ctx, callerFrom(ctx), req)
			respond(w, h.logger, out, err)
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 1 && parts[0] == "all":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		items, err := h.alerts.ListAll(ctx, callerFrom(ctx), parseInt(q.Get("limit"), 100))
		respond(w, h.logger, items, err)
	case len(parts) == 1:
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		respond(w, h.logger, nil, h.alerts.Delete(ctx, callerFrom(ctx), parts[0]))
	case len(parts) == 2 && parts[1] == "deactivate":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		respond(w, h.logger, nil, h.alerts.Deactivate(ctx, callerFrom(ctx), parts[0]))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
