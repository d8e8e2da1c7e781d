package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"floodwatch/internal/config"
	"floodwatch/internal/domain"
	"floodwatch/internal/geo"
	"floodwatch/internal/routing"
)

// RoutePlanner is satisfied by *routing.Client.
type RoutePlanner interface {
	Route(ctx context.Context, origin, dest routing.Point) *routing.Route
}

// MapHandler serves tile layer settings, the initial map center and
// evacuation routes.
type MapHandler struct {
	tiles    []config.TileProvider
	planner  RoutePlanner
	fallback geo.Position
	logger   *zap.Logger
}

// NewMapHandler; fallback is the fixed point used when the caller has no
// known position.
func NewMapHandler(tiles []config.TileProvider, planner RoutePlanner, fallback geo.Position, logger *zap.Logger) *MapHandler {
	return &MapHandler{tiles: tiles, planner: planner, fallback: fallback, logger: logger}
}

func (h *MapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	switch r.URL.Path {
	case "/api/v1/map/tiles":
		tiles := h.tiles
		if tiles == nil {
			tiles = []config.TileProvider{}
		}
		writeJSON(w, http.StatusOK, Ok(tiles))
	case "/api/v1/map/center":
		h.Center(w, r)
	case "/api/v1/routes":
		h.Route(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Route GET /api/v1/routes?from=lat,lng&to=lat,lng. Never fails once the
// coordinates parse; the planner falls back to a straight line.
func (h *MapHandler) Route(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fromLat, fromLng, err := parseLatLng(q.Get("from"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	toLat, toLng, err := parseLatLng(q.Get("to"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	route := h.planner.Route(r.Context(),
		routing.Point{Lat: fromLat, Lng: fromLng},
		routing.Point{Lat: toLat, Lng: toLng})
	writeJSON(w, http.StatusOK, Ok(route))
}

// Center resolves where the map opens: the caller's last reported position,
// or the configured fallback with degraded set.
func (h *MapHandler) Center(w http.ResponseWriter, r *http.Request) {
	var provider geo.Provider
	if caller := callerFrom(r.Context()); caller != nil {
		provider = lastKnown(caller)
	}
	writeJSON(w, http.StatusOK, Ok(geo.Resolve(r.Context(), provider, geo.Options{}, h.fallback)))
}

func lastKnown(p *domain.Profile) geo.Provider {
	return geo.ProviderFunc(func(context.Context, geo.Options) (geo.Position, error) {
		if p.LastKnownLat == nil || p.LastKnownLng == nil {
			return geo.Position{}, geo.ErrPositionUnavailable
		}
		pos := geo.Position{Lat: *p.LastKnownLat, Lng: *p.LastKnownLng}
		if p.LastActiveAt != nil {
			pos.Timestamp = *p.LastActiveAt
		}
		return pos, nil
	})
}
