package httpapi

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/repository"
	"floodwatch/internal/service"
)

const (
	centersPrefix  = "/api/v1/evacuation-centers"
	evacueesPrefix = "/api/v1/evacuees"
)

type EvacuationHandler struct {
	evacuation service.EvacuationService
	logger     *zap.Logger
}

func NewEvacuationHandler(evacuation service.EvacuationService, logger *zap.Logger) *EvacuationHandler {
	return &EvacuationHandler{evacuation: evacuation, logger: logger}
}

func (h *EvacuationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if pathHasPrefix(r.URL.Path, evacueesPrefix) {
		h.serveEvacuees(w, r, pathTail(r.URL.Path, evacueesPrefix))
		return
	}
	parts := pathTail(r.URL.Path, centersPrefix)
	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			h.ListCenters(w, r)
		case http.MethodPost:
			h.SaveCenter(w, r, "")
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 1 && parts[0] == "nearest":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.Nearest(w, r)
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			v, err := h.evacuation.GetCenter(r.Context(), parts[0])
			respond(w, h.logger, v, err)
		case http.MethodPut:
			h.SaveCenter(w, r, parts[0])
		case http.MethodDelete:
			err := h.evacuation.DeleteCenter(r.Context(), callerFrom(r.Context()), parts[0])
			respond(w, h.logger, nil, err)
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 2 && parts[1] == "evacuees":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		items, err := h.evacuation.ListEvacuees(r.Context(), callerFrom(r.Context()), parts[0],
			parseBool(r.URL.Query().Get("include_checked_out")))
		respond(w, h.logger, items, err)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// serveEvacuees routes POST /api/v1/evacuees and
// POST /api/v1/evacuees/{id}/check-out.
func (h *EvacuationHandler) serveEvacuees(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	switch {
	case len(parts) == 0:
		var req service.CheckInRequest
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
		resp, err := h.evacuation.CheckIn(r.Context(), callerFrom(r.Context()), req)
		respond(w, h.logger, resp, err)
	case len(parts) == 2 && parts[1] == "check-out":
		resp, err := h.evacuation.CheckOut(r.Context(), callerFrom(r.Context()), parts[0])
		respond(w, h.logger, resp, err)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *EvacuationHandler) ListCenters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.evacuation.ListCenters(r.Context(), repository.CentersFilter{
		Barangay: q.Get("barangay"),
		Status:   domain.CenterStatus(q.Get("status")),
	})
	respond(w, h.logger, items, err)
}

func (h *EvacuationHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusOK, Fail("lat and lng are required"))
		return
	}
	items, err := h.evacuation.NearestOpen(r.Context(), lat, lng, parseInt(q.Get("limit"), 5))
	respond(w, h.logger, items, err)
}

func (h *EvacuationHandler) SaveCenter(w http.ResponseWriter, r *http.Request, id string) {
	var c domain.EvacuationCenter
	if err := readBodyJSON(r, maxBodyBytes, &c); err != nil {
		writeError(w, h.logger, err)
		return
	}
	c.CenterID = id
	v, err := h.evacuation.SaveCenter(r.Context(), callerFrom(r.Context()), &c)
	respond(w, h.logger, v, err)
}
