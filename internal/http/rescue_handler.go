package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/service"
)

const rescuePrefix = "/api/v1/rescue-requests"

type RescueHandler struct {
	intake service.IntakeService
	rescue service.RescueService
	logger *zap.Logger
}

func NewRescueHandler(intake service.IntakeService, rescue service.RescueService, logger *zap.Logger) *RescueHandler {
	return &RescueHandler{intake: intake, rescue: rescue, logger: logger}
}

// ServeHTTP routes:
//
//	GET  /api/v1/rescue-requests
//	POST /api/v1/rescue-requests
//	GET  /api/v1/rescue-requests/{id}
//	POST /api/v1/rescue-requests/{id}/{accept|assign|start|complete|cancel}
func (h *RescueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, rescuePrefix)
	switch len(parts) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			h.List(w, r)
		case http.MethodPost:
			h.Submit(w, r)
		default:
			methodNotAllowed(w)
		}
	case 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		req, err := h.rescue.Get(r.Context(), callerFrom(r.Context()), parts[0])
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(req))
	case 2:
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Transition(w, r, parts[0], parts[1])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *RescueHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRescueRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp, err := h.intake.Submit(r.Context(), callerFrom(r.Context()), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *RescueHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	since, err := parseTime(q.Get("since"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	until, err := parseTime(q.Get("until"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	req := service.ListRescueRequests{
		RescuerID: q.Get("rescuer_id"),
		Severity:  domain.Severity(q.Get("severity")),
		Mine:      parseBool(q.Get("mine")),
		Since:     since,
		Until:     until,
		Limit:     parseInt(q.Get("limit"), 0),
	}
	for _, s := range splitList(q.Get("status")) {
		req.Statuses = append(req.Statuses, domain.RequestStatus(s))
	}
	items, err := h.rescue.List(r.Context(), callerFrom(r.Context()), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

func (h *RescueHandler) Transition(w http.ResponseWriter, r *http.Request, id, action string) {
	ctx := r.Context()
	caller := callerFrom(ctx)

	var (
		out *domain.RescueRequest
		err error
	)
	switch action {
	case "accept":
		out, err = h.rescue.Accept(ctx, caller, id)
	case "assign":
		var body struct {
			RescuerID string `json:"rescuer_id"`
		}
		if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
			writeError(w, h.logger, err)
			return
		}
		out, err = h.rescue.Assign(ctx, caller, id, body.RescuerID)
	case "start":
		out, err = h.rescue.Start(ctx, caller, id)
	case "complete":
		out, err = h.rescue.Complete(ctx, caller, id)
	case "cancel":
		out, err = h.rescue.Cancel(ctx, caller, id)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(out))
}
