package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/service"
)

type ProfileHandler struct {
	profiles service.ProfileService
	logger   *zap.Logger
}

func NewProfileHandler(profiles service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := callerFrom(ctx)

	switch r.URL.Path {
	case "/api/v1/profiles":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		items, err := h.profiles.ListByRole(ctx, caller, domain.Role(r.URL.Query().Get("role")))
		respond(w, h.logger, items, err)
	case "/api/v1/profiles/me":
		switch r.Method {
		case http.MethodGet:
			p, err := h.profiles.Me(ctx, caller)
			respond(w, h.logger, p, err)
		case http.MethodPatch, http.MethodPut:
			var req service.UpdateProfileRequest
			if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
				writeError(w, h.logger, err)
				return
			}
			p, err := h.profiles.UpdateMe(ctx, caller, req)
			respond(w, h.logger, p, err)
		default:
			methodNotAllowed(w)
		}
	case "/api/v1/profiles/me/location":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var req service.LocationUpdate
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
		res, err := h.profiles.UpdateLocation(ctx, caller, sessionFrom(ctx), req)
		respond(w, h.logger, res, err)
	case "/api/v1/rescuers/roster":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		items, err := h.profiles.Roster(ctx, caller)
		respond(w, h.logger, items, err)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
