package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/service"
)

const equipmentPrefix = "/api/v1/equipment"

type EquipmentHandler struct {
	equipment service.EquipmentService
	logger    *zap.Logger
}

func NewEquipmentHandler(equipment service.EquipmentService, logger *zap.Logger) *EquipmentHandler {
	return &EquipmentHandler{equipment: equipment, logger: logger}
}

func (h *EquipmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := callerFrom(ctx)
	parts := pathTail(r.URL.Path, equipmentPrefix)

	switch len(parts) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			items, err := h.equipment.List(ctx, caller, r.URL.Query().Get("rescuer_id"))
			respond(w, h.logger, items, err)
		case http.MethodPost:
			h.save(w, r, "")
		default:
			methodNotAllowed(w)
		}
	case 1:
		switch r.Method {
		case http.MethodPut:
			h.save(w, r, parts[0])
		case http.MethodDelete:
			respond(w, h.logger, nil, h.equipment.Delete(ctx, caller, parts[0]))
		default:
			methodNotAllowed(w)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *EquipmentHandler) save(w http.ResponseWriter, r *http.Request, id string) {
	var e domain.RescuerEquipment
	if err := readBodyJSON(r, maxBodyBytes, &e); err != nil {
		writeError(w, h.logger, err)
		return
	}
	e.EquipmentID = id
	out, err := h.equipment.Save(r.Context(), callerFrom(r.Context()), &e)
	respond(w, h.logger, out, err)
}
