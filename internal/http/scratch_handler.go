package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"floodwatch/internal/service"
)

const scratchPrefix = "/api/v1/scratch"

// ScratchHandler GET/PUT /api/v1/scratch/{kind}.
type ScratchHandler struct {
	scratch service.ScratchService
	logger  *zap.Logger
}

func NewScratchHandler(scratch service.ScratchService, logger *zap.Logger) *ScratchHandler {
	return &ScratchHandler{scratch: scratch, logger: logger}
}

func (h *ScratchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, scratchPrefix)
	if len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		doc, err := h.scratch.Get(ctx, callerFrom(ctx), parts[0])
		respond(w, h.logger, doc, err)
	case http.MethodPut:
		// one byte over the limit so the service can reject oversize documents
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		respond(w, h.logger, nil, h.scratch.Put(ctx, callerFrom(ctx), parts[0], json.RawMessage(body)))
	default:
		methodNotAllowed(w)
	}
}
