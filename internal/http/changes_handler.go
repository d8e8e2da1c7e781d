package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/realtime"
)

const (
	changesBuffer      = 64
	changesHeartbeat   = 25 * time.Second
	defaultChangeTable = realtime.TableRescueRequests
)

var subscribableTables = map[string]bool{
	realtime.TableRescueRequests:    true,
	realtime.TableEvacuationCenters: true,
	realtime.TableEvacuees:          true,
	realtime.TableRescuerEquipment:  true,
	realtime.TableWeatherAlerts:     true,
	realtime.TableWeatherForecast:   true,
	realtime.TableFloodZones:        true,
	realtime.TableProfiles:          true,
}

// ChangesHandler streams table changes as server-sent events:
//
//	GET /api/v1/changes?table=rescue_requests&table=weather_alerts
//	GET /api/v1/changes?tables=rescue_requests,weather_alerts
type ChangesHandler struct {
	hub       *realtime.Hub
	logger    *zap.Logger
	heartbeat time.Duration
}

func NewChangesHandler(hub *realtime.Hub, logger *zap.Logger) *ChangesHandler {
	return &ChangesHandler{hub: hub, logger: logger, heartbeat: changesHeartbeat}
}

func (h *ChangesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	caller := callerFrom(r.Context())
	if caller == nil {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}
	tables := requestedTables(r)
	preds := make([]realtime.Predicate, len(tables))
	for i, t := range tables {
		if !subscribableTables[t] {
			writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("unknown table %q", t)))
			return
		}
		pred, err := changePredicate(caller, t)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		preds[i] = pred
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusOK, Fail("streaming unsupported"))
		return
	}

	events := make(chan realtime.Change, changesBuffer)
	handles := make([]realtime.Handle, 0, len(tables))
	for i, t := range tables {
		handles = append(handles, h.hub.Subscribe(t, preds[i], func(c realtime.Change) {
			select {
			case events <- c:
			default:
				h.logger.Warn("Change stream client too slow, dropping event",
					zap.String("user_id", caller.UserID), zap.String("table", c.Table))
			}
		}))
	}
	defer func() {
		for _, hd := range handles {
			h.hub.Unsubscribe(hd)
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case c := <-events:
			b, err := json.Marshal(c)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", c.Table, b)
			flusher.Flush()
		}
	}
}

// requestedTables merges ?tables=a,b and repeated ?table= in first-seen
// order, without duplicates.
func requestedTables(r *http.Request) []string {
	q := r.URL.Query()
	raw := splitList(q.Get("tables"))
	for _, t := range q["table"] {
		raw = append(raw, splitList(t)...)
	}
	seen := make(map[string]bool, len(raw))
	tables := make([]string, 0, len(raw))
	for _, t := range raw {
		if seen[t] {
			continue
		}
		seen[t] = true
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		tables = []string{defaultChangeTable}
	}
	return tables
}
