package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/repository"
	"floodwatch/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler streams Excel exports.
type ReportHandler struct {
	reports service.ReportService
	logger  *zap.Logger
	now     func() time.Time
}

func NewReportHandler(reports service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger, now: time.Now}
}

func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	var (
		data []byte
		name string
		err  error
	)
	switch r.URL.Path {
	case "/api/v1/reports/rescue-requests.xlsx":
		var since, until *time.Time
		if since, err = parseTime(q.Get("since")); err != nil {
			break
		}
		if until, err = parseTime(q.Get("until")); err != nil {
			break
		}
		filter := repository.RescueRequestsFilter{Since: since, Until: until}
		for _, s := range splitList(q.Get("status")) {
			filter.Statuses = append(filter.Statuses, domain.RequestStatus(s))
		}
		name = "rescue-requests"
		data, err = h.reports.RescueRequests(ctx, callerFrom(ctx), filter)
	case "/api/v1/reports/evacuees.xlsx":
		name = "evacuees"
		data, err = h.reports.Evacuees(ctx, callerFrom(ctx), q.Get("center_id"))
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-%s.xlsx"`, name, h.now().UTC().Format("20060102-150405")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
