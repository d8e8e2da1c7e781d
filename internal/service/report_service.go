package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"floodwatch/internal/domain"
	"floodwatch/internal/repository"
)

// ReportService Excel exports for the operations desk.
type ReportService interface {
	RescueRequests(ctx context.Context, caller *domain.Profile, filter repository.RescueRequestsFilter) ([]byte, error)
	Evacuees(ctx context.Context, caller *domain.Profile, centerID string) ([]byte, error)
}

type reportService struct {
	requests   repository.RescueRequestsRepository
	evacuation repository.EvacuationRepository
}

func NewReportService(requests repository.RescueRequestsRepository, evacuation repository.EvacuationRepository) ReportService {
	return &reportService{requests: requests, evacuation: evacuation}
}

type column struct {
	Header string
	Width  float64
}

var rescueRequestColumns = []column{
	{"Request ID", 38},
	{"Status", 12},
	{"Severity", 10},
	{"Quick SOS", 10},
	{"Priority", 9},
	{"Household", 10},
	{"Special Needs", 24},
	{"Latitude", 12},
	{"Longitude", 12},
	{"Address", 30},
	{"Assigned Rescuer", 38},
	{"Created At", 20},
	{"Completed At", 20},
}

var evacueeColumns = []column{
	{"Evacuee ID", 38},
	{"Family Name", 24},
	{"Adults", 8},
	{"Children", 9},
	{"Special Needs", 24},
	{"Contact", 16},
	{"Checked In", 20},
	{"Checked Out", 20},
}

func (s *reportService) RescueRequests(ctx context.Context, caller *domain.Profile, filter repository.RescueRequestsFilter) ([]byte, error) {
	if err := requireRole(caller, domain.RoleMDRRMOAdmin); err != nil {
		return nil, err
	}
	reqs, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(reqs))
	for _, r := range reqs {
		rows = append(rows, []any{
			r.RequestID,
			string(r.Status),
			string(r.Severity),
			yesNo(r.IsQuickSOS),
			r.PriorityScore,
			r.HouseholdCount,
			strings.Join(r.SpecialNeeds, ", "),
			floatOrBlank(r.Latitude),
			floatOrBlank(r.Longitude),
			stringOrBlank(r.Address),
			stringOrBlank(r.AssignedRescuerID),
			formatTime(&r.CreatedAt),
			formatTime(r.CompletedAt),
		})
	}
	return writeWorkbook("Rescue Requests", rescueRequestColumns, rows)
}

func (s *reportService) Evacuees(ctx context.Context, caller *domain.Profile, centerID string) ([]byte, error) {
	if err := canManageCenters(caller); err != nil {
		return nil, err
	}
	if centerID == "" {
		return nil, validationf("center_id is required")
	}
	evacuees, err := s.evacuation.ListEvacuees(ctx, centerID, true)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(evacuees))
	for _, e := range evacuees {
		rows = append(rows, []any{
			e.EvacueeID,
			e.FamilyName,
			e.AdultsCount,
			e.ChildrenCount,
			strings.Join(e.SpecialNeeds, ", "),
			stringOrBlank(e.ContactNumber),
			formatTime(&e.CheckedInAt),
			formatTime(e.CheckedOutAt),
		})
	}
	return writeWorkbook("Evacuees", evacueeColumns, rows)
}

// writeWorkbook renders one sheet with a styled header row.
func writeWorkbook(sheet string, cols []column, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, c := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, c.Header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheet, name, name, c.Width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for r, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func stringOrBlank(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOrBlank(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
