package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/geo"
	"floodwatch/internal/geocode"
	"floodwatch/internal/priority"
	"floodwatch/internal/realtime"
	"floodwatch/internal/repository"
)

// Location sources reported back to the submitter.
const (
	LocationLive    = "live"
	LocationProfile = "profile"
	LocationAddress = "geocoded_address"
	LocationNone    = "none"
)

// IntakeService creates rescue requests from quick SOS or detailed reports.
type IntakeService interface {
	Submit(ctx context.Context, caller *domain.Profile, req SubmitRescueRequest) (*SubmitRescueResponse, error)
}

type intakeService struct {
	requests repository.RescueRequestsRepository
	alerts   repository.WeatherAlertsRepository
	geocoder geocode.Geocoder // optional
	notify   notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewIntakeService(
	requests repository.RescueRequestsRepository,
	alerts repository.WeatherAlertsRepository,
	geocoder geocode.Geocoder,
	publisher realtime.Publisher,
	events EventStream,
	logger *zap.Logger,
) IntakeService {
	return &intakeService{
		requests: requests,
		alerts:   alerts,
		geocoder: geocoder,
		notify:   notifier{publisher: publisher, events: events, logger: logger},
		logger:   logger,
		now:      time.Now,
	}
}

type SubmitRescueRequest struct {
	IsQuickSOS     bool            `json:"is_quick_sos"`
	Severity       domain.Severity `json:"severity"`
	HouseholdCount int             `json:"household_count"`
	SpecialNeeds   []string        `json:"special_needs"`
	Description    string          `json:"description"`
	Address        string          `json:"address"`
	// Location live fix taken by the client, nil when unavailable.
	Location *geo.Position `json:"location"`
}

type SubmitRescueResponse struct {
	Request        *domain.RescueRequest `json:"request"`
	LocationSource string                `json:"location_source"`
	AmbientAlert   domain.AlertPriority  `json:"ambient_alert"`
}

func (s *intakeService) Submit(ctx context.Context, caller *domain.Profile, in SubmitRescueRequest) (*SubmitRescueResponse, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	severity := in.Severity
	switch {
	case severity == "" && in.IsQuickSOS:
		severity = domain.SeverityHigh
	case severity == "":
		severity = domain.SeverityMedium
	case !severity.Valid():
		return nil, validationf("invalid severity %q", severity)
	}
	household := in.HouseholdCount
	if household < 1 {
		household = 1
	}
	needs := domain.NormalizeNeeds(in.SpecialNeeds)

	now := s.now()
	req := &domain.RescueRequest{
		RequesterID:    caller.UserID,
		Severity:       severity,
		Status:         domain.StatusPending,
		IsQuickSOS:     in.IsQuickSOS,
		HouseholdCount: household,
		SpecialNeeds:   needs,
		CreatedAt:      now,
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		req.Description = &d
	}
	source := s.locate(ctx, caller, in, req)

	zone := ""
	if caller.AssignedZone != nil {
		zone = *caller.AssignedZone
	}
	ambient := s.ambient(ctx, zone, now)
	req.PriorityScore = priority.Score(priority.Input{
		IsQuickSOS:        in.IsQuickSOS,
		Severity:          severity,
		HouseholdCount:    household,
		SpecialNeedsCount: len(needs),
		AmbientAlert:      ambient,
	})

	if err := s.requests.Create(ctx, req); err != nil {
		s.logger.Error("Failed to create rescue request",
			zap.String("requester_id", caller.UserID),
			zap.Bool("is_quick_sos", in.IsQuickSOS),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Rescue request submitted",
		zap.String("request_id", req.RequestID),
		zap.Int("priority_score", req.PriorityScore),
		zap.String("location_source", source),
	)
	s.notify.change(ctx, realtime.TableRescueRequests, realtime.ChangeInsert, req.RequestID, req)
	s.notify.rescue(ctx, newRescueEvent("created", req, now))

	return &SubmitRescueResponse{Request: req, LocationSource: source, AmbientAlert: ambient}, nil
}

// locate fills req's coordinates and address: live fix, then stored profile
// coordinates, then the stored address geocoded, else no location.
func (s *intakeService) locate(ctx context.Context, caller *domain.Profile, in SubmitRescueRequest, req *domain.RescueRequest) string {
	address := strings.TrimSpace(in.Address)
	if address == "" && caller.LastKnownAddress != nil {
		address = *caller.LastKnownAddress
	}
	if address != "" {
		req.Address = &address
	}

	if in.Location != nil {
		if err := in.Location.Validate(); err == nil {
			lat, lng := in.Location.Lat, in.Location.Lng
			req.Latitude, req.Longitude = &lat, &lng
			return LocationLive
		}
	}
	if caller.LastKnownLat != nil && caller.LastKnownLng != nil {
		lat, lng := *caller.LastKnownLat, *caller.LastKnownLng
		req.Latitude, req.Longitude = &lat, &lng
		return LocationProfile
	}
	if address != "" && s.geocoder != nil {
		lat, lng, err := s.geocoder.Geocode(ctx, address)
		if err == nil {
			req.Latitude, req.Longitude = &lat, &lng
			return LocationAddress
		}
		s.logger.Warn("Geocoding stored address failed", zap.String("requester_id", caller.UserID), zap.Error(err))
	}
	return LocationNone
}

func (s *intakeService) ambient(ctx context.Context, zone string, now time.Time) domain.AlertPriority {
	if s.alerts == nil {
		return domain.AlertNone
	}
	alerts, err := s.alerts.ListActive(ctx, zone, now)
	if err != nil {
		s.logger.Warn("Failed to load active alerts, scoring without ambient bonus", zap.Error(err))
		return domain.AlertNone
	}
	return priority.AmbientFromAlerts(alerts, zone)
}
