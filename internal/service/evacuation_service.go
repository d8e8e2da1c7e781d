package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/geo"
	"floodwatch/internal/occupancy"
	"floodwatch/internal/realtime"
	"floodwatch/internal/repository"
)

// EvacuationService evacuation centers and evacuee check-in/out.
type EvacuationService interface {
	ListCenters(ctx context.Context, filter repository.CentersFilter) ([]*CenterView, error)
	GetCenter(ctx context.Context, centerID string) (*CenterView, error)
	// NearestOpen returns open centers ordered by distance from lat/lng.
	NearestOpen(ctx context.Context, lat, lng float64, limit int) ([]*CenterView, error)
	SaveCenter(ctx context.Context, caller *domain.Profile, c *domain.EvacuationCenter) (*CenterView, error)
	DeleteCenter(ctx context.Context, caller *domain.Profile, centerID string) error

	CheckIn(ctx context.Context, caller *domain.Profile, req CheckInRequest) (*CheckInResponse, error)
	CheckOut(ctx context.Context, caller *domain.Profile, evacueeID string) (*CheckInResponse, error)
	ListEvacuees(ctx context.Context, caller *domain.Profile, centerID string, includeCheckedOut bool) ([]*domain.Evacuee, error)
}

type evacuationService struct {
	repo   repository.EvacuationRepository
	notify notifier
	logger *zap.Logger
	now    func() time.Time
}

func NewEvacuationService(repo repository.EvacuationRepository, publisher realtime.Publisher, logger *zap.Logger) EvacuationService {
	return &evacuationService{
		repo:   repo,
		notify: notifier{publisher: publisher, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// CenterView center plus derived occupancy figures.
type CenterView struct {
	*domain.EvacuationCenter
	OccupancyPercent float64         `json:"occupancy_percent"`
	OccupancyLevel   occupancy.Level `json:"occupancy_level"`
	DistanceMeters   *float64        `json:"distance_meters,omitempty"`
}

func viewOf(c *domain.EvacuationCenter) *CenterView {
	return &CenterView{
		EvacuationCenter: c,
		OccupancyPercent: occupancy.Percent(c.CurrentOccupancy, c.Capacity),
		OccupancyLevel:   occupancy.LevelOf(c.CurrentOccupancy, c.Capacity),
	}
}

type CheckInRequest struct {
	CenterID      string   `json:"center_id"`
	FamilyName    string   `json:"family_name"`
	AdultsCount   int      `json:"adults_count"`
	ChildrenCount int      `json:"children_count"`
	SpecialNeeds  []string `json:"special_needs"`
	ContactNumber string   `json:"contact_number"`
}

type CheckInResponse struct {
	Evacuee *domain.Evacuee `json:"evacuee"`
	Center  *CenterView     `json:"center"`
}

func canManageCenters(caller *domain.Profile) error {
	return requireRole(caller, domain.RoleMDRRMOAdmin, domain.RoleBarangayOfficial)
}

func (s *evacuationService) ListCenters(ctx context.Context, filter repository.CentersFilter) ([]*CenterView, error) {
	centers, err := s.repo.ListCenters(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*CenterView, 0, len(centers))
	for _, c := range centers {
		out = append(out, viewOf(c))
	}
	return out, nil
}

func (s *evacuationService) GetCenter(ctx context.Context, centerID string) (*CenterView, error) {
	c, err := s.repo.GetCenter(ctx, centerID)
	if err != nil {
		return nil, err
	}
	return viewOf(c), nil
}

func (s *evacuationService) NearestOpen(ctx context.Context, lat, lng float64, limit int) ([]*CenterView, error) {
	if err := (geo.Position{Lat: lat, Lng: lng}).Validate(); err != nil {
		return nil, validationf("invalid coordinate")
	}
	centers, err := s.ListCenters(ctx, repository.CentersFilter{Status: domain.CenterOpen})
	if err != nil {
		return nil, err
	}
	located := centers[:0]
	for _, c := range centers {
		if c.Latitude == nil || c.Longitude == nil {
			continue
		}
		d := geo.Distance(lat, lng, *c.Latitude, *c.Longitude)
		c.DistanceMeters = &d
		located = append(located, c)
	}
	sortByDistance(located)
	if limit > 0 && len(located) > limit {
		located = located[:limit]
	}
	return located, nil
}

func sortByDistance(cs []*CenterView) {
	sort.SliceStable(cs, func(i, j int) bool {
		return *cs[i].DistanceMeters < *cs[j].DistanceMeters
	})
}

func (s *evacuationService) SaveCenter(ctx context.Context, caller *domain.Profile, c *domain.EvacuationCenter) (*CenterView, error) {
	if err := canManageCenters(caller); err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" || strings.TrimSpace(c.Barangay) == "" {
		return nil, validationf("name and barangay are required")
	}
	if c.Capacity < 0 {
		return nil, validationf("capacity must be >= 0")
	}
	if c.SuppliesStatus == "" {
		c.SuppliesStatus = domain.SuppliesAdequate
	}
	if !c.SuppliesStatus.Valid() {
		return nil, validationf("invalid supplies_status %q", c.SuppliesStatus)
	}
	if c.Status == "" {
		c.Status = domain.CenterOpen
	}
	if !c.Status.Valid() {
		return nil, validationf("invalid status %q", c.Status)
	}

	now := s.now()
	if c.CenterID == "" {
		c.CurrentOccupancy = 0
		c.Status = occupancy.DeriveStatus(c.Status, 0, c.Capacity)
		c.CreatedAt = now
		if err := s.repo.CreateCenter(ctx, c); err != nil {
			return nil, err
		}
		s.notify.change(ctx, realtime.TableEvacuationCenters, realtime.ChangeInsert, c.CenterID, c)
		return viewOf(c), nil
	}

	c.UpdatedAt = now
	updated, err := s.repo.UpdateCenter(ctx, c)
	if err != nil {
		return nil, err
	}
	s.notify.change(ctx, realtime.TableEvacuationCenters, realtime.ChangeUpdate, updated.CenterID, updated)
	return viewOf(updated), nil
}

func (s *evacuationService) DeleteCenter(ctx context.Context, caller *domain.Profile, centerID string) error {
	if err := requireRole(caller, domain.RoleMDRRMOAdmin); err != nil {
		return err
	}
	if err := s.repo.DeleteCenter(ctx, centerID); err != nil {
		return err
	}
	s.notify.change(ctx, realtime.TableEvacuationCenters, realtime.ChangeDelete, centerID, nil)
	return nil
}

func (s *evacuationService) CheckIn(ctx context.Context, caller *domain.Profile, req CheckInRequest) (*CheckInResponse, error) {
	if err := canManageCenters(caller); err != nil {
		return nil, err
	}
	req.FamilyName = strings.TrimSpace(req.FamilyName)
	if req.CenterID == "" || req.FamilyName == "" {
		return nil, validationf("center_id and family_name are required")
	}
	if req.AdultsCount < 0 || req.ChildrenCount < 0 || req.AdultsCount+req.ChildrenCount == 0 {
		return nil, validationf("a family needs at least one member")
	}

	registeredBy := caller.UserID
	e := &domain.Evacuee{
		EvacuationCenterID: req.CenterID,
		FamilyName:         req.FamilyName,
		AdultsCount:        req.AdultsCount,
		ChildrenCount:      req.ChildrenCount,
		SpecialNeeds:       domain.NormalizeNeeds(req.SpecialNeeds),
		RegisteredBy:       &registeredBy,
		CheckedInAt:        s.now(),
	}
	if req.ContactNumber != "" {
		e.ContactNumber = &req.ContactNumber
	}

	center, err := s.repo.CheckIn(ctx, e)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Evacuee checked in",
		zap.String("evacuee_id", e.EvacueeID),
		zap.String("center_id", center.CenterID),
		zap.Int("headcount", e.Headcount()),
		zap.Int("occupancy", center.CurrentOccupancy),
	)
	s.notify.change(ctx, realtime.TableEvacuees, realtime.ChangeInsert, e.EvacueeID, e)
	s.notify.change(ctx, realtime.TableEvacuationCenters, realtime.ChangeUpdate, center.CenterID, center)
	return &CheckInResponse{Evacuee: e, Center: viewOf(center)}, nil
}

func (s *evacuationService) CheckOut(ctx context.Context, caller *domain.Profile, evacueeID string) (*CheckInResponse, error) {
	if err := canManageCenters(caller); err != nil {
		return nil, err
	}
	e, center, err := s.repo.CheckOut(ctx, evacueeID, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Evacuee checked out",
		zap.String("evacuee_id", e.EvacueeID),
		zap.String("center_id", center.CenterID),
		zap.Int("occupancy", center.CurrentOccupancy),
	)
	s.notify.change(ctx, realtime.TableEvacuees, realtime.ChangeUpdate, e.EvacueeID, e)
	s.notify.change(ctx, realtime.TableEvacuationCenters, realtime.ChangeUpdate, center.CenterID, center)
	return &CheckInResponse{Evacuee: e, Center: viewOf(center)}, nil
}

func (s *evacuationService) ListEvacuees(ctx context.Context, caller *domain.Profile, centerID string, includeCheckedOut bool) ([]*domain.Evacuee, error) {
	if err := canManageCenters(caller); err != nil {
		return nil, err
	}
	return s.repo.ListEvacuees(ctx, centerID, includeCheckedOut)
}
