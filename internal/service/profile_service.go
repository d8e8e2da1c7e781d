package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"floodwatch/internal/activity"
	"floodwatch/internal/domain"
	"floodwatch/internal/geo"
	"floodwatch/internal/realtime"
	"floodwatch/internal/repository"
)

// ProfileService the caller's profile, rescuer roster and location updates.
type ProfileService interface {
	Me(ctx context.Context, caller *domain.Profile) (*domain.Profile, error)
	UpdateMe(ctx context.Context, caller *domain.Profile, req UpdateProfileRequest) (*domain.Profile, error)
	ListByRole(ctx context.Context, caller *domain.Profile, role domain.Role) ([]*domain.Profile, error)
	// Roster rescuers with their activity bucket, most recently active first.
	Roster(ctx context.Context, caller *domain.Profile) ([]*RosterEntry, error)
	// UpdateLocation persists at most one fix per throttle window per
	// session; Force bypasses the window once.
	UpdateLocation(ctx context.Context, caller *domain.Profile, session string, req LocationUpdate) (*LocationResult, error)
}

type profileService struct {
	profiles repository.ProfilesRepository
	throttle *geo.Throttle
	notify   notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewProfileService(profiles repository.ProfilesRepository, throttle *geo.Throttle, publisher realtime.Publisher, logger *zap.Logger) ProfileService {
	return &profileService{
		profiles: profiles,
		throttle: throttle,
		notify:   notifier{publisher: publisher, logger: logger},
		logger:   logger,
		now:      time.Now,
	}
}

type UpdateProfileRequest struct {
	FullName     *string `json:"full_name"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	AssignedZone *string `json:"assigned_zone"`
}

type RosterEntry struct {
	*domain.Profile
	Activity activity.Bucket `json:"activity"`
}

type LocationUpdate struct {
	geo.Position
	Force bool `json:"force"`
}

type LocationResult struct {
	Persisted bool `json:"persisted"`
}

func (s *profileService) Me(ctx context.Context, caller *domain.Profile) (*domain.Profile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.profiles.Get(ctx, caller.UserID)
}

func (s *profileService) UpdateMe(ctx context.Context, caller *domain.Profile, req UpdateProfileRequest) (*domain.Profile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, validationf("full_name cannot be empty")
		}
		req.FullName = &name
	}
	p, err := s.profiles.UpdateContact(ctx, caller.UserID, repository.ContactUpdate{
		FullName:         req.FullName,
		Phone:            req.Phone,
		LastKnownAddress: req.Address,
		AssignedZone:     req.AssignedZone,
	}, s.now())
	if err != nil {
		return nil, err
	}
	s.notify.change(ctx, realtime.TableProfiles, realtime.ChangeUpdate, p.UserID, p)
	return p, nil
}

func (s *profileService) ListByRole(ctx context.Context, caller *domain.Profile, role domain.Role) ([]*domain.Profile, error) {
	if err := requireRole(caller, domain.RoleMDRRMOAdmin); err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, validationf("invalid role %q", role)
	}
	return s.profiles.ListByRole(ctx, role)
}

func (s *profileService) Roster(ctx context.Context, caller *domain.Profile) ([]*RosterEntry, error) {
	if err := requireRole(caller, domain.RoleMDRRMOAdmin, domain.RoleBarangayOfficial); err != nil {
		return nil, err
	}
	rescuers, err := s.profiles.ListByRole(ctx, domain.RoleRescuer)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]*RosterEntry, 0, len(rescuers))
	for _, p := range rescuers {
		out = append(out, &RosterEntry{Profile: p, Activity: activity.ClassifyPtr(p.LastActiveAt, now)})
	}
	sortRoster(out)
	return out, nil
}

func (s *profileService) UpdateLocation(ctx context.Context, caller *domain.Profile, session string, req LocationUpdate) (*LocationResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := req.Position.Validate(); err != nil {
		return nil, validationf("invalid position")
	}
	if session == "" {
		session = caller.UserID
	}
	if req.Force {
		s.throttle.Force(session)
	} else if !s.throttle.Allow(session) {
		return &LocationResult{Persisted: false}, nil
	}

	now := s.now()
	if err := s.profiles.UpdateLocation(ctx, caller.UserID, req.Lat, req.Lng, now); err != nil {
		return nil, err
	}
	s.notify.change(ctx, realtime.TableProfiles, realtime.ChangeUpdate, caller.UserID, map[string]any{
		"user_id":        caller.UserID,
		"role":           caller.Role,
		"last_known_lat": req.Lat,
		"last_known_lng": req.Lng,
		"last_active_at": now,
	})
	return &LocationResult{Persisted: true}, nil
}
