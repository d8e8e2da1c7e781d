package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/realtime"
	"floodwatch/internal/repository"
	"floodwatch/internal/rescue"
)

// RescueService reads rescue requests and drives their status machine.
type RescueService interface {
	Get(ctx context.Context, caller *domain.Profile, requestID string) (*domain.RescueRequest, error)
	// List residents only ever see their own requests.
	List(ctx context.Context, caller *domain.Profile, req ListRescueRequests) ([]*domain.RescueRequest, error)

	Accept(ctx context.Context, caller *domain.Profile, requestID string) (*domain.RescueRequest, error)
	Assign(ctx context.Context, caller *domain.Profile, requestID, rescuerID string) (*domain.RescueRequest, error)
	Start(ctx context.Context, caller *domain.Profile, requestID string) (*domain.RescueRequest, error)
	Complete(ctx context.Context, caller *domain.Profile, requestID string) (*domain.RescueRequest, error)
	Cancel(ctx context.Context, caller *domain.Profile, requestID string) (*domain.RescueRequest, error)
}

type rescueService struct {
	requests repository.RescueRequestsRepository
	profiles repository.ProfilesRepository
	notify   notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewRescueService(
	requests repository.RescueRequestsRepository,
	profiles repository.ProfilesRepository,
	publisher realtime.Publisher,
	events EventStream,
	logger *zap.Logger,
) RescueService {
	return &rescueService{
		requests: requests,
		profiles: profiles,
		notify:   notifier{publisher: publisher, events: events, logger: logger},
		logger:   logger,
		now:      time.Now,
	}
}

type ListRescueRequests struct {
	Statuses  []domain.RequestStatus
	RescuerID string
	Severity  domain.Severity
	Mine      bool // restrict to the caller's own requests or assignments
	Since     *time.Time
	Until     *time.Time
	Limit     int
}

func (s *rescueService) Get(ctx context.Context, caller *domain.Profile, requestID string) (*domain.RescueRequest, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if caller.Role == domain.RoleResident && req.RequesterID != caller.UserID {
		return nil, fmt.Errorf("rescue request belongs to another resident: %w", domain.ErrForbidden)
	}
	return req, nil
}

func (s *rescueService) List(ctx context.Context, caller *domain.Profile, in ListRescueRequests) ([]*domain.RescueRequest, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	for _, st := range in.Statuses {
		if !st.Valid() {
			return nil, validationf("invalid status %q", st)
		}
	}
	if in.Severity != "" && !in.Severity.Valid() {
		return nil, validationf("invalid severity %q", in.Severity)
	}

	filter := repository.RescueRequestsFilter{
		Statuses:  in.Statuses,
		RescuerID: in.RescuerID,
		Severity:  in.Severity,
		Since:     in.Since,
		Until:     in.Until,
		Limit:     in.Limit,
	}
	switch {
	case caller.Role == domain.RoleResident:
		filter.RequesterID = caller.UserID
		filter.RescuerID = ""
	case in.Mine && caller.Role == domain.RoleRescuer:
		filter.RescuerID = caller.UserID
	case in.Mine:
		filter.RequesterID = caller.UserID
	}
	return s.requests.List(ctx, filter)
}

func (s *rescueService) Accept(ctx context.Context, caller *domain.Profile, requestID string) (*domain.RescueRequest, error) {
	return s.transition(ctx, caller, requestID, rescue.ActionAccept, "")
}

func (s *rescueService) Assign(ctx context.Context, caller *domain.Profile, requestID, rescuerID string) (*domain.RescueRequest, error) {
	if err := requireRole(caller, domain.RoleMDRRMOAdmin); err != nil {
		return nil, err
	}
	if rescuerID == "" {
		return nil, validationf("rescuer_id is required")
	}
	rescuer, err := s.profiles.Get(ctx, rescuerID)
	if err != nil {
		return nil, err
	}
	if rescuer.Role != domain.RoleRescuer {
		return nil, validationf("user %s is not a rescuer", rescuerID)
	}
	return s.transition(ctx, caller, requestID, rescue.ActionAssign, rescuerID)
}

func (s *rescueService) Start(ctx context.Context, caller *domain.Profile, requestID string) (*domain.RescueRequest, error) {
	return s.transition(ctx, caller, requestID, rescue.ActionStart, "")
}

func (s *rescueService) Complete(ctx context.Context, caller *domain.Profile, requestID string) (*domain.RescueRequest, error) {
	return s.transition(ctx, caller, requestID, rescue.ActionComplete, "")
}

func (s *rescueService) Cancel(ctx context.Context, caller *domain.Profile, requestID string) (*domain.RescueRequest, error) {
	return s.transition(ctx, caller, requestID, rescue.ActionCancel, "")
}

var eventForAction = map[rescue.Action]string{
	rescue.ActionAccept:   "accepted",
	rescue.ActionAssign:   "assigned",
	rescue.ActionStart:    "started",
	rescue.ActionComplete: "completed",
	rescue.ActionCancel:   "cancelled",
}

// transition validates in memory, then writes with a conditional update so
// that a concurrent change is detected instead of overwritten.
func (s *rescueService) transition(ctx context.Context, caller *domain.Profile, requestID string, action rescue.Action, rescuerID string) (*domain.RescueRequest, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	current, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, err := rescue.Apply(*current, action, actorOf(caller), rescuerID, now)
	if err != nil {
		s.logger.Warn("Rescue transition rejected",
			zap.String("request_id", requestID),
			zap.String("action", string(action)),
			zap.String("user_id", caller.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	var saved *domain.RescueRequest
	switch action {
	case rescue.ActionAccept, rescue.ActionAssign:
		saved, err = s.requests.Claim(ctx, requestID, *next.AssignedRescuerID, now)
	default:
		saved, err = s.requests.UpdateStatus(ctx, requestID, current.Status, next.Status, now)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Rescue request transitioned",
		zap.String("request_id", requestID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(saved.Status)),
		zap.String("user_id", caller.UserID),
	)
	s.notify.change(ctx, realtime.TableRescueRequests, realtime.ChangeUpdate, saved.RequestID, saved)
	s.notify.rescue(ctx, newRescueEvent(eventForAction[action], saved, now))
	return saved, nil
}
