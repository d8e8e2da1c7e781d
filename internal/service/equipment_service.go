package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/realtime"
	"floodwatch/internal/repository"
)

// EquipmentService a rescuer's own equipment inventory.
type EquipmentService interface {
	List(ctx context.Context, caller *domain.Profile, rescuerID string) ([]*domain.RescuerEquipment, error)
	Save(ctx context.Context, caller *domain.Profile, e *domain.RescuerEquipment) (*domain.RescuerEquipment, error)
	Delete(ctx context.Context, caller *domain.Profile, equipmentID string) error
}

type equipmentService struct {
	repo   repository.EquipmentRepository
	notify notifier
	logger *zap.Logger
	now    func() time.Time
}

func NewEquipmentService(repo repository.EquipmentRepository, publisher realtime.Publisher, logger *zap.Logger) EquipmentService {
	return &equipmentService{
		repo:   repo,
		notify: notifier{publisher: publisher, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// List rescuers see their own rows; admins may pass any rescuerID.
func (s *equipmentService) List(ctx context.Context, caller *domain.Profile, rescuerID string) ([]*domain.RescuerEquipment, error) {
	if err := requireRole(caller, domain.RoleRescuer, domain.RoleMDRRMOAdmin); err != nil {
		return nil, err
	}
	if caller.Role == domain.RoleRescuer || rescuerID == "" {
		rescuerID = caller.UserID
	}
	return s.repo.ListByRescuer(ctx, rescuerID)
}

func (s *equipmentService) Save(ctx context.Context, caller *domain.Profile, e *domain.RescuerEquipment) (*domain.RescuerEquipment, error) {
	if err := requireRole(caller, domain.RoleRescuer); err != nil {
		return nil, err
	}
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return nil, validationf("name is required")
	}
	if e.Quantity < 0 {
		return nil, validationf("quantity must be >= 0")
	}
	if e.Condition == "" {
		e.Condition = domain.ConditionGood
	}
	if !e.Condition.Valid() {
		return nil, validationf("invalid condition %q", e.Condition)
	}
	e.RescuerID = caller.UserID
	e.UpdatedAt = s.now()

	typ := realtime.ChangeUpdate
	if e.EquipmentID == "" {
		typ = realtime.ChangeInsert
		if err := s.repo.Create(ctx, e); err != nil {
			return nil, err
		}
	} else if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	s.notify.change(ctx, realtime.TableRescuerEquipment, typ, e.EquipmentID, e)
	return e, nil
}

func (s *equipmentService) Delete(ctx context.Context, caller *domain.Profile, equipmentID string) error {
	if err := requireRole(caller, domain.RoleRescuer); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, caller.UserID, equipmentID); err != nil {
		return err
	}
	s.notify.change(ctx, realtime.TableRescuerEquipment, realtime.ChangeDelete, equipmentID, map[string]string{
		"equipment_id": equipmentID,
		"rescuer_id":   caller.UserID,
	})
	return nil
}
