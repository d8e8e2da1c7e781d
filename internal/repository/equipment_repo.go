package repository

import (
	"context"

	"floodwatch/internal/domain"
)

// EquipmentRepository rescuer_equipment table. Every write is scoped to the
// owning rescuer.
type EquipmentRepository interface {
	ListByRescuer(ctx context.Context, rescuerID string) ([]*domain.RescuerEquipment, error)
	Create(ctx context.Context, e *domain.RescuerEquipment) error
	Update(ctx context.Context, e *domain.RescuerEquipment) error
	Delete(ctx context.Context, rescuerID, equipmentID string) error
}

// FloodZonesRepository flood_zones table, read-only.
type FloodZonesRepository interface {
	List(ctx context.Context) ([]*domain.FloodZone, error)
}
