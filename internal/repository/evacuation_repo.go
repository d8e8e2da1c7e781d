package repository

import (
	"context"
	"time"

	"floodwatch/internal/domain"
)

// EvacuationRepository evacuation_centers and evacuees tables.
type EvacuationRepository interface {
	CreateCenter(ctx context.Context, c *domain.EvacuationCenter) error
	GetCenter(ctx context.Context, centerID string) (*domain.EvacuationCenter, error)
	ListCenters(ctx context.Context, filter CentersFilter) ([]*domain.EvacuationCenter, error)
	// UpdateCenter writes the editable fields and returns the stored row.
	// Occupancy is never written here; open/full follows the stored occupancy.
	UpdateCenter(ctx context.Context, c *domain.EvacuationCenter) (*domain.EvacuationCenter, error)
	DeleteCenter(ctx context.Context, centerID string) error

	// CheckIn inserts e and increments its center's occupancy by e.Headcount()
	// in one transaction. Closed centers reject with domain.ErrConflict.
	CheckIn(ctx context.Context, e *domain.Evacuee) (*domain.EvacuationCenter, error)
	// CheckOut stamps checked_out_at and decrements occupancy (floored at 0)
	// in one transaction. Already checked-out evacuees return domain.ErrConflict.
	CheckOut(ctx context.Context, evacueeID string, at time.Time) (*domain.Evacuee, *domain.EvacuationCenter, error)
	ListEvacuees(ctx context.Context, centerID string, includeCheckedOut bool) ([]*domain.Evacuee, error)
}

type CentersFilter struct {
	Barangay string
	Status   domain.CenterStatus
}
