package repository

import (
	"context"
	"time"

	"floodwatch/internal/domain"
)

// ProfilesRepository profiles table, including the password hash used by sign-in.
type ProfilesRepository interface {
	Create(ctx context.Context, p *domain.Profile) error
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	ListByRole(ctx context.Context, role domain.Role) ([]*domain.Profile, error)
	UpdateContact(ctx context.Context, userID string, upd ContactUpdate, at time.Time) (*domain.Profile, error)
	// UpdateLocation stores the last known position and bumps last_active_at.
	UpdateLocation(ctx context.Context, userID string, lat, lng float64, at time.Time) error
	// Touch bumps last_active_at only.
	Touch(ctx context.Context, userID string, at time.Time) error
}

// ContactUpdate nil fields are left unchanged.
type ContactUpdate struct {
	FullName         *string
	Phone            *string
	LastKnownAddress *string
	AssignedZone     *string
}
