package repository

import (
	"context"
	"time"

	"floodwatch/internal/domain"
)

// RescueRequestsRepository rescue_requests table.
type RescueRequestsRepository interface {
	// Create inserts req. RequestID is generated when empty.
	Create(ctx context.Context, req *domain.RescueRequest) error
	Get(ctx context.Context, requestID string) (*domain.RescueRequest, error)
	// List orders by priority_score desc, created_at asc.
	List(ctx context.Context, filter RescueRequestsFilter) ([]*domain.RescueRequest, error)

	// Claim moves a pending, unassigned request to assigned for rescuerID.
	// A request that is no longer claimable returns domain.ErrAlreadyClaimed.
	Claim(ctx context.Context, requestID, rescuerID string, at time.Time) (*domain.RescueRequest, error)
	// UpdateStatus moves requestID from -> to only if it is still in from.
	// completed_at is set when to is terminal.
	UpdateStatus(ctx context.Context, requestID string, from, to domain.RequestStatus, at time.Time) (*domain.RescueRequest, error)
}

type RescueRequestsFilter struct {
	Statuses    []domain.RequestStatus
	RescuerID   string
	RequesterID string
	Severity    domain.Severity
	Since       *time.Time
	Until       *time.Time
	Limit       int
}
