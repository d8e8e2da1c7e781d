package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"floodwatch/internal/domain"
)

const rescueRequestColumns = `
	request_id::text, requester_id::text, severity, status, is_quick_sos,
	household_count, special_needs, latitude, longitude, address, description,
	assigned_rescuer_id::text, priority_score, created_at, updated_at,
	assigned_at, completed_at`

type PostgresRescueRequestsRepository struct {
	db *sql.DB
}

func NewPostgresRescueRequestsRepository(db *sql.DB) *PostgresRescueRequestsRepository {
	return &PostgresRescueRequestsRepository{db: db}
}

var _ RescueRequestsRepository = (*PostgresRescueRequestsRepository)(nil)

func scanRescueRequest(s rowScanner) (*domain.RescueRequest, error) {
	var r domain.RescueRequest
	err := s.Scan(
		&r.RequestID, &r.RequesterID, &r.Severity, &r.Status, &r.IsQuickSOS,
		&r.HouseholdCount, pq.Array(&r.SpecialNeeds), &r.Latitude, &r.Longitude, &r.Address, &r.Description,
		&r.AssignedRescuerID, &r.PriorityScore, &r.CreatedAt, &r.UpdatedAt,
		&r.AssignedAt, &r.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if r.SpecialNeeds == nil {
		r.SpecialNeeds = []string{}
	}
	return &r, nil
}

func (r *PostgresRescueRequestsRepository) Create(ctx context.Context, req *domain.RescueRequest) error {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	if req.SpecialNeeds == nil {
		req.SpecialNeeds = []string{}
	}
	query := `
		INSERT INTO rescue_requests (
			request_id, requester_id, severity, status, is_quick_sos,
			household_count, special_needs, latitude, longitude, address, description,
			priority_score, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		req.RequestID, req.RequesterID, req.Severity, req.Status, req.IsQuickSOS,
		req.HouseholdCount, pq.Array(req.SpecialNeeds), req.Latitude, req.Longitude, req.Address, req.Description,
		req.PriorityScore, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rescue request: %w", err)
	}
	req.UpdatedAt = req.CreatedAt
	return nil
}

func (r *PostgresRescueRequestsRepository) Get(ctx context.Context, requestID string) (*domain.RescueRequest, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request_id is required: %w", domain.ErrValidation)
	}
	query := `SELECT ` + rescueRequestColumns + ` FROM rescue_requests WHERE request_id = $1`
	req, err := scanRescueRequest(r.db.QueryRowContext(ctx, query, requestID))
	if err != nil {
		return nil, notFound(err, "rescue request")
	}
	return req, nil
}

func (r *PostgresRescueRequestsRepository) List(ctx context.Context, filter RescueRequestsFilter) ([]*domain.RescueRequest, error) {
	var w whereBuilder
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		w.add("status = ANY($%d)", pq.Array(statuses))
	}
	if filter.RescuerID != "" {
		w.add("assigned_rescuer_id = $%d", filter.RescuerID)
	}
	if filter.RequesterID != "" {
		w.add("requester_id = $%d", filter.RequesterID)
	}
	if filter.Severity != "" {
		w.add("severity = $%d", filter.Severity)
	}
	if filter.Since != nil {
		w.add("created_at >= $%d", *filter.Since)
	}
	if filter.Until != nil {
		w.add("created_at < $%d", *filter.Until)
	}

	query := fmt.Sprintf(`SELECT %s FROM rescue_requests %s ORDER BY priority_score DESC, created_at ASC`,
		rescueRequestColumns, w.clause())
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", w.next())
		w.args = append(w.args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rescue requests: %w", err)
	}
	defer rows.Close()

	out := []*domain.RescueRequest{}
	for rows.Next() {
		req, err := scanRescueRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rescue request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *PostgresRescueRequestsRepository) Claim(ctx context.Context, requestID, rescuerID string, at time.Time) (*domain.RescueRequest, error) {
	query := `
		UPDATE rescue_requests
		SET status = 'assigned', assigned_rescuer_id = $2, assigned_at = $3, updated_at = $3
		WHERE request_id = $1 AND status = 'pending' AND assigned_rescuer_id IS NULL
		RETURNING ` + rescueRequestColumns
	req, err := scanRescueRequest(r.db.QueryRowContext(ctx, query, requestID, rescuerID, at))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to claim rescue request: %w", err)
	}
	if _, getErr := r.Get(ctx, requestID); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("rescue request %s: %w", requestID, domain.ErrAlreadyClaimed)
}

func (r *PostgresRescueRequestsRepository) UpdateStatus(ctx context.Context, requestID string, from, to domain.RequestStatus, at time.Time) (*domain.RescueRequest, error) {
	query := `
		UPDATE rescue_requests
		SET status = $3, updated_at = $4,
		    completed_at = CASE WHEN $5::boolean THEN $4 ELSE completed_at END
		WHERE request_id = $1 AND status = $2
		RETURNING ` + rescueRequestColumns
	req, err := scanRescueRequest(r.db.QueryRowContext(ctx, query, requestID, from, to, at, to.Terminal()))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update rescue request status: %w", err)
	}
	if _, getErr := r.Get(ctx, requestID); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("rescue request %s changed concurrently (%s -> %s): %w",
		requestID, from, to, domain.ErrInvalidTransition)
}
