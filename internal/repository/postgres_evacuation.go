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

const centerColumns = `
	center_id::text, name, barangay, address, latitude, longitude, capacity,
	current_occupancy, status, supplies_status, assigned_official_id::text,
	created_at, updated_at`

const evacueeColumns = `
	evacuee_id::text, evacuation_center_id::text, family_name, adults_count,
	children_count, special_needs, contact_number, registered_by::text,
	checked_in_at, checked_out_at`

// statusAfter derives open/full from the new occupancy expression (%s);
// closed is sticky.
const statusAfter = `CASE WHEN status = 'closed' THEN status
		              WHEN capacity > 0 AND %s >= capacity THEN 'full'
		              ELSE 'open' END`

type PostgresEvacuationRepository struct {
	db *sql.DB
}

func NewPostgresEvacuationRepository(db *sql.DB) *PostgresEvacuationRepository {
	return &PostgresEvacuationRepository{db: db}
}

var _ EvacuationRepository = (*PostgresEvacuationRepository)(nil)

func scanCenter(s rowScanner) (*domain.EvacuationCenter, error) {
	var c domain.EvacuationCenter
	err := s.Scan(
		&c.CenterID, &c.Name, &c.Barangay, &c.Address, &c.Latitude, &c.Longitude, &c.Capacity,
		&c.CurrentOccupancy, &c.Status, &c.SuppliesStatus, &c.AssignedOfficialID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanEvacuee(s rowScanner) (*domain.Evacuee, error) {
	var e domain.Evacuee
	err := s.Scan(
		&e.EvacueeID, &e.EvacuationCenterID, &e.FamilyName, &e.AdultsCount,
		&e.ChildrenCount, pq.Array(&e.SpecialNeeds), &e.ContactNumber, &e.RegisteredBy,
		&e.CheckedInAt, &e.CheckedOutAt,
	)
	if err != nil {
		return nil, err
	}
	if e.SpecialNeeds == nil {
		e.SpecialNeeds = []string{}
	}
	return &e, nil
}

func (r *PostgresEvacuationRepository) CreateCenter(ctx context.Context, c *domain.EvacuationCenter) error {
	if c.CenterID == "" {
		c.CenterID = uuid.New().String()
	}
	query := `
		INSERT INTO evacuation_centers (
			center_id, name, barangay, address, latitude, longitude, capacity,
			current_occupancy, status, supplies_status, assigned_official_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.CenterID, c.Name, c.Barangay, c.Address, c.Latitude, c.Longitude, c.Capacity,
		c.CurrentOccupancy, c.Status, c.SuppliesStatus, c.AssignedOfficialID, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create evacuation center: %w", err)
	}
	c.UpdatedAt = c.CreatedAt
	return nil
}

func (r *PostgresEvacuationRepository) GetCenter(ctx context.Context, centerID string) (*domain.EvacuationCenter, error) {
	query := `SELECT ` + centerColumns + ` FROM evacuation_centers WHERE center_id = $1`
	c, err := scanCenter(r.db.QueryRowContext(ctx, query, centerID))
	if err != nil {
		return nil, notFound(err, "evacuation center")
	}
	return c, nil
}

func (r *PostgresEvacuationRepository) ListCenters(ctx context.Context, filter CentersFilter) ([]*domain.EvacuationCenter, error) {
	var w whereBuilder
	if filter.Barangay != "" {
		w.add("barangay = $%d", filter.Barangay)
	}
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	query := fmt.Sprintf(`SELECT %s FROM evacuation_centers %s ORDER BY name`, centerColumns, w.clause())

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list evacuation centers: %w", err)
	}
	defer rows.Close()

	out := []*domain.EvacuationCenter{}
	for rows.Next() {
		c, err := scanCenter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evacuation center: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresEvacuationRepository) UpdateCenter(ctx context.Context, c *domain.EvacuationCenter) (*domain.EvacuationCenter, error) {
	// open/full is decided against the occupancy at write time, not the
	// caller's copy; an explicit closed sticks.
	query := `
		UPDATE evacuation_centers
		SET name = $2, barangay = $3, address = $4, latitude = $5, longitude = $6,
		    capacity = $7,
		    status = CASE WHEN $8::text = 'closed' THEN 'closed'
		                  WHEN $7 > 0 AND current_occupancy >= $7 THEN 'full'
		                  ELSE 'open' END,
		    supplies_status = $9, assigned_official_id = $10,
		    updated_at = $11
		WHERE center_id = $1
		RETURNING ` + centerColumns
	updated, err := scanCenter(r.db.QueryRowContext(ctx, query,
		c.CenterID, c.Name, c.Barangay, c.Address, c.Latitude, c.Longitude,
		c.Capacity, c.Status, c.SuppliesStatus, c.AssignedOfficialID, c.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(err, "evacuation center")
		}
		return nil, fmt.Errorf("failed to update evacuation center: %w", err)
	}
	return updated, nil
}

func (r *PostgresEvacuationRepository) DeleteCenter(ctx context.Context, centerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM evacuation_centers WHERE center_id = $1`, centerID)
	if err != nil {
		return fmt.Errorf("failed to delete evacuation center: %w", err)
	}
	return expectOne(res, "evacuation center")
}

func (r *PostgresEvacuationRepository) CheckIn(ctx context.Context, e *domain.Evacuee) (*domain.EvacuationCenter, error) {
	if e.EvacueeID == "" {
		e.EvacueeID = uuid.New().String()
	}
	if e.SpecialNeeds == nil {
		e.SpecialNeeds = []string{}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin check-in: %w", err)
	}
	defer tx.Rollback()

	bump := fmt.Sprintf(`
		UPDATE evacuation_centers
		SET current_occupancy = current_occupancy + $2,
		    status = `+statusAfter+`,
		    updated_at = $3
		WHERE center_id = $1 AND status <> 'closed'
		RETURNING `+centerColumns, "current_occupancy + $2")
	center, err := scanCenter(tx.QueryRowContext(ctx, bump, e.EvacuationCenterID, e.Headcount(), e.CheckedInAt))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to update occupancy: %w", err)
		}
		if _, getErr := r.GetCenter(ctx, e.EvacuationCenterID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("evacuation center %s is closed: %w", e.EvacuationCenterID, domain.ErrConflict)
	}

	insert := `
		INSERT INTO evacuees (
			evacuee_id, evacuation_center_id, family_name, adults_count, children_count,
			special_needs, contact_number, registered_by, checked_in_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, insert,
		e.EvacueeID, e.EvacuationCenterID, e.FamilyName, e.AdultsCount, e.ChildrenCount,
		pq.Array(e.SpecialNeeds), e.ContactNumber, e.RegisteredBy, e.CheckedInAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert evacuee: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit check-in: %w", err)
	}
	return center, nil
}

func (r *PostgresEvacuationRepository) CheckOut(ctx context.Context, evacueeID string, at time.Time) (*domain.Evacuee, *domain.EvacuationCenter, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin check-out: %w", err)
	}
	defer tx.Rollback()

	stamp := `
		UPDATE evacuees SET checked_out_at = $2
		WHERE evacuee_id = $1 AND checked_out_at IS NULL
		RETURNING ` + evacueeColumns
	e, err := scanEvacuee(tx.QueryRowContext(ctx, stamp, evacueeID, at))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("failed to check out evacuee: %w", err)
		}
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM evacuees WHERE evacuee_id = $1)`, evacueeID).Scan(&exists); err != nil {
			return nil, nil, fmt.Errorf("failed to look up evacuee: %w", err)
		}
		if !exists {
			return nil, nil, fmt.Errorf("evacuee not found: %w", domain.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("evacuee %s already checked out: %w", evacueeID, domain.ErrConflict)
	}

	drop := fmt.Sprintf(`
		UPDATE evacuation_centers
		SET current_occupancy = GREATEST(current_occupancy - $2, 0),
		    status = `+statusAfter+`,
		    updated_at = $3
		WHERE center_id = $1
		RETURNING `+centerColumns, "GREATEST(current_occupancy - $2, 0)")
	center, err := scanCenter(tx.QueryRowContext(ctx, drop, e.EvacuationCenterID, e.Headcount(), at))
	if err != nil {
		return nil, nil, notFound(err, "evacuation center")
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit check-out: %w", err)
	}
	return e, center, nil
}

func (r *PostgresEvacuationRepository) ListEvacuees(ctx context.Context, centerID string, includeCheckedOut bool) ([]*domain.Evacuee, error) {
	var w whereBuilder
	if centerID != "" {
		w.add("evacuation_center_id = $%d", centerID)
	}
	if !includeCheckedOut {
		w.addRaw("checked_out_at IS NULL")
	}
	query := fmt.Sprintf(`SELECT %s FROM evacuees %s ORDER BY checked_in_at DESC`, evacueeColumns, w.clause())

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list evacuees: %w", err)
	}
	defer rows.Close()

	out := []*domain.Evacuee{}
	for rows.Next() {
		e, err := scanEvacuee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evacuee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
