package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"floodwatch/internal/domain"
)

const profileColumns = `
	user_id::text, full_name, email, phone, role, assigned_zone, assigned_center_id::text,
	last_known_lat, last_known_lng, last_known_address, last_active_at, password_hash,
	created_at, updated_at`

type PostgresProfilesRepository struct {
	db *sql.DB
}

func NewPostgresProfilesRepository(db *sql.DB) *PostgresProfilesRepository {
	return &PostgresProfilesRepository{db: db}
}

var _ ProfilesRepository = (*PostgresProfilesRepository)(nil)

func scanProfile(s rowScanner) (*domain.Profile, error) {
	var p domain.Profile
	err := s.Scan(
		&p.UserID, &p.FullName, &p.Email, &p.Phone, &p.Role, &p.AssignedZone, &p.AssignedCenterID,
		&p.LastKnownLat, &p.LastKnownLng, &p.LastKnownAddress, &p.LastActiveAt, &p.PasswordHash,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresProfilesRepository) Create(ctx context.Context, p *domain.Profile) error {
	if p.UserID == "" {
		p.UserID = uuid.New().String()
	}
	query := `
		INSERT INTO profiles (
			user_id, full_name, email, phone, role, assigned_zone, assigned_center_id,
			last_known_address, password_hash, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (email) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		p.UserID, p.FullName, strings.ToLower(p.Email), p.Phone, p.Role, p.AssignedZone, p.AssignedCenterID,
		p.LastKnownAddress, p.PasswordHash, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("email %s already registered: %w", p.Email, domain.ErrConflict)
	}
	p.UpdatedAt = p.CreatedAt
	return nil
}

func (r *PostgresProfilesRepository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if err != nil {
		return nil, notFound(err, "profile")
	}
	return p, nil
}

func (r *PostgresProfilesRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, notFound(err, "profile")
	}
	return p, nil
}

func (r *PostgresProfilesRepository) ListByRole(ctx context.Context, role domain.Role) ([]*domain.Profile, error) {
	var w whereBuilder
	if role != "" {
		w.add("role = $%d", role)
	}
	query := fmt.Sprintf(`SELECT %s FROM profiles %s ORDER BY full_name`, profileColumns, w.clause())
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	out := []*domain.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresProfilesRepository) UpdateContact(ctx context.Context, userID string, upd ContactUpdate, at time.Time) (*domain.Profile, error) {
	sets := []string{}
	args := []any{userID}
	set := func(col string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	set("full_name", upd.FullName)
	set("phone", upd.Phone)
	set("last_known_address", upd.LastKnownAddress)
	set("assigned_zone", upd.AssignedZone)

	args = append(args, at)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := fmt.Sprintf(`UPDATE profiles SET %s WHERE user_id = $1 RETURNING %s`, strings.Join(sets, ", "), profileColumns)
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "profile")
	}
	return p, nil
}

func (r *PostgresProfilesRepository) UpdateLocation(ctx context.Context, userID string, lat, lng float64, at time.Time) error {
	query := `
		UPDATE profiles
		SET last_known_lat = $2, last_known_lng = $3, last_active_at = $4, updated_at = $4
		WHERE user_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID, lat, lng, at)
	if err != nil {
		return fmt.Errorf("failed to update location: %w", err)
	}
	return expectOne(res, "profile")
}

func (r *PostgresProfilesRepository) Touch(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET last_active_at = $2 WHERE user_id = $1`, userID, at)
	if err != nil {
		return fmt.Errorf("failed to touch profile: %w", err)
	}
	return expectOne(res, "profile")
}
