package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"floodwatch/internal/domain"
)

const alertColumns = `
	alert_id::text, title, message, priority, target_zones, is_active,
	created_by::text, created_at, expires_at`

type PostgresWeatherAlertsRepository struct {
	db *sql.DB
}

func NewPostgresWeatherAlertsRepository(db *sql.DB) *PostgresWeatherAlertsRepository {
	return &PostgresWeatherAlertsRepository{db: db}
}

var _ WeatherAlertsRepository = (*PostgresWeatherAlertsRepository)(nil)

func scanAlert(s rowScanner) (*domain.WeatherAlert, error) {
	var a domain.WeatherAlert
	err := s.Scan(
		&a.AlertID, &a.Title, &a.Message, &a.Priority, pq.Array(&a.TargetZones), &a.IsActive,
		&a.CreatedBy, &a.CreatedAt, &a.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if a.TargetZones == nil {
		a.TargetZones = []string{}
	}
	return &a, nil
}

func (r *PostgresWeatherAlertsRepository) queryAlerts(ctx context.Context, query string, args ...any) ([]*domain.WeatherAlert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list weather alerts: %w", err)
	}
	defer rows.Close()

	out := []*domain.WeatherAlert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weather alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresWeatherAlertsRepository) Create(ctx context.Context, a *domain.WeatherAlert) error {
	if a.AlertID == "" {
		a.AlertID = uuid.New().String()
	}
	if a.TargetZones == nil {
		a.TargetZones = []string{}
	}
	query := `
		INSERT INTO weather_alerts (
			alert_id, title, message, priority, target_zones, is_active, created_by, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.AlertID, a.Title, a.Message, a.Priority, pq.Array(a.TargetZones), a.IsActive,
		a.CreatedBy, a.CreatedAt, a.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create weather alert: %w", err)
	}
	return nil
}

func (r *PostgresWeatherAlertsRepository) Get(ctx context.Context, alertID string) (*domain.WeatherAlert, error) {
	a, err := scanAlert(r.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM weather_alerts WHERE alert_id = $1`, alertID))
	if err != nil {
		return nil, notFound(err, "weather alert")
	}
	return a, nil
}

func (r *PostgresWeatherAlertsRepository) ListActive(ctx context.Context, zone string, now time.Time) ([]*domain.WeatherAlert, error) {
	var w whereBuilder
	w.addRaw("is_active")
	w.add("(expires_at IS NULL OR expires_at > $%d)", now)
	if zone != "" {
		w.add("(cardinality(target_zones) = 0 OR $%d = ANY(target_zones))", zone)
	}
	query := fmt.Sprintf(`SELECT %s FROM weather_alerts %s ORDER BY created_at DESC`, alertColumns, w.clause())
	return r.queryAlerts(ctx, query, w.args...)
}

func (r *PostgresWeatherAlertsRepository) ListAll(ctx context.Context, limit int) ([]*domain.WeatherAlert, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + alertColumns + ` FROM weather_alerts ORDER BY created_at DESC LIMIT $1`
	return r.queryAlerts(ctx, query, limit)
}

func (r *PostgresWeatherAlertsRepository) Deactivate(ctx context.Context, alertID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE weather_alerts SET is_active = false WHERE alert_id = $1`, alertID)
	if err != nil {
		return fmt.Errorf("failed to deactivate weather alert: %w", err)
	}
	return expectOne(res, "weather alert")
}

func (r *PostgresWeatherAlertsRepository) Delete(ctx context.Context, alertID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM weather_alerts WHERE alert_id = $1`, alertID)
	if err != nil {
		return fmt.Errorf("failed to delete weather alert: %w", err)
	}
	return expectOne(res, "weather alert")
}

func (r *PostgresWeatherAlertsRepository) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		UPDATE weather_alerts SET is_active = false
		WHERE is_active AND expires_at IS NOT NULL AND expires_at <= $1
		RETURNING alert_id::text
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to expire weather alerts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expired alert: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type PostgresWeatherForecastRepository struct {
	db *sql.DB
}

func NewPostgresWeatherForecastRepository(db *sql.DB) *PostgresWeatherForecastRepository {
	return &PostgresWeatherForecastRepository{db: db}
}

var _ WeatherForecastRepository = (*PostgresWeatherForecastRepository)(nil)

func (r *PostgresWeatherForecastRepository) ListLatest(ctx context.Context, limit int) ([]*domain.WeatherForecast, error) {
	if limit <= 0 {
		limit = 7
	}
	query := `
		SELECT forecast_id::text, forecast_date, condition, rainfall_mm, wind_kph, flood_risk, created_at
		FROM weather_forecast
		ORDER BY forecast_date DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list forecasts: %w", err)
	}
	defer rows.Close()

	out := []*domain.WeatherForecast{}
	for rows.Next() {
		var f domain.WeatherForecast
		if err := rows.Scan(&f.ForecastID, &f.ForecastDate, &f.Condition, &f.RainfallMM, &f.WindKPH, &f.FloodRisk, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan forecast: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (r *PostgresWeatherForecastRepository) Upsert(ctx context.Context, f *domain.WeatherForecast) error {
	if f.ForecastID == "" {
		f.ForecastID = uuid.New().String()
	}
	query := `
		INSERT INTO weather_forecast (forecast_id, forecast_date, condition, rainfall_mm, wind_kph, flood_risk, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (forecast_date) DO UPDATE SET
			condition = EXCLUDED.condition,
			rainfall_mm = EXCLUDED.rainfall_mm,
			wind_kph = EXCLUDED.wind_kph,
			flood_risk = EXCLUDED.flood_risk
		RETURNING forecast_id::text
	`
	err := r.db.QueryRowContext(ctx, query,
		f.ForecastID, f.ForecastDate, f.Condition, f.RainfallMM, f.WindKPH, f.FloodRisk, f.CreatedAt,
	).Scan(&f.ForecastID)
	if err != nil {
		return fmt.Errorf("failed to upsert forecast: %w", err)
	}
	return nil
}
