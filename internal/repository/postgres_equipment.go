package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"floodwatch/internal/domain"
)

type PostgresEquipmentRepository struct {
	db *sql.DB
}

func NewPostgresEquipmentRepository(db *sql.DB) *PostgresEquipmentRepository {
	return &PostgresEquipmentRepository{db: db}
}

var _ EquipmentRepository = (*PostgresEquipmentRepository)(nil)

func (r *PostgresEquipmentRepository) ListByRescuer(ctx context.Context, rescuerID string) ([]*domain.RescuerEquipment, error) {
	query := `
		SELECT equipment_id::text, rescuer_id::text, name, quantity, condition, updated_at
		FROM rescuer_equipment
		WHERE rescuer_id = $1
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query, rescuerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	defer rows.Close()

	out := []*domain.RescuerEquipment{}
	for rows.Next() {
		var e domain.RescuerEquipment
		if err := rows.Scan(&e.EquipmentID, &e.RescuerID, &e.Name, &e.Quantity, &e.Condition, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *PostgresEquipmentRepository) Create(ctx context.Context, e *domain.RescuerEquipment) error {
	if e.EquipmentID == "" {
		e.EquipmentID = uuid.New().String()
	}
	query := `
		INSERT INTO rescuer_equipment (equipment_id, rescuer_id, name, quantity, condition, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query, e.EquipmentID, e.RescuerID, e.Name, e.Quantity, e.Condition, e.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create equipment: %w", err)
	}
	return nil
}

func (r *PostgresEquipmentRepository) Update(ctx context.Context, e *domain.RescuerEquipment) error {
	query := `
		UPDATE rescuer_equipment
		SET name = $3, quantity = $4, condition = $5, updated_at = $6
		WHERE equipment_id = $1 AND rescuer_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, e.EquipmentID, e.RescuerID, e.Name, e.Quantity, e.Condition, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update equipment: %w", err)
	}
	return expectOne(res, "equipment")
}

func (r *PostgresEquipmentRepository) Delete(ctx context.Context, rescuerID, equipmentID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rescuer_equipment WHERE equipment_id = $1 AND rescuer_id = $2`, equipmentID, rescuerID)
	if err != nil {
		return fmt.Errorf("failed to delete equipment: %w", err)
	}
	return expectOne(res, "equipment")
}

type PostgresFloodZonesRepository struct {
	db *sql.DB
}

func NewPostgresFloodZonesRepository(db *sql.DB) *PostgresFloodZonesRepository {
	return &PostgresFloodZonesRepository{db: db}
}

var _ FloodZonesRepository = (*PostgresFloodZonesRepository)(nil)

func (r *PostgresFloodZonesRepository) List(ctx context.Context) ([]*domain.FloodZone, error) {
	query := `
		SELECT zone_id::text, name, risk_level, current_water_level, COALESCE(polygon, 'null'::jsonb), updated_at
		FROM flood_zones
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list flood zones: %w", err)
	}
	defer rows.Close()

	out := []*domain.FloodZone{}
	for rows.Next() {
		var z domain.FloodZone
		var polygon []byte
		if err := rows.Scan(&z.ZoneID, &z.Name, &z.RiskLevel, &z.CurrentWaterLevel, &polygon, &z.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan flood zone: %w", err)
		}
		z.Polygon = json.RawMessage(polygon)
		out = append(out, &z)
	}
	return out, rows.Err()
}
