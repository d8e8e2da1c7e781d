package domain

import "time"

// Profile profiles row joined with the user's role.
type Profile struct {
	UserID           string     `db:"user_id" json:"user_id"`
	FullName         string     `db:"full_name" json:"full_name"`
	Email            string     `db:"email" json:"email"`
	Phone            *string    `db:"phone" json:"phone,omitempty"`
	Role             Role       `db:"role" json:"role"`
	AssignedZone     *string    `db:"assigned_zone" json:"assigned_zone,omitempty"`
	AssignedCenterID *string    `db:"assigned_center_id" json:"assigned_center_id,omitempty"`
	LastKnownLat     *float64   `db:"last_known_lat" json:"last_known_lat,omitempty"`
	LastKnownLng     *float64   `db:"last_known_lng" json:"last_known_lng,omitempty"`
	LastKnownAddress *string    `db:"last_known_address" json:"last_known_address,omitempty"`
	LastActiveAt     *time.Time `db:"last_active_at" json:"last_active_at,omitempty"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// RescuerEquipment rescuer_equipment row, owned by one rescuer.
type RescuerEquipment struct {
	EquipmentID string             `db:"equipment_id" json:"equipment_id"`
	RescuerID   string             `db:"rescuer_id" json:"rescuer_id"`
	Name        string             `db:"name" json:"name"`
	Quantity    int                `db:"quantity" json:"quantity"`
	Condition   EquipmentCondition `db:"condition" json:"condition"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}
