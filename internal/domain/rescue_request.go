package domain

import "time"

// RescueRequest rescue_requests row
type RescueRequest struct {
	RequestID         string        `db:"request_id" json:"request_id"`
	RequesterID       string        `db:"requester_id" json:"requester_id"`
	Severity          Severity      `db:"severity" json:"severity"`
	Status            RequestStatus `db:"status" json:"status"`
	IsQuickSOS        bool          `db:"is_quick_sos" json:"is_quick_sos"`
	HouseholdCount    int           `db:"household_count" json:"household_count"` // >= 1
	SpecialNeeds      []string      `db:"special_needs" json:"special_needs"`     // TEXT[]
	Latitude          *float64      `db:"latitude" json:"latitude,omitempty"`
	Longitude         *float64      `db:"longitude" json:"longitude,omitempty"`
	Address           *string       `db:"address" json:"address,omitempty"`
	Description       *string       `db:"description" json:"description,omitempty"`
	AssignedRescuerID *string       `db:"assigned_rescuer_id" json:"assigned_rescuer_id,omitempty"`
	PriorityScore     int           `db:"priority_score" json:"priority_score"` // 0..100
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
	AssignedAt        *time.Time    `db:"assigned_at" json:"assigned_at,omitempty"`
	CompletedAt       *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
}

// HasLocation reports whether both coordinates are set.
func (r *RescueRequest) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}
