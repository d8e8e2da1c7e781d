package domain

import "time"

// EvacuationCenter evacuation_centers row
type EvacuationCenter struct {
	CenterID           string         `db:"center_id" json:"center_id"`
	Name               string         `db:"name" json:"name"`
	Barangay           string         `db:"barangay" json:"barangay"`
	Address            *string        `db:"address" json:"address,omitempty"`
	Latitude           *float64       `db:"latitude" json:"latitude,omitempty"`
	Longitude          *float64       `db:"longitude" json:"longitude,omitempty"`
	Capacity           int            `db:"capacity" json:"capacity"`
	CurrentOccupancy   int            `db:"current_occupancy" json:"current_occupancy"` // >= 0
	Status             CenterStatus   `db:"status" json:"status"`
	SuppliesStatus     SuppliesStatus `db:"supplies_status" json:"supplies_status"`
	AssignedOfficialID *string        `db:"assigned_official_id" json:"assigned_official_id,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// Evacuee evacuees row. A nil CheckedOutAt means the family is still in the center.
type Evacuee struct {
	EvacueeID          string     `db:"evacuee_id" json:"evacuee_id"`
	EvacuationCenterID string     `db:"evacuation_center_id" json:"evacuation_center_id"`
	FamilyName         string     `db:"family_name" json:"family_name"`
	AdultsCount        int        `db:"adults_count" json:"adults_count"`
	ChildrenCount      int        `db:"children_count" json:"children_count"`
	SpecialNeeds       []string   `db:"special_needs" json:"special_needs"`
	ContactNumber      *string    `db:"contact_number" json:"contact_number,omitempty"`
	RegisteredBy       *string    `db:"registered_by" json:"registered_by,omitempty"`
	CheckedInAt        time.Time  `db:"checked_in_at" json:"checked_in_at"`
	CheckedOutAt       *time.Time `db:"checked_out_at" json:"checked_out_at,omitempty"`
}

// Headcount adults plus children; this is what occupancy moves by.
func (e *Evacuee) Headcount() int {
	return e.AdultsCount + e.ChildrenCount
}
