package domain

import (
	"encoding/json"
	"time"
)

// WeatherAlert weather_alerts row. Soft-deleted by IsActive=false.
type WeatherAlert struct {
	AlertID     string        `db:"alert_id" json:"alert_id"`
	Title       string        `db:"title" json:"title"`
	Message     string        `db:"message" json:"message"`
	Priority    AlertPriority `db:"priority" json:"priority"`
	TargetZones []string      `db:"target_zones" json:"target_zones"` // empty = all zones
	IsActive    bool          `db:"is_active" json:"is_active"`
	CreatedBy   *string       `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	ExpiresAt   *time.Time    `db:"expires_at" json:"expires_at,omitempty"`
}

// Targets reports whether the alert applies to zone.
func (a *WeatherAlert) Targets(zone string) bool {
	if len(a.TargetZones) == 0 || zone == "" {
		return true
	}
	for _, z := range a.TargetZones {
		if z == zone {
			return true
		}
	}
	return false
}

// WeatherForecast weather_forecast row, one per day.
type WeatherForecast struct {
	ForecastID   string    `db:"forecast_id" json:"forecast_id"`
	ForecastDate time.Time `db:"forecast_date" json:"forecast_date"`
	Condition    string    `db:"condition" json:"condition"`
	RainfallMM   float64   `db:"rainfall_mm" json:"rainfall_mm"`
	WindKPH      float64   `db:"wind_kph" json:"wind_kph"`
	FloodRisk    string    `db:"flood_risk" json:"flood_risk"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FloodZone flood_zones row (reference data, read-only here).
type FloodZone struct {
	ZoneID            string          `db:"zone_id" json:"zone_id"`
	Name              string          `db:"name" json:"name"`
	RiskLevel         string          `db:"risk_level" json:"risk_level"`
	CurrentWaterLevel float64         `db:"current_water_level" json:"current_water_level"`
	Polygon           json.RawMessage `db:"polygon" json:"polygon,omitempty"` // GeoJSON, JSONB
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}
