// Package occupancy holds the evacuation-center counter arithmetic.
package occupancy

import "floodwatch/internal/domain"

// Level display bucket for how full a center is.
type Level string

const (
	LevelNormal   Level = "normal"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Clamp applies delta to current and never returns a negative count.
func Clamp(current, delta int) int {
	next := current + delta
	if next < 0 {
		return 0
	}
	return next
}

// Percent of capacity in use, 0 when capacity is not set. May exceed 100.
func Percent(current, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(current) * 100 / float64(capacity)
}

// LevelOf: below 70% normal, below 90% high, otherwise critical.
func LevelOf(current, capacity int) Level {
	p := Percent(current, capacity)
	switch {
	case p < 70:
		return LevelNormal
	case p < 90:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// DeriveStatus flips an open center to full at capacity and a full one back
// to open below it. Closed centers stay closed.
func DeriveStatus(status domain.CenterStatus, current, capacity int) domain.CenterStatus {
	if status == domain.CenterClosed {
		return status
	}
	if capacity > 0 && current >= capacity {
		return domain.CenterFull
	}
	return domain.CenterOpen
}
