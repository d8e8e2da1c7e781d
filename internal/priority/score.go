// Package priority scores rescue requests for rescuer attention.
package priority

import "floodwatch/internal/domain"

const (
	baseScore     = 50
	quickSOSScore = 90
	maxScore      = 100

	householdPerPerson = 3
	householdCap       = 15
	perSpecialNeed     = 5
)

// Input attributes of a request; the caller applies defaults before scoring.
type Input struct {
	IsQuickSOS        bool
	Severity          domain.Severity
	HouseholdCount    int
	SpecialNeedsCount int
	AmbientAlert      domain.AlertPriority
}

// Score returns an urgency score in [0,100].
// A quick SOS starts at 90 and ignores severity, household and needs.
func Score(in Input) int {
	score := baseScore
	if in.IsQuickSOS {
		score = quickSOSScore
	} else {
		score += SeverityBonus(in.Severity)
		score += HouseholdBonus(in.HouseholdCount)
		if in.SpecialNeedsCount > 0 {
			score += in.SpecialNeedsCount * perSpecialNeed
		}
	}
	score += AmbientBonus(in.AmbientAlert)
	return clamp(score)
}

func SeverityBonus(s domain.Severity) int {
	switch s {
	case domain.SeverityCritical:
		return 40
	case domain.SeverityHigh:
		return 25
	}
	return 10
}

// HouseholdBonus saturates at 15 (five or more people).
func HouseholdBonus(count int) int {
	if count <= 0 {
		return 0
	}
	return min(count*householdPerPerson, householdCap)
}

func AmbientBonus(p domain.AlertPriority) int {
	switch p {
	case domain.AlertCritical:
		return 10
	case domain.AlertWarning:
		return 5
	}
	return 0
}

// AmbientFromAlerts returns the highest priority among active alerts that
// target zone, or AlertNone.
func AmbientFromAlerts(alerts []*domain.WeatherAlert, zone string) domain.AlertPriority {
	best := domain.AlertNone
	for _, a := range alerts {
		if a == nil || !a.IsActive || !a.Targets(zone) {
			continue
		}
		if a.Priority.Rank() > best.Rank() {
			best = a.Priority
		}
	}
	return best
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
