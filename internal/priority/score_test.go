package priority

import (
	"testing"

	"floodwatch/internal/domain"

	"github.com/stretchr/testify/assert"
)

var (
	severities = []domain.Severity{domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical}
	ambients   = []domain.AlertPriority{domain.AlertNone, domain.AlertInformational, domain.AlertWarning, domain.AlertCritical}
)

func TestScore_Bounds(t *testing.T) {
	for _, quick := range []bool{false, true} {
		for _, sev := range severities {
			for household := 1; household <= 12; household++ {
				for needs := 0; needs <= 6; needs++ {
					for _, amb := range ambients {
						s := Score(Input{
							IsQuickSOS:        quick,
							Severity:          sev,
							HouseholdCount:    household,
							SpecialNeedsCount: needs,
							AmbientAlert:      amb,
						})
						assert.GreaterOrEqual(t, s, 0)
						assert.LessOrEqual(t, s, 100)
					}
				}
			}
		}
	}
}

func TestScore_QuickSOSDominance(t *testing.T) {
	for _, amb := range ambients {
		want := min(90+AmbientBonus(amb), 100)
		for _, sev := range severities {
			for _, household := range []int{1, 3, 9} {
				for _, needs := range []int{0, 2, 6} {
					got := Score(Input{
						IsQuickSOS:        true,
						Severity:          sev,
						HouseholdCount:    household,
						SpecialNeedsCount: needs,
						AmbientAlert:      amb,
					})
					assert.Equal(t, want, got, "ambient=%s severity=%s household=%d needs=%d", amb, sev, household, needs)
				}
			}
		}
	}
}

func TestScore_HouseholdMonotonic(t *testing.T) {
	prev := -1
	for household := 1; household <= 10; household++ {
		s := Score(Input{Severity: domain.SeverityMedium, HouseholdCount: household})
		assert.GreaterOrEqual(t, s, prev, "household=%d", household)
		prev = s
	}

	// saturates at five people
	assert.Equal(t,
		Score(Input{Severity: domain.SeverityMedium, HouseholdCount: 5}),
		Score(Input{Severity: domain.SeverityMedium, HouseholdCount: 8}),
	)
}

func TestScore_SeverityOrdering(t *testing.T) {
	in := Input{HouseholdCount: 1}
	in.Severity = domain.SeverityCritical
	critical := Score(in)
	in.Severity = domain.SeverityHigh
	high := Score(in)
	in.Severity = domain.SeverityMedium
	medium := Score(in)

	assert.Greater(t, critical, high)
	assert.Greater(t, high, medium)
}

func TestScore_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want int
	}{
		{
			name: "quick sos under critical alert",
			in:   Input{IsQuickSOS: true, AmbientAlert: domain.AlertCritical},
			want: 100,
		},
		{
			name: "quick sos without alert",
			in:   Input{IsQuickSOS: true, AmbientAlert: domain.AlertNone},
			want: 90,
		},
		{
			name: "detailed critical with needs clamps",
			in: Input{
				Severity:          domain.SeverityCritical,
				HouseholdCount:    4,
				SpecialNeedsCount: 2,
				AmbientAlert:      domain.AlertWarning,
			},
			want: 100, // 50+40+12+10+5 = 117
		},
		{
			name: "single medium request",
			in:   Input{Severity: domain.SeverityMedium, HouseholdCount: 1},
			want: 63, // 50+10+3
		},
		{
			name: "high severity family of two with informational alert",
			in:   Input{Severity: domain.SeverityHigh, HouseholdCount: 2, AmbientAlert: domain.AlertInformational},
			want: 81, // 50+25+6+0
		},
		{
			name: "unknown severity scores as medium",
			in:   Input{Severity: "", HouseholdCount: 1},
			want: 63,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.in))
		})
	}
}

func TestAmbientFromAlerts(t *testing.T) {
	alerts := []*domain.WeatherAlert{
		{Priority: domain.AlertWarning, IsActive: true},
		{Priority: domain.AlertCritical, IsActive: false},
		{Priority: domain.AlertCritical, IsActive: true, TargetZones: []string{"zone-b"}},
		nil,
	}

	assert.Equal(t, domain.AlertWarning, AmbientFromAlerts(alerts, "zone-a"))
	assert.Equal(t, domain.AlertCritical, AmbientFromAlerts(alerts, "zone-b"))
	assert.Equal(t, domain.AlertNone, AmbientFromAlerts(nil, "zone-a"))
}
