package domain

// Role closed set of user roles; drives dashboards and authorization.
type Role string

const (
	RoleResident         Role = "resident"
	RoleRescuer          Role = "rescuer"
	RoleMDRRMOAdmin      Role = "mdrrmo_admin"
	RoleBarangayOfficial Role = "barangay_official"
)

func (r Role) Valid() bool {
	switch r {
	case RoleResident, RoleRescuer, RoleMDRRMOAdmin, RoleBarangayOfficial:
		return true
	}
	return false
}

// Severity of a rescue request as reported by the resident.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// RequestStatus lifecycle: pending -> assigned -> in_progress -> completed | cancelled
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusAssigned   RequestStatus = "assigned"
	StatusInProgress RequestStatus = "in_progress"
	StatusCompleted  RequestStatus = "completed"
	StatusCancelled  RequestStatus = "cancelled"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// AlertPriority of a weather alert. AlertNone is only used as "no active alert".
type AlertPriority string

const (
	AlertNone          AlertPriority = "none"
	AlertInformational AlertPriority = "informational"
	AlertWarning       AlertPriority = "warning"
	AlertCritical      AlertPriority = "critical"
)

func (p AlertPriority) Valid() bool {
	switch p {
	case AlertInformational, AlertWarning, AlertCritical:
		return true
	}
	return false
}

// Rank orders priorities: none < informational < warning < critical.
func (p AlertPriority) Rank() int {
	switch p {
	case AlertInformational:
		return 1
	case AlertWarning:
		return 2
	case AlertCritical:
		return 3
	}
	return 0
}

// SpecialNeed tag attached to requests and evacuees.
type SpecialNeed string

const (
	NeedElderly    SpecialNeed = "elderly"
	NeedDisability SpecialNeed = "disability"
	NeedInfant     SpecialNeed = "infant"
	NeedMedical    SpecialNeed = "medical"
	NeedPregnant   SpecialNeed = "pregnant"
	NeedPet        SpecialNeed = "pet"
)

func (n SpecialNeed) Valid() bool {
	switch n {
	case NeedElderly, NeedDisability, NeedInfant, NeedMedical, NeedPregnant, NeedPet:
		return true
	}
	return false
}

// NormalizeNeeds drops unknown and duplicate tags, keeping first-seen order.
func NormalizeNeeds(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, n := range in {
		if !SpecialNeed(n).Valid() {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

type EquipmentCondition string

const (
	ConditionGood        EquipmentCondition = "good"
	ConditionNeedsRepair EquipmentCondition = "needs_repair"
	ConditionDamaged     EquipmentCondition = "damaged"
)

func (c EquipmentCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionNeedsRepair, ConditionDamaged:
		return true
	}
	return false
}

type CenterStatus string

const (
	CenterOpen   CenterStatus = "open"
	CenterFull   CenterStatus = "full"
	CenterClosed CenterStatus = "closed"
)

func (s CenterStatus) Valid() bool {
	switch s {
	case CenterOpen, CenterFull, CenterClosed:
		return true
	}
	return false
}

type SuppliesStatus string

const (
	SuppliesAdequate SuppliesStatus = "adequate"
	SuppliesLow      SuppliesStatus = "low"
	SuppliesCritical SuppliesStatus = "critical"
)

func (s SuppliesStatus) Valid() bool {
	switch s {
	case SuppliesAdequate, SuppliesLow, SuppliesCritical:
		return true
	}
	return false
}
