package httpapi

import (
	"encoding/json"
	"fmt"

	"floodwatch/internal/domain"
	"floodwatch/internal/realtime"
)

// changeOwner is the subset of a change record used for row-level checks.
type changeOwner struct {
	RequesterID string      `json:"requester_id"`
	RescuerID   string      `json:"rescuer_id"`
	Role        domain.Role `json:"role"`
}

func ownerOf(c realtime.Change) (changeOwner, bool) {
	var o changeOwner
	if len(c.Record) == 0 {
		return o, false
	}
	if err := json.Unmarshal(c.Record, &o); err != nil {
		return o, false
	}
	return o, true
}

// changePredicate returns the row filter for caller on table, mirroring the
// read rules of the matching service. A nil predicate means every row.
// Tables the caller may not read at all return ErrForbidden.
func changePredicate(caller *domain.Profile, table string) (realtime.Predicate, error) {
	admin := caller.Role == domain.RoleMDRRMOAdmin
	switch table {
	case realtime.TableEvacuationCenters, realtime.TableWeatherAlerts,
		realtime.TableWeatherForecast, realtime.TableFloodZones:
		return nil, nil

	case realtime.TableRescueRequests:
		if caller.Role != domain.RoleResident {
			return nil, nil
		}
		return func(c realtime.Change) bool {
			o, ok := ownerOf(c)
			return ok && o.RequesterID == caller.UserID
		}, nil

	case realtime.TableEvacuees:
		if admin || caller.Role == domain.RoleBarangayOfficial {
			return nil, nil
		}

	case realtime.TableRescuerEquipment:
		if admin {
			return nil, nil
		}
		if caller.Role == domain.RoleRescuer {
			return func(c realtime.Change) bool {
				o, ok := ownerOf(c)
				return ok && o.RescuerID == caller.UserID
			}, nil
		}

	case realtime.TableProfiles:
		if admin {
			return nil, nil
		}
		official := caller.Role == domain.RoleBarangayOfficial
		return func(c realtime.Change) bool {
			if c.ID == caller.UserID {
				return true
			}
			if !official {
				return false
			}
			// officials follow the rescuer roster
			o, ok := ownerOf(c)
			return ok && o.Role == domain.RoleRescuer
		}, nil
	}
	return nil, fmt.Errorf("changes on %s: %w", table, domain.ErrForbidden)
}
