package service

import (
	"sort"
	"time"
)

// sortRoster most recently active first; never-active rescuers last, by name.
func sortRoster(entries []*RosterEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := lastActive(entries[i]), lastActive(entries[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return entries[i].FullName < entries[j].FullName
	})
}

func lastActive(e *RosterEntry) time.Time {
	if e.LastActiveAt == nil {
		return time.Time{}
	}
	return *e.LastActiveAt
}
