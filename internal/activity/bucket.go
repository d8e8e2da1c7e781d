// Package activity turns "last active" timestamps into display buckets.
package activity

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindOnline Kind = "online"
	KindRecent Kind = "recent"
	KindHours  Kind = "hours"
	KindDate   Kind = "date"
	KindNever  Kind = "never"
)

const (
	onlineWindow = 5 * time.Minute
	recentWindow = 60 * time.Minute
	hoursWindow  = 24 * time.Hour
)

// Bucket is the classification plus a ready-to-show label.
type Bucket struct {
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
}

// Classify buckets lastActive relative to now. Windows are half-open:
// exactly 5 minutes is recent and exactly 60 minutes is hours.
// A timestamp in the future counts as online.
func Classify(lastActive, now time.Time) Bucket {
	if lastActive.IsZero() {
		return Bucket{Kind: KindNever, Label: "never"}
	}
	elapsed := now.Sub(lastActive)
	switch {
	case elapsed < onlineWindow:
		return Bucket{Kind: KindOnline, Label: "online"}
	case elapsed < recentWindow:
		return Bucket{Kind: KindRecent, Label: fmt.Sprintf("%d min ago", int(elapsed/time.Minute))}
	case elapsed < hoursWindow:
		return Bucket{Kind: KindHours, Label: fmt.Sprintf("%d h ago", int(elapsed/time.Hour))}
	default:
		return Bucket{Kind: KindDate, Label: lastActive.In(now.Location()).Format("Jan 2, 2006")}
	}
}

// ClassifyPtr is Classify for nullable columns.
func ClassifyPtr(lastActive *time.Time, now time.Time) Bucket {
	if lastActive == nil {
		return Bucket{Kind: KindNever, Label: "never"}
	}
	return Classify(*lastActive, now)
}
