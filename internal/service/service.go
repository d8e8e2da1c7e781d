// Package service holds the use cases behind the HTTP API. Every exported
// service is an interface with an unexported implementation; callers pass
// the signed-in profile as caller.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	commonredis "floodwatch/common/redis"
	"floodwatch/internal/domain"
	"floodwatch/internal/realtime"
	"floodwatch/internal/rescue"
)

// RescueStream Redis stream that receives one event per rescue-request change.
const RescueStream = "rescue:requests:stream"

// RescueEvent entry appended to RescueStream.
type RescueEvent struct {
	Type          string               `json:"type"` // created | accepted | assigned | started | completed | cancelled
	RequestID     string               `json:"request_id"`
	Status        domain.RequestStatus `json:"status"`
	Severity      domain.Severity      `json:"severity"`
	PriorityScore int                  `json:"priority_score"`
	IsQuickSOS    bool                 `json:"is_quick_sos"`
	RescuerID     string               `json:"rescuer_id,omitempty"`
	Latitude      *float64             `json:"latitude,omitempty"`
	Longitude     *float64             `json:"longitude,omitempty"`
	At            time.Time            `json:"at"`
}

func newRescueEvent(typ string, r *domain.RescueRequest, at time.Time) RescueEvent {
	ev := RescueEvent{
		Type:          typ,
		RequestID:     r.RequestID,
		Status:        r.Status,
		Severity:      r.Severity,
		PriorityScore: r.PriorityScore,
		IsQuickSOS:    r.IsQuickSOS,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		At:            at,
	}
	if r.AssignedRescuerID != nil {
		ev.RescuerID = *r.AssignedRescuerID
	}
	return ev
}

// EventStream appends rescue events for downstream dispatch.
type EventStream interface {
	Append(ctx context.Context, ev RescueEvent) error
}

// RedisEventStream writes to RescueStream with XADD.
type RedisEventStream struct {
	client *redis.Client
	stream string
}

func NewRedisEventStream(client *redis.Client) *RedisEventStream {
	return &RedisEventStream{client: client, stream: RescueStream}
}

func (s *RedisEventStream) Append(ctx context.Context, ev RescueEvent) error {
	if _, err := commonredis.PublishJSONToStream(ctx, s.client, s.stream, ev); err != nil {
		return fmt.Errorf("failed to append %s event: %w", ev.Type, err)
	}
	return nil
}

// notifier fans a change out to realtime subscribers and, for rescue
// requests, to the dispatch stream. Failures are logged, never returned.
type notifier struct {
	publisher realtime.Publisher
	events    EventStream
	logger    *zap.Logger
}

func (n notifier) change(ctx context.Context, table string, typ realtime.ChangeType, id string, record any) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, realtime.NewChange(table, typ, id, record)); err != nil {
		n.logger.Warn("Failed to publish change",
			zap.String("table", table),
			zap.String("id", id),
			zap.Error(err),
		)
	}
}

func (n notifier) rescue(ctx context.Context, ev RescueEvent) {
	if n.events == nil {
		return
	}
	if err := n.events.Append(ctx, ev); err != nil {
		n.logger.Warn("Failed to append rescue event",
			zap.String("request_id", ev.RequestID),
			zap.String("type", ev.Type),
			zap.Error(err),
		)
	}
}

func requireCaller(caller *domain.Profile) error {
	if caller == nil || caller.UserID == "" {
		return domain.ErrUnauthenticated
	}
	return nil
}

func requireRole(caller *domain.Profile, roles ...domain.Role) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	for _, r := range roles {
		if caller.Role == r {
			return nil
		}
	}
	return fmt.Errorf("role %s not allowed: %w", caller.Role, domain.ErrForbidden)
}

func actorOf(caller *domain.Profile) rescue.Actor {
	return rescue.Actor{UserID: caller.UserID, Role: caller.Role}
}

func validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, domain.ErrValidation)...)
}
