package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/realtime"
	"floodwatch/internal/repository"
)

// MessagePublisher device-side fan-out (sirens, rescuer handsets). The
// common MQTT client satisfies it.
type MessagePublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// AlertService weather alerts, forecasts and flood zones.
type AlertService interface {
	Broadcast(ctx context.Context, caller *domain.Profile, req BroadcastRequest) (*domain.WeatherAlert, error)
	ListActive(ctx context.Context, zone string) ([]*domain.WeatherAlert, error)
	ListAll(ctx context.Context, caller *domain.Profile, limit int) ([]*domain.WeatherAlert, error)
	Deactivate(ctx context.Context, caller *domain.Profile, alertID string) error
	Delete(ctx context.Context, caller *domain.Profile, alertID string) error
	// ExpireDue deactivates alerts past expires_at; run by the scheduler.
	ExpireDue(ctx context.Context) (int, error)

	ListForecasts(ctx context.Context, limit int) ([]*domain.WeatherForecast, error)
	UpsertForecast(ctx context.Context, caller *domain.Profile, f *domain.WeatherForecast) (*domain.WeatherForecast, error)
	ListFloodZones(ctx context.Context) ([]*domain.FloodZone, error)
}

type alertService struct {
	alerts      repository.WeatherAlertsRepository
	forecasts   repository.WeatherForecastRepository
	zones       repository.FloodZonesRepository
	devices     MessagePublisher // optional
	topicPrefix string
	notify      notifier
	logger      *zap.Logger
	now         func() time.Time
}

func NewAlertService(
	alerts repository.WeatherAlertsRepository,
	forecasts repository.WeatherForecastRepository,
	zones repository.FloodZonesRepository,
	devices MessagePublisher,
	topicPrefix string,
	publisher realtime.Publisher,
	logger *zap.Logger,
) AlertService {
	if topicPrefix == "" {
		topicPrefix = "floodwatch/alerts/"
	}
	return &alertService{
		alerts:      alerts,
		forecasts:   forecasts,
		zones:       zones,
		devices:     devices,
		topicPrefix: topicPrefix,
		notify:      notifier{publisher: publisher, logger: logger},
		logger:      logger,
		now:         time.Now,
	}
}

type BroadcastRequest struct {
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	Priority    domain.AlertPriority `json:"priority"`
	TargetZones []string             `json:"target_zones"`
	ExpiresAt   *time.Time           `json:"expires_at"`
}

func (s *alertService) Broadcast(ctx context.Context, caller *domain.Profile, req BroadcastRequest) (*domain.WeatherAlert, error) {
	if err := requireRole(caller, domain.RoleMDRRMOAdmin); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if req.Title == "" || req.Message == "" {
		return nil, validationf("title and message are required")
	}
	if !req.Priority.Valid() {
		return nil, validationf("invalid priority %q", req.Priority)
	}
	now := s.now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, validationf("expires_at must be in the future")
	}

	createdBy := caller.UserID
	a := &domain.WeatherAlert{
		Title:       req.Title,
		Message:     req.Message,
		Priority:    req.Priority,
		TargetZones: compactZones(req.TargetZones),
		IsActive:    true,
		CreatedBy:   &createdBy,
		CreatedAt:   now,
		ExpiresAt:   req.ExpiresAt,
	}
	if err := s.alerts.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("Weather alert broadcast",
		zap.String("alert_id", a.AlertID),
		zap.String("priority", string(a.Priority)),
		zap.Strings("target_zones", a.TargetZones),
	)
	s.notify.change(ctx, realtime.TableWeatherAlerts, realtime.ChangeInsert, a.AlertID, a)
	s.toDevices(a)
	return a, nil
}

// toDevices publishes the alert on {prefix}{priority}; critical alerts are
// retained so late-joining sirens pick them up.
func (s *alertService) toDevices(a *domain.WeatherAlert) {
	if s.devices == nil {
		return
	}
	payload, err := json.Marshal(a)
	if err != nil {
		s.logger.Error("Failed to encode alert for devices", zap.Error(err))
		return
	}
	topic := s.topicPrefix + string(a.Priority)
	if err := s.devices.Publish(topic, 1, a.Priority == domain.AlertCritical, payload); err != nil {
		s.logger.Warn("Failed to publish alert to devices",
			zap.String("topic", topic),
			zap.String("alert_id", a.AlertID),
			zap.Error(err),
		)
	}
}

func compactZones(zones []string) []string {
	out := make([]string, 0, len(zones))
	seen := map[string]bool{}
	for _, z := range zones {
		z = strings.TrimSpace(z)
		if z == "" || seen[z] {
			continue
		}
		seen[z] = true
		out = append(out, z)
	}
	return out
}

func (s *alertService) ListActive(ctx context.Context, zone string) ([]*domain.WeatherAlert, error) {
	return s.alerts.ListActive(ctx, strings.TrimSpace(zone), s.now())
}

func (s *alertService) ListAll(ctx context.Context, caller *domain.Profile, limit int) ([]*domain.WeatherAlert, error) {
	if err := requireRole(caller, domain.RoleMDRRMOAdmin, domain.RoleBarangayOfficial); err != nil {
		return nil, err
	}
	return s.alerts.ListAll(ctx, limit)
}

func (s *alertService) Deactivate(ctx context.Context, caller *domain.Profile, alertID string) error {
	if err := requireRole(caller, domain.RoleMDRRMOAdmin); err != nil {
		return err
	}
	if err := s.alerts.Deactivate(ctx, alertID); err != nil {
		return err
	}
	s.notify.change(ctx, realtime.TableWeatherAlerts, realtime.ChangeUpdate, alertID, map[string]any{"alert_id": alertID, "is_active": false})
	return nil
}

func (s *alertService) Delete(ctx context.Context, caller *domain.Profile, alertID string) error {
	if err := requireRole(caller, domain.RoleMDRRMOAdmin); err != nil {
		return err
	}
	if err := s.alerts.Delete(ctx, alertID); err != nil {
		return err
	}
	s.notify.change(ctx, realtime.TableWeatherAlerts, realtime.ChangeDelete, alertID, nil)
	return nil
}

func (s *alertService) ExpireDue(ctx context.Context) (int, error) {
	ids, err := s.alerts.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.notify.change(ctx, realtime.TableWeatherAlerts, realtime.ChangeUpdate, id, map[string]any{"alert_id": id, "is_active": false})
	}
	return len(ids), nil
}

func (s *alertService) ListForecasts(ctx context.Context, limit int) ([]*domain.WeatherForecast, error) {
	return s.forecasts.ListLatest(ctx, limit)
}

func (s *alertService) UpsertForecast(ctx context.Context, caller *domain.Profile, f *domain.WeatherForecast) (*domain.WeatherForecast, error) {
	if err := requireRole(caller, domain.RoleMDRRMOAdmin); err != nil {
		return nil, err
	}
	if f.ForecastDate.IsZero() || strings.TrimSpace(f.Condition) == "" {
		return nil, validationf("forecast_date and condition are required")
	}
	if f.RainfallMM < 0 || f.WindKPH < 0 {
		return nil, validationf("rainfall and wind must be >= 0")
	}
	if f.FloodRisk == "" {
		f.FloodRisk = "low"
	}
	f.ForecastDate = f.ForecastDate.Truncate(24 * time.Hour)
	f.CreatedAt = s.now()
	if err := s.forecasts.Upsert(ctx, f); err != nil {
		return nil, err
	}
	s.notify.change(ctx, realtime.TableWeatherForecast, realtime.ChangeUpdate, f.ForecastID, f)
	return f, nil
}

func (s *alertService) ListFloodZones(ctx context.Context) ([]*domain.FloodZone, error) {
	return s.zones.List(ctx)
}
