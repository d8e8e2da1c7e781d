package repository

import (
	"context"
	"time"

	"floodwatch/internal/domain"
)

// WeatherAlertsRepository weather_alerts table.
type WeatherAlertsRepository interface {
	Create(ctx context.Context, a *domain.WeatherAlert) error
	Get(ctx context.Context, alertID string) (*domain.WeatherAlert, error)
	// ListActive returns active, unexpired alerts newest first. A non-empty
	// zone keeps only alerts targeting that zone or all zones.
	ListActive(ctx context.Context, zone string, now time.Time) ([]*domain.WeatherAlert, error)
	ListAll(ctx context.Context, limit int) ([]*domain.WeatherAlert, error)
	Deactivate(ctx context.Context, alertID string) error
	Delete(ctx context.Context, alertID string) error
	// ExpireDue deactivates alerts whose expires_at has passed and returns their ids.
	ExpireDue(ctx context.Context, now time.Time) ([]string, error)
}

// WeatherForecastRepository weather_forecast table.
type WeatherForecastRepository interface {
	ListLatest(ctx context.Context, limit int) ([]*domain.WeatherForecast, error)
	// Upsert inserts or replaces the forecast for f.ForecastDate.
	Upsert(ctx context.Context, f *domain.WeatherForecast) error
}
