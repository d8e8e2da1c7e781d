// Package geo covers device positions: typed errors, the timeout/fallback
// policy, the per-session update throttle and distance math.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrPermissionDenied    = errors.New("geolocation permission denied")
	ErrPositionUnavailable = errors.New("geolocation position unavailable")
	ErrTimeout             = errors.New("geolocation timeout")
)

// Position one fix reported by a device.
type Position struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  float64   `json:"accuracy"` // metres
	Timestamp time.Time `json:"timestamp"`
}

// Validate rejects coordinates outside WGS84 bounds.
func (p Position) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("invalid coordinate %f,%f: %w", p.Lat, p.Lng, ErrPositionUnavailable)
	}
	return nil
}

// Options mirrors the browser geolocation options.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxAge       time.Duration
}

// Provider yields the current position or one of the typed errors.
type Provider interface {
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, opts Options) (Position, error)

func (f ProviderFunc) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	return f(ctx, opts)
}

// Resolved is the outcome of Resolve. Degraded is set when Position is the
// fallback, with Warning describing why.
type Resolved struct {
	Position Position `json:"position"`
	Degraded bool     `json:"degraded"`
	Warning  string   `json:"warning,omitempty"`
}

// Resolve asks provider for a fix bounded by opts.Timeout and degrades to
// fallback on any error. It never fails.
func Resolve(ctx context.Context, provider Provider, opts Options, fallback Position) Resolved {
	if provider == nil {
		return Resolved{Position: fallback, Degraded: true, Warning: ErrPositionUnavailable.Error()}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	type result struct {
		pos Position
		err error
	}
	ch := make(chan result, 1)
	go func() {
		pos, err := provider.CurrentPosition(ctx, opts)
		ch <- result{pos, err}
	}()

	select {
	case r := <-ch:
		if r.err == nil {
			r.err = r.pos.Validate()
		}
		if r.err != nil {
			return Resolved{Position: fallback, Degraded: true, Warning: r.err.Error()}
		}
		return Resolved{Position: r.pos}
	case <-ctx.Done():
		return Resolved{Position: fallback, Degraded: true, Warning: ErrTimeout.Error()}
	}
}

const earthRadiusMeters = 6371000.0

// Distance great-circle distance in metres (haversine).
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
