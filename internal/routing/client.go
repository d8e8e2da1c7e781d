// Package routing calls an OSRM-compatible routing service and falls back to
// a straight line when it cannot.
package routing

import (
	"context"
	"fmt"
	"time"

	"floodwatch/internal/geo"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// fallbackSpeedKPH assumed travel speed for straight-line estimates.
const fallbackSpeedKPH = 30.0

// Point is a lat/lng pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Route ordered path with distance (metres) and duration (seconds).
type Route struct {
	Path     []Point `json:"path"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Fallback bool    `json:"fallback"`
}

// osrmResponse subset of the OSRM /route response.
type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"` // [lng, lat]
		} `json:"geometry"`
	} `json:"routes"`
}

// Client OSRM client. Requests are unauthenticated.
type Client struct {
	httpClient *resty.Client
	profile    string
	logger     *zap.Logger
}

// NewClient; profile is usually "driving".
func NewClient(baseURL, profile string, timeout time.Duration, logger *zap.Logger) *Client {
	if profile == "" {
		profile = "driving"
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		profile:    profile,
		logger:     logger,
	}
}

// Route returns the driving route from origin to dest. It never fails: any
// service error yields StraightLine(origin, dest).
func (c *Client) Route(ctx context.Context, origin, dest Point) *Route {
	r, err := c.fetch(ctx, origin, dest)
	if err != nil {
		c.logger.Warn("Routing service failed, using straight line",
			zap.Float64("from_lat", origin.Lat),
			zap.Float64("from_lng", origin.Lng),
			zap.Float64("to_lat", dest.Lat),
			zap.Float64("to_lng", dest.Lng),
			zap.Error(err),
		)
		return StraightLine(origin, dest)
	}
	return r
}

func (c *Client) fetch(ctx context.Context, origin, dest Point) (*Route, error) {
	coords := fmt.Sprintf("%f,%f;%f,%f", origin.Lng, origin.Lat, dest.Lng, dest.Lat)

	var out osrmResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetRawPathParams(map[string]string{
			"profile": c.profile,
			"coords":  coords,
		}).
		SetQueryParams(map[string]string{
			"overview":   "full",
			"geometries": "geojson",
		}).
		SetResult(&out).
		Get("/route/v1/{profile}/{coords}")
	if err != nil {
		return nil, fmt.Errorf("failed to call routing service: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("routing service returned HTTP %d", resp.StatusCode())
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return nil, fmt.Errorf("routing service error: %s %s", out.Code, out.Message)
	}

	best := out.Routes[0]
	path := make([]Point, 0, len(best.Geometry.Coordinates))
	for _, c := range best.Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		path = append(path, Point{Lat: c[1], Lng: c[0]})
	}
	if len(path) < 2 {
		return nil, fmt.Errorf("routing service returned an empty path")
	}

	return &Route{
		Path:     path,
		Distance: best.Distance,
		Duration: best.Duration,
	}, nil
}

// StraightLine two-point route with haversine distance.
func StraightLine(origin, dest Point) *Route {
	d := geo.Distance(origin.Lat, origin.Lng, dest.Lat, dest.Lng)
	return &Route{
		Path:     []Point{origin, dest},
		Distance: d,
		Duration: d / (fallbackSpeedKPH * 1000 / 3600),
		Fallback: true,
	}
}
