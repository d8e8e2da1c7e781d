package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	origin = Point{Lat: 14.60, Lng: 120.98}
	dest   = Point{Lat: 14.65, Lng: 121.03}
)

func TestRoute_Success(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": "Ok",
			"routes": [{
				"distance": 8123.4,
				"duration": 912.5,
				"geometry": {"coordinates": [[120.98, 14.60], [121.00, 14.62], [121.03, 14.65]]}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "driving", 2*time.Second, zap.NewNop())
	r := c.Route(context.Background(), origin, dest)

	require.NotNil(t, r)
	assert.False(t, r.Fallback)
	assert.True(t, strings.HasPrefix(gotPath, "/route/v1/driving/"))
	assert.Contains(t, gotQuery, "geometries=geojson")
	assert.Equal(t, 8123.4, r.Distance)
	assert.Equal(t, 912.5, r.Duration)
	require.Len(t, r.Path, 3)
	assert.Equal(t, Point{Lat: 14.62, Lng: 121.00}, r.Path[1])
}

func TestRoute_FallbackOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, zap.NewNop())
	r := c.Route(context.Background(), origin, dest)

	assert.True(t, r.Fallback)
	assert.Equal(t, []Point{origin, dest}, r.Path)
	assert.Greater(t, r.Distance, 7000.0)
}

func TestRoute_FallbackOnNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"NoRoute","message":"Impossible route","routes":[]}`))
	}))
	defer srv.Close()

	r := NewClient(srv.URL, "driving", time.Second, zap.NewNop()).Route(context.Background(), origin, dest)
	assert.True(t, r.Fallback)
}

func TestRoute_FallbackOnUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	r := NewClient(url, "driving", 200*time.Millisecond, zap.NewNop()).Route(context.Background(), origin, dest)
	assert.True(t, r.Fallback)
}

func TestStraightLine(t *testing.T) {
	r := StraightLine(origin, origin)
	assert.Equal(t, 0.0, r.Distance)
	assert.Equal(t, 0.0, r.Duration)

	r = StraightLine(Point{Lat: 14, Lng: 121}, Point{Lat: 15, Lng: 121})
	// ~111 km at 30 km/h is ~3.7 h
	assert.InDelta(t, 13343, r.Duration, 50)
}
