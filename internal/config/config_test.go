package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "floodwatch", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "floodwatch/location/+", cfg.MQTT.LocationTopic)

	assert.Equal(t, 10*time.Second, cfg.Geo.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Geo.ThrottleInterval)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Len(t, cfg.Tiles, 3)
	assert.Equal(t, "street", cfg.Tiles[0].Name)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "flood_test")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("GEO_THROTTLE_INTERVAL", "45s")
	t.Setenv("GEO_TIMEOUT", "5")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "flood_test", cfg.Database.Database)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, 45*time.Second, cfg.Geo.ThrottleInterval)
	assert.Equal(t, 5*time.Second, cfg.Geo.Timeout)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	os.Clearenv()
	dir := t.TempDir()
	path := filepath.Join(dir, "floodwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":7070"
geo:
  default_lat: 10.5
  default_lng: 122.25
routing:
  base_url: "http://osrm.local:5000"
  timeout: 3s
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	// env still wins over the file
	t.Setenv("ROUTING_BASE_URL", "http://osrm.override:5000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, 10.5, cfg.Geo.DefaultLat)
	assert.Equal(t, 122.25, cfg.Geo.DefaultLng)
	assert.Equal(t, 3*time.Second, cfg.Routing.Timeout)
	assert.Equal(t, "http://osrm.override:5000", cfg.Routing.BaseURL)
	// untouched defaults survive
	assert.Equal(t, 30*time.Second, cfg.Geo.ThrottleInterval)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	os.Clearenv()
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
