package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	commoncfg "floodwatch/common/config"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is shared by floodwatch-api, floodwatch-locator and floodwatch-admin.
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Database commoncfg.DatabaseConfig `yaml:"database"`
	Redis    commoncfg.RedisConfig    `yaml:"redis"`
	MQTT     MQTTConfig               `yaml:"mqtt"`
	Log      struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Geo      GeoConfig      `yaml:"geo"`
	Routing  RoutingConfig  `yaml:"routing"`
	Tiles    []TileProvider `yaml:"tiles"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// MQTTConfig broker settings plus the topics used by this system.
type MQTTConfig struct {
	commoncfg.MQTTConfig `yaml:",inline"`
	LocationTopic        string `yaml:"location_topic"` // e.g. floodwatch/location/+
	AlertTopicPrefix     string `yaml:"alert_topic_prefix"`
	DispatchTopicPrefix  string `yaml:"dispatch_topic_prefix"`
}

type AuthConfig struct {
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// GeoConfig geolocation policy.
type GeoConfig struct {
	DefaultLat       float64       `yaml:"default_lat"`
	DefaultLng       float64       `yaml:"default_lng"`
	Timeout          time.Duration `yaml:"timeout"`
	ThrottleInterval time.Duration `yaml:"throttle_interval"`
	MapsAPIKey       string        `yaml:"maps_api_key"`
}

// RoutingConfig OSRM-compatible routing endpoint.
type RoutingConfig struct {
	BaseURL string        `yaml:"base_url"`
	Profile string        `yaml:"profile"`
	Timeout time.Duration `yaml:"timeout"`
}

// TileProvider one selectable raster layer.
type TileProvider struct {
	Name        string `yaml:"name" json:"name"`
	URLTemplate string `yaml:"url_template" json:"url_template"`
	Attribution string `yaml:"attribution" json:"attribution"`
	MaxZoom     int    `yaml:"max_zoom" json:"max_zoom"`
}

// ScheduleConfig cron specs for background jobs.
type ScheduleConfig struct {
	AlertExpiry string        `yaml:"alert_expiry"`
	StaleSweep  string        `yaml:"stale_sweep"`
	StaleAfter  time.Duration `yaml:"stale_after"`
}

// Load reads .env (if present), the YAML file named by CONFIG_FILE (if set),
// then environment variables. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "floodwatch"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 20

	cfg.Redis.Addr = "localhost:6379"

	cfg.MQTT.Enabled = false
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "floodwatch"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LocationTopic = "floodwatch/location/+"
	cfg.MQTT.AlertTopicPrefix = "floodwatch/alerts/"
	cfg.MQTT.DispatchTopicPrefix = "floodwatch/dispatch/"

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	cfg.Auth.SessionTTL = 24 * time.Hour

	// municipal hall, used when the device cannot report a position
	cfg.Geo.DefaultLat = 14.5995
	cfg.Geo.DefaultLng = 120.9842
	cfg.Geo.Timeout = 10 * time.Second
	cfg.Geo.ThrottleInterval = 30 * time.Second

	cfg.Routing.BaseURL = "https://router.project-osrm.org"
	cfg.Routing.Profile = "driving"
	cfg.Routing.Timeout = 10 * time.Second

	cfg.Tiles = []TileProvider{
		{Name: "street", URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png", Attribution: "© OpenStreetMap contributors", MaxZoom: 19},
		{Name: "satellite", URLTemplate: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}", Attribution: "Tiles © Esri", MaxZoom: 18},
		{Name: "terrain", URLTemplate: "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png", Attribution: "© OpenTopoMap (CC-BY-SA)", MaxZoom: 17},
	}

	cfg.Schedule.AlertExpiry = "@every 1m"
	cfg.Schedule.StaleSweep = "*/15 * * * *"
	cfg.Schedule.StaleAfter = 24 * time.Hour
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Database.LoadFromEnv("DB")
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.MQTT.LoadFromEnv("MQTT")
	cfg.MQTT.LocationTopic = getEnv("MQTT_LOCATION_TOPIC", cfg.MQTT.LocationTopic)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.Auth.SessionTTL = parseDuration(os.Getenv("SESSION_TTL"), cfg.Auth.SessionTTL)

	cfg.Geo.DefaultLat = parseFloat(os.Getenv("GEO_DEFAULT_LAT"), cfg.Geo.DefaultLat)
	cfg.Geo.DefaultLng = parseFloat(os.Getenv("GEO_DEFAULT_LNG"), cfg.Geo.DefaultLng)
	cfg.Geo.Timeout = parseDuration(os.Getenv("GEO_TIMEOUT"), cfg.Geo.Timeout)
	cfg.Geo.ThrottleInterval = parseDuration(os.Getenv("GEO_THROTTLE_INTERVAL"), cfg.Geo.ThrottleInterval)
	cfg.Geo.MapsAPIKey = getEnv("MAPS_CREDENTIALS", cfg.Geo.MapsAPIKey)

	cfg.Routing.BaseURL = getEnv("ROUTING_BASE_URL", cfg.Routing.BaseURL)
	cfg.Routing.Profile = getEnv("ROUTING_PROFILE", cfg.Routing.Profile)
	cfg.Routing.Timeout = parseDuration(os.Getenv("ROUTING_TIMEOUT"), cfg.Routing.Timeout)

	cfg.Schedule.AlertExpiry = getEnv("SCHEDULE_ALERT_EXPIRY", cfg.Schedule.AlertExpiry)
	cfg.Schedule.StaleSweep = getEnv("SCHEDULE_STALE_SWEEP", cfg.Schedule.StaleSweep)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	// bare integers are seconds
	if n := parseInt(s, -1); n >= 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
