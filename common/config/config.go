package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// DatabaseConfig Postgres connection settings. URL, when set, wins over the
// individual fields.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	MaxIdle  int    `yaml:"max_idle"`
}

// RedisConfig Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"` // 0 = go-redis default
}

// MQTTConfig broker settings shared by the locator and the alert publisher
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
}

// GetDSN returns the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	parts := []string{
		"host=" + dsnValue(c.Host),
		fmt.Sprintf("port=%d", c.Port),
		"user=" + dsnValue(c.User),
		"dbname=" + dsnValue(c.Database),
	}
	if c.Password != "" {
		parts = append(parts, "password="+dsnValue(c.Password))
	}
	if c.SSLMode != "" {
		parts = append(parts, "sslmode="+dsnValue(c.SSLMode))
	}
	return strings.Join(parts, " ")
}

// Describe identifies the database for logs, without credentials.
func (c *DatabaseConfig) Describe() string {
	if c.URL != "" {
		if u, err := url.Parse(c.URL); err == nil {
			return u.Redacted()
		}
		return "<unparseable url>"
	}
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, c.Port, c.Database)
}

// dsnValue quotes v for the key=value DSN form when it is empty or holds
// spaces, quotes or backslashes.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// LoadFromEnv overrides fields from PREFIX_HOST, PREFIX_PORT, ...
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	if u := os.Getenv(prefix + "_URL"); u != "" {
		c.URL = u
	}
	if host := os.Getenv(prefix + "_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv(prefix + "_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
	if user := os.Getenv(prefix + "_USER"); user != "" {
		c.User = user
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if database := os.Getenv(prefix + "_NAME"); database != "" {
		c.Database = database
	}
	if sslMode := os.Getenv(prefix + "_SSLMODE"); sslMode != "" {
		c.SSLMode = sslMode
	}
	if maxConns := os.Getenv(prefix + "_MAX_CONNS"); maxConns != "" {
		if n, err := strconv.Atoi(maxConns); err == nil {
			c.MaxConns = n
		}
	}
}

// LoadFromEnv overrides fields from PREFIX_ADDR, PREFIX_PASSWORD, PREFIX_DB,
// PREFIX_POOL_SIZE
func (c *RedisConfig) LoadFromEnv(prefix string) {
	if addr := os.Getenv(prefix + "_ADDR"); addr != "" {
		c.Addr = addr
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if db := os.Getenv(prefix + "_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			c.DB = n
		}
	}
	if pool := os.Getenv(prefix + "_POOL_SIZE"); pool != "" {
		if n, err := strconv.Atoi(pool); err == nil && n > 0 {
			c.PoolSize = n
		}
	}
}

// LoadFromEnv overrides fields from PREFIX_ENABLED, PREFIX_BROKER, ...
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	if enabled := os.Getenv(prefix + "_ENABLED"); enabled != "" {
		c.Enabled = enabled == "true"
	}
	if broker := os.Getenv(prefix + "_BROKER"); broker != "" {
		c.Broker = broker
	}
	if clientID := os.Getenv(prefix + "_CLIENT_ID"); clientID != "" {
		c.ClientID = clientID
	}
	if username := os.Getenv(prefix + "_USERNAME"); username != "" {
		c.Username = username
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if qos := os.Getenv(prefix + "_QOS"); qos != "" {
		if n, err := strconv.Atoi(qos); err == nil && n >= 0 && n <= 2 {
			c.QoS = byte(n)
		}
	}
}
