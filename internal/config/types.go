package config

import "time"

// Config represents the main configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Filter   FilterConfig   `yaml:"filter" mapstructure:"filter"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Upstream UpstreamConfig `yaml:"upstream" mapstructure:"upstream"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Events   EventsConfig   `yaml:"events" mapstructure:"events"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int           `yaml:"port" mapstructure:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// FilterConfig contains the content-safety filter configuration. Blocklist
// terms are matched as case-insensitive literal substrings.
type FilterConfig struct {
	MaxMessageLength int      `yaml:"max_message_length" mapstructure:"max_message_length"`
	Blocklist        []string `yaml:"blocklist" mapstructure:"blocklist"`
}

// DatabaseConfig contains audit log storage configuration. An empty
// database_url selects the in-memory store.
type DatabaseConfig struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// CacheConfig contains the Redis conversation-context cache configuration.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL string        `yaml:"redis_url" mapstructure:"redis_url"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// UpstreamConfig contains generative backend configuration. Without an API
// key the service runs in dummy mode and answers with canned responses.
type UpstreamConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// EventsConfig contains the live filter-event WebSocket configuration.
type EventsConfig struct {
	Enabled              bool   `yaml:"enabled" mapstructure:"enabled"`
	Path                 string `yaml:"path" mapstructure:"path"`
	BroadcastDecisions   bool   `yaml:"broadcast_decisions" mapstructure:"broadcast_decisions"`
	BroadcastConnections bool   `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
}

// DefaultBlocklist is the seed set of disallowed terms. Operators extend it
// through configuration; matching semantics live in internal/filter.
var DefaultBlocklist = []string{
	"해킹",
	"크랙",
	"불법",
	"도용",
	"관리자 비밀번호",
	"DB 접속정보",
	"API 키",
}

// GetDefaults returns a configuration with sensible defaults.
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Filter: FilterConfig{
			MaxMessageLength: 2000,
			Blocklist:        append([]string(nil), DefaultBlocklist...),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:  false,
			RedisURL: "redis://localhost:6379/0",
			TTL:      10 * time.Minute,
		},
		Upstream: UpstreamConfig{
			Model:       "gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Events: EventsConfig{
			Enabled:              true,
			Path:                 "/ws",
			BroadcastDecisions:   true,
			BroadcastConnections: true,
		},
	}
	cfg.Logging.File.Path = "logs/chatguard.log"
	return cfg
}
