package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the tunnel coordination hub.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Security  SecurityConfig  `yaml:"security"`
	Firmware  FirmwareConfig  `yaml:"firmware"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket endpoint settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token verification settings.
// Tokens are issued by the account service; the hub only verifies them.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// FirmwareConfig maps a microcontroller role to its expected firmware.
type FirmwareConfig struct {
	Roles map[string]FirmwareRoleConfig `yaml:"roles"`
}

// FirmwareRoleConfig contains the expected firmware version and OTA image
// location for one microcontroller role.
type FirmwareRoleConfig struct {
	ExpectedVersion string `yaml:"expected_version"`
	OTAURL          string `yaml:"ota_url"`
}

// RecorderConfig contains persistence loop settings.
type RecorderConfig struct {
	// SampleInterval is the polling interval while recording, in milliseconds.
	SampleInterval int `yaml:"sample_interval_ms"`

	// IdleInterval is the polling interval while the device is off, in milliseconds.
	IdleInterval int `yaml:"idle_interval_ms"`

	// RecencyWindow is how recently telemetry must have arrived for the
	// microcontroller to count as active, in seconds.
	RecencyWindow int `yaml:"recency_window_s"`
}

// MQTTConfig contains optional MQTT relay settings.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      int    `yaml:"qos"`
}

// InfluxDBConfig contains optional InfluxDB telemetry mirror settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The loading order is: defaults, then YAML file values, then environment
// variables. Environment variables follow the pattern TUNNELCORE_SECTION_KEY,
// for example TUNNELCORE_DATABASE_PATH or TUNNELCORE_JWT_SECRET.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
// The recorder intervals and recency window match the rig's original tuning.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/tunnelcore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Firmware: FirmwareConfig{
			Roles: map[string]FirmwareRoleConfig{
				"fan_micro": {
					ExpectedVersion: "1.0.0",
					OTAURL:          "https://ota.aerolab.local/fan_micro.bin",
				},
				"force_micro": {
					ExpectedVersion: "1.0.0",
					OTAURL:          "https://ota.aerolab.local/force_micro.bin",
				},
			},
		},
		Recorder: RecorderConfig{
			SampleInterval: 50,
			IdleInterval:   1000,
			RecencyWindow:  10,
		},
		MQTT: MQTTConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "tunnelcore",
			QoS:      1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TUNNELCORE_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TUNNELCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("TUNNELCORE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("TUNNELCORE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// JWT secret (IMPORTANT: always override in production)
	if v := os.Getenv("TUNNELCORE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}

	// Per-role firmware overrides, matching the rig's deployment scripts.
	if v := os.Getenv("TUNNELCORE_FAN_MICRO_FW"); v != "" {
		overrideRoleVersion(cfg, "fan_micro", v)
	}
	if v := os.Getenv("TUNNELCORE_FORCE_MICRO_FW"); v != "" {
		overrideRoleVersion(cfg, "force_micro", v)
	}
	if v := os.Getenv("TUNNELCORE_FAN_MICRO_OTA_URL"); v != "" {
		overrideRoleOTAURL(cfg, "fan_micro", v)
	}
	if v := os.Getenv("TUNNELCORE_FORCE_MICRO_OTA_URL"); v != "" {
		overrideRoleOTAURL(cfg, "force_micro", v)
	}

	if v := os.Getenv("TUNNELCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Host = v
	}
	if v := os.Getenv("TUNNELCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("TUNNELCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}

	if v := os.Getenv("TUNNELCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("TUNNELCORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func overrideRoleVersion(cfg *Config, role, version string) {
	rc := cfg.Firmware.Roles[role]
	rc.ExpectedVersion = version
	cfg.Firmware.Roles[role] = rc
}

func overrideRoleOTAURL(cfg *Config, role, url string) {
	rc := cfg.Firmware.Roles[role]
	rc.OTAURL = url
	cfg.Firmware.Roles[role] = rc
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// JWT secret is REQUIRED: the hub gates every client session on token
	// verification, and a weak secret would let anyone forge an identity.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set TUNNELCORE_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if c.Recorder.SampleInterval <= 0 {
		errs = append(errs, "recorder.sample_interval_ms must be positive")
	}
	if c.Recorder.IdleInterval <= 0 {
		errs = append(errs, "recorder.idle_interval_ms must be positive")
	}
	if c.Recorder.RecencyWindow <= 0 {
		errs = append(errs, "recorder.recency_window_s must be positive")
	}

	for role, rc := range c.Firmware.Roles {
		if rc.ExpectedVersion == "" {
			errs = append(errs, fmt.Sprintf("firmware.roles.%s.expected_version is required", role))
		}
		if rc.OTAURL == "" {
			errs = append(errs, fmt.Sprintf("firmware.roles.%s.ota_url is required", role))
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Host == "" {
			errs = append(errs, "mqtt.host is required when mqtt is enabled")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// SampleIntervalDuration returns the recorder polling interval as a Duration.
func (c *RecorderConfig) SampleIntervalDuration() time.Duration {
	return time.Duration(c.SampleInterval) * time.Millisecond
}

// IdleIntervalDuration returns the device-off polling interval as a Duration.
func (c *RecorderConfig) IdleIntervalDuration() time.Duration {
	return time.Duration(c.IdleInterval) * time.Millisecond
}

// RecencyWindowDuration returns the telemetry recency window as a Duration.
func (c *RecorderConfig) RecencyWindowDuration() time.Duration {
	return time.Duration(c.RecencyWindow) * time.Second
}
