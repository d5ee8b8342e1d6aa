package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Airzone bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge"`
	Airzone  AirzoneConfig  `yaml:"airzone"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
}

// BridgeConfig contains bridge identity and operational settings.
type BridgeConfig struct {
	// ID uniquely identifies this bridge instance.
	// Used in MQTT client ID and health reporting.
	ID string `yaml:"id"`

	// PollInterval is how often to refresh state from the Airzone Cloud (seconds).
	// Default: 10 seconds.
	PollInterval int `yaml:"poll_interval"`

	// HealthInterval is how often to publish health status (seconds).
	// Default: 30 seconds.
	HealthInterval int `yaml:"health_interval"`
}

// AirzoneConfig contains Airzone Cloud account and endpoint settings.
type AirzoneConfig struct {
	// API selects which vendor API generation(s) to use: "v1", "v2", or "both".
	// v1 is the legacy zone/system API; v2 is the current device/group API.
	// Default: "v1".
	API string `yaml:"api"`

	// Endpoint is the base URL for the legacy (v1) API.
	Endpoint string `yaml:"endpoint"`

	// CloudEndpoint is the base URL for the current (v2) API.
	CloudEndpoint string `yaml:"cloud_endpoint"`

	// Username is the Airzone Cloud account email.
	Username string `yaml:"username"`

	// Password is the Airzone Cloud account password.
	// WARNING: Never log this value.
	Password string `yaml:"password"`

	// Timeout is the per-request timeout for vendor API calls (seconds).
	// Default: 15 seconds.
	Timeout int `yaml:"timeout"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
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

// InfluxDBConfig contains InfluxDB connection settings.
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

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT   JWTConfig   `yaml:"jwt"`
	Admin AdminConfig `yaml:"admin"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// AdminConfig contains the local admin account used by the REST API.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: AZBRIDGE_SECTION_KEY
// For example: AZBRIDGE_DATABASE_PATH, AZBRIDGE_AIRZONE_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:             "airzone-bridge-01",
			PollInterval:   10,
			HealthInterval: 30,
		},
		Airzone: AirzoneConfig{
			API:           "v1",
			Endpoint:      "https://www.airzonecloud.com",
			CloudEndpoint: "https://m.airzonecloud.com",
			Timeout:       15,
		},
		Database: DatabaseConfig{
			Path:        "./data/azbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "airzone-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 15,
			},
			Admin: AdminConfig{
				Username: "admin",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: AZBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Bridge
	if v := os.Getenv("AZBRIDGE_BRIDGE_ID"); v != "" {
		cfg.Bridge.ID = v
	}

	// Airzone credentials (prefer environment over file for secrets)
	if v := os.Getenv("AZBRIDGE_AIRZONE_USERNAME"); v != "" {
		cfg.Airzone.Username = v
	}
	if v := os.Getenv("AZBRIDGE_AIRZONE_PASSWORD"); v != "" {
		cfg.Airzone.Password = v
	}

	// Database
	if v := os.Getenv("AZBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("AZBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("AZBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("AZBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("AZBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("AZBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (IMPORTANT: always override in production)
	if v := os.Getenv("AZBRIDGE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("AZBRIDGE_ADMIN_PASSWORD"); v != "" {
		cfg.Security.Admin.Password = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	errs = append(errs, c.validateBridge()...)
	errs = append(errs, c.validateAirzone()...)
	errs = append(errs, c.validateInfrastructure()...)
	errs = append(errs, c.validateSecurity()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateBridge validates bridge identity and polling settings.
func (c *Config) validateBridge() []string {
	var errs []string
	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}
	if c.Bridge.PollInterval < 1 {
		errs = append(errs, "bridge.poll_interval must be at least 1 second")
	}
	if c.Bridge.HealthInterval < 1 {
		errs = append(errs, "bridge.health_interval must be at least 1 second")
	}
	return errs
}

// validateAirzone validates vendor account settings.
func (c *Config) validateAirzone() []string {
	var errs []string

	switch c.Airzone.API {
	case "v1", "v2", "both":
	default:
		errs = append(errs, `airzone.api must be "v1", "v2", or "both"`)
	}

	if c.Airzone.Username == "" {
		errs = append(errs, "airzone.username is required")
	}
	if c.Airzone.Password == "" {
		errs = append(errs, "airzone.password is required (set AZBRIDGE_AIRZONE_PASSWORD environment variable)")
	}
	if (c.Airzone.API == "v1" || c.Airzone.API == "both") && c.Airzone.Endpoint == "" {
		errs = append(errs, "airzone.endpoint is required for the v1 API")
	}
	if (c.Airzone.API == "v2" || c.Airzone.API == "both") && c.Airzone.CloudEndpoint == "" {
		errs = append(errs, "airzone.cloud_endpoint is required for the v2 API")
	}
	if c.Airzone.Timeout < 1 {
		errs = append(errs, "airzone.timeout must be at least 1 second")
	}

	return errs
}

// validateInfrastructure validates database, MQTT, and API settings.
func (c *Config) validateInfrastructure() []string {
	var errs []string
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	return errs
}

// validateSecurity validates JWT and admin account settings.
// An empty or weak JWT secret would allow attackers to forge tokens and
// drive the building's heating and cooling, so it is a hard failure.
func (c *Config) validateSecurity() []string {
	var errs []string

	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set AZBRIDGE_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if c.Security.Admin.Username == "" {
		errs = append(errs, "security.admin.username is required")
	}
	if c.Security.Admin.Password == "" {
		errs = append(errs, "security.admin.password is required (set AZBRIDGE_ADMIN_PASSWORD environment variable)")
	}

	return errs
}

// GetPollInterval returns the vendor poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Bridge.PollInterval) * time.Second
}

// GetHealthInterval returns the health reporting interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}

// GetAirzoneTimeout returns the vendor API request timeout as a Duration.
func (c *Config) GetAirzoneTimeout() time.Duration {
	return time.Duration(c.Airzone.Timeout) * time.Second
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
