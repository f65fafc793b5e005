// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	GenAI        GenAIConfig             `mapstructure:"genai"`
	Retry        RetryConfig             `mapstructure:"retry"`
	Storage      StorageConfig           `mapstructure:"storage"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Metrics      MetricsConfig           `mapstructure:"metrics"`
	Geolocation  GeolocationConfig       `mapstructure:"geolocation"`
	RegistryPath string                  `mapstructure:"registry_path"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// GenAIConfig configures the generative model backend.
type GenAIConfig struct {
	BaseURL              string  `mapstructure:"base_url"`
	APIKey               string  `mapstructure:"api_key"`
	Model                string  `mapstructure:"model"`
	Timeout              int     `mapstructure:"timeout_ms"`
	Temperature          float64 `mapstructure:"temperature"`
	DefaultSearchContext string  `mapstructure:"default_search_context"`
}

// RetryConfig configures the fixed-delay retry wrapper around AI calls.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	Delay       int `mapstructure:"delay_ms"`
}

// StorageConfig selects where preferences are persisted.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"` // redis or postgres
	KeyPrefix string `mapstructure:"key_prefix"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // job-level retries
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds the address of the /metrics and /health listener.
// GeolocationConfig is the device position reported to the terminal session.
// When enabled the city is detected in the background at start-up.
type GeolocationConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
