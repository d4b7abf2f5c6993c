// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Oracle     OracleConfig     `mapstructure:"oracle" yaml:"oracle"`
	Mission    MissionConfig    `mapstructure:"mission" yaml:"mission"`
	Experience ExperienceConfig `mapstructure:"experience" yaml:"experience"`
	Knowledge  KnowledgeConfig  `mapstructure:"knowledge" yaml:"knowledge"`
	Policy     PolicyConfig     `mapstructure:"policy" yaml:"policy"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BackendProvider identifies the wire protocol a decision backend speaks.
type BackendProvider string

const (
	ProviderGemini BackendProvider = "gemini"
	ProviderOpenAI BackendProvider = "openai"
)

// BackendConfig defines the configuration for a single decision backend.
type BackendConfig struct {
	Provider      BackendProvider   `mapstructure:"provider" yaml:"provider"`
	Model         string            `mapstructure:"model" yaml:"model"`
	APIKey        string            `mapstructure:"api_key" yaml:"-"`
	Endpoint      string            `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout    time.Duration     `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature   float64           `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens     int               `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerSec float64          `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
	SafetyFilters map[string]string `mapstructure:"safety_filters" yaml:"safety_filters"`
}

// OracleConfig configures the decision oracle: the set of named backends
// and the backend each agent role prefers.
type OracleConfig struct {
	Backends     map[string]BackendConfig `mapstructure:"backends" yaml:"backends"`
	RoleBackends map[string]string        `mapstructure:"role_backends" yaml:"role_backends"`
}

// MissionConfig tunes a single mission's workflow walk.
type MissionConfig struct {
	MaxIterations  int           `mapstructure:"max_iterations" yaml:"max_iterations"`
	OracleTimeout  time.Duration `mapstructure:"oracle_timeout" yaml:"oracle_timeout"`
	MaxConcurrent  int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	ExploitLanguage string       `mapstructure:"exploit_language" yaml:"exploit_language"`
}

// ExperienceConfig selects and tunes the experience store backend.
type ExperienceConfig struct {
	Backend  string `mapstructure:"backend" yaml:"backend"` // "memory" or "redis"
	Capacity int    `mapstructure:"capacity" yaml:"capacity"`
	RedisURL string `mapstructure:"redis_url" yaml:"-"`
}

// KnowledgeConfig holds the connection details for the knowledge store.
type KnowledgeConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	PostgresURL string `mapstructure:"postgres_url" yaml:"-"`
}

// PolicyConfig holds the thresholds the policy adapter uses when turning
// aggregate performance into prompt feedback.
type PolicyConfig struct {
	LowSuccessRate    float64 `mapstructure:"low_success_rate" yaml:"low_success_rate"`
	HighDetectionRate float64 `mapstructure:"high_detection_rate" yaml:"high_detection_rate"`
	TopStrategies     int     `mapstructure:"top_strategies" yaml:"top_strategies"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "ares-cli")
	v.SetDefault("logger.log_file", "ares.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Mission --
	v.SetDefault("mission.max_iterations", 5)
	v.SetDefault("mission.oracle_timeout", "2m")
	v.SetDefault("mission.max_concurrent", 4)
	v.SetDefault("mission.exploit_language", "python")

	// -- Experience store --
	v.SetDefault("experience.backend", "memory")
	v.SetDefault("experience.capacity", 10000)

	// -- Knowledge store --
	v.SetDefault("knowledge.enabled", false)

	// -- Policy adapter --
	v.SetDefault("policy.low_success_rate", 0.3)
	v.SetDefault("policy.high_detection_rate", 0.2)
	v.SetDefault("policy.top_strategies", 3)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults only, but fail loudly if it does.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("experience.redis_url", "ARES_REDIS_URL")
	v.BindEnv("knowledge.postgres_url", "ARES_POSTGRES_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Backend API keys come from the environment, keyed by backend name.
	for name, bc := range cfg.Oracle.Backends {
		if bc.APIKey == "" {
			envKey := "ARES_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_API_KEY"
			v.BindEnv(fmt.Sprintf("oracle.backends.%s.api_key", name), envKey)
			bc.APIKey = v.GetString(fmt.Sprintf("oracle.backends.%s.api_key", name))
			cfg.Oracle.Backends[name] = bc
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Mission.MaxIterations <= 0 {
		return fmt.Errorf("mission.max_iterations must be a positive integer")
	}
	if c.Mission.MaxConcurrent <= 0 {
		return fmt.Errorf("mission.max_concurrent must be a positive integer")
	}
	if c.Experience.Capacity <= 0 {
		return fmt.Errorf("experience.capacity must be a positive integer")
	}
	switch c.Experience.Backend {
	case "memory":
	case "redis":
		if c.Experience.RedisURL == "" {
			return fmt.Errorf("experience.backend is redis but ARES_REDIS_URL is not set")
		}
	default:
		return fmt.Errorf("unknown experience.backend: %q (supported: memory, redis)", c.Experience.Backend)
	}
	if c.Knowledge.Enabled && c.Knowledge.PostgresURL == "" {
		return fmt.Errorf("knowledge store is enabled but ARES_POSTGRES_URL is not set")
	}
	if c.Policy.LowSuccessRate < 0 || c.Policy.LowSuccessRate > 1 {
		return fmt.Errorf("policy.low_success_rate must be between 0.0 and 1.0")
	}
	if c.Policy.HighDetectionRate < 0 || c.Policy.HighDetectionRate > 1 {
		return fmt.Errorf("policy.high_detection_rate must be between 0.0 and 1.0")
	}
	for name, bc := range c.Oracle.Backends {
		if bc.Provider != ProviderGemini && bc.Provider != ProviderOpenAI {
			return fmt.Errorf("oracle backend %q has unsupported provider %q", name, bc.Provider)
		}
		if bc.Model == "" {
			return fmt.Errorf("oracle backend %q is missing a model name", name)
		}
	}
	return nil
}
