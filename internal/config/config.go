package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Klaviyo KlaviyoConfig `yaml:"klaviyo"`
	Intake  IntakeConfig  `yaml:"intake"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/Lambda, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// KlaviyoConfig holds Klaviyo API configuration
type KlaviyoConfig struct {
	APIKey         string   `yaml:"api_key"`
	BaseURL        string   `yaml:"base_url"`
	Revision       string   `yaml:"revision"` // API version header, pinned
	ListIDs        []string `yaml:"list_ids"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`

	// Subscription job verification. Jobs are accepted asynchronously;
	// when verification is on, the relay polls the job until it settles
	// or the budget runs out.
	SkipJobVerify    bool `yaml:"skip_job_verify"`
	JobPollSeconds   int  `yaml:"job_poll_seconds"`
	JobBudgetSeconds int  `yaml:"job_budget_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c KlaviyoConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// JobPollInterval returns the job polling interval as a duration
func (c KlaviyoConfig) JobPollInterval() time.Duration {
	return time.Duration(c.JobPollSeconds) * time.Second
}

// JobPollBudget returns the total job polling budget as a duration
func (c KlaviyoConfig) JobPollBudget() time.Duration {
	return time.Duration(c.JobBudgetSeconds) * time.Second
}

// IntakeConfig holds webhook intake and contact normalization settings
type IntakeConfig struct {
	// SharedSecret gates the webhook with a bearer token when set.
	// Empty means the endpoint is open (API Gateway handles auth upstream).
	SharedSecret string `yaml:"shared_secret"`

	// DefaultCountry is assumed when a submission carries no usable
	// country signal.
	DefaultCountry string `yaml:"default_country"`

	// SMSAllowedCallingCodes restricts SMS consent to phone numbers whose
	// E.164 calling code prefix appears here (e.g. "1", "44"). Empty
	// means any valid phone may receive SMS consent.
	SMSAllowedCallingCodes []string `yaml:"sms_allowed_calling_codes"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// FromEnv builds configuration from environment variables alone, for
// deployments with no config file on disk (Lambda).
func FromEnv() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

// Validate reports whether the configuration can serve submissions.
// A failure here is surfaced to webhook callers as server
// misconfiguration rather than a client error.
func (c *Config) Validate() error {
	if c.Klaviyo.APIKey == "" {
		return fmt.Errorf("klaviyo api_key is not configured")
	}
	if len(c.Klaviyo.ListIDs) == 0 {
		return fmt.Errorf("no klaviyo list_ids configured")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Klaviyo.BaseURL == "" {
		c.Klaviyo.BaseURL = "https://a.klaviyo.com"
	}
	if c.Klaviyo.Revision == "" {
		c.Klaviyo.Revision = "2024-10-15"
	}
	if c.Klaviyo.TimeoutSeconds == 0 {
		c.Klaviyo.TimeoutSeconds = 30
	}
	if c.Klaviyo.JobPollSeconds == 0 {
		c.Klaviyo.JobPollSeconds = 2
	}
	if c.Klaviyo.JobBudgetSeconds == 0 {
		c.Klaviyo.JobBudgetSeconds = 10
	}
	if c.Intake.DefaultCountry == "" {
		c.Intake.DefaultCountry = "US"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("KLAVIYO_API_KEY"); v != "" {
		c.Klaviyo.APIKey = v
	}
	if v := os.Getenv("KLAVIYO_BASE_URL"); v != "" {
		c.Klaviyo.BaseURL = v
	}
	if v := os.Getenv("KLAVIYO_REVISION"); v != "" {
		c.Klaviyo.Revision = v
	}
	if v := os.Getenv("KLAVIYO_LIST_IDS"); v != "" {
		c.Klaviyo.ListIDs = splitList(v)
	}
	if v := os.Getenv("KLAVIYO_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Klaviyo.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("KLAVIYO_SKIP_JOB_VERIFY"); v != "" {
		c.Klaviyo.SkipJobVerify = v == "true" || v == "1"
	}
	if v := os.Getenv("KLAVIYO_JOB_POLL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Klaviyo.JobPollSeconds = n
		}
	}
	if v := os.Getenv("KLAVIYO_JOB_BUDGET_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Klaviyo.JobBudgetSeconds = n
		}
	}
	if v := os.Getenv("WEBHOOK_SHARED_SECRET"); v != "" {
		c.Intake.SharedSecret = v
	}
	if v := os.Getenv("DEFAULT_COUNTRY"); v != "" {
		c.Intake.DefaultCountry = v
	}
	if v := os.Getenv("SMS_ALLOWED_CALLING_CODES"); v != "" {
		c.Intake.SMSAllowedCallingCodes = splitList(v)
	}
}

// splitList parses a comma-separated env value into trimmed entries.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
