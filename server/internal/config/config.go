package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based route safety condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "score < 50", "adjustment <= -20",
	// "ratings >= 10", "level == risky".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultHTTPPort        = 5000
	DefaultLogLevel        = "info"
	DefaultRatingBurst     = 5
	DefaultClampMin        = -100
	DefaultClampMax        = 100
	DefaultAdvisoryKeyEnv  = "GEMINI_API_KEY"
	DefaultAdvisoryBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultAdvisoryModel   = "gemini-1.5-flash"
	DefaultAdvisoryTimeout = 10 * time.Second
	DefaultStreamInterval  = 5 * time.Second
	placeholderAdvisoryKey = "YOUR_GEMINI_API_KEY"
)

// Config holds the server configuration parsed from the `server:` section
// of config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket stream and static files
	// are served on (default 5000).
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// StaticDir is the directory served at "/". Empty disables static serving.
	StaticDir string `yaml:"static_dir"`

	Ratings    RatingsConfig    `yaml:"ratings"`
	Adjustment AdjustmentConfig `yaml:"adjustment"`
	Advisory   AdvisoryConfig   `yaml:"advisory"`
	Stream     StreamConfig     `yaml:"stream"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// RatingsConfig controls how rating submissions are accepted.
type RatingsConfig struct {
	// Strict rejects ratings outside 1..5 with a 400 instead of counting
	// them as a 5.
	Strict bool `yaml:"strict"`

	// RateLimit is the sustained number of rating submissions per second
	// allowed per client address. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`

	// Burst is the number of submissions a client may make at once before
	// RateLimit applies (default 5).
	Burst int `yaml:"burst"`
}

// AdjustmentConfig controls the community adjustment accumulator.
type AdjustmentConfig struct {
	Clamp ClampConfig `yaml:"clamp"`
}

// ClampConfig bounds accumulated adjustments. Disabled by default so the
// stored value is always the exact sum of applied deltas.
type ClampConfig struct {
	Enabled bool `yaml:"enabled"`
	Min     int  `yaml:"min"`
	Max     int  `yaml:"max"`
}

// AdvisoryConfig configures the optional text-generation integration.
type AdvisoryConfig struct {
	// Enabled turns on calls to the external provider. With a key present
	// but Enabled false, the advisory endpoint returns a fixed notice.
	Enabled bool `yaml:"enabled"`

	// KeyEnv is the environment variable holding the provider API key.
	KeyEnv string `yaml:"key_env"`

	// BaseURL is an OpenAI-compatible API root.
	BaseURL string `yaml:"base_url"`

	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Key returns the provider API key resolved from the environment. The
// placeholder value shipped in example .env files counts as unset.
func (a AdvisoryConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	k := strings.TrimSpace(os.Getenv(a.KeyEnv))
	if k == placeholderAdvisoryKey {
		return ""
	}
	return k
}

// StreamConfig controls the WebSocket score stream.
type StreamConfig struct {
	// Interval is how often the current scores are pushed to clients.
	Interval time.Duration `yaml:"interval"`
}

// SlogLevel converts LogLevel to a slog.Level.
func (s ServerConfig) SlogLevel() slog.Level {
	switch s.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse parses raw YAML into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values. It is also
// what the server runs with when no config file exists.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			LogLevel: DefaultLogLevel,
			Ratings: RatingsConfig{
				Burst: DefaultRatingBurst,
			},
			Adjustment: AdjustmentConfig{
				Clamp: ClampConfig{Min: DefaultClampMin, Max: DefaultClampMax},
			},
			Advisory: AdvisoryConfig{
				KeyEnv:  DefaultAdvisoryKeyEnv,
				BaseURL: DefaultAdvisoryBaseURL,
				Model:   DefaultAdvisoryModel,
				Timeout: DefaultAdvisoryTimeout,
			},
			Stream: StreamConfig{
				Interval: DefaultStreamInterval,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	if s.Ratings.RateLimit < 0 {
		return fmt.Errorf("server.ratings.rate_limit must not be negative")
	}
	if s.Ratings.RateLimit > 0 && s.Ratings.Burst < 1 {
		return fmt.Errorf("server.ratings.burst must be at least 1 when rate_limit is set")
	}
	if c := s.Adjustment.Clamp; c.Enabled && c.Min > c.Max {
		return fmt.Errorf("server.adjustment.clamp: min %d is greater than max %d", c.Min, c.Max)
	}
	if s.Advisory.Timeout <= 0 {
		return fmt.Errorf("server.advisory.timeout must be positive")
	}
	if s.Stream.Interval <= 0 {
		return fmt.Errorf("server.stream.interval must be positive")
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name is required", i)
		}
		if len(strings.Fields(r.Condition)) != 3 {
			return fmt.Errorf("server.alerts.rules[%d] %q: condition %q must be \"field op value\"", i, r.Name, r.Condition)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "teams", "slack", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d]: type %q unknown: want teams|slack|http", i, w.Type)
		}
	}
	return nil
}
