package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoConfig is returned when no configuration file could be found
	ErrNoConfig = errors.New("no configuration file found")
	// ErrNoSources is returned when the feed source map is missing or empty
	ErrNoSources = errors.New("rss_sources is empty")
	// ErrMissingAPIKey is returned when the selected model provider has no credential
	ErrMissingAPIKey = errors.New("model API key is not set")
)

var configValidator = validator.New()

// Process exit codes for the fatal startup conditions
const (
	ExitConfigError       = 1
	ExitNoSources         = 2
	ExitMissingCredential = 3
)

// Config represents the application configuration.
// Top-level rss_sources and receivers keep the key names of the legacy config.json.
type Config struct {
	Environment string            `toml:"environment" json:"environment" yaml:"environment"`
	Schedule    string            `toml:"schedule" json:"schedule" yaml:"schedule"`       // Cron expression (5 fields); empty = run once and exit
	Sources     map[string]string `toml:"rss_sources" json:"rss_sources" yaml:"rss_sources"` // Category label -> feed URL
	Recipients  []string          `toml:"receivers" json:"receivers" yaml:"receivers"`

	Feeds    FeedsConfig    `toml:"feeds" json:"feeds" yaml:"feeds"`
	LLM      LLMConfig      `toml:"llm" json:"llm" yaml:"llm"`
	Gemini   GeminiConfig   `toml:"gemini" json:"gemini" yaml:"gemini"`
	Claude   ClaudeConfig   `toml:"claude" json:"claude" yaml:"claude"`
	Analysis AnalysisConfig `toml:"analysis" json:"analysis" yaml:"analysis"`
	Report   ReportConfig   `toml:"report" json:"report" yaml:"report"`
	SMTP     SMTPConfig     `toml:"smtp" json:"smtp" yaml:"smtp"`
	Logging  LoggingConfig  `toml:"logging" json:"logging" yaml:"logging"`
}

// FeedsConfig controls feed retrieval
type FeedsConfig struct {
	MaxItemsPerSource int    `toml:"max_items_per_source" json:"max_items_per_source" yaml:"max_items_per_source"` // Entries consumed per category (default: 10)
	UserAgent         string `toml:"user_agent" json:"user_agent" yaml:"user_agent"`
	Timeout           string `toml:"timeout" json:"timeout" yaml:"timeout"` // Per-feed HTTP timeout as duration string (default: "30s")
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the provider used for the analysis call
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" json:"default_provider" yaml:"default_provider"` // "gemini" or "claude" (default: "gemini")
}

// GeminiConfig contains Google Gemini settings
type GeminiConfig struct {
	APIKey      string  `toml:"api_key" json:"api_key" yaml:"api_key"`         // Prefer GEMINI_API_KEY
	Model       string  `toml:"model" json:"model" yaml:"model"`             // default: "gemini-2.5-flash"
	Timeout     string  `toml:"timeout" json:"timeout" yaml:"timeout"`         // default: "5m"
	Temperature float32 `toml:"temperature" json:"temperature" yaml:"temperature"` // 0 = provider default
}

// ClaudeConfig contains Anthropic Claude settings
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key" json:"api_key" yaml:"api_key"` // Prefer ANTHROPIC_API_KEY
	Model       string  `toml:"model" json:"model" yaml:"model"`
	MaxTokens   int     `toml:"max_tokens" json:"max_tokens" yaml:"max_tokens"`
	Timeout     string  `toml:"timeout" json:"timeout" yaml:"timeout"`
	Temperature float32 `toml:"temperature" json:"temperature" yaml:"temperature"`
}

// AnalysisConfig shapes the analyst prompt and picks the model that answers it
type AnalysisConfig struct {
	Model        string `toml:"model" json:"model" yaml:"model"`                         // Optional; "claude-..." or "gemini/..." also selects the provider
	Language     string `toml:"language" json:"language" yaml:"language"`           // Language for reasons and summary (default: "Chinese")
	PickCount    int    `toml:"pick_count" json:"pick_count" yaml:"pick_count"`       // Number of top picks requested (default: 5)
	SummaryWords int    `toml:"summary_words" json:"summary_words" yaml:"summary_words"` // Target length of the macro summary (default: 300)
}

// ReportConfig controls HTML rendering
type ReportConfig struct {
	Timezone string `toml:"timezone" json:"timezone" yaml:"timezone"` // IANA zone for the report date (default: "Asia/Shanghai")
	Edition  string `toml:"edition" json:"edition" yaml:"edition"`   // Footer label
	Markdown bool   `toml:"markdown" json:"markdown" yaml:"markdown"` // Render analysis prose as inline markdown
	Sanitize bool   `toml:"sanitize" json:"sanitize" yaml:"sanitize"` // Strip unsafe HTML from model prose (default: true)
}

// SMTPConfig contains mail transport settings. Credentials come from SENDER_EMAIL / SENDER_PASSWORD.
type SMTPConfig struct {
	Host          string `toml:"host" json:"host" yaml:"host"`
	Port          int    `toml:"port" json:"port" yaml:"port"`
	Username      string `toml:"username" json:"username" yaml:"username"`
	Password      string `toml:"password" json:"password" yaml:"password"`
	From          string `toml:"from" json:"from" yaml:"from"`
	FromName      string `toml:"from_name" json:"from_name" yaml:"from_name"`
	SubjectPrefix string `toml:"subject_prefix" json:"subject_prefix" yaml:"subject_prefix"`
	SendDelay     string `toml:"send_delay" json:"send_delay" yaml:"send_delay"` // Pause between recipients (default: "2s")
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level      string   `toml:"level" json:"level" yaml:"level"`   // "debug", "info", "warn", "error"
	Output     []string `toml:"output" json:"output" yaml:"output"` // "stdout", "file"
	TimeFormat string   `toml:"time_format" json:"time_format" yaml:"time_format"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "production",
		Sources:     map[string]string{},
		Feeds: FeedsConfig{
			MaxItemsPerSource: 10,
			UserAgent:         "marketbrief/" + Version,
			Timeout:           "30s",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Gemini: GeminiConfig{
			Model:   "gemini-2.5-flash",
			Timeout: "5m",
		},
		Claude: ClaudeConfig{
			Model:     "claude-haiku-4-5",
			MaxTokens: 8192,
			Timeout:   "5m",
		},
		Analysis: AnalysisConfig{
			Language:     "Chinese",
			PickCount:    5,
			SummaryWords: 300,
		},
		Report: ReportConfig{
			Timezone: "Asia/Shanghai",
			Edition:  "Community Edition",
			Sanitize: true,
		},
		SMTP: SMTPConfig{
			Host:          "smtp.gmail.com",
			Port:          465,
			FromName:      "Market Brief",
			SubjectPrefix: "【早报】全球市场洞察 & 每日精选",
			SendDelay:     "2s",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Files ending in .json are decoded as JSON, .yaml/.yml as YAML, everything else as TOML.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	loaded := 0
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			err = json.Unmarshal(data, config)
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
		loaded++
	}

	if loaded == 0 {
		return nil, ErrNoConfig
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MARKETBRIEF_ENV"); env != "" {
		config.Environment = env
	}
	if schedule := os.Getenv("MARKETBRIEF_SCHEDULE"); schedule != "" {
		config.Schedule = schedule
	}
	if provider := os.Getenv("MARKETBRIEF_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if model := os.Getenv("MARKETBRIEF_ANALYSIS_MODEL"); model != "" {
		config.Analysis.Model = model
	}

	// Secrets
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if sender := os.Getenv("SENDER_EMAIL"); sender != "" {
		config.SMTP.Username = sender
		if config.SMTP.From == "" {
			config.SMTP.From = sender
		}
	}
	if password := os.Getenv("SENDER_PASSWORD"); password != "" {
		config.SMTP.Password = password
	}
	if config.SMTP.From == "" {
		config.SMTP.From = config.SMTP.Username
	}

	// SMTP transport
	if host := os.Getenv("MARKETBRIEF_SMTP_HOST"); host != "" {
		config.SMTP.Host = host
	}
	if port := os.Getenv("MARKETBRIEF_SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.SMTP.Port = p
		}
	}

	// Logging configuration
	if level := os.Getenv("MARKETBRIEF_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MARKETBRIEF_LOG_OUTPUT"); output != "" {
		outputs := SplitList(output)
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, schedule string, provider string) {
	if schedule != "" {
		config.Schedule = schedule
	}
	if provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
}

// Validate checks the fatal startup conditions. It performs no network I/O.
// Malformed feed URLs and unknown timezones are not fatal; see FilterValidSources and Location.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}

	switch c.AnalysisProvider() {
	case LLMProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
		}
	case LLMProviderClaude:
		if c.Claude.APIKey == "" {
			return fmt.Errorf("%w: set ANTHROPIC_API_KEY", ErrMissingAPIKey)
		}
	default:
		return fmt.Errorf("unknown llm.default_provider %q: must be 'gemini' or 'claude'", c.LLM.DefaultProvider)
	}

	if c.Schedule != "" {
		if err := ValidateSchedule(c.Schedule); err != nil {
			return err
		}
	}

	return nil
}

// AnalysisProvider returns the provider that will answer the analysis request
func (c *Config) AnalysisProvider() LLMProvider {
	return ProviderForModel(c.Analysis.Model, c.LLM.DefaultProvider)
}

// ProviderForModel picks the provider named by a model string's prefix.
// "claude-x", "claude/x" and "anthropic/x" select Claude; "gemini-x", "gemini/x"
// and "google/x" select Gemini; anything else uses fallback.
func ProviderForModel(model string, fallback LLMProvider) LLMProvider {
	model = strings.ToLower(strings.TrimSpace(model))
	switch {
	case model == "":
		return fallback
	case strings.HasPrefix(model, "claude/"), strings.HasPrefix(model, "anthropic/"), strings.HasPrefix(model, "claude-"):
		return LLMProviderClaude
	case strings.HasPrefix(model, "gemini/"), strings.HasPrefix(model, "google/"), strings.HasPrefix(model, "gemini-"):
		return LLMProviderGemini
	}
	return fallback
}

// ExitCode maps a startup error to the process exit code
func ExitCode(err error) int {
	switch {
	case errors.Is(err, ErrNoSources):
		return ExitNoSources
	case errors.Is(err, ErrMissingAPIKey):
		return ExitMissingCredential
	default:
		return ExitConfigError
	}
}

// ValidateSchedule validates a standard 5-field cron expression
func ValidateSchedule(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	return nil
}

// FallbackLocation is used when report.timezone cannot be loaded
var FallbackLocation = time.FixedZone("UTC+8", 8*60*60)

// Location returns the report timezone, falling back to UTC+8 when the zone cannot be loaded
func (c *Config) Location() *time.Location {
	loc, err := c.LoadLocation()
	if err != nil {
		return FallbackLocation
	}
	return loc
}

// LoadLocation loads report.timezone, reporting why it is unusable
func (c *Config) LoadLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid report.timezone %q: %w", c.Report.Timezone, err)
	}
	return loc, nil
}

// Duration parses a duration string, returning fallback when it is empty or invalid
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// SplitList splits a comma-separated list, trimming entries and dropping empty ones
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
