package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSecretEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GEMINI_API_KEY", "ANTHROPIC_API_KEY", "SENDER_EMAIL", "SENDER_PASSWORD",
		"MARKETBRIEF_SCHEDULE", "MARKETBRIEF_LLM_PROVIDER", "MARKETBRIEF_LOG_LEVEL",
		"MARKETBRIEF_LOG_OUTPUT", "MARKETBRIEF_SMTP_HOST", "MARKETBRIEF_SMTP_PORT", "MARKETBRIEF_ENV",
		"MARKETBRIEF_ANALYSIS_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 10, config.Feeds.MaxItemsPerSource)
	assert.Equal(t, LLMProviderGemini, config.LLM.DefaultProvider)
	assert.Equal(t, "gemini-2.5-flash", config.Gemini.Model)
	assert.Equal(t, "smtp.gmail.com", config.SMTP.Host)
	assert.Equal(t, 465, config.SMTP.Port)
	assert.Equal(t, "2s", config.SMTP.SendDelay)
	assert.Equal(t, "Asia/Shanghai", config.Report.Timezone)
	assert.True(t, config.Report.Sanitize)
	assert.Equal(t, 5, config.Analysis.PickCount)
}

func TestLoadFromFiles_TOML(t *testing.T) {
	clearSecretEnv(t)

	path := writeFile(t, "marketbrief.toml", `
receivers = ["a@example.com"]

[rss_sources]
"Macro" = "https://example.com/macro.xml"
"Tech" = "https://example.com/tech.xml"

[feeds]
max_items_per_source = 3

[report]
edition = "Test Edition"
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Len(t, config.Sources, 2)
	assert.Equal(t, "https://example.com/macro.xml", config.Sources["Macro"])
	assert.Equal(t, []string{"a@example.com"}, config.Recipients)
	assert.Equal(t, 3, config.Feeds.MaxItemsPerSource)
	assert.Equal(t, "Test Edition", config.Report.Edition)
	// Untouched sections keep defaults
	assert.Equal(t, "gemini-2.5-flash", config.Gemini.Model)
}

func TestLoadFromFiles_JSON(t *testing.T) {
	clearSecretEnv(t)

	path := writeFile(t, "config.json", `{
  "rss_sources": {"Macro": "https://example.com/macro.xml"},
  "receivers": ["a@example.com", "b@example.com"]
}`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"Macro": "https://example.com/macro.xml"}, config.Sources)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, config.Recipients)
}

func TestLoadFromFiles_YAML(t *testing.T) {
	clearSecretEnv(t)

	path := writeFile(t, "marketbrief.yaml", `
rss_sources:
  Tech: https://example.com/tech.xml
receivers:
  - a@example.com
smtp:
  port: 587
  send_delay: 500ms
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"Tech": "https://example.com/tech.xml"}, config.Sources)
	assert.Equal(t, []string{"a@example.com"}, config.Recipients)
	assert.Equal(t, 587, config.SMTP.Port)
	assert.Equal(t, "500ms", config.SMTP.SendDelay)
	assert.Equal(t, "smtp.gmail.com", config.SMTP.Host)
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	clearSecretEnv(t)

	base := writeFile(t, "base.toml", "[gemini]\nmodel = \"base-model\"\n")
	override := writeFile(t, "override.toml", "[gemini]\nmodel = \"override-model\"\n")

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)
	assert.Equal(t, "override-model", config.Gemini.Model)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	clearSecretEnv(t)

	_, err := LoadFromFiles()
	assert.ErrorIs(t, err, ErrNoConfig)

	_, err = LoadFromFiles("")
	assert.ErrorIs(t, err, ErrNoConfig)

	_, err = LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	broken := writeFile(t, "broken.json", "{not json")
	_, err = LoadFromFiles(broken)
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	clearSecretEnv(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("ANTHROPIC_API_KEY", "claude-key")
	t.Setenv("SENDER_EMAIL", "sender@example.com")
	t.Setenv("SENDER_PASSWORD", "app-password")
	t.Setenv("MARKETBRIEF_LLM_PROVIDER", "Claude")
	t.Setenv("MARKETBRIEF_LOG_OUTPUT", "stdout, file")
	t.Setenv("MARKETBRIEF_SMTP_PORT", "2525")

	config := NewDefaultConfig()
	applyEnvOverrides(config)

	assert.Equal(t, "gemini-key", config.Gemini.APIKey)
	assert.Equal(t, "claude-key", config.Claude.APIKey)
	assert.Equal(t, "sender@example.com", config.SMTP.Username)
	assert.Equal(t, "sender@example.com", config.SMTP.From)
	assert.Equal(t, "app-password", config.SMTP.Password)
	assert.Equal(t, LLMProviderClaude, config.LLM.DefaultProvider)
	assert.Equal(t, []string{"stdout", "file"}, config.Logging.Output)
	assert.Equal(t, 2525, config.SMTP.Port)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		config := NewDefaultConfig()
		config.Sources = map[string]string{"Macro": "https://example.com/macro.xml"}
		config.Gemini.APIKey = "key"
		return config
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErr  error
		exitCode int
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:     "no sources",
			mutate:   func(c *Config) { c.Sources = nil },
			wantErr:  ErrNoSources,
			exitCode: ExitNoSources,
		},
		{
			name:     "missing gemini key",
			mutate:   func(c *Config) { c.Gemini.APIKey = "" },
			wantErr:  ErrMissingAPIKey,
			exitCode: ExitMissingCredential,
		},
		{
			name: "missing claude key",
			mutate: func(c *Config) {
				c.LLM.DefaultProvider = LLMProviderClaude
			},
			wantErr:  ErrMissingAPIKey,
			exitCode: ExitMissingCredential,
		},
		{
			name: "analysis model routes to claude",
			mutate: func(c *Config) {
				c.Analysis.Model = "claude-sonnet-4-5"
			},
			wantErr:  ErrMissingAPIKey,
			exitCode: ExitMissingCredential,
		},
		{
			name: "analysis model routes to gemini",
			mutate: func(c *Config) {
				c.LLM.DefaultProvider = LLMProviderClaude
				c.Analysis.Model = "gemini/gemini-2.5-pro"
			},
		},
		{
			name:   "malformed feed url is not fatal",
			mutate: func(c *Config) { c.Sources["Tech"] = "feeds.example.com/tech.xml" },
		},
		{
			name:   "unknown timezone is not fatal",
			mutate: func(c *Config) { c.Report.Timezone = "Asia/Nowhere" },
		},
		{
			name:     "bad schedule",
			mutate:   func(c *Config) { c.Schedule = "every morning" },
			exitCode: ExitConfigError,
		},
		{
			name:     "unknown provider",
			mutate:   func(c *Config) { c.LLM.DefaultProvider = "openai" },
			exitCode: ExitConfigError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			err := config.Validate()
			if tt.exitCode == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.exitCode, ExitCode(err))
		})
	}
}

func TestConfig_Location(t *testing.T) {
	config := NewDefaultConfig()
	config.Report.Timezone = "UTC"
	assert.Equal(t, time.UTC, config.Location())

	config.Report.Timezone = "Asia/Nowhere"
	_, err := config.LoadLocation()
	assert.Error(t, err)

	loc := config.Location()
	assert.Equal(t, "UTC+8", loc.String())
	_, offset := time.Date(2024, 3, 14, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 8*60*60, offset)
}

func TestProviderForModel(t *testing.T) {
	tests := []struct {
		model    string
		fallback LLMProvider
		want     LLMProvider
	}{
		{"", LLMProviderGemini, LLMProviderGemini},
		{"", LLMProviderClaude, LLMProviderClaude},
		{"gemini-2.5-flash", LLMProviderClaude, LLMProviderGemini},
		{"Google/gemini-2.5-pro", LLMProviderClaude, LLMProviderGemini},
		{"claude-haiku-4-5", LLMProviderGemini, LLMProviderClaude},
		{"anthropic/claude-opus-4-1", LLMProviderGemini, LLMProviderClaude},
		{"some-other-model", LLMProviderClaude, LLMProviderClaude},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ProviderForModel(tt.model, tt.fallback), tt.model)
	}
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 7 * * *"))
	assert.NoError(t, ValidateSchedule("*/15 * * * 1-5"))
	assert.Error(t, ValidateSchedule("0 7 * *"))
	assert.Error(t, ValidateSchedule("tomorrow"))
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, Duration("2s", 0))
	assert.Equal(t, 5*time.Second, Duration("", 5*time.Second))
	assert.Equal(t, 5*time.Second, Duration("soon", 5*time.Second))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a, ,b,"))
	assert.Nil(t, SplitList(""))
}
