// Package config resolves the command-line agents' settings from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Fallbacks applied by Default for settings absent from the environment.
const (
	DefaultModel         = "gemini-2.5-flash-preview-04-17"
	DefaultProvider      = "gemini"
	DefaultTemperature   = 0.2
	DefaultMaxModelCalls = 10
	DefaultToolboxURL    = "http://127.0.0.1:5000"
	DefaultToolset       = "my_bq_toolset"
	DefaultProtocol      = "http"
	DefaultCredentials   = "credentials.json"
	DefaultToken         = "token.json"
	DefaultLogLevel      = "warn"
	DefaultLogFormat     = "text"
)

// Config holds the settings shared by all agents of the command.
type Config struct {
	AppName       string
	Model         string
	Provider      string // gemini, openai or anthropic
	Temperature   float64
	MaxModelCalls int
	GoogleAPIKey  string
	Toolbox       ToolboxConfig
	Tasks         TasksConfig
	Log           LogConfig
}

// ToolboxConfig locates the toolbox server and the toolset to load from it.
// Protocol is "http" or "mcp".
type ToolboxConfig struct {
	URL      string
	Toolset  string
	Protocol string
}

// TasksConfig names the OAuth client secrets and the cached token used to
// reach Google Tasks.
type TasksConfig struct {
	CredentialsFile string
	TokenFile       string
}

// LogConfig selects the log level (debug, info, warn, error) and the output
// format (text or json).
type LogConfig struct {
	Level  string
	Format string
}

// Default returns the settings used when nothing is configured.
func Default(appName string) Config {
	return Config{
		AppName:       appName,
		Model:         DefaultModel,
		Provider:      DefaultProvider,
		Temperature:   DefaultTemperature,
		MaxModelCalls: DefaultMaxModelCalls,
		Toolbox: ToolboxConfig{
			URL:      DefaultToolboxURL,
			Toolset:  DefaultToolset,
			Protocol: DefaultProtocol,
		},
		Tasks: TasksConfig{
			CredentialsFile: DefaultCredentials,
			TokenFile:       DefaultToken,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// LoadDotEnv loads path into the process environment. Variables that are
// already set win. A missing file is not an error; a malformed one is.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}

	return nil
}

// Load seeds the environment from envFile and resolves the configuration.
func Load(envFile string, defaults Config) (*Config, error) {
	if err := LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	return FromEnv(defaults, os.LookupEnv)
}

// FromEnv applies environment overrides to defaults. Malformed numeric
// values are errors.
func FromEnv(defaults Config, lookup func(string) (string, bool)) (*Config, error) {
	cfg := defaults

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("APP_NAME"); ok {
		cfg.AppName = v
	}
	if v, ok := get("MODEL"); ok {
		cfg.Model = v
	}
	if v, ok := get("MODEL_PROVIDER"); ok {
		cfg.Provider = strings.ToLower(v)
		// The default model id is Gemini's; other providers pick their own.
		if _, set := get("MODEL"); !set && cfg.Provider != DefaultProvider {
			cfg.Model = ""
		}
	}
	if v, ok := get("TEMPERATURE"); ok {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 2 {
			return nil, fmt.Errorf("invalid TEMPERATURE %q: must be a number between 0 and 2", v)
		}
		cfg.Temperature = t
	}
	if v, ok := get("MAX_MODEL_CALLS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid MAX_MODEL_CALLS %q: must be a positive integer", v)
		}
		cfg.MaxModelCalls = n
	}
	if v, ok := get("GOOGLE_API_KEY"); ok {
		cfg.GoogleAPIKey = v
	} else if v, ok := get("GEMINI_API_KEY"); ok {
		cfg.GoogleAPIKey = v
	}
	if v, ok := get("TOOLBOX_URL"); ok {
		cfg.Toolbox.URL = v
	}
	if v, ok := get("TOOLBOX_TOOLSET"); ok {
		cfg.Toolbox.Toolset = v
	}
	if v, ok := get("TOOLBOX_PROTOCOL"); ok {
		cfg.Toolbox.Protocol = strings.ToLower(v)
	}
	if v, ok := get("TASKS_CREDENTIALS_FILE"); ok {
		cfg.Tasks.CredentialsFile = v
	}
	if v, ok := get("TASKS_TOKEN_FILE"); ok {
		cfg.Tasks.TokenFile = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.Log.Format = strings.ToLower(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Provider {
	case "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("invalid MODEL_PROVIDER %q: want gemini, openai or anthropic", c.Provider)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: want text or json", c.Log.Format)
	}

	if c.AppName == "" {
		return errors.New("app name must not be empty")
	}

	return nil
}
