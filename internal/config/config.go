package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/worklog/internal/app"
	toml "github.com/pelletier/go-toml/v2"
)

// EnvAPIKey overrides api.api_key after both config files are merged.
const EnvAPIKey = "WORKLOG_API_KEY"

// LocalConfigName is the sibling file merged over the main config.
const LocalConfigName = "config.local.toml"

// StorageBackend selects the activity store implementation.
type StorageBackend string

const (
	StorageBackendJSON   StorageBackend = "json"
	StorageBackendSQLite StorageBackend = "sqlite"
)

type Config struct {
	Monitoring MonitoringConfig `toml:"monitoring"`
	API        APIConfig        `toml:"api"`
	Summary    SummaryConfig    `toml:"summary"`
	Storage    StorageConfig    `toml:"storage"`
	Retention  RetentionConfig  `toml:"retention"`
	Logging    LoggingConfig    `toml:"logging"`
	Server     ServerConfig     `toml:"server"`
}

type MonitoringConfig struct {
	IntervalSeconds           int  `toml:"interval"`
	CaptureScreenshot         bool `toml:"capture_screenshot"`
	ScreenshotIntervalSeconds int  `toml:"screenshot_interval"`
}

type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type SummaryConfig struct {
	IntervalMinutes    int     `toml:"interval_minutes"` // 0 disables periodic summaries
	LookbackMinutes    int     `toml:"lookback_minutes"`
	MaxTokens          int     `toml:"max_tokens"`
	Temperature        float64 `toml:"temperature"`
	CompressActivities bool    `toml:"compress_activities"`
	Prompt             string  `toml:"prompt"`
}

type StorageConfig struct {
	Backend StorageBackend `toml:"backend"`
	Dir     string         `toml:"dir"`
}

type RetentionConfig struct {
	Days           int  `toml:"days"`
	CleanupOnStart bool `toml:"cleanup_on_start"`
}

type LoggingConfig struct {
	Level string        `toml:"level"`
	File  LogFileConfig `toml:"file"`
}

// LogFileConfig controls the logfmt file sink. An empty Dir means <data_dir>/logs.
type LogFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// Default returns the built-in configuration rooted at dataDir.
func Default(dataDir string) Config {
	return Config{
		Monitoring: MonitoringConfig{
			IntervalSeconds:           60,
			CaptureScreenshot:         false,
			ScreenshotIntervalSeconds: 300,
		},
		API: APIConfig{
			BaseURL:        "https://api.deepseek.com/chat/completions",
			Model:          "deepseek-chat",
			TimeoutSeconds: 60,
		},
		Summary: SummaryConfig{
			IntervalMinutes:    30,
			LookbackMinutes:    60,
			MaxTokens:          500,
			Temperature:        0.7,
			CompressActivities: true,
		},
		Storage: StorageConfig{
			Backend: StorageBackendJSON,
			Dir:     filepath.Join(dataDir, "data"),
		},
		Retention: RetentionConfig{
			Days: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
			File: LogFileConfig{
				Enabled: true,
			},
		},
		Server: ServerConfig{
			Bind: "127.0.0.1:7457",
		},
	}
}

// Load decodes path over defaults, then merges the sibling local file and the
// API key environment override. Missing or empty files are not errors.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
		if err := decodeFile(LocalPath(path), &cfg); err != nil {
			return Config{}, err
		}
	}
	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		cfg.API.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", filepath.Base(path), err)
	}
	if len(content) == 0 {
		return nil
	}
	if err := toml.Unmarshal(content, cfg); err != nil {
		return fmt.Errorf("decode toml %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LocalPath returns the override file next to path.
func LocalPath(path string) string {
	return filepath.Join(filepath.Dir(path), LocalConfigName)
}

// Validate checks structural values. Credentials are checked by ValidateForSummary.
func (c Config) Validate() error {
	if c.Monitoring.IntervalSeconds < 1 {
		return fmt.Errorf("%w: monitoring.interval must be >= 1", app.ErrConfigInvalid)
	}
	if c.Monitoring.CaptureScreenshot && c.Monitoring.ScreenshotIntervalSeconds < 1 {
		return fmt.Errorf("%w: monitoring.screenshot_interval must be >= 1", app.ErrConfigInvalid)
	}
	if c.API.TimeoutSeconds < 1 {
		return fmt.Errorf("%w: api.timeout_seconds must be >= 1", app.ErrConfigInvalid)
	}
	if c.Summary.IntervalMinutes < 0 {
		return fmt.Errorf("%w: summary.interval_minutes must be >= 0", app.ErrConfigInvalid)
	}
	if c.Summary.LookbackMinutes < 1 {
		return fmt.Errorf("%w: summary.lookback_minutes must be >= 1", app.ErrConfigInvalid)
	}
	if c.Summary.MaxTokens < 1 {
		return fmt.Errorf("%w: summary.max_tokens must be >= 1", app.ErrConfigInvalid)
	}
	if c.Summary.Temperature < 0 || c.Summary.Temperature > 2 {
		return fmt.Errorf("%w: summary.temperature must be within [0, 2]", app.ErrConfigInvalid)
	}
	switch c.Storage.Backend {
	case StorageBackendJSON, StorageBackendSQLite:
	default:
		return fmt.Errorf("%w: invalid storage.backend: %q", app.ErrConfigInvalid, c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Dir) == "" {
		return fmt.Errorf("%w: storage.dir is required", app.ErrConfigInvalid)
	}
	if c.Retention.Days < 0 {
		return fmt.Errorf("%w: retention.days must be >= 0", app.ErrConfigInvalid)
	}
	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("%w: invalid logging.level: %q", app.ErrConfigInvalid, c.Logging.Level)
	}
	if c.Server.Enabled && strings.TrimSpace(c.Server.Bind) == "" {
		return fmt.Errorf("%w: server.bind is required when the server is enabled", app.ErrConfigInvalid)
	}
	return nil
}

// ValidateForSummary checks the settings needed to call the text-generation API.
func (c Config) ValidateForSummary() error {
	if strings.TrimSpace(c.API.APIKey) == "" {
		return fmt.Errorf("%w: api.api_key is required (set it in %s or %s)", app.ErrConfigInvalid, LocalConfigName, EnvAPIKey)
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("%w: api.base_url is required", app.ErrConfigInvalid)
	}
	if strings.TrimSpace(c.API.Model) == "" {
		return fmt.Errorf("%w: api.model is required", app.ErrConfigInvalid)
	}
	return nil
}

// Lint returns advisory warnings that never block startup.
func (c Config) Lint() []string {
	var warnings []string
	if c.Monitoring.IntervalSeconds < 10 {
		warnings = append(warnings, "monitoring.interval below 10 seconds may slow the system down")
	}
	if c.Summary.LookbackMinutes < 5 {
		warnings = append(warnings, "summary.lookback_minutes below 5 minutes gives the summarizer little to work with")
	}
	if strings.TrimSpace(c.API.APIKey) == "" {
		warnings = append(warnings, "api.api_key is empty; summaries will fail until it is set")
	}
	return warnings
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if key := strings.TrimSpace(c.API.APIKey); key != "" {
		if len(key) > 8 {
			c.API.APIKey = key[:4] + strings.Repeat("*", 8)
		} else {
			c.API.APIKey = strings.Repeat("*", 8)
		}
	}
	return c
}

func (c Config) SampleInterval() time.Duration {
	return time.Duration(c.Monitoring.IntervalSeconds) * time.Second
}

func (c Config) CaptureInterval() time.Duration {
	return time.Duration(c.Monitoring.ScreenshotIntervalSeconds) * time.Second
}

func (c Config) SummaryInterval() time.Duration {
	return time.Duration(c.Summary.IntervalMinutes) * time.Minute
}

func (c Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode toml: %w", err)
	}
	return out, nil
}

// WriteDefault writes a starter config to path without the API key. A non-empty
// key goes to the sibling local file instead. Existing files are left alone.
func WriteDefault(path string, cfg Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("write config %s: %w", path, os.ErrExist)
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	key := strings.TrimSpace(cfg.API.APIKey)
	cfg.API.APIKey = ""
	content, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if key == "" {
		return nil
	}
	local, err := toml.Marshal(localFile{API: localAPI{APIKey: key}})
	if err != nil {
		return fmt.Errorf("encode local config: %w", err)
	}
	if err := os.WriteFile(LocalPath(path), local, 0o600); err != nil {
		return fmt.Errorf("write local config: %w", err)
	}
	return nil
}

// localFile is the subset of settings written to the local override file.
type localFile struct {
	API localAPI `toml:"api"`
}

type localAPI struct {
	APIKey string `toml:"api_key"`
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
