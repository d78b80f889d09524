package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppName names the config directory and the env prefix.
const AppName = "sequel"

// Config holds all application configuration
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Log       LogConfig       `mapstructure:"log"`
	UI        UIConfig        `mapstructure:"ui"`
	Editor    EditorConfig    `mapstructure:"editor"`
	History   HistoryConfig   `mapstructure:"history"`
	Favorites FavoritesConfig `mapstructure:"favorites"`
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// TimeoutDuration converts the configured timeout to a duration.
func (a APIConfig) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type UIConfig struct {
	Theme             string `mapstructure:"theme"`
	MouseEnabled      bool   `mapstructure:"mouse_enabled"`
	PanelWidthRatio   int    `mapstructure:"panel_width_ratio"`
	SnackbarTimeoutMs int    `mapstructure:"snackbar_timeout_ms"`
}

// SnackbarTimeout is how long a notification stays on screen.
func (u UIConfig) SnackbarTimeout() time.Duration {
	return time.Duration(u.SnackbarTimeoutMs) * time.Millisecond
}

type EditorConfig struct {
	TabSize int `mapstructure:"tab_size"`
}

type HistoryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxEntries int    `mapstructure:"max_entries"`
}

// FavoritesConfig locates the saved queries file
type FavoritesConfig struct {
	Path string `mapstructure:"path"`
}

// GetDefaults returns a Config with all default values
func GetDefaults() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8123",
			Timeout: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		UI: UIConfig{
			Theme:             "default",
			MouseEnabled:      true,
			PanelWidthRatio:   25,
			SnackbarTimeoutMs: 4000,
		},
		Editor: EditorConfig{
			TabSize: 2,
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 1000,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := GetDefaults()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", "")
	v.SetDefault("ui.theme", d.UI.Theme)
	v.SetDefault("ui.mouse_enabled", d.UI.MouseEnabled)
	v.SetDefault("ui.panel_width_ratio", d.UI.PanelWidthRatio)
	v.SetDefault("ui.snackbar_timeout_ms", d.UI.SnackbarTimeoutMs)
	v.SetDefault("editor.tab_size", d.Editor.TabSize)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", "")
	v.SetDefault("history.max_entries", d.History.MaxEntries)
	v.SetDefault("favorites.path", "")
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"api-url":    "api.base_url",
	"timeout":    "api.timeout",
	"log-level":  "log.level",
	"log-format": "log.format",
	"log-file":   "log.file",
	"theme":      "ui.theme",
	"history":    "history.enabled",
}

// Loader reads configuration from file, environment and flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader. An empty path searches the user config
// directory, the working directory and ./config for config.yaml.
func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := GetConfigPath(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// SEQUEL_API_BASE_URL overrides api.base_url
	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// BindFlags binds the known flags present in fs. Flags only override the
// file and environment when set explicitly.
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the config. A missing file is not an error.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if dir, err := GetConfigPath(); err == nil {
		if cfg.History.Path == "" {
			cfg.History.Path = filepath.Join(dir, "history.db")
		}
		if cfg.Favorites.Path == "" {
			cfg.Favorites.Path = filepath.Join(dir, "favorites.yaml")
		}
	}

	return &cfg, nil
}

// ConfigFile returns the file the config was read from, if any.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Watch reloads the config whenever the file changes and hands the result
// to onChange. Invalid configs are reported through err.
func (l *Loader) Watch(onChange func(cfg *Config, err error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.Load()
		if err == nil {
			err = cfg.Validate()
		}
		onChange(cfg, err)
	})
	l.v.WatchConfig()
}

// Load loads configuration from path or the default locations.
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %d", c.API.Timeout)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	switch c.UI.Theme {
	case "default", "catppuccin":
	default:
		return fmt.Errorf("ui.theme must be default or catppuccin, got %q", c.UI.Theme)
	}
	if c.UI.PanelWidthRatio < 10 || c.UI.PanelWidthRatio > 90 {
		return fmt.Errorf("ui.panel_width_ratio must be between 10 and 90, got %d", c.UI.PanelWidthRatio)
	}
	if c.UI.SnackbarTimeoutMs < 0 {
		return fmt.Errorf("ui.snackbar_timeout_ms must not be negative")
	}
	if c.Editor.TabSize <= 0 {
		return fmt.Errorf("editor.tab_size must be positive, got %d", c.Editor.TabSize)
	}
	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative")
	}
	return nil
}

// GetConfigPath returns the user config directory path
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}
