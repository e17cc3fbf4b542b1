package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Config represents the application configuration
type Config struct {
	Importers ImportersConfig `json:"importers"`
	Storage   StorageConfig   `json:"storage"`
	Display   DisplayConfig   `json:"display"`
	Log       LogConfig       `json:"log"`
}

// ImportersConfig enables and configures each importer
type ImportersConfig struct {
	File   FileConfig   `json:"file"`
	Strava StravaConfig `json:"strava"`
}

// FileConfig configures the device-file importer
type FileConfig struct {
	Enabled   bool   `json:"enabled"`
	ImportDir string `json:"import_dir"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	Enabled      bool   `json:"enabled"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	CallbackPort int    `json:"callback_port"`
}

// StorageConfig selects the activity store backend
type StorageConfig struct {
	Backend string `json:"backend"`
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	DistanceUnit string `json:"distance_unit"`
}

// LogConfig holds logging preferences
type LogConfig struct {
	Level string `json:"level"`
}

const (
	// HomeEnv overrides the config directory
	HomeEnv = "RUNTOPSY_HOME"
	// LogLevelEnv overrides log.level
	LogLevelEnv = "RUNTOPSY_LOG_LEVEL"

	DefaultCallbackPort = 8089
)

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

//go:embed schema.json
var schemaJSON []byte

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Importers: ImportersConfig{
			Strava: StravaConfig{CallbackPort: DefaultCallbackPort},
		},
		Storage: StorageConfig{Backend: "files"},
		Display: DisplayConfig{DistanceUnit: "km"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads the configuration from <dir>/config.json
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "config.json")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := validateSchema(data); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	// Keys missing from the file keep their defaults; an explicit
	// callback_port of 0 is kept and selects the paste prompt
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	defaults := DefaultConfig()
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if cfg.Display.DistanceUnit == "" {
		cfg.Display.DistanceUnit = defaults.Display.DistanceUnit
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if lvl := os.Getenv(LogLevelEnv); lvl != "" {
		cfg.Log.Level = strings.ToLower(lvl)
	}
	cfg.Importers.File.ImportDir = expandHome(cfg.Importers.File.ImportDir)

	return &cfg, nil
}

// Save writes the configuration to <dir>/config.json
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample(dir string) error {
	// Check if config already exists
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Importers.File = FileConfig{
		Enabled:   true,
		ImportDir: "/media/GARMIN/Garmin/Activity",
	}
	example.Importers.Strava.ClientID = "YOUR_CLIENT_ID"
	example.Importers.Strava.ClientSecret = "YOUR_CLIENT_SECRET"

	return Save(dir, &example)
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Importers.File.Enabled && c.Importers.File.ImportDir == "" {
		return errors.New("importers.file.import_dir is required when the file importer is enabled")
	}

	s := c.Importers.Strava
	if s.Enabled {
		if s.ClientID == "" || s.ClientID == "YOUR_CLIENT_ID" {
			return errors.New("importers.strava.client_id is required - get it from https://www.strava.com/settings/api")
		}
		if s.ClientSecret == "" || s.ClientSecret == "YOUR_CLIENT_SECRET" {
			return errors.New("importers.strava.client_secret is required - get it from https://www.strava.com/settings/api")
		}
	}
	if s.CallbackPort < 0 || s.CallbackPort > 65535 {
		return fmt.Errorf("importers.strava.callback_port out of range: %d", s.CallbackPort)
	}

	switch c.Storage.Backend {
	case "", "files", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be \"files\" or \"sqlite\", got %q", c.Storage.Backend)
	}

	// Validate display units
	if c.Display.DistanceUnit != "" && c.Display.DistanceUnit != "km" && c.Display.DistanceUnit != "mi" {
		return fmt.Errorf("display.distance_unit must be \"km\" or \"mi\", got %q", c.Display.DistanceUnit)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// ParseLevel maps log.level to a slog level; empty means info
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", s)
}

// Dir returns the config directory: override if set, then $RUNTOPSY_HOME,
// then ~/.runtopsy
func Dir(override string) (string, error) {
	if override != "" {
		return expandHome(override), nil
	}
	if env := os.Getenv(HomeEnv); env != "" {
		return expandHome(env), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".runtopsy"), nil
}

func validateSchema(data []byte) error {
	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fmt.Errorf("loading config schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("config.schema.json", schemaDoc); err != nil {
		return fmt.Errorf("loading config schema: %w", err)
	}
	sch, err := c.Compile("config.schema.json")
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return sch.Validate(inst)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
