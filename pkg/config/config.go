package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/nyc-design/neil-logger/pkg/console"
)

//go:embed config.toml.sample
var configTemplate string

const (
	DefaultStoreURI        = "mongodb://localhost:27017"
	DefaultDatabase        = "logs"
	DefaultLogCollection   = "run_logs"
	DefaultErrorCollection = "error_logs"
	DefaultTimeout         = 5 * time.Second
)

// Environment variables that override file values.
const (
	EnvStoreURI  = "NEIL_LOGGER_STORE_URI"
	EnvDatabase  = "NEIL_LOGGER_DATABASE"
	EnvName      = "NEIL_LOGGER_NAME"
	EnvRunID     = "NEIL_LOGGER_RUN_ID"
	EnvSentryDSN = "NEIL_LOGGER_SENTRY_DSN"
	// EnvSentryDSNFallback is the variable sentry SDKs read by default. The
	// logger-specific variable wins when both are set.
	EnvSentryDSNFallback = "SENTRY_DSN"
)

type Config struct {
	// Name is the logical name of the logger. Inferred from the program when empty.
	Name string `toml:"name" yaml:"name"`
	// RunID identifies the run. Generated from the program name and the start
	// time when empty.
	RunID     string        `toml:"run_id" yaml:"run_id"`
	SentryDSN string        `toml:"sentry_dsn" yaml:"sentry_dsn"`
	Store     StoreConfig   `toml:"store" yaml:"store"`
	Console   ConsoleConfig `toml:"console" yaml:"console"`
}

type StoreConfig struct {
	URI             string   `toml:"uri" yaml:"uri"`
	Database        string   `toml:"database" yaml:"database"`
	LogCollection   string   `toml:"log_collection" yaml:"log_collection"`
	ErrorCollection string   `toml:"error_collection" yaml:"error_collection"`
	Timeout         Duration `toml:"timeout" yaml:"timeout"`
}

type ConsoleConfig struct {
	Color string `toml:"color" yaml:"color"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

func GetDefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			URI:             DefaultStoreURI,
			Database:        DefaultDatabase,
			LogCollection:   DefaultLogCollection,
			ErrorCollection: DefaultErrorCollection,
			Timeout:         Duration{DefaultTimeout},
		},
		Console: ConsoleConfig{Color: string(console.ColorAuto)},
	}
}

// LoadConfig reads configPath, falling back to defaults when the file does not
// exist, then applies environment overrides. Files ending in .yaml or .yml are
// parsed as YAML, anything else as TOML.
func LoadConfig(configPath string) (*Config, error) {
	config := GetDefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := unmarshal(configPath, data, config); err != nil {
			return nil, fmt.Errorf("unmarshaling config: %w", err)
		}
	}

	config.applyDefaults()
	config.ApplyEnv()
	return config, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func unmarshal(path string, data []byte, c *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, c)
	}
	return toml.Unmarshal(data, c)
}

func (c *Config) applyDefaults() {
	if c.Store.URI == "" {
		c.Store.URI = DefaultStoreURI
	}
	if c.Store.Database == "" {
		c.Store.Database = DefaultDatabase
	}
	if c.Store.LogCollection == "" {
		c.Store.LogCollection = DefaultLogCollection
	}
	if c.Store.ErrorCollection == "" {
		c.Store.ErrorCollection = DefaultErrorCollection
	}
	if c.Store.Timeout.Duration <= 0 {
		c.Store.Timeout = Duration{DefaultTimeout}
	}
	if c.Console.Color == "" {
		c.Console.Color = string(console.ColorAuto)
	}
}

// ApplyEnv overrides fields from the environment. Unset or empty variables leave
// the current value alone.
func (c *Config) ApplyEnv() {
	override := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := os.Getenv(key); v != "" {
				*dst = v
				return
			}
		}
	}
	override(&c.Store.URI, EnvStoreURI)
	override(&c.Store.Database, EnvDatabase)
	override(&c.Name, EnvName)
	override(&c.RunID, EnvRunID)
	override(&c.SentryDSN, EnvSentryDSN, EnvSentryDSNFallback)
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Store.URI) == "" {
		errs = append(errs, errors.New("store.uri is required"))
	}
	if strings.TrimSpace(c.Store.Database) == "" {
		errs = append(errs, errors.New("store.database is required"))
	}
	if c.Store.LogCollection == "" {
		errs = append(errs, errors.New("store.log_collection is required"))
	}
	if c.Store.ErrorCollection == "" {
		errs = append(errs, errors.New("store.error_collection is required"))
	}
	if c.Store.LogCollection != "" && c.Store.LogCollection == c.Store.ErrorCollection {
		errs = append(errs, fmt.Errorf("store.log_collection and store.error_collection must differ (both %q)", c.Store.LogCollection))
	}
	if c.Store.Timeout.Duration < 0 {
		errs = append(errs, errors.New("store.timeout must not be negative"))
	}
	if _, err := console.ParseColorMode(c.Console.Color); err != nil {
		errs = append(errs, fmt.Errorf("console.color: %w", err))
	}
	return errors.Join(errs...)
}

// ColorMode returns the validated console color mode, defaulting to auto.
func (c *Config) ColorMode() console.ColorMode {
	mode, err := console.ParseColorMode(c.Console.Color)
	if err != nil {
		return console.ColorAuto
	}
	return mode
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(configPath) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented sample configuration to configPath.
func SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(configPath, []byte(configTemplate), 0644)
}

// GetConfigDir returns the configuration directory for neil-logger
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "neil-logger"), nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
