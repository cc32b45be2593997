// Package config provides configuration management for usbmap.
//
// The config file holds operator preferences and where things live; the
// topology itself lives in the store and can be reset independently.
//
// Config file locations (priority order):
//  1. $USBMAP_CONFIG
//  2. ./usbmap.yaml
//  3. $XDG_CONFIG_HOME/usbmap/config.yaml
//  4. ~/.config/usbmap/config.yaml
//  5. /etc/usbmap/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path. Keys missing from the file
// keep their default values.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Store.Path = "" // derived from the driver unless the file sets it
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, path, nil
}

// Save writes config to the specified path, replacing the file atomically
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".usbmap-config-*")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Settings: Settings{
			ShowFriendlyTypes:  true,
			AddCommentsToMap:   true,
			AutoBindCompanions: true,
			EmptyControllers:   EmptyIgnore,
		},
		Store:  StoreConfig{Driver: StoreFile, Path: StoreFile.DefaultPath(), History: 20},
		Output: OutputConfig{Dir: "."},
		Collector: CollectorConfig{
			Kind:     CollectorFile,
			MaxTries: 10,
			Backoff:  Duration(2 * time.Second),
			Timeout:  Duration(time.Minute),
			Debounce: Duration(500 * time.Millisecond),
		},
		Logging: LoggingConfig{Level: "info", Format: "auto"},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Settings.EmptyControllers == "" {
		c.Settings.EmptyControllers = EmptyIgnore
	}
	c.Store.Driver = ParseStoreDriver(string(c.Store.Driver))
	if c.Store.Path == "" {
		c.Store.Path = c.Store.Driver.DefaultPath()
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	c.Collector.Kind = ParseCollectorKind(string(c.Collector.Kind))
	if c.Collector.MaxTries <= 0 {
		c.Collector.MaxTries = 10
	}
	if c.Collector.Backoff <= 0 {
		c.Collector.Backoff = Duration(2 * time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
}

// Validate reports settings that cannot be acted on
func (c *Config) Validate() error {
	var errs []error
	switch c.Settings.EmptyControllers {
	case EmptyIgnore, EmptyDisable:
	default:
		errs = append(errs, fmt.Errorf("settings.empty_controllers must be %q or %q, got %q",
			EmptyIgnore, EmptyDisable, c.Settings.EmptyControllers))
	}
	if c.Settings.UseLegacyNative && !c.Settings.UseNative {
		errs = append(errs, errors.New("settings.use_legacy_native requires settings.use_native"))
	}
	if c.Collector.Kind == CollectorCommand && len(c.Collector.Command) == 0 {
		errs = append(errs, errors.New("collector.command is required when collector.kind is command"))
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be auto, console or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// OutputMode names the bundle flavour the settings select
func (s Settings) OutputMode() string {
	switch {
	case s.UseNative && s.UseLegacyNative:
		return "native (legacy)"
	case s.UseNative:
		return "native"
	default:
		return "USBToolBox"
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Output: %s, empty controllers: %s\n", c.Settings.OutputMode(), c.Settings.EmptyControllers)
	fmt.Fprintf(&b, "Store: %s (%s)\n", c.Store.Driver, c.Store.Path)
	fmt.Fprintf(&b, "Collector: %s, %d tries, %s backoff\n",
		c.Collector.Kind, c.Collector.MaxTries, c.Collector.Backoff.Duration())
	fmt.Fprintf(&b, "Companion binding: %s", onOff(c.Settings.AutoBindCompanions))
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
