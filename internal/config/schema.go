package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Settings  Settings        `yaml:"settings"`
	Store     StoreConfig     `yaml:"store"`
	Output    OutputConfig    `yaml:"output"`
	Collector CollectorConfig `yaml:"collector"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Settings are the operator preferences that shape listings and emission.
type Settings struct {
	ShowFriendlyTypes  bool   `yaml:"show_friendly_types"`
	UseNative          bool   `yaml:"use_native"`
	UseLegacyNative    bool   `yaml:"use_legacy_native"`
	AddCommentsToMap   bool   `yaml:"add_comments_to_map"`
	AutoBindCompanions bool   `yaml:"auto_bind_companions"`
	EmptyControllers   string `yaml:"empty_controllers"`          // ignore, disable
	ModelIdentifier    string `yaml:"model_identifier,omitempty"` // native modes only
}

// StoreConfig selects where the topology is persisted
type StoreConfig struct {
	Driver StoreDriver `yaml:"driver"`
	Path   string      `yaml:"path"`
	// History is how many superseded checkpoints the sqlite store keeps.
	History int `yaml:"history,omitempty"`
}

// OutputConfig holds emission settings
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// CollectorConfig describes how snapshots are gathered
type CollectorConfig struct {
	Kind     CollectorKind `yaml:"kind"`
	Path     string        `yaml:"path,omitempty"`    // file collector
	Command  []string      `yaml:"command,omitempty"` // command collector argv
	MaxTries int           `yaml:"max_tries"`
	Backoff  Duration      `yaml:"backoff"`
	Timeout  Duration      `yaml:"timeout"`
	Debounce Duration      `yaml:"debounce"`
}

// LoggingConfig maps onto logger.Config
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Debug  bool   `yaml:"debug,omitempty"`
	Format string `yaml:"format"` // auto, console, json
	Output string `yaml:"output,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
