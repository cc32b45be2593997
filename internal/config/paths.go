package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file.
	EnvConfigPath = "USBMAP_CONFIG"
	// ConfigFileName is looked up in the working directory.
	ConfigFileName = "usbmap.yaml"
	// ConfigDirName is the per-user and system config directory name.
	ConfigDirName = "usbmap"
)

// SearchPaths lists the config file candidates, most specific first:
// $USBMAP_CONFIG, ./usbmap.yaml, the XDG and ~/.config user files, then
// /etc/usbmap/config.yaml. Unset variables contribute nothing.
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		paths = append(paths, abs)
	} else {
		paths = append(paths, ConfigFileName)
	}
	paths = append(paths, userConfigPaths()...)
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first search path holding a regular file, or
// "" when there is none.
func FindConfigPath() string {
	for _, p := range SearchPaths() {
		if isFile(p) {
			return p
		}
	}
	return ""
}

// DefaultConfigPath is where `usbmap config --write` puts a new file: the
// first per-user location, or the working directory without a home.
func DefaultConfigPath() string {
	if user := userConfigPaths(); len(user) > 0 {
		return user[0]
	}
	return ConfigFileName
}

// WritePath picks the file a config write goes to. An explicit target wins,
// then the file the config was loaded from.
func WritePath(explicit, loaded string) string {
	switch {
	case explicit != "":
		return explicit
	case loaded != "":
		return loaded
	default:
		return DefaultConfigPath()
	}
}

func userConfigPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return paths
}

// EnsureConfigDir creates the directory holding configPath.
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
