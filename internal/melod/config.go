// Package melod holds the daemon plumbing: configuration, logging and the
// module supervisor.
package melod

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration for melod.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Modules ModulesConfig `toml:"modules"`
}

// ServerConfig defines shared server settings.
type ServerConfig struct {
	Name      string     `toml:"name"`
	HTTPPort  int        `toml:"http_port"`
	UIDir     string     `toml:"ui_dir"`
	DataDir   string     `toml:"data_dir"`
	LogLevel  string     `toml:"log_level"`
	LogFormat string     `toml:"log_format"`
	Auth      AuthConfig `toml:"auth"`
}

// AuthConfig holds the optional basic-auth credential.
type AuthConfig struct {
	User string `toml:"user"`
	Pass string `toml:"pass"`
}

// ModulesConfig holds module configurations.
type ModulesConfig struct {
	File  FileConfig  `toml:"file"`
	Radio RadioConfig `toml:"radio"`
}

// FileConfig configures the file module.
type FileConfig struct {
	Enabled     bool              `toml:"enabled"`
	Roots       map[string]string `toml:"roots"`
	Pipeline    string            `toml:"pipeline"`
	Device      string            `toml:"device"`
	CrossfadeMS int64             `toml:"crossfade_ms"`
}

// RadioConfig configures the radio module.
type RadioConfig struct {
	Enabled    bool              `toml:"enabled"`
	Feeds      map[string]string `toml:"feeds"`
	RefreshMin int64             `toml:"refresh_min"`
	Pipeline   string            `toml:"pipeline"`
	Device     string            `toml:"device"`
}

// LoadConfig loads a config file from path.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, err
	}
	if info.IsDir() {
		return Config{}, errors.New("config path is a directory")
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Name == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "melo"
		}
		c.Server.Name = host
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.DataDir == "" {
		if dir, err := DefaultDataDir(); err == nil {
			c.Server.DataDir = dir
		}
	}
}

// DefaultConfigPath returns the default config location.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "melo", "melod.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "melo", "melod.toml"), nil
}

// DefaultDataDir returns the default persistent data location.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "melo"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "melo"), nil
}
