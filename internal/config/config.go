package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConcurrency is the number of projects warmed concurrently per chunk
// during startup prefetch.
const DefaultConcurrency = 3

type Config struct {
	Theme        string         `yaml:"theme"`
	LogLevel     string         `yaml:"log_level"`
	WorktreesDir string         `yaml:"worktrees_dir"`
	Web          WebConfig      `yaml:"web"`
	Prefetch     PrefetchConfig `yaml:"prefetch"`
}

type WebConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type PrefetchConfig struct {
	// Concurrency caps how many projects are warmed at once. A chunk of this
	// size must fully complete before the next chunk starts.
	Concurrency int `yaml:"concurrency"`
}

func DefaultConfig() Config {
	return Config{
		Theme:    "mocha",
		LogLevel: "info",
		Web:      WebConfig{Bind: "127.0.0.1"},
		Prefetch: PrefetchConfig{Concurrency: DefaultConcurrency},
	}
}

func Load() (Config, error) {
	return LoadFrom(getConfigPath())
}

// LoadFromDir loads config.yaml from an explicit directory.
func LoadFromDir(dir string) (Config, error) {
	return LoadFrom(filepath.Join(dir, "config.yaml"))
}

func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}

	if cfg.Theme == "" {
		cfg.Theme = "mocha"
	}
	if cfg.Prefetch.Concurrency == 0 {
		cfg.Prefetch.Concurrency = DefaultConcurrency
	}

	return cfg, nil
}

// Validate checks config values that would break subsystems at runtime.
func (c *Config) Validate() error {
	if c.Prefetch.Concurrency < 1 {
		return fmt.Errorf("prefetch.concurrency must be at least 1, got %d", c.Prefetch.Concurrency)
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	return nil
}

// ResolveWorktreesDir returns the base directory for created worktrees,
// expanding a leading "~". Defaults to ~/workbench.
func (c *Config) ResolveWorktreesDir() string {
	dir := c.WorktreesDir
	if dir == "" {
		dir = "~/workbench"
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
	}
	return dir
}

// ResolveDataDir returns the data directory, honoring an explicit override,
// then XDG_DATA_HOME, then ~/.local/share/workbench.
func ResolveDataDir(override string) string {
	if override != "" {
		return override
	}
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "workbench")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".local", "share", "workbench")
	}
	return filepath.Join(home, ".local", "share", "workbench")
}

func getConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "workbench", "config.yaml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "workbench", "config.yaml")
	}

	return filepath.Join(home, ".config", "workbench", "config.yaml")
}
