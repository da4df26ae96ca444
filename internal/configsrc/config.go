// Package configsrc loads the gateway's static configuration: upstream
// server specs, logging, and daemon tuning. Grounded on the teacher's
// internal/config (viper + JSON/TOML + env-var override idiom), trimmed to
// the fields this gateway actually needs and retargeted to produce
// session.ServerSpec values instead of a standalone upstream-manager config.
package configsrc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/mcp-gateway/toolkit/internal/daemon"
	"github.com/mcp-gateway/toolkit/internal/logs"
	"github.com/mcp-gateway/toolkit/internal/session"
)

const (
	// DefaultDataDir is the gateway's data directory, relative to $HOME.
	DefaultDataDir = ".mcp-gateway"
	// ConfigFileName is the default config file name, tried in both JSON
	// and TOML forms (extension decides which parser loads it).
	ConfigFileName = "gateway_config.json"
	envPrefix      = "MCPGW"
)

// ServerEntry is one upstream server as read from the config file, prior to
// becoming a session.ServerSpec.
type ServerEntry struct {
	Name         string            `json:"name" mapstructure:"name" toml:"name"`
	Command      string            `json:"command,omitempty" mapstructure:"command" toml:"command,omitempty"`
	Args         []string          `json:"args,omitempty" mapstructure:"args" toml:"args,omitempty"`
	Env          map[string]string `json:"env,omitempty" mapstructure:"env" toml:"env,omitempty"`
	URL          string            `json:"url,omitempty" mapstructure:"url" toml:"url,omitempty"`
	Type         string            `json:"type,omitempty" mapstructure:"type" toml:"type,omitempty"`
	TrustSchemas *bool             `json:"trust_schemas,omitempty" mapstructure:"trust-schemas" toml:"trust_schemas,omitempty"`
	Enabled      bool              `json:"enabled" mapstructure:"enabled" toml:"enabled"`
}

// DaemonTuning overrides selected daemon.Config fields; zero values mean
// "use the daemon package default."
type DaemonTuning struct {
	MaxSessions     int   `json:"max_sessions,omitempty" mapstructure:"max-sessions" toml:"max_sessions,omitempty"`
	IdleTimeoutMs   int64 `json:"idle_timeout_ms,omitempty" mapstructure:"idle-timeout-ms" toml:"idle_timeout_ms,omitempty"`
	MaxAgeMs        int64 `json:"max_age_ms,omitempty" mapstructure:"max-age-ms" toml:"max_age_ms,omitempty"`
	SweepIntervalMs int64 `json:"sweep_interval_ms,omitempty" mapstructure:"sweep-interval-ms" toml:"sweep_interval_ms,omitempty"`
}

// Config is the gateway's full static configuration.
type Config struct {
	DataDir    string        `json:"data_dir" mapstructure:"data-dir" toml:"data_dir"`
	Listen     string        `json:"listen" mapstructure:"listen" toml:"listen"`
	TopK       int           `json:"top_k" mapstructure:"top-k" toml:"top_k"`
	ToolsLimit int           `json:"tools_limit" mapstructure:"tools-limit" toml:"tools_limit"`
	Servers    []ServerEntry `json:"mcpServers" mapstructure:"servers" toml:"mcp_servers"`
	Logging    *logs.Config  `json:"logging,omitempty" mapstructure:"logging" toml:"logging,omitempty"`
	Daemon     DaemonTuning  `json:"daemon,omitempty" mapstructure:"daemon" toml:"daemon,omitempty"`
}

// DefaultConfig returns the gateway's baseline configuration: no upstream
// servers, console logging, localhost-only listen address.
func DefaultConfig() *Config {
	return &Config{
		Listen:     "127.0.0.1:8080",
		TopK:       5,
		ToolsLimit: 15,
		Servers:    nil,
		Logging:    logs.DefaultLogConfig(),
	}
}

// Load reads configuration from configPath (if set) or the first of the
// standard locations, applies MCPGW_-prefixed environment overrides via
// viper, and fills in defaults (spec §6 ambient "configuration loading").
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	setupViper()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if found, path := findConfigFile(cfg); found {
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(homeDir, DefaultDataDir)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	return cfg, nil
}

func setupViper() {
	viper.Reset()
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.SetDefault("listen", "127.0.0.1:8080")
	viper.SetDefault("top-k", 5)
	viper.SetDefault("tools-limit", 15)
}

func findConfigFile(cfg *Config) (bool, string) {
	locations := []string{ConfigFileName, strings.TrimSuffix(ConfigFileName, ".json") + ".toml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(homeDir, DefaultDataDir, ConfigFileName),
			filepath.Join(homeDir, DefaultDataDir, strings.TrimSuffix(ConfigFileName, ".json")+".toml"),
		)
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return true, loc
		}
	}
	return false, ""
}

// loadConfigFile parses path as TOML or JSON (by extension) into cfg, then
// feeds the same data to viper so env-var overrides still apply afterward.
func loadConfigFile(path string, cfg *Config) error {
	if strings.HasSuffix(path, ".toml") {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("parse toml config: %w", err)
		}
		viper.SetConfigFile(path)
		viper.SetConfigType("toml")
		return viper.ReadInConfig()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read json config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse json config: %w", err)
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read json config: %w", err)
	}
	return viper.Unmarshal(cfg)
}

// ServerSpecs converts the loaded server entries into the session package's
// native type, skipping disabled entries.
func (c *Config) ServerSpecs() map[string]session.ServerSpec {
	specs := make(map[string]session.ServerSpec, len(c.Servers))
	for _, e := range c.Servers {
		if !e.Enabled {
			continue
		}
		specs[e.Name] = session.ServerSpec{
			Name:         e.Name,
			Command:      e.Command,
			Args:         e.Args,
			Env:          e.Env,
			URL:          e.URL,
			Type:         e.Type,
			TrustSchemas: e.TrustSchemas,
		}
	}
	return specs
}

// DaemonConfig merges the config file's daemon tuning onto daemon.DefaultConfig.
func (c *Config) DaemonConfig() daemon.Config {
	dc := daemon.DefaultConfig()
	if c.Daemon.MaxSessions > 0 {
		dc.MaxSessions = c.Daemon.MaxSessions
	}
	if c.Daemon.IdleTimeoutMs > 0 {
		dc.IdleTimeoutMs = c.Daemon.IdleTimeoutMs
	}
	if c.Daemon.MaxAgeMs > 0 {
		dc.MaxAgeMs = c.Daemon.MaxAgeMs
	}
	if c.Daemon.SweepIntervalMs > 0 {
		dc.SweepIntervalMs = c.Daemon.SweepIntervalMs
	}
	return dc
}
