// Package config loads the YAML configuration describing which language
// servers to launch and how.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"lsp-client/src/internal/registry"
	"lsp-client/src/internal/types"
)

// Config contains language server configuration.
type Config struct {
	Servers map[string]*ServerConfig `yaml:"servers"`

	// RequestTimeoutSeconds overrides the per-language request timeout when
	// positive.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds,omitempty"`
}

// RequestTimeout returns the configured override as a duration, or zero
// when unset so callers fall back to the per-language default.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds > 0 {
		return time.Duration(c.RequestTimeoutSeconds) * time.Second
	}
	return 0
}

// ServerConfig contains configuration for a single language server.
type ServerConfig struct {
	Command               string            `yaml:"command"`
	Args                  []string          `yaml:"args,omitempty"`
	WorkingDir            string            `yaml:"working_dir,omitempty"`
	Env                   map[string]string `yaml:"env,omitempty"`
	InitializationOptions interface{}       `yaml:"initialization_options,omitempty"`
	Settings              interface{}       `yaml:"settings,omitempty"`

	// IntelliSenseMembersPath points at the intellicode model used by the
	// jdtls activation sequence. Ignored by other languages.
	IntelliSenseMembersPath string `yaml:"intellisense_members_path,omitempty"`
}

// ClientConfig converts one server entry into the launch description the
// session engine consumes.
func (sc *ServerConfig) ClientConfig() types.ClientConfig {
	return types.ClientConfig{
		Command:               sc.Command,
		Args:                  sc.Args,
		Env:                   sc.Env,
		WorkingDir:            sc.WorkingDir,
		InitializationOptions: sc.InitializationOptions,
		Settings:              sc.Settings,
	}
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfig builds a configuration from the language registry
// defaults.
func GetDefaultConfig() *Config {
	servers := make(map[string]*ServerConfig)
	for _, name := range registry.SupportedLanguages() {
		info, _ := registry.GetLanguageByName(name)
		servers[name] = &ServerConfig{
			Command:               info.DefaultCommand,
			Args:                  info.DefaultArgs,
			InitializationOptions: info.InitializationOptions,
		}
	}
	return &Config{Servers: servers}
}

// GetServer returns the configuration for a language, falling back to the
// registry defaults for known languages.
func (c *Config) GetServer(language string) (*ServerConfig, error) {
	if sc, ok := c.Servers[language]; ok {
		return sc, nil
	}
	info, ok := registry.GetLanguageByName(language)
	if !ok {
		return nil, fmt.Errorf("no server configured for language %s", language)
	}
	return &ServerConfig{
		Command:               info.DefaultCommand,
		Args:                  info.DefaultArgs,
		InitializationOptions: info.InitializationOptions,
	}, nil
}

func validateConfig(config *Config) error {
	if config.Servers == nil {
		return fmt.Errorf("servers configuration is required")
	}

	for language, serverConfig := range config.Servers {
		if serverConfig == nil {
			return fmt.Errorf("empty configuration for language %s", language)
		}
		if serverConfig.Command == "" {
			return fmt.Errorf("command is required for language %s", language)
		}
	}
	return nil
}
