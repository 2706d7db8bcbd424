// Package config handles configuration loading and management for delegator.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/viper"

	"github.com/ShayCichocki/delegator/internal/cache"
	"github.com/ShayCichocki/delegator/internal/delegation"
	"github.com/ShayCichocki/delegator/internal/logging"
	"github.com/ShayCichocki/delegator/internal/transport"
)

// ProjectConfigName is the per-project override file searched for upward
// from the working directory.
const ProjectConfigName = ".delegator.yaml"

// Config holds all configuration for delegator.
type Config struct {
	Anthropic  AnthropicConfig  `mapstructure:"anthropic" yaml:"anthropic"`
	Delegation DelegationConfig `mapstructure:"delegation" yaml:"delegation"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
}

// AnthropicConfig holds delegation transport settings.
type AnthropicConfig struct {
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	Model     string        `mapstructure:"model" yaml:"model"`
	MaxTokens int64         `mapstructure:"max_tokens" yaml:"max_tokens"`
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst     int           `mapstructure:"burst" yaml:"burst"`
	Bedrock   BedrockConfig `mapstructure:"bedrock" yaml:"bedrock"`
}

// BedrockConfig selects AWS Bedrock instead of the direct API.
type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Region  string `mapstructure:"region" yaml:"region"`
	Profile string `mapstructure:"profile" yaml:"profile"`
}

// DelegationConfig holds fallback options and metrics sizing.
type DelegationConfig struct {
	AllowDirectImplementation bool `mapstructure:"allow_direct_implementation" yaml:"allow_direct_implementation"`
	AllowHumanEscalation      bool `mapstructure:"allow_human_escalation" yaml:"allow_human_escalation"`
	// HistorySize is the number of recent sessions the collector keeps.
	HistorySize int `mapstructure:"history_size" yaml:"history_size"`
}

// CacheConfig selects the context cache backend.
type CacheConfig struct {
	// Backend is memory, sqlite or bolt.
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Path is the database file. Empty uses .delegator/ under the project root.
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	// File is the log file path. Empty logs to stderr.
	File string `mapstructure:"file" yaml:"file"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Options converts the delegation section to orchestrator options.
func (c *Config) Options() delegation.Options {
	return delegation.Options{
		AllowDirectImplementation: c.Delegation.AllowDirectImplementation,
		AllowHumanEscalation:      c.Delegation.AllowHumanEscalation,
	}
}

// Transport converts the anthropic section to transport settings.
func (c *Config) Transport() transport.Config {
	return transport.Config{
		Model:         anthropic.Model(c.Anthropic.Model),
		APIKey:        c.Anthropic.APIKey,
		MaxTokens:     c.Anthropic.MaxTokens,
		RateLimit:     c.Anthropic.RateLimit,
		Burst:         c.Anthropic.Burst,
		UseAWSBedrock: c.Anthropic.Bedrock.Enabled,
		AWSRegion:     c.Anthropic.Bedrock.Region,
		AWSProfile:    c.Anthropic.Bedrock.Profile,
	}
}

// Logging converts the log section to logger settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		File:   c.Log.File,
	}
}

// CachePath returns the configured cache path, defaulting under projectRoot.
func (c *Config) CachePath(projectRoot string) string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return cache.DefaultPath(projectRoot, c.Cache.Backend)
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, DELEGATOR_*)
// 2. Project config (.delegator.yaml in current directory or parent)
// 3. User config (~/.config/delegator/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return expanded(unmarshal(v))
}

// LoadFromPath loads configuration from a specific file over the defaults,
// with environment overrides applied.
func LoadFromPath(path string) (*Config, error) {
	return loadFile(path, true)
}

func loadFile(path string, env bool) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	if !env {
		return unmarshal(v)
	}
	bindEnv(v)
	return expanded(unmarshal(v))
}

// expanded resolves ${VAR} references in the API key.
func expanded(cfg *Config, err error) (*Config, error) {
	if err != nil {
		return nil, err
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Save writes cfg to the user config file.
func Save(cfg *Config) error {
	return SaveTo(cfg, GetUserConfigPath())
}

// SaveTo writes cfg to path.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	for key, value := range settings(cfg) {
		v.Set(key, value)
	}
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// Set updates one dotted key in the user config file, creating the file
// from defaults when absent. Environment overrides are not written back.
func Set(key, value string) error {
	return SetIn(GetUserConfigPath(), key, value)
}

// SetIn updates one dotted key in the config file at path.
func SetIn(path, key, value string) error {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		loaded, err := loadFile(path, false)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	v := viper.New()
	for k, val := range settings(cfg) {
		v.Set(k, val)
	}
	if !v.IsSet(key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	v.Set(key, value)

	updated, err := unmarshal(v)
	if err != nil {
		return err
	}
	return SaveTo(updated, path)
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// Get returns the value of one dotted key. The API key is masked.
func (c *Config) Get(key string) (any, error) {
	key = strings.ToLower(key)
	value, ok := settings(c)[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	if key == "anthropic.api_key" {
		return MaskAPIKey(c.Anthropic.APIKey), nil
	}
	return value, nil
}

// Keys returns every dotted key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(settings(Default())))
	for k := range settings(Default()) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func settings(cfg *Config) map[string]any {
	return map[string]any{
		"anthropic.api_key":                      cfg.Anthropic.APIKey,
		"anthropic.model":                        cfg.Anthropic.Model,
		"anthropic.max_tokens":                   cfg.Anthropic.MaxTokens,
		"anthropic.rate_limit":                   cfg.Anthropic.RateLimit,
		"anthropic.burst":                        cfg.Anthropic.Burst,
		"anthropic.bedrock.enabled":              cfg.Anthropic.Bedrock.Enabled,
		"anthropic.bedrock.region":               cfg.Anthropic.Bedrock.Region,
		"anthropic.bedrock.profile":              cfg.Anthropic.Bedrock.Profile,
		"delegation.allow_direct_implementation": cfg.Delegation.AllowDirectImplementation,
		"delegation.allow_human_escalation":      cfg.Delegation.AllowHumanEscalation,
		"delegation.history_size":                cfg.Delegation.HistorySize,
		"cache.backend":                          cfg.Cache.Backend,
		"cache.path":                             cfg.Cache.Path,
		"log.level":                              cfg.Log.Level,
		"log.format":                             cfg.Log.Format,
		"log.file":                               cfg.Log.File,
		"server.addr":                            cfg.Server.Addr,
	}
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	for key, value := range settings(Default()) {
		v.SetDefault(key, value)
	}
}

// bindEnv maps DELEGATOR_SECTION_KEY variables and ANTHROPIC_API_KEY.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("DELEGATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY", "DELEGATOR_ANTHROPIC_API_KEY")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown enumerations and non-positive sizes.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case cache.BackendMemory, cache.BackendSQLite, cache.BackendBolt:
	default:
		return fmt.Errorf("invalid cache.backend %q: want memory, sqlite or bolt", c.Cache.Backend)
	}
	switch c.Log.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log.format %q: want console or json", c.Log.Format)
	}
	if c.Delegation.HistorySize <= 0 {
		return fmt.Errorf("invalid delegation.history_size %d: must be positive", c.Delegation.HistorySize)
	}
	return nil
}

// getUserConfigDir returns the XDG config directory for delegator.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "delegator")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "delegator")
	}
	return filepath.Join(home, ".config", "delegator")
}

// findProjectConfig searches for .delegator.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return ""
		}
		cwd = parent
	}
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model:     string(anthropic.ModelClaudeSonnet4_5_20250929),
			MaxTokens: 8192,
			RateLimit: 1,
			Burst:     2,
		},
		Delegation: DelegationConfig{
			AllowDirectImplementation: true,
			HistorySize:               delegation.DefaultHistorySize,
		},
		Cache: CacheConfig{
			Backend: cache.BackendMemory,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}
