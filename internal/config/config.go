// Package config loads mcpwatch's configuration from a YAML file, the
// environment, and built-in defaults using viper, mirroring the layered
// config approach of the tool this project was adapted from.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ProviderConfig describes a single LLM backend entry in the fallback chain.
type ProviderConfig struct {
	Name   string `mapstructure:"name" yaml:"name"`     // "gemini", "openai", "ollama", ...
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	Model  string `mapstructure:"model" yaml:"model"`
	URL    string `mapstructure:"url" yaml:"url,omitempty"` // for local/self-hosted backends
}

// TransportConfig controls how mcpwatch connects to the target server.
type TransportConfig struct {
	Kind      string   `mapstructure:"kind" yaml:"kind"` // "stdio", "sse", "streamable-http"
	Command   string   `mapstructure:"command" yaml:"command,omitempty"`
	Args      []string `mapstructure:"args" yaml:"args,omitempty"`
	URL       string   `mapstructure:"url" yaml:"url,omitempty"`
	TimeoutMs int      `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// InterviewConfig bounds persona scheduling and question volume.
type InterviewConfig struct {
	QuestionsPerTool int  `mapstructure:"questions_per_tool" yaml:"questions_per_tool"`
	MaxConcurrency   int  `mapstructure:"max_concurrency" yaml:"max_concurrency"`
	PersonasParallel bool `mapstructure:"personas_parallel" yaml:"personas_parallel"`
	ToolTimeoutMs    int  `mapstructure:"tool_timeout_ms" yaml:"tool_timeout_ms"`
}

// CacheConfig bounds the response cache's size and lifetime.
type CacheConfig struct {
	MaxEntries   int    `mapstructure:"max_entries" yaml:"max_entries"`
	MaxSizeBytes int64  `mapstructure:"max_size_bytes" yaml:"max_size_bytes"`
	TTL          string `mapstructure:"ttl" yaml:"ttl"` // parsed with time.ParseDuration
	DiskDir      string `mapstructure:"disk_dir" yaml:"disk_dir,omitempty"`
}

// Config is the root mcpwatch configuration.
type Config struct {
	Providers    []ProviderConfig `mapstructure:"providers" yaml:"providers"`
	DefaultModel string           `mapstructure:"default_model" yaml:"default_model"`
	Transport    TransportConfig  `mapstructure:"transport" yaml:"transport"`
	Interview    InterviewConfig  `mapstructure:"interview" yaml:"interview"`
	Cache        CacheConfig      `mapstructure:"cache" yaml:"cache"`
	BaselineDir  string           `mapstructure:"baseline_dir" yaml:"baseline_dir"`
}

// CacheTTL parses Cache.TTL, defaulting to 1 hour on empty/invalid input.
func (c Config) CacheTTL() time.Duration {
	if c.Cache.TTL == "" {
		return time.Hour
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// Defaults returns a Config populated with the defaults every field falls
// back to when unset, matching the "default_limit"/"total_limit" style the
// teacher's ToolLimitsConfig uses for fill-ins.
func Defaults() Config {
	return Config{
		DefaultModel: "gemini-2.5-flash-lite",
		Transport: TransportConfig{
			Kind:      "stdio",
			TimeoutMs: 30_000,
		},
		Interview: InterviewConfig{
			QuestionsPerTool: 6,
			MaxConcurrency:   4,
			PersonasParallel: true,
			ToolTimeoutMs:    15_000,
		},
		Cache: CacheConfig{
			MaxEntries:   10_000,
			MaxSizeBytes: 64 << 20,
			TTL:          "1h",
		},
		BaselineDir: ".mcpwatch/baselines",
	}
}

// Load reads configuration from the given file path (if non-empty) layered
// over environment variables (MCPWATCH_*) and Defaults().
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MCPWATCH")
	v.AutomaticEnv()

	def := Defaults()
	v.SetDefault("default_model", def.DefaultModel)
	v.SetDefault("transport.kind", def.Transport.Kind)
	v.SetDefault("transport.timeout_ms", def.Transport.TimeoutMs)
	v.SetDefault("interview.questions_per_tool", def.Interview.QuestionsPerTool)
	v.SetDefault("interview.max_concurrency", def.Interview.MaxConcurrency)
	v.SetDefault("interview.personas_parallel", def.Interview.PersonasParallel)
	v.SetDefault("interview.tool_timeout_ms", def.Interview.ToolTimeoutMs)
	v.SetDefault("cache.max_entries", def.Cache.MaxEntries)
	v.SetDefault("cache.max_size_bytes", def.Cache.MaxSizeBytes)
	v.SetDefault("cache.ttl", def.Cache.TTL)
	v.SetDefault("baseline_dir", def.BaselineDir)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}
