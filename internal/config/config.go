package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all build configuration.
type Config struct {
	Build Build `mapstructure:"build"`
	Log   Log   `mapstructure:"log"`
	Trace Trace `mapstructure:"trace"`
	Graph Graph `mapstructure:"graph"`
}

// Build controls the compile pipeline. An empty OutputDir writes each
// generated pair alongside its source file.
type Build struct {
	OutputDir    string   `mapstructure:"output_dir"`
	IncludePaths []string `mapstructure:"include_paths"`
	CacheDir     string   `mapstructure:"cache_dir"`
	NoCache      bool     `mapstructure:"no_cache"`
}

// Log mirrors the slog setup: level is debug/info/warn/error, format
// is text or json.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Trace points the OTLP exporter at a collector. Empty endpoint
// disables tracing.
type Trace struct {
	Endpoint string `mapstructure:"endpoint"`
}

// Graph is the Neo4j connection for dependency-graph export.
type Graph struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown log level %q, using info", c.Log.Level))
	}
	if c.Graph.URI != "" && c.Graph.Username == "" {
		warnings = append(warnings, "graph.uri is set but graph.username is empty")
	}
	return warnings
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Build: Build{CacheDir: ".cnextc-cache"},
		Log:   Log{Level: "info", Format: "text"},
	}
}

// Load reads configuration from file and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("CNEXTC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to defaults
// otherwise. An explicit but unreadable file is still an error.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}
