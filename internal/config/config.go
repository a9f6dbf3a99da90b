// ABOUTME: Configuration loading and parsing for coven-relay
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete coven-relay configuration
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Platform PlatformConfig `yaml:"platform"`
	State    StateConfig    `yaml:"state"`
	Dedupe   DedupeConfig   `yaml:"dedupe"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// EngineConfig holds reasoning engine invocation settings.
// Provider, model, thinking depth and the tool allowlist are passed through
// to the engine unmodified; the relay does not interpret them.
type EngineConfig struct {
	Provider      string   `yaml:"provider"`       // "claude" or "exec"
	Binary        string   `yaml:"binary"`         // engine executable (defaults per provider)
	Model         string   `yaml:"model"`          // engine-specific model identifier
	ThinkingDepth string   `yaml:"thinking_depth"` // low, medium, high
	ToolAllowlist []string `yaml:"tool_allowlist"` // restricts engine capabilities

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// PlatformConfig holds issue-platform settings
type PlatformConfig struct {
	Repo            string `yaml:"repo"`              // owner/name
	MinPermission   string `yaml:"min_permission"`    // minimum actor tier: write, maintain, admin
	MaxCommentBytes int    `yaml:"max_comment_bytes"` // reply truncation bound
	Reaction        string `yaml:"reaction"`          // activity marker content
}

// StateConfig holds the durable history store settings
type StateConfig struct {
	Dir            string `yaml:"dir"`    // checkout of the state repository
	Remote         string `yaml:"remote"` // push/pull remote
	Branch         string `yaml:"branch"`
	CommitAttempts int    `yaml:"commit_attempts"`

	RetryBackoff time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	RetryBackoffRaw string `yaml:"retry_backoff"`
}

// DedupeConfig holds the delivery dedupe store settings
type DedupeConfig struct {
	Path string `yaml:"path"` // sqlite file; empty disables dedupe

	TTL time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TTLRaw string `yaml:"ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in defaults for optional fields
func (c *Config) applyDefaults() {
	if c.Engine.Provider == "" {
		c.Engine.Provider = "claude"
	}
	if c.Engine.Binary == "" && c.Engine.Provider == "claude" {
		c.Engine.Binary = "claude"
	}
	if c.Engine.Timeout == 0 {
		c.Engine.Timeout = 10 * time.Minute
	}
	if c.Platform.MinPermission == "" {
		c.Platform.MinPermission = "write"
	}
	if c.Platform.MaxCommentBytes == 0 {
		c.Platform.MaxCommentBytes = 65536
	}
	if c.Platform.Reaction == "" {
		c.Platform.Reaction = "eyes"
	}
	if c.State.Remote == "" {
		c.State.Remote = "origin"
	}
	if c.State.Branch == "" {
		c.State.Branch = "main"
	}
	if c.State.CommitAttempts == 0 {
		c.State.CommitAttempts = 3
	}
	if c.State.RetryBackoff == 0 {
		c.State.RetryBackoff = 2 * time.Second
	}
	if c.Dedupe.TTL == 0 {
		c.Dedupe.TTL = 72 * time.Hour
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.State.Dir == "" {
		return fmt.Errorf("state.dir is required")
	}

	if c.Platform.Repo == "" {
		return fmt.Errorf("platform.repo is required")
	}

	switch c.Engine.Provider {
	case "claude":
	case "exec":
		if c.Engine.Binary == "" {
			return fmt.Errorf("engine.binary is required when engine.provider is %q", c.Engine.Provider)
		}
	default:
		return fmt.Errorf("engine.provider must be \"claude\" or \"exec\", got %q", c.Engine.Provider)
	}

	switch c.Engine.ThinkingDepth {
	case "", "low", "medium", "high":
	default:
		return fmt.Errorf("engine.thinking_depth must be low, medium, or high, got %q", c.Engine.ThinkingDepth)
	}

	switch c.Platform.MinPermission {
	case "write", "maintain", "admin":
	default:
		return fmt.Errorf("platform.min_permission must be write, maintain, or admin, got %q", c.Platform.MinPermission)
	}

	if c.State.CommitAttempts < 1 {
		return fmt.Errorf("state.commit_attempts must be at least 1")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Engine.TimeoutRaw != "" {
		cfg.Engine.Timeout, err = time.ParseDuration(cfg.Engine.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing engine.timeout %q: %w", cfg.Engine.TimeoutRaw, err)
		}
	}

	if cfg.State.RetryBackoffRaw != "" {
		cfg.State.RetryBackoff, err = time.ParseDuration(cfg.State.RetryBackoffRaw)
		if err != nil {
			return fmt.Errorf("parsing state.retry_backoff %q: %w", cfg.State.RetryBackoffRaw, err)
		}
	}

	if cfg.Dedupe.TTLRaw != "" {
		cfg.Dedupe.TTL, err = time.ParseDuration(cfg.Dedupe.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing dedupe.ttl %q: %w", cfg.Dedupe.TTLRaw, err)
		}
	}

	return nil
}
