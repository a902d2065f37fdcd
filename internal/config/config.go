package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the supervision pipeline uses. All of the
// heuristic constants live here rather than in the packages that apply
// them, so a deployment can retune without a rebuild.
type Config struct {
	// CharsPerToken is the byte-per-character token heuristic divisor.
	CharsPerToken int `yaml:"chars_per_token"`
	// BytesPerLine estimates content size for reads that report only a
	// line count.
	BytesPerLine int `yaml:"bytes_per_line"`
	// WarnTokens is the estimated-token level that emits WARN once per
	// session.
	WarnTokens int `yaml:"warn_tokens"`
	// RotateTokens is the estimated-token level that emits ROTATE on
	// every qualifying check once crossed.
	RotateTokens int `yaml:"rotate_tokens"`
	// FailureLimit is the consecutive nonzero-exit count for one exact
	// command string that declares a gutter.
	FailureLimit int `yaml:"failure_limit"`
	// ThrashLimit is the write count to one exact path, within
	// ThrashWindow, that declares a gutter.
	ThrashLimit int `yaml:"thrash_limit"`
	// ThrashWindow is the trailing window for the thrashing rule.
	ThrashWindow time.Duration `yaml:"thrash_window"`
	// MaxIterations is the iteration ceiling before EXHAUSTED. The task
	// document header may override it per task.
	MaxIterations int `yaml:"max_iterations"`
	// ProbeTimeout bounds each adapter availability probe.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	// DoneSentinel and StuckSentinel are literal substrings the agent
	// emits to self-report. Trusted verbatim.
	DoneSentinel  string `yaml:"done_sentinel"`
	StuckSentinel string `yaml:"stuck_sentinel"`
	// LogDir receives activity.log and error.log.
	LogDir string `yaml:"log_dir"`
	// DBPath is the event store location. Empty disables the store.
	DBPath string `yaml:"db_path"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		CharsPerToken: 4,
		BytesPerLine:  100,
		WarnTokens:    70000,
		RotateTokens:  80000,
		FailureLimit:  3,
		ThrashLimit:   5,
		ThrashWindow:  600 * time.Second,
		MaxIterations: 20,
		ProbeTimeout:  5 * time.Second,
		DoneSentinel:  "RALPH_DONE",
		StuckSentinel: "RALPH_STUCK",
		LogDir:        ".ralph",
		DBPath:        ".ralph/events.db",
	}
}

// Load builds the effective config: defaults, then the YAML file at
// path (if it exists), then RALPH_* environment overrides. A missing
// file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.CharsPerToken = getEnvInt("RALPH_CHARS_PER_TOKEN", c.CharsPerToken)
	c.BytesPerLine = getEnvInt("RALPH_BYTES_PER_LINE", c.BytesPerLine)
	c.WarnTokens = getEnvInt("RALPH_WARN_TOKENS", c.WarnTokens)
	c.RotateTokens = getEnvInt("RALPH_ROTATE_TOKENS", c.RotateTokens)
	c.FailureLimit = getEnvInt("RALPH_FAILURE_LIMIT", c.FailureLimit)
	c.ThrashLimit = getEnvInt("RALPH_THRASH_LIMIT", c.ThrashLimit)
	c.ThrashWindow = getEnvDuration("RALPH_THRASH_WINDOW", c.ThrashWindow)
	c.MaxIterations = getEnvInt("RALPH_MAX_ITERATIONS", c.MaxIterations)
	c.ProbeTimeout = getEnvDuration("RALPH_PROBE_TIMEOUT", c.ProbeTimeout)
	c.DoneSentinel = getEnvString("RALPH_DONE_SENTINEL", c.DoneSentinel)
	c.StuckSentinel = getEnvString("RALPH_STUCK_SENTINEL", c.StuckSentinel)
	c.LogDir = getEnvString("RALPH_LOG_DIR", c.LogDir)
	c.DBPath = getEnvString("RALPH_DB_PATH", c.DBPath)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.CharsPerToken <= 0 {
		return fmt.Errorf("chars_per_token must be positive, got %d", c.CharsPerToken)
	}
	if c.WarnTokens <= 0 || c.RotateTokens <= 0 {
		return fmt.Errorf("token thresholds must be positive")
	}
	if c.WarnTokens > c.RotateTokens {
		return fmt.Errorf("warn_tokens (%d) must not exceed rotate_tokens (%d)", c.WarnTokens, c.RotateTokens)
	}
	if c.FailureLimit < 1 || c.ThrashLimit < 1 {
		return fmt.Errorf("failure_limit and thrash_limit must be at least 1")
	}
	if c.ThrashWindow <= 0 {
		return fmt.Errorf("thrash_window must be positive")
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
