package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fundwatch/internal/fundlist"
	"fundwatch/internal/report"
)

// EnvPrefix is prepended to every environment variable, e.g.
// FUNDWATCH_POLL_INTERVAL_SECONDS.
const EnvPrefix = "FUNDWATCH"

// Config holds all configuration for fundwatch.
type Config struct {
	// Loop cadence and retry policy
	PollIntervalSeconds   int `mapstructure:"poll_interval_seconds"`
	MaxConcurrentFetches  int `mapstructure:"max_concurrent_fetches"`
	MaxCycleRetries       int `mapstructure:"max_cycle_retries"`
	PerCallTimeoutSeconds int `mapstructure:"per_call_timeout_seconds"`
	RetryBackoffSeconds   int `mapstructure:"retry_backoff_seconds"`
	StopTimeoutSeconds    int `mapstructure:"stop_timeout_seconds"`

	// Base URLs for the providers (configurable for testing)
	Fund123BaseURL           string `mapstructure:"fund123_base_url"`
	EastmoneyInfoBaseURL     string `mapstructure:"eastmoney_info_base_url"`
	EastmoneyEstimateBaseURL string `mapstructure:"eastmoney_estimate_base_url"`

	// Request pacing; zero disables the limit
	Fund123RequestsPerSecond   float64 `mapstructure:"fund123_requests_per_second"`
	EastmoneyRequestsPerSecond float64 `mapstructure:"eastmoney_requests_per_second"`

	// Funds to watch. FundCodes wins over CategoryFile, which wins over
	// FundFile when it exists.
	FundFile     string   `mapstructure:"fund_file"`
	FundCodes    []string `mapstructure:"fund_codes"`
	CategoryFile string   `mapstructure:"category_file"`

	// Outputs
	OutputFile   string `mapstructure:"output_file"`
	OutputFormat string `mapstructure:"output_format"`
	OutputDir    string `mapstructure:"output_dir"`
	SQLitePath   string `mapstructure:"sqlite_path"`

	LogLevel string `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"poll_interval_seconds":         60,
	"max_concurrent_fetches":        4,
	"max_cycle_retries":             3,
	"per_call_timeout_seconds":      10,
	"retry_backoff_seconds":         5,
	"stop_timeout_seconds":          60,
	"fund123_base_url":              "https://www.fund123.cn",
	"eastmoney_info_base_url":       "http://fund.eastmoney.com",
	"eastmoney_estimate_base_url":   "http://fundgz.1234567.com.cn",
	"fund123_requests_per_second":   5.0,
	"eastmoney_requests_per_second": 10.0,
	"fund_file":                     "funds_list.txt",
	"fund_codes":                    []string{},
	"category_file":                 "category.txt",
	"output_file":                   "fund_valuation_result.txt",
	"output_format":                 report.FormatText,
	"output_dir":                    "",
	"sqlite_path":                   "",
	"log_level":                     "info",
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"fund-file":      "fund_file",
	"codes":          "fund_codes",
	"category":       "category_file",
	"output":         "output_file",
	"format":         "output_format",
	"output-dir":     "output_dir",
	"interval":       "poll_interval_seconds",
	"max-concurrent": "max_concurrent_fetches",
	"sqlite":         "sqlite_path",
	"log-level":      "log_level",
}

// RegisterFlags adds the flags Load understands to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to a config file (default: ./config.yaml or $HOME/.fundwatch/config.yaml)")
	flags.StringP("fund-file", "f", "funds_list.txt", "file with one fund code per line")
	flags.StringSlice("codes", nil, "comma-separated fund codes, overrides --category and --fund-file")
	flags.String("category", "category.txt", "category file written by --classify, used instead of --fund-file when present")
	flags.StringP("output", "o", "fund_valuation_result.txt", "report output file")
	flags.String("format", report.FormatText, "report format: text, json or csv")
	flags.String("output-dir", "", "also write timestamped text, JSON and CSV reports into this directory")
	flags.IntP("interval", "i", 60, "seconds between monitor cycles")
	flags.Int("max-concurrent", 4, "funds fetched at once")
	flags.String("sqlite", "", "sqlite database for the latest snapshots (disabled when empty)")
	flags.String("log-level", "info", "debug, info, warn or error")
}

// Load reads configuration from defaults, an optional config file,
// FUNDWATCH_* environment variables and flags, in increasing precedence.
// flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Set up environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configFile := ""
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
		if f := flags.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.fundwatch")

		// Read config file (ignore if not found)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	codes, err := parseCodes(config.FundCodes)
	if err != nil {
		return nil, err
	}
	config.FundCodes = codes

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string
	positive := []struct {
		key   string
		value int
	}{
		{"poll_interval_seconds", c.PollIntervalSeconds},
		{"max_concurrent_fetches", c.MaxConcurrentFetches},
		{"per_call_timeout_seconds", c.PerCallTimeoutSeconds},
		{"retry_backoff_seconds", c.RetryBackoffSeconds},
		{"stop_timeout_seconds", c.StopTimeoutSeconds},
	}
	for _, p := range positive {
		if p.value <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %d", p.key, p.value))
		}
	}
	if c.MaxCycleRetries < 0 {
		problems = append(problems, fmt.Sprintf("max_cycle_retries must not be negative, got %d", c.MaxCycleRetries))
	}
	if c.Fund123RequestsPerSecond < 0 || c.EastmoneyRequestsPerSecond < 0 {
		problems = append(problems, "requests_per_second must not be negative")
	}

	switch c.OutputFormat {
	case report.FormatText, report.FormatJSON, report.FormatCSV:
	default:
		problems = append(problems, fmt.Sprintf("output_format must be text, json or csv, got %q", c.OutputFormat))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		problems = append(problems, fmt.Sprintf("log_level %q is not a level", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// PollInterval is the wait between monitor cycles.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// PerCallTimeout bounds every outbound provider request.
func (c *Config) PerCallTimeout() time.Duration {
	return time.Duration(c.PerCallTimeoutSeconds) * time.Second
}

// RetryBackoff is the base of the linear cycle retry backoff.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSeconds) * time.Second
}

// StopTimeout bounds how long a graceful stop waits.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutSeconds) * time.Second
}

// Level returns the slog level. Validate guarantees it parses.
func (c *Config) Level() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.LogLevel))
	return level
}

// parseCodes accepts both list values and comma-separated strings. Codes must
// be six digits; duplicates are dropped.
func parseCodes(raw []string) ([]string, error) {
	joined := strings.Join(raw, ",")
	if strings.Trim(joined, ", \t") == "" {
		return nil, nil
	}
	codes, err := fundlist.ParseList(joined)
	if err != nil {
		return nil, fmt.Errorf("invalid fund_codes: %w", err)
	}
	return codes, nil
}
