// Package config provides configuration parsing and management for the forecaster.
//
// It handles both command-line flags and environment variables, with flags taking
// precedence over environment variables. The Config struct contains all runtime
// configuration for the forecaster including:
//   - Input source (adapter kind, file path or inline durations, adapter options)
//   - Simulation parameters (items, trials, percentiles, history limit, seed, workers)
//   - Output (format, per-position table, histogram, outcome dump, metrics textfile)
//   - Logging configuration (level, format)
//
// Several scenarios can share one history source via --config-file pointing to a
// YAML file. Without it a single scenario is built from the flags.
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
//
// Example usage:
//
//	cfg := config.ParseFlags()
//	scenarios, err := config.LoadScenarios(cfg)
//	// scenarios contains validated scenario configurations
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/containerd/errdefs"
	"gopkg.in/yaml.v3"

	"github.com/HatiCode/cyclecast/pkg/forecast"
)

// Config holds all forecaster configuration.
type Config struct {
	LogFormat string
	LogLevel  string

	Adapter       string
	AdapterConfig map[string]string
	Input         string
	Durations     string
	ConfigFile    string

	Scenario        string
	Items           int
	Trials          int
	MinTrials       int
	MaxTrials       int
	Percentiles     string
	HistoryLimit    int
	Seed            int64
	Workers         int
	Positions       bool
	Format          string
	IncludeOutcomes bool
	HistogramBins   int
	MetricsFile     string
	Explain         bool
}

// Scenario is one fully resolved and validated forecast request.
type Scenario struct {
	Name         string
	Items        int
	Trials       int
	Percentiles  []float64
	HistoryLimit int
	Seed         int64
	Workers      int
	Positions    bool
}

// ForecastConfig returns the simulation settings for this scenario.
func (s Scenario) ForecastConfig() forecast.Config {
	return forecast.Config{
		Trials:      s.Trials,
		Items:       s.Items,
		Percentiles: s.Percentiles,
		Seed:        s.Seed,
		Workers:     s.Workers,
		Positions:   s.Positions,
	}
}

// ParseFlags parses command-line flags and environment variables into a Config.
// Environment variables are used as fallbacks when flags are not provided.
// It exits the process on a flag parsing error.
func ParseFlags() *Config {
	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Parse registers the forecaster flags on fs and parses args.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{AdapterConfig: parseAdapterConfig()}

	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	fs.StringVar(&cfg.Adapter, "adapter", getEnv("ADAPTER", ""), "Input adapter: csv, json, or inline (inferred from -input/-durations when empty)")
	fs.StringVar(&cfg.Input, "input", getEnv("INPUT", ""), "Path to a CSV or JSON file with historical cycle times (- for stdin)")
	fs.StringVar(&cfg.Durations, "durations", getEnv("DURATIONS", ""), "Comma-separated historical cycle times")
	fs.Func("adapter-opt", "Adapter option as key=value (repeatable), e.g. column=Cycle Time", func(s string) error {
		key, value, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("adapter option %q must be key=value", s)
		}
		cfg.AdapterConfig[strings.TrimSpace(key)] = value
		return nil
	})
	fs.StringVar(&cfg.ConfigFile, "config-file", getEnv("CONFIG_FILE", ""), "YAML file with forecast scenarios")

	fs.StringVar(&cfg.Scenario, "scenario", getEnv("SCENARIO", "default"), "Scenario name used in reports")
	fs.IntVar(&cfg.Items, "items", getEnvInt("ITEMS", 10), "Number of backlog items to forecast (N)")
	fs.IntVar(&cfg.Trials, "trials", getEnvInt("TRIALS", 10000), "Number of Monte Carlo trials (T)")
	fs.IntVar(&cfg.MinTrials, "min-trials", getEnvInt("MIN_TRIALS", 10000), "Lowest accepted trial count")
	fs.IntVar(&cfg.MaxTrials, "max-trials", getEnvInt("MAX_TRIALS", 30000), "Highest accepted trial count")
	fs.StringVar(&cfg.Percentiles, "percentiles", getEnv("PERCENTILES", "p50,p85"), "Percentiles to report (p50,p80,p85,p90 or bare numbers)")
	fs.IntVar(&cfg.HistoryLimit, "history-limit", getEnvInt("HISTORY_LIMIT", 1000), "Use only the most recent N cycle times (0 = all)")
	fs.Int64Var(&cfg.Seed, "seed", getEnvInt64("SEED", 0), "Random seed (0 = time based)")
	fs.IntVar(&cfg.Workers, "workers", getEnvInt("WORKERS", 4), "Goroutines sharing the trials")
	fs.BoolVar(&cfg.Positions, "positions", getEnvBool("POSITIONS", false), "Report percentiles for every backlog position")
	fs.StringVar(&cfg.Format, "format", getEnv("FORMAT", "text"), "Output format: text or json")
	fs.BoolVar(&cfg.IncludeOutcomes, "include-outcomes", getEnvBool("INCLUDE_OUTCOMES", false), "Include every simulated total in JSON output")
	fs.IntVar(&cfg.HistogramBins, "histogram-bins", getEnvInt("HISTOGRAM_BINS", 10), "Histogram bins for the outcome distribution (0 = none)")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", getEnv("METRICS_FILE", ""), "Write Prometheus metrics to this textfile after the run")
	fs.BoolVar(&cfg.Explain, "explain", false, "Explain how the simulation works and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.resolveAdapter()
	return cfg, nil
}

// resolveAdapter fills the adapter kind and its path/values from the shorthand
// -input and -durations flags.
func (c *Config) resolveAdapter() {
	if c.Durations != "" {
		if _, ok := c.AdapterConfig["values"]; !ok {
			c.AdapterConfig["values"] = c.Durations
		}
	}
	if c.Input != "" {
		if _, ok := c.AdapterConfig["path"]; !ok {
			c.AdapterConfig["path"] = c.Input
		}
	}

	if c.Adapter != "" {
		return
	}
	switch {
	case c.Durations != "":
		c.Adapter = "inline"
	case strings.EqualFold(filepath.Ext(c.Input), ".json"):
		c.Adapter = "json"
	case c.Input != "":
		c.Adapter = "csv"
	}
}

// Validate checks the settings that do not depend on a scenario.
func (c *Config) Validate() error {
	if c.Adapter == "" {
		return invalid("an input is required: set -input, -durations, or -adapter")
	}
	if c.Format != "text" && c.Format != "json" {
		return invalid("invalid format %q (must be text or json)", c.Format)
	}
	if c.HistogramBins < 0 {
		return invalid("histogram-bins cannot be negative")
	}
	if c.MinTrials < 1 {
		return invalid("min-trials must be > 0")
	}
	if c.MaxTrials > forecast.MaxTrials {
		return invalid("max-trials must be <= %d", forecast.MaxTrials)
	}
	if c.MinTrials > c.MaxTrials {
		return invalid("min-trials (%d) > max-trials (%d)", c.MinTrials, c.MaxTrials)
	}
	return nil
}

// parseAdapterConfig parses ADAPTER_* environment variables into a generic configuration map.
// Adapter-specific configuration is provided via environment variables with the ADAPTER_ prefix.
// For example: ADAPTER_PATH, ADAPTER_COLUMN, ADAPTER_VALUE_PATH
// Environment variable names are converted to camelCase for the map keys (ADAPTER_VALUE_PATH → valuePath).
func parseAdapterConfig() map[string]string {
	config := make(map[string]string)

	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, "ADAPTER_") || len(key) == len("ADAPTER_") {
			continue
		}
		config[toLowerCamelCase(key[len("ADAPTER_"):])] = value
	}

	return config
}

func toLowerCamelCase(s string) string {
	parts := strings.Split(strings.ToLower(s), "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			b.WriteString(strings.ToUpper(p[:1]))
			b.WriteString(p[1:])
			continue
		}
		b.WriteString(p)
	}
	return b.String()
}

var scenarioNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_.-]{0,61}[a-zA-Z0-9])?$`)

// scenarioFile is the YAML layout accepted by --config-file.
// Omitted fields inherit the flag values.
type scenarioFile struct {
	Scenarios []scenarioEntry `yaml:"scenarios"`
}

type scenarioEntry struct {
	Name         string   `yaml:"name"`
	Items        *int     `yaml:"items"`
	Trials       *int     `yaml:"trials"`
	Percentiles  []string `yaml:"percentiles"`
	HistoryLimit *int     `yaml:"historyLimit"`
	Seed         *int64   `yaml:"seed"`
	Workers      *int     `yaml:"workers"`
	Positions    *bool    `yaml:"positions"`
}

// LoadScenarios returns the validated scenarios to run: the entries of
// cfg.ConfigFile when set, otherwise a single scenario built from the flags.
func LoadScenarios(cfg *Config) ([]Scenario, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, err := cfg.baseScenario()
	if err != nil {
		return nil, err
	}

	if cfg.ConfigFile == "" {
		if err := validateScenario(&base, 0, cfg); err != nil {
			return nil, err
		}
		return []Scenario{base}, nil
	}

	data, err := os.ReadFile(cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return parseScenarioFile(data, base, cfg)
}

func (c *Config) baseScenario() (Scenario, error) {
	percentiles, err := forecast.ParsePercentiles(c.Percentiles)
	if err != nil {
		return Scenario{}, fmt.Errorf("percentiles: %w", err)
	}
	return Scenario{
		Name:         c.Scenario,
		Items:        c.Items,
		Trials:       c.Trials,
		Percentiles:  percentiles,
		HistoryLimit: c.HistoryLimit,
		Seed:         c.Seed,
		Workers:      c.Workers,
		Positions:    c.Positions,
	}, nil
}

func parseScenarioFile(data []byte, base Scenario, cfg *Config) ([]Scenario, error) {
	var file scenarioFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, invalid("parse config file: %v", err)
	}
	if len(file.Scenarios) == 0 {
		return nil, invalid("config file defines no scenarios")
	}

	seen := make(map[string]bool, len(file.Scenarios))
	scenarios := make([]Scenario, 0, len(file.Scenarios))
	for i, entry := range file.Scenarios {
		s, err := entry.merge(base)
		if err != nil {
			return nil, fmt.Errorf("scenario[%d]: %w", i, err)
		}
		if err := validateScenario(&s, i, cfg); err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, invalid("scenario[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func (e scenarioEntry) merge(base Scenario) (Scenario, error) {
	s := base
	s.Name = e.Name
	if e.Items != nil {
		s.Items = *e.Items
	}
	if e.Trials != nil {
		s.Trials = *e.Trials
	}
	if len(e.Percentiles) > 0 {
		p, err := forecast.ParsePercentiles(strings.Join(e.Percentiles, ","))
		if err != nil {
			return Scenario{}, fmt.Errorf("percentiles: %w", err)
		}
		s.Percentiles = p
	}
	if e.HistoryLimit != nil {
		s.HistoryLimit = *e.HistoryLimit
	}
	if e.Seed != nil {
		s.Seed = *e.Seed
	}
	if e.Workers != nil {
		s.Workers = *e.Workers
	}
	if e.Positions != nil {
		s.Positions = *e.Positions
	}
	return s, nil
}

func validateScenario(s *Scenario, index int, cfg *Config) error {
	if s.Name == "" {
		return invalid("scenario[%d]: name cannot be empty", index)
	}

	if !scenarioNameRegex.MatchString(s.Name) {
		return invalid("scenario[%d]: invalid name %q (must be alphanumeric with dash/underscore/dot, 1-63 chars)", index, s.Name)
	}

	if s.Items <= 0 {
		return invalid("scenario %q: items must be > 0", s.Name)
	}

	if s.Trials < cfg.MinTrials || s.Trials > cfg.MaxTrials {
		return invalid("scenario %q: trials %d outside [%d, %d]", s.Name, s.Trials, cfg.MinTrials, cfg.MaxTrials)
	}

	if len(s.Percentiles) == 0 {
		return invalid("scenario %q: at least one percentile is required", s.Name)
	}

	if s.HistoryLimit < 0 {
		return invalid("scenario %q: historyLimit cannot be negative", s.Name)
	}

	if s.Workers <= 0 {
		s.Workers = 1
	}

	return nil
}

// invalid builds a configuration error that classifies as errdefs.ErrInvalidArgument.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errdefs.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// IsInvalid reports whether err stems from invalid user input.
func IsInvalid(err error) bool {
	return errdefs.IsInvalidArgument(err) || errors.Is(err, forecast.ErrEmptyHistory)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		var i int64
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
