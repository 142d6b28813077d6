package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/optimizer"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Weights WeightsConfig `yaml:"weights"`

	// Optional: load optimizer settings from a separate YAML (e.g. configs/optimizer/*.yaml).
	// If both OptimizerFile and Optimizer are provided, Optimizer overrides OptimizerFile.
	OptimizerFile string          `yaml:"optimizer_file"`
	Optimizer     OptimizerConfig `yaml:"optimizer"`

	Scoring  model.PointsScheme `yaml:"scoring"`
	Database DatabaseConfig     `yaml:"database"`
	Schedule ScheduleConfig     `yaml:"schedule"`
	Log      LogConfig          `yaml:"log"`
	API      APIConfig          `yaml:"api"`
	StatsAPI StatsAPIConfig     `yaml:"stats_api"`
}

type DataConfig struct {
	Dir string `yaml:"dir"`
	// HistoryFile is a merged snapshot; when present it is used instead of the CSVs.
	HistoryFile string `yaml:"history_file"`
	// RosterFile "" picks the newest yahoo_fantasy_rosters_*.csv in Dir.
	RosterFile string `yaml:"roster_file"`
	StartYear  int    `yaml:"start_year"`
	// EndYear 0 means the current year.
	EndYear int `yaml:"end_year"`
}

type WeightsConfig struct {
	Dir string `yaml:"dir"`
}

type OptimizerConfig struct {
	PopSize           int               `yaml:"popsize"`
	MaxIter           int               `yaml:"maxiter"`
	Tol               float64           `yaml:"tol"`
	Atol              float64           `yaml:"atol"`
	Seed              int64             `yaml:"seed"`
	Workers           int               `yaml:"workers"`
	Polish            *bool             `yaml:"polish"`
	PolishEvaluations int               `yaml:"polish_evaluations"`
	DefaultBounds     *optimizer.Bounds `yaml:"default_bounds"`
	// Bounds overrides the search interval for individual factors.
	Bounds map[string]optimizer.Bounds `yaml:"bounds"`
}

type DatabaseConfig struct {
	// SQLitePath "" disables run history and the task queue.
	SQLitePath string `yaml:"sqlite_path"`
}

type ScheduleConfig struct {
	// RetuneCron uses six fields (with seconds).
	RetuneCron  string `yaml:"retune_cron"`
	BatchPrefix string `yaml:"batch_prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type APIConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type StatsAPIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns a config with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path (a missing file means defaults), applies environment
// overrides and defaults, and validates.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it or apply
// defaults. Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	var c Config
	if path == "" {
		return &c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &c, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if c.OptimizerFile != "" {
		optPath := c.OptimizerFile
		if !filepath.IsAbs(optPath) {
			// Prefer paths relative to the config file, falling back to cwd.
			cand := filepath.Join(filepath.Dir(path), optPath)
			if _, err := os.Stat(cand); err == nil {
				optPath = cand
			}
		}
		loaded, err := loadOptimizerFile(optPath)
		if err != nil {
			return nil, err
		}
		c.Optimizer = MergeOptimizer(loaded, c.Optimizer)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FANTASY_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("HISTORY_FILE"); v != "" {
		c.Data.HistoryFile = v
	}
	if v := os.Getenv("FANTASY_WEIGHTS_DIR"); v != "" {
		c.Weights.Dir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_RETUNE"); v != "" {
		c.Schedule.RetuneCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.API.Port = port
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.API.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("STATS_API_BASE_URL"); v != "" {
		c.StatsAPI.BaseURL = v
	}
	if v := os.Getenv("OPTIMIZER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Optimizer.Workers = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.Data.StartYear == 0 {
		c.Data.StartYear = 2022
	}
	if c.Weights.Dir == "" {
		c.Weights.Dir = "config"
	}
	if c.Scoring.IsZero() {
		c.Scoring = model.DefaultPointsScheme()
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/tuner.db"
	}
	if c.Schedule.RetuneCron == "" {
		c.Schedule.RetuneCron = "0 0 6 * * *"
	}
	if c.Schedule.BatchPrefix == "" {
		c.Schedule.BatchPrefix = "retune"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if len(c.API.CORSOrigins) == 0 {
		c.API.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.StatsAPI.BaseURL == "" {
		c.StatsAPI.BaseURL = "https://statsapi.mlb.com"
	}
	if c.StatsAPI.Timeout == 0 {
		c.StatsAPI.Timeout = 30 * time.Second
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Data.StartYear < 1900 {
		return fmt.Errorf("data.start_year %d is not a valid season", c.Data.StartYear)
	}
	if c.Data.EndYear != 0 && c.Data.EndYear < c.Data.StartYear {
		return errors.New("data.end_year must be >= data.start_year")
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring config invalid: %w", err)
	}
	if err := c.Optimizer.ToSettings().Validate(); err != nil {
		return fmt.Errorf("optimizer config invalid: %w", err)
	}
	if err := c.Optimizer.ResolvedDefaultBounds().Validate(); err != nil {
		return fmt.Errorf("optimizer.default_bounds invalid: %w", err)
	}
	for name, b := range c.Optimizer.Bounds {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("optimizer.bounds.%s invalid: %w", name, err)
		}
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	return nil
}

// EndYearOrCurrent resolves EndYear 0 to the current calendar year.
func (d DataConfig) EndYearOrCurrent() int {
	if d.EndYear != 0 {
		return d.EndYear
	}
	return time.Now().Year()
}

// RosterPath resolves RosterFile against Dir; "" when unset.
func (d DataConfig) RosterPath() string {
	if d.RosterFile == "" {
		return ""
	}
	if filepath.IsAbs(d.RosterFile) {
		return d.RosterFile
	}
	return filepath.Join(d.Dir, d.RosterFile)
}

// ToSettings overlays configured values on the optimizer defaults.
func (o OptimizerConfig) ToSettings() optimizer.Settings {
	s := optimizer.DefaultSettings()
	if o.PopSize != 0 {
		s.PopSize = o.PopSize
	}
	if o.MaxIter != 0 {
		s.MaxIter = o.MaxIter
	}
	if o.Tol != 0 {
		s.Tol = o.Tol
	}
	if o.Atol != 0 {
		s.Atol = o.Atol
	}
	if o.Seed != 0 {
		s.Seed = o.Seed
	}
	if o.Workers != 0 {
		s.Workers = o.Workers
	}
	if o.Polish != nil {
		s.Polish = *o.Polish
	}
	if o.PolishEvaluations != 0 {
		s.PolishEvaluations = o.PolishEvaluations
	}
	return s
}

func (o OptimizerConfig) ResolvedDefaultBounds() optimizer.Bounds {
	if o.DefaultBounds != nil {
		return *o.DefaultBounds
	}
	return optimizer.DefaultBounds
}

type optimizerFileWrapper struct {
	Optimizer OptimizerConfig `yaml:"optimizer"`
}

func loadOptimizerFile(path string) (OptimizerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return OptimizerConfig{}, fmt.Errorf("read optimizer file: %w", err)
	}
	var w optimizerFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return OptimizerConfig{}, fmt.Errorf("parse optimizer file: %w", err)
	}
	return w.Optimizer, nil
}

// MergeOptimizer overlays non-zero fields from override onto base.
// This is used when loading an optimizer file and then applying overrides
// from the main config or a request.
func MergeOptimizer(base, override OptimizerConfig) OptimizerConfig {
	out := base
	if override.PopSize != 0 {
		out.PopSize = override.PopSize
	}
	if override.MaxIter != 0 {
		out.MaxIter = override.MaxIter
	}
	if override.Tol != 0 {
		out.Tol = override.Tol
	}
	if override.Atol != 0 {
		out.Atol = override.Atol
	}
	if override.Seed != 0 {
		out.Seed = override.Seed
	}
	if override.Workers != 0 {
		out.Workers = override.Workers
	}
	if override.Polish != nil {
		out.Polish = override.Polish
	}
	if override.PolishEvaluations != 0 {
		out.PolishEvaluations = override.PolishEvaluations
	}
	if override.DefaultBounds != nil {
		out.DefaultBounds = override.DefaultBounds
	}
	if len(override.Bounds) > 0 {
		merged := make(map[string]optimizer.Bounds, len(base.Bounds)+len(override.Bounds))
		for k, v := range base.Bounds {
			merged[k] = v
		}
		for k, v := range override.Bounds {
			merged[k] = v
		}
		out.Bounds = merged
	}
	return out
}

// HistoryPath resolves HistoryFile against Dir; "" when unset.
func (d DataConfig) HistoryPath() string {
	if d.HistoryFile == "" || filepath.IsAbs(d.HistoryFile) {
		return d.HistoryFile
	}
	return filepath.Join(d.Dir, d.HistoryFile)
}
