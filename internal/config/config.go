package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/secantlab/internal/analysis"
	"github.com/san-kum/secantlab/internal/optim"
	"github.com/san-kum/secantlab/internal/secant"
)

const (
	DefaultExpression = "z^3 - 1"
	DefaultDataDir    = "runs"
	DefaultAddr       = ":8080"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Expression  string            `yaml:"expression"`
	Seed        int64             `yaml:"seed"`
	DataDir     string            `yaml:"data_dir"`
	Solver      SolverConfig      `yaml:"solver"`
	Search      SearchConfig      `yaml:"search"`
	Sensitivity SensitivityConfig `yaml:"sensitivity"`
	Server      ServerConfig      `yaml:"server"`
}

type SolverConfig struct {
	Tolerance         float64 `yaml:"tolerance"`
	MaxIterations     int     `yaml:"max_iterations"`
	Strategy          string  `yaml:"strategy"`
	NumericDerivative bool    `yaml:"use_numeric_derivative"`
}

type SearchConfig struct {
	Region        optim.Region `yaml:"region"`
	Points        int          `yaml:"n_points"`
	DedupDistance float64      `yaml:"dedup_distance"`
	Parallel      bool         `yaml:"parallel"`
	Workers       int          `yaml:"workers"`
}

type SensitivityConfig struct {
	NoiseLevels     []float64 `yaml:"noise_levels"`
	SamplesPerLevel int       `yaml:"samples_per_level"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Expression: DefaultExpression,
		DataDir:    DefaultDataDir,
		Solver: SolverConfig{
			Tolerance:     secant.DefaultTolerance,
			MaxIterations: secant.DefaultMaxIterations,
			Strategy:      secant.StrategyPerturbationHybrid.String(),
		},
		Search: SearchConfig{
			Region:        optim.DefaultRegion(),
			Points:        optim.DefaultGridPoints,
			DedupDistance: optim.DefaultDedupDistance,
			Parallel:      true,
			Workers:       secant.DefaultWorkers,
		},
		Sensitivity: SensitivityConfig{
			NoiseLevels:     append([]float64(nil), analysis.DefaultNoiseLevels...),
			SamplesPerLevel: analysis.DefaultSamplesPerLevel,
		},
		Server: ServerConfig{Addr: DefaultAddr},
	}
}

// Load reads a YAML file over the defaults; keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SecantConfig converts the solver section.
func (c *Config) SecantConfig() (secant.Config, error) {
	strategy, err := secant.ParseStrategy(c.Solver.Strategy)
	if err != nil {
		return secant.Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	sc := secant.Config{
		Tolerance:         c.Solver.Tolerance,
		MaxIterations:     c.Solver.MaxIterations,
		Strategy:          strategy,
		NumericDerivative: c.Solver.NumericDerivative,
	}
	if err := sc.Validate(); err != nil {
		return secant.Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return sc, nil
}

// GridConfig converts the search section, seeded from the top-level seed.
func (c *Config) GridConfig() optim.GridConfig {
	return optim.GridConfig{
		Region:        c.Search.Region,
		Points:        c.Search.Points,
		DedupDistance: c.Search.DedupDistance,
		Parallel:      c.Search.Parallel,
		Workers:       c.Search.Workers,
		Seed:          c.Seed,
	}
}

func (c *Config) Validate() error {
	if c.Expression == "" {
		return fmt.Errorf("%w: expression is empty", ErrInvalid)
	}
	if _, err := c.SecantConfig(); err != nil {
		return err
	}
	if err := c.GridConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if n := c.Sensitivity.SamplesPerLevel; n <= 0 || n > analysis.MaxSamplesPerLevel {
		return fmt.Errorf("%w: samples_per_level must be in [1, %d]", ErrInvalid, analysis.MaxSamplesPerLevel)
	}
	for _, l := range c.Sensitivity.NoiseLevels {
		if !(l >= 0) {
			return fmt.Errorf("%w: noise level %g", ErrInvalid, l)
		}
	}
	return nil
}
