package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/secantlab/internal/analysis"
	"github.com/san-kum/secantlab/internal/experiment"
	"github.com/san-kum/secantlab/internal/optim"
	"github.com/san-kum/secantlab/internal/secant"
)

var ErrInvalidStep = errors.New("automation: invalid step")

// Scenario is a scripted sequence of runs, searches and scans.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep names a function (an expression or a pathological kind)
// and exactly one action: seeds for a single run, region for a grid
// search, or root for a sensitivity scan.
type ScenarioStep struct {
	Expression   string             `yaml:"expression"`
	Pathological string             `yaml:"pathological"`
	Params       map[string]float64 `yaml:"params"`
	Solver       Overrides          `yaml:"solver"`

	Seeds *experiment.SeedPair `yaml:"seeds"`

	Region        *optim.Region `yaml:"region"`
	Points        int           `yaml:"n_points"`
	DedupDistance float64       `yaml:"dedup_distance"`

	Root            *secant.Point `yaml:"root"`
	NoiseLevels     []float64     `yaml:"noise_levels"`
	SamplesPerLevel int           `yaml:"samples_per_level"`
}

// Overrides replace individual solver settings for one step.
type Overrides struct {
	Tolerance         *float64 `yaml:"tolerance"`
	MaxIterations     *int     `yaml:"max_iterations"`
	Strategy          *string  `yaml:"strategy"`
	NumericDerivative *bool    `yaml:"use_numeric_derivative"`
}

func (o Overrides) Apply(cfg secant.Config) (secant.Config, error) {
	if o.Tolerance != nil {
		cfg.Tolerance = *o.Tolerance
	}
	if o.MaxIterations != nil {
		cfg.MaxIterations = *o.MaxIterations
	}
	if o.Strategy != nil {
		s, err := secant.ParseStrategy(*o.Strategy)
		if err != nil {
			return cfg, err
		}
		cfg.Strategy = s
	}
	if o.NumericDerivative != nil {
		cfg.NumericDerivative = *o.NumericDerivative
	}
	return cfg, cfg.Validate()
}

// Step kinds.
const (
	KindRun         = "run"
	KindSearch      = "search"
	KindSensitivity = "sensitivity"
)

func (s ScenarioStep) Kind() (string, error) {
	var kinds []string
	if s.Seeds != nil {
		kinds = append(kinds, KindRun)
	}
	if s.Region != nil {
		kinds = append(kinds, KindSearch)
	}
	if s.Root != nil {
		kinds = append(kinds, KindSensitivity)
	}
	if len(kinds) != 1 {
		return "", fmt.Errorf("%w: need exactly one of seeds, region or root, got %v", ErrInvalidStep, kinds)
	}
	return kinds[0], nil
}

type StepResult struct {
	Index      int                       `json:"index"`
	Kind       string                    `json:"kind"`
	Expression string                    `json:"expression"`
	Run        *secant.RunResult         `json:"run,omitempty"`
	Search     *optim.GridResult         `json:"search,omitempty"`
	Scan       *analysis.SensitivityScan `json:"scan,omitempty"`
	Elapsed    time.Duration             `json:"elapsed"`
}

// Env is what scenario steps run against.
type Env struct {
	Solver  *experiment.Solver
	Catalog *experiment.Catalog
	// Grid supplies the defaults for search steps.
	Grid            optim.GridConfig
	NoiseLevels     []float64
	SamplesPerLevel int
	Logger          *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no steps", ErrInvalidStep, scenario.Name)
	}
	for i, step := range scenario.Steps {
		if _, err := step.Kind(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &scenario, nil
}

// RunScenario executes all steps in order and stops at the first failing
// step, returning the results gathered so far. The solver configuration
// is restored afterwards.
func RunScenario(ctx context.Context, scenario *Scenario, env *Env) ([]StepResult, error) {
	log := env.logger()
	base := env.Solver.Config()
	defer env.Solver.Configure(base)

	results := make([]StepResult, 0, len(scenario.Steps))
	for i, step := range scenario.Steps {
		res, err := runStep(ctx, step, base, env)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		res.Index = i + 1
		log.Info("scenario step finished",
			"scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps),
			"kind", res.Kind, "expression", res.Expression)
		results = append(results, res)
	}
	return results, nil
}

func runStep(ctx context.Context, step ScenarioStep, base secant.Config, env *Env) (StepResult, error) {
	kind, err := step.Kind()
	if err != nil {
		return StepResult{}, err
	}
	p, err := resolve(step, env.Catalog)
	if err != nil {
		return StepResult{}, err
	}
	cfg, err := step.Solver.Apply(base)
	if err != nil {
		return StepResult{}, err
	}
	if err := env.Solver.Configure(cfg); err != nil {
		return StepResult{}, err
	}

	start := time.Now()
	out := StepResult{Kind: kind, Expression: p.Expression}
	switch kind {
	case KindRun:
		out.Run, err = env.Solver.Execute(ctx, p, step.Seeds.X0, step.Seeds.X1)
	case KindSearch:
		g := env.Grid
		g.Region = *step.Region
		if step.Points > 0 {
			g.Points = step.Points
		}
		if step.DedupDistance > 0 {
			g.DedupDistance = step.DedupDistance
		}
		out.Search, err = env.Solver.Search(ctx, p, g)
	case KindSensitivity:
		levels, samples := env.NoiseLevels, env.SamplesPerLevel
		if len(step.NoiseLevels) > 0 {
			levels = step.NoiseLevels
		}
		if step.SamplesPerLevel > 0 {
			samples = step.SamplesPerLevel
		}
		if samples <= 0 {
			samples = analysis.DefaultSamplesPerLevel
		}
		out.Scan, err = env.Solver.Sensitivity(p, *step.Root, levels, samples)
	}
	out.Elapsed = time.Since(start)
	return out, err
}

func resolve(step ScenarioStep, catalog *experiment.Catalog) (experiment.Problem, error) {
	switch {
	case step.Expression != "" && step.Pathological != "":
		return experiment.Problem{}, fmt.Errorf("%w: both expression and pathological set", ErrInvalidStep)
	case step.Pathological != "":
		if catalog == nil {
			catalog = experiment.NewCatalog()
		}
		pf, err := catalog.Pathological(step.Pathological, step.Params)
		if err != nil {
			return experiment.Problem{}, err
		}
		return experiment.Compile(pf.Expression)
	case step.Expression != "":
		return experiment.Compile(step.Expression)
	default:
		return experiment.Problem{}, fmt.Errorf("%w: no expression", ErrInvalidStep)
	}
}
