package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/secantlab/internal/secant"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	sc, err := cfg.SecantConfig()
	if err != nil {
		t.Fatalf("secant config: %v", err)
	}
	if sc != secant.DefaultConfig() {
		t.Errorf("expected %+v, got %+v", secant.DefaultConfig(), sc)
	}
	if !cfg.Search.Parallel {
		t.Error("search should be parallel by default")
	}
	if cfg.Search.Points != 30 || cfg.Search.DedupDistance != 0.05 {
		t.Errorf("unexpected search defaults: %+v", cfg.Search)
	}
	if len(cfg.Sensitivity.NoiseLevels) != 5 || cfg.Sensitivity.SamplesPerLevel != 5 {
		t.Errorf("unexpected sensitivity defaults: %+v", cfg.Sensitivity)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secantlab.yaml")
	data := []byte(`
expression: "z^2 + 1"
seed: 9
solver:
  strategy: reset
  max_iterations: 50
search:
  n_points: 12
  region: {x_min: -1, x_max: 1, y_min: -3, y_max: 3}
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Expression != "z^2 + 1" || cfg.Seed != 9 {
		t.Errorf("top-level keys not loaded: %+v", cfg)
	}
	if cfg.Solver.Tolerance != secant.DefaultTolerance {
		t.Errorf("tolerance should keep its default, got %g", cfg.Solver.Tolerance)
	}
	if !cfg.Search.Parallel || cfg.Search.DedupDistance != 0.05 {
		t.Errorf("search defaults lost: %+v", cfg.Search)
	}

	gc := cfg.GridConfig()
	if gc.Points != 12 || gc.Region.YMax != 3 || gc.Seed != 9 {
		t.Errorf("grid config not converted: %+v", gc)
	}
	sc, err := cfg.SecantConfig()
	if err != nil {
		t.Fatal(err)
	}
	if sc.Strategy != secant.StrategyReset || sc.MaxIterations != 50 {
		t.Errorf("solver section not converted: %+v", sc)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := GetPreset("robust")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Solver != cfg.Solver {
		t.Errorf("expected %+v, got %+v", cfg.Solver, got.Solver)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("solver: [1, 2"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty expression", func(c *Config) { c.Expression = "" }},
		{"zero tolerance", func(c *Config) { c.Solver.Tolerance = 0 }},
		{"zero iterations", func(c *Config) { c.Solver.MaxIterations = 0 }},
		{"unknown strategy", func(c *Config) { c.Solver.Strategy = "bisection" }},
		{"inverted region", func(c *Config) { c.Search.Region.XMin = 10 }},
		{"zero points", func(c *Config) { c.Search.Points = 0 }},
		{"too many points", func(c *Config) { c.Search.Points = 1001 }},
		{"zero samples", func(c *Config) { c.Sensitivity.SamplesPerLevel = 0 }},
		{"too many samples", func(c *Config) { c.Sensitivity.SamplesPerLevel = 10001 }},
		{"negative noise", func(c *Config) { c.Sensitivity.NoiseLevels = []float64{-1} }},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: expected ErrInvalid, got %v", tt.name, err)
		}
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("precise")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Solver.Tolerance != 1e-14 {
		t.Errorf("expected tolerance 1e-14, got %g", cfg.Solver.Tolerance)
	}
	if cfg.Expression != DefaultExpression {
		t.Errorf("preset should keep the default expression, got %q", cfg.Expression)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValidate(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}
