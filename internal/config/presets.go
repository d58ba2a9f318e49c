package config

import "sort"

// Presets override the solver section of the defaults.
var Presets = map[string]SolverConfig{
	"default": {
		Tolerance: 1e-12, MaxIterations: 200, Strategy: "perturbation_hybrid",
	},
	"precise": {
		Tolerance: 1e-14, MaxIterations: 500, Strategy: "perturbation_hybrid",
	},
	"fast": {
		Tolerance: 1e-8, MaxIterations: 50, Strategy: "perturbation",
	},
	"robust": {
		Tolerance: 1e-12, MaxIterations: 400, Strategy: "adaptive", NumericDerivative: true,
	},
	"restart": {
		Tolerance: 1e-12, MaxIterations: 300, Strategy: "reset",
	},
	"hybrid": {
		Tolerance: 1e-12, MaxIterations: 300, Strategy: "hybrid", NumericDerivative: true,
	},
}

// GetPreset returns the defaults with the named solver preset applied, or
// nil if there is no such preset.
func GetPreset(name string) *Config {
	sc, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Solver = sc
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
