package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/san-kum/secantlab/internal/config"
	"github.com/san-kum/secantlab/internal/experiment"
	"github.com/san-kum/secantlab/internal/metrics"
	"github.com/san-kum/secantlab/internal/secant"
	"github.com/san-kum/secantlab/internal/storage"
	"github.com/san-kum/secantlab/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool
	seed       int64
	themeName  string
	jsonOut    bool

	// solver
	expression        string
	tolerance         float64
	maxIterations     int
	strategy          string
	numericDerivative bool
	noStore           bool

	// seeds
	x0, x1     string
	example    string
	pair       int
	pathKind   string
	pathParams map[string]string

	// search
	xMin, xMax, yMin, yMax float64
	points                 int
	dedup                  float64
	sequential             bool
	workers                int

	// sensitivity
	rootArg     string
	noiseLevels []float64
	samples     int

	output  string
	addr    string
	frameMS int
	trials  int
	perturb float64
)

// main registers the secantlab commands and runs the root command. It
// exits with status 1 if the command returns an error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "secantlab",
		Short:         "complex secant root finding lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset solver configuration")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.Int64Var(&seed, "seed", 0, "random seed (0 uses the clock)")
	pf.StringVar(&themeName, "theme", "cyberpunk", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "solve f(z) = 0 from two seed points",
		RunE:  runSolve,
	}
	solverFlags(runCmd)
	seedFlags(runCmd)
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "grid search a region for distinct roots",
		RunE:  runSearch,
	}
	solverFlags(searchCmd)
	searchCmd.Flags().Float64Var(&xMin, "xmin", -2, "region real minimum")
	searchCmd.Flags().Float64Var(&xMax, "xmax", 2, "region real maximum")
	searchCmd.Flags().Float64Var(&yMin, "ymin", -2, "region imaginary minimum")
	searchCmd.Flags().Float64Var(&yMax, "ymax", 2, "region imaginary maximum")
	searchCmd.Flags().IntVar(&points, "points", 30, "grid points per axis")
	searchCmd.Flags().Float64Var(&dedup, "dedup", 0.05, "minimum distance between distinct roots")
	searchCmd.Flags().BoolVar(&sequential, "sequential", false, "run cells one at a time")
	searchCmd.Flags().IntVar(&workers, "workers", secant.DefaultWorkers, "parallel workers")
	searchCmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")

	sensCmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "measure how |f| reacts to noise around a root",
		RunE:  runSensitivity,
	}
	solverFlags(sensCmd)
	sensCmd.Flags().StringVar(&rootArg, "root", "", "root to perturb, e.g. 1+0i")
	sensCmd.Flags().Float64SliceVar(&noiseLevels, "noise", nil, "noise levels")
	sensCmd.Flags().IntVar(&samples, "samples", 5, "samples per noise level")
	sensCmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
	sensCmd.MarkFlagRequired("root")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	reportCmd := &cobra.Command{
		Use:   "report [run_id]",
		Short: "report on a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  reportRun,
	}
	reportCmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run's error trace and trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	watchCmd := &cobra.Command{
		Use:   "watch [run_id]",
		Short: "replay a run iteration by iteration",
		Long:  "Replays a stored run, or solves from the seed flags and replays the result when no id is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  watchRun,
	}
	solverFlags(watchCmd)
	seedFlags(watchCmd)
	watchCmd.Flags().IntVar(&frameMS, "delay", 120, "milliseconds per iteration")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <id>.json, - for stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trace to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <id>.csv, - for stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export run trajectory to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <id>.svg, - for stdout)")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}

	examplesCmd := &cobra.Command{
		Use:   "examples",
		Short: "list example problems and pathological kinds",
		RunE:  listExamples,
	}

	pathCmd := &cobra.Command{
		Use:   "pathological [kind]",
		Short: "generate a pathological test function",
		Args:  cobra.ExactArgs(1),
		RunE:  showPathological,
	}
	pathCmd.Flags().StringToStringVar(&pathParams, "param", nil, "generator parameter, e.g. --param frequency=30")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().BoolVar(&jsonOut, "json", false, "print step results as JSON")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "solve once per anti-cycle strategy from the same seeds",
		RunE:  runSweep,
	}
	solverFlags(sweepCmd)
	seedFlags(sweepCmd)

	mcCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "solve from randomly perturbed seeds",
		RunE:  runMonteCarlo,
	}
	solverFlags(mcCmd)
	seedFlags(mcCmd)
	mcCmd.Flags().IntVar(&trials, "trials", 100, "number of trials")
	mcCmd.Flags().Float64Var(&perturb, "perturbation", 0.1, "maximum seed offset per axis")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the solver over HTTP",
		RunE:  serve,
	}
	solverFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list solver presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				fmt.Printf("  %-10s tol=%g max_iter=%d strategy=%s numeric_derivative=%v\n",
					name, p.Tolerance, p.MaxIterations, p.Strategy, p.NumericDerivative)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, searchCmd, sensCmd, listCmd, reportCmd, plotCmd, watchCmd,
		exportJSONCmd, exportCSVCmd, exportSVGCmd, deleteCmd, examplesCmd, pathCmd, batchCmd, sweepCmd, mcCmd,
		serveCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func solverFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&expression, "expr", "e", config.DefaultExpression, "function of z to solve")
	f.Float64Var(&tolerance, "tol", secant.DefaultTolerance, "convergence tolerance on |f(z)|")
	f.IntVar(&maxIterations, "max-iter", secant.DefaultMaxIterations, "iteration cap")
	f.StringVar(&strategy, "strategy", secant.StrategyPerturbationHybrid.String(), "anti-cycle strategy")
	f.BoolVar(&numericDerivative, "numeric-derivative", false, "fall back to a numeric derivative on singular steps")
	f.BoolVar(&noStore, "no-store", false, "do not persist runs")
	f.StringVar(&pathKind, "pathological", "", "solve a generated pathological function instead of --expr")
	f.StringToStringVar(&pathParams, "param", nil, "pathological generator parameter, e.g. --param terms=20")
}

func seedFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&x0, "x0", "0.5+0.5i", "first seed")
	f.StringVar(&x1, "x1", "1.5+0.1i", "second seed")
	f.StringVar(&example, "example", "", "solve a catalog example with its suggested seeds")
	f.IntVar(&pair, "pair", 0, "index of the example's seed pair")
}

// parsePoint accepts "re+imi" complex literals or "re,im" pairs.
func parsePoint(s string) (secant.Point, error) {
	s = strings.ReplaceAll(s, " ", "")
	if re, im, ok := strings.Cut(s, ","); ok {
		r, err := strconv.ParseFloat(re, 64)
		if err != nil {
			return secant.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
		}
		i, err := strconv.ParseFloat(im, 64)
		if err != nil {
			return secant.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
		}
		return secant.Point{Real: r, Imag: i}, nil
	}
	c, err := strconv.ParseComplex(s, 128)
	if err != nil {
		return secant.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return secant.P(c), nil
}

func parseParams(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

// loadConfig builds the configuration from preset, config file and flags.
// Flags override file values only when set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if preset != "" {
			loaded.Solver = cfg.Solver
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("data") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("expr") {
		cfg.Expression = expression
	}
	if flags.Changed("tol") {
		cfg.Solver.Tolerance = tolerance
	}
	if flags.Changed("max-iter") {
		cfg.Solver.MaxIterations = maxIterations
	}
	if flags.Changed("strategy") {
		cfg.Solver.Strategy = strategy
	}
	if flags.Changed("numeric-derivative") {
		cfg.Solver.NumericDerivative = numericDerivative
	}
	if flags.Changed("xmin") {
		cfg.Search.Region.XMin = xMin
	}
	if flags.Changed("xmax") {
		cfg.Search.Region.XMax = xMax
	}
	if flags.Changed("ymin") {
		cfg.Search.Region.YMin = yMin
	}
	if flags.Changed("ymax") {
		cfg.Search.Region.YMax = yMax
	}
	if flags.Changed("points") {
		cfg.Search.Points = points
	}
	if flags.Changed("dedup") {
		cfg.Search.DedupDistance = dedup
	}
	if flags.Changed("sequential") {
		cfg.Search.Parallel = !sequential
	}
	if flags.Changed("workers") {
		cfg.Search.Workers = workers
	}
	if flags.Changed("noise") {
		cfg.Sensitivity.NoiseLevels = noiseLevels
	}
	if flags.Changed("samples") {
		cfg.Sensitivity.SamplesPerLevel = samples
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app is everything a command needs, built from the configuration.
type app struct {
	cfg       *config.Config
	store     *storage.Store
	solver    *experiment.Solver
	catalog   *experiment.Catalog
	registry  *prometheus.Registry
	collector *metrics.Collector
	theme     viz.Theme
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	sc, err := cfg.SecantConfig()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		catalog:  experiment.NewCatalog(),
		registry: prometheus.NewRegistry(),
		theme:    viz.GetTheme(themeName),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.collector = metrics.NewCollector(a.registry)

	opts := []experiment.Option{
		experiment.WithLogger(slog.Default()),
		experiment.WithSeed(cfg.Seed),
		experiment.WithCollector(a.collector),
	}
	if !noStore {
		if a.store, err = openStore(cfg.DataDir); err != nil {
			return nil, err
		}
		opts = append(opts, experiment.WithStore(a.store))
	}

	if a.solver, err = experiment.NewSolver(sc, opts...); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func openStore(dir string) (*storage.Store, error) {
	st := storage.New(dir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// problem resolves the function to solve: a pathological generator, a
// catalog example, or the configured expression.
func (a *app) problem(cmd *cobra.Command) (experiment.Problem, error) {
	switch {
	case pathKind != "":
		params, err := parseParams(pathParams)
		if err != nil {
			return experiment.Problem{}, err
		}
		pf, err := a.catalog.Pathological(pathKind, params)
		if err != nil {
			return experiment.Problem{}, err
		}
		return experiment.Compile(pf.Expression)
	case example != "":
		return a.catalog.ExampleProblem(example)
	default:
		return experiment.Compile(a.cfg.Expression)
	}
}

// seeds resolves the two starting points from --example/--pair or the
// --x0/--x1 flags.
func (a *app) seeds(cmd *cobra.Command) (experiment.SeedPair, error) {
	if example != "" && !cmd.Flags().Changed("x0") && !cmd.Flags().Changed("x1") {
		ex, err := a.catalog.Example(example)
		if err != nil {
			return experiment.SeedPair{}, err
		}
		if pair < 0 || pair >= len(ex.Seeds) {
			return experiment.SeedPair{}, fmt.Errorf("example %s has %d seed pairs", ex.Name, len(ex.Seeds))
		}
		return ex.Seeds[pair], nil
	}
	p0, err := parsePoint(x0)
	if err != nil {
		return experiment.SeedPair{}, err
	}
	p1, err := parsePoint(x1)
	if err != nil {
		return experiment.SeedPair{}, err
	}
	return experiment.SeedPair{X0: p0, X1: p1}, nil
}
