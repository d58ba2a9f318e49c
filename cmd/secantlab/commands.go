package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/secantlab/internal/api"
	"github.com/san-kum/secantlab/internal/automation"
	"github.com/san-kum/secantlab/internal/experiment"
	"github.com/san-kum/secantlab/internal/storage"
	"github.com/san-kum/secantlab/internal/viz"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func storeFor(cmd *cobra.Command) (*storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openStore(cfg.DataDir)
}

func runSolve(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.problem(cmd)
	if err != nil {
		return err
	}
	seeds, err := a.seeds(cmd)
	if err != nil {
		return err
	}

	slog.Debug("solving", "expression", p.Expression, "x0", seeds.X0.String(), "x1", seeds.X1.String())
	res, err := a.solver.Execute(cmd.Context(), p, seeds.X0, seeds.X1)
	if err != nil {
		return err
	}
	rep, err := a.solver.Report(cmd.Context(), res.ID)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(rep)
	}
	fmt.Println(viz.RenderReport(rep, a.theme))
	if a.store != nil {
		fmt.Printf("run id: %s\n", res.ID)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.problem(cmd)
	if err != nil {
		return err
	}
	g := a.cfg.GridConfig()
	res, err := a.solver.Search(cmd.Context(), p, g)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(res)
	}
	fmt.Println(viz.RenderSearch(res, g.Region, a.theme))
	return nil
}

func runSensitivity(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.problem(cmd)
	if err != nil {
		return err
	}
	root, err := parsePoint(rootArg)
	if err != nil {
		return err
	}
	scan, err := a.solver.Sensitivity(p, root, a.cfg.Sensitivity.NoiseLevels, a.cfg.Sensitivity.SamplesPerLevel)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(scan)
	}
	fmt.Println(viz.RenderScan(scan, a.theme))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := storeFor(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXPRESSION\tTIME\tSTRATEGY\tCONVERGED\tITERS\tERROR\tROOT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%d\t%.2e\t%s\n",
			run.ID,
			run.Expression,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Strategy,
			run.Converged,
			run.Iterations,
			run.FinalError,
			run.Root.String(),
		)
	}
	return w.Flush()
}

func reportRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	rep, err := a.solver.Report(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(rep)
	}
	fmt.Println(viz.RenderReport(rep, a.theme))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st, err := storeFor(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	res := run.Result
	fmt.Printf("%s  (%s)\n\n", run.Expression, res.Config.Strategy)
	if plot := viz.ErrorPlot(res.Trace.Errors, 80, 10); plot != "" {
		fmt.Println(plot)
		fmt.Println()
	}
	traj := res.Trace.Trajectory
	fmt.Print(viz.TrajectoryPlot(traj, len(traj), 60, 20))
	fmt.Printf("\nroot %s after %d iterations, |f| = %.3e\n", res.Root, res.Iterations, res.FinalError)
	return nil
}

func watchRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	delay := time.Duration(frameMS) * time.Millisecond
	if len(args) == 1 {
		if a.store == nil {
			return fmt.Errorf("cannot replay %s with --no-store", args[0])
		}
		run, err := a.store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return viz.Watch(run.Expression, run.Result, a.theme, delay)
	}

	p, err := a.problem(cmd)
	if err != nil {
		return err
	}
	seeds, err := a.seeds(cmd)
	if err != nil {
		return err
	}
	res, err := a.solver.Execute(cmd.Context(), p, seeds.X0, seeds.X1)
	if err != nil {
		return err
	}
	return viz.Watch(p.Expression, res, a.theme, delay)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st, err := storeFor(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	path := output
	if path == "" {
		path = run.ID + ".json"
	}
	if err := storage.ExportJSONFile(path, run); err != nil {
		return err
	}
	if path != "-" {
		fmt.Printf("exported to %s\n", path)
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st, err := storeFor(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	path := output
	if path == "" {
		path = run.ID + ".csv"
	}
	if err := storage.ExportCSVFile(path, run); err != nil {
		return err
	}
	if path != "-" {
		fmt.Printf("exported %d iterations to %s\n", len(run.Result.Trace.Errors), path)
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st, err := storeFor(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	path := output
	if path == "" {
		path = run.ID + ".svg"
	}
	if err := viz.WriteSVGFile(path, run.Result, 800, 600, viz.GetTheme(themeName)); err != nil {
		return err
	}
	if path != "-" {
		fmt.Printf("exported to %s\n", path)
	}
	return nil
}

func deleteRun(cmd *cobra.Command, args []string) error {
	st, err := storeFor(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func listExamples(cmd *cobra.Command, args []string) error {
	catalog := experiment.NewCatalog()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEXPRESSION\tDIFFICULTY\tSEEDS")
	for _, ex := range catalog.Examples() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", ex.Name, ex.Expression, ex.Difficulty, len(ex.Seeds))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\npathological kinds: %v\n", catalog.Kinds())
	return nil
}

func showPathological(cmd *cobra.Command, args []string) error {
	params, err := parseParams(pathParams)
	if err != nil {
		return err
	}
	pf, err := experiment.NewCatalog().Pathological(args[0], params)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", pf.Kind, pf.Description)
	fmt.Printf("expression: %s\n\n", pf.Expression)
	keys := make([]string, 0, len(pf.Params))
	for k := range pf.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-12s %g\n", k, pf.Params[k])
	}
	keys = keys[:0]
	for k := range pf.Characteristics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-12s %v\n", k, pf.Characteristics[k])
	}
	return nil
}

func (a *app) env() *automation.Env {
	return &automation.Env{
		Solver:          a.solver,
		Catalog:         a.catalog,
		Grid:            a.cfg.GridConfig(),
		NoiseLevels:     a.cfg.Sensitivity.NoiseLevels,
		SamplesPerLevel: a.cfg.Sensitivity.SamplesPerLevel,
		Logger:          slog.Default(),
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	results, runErr := automation.RunScenario(cmd.Context(), sc, a.env())
	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
		return runErr
	}

	fmt.Printf("scenario %s: %d/%d steps\n\n", sc.Name, len(results), len(sc.Steps))
	for _, r := range results {
		switch {
		case r.Run != nil:
			fmt.Printf("  %2d %-11s %-24s converged=%v root=%s\n", r.Index, r.Kind, r.Expression, r.Run.Converged, r.Run.Root)
		case r.Search != nil:
			fmt.Printf("  %2d %-11s %-24s roots=%d converged=%d/%d\n", r.Index, r.Kind, r.Expression, len(r.Search.Roots), r.Search.Converged, r.Search.Processed)
		case r.Scan != nil:
			fmt.Printf("  %2d %-11s %-24s stability=%s global=%.3e\n", r.Index, r.Kind, r.Expression, r.Scan.Stability, r.Scan.Global)
		}
	}
	fmt.Println()
	fmt.Println(viz.RenderStats(a.solver.Statistics(), a.theme))
	return runErr
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.problem(cmd)
	if err != nil {
		return err
	}
	seeds, err := a.seeds(cmd)
	if err != nil {
		return err
	}
	results, err := automation.RunSweep(cmd.Context(), a.env(), p, seeds)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tCONVERGED\tITERS\tCYCLES\tERROR\tTYPE\tROOT")
	for _, r := range results {
		res := r.Result
		fmt.Fprintf(w, "%s\t%v\t%d\t%d\t%.2e\t%s\t%s\n",
			r.Strategy, res.Converged, res.Iterations, res.Cycles, res.FinalError, res.ConvergenceType, res.Root)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.problem(cmd)
	if err != nil {
		return err
	}
	seeds, err := a.seeds(cmd)
	if err != nil {
		return err
	}
	results, err := automation.RunMonteCarlo(cmd.Context(), a.env(), p, &automation.MonteCarloConfig{
		Base:         seeds,
		Perturbation: perturb,
		NumTrials:    trials,
		Seed:         a.cfg.Seed,
	})
	if err != nil {
		return err
	}

	converged, failed := automation.MonteCarloStats(results)
	fmt.Printf("trials: %d  converged: %d  failed: %d\n\n", len(results), converged, failed)
	fmt.Println(viz.RenderStats(a.solver.Statistics(), a.theme))
	return nil
}

func serve(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	opts := []api.Option{
		api.WithLogger(slog.Default()),
		api.WithGatherer(a.registry),
		api.WithGrid(a.cfg.GridConfig()),
	}
	if p, err := a.problem(cmd); err == nil {
		opts = append(opts, api.WithProblem(p))
	} else {
		slog.Warn("starting without a configured function", "err", err)
	}
	return api.NewServer(a.solver, a.catalog, opts...).ListenAndServe(cmd.Context(), a.cfg.Server.Addr)
}
