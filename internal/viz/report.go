package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/secantlab/internal/analysis"
	"github.com/san-kum/secantlab/internal/experiment"
	"github.com/san-kum/secantlab/internal/optim"
	"github.com/san-kum/secantlab/internal/secant"
)

const (
	plotWidth   = 60
	plotHeight  = 10
	planeWidth  = 40
	planeHeight = 12
)

// LogErrors maps an error trace to log10 scale.
func LogErrors(errs []float64) []float64 {
	out := make([]float64, len(errs))
	for i, e := range errs {
		out[i] = math.Log10(math.Max(e, secant.ErrorFloor))
	}
	return out
}

// ErrorPlot charts the log10 error trace. Traces shorter than two points
// render as an empty string.
func ErrorPlot(errs []float64, width, height int) string {
	if len(errs) < 2 {
		return ""
	}
	return asciigraph.Plot(LogErrors(errs),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("log10 |f(z)| per iteration"),
	)
}

// TrajectoryPlot draws the first n points of the trajectory on a fitted
// complex plane, axes included.
func TrajectoryPlot(traj []secant.Point, n, width, height int) string {
	pl := FitPlane(width, height, traj, TrajectoryLimit)
	pl.Axes()
	pl.DrawTrajectory(traj, n)
	return pl.String()
}

func row(t Theme, label, value string) string {
	return t.label().Render(label) + t.value().Render(value) + "\n"
}

func statusText(t Theme, converged bool) string {
	if converged {
		return t.status(true).Render("CONVERGED")
	}
	return t.status(false).Render("NOT CONVERGED")
}

// RenderReport renders a run report: summary, convergence analysis, error
// chart, trajectory and recommendations.
func RenderReport(rep *experiment.Report, t Theme) string {
	res := rep.Result
	var b strings.Builder

	b.WriteString(t.title().Render("RUN "+rep.RunID) + "  " + statusText(t, res.Converged) + "\n\n")
	b.WriteString(row(t, "Expression", rep.Expression))
	b.WriteString(row(t, "Strategy", res.Config.Strategy.String()))
	b.WriteString(row(t, "Root", res.Root.String()))
	b.WriteString(row(t, "Iterations", fmt.Sprintf("%d / %d", res.Iterations, res.Config.MaxIterations)))
	b.WriteString(row(t, "Final error", fmt.Sprintf("%.3e", res.FinalError)))
	b.WriteString(row(t, "Relative", fmt.Sprintf("%.3e", res.FinalRelativeError)))
	b.WriteString(row(t, "Cycle resets", fmt.Sprintf("%d", res.Cycles)))
	b.WriteString(row(t, "Elapsed", res.Elapsed.String()))
	b.WriteString("\n")

	conv := rep.Convergence
	b.WriteString(row(t, "Convergence", conv.Type))
	b.WriteString(row(t, "Order", fmt.Sprintf("%.3f", conv.Order)))
	b.WriteString(row(t, "Mean ratio", fmt.Sprintf("%.3f", conv.Ratio)))
	b.WriteString(row(t, "Reversals", fmt.Sprintf("%d", conv.Reversals)))

	if plot := ErrorPlot(res.Trace.Errors, plotWidth, plotHeight); plot != "" {
		b.WriteString("\n" + t.graph().Render(plot) + "\n")
	}

	traj := res.Trace.Trajectory
	b.WriteString("\n" + t.graph().Render(TrajectoryPlot(traj, len(traj), planeWidth, planeHeight)))

	if len(rep.Recommendations) > 0 {
		b.WriteString("\n" + Separator(planeWidth) + "\n")
		b.WriteString(t.title().Render("RECOMMENDATIONS") + "\n")
		for _, r := range rep.Recommendations {
			b.WriteString("  • " + r + "\n")
		}
	}
	return Panel.Render(b.String())
}

// RenderRun renders a result without stored context, analysing it on
// the spot.
func RenderRun(expression string, res *secant.RunResult, t Theme) string {
	conv := analysis.Analyze(res.Trace.Errors, res.Trace.Trajectory)
	return RenderReport(&experiment.Report{
		RunID:           res.ID,
		Expression:      expression,
		Result:          res,
		Convergence:     conv,
		Recommendations: analysis.Recommend(res),
	}, t)
}

// RenderRoots lists distinct roots as a table.
func RenderRoots(roots []secant.RootRecord, t Theme) string {
	if len(roots) == 0 {
		return Subtle.Render("no roots found") + "\n"
	}
	var b strings.Builder
	b.WriteString(t.label().Render("#") + fmt.Sprintf("%-36s %6s %12s %6s\n", "root", "hits", "error", "iters"))
	for i, r := range roots {
		b.WriteString(t.label().Render(fmt.Sprintf("%d", i+1)) +
			t.value().Render(fmt.Sprintf("%-36s %6d %12.3e %6d", r.Root.String(), r.Hits, r.Error, r.Iterations)) + "\n")
	}
	return b.String()
}

// RenderSearch summarises a grid search with a plot of the roots found.
func RenderSearch(res *optim.GridResult, region optim.Region, t Theme) string {
	var b strings.Builder
	b.WriteString(t.title().Render("GRID SEARCH") + "\n\n")
	b.WriteString(row(t, "Processed", fmt.Sprintf("%d", res.Processed)))
	rate := 0.0
	if res.Processed > 0 {
		rate = float64(res.Converged) / float64(res.Processed)
	}
	b.WriteString(row(t, "Converged", fmt.Sprintf("%d  %s %.0f%%", res.Converged, ProgressBar(rate, 20), rate*100)))
	b.WriteString(row(t, "Unique roots", fmt.Sprintf("%d", len(res.Roots))))
	b.WriteString(row(t, "Elapsed", res.Elapsed.String()))
	b.WriteString("\n" + RenderRoots(res.Roots, t))

	pl := NewPlane(planeWidth, planeHeight, region.XMin, region.XMax, region.YMin, region.YMax)
	pl.Axes()
	for _, r := range res.Roots {
		pl.Marker(r.Root)
	}
	b.WriteString("\n" + t.graph().Render(pl.String()))
	return Panel.Render(b.String())
}

// RenderScan renders a sensitivity scan, one row per noise level.
func RenderScan(scan *analysis.SensitivityScan, t Theme) string {
	var b strings.Builder
	b.WriteString(t.title().Render("SENSITIVITY "+scan.Root.String()) + "\n\n")
	b.WriteString(row(t, "|f(root)|", fmt.Sprintf("%.3e", scan.Value)))
	b.WriteString(row(t, "Global", fmt.Sprintf("%.3e", scan.Global)))
	b.WriteString(row(t, "Stability", scan.Stability))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%-10s %12s %12s %12s %12s\n", "noise", "mean", "stddev", "min", "max"))
	means := make([]float64, len(scan.Levels))
	for i, l := range scan.Levels {
		b.WriteString(t.value().Render(fmt.Sprintf("%-10.0e %12.3e %12.3e %12.3e %12.3e", l.Noise, l.Mean, l.StdDev, l.Min, l.Max)) + "\n")
		means[i] = l.Mean
	}
	b.WriteString("\n" + row(t, "Trend", SparklineChart(means, len(means))))
	return Panel.Render(b.String())
}

// RenderStats renders the solver's accumulated statistics.
func RenderStats(st experiment.Statistics, t Theme) string {
	var b strings.Builder
	b.WriteString(t.title().Render("STATISTICS") + "\n\n")
	b.WriteString(row(t, "Runs", fmt.Sprintf("%d", st.TotalRuns)))
	b.WriteString(row(t, "Converged", fmt.Sprintf("%d", st.ConvergedRuns)))
	b.WriteString(row(t, "Success", ProgressBar(st.SuccessRate(), 20)+fmt.Sprintf(" %.1f%%", st.SuccessRate()*100)))
	b.WriteString(row(t, "Mean time", st.MeanElapsed.String()))
	b.WriteString(row(t, "Cycle resets", fmt.Sprintf("%d", st.TotalCycles)))
	b.WriteString(row(t, "History", fmt.Sprintf("%d", st.HistoryCount)))
	b.WriteString("\n" + RenderRoots(st.Roots, t))
	return Panel.Render(b.String())
}

// JoinColumns lays rendered blocks side by side.
func JoinColumns(blocks ...string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, blocks...)
}
