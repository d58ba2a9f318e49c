package viz

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/secantlab/internal/analysis"
	"github.com/san-kum/secantlab/internal/optim"
	"github.com/san-kum/secantlab/internal/secant"
)

func solve(t *testing.T) *secant.RunResult {
	t.Helper()
	f := func(z complex128) complex128 { return z*z - 4 }
	res, err := secant.Run(context.Background(),
		secant.Point{Real: 1, Imag: 0.5}, secant.Point{Real: 3, Imag: 0.1},
		secant.DefaultConfig(), f, secant.WithRand(secant.NewRand(1)), secant.WithID("r1"))
	if err != nil {
		t.Fatal(err)
	}
	analysis.Annotate(res)
	return res
}

func TestLogErrors(t *testing.T) {
	got := LogErrors([]float64{100, 0, 1})
	want := []float64{2, -15, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("index %d: expected %g, got %g", i, want[i], got[i])
		}
	}
}

func TestErrorPlotShortTrace(t *testing.T) {
	if ErrorPlot([]float64{1}, 20, 5) != "" {
		t.Error("expected no plot for a single error")
	}
	if ErrorPlot([]float64{1, 1e-3, 1e-9}, 20, 5) == "" {
		t.Error("expected a plot")
	}
}

func TestRenderRun(t *testing.T) {
	res := solve(t)
	out := RenderRun("z^2 - 4", res, ThemeMinimal)

	for _, want := range []string{"RUN r1", "CONVERGED", "z^2 - 4", "log10"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRenderSearchAndScan(t *testing.T) {
	res := &optim.GridResult{
		Roots:     []secant.RootRecord{{Root: secant.Point{Real: 2}, Hits: 3}},
		Processed: 4,
		Converged: 3,
		Elapsed:   time.Millisecond,
	}
	out := RenderSearch(res, optim.DefaultRegion(), ThemeRetroGreen)
	if !strings.Contains(out, "Unique roots") {
		t.Error("search output missing summary")
	}
	if !strings.Contains(out, "75%") {
		t.Errorf("expected converged share, got %s", out)
	}

	f := func(z complex128) complex128 { return z - 1 }
	scan, err := analysis.Sensitivity(f, secant.Point{Real: 1}, nil, 3, secant.NewRand(2))
	if err != nil {
		t.Fatal(err)
	}
	if out := RenderScan(scan, ThemeCyberpunk); !strings.Contains(out, scan.Stability) {
		t.Error("scan output missing stability class")
	}
}

func TestRenderRootsEmpty(t *testing.T) {
	if !strings.Contains(RenderRoots(nil, ThemeMinimal), "no roots") {
		t.Error("expected placeholder")
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("retro").Name != "retro" || GetTheme("nope").Name != "cyberpunk" {
		t.Error("GetTheme lookup broken")
	}
	th := ThemeCyberpunk
	for range Themes {
		th = th.Next()
	}
	if th.Name != ThemeCyberpunk.Name {
		t.Errorf("Next should cycle back, got %s", th.Name)
	}
}

func TestWatchModel(t *testing.T) {
	res := solve(t)
	total := len(res.Trace.Trajectory)
	m := NewModel("z^2 - 4", res, ThemeMinimal, time.Millisecond)

	if m.Head() != 2 || !m.Running() {
		t.Fatalf("expected to start playing at the seeds, head=%d", m.Head())
	}

	next, _ := m.Update(TickMsg(time.Now()))
	m = next.(Model)
	if m.Head() != 3 {
		t.Errorf("tick should advance, head=%d", m.Head())
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("[")})
	m = next.(Model)
	if m.Head() != 2 || m.Running() {
		t.Errorf("scrub should step back and pause, head=%d", m.Head())
	}

	for i := 0; i < total+5; i++ {
		next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("]")})
		m = next.(Model)
	}
	if m.Head() != total {
		t.Errorf("scrub should clamp at %d, got %d", total, m.Head())
	}
	if !strings.Contains(m.View(), "END") {
		t.Error("expected END status")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = next.(Model)
	if m.Head() != 2 || !m.Running() {
		t.Error("restart should rewind and play")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("quit should return a command")
	}
}

func TestWatchStopsAtEnd(t *testing.T) {
	res := solve(t)
	m := NewModel("z^2 - 4", res, ThemeMinimal, 0)
	for i := 0; i < len(res.Trace.Trajectory)+3; i++ {
		next, _ := m.Update(TickMsg(time.Now()))
		m = next.(Model)
	}
	if m.Running() || m.Head() != len(res.Trace.Trajectory) {
		t.Errorf("expected stop at end, head=%d running=%v", m.Head(), m.Running())
	}
}
