package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/secantlab/internal/secant"
)

const (
	watchCanvasWidth  = 48
	watchCanvasHeight = 16
	DefaultFrameDelay = 120 * time.Millisecond
)

type TickMsg time.Time

// Model replays the trace of a finished run one iteration per tick.
type Model struct {
	expression string
	res        *secant.RunResult
	plane      *Plane
	theme      Theme
	delay      time.Duration
	head       int
	running    bool
	showHelp   bool
}

// NewModel starts the replay playing from the two seeds.
func NewModel(expression string, res *secant.RunResult, theme Theme, delay time.Duration) Model {
	if delay <= 0 {
		delay = DefaultFrameDelay
	}
	return Model{
		expression: expression,
		res:        res,
		plane:      FitPlane(watchCanvasWidth, watchCanvasHeight, res.Trace.Trajectory, TrajectoryLimit),
		theme:      theme,
		delay:      delay,
		head:       min(2, len(res.Trace.Trajectory)),
		running:    true,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.delay, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Head is the number of trajectory points currently shown.
func (m Model) Head() int { return m.head }

func (m Model) Running() bool { return m.running }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
			if m.running && m.done() {
				m.head = min(2, m.total())
			}
		case "r":
			m.head = min(2, m.total())
			m.running = true
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "home":
			m.running = false
			m.head = min(2, m.total())
		case "end":
			m.running = false
			m.head = m.total()
		case "t":
			m.theme = m.theme.Next()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.head++
			if m.head >= m.total() {
				m.head = m.total()
				m.running = false
			}
		}
		return m, m.tick()
	}
	return m, nil
}

func (m Model) total() int { return len(m.res.Trace.Trajectory) }

func (m Model) done() bool { return m.head >= m.total() }

// scrub pauses playback and moves the playhead by dir iterations.
func (m *Model) scrub(dir int) {
	m.running = false
	m.head += dir
	if m.head < 1 {
		m.head = 1
	}
	if m.head > m.total() {
		m.head = m.total()
	}
}

func (m Model) View() string {
	t := m.theme
	m.plane.Clear()
	m.plane.Axes()
	m.plane.DrawTrajectory(m.res.Trace.Trajectory, m.head)
	canvas := t.graph().Render(m.plane.String())

	status := "PLAYING"
	switch {
	case m.done():
		status = "END"
	case !m.running:
		status = "PAUSED"
	}

	var s strings.Builder
	s.WriteString(HeaderStyle.Render(m.expression) + "\n")
	s.WriteString(t.title().Render(status) + "\n\n")

	iter := max(m.head-2, 0)
	s.WriteString(row(t, "Iteration", fmt.Sprintf("%d / %d", iter, m.res.Iterations)))
	if m.head > 0 {
		s.WriteString(row(t, "z", m.res.Trace.Trajectory[m.head-1].String()))
		s.WriteString(row(t, "|f(z)|", fmt.Sprintf("%.3e", m.res.Trace.Errors[m.head-1])))
	}
	s.WriteString(row(t, "Progress", ProgressBar(float64(m.head)/float64(max(m.total(), 1)), 20)))
	if plot := ErrorPlot(m.res.Trace.Errors[:m.head], 30, 6); plot != "" {
		s.WriteString("\n" + t.graph().Render(plot) + "\n")
	}
	if m.done() {
		s.WriteString("\n" + statusText(t, m.res.Converged) + "\n")
	}
	s.WriteString("\n" + KeyHint.Render("SP:Pause R:Restart Q:Quit\n[ ]:Step  T:Theme  ?:Help"))

	view := JoinColumns(Panel.Render(canvas), Panel.Render(s.String()))
	if m.showHelp {
		return Panel.Render(strings.Join([]string{
			"Space  pause or resume",
			"R      restart",
			"[ ]    step back or forward",
			"Home   first iteration",
			"End    last iteration",
			"T      cycle themes",
			"Q      quit",
		}, "\n")) + "\n" + view
	}
	return view
}

// Watch runs the replay until the user quits.
func Watch(expression string, res *secant.RunResult, theme Theme, delay time.Duration) error {
	_, err := tea.NewProgram(NewModel(expression, res, theme, delay), tea.WithAltScreen()).Run()
	return err
}
