package metrics

import (
	"sync"
	"time"

	"github.com/san-kum/secantlab/internal/secant"
)

// Summary is a point-in-time copy of the run statistics.
type Summary struct {
	TotalRuns     int           `json:"total_runs"`
	ConvergedRuns int           `json:"converged_runs"`
	MeanElapsed   time.Duration `json:"mean_elapsed"`
	TotalCycles   int           `json:"total_cycles"`
}

// SuccessRate is the share of converged runs, 0 before any run.
func (s Summary) SuccessRate() float64 {
	if s.TotalRuns == 0 {
		return 0
	}
	return float64(s.ConvergedRuns) / float64(s.TotalRuns)
}

// Stats accumulates solver statistics. It is safe for concurrent use.
type Stats struct {
	mu        sync.Mutex
	total     int
	converged int
	cycles    int
	elapsed   time.Duration
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) Observe(res *secant.RunResult) {
	if res == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if res.Converged {
		s.converged++
	}
	s.cycles += res.Cycles
	s.elapsed += res.Elapsed
}

func (s *Stats) Value() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Summary{
		TotalRuns:     s.total,
		ConvergedRuns: s.converged,
		TotalCycles:   s.cycles,
	}
	if s.total > 0 {
		out.MeanElapsed = s.elapsed / time.Duration(s.total)
	}
	return out
}

func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total, s.converged, s.cycles, s.elapsed = 0, 0, 0, 0
}
