package secant

import (
	"sync"
	"time"
)

// RootRecord is one distinct root seen by a Registry.
type RootRecord struct {
	Root       Point     `json:"root"`
	Hits       int       `json:"hits"`
	Discovered time.Time `json:"discovered"`
	Error      float64   `json:"error"`
	Iterations int       `json:"iterations"`
	Cycles     int       `json:"cycles"`
}

// Registry deduplicates roots by distance. The threshold is chosen per
// merge so the same registry can serve coarse and fine bookkeeping.
type Registry struct {
	mu      sync.Mutex
	records []RootRecord
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

// Merge records root, returning true when it is at least threshold away
// from every known root. Otherwise the first record within threshold, in
// discovery order, has its hit counter incremented.
func (r *Registry) Merge(root Point, threshold float64) bool {
	return r.merge(RootRecord{Root: root}, threshold)
}

// MergeResult merges the root of a converged run, keeping the run's error,
// iteration and cycle counts when the root is new. Unconverged runs are
// ignored.
func (r *Registry) MergeResult(res *RunResult, threshold float64) bool {
	if res == nil || !res.Converged {
		return false
	}
	return r.merge(RootRecord{
		Root:       res.Root,
		Error:      res.FinalError,
		Iterations: res.Iterations,
		Cycles:     res.Cycles,
	}, threshold)
}

func (r *Registry) merge(rec RootRecord, threshold float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.records {
		if r.records[i].Root.Dist(rec.Root) < threshold {
			r.records[i].Hits++
			return false
		}
	}
	rec.Hits = 1
	rec.Discovered = r.now()
	r.records = append(r.records, rec)
	return true
}

// Records returns a copy of the registry contents in discovery order.
func (r *Registry) Records() []RootRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RootRecord, len(r.records))
	copy(out, r.records)
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
