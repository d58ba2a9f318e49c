// Package api serves the solver over JSON/HTTP.
//
// A client configures a function once with POST /api/configure and then
// runs, searches and scans against it. Every response carries a "status"
// field of "success" or "error"; errors also carry a "message".
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/secantlab/internal/analysis"
	"github.com/san-kum/secantlab/internal/experiment"
	"github.com/san-kum/secantlab/internal/optim"
	"github.com/san-kum/secantlab/internal/secant"
)

const Version = "1.0"

// maxBody caps request bodies.
const maxBody = 1 << 20

var errNotConfigured = errors.New("solver not configured; POST /api/configure first")

// Server holds the solver and the currently configured problem.
type Server struct {
	solver   *experiment.Solver
	catalog  *experiment.Catalog
	gatherer prometheus.Gatherer
	grid     optim.GridConfig
	logger   *slog.Logger

	mu      sync.RWMutex
	problem *experiment.Problem
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithGatherer exposes the gathered metrics on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithGrid sets the defaults for search requests.
func WithGrid(g optim.GridConfig) Option {
	return func(s *Server) { s.grid = g }
}

// WithProblem preconfigures the function to solve.
func WithProblem(p experiment.Problem) Option {
	return func(s *Server) { s.problem = &p }
}

func NewServer(solver *experiment.Solver, catalog *experiment.Catalog, opts ...Option) *Server {
	s := &Server{
		solver:  solver,
		catalog: catalog,
		grid:    optim.DefaultGridConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = experiment.NewCatalog()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

var endpoints = []string{
	"POST /api/configure",
	"POST /api/run",
	"POST /api/search",
	"POST /api/sensitivity",
	"POST /api/pathological",
	"GET /api/stats",
	"GET /api/report/{id}",
	"GET /api/examples",
	"GET /api/health",
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/configure", s.handleConfigure)
	mux.HandleFunc("POST /api/run", s.handleRun)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/sensitivity", s.handleSensitivity)
	mux.HandleFunc("POST /api/pathological", s.handlePathological)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/report/{id}", s.handleReport)
	mux.HandleFunc("GET /api/examples", s.handleExamples)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("api listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method, "path", r.URL.Path,
			"status", rec.status, "elapsed", time.Since(start))
	})
}

func (s *Server) current() (experiment.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.problem == nil {
		return experiment.Problem{}, errNotConfigured
	}
	return *s.problem, nil
}

func writeJSON(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func success(w http.ResponseWriter, body map[string]any) {
	body["status"] = "success"
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) fail(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	} else {
		s.logger.Debug("request rejected", "err", err)
	}
	writeJSON(w, code, map[string]any{"status": "error", "message": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

type configureRequest struct {
	Expression        string   `json:"expression"`
	Tolerance         *float64 `json:"tolerance"`
	MaxIterations     *int     `json:"max_iterations"`
	Strategy          *string  `json:"strategy"`
	NumericDerivative *bool    `json:"use_numeric_derivative"`
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	p, err := experiment.Compile(req.Expression)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	cfg := secant.DefaultConfig()
	if req.Tolerance != nil {
		cfg.Tolerance = *req.Tolerance
	}
	if req.MaxIterations != nil {
		cfg.MaxIterations = *req.MaxIterations
	}
	if req.Strategy != nil {
		if cfg.Strategy, err = secant.ParseStrategy(*req.Strategy); err != nil {
			s.fail(w, http.StatusBadRequest, err)
			return
		}
	}
	if req.NumericDerivative != nil {
		cfg.NumericDerivative = *req.NumericDerivative
	}
	if err := s.solver.Configure(cfg); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	s.problem = &p
	s.mu.Unlock()

	s.logger.Info("solver configured", "expression", p.Expression, "strategy", cfg.Strategy.String())
	success(w, map[string]any{
		"message":    "solver configured",
		"expression": p.Expression,
		"config":     cfg,
	})
}

type runRequest struct {
	X0Real *float64 `json:"x0_real"`
	X0Imag *float64 `json:"x0_imag"`
	X1Real *float64 `json:"x1_real"`
	X1Imag *float64 `json:"x1_imag"`
	ID     string   `json:"id"`
}

func (req runRequest) seeds() (secant.Point, secant.Point, error) {
	fields := []struct {
		name string
		v    *float64
	}{
		{"x0_real", req.X0Real}, {"x0_imag", req.X0Imag},
		{"x1_real", req.X1Real}, {"x1_imag", req.X1Imag},
	}
	for _, f := range fields {
		if f.v == nil {
			return secant.Point{}, secant.Point{}, fmt.Errorf("missing required field: %s", f.name)
		}
	}
	return secant.Point{Real: *req.X0Real, Imag: *req.X0Imag},
		secant.Point{Real: *req.X1Real, Imag: *req.X1Imag}, nil
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	p, err := s.current()
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	var req runRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	seed0, seed1, err := req.seeds()
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.solver.ExecuteID(r.Context(), p, seed0, seed1, req.ID)
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	success(w, map[string]any{"result": res})
}

type searchRequest struct {
	Region        *optim.Region `json:"region"`
	Points        int           `json:"n_points"`
	DedupDistance float64       `json:"dedup_distance"`
	Parallel      *bool         `json:"parallel"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	p, err := s.current()
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	var req searchRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	if req.Region == nil {
		s.fail(w, http.StatusBadRequest, errors.New("missing required field: region"))
		return
	}

	g := s.grid
	g.Region = *req.Region
	if req.Points > 0 {
		g.Points = req.Points
	}
	if req.DedupDistance > 0 {
		g.DedupDistance = req.DedupDistance
	}
	if req.Parallel != nil {
		g.Parallel = *req.Parallel
	}

	res, err := s.solver.Search(r.Context(), p, g)
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	success(w, map[string]any{"result": res})
}

type sensitivityRequest struct {
	RootReal        *float64  `json:"root_real"`
	RootImag        *float64  `json:"root_imag"`
	NoiseLevels     []float64 `json:"noise_levels"`
	SamplesPerLevel int       `json:"samples_per_level"`
}

func (s *Server) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	p, err := s.current()
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	var req sensitivityRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	if req.RootReal == nil || req.RootImag == nil {
		s.fail(w, http.StatusBadRequest, errors.New("missing required field: root_real/root_imag"))
		return
	}
	samples := req.SamplesPerLevel
	if samples == 0 {
		samples = analysis.DefaultSamplesPerLevel
	}

	scan, err := s.solver.Sensitivity(p, secant.Point{Real: *req.RootReal, Imag: *req.RootImag}, req.NoiseLevels, samples)
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	success(w, map[string]any{"result": scan})
}

type pathologicalRequest struct {
	Kind   string             `json:"kind"`
	Params map[string]float64 `json:"params"`
}

func (s *Server) handlePathological(w http.ResponseWriter, r *http.Request) {
	var req pathologicalRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	pf, err := s.catalog.Pathological(req.Kind, req.Params)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	success(w, map[string]any{"pathological": pf})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.solver.Statistics()
	success(w, map[string]any{
		"statistics": map[string]any{
			"total_runs":        st.TotalRuns,
			"converged_runs":    st.ConvergedRuns,
			"success_rate":      st.SuccessRate(),
			"mean_elapsed_secs": st.MeanElapsed.Seconds(),
			"total_cycles":      st.TotalCycles,
		},
		"roots":         st.Roots,
		"history_count": st.HistoryCount,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.solver.Report(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	success(w, map[string]any{"report": rep})
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	success(w, map[string]any{
		"examples":     s.catalog.Examples(),
		"pathological": s.catalog.Kinds(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   Version,
		"service":   "secantlab",
		"endpoints": endpoints,
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, experiment.ErrUnknownRun):
		return http.StatusNotFound
	case errors.Is(err, secant.ErrInvalidConfig),
		errors.Is(err, secant.ErrInvalidSeed),
		errors.Is(err, secant.ErrNilEvaluator),
		errors.Is(err, analysis.ErrInvalidScan),
		errors.Is(err, optim.ErrInvalidRegion),
		errors.Is(err, experiment.ErrUnknownFunction),
		errors.Is(err, experiment.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
