// Package api exposes the simulation pipeline over HTTP.
//
// The server wraps a pipeline.Runner: POST /api/simulate runs the full
// pipeline and returns a summary (population payloads are omitted; use
// the CLI for full exports), and the estimate endpoints run the theta
// estimators over posted genotype samples.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/patriline/pkg/pipeline"
	"github.com/matzehuels/patriline/pkg/popstat"
)

// Server handles HTTP requests against a pipeline runner.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
}

// NewServer creates a server around the given runner.
func NewServer(runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, logger: logger}
}

// Router builds the HTTP route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/simulate", s.handleSimulate)
		r.Post("/estimate/theta", s.handleEstimateTheta)
		r.Post("/estimate/fstats", s.handleEstimateFStats)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// simulateResponse is the wire form of a pipeline run summary.
type simulateResponse struct {
	RunID          string            `json:"run_id"`
	Individuals    int               `json:"individuals"`
	Generations    int               `json:"generations"`
	Founders       int               `json:"founders"`
	Pedigrees      int               `json:"pedigrees"`
	PopulationHash string            `json:"population_hash"`
	SimCacheHit    bool              `json:"sim_cache_hit"`
	Theta          *thetaResponse    `json:"theta,omitempty"`
	Stats          map[string]string `json:"stats"`
}

type thetaResponse struct {
	Estimate float64 `json:"estimate"`
	Error    bool    `json:"error"`
	Details  string  `json:"details"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.logger.Debug("simulate request",
		"population_size", opts.PopulationSize,
		"generations", opts.Generations,
		"model", opts.Haplotypes.Model)

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		writeError(w, status, err.Error())
		return
	}

	resp := simulateResponse{
		RunID:          result.RunID,
		Individuals:    result.Stats.Individuals,
		Generations:    result.GenerationsRun,
		Founders:       result.FoundersLeft,
		Pedigrees:      result.Stats.Pedigrees,
		PopulationHash: result.PopulationHash,
		SimCacheHit:    result.CacheInfo.SimHit,
		Stats: map[string]string{
			"simulate": result.Stats.SimTime.String(),
			"build":    result.Stats.BuildTime.String(),
			"populate": result.Stats.PopulateTime.String(),
			"analyze":  result.Stats.AnalyzeTime.String(),
		},
	}
	if result.Theta != nil {
		resp.Theta = &thetaResponse{
			Estimate: result.Theta.Estimate,
			Error:    result.Theta.Err,
			Details:  result.Theta.Details,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// estimateThetaRequest carries a genotype sample as allele pairs.
type estimateThetaRequest struct {
	Genotypes [][2]int `json:"genotypes"`
}

func (s *Server) handleEstimateTheta(w http.ResponseWriter, r *http.Request) {
	var req estimateThetaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	genotypes := make([]popstat.Genotype, len(req.Genotypes))
	for i, g := range req.Genotypes {
		genotypes[i] = popstat.Genotype{A: g[0], B: g[1]}
	}

	est, err := popstat.EstimateTheta(genotypes, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, thetaResponse{
		Estimate: est.Estimate,
		Error:    est.Err,
		Details:  est.Details,
	})
}

// estimateFStatsRequest carries genotype samples per subpopulation.
type estimateFStatsRequest struct {
	Subpops [][][2]int `json:"subpops"`
	Sizes   []int      `json:"sizes"`
}

type fstatsResponse struct {
	F      float64 `json:"f_it"`
	Theta  float64 `json:"theta"`
	SmallF float64 `json:"f_is"`
}

// MarshalJSON encodes non-finite statistics (f is NaN when theta is 1) as
// JSON null, which encoding/json cannot represent as a number.
func (r fstatsResponse) MarshalJSON() ([]byte, error) {
	finite := func(v float64) *float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	}
	return json.Marshal(struct {
		F      *float64 `json:"f_it"`
		Theta  *float64 `json:"theta"`
		SmallF *float64 `json:"f_is"`
	}{finite(r.F), finite(r.Theta), finite(r.SmallF)})
}

func (s *Server) handleEstimateFStats(w http.ResponseWriter, r *http.Request) {
	var req estimateFStatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	subpops := make([][]popstat.Genotype, len(req.Subpops))
	for i, sub := range req.Subpops {
		subpops[i] = make([]popstat.Genotype, len(sub))
		for j, g := range sub {
			subpops[i][j] = popstat.Genotype{A: g[0], B: g[1]}
		}
	}

	stats, err := popstat.EstimateFStats(subpops, req.Sizes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, fstatsResponse{F: stats.F, Theta: stats.Theta, SmallF: stats.SmallF})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
