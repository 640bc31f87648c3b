package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/patriline/pkg/cache"
	"github.com/matzehuels/patriline/pkg/genealogy"
	"github.com/matzehuels/patriline/pkg/genealogy/sim"
	"github.com/matzehuels/patriline/pkg/haplotype"
	popio "github.com/matzehuels/patriline/pkg/io"
	"github.com/matzehuels/patriline/pkg/popstat"
	"github.com/matzehuels/patriline/pkg/random"
)

// hapSeedOffset separates the haplotype random stream from the sampler
// stream so a cached simulate stage leaves populate draws unchanged.
const hapSeedOffset = 0x9e3779b97f4a7c15

// Runner encapsulates pipeline execution with caching.
// The Runner is stateless except for the cache and logger; multiple
// goroutines can use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// A nil keyer falls back to the default keyer, a nil cache disables
// caching, and a nil logger falls back to the package default.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID uniquely identifies this execution.
	RunID string

	// Population owns every simulated individual.
	Population *genealogy.Population

	// Pedigrees is the pedigree partition of the population.
	Pedigrees *genealogy.PedigreeList

	// GenerationsRun, FoundersLeft, EndGeneration and Kept mirror the
	// sampler result.
	GenerationsRun int
	FoundersLeft   int
	EndGeneration  []genealogy.ID
	Kept           []genealogy.ID

	// Tables holds the verbose sampler output when requested.
	Tables *sim.Tables

	// PopulationHash is the content hash of the serialized population.
	PopulationHash string

	// Theta holds the end-generation theta fit when requested.
	Theta *popstat.ThetaEstimate

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Individuals  int
	Pedigrees    int
	SimTime      time.Duration
	BuildTime    time.Duration
	PopulateTime time.Duration
	AnalyzeTime  time.Duration
}

// CacheInfo tracks cache hits per stage.
type CacheInfo struct {
	SimHit bool // whether the simulate stage came from cache
}

// Execute runs the complete pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{RunID: uuid.NewString()}

	// Stage 1: Simulate
	simStart := time.Now()
	simRes, simHit, err := r.SimulateWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	result.Population = simRes.Population
	result.GenerationsRun = simRes.GenerationsRun
	result.FoundersLeft = simRes.FoundersLeft
	result.EndGeneration = simRes.EndGeneration
	result.Kept = simRes.Kept
	result.Tables = simRes.Tables
	result.Stats.SimTime = time.Since(simStart)
	result.Stats.Individuals = simRes.Population.Size()
	result.CacheInfo.SimHit = simHit

	if data, err := popio.MarshalPopulation(simRes.Population); err == nil {
		result.PopulationHash = cache.Hash(data)
	}

	opts.Logger.Info("simulated genealogy",
		"individuals", result.Stats.Individuals,
		"generations", result.GenerationsRun,
		"founders", result.FoundersLeft,
		"cached", simHit,
		"duration", result.Stats.SimTime)

	// Stage 2: Build pedigrees
	buildStart := time.Now()
	peds, err := genealogy.BuildPedigrees(ctx, result.Population)
	if err != nil {
		return nil, fmt.Errorf("build pedigrees: %w", err)
	}
	result.Pedigrees = peds
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.Pedigrees = peds.Count()

	opts.Logger.Info("built pedigrees",
		"pedigrees", peds.Count(),
		"duration", result.Stats.BuildTime)

	// Stage 3: Populate haplotypes
	if opts.Haplotypes.Model != ModelNone {
		popStart := time.Now()
		if err := r.Populate(ctx, result.Population, peds, opts); err != nil {
			return nil, fmt.Errorf("populate haplotypes: %w", err)
		}
		result.Stats.PopulateTime = time.Since(popStart)

		opts.Logger.Info("populated haplotypes",
			"model", opts.Haplotypes.Model,
			"duration", result.Stats.PopulateTime)
	}

	// Stage 4: Analyze
	if opts.EstimateTheta {
		analyzeStart := time.Now()
		est, err := popstat.EstimateThetaIndividuals(result.Population, result.EndGeneration, false)
		if err != nil {
			return nil, fmt.Errorf("estimate theta: %w", err)
		}
		result.Theta = &est
		result.Stats.AnalyzeTime = time.Since(analyzeStart)

		opts.Logger.Info("estimated theta",
			"estimate", est.Estimate,
			"details", est.Details,
			"duration", result.Stats.AnalyzeTime)
	}

	return result, nil
}

// cachedSim is the cache wire form of a sampler result.
type cachedSim struct {
	Population     json.RawMessage `json:"population"`
	GenerationsRun int             `json:"generations_run"`
	FoundersLeft   int             `json:"founders_left"`
	EndGeneration  []genealogy.ID  `json:"end_generation"`
	Kept           []genealogy.ID  `json:"kept,omitempty"`
	Tables         *sim.Tables     `json:"tables,omitempty"`
}

// SimulateWithCacheInfo runs the simulate stage with caching and reports
// whether the result came from cache.
func (r *Runner) SimulateWithCacheInfo(ctx context.Context, opts Options) (*sim.Result, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	cacheKey := r.Keyer.SimulationKey(opts.Variant, opts.SimKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if res, err := decodeSim(data); err == nil {
				return res, true, nil
			}
			// Fall through and recompute on a corrupt entry.
		}
	}

	src := random.NewPCG(opts.Seed)
	var res *sim.Result
	var err error
	switch opts.Variant {
	case VariantVariance:
		res, err = sim.SampleVariance(ctx, src, opts.SimOptions())
	default:
		res, err = sim.Sample(ctx, src, opts.SimOptions())
	}
	if err != nil {
		return nil, false, err
	}

	if !opts.Refresh {
		if data, err := encodeSim(res); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLSimulation)
		}
	}
	return res, false, nil
}

// Simulate is a convenience wrapper that discards the cache hit info.
func (r *Runner) Simulate(ctx context.Context, opts Options) (*sim.Result, error) {
	res, _, err := r.SimulateWithCacheInfo(ctx, opts)
	return res, err
}

// Populate runs the configured haplotype model over the pedigrees.
// The haplotype random stream is derived from the run seed so results do
// not depend on whether the simulate stage was cached.
func (r *Runner) Populate(ctx context.Context, pop *genealogy.Population, peds *genealogy.PedigreeList, opts Options) error {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	src := random.NewPCG(opts.Seed + hapSeedOffset)

	switch opts.Haplotypes.Model {
	case ModelYSTR:
		return haplotype.PopulateYSTR(ctx, src, pop, peds, haplotype.Config{
			MutationRates: opts.Haplotypes.MutationRates,
		})
	case ModelLadder:
		return haplotype.PopulateYSTRLadder(ctx, src, pop, peds, haplotype.LadderConfig{
			MutationRates: opts.Haplotypes.MutationRates,
			Min:           opts.Haplotypes.LadderMin,
			Max:           opts.Haplotypes.LadderMax,
		})
	case ModelAutosomal:
		return haplotype.PopulateAutosomal(ctx, src, pop, peds, haplotype.AutosomalConfig{
			AlleleDist:   opts.Haplotypes.AlleleDist,
			Theta:        opts.Haplotypes.Theta,
			MutationRate: opts.Haplotypes.MutationRate,
		})
	case ModelNone:
		return nil
	}
	return fmt.Errorf("invalid haplotype model: %q", opts.Haplotypes.Model)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func encodeSim(res *sim.Result) ([]byte, error) {
	popData, err := popio.MarshalPopulation(res.Population)
	if err != nil {
		return nil, err
	}
	return json.Marshal(cachedSim{
		Population:     popData,
		GenerationsRun: res.GenerationsRun,
		FoundersLeft:   res.FoundersLeft,
		EndGeneration:  res.EndGeneration,
		Kept:           res.Kept,
		Tables:         res.Tables,
	})
}

func decodeSim(data []byte) (*sim.Result, error) {
	var entry cachedSim
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	pop, err := popio.UnmarshalPopulation(entry.Population)
	if err != nil {
		return nil, err
	}
	return &sim.Result{
		Population:     pop,
		GenerationsRun: entry.GenerationsRun,
		FoundersLeft:   entry.FoundersLeft,
		EndGeneration:  entry.EndGeneration,
		Kept:           entry.Kept,
		Tables:         entry.Tables,
	}, nil
}
