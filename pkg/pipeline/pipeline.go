// Package pipeline provides the core simulation pipeline for Patriline.
//
// This package implements the complete simulate → build → populate →
// analyze flow shared by the CLI, the HTTP API and tests. By centralizing
// the flow we get consistent validation, caching and logging across all
// entry points.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Simulate: sample a patrilineal genealogy (uniform or variance)
//  2. Build: partition the population into pedigrees
//  3. Populate: propagate haplotypes through the pedigrees (optional)
//  4. Analyze: estimate theta over the end generation (optional)
//
// Each stage can be run independently or as part of the complete
// pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    PopulationSize: 1000,
//	    Generations:    pipeline.GenerationsUntilOneFounder,
//	    Haplotypes:     pipeline.HaplotypeOptions{Model: pipeline.ModelYSTR, MutationRates: rates},
//	}
//	result, err := runner.Execute(ctx, opts)
package pipeline

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/patriline/pkg/cache"
	"github.com/matzehuels/patriline/pkg/genealogy/sim"
)

// Default values shared by CLI and API entry points.
const (
	// DefaultPopulationSize keeps ad-hoc runs small enough to inspect.
	DefaultPopulationSize = 100

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(42)

	// DefaultKeepGenerations matches the usual forensic use of keeping
	// the youngest three generation layers.
	DefaultKeepGenerations = 2

	// GenerationsUntilOneFounder re-exports the sampler sentinel so API
	// consumers don't need to import the sim package.
	GenerationsUntilOneFounder = sim.UntilOneFounder
)

// Sampler variants.
const (
	VariantUniform  = "uniform"
	VariantVariance = "variance"
)

// Haplotype models.
const (
	ModelNone      = "none"
	ModelYSTR      = "ystr"
	ModelLadder    = "ladder"
	ModelAutosomal = "autosomal"
)

// ValidVariants is the set of supported sampler variants.
var ValidVariants = map[string]bool{
	VariantUniform:  true,
	VariantVariance: true,
}

// ValidModels is the set of supported haplotype models.
var ValidModels = map[string]bool{
	ModelNone:      true,
	ModelYSTR:      true,
	ModelLadder:    true,
	ModelAutosomal: true,
}

// HaplotypeOptions configures the populate stage.
// This struct supports JSON serialization for API requests.
type HaplotypeOptions struct {
	// Model selects the inheritance model; ModelNone skips the stage.
	Model string `json:"model,omitempty"`

	// MutationRates holds the per-locus rates for the Y-STR models.
	MutationRates []float64 `json:"mutation_rates,omitempty"`

	// LadderMin and LadderMax bound the alleles for ModelLadder.
	LadderMin []int `json:"ladder_min,omitempty"`
	LadderMax []int `json:"ladder_max,omitempty"`

	// AlleleDist, Theta and MutationRate configure ModelAutosomal.
	AlleleDist   []float64 `json:"allele_dist,omitempty"`
	Theta        float64   `json:"theta,omitempty"`
	MutationRate float64   `json:"mutation_rate,omitempty"`
}

// Options contains all configuration for the simulation pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Simulate options
	Variant         string `json:"variant,omitempty"`
	PopulationSize  int    `json:"population_size"`
	Generations     int    `json:"generations"`
	Seed            uint64 `json:"seed,omitempty"`
	Verbose         bool   `json:"verbose,omitempty"`
	KeepGenerations int    `json:"keep_generations,omitempty"`

	// Variance sampler options
	GammaShape float64 `json:"gamma_shape,omitempty"`
	GammaScale float64 `json:"gamma_scale,omitempty"`

	// Populate options
	Haplotypes HaplotypeOptions `json:"haplotypes,omitempty"`

	// Analyze options
	EstimateTheta bool `json:"estimate_theta,omitempty"`

	// Refresh bypasses the cache for the simulate stage.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if o.Variant == "" {
		o.Variant = VariantUniform
	}
	if !ValidVariants[o.Variant] {
		return fmt.Errorf("invalid variant: %q (must be one of: uniform, variance)", o.Variant)
	}
	if o.PopulationSize == 0 {
		o.PopulationSize = DefaultPopulationSize
	}
	if o.Generations == 0 {
		o.Generations = GenerationsUntilOneFounder
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.KeepGenerations == 0 {
		o.KeepGenerations = DefaultKeepGenerations
	}

	if o.Haplotypes.Model == "" {
		o.Haplotypes.Model = ModelNone
	}
	if !ValidModels[o.Haplotypes.Model] {
		return fmt.Errorf("invalid haplotype model: %q (must be one of: none, ystr, ladder, autosomal)", o.Haplotypes.Model)
	}
	if o.EstimateTheta && o.Haplotypes.Model != ModelAutosomal {
		return fmt.Errorf("theta estimation requires the autosomal haplotype model")
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}

// SimOptions converts the pipeline options into sampler options.
func (o *Options) SimOptions() sim.Options {
	return sim.Options{
		PopulationSize:  o.PopulationSize,
		Generations:     o.Generations,
		Verbose:         o.Verbose,
		KeepGenerations: o.KeepGenerations,
		GammaShape:      o.GammaShape,
		GammaScale:      o.GammaScale,
	}
}

// SimKeyOpts returns the cache key options for the simulate stage.
func (o *Options) SimKeyOpts() cache.SimKeyOpts {
	return cache.SimKeyOpts{
		PopulationSize:  o.PopulationSize,
		Generations:     o.Generations,
		Seed:            o.Seed,
		GammaShape:      o.GammaShape,
		GammaScale:      o.GammaScale,
		KeepGenerations: o.KeepGenerations,
		Verbose:         o.Verbose,
	}
}

// HaplotypeKeyOpts returns the cache key options for the populate stage.
func (o *Options) HaplotypeKeyOpts() cache.HaplotypeKeyOpts {
	return cache.HaplotypeKeyOpts{
		Model:         o.Haplotypes.Model,
		MutationRates: o.Haplotypes.MutationRates,
		LadderMin:     o.Haplotypes.LadderMin,
		LadderMax:     o.Haplotypes.LadderMax,
		AlleleDist:    o.Haplotypes.AlleleDist,
		Theta:         o.Haplotypes.Theta,
		MutationRate:  o.Haplotypes.MutationRate,
		Seed:          o.Seed,
	}
}
