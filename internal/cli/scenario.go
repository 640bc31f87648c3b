package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/patriline/pkg/pipeline"
)

// scenario is the TOML form of a pipeline configuration, so that
// repeatable experiments can be checked into a repository.
//
// Example:
//
//	[simulation]
//	variant = "variance"
//	population_size = 1000
//	generations = -1
//	seed = 42
//	gamma_shape = 5.0
//	gamma_scale = 0.2
//
//	[haplotypes]
//	model = "ystr"
//	mutation_rates = [0.003, 0.004, 0.002]
//
//	[analysis]
//	estimate_theta = false
type scenario struct {
	Simulation struct {
		Variant         string  `toml:"variant"`
		PopulationSize  int     `toml:"population_size"`
		Generations     int     `toml:"generations"`
		Seed            uint64  `toml:"seed"`
		Verbose         bool    `toml:"verbose"`
		KeepGenerations int     `toml:"keep_generations"`
		GammaShape      float64 `toml:"gamma_shape"`
		GammaScale      float64 `toml:"gamma_scale"`
	} `toml:"simulation"`

	Haplotypes struct {
		Model         string    `toml:"model"`
		MutationRates []float64 `toml:"mutation_rates"`
		LadderMin     []int     `toml:"ladder_min"`
		LadderMax     []int     `toml:"ladder_max"`
		AlleleDist    []float64 `toml:"allele_dist"`
		Theta         float64   `toml:"theta"`
		MutationRate  float64   `toml:"mutation_rate"`
	} `toml:"haplotypes"`

	Analysis struct {
		EstimateTheta bool `toml:"estimate_theta"`
	} `toml:"analysis"`
}

// options converts the scenario into pipeline options.
func (s scenario) options() pipeline.Options {
	return pipeline.Options{
		Variant:         s.Simulation.Variant,
		PopulationSize:  s.Simulation.PopulationSize,
		Generations:     s.Simulation.Generations,
		Seed:            s.Simulation.Seed,
		Verbose:         s.Simulation.Verbose,
		KeepGenerations: s.Simulation.KeepGenerations,
		GammaShape:      s.Simulation.GammaShape,
		GammaScale:      s.Simulation.GammaScale,
		Haplotypes: pipeline.HaplotypeOptions{
			Model:         s.Haplotypes.Model,
			MutationRates: s.Haplotypes.MutationRates,
			LadderMin:     s.Haplotypes.LadderMin,
			LadderMax:     s.Haplotypes.LadderMax,
			AlleleDist:    s.Haplotypes.AlleleDist,
			Theta:         s.Haplotypes.Theta,
			MutationRate:  s.Haplotypes.MutationRate,
		},
		EstimateTheta: s.Analysis.EstimateTheta,
	}
}

// loadScenario reads a TOML scenario file into pipeline options.
// Unknown keys are rejected to catch typos early.
func loadScenario(path string) (pipeline.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s scenario
	meta, err := toml.Decode(string(data), &s)
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return pipeline.Options{}, fmt.Errorf("parse scenario %s: unknown key %q", path, undecoded[0].String())
	}
	return s.options(), nil
}
