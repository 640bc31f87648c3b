package pipeline

import (
	"context"
	"testing"

	"github.com/matzehuels/patriline/pkg/cache"
)

func testOptions() Options {
	return Options{
		PopulationSize: 20,
		Generations:    GenerationsUntilOneFounder,
		Seed:           7,
		Haplotypes: HaplotypeOptions{
			Model:        ModelAutosomal,
			AlleleDist:   []float64{0.2, 0.3, 0.5},
			Theta:        0.1,
			MutationRate: 0.05,
		},
		EstimateTheta: true,
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Variant != VariantUniform {
		t.Errorf("variant = %q, want uniform", opts.Variant)
	}
	if opts.PopulationSize != DefaultPopulationSize {
		t.Errorf("population size = %d, want %d", opts.PopulationSize, DefaultPopulationSize)
	}
	if opts.Generations != GenerationsUntilOneFounder {
		t.Errorf("generations = %d, want sentinel", opts.Generations)
	}
	if opts.Seed != DefaultSeed {
		t.Errorf("seed = %d, want %d", opts.Seed, DefaultSeed)
	}
	if opts.Haplotypes.Model != ModelNone {
		t.Errorf("model = %q, want none", opts.Haplotypes.Model)
	}
	if opts.Logger == nil {
		t.Error("logger not defaulted")
	}
}

func TestValidateRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"bad variant", Options{Variant: "magic"}},
		{"bad model", Options{Haplotypes: HaplotypeOptions{Model: "diploid"}}},
		{"theta without autosomal", Options{EstimateTheta: true, Haplotypes: HaplotypeOptions{Model: ModelYSTR, MutationRates: []float64{0.1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateAndSetDefaults(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestExecuteFullPipeline(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()

	result, err := runner.Execute(context.Background(), testOptions())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.RunID == "" {
		t.Error("missing run ID")
	}
	if result.Population == nil || result.Population.Size() == 0 {
		t.Fatal("empty population")
	}
	if result.Pedigrees == nil || result.Pedigrees.Count() == 0 {
		t.Fatal("no pedigrees")
	}
	if result.FoundersLeft != 1 {
		t.Errorf("founders = %d, want 1", result.FoundersLeft)
	}
	if result.PopulationHash == "" {
		t.Error("missing population hash")
	}
	if result.Theta == nil {
		t.Fatal("missing theta estimate")
	}
	if result.Stats.Individuals != result.Population.Size() {
		t.Error("stats individuals mismatch")
	}

	// Every individual carries a 2-locus genotype after the autosomal pass.
	for _, ind := range result.Population.All() {
		h, err := ind.Haplotype()
		if err != nil {
			t.Fatalf("individual %d: %v", ind.ID(), err)
		}
		if len(h) != 2 {
			t.Fatalf("individual %d: %d loci", ind.ID(), len(h))
		}
	}
}

func TestExecuteCacheHit(t *testing.T) {
	fileCache, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	runner := NewRunner(fileCache, nil, nil)
	defer runner.Close()

	opts := testOptions()
	opts.Verbose = true

	first, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.CacheInfo.SimHit {
		t.Error("first run unexpectedly hit the cache")
	}

	second, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.CacheInfo.SimHit {
		t.Error("second run missed the cache")
	}
	if first.PopulationHash != second.PopulationHash {
		t.Error("cached population differs from computed population")
	}
	if second.Tables == nil {
		t.Error("verbose tables lost through the cache")
	}
	if first.RunID == second.RunID {
		t.Error("run IDs should be unique per execution")
	}

	// Refresh bypasses the cache.
	opts.Refresh = true
	third, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("refresh run: %v", err)
	}
	if third.CacheInfo.SimHit {
		t.Error("refresh run hit the cache")
	}
	if third.PopulationHash != first.PopulationHash {
		t.Error("refresh produced a different population for the same seed")
	}
}

func TestExecuteDeterministicAcrossRunners(t *testing.T) {
	a, err := NewRunner(nil, nil, nil).Execute(context.Background(), testOptions())
	if err != nil {
		t.Fatalf("first runner: %v", err)
	}
	b, err := NewRunner(nil, nil, nil).Execute(context.Background(), testOptions())
	if err != nil {
		t.Fatalf("second runner: %v", err)
	}
	if a.PopulationHash != b.PopulationHash {
		t.Error("same options produced different populations")
	}
	if a.Theta.Estimate != b.Theta.Estimate {
		t.Error("same options produced different theta estimates")
	}
}

func TestSimulateVariance(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	opts := Options{
		Variant:        VariantVariance,
		PopulationSize: 15,
		Generations:    4,
		Seed:           3,
		GammaShape:     5,
		GammaScale:     0.2,
	}
	res, err := runner.Simulate(context.Background(), opts)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if res.GenerationsRun != 4 {
		t.Errorf("generations run = %d, want 4", res.GenerationsRun)
	}
	if len(res.Kept) == 0 {
		t.Error("variance run kept no individuals")
	}
}
