package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/patriline/pkg/pipeline"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `
[simulation]
variant = "variance"
population_size = 500
generations = -1
seed = 99
gamma_shape = 5.0
gamma_scale = 0.2
keep_generations = 3

[haplotypes]
model = "ystr"
mutation_rates = [0.003, 0.004]

[analysis]
estimate_theta = false
`)

	opts, err := loadScenario(path)
	if err != nil {
		t.Fatalf("loadScenario: %v", err)
	}
	if opts.Variant != pipeline.VariantVariance {
		t.Errorf("variant = %q, want variance", opts.Variant)
	}
	if opts.PopulationSize != 500 || opts.Seed != 99 {
		t.Errorf("simulation fields lost: %+v", opts)
	}
	if opts.Generations != pipeline.GenerationsUntilOneFounder {
		t.Errorf("generations = %d, want sentinel", opts.Generations)
	}
	if opts.GammaShape != 5.0 || opts.GammaScale != 0.2 {
		t.Errorf("gamma fields lost: %+v", opts)
	}
	if opts.Haplotypes.Model != pipeline.ModelYSTR {
		t.Errorf("model = %q, want ystr", opts.Haplotypes.Model)
	}
	if len(opts.Haplotypes.MutationRates) != 2 {
		t.Errorf("mutation rates lost: %v", opts.Haplotypes.MutationRates)
	}

	// Loaded options must pass pipeline validation.
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("scenario options invalid: %v", err)
	}
}

func TestLoadScenarioRejectsUnknownKeys(t *testing.T) {
	path := writeScenario(t, `
[simulation]
population_size = 10
popluation_sise = 20
`)
	if _, err := loadScenario(path); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	if _, err := loadScenario(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
