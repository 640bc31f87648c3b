package popstat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/patriline/pkg/genealogy"
)

// repeat appends n copies of g.
func repeat(gs []Genotype, g Genotype, n int) []Genotype {
	for i := 0; i < n; i++ {
		gs = append(gs, g)
	}
	return gs
}

func TestEstimateThetaKnownSample(t *testing.T) {
	var gs []Genotype
	gs = repeat(gs, Genotype{1, 1}, 50)
	gs = repeat(gs, Genotype{1, 2}, 30)
	gs = repeat(gs, Genotype{2, 2}, 20)

	est, err := EstimateTheta(gs, true)
	require.NoError(t, err)
	assert.False(t, est.Err)
	assert.Equal(t, "OK", est.Details)
	assert.GreaterOrEqual(t, est.Estimate, 0.0)
	assert.LessOrEqual(t, est.Estimate, 1.0)
	// Closed form for the 1-parameter fit: sum(x*y) / sum(x*x).
	assert.InDelta(t, 0.34066, est.Estimate, 1e-4)

	require.NotNil(t, est.Info)
	assert.Len(t, est.Info.Genotypes, 3)
	assert.Equal(t, []int{1, 2}, est.Info.Alleles)
	assert.InDelta(t, 0.65, est.Info.AlleleFreqs[0], 1e-12)
	assert.InDelta(t, 0.35, est.Info.AlleleFreqs[1], 1e-12)
	assert.Equal(t, []int{1, 2, 1}, est.Info.Zygosity)
}

func TestEstimateThetaSingleGenotype(t *testing.T) {
	gs := repeat(nil, Genotype{3, 3}, 10)

	est, err := EstimateTheta(gs, false)
	require.NoError(t, err)
	assert.True(t, est.Err)
	assert.Equal(t, "Only one genotype observed", est.Details)
	assert.Nil(t, est.Info)
}

func TestEstimateThetaEmpty(t *testing.T) {
	_, err := EstimateTheta(nil, false)
	assert.ErrorIs(t, err, ErrNoGenotypes)
}

func TestEstimateThetaUnorderedInput(t *testing.T) {
	// (2,1) and (1,2) are the same unordered genotype.
	a, err := EstimateTheta([]Genotype{{1, 1}, {2, 1}, {2, 1}, {2, 2}}, false)
	require.NoError(t, err)
	b, err := EstimateTheta([]Genotype{{1, 1}, {1, 2}, {1, 2}, {2, 2}}, false)
	require.NoError(t, err)
	assert.Equal(t, a.Estimate, b.Estimate)
}

func TestEstimateThetaIndividuals(t *testing.T) {
	pop := genealogy.NewPopulation()
	var ids []genealogy.ID
	for _, h := range [][]int{{1, 1}, {1, 1}, {1, 2}, {2, 2}} {
		ind := pop.NewIndividual(0)
		ind.SetHaplotype(h)
		ids = append(ids, ind.ID())
	}

	est, err := EstimateThetaIndividuals(pop, ids, false)
	require.NoError(t, err)
	assert.False(t, est.Err)

	// Wrong locus count is an input error, not a diagnosable outcome.
	bad := pop.NewIndividual(0)
	bad.SetHaplotype([]int{1, 2, 3})
	_, err = EstimateThetaIndividuals(pop, append(ids, bad.ID()), false)
	assert.ErrorIs(t, err, ErrLocusCount)

	// Unset haplotype.
	unset := pop.NewIndividual(0)
	_, err = EstimateThetaIndividuals(pop, []genealogy.ID{unset.ID()}, false)
	assert.ErrorIs(t, err, genealogy.ErrHaplotypeNotSet)
}

func TestEstimateFStatsDifferentiated(t *testing.T) {
	// Two subpopulations fixed for different alleles: complete
	// differentiation, so F and theta are 1 and all variation lies
	// between subpopulations.
	sub0 := repeat(nil, Genotype{0, 0}, 50)
	sub1 := repeat(nil, Genotype{1, 1}, 50)

	stats, err := EstimateFStats([][]Genotype{sub0, sub1}, []int{50, 50})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, stats.F, 1e-12)
	assert.InDelta(t, 1.0, stats.Theta, 1e-12)
}

func TestEstimateFStatsHomogeneous(t *testing.T) {
	// Identical genotype distributions in both subpopulations: no
	// between-subpopulation differentiation, so theta is near zero
	// (slightly negative is expected for the moment estimator).
	mk := func() []Genotype {
		var gs []Genotype
		gs = repeat(gs, Genotype{1, 1}, 40)
		gs = repeat(gs, Genotype{1, 2}, 40)
		gs = repeat(gs, Genotype{2, 2}, 20)
		return gs
	}

	stats, err := EstimateFStats([][]Genotype{mk(), mk()}, []int{100, 100})
	require.NoError(t, err)
	assert.Less(t, math.Abs(stats.Theta), 0.05)
	// f identity: f = (F - theta) / (1 - theta).
	assert.InDelta(t, (stats.F-stats.Theta)/(1-stats.Theta), stats.SmallF, 1e-12)
}

func TestEstimateFStatsValidation(t *testing.T) {
	tests := []struct {
		name    string
		subpops [][]Genotype
		sizes   []int
		want    error
	}{
		{"no subpops", nil, nil, ErrNoSubpops},
		{"size mismatch", [][]Genotype{{{1, 1}}}, []int{1, 2}, ErrSubpopSizes},
		{"empty sample", [][]Genotype{{}}, []int{5}, ErrEmptySubpop},
		{"non-positive size", [][]Genotype{{{1, 1}}}, []int{0}, ErrSubpopSizes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EstimateFStats(tt.subpops, tt.sizes)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEstimateFStatsIndividuals(t *testing.T) {
	pop := genealogy.NewPopulation()
	mk := func(haps [][]int) []genealogy.ID {
		var ids []genealogy.ID
		for _, h := range haps {
			ind := pop.NewIndividual(0)
			ind.SetHaplotype(h)
			ids = append(ids, ind.ID())
		}
		return ids
	}
	sub0 := mk([][]int{{0, 0}, {0, 0}, {0, 1}})
	sub1 := mk([][]int{{1, 1}, {1, 1}, {0, 1}})

	stats, err := EstimateFStatsIndividuals(pop, [][]genealogy.ID{sub0, sub1}, []int{3, 3})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(stats.Theta))
	assert.Greater(t, stats.Theta, 0.0)

	_, err = EstimateFStatsIndividuals(pop, [][]genealogy.ID{sub0, nil}, []int{3, 3})
	assert.ErrorIs(t, err, ErrEmptySubpop)
}

func TestGenotypeNormalized(t *testing.T) {
	g := Genotype{5, 2}.normalized()
	if g.A != 2 || g.B != 5 {
		t.Errorf("normalized = %+v, want {2 5}", g)
	}
	if !(Genotype{3, 3}).homozygous() {
		t.Error("homozygous misreported")
	}
}
