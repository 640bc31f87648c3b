package popstat

import (
	"fmt"
	"sort"

	"github.com/matzehuels/patriline/pkg/genealogy"
)

// FStats holds Weir's estimates of Wright's fixation indices.
type FStats struct {
	// F is Wright's F_IT, the overall inbreeding coefficient.
	F float64

	// Theta is Wright's F_ST, the correlation of alleles between
	// individuals within a subpopulation.
	Theta float64

	// SmallF is Wright's F_IS, the within-subpopulation inbreeding
	// coefficient, derived as (F − θ) / (1 − θ).
	SmallF float64
}

// EstimateFStats estimates F, theta and f for r subpopulations of 2-locus
// autosomal genotypes, following Weir, Genetic Data Analysis 2 (1996),
// pp. 168–179. sizes holds the (true) size of each subpopulation, which
// may differ from the sample sizes.
//
// Returns ErrNoSubpops, ErrSubpopSizes or ErrEmptySubpop on bad input.
func EstimateFStats(subpops [][]Genotype, sizes []int) (FStats, error) {
	r := len(subpops)
	if r <= 0 {
		return FStats{}, ErrNoSubpops
	}
	if len(sizes) != r {
		return FStats{}, fmt.Errorf("%w: %d sizes for %d subpopulations", ErrSubpopSizes, len(sizes), r)
	}

	// heteroP[i][a]: frequency of heterozygotes involving allele a in
	// subpopulation i. homoP[i][a]: homozygote frequency. alleleP[i][a]:
	// allele frequency.
	heteroP := make([]map[int]float64, r)
	homoP := make([]map[int]float64, r)
	alleleP := make([]map[int]float64, r)
	n := make([]float64, r)

	for i, subpop := range subpops {
		if len(subpop) == 0 {
			return FStats{}, fmt.Errorf("%w: subpopulation %d", ErrEmptySubpop, i)
		}
		if sizes[i] <= 0 {
			return FStats{}, fmt.Errorf("%w: subpopulation %d has size %d", ErrSubpopSizes, i, sizes[i])
		}
		n[i] = float64(sizes[i])

		heteroP[i] = make(map[int]float64)
		homoP[i] = make(map[int]float64)
		alleleP[i] = make(map[int]float64)

		sample := float64(len(subpop))
		frac1 := 1 / (2 * sample)
		frac2 := 1 / sample
		for _, g := range subpop {
			g = g.normalized()
			if g.homozygous() {
				alleleP[i][g.A] += frac2
				homoP[i][g.A] += frac2
			} else {
				alleleP[i][g.A] += frac1
				alleleP[i][g.B] += frac1
				heteroP[i][g.A] += frac2
				heteroP[i][g.B] += frac2
			}
		}
	}

	return weirEngine(heteroP, homoP, alleleP, n)
}

// EstimateFStatsIndividuals estimates F, theta and f from the stored
// haplotypes of the given subpopulations of individuals.
func EstimateFStatsIndividuals(pop *genealogy.Population, subpops [][]genealogy.ID, sizes []int) (FStats, error) {
	genotypes := make([][]Genotype, len(subpops))
	for i, ids := range subpops {
		if len(ids) == 0 {
			return FStats{}, fmt.Errorf("%w: subpopulation %d", ErrEmptySubpop, i)
		}
		gs, err := collectGenotypes(pop, ids)
		if err != nil {
			return FStats{}, fmt.Errorf("subpopulation %d: %w", i, err)
		}
		genotypes[i] = gs
	}
	return EstimateFStats(genotypes, sizes)
}

// weirEngine computes the moment estimators over the per-subpopulation
// frequency tables. Page references are to Weir, GDA2 (1996).
func weirEngine(heteroP, homoP, alleleP []map[int]float64, n []float64) (FStats, error) {
	r := len(alleleP)
	rF := float64(r)

	var nMean, nSum, n2Sum float64
	for _, ni := range n {
		nMean += ni / rF
		nSum += ni
		n2Sum += ni * ni
	}

	// Common allele universe, sorted for deterministic accumulation.
	alleleSet := make(map[int]bool)
	for i := 0; i < r; i++ {
		for a := range alleleP[i] {
			alleleSet[a] = true
		}
	}
	alleles := make([]int, 0, len(alleleSet))
	for a := range alleleSet {
		alleles = append(alleles, a)
	}
	sort.Ints(alleles)

	// Weighted means: p̄_A (p. 168) and H̄_A (p. 178).
	meanP := make(map[int]float64)
	meanH := make(map[int]float64)
	for i := 0; i < r; i++ {
		for a, p := range alleleP[i] {
			meanP[a] += n[i] * p / nSum
		}
		for a, h := range heteroP[i] {
			meanH[a] += n[i] * h / nSum
		}
	}

	// Between-subpopulation variance s² (p. 173). Alleles absent from a
	// subpopulation contribute a frequency of zero.
	s2 := make(map[int]float64)
	for i := 0; i < r; i++ {
		for _, a := range alleles {
			d := alleleP[i][a] - meanP[a]
			s2[a] += n[i] * d * d / ((rF - 1) * nMean)
		}
	}

	// S1, S2, S3 (pp. 178–179).
	nc := (nSum - n2Sum/nSum) / (rF - 1)

	var sumS1, sumS2, sumS3 float64
	for _, a := range alleles {
		tmpS2 := s2[a]
		tmpP := meanP[a]
		tmpH := meanH[a]

		sumS1 += tmpS2 - (1/(nMean-1))*(tmpP*(1-tmpP)-((rF-1)/rF)*tmpS2-0.25*tmpH)

		s2p1 := (rF * (nMean - nc) / nMean) * tmpP * (1 - tmpP)
		s2p2 := tmpS2 * ((nMean - 1) + (rF-1)*(nMean-nc)) / nMean
		s2p3 := tmpH * rF * (nMean - nc) / (4 * nMean * nc)
		sumS2 += tmpP*(1-tmpP) - (nMean/(rF*(nMean-1)))*(s2p1-s2p2-s2p3)

		sumS3 += (nc / (2 * nMean)) * tmpH
	}

	f := 1 - sumS3/sumS2
	theta := sumS1 / sumS2
	return FStats{
		F:      f,
		Theta:  theta,
		SmallF: (f - theta) / (1 - theta),
	}, nil
}
