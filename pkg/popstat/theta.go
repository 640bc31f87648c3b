// Package popstat estimates population-structure statistics from
// 2-locus autosomal genotypes.
//
// Two estimators are provided. [EstimateTheta] fits Wright's F_ST (theta)
// for a single subpopulation by least squares over the observed genotype
// frequencies. [EstimateFStats] computes F (F_IT), theta (F_ST) and
// f (F_IS) across several subpopulations following Weir, Genetic Data
// Analysis 2 (1996), pp. 168–179.
//
// Estimation problems that are diagnosable rather than programming
// errors — an under-determined sample, a failed decomposition, an
// estimate outside [0, 1] — are reported inside the returned
// [ThetaEstimate] instead of as errors.
package popstat

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/patriline/pkg/genealogy"
)

// Sentinel errors for estimator inputs.
var (
	// ErrNoGenotypes is returned when the genotype sample is empty.
	ErrNoGenotypes = errors.New("no genotypes given")

	// ErrNoSubpops is returned when no subpopulations are given.
	ErrNoSubpops = errors.New("no subpopulations given")

	// ErrSubpopSizes is returned when the size vector does not match the
	// subpopulations or holds a non-positive entry.
	ErrSubpopSizes = errors.New("invalid subpopulation sizes")

	// ErrEmptySubpop is returned when a subpopulation sample is empty.
	ErrEmptySubpop = errors.New("empty subpopulation sample")

	// ErrLocusCount is returned when a haplotype does not hold exactly
	// two autosomal loci.
	ErrLocusCount = errors.New("expected exactly 2 autosomal loci")
)

// Genotype is one unordered 2-locus autosomal observation.
type Genotype struct {
	A, B int
}

// normalized returns the genotype with A <= B.
func (g Genotype) normalized() Genotype {
	if g.B < g.A {
		return Genotype{A: g.B, B: g.A}
	}
	return g
}

// homozygous reports whether both alleles agree.
func (g Genotype) homozygous() bool { return g.A == g.B }

// ThetaEstimate is the structured result of a single-subpopulation theta
// fit. Err marks diagnosable outcomes; Details explains them. The point
// estimate is reported even when it falls outside [0, 1].
type ThetaEstimate struct {
	Estimate float64
	Err      bool
	Details  string

	// Info holds the estimation quantities when requested, else nil.
	Info *EstimationInfo
}

// EstimationInfo captures the quantities behind a theta fit.
type EstimationInfo struct {
	// X and Y are the design column and response of the least-squares fit,
	// one row per unique genotype.
	X, Y []float64

	// Genotypes lists the unique genotypes in fit order.
	Genotypes []Genotype

	// Zygosity holds 1 for homozygotes and 2 for heterozygotes, aligned
	// with Genotypes.
	Zygosity []int

	// GenotypeProbs holds the observed genotype frequencies, aligned with
	// Genotypes.
	GenotypeProbs []float64

	// AlleleProbs holds the frequencies of each genotype's two alleles,
	// aligned with Genotypes.
	AlleleProbs [][2]float64

	// Alleles and AlleleFreqs list every observed allele with its
	// frequency, sorted by allele.
	Alleles     []int
	AlleleFreqs []float64
}

// EstimateTheta fits theta for one subpopulation from a genotype sample.
//
// Allele and genotype frequencies are tabulated over the sample; each
// unique genotype contributes one equation relating its observed
// frequency to the Hardy–Weinberg expectation, and theta is the least
// squares solution via QR. Returns ErrNoGenotypes for an empty sample;
// all other failures are reported inside the result.
func EstimateTheta(genotypes []Genotype, withInfo bool) (ThetaEstimate, error) {
	if len(genotypes) == 0 {
		return ThetaEstimate{}, ErrNoGenotypes
	}

	alleleP := make(map[int]float64)
	genotypeP := make(map[Genotype]float64)
	overN := 1.0 / float64(len(genotypes))
	over2N := overN / 2

	for _, g := range genotypes {
		g = g.normalized()
		genotypeP[g] += overN
		if g.homozygous() {
			alleleP[g.A] += overN
		} else {
			alleleP[g.A] += over2N
			alleleP[g.B] += over2N
		}
	}

	unique := make([]Genotype, 0, len(genotypeP))
	for g := range genotypeP {
		unique = append(unique, g)
	}
	sort.Slice(unique, func(i, j int) bool {
		if unique[i].A != unique[j].A {
			return unique[i].A < unique[j].A
		}
		return unique[i].B < unique[j].B
	})

	xs := make([]float64, len(unique))
	ys := make([]float64, len(unique))
	for k, g := range unique {
		if g.homozygous() {
			pi := alleleP[g.A]
			xs[k] = pi - pi*pi
			ys[k] = genotypeP[g] - pi*pi
		} else {
			expected := 2 * alleleP[g.A] * alleleP[g.B]
			xs[k] = -expected
			ys[k] = genotypeP[g] - expected
		}
	}

	est := ThetaEstimate{Err: true, Details: "NA"}
	if withInfo {
		est.Info = buildInfo(unique, xs, ys, alleleP, genotypeP)
	}

	if len(unique) == 1 {
		est.Details = "Only one genotype observed"
		return est, nil
	}

	theta, err := solveLeastSquares(xs, ys)
	if err != nil {
		est.Details = "Could not make QR decomposition"
		return est, nil
	}

	est.Estimate = theta
	if theta >= 0 && theta <= 1 {
		est.Err = false
		est.Details = "OK"
	} else {
		est.Details = "Estimate outside range of (0, 1)"
	}
	return est, nil
}

// EstimateThetaIndividuals fits theta from the stored haplotypes of the
// given individuals, which must all carry 2-locus autosomal genotypes.
func EstimateThetaIndividuals(pop *genealogy.Population, ids []genealogy.ID, withInfo bool) (ThetaEstimate, error) {
	genotypes, err := collectGenotypes(pop, ids)
	if err != nil {
		return ThetaEstimate{}, err
	}
	return EstimateTheta(genotypes, withInfo)
}

// collectGenotypes resolves individuals to their 2-locus genotypes.
func collectGenotypes(pop *genealogy.Population, ids []genealogy.ID) ([]Genotype, error) {
	if len(ids) == 0 {
		return nil, ErrNoGenotypes
	}
	genotypes := make([]Genotype, 0, len(ids))
	for _, id := range ids {
		ind, ok := pop.Individual(id)
		if !ok {
			return nil, fmt.Errorf("collect genotypes: %w: %d", genealogy.ErrUnknownIndividual, id)
		}
		h, err := ind.Haplotype()
		if err != nil {
			return nil, fmt.Errorf("collect genotypes: individual %d: %w", id, err)
		}
		if len(h) != 2 {
			return nil, fmt.Errorf("collect genotypes: individual %d: %w: got %d", id, ErrLocusCount, len(h))
		}
		genotypes = append(genotypes, Genotype{A: h[0], B: h[1]})
	}
	return genotypes, nil
}

// solveLeastSquares minimizes ||x·theta − y||² for the single coefficient
// theta via QR.
func solveLeastSquares(xs, ys []float64) (float64, error) {
	x := mat.NewDense(len(xs), 1, xs)
	y := mat.NewDense(len(ys), 1, ys)

	var qr mat.QR
	qr.Factorize(x)

	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, y); err != nil {
		return 0, fmt.Errorf("qr solve: %w", err)
	}
	return sol.At(0, 0), nil
}

func buildInfo(unique []Genotype, xs, ys []float64, alleleP map[int]float64, genotypeP map[Genotype]float64) *EstimationInfo {
	info := &EstimationInfo{
		X:             append([]float64(nil), xs...),
		Y:             append([]float64(nil), ys...),
		Genotypes:     append([]Genotype(nil), unique...),
		Zygosity:      make([]int, len(unique)),
		GenotypeProbs: make([]float64, len(unique)),
		AlleleProbs:   make([][2]float64, len(unique)),
	}
	for k, g := range unique {
		info.GenotypeProbs[k] = genotypeP[g]
		if g.homozygous() {
			info.Zygosity[k] = 1
			info.AlleleProbs[k] = [2]float64{alleleP[g.A], alleleP[g.A]}
		} else {
			info.Zygosity[k] = 2
			info.AlleleProbs[k] = [2]float64{alleleP[g.A], alleleP[g.B]}
		}
	}

	alleles := make([]int, 0, len(alleleP))
	for a := range alleleP {
		alleles = append(alleles, a)
	}
	sort.Ints(alleles)
	info.Alleles = alleles
	info.AlleleFreqs = make([]float64, len(alleles))
	for i, a := range alleles {
		info.AlleleFreqs[i] = alleleP[a]
	}
	return info
}
