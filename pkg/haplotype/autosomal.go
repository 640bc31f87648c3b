package haplotype

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/matzehuels/patriline/pkg/genealogy"
	"github.com/matzehuels/patriline/pkg/observability"
	"github.com/matzehuels/patriline/pkg/random"
)

// Sentinel errors for the autosomal model.
var (
	// ErrAlleleDist is returned when the allele distribution is empty or
	// holds values outside [0, 1].
	ErrAlleleDist = errors.New("allele distribution entries must be between 0 and 1")

	// ErrTheta is returned when theta lies outside [0, 1].
	ErrTheta = errors.New("theta must be between 0 and 1")
)

// GenotypeProbs computes the genotype probabilities for a 2-allele draw
// under theta correction, flattened over the lower triangle in row order:
// (0,0), (1,0), (1,1), (2,0), (2,1), (2,2), ...
//
// The allele distribution is normalized internally. For alleles i and j
// with j < i the probabilities are
//
//	P(ii) = θ·p_i + (1−θ)·p_i²
//	P(ij) = (1−θ)·2·p_i·p_j
//
// and the flattened vector sums to 1.
func GenotypeProbs(alleleDist []float64, theta float64) ([]float64, error) {
	ps, err := normalizeDist(alleleDist, theta)
	if err != nil {
		return nil, err
	}

	k := len(ps)
	probs := make([]float64, 0, k*(k+1)/2)
	for i := 0; i < k; i++ {
		for j := 0; j <= i; j++ {
			if i == j {
				probs = append(probs, theta*ps[i]+(1-theta)*ps[i]*ps[i])
			} else {
				probs = append(probs, (1-theta)*2*ps[i]*ps[j])
			}
		}
	}
	return probs, nil
}

// ConditionalCumdist computes, per allele i, the cumulative distribution
// of the partner allele given that one parent contributed i. Row i of the
// returned K×K matrix is the cumulative form of the joint masses
// θ·p_i + (1−θ)·p_i² on the diagonal and (1−θ)·p_i·p_j off it, with each
// row normalized by p_i. The raw matrix is symmetric before
// normalization.
func ConditionalCumdist(alleleDist []float64, theta float64) ([][]float64, error) {
	ps, err := normalizeDist(alleleDist, theta)
	if err != nil {
		return nil, err
	}

	k := len(ps)
	rows := make([][]float64, k)
	for i := range rows {
		rows[i] = make([]float64, k)
	}
	for i := 0; i < k; i++ {
		for j := 0; j <= i; j++ {
			if i == j {
				rows[i][i] = theta*ps[i] + (1-theta)*ps[i]*ps[i]
			} else {
				p := (1 - theta) * ps[i] * ps[j]
				rows[i][j] = p
				rows[j][i] = p
			}
		}
	}

	for i := 0; i < k; i++ {
		acc := 0.0
		for j := 0; j < k; j++ {
			acc += rows[i][j] / ps[i]
			rows[i][j] = acc
		}
		rows[i][k-1] = 1 // guard against rounding in the final entry
	}
	return rows, nil
}

// SampleGenotype draws one genotype (a, b) with a <= b from the theta-
// corrected genotype distribution by inverting a uniform draw against the
// flattened cumulative probabilities.
func SampleGenotype(src random.Source, alleleDist []float64, theta float64) ([2]int, error) {
	probs, err := GenotypeProbs(alleleDist, theta)
	if err != nil {
		return [2]int{}, err
	}
	cum := make([]float64, len(probs))
	acc := 0.0
	for i, p := range probs {
		acc += p
		cum[i] = acc
	}
	cum[len(cum)-1] = 1
	return drawGenotype(src, cum), nil
}

// drawGenotype inverts a uniform draw against the flattened cumulative
// lower triangle and maps the flat index back to its allele pair.
func drawGenotype(src random.Source, cum []float64) [2]int {
	u := src.Unif()
	idx := sort.SearchFloat64s(cum, u)
	if idx == len(cum) {
		idx = len(cum) - 1
	}

	// Flat index k lies in row i of the triangle, column j = k - i(i+1)/2.
	i := 0
	for (i+1)*(i+2)/2 <= idx {
		i++
	}
	j := idx - i*(i+1)/2
	return [2]int{j, i} // j <= i by construction
}

// AutosomalConfig configures 2-locus autosomal propagation.
type AutosomalConfig struct {
	// AlleleDist is the allele distribution; normalized internally.
	AlleleDist []float64

	// Theta is the population-structure correction in [0, 1].
	Theta float64

	// MutationRate is the per-allele index mutation probability in [0, 1].
	MutationRate float64
}

func (c AutosomalConfig) validate() error {
	if _, err := normalizeDist(c.AlleleDist, c.Theta); err != nil {
		return err
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("%w: mutation rate %v", ErrRateRange, c.MutationRate)
	}
	return nil
}

// PopulateAutosomal assigns 2-locus autosomal genotypes in every pedigree.
//
// Founders draw from the theta-corrected genotype distribution. Each
// child takes one allele of its father's pair uniformly as the paternal
// contribution and samples the maternal contribution from the conditional
// distribution given that allele; both allele indices then undergo a
// boundary-forced stepwise mutation over [0, K−1] and are stored sorted.
func PopulateAutosomal(ctx context.Context, src random.Source, pop *genealogy.Population, peds *genealogy.PedigreeList, cfg AutosomalConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	probs, err := GenotypeProbs(cfg.AlleleDist, cfg.Theta)
	if err != nil {
		return err
	}
	founderCum := make([]float64, len(probs))
	acc := 0.0
	for i, p := range probs {
		acc += p
		founderCum[i] = acc
	}
	founderCum[len(founderCum)-1] = 1

	cumdist, err := ConditionalCumdist(cfg.AlleleDist, cfg.Theta)
	if err != nil {
		return err
	}
	k := len(cumdist)

	for _, ped := range peds.All() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("populate autosomal: pedigree %d: %w", ped.ID(), err)
		}

		root, ok := pop.Individual(ped.Root())
		if !ok {
			return fmt.Errorf("populate autosomal: pedigree %d: %w: root %d",
				ped.ID(), genealogy.ErrUnknownIndividual, ped.Root())
		}
		geno := drawGenotype(src, founderCum)
		root.SetHaplotype(geno[:])

		if err := passDownAutosomal(src, pop, root, cumdist, k, cfg.MutationRate); err != nil {
			return fmt.Errorf("populate autosomal: pedigree %d: %w", ped.ID(), err)
		}
		observability.Pedigree().OnPopulate(ctx, ped.ID())
	}
	return nil
}

// passDownAutosomal samples each child's genotype from its father's and
// recurses to the leaves.
func passDownAutosomal(src random.Source, pop *genealogy.Population, parent *genealogy.Individual, cumdist [][]float64, k int, rate float64) error {
	h, err := parent.Haplotype()
	if err != nil {
		return err
	}
	for _, childID := range parent.Children() {
		child, ok := pop.Individual(childID)
		if !ok {
			return fmt.Errorf("%w: child %d", genealogy.ErrUnknownIndividual, childID)
		}

		paternal := h[0]
		if src.Unif() < 0.5 {
			paternal = h[1]
		}
		row := cumdist[paternal]
		u := src.Unif()
		maternal := sort.SearchFloat64s(row, u)
		if maternal == k {
			maternal = k - 1
		}

		a, err := mutateIndex(src, paternal, rate, k-1)
		if err != nil {
			return fmt.Errorf("child %d: %w", childID, err)
		}
		b, err := mutateIndex(src, maternal, rate, k-1)
		if err != nil {
			return fmt.Errorf("child %d: %w", childID, err)
		}
		if b < a {
			a, b = b, a
		}
		child.SetHaplotype([]int{a, b})

		if err := passDownAutosomal(src, pop, child, cumdist, k, rate); err != nil {
			return err
		}
	}
	return nil
}

// mutateIndex applies a boundary-forced stepwise mutation to an allele
// index over [0, max]. A single-allele ladder (max 0) is rejected before
// the mutation draw is consumed, regardless of the rate.
func mutateIndex(src random.Source, idx int, rate float64, max int) (int, error) {
	if max < 1 {
		return 0, fmt.Errorf("%w: single allele", ErrNoLegalStep)
	}
	if src.Unif() >= rate {
		return idx, nil
	}
	switch idx {
	case 0:
		return 1, nil
	case max:
		return max - 1, nil
	}
	if src.Unif() < 0.5 {
		return idx - 1, nil
	}
	return idx + 1, nil
}

// normalizeDist validates the distribution and theta and returns the
// normalized probabilities.
func normalizeDist(alleleDist []float64, theta float64) ([]float64, error) {
	if len(alleleDist) == 0 {
		return nil, fmt.Errorf("%w: empty distribution", ErrAlleleDist)
	}
	if theta < 0 || theta > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrTheta, theta)
	}
	sum := 0.0
	for i, p := range alleleDist {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: entry %d is %v", ErrAlleleDist, i, p)
		}
		sum += p
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: probabilities sum to %v", ErrAlleleDist, sum)
	}
	ps := make([]float64, len(alleleDist))
	for i, p := range alleleDist {
		ps[i] = p / sum
	}
	return ps, nil
}
