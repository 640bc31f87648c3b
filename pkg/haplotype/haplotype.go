// Package haplotype propagates per-locus haplotypes through pedigrees.
//
// Two inheritance models are provided. The Y-STR model copies the
// father's haplotype to each child and applies a stepwise ±1 mutation per
// locus at a configurable rate, optionally bounded by a per-locus allele
// ladder. The 2-locus autosomal model draws correlated allele pairs under
// a population-structure theta correction, with bounded index mutation.
//
// Y-STR founders receive their haplotypes from a pluggable [FounderFunc];
// autosomal founders draw from the genotype distribution. Descendants
// inherit top-down from the pedigree root. Each Y-STR child haplotype is
// copied from its father and mutated exactly once, enforced by the
// individual's mutation guard.
package haplotype

import (
	"context"
	"errors"
	"fmt"

	"github.com/matzehuels/patriline/pkg/genealogy"
	"github.com/matzehuels/patriline/pkg/observability"
	"github.com/matzehuels/patriline/pkg/random"
)

// Sentinel errors for haplotype configuration and mutation.
var (
	// ErrRateCount is returned when the number of mutation rates does not
	// match the number of loci.
	ErrRateCount = errors.New("mutation rate count must equal locus count")

	// ErrRateRange is returned when a mutation rate lies outside [0, 1].
	ErrRateRange = errors.New("mutation rate must be between 0 and 1")

	// ErrLadderShape is returned when the ladder bounds do not cover every
	// locus or a minimum exceeds its maximum.
	ErrLadderShape = errors.New("invalid ladder bounds")

	// ErrLadderViolation is returned when an incoming allele lies strictly
	// outside its ladder interval.
	ErrLadderViolation = errors.New("allele outside ladder bounds")

	// ErrNoLegalStep is returned when a mutation must happen but the
	// ladder leaves no legal neighboring allele.
	ErrNoLegalStep = errors.New("no legal mutation step within ladder")
)

// FounderFunc produces the haplotype for a pedigree founder.
// It receives the random source and the founder individual, and returns
// the allele vector to assign.
type FounderFunc func(src random.Source, founder *genealogy.Individual) ([]int, error)

// SingleStepFounder returns a founder generator that starts from a zero
// vector and applies one stepwise mutation pass at the given rates.
func SingleStepFounder(rates []float64) FounderFunc {
	return func(src random.Source, _ *genealogy.Individual) ([]int, error) {
		h := make([]int, len(rates))
		mutateStepwise(src, h, rates)
		return h, nil
	}
}

// FixedFounder returns a founder generator that assigns the same haplotype
// to every founder.
func FixedFounder(h []int) FounderFunc {
	return func(random.Source, *genealogy.Individual) ([]int, error) {
		out := make([]int, len(h))
		copy(out, h)
		return out, nil
	}
}

// LadderFounder returns a founder generator that samples each locus
// uniformly from its ladder interval.
func LadderFounder(min, max []int) FounderFunc {
	return func(src random.Source, _ *genealogy.Individual) ([]int, error) {
		if len(min) != len(max) {
			return nil, fmt.Errorf("%w: %d minima, %d maxima", ErrLadderShape, len(min), len(max))
		}
		h := make([]int, len(min))
		for i := range h {
			if min[i] > max[i] {
				return nil, fmt.Errorf("%w: locus %d has min %d > max %d", ErrLadderShape, i, min[i], max[i])
			}
			h[i] = min[i] + src.IntN(max[i]-min[i]+1)
		}
		return h, nil
	}
}

// Config configures unbounded Y-STR propagation.
type Config struct {
	// MutationRates holds the per-locus mutation probability.
	MutationRates []float64

	// Founder generates founder haplotypes. Defaults to
	// SingleStepFounder(MutationRates).
	Founder FounderFunc
}

func (c Config) validate() error {
	return validateRates(c.MutationRates)
}

// LadderConfig configures ladder-bounded Y-STR propagation.
type LadderConfig struct {
	// MutationRates holds the per-locus mutation probability.
	MutationRates []float64

	// Min and Max bound the legal allele values per locus, inclusive.
	Min, Max []int

	// Founder generates founder haplotypes. Defaults to
	// LadderFounder(Min, Max).
	Founder FounderFunc
}

func (c LadderConfig) validate() error {
	if err := validateRates(c.MutationRates); err != nil {
		return err
	}
	if len(c.Min) != len(c.MutationRates) || len(c.Max) != len(c.MutationRates) {
		return fmt.Errorf("%w: %d rates, %d minima, %d maxima",
			ErrLadderShape, len(c.MutationRates), len(c.Min), len(c.Max))
	}
	for i := range c.Min {
		if c.Min[i] > c.Max[i] {
			return fmt.Errorf("%w: locus %d has min %d > max %d", ErrLadderShape, i, c.Min[i], c.Max[i])
		}
	}
	return nil
}

func validateRates(rates []float64) error {
	if len(rates) == 0 {
		return fmt.Errorf("%w: no rates given", ErrRateCount)
	}
	for i, r := range rates {
		if r < 0 || r > 1 {
			return fmt.Errorf("%w: locus %d has rate %v", ErrRateRange, i, r)
		}
	}
	return nil
}

// mutateStepwise perturbs each locus by ±1 with its configured
// probability, directions equiprobable.
func mutateStepwise(src random.Source, h []int, rates []float64) {
	for loc := range h {
		if src.Unif() >= rates[loc] {
			continue
		}
		if src.Unif() < 0.5 {
			h[loc]--
		} else {
			h[loc]++
		}
	}
}

// mutateLadder perturbs each locus by ±1 with its configured probability,
// forcing the direction at the ladder boundaries. An interval with no
// neighbor (min == max) is rejected before the mutation draw is
// consumed, regardless of the rate. An incoming allele strictly outside
// its interval is a fatal error.
func mutateLadder(src random.Source, h []int, rates []float64, min, max []int) error {
	for loc := range h {
		if min[loc] == max[loc] {
			return fmt.Errorf("%w: locus %d pinned at %d", ErrNoLegalStep, loc, min[loc])
		}
		if h[loc] < min[loc] || h[loc] > max[loc] {
			return fmt.Errorf("%w: locus %d allele %d outside [%d, %d]",
				ErrLadderViolation, loc, h[loc], min[loc], max[loc])
		}
		if src.Unif() >= rates[loc] {
			continue
		}

		switch {
		case h[loc] == min[loc]:
			h[loc]++
		case h[loc] == max[loc]:
			h[loc]--
		default:
			if src.Unif() < 0.5 {
				h[loc]--
			} else {
				h[loc]++
			}
		}
	}
	return nil
}

// PopulateYSTR assigns founder haplotypes and propagates them down every
// pedigree with unbounded stepwise mutation.
//
// The number of loci is determined by the rate vector; founder haplotypes
// must match it. The context is consulted between pedigrees.
func PopulateYSTR(ctx context.Context, src random.Source, pop *genealogy.Population, peds *genealogy.PedigreeList, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	founder := cfg.Founder
	if founder == nil {
		founder = SingleStepFounder(cfg.MutationRates)
	}
	mutate := func(h []int) error {
		if len(h) != len(cfg.MutationRates) {
			return fmt.Errorf("%w: %d loci, %d rates", ErrRateCount, len(h), len(cfg.MutationRates))
		}
		mutateStepwise(src, h, cfg.MutationRates)
		return nil
	}
	return populate(ctx, src, pop, peds, founder, mutate)
}

// PopulateYSTRLadder assigns founder haplotypes and propagates them down
// every pedigree with ladder-bounded stepwise mutation.
func PopulateYSTRLadder(ctx context.Context, src random.Source, pop *genealogy.Population, peds *genealogy.PedigreeList, cfg LadderConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	founder := cfg.Founder
	if founder == nil {
		founder = LadderFounder(cfg.Min, cfg.Max)
	}
	mutate := func(h []int) error {
		if len(h) != len(cfg.MutationRates) {
			return fmt.Errorf("%w: %d loci, %d rates", ErrRateCount, len(h), len(cfg.MutationRates))
		}
		return mutateLadder(src, h, cfg.MutationRates, cfg.Min, cfg.Max)
	}
	return populate(ctx, src, pop, peds, founder, mutate)
}

// populate runs the founder-then-descend flow shared by both Y-STR
// variants. Children copy their father's haplotype and mutate it exactly
// once; the descent is depth-first from the pedigree root.
func populate(ctx context.Context, src random.Source, pop *genealogy.Population, peds *genealogy.PedigreeList, founder FounderFunc, mutate func(h []int) error) error {
	for _, ped := range peds.All() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("populate haplotypes: pedigree %d: %w", ped.ID(), err)
		}

		root, ok := pop.Individual(ped.Root())
		if !ok {
			return fmt.Errorf("populate haplotypes: pedigree %d: %w: root %d",
				ped.ID(), genealogy.ErrUnknownIndividual, ped.Root())
		}
		h, err := founder(src, root)
		if err != nil {
			return fmt.Errorf("populate haplotypes: pedigree %d founder: %w", ped.ID(), err)
		}
		root.SetHaplotype(h)

		if err := passDown(pop, root, mutate); err != nil {
			return fmt.Errorf("populate haplotypes: pedigree %d: %w", ped.ID(), err)
		}
		observability.Pedigree().OnPopulate(ctx, ped.ID())
	}
	return nil
}

// passDown copies each parent's haplotype to its children and mutates the
// copy, recursing to the leaves.
func passDown(pop *genealogy.Population, parent *genealogy.Individual, mutate func(h []int) error) error {
	h, err := parent.Haplotype()
	if err != nil {
		return err
	}
	for _, childID := range parent.Children() {
		child, ok := pop.Individual(childID)
		if !ok {
			return fmt.Errorf("%w: child %d", genealogy.ErrUnknownIndividual, childID)
		}
		child.SetHaplotype(h)
		if err := child.MutateHaplotype(mutate); err != nil {
			return fmt.Errorf("child %d: %w", childID, err)
		}
		if err := passDown(pop, child, mutate); err != nil {
			return err
		}
	}
	return nil
}
