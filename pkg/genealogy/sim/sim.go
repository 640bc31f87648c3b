// Package sim generates Wright–Fisher-style patrilineal genealogies.
//
// Each child in a generation samples its father from the slots of the
// next-older generation; a father is allocated lazily the first time one
// of his children picks his slot. Two samplers are provided: [Sample]
// picks fathers uniformly, and [SampleVariance] weights the slots with
// normalized Gamma draws to inflate the variance in the number of
// children per father.
//
// Simulations run for a fixed number of generations, or with
// [UntilOneFounder] until the youngest generation coalesces into a single
// paternal founder. All randomness flows through the injected
// [random.Source], so a fixed seed reproduces a run exactly.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/matzehuels/patriline/pkg/genealogy"
	"github.com/matzehuels/patriline/pkg/observability"
	"github.com/matzehuels/patriline/pkg/random"
	"github.com/matzehuels/patriline/pkg/tables"
)

// UntilOneFounder directs the sampler to keep simulating generations
// until only one distinct father is selected in a step.
const UntilOneFounder = -1

// Sentinel errors for sampler options.
var (
	// ErrPopulationSize is returned when the population size is not at least 2.
	ErrPopulationSize = errors.New("population size must be greater than 1")

	// ErrGenerations is returned when the generation count is neither
	// positive nor UntilOneFounder.
	ErrGenerations = errors.New("generations must be positive or UntilOneFounder")

	// ErrGammaParams is returned when the gamma shape or scale is not positive.
	ErrGammaParams = errors.New("gamma shape and scale must be positive")
)

// Options configures a genealogy simulation.
type Options struct {
	// PopulationSize is the number of slots per generation. Must be > 1.
	PopulationSize int

	// Generations is the number of generation layers to simulate
	// (including generation 0), or UntilOneFounder.
	Generations int

	// Verbose requests the per-generation ID tables in the result.
	Verbose bool

	// KeepGenerations records individuals with generation at most this
	// bound in Result.Kept. Negative disables the recording.
	KeepGenerations int

	// GammaShape and GammaScale parameterize the paternal fitness draws.
	// Used by SampleVariance only; both must be positive there.
	GammaShape float64
	GammaScale float64
}

func (o Options) validate() error {
	if o.PopulationSize <= 1 {
		return fmt.Errorf("%w: got %d", ErrPopulationSize, o.PopulationSize)
	}
	if o.Generations == 0 || o.Generations < UntilOneFounder {
		return fmt.Errorf("%w: got %d", ErrGenerations, o.Generations)
	}
	return nil
}

func (o Options) validateGamma() error {
	if o.GammaShape <= 0 || o.GammaScale <= 0 {
		return fmt.Errorf("%w: shape %v, scale %v", ErrGammaParams, o.GammaShape, o.GammaScale)
	}
	return nil
}

// Tables holds the verbose per-generation output. Each table has one row
// per population slot and one column per simulated generation layer;
// unused cells hold [tables.NA].
type Tables struct {
	// IndividualIDs maps (slot, generation) to the ID allocated there.
	IndividualIDs *tables.Table

	// FatherIDs maps (child slot, generation) to the child's father's ID.
	FatherIDs *tables.Table

	// FatherIndices maps (child slot, generation) to the 1-based slot
	// index of the child's father in the next generation.
	FatherIndices *tables.Table
}

// Result is the outcome of a simulation.
type Result struct {
	// Population owns every individual created by the run.
	Population *genealogy.Population

	// GenerationsRun is the number of generation layers simulated,
	// generation 0 included.
	GenerationsRun int

	// FoundersLeft is the number of distinct fathers allocated in the
	// oldest simulated generation; equal to the population size when no
	// father generation was simulated.
	FoundersLeft int

	// EndGeneration lists the generation-0 individuals in slot order.
	EndGeneration []genealogy.ID

	// Kept lists the individuals retained per Options.KeepGenerations,
	// in allocation order.
	Kept []genealogy.ID

	// Tables holds the verbose output; nil unless Options.Verbose.
	Tables *Tables
}

// fatherPicker abstracts the per-child father slot choice so that the
// uniform and variance samplers share one generation loop.
type fatherPicker interface {
	// nextGeneration is called once before each father generation.
	nextGeneration() error

	// pick returns the father slot index for one child.
	pick() int
}

// uniformPicker selects father slots uniformly.
type uniformPicker struct {
	src random.Source
	m   int
}

func (u *uniformPicker) nextGeneration() error { return nil }
func (u *uniformPicker) pick() int             { return u.src.IntN(u.m) }

// gammaPicker draws a fitness weight per slot from Gamma(shape, scale),
// normalizes to probabilities and inverts uniform draws against the
// cumulative distribution. The cumulative vector is ascending regardless
// of the weight order, so a binary search replaces the linear scan over
// the descending-sorted probabilities without changing the distribution.
type gammaPicker struct {
	src          random.Source
	m            int
	shape, scale float64
	perm         []int
	cum          []float64
}

func (g *gammaPicker) nextGeneration() error {
	weights := make([]float64, g.m)
	total := 0.0
	for i := range weights {
		weights[i] = g.src.Gamma(g.shape, g.scale)
		total += weights[i]
	}
	if total <= 0 {
		return fmt.Errorf("%w: gamma draws sum to %v", ErrGammaParams, total)
	}

	perm := make([]int, g.m)
	for i := range perm {
		perm[i] = i
	}
	sort.Slice(perm, func(a, b int) bool { return weights[perm[a]] > weights[perm[b]] })

	cum := make([]float64, g.m)
	acc := 0.0
	for i, slot := range perm {
		acc += weights[slot] / total
		cum[i] = acc
	}
	cum[g.m-1] = 1 // guard against rounding in the final entry

	g.perm = perm
	g.cum = cum
	return nil
}

func (g *gammaPicker) pick() int {
	u := g.src.Unif()
	j := sort.SearchFloat64s(g.cum, u)
	if j == g.m {
		j = g.m - 1
	}
	return g.perm[j]
}

// Sample simulates a genealogy with uniform father selection.
//
// The context is consulted between generations; on cancellation the run
// fails with the context error and the partially built population is
// dropped. Returns ErrPopulationSize or ErrGenerations on bad options.
func Sample(ctx context.Context, src random.Source, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return run(ctx, opts, &uniformPicker{src: src, m: opts.PopulationSize})
}

// SampleVariance simulates a genealogy with gamma-weighted father
// selection, increasing the variance of the number of children per
// father. Otherwise behaves like [Sample].
func SampleVariance(ctx context.Context, src random.Source, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := opts.validateGamma(); err != nil {
		return nil, err
	}
	picker := &gammaPicker{
		src:   src,
		m:     opts.PopulationSize,
		shape: opts.GammaShape,
		scale: opts.GammaScale,
	}
	return run(ctx, opts, picker)
}

func run(ctx context.Context, opts Options, picker fatherPicker) (*Result, error) {
	start := time.Now()
	fixed := opts.Generations != UntilOneFounder
	m := opts.PopulationSize

	observability.Simulation().OnSimulationStart(ctx, m, opts.Generations)

	pop := genealogy.NewPopulation()
	res := &Result{Population: pop}

	var iCols, fCols, idxCols [][]int

	// Generation 0.
	children := make([]*genealogy.Individual, m)
	iCol := naColumn(m)
	for i := range children {
		ind := pop.NewIndividual(0)
		children[i] = ind
		res.EndGeneration = append(res.EndGeneration, ind.ID())
		if opts.KeepGenerations >= 0 {
			res.Kept = append(res.Kept, ind.ID())
		}
		iCol[i] = int(ind.ID())
	}
	iCols = append(iCols, iCol)

	fathers := make([]*genealogy.Individual, m)
	foundersLeft := m

	generation := 1
	for (fixed && generation < opts.Generations) || (!fixed && foundersLeft > 1) {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("sample genealogy: generation %d: %w", generation, err)
			observability.Simulation().OnSimulationComplete(ctx, generation, pop.Size(), time.Since(start), err)
			return nil, err
		}
		if err := picker.nextGeneration(); err != nil {
			observability.Simulation().OnSimulationComplete(ctx, generation, pop.Size(), time.Since(start), err)
			return nil, err
		}

		for i := range fathers {
			fathers[i] = nil
		}
		iCol = naColumn(m)
		fCol := naColumn(m)
		idxCol := naColumn(m)

		newFounders := 0
		for i, child := range children {
			// A slot is empty when no child picked it as a father in the
			// previous step; the father slots become the next children.
			if child == nil {
				continue
			}

			slot := picker.pick()
			if fathers[slot] == nil {
				father := pop.NewIndividual(generation)
				fathers[slot] = father
				iCol[slot] = int(father.ID())
				newFounders++
				if opts.KeepGenerations >= 0 && generation <= opts.KeepGenerations {
					res.Kept = append(res.Kept, father.ID())
				}
			}
			fCol[i] = int(fathers[slot].ID())
			idxCol[i] = slot + 1
			pop.Link(child, fathers[slot])
		}

		iCols = append(iCols, iCol)
		fCols = append(fCols, fCol)
		idxCols = append(idxCols, idxCol)

		copy(children, fathers)
		foundersLeft = newFounders
		generation++
		observability.Simulation().OnGeneration(ctx, generation, foundersLeft)
	}

	res.GenerationsRun = generation
	res.FoundersLeft = foundersLeft

	if opts.Verbose {
		// Pad the father tables with a trailing missing column: the oldest
		// generation has no fathers, but all three tables share one width.
		fCols = append(fCols, naColumn(m))
		idxCols = append(idxCols, naColumn(m))

		tabs, err := buildTables(iCols, fCols, idxCols)
		if err != nil {
			err = fmt.Errorf("sample genealogy: %w", err)
			observability.Simulation().OnSimulationComplete(ctx, generation, pop.Size(), time.Since(start), err)
			return nil, err
		}
		res.Tables = tabs
	}

	observability.Simulation().OnSimulationComplete(ctx, generation, pop.Size(), time.Since(start), nil)
	return res, nil
}

func naColumn(m int) []int {
	col := make([]int, m)
	for i := range col {
		col[i] = tables.NA
	}
	return col
}

func buildTables(iCols, fCols, idxCols [][]int) (*Tables, error) {
	individuals, err := tables.FromColumns(iCols)
	if err != nil {
		return nil, err
	}
	fathersTab, err := tables.FromColumns(fCols)
	if err != nil {
		return nil, err
	}
	indices, err := tables.FromColumns(idxCols)
	if err != nil {
		return nil, err
	}
	return &Tables{
		IndividualIDs: individuals,
		FatherIDs:     fathersTab,
		FatherIndices: indices,
	}, nil
}
