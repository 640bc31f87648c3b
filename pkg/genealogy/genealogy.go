// Package genealogy provides the core data model for patrilineal
// genealogies: individuals, the population arena that owns them, the
// pedigree partition of the genealogy forest, and tree metrics over
// pedigrees (meiotic distance, lowest-common-ancestor paths, and
// generation histograms).
//
// # Representation
//
// Individuals live in an arena owned by a [Population] and are addressed
// by a stable positive [ID]; father and children links are stored as IDs
// rather than pointers. Traversals carry their own visitor state, so
// queries are re-entrant and never mutate the individuals they visit.
//
// # Invariants
//
// For any individual x with a father f, f's generation is exactly
// x's generation + 1 and x appears in f's child list. Within a pedigree
// the father→children edges form a tree: there is exactly one path
// between any two members, which the distance and path queries exploit.
package genealogy

// ID addresses an individual within its population. IDs are positive and
// assigned monotonically; 0 means "none" (for example, a founder's father).
type ID int

// Individual is a node in the genealogy: one male in one generation,
// linked upward to his father and downward to his children.
//
// Individuals are created by [Population.NewIndividual] and must not be
// copied; all linking goes through the owning population.
type Individual struct {
	id         ID
	generation int
	father     ID
	children   []ID
	pedigreeID int

	haplotype    []int
	haplotypeSet bool
	// haplotypeMut guards against a haplotype being mutated more than once
	// between assignments, which would inflate the per-meiosis rate.
	haplotypeMut bool
}

// ID returns the individual's identifier.
func (ind *Individual) ID() ID { return ind.id }

// Generation returns the individual's generation index. Generation 0 is
// the present; larger values lie further in the past.
func (ind *Individual) Generation() int { return ind.generation }

// Father returns the ID of the individual's father, or 0 for a founder.
func (ind *Individual) Father() ID { return ind.father }

// Children returns the IDs of the individual's children in the order they
// were linked. The returned slice is a read-only view.
func (ind *Individual) Children() []ID { return ind.children }

// PedigreeID returns the pedigree this individual belongs to, or 0 if
// pedigrees have not been built yet.
func (ind *Individual) PedigreeID() int { return ind.pedigreeID }

// PedigreeSet reports whether the individual has been assigned a pedigree.
func (ind *Individual) PedigreeSet() bool { return ind.pedigreeID != 0 }

// HaplotypeSet reports whether a haplotype has been assigned.
func (ind *Individual) HaplotypeSet() bool { return ind.haplotypeSet }

// HaplotypeMutated reports whether the assigned haplotype has already
// been mutated once.
func (ind *Individual) HaplotypeMutated() bool { return ind.haplotypeMut }

// Haplotype returns a copy of the individual's haplotype.
// Returns ErrHaplotypeNotSet if none has been assigned.
func (ind *Individual) Haplotype() ([]int, error) {
	if !ind.haplotypeSet {
		return nil, ErrHaplotypeNotSet
	}
	h := make([]int, len(ind.haplotype))
	copy(h, ind.haplotype)
	return h, nil
}

// SetHaplotype assigns the haplotype, replacing any previous assignment
// and re-arming the single-mutation guard. The slice is copied.
func (ind *Individual) SetHaplotype(h []int) {
	ind.haplotype = make([]int, len(h))
	copy(ind.haplotype, h)
	ind.haplotypeSet = true
	ind.haplotypeMut = false
}

// MutateHaplotype applies mutate to the stored haplotype in place.
// Each assigned haplotype may be mutated at most once: a second call
// without an intervening SetHaplotype returns ErrHaplotypeMutated, and a
// call before any assignment returns ErrHaplotypeNotSet. If mutate
// returns an error the haplotype keeps its (possibly partially mutated)
// state and the guard is not armed, matching a fatal-error unwind.
func (ind *Individual) MutateHaplotype(mutate func(h []int) error) error {
	if !ind.haplotypeSet {
		return ErrHaplotypeNotSet
	}
	if ind.haplotypeMut {
		return ErrHaplotypeMutated
	}
	if err := mutate(ind.haplotype); err != nil {
		return err
	}
	ind.haplotypeMut = true
	return nil
}

// Population owns every individual of one simulation run. It is the
// arena: individuals are allocated here, addressed by ID, and released
// together when the population is garbage collected. A Population is not
// safe for concurrent mutation.
type Population struct {
	individuals []*Individual
}

// NewPopulation creates an empty population.
func NewPopulation() *Population {
	return &Population{}
}

// NewIndividual allocates an individual in the given generation and
// returns it. IDs are assigned monotonically starting at 1.
func (p *Population) NewIndividual(generation int) *Individual {
	ind := &Individual{
		id:         ID(len(p.individuals) + 1),
		generation: generation,
	}
	p.individuals = append(p.individuals, ind)
	return ind
}

// Individual returns the individual with the given ID and true, or nil
// and false if the ID is out of range.
func (p *Population) Individual(id ID) (*Individual, bool) {
	if id < 1 || int(id) > len(p.individuals) {
		return nil, false
	}
	return p.individuals[id-1], true
}

// Link records father as parent of child, appending child to the father's
// child list. Both must belong to this population.
func (p *Population) Link(child, father *Individual) {
	child.father = father.id
	father.children = append(father.children, child.id)
}

// Size returns the number of individuals in the population.
func (p *Population) Size() int { return len(p.individuals) }

// SizeGeneration returns the number of individuals whose generation is at
// most cap. A negative cap disables the bound and counts everyone.
func (p *Population) SizeGeneration(cap int) int {
	n := 0
	for _, ind := range p.individuals {
		if cap >= 0 && ind.generation > cap {
			continue
		}
		n++
	}
	return n
}

// All returns every individual ordered by ID.
func (p *Population) All() []*Individual {
	out := make([]*Individual, len(p.individuals))
	copy(out, p.individuals)
	return out
}
