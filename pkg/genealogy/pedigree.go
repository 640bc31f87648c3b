package genealogy

import (
	"context"
	"fmt"

	"github.com/matzehuels/patriline/pkg/observability"
)

// Relation is one directed parent→child edge of a pedigree tree.
type Relation struct {
	Parent ID
	Child  ID
}

// Pedigree is one weakly connected component of the genealogy: the set of
// individuals reachable from each other through father and child links.
// Under the patrilineal model its edges form a tree. A pedigree holds
// non-owning IDs into its population; it becomes invalid when the
// population is discarded.
type Pedigree struct {
	id        int
	root      ID
	members   []ID
	relations []Relation
}

// ID returns the pedigree's identifier (1-based, stable per build).
func (ped *Pedigree) ID() int { return ped.id }

// Root returns the pedigree's root: the oldest ancestor reachable upward.
// When a fixed-generation run leaves several founders in the component,
// the founder with the smallest ID is chosen, which is deterministic.
func (ped *Pedigree) Root() ID { return ped.root }

// Members returns the member IDs in traversal order.
// The returned slice is a read-only view.
func (ped *Pedigree) Members() []ID { return ped.members }

// Relations returns every parent→child edge of the pedigree tree, each
// edge exactly once. The returned slice is a read-only view.
func (ped *Pedigree) Relations() []Relation { return ped.relations }

// Size returns the number of members.
func (ped *Pedigree) Size() int { return len(ped.members) }

// SizeGeneration returns the number of members whose generation is at
// most cap. A negative cap disables the bound.
func (ped *Pedigree) SizeGeneration(pop *Population, cap int) int {
	n := 0
	for _, id := range ped.members {
		ind, ok := pop.Individual(id)
		if !ok {
			continue
		}
		if cap >= 0 && ind.Generation() > cap {
			continue
		}
		n++
	}
	return n
}

// PedigreeList is the result of partitioning a population into pedigrees.
type PedigreeList struct {
	pedigrees []*Pedigree
}

// All returns the pedigrees ordered by ID.
func (pl *PedigreeList) All() []*Pedigree { return pl.pedigrees }

// Count returns the number of pedigrees.
func (pl *PedigreeList) Count() int { return len(pl.pedigrees) }

// Pedigree returns the pedigree with the given 1-based ID and true, or
// nil and false if out of range.
func (pl *PedigreeList) Pedigree(id int) (*Pedigree, bool) {
	if id < 1 || id > len(pl.pedigrees) {
		return nil, false
	}
	return pl.pedigrees[id-1], true
}

// BuildPedigrees partitions the population into pedigrees by flood-filling
// each weakly connected component through father and child links.
//
// Any previous assignment is cleared first, so the operation is
// idempotent: building twice yields the same partition, pedigree IDs
// included, because individuals are visited in ID order. Every individual
// ends up in exactly one pedigree.
//
// The context is consulted between components; on cancellation the
// partially assigned state is discarded and the context error returned.
func BuildPedigrees(ctx context.Context, pop *Population) (*PedigreeList, error) {
	for _, ind := range pop.individuals {
		ind.pedigreeID = 0
	}

	list := &PedigreeList{}
	for _, ind := range pop.individuals {
		if ind.PedigreeSet() {
			continue
		}
		if err := ctx.Err(); err != nil {
			for _, reset := range pop.individuals {
				reset.pedigreeID = 0
			}
			return nil, fmt.Errorf("build pedigrees: %w", err)
		}

		ped := &Pedigree{id: len(list.pedigrees) + 1}
		fill(pop, ped, ind)
		ped.root = pickRoot(pop, ped)
		list.pedigrees = append(list.pedigrees, ped)
		observability.Pedigree().OnPedigree(ctx, ped.id, ped.Size())
	}
	return list, nil
}

// fill assigns every individual weakly connected to start into ped,
// recording each parent→child edge once: edges to children are recorded
// when their parent is first assigned.
func fill(pop *Population, ped *Pedigree, start *Individual) {
	stack := []*Individual{start}
	for len(stack) > 0 {
		ind := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if ind.PedigreeSet() {
			continue
		}
		ind.pedigreeID = ped.id
		ped.members = append(ped.members, ind.id)

		if ind.father != 0 {
			if father, ok := pop.Individual(ind.father); ok && !father.PedigreeSet() {
				stack = append(stack, father)
			}
		}
		for _, childID := range ind.children {
			ped.relations = append(ped.relations, Relation{Parent: ind.id, Child: childID})
			if child, ok := pop.Individual(childID); ok && !child.PedigreeSet() {
				stack = append(stack, child)
			}
		}
	}
}

// pickRoot returns the fatherless member with the smallest ID. Sampled to
// a single founder there is exactly one candidate; under a fixed
// generation count several founders can share the oldest generation.
func pickRoot(pop *Population, ped *Pedigree) ID {
	root := ID(0)
	for _, id := range ped.members {
		ind, ok := pop.Individual(id)
		if !ok || ind.father != 0 {
			continue
		}
		if root == 0 || id < root {
			root = id
		}
	}
	return root
}
