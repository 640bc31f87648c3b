package genealogy

import (
	"fmt"
	"slices"
	"sort"

	"github.com/matzehuels/patriline/pkg/tables"
)

// MeiosisDist returns the number of parent-child edges on the unique path
// between a and b in their shared pedigree, or -1 if they belong to
// different pedigrees.
//
// Both individuals must exist and have a pedigree assigned; otherwise
// ErrUnknownIndividual or ErrPedigreeNotSet is returned. The traversal
// keeps its visitor state in a local map, so concurrent read-only queries
// over the same population are safe.
func MeiosisDist(pop *Population, a, b ID) (int, error) {
	from, ok := pop.Individual(a)
	if !ok {
		return 0, fmt.Errorf("meiosis dist: %w: %d", ErrUnknownIndividual, a)
	}
	to, ok := pop.Individual(b)
	if !ok {
		return 0, fmt.Errorf("meiosis dist: %w: %d", ErrUnknownIndividual, b)
	}
	if !from.PedigreeSet() || !to.PedigreeSet() {
		return 0, fmt.Errorf("meiosis dist: %w", ErrPedigreeNotSet)
	}
	if from.PedigreeID() != to.PedigreeID() {
		return -1, nil
	}

	// Breadth-first over father and child edges. The pedigree is a tree,
	// so the first time b is reached the distance is the tree distance.
	dist := map[ID]int{a: 0}
	queue := []*Individual{from}
	for len(queue) > 0 {
		ind := queue[0]
		queue = queue[1:]
		if ind.id == b {
			return dist[ind.id], nil
		}

		d := dist[ind.id]
		neighbors := make([]ID, 0, len(ind.children)+1)
		if ind.father != 0 {
			neighbors = append(neighbors, ind.father)
		}
		neighbors = append(neighbors, ind.children...)
		for _, nb := range neighbors {
			if _, seen := dist[nb]; seen {
				continue
			}
			next, ok := pop.Individual(nb)
			if !ok {
				continue
			}
			dist[nb] = d + 1
			queue = append(queue, next)
		}
	}

	// Unreachable for a well-formed pedigree; same pedigree implies connected.
	return 0, fmt.Errorf("meiosis dist: no path from %d to %d", a, b)
}

// PathTo returns the path between a and b through their lowest common
// ancestor: the LCA first, then the ancestors descending to a, then those
// descending to b. Returns ErrDifferentPedigrees when the individuals are
// not in the same pedigree.
func PathTo(pop *Population, a, b ID) ([]ID, error) {
	from, ok := pop.Individual(a)
	if !ok {
		return nil, fmt.Errorf("path: %w: %d", ErrUnknownIndividual, a)
	}
	to, ok := pop.Individual(b)
	if !ok {
		return nil, fmt.Errorf("path: %w: %d", ErrUnknownIndividual, b)
	}
	if !from.PedigreeSet() || !to.PedigreeSet() {
		return nil, fmt.Errorf("path: %w", ErrPedigreeNotSet)
	}
	if from.PedigreeID() != to.PedigreeID() {
		return nil, fmt.Errorf("path: %w", ErrDifferentPedigrees)
	}

	pathA, err := rootPath(pop, from)
	if err != nil {
		return nil, fmt.Errorf("path to %d: %w", a, err)
	}
	pathB, err := rootPath(pop, to)
	if err != nil {
		return nil, fmt.Errorf("path to %d: %w", b, err)
	}

	// The LCA is the last shared prefix element of the two root paths.
	lca := 0
	for lca < len(pathA) && lca < len(pathB) && pathA[lca] == pathB[lca] {
		lca++
	}
	if lca == 0 {
		return nil, fmt.Errorf("path: no common ancestor of %d and %d", a, b)
	}

	result := []ID{pathA[lca-1]}
	result = append(result, pathA[lca:]...)
	result = append(result, pathB[lca:]...)
	return result, nil
}

// rootPath climbs the father chain from ind and returns the path ordered
// root first. Fathers are unique, so this is the only root path.
func rootPath(pop *Population, ind *Individual) ([]ID, error) {
	var path []ID
	for cur := ind; ; {
		path = append(path, cur.id)
		if cur.father == 0 {
			break
		}
		next, ok := pop.Individual(cur.father)
		if !ok {
			return nil, fmt.Errorf("%w: father %d", ErrUnknownIndividual, cur.father)
		}
		cur = next
	}
	slices.Reverse(path)
	return path, nil
}

// MeiosesGenerationDistribution tabulates, for every member of the focal
// individual's pedigree, the pair (member generation, meiotic distance to
// the focal individual). Members above the generation cap are skipped; a
// negative cap disables the bound.
//
// The result has columns "generation", "meioses", "count" and is sorted
// by (generation, meioses).
func MeiosesGenerationDistribution(pop *Population, peds *PedigreeList, focal ID, cap int) (*tables.Table, error) {
	ind, ok := pop.Individual(focal)
	if !ok {
		return nil, fmt.Errorf("meioses distribution: %w: %d", ErrUnknownIndividual, focal)
	}
	if !ind.PedigreeSet() {
		return nil, fmt.Errorf("meioses distribution: %w", ErrPedigreeNotSet)
	}
	ped, ok := peds.Pedigree(ind.PedigreeID())
	if !ok {
		return nil, fmt.Errorf("meioses distribution: pedigree %d not in list", ind.PedigreeID())
	}

	counts := make(map[int]map[int]int)
	for _, memberID := range ped.Members() {
		member, ok := pop.Individual(memberID)
		if !ok {
			continue
		}
		gen := member.Generation()
		if cap >= 0 && gen > cap {
			continue
		}
		dist, err := MeiosisDist(pop, focal, memberID)
		if err != nil {
			return nil, err
		}
		if counts[gen] == nil {
			counts[gen] = make(map[int]int)
		}
		counts[gen][dist]++
	}

	tab := tables.New(0, 0)
	tab.SetColNames("generation", "meioses", "count")
	gens := make([]int, 0, len(counts))
	for g := range counts {
		gens = append(gens, g)
	}
	sort.Ints(gens)
	for _, g := range gens {
		dists := make([]int, 0, len(counts[g]))
		for d := range counts[g] {
			dists = append(dists, d)
		}
		sort.Ints(dists)
		for _, d := range dists {
			if err := tab.AppendRow([]int{g, d, counts[g][d]}); err != nil {
				return nil, err
			}
		}
	}
	return tab, nil
}

// HaplotypeL1 returns the L1 distance between the haplotypes of a and b.
// Both haplotypes must be set and have the same locus count.
func HaplotypeL1(pop *Population, a, b ID) (int, error) {
	from, ok := pop.Individual(a)
	if !ok {
		return 0, fmt.Errorf("haplotype L1: %w: %d", ErrUnknownIndividual, a)
	}
	to, ok := pop.Individual(b)
	if !ok {
		return 0, fmt.Errorf("haplotype L1: %w: %d", ErrUnknownIndividual, b)
	}
	ha, err := from.Haplotype()
	if err != nil {
		return 0, fmt.Errorf("haplotype L1: individual %d: %w", a, err)
	}
	hb, err := to.Haplotype()
	if err != nil {
		return 0, fmt.Errorf("haplotype L1: individual %d: %w", b, err)
	}
	if len(ha) != len(hb) {
		return 0, fmt.Errorf("haplotype L1: locus count mismatch: %d vs %d", len(ha), len(hb))
	}

	d := 0
	for i := range ha {
		if ha[i] > hb[i] {
			d += ha[i] - hb[i]
		} else {
			d += hb[i] - ha[i]
		}
	}
	return d, nil
}
