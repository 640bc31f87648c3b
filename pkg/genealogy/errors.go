package genealogy

import "errors"

// Sentinel errors for genealogy operations.
var (
	// ErrUnknownIndividual is returned when an ID does not resolve to an
	// individual in the population.
	ErrUnknownIndividual = errors.New("unknown individual")

	// ErrPedigreeNotSet is returned by tree queries when an individual has
	// not been assigned to a pedigree yet. Run BuildPedigrees first.
	ErrPedigreeNotSet = errors.New("pedigree not assigned")

	// ErrDifferentPedigrees is returned by PathTo when the two individuals
	// belong to different pedigrees and no connecting path exists.
	ErrDifferentPedigrees = errors.New("individuals in different pedigrees")

	// ErrHaplotypeNotSet is returned when an operation requires a haplotype
	// that has not been assigned.
	ErrHaplotypeNotSet = errors.New("haplotype not set")

	// ErrHaplotypeMutated is returned when a haplotype that has already
	// been mutated once is mutated again without being reassigned.
	ErrHaplotypeMutated = errors.New("haplotype already mutated")
)
