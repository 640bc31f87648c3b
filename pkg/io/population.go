// Package io serializes populations for caching, export and re-import.
//
// The JSON format records each individual with its ID, generation, father
// and explicit child order, so a round trip reproduces traversal order
// exactly; pedigree assignments are not stored and must be rebuilt with
// genealogy.BuildPedigrees after import.
package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/patriline/pkg/genealogy"
)

type populationJSON struct {
	Individuals []individualJSON `json:"individuals"`
}

type individualJSON struct {
	ID         int    `json:"id"`
	Generation int    `json:"generation"`
	Father     int    `json:"father,omitempty"`
	Children   []int  `json:"children,omitempty"`
	Haplotype  *[]int `json:"haplotype,omitempty"`
	Mutated    bool   `json:"haplotype_mutated,omitempty"`
}

// toWire converts a population to its serializable form.
func toWire(pop *genealogy.Population) (populationJSON, error) {
	out := populationJSON{Individuals: make([]individualJSON, 0, pop.Size())}
	for _, ind := range pop.All() {
		rec := individualJSON{
			ID:         int(ind.ID()),
			Generation: ind.Generation(),
			Father:     int(ind.Father()),
			Mutated:    ind.HaplotypeMutated(),
		}
		for _, c := range ind.Children() {
			rec.Children = append(rec.Children, int(c))
		}
		if ind.HaplotypeSet() {
			h, err := ind.Haplotype()
			if err != nil {
				return populationJSON{}, fmt.Errorf("marshal population: individual %d: %w", ind.ID(), err)
			}
			rec.Haplotype = &h
		}
		out.Individuals = append(out.Individuals, rec)
	}
	return out, nil
}

// MarshalPopulation encodes a population as JSON bytes.
func MarshalPopulation(pop *genealogy.Population) ([]byte, error) {
	wire, err := toWire(pop)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire)
}

// WritePopulation encodes a population as indented JSON to w.
func WritePopulation(pop *genealogy.Population, w io.Writer) error {
	wire, err := toWire(pop)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(wire); err != nil {
		return fmt.Errorf("encode population: %w", err)
	}
	return nil
}

// UnmarshalPopulation rebuilds a population from MarshalPopulation output.
// Individuals must be recorded in ID order starting at 1; child order is
// restored exactly as serialized.
func UnmarshalPopulation(data []byte) (*genealogy.Population, error) {
	var in populationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode population: %w", err)
	}

	pop := genealogy.NewPopulation()
	for i, rec := range in.Individuals {
		if rec.ID != i+1 {
			return nil, fmt.Errorf("decode population: individual %d out of order (index %d)", rec.ID, i)
		}
		pop.NewIndividual(rec.Generation)
	}

	// Link children in their serialized order; Link fills in the father.
	for _, rec := range in.Individuals {
		parent, _ := pop.Individual(genealogy.ID(rec.ID))
		for _, childID := range rec.Children {
			child, ok := pop.Individual(genealogy.ID(childID))
			if !ok {
				return nil, fmt.Errorf("decode population: individual %d lists unknown child %d", rec.ID, childID)
			}
			pop.Link(child, parent)
		}
	}

	for _, rec := range in.Individuals {
		ind, _ := pop.Individual(genealogy.ID(rec.ID))
		if rec.Father != int(ind.Father()) {
			return nil, fmt.Errorf("decode population: individual %d father %d does not match child lists", rec.ID, rec.Father)
		}
		if rec.Haplotype != nil {
			ind.SetHaplotype(*rec.Haplotype)
			if rec.Mutated {
				if err := ind.MutateHaplotype(func([]int) error { return nil }); err != nil {
					return nil, fmt.Errorf("decode population: individual %d: %w", rec.ID, err)
				}
			}
		}
	}
	return pop, nil
}

// ReadPopulation decodes a population from r.
func ReadPopulation(r io.Reader) (*genealogy.Population, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return UnmarshalPopulation(data)
}

// ExportPopulation writes a population to a JSON file at path.
func ExportPopulation(pop *genealogy.Population, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WritePopulation(pop, f)
}

// ImportPopulation reads a population from a JSON file at path.
func ImportPopulation(path string) (*genealogy.Population, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadPopulation(f)
}
