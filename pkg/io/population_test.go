package io

import (
	"bytes"
	"context"
	"testing"

	"github.com/matzehuels/patriline/pkg/genealogy"
	"github.com/matzehuels/patriline/pkg/genealogy/sim"
	"github.com/matzehuels/patriline/pkg/random"
)

func TestPopulationRoundTrip(t *testing.T) {
	res, err := sim.Sample(context.Background(), random.NewPCG(31), sim.Options{
		PopulationSize: 8,
		Generations:    sim.UntilOneFounder,
	})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	pop := res.Population

	// Attach haplotypes to exercise the haplotype fields.
	for i, ind := range pop.All() {
		ind.SetHaplotype([]int{i, i + 1})
		if i%2 == 0 {
			if err := ind.MutateHaplotype(func(h []int) error { return nil }); err != nil {
				t.Fatalf("mutate: %v", err)
			}
		}
	}

	data, err := MarshalPopulation(pop)
	if err != nil {
		t.Fatalf("MarshalPopulation: %v", err)
	}
	got, err := UnmarshalPopulation(data)
	if err != nil {
		t.Fatalf("UnmarshalPopulation: %v", err)
	}

	if got.Size() != pop.Size() {
		t.Fatalf("size = %d, want %d", got.Size(), pop.Size())
	}
	for i, want := range pop.All() {
		ind := got.All()[i]
		if ind.ID() != want.ID() || ind.Generation() != want.Generation() || ind.Father() != want.Father() {
			t.Fatalf("individual %d differs after round trip", want.ID())
		}
		wc, gc := want.Children(), ind.Children()
		if len(wc) != len(gc) {
			t.Fatalf("individual %d child count differs", want.ID())
		}
		for j := range wc {
			if wc[j] != gc[j] {
				t.Fatalf("individual %d child order differs", want.ID())
			}
		}
		if ind.HaplotypeMutated() != want.HaplotypeMutated() {
			t.Errorf("individual %d mutation flag differs", want.ID())
		}
		wh, _ := want.Haplotype()
		gh, _ := ind.Haplotype()
		for j := range wh {
			if wh[j] != gh[j] {
				t.Errorf("individual %d haplotype differs", want.ID())
			}
		}
	}

	// Pedigree partitions agree after rebuilding.
	wantPeds, _ := genealogy.BuildPedigrees(context.Background(), pop)
	gotPeds, _ := genealogy.BuildPedigrees(context.Background(), got)
	if wantPeds.Count() != gotPeds.Count() {
		t.Errorf("pedigree count = %d, want %d", gotPeds.Count(), wantPeds.Count())
	}
}

func TestWriteReadPopulation(t *testing.T) {
	pop := genealogy.NewPopulation()
	child := pop.NewIndividual(0)
	father := pop.NewIndividual(1)
	pop.Link(child, father)

	var buf bytes.Buffer
	if err := WritePopulation(pop, &buf); err != nil {
		t.Fatalf("WritePopulation: %v", err)
	}
	got, err := ReadPopulation(&buf)
	if err != nil {
		t.Fatalf("ReadPopulation: %v", err)
	}
	if got.Size() != 2 {
		t.Errorf("size = %d, want 2", got.Size())
	}
	ind, _ := got.Individual(child.ID())
	if ind.Father() != father.ID() {
		t.Errorf("father link lost in file round trip")
	}
}

func TestUnmarshalPopulationRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"out of order", `{"individuals":[{"id":2,"generation":0}]}`},
		{"unknown child", `{"individuals":[{"id":1,"generation":1,"children":[9]}]}`},
		{"father mismatch", `{"individuals":[{"id":1,"generation":0,"father":2},{"id":2,"generation":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UnmarshalPopulation([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
