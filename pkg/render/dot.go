// Package render draws pedigrees as Graphviz diagrams.
//
// Each pedigree becomes a cluster with its founder at the top and
// father→child edges flowing downward. The DOT output can be rendered to
// SVG in-process via Graphviz.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/patriline/pkg/genealogy"
)

// Options configures pedigree rendering.
type Options struct {
	// Detailed includes generation and haplotype in node labels.
	// When false, only the individual ID is shown.
	Detailed bool

	// MaxPedigrees bounds the number of pedigrees drawn, largest first
	// by member count. Zero draws all of them.
	MaxPedigrees int
}

// ToDOT converts a pedigree partition to Graphviz DOT format.
// Founders are rendered with a filled outline to distinguish them.
func ToDOT(pop *genealogy.Population, peds *genealogy.PedigreeList, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph pedigrees {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontsize=12];\n")
	buf.WriteString("\n")

	drawn := 0
	for _, ped := range largestFirst(peds) {
		if opts.MaxPedigrees > 0 && drawn >= opts.MaxPedigrees {
			break
		}
		drawn++

		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", ped.ID())
		fmt.Fprintf(&buf, "    label=\"pedigree %d\";\n", ped.ID())
		for _, id := range ped.Members() {
			ind, ok := pop.Individual(id)
			if !ok {
				continue
			}
			attrs := []string{fmt.Sprintf("label=%q", label(ind, opts.Detailed))}
			if ind.Father() == 0 {
				attrs = append(attrs, "style=\"rounded,filled\"", "fillcolor=lightgrey")
			}
			fmt.Fprintf(&buf, "    n%d [%s];\n", id, strings.Join(attrs, ", "))
		}
		for _, rel := range ped.Relations() {
			fmt.Fprintf(&buf, "    n%d -> n%d;\n", rel.Parent, rel.Child)
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("}\n")
	return buf.String()
}

func label(ind *genealogy.Individual, detailed bool) string {
	if !detailed {
		return fmt.Sprintf("%d", ind.ID())
	}
	parts := []string{fmt.Sprintf("%d", ind.ID()), fmt.Sprintf("gen: %d", ind.Generation())}
	if h, err := ind.Haplotype(); err == nil {
		parts = append(parts, fmt.Sprintf("hap: %v", h))
	}
	return strings.Join(parts, "\n")
}

// largestFirst orders pedigrees by descending member count, breaking
// ties by ID so the output is deterministic.
func largestFirst(peds *genealogy.PedigreeList) []*genealogy.Pedigree {
	all := peds.All()
	ordered := make([]*genealogy.Pedigree, len(all))
	copy(ordered, all)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0; j-- {
			a, b := ordered[j-1], ordered[j]
			if a.Size() > b.Size() || (a.Size() == b.Size() && a.ID() < b.ID()) {
				break
			}
			ordered[j-1], ordered[j] = b, a
		}
	}
	return ordered
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
