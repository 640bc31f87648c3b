package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/patriline/pkg/genealogy"
	popio "github.com/matzehuels/patriline/pkg/io"
	"github.com/matzehuels/patriline/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output       string
	detailed     bool
	maxPedigrees int
}

func newRenderCmd() *cobra.Command {
	var o renderOpts

	cmd := &cobra.Command{
		Use:   "render <population.json>",
		Short: "Draw pedigrees from an exported population",
		Long: `Render reads a population exported with "simulate --output", rebuilds
its pedigrees and draws them as Graphviz diagrams. The output format is
chosen by the file extension: .dot writes DOT text, .svg renders SVG
in-process.`,
		Example: `  patriline render run.json --output pedigrees.svg
  patriline render run.json --output pedigrees.dot --detailed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), args[0], o)
		},
	}

	cmd.Flags().StringVarP(&o.output, "output", "o", "pedigrees.svg", "output file (.svg or .dot)")
	cmd.Flags().BoolVar(&o.detailed, "detailed", false, "include generation and haplotype in labels")
	cmd.Flags().IntVar(&o.maxPedigrees, "max-pedigrees", 0, "draw only the N largest pedigrees (0 = all)")

	return cmd
}

func runRender(ctx context.Context, input string, o renderOpts) error {
	logger := loggerFromContext(ctx)

	pop, err := popio.ImportPopulation(input)
	if err != nil {
		return err
	}
	peds, err := genealogy.BuildPedigrees(ctx, pop)
	if err != nil {
		return err
	}
	logger.Debug("loaded population", "individuals", pop.Size(), "pedigrees", peds.Count())

	dot := render.ToDOT(pop, peds, render.Options{
		Detailed:     o.detailed,
		MaxPedigrees: o.maxPedigrees,
	})

	var data []byte
	switch {
	case strings.HasSuffix(o.output, ".dot"):
		data = []byte(dot)
	case strings.HasSuffix(o.output, ".svg"):
		timer := startStage(logger, "render")
		data, err = render.RenderSVG(dot)
		if err != nil {
			return err
		}
		timer.done("Rendered SVG")
	default:
		return fmt.Errorf("unsupported output format: %s (use .svg or .dot)", o.output)
	}

	if err := os.WriteFile(o.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", o.output, err)
	}
	printSuccess("Wrote %s (%d pedigrees)", o.output, peds.Count())
	return nil
}
