package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/patriline/pkg/popstat"
)

// newEstimateCmd creates the estimate command group.
func newEstimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate population-structure statistics from genotype samples",
	}
	cmd.AddCommand(newEstimateThetaCmd())
	cmd.AddCommand(newEstimateFStatsCmd())
	return cmd
}

// genotypeFile is the JSON input format: a list of [a, b] allele pairs.
type genotypeFile struct {
	Genotypes [][2]int `json:"genotypes"`
}

func readGenotypes(path string) ([]popstat.Genotype, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var in genotypeFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	genotypes := make([]popstat.Genotype, len(in.Genotypes))
	for i, g := range in.Genotypes {
		genotypes[i] = popstat.Genotype{A: g[0], B: g[1]}
	}
	return genotypes, nil
}

func newEstimateThetaCmd() *cobra.Command {
	var withInfo bool

	cmd := &cobra.Command{
		Use:   "theta <genotypes.json>",
		Short: "Estimate theta for one subpopulation",
		Long: `Theta fits Wright's F_ST for a single subpopulation by least squares
over the observed genotype frequencies. The input file holds a JSON
object with a "genotypes" list of [a, b] allele pairs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			genotypes, err := readGenotypes(args[0])
			if err != nil {
				return err
			}

			est, err := popstat.EstimateTheta(genotypes, withInfo)
			if err != nil {
				return err
			}

			if est.Err {
				printError("theta: %s", est.Details)
			} else {
				printSuccess("theta = %.6f", est.Estimate)
			}
			if withInfo && est.Info != nil {
				printDetail("alleles: %v", est.Info.Alleles)
				printDetail("allele freqs: %v", est.Info.AlleleFreqs)
				printDetail("unique genotypes: %d", len(est.Info.Genotypes))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withInfo, "info", false, "print the estimation quantities")
	return cmd
}

func newEstimateFStatsCmd() *cobra.Command {
	var sizes []int

	cmd := &cobra.Command{
		Use:   "fstats <subpop1.json> <subpop2.json> [more...]",
		Short: "Estimate F, theta and f across subpopulations",
		Long: `Fstats computes Weir's estimates of Wright's fixation indices from
one genotype file per subpopulation. Subpopulation sizes default to the
sample sizes; override them with --sizes.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			subpops := make([][]popstat.Genotype, len(args))
			for i, path := range args {
				genotypes, err := readGenotypes(path)
				if err != nil {
					return err
				}
				subpops[i] = genotypes
			}

			if len(sizes) == 0 {
				sizes = make([]int, len(subpops))
				for i, sub := range subpops {
					sizes[i] = len(sub)
				}
			}

			stats, err := popstat.EstimateFStats(subpops, sizes)
			if err != nil {
				return err
			}

			printSuccess("F (F_IT)     = %.6f", stats.F)
			printSuccess("theta (F_ST) = %.6f", stats.Theta)
			printSuccess("f (F_IS)     = %.6f", stats.SmallF)
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&sizes, "sizes", nil, "true subpopulation sizes (defaults to sample sizes)")
	return cmd
}
