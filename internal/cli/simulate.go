package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/patriline/pkg/genealogy"
	popio "github.com/matzehuels/patriline/pkg/io"
	"github.com/matzehuels/patriline/pkg/pipeline"
	"github.com/matzehuels/patriline/pkg/runstore"
)

// simulateOpts holds the command-line flags for the simulate command.
type simulateOpts struct {
	scenario string // TOML scenario file; flags override nothing when set

	variant         string
	populationSize  int
	generations     int
	seed            uint64
	keepGenerations int
	gammaShape      float64
	gammaScale      float64

	model         string
	mutationRates []float64
	ladderMin     []int
	ladderMax     []int
	alleleDist    []float64
	theta         float64
	mutationRate  float64

	estimateTheta bool
	showTables    bool
	distFocal     int
	output        string
	save          bool
	noCache       bool
	refresh       bool
	tui           bool
}

func newSimulateCmd() *cobra.Command {
	var o simulateOpts

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a patrilineal genealogy and analyze its pedigrees",
		Long: `Simulate runs the full pipeline: sample a Wright-Fisher genealogy,
partition it into pedigrees, optionally propagate haplotypes, and
optionally estimate theta over the end generation.

Use --scenario to load the configuration from a TOML file instead of
flags. Passing --generations -1 simulates until a single founder
remains.`,
		Example: `  patriline simulate --population-size 1000 --generations -1
  patriline simulate --variant variance --gamma-shape 5 --gamma-scale 0.2
  patriline simulate --model ystr --mutation-rates 0.003,0.004 --output run.json
  patriline simulate --scenario experiment.toml --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, o)
		},
	}

	cmd.Flags().StringVar(&o.scenario, "scenario", "", "TOML scenario file (overrides the other flags)")
	cmd.Flags().StringVar(&o.variant, "variant", pipeline.VariantUniform, "sampler variant: uniform or variance")
	cmd.Flags().IntVarP(&o.populationSize, "population-size", "n", pipeline.DefaultPopulationSize, "population slots per generation")
	cmd.Flags().IntVarP(&o.generations, "generations", "g", pipeline.GenerationsUntilOneFounder, "generations to simulate (-1 until one founder)")
	cmd.Flags().Uint64Var(&o.seed, "seed", pipeline.DefaultSeed, "random seed")
	cmd.Flags().IntVar(&o.keepGenerations, "keep-generations", pipeline.DefaultKeepGenerations, "keep individuals of generations 0 through this index in the result")
	cmd.Flags().Float64Var(&o.gammaShape, "gamma-shape", 0, "gamma shape for the variance sampler")
	cmd.Flags().Float64Var(&o.gammaScale, "gamma-scale", 0, "gamma scale for the variance sampler")

	cmd.Flags().StringVar(&o.model, "model", pipeline.ModelNone, "haplotype model: none, ystr, ladder, autosomal")
	cmd.Flags().Float64SliceVar(&o.mutationRates, "mutation-rates", nil, "per-locus mutation rates for ystr/ladder")
	cmd.Flags().IntSliceVar(&o.ladderMin, "ladder-min", nil, "per-locus ladder minima")
	cmd.Flags().IntSliceVar(&o.ladderMax, "ladder-max", nil, "per-locus ladder maxima")
	cmd.Flags().Float64SliceVar(&o.alleleDist, "allele-dist", nil, "allele distribution for the autosomal model")
	cmd.Flags().Float64Var(&o.theta, "theta", 0, "theta correction for the autosomal model")
	cmd.Flags().Float64Var(&o.mutationRate, "mutation-rate", 0, "mutation rate for the autosomal model")

	cmd.Flags().BoolVar(&o.estimateTheta, "estimate-theta", false, "estimate theta over the end generation (autosomal model)")
	cmd.Flags().BoolVar(&o.showTables, "tables", false, "print the verbose per-generation ID tables")
	cmd.Flags().IntVar(&o.distFocal, "dist", 0, "print the generation×distance histogram for this individual")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "write the population as JSON to this file")
	cmd.Flags().BoolVar(&o.save, "save", false, "save a run summary to the local run store")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "bypass the cache for this run")
	cmd.Flags().BoolVar(&o.tui, "tui", false, "browse the pedigrees interactively after the run")

	return cmd
}

// options assembles the pipeline options from a scenario file or flags.
func (o simulateOpts) options() (pipeline.Options, error) {
	if o.scenario != "" {
		return loadScenario(o.scenario)
	}
	return pipeline.Options{
		Variant:         o.variant,
		PopulationSize:  o.populationSize,
		Generations:     o.generations,
		Seed:            o.seed,
		Verbose:         o.showTables,
		KeepGenerations: o.keepGenerations,
		GammaShape:      o.gammaShape,
		GammaScale:      o.gammaScale,
		Haplotypes: pipeline.HaplotypeOptions{
			Model:         o.model,
			MutationRates: o.mutationRates,
			LadderMin:     o.ladderMin,
			LadderMax:     o.ladderMax,
			AlleleDist:    o.alleleDist,
			Theta:         o.theta,
			MutationRate:  o.mutationRate,
		},
		EstimateTheta: o.estimateTheta,
	}, nil
}

func runSimulate(cmd *cobra.Command, o simulateOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	opts, err := o.options()
	if err != nil {
		return err
	}
	opts.Refresh = o.refresh
	opts.Logger = logger

	resultCache, err := openCache(o.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	runner := pipeline.NewRunner(resultCache, nil, logger)
	defer runner.Close()

	spin := newSpinnerWithContext(ctx, "Simulating genealogy...")
	spin.Start()
	timer := startStage(logger, "simulate")
	result, err := runner.Execute(ctx, opts)
	spin.Stop()
	if err != nil {
		return err
	}
	timer.done("Simulated %d individuals", result.Stats.Individuals)

	printSummary(result)

	if o.showTables && result.Tables != nil {
		result.Tables.IndividualIDs.SetColNames(generationCols(result.GenerationsRun)...)
		fmt.Println(StyleTitle.Render("Individual IDs (slot × generation)"))
		fmt.Println(formatTable(result.Tables.IndividualIDs))
		fmt.Println(StyleTitle.Render("Father IDs"))
		fmt.Println(formatTable(result.Tables.FatherIDs))
		fmt.Println(StyleTitle.Render("Father slot indices (1-based)"))
		fmt.Println(formatTable(result.Tables.FatherIndices))
	}

	if o.distFocal > 0 {
		tab, err := genealogy.MeiosesGenerationDistribution(
			result.Population, result.Pedigrees, genealogy.ID(o.distFocal), -1)
		if err != nil {
			return fmt.Errorf("meioses distribution: %w", err)
		}
		fmt.Println(StyleTitle.Render(fmt.Sprintf("Meioses distribution for individual %d", o.distFocal)))
		fmt.Println(formatTable(tab))
	}

	if o.output != "" {
		if err := popio.ExportPopulation(result.Population, o.output); err != nil {
			return err
		}
		printSuccess("Wrote population to %s", o.output)
	}

	if o.save {
		if err := saveRun(ctx, result, opts); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		printSuccess("Saved run %s", result.RunID)
	}

	if o.tui {
		return runPedigreeBrowser(result)
	}
	return nil
}

// printSummary prints the run summary block.
func printSummary(result *pipeline.Result) {
	fmt.Println(StyleTitle.Render("Simulation summary"))
	line := func(label string, value any) {
		fmt.Printf("  %s %s\n", StyleDim.Render(label+":"), StyleNumber.Render(fmt.Sprintf("%v", value)))
	}
	line("run", result.RunID)
	line("individuals", result.Stats.Individuals)
	line("generations", result.GenerationsRun)
	line("founders left", result.FoundersLeft)
	line("pedigrees", result.Stats.Pedigrees)
	if result.CacheInfo.SimHit {
		printDetail("simulation served from cache")
	}
	if result.Theta != nil {
		if result.Theta.Err {
			printError("theta: %s", result.Theta.Details)
		} else {
			line("theta", fmt.Sprintf("%.4f", result.Theta.Estimate))
		}
	}
}

// generationCols names verbose table columns g0..gN.
func generationCols(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("g%d", i)
	}
	return cols
}

// saveRun writes a run summary to the local file store.
func saveRun(ctx context.Context, result *pipeline.Result, opts pipeline.Options) error {
	store, err := runstore.NewFileStore("")
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	rec := runstore.NewRecord(result.RunID)
	rec.Individuals = result.Stats.Individuals
	rec.Generations = result.GenerationsRun
	rec.Founders = result.FoundersLeft
	rec.Pedigrees = result.Stats.Pedigrees
	rec.PopulationHash = result.PopulationHash
	if result.Theta != nil && !result.Theta.Err {
		est := result.Theta.Estimate
		rec.ThetaEstimate = &est
	}
	if data, err := json.Marshal(opts); err == nil {
		rec.Options = data
	}
	return store.Save(ctx, rec)
}
