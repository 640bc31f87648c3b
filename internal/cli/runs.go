package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/patriline/pkg/runstore"
)

// openRunStore opens the configured run store: MongoDB when a URI is
// given, otherwise the local file store.
func openRunStore(ctx context.Context, mongoURI string) (runstore.Store, error) {
	if mongoURI != "" {
		return runstore.NewMongoStore(ctx, runstore.MongoConfig{URI: mongoURI})
	}
	return runstore.NewFileStore("")
}

// newRunsCmd creates the run-history command group.
func newRunsCmd() *cobra.Command {
	var mongoURI string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved run summaries",
	}
	cmd.PersistentFlags().StringVar(&mongoURI, "mongo", "", "MongoDB URI for a shared run store")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openRunStore(ctx, mongoURI)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			recs, err := store.List(ctx)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				printDetail("No saved runs")
				return nil
			}
			for _, rec := range recs {
				fmt.Printf("%s  %s  %s individuals, %s pedigrees\n",
					StyleNumber.Render(rec.ID),
					StyleDim.Render(rec.CreatedAt.Format("2006-01-02 15:04")),
					StyleNumber.Render(fmt.Sprintf("%d", rec.Individuals)),
					StyleNumber.Render(fmt.Sprintf("%d", rec.Pedigrees)))
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openRunStore(ctx, mongoURI)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			rec, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(StyleTitle.Render("Run " + rec.ID))
			fmt.Printf("  %s %s\n", StyleDim.Render("created:"), rec.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("  %s %d\n", StyleDim.Render("individuals:"), rec.Individuals)
			fmt.Printf("  %s %d\n", StyleDim.Render("generations:"), rec.Generations)
			fmt.Printf("  %s %d\n", StyleDim.Render("founders:"), rec.Founders)
			fmt.Printf("  %s %d\n", StyleDim.Render("pedigrees:"), rec.Pedigrees)
			fmt.Printf("  %s %s\n", StyleDim.Render("population:"), rec.PopulationHash)
			if rec.ThetaEstimate != nil {
				fmt.Printf("  %s %.6f\n", StyleDim.Render("theta:"), *rec.ThetaEstimate)
			}
			if len(rec.Options) > 0 {
				fmt.Printf("  %s %s\n", StyleDim.Render("options:"), string(rec.Options))
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openRunStore(ctx, mongoURI)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			if err := store.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted run %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}
