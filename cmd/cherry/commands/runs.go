package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vishalbelsare/cherry-go/pkg/cherry"
)

var (
	runsDB   string
	runsJSON bool
	plotDB   string
	plotRun  string
	plotOut  string
)

// RunsCmd lists recorded training runs.
var RunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List training runs",
	Long:  `List the training runs recorded in a SQLite run store, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := cherry.Runs(cmd.Context(), runsDB)
		if err != nil {
			return err
		}

		if runsJSON {
			output, _ := json.MarshalIndent(runs, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tALGORITHM\tENV\tEPISODES\tBEST\tSTARTED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%s\n",
				r.ID, r.Algorithm, r.Env, r.Episodes, r.BestScore, r.StartedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

// PlotCmd renders the score chart of a run.
var PlotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render the score chart of a run",
	Long: `Render episode scores, their moving average and update losses of a run
as an HTML page. Without --run the most recent run is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Create(plotOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", plotOut, err)
		}
		defer f.Close()

		if err := cherry.Plot(cmd.Context(), plotDB, plotRun, f); err != nil {
			return err
		}
		fmt.Printf("Chart written to %s\n", plotOut)
		return nil
	},
}

func init() {
	RunsCmd.Flags().StringVar(&runsDB, "db", ".data/runs.db", "SQLite run store path")
	RunsCmd.Flags().BoolVar(&runsJSON, "json", false, "Output as JSON")

	PlotCmd.Flags().StringVar(&plotDB, "db", ".data/runs.db", "SQLite run store path")
	PlotCmd.Flags().StringVarP(&plotRun, "run", "r", "", "Run ID")
	PlotCmd.Flags().StringVarP(&plotOut, "out", "o", "scores.html", "Output HTML file")
}
