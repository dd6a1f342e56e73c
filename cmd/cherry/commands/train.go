package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"

	"github.com/vishalbelsare/cherry-go/pkg/cherry"
)

var (
	trainDB       string
	trainOut      string
	trainEpisodes int
	trainQuiet    bool
)

// TrainCmd trains an agent.
var TrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train an agent",
	Long: `Train an agent on an environment.

Configuration is read from --config (YAML or JSON) and overridden by flags.
One progress line is printed per episode. Checkpoints are written to the
output directory and, when --db is set, recorded in the run store.`,
	Example: `  cherry train --env cartpole --algo dqn
  cherry train --config configs/catch.yaml --db .data/runs.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if trainDB != "" {
			cfg.Train.DBPath = trainDB
		}
		if trainOut != "" {
			cfg.Train.OutputDir = trainOut
		}
		if trainEpisodes > 0 {
			cfg.Train.Episodes = trainEpisodes
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		au := aurora.NewAurora(colorEnabled())
		fmt.Printf("Training %s on %s for %d episodes\n",
			au.Cyan(cfg.Agent.Algorithm), au.Cyan(cfg.Env.Name), cfg.Train.Episodes)

		opts := cherry.TrainOptions{Color: colorEnabled(), Logger: &logger}
		if !trainQuiet {
			opts.Progress = os.Stdout
		}

		summary, err := cherry.Train(cmd.Context(), cfg, opts)
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(au.Green("Training complete").Bold())
		if summary.RunID != "" {
			fmt.Printf("  Run:        %s\n", summary.RunID)
		}
		fmt.Printf("  Episodes:   %d\n", summary.Episodes)
		fmt.Printf("  Steps:      %d\n", summary.Steps)
		fmt.Printf("  Best score: %s\n", au.Green(fmt.Sprintf("%.2f", summary.BestScore)))
		fmt.Printf("  Mean score: %.2f\n", summary.MeanScore)
		fmt.Printf("  Duration:   %s\n", summary.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	TrainCmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file")
	TrainCmd.Flags().StringVarP(&envName, "env", "e", "", "Environment (cartpole, catch)")
	TrainCmd.Flags().StringVarP(&algorithm, "algo", "a", "", "Algorithm (dqn, double-dqn, reinforce, actor-critic)")
	TrainCmd.Flags().StringVar(&device, "device", "", "Compute device")
	TrainCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level")
	TrainCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable coloured output")
	TrainCmd.Flags().StringVar(&trainDB, "db", "", "SQLite run store path")
	TrainCmd.Flags().StringVarP(&trainOut, "out", "o", "", "Checkpoint output directory")
	TrainCmd.Flags().IntVarP(&trainEpisodes, "episodes", "n", 0, "Number of training episodes")
	TrainCmd.Flags().BoolVarP(&trainQuiet, "quiet", "q", false, "Suppress per-episode progress")
}
