package commands

import (
	"fmt"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/vishalbelsare/cherry-go/pkg/cherry"
)

var (
	playModel    string
	playEpisodes int
)

// PlayCmd evaluates a saved model greedily.
var PlayCmd = &cobra.Command{
	Use:   "play",
	Short: "Play episodes with a saved model",
	Long: `Load a checkpoint file and play episodes with the greedy policy.

The agent configuration must match the one the checkpoint was trained with.`,
	Example: `  cherry play --config configs/cartpole.yaml --model checkpoints/dqn-agent-5000.ckpt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		scores, err := cherry.Play(cmd.Context(), cfg, playModel, playEpisodes)
		if err != nil {
			return err
		}

		au := aurora.NewAurora(colorEnabled())
		for i, s := range scores {
			fmt.Printf("Episode %d: %s\n", i+1, au.Yellow(fmt.Sprintf("%.2f", s)))
		}
		if len(scores) > 0 {
			mean, std := stat.MeanStdDev(scores, nil)
			fmt.Printf("Mean score: %s (std %.2f)\n", au.Green(fmt.Sprintf("%.2f", mean)), std)
		}
		return nil
	},
}

func init() {
	PlayCmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file")
	PlayCmd.Flags().StringVarP(&envName, "env", "e", "", "Environment (cartpole, catch)")
	PlayCmd.Flags().StringVarP(&algorithm, "algo", "a", "", "Algorithm the model was trained with")
	PlayCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable coloured output")
	PlayCmd.Flags().StringVarP(&playModel, "model", "m", "", "Checkpoint file (required)")
	PlayCmd.Flags().IntVarP(&playEpisodes, "episodes", "n", 10, "Number of episodes")
	PlayCmd.MarkFlagRequired("model")
}
