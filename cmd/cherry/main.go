// Package main provides the CLI entry point for cherry-go.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vishalbelsare/cherry-go/cmd/cherry/commands"
)

var (
	version = "0.3.0"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cherry",
	Short: "cherry - deep reinforcement learning agents",
	Long: `cherry trains and evaluates deep reinforcement learning agents.

It provides:
  - DQN and double DQN with experience replay and frame stacking
  - REINFORCE and actor-critic policy gradients
  - Built-in cartpole and catch environments
  - A SQLite run store with checkpoints and score charts`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(commands.TrainCmd)
	rootCmd.AddCommand(commands.PlayCmd)
	rootCmd.AddCommand(commands.RunsCmd)
	rootCmd.AddCommand(commands.PlotCmd)
}
