package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"astock-agent/internal/trace"
)

var (
	configPath string
	agentFlag  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "astock-agent",
	Short: "LLM trading agents over A-share price logs",
	Long: `astock-agent replays recorded A-share sessions to one or more LLM agents.
Each agent keeps an append-only position ledger under the configured log path;
sessions already in a ledger are never replayed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeSystem()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trace.Shutdown(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&agentFlag, "agent", "", "Restrict to one agent signature")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
