package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"astock-agent/internal/logger"
	"astock-agent/internal/types"
)

var (
	runEnd   string
	runWatch bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every pending session for the enabled agents",
	Long: `Run registers each enabled agent if needed, then replays every trading
session after the last one in its ledger, up to --end (default: end_date).
Agents run concurrently; each one processes its sessions in order.

Examples:
  astock-agent run
  astock-agent run --agent qwen3-max --end 2025-10-31
  astock-agent run --watch`,
	RunE: runAgents,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runEnd, "end", "", "Last session to process (default: end_date)")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Reload price logs when they change on disk")
}

func runAgents(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	agents, err := rt.agents()
	if err != nil {
		return err
	}
	end := runEnd
	if end == "" {
		end = rt.cfg.EndDate
	}

	mem, err := rt.openMemory(ctx)
	if err != nil {
		return err
	}
	if mem != nil {
		defer mem.Close()
	}
	rt.compressOldLogs(ctx)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if runWatch {
		go func() {
			if err := rt.prices.Watch(watchCtx); err != nil {
				logger.Warn(ctx, "Price log watcher stopped", "error", err)
			}
		}()
	}

	results := make([][]*types.SessionResult, len(agents))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range agents {
		i, a := i, a
		eng, err := rt.initializeEngine(ctx, a, mem)
		if err != nil {
			return fmt.Errorf("agent %s: %w", a.Signature, err)
		}
		g.Go(func() error {
			res, err := eng.Run(gctx, end)
			results[i] = res
			if err != nil {
				return fmt.Errorf("agent %s: %w", a.Signature, err)
			}
			return nil
		})
	}
	runErr := g.Wait()

	var all []*types.SessionResult
	for _, r := range results {
		all = append(all, r...)
	}
	if err := printResults(all); err != nil {
		return err
	}
	return runErr
}

func printResults(results []*types.SessionResult) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tSESSION\tSTEPS\tTRADES\tCASH\tPROFIT")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\t%.4f\n", r.Agent, r.Session, r.Steps, len(r.Trades), r.Positions.Cash(), r.Profit)
	}
	return w.Flush()
}
