package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"astock-agent/internal/eod"
	"astock-agent/internal/eod/eodobs"
	"astock-agent/internal/memory"
	"astock-agent/internal/news"
)

var (
	memoryLimit int
	refreshNews bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write each agent's ledger as a valued CSV report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}
		ledgers, err := rt.ledgers()
		if err != nil {
			return err
		}
		exporter := eodobs.Wrap(eod.NewExporter(rt.cfg.LedgerRoot(), rt.reader))
		paths, err := eod.ExportAll(ctx, exporter, ledgers)
		for _, p := range paths {
			fmt.Println(p)
		}
		return err
	},
}

var sentimentCmd = &cobra.Command{
	Use:   "sentiment [symbol...]",
	Short: "Score recent news headlines for symbols",
	Long: `Sentiment scrapes the configured news sources and scores the headlines
with the keyword analyzer. Without arguments every configured symbol is scored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}
		svc := rt.sentiment()
		if svc == nil {
			return errors.New("news is disabled in the configuration")
		}
		symbols := args
		if len(symbols) == 0 {
			symbols = rt.cfg.Symbols
		}

		var out []news.SymbolSentiment
		for _, sym := range symbols {
			if refreshNews {
				s, err := svc.RefreshSentiment(ctx, sym)
				if err != nil {
					return fmt.Errorf("%s: %w", sym, err)
				}
				out = append(out, s)
				continue
			}
			out = append(out, svc.GetSentiment(ctx, sym))
		}
		if jsonOutput {
			return printJSON(out)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tSENTIMENT\tSCORE\tSIGNAL\tSOURCES")
		for _, s := range out {
			fmt.Fprintf(w, "%s\t%s\t%.3f\t%s\t%d\n", s.Symbol, s.Analysis.Overall, s.Analysis.Score, s.Signal, s.Sources)
		}
		return w.Flush()
	},
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Show recorded decisions and statistics of each agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}
		mem, err := rt.openMemory(ctx)
		if err != nil {
			return err
		}
		if mem == nil {
			return errors.New("memory is disabled in the configuration")
		}
		defer mem.Close()

		agents, err := rt.agents()
		if err != nil {
			return err
		}

		type view struct {
			Stats  memory.Statistics       `json:"statistics"`
			Recent []memory.DecisionRecord `json:"recent"`
		}
		var views []view
		for _, a := range agents {
			st, err := mem.Statistics(ctx, a.Signature)
			if err != nil {
				return err
			}
			recent, err := mem.RecentDecisions(ctx, a.Signature, memoryLimit)
			if err != nil {
				return err
			}
			views = append(views, view{Stats: st, Recent: recent})
		}
		if jsonOutput {
			return printJSON(views)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, v := range views {
			s := v.Stats
			fmt.Fprintf(w, "%s\ttotal %d\tbuys %d\tsells %d\tno_trade %d\trejected %d\tsessions %d (%s..%s)\n",
				s.Agent, s.Total, s.Buys, s.Sells, s.NoTrades, s.Rejected, s.Sessions, s.FirstSeen, s.LastSeen)
			for _, r := range v.Recent {
				fmt.Fprintf(w, "  %s\tstep %d\t%s\t%s\t%v\texecuted=%t\t%s\n", r.Session, r.Step, r.Action, r.Symbol, r.Amount, r.Executed, r.Reason)
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, sentimentCmd, memoryCmd)
	sentimentCmd.Flags().BoolVar(&refreshNews, "refresh", false, "Bypass the cache and report scraping errors")
	memoryCmd.Flags().IntVar(&memoryLimit, "limit", 10, "Recent decisions to show per agent")
}
