package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"astock-agent/internal/ledger"
	"astock-agent/internal/profit"
	"astock-agent/internal/prompt"
)

var (
	sessionDate string
	sessionsEnd string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create the ledger of each enabled agent",
	Long: `Register writes the id-0 snapshot (zero of every symbol plus initial_cash)
dated init_date. Agents that already have a ledger are left untouched.`,
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
		for _, l := range ledgers {
			created, err := l.Register(ctx, rt.cfg.Symbols, rt.cfg.InitialCash, rt.cfg.InitDate)
			if err != nil {
				return err
			}
			status := "exists"
			if created {
				status = "registered"
			}
			fmt.Printf("%s\t%s\n", l.Agent(), status)
		}
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List the pending trading sessions of each agent",
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
		end := sessionsEnd
		if end == "" {
			end = rt.cfg.EndDate
		}
		out := map[string][]string{}
		for _, l := range ledgers {
			last := l.LastSessionDate(ctx, rt.cfg.InitDate)
			out[l.Agent()] = rt.calendar.PendingSessions(ctx, last, end)
		}
		if jsonOutput {
			return printJSON(out)
		}
		for _, l := range ledgers {
			fmt.Printf("%s: %d pending\n", l.Agent(), len(out[l.Agent()]))
			for _, s := range out[l.Agent()] {
				fmt.Printf("  %s\n", s)
			}
		}
		return nil
	},
}

var positionCmd = &cobra.Command{
	Use:   "position",
	Short: "Show the opening and latest positions of each agent at --date",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}
		if sessionDate == "" {
			return errors.New("--date is required")
		}
		ledgers, err := rt.ledgers()
		if err != nil {
			return err
		}

		type view struct {
			Agent   string           `json:"signature"`
			Date    string           `json:"date"`
			Opening ledger.Positions `json:"opening"`
			Latest  ledger.Positions `json:"latest"`
			NextID  int              `json:"next_id"`
		}
		var views []view
		for _, l := range ledgers {
			latest, next := l.LatestPosition(ctx, sessionDate)
			views = append(views, view{
				Agent:   l.Agent(),
				Date:    sessionDate,
				Opening: l.InitialPosition(ctx, sessionDate),
				Latest:  latest,
				NextID:  next,
			})
		}
		if jsonOutput {
			return printJSON(views)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "AGENT\tSYMBOL\tOPENING\tLATEST")
		for _, v := range views {
			for _, sym := range append(v.Latest.Symbols(), ledger.CashKey) {
				if v.Latest[sym] == 0 && v.Opening[sym] == 0 && sym != ledger.CashKey {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%v\t%v\n", v.Agent, sym, v.Opening[sym], v.Latest[sym])
			}
		}
		return w.Flush()
	},
}

var profitCmd = &cobra.Command{
	Use:   "profit",
	Short: "Attribute the previous session's profit of each agent at --date",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}
		if sessionDate == "" {
			return errors.New("--date is required")
		}
		ledgers, err := rt.ledgers()
		if err != nil {
			return err
		}
		buy, sell := rt.reader.OpenAndClosePrices(ctx, sessionDate, rt.cfg.Symbols)

		out := map[string]profit.Session{}
		for _, l := range ledgers {
			held := l.InitialPosition(ctx, sessionDate)
			out[l.Agent()] = profit.SessionProfit(buy, sell, held, rt.cfg.Symbols)
		}
		if jsonOutput {
			return printJSON(out)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "AGENT\tSYMBOL\tPROFIT")
		for _, l := range ledgers {
			p := out[l.Agent()]
			for _, sym := range rt.cfg.Symbols {
				if v := p[sym]; v != 0 {
					fmt.Fprintf(w, "%s\t%s\t%.4f\n", l.Agent(), sym, v)
				}
			}
			fmt.Fprintf(w, "%s\tTOTAL\t%.4f\n", l.Agent(), profit.Total(p))
		}
		return w.Flush()
	},
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Render the system prompt an agent would see at --date",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}
		if sessionDate == "" {
			return errors.New("--date is required")
		}
		ledgers, err := rt.ledgers()
		if err != nil {
			return err
		}
		b := rt.builder()
		for _, l := range ledgers {
			sit := b.Build(ctx, l, sessionDate)
			sit.Step = 1
			text, err := prompt.Render(sit)
			if err != nil {
				return err
			}
			fmt.Printf("=== %s @ %s ===\n%s\n", l.Agent(), sessionDate, text)
		}
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the last ledger line of each agent",
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
		var sums []ledger.Summary
		for _, l := range ledgers {
			s, err := l.Summary(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", l.Agent(), err)
				continue
			}
			sums = append(sums, s)
		}
		if jsonOutput {
			return printJSON(sums)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "AGENT\tLATEST\tRECORDS\tCASH\tHOLDINGS")
		for _, s := range sums {
			held := 0
			for _, sym := range s.Positions.Symbols() {
				if s.Positions[sym] != 0 {
					held++
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%d\n", s.Agent, s.LatestDate, s.TotalRecords, s.Positions.Cash(), held)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(registerCmd, sessionsCmd, positionCmd, profitCmd, promptCmd, summaryCmd)

	sessionsCmd.Flags().StringVar(&sessionsEnd, "end", "", "Last session to consider (default: end_date)")
	for _, c := range []*cobra.Command{positionCmd, profitCmd, promptCmd} {
		c.Flags().StringVar(&sessionDate, "date", "", "Session date, YYYY-MM-DD or YYYY-MM-DD HH:MM:SS")
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
