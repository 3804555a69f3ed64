package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/churchfinance/ledger-go/internal/api"
)

var (
	flagDashboardYear int
	flagProvinceID    int
	flagFrom          string
	flagTo            string
)

func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show total receipts, expenses and net",
		Long: `Show the all-time totals. With --year, the totals for that year are
fetched alongside and shown as a second row.`,
		Args: cobra.NoArgs,
		RunE: runDashboard,
	}

	cmd.Flags().IntVar(&flagDashboardYear, "year", 0, "also show the report for this year")

	return cmd
}

func newStatementCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Show a province's transactions over a date range",
		Args:  cobra.NoArgs,
		RunE:  runStatement,
	}

	cmd.Flags().IntVar(&flagProvinceID, "province", 0, "province id")
	cmd.Flags().StringVar(&flagFrom, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&flagTo, "to", "", "last day, YYYY-MM-DD")

	if err := cmd.MarkFlagRequired("province"); err != nil {
		panic(err)
	}

	return cmd
}

// dashboardRow is one line of `dashboard` output.
type dashboardRow struct {
	Period  string               `json:"period"`
	Summary api.DashboardSummary `json:"summary"`
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	if flagDashboardYear < 0 {
		return fmt.Errorf("invalid year %d", flagDashboardYear)
	}

	ctx := cmd.Context()

	return withApp(ctx, func(a *app) error {
		views := []view{viewDashboard}
		if flagDashboardYear > 0 {
			views = append(views, viewReports)
		}

		if err := a.authorize(ctx, views...); err != nil {
			return err
		}

		rows, err := fetchDashboard(ctx, a, flagDashboardYear)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(os.Stdout, rows)
		}

		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			table = append(table, []string{
				r.Period,
				formatMoney(r.Summary.TotalReceipts),
				formatMoney(r.Summary.TotalExpenses),
				formatSigned(r.Summary.Net),
			})
		}

		return printTable(os.Stdout, []string{"PERIOD", "RECEIPTS", "EXPENSES", "NET"}, table)
	})
}

// fetchDashboard loads the all-time summary and, when year > 0, the summary
// for that year. The two requests are independent and run in parallel.
func fetchDashboard(ctx context.Context, a *app, year int) ([]dashboardRow, error) {
	rows := []dashboardRow{{Period: "all time"}}
	if year > 0 {
		rows = append(rows, dashboardRow{Period: strconv.Itoa(year)})
	}

	years := []int{0, year}

	g, gctx := errgroup.WithContext(ctx)

	for i := range rows {
		g.Go(func() error {
			s, err := load[api.DashboardSummary](gctx, a, a.paths.Dashboard(years[i]))
			if err != nil {
				return fmt.Errorf("%s: %w", rows[i].Period, err)
			}

			if s != nil {
				rows[i].Summary = *s
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return rows, nil
}

func runStatement(cmd *cobra.Command, _ []string) error {
	from, to, err := parseRange(flagFrom, flagTo)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	return withApp(ctx, func(a *app) error {
		if err := a.authorize(ctx, viewProvinceStatement); err != nil {
			return err
		}

		key := a.paths.ProvinceStatement(flagProvinceID, from, to)
		if key == "" {
			return fmt.Errorf("invalid province id %d", flagProvinceID)
		}

		st, err := load[api.ProvinceStatement](ctx, a, key)
		if err != nil {
			return err
		}

		if st == nil {
			return errors.New("the service returned an empty statement")
		}

		if flagJSON {
			return printJSON(os.Stdout, st)
		}

		return printStatement(st)
	})
}

func parseRange(fromStr, toStr string) (from, to api.Date, err error) {
	if fromStr != "" {
		if from, err = api.ParseDate(fromStr); err != nil {
			return from, to, fmt.Errorf("--from: %w", err)
		}
	}

	if toStr != "" {
		if to, err = api.ParseDate(toStr); err != nil {
			return from, to, fmt.Errorf("--to: %w", err)
		}
	}

	if !from.IsZero() && !to.IsZero() && to.Before(from.Time) {
		return from, to, errors.New("--to is before --from")
	}

	return from, to, nil
}

func printStatement(st *api.ProvinceStatement) error {
	fmt.Printf("%s  %s\n\n", st.ProvinceName, st.Period)

	rows := make([][]string, 0, len(st.Transactions))
	for _, l := range st.Transactions {
		rows = append(rows, []string{
			formatDate(l.Date), l.Type, formatMoney(l.Amount), orDash(l.Category), orDash(l.Description),
		})
	}

	if len(rows) > 0 {
		if err := printTable(os.Stdout, []string{"DATE", "TYPE", "AMOUNT", "CATEGORY", "DESCRIPTION"}, rows); err != nil {
			return err
		}

		fmt.Println()
	}

	fmt.Printf("Receipts: %s\n", formatMoney(st.Summary.TotalReceipts))
	fmt.Printf("Expenses: %s\n", formatMoney(st.Summary.TotalExpenses))
	fmt.Printf("Net:      %s\n", formatSigned(st.Summary.NetAmount))

	return nil
}
