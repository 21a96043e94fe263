// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallyfin/tally/internal/db"
	"github.com/tallyfin/tally/internal/i18n"
	"github.com/tallyfin/tally/internal/report"
)

// reportCmd is the root command for spending reports.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Spending reports and summaries",
	Long: `The 'report' command group summarizes the ledger:
  - spend: expense totals per category for one month
  - balance: income vs expense for one month
  - trend: monthly balances over the last N months`,
}

// reportMonthFlags resolves the --month/--year pair, defaulting to the
// current calendar month.
func reportMonthFlags(cmd *cobra.Command) (int, int) {
	month, _ := cmd.Flags().GetInt("month")
	year, _ := cmd.Flags().GetInt("year")
	now := time.Now().UTC()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	return month, year
}

// reportSpendCmd prints per-category expense totals for one month.
var reportSpendCmd = &cobra.Command{
	Use:     "spend",
	Short:   "Expense totals per category",
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		month, year := reportMonthFlags(cmd)
		spends, err := report.SpendByCategory(db.GetStore(), ownerFromFlags(cmd), month, year)
		if err != nil {
			return fmt.Errorf("failed to compute spend report: %w", err)
		}
		if len(spends) == 0 {
			fmt.Println(i18n.T("report.no_data"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tSPENT")
		for _, s := range spends {
			fmt.Fprintf(w, "%s\t%s\n", s.CategoryID, s.Total.StringFixed(2))
		}
		return w.Flush()
	},
}

// reportBalanceCmd prints the income/expense balance for one month.
var reportBalanceCmd = &cobra.Command{
	Use:     "balance",
	Short:   "Income vs expense for one month",
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		month, year := reportMonthFlags(cmd)
		bal, err := report.IncomeVsExpense(db.GetStore(), ownerFromFlags(cmd), month, year)
		if err != nil {
			return fmt.Errorf("failed to compute balance: %w", err)
		}
		fmt.Printf("%04d-%02d\n", year, month)
		fmt.Printf("  income:  %s\n", bal.Income.StringFixed(2))
		fmt.Printf("  expense: %s\n", bal.Expense.StringFixed(2))
		fmt.Printf("  net:     %s\n", bal.Net.StringFixed(2))
		return nil
	},
}

// reportTrendCmd prints monthly balances over the last N months.
var reportTrendCmd = &cobra.Command{
	Use:     "trend",
	Short:   "Monthly balance trend",
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		months, _ := cmd.Flags().GetInt("months")
		points, err := report.MonthlyTrend(db.GetStore(), ownerFromFlags(cmd), months, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to compute trend: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MONTH\tINCOME\tEXPENSE\tNET")
		for _, p := range points {
			fmt.Fprintf(w, "%04d-%02d\t%s\t%s\t%s\n",
				p.Year, p.Month, p.Income.StringFixed(2), p.Expense.StringFixed(2), p.Net.StringFixed(2))
		}
		return w.Flush()
	},
}

func init() {
	for _, c := range []*cobra.Command{reportSpendCmd, reportBalanceCmd} {
		c.Flags().Int("month", 0, "Month (1-12), defaults to the current month")
		c.Flags().Int("year", 0, "Year, defaults to the current year")
	}
	reportTrendCmd.Flags().Int("months", 6, "Number of months to include")

	reportCmd.AddCommand(
		reportSpendCmd,
		reportBalanceCmd,
		reportTrendCmd,
	)
}
