// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tallyfin/tally/internal/alert"
	"github.com/tallyfin/tally/internal/db"
	"github.com/tallyfin/tally/internal/i18n"
)

// alertsCmd evaluates the owner's budgets against actual spending and
// prints every crossed threshold.
var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show budgets that are near or over their limit",
	Long: `Checks every budget of the owner against the expenses booked in that
budget's month. A warning fires when spending reaches the warn
threshold (80% by default); an exceeded alert fires when spending
passes the limit.`,
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		warnPercent, _ := cmd.Flags().GetInt("warn-percent")

		ev := alert.NewEvaluator(db.GetStore())
		if warnPercent > 0 {
			ev = ev.WithWarnPercent(decimal.NewFromInt(int64(warnPercent)))
		}
		alerts, err := ev.EvaluateOwner(ownerFromFlags(cmd), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to evaluate budgets: %w", err)
		}
		if len(alerts) == 0 {
			fmt.Println(i18n.T("alerts.none"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LEVEL\tCATEGORY\tMONTH\tSPENT\tLIMIT\tUSED")
		for _, a := range alerts {
			fmt.Fprintf(w, "%s\t%s\t%04d-%02d\t%s\t%s\t%s%%\n",
				a.Level, a.CategoryID, a.Year, a.Month,
				a.Spent.StringFixed(2), a.Limit.StringFixed(2), a.PercentUsed.StringFixed(0))
		}
		return w.Flush()
	},
}

func init() {
	alertsCmd.Flags().Int("warn-percent", 0, "Warn threshold in percent (default 80)")
}
