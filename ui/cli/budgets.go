// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tallyfin/tally/internal/db"
	"github.com/tallyfin/tally/internal/i18n"
	"github.com/tallyfin/tally/internal/model"
)

// budgetCmd is the root command for budget management.
var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage monthly category budgets",
	Long: `The 'budget' command group manages monthly spending caps:
  - List budgets with limit and month
  - Set a budget for a category and month (creates or updates)
  - Delete budgets

Each owner can hold at most one budget per category and month.`,
}

// budgetListCmd lists all budgets of the owner.
var budgetListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List budgets",
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		budgets, err := db.GetBudgetsByOwner(ownerFromFlags(cmd))
		if err != nil {
			return fmt.Errorf("failed to list budgets: %w", err)
		}
		if len(budgets) == 0 {
			fmt.Println(i18n.T("budgets.none"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCATEGORY\tLIMIT\tMONTH\tSYNC")
		for _, b := range budgets {
			fmt.Fprintf(w, "%s\t%s\t%s\t%04d-%02d\t%s\n",
				b.ID, b.CategoryID, b.MonthlyLimit.StringFixed(2), b.Year, b.Month, b.SyncStatus)
		}
		return w.Flush()
	},
}

// budgetSetCmd creates a budget for a category/month slot, or updates the
// limit when the slot is already budgeted.
var budgetSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the budget for a category and month",
	Long: `Creates the budget for the given category and month, or updates its
limit if one already exists. Month and year default to the current month.

Example:
  tally budget set --category cat-groceries --limit 450 --month 5 --year 2025`,
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		limitStr, _ := cmd.Flags().GetString("limit")
		month, _ := cmd.Flags().GetInt("month")
		year, _ := cmd.Flags().GetInt("year")

		limit, err := decimal.NewFromString(limitStr)
		if err != nil {
			return fmt.Errorf("invalid limit %q: %w", limitStr, err)
		}

		now := time.Now().UTC()
		if month == 0 {
			month = int(now.Month())
		}
		if year == 0 {
			year = now.Year()
		}

		owner := ownerFromFlags(cmd)
		b := model.Budget{
			ID:           uuid.NewString(),
			OwnerID:      owner,
			CategoryID:   category,
			MonthlyLimit: limit,
			Month:        month,
			Year:         year,
			SyncStatus:   model.SyncPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		// Validate before either path; the update path must not let an
		// out-of-range limit through.
		if err := b.Validate(); err != nil {
			return err
		}

		existing, err := db.FindBudget(owner, category, month, year)
		if err != nil {
			return fmt.Errorf("failed to look up budget: %w", err)
		}
		if existing != nil {
			if err := db.UpdateBudgetLimit(existing.ID, limit, now); err != nil {
				return fmt.Errorf("%s", i18n.T("budgets.error_set", err))
			}
			fmt.Println(i18n.T("budgets.updated", existing.ID))
			return nil
		}

		if err := db.AddBudget(b); err != nil {
			return fmt.Errorf("%s", i18n.T("budgets.error_set", err))
		}
		fmt.Println(i18n.T("budgets.added", b.ID))
		return nil
	},
}

// budgetRmCmd deletes a budget.
var budgetRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Short:   "Delete a budget",
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.DeleteBudget(args[0]); err != nil {
			return fmt.Errorf("failed to delete budget: %w", err)
		}
		fmt.Println(i18n.T("budgets.deleted", args[0]))
		return nil
	},
}

func init() {
	budgetSetCmd.Flags().String("category", "", "Category ID, e.g. cat-groceries")
	budgetSetCmd.Flags().String("limit", "", "Monthly limit, e.g. 450")
	budgetSetCmd.Flags().Int("month", 0, "Month (1-12), defaults to the current month")
	budgetSetCmd.Flags().Int("year", 0, "Year, defaults to the current year")
	_ = budgetSetCmd.MarkFlagRequired("category")
	_ = budgetSetCmd.MarkFlagRequired("limit")

	budgetCmd.AddCommand(
		budgetListCmd,
		budgetSetCmd,
		budgetRmCmd,
	)
}
