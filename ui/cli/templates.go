// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tallyfin/tally/internal/db"
	"github.com/tallyfin/tally/internal/i18n"
	"github.com/tallyfin/tally/internal/model"
	"github.com/tallyfin/tally/internal/recurrence"
)

// templateCmd is the root command for recurring template management.
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage recurring transaction templates",
	Long: `The 'template' command group manages recurring transaction templates:
  - List templates with their schedule and status
  - Add new templates (daily, weekly or monthly)
  - Preview upcoming due dates
  - Pause, resume and delete templates`,
}

// templateListCmd lists all templates of the owner.
var templateListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List recurring templates",
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		tpls, err := db.GetTemplatesByOwner(ownerFromFlags(cmd))
		if err != nil {
			return fmt.Errorf("failed to list templates: %w", err)
		}
		if len(tpls) == 0 {
			fmt.Println(i18n.T("templates.none"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tAMOUNT\tCATEGORY\tPATTERN\tNEXT DUE\tACTIVE\tSYNC")
		for _, t := range tpls {
			active := "yes"
			if !t.IsActive {
				active = "no"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.Kind, t.Amount.StringFixed(2), t.CategoryID, t.Pattern,
				t.NextDueAt.Format("2006-01-02"), active, t.SyncStatus)
		}
		return w.Flush()
	},
}

// templateAddCmd creates a new recurring template.
var templateAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a recurring template",
	Long: `Creates a recurring transaction template. The first due date may lie in
the future or at most a minute in the past; the pattern decides how it
advances afterwards.

Example:
  tally template add --kind expense --amount 12.99 --category cat-entertainment --pattern monthly --due 2025-05-01`,
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		amountStr, _ := cmd.Flags().GetString("amount")
		category, _ := cmd.Flags().GetString("category")
		pattern, _ := cmd.Flags().GetString("pattern")
		dueStr, _ := cmd.Flags().GetString("due")
		paymentMethod, _ := cmd.Flags().GetString("payment-method")
		notes, _ := cmd.Flags().GetString("notes")

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", amountStr, err)
		}
		due, err := parseDate(dueStr)
		if err != nil {
			return fmt.Errorf("invalid due date %q: %w", dueStr, err)
		}

		now := time.Now().UTC()
		tpl := model.RecurringTemplate{
			ID:            uuid.NewString(),
			OwnerID:       ownerFromFlags(cmd),
			Kind:          model.Kind(kind),
			Amount:        amount,
			CategoryID:    category,
			PaymentMethod: paymentMethod,
			Notes:         notes,
			Pattern:       model.Pattern(pattern),
			NextDueAt:     due,
			IsActive:      true,
			SyncStatus:    model.SyncPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tpl.Validate(now); err != nil {
			return err
		}
		if err := db.AddTemplate(tpl); err != nil {
			return fmt.Errorf("%s", i18n.T("templates.error_add", err))
		}
		fmt.Println(i18n.T("templates.added", tpl.ID))
		return nil
	},
}

// templateEditCmd changes a template's descriptive fields. The schedule and
// already materialized transactions are untouched; only future occurrences
// pick up the new values.
var templateEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a template's amount, category, payment method or notes",
	Long: `Changes the given fields of a recurring template. Transactions already
materialized from it keep their original values; the next occurrence
uses the edited ones.

Example:
  tally template edit 4f7c... --amount 14.99 --notes "price increase"`,
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		tpl, err := db.GetTemplate(args[0])
		if err != nil {
			return fmt.Errorf("failed to load template: %w", err)
		}
		if tpl == nil {
			return fmt.Errorf("%s", i18n.T("templates.not_found", args[0]))
		}

		if cmd.Flags().Changed("amount") {
			amountStr, _ := cmd.Flags().GetString("amount")
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amountStr, err)
			}
			tpl.Amount = amount
		}
		if cmd.Flags().Changed("category") {
			tpl.CategoryID, _ = cmd.Flags().GetString("category")
		}
		if cmd.Flags().Changed("payment-method") {
			tpl.PaymentMethod, _ = cmd.Flags().GetString("payment-method")
		}
		if cmd.Flags().Changed("notes") {
			tpl.Notes, _ = cmd.Flags().GetString("notes")
		}

		if err := tpl.ValidateFields(); err != nil {
			return err
		}
		tpl.SyncStatus = model.SyncPending
		tpl.UpdatedAt = time.Now().UTC()
		if err := db.UpdateTemplateFields(*tpl); err != nil {
			return fmt.Errorf("%s", i18n.T("templates.error_update", err))
		}
		fmt.Println(i18n.T("templates.updated", tpl.ID))
		return nil
	},
}

// templatePreviewCmd prints the upcoming due dates of a template.
var templatePreviewCmd = &cobra.Command{
	Use:     "preview <id>",
	Short:   "Preview the next due dates of a template",
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		tpl, err := db.GetTemplate(args[0])
		if err != nil {
			return fmt.Errorf("failed to load template: %w", err)
		}
		if tpl == nil {
			return fmt.Errorf("%s", i18n.T("templates.not_found", args[0]))
		}
		for _, due := range recurrence.FutureDueDates(tpl.NextDueAt, tpl.Pattern, count) {
			fmt.Println(due.Format("2006-01-02"))
		}
		return nil
	},
}

// templatePauseCmd deactivates a template so the scheduler skips it.
var templatePauseCmd = &cobra.Command{
	Use:     "pause <id>",
	Short:   "Pause a template",
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.SetTemplateActive(args[0], false, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to pause template: %w", err)
		}
		fmt.Println(i18n.T("templates.paused", args[0]))
		return nil
	},
}

// templateResumeCmd reactivates a paused template. Missed periods are
// materialized on the next scheduler run.
var templateResumeCmd = &cobra.Command{
	Use:     "resume <id>",
	Short:   "Resume a paused template",
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.SetTemplateActive(args[0], true, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to resume template: %w", err)
		}
		fmt.Println(i18n.T("templates.resumed", args[0]))
		return nil
	},
}

// templateRmCmd deletes a template. Transactions already materialized from
// it are kept.
var templateRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Short:   "Delete a template",
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.DeleteTemplate(args[0]); err != nil {
			return fmt.Errorf("failed to delete template: %w", err)
		}
		fmt.Println(i18n.T("templates.deleted", args[0]))
		return nil
	},
}

// parseDate accepts either a plain date or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if strings.Contains(s, "T") {
		return time.Parse(time.RFC3339, s)
	}
	return time.Parse("2006-01-02", s)
}

func init() {
	templateAddCmd.Flags().String("kind", "expense", `Transaction kind ("income" or "expense")`)
	templateAddCmd.Flags().String("amount", "", "Amount, e.g. 12.99")
	templateAddCmd.Flags().String("category", "", "Category ID, e.g. cat-rent")
	templateAddCmd.Flags().String("pattern", "monthly", `Recurrence pattern ("daily", "weekly", "monthly")`)
	templateAddCmd.Flags().String("due", "", "First due date (YYYY-MM-DD or RFC3339)")
	templateAddCmd.Flags().String("payment-method", "", "Optional payment method")
	templateAddCmd.Flags().String("notes", "", "Optional notes")
	_ = templateAddCmd.MarkFlagRequired("amount")
	_ = templateAddCmd.MarkFlagRequired("category")
	_ = templateAddCmd.MarkFlagRequired("due")

	templateEditCmd.Flags().String("amount", "", "New amount, e.g. 14.99")
	templateEditCmd.Flags().String("category", "", "New category ID")
	templateEditCmd.Flags().String("payment-method", "", "New payment method")
	templateEditCmd.Flags().String("notes", "", "New notes")

	templatePreviewCmd.Flags().Int("count", 5, "Number of upcoming due dates to print")

	templateCmd.AddCommand(
		templateListCmd,
		templateAddCmd,
		templateEditCmd,
		templatePreviewCmd,
		templatePauseCmd,
		templateResumeCmd,
		templateRmCmd,
	)
}
