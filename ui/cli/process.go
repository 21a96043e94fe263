// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallyfin/tally/internal/db"
	"github.com/tallyfin/tally/internal/i18n"
	"github.com/tallyfin/tally/internal/schedule"
)

// processDueCmd scans the owner's active templates and materializes every
// due occurrence. Safe to run repeatedly; already materialized occurrences
// are skipped.
var processDueCmd = &cobra.Command{
	Use:   "process-due",
	Short: "Materialize transactions for all due recurring templates",
	Long: `Scans the owner's active templates and creates a transaction for every
due occurrence, advancing each template's schedule past the current time.
Templates whose stored fields no longer validate are deactivated.

The scan is idempotent: re-running it creates no duplicates.`,
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := ownerFromFlags(cmd)
		fmt.Println(i18n.T("process.starting", owner))

		summary, err := schedule.NewProcessor(db.GetStore()).ProcessDueTemplates(owner)
		if err != nil {
			return fmt.Errorf("%s", i18n.T("process.error", err))
		}

		for _, r := range summary.Results {
			switch r.Outcome {
			case schedule.OutcomeFatal:
				fmt.Println(i18n.T("process.fatal", r.TemplateID, r.Err))
			case schedule.OutcomeRetry:
				fmt.Println(i18n.T("process.retry", r.TemplateID, r.Err))
			}
		}
		fmt.Println(i18n.T("process.summary", summary.Scanned, summary.Created, summary.Retries, summary.Fatals))
		return nil
	},
}
