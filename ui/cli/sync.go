// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallyfin/tally/internal/db"
	"github.com/tallyfin/tally/internal/i18n"
	"github.com/tallyfin/tally/internal/remote"
	"github.com/tallyfin/tally/internal/sync"
)

// syncCmd merges the local ledger with the configured remote and pushes
// pending local changes.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Merge with the remote ledger and push pending changes",
	Long: `Fetches the owner's templates and budgets from the configured remote,
merges them with the local copies using last-write-wins (the strictly
newer record wins, ties keep the local one), and pushes records still
marked pending.

A failed push leaves the merge committed; the records stay pending and
are pushed on the next sync.`,
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig.Remote.URL == "" {
			return fmt.Errorf("%s", i18n.T("sync.error_no_remote"))
		}
		owner := ownerFromFlags(cmd)
		fmt.Println(i18n.T("sync.starting", appConfig.Remote.URL))

		client := remote.NewWithAPIKey(appConfig.Remote.URL, appConfig.Remote.APIKey)
		report, err := sync.New(db.GetStore(), client).Sync(cmd.Context(), owner)
		if err != nil {
			return fmt.Errorf("%s", i18n.T("sync.error", err))
		}

		fmt.Println(i18n.T("sync.summary",
			report.TemplatesMerged, report.TemplatesPushed,
			report.BudgetsMerged, report.BudgetsPushed))
		if report.PushErr != nil {
			fmt.Println(i18n.T("sync.push_warning", report.PushErr))
		}
		return nil
	},
}
