// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallyfin/tally/internal/alert"
	"github.com/tallyfin/tally/internal/db"
	"github.com/tallyfin/tally/internal/i18n"
	"github.com/tallyfin/tally/internal/logging"
	"github.com/tallyfin/tally/internal/remote"
	"github.com/tallyfin/tally/internal/schedule"
	"github.com/tallyfin/tally/internal/stream"
	"github.com/tallyfin/tally/internal/sync"
)

// daemonCmd runs Tally as a long-lived process: due templates are scanned
// periodically, the remote is synced when one is configured, and budget
// alerts are logged as they fire.
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scheduler in the foreground",
	Long: `Runs Tally as a long-lived process. Due recurring templates are
processed on the configured interval, the ledger is synced with the
remote when one is configured, and newly crossed budget thresholds
are logged.

The process runs until it receives SIGINT or SIGTERM.`,
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := ownerFromFlags(cmd)
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		d, err := schedule.NewDaemon()
		if err != nil {
			return err
		}
		d.Start(ctx)

		processInterval := appConfig.Daemon.ProcessInterval
		if processInterval <= 0 {
			processInterval = time.Hour
		}
		job := &schedule.ProcessDueJob{Processor: schedule.NewProcessor(db.GetStore()), OwnerID: owner}
		if err := d.ScheduleEvery("process-due", processInterval, job); err != nil {
			return fmt.Errorf("failed to schedule due-template processing: %w", err)
		}

		if appConfig.Remote.URL != "" {
			syncInterval := appConfig.Daemon.SyncInterval
			if syncInterval <= 0 {
				syncInterval = 15 * time.Minute
			}
			client := remote.NewWithAPIKey(appConfig.Remote.URL, appConfig.Remote.APIKey)
			synchronizer := sync.New(db.GetStore(), client)
			syncJob := &schedule.FuncJob{
				Name: "sync:" + owner,
				Run: func(ctx context.Context) error {
					report, err := synchronizer.Sync(ctx, owner)
					if err != nil {
						return err
					}
					if report.PushErr != nil {
						logging.Warnf("daemon: push failed, records stay pending: %v", report.PushErr)
					}
					return nil
				},
			}
			if err := d.ScheduleEvery("sync", syncInterval, syncJob); err != nil {
				return fmt.Errorf("failed to schedule sync: %w", err)
			}
		}

		go watchBudgetAlerts(ctx, owner)

		fmt.Println(i18n.T("daemon.started", owner))
		<-ctx.Done()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		d.Stop(stopCtx)
		fmt.Println(i18n.T("daemon.stopped"))
		return nil
	},
}

// watchBudgetAlerts polls budget consumption and logs each threshold the
// first time it is crossed. The registry deduplicates; only escalations are
// logged again.
func watchBudgetAlerts(ctx context.Context, owner string) {
	registry := alert.NewRegistry()
	defer registry.Close()

	evaluator := alert.NewEvaluator(db.GetStore())
	snapshots := stream.Watch(ctx, time.Minute, func(ctx context.Context) ([]alert.Alert, error) {
		return evaluator.EvaluateOwner(owner, time.Now().UTC())
	})

	for snap := range snapshots {
		if snap.Err != nil {
			logging.Warnf("daemon: budget evaluation failed: %v", snap.Err)
			continue
		}
		current := make(map[string]bool, len(snap.Value))
		for _, a := range snap.Value {
			current[a.BudgetID] = true
			if registry.Raise(a) {
				logging.Warnf("daemon: budget %s for %s is %s (%s of %s spent)",
					a.BudgetID, a.CategoryID, a.Level, a.Spent.StringFixed(2), a.Limit.StringFixed(2))
			}
		}
		// Drop alerts whose budgets have fallen back under threshold.
		for _, active := range registry.Active() {
			if !current[active.BudgetID] {
				registry.Clear(active.BudgetID)
			}
		}
	}
}
