// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package sync

import (
	"context"
	"fmt"

	"github.com/tallyfin/tally/internal/db"
	"github.com/tallyfin/tally/internal/logging"
	"github.com/tallyfin/tally/internal/model"
)

// Remote is the backend surface the synchronizer needs. The HTTP client in
// internal/remote implements it; tests substitute fakes.
type Remote interface {
	FetchTemplates(ctx context.Context, ownerID string) ([]model.RecurringTemplate, error)
	PushTemplates(ctx context.Context, ownerID string, tpls []model.RecurringTemplate) error
	FetchBudgets(ctx context.Context, ownerID string) ([]model.Budget, error)
	PushBudgets(ctx context.Context, ownerID string, budgets []model.Budget) error
}

// Report summarizes one sync pass.
type Report struct {
	TemplatesMerged int
	TemplatesPushed int
	BudgetsMerged   int
	BudgetsPushed   int
	// PushErr records a failed upload. The merge is already committed at
	// that point and is never rolled back; pending records simply stay
	// pending for the next pass.
	PushErr error
}

// Synchronizer runs the fetch/merge/push cycle for one owner.
type Synchronizer struct {
	store  db.Store
	remote Remote
}

// New creates a Synchronizer over the given store and backend.
func New(store db.Store, remote Remote) *Synchronizer {
	return &Synchronizer{store: store, remote: remote}
}

// Sync fetches the remote record sets, merges them into the local store by
// last write wins, then pushes any still-pending local records. A fetch or
// merge failure aborts with an error; a push failure is reported but leaves
// the committed merge in place.
func (s *Synchronizer) Sync(ctx context.Context, ownerID string) (Report, error) {
	var report Report

	remoteTpls, err := s.remote.FetchTemplates(ctx, ownerID)
	if err != nil {
		return report, fmt.Errorf("failed to fetch remote templates: %w", err)
	}
	localTpls, err := s.store.GetTemplatesByOwner(ownerID)
	if err != nil {
		return report, fmt.Errorf("failed to load local templates: %w", err)
	}
	mergedTpls := MergeTemplates(localTpls, remoteTpls)
	if err := s.store.ReplaceTemplates(ownerID, mergedTpls); err != nil {
		return report, fmt.Errorf("failed to store merged templates: %w", err)
	}
	report.TemplatesMerged = len(mergedTpls)

	remoteBudgets, err := s.remote.FetchBudgets(ctx, ownerID)
	if err != nil {
		return report, fmt.Errorf("failed to fetch remote budgets: %w", err)
	}
	localBudgets, err := s.store.GetBudgetsByOwner(ownerID)
	if err != nil {
		return report, fmt.Errorf("failed to load local budgets: %w", err)
	}
	mergedBudgets := MergeBudgets(localBudgets, remoteBudgets)
	if err := s.store.ReplaceBudgets(ownerID, mergedBudgets); err != nil {
		return report, fmt.Errorf("failed to store merged budgets: %w", err)
	}
	report.BudgetsMerged = len(mergedBudgets)

	report.PushErr = s.pushPending(ctx, ownerID, &report)
	if report.PushErr != nil {
		logging.Warnf("sync: push for %s failed, records stay pending: %v", ownerID, report.PushErr)
	}
	logging.Debugf("sync: owner %s merged templates=%d budgets=%d pushed templates=%d budgets=%d",
		ownerID, report.TemplatesMerged, report.BudgetsMerged, report.TemplatesPushed, report.BudgetsPushed)
	return report, nil
}

func (s *Synchronizer) pushPending(ctx context.Context, ownerID string, report *Report) error {
	pendingTpls, err := s.store.GetTemplatesPendingUpload(ownerID)
	if err != nil {
		return fmt.Errorf("failed to load pending templates: %w", err)
	}
	if len(pendingTpls) > 0 {
		if err := s.remote.PushTemplates(ctx, ownerID, pendingTpls); err != nil {
			return fmt.Errorf("failed to push templates: %w", err)
		}
		ids := make([]string, len(pendingTpls))
		for i, tpl := range pendingTpls {
			ids[i] = tpl.ID
		}
		if err := s.store.MarkTemplatesSynced(ids); err != nil {
			return fmt.Errorf("failed to mark templates synced: %w", err)
		}
		report.TemplatesPushed = len(ids)
	}

	pendingBudgets, err := s.store.GetBudgetsPendingUpload(ownerID)
	if err != nil {
		return fmt.Errorf("failed to load pending budgets: %w", err)
	}
	if len(pendingBudgets) > 0 {
		if err := s.remote.PushBudgets(ctx, ownerID, pendingBudgets); err != nil {
			return fmt.Errorf("failed to push budgets: %w", err)
		}
		ids := make([]string, len(pendingBudgets))
		for i, b := range pendingBudgets {
			ids[i] = b.ID
		}
		if err := s.store.MarkBudgetsSynced(ids); err != nil {
			return fmt.Errorf("failed to mark budgets synced: %w", err)
		}
		report.BudgetsPushed = len(ids)
	}
	return nil
}
