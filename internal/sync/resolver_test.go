// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package sync

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tallyfin/tally/internal/model"
)

func tpl(id string, amount string, updatedMs int64) model.RecurringTemplate {
	return model.RecurringTemplate{
		ID:         id,
		OwnerID:    "owner-1",
		Kind:       model.KindExpense,
		Amount:     decimal.RequireFromString(amount),
		CategoryID: "cat-misc",
		Pattern:    model.PatternMonthly,
		SyncStatus: model.SyncPending,
		UpdatedAt:  time.UnixMilli(updatedMs),
	}
}

func TestMergeTemplates_RemoteStrictlyNewerWins(t *testing.T) {
	local := []model.RecurringTemplate{tpl("tpl-1", "1000", 500)}
	remote := []model.RecurringTemplate{tpl("tpl-1", "2000", 750)}

	merged := MergeTemplates(local, remote)
	if len(merged) != 1 {
		t.Fatalf("merged %d records, want 1", len(merged))
	}
	if !merged[0].Amount.Equal(decimal.RequireFromString("2000")) {
		t.Fatalf("amount = %s, want remote 2000", merged[0].Amount)
	}
	// A remote winner arrives acknowledged.
	if merged[0].SyncStatus != model.SyncSynced {
		t.Fatalf("sync status = %s, want synced", merged[0].SyncStatus)
	}
}

func TestMergeTemplates_TieKeepsLocal(t *testing.T) {
	local := []model.RecurringTemplate{tpl("tpl-1", "500", 500)}
	remote := []model.RecurringTemplate{tpl("tpl-1", "999", 500)}

	merged := MergeTemplates(local, remote)
	if len(merged) != 1 {
		t.Fatalf("merged %d records, want 1", len(merged))
	}
	if !merged[0].Amount.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("amount = %s, want local 500 on tie", merged[0].Amount)
	}
	// The local copy keeps its upload state.
	if merged[0].SyncStatus != model.SyncPending {
		t.Fatalf("sync status = %s, want pending", merged[0].SyncStatus)
	}
}

func TestMergeTemplates_OlderRemoteLoses(t *testing.T) {
	local := []model.RecurringTemplate{tpl("tpl-1", "1000", 900)}
	remote := []model.RecurringTemplate{tpl("tpl-1", "2000", 750)}

	merged := MergeTemplates(local, remote)
	if !merged[0].Amount.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("amount = %s, want local 1000", merged[0].Amount)
	}
}

func TestMergeTemplates_OneSidedRecords(t *testing.T) {
	local := []model.RecurringTemplate{tpl("tpl-local", "10", 100)}
	remote := []model.RecurringTemplate{tpl("tpl-remote", "20", 100)}

	merged := MergeTemplates(local, remote)
	if len(merged) != 2 {
		t.Fatalf("merged %d records, want 2", len(merged))
	}
	// Sorted by ID: tpl-local, tpl-remote.
	if merged[0].ID != "tpl-local" || merged[1].ID != "tpl-remote" {
		t.Fatalf("unexpected merge order: %s, %s", merged[0].ID, merged[1].ID)
	}
	if merged[0].SyncStatus != model.SyncPending {
		t.Errorf("local-only record lost its pending state")
	}
	if merged[1].SyncStatus != model.SyncSynced {
		t.Errorf("remote-only record should arrive synced")
	}
}

func TestMergeBudgets_LastWriteWins(t *testing.T) {
	mk := func(limit string, updatedMs int64) model.Budget {
		return model.Budget{
			ID:           "bud-1",
			OwnerID:      "owner-1",
			CategoryID:   "cat-groceries",
			MonthlyLimit: decimal.RequireFromString(limit),
			Month:        4,
			Year:         2025,
			SyncStatus:   model.SyncPending,
			UpdatedAt:    time.UnixMilli(updatedMs),
		}
	}

	merged := MergeBudgets([]model.Budget{mk("500", 500)}, []model.Budget{mk("750", 2000)})
	if len(merged) != 1 || !merged[0].MonthlyLimit.Equal(decimal.RequireFromString("750")) {
		t.Fatalf("merged = %+v, want remote limit 750", merged)
	}

	merged = MergeBudgets([]model.Budget{mk("500", 2000)}, []model.Budget{mk("750", 2000)})
	if !merged[0].MonthlyLimit.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("tie should keep local 500, got %s", merged[0].MonthlyLimit)
	}
}
