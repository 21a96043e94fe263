// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tallyfin/tally/internal/model"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) string {
	t.Helper()
	dsn := "file:test_" + t.Name() + "?mode=memory&cache=shared"
	if err := InitDB("sqlite", dsn); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	return dsn
}

func testTemplate(id, ownerID string, due time.Time) model.RecurringTemplate {
	now := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
	return model.RecurringTemplate{
		ID:         id,
		OwnerID:    ownerID,
		Kind:       model.KindExpense,
		Amount:     decimal.RequireFromString("42.50"),
		CategoryID: "cat-rent",
		Pattern:    model.PatternMonthly,
		NextDueAt:  due,
		IsActive:   true,
		SyncStatus: model.SyncPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestInitDB_Migrations_Applied(t *testing.T) {
	dsn := newTestDB(t)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open sql.DB for inspection: %v", err)
	}
	defer func() { _ = sqlDB.Close() }()

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("failed to query schema_migrations: %v", err)
	}
	if count < 2 {
		t.Fatalf("expected at least 2 applied migrations, got %d", count)
	}

	// The seed migration should have populated categories.
	cats, err := GetAllCategories()
	if err != nil {
		t.Fatalf("GetAllCategories failed: %v", err)
	}
	if len(cats) == 0 {
		t.Fatalf("expected seeded categories, got none")
	}
}

func TestTemplate_RoundTrip(t *testing.T) {
	_ = newTestDB(t)

	due := time.Date(2025, time.March, 31, 12, 0, 0, 0, time.UTC)
	tpl := testTemplate("tpl-1", "owner-1", due)
	tpl.PaymentMethod = "card"
	tpl.Notes = "monthly rent"

	if err := AddTemplate(tpl); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	got, err := GetTemplate("tpl-1")
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if got == nil {
		t.Fatalf("expected template, got nil")
	}
	if !got.Amount.Equal(tpl.Amount) {
		t.Errorf("amount = %s, want %s", got.Amount, tpl.Amount)
	}
	if !got.NextDueAt.Equal(due) {
		t.Errorf("next due = %s, want %s", got.NextDueAt, due)
	}
	if got.PaymentMethod != "card" || got.Notes != "monthly rent" {
		t.Errorf("optional fields not preserved: %+v", got)
	}
	if got.SyncStatus != model.SyncPending {
		t.Errorf("sync status = %s, want pending", got.SyncStatus)
	}

	missing, err := GetTemplate("no-such-id")
	if err != nil {
		t.Fatalf("GetTemplate for missing id errored: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected (nil, nil) for missing template, got %+v", missing)
	}
}

func TestGetActiveTemplatesDueBefore_Filtering(t *testing.T) {
	_ = newTestDB(t)

	now := time.Date(2025, time.April, 10, 9, 0, 0, 0, time.UTC)

	overdue := testTemplate("tpl-overdue", "owner-1", now.AddDate(0, 0, -3))
	dueNow := testTemplate("tpl-due-now", "owner-1", now)
	future := testTemplate("tpl-future", "owner-1", now.AddDate(0, 0, 5))
	paused := testTemplate("tpl-paused", "owner-1", now.AddDate(0, 0, -10))
	paused.IsActive = false
	otherOwner := testTemplate("tpl-other", "owner-2", now.AddDate(0, 0, -1))

	for _, tpl := range []model.RecurringTemplate{overdue, dueNow, future, paused, otherOwner} {
		if err := AddTemplate(tpl); err != nil {
			t.Fatalf("AddTemplate %s failed: %v", tpl.ID, err)
		}
	}

	got, err := GetActiveTemplatesDueBefore("owner-1", now)
	if err != nil {
		t.Fatalf("GetActiveTemplatesDueBefore failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 due templates, got %d", len(got))
	}
	// Oldest due date first.
	if got[0].ID != "tpl-overdue" || got[1].ID != "tpl-due-now" {
		t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestUpdateTemplateSchedule(t *testing.T) {
	_ = newTestDB(t)

	due := time.Date(2025, time.January, 31, 10, 0, 0, 0, time.UTC)
	tpl := testTemplate("tpl-sched", "owner-1", due)
	if err := AddTemplate(tpl); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	next := time.Date(2025, time.February, 28, 10, 0, 0, 0, time.UTC)
	updated := time.Date(2025, time.February, 28, 10, 0, 1, 0, time.UTC)
	if err := UpdateTemplateSchedule("tpl-sched", next, updated); err != nil {
		t.Fatalf("UpdateTemplateSchedule failed: %v", err)
	}

	got, err := GetTemplate("tpl-sched")
	if err != nil || got == nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if !got.NextDueAt.Equal(next) {
		t.Errorf("next due = %s, want %s", got.NextDueAt, next)
	}
	if !got.UpdatedAt.Equal(updated) {
		t.Errorf("updated at = %s, want %s", got.UpdatedAt, updated)
	}

	if err := UpdateTemplateSchedule("no-such-id", next, updated); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows for missing template, got %v", err)
	}
}

func TestSetTemplateActive(t *testing.T) {
	_ = newTestDB(t)

	tpl := testTemplate("tpl-pause", "owner-1", time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC))
	if err := AddTemplate(tpl); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	when := time.Date(2025, time.April, 20, 14, 0, 0, 0, time.UTC)
	if err := SetTemplateActive("tpl-pause", false, when); err != nil {
		t.Fatalf("SetTemplateActive failed: %v", err)
	}
	got, _ := GetTemplate("tpl-pause")
	if got == nil || got.IsActive {
		t.Fatalf("expected paused template, got %+v", got)
	}
}

func TestTemplates_PendingUploadAndMarkSynced(t *testing.T) {
	_ = newTestDB(t)

	a := testTemplate("tpl-a", "owner-1", time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	b := testTemplate("tpl-b", "owner-1", time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC))
	b.SyncStatus = model.SyncSynced
	for _, tpl := range []model.RecurringTemplate{a, b} {
		if err := AddTemplate(tpl); err != nil {
			t.Fatalf("AddTemplate failed: %v", err)
		}
	}

	pending, err := store.GetTemplatesPendingUpload("owner-1")
	if err != nil {
		t.Fatalf("GetTemplatesPendingUpload failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "tpl-a" {
		t.Fatalf("expected only tpl-a pending, got %+v", pending)
	}

	if err := store.MarkTemplatesSynced([]string{"tpl-a"}); err != nil {
		t.Fatalf("MarkTemplatesSynced failed: %v", err)
	}
	got, _ := GetTemplate("tpl-a")
	if got.SyncStatus != model.SyncSynced {
		t.Fatalf("sync status = %s, want synced", got.SyncStatus)
	}
	// Acknowledgement must not advance the conflict clock.
	if !got.UpdatedAt.Equal(a.UpdatedAt) {
		t.Fatalf("updated at changed on mark-synced: %s vs %s", got.UpdatedAt, a.UpdatedAt)
	}
}

func TestReplaceTemplates_SwapsOwnerSet(t *testing.T) {
	_ = newTestDB(t)

	old := testTemplate("tpl-old", "owner-1", time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC))
	keep := testTemplate("tpl-keep", "owner-2", time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC))
	for _, tpl := range []model.RecurringTemplate{old, keep} {
		if err := AddTemplate(tpl); err != nil {
			t.Fatalf("AddTemplate failed: %v", err)
		}
	}

	merged := testTemplate("tpl-new", "owner-1", time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC))
	if err := store.ReplaceTemplates("owner-1", []model.RecurringTemplate{merged}); err != nil {
		t.Fatalf("ReplaceTemplates failed: %v", err)
	}

	mine, err := GetTemplatesByOwner("owner-1")
	if err != nil {
		t.Fatalf("GetTemplatesByOwner failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != "tpl-new" {
		t.Fatalf("expected only tpl-new for owner-1, got %+v", mine)
	}

	// Other owners are untouched.
	theirs, _ := GetTemplatesByOwner("owner-2")
	if len(theirs) != 1 || theirs[0].ID != "tpl-keep" {
		t.Fatalf("owner-2 templates disturbed: %+v", theirs)
	}
}

func TestTransactions_RangeQuery(t *testing.T) {
	_ = newTestDB(t)

	mk := func(id string, date time.Time) model.Transaction {
		return model.Transaction{
			ID:         id,
			OwnerID:    "owner-1",
			Kind:       model.KindExpense,
			Amount:     decimal.RequireFromString("10.00"),
			CategoryID: "cat-groceries",
			Date:       date,
			CreatedAt:  date,
			UpdatedAt:  date,
		}
	}

	march := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	april := time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC)
	for _, tx := range []model.Transaction{mk("tx-march", march), mk("tx-april", april)} {
		if err := InsertTransaction(tx); err != nil {
			t.Fatalf("InsertTransaction failed: %v", err)
		}
	}

	from := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	got, err := GetTransactionsByOwner("owner-1", from, to)
	if err != nil {
		t.Fatalf("GetTransactionsByOwner failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "tx-april" {
		t.Fatalf("expected only tx-april in April window, got %+v", got)
	}
}

func TestTransaction_DuplicateID(t *testing.T) {
	_ = newTestDB(t)

	tx := model.Transaction{
		ID:         "tx-dup",
		OwnerID:    "owner-1",
		Kind:       model.KindExpense,
		Amount:     decimal.RequireFromString("5.00"),
		CategoryID: "cat-misc",
		Date:       time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := InsertTransaction(tx); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := InsertTransaction(tx); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on re-insert, got %v", err)
	}
}

func TestBudget_UniquePerSlot(t *testing.T) {
	_ = newTestDB(t)

	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	b := model.Budget{
		ID:           "bud-1",
		OwnerID:      "owner-1",
		CategoryID:   "cat-groceries",
		MonthlyLimit: decimal.RequireFromString("300"),
		Month:        3,
		Year:         2025,
		SyncStatus:   model.SyncPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := AddBudget(b); err != nil {
		t.Fatalf("AddBudget failed: %v", err)
	}

	dup := b
	dup.ID = "bud-2"
	if err := AddBudget(dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for same slot, got %v", err)
	}

	// A different month is a different slot.
	other := b
	other.ID = "bud-3"
	other.Month = 4
	if err := AddBudget(other); err != nil {
		t.Fatalf("AddBudget for different month failed: %v", err)
	}

	found, err := FindBudget("owner-1", "cat-groceries", 3, 2025)
	if err != nil {
		t.Fatalf("FindBudget failed: %v", err)
	}
	if found == nil || found.ID != "bud-1" {
		t.Fatalf("FindBudget returned %+v, want bud-1", found)
	}

	none, err := FindBudget("owner-1", "cat-groceries", 12, 2025)
	if err != nil {
		t.Fatalf("FindBudget for empty slot errored: %v", err)
	}
	if none != nil {
		t.Fatalf("expected (nil, nil) for empty slot, got %+v", none)
	}
}

func TestUpdateBudgetLimit(t *testing.T) {
	_ = newTestDB(t)

	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	b := model.Budget{
		ID:           "bud-upd",
		OwnerID:      "owner-1",
		CategoryID:   "cat-rent",
		MonthlyLimit: decimal.RequireFromString("900"),
		Month:        3,
		Year:         2025,
		SyncStatus:   model.SyncSynced,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := AddBudget(b); err != nil {
		t.Fatalf("AddBudget failed: %v", err)
	}

	when := now.Add(48 * time.Hour)
	if err := UpdateBudgetLimit("bud-upd", decimal.RequireFromString("950"), when); err != nil {
		t.Fatalf("UpdateBudgetLimit failed: %v", err)
	}
	got, _ := store.GetBudget("bud-upd")
	if got == nil || !got.MonthlyLimit.Equal(decimal.RequireFromString("950")) {
		t.Fatalf("limit not updated: %+v", got)
	}
	if got.SyncStatus != model.SyncPending {
		t.Fatalf("expected budget to be pending after update, got %s", got.SyncStatus)
	}
}

func TestAuditLog_RecordsMutations(t *testing.T) {
	_ = newTestDB(t)

	tpl := testTemplate("tpl-audit", "owner-1", time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC))
	if err := AddTemplate(tpl); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}
	if err := DeleteTemplate("tpl-audit"); err != nil {
		t.Fatalf("DeleteTemplate failed: %v", err)
	}

	entries, err := GetAllAuditLogEntries()
	if err != nil {
		t.Fatalf("GetAllAuditLogEntries failed: %v", err)
	}
	var sawAdd, sawDelete bool
	for _, e := range entries {
		switch e.Action {
		case "ADD_TEMPLATE":
			sawAdd = true
		case "DELETE_TEMPLATE":
			sawDelete = true
		}
	}
	if !sawAdd || !sawDelete {
		t.Fatalf("expected ADD_TEMPLATE and DELETE_TEMPLATE entries, got %+v", entries)
	}
}

func TestBackup_ExportImportRoundTrip(t *testing.T) {
	_ = newTestDB(t)

	tpl := testTemplate("tpl-bk", "owner-1", time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC))
	if err := AddTemplate(tpl); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	backup, err := ExportDataForBackup()
	if err != nil {
		t.Fatalf("ExportDataForBackup failed: %v", err)
	}
	if len(backup.Templates) != 1 {
		t.Fatalf("expected 1 template in backup, got %d", len(backup.Templates))
	}

	// Wipe and restore.
	if err := DeleteTemplate("tpl-bk"); err != nil {
		t.Fatalf("DeleteTemplate failed: %v", err)
	}
	if err := ImportDataFromBackup(backup); err != nil {
		t.Fatalf("ImportDataFromBackup failed: %v", err)
	}

	got, err := GetTemplate("tpl-bk")
	if err != nil {
		t.Fatalf("GetTemplate after restore failed: %v", err)
	}
	if got == nil || !got.Amount.Equal(tpl.Amount) {
		t.Fatalf("restored template mismatch: %+v", got)
	}
}

func TestIntegrateDataFromBackup_SkipsExisting(t *testing.T) {
	_ = newTestDB(t)

	tpl := testTemplate("tpl-int", "owner-1", time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC))
	if err := AddTemplate(tpl); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	backup, err := ExportDataForBackup()
	if err != nil {
		t.Fatalf("ExportDataForBackup failed: %v", err)
	}

	// Integrating the same backup again must not fail or duplicate.
	if err := IntegrateDataFromBackup(backup); err != nil {
		t.Fatalf("IntegrateDataFromBackup failed: %v", err)
	}
	all, _ := GetTemplatesByOwner("owner-1")
	if len(all) != 1 {
		t.Fatalf("expected 1 template after integrate, got %d", len(all))
	}
}
