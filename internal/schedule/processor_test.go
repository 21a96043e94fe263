// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tallyfin/tally/internal/db"
	"github.com/tallyfin/tally/internal/model"
)

func newTestStore(t *testing.T) db.Store {
	t.Helper()
	dsn := "file:test_" + t.Name() + "?mode=memory&cache=shared"
	s, err := db.New("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	return s
}

func newTestProcessor(s db.Store, now time.Time) *Processor {
	p := NewProcessor(s)
	p.now = func() time.Time { return now }
	return p
}

func dailyTemplate(id string, due time.Time) model.RecurringTemplate {
	created := due.AddDate(0, 0, -30)
	return model.RecurringTemplate{
		ID:         id,
		OwnerID:    "owner-1",
		Kind:       model.KindExpense,
		Amount:     decimal.RequireFromString("9.99"),
		CategoryID: "cat-subscriptions",
		Pattern:    model.PatternDaily,
		NextDueAt:  due,
		IsActive:   true,
		SyncStatus: model.SyncPending,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestProcessTemplate_CatchUpCreatesEachOccurrence(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)

	// Due three days ago: four occurrences are overdue (including today's).
	tpl := dailyTemplate("tpl-1", now.AddDate(0, 0, -3))
	if err := s.AddTemplate(tpl); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	p := newTestProcessor(s, now)
	res := p.ProcessTemplate(tpl)
	if res.Outcome != OutcomeProcessed {
		t.Fatalf("outcome = %s (%v), want processed", res.Outcome, res.Err)
	}
	if res.Created != 4 {
		t.Fatalf("created = %d, want 4", res.Created)
	}

	txs, err := s.GetTransactionsByOwner("owner-1", now.AddDate(0, 0, -10), now.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("GetTransactionsByOwner failed: %v", err)
	}
	if len(txs) != 4 {
		t.Fatalf("stored %d transactions, want 4", len(txs))
	}
	for _, tx := range txs {
		if tx.TemplateID != "tpl-1" {
			t.Errorf("transaction %s missing provenance", tx.ID)
		}
		if !tx.Amount.Equal(tpl.Amount) {
			t.Errorf("transaction %s amount = %s, want %s", tx.ID, tx.Amount, tpl.Amount)
		}
	}

	got, err := s.GetTemplate("tpl-1")
	if err != nil || got == nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if !got.NextDueAt.After(now) {
		t.Fatalf("schedule not advanced past now: %s", got.NextDueAt)
	}
}

func TestProcessTemplate_RescanIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)

	due := now.AddDate(0, 0, -2)
	tpl := dailyTemplate("tpl-1", due)
	if err := s.AddTemplate(tpl); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	// Simulate a previous run that inserted the first occurrence and crashed
	// before advancing the schedule.
	orphan := tpl.Materialize("tx-orphan", now)
	if err := s.InsertTransaction(orphan); err != nil {
		t.Fatalf("InsertTransaction failed: %v", err)
	}

	p := newTestProcessor(s, now)
	res := p.ProcessTemplate(tpl)
	if res.Outcome != OutcomeProcessed {
		t.Fatalf("outcome = %s (%v), want processed", res.Outcome, res.Err)
	}
	// Three occurrences are overdue; the first already exists.
	if res.Created != 2 {
		t.Fatalf("created = %d, want 2", res.Created)
	}

	txs, err := s.GetTransactionsByOwner("owner-1", now.AddDate(0, 0, -10), now.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("GetTransactionsByOwner failed: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("stored %d transactions, want 3 (no duplicates)", len(txs))
	}
}

func TestProcessTemplate_FatalDeactivates(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)

	tpl := dailyTemplate("tpl-broken", now.AddDate(0, 0, -1))
	tpl.Pattern = "yearly" // not a supported cadence
	if err := s.AddTemplate(tpl); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	p := newTestProcessor(s, now)
	res := p.ProcessTemplate(tpl)
	if res.Outcome != OutcomeFatal {
		t.Fatalf("outcome = %s, want fatal", res.Outcome)
	}
	if !errors.Is(res.Err, model.ErrBadPattern) {
		t.Fatalf("err = %v, want ErrBadPattern", res.Err)
	}
	if res.Created != 0 {
		t.Fatalf("created = %d, want 0", res.Created)
	}

	got, _ := s.GetTemplate("tpl-broken")
	if got == nil || got.IsActive {
		t.Fatalf("broken template still active: %+v", got)
	}
}

// failingStore wraps a real store and injects one failure mode.
type failingStore struct {
	db.Store
	failSchedule bool
}

var errInjected = errors.New("injected failure")

func (f *failingStore) UpdateTemplateSchedule(id string, nextDue, updatedAt time.Time) error {
	if f.failSchedule {
		return errInjected
	}
	return f.Store.UpdateTemplateSchedule(id, nextDue, updatedAt)
}

func TestProcessTemplate_RetryLeavesScheduleRecoverable(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)

	tpl := dailyTemplate("tpl-1", now.AddDate(0, 0, -1))
	if err := s.AddTemplate(tpl); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	broken := &failingStore{Store: s, failSchedule: true}
	p := newTestProcessor(broken, now)
	res := p.ProcessTemplate(tpl)
	if res.Outcome != OutcomeRetry {
		t.Fatalf("outcome = %s, want retry", res.Outcome)
	}
	if !errors.Is(res.Err, errInjected) {
		t.Fatalf("err = %v, want injected failure", res.Err)
	}
	// The first occurrence was inserted before the advance failed.
	if res.Created != 1 {
		t.Fatalf("created = %d, want 1", res.Created)
	}

	// A later scan with a healthy store heals without duplicating.
	healthy := newTestProcessor(s, now)
	got, _ := s.GetTemplate("tpl-1")
	res = healthy.ProcessTemplate(*got)
	if res.Outcome != OutcomeProcessed {
		t.Fatalf("recovery outcome = %s (%v), want processed", res.Outcome, res.Err)
	}
	// Yesterday's occurrence already exists; only today's is new.
	if res.Created != 1 {
		t.Fatalf("recovery created = %d, want 1", res.Created)
	}
	txs, _ := s.GetTransactionsByOwner("owner-1", now.AddDate(0, 0, -10), now.AddDate(0, 0, 1))
	if len(txs) != 2 {
		t.Fatalf("stored %d transactions, want 2", len(txs))
	}
}

func TestProcessTemplate_CatchUpCapReportsRetry(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)

	// Due 125 days ago: 126 occurrences are overdue, more than one run's cap.
	tpl := dailyTemplate("tpl-long-off", now.AddDate(0, 0, -125))
	if err := s.AddTemplate(tpl); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	p := newTestProcessor(s, now)
	res := p.ProcessTemplate(tpl)
	if res.Outcome != OutcomeRetry {
		t.Fatalf("outcome = %s, want retry while still due", res.Outcome)
	}
	if res.Err == nil {
		t.Fatalf("capped run must carry an error explaining the deferral")
	}
	if res.Created != maxCatchUp {
		t.Fatalf("created = %d, want %d", res.Created, maxCatchUp)
	}

	got, err := s.GetTemplate("tpl-long-off")
	if err != nil || got == nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if got.NextDueAt.After(now) {
		t.Fatalf("capped template must still be due, schedule at %s", got.NextDueAt)
	}

	// The next run drains the remainder.
	res = p.ProcessTemplate(*got)
	if res.Outcome != OutcomeProcessed {
		t.Fatalf("second run outcome = %s (%v), want processed", res.Outcome, res.Err)
	}
	if res.Created != 6 {
		t.Fatalf("second run created = %d, want 6", res.Created)
	}
}

func TestProcessTemplate_DuplicateInsertNotCounted(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)

	tpl := dailyTemplate("tpl-1", now)
	if err := s.AddTemplate(tpl); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	// An unrelated transaction already owns the ID the processor will pick.
	clash := tpl.Materialize("tx-clash", now)
	clash.Date = now.AddDate(0, 0, -5)
	if err := s.InsertTransaction(clash); err != nil {
		t.Fatalf("InsertTransaction failed: %v", err)
	}

	p := newTestProcessor(s, now)
	p.newID = func() string { return "tx-clash" }

	res := p.ProcessTemplate(tpl)
	if res.Outcome != OutcomeProcessed {
		t.Fatalf("outcome = %s (%v), want processed", res.Outcome, res.Err)
	}
	if res.Created != 0 {
		t.Fatalf("created = %d, want 0 for a duplicate insert", res.Created)
	}

	txs, err := s.GetTransactionsByOwner("owner-1", now.AddDate(0, 0, -10), now.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("GetTransactionsByOwner failed: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("stored %d transactions, want only the pre-existing one", len(txs))
	}
}

func TestProcessDueTemplates_IsolatesFailures(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)

	good := dailyTemplate("tpl-good", now.AddDate(0, 0, -1))
	broken := dailyTemplate("tpl-broken", now.AddDate(0, 0, -1))
	broken.Pattern = "fortnightly"
	for _, tpl := range []model.RecurringTemplate{good, broken} {
		if err := s.AddTemplate(tpl); err != nil {
			t.Fatalf("AddTemplate failed: %v", err)
		}
	}

	p := newTestProcessor(s, now)
	summary, err := p.ProcessDueTemplates("owner-1")
	if err != nil {
		t.Fatalf("ProcessDueTemplates failed: %v", err)
	}
	if summary.Scanned != 2 {
		t.Fatalf("scanned = %d, want 2", summary.Scanned)
	}
	if summary.Fatals != 1 {
		t.Fatalf("fatals = %d, want 1", summary.Fatals)
	}
	// The healthy template was still processed in full.
	if summary.Created != 2 {
		t.Fatalf("created = %d, want 2", summary.Created)
	}

	// A second scan finds nothing due: the good template advanced and the
	// broken one was deactivated.
	summary, err = p.ProcessDueTemplates("owner-1")
	if err != nil {
		t.Fatalf("second ProcessDueTemplates failed: %v", err)
	}
	if summary.Scanned != 0 || summary.Created != 0 {
		t.Fatalf("expected idle rescan, got %+v", summary)
	}
}
