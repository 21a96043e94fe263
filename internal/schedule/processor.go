// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package schedule turns due recurring templates into concrete ledger
// transactions and rolls their schedules forward.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tallyfin/tally/internal/db"
	"github.com/tallyfin/tally/internal/logging"
	"github.com/tallyfin/tally/internal/model"
	"github.com/tallyfin/tally/internal/recurrence"
)

// Outcome classifies the result of processing one template.
type Outcome int

const (
	// OutcomeProcessed means the template's due occurrences were
	// materialized and its schedule now lies in the future.
	OutcomeProcessed Outcome = iota
	// OutcomeRetry means a transient error interrupted processing. The
	// schedule is left where it was, so the next scan picks the template up
	// again.
	OutcomeRetry
	// OutcomeFatal means the template itself is unusable. It is deactivated
	// so it stops appearing in due scans until a user fixes it.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeRetry:
		return "retry"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// maxCatchUp caps how many missed occurrences a single run will materialize
// for one template. A device that was off for years should not sit in a
// multi-thousand-iteration loop; the remainder is picked up by later runs.
const maxCatchUp = 120

// Result describes what happened to a single template during a scan.
type Result struct {
	TemplateID string
	Outcome    Outcome
	Created    int
	Err        error
}

// Summary aggregates a full scan.
type Summary struct {
	Scanned int
	Created int
	Retries int
	Fatals  int
	Results []Result
}

// Processor materializes transactions from due templates. The clock and ID
// source are injectable for tests.
type Processor struct {
	store db.Store
	now   func() time.Time
	newID func() string
}

// NewProcessor returns a Processor over the given store using the system
// clock and random UUIDs.
func NewProcessor(store db.Store) *Processor {
	return &Processor{store: store, now: time.Now, newID: uuid.NewString}
}

// ProcessDueTemplates scans the owner's active templates that are due and
// processes each one. A failure in one template never aborts the others; the
// per-template outcome is reported in the summary.
func (p *Processor) ProcessDueTemplates(ownerID string) (Summary, error) {
	now := p.now()
	due, err := p.store.GetActiveTemplatesDueBefore(ownerID, now)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to scan due templates: %w", err)
	}

	summary := Summary{Scanned: len(due)}
	for _, tpl := range due {
		res := p.ProcessTemplate(tpl)
		summary.Created += res.Created
		switch res.Outcome {
		case OutcomeRetry:
			summary.Retries++
			logging.Warnf("schedule: template %s deferred: %v", tpl.ID, res.Err)
		case OutcomeFatal:
			summary.Fatals++
			logging.Errorf("schedule: template %s deactivated: %v", tpl.ID, res.Err)
		}
		summary.Results = append(summary.Results, res)
	}
	logging.Debugf("schedule: owner %s scanned=%d created=%d retries=%d fatals=%d",
		ownerID, summary.Scanned, summary.Created, summary.Retries, summary.Fatals)
	return summary, nil
}

// ProcessTemplate materializes every overdue occurrence of one template and
// advances its schedule past now. Each occurrence is inserted before the
// schedule moves, so a crash between the two steps is healed on the next
// scan by the duplicate check rather than by double-charging.
func (p *Processor) ProcessTemplate(tpl model.RecurringTemplate) Result {
	res := Result{TemplateID: tpl.ID}
	now := p.now()

	if !tpl.IsActive {
		return res
	}
	if err := tpl.ValidateFields(); err != nil {
		res.Outcome = OutcomeFatal
		res.Err = err
		if derr := p.store.SetTemplateActive(tpl.ID, false, now); derr != nil {
			logging.Errorf("schedule: failed to deactivate broken template %s: %v", tpl.ID, derr)
		}
		return res
	}

	for i := 0; recurrence.IsOverdue(tpl.NextDueAt, now); i++ {
		if i >= maxCatchUp {
			// Still due: report retry so the task runner knows the template
			// needs another pass.
			logging.Warnf("schedule: template %s hit catch-up cap at %d occurrences", tpl.ID, maxCatchUp)
			res.Outcome = OutcomeRetry
			res.Err = fmt.Errorf("catch-up cap of %d occurrences reached with the template still due", maxCatchUp)
			return res
		}

		exists, err := p.store.HasTransactionForTemplate(tpl.ID, tpl.NextDueAt)
		if err != nil {
			res.Outcome = OutcomeRetry
			res.Err = fmt.Errorf("failed to check existing occurrence: %w", err)
			return res
		}
		if !exists {
			tx := tpl.Materialize(p.newID(), now)
			switch err := p.store.InsertTransaction(tx); {
			case err == nil:
				res.Created++
			case !errors.Is(err, db.ErrDuplicate):
				res.Outcome = OutcomeRetry
				res.Err = fmt.Errorf("failed to insert transaction: %w", err)
				return res
			}
		}

		next := recurrence.NextDueDate(tpl.NextDueAt, tpl.Pattern)
		if err := p.store.UpdateTemplateSchedule(tpl.ID, next, now); err != nil {
			// The occurrence is recorded; the stale schedule is harmless
			// because the next scan finds the existing transaction and only
			// advances the date.
			res.Outcome = OutcomeRetry
			res.Err = fmt.Errorf("failed to advance schedule: %w", err)
			return res
		}
		tpl.NextDueAt = next
	}

	res.Outcome = OutcomeProcessed
	return res
}
