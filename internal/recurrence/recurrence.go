// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

// package recurrence implements the date arithmetic behind recurring
// templates: advancing a due date by its pattern, projecting future
// occurrences, and counting missed periods for catch-up scheduling.
//
// All functions are pure and safe for concurrent use. Calendar semantics
// apply throughout: daily and weekly advances move the day-of-month field
// rather than adding a fixed millisecond offset, and monthly advances clamp
// to the last valid day of the target month. The clamp sticks: subsequent
// months are computed from the clamped date, so a template due on the 31st
// drifts to day 28/29/30 in short months and stays there. No timezone
// normalization is performed; dates keep the location they came in with.
package recurrence

import (
	"fmt"
	"time"

	"github.com/tallyfin/tally/internal/model"
)

// NextDueDate returns the due date following current for the given pattern.
// An unknown pattern is a programming error and panics.
func NextDueDate(current time.Time, p model.Pattern) time.Time {
	switch p {
	case model.PatternDaily:
		return current.AddDate(0, 0, 1)
	case model.PatternWeekly:
		return current.AddDate(0, 0, 7)
	case model.PatternMonthly:
		return addMonthClamped(current)
	default:
		panic(fmt.Sprintf("recurrence: unknown pattern %q", p))
	}
}

// FutureDueDates projects the next count due dates starting from (and not
// including) start. Each call recomputes the sequence from start.
func FutureDueDates(start time.Time, p model.Pattern, count int) []time.Time {
	out := make([]time.Time, 0, count)
	cur := start
	for i := 0; i < count; i++ {
		cur = NextDueDate(cur, p)
		out = append(out, cur)
	}
	return out
}

// IsOverdue reports whether due has passed at now. A due date exactly at now
// counts as overdue.
func IsOverdue(due, now time.Time) bool {
	return !due.After(now)
}

// MissedPeriods counts how many whole periods have elapsed between due and
// now. Returns 0 when due is at or after now. For daily and weekly patterns
// the elapsed time is divided by the fixed period length; for monthly the
// due date is stepped forward month by month (with clamping) while it is
// still before now, and the step that crosses now is not counted, so a due
// date in the immediately preceding month yields 0.
func MissedPeriods(due time.Time, p model.Pattern, now time.Time) int {
	if !due.Before(now) {
		return 0
	}
	switch p {
	case model.PatternDaily:
		return int(now.Sub(due) / (24 * time.Hour))
	case model.PatternWeekly:
		return int(now.Sub(due) / (7 * 24 * time.Hour))
	case model.PatternMonthly:
		steps := 0
		for cur := due; cur.Before(now); cur = addMonthClamped(cur) {
			steps++
		}
		if steps == 0 {
			return 0
		}
		return steps - 1
	default:
		panic(fmt.Sprintf("recurrence: unknown pattern %q", p))
	}
}

// addMonthClamped advances t by one month, clamping the day-of-month to the
// last valid day of the target month. time.AddDate is deliberately not used
// here: it normalizes Jan 31 + 1 month to Mar 2/3 instead of Feb 28/29.
func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(firstOfNext.Year(), firstOfNext.Month()); day > last {
		day = last
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month. Day 0 of the
// following month normalizes to the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
