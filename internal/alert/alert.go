// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package alert evaluates budgets against actual spending and tracks the
// resulting notifications in an explicitly owned registry.
package alert

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tallyfin/tally/internal/db"
	"github.com/tallyfin/tally/internal/model"
)

// Level grades how far a budget is consumed.
type Level int

const (
	// LevelWarning fires when spending crosses the warn threshold.
	LevelWarning Level = iota
	// LevelExceeded fires when spending crosses the limit itself.
	LevelExceeded
)

func (l Level) String() string {
	if l == LevelExceeded {
		return "exceeded"
	}
	return "warning"
}

// DefaultWarnPercent is the spend percentage at which a warning fires.
var DefaultWarnPercent = decimal.NewFromInt(80)

// Alert is one budget-threshold notification.
type Alert struct {
	BudgetID    string
	OwnerID     string
	CategoryID  string
	Month       int
	Year        int
	Limit       decimal.Decimal
	Spent       decimal.Decimal
	PercentUsed decimal.Decimal
	Level       Level
	RaisedAt    time.Time
}

// Evaluator computes budget alerts from the store.
type Evaluator struct {
	store       db.Store
	warnPercent decimal.Decimal
}

// NewEvaluator returns an Evaluator with the default warn threshold.
func NewEvaluator(store db.Store) *Evaluator {
	return &Evaluator{store: store, warnPercent: DefaultWarnPercent}
}

// WithWarnPercent overrides the warn threshold (as a percentage).
func (e *Evaluator) WithWarnPercent(p decimal.Decimal) *Evaluator {
	e.warnPercent = p
	return e
}

// EvaluateOwner checks every budget of an owner against the expenses booked
// in that budget's month and returns an alert for each crossed threshold.
func (e *Evaluator) EvaluateOwner(ownerID string, now time.Time) ([]Alert, error) {
	budgets, err := e.store.GetBudgetsByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load budgets: %w", err)
	}

	var alerts []Alert
	for _, b := range budgets {
		spent, err := e.spentInMonth(ownerID, b.CategoryID, b.Month, b.Year)
		if err != nil {
			return nil, err
		}
		if b.MonthlyLimit.IsZero() {
			continue
		}
		percent := spent.Div(b.MonthlyLimit).Mul(decimal.NewFromInt(100))

		var level Level
		switch {
		case spent.GreaterThan(b.MonthlyLimit):
			level = LevelExceeded
		case percent.GreaterThanOrEqual(e.warnPercent):
			level = LevelWarning
		default:
			continue
		}
		alerts = append(alerts, Alert{
			BudgetID:    b.ID,
			OwnerID:     b.OwnerID,
			CategoryID:  b.CategoryID,
			Month:       b.Month,
			Year:        b.Year,
			Limit:       b.MonthlyLimit,
			Spent:       spent,
			PercentUsed: percent,
			Level:       level,
			RaisedAt:    now,
		})
	}
	return alerts, nil
}

func (e *Evaluator) spentInMonth(ownerID, categoryID string, month, year int) (decimal.Decimal, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	txs, err := e.store.GetTransactionsByOwner(ownerID, from, from.AddDate(0, 1, 0))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load transactions: %w", err)
	}
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Kind == model.KindExpense && tx.CategoryID == categoryID {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}
