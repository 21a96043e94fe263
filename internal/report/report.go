// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package report computes spending summaries from the transaction store.
// All arithmetic is decimal; nothing here mutates state.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tallyfin/tally/internal/db"
	"github.com/tallyfin/tally/internal/model"
)

// CategorySpend is one category's expense total for a period.
type CategorySpend struct {
	CategoryID string
	Total      decimal.Decimal
}

// Balance is the income/expense summary for a period.
type Balance struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// TrendPoint is one month's balance in a trend series.
type TrendPoint struct {
	Month int
	Year  int
	Balance
}

// monthWindow returns the [start, end) bounds of a calendar month in UTC.
func monthWindow(month, year int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %d", model.ErrBadMonth, month)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// SpendByCategory totals the owner's expenses per category for one calendar
// month, largest first.
func SpendByCategory(store db.Store, ownerID string, month, year int) ([]CategorySpend, error) {
	from, to, err := monthWindow(month, year)
	if err != nil {
		return nil, err
	}
	txs, err := store.GetTransactionsByOwner(ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Kind != model.KindExpense {
			continue
		}
		totals[tx.CategoryID] = totals[tx.CategoryID].Add(tx.Amount)
	}

	out := make([]CategorySpend, 0, len(totals))
	for id, total := range totals {
		out = append(out, CategorySpend{CategoryID: id, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

// IncomeVsExpense totals the owner's income and expenses for one calendar
// month.
func IncomeVsExpense(store db.Store, ownerID string, month, year int) (Balance, error) {
	from, to, err := monthWindow(month, year)
	if err != nil {
		return Balance{}, err
	}
	txs, err := store.GetTransactionsByOwner(ownerID, from, to)
	if err != nil {
		return Balance{}, fmt.Errorf("failed to load transactions: %w", err)
	}
	return sumBalance(txs), nil
}

// MonthlyTrend returns the last `months` months of balances ending at the
// month containing `now`, oldest first.
func MonthlyTrend(store db.Store, ownerID string, months int, now time.Time) ([]TrendPoint, error) {
	if months < 1 {
		return nil, fmt.Errorf("trend length must be at least 1, got %d", months)
	}

	var out []TrendPoint
	anchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := months - 1; i >= 0; i-- {
		start := anchor.AddDate(0, -i, 0)
		txs, err := store.GetTransactionsByOwner(ownerID, start, start.AddDate(0, 1, 0))
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions for %s: %w", start.Format("2006-01"), err)
		}
		out = append(out, TrendPoint{
			Month:   int(start.Month()),
			Year:    start.Year(),
			Balance: sumBalance(txs),
		})
	}
	return out, nil
}

func sumBalance(txs []model.Transaction) Balance {
	var b Balance
	for _, tx := range txs {
		switch tx.Kind {
		case model.KindIncome:
			b.Income = b.Income.Add(tx.Amount)
		case model.KindExpense:
			b.Expense = b.Expense.Add(tx.Amount)
		}
	}
	b.Net = b.Income.Sub(b.Expense)
	return b
}
