// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core domain entities of Tally: recurring
// templates, materialized transactions, budgets, and categories. The structs
// here are storage-agnostic; the bun row mappings live in internal/db.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a transaction or template as money in or money out.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Pattern is the recurrence cadence of a template.
type Pattern string

const (
	PatternDaily   Pattern = "daily"
	PatternWeekly  Pattern = "weekly"
	PatternMonthly Pattern = "monthly"
)

// SyncStatus tracks whether a record has been acknowledged by the remote
// store. Records are created as pending and flip to synced after a
// successful push (or when a remote copy wins a merge).
type SyncStatus string

const (
	SyncSynced  SyncStatus = "synced"
	SyncPending SyncStatus = "pending"
)

// CreationTolerance is how far in the past a template's first due date may
// lie at creation time. Anything older is a validation error.
const CreationTolerance = 60 * time.Second

// MaxMonthlyLimit bounds budget limits to a sane range.
var MaxMonthlyLimit = decimal.NewFromInt(1_000_000_000)

// Validation errors surfaced synchronously at creation/update time.
var (
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrBlankCategory     = errors.New("category must not be blank")
	ErrDueDateInPast     = errors.New("first due date lies too far in the past")
	ErrBadKind           = errors.New("kind must be income or expense")
	ErrBadPattern        = errors.New("pattern must be daily, weekly or monthly")
	ErrBadMonth          = errors.New("month must be between 1 and 12")
	ErrLimitOutOfRange   = errors.New("monthly limit out of range")
)

// RecurringTemplate is a stored definition of a transaction that should be
// recreated automatically on a schedule. Mutating a template never touches
// transactions that were already materialized from it.
type RecurringTemplate struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"ownerId"`
	Kind          Kind            `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	CategoryID    string          `json:"categoryId"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Pattern       Pattern         `json:"pattern"`
	NextDueAt     time.Time       `json:"nextDueAt"`
	IsActive      bool            `json:"isActive"`
	SyncStatus    SyncStatus      `json:"syncStatus"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// String returns a short identification for logs and CLI output.
func (t RecurringTemplate) String() string {
	return fmt.Sprintf("%s %s %s/%s", t.Pattern, t.Kind, t.CategoryID, t.Amount.StringFixed(2))
}

// Validate checks the creation-time invariants of a template. now is the
// caller's clock; the due date may not lie more than CreationTolerance
// before it.
func (t RecurringTemplate) Validate(now time.Time) error {
	if err := t.ValidateFields(); err != nil {
		return err
	}
	if t.NextDueAt.Before(now.Add(-CreationTolerance)) {
		return fmt.Errorf("%w: %s", ErrDueDateInPast, t.NextDueAt.Format(time.RFC3339))
	}
	return nil
}

// ValidateFields checks the invariants that must hold on every mutation,
// without the creation-only due-date check.
func (t RecurringTemplate) ValidateFields() error {
	if t.Kind != KindIncome && t.Kind != KindExpense {
		return fmt.Errorf("%w: %q", ErrBadKind, t.Kind)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrNonPositiveAmount, t.Amount)
	}
	if t.CategoryID == "" {
		return ErrBlankCategory
	}
	switch t.Pattern {
	case PatternDaily, PatternWeekly, PatternMonthly:
	default:
		return fmt.Errorf("%w: %q", ErrBadPattern, t.Pattern)
	}
	return nil
}

// Transaction is a concrete ledger entry. Once created it is immutable;
// there is no back-reference mutation from templates. TemplateID records
// provenance for materialized entries and is empty for manual ones.
type Transaction struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"ownerId"`
	Kind          Kind            `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	CategoryID    string          `json:"categoryId"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Date          time.Time       `json:"date"`
	TemplateID    string          `json:"templateId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Materialize builds the transaction snapshot for a template firing at its
// current due date. The snapshot copies the template's field values; later
// template edits must not affect it.
func (t RecurringTemplate) Materialize(id string, now time.Time) Transaction {
	return Transaction{
		ID:            id,
		OwnerID:       t.OwnerID,
		Kind:          t.Kind,
		Amount:        t.Amount,
		CategoryID:    t.CategoryID,
		PaymentMethod: t.PaymentMethod,
		Notes:         t.Notes,
		Date:          t.NextDueAt,
		TemplateID:    t.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Budget caps spending for one category in one calendar month. One budget
// per (owner, category, month, year) tuple; the store enforces this.
type Budget struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"ownerId"`
	CategoryID   string          `json:"categoryId"`
	MonthlyLimit decimal.Decimal `json:"monthlyLimit"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	SyncStatus   SyncStatus      `json:"syncStatus"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Validate checks the budget invariants.
func (b Budget) Validate() error {
	if b.CategoryID == "" {
		return ErrBlankCategory
	}
	if !b.MonthlyLimit.IsPositive() || b.MonthlyLimit.GreaterThan(MaxMonthlyLimit) {
		return fmt.Errorf("%w: %s", ErrLimitOutOfRange, b.MonthlyLimit)
	}
	if b.Month < 1 || b.Month > 12 {
		return fmt.Errorf("%w: %d", ErrBadMonth, b.Month)
	}
	return nil
}

// Category groups transactions for budgeting and reporting.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// AuditLogEntry is a single audit trail event.
type AuditLogEntry struct {
	ID        int    `json:"id"`
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Details   string `json:"details"`
}
