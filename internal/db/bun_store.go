// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"os/user"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tallyfin/tally/internal/model"
	"github.com/uptrace/bun"
)

// TemplateRow maps the recurring_templates table for Bun queries. Timestamps
// are stored as epoch milliseconds and amounts as decimal strings so the
// schema is identical across sqlite, postgres and mysql.
type TemplateRow struct {
	bun.BaseModel `bun:"table:recurring_templates"`
	ID            string         `bun:"id,pk"`
	OwnerID       string         `bun:"owner_id"`
	Kind          string         `bun:"kind"`
	Amount        string         `bun:"amount"`
	CategoryID    string         `bun:"category_id"`
	PaymentMethod sql.NullString `bun:"payment_method"`
	Notes         sql.NullString `bun:"notes"`
	Pattern       string         `bun:"pattern"`
	NextDueAt     int64          `bun:"next_due_at"`
	IsActive      bool           `bun:"is_active"`
	SyncStatus    string         `bun:"sync_status"`
	CreatedAt     int64          `bun:"created_at"`
	UpdatedAt     int64          `bun:"updated_at"`
}

// TransactionRow maps the transactions table.
type TransactionRow struct {
	bun.BaseModel `bun:"table:transactions"`
	ID            string         `bun:"id,pk"`
	OwnerID       string         `bun:"owner_id"`
	Kind          string         `bun:"kind"`
	Amount        string         `bun:"amount"`
	CategoryID    string         `bun:"category_id"`
	PaymentMethod sql.NullString `bun:"payment_method"`
	Notes         sql.NullString `bun:"notes"`
	TxDate        int64          `bun:"tx_date"`
	TemplateID    sql.NullString `bun:"template_id"`
	CreatedAt     int64          `bun:"created_at"`
	UpdatedAt     int64          `bun:"updated_at"`
}

// BudgetRow maps the budgets table. The unique index on
// (owner_id, category_id, month, year) lives in the migrations.
type BudgetRow struct {
	bun.BaseModel `bun:"table:budgets"`
	ID            string `bun:"id,pk"`
	OwnerID       string `bun:"owner_id"`
	CategoryID    string `bun:"category_id"`
	MonthlyLimit  string `bun:"monthly_limit"`
	Month         int    `bun:"month"`
	Year          int    `bun:"year"`
	SyncStatus    string `bun:"sync_status"`
	CreatedAt     int64  `bun:"created_at"`
	UpdatedAt     int64  `bun:"updated_at"`
}

// CategoryRow maps the categories table.
type CategoryRow struct {
	bun.BaseModel `bun:"table:categories"`
	ID            string `bun:"id,pk"`
	Name          string `bun:"name"`
	Kind          string `bun:"kind"`
}

// AuditLogRow maps the audit_log table.
type AuditLogRow struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int    `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	Username      string `bun:"username"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

// --- Mapping helpers (centralized conversions) ---

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

func templateToRow(t model.RecurringTemplate) *TemplateRow {
	return &TemplateRow{
		ID:            t.ID,
		OwnerID:       t.OwnerID,
		Kind:          string(t.Kind),
		Amount:        t.Amount.String(),
		CategoryID:    t.CategoryID,
		PaymentMethod: sql.NullString{String: t.PaymentMethod, Valid: t.PaymentMethod != ""},
		Notes:         sql.NullString{String: t.Notes, Valid: t.Notes != ""},
		Pattern:       string(t.Pattern),
		NextDueAt:     toMillis(t.NextDueAt),
		IsActive:      t.IsActive,
		SyncStatus:    string(t.SyncStatus),
		CreatedAt:     toMillis(t.CreatedAt),
		UpdatedAt:     toMillis(t.UpdatedAt),
	}
}

func templateRowToModel(r TemplateRow) (model.RecurringTemplate, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return model.RecurringTemplate{}, fmt.Errorf("template %s has malformed amount %q: %w", r.ID, r.Amount, err)
	}
	t := model.RecurringTemplate{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		Kind:       model.Kind(r.Kind),
		Amount:     amount,
		CategoryID: r.CategoryID,
		Pattern:    model.Pattern(r.Pattern),
		NextDueAt:  fromMillis(r.NextDueAt),
		IsActive:   r.IsActive,
		SyncStatus: model.SyncStatus(r.SyncStatus),
		CreatedAt:  fromMillis(r.CreatedAt),
		UpdatedAt:  fromMillis(r.UpdatedAt),
	}
	if r.PaymentMethod.Valid {
		t.PaymentMethod = r.PaymentMethod.String
	}
	if r.Notes.Valid {
		t.Notes = r.Notes.String
	}
	return t, nil
}

func transactionToRow(tx model.Transaction) *TransactionRow {
	return &TransactionRow{
		ID:            tx.ID,
		OwnerID:       tx.OwnerID,
		Kind:          string(tx.Kind),
		Amount:        tx.Amount.String(),
		CategoryID:    tx.CategoryID,
		PaymentMethod: sql.NullString{String: tx.PaymentMethod, Valid: tx.PaymentMethod != ""},
		Notes:         sql.NullString{String: tx.Notes, Valid: tx.Notes != ""},
		TxDate:        toMillis(tx.Date),
		TemplateID:    sql.NullString{String: tx.TemplateID, Valid: tx.TemplateID != ""},
		CreatedAt:     toMillis(tx.CreatedAt),
		UpdatedAt:     toMillis(tx.UpdatedAt),
	}
}

func transactionRowToModel(r TransactionRow) (model.Transaction, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s has malformed amount %q: %w", r.ID, r.Amount, err)
	}
	tx := model.Transaction{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		Kind:       model.Kind(r.Kind),
		Amount:     amount,
		CategoryID: r.CategoryID,
		Date:       fromMillis(r.TxDate),
		CreatedAt:  fromMillis(r.CreatedAt),
		UpdatedAt:  fromMillis(r.UpdatedAt),
	}
	if r.PaymentMethod.Valid {
		tx.PaymentMethod = r.PaymentMethod.String
	}
	if r.Notes.Valid {
		tx.Notes = r.Notes.String
	}
	if r.TemplateID.Valid {
		tx.TemplateID = r.TemplateID.String
	}
	return tx, nil
}

func budgetToRow(b model.Budget) *BudgetRow {
	return &BudgetRow{
		ID:           b.ID,
		OwnerID:      b.OwnerID,
		CategoryID:   b.CategoryID,
		MonthlyLimit: b.MonthlyLimit.String(),
		Month:        b.Month,
		Year:         b.Year,
		SyncStatus:   string(b.SyncStatus),
		CreatedAt:    toMillis(b.CreatedAt),
		UpdatedAt:    toMillis(b.UpdatedAt),
	}
}

func budgetRowToModel(r BudgetRow) (model.Budget, error) {
	limit, err := decimal.NewFromString(r.MonthlyLimit)
	if err != nil {
		return model.Budget{}, fmt.Errorf("budget %s has malformed limit %q: %w", r.ID, r.MonthlyLimit, err)
	}
	return model.Budget{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		CategoryID:   r.CategoryID,
		MonthlyLimit: limit,
		Month:        r.Month,
		Year:         r.Year,
		SyncStatus:   model.SyncStatus(r.SyncStatus),
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}, nil
}

func templateRowsToModels(rows []TemplateRow) ([]model.RecurringTemplate, error) {
	out := make([]model.RecurringTemplate, 0, len(rows))
	for _, r := range rows {
		t, err := templateRowToModel(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func budgetRowsToModels(rows []BudgetRow) ([]model.Budget, error) {
	out := make([]model.Budget, 0, len(rows))
	for _, r := range rows {
		b, err := budgetRowToModel(r)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// bunStore is the shared Bun-backed implementation of the Store interface.
// The dialect stores (sqlite, postgres, mysql) embed it; anything
// dialect-specific stays in their own files.
type bunStore struct {
	db  *sql.DB
	bun *bun.DB
}

// --- Recurring templates ---

// AddTemplate inserts a new recurring template.
func (s *bunStore) AddTemplate(tpl model.RecurringTemplate) error {
	ctx := context.Background()
	if _, err := s.bun.NewInsert().Model(templateToRow(tpl)).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	_ = s.LogAction("ADD_TEMPLATE", fmt.Sprintf("template: %s (%s)", tpl.ID, tpl.String()))
	return nil
}

// GetTemplate retrieves a template by ID. Returns (nil, nil) when no
// template with that ID exists.
func (s *bunStore) GetTemplate(id string) (*model.RecurringTemplate, error) {
	ctx := context.Background()
	var row TemplateRow
	err := s.bun.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	t, err := templateRowToModel(row)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTemplatesByOwner returns all templates for an owner ordered by due date.
func (s *bunStore) GetTemplatesByOwner(ownerID string) ([]model.RecurringTemplate, error) {
	ctx := context.Background()
	var rows []TemplateRow
	err := s.bun.NewSelect().Model(&rows).
		Where("owner_id = ?", ownerID).
		OrderExpr("next_due_at, id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return templateRowsToModels(rows)
}

// GetActiveTemplatesDueBefore returns the owner's active templates whose due
// date is at or before the cutoff, ordered oldest first. Paused templates are
// never returned.
func (s *bunStore) GetActiveTemplatesDueBefore(ownerID string, due time.Time) ([]model.RecurringTemplate, error) {
	ctx := context.Background()
	var rows []TemplateRow
	err := s.bun.NewSelect().Model(&rows).
		Where("owner_id = ?", ownerID).
		Where("is_active = ?", true).
		Where("next_due_at <= ?", toMillis(due)).
		OrderExpr("next_due_at, id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return templateRowsToModels(rows)
}

// UpdateTemplateFields updates the user-editable fields of a template and
// marks it pending for the next sync. The schedule columns are left alone;
// use UpdateTemplateSchedule for those.
func (s *bunStore) UpdateTemplateFields(tpl model.RecurringTemplate) error {
	ctx := context.Background()
	res, err := s.bun.NewUpdate().Model(templateToRow(tpl)).
		Column("kind", "amount", "category_id", "payment_method", "notes", "sync_status", "updated_at").
		Where("id = ?", tpl.ID).
		Exec(ctx)
	if err != nil {
		return MapDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	_ = s.LogAction("UPDATE_TEMPLATE", fmt.Sprintf("template: %s (%s)", tpl.ID, tpl.String()))
	return nil
}

// UpdateTemplateSchedule rolls a template's due date forward after a
// materialization and refreshes updated_at.
func (s *bunStore) UpdateTemplateSchedule(id string, nextDue, updatedAt time.Time) error {
	ctx := context.Background()
	res, err := ExecRaw(ctx, s.bun,
		"UPDATE recurring_templates SET next_due_at = ?, sync_status = ?, updated_at = ? WHERE id = ?",
		toMillis(nextDue), string(model.SyncPending), toMillis(updatedAt), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetTemplateActive pauses or resumes a template.
func (s *bunStore) SetTemplateActive(id string, active bool, updatedAt time.Time) error {
	ctx := context.Background()
	res, err := ExecRaw(ctx, s.bun,
		"UPDATE recurring_templates SET is_active = ?, sync_status = ?, updated_at = ? WHERE id = ?",
		active, string(model.SyncPending), toMillis(updatedAt), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	action := "PAUSE_TEMPLATE"
	if active {
		action = "RESUME_TEMPLATE"
	}
	_ = s.LogAction(action, fmt.Sprintf("template: %s", id))
	return nil
}

// DeleteTemplate removes a template. Transactions already materialized from
// it keep their provenance reference and are not touched.
func (s *bunStore) DeleteTemplate(id string) error {
	ctx := context.Background()
	_, err := s.bun.NewDelete().Model((*TemplateRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err == nil {
		_ = s.LogAction("DELETE_TEMPLATE", fmt.Sprintf("template: %s", id))
	}
	return err
}

// ReplaceTemplates atomically swaps an owner's template set for the merged
// result of a sync. The whole swap runs in one transaction so a crash never
// leaves a half-merged set.
func (s *bunStore) ReplaceTemplates(ownerID string, tpls []model.RecurringTemplate) error {
	ctx := context.Background()
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		if _, err := ExecRaw(ctx, tx, "DELETE FROM recurring_templates WHERE owner_id = ?", ownerID); err != nil {
			return err
		}
		for _, tpl := range tpls {
			if _, err := tx.NewInsert().Model(templateToRow(tpl)).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
	if err == nil {
		_ = s.LogAction("REPLACE_TEMPLATES", fmt.Sprintf("owner: %s, count: %d", ownerID, len(tpls)))
	}
	return err
}

// GetTemplatesPendingUpload returns the owner's templates not yet
// acknowledged by the remote store.
func (s *bunStore) GetTemplatesPendingUpload(ownerID string) ([]model.RecurringTemplate, error) {
	ctx := context.Background()
	var rows []TemplateRow
	err := s.bun.NewSelect().Model(&rows).
		Where("owner_id = ?", ownerID).
		Where("sync_status = ?", string(model.SyncPending)).
		OrderExpr("updated_at, id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return templateRowsToModels(rows)
}

// MarkTemplatesSynced flips the given templates to synced after a successful
// push. It deliberately does not touch updated_at so the acknowledgement
// cannot win a later merge.
func (s *bunStore) MarkTemplatesSynced(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx := context.Background()
	_, err := s.bun.NewUpdate().Model((*TemplateRow)(nil)).
		Set("sync_status = ?", string(model.SyncSynced)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return err
}

// --- Transactions ---

// InsertTransaction records a new ledger entry. Entries are immutable; there
// is no update counterpart.
func (s *bunStore) InsertTransaction(tx model.Transaction) error {
	ctx := context.Background()
	if _, err := s.bun.NewInsert().Model(transactionToRow(tx)).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// GetTransaction retrieves a single transaction by ID, (nil, nil) if absent.
func (s *bunStore) GetTransaction(id string) (*model.Transaction, error) {
	ctx := context.Background()
	var row TransactionRow
	err := s.bun.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	tx, err := transactionRowToModel(row)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransactionsByOwner returns the owner's transactions with tx_date in
// [from, to), newest first.
func (s *bunStore) GetTransactionsByOwner(ownerID string, from, to time.Time) ([]model.Transaction, error) {
	ctx := context.Background()
	var rows []TransactionRow
	err := s.bun.NewSelect().Model(&rows).
		Where("owner_id = ?", ownerID).
		Where("tx_date >= ?", toMillis(from)).
		Where("tx_date < ?", toMillis(to)).
		OrderExpr("tx_date DESC, id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := transactionRowToModel(r)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// HasTransactionForTemplate reports whether a transaction materialized from
// the given template already exists for the given due date. Used to keep
// re-scans idempotent when a previous run crashed between insert and
// schedule advance.
func (s *bunStore) HasTransactionForTemplate(templateID string, date time.Time) (bool, error) {
	ctx := context.Background()
	n, err := s.bun.NewSelect().Model((*TransactionRow)(nil)).
		Where("template_id = ?", templateID).
		Where("tx_date = ?", toMillis(date)).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// --- Budgets ---

// AddBudget inserts a new budget. The unique index on
// (owner_id, category_id, month, year) maps a second budget for the same
// slot to ErrDuplicate.
func (s *bunStore) AddBudget(b model.Budget) error {
	ctx := context.Background()
	if _, err := s.bun.NewInsert().Model(budgetToRow(b)).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	_ = s.LogAction("ADD_BUDGET", fmt.Sprintf("budget: %s, category: %s, %02d/%d", b.ID, b.CategoryID, b.Month, b.Year))
	return nil
}

// GetBudget retrieves a budget by ID, (nil, nil) if absent.
func (s *bunStore) GetBudget(id string) (*model.Budget, error) {
	ctx := context.Background()
	var row BudgetRow
	err := s.bun.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	b, err := budgetRowToModel(row)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindBudget looks up the budget for one (owner, category, month, year)
// slot, (nil, nil) if none is set.
func (s *bunStore) FindBudget(ownerID, categoryID string, month, year int) (*model.Budget, error) {
	ctx := context.Background()
	var row BudgetRow
	err := s.bun.NewSelect().Model(&row).
		Where("owner_id = ?", ownerID).
		Where("category_id = ?", categoryID).
		Where("month = ?", month).
		Where("year = ?", year).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	b, err := budgetRowToModel(row)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBudgetsByOwner returns all budgets for an owner ordered by period.
func (s *bunStore) GetBudgetsByOwner(ownerID string) ([]model.Budget, error) {
	ctx := context.Background()
	var rows []BudgetRow
	err := s.bun.NewSelect().Model(&rows).
		Where("owner_id = ?", ownerID).
		OrderExpr("year, month, category_id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return budgetRowsToModels(rows)
}

// UpdateBudgetLimit changes a budget's monthly limit and marks it pending.
func (s *bunStore) UpdateBudgetLimit(id string, limit decimal.Decimal, updatedAt time.Time) error {
	ctx := context.Background()
	res, err := ExecRaw(ctx, s.bun,
		"UPDATE budgets SET monthly_limit = ?, sync_status = ?, updated_at = ? WHERE id = ?",
		limit.String(), string(model.SyncPending), toMillis(updatedAt), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	_ = s.LogAction("UPDATE_BUDGET", fmt.Sprintf("budget: %s, new_limit: %s", id, limit.StringFixed(2)))
	return nil
}

// DeleteBudget removes a budget by ID.
func (s *bunStore) DeleteBudget(id string) error {
	ctx := context.Background()
	_, err := s.bun.NewDelete().Model((*BudgetRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err == nil {
		_ = s.LogAction("DELETE_BUDGET", fmt.Sprintf("budget: %s", id))
	}
	return err
}

// ReplaceBudgets atomically swaps an owner's budget set for a merged result.
func (s *bunStore) ReplaceBudgets(ownerID string, budgets []model.Budget) error {
	ctx := context.Background()
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		if _, err := ExecRaw(ctx, tx, "DELETE FROM budgets WHERE owner_id = ?", ownerID); err != nil {
			return err
		}
		for _, b := range budgets {
			if _, err := tx.NewInsert().Model(budgetToRow(b)).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
	if err == nil {
		_ = s.LogAction("REPLACE_BUDGETS", fmt.Sprintf("owner: %s, count: %d", ownerID, len(budgets)))
	}
	return err
}

// GetBudgetsPendingUpload returns budgets not yet acknowledged by the remote.
func (s *bunStore) GetBudgetsPendingUpload(ownerID string) ([]model.Budget, error) {
	ctx := context.Background()
	var rows []BudgetRow
	err := s.bun.NewSelect().Model(&rows).
		Where("owner_id = ?", ownerID).
		Where("sync_status = ?", string(model.SyncPending)).
		OrderExpr("updated_at, id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return budgetRowsToModels(rows)
}

// MarkBudgetsSynced flips the given budgets to synced without touching
// updated_at.
func (s *bunStore) MarkBudgetsSynced(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx := context.Background()
	_, err := s.bun.NewUpdate().Model((*BudgetRow)(nil)).
		Set("sync_status = ?", string(model.SyncSynced)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return err
}

// --- Categories ---

// AddCategory inserts a category.
func (s *bunStore) AddCategory(c model.Category) error {
	ctx := context.Background()
	_, err := s.bun.NewInsert().Model(&CategoryRow{ID: c.ID, Name: c.Name, Kind: string(c.Kind)}).Exec(ctx)
	return MapDBError(err)
}

// GetAllCategories returns every category ordered by name.
func (s *bunStore) GetAllCategories() ([]model.Category, error) {
	ctx := context.Background()
	var rows []CategoryRow
	if err := s.bun.NewSelect().Model(&rows).OrderExpr("name").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Category{ID: r.ID, Name: r.Name, Kind: model.Kind(r.Kind)})
	}
	return out, nil
}

// --- Audit log ---

// GetAllAuditLogEntries retrieves the audit trail, most recent first.
func (s *bunStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	ctx := context.Background()
	var rows []AuditLogRow
	if err := s.bun.NewSelect().Model(&rows).OrderExpr("id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.AuditLogEntry{
			ID:        r.ID,
			Timestamp: r.Timestamp,
			Username:  r.Username,
			Action:    r.Action,
			Details:   r.Details,
		})
	}
	return out, nil
}

// LogAction records an audit trail event. Failures here are best-effort at
// call sites; the primary mutation must not fail because logging did.
func (s *bunStore) LogAction(action string, details string) error {
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	ctx := context.Background()
	_, err := s.bun.NewInsert().Model(&AuditLogRow{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Username:  username,
		Action:    action,
		Details:   details,
	}).Column("timestamp", "username", "action", "details").Exec(ctx)
	return err
}
