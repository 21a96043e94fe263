// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"

	"github.com/tallyfin/tally/internal/model"
	"github.com/uptrace/bun"
)

// backupSchemaVersion identifies the layout of BackupData payloads so a
// future restore can refuse or translate incompatible dumps.
const backupSchemaVersion = 1

// ExportDataForBackup reads every table inside one transaction so the dump
// is a consistent snapshot.
func (s *bunStore) ExportDataForBackup() (*model.BackupData, error) {
	ctx := context.Background()
	backup := &model.BackupData{SchemaVersion: backupSchemaVersion}

	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		var tplRows []TemplateRow
		if err := tx.NewSelect().Model(&tplRows).OrderExpr("id").Scan(ctx); err != nil {
			return fmt.Errorf("failed to export templates: %w", err)
		}
		tpls, err := templateRowsToModels(tplRows)
		if err != nil {
			return err
		}
		backup.Templates = tpls

		var txRows []TransactionRow
		if err := tx.NewSelect().Model(&txRows).OrderExpr("id").Scan(ctx); err != nil {
			return fmt.Errorf("failed to export transactions: %w", err)
		}
		for _, r := range txRows {
			m, err := transactionRowToModel(r)
			if err != nil {
				return err
			}
			backup.Transactions = append(backup.Transactions, m)
		}

		var budgetRows []BudgetRow
		if err := tx.NewSelect().Model(&budgetRows).OrderExpr("id").Scan(ctx); err != nil {
			return fmt.Errorf("failed to export budgets: %w", err)
		}
		budgets, err := budgetRowsToModels(budgetRows)
		if err != nil {
			return err
		}
		backup.Budgets = budgets

		var catRows []CategoryRow
		if err := tx.NewSelect().Model(&catRows).OrderExpr("id").Scan(ctx); err != nil {
			return fmt.Errorf("failed to export categories: %w", err)
		}
		for _, r := range catRows {
			backup.Categories = append(backup.Categories, model.Category{ID: r.ID, Name: r.Name, Kind: model.Kind(r.Kind)})
		}

		var auditRows []AuditLogRow
		if err := tx.NewSelect().Model(&auditRows).OrderExpr("id").Scan(ctx); err != nil {
			return fmt.Errorf("failed to export audit log: %w", err)
		}
		for _, r := range auditRows {
			backup.AuditLogEntries = append(backup.AuditLogEntries, model.AuditLogEntry{
				ID:        r.ID,
				Timestamp: r.Timestamp,
				Username:  r.Username,
				Action:    r.Action,
				Details:   r.Details,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return backup, nil
}

// ImportDataFromBackup restores the database from a backup. It performs a
// full wipe-and-replace within a single transaction to ensure atomicity.
func (s *bunStore) ImportDataFromBackup(backup *model.BackupData) error {
	if backup == nil {
		return fmt.Errorf("no backup data provided")
	}
	if backup.SchemaVersion > backupSchemaVersion {
		return fmt.Errorf("backup schema version %d is newer than supported version %d", backup.SchemaVersion, backupSchemaVersion)
	}
	ctx := context.Background()
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		for _, table := range []string{"transactions", "recurring_templates", "budgets", "categories", "audit_log"} {
			if _, err := ExecRaw(ctx, tx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return insertBackupData(ctx, tx, backup, false)
	})
	if err == nil {
		_ = s.LogAction("RESTORE_BACKUP", fmt.Sprintf("templates: %d, transactions: %d, budgets: %d",
			len(backup.Templates), len(backup.Transactions), len(backup.Budgets)))
	}
	return err
}

// IntegrateDataFromBackup restores data from a backup non-destructively,
// skipping entries whose IDs already exist.
func (s *bunStore) IntegrateDataFromBackup(backup *model.BackupData) error {
	if backup == nil {
		return fmt.Errorf("no backup data provided")
	}
	ctx := context.Background()
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		return insertBackupData(ctx, tx, backup, true)
	})
	if err == nil {
		_ = s.LogAction("INTEGRATE_BACKUP", fmt.Sprintf("templates: %d, transactions: %d, budgets: %d",
			len(backup.Templates), len(backup.Transactions), len(backup.Budgets)))
	}
	return err
}

func insertBackupData(ctx context.Context, tx bun.Tx, backup *model.BackupData, skipExisting bool) error {
	insert := func(q *bun.InsertQuery) error {
		if skipExisting {
			q = q.Ignore()
		}
		_, err := q.Exec(ctx)
		return err
	}

	for _, c := range backup.Categories {
		if err := insert(tx.NewInsert().Model(&CategoryRow{ID: c.ID, Name: c.Name, Kind: string(c.Kind)})); err != nil {
			return fmt.Errorf("failed to import category %s: %w", c.ID, err)
		}
	}
	for _, t := range backup.Templates {
		if err := insert(tx.NewInsert().Model(templateToRow(t))); err != nil {
			return fmt.Errorf("failed to import template %s: %w", t.ID, err)
		}
	}
	for _, m := range backup.Transactions {
		if err := insert(tx.NewInsert().Model(transactionToRow(m))); err != nil {
			return fmt.Errorf("failed to import transaction %s: %w", m.ID, err)
		}
	}
	for _, b := range backup.Budgets {
		if err := insert(tx.NewInsert().Model(budgetToRow(b))); err != nil {
			return fmt.Errorf("failed to import budget %s: %w", b.ID, err)
		}
	}
	for _, e := range backup.AuditLogEntries {
		row := &AuditLogRow{Timestamp: e.Timestamp, Username: e.Username, Action: e.Action, Details: e.Details}
		if err := insert(tx.NewInsert().Model(row).Column("timestamp", "username", "action", "details")); err != nil {
			return fmt.Errorf("failed to import audit entry: %w", err)
		}
	}
	return nil
}
