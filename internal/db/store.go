// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tallyfin/tally/internal/model"
)

// Store defines the interface for all database operations in Tally.
// This allows for multiple database backends to be implemented.
type Store interface {
	// Recurring template methods
	AddTemplate(tpl model.RecurringTemplate) error
	GetTemplate(id string) (*model.RecurringTemplate, error)
	GetTemplatesByOwner(ownerID string) ([]model.RecurringTemplate, error)
	GetActiveTemplatesDueBefore(ownerID string, due time.Time) ([]model.RecurringTemplate, error)
	UpdateTemplateFields(tpl model.RecurringTemplate) error
	UpdateTemplateSchedule(id string, nextDue, updatedAt time.Time) error
	SetTemplateActive(id string, active bool, updatedAt time.Time) error
	DeleteTemplate(id string) error
	ReplaceTemplates(ownerID string, tpls []model.RecurringTemplate) error
	GetTemplatesPendingUpload(ownerID string) ([]model.RecurringTemplate, error)
	MarkTemplatesSynced(ids []string) error

	// Transaction methods
	InsertTransaction(tx model.Transaction) error
	GetTransaction(id string) (*model.Transaction, error)
	GetTransactionsByOwner(ownerID string, from, to time.Time) ([]model.Transaction, error)
	HasTransactionForTemplate(templateID string, date time.Time) (bool, error)

	// Budget methods
	AddBudget(b model.Budget) error
	GetBudget(id string) (*model.Budget, error)
	FindBudget(ownerID, categoryID string, month, year int) (*model.Budget, error)
	GetBudgetsByOwner(ownerID string) ([]model.Budget, error)
	UpdateBudgetLimit(id string, limit decimal.Decimal, updatedAt time.Time) error
	DeleteBudget(id string) error
	ReplaceBudgets(ownerID string, budgets []model.Budget) error
	GetBudgetsPendingUpload(ownerID string) ([]model.Budget, error)
	MarkBudgetsSynced(ids []string) error

	// Category methods
	AddCategory(c model.Category) error
	GetAllCategories() ([]model.Category, error)

	// Audit log methods
	GetAllAuditLogEntries() ([]model.AuditLogEntry, error)
	LogAction(action string, details string) error

	// Backup methods
	ExportDataForBackup() (*model.BackupData, error)
	ImportDataFromBackup(backup *model.BackupData) error
	IntegrateDataFromBackup(backup *model.BackupData) error
}
