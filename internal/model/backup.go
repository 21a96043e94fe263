// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.
package model

// BackupData is a container for all data exported in a backup. It holds
// slices of every core model so a dump can be restored into a fresh
// database, including one with a different backend.
type BackupData struct {
	// SchemaVersion helps in handling migrations during restore.
	SchemaVersion int `json:"schema_version"`

	// Data from each table.
	Templates       []RecurringTemplate `json:"templates"`
	Transactions    []Transaction       `json:"transactions"`
	Budgets         []Budget            `json:"budgets"`
	Categories      []Category          `json:"categories"`
	AuditLogEntries []AuditLogEntry     `json:"audit_log_entries"`
}
