// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

//nolint:errcheck
package cli

import (
	"strings"
	"testing"

	"github.com/tallyfin/tally/internal/db"
)

func TestBudgetSetListDelete(t *testing.T) {
	setupTestDB(t)

	output := executeCommand(t,
		"budget", "set",
		"--owner", "owner-cli",
		"--category", "cat-groceries",
		"--limit", "450",
		"--month", "5",
		"--year", "2025",
	)
	if !strings.Contains(output, "Added budget") {
		t.Fatalf("Expected add confirmation, got:\n%s", output)
	}

	output = executeCommand(t, "budget", "list", "--owner", "owner-cli")
	for _, want := range []string{"cat-groceries", "450.00", "2025-05"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected list output to contain %q, got:\n%s", want, output)
		}
	}

	budgets, err := db.GetBudgetsByOwner("owner-cli")
	if err != nil || len(budgets) != 1 {
		t.Fatalf("expected 1 budget, got %d (err %v)", len(budgets), err)
	}

	executeCommand(t, "budget", "rm", budgets[0].ID)
	budgets, _ = db.GetBudgetsByOwner("owner-cli")
	if len(budgets) != 0 {
		t.Fatalf("expected budget to be deleted, got %d", len(budgets))
	}
}

func TestBudgetSet_UpdatesExistingSlot(t *testing.T) {
	setupTestDB(t)

	executeCommand(t,
		"budget", "set",
		"--owner", "owner-cli",
		"--category", "cat-rent",
		"--limit", "900",
		"--month", "5",
		"--year", "2025",
	)
	output := executeCommand(t,
		"budget", "set",
		"--owner", "owner-cli",
		"--category", "cat-rent",
		"--limit", "950",
		"--month", "5",
		"--year", "2025",
	)
	if !strings.Contains(output, "Updated budget") {
		t.Fatalf("Expected update confirmation, got:\n%s", output)
	}

	budgets, err := db.GetBudgetsByOwner("owner-cli")
	if err != nil || len(budgets) != 1 {
		t.Fatalf("expected a single budget for the slot, got %d (err %v)", len(budgets), err)
	}
	if budgets[0].MonthlyLimit.StringFixed(2) != "950.00" {
		t.Errorf("expected limit 950.00, got %s", budgets[0].MonthlyLimit.StringFixed(2))
	}
}

func TestBudgetSet_RejectsBadLimit(t *testing.T) {
	setupTestDB(t)

	if _, err := executeCommandE(t,
		"budget", "set",
		"--owner", "owner-cli",
		"--category", "cat-rent",
		"--limit", "-10",
		"--month", "5",
		"--year", "2025",
	); err == nil {
		t.Errorf("expected an error for a negative limit")
	}

	// The update path of an existing slot must reject bad limits too.
	executeCommand(t,
		"budget", "set",
		"--owner", "owner-cli",
		"--category", "cat-rent",
		"--limit", "900",
		"--month", "5",
		"--year", "2025",
	)
	for _, bad := range []string{"-10", "0", "2000000000"} {
		if _, err := executeCommandE(t,
			"budget", "set",
			"--owner", "owner-cli",
			"--category", "cat-rent",
			"--limit", bad,
			"--month", "5",
			"--year", "2025",
		); err == nil {
			t.Errorf("expected an error updating the slot with limit %s", bad)
		}
	}

	budgets, err := db.GetBudgetsByOwner("owner-cli")
	if err != nil || len(budgets) != 1 {
		t.Fatalf("expected 1 budget, got %d (err %v)", len(budgets), err)
	}
	if budgets[0].MonthlyLimit.StringFixed(2) != "900.00" {
		t.Errorf("stored limit changed to %s, want 900.00", budgets[0].MonthlyLimit.StringFixed(2))
	}
}
