// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package alert

import (
	"sort"
	"sync"
)

// Registry holds the currently active alerts. It is created and closed by
// its owner; there is no package-level instance. All methods are safe for
// concurrent use.
type Registry struct {
	mu     sync.Mutex
	active map[string]Alert
	closed bool
}

// NewRegistry returns an empty, open registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]Alert)}
}

// Raise records an alert, keyed by budget. It returns true when the alert is
// new or escalates the level of an existing one, false for repeats and after
// Close.
func (r *Registry) Raise(a Alert) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	prev, ok := r.active[a.BudgetID]
	if ok && prev.Level >= a.Level {
		return false
	}
	r.active[a.BudgetID] = a
	return true
}

// Active returns the current alerts ordered by budget ID.
func (r *Registry) Active() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Alert, 0, len(r.active))
	for _, a := range r.active {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BudgetID < out[j].BudgetID })
	return out
}

// Clear drops the alert for one budget, e.g. after the user raised the
// limit.
func (r *Registry) Clear(budgetID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, budgetID)
}

// Close empties the registry and rejects further Raise calls. Closing twice
// is harmless.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.active = make(map[string]Alert)
}
