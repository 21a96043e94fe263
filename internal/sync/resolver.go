// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sync merges local and remote record sets and pushes local changes
// to the backend. Conflicts resolve whole-record by last write wins.
package sync

import (
	"sort"

	"github.com/tallyfin/tally/internal/model"
)

// Decision says which side of a conflict won.
type Decision int

const (
	// KeepLocal keeps the local record. Ties resolve this way so a device
	// never discards its own copy for an equally old remote one.
	KeepLocal Decision = iota
	// TakeRemote replaces the local record with the remote one.
	TakeRemote
)

func (d Decision) String() string {
	if d == TakeRemote {
		return "take_remote"
	}
	return "keep_local"
}

// resolve applies last-write-wins on the modification clocks: the remote
// side wins only when strictly newer. Field-level merging is deliberately
// not attempted; the newer record replaces the older one wholesale.
func resolve(localUpdated, remoteUpdated int64) Decision {
	if remoteUpdated > localUpdated {
		return TakeRemote
	}
	return KeepLocal
}

// MergeTemplates combines a local and a remote template set into the merged
// set the device should hold afterwards. Records present on only one side
// are kept; records present on both resolve by last write wins. A remote
// winner arrives already acknowledged, so it is stored as synced.
func MergeTemplates(local, remote []model.RecurringTemplate) []model.RecurringTemplate {
	byID := make(map[string]model.RecurringTemplate, len(local))
	for _, l := range local {
		byID[l.ID] = l
	}

	merged := make([]model.RecurringTemplate, 0, len(local)+len(remote))
	seen := make(map[string]bool, len(remote))
	for _, r := range remote {
		seen[r.ID] = true
		l, ok := byID[r.ID]
		if !ok || resolve(l.UpdatedAt.UnixMilli(), r.UpdatedAt.UnixMilli()) == TakeRemote {
			r.SyncStatus = model.SyncSynced
			merged = append(merged, r)
			continue
		}
		merged = append(merged, l)
	}
	for _, l := range local {
		if !seen[l.ID] {
			merged = append(merged, l)
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	return merged
}

// MergeBudgets combines a local and a remote budget set the same way
// MergeTemplates does.
func MergeBudgets(local, remote []model.Budget) []model.Budget {
	byID := make(map[string]model.Budget, len(local))
	for _, l := range local {
		byID[l.ID] = l
	}

	merged := make([]model.Budget, 0, len(local)+len(remote))
	seen := make(map[string]bool, len(remote))
	for _, r := range remote {
		seen[r.ID] = true
		l, ok := byID[r.ID]
		if !ok || resolve(l.UpdatedAt.UnixMilli(), r.UpdatedAt.UnixMilli()) == TakeRemote {
			r.SyncStatus = model.SyncSynced
			merged = append(merged, r)
			continue
		}
		merged = append(merged, l)
	}
	for _, l := range local {
		if !seen[l.ID] {
			merged = append(merged, l)
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	return merged
}
