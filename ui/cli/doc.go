// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for Tally using Cobra.
// It wires configuration, localization and the database store, and provides
// commands that delegate to the internal ledger packages. CLI code should
// remain thin and leave scheduling, sync and reporting logic to those
// packages.
package cli
