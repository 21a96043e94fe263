// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the SQLite implementation of the database store.
package db

import (
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SqliteStore is the SQLite implementation of the Store interface. All
// behavior lives in the shared Bun-backed store; this type pins the driver
// import and leaves room for SQLite-specific overrides.
type SqliteStore struct {
	bunStore
}
