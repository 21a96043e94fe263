// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package stream provides polling subscriptions over store queries. A watch
// is an explicit poll loop, not a change feed: consumers see a fresh
// snapshot every interval whether or not anything changed.
package stream

import (
	"context"
	"time"
)

// Snapshot is one poll result. Err is set when the fetch failed; the watch
// keeps polling afterwards.
type Snapshot[T any] struct {
	Value T
	Err   error
	At    time.Time
}

// Watch polls fetch every interval and delivers snapshots on the returned
// channel. The first snapshot is fetched immediately. The channel closes
// when ctx is cancelled; cancellation is the only way a watch ends.
func Watch[T any](ctx context.Context, interval time.Duration, fetch func(ctx context.Context) (T, error)) <-chan Snapshot[T] {
	out := make(chan Snapshot[T], 1)
	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			value, err := fetch(ctx)
			snap := Snapshot[T]{Value: value, Err: err, At: time.Now()}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
