// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package stream

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatch_DeliversSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int64
	ch := Watch(ctx, 5*time.Millisecond, func(ctx context.Context) (int, error) {
		return int(calls.Add(1)), nil
	})

	first := <-ch
	if first.Err != nil || first.Value != 1 {
		t.Fatalf("first snapshot = %+v", first)
	}
	second := <-ch
	if second.Value != 2 {
		t.Fatalf("second snapshot = %+v", second)
	}
}

func TestWatch_SurvivesFetchErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int64
	boom := errors.New("store unavailable")
	ch := Watch(ctx, 5*time.Millisecond, func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", boom
		}
		return "recovered", nil
	})

	first := <-ch
	if !errors.Is(first.Err, boom) {
		t.Fatalf("first snapshot err = %v, want store unavailable", first.Err)
	}
	second := <-ch
	if second.Err != nil || second.Value != "recovered" {
		t.Fatalf("second snapshot = %+v", second)
	}
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ch := Watch(ctx, time.Millisecond, func(ctx context.Context) (int, error) {
		return 0, nil
	})
	<-ch
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("channel not closed after cancel")
		}
	}
}
