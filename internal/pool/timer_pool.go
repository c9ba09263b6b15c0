// Package pool recycles timers for hot polling paths.
//
// The transport read loops arm a short wait-window timer on every poll;
// recycling the timers keeps those loops allocation-free.
package pool

import (
	"sync"
	"time"
)

var timers sync.Pool

// GetTimer returns a timer armed for duration d, reusing a recycled one
// when available. Hand it back with PutTimer once the wait is over.
func GetTimer(d time.Duration) *time.Timer {
	t, ok := timers.Get().(*time.Timer)
	if !ok {
		return time.NewTimer(d)
	}

	if active := t.Reset(d); active {
		drain(t)
	}

	return t
}

// PutTimer stops t and recycles it. The caller must not touch t again;
// the next GetTimer may hand it to another goroutine.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		drain(t)
	}
	timers.Put(t)
}

// drain removes a pending tick so it cannot fire a recycled timer early.
func drain(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
