// Package res tracks the kernel's shared resource budget: the total amount
// of heap and pinned-frame headroom every in-flight syscall is collectively
// allowed to consume. Bounded loops (copying a user buffer, walking an
// iovec array, reading a directory block) spend from this budget once per
// iteration through Resadd_noblock instead of trusting their own loop
// bound, so a process that feeds a pathologically large request fails that
// request instead of starving every other process of kernel heap.
package res

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// defaultBudget bounds how many bytes of kernel heap all in-flight bounded
// loops may collectively claim at once; sized well above one page times the
// process table so ordinary concurrent I/O never contends on it.
const defaultBudget = 64 << 20

var budget = semaphore.NewWeighted(defaultBudget)

// Resadd_noblock attempts to reserve amt bytes from the shared resource
// budget without blocking, immediately releasing them once the reservation
// succeeds. This is a point-in-time admission check, not a held lease: it
// answers "is the system under enough memory pressure that this iteration
// should back off" without requiring every bounded loop to remember to call
// a matching release.
func Resadd_noblock(amt int64) bool {
	if amt <= 0 {
		return true
	}
	if !budget.TryAcquire(amt) {
		return false
	}
	budget.Release(amt)
	return true
}

// SetBudget replaces the shared resource budget, for tests and for the boot
// path once the true amount of kernel heap is known (package kheap).
func SetBudget(n int64) {
	budget = semaphore.NewWeighted(n)
}

// Acquire blocks until amt bytes are available or ctx is done, for the rare
// caller (none yet in this kernel) that can afford to wait rather than fail
// fast.
func Acquire(ctx context.Context, amt int64) error {
	return budget.Acquire(ctx, amt)
}
