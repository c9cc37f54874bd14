// Package tinfo holds the single "current execution context" cell every
// other package reaches through instead of threading a pointer through
// every call. The donor keys this off per-goroutine storage
// (runtime.Gptr/Setgptr) because it schedules one Go goroutine per kernel
// thread; this kernel has exactly one logical CPU and one logical thread
// of control at a time, so the cell collapses to a single atomically
// accessed pointer with nothing to key by.
package tinfo

import (
	"sync/atomic"
	"unsafe"
)

var current unsafe.Pointer

// Current returns the handle installed by the most recent SetCurrent call,
// or nil before the first one.
func Current() unsafe.Pointer {
	return atomic.LoadPointer(&current)
}

// SetCurrent installs p as the current handle. Passing nil clears it.
func SetCurrent(p unsafe.Pointer) {
	atomic.StorePointer(&current, p)
}
