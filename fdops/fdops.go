// Package fdops defines the operation set every open file descriptor
// dispatches through (Fdops_i) and the user-memory transfer endpoint those
// operations read and write against (Userio_i) — the same split the donor
// kernel's fd package assumes of its (unretrieved) fdops package, inferred
// here from fd.go's Reopen/Close call sites and circbuf.go's Uioread/
// Uiowrite-shaped Userio_i consumers.
package fdops

import "defs"
import "stat"

// Userio_i abstracts a user-memory transfer endpoint. vm.Userbuf_t,
// vm.Useriovec_t, and vm.Fakeubuf_t all satisfy it structurally without
// this package needing to import vm.
type Userio_i interface {
	Uioread(dst []uint8) (int, defs.Err_t)
	Uiowrite(src []uint8) (int, defs.Err_t)
	Remain() int
	Totalsz() int
}

// Fdops_i is the operation set an Fd_t dispatches through, independent of
// what kind of thing the descriptor actually names (an ext2 file or
// directory, or the console).
type Fdops_i interface {
	// Read transfers from the descriptor into dst, returning the number of
	// bytes transferred.
	Read(dst Userio_i) (int, defs.Err_t)
	// Write transfers src into the descriptor.
	Write(src Userio_i) (int, defs.Err_t)
	// Fstat fills st with the descriptor's metadata.
	Fstat(st *stat.Stat_t) defs.Err_t
	// Reopen records an additional reference to the descriptor (fork, dup).
	Reopen() defs.Err_t
	// Close drops a reference, releasing any backing state once the last
	// reference is gone.
	Close() defs.Err_t
}
