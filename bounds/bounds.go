// Package bounds names, for every call site that can perform unbounded work
// inside the kernel (copying a user buffer one page at a time, walking a
// directory, draining an iovec array), the worst-case amount of kernel heap
// and physical-frame budget a single iteration of that loop can consume.
// Callers spend the named cost through package res before doing the work,
// so a caller that cannot pay fails fast instead of looping until the
// kernel heap is exhausted.
package bounds

// Op identifies one bounded call site.
type Op int

const (
	B_USERBUF_T__TX Op = iota
	B_USERIOVEC_T_IOV_INIT
	B_USERIOVEC_T__TX
	B_FS_READ
	B_FS_DIR_ITER
	B_SYS_READ
	B_SYS_WRITE
	B_SYS_FORK
	B_SYS_EXEC
	nops
)

// costs is expressed in bytes of heap the op may allocate or pin per
// iteration: one page for every call site that copies or materializes a
// page's worth of data, since none of them holds more than one frame's
// content live at a time.
var costs = [nops]int64{
	B_USERBUF_T__TX:         4096,
	B_USERIOVEC_T_IOV_INIT:  16,
	B_USERIOVEC_T__TX:       4096,
	B_FS_READ:               4096,
	B_FS_DIR_ITER:           4096,
	B_SYS_READ:              4096,
	B_SYS_WRITE:             4096,
	B_SYS_FORK:              4096,
	B_SYS_EXEC:              4096,
}

// Bounds returns the budget cost of op, for passing to res.Resadd_noblock.
func Bounds(op Op) int64 {
	return costs[op]
}
