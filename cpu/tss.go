package cpu

import "util"

// tssSize is sizeof(TaskStateSegment) in the 32-bit TSS layout: a
// prev-task-link word, three ring stack pointers, cr3, the saved register
// file, six segment selectors, the LDT selector, the debug-trap flag and
// I/O permission bitmap base, and the shadow-stack pointer field.
const tssSize = 108

// esp0Off/ss0Off are the only two fields this kernel ever writes: the
// ring-0 stack switched to on a ring-3-to-ring-0 trap.
const (
	ss0Off  = 8
	esp0Off = 4
)

// TSS is the single global task-state segment used for every process's
// ring-3-to-ring-0 stack switch on interrupts. Only ss0/esp0 are ever
// read by the processor; every other field is dead weight kept only
// because the TSS is a fixed-size hardware structure.
type TSS struct {
	raw [tssSize]byte
}

// NewTSS builds a TSS with ss0 fixed at KernelDS and esp0 poisoned so a
// trap taken before the first SetKernelStack call faults loudly instead of
// silently running on a garbage stack.
func NewTSS() *TSS {
	t := &TSS{}
	util.Writen(t.raw[:], 2, ss0Off, KernelDS)
	util.Writen(t.raw[:], 4, esp0Off, 0xdeadbeef)
	return t
}

// SetKernelStack points esp0 at the top of the kernel stack to use the
// next time a ring-3 process traps into the kernel. Called by the
// scheduler immediately before resuming any process.
func (t *TSS) SetKernelStack(esp uint32) {
	util.Writen(t.raw[:], 4, esp0Off, int(esp))
}

// Limit is sizeof(TSS)-1, the byte offset of the last valid byte, the form
// a GDT system descriptor's limit field expects.
func (t *TSS) Limit() uint32 {
	return tssSize - 1
}
