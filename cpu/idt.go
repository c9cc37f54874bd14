package cpu

import (
	"reflect"
	"unsafe"

	"msi"
	"util"
)

const idtEntries = 256

// syscallVector is the single trap gate userspace may invoke directly;
// every other gate is an interrupt gate reachable only from ring 0 or the
// processor itself.
const syscallVector = 0x67

// GateType distinguishes the two gate shapes this kernel installs.
// TaskGate exists in the hardware but has no user here.
type GateType uint32

const (
	InterruptGate GateType = 0
	TrapGate      GateType = 1
)

// IDT is the 256-entry interrupt descriptor table.
type IDT struct {
	raw [idtEntries * 8]byte
}

// NewIDT allocates a zeroed table; every vector faults as "not present"
// until SetGate installs it.
func NewIDT() *IDT {
	return &IDT{}
}

// SetGate installs a descriptor at vector pointing at the handler whose
// code address is offset, running in segment at privilege dpl.
//
// The encoding follows the 32-bit gate descriptor layout: a low dword of
// (segment<<16 | offset&0xFFFF) and a high dword combining the upper
// offset bits with the present bit, DPL, the fixed size/type bits, and
// the gate-type bit.
func (d *IDT) SetGate(vector int, segment uint16, offset uint32, dpl uint8, typ GateType) {
	low := uint32(segment)<<16 | (offset & 0xFFFF)
	high := (offset & 0xFFFF0000) | (1 << 15) | (uint32(dpl) << 13) |
		(1 << 11) | (3 << 9) | (uint32(typ) << 8)

	off := vector * 8
	util.Writen(d.raw[:], 4, off, int(low))
	util.Writen(d.raw[:], 4, off+4, int(high))
}

// Load installs the table via Lidt.
func (d *IDT) Load() {
	Lidt(uint32(uintptr(unsafe.Pointer(&d.raw[0]))), uint16(len(d.raw)-1))
}

// vectors tracks which of the 256 IDT slots are still free, built
// directly on msi.Pool — the same bounded-range allocator the donor used
// only for the eight MSI vectors, covering the whole IDT here so
// exception, IRQ, and syscall gates are all installed through one
// auditable allocator, with room left over for a device driver that needs
// a vector beyond the fixed set InitIDT installs.
var vectors = msi.NewPool(0, idtEntries)

// exceptionHasErrorCode is the set of exception vectors the processor
// itself pushes a native error code for.
var exceptionHasErrorCode = map[int]bool{8: true, 10: true, 11: true, 12: true, 13: true, 14: true, 17: true, 21: true}

func stubAddr(fn func()) uint32 {
	return uint32(reflect.ValueOf(fn).Pointer())
}

// InitIDT builds the full table: exception vectors 0-14 and 16-21 as
// interrupt gates at DPL 0, PIC IRQ vectors 32-47 as interrupt gates at
// DPL 0, and the syscall vector as a trap gate at DPL 3 so userspace may
// invoke int 0x67 directly.
func InitIDT() *IDT {
	d := NewIDT()

	for _, v := range []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14,
		16, 17, 18, 19, 20, 21} {
		vectors.Claim(msi.Vec_t(v))
		d.SetGate(v, KernelCS, stubAddr(excStubs[v]), 0, InterruptGate)
	}

	for irq := 0; irq < 16; irq++ {
		v := picIRQOffset + irq
		vectors.Claim(msi.Vec_t(v))
		d.SetGate(v, KernelCS, stubAddr(irqStubs[irq]), 0, InterruptGate)
	}

	vectors.Claim(msi.Vec_t(syscallVector))
	d.SetGate(syscallVector, KernelCS, stubAddr(syscallEntry), 3, TrapGate)

	return d
}
