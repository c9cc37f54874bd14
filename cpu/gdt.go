package cpu

import (
	"unsafe"

	"util"
)

// The global descriptor table this kernel runs under: a null entry, a
// flat ring-0 code/data pair spanning all 4GiB, a flat ring-3 code/data
// pair for user processes, and the single TSS descriptor used for the
// ring-3-to-ring-0 stack switch on interrupts.
const (
	nullIdx  = 0
	kcodeIdx = 1
	kdataIdx = 2
	ucodeIdx = 3
	udataIdx = 4
	tssIdx   = 5

	gdtEntries = 6
)

// Selectors, each a GDT index shifted into the top 13 bits with the
// requested privilege level folded into the low two.
const (
	KernelCS = kcodeIdx << 3
	KernelDS = kdataIdx << 3
	UserCS   = ucodeIdx<<3 | 3
	UserDS   = udataIdx<<3 | 3
	TSSSel   = tssIdx << 3
)

const (
	accPresent = 1 << 7
	accCode    = 0x1A // executable, readable, not conforming
	accData    = 0x12 // writable, grows up
	accTSS32   = 0x09 // available 32-bit TSS, system descriptor (S=0)
	granFlags  = 1<<3 | 1<<2 // 4KiB granularity, 32-bit operand size
)

// GDT is the six-entry flat descriptor table: two ring-0 segments, two
// ring-3 segments, and the TSS descriptor, all packed into the 8-byte
// hardware layout Lgdt expects.
type GDT struct {
	raw [gdtEntries * 8]byte
}

// NewGDT builds the four flat segment descriptors. SetTSS must be called
// before Load to install the fifth, TSS-backed entry.
func NewGDT() *GDT {
	g := &GDT{}
	g.setFlat(kcodeIdx, accCode, 0)
	g.setFlat(kdataIdx, accData, 0)
	g.setFlat(ucodeIdx, accCode, 3)
	g.setFlat(udataIdx, accData, 3)
	return g
}

func (g *GDT) setFlat(idx int, access uint8, dpl uint8) {
	g.set(idx, 0, 0xFFFFF, accPresent|access|(dpl<<5), granFlags)
}

// SetTSS installs the TSS system descriptor pointing at t's backing
// storage.
func (g *GDT) SetTSS(t *TSS) {
	base := uint32(uintptr(unsafe.Pointer(&t.raw[0])))
	g.set(tssIdx, base, t.Limit(), accPresent|accTSS32, 0)
}

// set packs one 8-byte descriptor: a 20-bit limit and 32-bit base split
// across the legacy 80286 layout, an access byte, and a 4-bit flags
// nibble sharing byte 6 with the limit's top nibble.
func (g *GDT) set(idx int, base, limit uint32, access, flags uint8) {
	off := idx * 8
	util.Writen(g.raw[:], 2, off, int(limit&0xFFFF))
	util.Writen(g.raw[:], 1, off+2, int(base&0xFF))
	util.Writen(g.raw[:], 1, off+3, int((base>>8)&0xFF))
	util.Writen(g.raw[:], 1, off+4, int((base>>16)&0xFF))
	g.raw[off+5] = access
	g.raw[off+6] = uint8((limit>>16)&0xF) | flags<<4
	g.raw[off+7] = uint8((base >> 24) & 0xFF)
}

// Load installs the table via Lgdt. Segment registers must be reloaded
// by the caller with KernelCS/KernelDS afterward; this only updates the
// GDTR.
func (g *GDT) Load() {
	Lgdt(uint32(uintptr(unsafe.Pointer(&g.raw[0]))), uint16(len(g.raw)-1))
}
