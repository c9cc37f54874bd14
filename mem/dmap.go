package mem

import (
	"defs"
	"rangeset"
)

// BootArgs is the stable struct the bootloader hands the kernel (spec §6),
// copied by the kernel into its own memory before the identity map built to
// load the kernel is torn down. FreeMemory is carried as raw ranges rather
// than a *rangeset.Set because the bootloader — out of scope for this
// repository per spec §1 — produces it from BIOS INT 15h/E820h and this
// struct is its serialization boundary.
type BootArgs struct {
	FreeMemory         []Range32
	SerialPort         [4]uint16
	LastPageTablePaddr uint32
	FrameBufferPaddr   uint32
	FrameBufferWidth   uint16
	FrameBufferHeight  uint16
}

// Range32 mirrors rangeset.Range's shape without importing rangeset from
// this struct's serialization boundary, keeping BootArgs a flat, ABI-stable
// type independent of the range-set package's internal representation.
type Range32 struct {
	Start uint32
	End   uint32
}

// FreeSet rebuilds a rangeset.Set from the boot-reported free ranges. It
// fails if the ranges cannot be packed into the set's bounded capacity,
// which would indicate either a corrupt BootArgs or a machine with a
// pathologically fragmented memory map.
func (b *BootArgs) FreeSet() (*rangeset.Set, defs.Err_t) {
	s := rangeset.Empty()
	for _, r := range b.FreeMemory {
		if !s.Insert(rangeset.Range{Start: r.Start, End: r.End}) {
			return nil, defs.ERANGEFULL
		}
	}
	return s, 0
}
