package cpu

import (
	"unsafe"

	"defs"
	"mem"
)

// HardwareBackend is the production mem.Backend: every Frame call resolves
// through mem.Phys's transient-translation-window contract (spec §4.2) and
// returns a slice that directly aliases physical memory at whatever linear
// address paging currently maps it to.
type HardwareBackend struct {
	phys   *mem.Phys
	mapper mem.Mapper
}

// NewHardwareBackend binds phys's allocator to mapper, the page directory
// whose self-mapped last page table installs the transient window. mapper
// may be nil at construction time, during the brief boot window before any
// PageDirectory value exists yet; SetMapper wires it in once one does.
func NewHardwareBackend(phys *mem.Phys, mapper mem.Mapper) *HardwareBackend {
	return &HardwareBackend{phys: phys, mapper: mapper}
}

// SetMapper installs m as the mapper future Frame calls install transient
// windows through.
func (h *HardwareBackend) SetMapper(m mem.Mapper) {
	h.mapper = m
}

// Frame returns the PGSIZE-byte window aliasing p's containing frame: the
// permanent last-page-table mapping when p falls inside it, otherwise a
// freshly installed transient window at mem.TransientVaddr.
func (h *HardwareBackend) Frame(p mem.PhysAddr) ([]byte, defs.Err_t) {
	base := mem.PhysAddr(uint32(p) &^ mem.PGOFFSET)
	va, err := h.phys.TranslatePhys(h.mapper, base, mem.PGSIZE)
	if err != 0 {
		return nil, err
	}
	ptr := unsafe.Pointer(uintptr(va))
	return unsafe.Slice((*byte)(ptr), mem.PGSIZE), 0
}

