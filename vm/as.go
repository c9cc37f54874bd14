// Package vm implements the two-level 32-bit page directory (spec
// component C3): map/unmap/translate with on-demand page-table allocation
// and self-referenced access to table frames through package mem's
// transient translation window.
package vm

import (
	"sync"

	"defs"
	"mem"
	"util"
)

// Page-directory geometry: 1024 PDEs, each covering 1024 PTEs of 4 KiB
// pages (4 MiB per PDE, 4 GiB total).
const (
	pdeShift        = 22
	pteIndexMask    = 0x3FF
	entriesPerTable = 1024
	entrySize       = 4
)

func pdeIndex(v mem.VirtAddr) uint32 { return uint32(v) >> pdeShift }
func pteIndex(v mem.VirtAddr) uint32 { return (uint32(v) >> mem.PGSHIFT) & pteIndexMask }

// KernelHalfFirstPDE is the first PDE index belonging to the "kernel half"
// of every address space (spec §6: upper 256 entries cover 0xC0000000+).
const KernelHalfFirstPDE = 768

// PageDirectory owns one 4 KiB directory frame and every page table frame
// it references. All its operations take the *mem.Phys + mem.Backend pair
// that spec §9's "cyclic reference" note describes as a single
// mutable-reference pair — here expressed as two fields on the same
// receiver behind one lock, the combined-aggregate alternative the spec
// names explicitly.
type PageDirectory struct {
	mu      sync.Mutex
	Paddr   mem.PhysAddr
	phys    *mem.Phys
	backend mem.Backend
}

// New allocates a zeroed directory frame.
func New(phys *mem.Phys, backend mem.Backend) (*PageDirectory, defs.Err_t) {
	paddr, err := phys.AllocZeroedPhys(nil, backend, mem.PGSIZE, mem.PGSIZE)
	if err != 0 {
		return nil, err
	}
	return &PageDirectory{Paddr: paddr, phys: phys, backend: backend}, 0
}

// FromCR3 adopts the directory currently loaded into CR3.
func FromCR3(cr3 uint32, phys *mem.Phys, backend mem.Backend) *PageDirectory {
	return &PageDirectory{Paddr: mem.PhysAddr(cr3 &^ mem.PGOFFSET), phys: phys, backend: backend}
}

func (pd *PageDirectory) directoryFrame() ([]byte, defs.Err_t) {
	return pd.backend.Frame(pd.Paddr)
}

func (pd *PageDirectory) pde(index uint32) (uint32, defs.Err_t) {
	frame, err := pd.directoryFrame()
	if err != 0 {
		return 0, err
	}
	return uint32(util.Readn(frame, entrySize, int(index)*entrySize)), 0
}

func (pd *PageDirectory) setPDE(index uint32, val uint32) defs.Err_t {
	frame, err := pd.directoryFrame()
	if err != 0 {
		return err
	}
	util.Writen(frame, entrySize, int(index)*entrySize, int(val))
	return 0
}

// tableFrame resolves the page table frame backing pdeVal's target.
// Backend.Frame already hides the transient-window mechanics (the
// production Backend dereferences through mem's self-map window; the test
// Backend is a plain byte arena), so this need not itself call
// mem.Phys.TranslatePhys — that operation stays exercised directly by
// package mem's own tests as the literal implementation of the spec's
// translate_phys contract.
func (pd *PageDirectory) tableFrame(pdeVal uint32) ([]byte, defs.Err_t) {
	tablePaddr := mem.PhysAddr(pdeVal &^ mem.PGOFFSET)
	return pd.backend.Frame(tablePaddr)
}

// walkForRead returns the PTE value at virt, or ok=false if either level is
// not present.
func (pd *PageDirectory) walkForRead(virt mem.VirtAddr) (uint32, bool, defs.Err_t) {
	pdeVal, err := pd.pde(pdeIndex(virt))
	if err != 0 {
		return 0, false, err
	}
	if pdeVal&mem.PTE_P == 0 {
		return 0, false, 0
	}
	table, err := pd.tableFrame(pdeVal)
	if err != 0 {
		return 0, false, err
	}
	pte := uint32(util.Readn(table, entrySize, int(pteIndex(virt))*entrySize))
	return pte, pte&mem.PTE_P != 0, 0
}

// ensureTable returns the table frame for virt's PDE, allocating and
// installing a new table (with permissive PDE flags — effective access is
// the AND of PDE and PTE, spec §4.3) if create is true and none exists.
func (pd *PageDirectory) ensureTable(virt mem.VirtAddr, create bool) ([]byte, defs.Err_t) {
	idx := pdeIndex(virt)
	pdeVal, err := pd.pde(idx)
	if err != 0 {
		return nil, err
	}
	if pdeVal&mem.PTE_P == 0 {
		if !create {
			return nil, defs.EFAULT
		}
		tablePaddr, err := pd.phys.AllocZeroedPhys(pd, pd.backend, mem.PGSIZE, mem.PGSIZE)
		if err != 0 {
			return nil, err
		}
		pdeVal = uint32(tablePaddr) | mem.PTE_P | mem.PTE_W | mem.PTE_U
		if err := pd.setPDE(idx, pdeVal); err != 0 {
			return nil, err
		}
	}
	return pd.tableFrame(pdeVal)
}

func permBits(write, user bool) uint32 {
	v := uint32(mem.PTE_P)
	if write {
		v |= mem.PTE_W
	}
	if user {
		v |= mem.PTE_U
	}
	return v
}

// MapToPhysPage installs a single PTE pointing at an existing frame.
// update=false refuses to overwrite an already-present PTE.
func (pd *PageDirectory) MapToPhysPage(virt mem.VirtAddr, phys mem.PhysAddr, write, user, update, cacheable bool) defs.Err_t {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	if uint32(virt)&mem.PGOFFSET != 0 {
		return defs.EINVAL
	}
	table, err := pd.ensureTable(virt, true)
	if err != 0 {
		return err
	}
	idx := int(pteIndex(virt)) * entrySize
	existing := uint32(util.Readn(table, entrySize, idx))
	if existing&mem.PTE_P != 0 && !update {
		return defs.EINVAL
	}
	flags := permBits(write, user)
	if !cacheable {
		flags |= mem.PTE_PWT | mem.PTE_PCD
	}
	raw := uint32(phys)&mem.PTE_ADDR | flags
	util.Writen(table, entrySize, idx, int(raw))
	if existing&mem.PTE_P != 0 {
		invlpg(virt)
	}
	return 0
}

// Map allocates one frame per page in [virt, virt+size) and installs PTEs
// for them, optionally initializing bytes through init, a callback keyed by
// byte offset from virt.
func (pd *PageDirectory) Map(virt mem.VirtAddr, size uint32, write, user bool, init func(off uint32, frame []byte)) defs.Err_t {
	if uint32(virt)&mem.PGOFFSET != 0 || size == 0 {
		return defs.EINVAL
	}
	npages := (size + mem.PGOFFSET) / mem.PGSIZE
	for i := uint32(0); i < npages; i++ {
		pageVirt := mem.VirtAddr(uint32(virt) + i*mem.PGSIZE)
		phys, err := pd.phys.AllocZeroedPhys(pd, pd.backend, mem.PGSIZE, mem.PGSIZE)
		if err != 0 {
			return err
		}
		if err := pd.MapToPhysPage(pageVirt, phys, write, user, false, true); err != 0 {
			pd.phys.ReleasePhys(phys, mem.PGSIZE)
			return err
		}
		if init != nil {
			frame, err := pd.backend.Frame(phys)
			if err != 0 {
				return err
			}
			init(i*mem.PGSIZE, frame)
		}
	}
	return 0
}

// MapRaw sets one PTE to an arbitrary value, allocating and zeroing the
// owning table when absent and create is true.
func (pd *PageDirectory) MapRaw(virt mem.VirtAddr, rawPTE uint32, update, create bool) defs.Err_t {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	table, err := pd.ensureTable(virt, create)
	if err != 0 {
		return err
	}
	idx := int(pteIndex(virt)) * entrySize
	existing := uint32(util.Readn(table, entrySize, idx))
	if existing&mem.PTE_P != 0 && !update {
		return defs.EINVAL
	}
	util.Writen(table, entrySize, idx, int(rawPTE))
	if existing&mem.PTE_P != 0 {
		invlpg(virt)
	}
	return 0
}

// MapRawDirectly satisfies mem.Mapper: it installs a raw PTE at virt in
// the page table mapped at pageTableVaddr instead of walking the
// directory. Its only caller, the C2 transient window, passes
// mem.LastPageTableVaddr, so the table is fetched through its frame,
// pd.phys.LastPageTablePaddr(), which Backend.Frame serves from the
// permanent mapping; installing the transient window therefore never
// recurses into installing another one.
func (pd *PageDirectory) MapRawDirectly(virt mem.VirtAddr, rawPTE uint32, update bool, pageTableVaddr mem.VirtAddr) defs.Err_t {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	table, err := pd.backend.Frame(pd.phys.LastPageTablePaddr())
	if err != 0 {
		return err
	}
	idx := int(pteIndex(virt)) * entrySize
	existing := uint32(util.Readn(table, entrySize, idx))
	if existing&mem.PTE_P != 0 && !update {
		return defs.EINVAL
	}
	util.Writen(table, entrySize, idx, int(rawPTE))
	if existing&mem.PTE_P != 0 {
		invlpg(virt)
	}
	return 0
}

// Unmap clears the PTE at virt; if freePage, the backing frame is
// released; if the owning table becomes entirely not-present, the table
// frame itself is released and the PDE cleared.
func (pd *PageDirectory) Unmap(virt mem.VirtAddr, freePage bool) defs.Err_t {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	if uint32(virt)&mem.PGOFFSET != 0 {
		return defs.EINVAL
	}
	idx := pdeIndex(virt)
	pdeVal, err := pd.pde(idx)
	if err != 0 {
		return err
	}
	if pdeVal&mem.PTE_P == 0 {
		return 0
	}
	table, err := pd.tableFrame(pdeVal)
	if err != 0 {
		return err
	}
	pteOff := int(pteIndex(virt)) * entrySize
	pteVal := uint32(util.Readn(table, entrySize, pteOff))
	if pteVal&mem.PTE_P == 0 {
		return 0
	}
	util.Writen(table, entrySize, pteOff, 0)
	invlpg(virt)
	if freePage {
		pd.phys.ReleasePhys(mem.PhysAddr(pteVal&mem.PTE_ADDR), mem.PGSIZE)
	}
	if tableEmpty(table) {
		pd.phys.ReleasePhys(mem.PhysAddr(pdeVal&mem.PTE_ADDR), mem.PGSIZE)
		if err := pd.setPDE(idx, 0); err != 0 {
			return err
		}
	}
	return 0
}

func tableEmpty(table []byte) bool {
	for i := 0; i < entriesPerTable; i++ {
		if uint32(util.Readn(table, entrySize, i*entrySize))&mem.PTE_P != 0 {
			return false
		}
	}
	return true
}

// TranslateVirt walks PDE→PTE and returns the physical address backing
// virt, or ok=false when either level is not present.
func (pd *PageDirectory) TranslateVirt(virt mem.VirtAddr) (mem.PhysAddr, bool, defs.Err_t) {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	pte, ok, err := pd.walkForRead(virt)
	if err != 0 || !ok {
		return 0, false, err
	}
	phys := (pte &^ mem.PGOFFSET) | (uint32(virt) & mem.PGOFFSET)
	return mem.PhysAddr(phys), true, 0
}

// CopyKernelHalf copies the PDEs covering 0xC0000000+ (spec §6: upper 256
// entries) from src into pd, the snapshot taken once at process creation
// (spec §4.7, open question 1: later kernel allocations are not
// retroactively propagated — see DESIGN.md).
func (pd *PageDirectory) CopyKernelHalf(src *PageDirectory) defs.Err_t {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	src.mu.Lock()
	defer src.mu.Unlock()
	dstFrame, err := pd.directoryFrame()
	if err != 0 {
		return err
	}
	srcFrame, err := src.directoryFrame()
	if err != 0 {
		return err
	}
	for i := KernelHalfFirstPDE; i < entriesPerTable; i++ {
		v := util.Readn(srcFrame, entrySize, i*entrySize)
		util.Writen(dstFrame, entrySize, i*entrySize, v)
	}
	return 0
}

// ValidateUserRange walks the active page directory and reports whether
// [virt, virt+size) is entirely present, user-accessible, and (for writes)
// writable — the check spec §9 open-question 2 says a compliant UserVaddr
// must perform. Userbuf_t.tx calls it for every page a user copy touches,
// so every Userreadn/Userwriten/Userstr/K2user/User2k transfer is checked.
func (pd *PageDirectory) ValidateUserRange(virt mem.VirtAddr, size uint32, write bool) bool {
	if size == 0 {
		return false
	}
	start := mem.PageRounddown(uint32(virt))
	end := mem.PageRounddown(uint32(virt) + size - 1)
	for page := start; ; page += mem.PGSIZE {
		pte, ok, err := pd.walkForRead(mem.VirtAddr(page))
		if err != 0 || !ok {
			return false
		}
		if pte&mem.PTE_U == 0 {
			return false
		}
		if write && pte&mem.PTE_W == 0 {
			return false
		}
		if page == end {
			break
		}
	}
	return true
}
