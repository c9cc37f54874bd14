package mem

import (
	"testing"

	"defs"
	"rangeset"
)

// fakeBackend simulates physical RAM as a plain in-process byte arena, so
// these tests exercise the real allocator/translation logic without real
// hardware.
type fakeBackend struct {
	ram map[uint32]*[PGSIZE]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{ram: make(map[uint32]*[PGSIZE]byte)}
}

func (f *fakeBackend) Frame(p PhysAddr) ([]byte, defs.Err_t) {
	base := uint32(p) &^ PGOFFSET
	fr, ok := f.ram[base]
	if !ok {
		fr = &[PGSIZE]byte{}
		f.ram[base] = fr
	}
	return fr[:], 0
}

type fakeMapper struct {
	installed map[uint32]uint32
}

func (m *fakeMapper) MapRawDirectly(virt VirtAddr, rawPTE uint32, update bool, pageTableVaddr VirtAddr) defs.Err_t {
	if m.installed == nil {
		m.installed = make(map[uint32]uint32)
	}
	m.installed[uint32(virt)] = rawPTE
	return 0
}

func newPhys(t *testing.T) *Phys {
	t.Helper()
	free := rangeset.Empty()
	if !free.Insert(rangeset.Range{Start: 0x100000, End: 0x1FFFFFF}) {
		t.Fatal("setup insert failed")
	}
	return Init(free, 0xFFFFF000)
}

func TestAllocReleaseRoundTrip(t *testing.T) {
	p := newPhys(t)
	before := p.TotalFree()

	addr, err := p.AllocPhys(PGSIZE, PGSIZE)
	if err != 0 {
		t.Fatalf("alloc failed: %v", err)
	}
	if uint32(addr)%PGSIZE != 0 {
		t.Fatalf("unaligned alloc: %#x", addr)
	}
	p.ReleasePhys(addr, PGSIZE)

	after := p.TotalFree()
	if before != after {
		t.Fatalf("total free not restored: before=%d after=%d", before, after)
	}
}

func TestTranslatePhysLastPageTableIsPermanent(t *testing.T) {
	p := newPhys(t)
	// lastPageTablePaddr was set to 0xFFFFF000 in newPhys.
	v, err := p.TranslatePhys(nil, 0xFFFFF004, 4)
	if err != 0 {
		t.Fatalf("translate failed: %v", err)
	}
	if v != VirtAddr(uint32(LastPageTableVaddr)+4) {
		t.Fatalf("expected permanent mapping offset, got %#x", v)
	}
}

func TestTranslatePhysTransientWindowInstallsMapping(t *testing.T) {
	p := newPhys(t)
	mapper := &fakeMapper{}
	v, err := p.TranslatePhys(mapper, 0x100010, 16)
	if err != 0 {
		t.Fatalf("translate failed: %v", err)
	}
	if v != VirtAddr(uint32(TransientVaddr)+0x10) {
		t.Fatalf("unexpected transient vaddr: %#x", v)
	}
	pte, ok := mapper.installed[uint32(TransientVaddr)]
	if !ok {
		t.Fatal("transient window was never installed")
	}
	if pte&PTE_ADDR != 0x100000 {
		t.Fatalf("installed PTE points at wrong frame: %#x", pte)
	}
}

func TestTranslatePhysRejectsPageStraddle(t *testing.T) {
	p := newPhys(t)
	if _, err := p.TranslatePhys(&fakeMapper{}, 0x100FF0, 32); err == 0 {
		t.Fatal("expected straddling translation to fail")
	}
}

func TestAllocZeroedPhysZeroesFrame(t *testing.T) {
	p := newPhys(t)
	backend := newFakeBackend()
	mapper := &fakeMapper{}
	addr, err := p.AllocZeroedPhys(mapper, backend, PGSIZE, PGSIZE)
	if err != 0 {
		t.Fatalf("alloc zeroed failed: %v", err)
	}
	frame, _ := backend.Frame(addr)
	for i, b := range frame {
		if b != 0 {
			t.Fatalf("frame not zeroed at %d: %#x", i, b)
		}
	}
}
