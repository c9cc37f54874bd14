package kheap

import (
	"testing"

	"defs"
	"mem"
)

type fakeMapper struct {
	mapped []mem.VirtAddr
}

func (f *fakeMapper) Map(virt mem.VirtAddr, size uint32, write, user bool, init func(off uint32, frame []byte)) defs.Err_t {
	f.mapped = append(f.mapped, virt)
	return 0
}

func TestAllocAdvancesWatermark(t *testing.T) {
	m := &fakeMapper{}
	a := New(m)

	v1, err := a.Alloc(mem.PGSIZE, mem.PGSIZE)
	if err != 0 {
		t.Fatalf("alloc 1 failed: %v", err)
	}
	v2, err := a.Alloc(mem.PGSIZE, mem.PGSIZE)
	if err != 0 {
		t.Fatalf("alloc 2 failed: %v", err)
	}
	if v1 != Base {
		t.Fatalf("first alloc should be at Base, got %#x", v1)
	}
	if v2 != Base+mem.VirtAddr(mem.PGSIZE) {
		t.Fatalf("second alloc should follow first, got %#x", v2)
	}
	if len(m.mapped) != 2 {
		t.Fatalf("expected 2 Map calls, got %d", len(m.mapped))
	}
}

func TestFreeThenAllocReusesSlot(t *testing.T) {
	m := &fakeMapper{}
	a := New(m)

	v1, _ := a.Alloc(mem.PGSIZE, mem.PGSIZE)
	usedBefore := a.Used()

	a.Free(v1, mem.PGSIZE)
	v2, err := a.Alloc(mem.PGSIZE, mem.PGSIZE)
	if err != 0 {
		t.Fatalf("realloc failed: %v", err)
	}
	if v2 != v1 {
		t.Fatalf("expected reuse of freed slot, got %#x want %#x", v2, v1)
	}
	if a.Used() != usedBefore {
		t.Fatalf("watermark should not have advanced on reuse: before=%d after=%d", usedBefore, a.Used())
	}
}

func TestFreeCoalescesAdjacentRuns(t *testing.T) {
	m := &fakeMapper{}
	a := New(m)

	v1, _ := a.Alloc(mem.PGSIZE, mem.PGSIZE)
	v2, _ := a.Alloc(mem.PGSIZE, mem.PGSIZE)
	v3, _ := a.Alloc(mem.PGSIZE, mem.PGSIZE)

	a.Free(v1, mem.PGSIZE)
	a.Free(v3, mem.PGSIZE)
	a.Free(v2, mem.PGSIZE) // should merge all three into one run

	big, err := a.Alloc(3*mem.PGSIZE, mem.PGSIZE)
	if err != 0 {
		t.Fatalf("expected coalesced 3-page run to satisfy alloc: %v", err)
	}
	if big != v1 {
		t.Fatalf("expected merged run to start at %#x, got %#x", v1, big)
	}
}

func TestAllocRejectsOversizedAlignment(t *testing.T) {
	a := New(&fakeMapper{})
	if _, err := a.Alloc(mem.PGSIZE, mem.PGSIZE*2); err == 0 {
		t.Fatal("expected alignment beyond page size to be rejected")
	}
}

func TestAllocFailsPastWindow(t *testing.T) {
	a := New(&fakeMapper{})
	if _, err := a.Alloc(Window+mem.PGSIZE, mem.PGSIZE); err == 0 {
		t.Fatal("expected allocation larger than the heap window to fail")
	}
}
