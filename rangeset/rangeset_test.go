package rangeset

import "testing"

// assertInvariant checks the universal invariant from SPEC_FULL.md §8: no
// two stored ranges overlap or sit immediately adjacent to one another.
func assertInvariant(t *testing.T, s *Set) {
	t.Helper()
	rs := s.Ranges()
	for i := range rs {
		for j := range rs {
			if i == j {
				continue
			}
			a, b := rs[i], rs[j]
			if !(a.End+1 < b.Start || b.End+1 < a.Start) {
				t.Fatalf("invariant broken between %+v and %+v", a, b)
			}
		}
	}
}

func TestInsertPackAndSplit(t *testing.T) {
	s := Empty()
	if !s.Insert(Range{0, 99}) {
		t.Fatal("insert 1 failed")
	}
	if !s.Insert(Range{200, 299}) {
		t.Fatal("insert 2 failed")
	}
	if !s.Insert(Range{100, 199}) {
		t.Fatal("insert 3 failed")
	}
	assertInvariant(t, s)
	sorted := s.Sorted()
	if len(sorted) != 1 || sorted[0] != (Range{0, 299}) {
		t.Fatalf("expected single merged range [0,299], got %+v", sorted)
	}

	if !s.Remove(Range{50, 149}) {
		t.Fatal("remove failed")
	}
	assertInvariant(t, s)
	sorted = s.Sorted()
	want := []Range{{0, 49}, {150, 299}}
	if len(sorted) != 2 || sorted[0] != want[0] || sorted[1] != want[1] {
		t.Fatalf("expected %+v, got %+v", want, sorted)
	}
}

func TestAllocateAlignedSubsetAndReturnsCapacity(t *testing.T) {
	s := Empty()
	s.Insert(Range{0x1000, 0x2FFF})
	before, ok := s.TotalSize()
	if !ok {
		t.Fatal("total size overflow unexpected")
	}

	addr, ok := s.Allocate(0x1000, 0x1000)
	if !ok {
		t.Fatal("allocate failed")
	}
	if addr%0x1000 != 0 {
		t.Fatalf("allocate returned unaligned address %#x", addr)
	}
	if addr < 0x1000 || addr+0x1000-1 > 0x2FFF {
		t.Fatalf("allocate returned address outside source range: %#x", addr)
	}
	assertInvariant(t, s)

	if !s.Insert(Range{addr, addr + 0xFFF}) {
		t.Fatal("release failed")
	}
	after, _ := s.TotalSize()
	if after != before {
		t.Fatalf("total size not restored: before=%d after=%d", before, after)
	}
}

func TestAllocateSmallestPadding(t *testing.T) {
	s := Empty()
	// A tight range with zero padding and a loose range with large padding;
	// the allocator must prefer the tight one.
	s.Insert(Range{0x5800, 0x7FFF})
	s.Insert(Range{0x1000, 0x1FFF})

	addr, ok := s.Allocate(0x1000, 0x1000)
	if !ok {
		t.Fatal("allocate failed")
	}
	if addr != 0x1000 {
		t.Fatalf("expected smallest-padding range to win, got %#x", addr)
	}
}

func TestAllocateFailsWhenNothingFits(t *testing.T) {
	s := Empty()
	s.Insert(Range{0, 0xFFF})
	if _, ok := s.Allocate(0x2000, 0x1000); ok {
		t.Fatal("allocate should have failed")
	}
}

func TestCapacityExceeded(t *testing.T) {
	s := Empty()
	// Insert Cap disjoint, non-contiguous ranges to fill capacity.
	for i := 0; i < Cap; i++ {
		base := uint32(i * 0x10000)
		if !s.Insert(Range{base, base + 0xFF}) {
			t.Fatalf("insert %d unexpectedly failed", i)
		}
	}
	// One more, disjoint from all existing ranges, must fail: no merge
	// target exists and the table is full.
	far := uint32(Cap * 0x10000)
	if s.Insert(Range{far, far + 0xFF}) {
		t.Fatal("insert beyond capacity should fail")
	}
	if s.Len() != Cap {
		t.Fatalf("expected set to remain at capacity %d, got %d", Cap, s.Len())
	}
}
