package cpu

import (
	"testing"
	"unsafe"

	"msi"
)

func TestGDTFlatCodeDescriptorBytes(t *testing.T) {
	g := NewGDT()
	off := kcodeIdx * 8
	want := [8]byte{0xFF, 0xFF, 0x00, 0x00, 0x00, 0x9A, 0xCF, 0x00}
	got := [8]byte(g.raw[off : off+8])
	if got != want {
		t.Fatalf("kernel code descriptor = % x, want % x", got, want)
	}
}

func TestGDTFlatDataDescriptorDPL3(t *testing.T) {
	g := NewGDT()
	off := udataIdx * 8
	// accData(0x12) | accPresent(0x80) | dpl3<<5(0x60) = 0xF2
	want := [8]byte{0xFF, 0xFF, 0x00, 0x00, 0x00, 0xF2, 0xCF, 0x00}
	got := [8]byte(g.raw[off : off+8])
	if got != want {
		t.Fatalf("user data descriptor = % x, want % x", got, want)
	}
}

func TestGDTSelectorsEncodeIndexAndRPL(t *testing.T) {
	if KernelCS != 0x08 || KernelDS != 0x10 {
		t.Fatalf("ring-0 selectors = %#x/%#x, want 0x08/0x10", KernelCS, KernelDS)
	}
	if UserCS != 0x1B || UserDS != 0x23 {
		t.Fatalf("ring-3 selectors = %#x/%#x, want 0x1b/0x23", UserCS, UserDS)
	}
	if TSSSel != 0x28 {
		t.Fatalf("TSS selector = %#x, want 0x28", TSSSel)
	}
}

func TestGDTSetTSSInstallsSystemDescriptor(t *testing.T) {
	g := NewGDT()
	ts := NewTSS()
	g.SetTSS(ts)
	off := tssIdx * 8
	limit := uint16(g.raw[off]) | uint16(g.raw[off+1])<<8
	if limit != uint16(ts.Limit()) {
		t.Fatalf("TSS descriptor limit = %#x, want %#x", limit, ts.Limit())
	}
	access := g.raw[off+5]
	if access != accPresent|accTSS32 {
		t.Fatalf("TSS descriptor access byte = %#x, want %#x", access, accPresent|accTSS32)
	}
}

func TestNewTSSSealsSS0AndPoisonsESP0(t *testing.T) {
	ts := NewTSS()
	raw := ts.raw[:]
	ss0 := uint16(raw[ss0Off]) | uint16(raw[ss0Off+1])<<8
	if ss0 != uint16(KernelDS) {
		t.Fatalf("ss0 = %#x, want %#x", ss0, KernelDS)
	}
	esp0 := uint32(raw[esp0Off]) | uint32(raw[esp0Off+1])<<8 |
		uint32(raw[esp0Off+2])<<16 | uint32(raw[esp0Off+3])<<24
	if esp0 != 0xdeadbeef {
		t.Fatalf("esp0 = %#x, want 0xdeadbeef", esp0)
	}
}

func TestTSSSetKernelStackUpdatesESP0(t *testing.T) {
	ts := NewTSS()
	ts.SetKernelStack(0xcafe1234)
	raw := ts.raw[:]
	esp0 := uint32(raw[esp0Off]) | uint32(raw[esp0Off+1])<<8 |
		uint32(raw[esp0Off+2])<<16 | uint32(raw[esp0Off+3])<<24
	if esp0 != 0xcafe1234 {
		t.Fatalf("esp0 = %#x, want 0xcafe1234", esp0)
	}
}

func TestIDTSetGateInterruptGateEncoding(t *testing.T) {
	d := NewIDT()
	d.SetGate(9, 0x8, 0x12345678, 0, InterruptGate)
	off := 9 * 8
	low := uint32(d.raw[off]) | uint32(d.raw[off+1])<<8 |
		uint32(d.raw[off+2])<<16 | uint32(d.raw[off+3])<<24
	high := uint32(d.raw[off+4]) | uint32(d.raw[off+5])<<8 |
		uint32(d.raw[off+6])<<16 | uint32(d.raw[off+7])<<24
	if low != 0x00085678 {
		t.Fatalf("low dword = %#x, want 0x00085678", low)
	}
	if high != 0x12348E00 {
		t.Fatalf("high dword = %#x, want 0x12348e00", high)
	}
}

func TestIDTSetGateTrapGateDPL3Encoding(t *testing.T) {
	d := NewIDT()
	d.SetGate(syscallVector, 0x8, 0x12345678, 3, TrapGate)
	off := syscallVector * 8
	high := uint32(d.raw[off+4]) | uint32(d.raw[off+5])<<8 |
		uint32(d.raw[off+6])<<16 | uint32(d.raw[off+7])<<24
	if high != 0x1234EF00 {
		t.Fatalf("high dword = %#x, want 0x1234ef00", high)
	}
}

func TestInitIDTClaimsExceptionIRQAndSyscallVectors(t *testing.T) {
	vectors = msi.NewPool(0, idtEntries)
	InitIDT()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic reclaiming a vector InitIDT already claimed")
		}
	}()
	vectors.Claim(msi.Vec_t(syscallVector))
}

func TestExceptionHasErrorCodeMatchesIntelList(t *testing.T) {
	want := map[int]bool{8: true, 10: true, 11: true, 12: true, 13: true, 14: true, 17: true, 21: true}
	for v := range want {
		if !exceptionHasErrorCode[v] {
			t.Errorf("vector %d should carry a native error code", v)
		}
	}
	for v, has := range exceptionHasErrorCode {
		if !want[v] || !has {
			t.Errorf("unexpected error-code vector %d", v)
		}
	}
}

func TestPITDivisorNotOne(t *testing.T) {
	if pitDivisor == 1 {
		t.Fatal("PIT divisor of 1 is illegal in mode 2")
	}
	if pitDivisor == 0 {
		t.Fatal("PIT divisor must be nonzero")
	}
}

func TestNewFxSaveDefaultControlWords(t *testing.T) {
	fx := NewFxSave()
	raw := (*[512]byte)(unsafe.Pointer(fx))
	fcw := uint16(raw[0]) | uint16(raw[1])<<8
	if fcw != defaultFCW {
		t.Fatalf("FCW = %#x, want %#x", fcw, defaultFCW)
	}
	mxcsr := uint32(raw[24]) | uint32(raw[25])<<8 | uint32(raw[26])<<16 | uint32(raw[27])<<24
	if mxcsr != defaultMXCSR {
		t.Fatalf("MXCSR = %#x, want %#x", mxcsr, defaultMXCSR)
	}
}

func TestKeyboardFeedCooksALine(t *testing.T) {
	k := NewKeyboard()
	for _, sc := range []uint8{0x11, 0x12, 0x1C} { // w, e, Enter
		k.feed(sc)
	}
	if string(k.ready) != "we\n" {
		t.Fatalf("ready = %q, want %q", k.ready, "we\n")
	}
}

func TestKeyboardFeedShiftUppercases(t *testing.T) {
	k := NewKeyboard()
	k.feed(scLShift)
	k.feed(0x11) // w
	k.feed(scLShift | scReleased)
	k.feed(0x12) // e
	k.feed(scEnter)
	if string(k.ready) != "We\n" {
		t.Fatalf("ready = %q, want %q", k.ready, "We\n")
	}
}

func TestKeyboardFeedBackspaceErasesLastRune(t *testing.T) {
	k := NewKeyboard()
	k.feed(0x11) // w
	k.feed(0x12) // e
	k.feed(scBackspace)
	k.feed(scEnter)
	if string(k.ready) != "w\n" {
		t.Fatalf("ready = %q, want %q", k.ready, "w\n")
	}
}

func TestKeyboardFeedBackspaceOnEmptyLineIsNoop(t *testing.T) {
	k := NewKeyboard()
	k.feed(scBackspace)
	k.feed(scEnter)
	if string(k.ready) != "\n" {
		t.Fatalf("ready = %q, want %q", k.ready, "\n")
	}
}

func TestKeyboardFeedKeyReleaseEmitsNothing(t *testing.T) {
	k := NewKeyboard()
	k.feed(0x11 | scReleased)
	if len(k.ready) != 0 || len(k.line) != 0 {
		t.Fatal("key-up event should not be cooked into a line")
	}
}
