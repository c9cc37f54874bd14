package syscalls

import (
	"testing"

	"defs"
	"fs"
	"mem"
	"proc"
	"rangeset"
	"util"
	"vm"
)

const testBlockSize = 1024

// buildImage hand-assembles a minimal ext2 image with a root directory
// holding a regular file "hello" (inode 12) and a subdirectory "sub"
// (inode 13), itself holding "." and "..", enough to drive sysOpen,
// sysStat, sysChangeCWD, and sysGetCWD's parent-walk. Same layout style as
// fs/ext2_test.go's buildTestImage and fdops/fdops_test.go's buildImage.
func buildImage(t *testing.T, content []byte) []byte {
	t.Helper()
	const blockCount = 24
	img := make([]byte, blockCount*testBlockSize)
	putU32 := func(off int, v uint32) { util.Writen(img, 4, off, int(v)) }
	putU16 := func(off int, v uint16) { util.Writen(img, 2, off, int(v)) }
	writeDirEnt := func(off int, inode uint32, recLen uint16, name string, typ uint8) {
		util.Writen(img, 4, off+0, int(inode))
		util.Writen(img, 2, off+4, int(recLen))
		util.Writen(img, 1, off+6, len(name))
		util.Writen(img, 1, off+7, int(typ))
		copy(img[off+8:], name)
	}

	sbOff := 1 * testBlockSize
	putU32(sbOff+0, blockCount)
	putU32(sbOff+4, blockCount)
	putU32(sbOff+20, 1)
	putU32(sbOff+24, 0)
	putU32(sbOff+32, blockCount)
	putU32(sbOff+40, blockCount)
	putU16(sbOff+56, fs.SuperBlockMagic)
	putU32(sbOff+76, 1)

	extOff := sbOff + 84
	putU16(extOff+4, 128)
	putU32(extOff+12, 0)
	putU32(extOff+16, 0)

	bgdtOff := 2 * testBlockSize
	putU32(bgdtOff+8, 3) // inode table starts at block 3

	rootOff := 3*testBlockSize + 1*128
	putU16(rootOff+0, 0x4000|0755)
	putU32(rootOff+4, testBlockSize)
	putU32(rootOff+40, 5) // root dir data at block 5

	fileOff := 3*testBlockSize + 11*128
	putU16(fileOff+0, 0x8000|0644)
	putU32(fileOff+4, uint32(len(content)))
	putU32(fileOff+40, 6) // file data at block 6

	subOff := 3*testBlockSize + 12*128
	putU16(subOff+0, 0x4000|0755)
	putU32(subOff+4, testBlockSize)
	putU32(subOff+40, 7) // sub dir data at block 7

	rootDirOff := 5 * testBlockSize
	writeDirEnt(rootDirOff+0, 2, 9, ".", 2)
	writeDirEnt(rootDirOff+9, 2, 10, "..", 2)
	writeDirEnt(rootDirOff+19, 12, 13, "hello", 1)
	writeDirEnt(rootDirOff+32, 13, testBlockSize-32, "sub", 2)

	copy(img[6*testBlockSize:], content)

	subDirOff := 7 * testBlockSize
	writeDirEnt(subDirOff+0, 13, 9, ".", 2)
	writeDirEnt(subDirOff+9, 2, testBlockSize-9, "..", 2)

	return img
}

// fakeBackend is a minimal mem.Backend over an in-process byte arena,
// the same role vm/as_test.go's fakeBackend plays for vm's own tests.
type fakeBackend struct {
	ram map[uint32]*[mem.PGSIZE]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{ram: make(map[uint32]*[mem.PGSIZE]byte)}
}

func (f *fakeBackend) Frame(p mem.PhysAddr) ([]byte, defs.Err_t) {
	base := uint32(p) &^ mem.PGOFFSET
	fr, ok := f.ram[base]
	if !ok {
		fr = &[mem.PGSIZE]byte{}
		f.ram[base] = fr
	}
	return fr[:], 0
}

// setup wires parser/backend (this package's dispatch globals) and a
// single process with a real page directory, mirroring what Init plus
// proc.New do in production, minus the hardware underneath.
func setup(t *testing.T, content []byte) (*proc.Process, *fakeBackend) {
	t.Helper()
	img := buildImage(t, content)
	p, err := fs.Parse(img)
	if err != 0 {
		t.Fatalf("fs.Parse: %v", err)
	}

	free := rangeset.Empty()
	if !free.Insert(rangeset.Range{Start: 0x400000, End: 0x7FFFFF}) {
		t.Fatal("setup insert failed")
	}
	phys := mem.Init(free, 0x300000)
	be := newFakeBackend()

	backend = be
	parser = p

	pd, errc := vm.New(phys, be)
	if errc != 0 {
		t.Fatalf("vm.New: %v", errc)
	}
	cur := &proc.Process{PD: pd, CwdInode: fs.RootInode}
	return cur, be
}

func writeUserString(t *testing.T, cur *proc.Process, be *fakeBackend, va mem.VirtAddr, s string) {
	t.Helper()
	if err := cur.PD.Map(va, mem.PGSIZE, true, true, nil); err != 0 {
		t.Fatalf("Map: %v", err)
	}
	b := append([]byte(s), 0)
	if _, err := vm.K2user(cur.PD, be, va, b); err != 0 {
		t.Fatalf("K2user: %v", err)
	}
}

const userBufVa = mem.VirtAddr(0x08040000)
const userPathVa = mem.VirtAddr(0x08050000)

func TestSysOpenAndSysReadRoundTrip(t *testing.T) {
	cur, be := setup(t, []byte("hello world\n"))
	writeUserString(t, cur, be, userPathVa, "/hello")

	fdnum, err := sysOpen(cur, userPathVa, 0)
	if err != 0 {
		t.Fatalf("sysOpen: %v", err)
	}
	if fdnum < 2 {
		t.Fatalf("sysOpen returned fd %d, want >= 2", fdnum)
	}

	if err := cur.PD.Map(userBufVa, mem.PGSIZE, true, true, nil); err != 0 {
		t.Fatalf("Map: %v", err)
	}
	n, err := sysRead(cur, uint32(fdnum), userBufVa, 32)
	if err != 0 {
		t.Fatalf("sysRead: %v", err)
	}
	if n != len("hello world\n") {
		t.Fatalf("sysRead returned %d bytes, want %d", n, len("hello world\n"))
	}
	got, err := vm.Userstr(cur.PD, be, userBufVa, 32)
	if err != 0 {
		t.Fatalf("Userstr: %v", err)
	}
	if got != "hello world\n" {
		t.Fatalf("read content = %q, want %q", got, "hello world\n")
	}
}

func TestSysOpenRejectsMissingPath(t *testing.T) {
	cur, be := setup(t, []byte("x"))
	writeUserString(t, cur, be, userPathVa, "/nope")
	if _, err := sysOpen(cur, userPathVa, 0); err == 0 {
		t.Fatal("sysOpen succeeded on a missing path")
	}
}

func TestSysChangeCWDRejectsNonDirectory(t *testing.T) {
	cur, be := setup(t, []byte("x"))
	writeUserString(t, cur, be, userPathVa, "/hello")
	if _, err := sysChangeCWD(cur, userPathVa); err != defs.ENOTDIR {
		t.Fatalf("sysChangeCWD on a file = %v, want ENOTDIR", err)
	}
}

func TestSysChangeCWDAndGetCWDRoundTrip(t *testing.T) {
	cur, be := setup(t, []byte("x"))
	writeUserString(t, cur, be, userPathVa, "/sub")

	if _, err := sysChangeCWD(cur, userPathVa); err != 0 {
		t.Fatalf("sysChangeCWD: %v", err)
	}

	if err := cur.PD.Map(userBufVa, mem.PGSIZE, true, true, nil); err != 0 {
		t.Fatalf("Map: %v", err)
	}
	n, err := sysGetCWD(cur, userBufVa, mem.PGSIZE)
	if err != 0 {
		t.Fatalf("sysGetCWD: %v", err)
	}
	got, errc := vm.Userstr(cur.PD, be, userBufVa, int(n))
	if errc != 0 {
		t.Fatalf("Userstr: %v", errc)
	}
	if got != "/sub" {
		t.Fatalf("sysGetCWD = %q, want %q", got, "/sub")
	}
}

func TestSysGetCWDAtRoot(t *testing.T) {
	cur, be := setup(t, []byte("x"))
	if err := cur.PD.Map(userBufVa, mem.PGSIZE, true, true, nil); err != 0 {
		t.Fatalf("Map: %v", err)
	}
	if _, err := sysGetCWD(cur, userBufVa, mem.PGSIZE); err != 0 {
		t.Fatalf("sysGetCWD: %v", err)
	}
	got, errc := vm.Userstr(cur.PD, be, userBufVa, 8)
	if errc != 0 {
		t.Fatalf("Userstr: %v", errc)
	}
	if got != "/" {
		t.Fatalf("sysGetCWD at root = %q, want \"/\"", got)
	}
}

func TestSysStatPacksInodeFields(t *testing.T) {
	cur, be := setup(t, []byte("hello world\n"))
	writeUserString(t, cur, be, userPathVa, "/hello")
	if err := cur.PD.Map(userBufVa, mem.PGSIZE, true, true, nil); err != 0 {
		t.Fatalf("Map: %v", err)
	}
	if _, err := sysStat(cur, userPathVa, userBufVa); err != 0 {
		t.Fatalf("sysStat: %v", err)
	}

	var rec [statRecSize]byte
	n, err := vm.User2k(cur.PD, be, userBufVa, rec[:])
	if err != 0 || n != statRecSize {
		t.Fatalf("User2k: n=%d err=%v", n, err)
	}
	size := uint32(rec[16]) | uint32(rec[17])<<8 | uint32(rec[18])<<16 | uint32(rec[19])<<24
	if size != uint32(len("hello world\n")) {
		t.Fatalf("stat size = %d, want %d", size, len("hello world\n"))
	}
}

func TestSysCloseClearsFD(t *testing.T) {
	cur, be := setup(t, []byte("x"))
	writeUserString(t, cur, be, userPathVa, "/hello")
	fdnum, err := sysOpen(cur, userPathVa, 0)
	if err != 0 {
		t.Fatalf("sysOpen: %v", err)
	}
	if _, err := sysClose(cur, uint32(fdnum)); err != 0 {
		t.Fatalf("sysClose: %v", err)
	}
	if _, err := cur.GetFD(fdnum); err != defs.EBADFD {
		t.Fatal("fd still allocated after sysClose")
	}
}

func TestDoDispatchUnknownSyscall(t *testing.T) {
	cur, _ := setup(t, []byte("x"))
	rc := doDispatch(cur, 0xFFFF, 0, 0, 0)
	if defs.Err_t(rc) != defs.EUNKNOWNSYS {
		t.Fatalf("doDispatch on unknown number = %d, want EUNKNOWNSYS", rc)
	}
}
