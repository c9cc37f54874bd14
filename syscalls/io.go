package syscalls

import (
	"defs"
	"fd"
	"fdops"
	"fs"
	"mem"
	"proc"
	"ustr"
	"vm"
)

// userBuf borrows a pooled Userbuf_t scoped to [va, va+n) in cur's address
// space; callers return it to the pool when done.
func userBuf(cur *proc.Process, va mem.VirtAddr, n int) *vm.Userbuf_t {
	ub := vm.Ubpool.Get().(*vm.Userbuf_t)
	ub.Ub_init(cur.PD, backend, va, n)
	return ub
}

// sysRead is Nr 0: reads up to n bytes from fd into user memory at va.
// fd 0/1 dispatch through the shared console Fdops_i installed by
// proc.New, so no numeric fd special-casing is needed here.
func sysRead(cur *proc.Process, fdnum uint32, va mem.VirtAddr, n uint32) (int, defs.Err_t) {
	f, err := cur.GetFD(int(fdnum))
	if err != 0 {
		return 0, err
	}
	ub := userBuf(cur, va, clampLen(n))
	defer vm.Ubpool.Put(ub)
	return f.Fops.Read(ub)
}

// sysWrite is Nr 1: writes up to n bytes from user memory at va to fd.
func sysWrite(cur *proc.Process, fdnum uint32, va mem.VirtAddr, n uint32) (int, defs.Err_t) {
	f, err := cur.GetFD(int(fdnum))
	if err != 0 {
		return 0, err
	}
	ub := userBuf(cur, va, clampLen(n))
	defer vm.Ubpool.Put(ub)
	return f.Fops.Write(ub)
}

// sysOpen is Nr 2: resolves path against cur's cwd and installs a new FD.
// flags is accepted for ABI compatibility but, the filesystem being
// read-only, has nothing to record against.
func sysOpen(cur *proc.Process, pathVa mem.VirtAddr, flags uint32) (int, defs.Err_t) {
	path, err := vm.Userstr(cur.PD, backend, pathVa, maxPathLen)
	if err != 0 {
		return 0, err
	}
	ino, typ, err := parser.ResolvePathToInode(ustr.Ustr(path), cur.CwdInode)
	if err != 0 {
		return 0, err
	}
	extf := fdops.MkExtfops(parser, ino, typ == fs.DirEntryDirectory)
	return cur.AllocFD(&fd.Fd_t{Fops: extf, Perms: fd.FD_READ | fd.FD_WRITE})
}

// sysClose is Nr 3.
func sysClose(cur *proc.Process, fdnum uint32) (int, defs.Err_t) {
	return 0, cur.CloseFD(int(fdnum))
}

// sysStat is Nr 8: resolves path and packs a fixed-size stat record into
// user memory at statVa. stat.Stat_t has no group or link-count field and
// no setter for its owner field, all of which the wire format carries, so
// the record is packed directly from the inode's accessors instead of
// going through Fstat.
func sysStat(cur *proc.Process, pathVa, statVa mem.VirtAddr) (int, defs.Err_t) {
	path, err := vm.Userstr(cur.PD, backend, pathVa, maxPathLen)
	if err != 0 {
		return 0, err
	}
	ino, _, err := parser.ResolvePathToInode(ustr.Ustr(path), cur.CwdInode)
	if err != 0 {
		return 0, err
	}
	in := parser.GetInode(ino)

	var rec [statRecSize]byte
	putU32(rec[0:], 0) // containing device id: single ext2 image, always 0
	putU32(rec[4:], ino)
	putU16(rec[8:], in.TypeAndPerms())
	putU16(rec[10:], in.HardLinkCount())
	putU16(rec[12:], in.UserId())
	putU16(rec[14:], in.GroupId())
	putU32(rec[16:], in.SizeLow())
	putU32(rec[20:], in.LastAccessTime())
	putU32(rec[24:], in.LastModificationTime())

	_, err = vm.K2user(cur.PD, backend, statVa, rec[:])
	return 0, err
}

const statRecSize = 28

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func clampLen(n uint32) int {
	const maxInt32 = 0x7FFFFFFF
	if n > maxInt32 {
		return maxInt32
	}
	return int(n)
}
