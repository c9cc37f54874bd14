package fdops

import (
	"sync"
	"sync/atomic"

	"bounds"
	"defs"
	"fs"
	"res"
	"stat"
)

// SyscallDirEntrySize is the wire size of one directory entry a single
// Read on a directory descriptor delivers: inode(4) + entry_type(1) +
// name_length(1) + name[256], matching the fixed struct the dispatch
// layer packs per call (spec §4.9's Read row).
const SyscallDirEntrySize = 4 + 1 + 1 + 256

// Extfops_t is the Fdops_i implementation bound to an inode resolved
// through the ext2 parser: either a regular file (Read returns its bytes
// at the descriptor's current offset) or a directory (Read returns one
// paginated SyscallDirEntrySize-byte entry per call). The filesystem
// being read-only, Write always fails.
type Extfops_t struct {
	mu     sync.Mutex
	parser *fs.Parser
	inode  uint32
	isDir  bool
	offset uint32
	refs   int32
}

// MkExtfops wraps inode (already resolved and type-checked by the caller)
// in a descriptor with one outstanding reference.
func MkExtfops(parser *fs.Parser, inode uint32, isDir bool) *Extfops_t {
	return &Extfops_t{parser: parser, inode: inode, isDir: isDir, refs: 1}
}

// Read dispatches to the file or directory read path.
func (e *Extfops_t) Read(dst Userio_i) (int, defs.Err_t) {
	if e.isDir {
		return e.readDir(dst)
	}
	return e.readFile(dst)
}

func (e *Extfops_t) readFile(dst Userio_i) (int, defs.Err_t) {
	if !res.Resadd_noblock(bounds.Bounds(bounds.B_FS_READ)) {
		return 0, defs.ENOMEM
	}

	e.mu.Lock()
	off := e.offset
	e.mu.Unlock()

	buf := make([]byte, dst.Remain())
	n := e.parser.GetContentsWithOffset(e.inode, buf, int(off))
	if n == 0 {
		return 0, 0
	}
	wrote, err := dst.Uiowrite(buf[:n])
	if err != 0 {
		return wrote, err
	}
	e.mu.Lock()
	e.offset += uint32(wrote)
	e.mu.Unlock()
	return wrote, 0
}

func (e *Extfops_t) readDir(dst Userio_i) (int, defs.Err_t) {
	if dst.Remain() < SyscallDirEntrySize {
		return 0, defs.ETOOSMALL
	}
	if !res.Resadd_noblock(bounds.Bounds(bounds.B_FS_DIR_ITER)) {
		return 0, defs.ENOMEM
	}

	e.mu.Lock()
	off := e.offset
	e.mu.Unlock()

	next, ino, name, typ, ok := e.parser.GetNextDirectoryEntry(e.inode, off)
	if !ok {
		return 0, 0
	}

	var rec [SyscallDirEntrySize]byte
	rec[0] = byte(ino)
	rec[1] = byte(ino >> 8)
	rec[2] = byte(ino >> 16)
	rec[3] = byte(ino >> 24)
	rec[4] = byte(typ)
	rec[5] = byte(len(name))
	copy(rec[6:], name)

	n, err := dst.Uiowrite(rec[:])
	if err != 0 {
		return n, err
	}
	e.mu.Lock()
	e.offset = next
	e.mu.Unlock()
	return n, 0
}

// Write always fails: the backing image is read-only (spec §3).
func (e *Extfops_t) Write(src Userio_i) (int, defs.Err_t) {
	return 0, defs.EINVAL
}

// Fstat fills st from the inode's on-disk metadata.
func (e *Extfops_t) Fstat(st *stat.Stat_t) defs.Err_t {
	in := e.parser.GetInode(e.inode)
	st.Wino(uint(e.inode))
	st.Wmode(uint(in.TypeAndPerms()))
	st.Wsize(uint(in.SizeLow()))
	st.Wdev(0)
	st.Wrdev(0)
	return 0
}

// Reopen records an additional reference (fork, dup2) sharing this
// descriptor's offset.
func (e *Extfops_t) Reopen() defs.Err_t {
	atomic.AddInt32(&e.refs, 1)
	return 0
}

// Close drops a reference. The filesystem holds nothing that needs
// flushing, so dropping the last reference is a no-op beyond the
// bookkeeping itself.
func (e *Extfops_t) Close() defs.Err_t {
	if atomic.AddInt32(&e.refs, -1) < 0 {
		panic("fdops: close without matching reference")
	}
	return 0
}
