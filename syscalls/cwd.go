package syscalls

import (
	"defs"
	"fs"
	"mem"
	"proc"
	"ustr"
	"vm"
)

// sysChangeCWD is Nr 10: resolves path and, provided it names a directory,
// makes it cur's new working directory.
func sysChangeCWD(cur *proc.Process, pathVa mem.VirtAddr) (int, defs.Err_t) {
	path, err := vm.Userstr(cur.PD, backend, pathVa, maxPathLen)
	if err != 0 {
		return 0, err
	}
	ino, typ, err := parser.ResolvePathToInode(ustr.Ustr(path), cur.CwdInode)
	if err != 0 {
		return 0, err
	}
	if typ != fs.DirEntryDirectory {
		return 0, defs.ENOTDIR
	}
	cur.CwdInode = ino
	return 0, 0
}

// sysGetCWD is Nr 9: reconstructs cur's working-directory path by walking
// ".." entries from cwd up to the root, then replaying the inode chain
// forward, re-querying each parent's directory entries for the child's
// name, and writes the assembled "/a/b/c" string into user memory.
// Grounded on syscall_getcwd's inode_walk/forward-replay approach — this
// filesystem carries no cached path string anywhere (spec §4.7), so
// there's no shortcut around the walk.
func sysGetCWD(cur *proc.Process, bufVa mem.VirtAddr, buflen uint32) (int, defs.Err_t) {
	if cur.CwdInode == fs.RootInode {
		return writeCWDResult(cur, bufVa, buflen, "/")
	}

	chain := []uint32{cur.CwdInode}
	walk := cur.CwdInode
	for walk != fs.RootInode {
		parentIno, _, err := parser.ResolvePathToInode(ustr.DotDot, walk)
		if err != 0 {
			return 0, err
		}
		chain = append(chain, parentIno)
		walk = parentIno
	}

	path := ""
	for i := len(chain) - 2; i >= 0; i-- {
		parent := chain[i+1]
		child := chain[i]
		name, found := findChildName(parent, child)
		if !found {
			return 0, defs.ENOENT
		}
		path += "/" + name
	}
	return writeCWDResult(cur, bufVa, buflen, path)
}

func findChildName(parent, child uint32) (string, bool) {
	var name string
	var found bool
	parser.ForEachDirectoryEntry(parent, func(ino uint32, n ustr.Ustr, typ fs.DirEntryType) fs.IterationDecision {
		if ino == child && !n.Isdot() && !n.Isdotdot() {
			name = string(n)
			found = true
			return fs.Break
		}
		return fs.Continue
	})
	return name, found
}

func writeCWDResult(cur *proc.Process, bufVa mem.VirtAddr, buflen uint32, path string) (int, defs.Err_t) {
	if uint32(len(path))+1 > buflen {
		return 0, defs.ETOOSMALL
	}
	b := make([]byte, len(path)+1)
	copy(b, path)
	n, err := vm.K2user(cur.PD, backend, bufVa, b)
	return n, err
}
