package syscalls

import (
	"defs"
	"fs"
	"mem"
	"proc"
	"sched"
	"ustr"
	"vm"
)

// readStringArray reads a NULL-terminated array of string pointers out of
// user memory at arrVa (the argv/envp shape execve's ABI passes), resolving
// each pointer through Userstr in turn.
func readStringArray(cur *proc.Process, arrVa mem.VirtAddr) ([]string, defs.Err_t) {
	var out []string
	for i := 0; i < maxArgc; i++ {
		ptr, err := vm.Userreadn(cur.PD, backend, mem.VirtAddr(uint32(arrVa)+uint32(i)*4), 4)
		if err != 0 {
			return nil, err
		}
		if ptr == 0 {
			return out, 0
		}
		s, err := vm.Userstr(cur.PD, backend, mem.VirtAddr(ptr), maxArgLen)
		if err != 0 {
			return nil, err
		}
		out = append(out, s)
	}
	return nil, defs.EINVAL
}

// sysExecve is Nr 4: replaces cur's image with the ELF at path, running
// argv/envp, and resumes directly into it. Never returns to the caller on
// success.
func sysExecve(cur *proc.Process, pathVa, argvVa, envpVa mem.VirtAddr) (int, defs.Err_t) {
	path, err := vm.Userstr(cur.PD, backend, pathVa, maxPathLen)
	if err != 0 {
		return 0, err
	}
	ino, typ, err := parser.ResolvePathToInode(ustr.Ustr(path), cur.CwdInode)
	if err != 0 {
		return 0, err
	}
	if typ == fs.DirEntryDirectory {
		return 0, defs.EISDIR
	}

	in := parser.GetInode(ino)
	contents := make([]byte, in.SizeLow())
	parser.GetContents(ino, contents)

	argv, err := readStringArray(cur, argvVa)
	if err != 0 {
		return 0, err
	}
	envp, err := readStringArray(cur, envpVa)
	if err != 0 {
		return 0, err
	}

	if err := cur.ReplaceWithELF(contents, argv, envp); err != 0 {
		return 0, err
	}

	cur.InKernel = false
	sched.SwitchToCurrent()
	panic("sched: SwitchToCurrent returned")
}

// sysFork is Nr 5: duplicates cur into a freshly pid-allocated, installed
// child and returns the child's pid to the parent.
func sysFork(cur *proc.Process) (int, defs.Err_t) {
	childPid := nextPid
	nextPid++

	child, err := proc.Fork(cur, cur.KernelIntrStack, childPid)
	if err != 0 {
		return 0, err
	}
	if !sched.Install(child) {
		return 0, defs.ENOMEM
	}
	return int(childPid), 0
}

// sysExit is Nr 6: tears down cur and resumes the next runnable process.
// Never returns.
func sysExit(cur *proc.Process, code uint32) (int, defs.Err_t) {
	if err := cur.Exit(uint8(code)); err != 0 {
		return 0, err
	}
	sched.Reschedule()
	panic("sched: Reschedule returned")
}

// sysWaitPID is Nr 7. The original marks its exit-status check
// "FIXME: check if the target process exited"; this keeps that shortcut:
// it yields once to let other processes run and reports pid as already
// reaped without actually observing its exit.
func sysWaitPID(cur *proc.Process, pid defs.Pid_t, wstatusVa mem.VirtAddr, opts uint32) (int, defs.Err_t) {
	sched.Yield()
	return int(pid), 0
}
