package proc

import (
	"defs"
	"mem"
)

// Fork creates a child of parent: a fresh page directory with the parent's
// kernel half snapshotted in, a duplicate FD table (each descriptor
// reopened, not reallocated), the parent's cwd/registers/EIP/EFLAGS, and an
// eager, non-copy-on-write duplicate of every mapped user page. The child's
// EAX is forced to 0 (the fork return value in the child); the caller is
// responsible for setting the parent's EAX to the child's pid (spec §4.7,
// open question 4: copy-on-write is not implemented).
func Fork(parent *Process, kernelIntrStack mem.VirtAddr, childPid defs.Pid_t) (*Process, defs.Err_t) {
	child, err := New(parent.PD, kernelIntrStack, childPid)
	if err != 0 {
		return nil, err
	}

	child.FDs = parent.FDs
	for _, f := range parent.FDs {
		if f == nil {
			continue
		}
		if err := f.Fops.Reopen(); err != 0 {
			return nil, err
		}
	}
	child.CwdInode = parent.CwdInode

	child.Regs = parent.Regs
	child.Regs.Eax = 0
	child.Eip = parent.Eip
	child.Eflags = parent.Eflags

	for i := 0; i < parent.nranges; i++ {
		if err := copyRange(parent, child, parent.ranges[i]); err != 0 {
			return nil, err
		}
	}

	return child, 0
}

// copyRange allocates num_pages fresh frames in child's address space at
// the same vaddr as r in parent, copying each page's live contents across
// one frame at a time through the shared transient-window backend.
func copyRange(parent, child *Process, r vmRange) defs.Err_t {
	for pg := uint32(0); pg < r.pages; pg++ {
		va := mem.VirtAddr(uint32(r.vaddr) + pg*mem.PGSIZE)
		phys, ok, err := parent.PD.TranslateVirt(va)
		if err != 0 {
			return err
		}
		if !ok {
			continue
		}
		srcFrame, err := backend.Frame(phys)
		if err != 0 {
			return err
		}
		var buf [mem.PGSIZE]byte
		copy(buf[:], srcFrame)

		init := func(off uint32, dst []byte) { copy(dst, buf[:]) }
		if err := child.PD.Map(va, mem.PGSIZE, r.write, true, init); err != 0 {
			return err
		}
	}
	child.addRange(r.vaddr, r.pages, r.write)
	return 0
}
