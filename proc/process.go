// Package proc implements the process image (spec component C7): a page
// directory, the set of mapped user virtual-memory ranges, a per-process
// file-descriptor table, and the saved register/EIP/EFLAGS state a process
// resumes from. Grounded almost entirely on
// original_source/kernel/src/process.rs's Process type.
package proc

import (
	"accnt"
	"defs"
	"fd"
	"fdops"
	"fs"
	"limits"
	"mem"
	"vm"
)

// KernelIntrStackSize is the size of the one page every process's
// ring-3-to-ring-0 trap stack occupies in its own address space.
const KernelIntrStackSize = mem.PGSIZE

// UserStackVaddr/UserStackSize describe the single fixed user stack page
// every process is given, mapped writable and user-accessible (spec §4.7).
const (
	UserStackVaddr = mem.VirtAddr(0x0FFFF000)
	UserStackSize  = mem.PGSIZE
)

// DefaultEflags is IF=1 plus the reserved bit that must always read 1,
// the value every fresh process starts with (spec §4.7).
const DefaultEflags = 0x202

// MaxFDs bounds the per-process file-descriptor table; fd 0 and fd 1 are
// always the console and are installed by New, so user Opens start at 2.
const MaxFDs = 16

// MaxVMRanges bounds the number of distinct mapped virtual-memory ranges a
// process can carry at once: one for the user stack plus one per LOAD
// segment, generously sized above what any ELF this loader accepts needs.
const MaxVMRanges = 16

// Regs is the general-purpose register file in PUSHAD's in-memory layout
// (lowest address first): EDI, ESI, EBP, ESP, EBX, EDX, ECX, EAX. Package
// sched's context switch reads and writes this struct directly against the
// real PUSHAD/POPAD image on a kernel stack.
type Regs struct {
	Edi, Esi, Ebp, Esp, Ebx, Edx, Ecx, Eax uint32
}

type vmRange struct {
	vaddr mem.VirtAddr
	pages uint32
	write bool
}

// Process is one schedulable unit of execution: a page directory, its user
// VM ranges, an open-file table, and the saved CPU state to resume it with.
type Process struct {
	Pid defs.Pid_t

	PD              *vm.PageDirectory
	KernelIntrStack mem.VirtAddr

	ranges  [MaxVMRanges]vmRange
	nranges int

	FDs      [MaxFDs]*fd.Fd_t
	CwdInode uint32

	Regs     Regs
	Eip      uint32
	Eflags   uint32
	InKernel bool

	// Acct tracks this process's accumulated system time, charged once per
	// syscall by syscalls.doDispatch's entry/exit timing.
	Acct accnt.Accnt_t

	exited   bool
	exitCode uint8
}

var (
	physMem *mem.Phys
	backend mem.Backend
	console fdops.Fdops_i
)

// Init installs the physical-memory allocator, the page-table content
// backend, and the console device every process's fd 0/fd 1 are bound to.
// Called once during boot, before the first call to New.
func Init(phys *mem.Phys, be mem.Backend, consoleDev fdops.Fdops_i) {
	physMem = phys
	backend = be
	console = consoleDev
}

// New allocates a fresh page directory, copies the kernel half of cur's
// PDEs into it (cur may be nil for the very first process, which starts
// from an empty kernel half populated by the boot loader instead), maps
// the per-process kernel interrupt stack, and wires up the console FDs.
// Grounded on Process::new.
func New(cur *vm.PageDirectory, kernelIntrStack mem.VirtAddr, pid defs.Pid_t) (*Process, defs.Err_t) {
	pd, err := vm.New(physMem, backend)
	if err != 0 {
		return nil, err
	}
	if cur != nil {
		if err := pd.CopyKernelHalf(cur); err != 0 {
			return nil, err
		}
	}
	if err := pd.Map(kernelIntrStack, KernelIntrStackSize, true, false, nil); err != 0 {
		return nil, err
	}

	p := &Process{
		Pid:             pid,
		PD:              pd,
		KernelIntrStack: kernelIntrStack,
		CwdInode:        fs.RootInode,
		Eflags:          DefaultEflags,
	}
	p.FDs[0] = &fd.Fd_t{Fops: console, Perms: fd.FD_READ}
	p.FDs[1] = &fd.Fd_t{Fops: console, Perms: fd.FD_WRITE}
	return p, 0
}

func (p *Process) addRange(vaddr mem.VirtAddr, pages uint32, write bool) {
	if p.nranges >= len(p.ranges) {
		panic("proc: too many vm ranges")
	}
	p.ranges[p.nranges] = vmRange{vaddr: vaddr, pages: pages, write: write}
	p.nranges++
}

func (p *Process) unmapAllRanges() {
	for i := 0; i < p.nranges; i++ {
		r := p.ranges[i]
		for pg := uint32(0); pg < r.pages; pg++ {
			p.PD.Unmap(mem.VirtAddr(uint32(r.vaddr)+pg*mem.PGSIZE), true)
		}
	}
	p.nranges = 0
}

// initELF maps the user stack and every PT_LOAD segment of img, copying
// each segment's file bytes in and zero-filling the remainder, then sets
// Eip to the entry point. Grounded on Process::init_elf.
func (p *Process) initELF(img *elfImage) defs.Err_t {
	if err := p.PD.Map(UserStackVaddr, UserStackSize, true, true, nil); err != 0 {
		return err
	}
	p.addRange(UserStackVaddr, 1, true)
	p.Regs.Esp = uint32(UserStackVaddr) + UserStackSize

	for _, seg := range img.segments {
		if seg.memSize == 0 {
			continue
		}
		s := seg
		init := func(off uint32, frame []byte) {
			for i := range frame {
				so := int(off) + i
				if so < len(s.init) {
					frame[i] = s.init[so]
				}
			}
		}
		if err := p.PD.Map(s.vaddr, s.memSize, s.write, true, init); err != 0 {
			return err
		}
		npages := (s.memSize + mem.PGOFFSET) / mem.PGSIZE
		p.addRange(s.vaddr, npages, s.write)
	}

	p.Eip = img.entry
	return 0
}

// InitELF validates elfBytes and sets up this (freshly New'd) process's
// image from it. Used for the very first process; ReplaceWithELF calls
// initELF directly, and Fork copies the parent's pages without it.
func (p *Process) InitELF(elfBytes []byte) defs.Err_t {
	img, err := parseELF(elfBytes)
	if err != 0 {
		return err
	}
	return p.initELF(img)
}

// AllocFD installs f in the lowest-numbered free slot starting at 2 (0 and
// 1 are reserved for the console) and returns that slot number, or EMFILE
// if the table is full or the system-wide descriptor quota
// (limits.Syslimit.Fds) is exhausted.
func (p *Process) AllocFD(f *fd.Fd_t) (int, defs.Err_t) {
	if !limits.Syslimit.Fds.Take() {
		return 0, defs.EMFILE
	}
	for i := 2; i < len(p.FDs); i++ {
		if p.FDs[i] == nil {
			p.FDs[i] = f
			return i, 0
		}
	}
	limits.Syslimit.Fds.Give()
	return 0, defs.EMFILE
}

// GetFD returns the descriptor at fdnum, or EBADFD if fdnum is out of range
// or unallocated.
func (p *Process) GetFD(fdnum int) (*fd.Fd_t, defs.Err_t) {
	if fdnum < 0 || fdnum >= len(p.FDs) || p.FDs[fdnum] == nil {
		return nil, defs.EBADFD
	}
	return p.FDs[fdnum], 0
}

// CloseFD closes and clears the descriptor at fdnum, returning its share of
// limits.Syslimit.Fds unless fdnum is one of the console FDs installed
// directly by New (which never drew from the quota to begin with).
func (p *Process) CloseFD(fdnum int) defs.Err_t {
	f, err := p.GetFD(fdnum)
	if err != 0 {
		return err
	}
	if err := f.Fops.Close(); err != 0 {
		return err
	}
	p.FDs[fdnum] = nil
	if fdnum >= 2 {
		limits.Syslimit.Fds.Give()
	}
	return 0
}

// IsZombie reports whether Exit has been called.
func (p *Process) IsZombie() bool { return p.exited }

// ExitCode returns the code passed to Exit; meaningless before IsZombie.
func (p *Process) ExitCode() uint8 { return p.exitCode }
