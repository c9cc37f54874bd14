// Package kernel owns the single entry point the bootloader hands control
// to: Boot sequences descriptor-table/PIC/PIT bring-up, the physical
// memory manager, the kernel's own page directory, the kernel heap, the
// ext2 parser, the console, and the syscall dispatch table, then loads and
// resumes the first user process. Grounded on the donor's top-level
// boot-glue placement, generalized from a host-side ELF-entry patcher to
// the actual hardware handoff spec §6 describes.
package kernel

import (
	"cpu"
	"defs"
	"fdops"
	"fs"
	"kheap"
	"mem"
	"proc"
	"sched"
	"syscalls"
	"ustr"
	"vm"
)

// InitProcPid is the pid the first process loaded from the filesystem's
// root is given; sysFork's allocator starts handing out pids above it.
const InitProcPid = defs.Pid_t(1)

// InitProcPath is the path, resolved against the filesystem root, of the
// first program Boot loads and resumes.
const InitProcPath = "/init"

// kernelIntrStackVaddr is the fixed virtual address every process's
// per-address-space kernel interrupt stack is mapped at, identical across
// every page directory since each process has its own (spec §4.7, open
// question: matches the donor's own literal KERNEL_INTR_STACK_VADDR).
const kernelIntrStackVaddr = mem.VirtAddr(0xFFFF9000)

// Heap is the kernel's heap allocator, brought up once during Boot and
// shared by any kernel-side code that needs kernel-resident scratch space
// spanning a yield (spec §4.4).
var Heap *kheap.Allocator

// Boot never returns: it brings the kernel up and resumes the first
// process via sched.SwitchToCurrent.
func Boot(args *mem.BootArgs, bootTime int64, ext2Image []byte) {
	cpu.Init(bootTime)

	freeSet, err := args.FreeSet()
	if err != 0 {
		panic("kernel: boot free-memory map rejected: " + err.String())
	}
	phys := mem.Init(freeSet, mem.PhysAddr(args.LastPageTablePaddr))

	backend := cpu.NewHardwareBackend(phys, nil)
	kernelPD := vm.FromCR3(cpu.ReadCR3(), phys, backend)
	backend.SetMapper(kernelPD)

	Heap = kheap.New(kernelPD)

	parser, err := fs.Parse(ext2Image)
	if err != 0 {
		panic("kernel: ext2 image rejected: " + err.String())
	}

	serial := cpu.NewSerial(args.SerialPort)
	keys := cpu.NewKeyboard()
	console := fdops.MkConfops(keys, serial, Heap)

	proc.Init(phys, backend, console)

	ino, typ, err := parser.ResolvePathToInode(ustr.Ustr(InitProcPath), fs.RootInode)
	if err != 0 {
		panic("kernel: cannot resolve " + InitProcPath)
	}
	if typ != fs.DirEntryRegular {
		panic("kernel: " + InitProcPath + " is not a regular file")
	}
	in := parser.GetInode(ino)
	elfBytes := make([]byte, in.SizeLow())
	parser.GetContents(ino, elfBytes)

	initProc, err := proc.New(nil, kernelIntrStackVaddr, InitProcPid)
	if err != 0 {
		panic("kernel: cannot create init process")
	}
	if err := initProc.InitELF(elfBytes); err != 0 {
		panic("kernel: init process ELF rejected")
	}

	syscalls.Init(backend, parser)
	sched.SetInitial(initProc)
	sched.SwitchToCurrent()
	panic("kernel: SwitchToCurrent returned")
}
