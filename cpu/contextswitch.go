package cpu

// RingContextSwitch resumes a process that was last interrupted while
// running in the kernel: it loads cr3, restores eflags and the general
// register file from regs (PUSHAD order: EDI, ESI, EBP, ESP, EBX, EDX,
// ECX, EAX — ESP, index 3, is left untouched since the kernel stack this
// call is already running on is the one to keep using), and resumes at
// eip without any privilege change. Never returns.
//
//go:noescape
func RingContextSwitch(eip uint32, eflags uint32, regs *[8]uint32, cr3 uint32)

// JumpToRing3 resumes a process into user mode: it loads cr3, reloads the
// data segment registers with userDS, constructs an IRETL frame out of
// eip/userCS/eflags/the saved user ESP (regs[3]), restores the rest of
// the register file, and IRETLs. Never returns.
//
//go:noescape
func JumpToRing3(eip uint32, userCS uint32, eflags uint32, userDS uint32, regs *[8]uint32, cr3 uint32)
