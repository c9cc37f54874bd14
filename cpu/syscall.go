package cpu

// SyscallFrame is the PUSHAD register image an int 0x67 trap captured, in
// PUSHAD's in-memory order (lowest address first): EDI, ESI, EBP, ESP,
// EBX, EDX, ECX, EAX, plus the userspace EIP the trap interrupted.
type SyscallFrame struct {
	Edi, Esi, Ebp, Esp, Ebx, Edx, Ecx, Eax uint32
	EIP                                    uint32
}

// SyscallHandler processes one int 0x67 trap. Writing f.Eax sets the
// syscall's return value: syscallEntry restores registers straight out of
// the memory this frame was built from, so the write is visible to the
// POPAD that resumes userspace.
type SyscallHandler func(f *SyscallFrame)

var syscallHandler SyscallHandler

// RegisterSyscall installs fn as the handler every int 0x67 trap calls.
// Called once during boot by the syscall dispatch table.
func RegisterSyscall(fn SyscallHandler) {
	syscallHandler = fn
}

//go:noescape
func syscallEntry()

// syscallDispatch is called from syscallEntry with a pointer to the live
// PUSHAD image still sitting on the trap stack and the interrupted EIP.
func syscallDispatch(regs *[8]uint32, eip uint32) {
	if syscallHandler == nil {
		return
	}
	f := SyscallFrame{
		Edi: regs[0], Esi: regs[1], Ebp: regs[2], Esp: regs[3],
		Ebx: regs[4], Edx: regs[5], Ecx: regs[6], Eax: regs[7],
		EIP: eip,
	}
	syscallHandler(&f)
	regs[7] = f.Eax
}
