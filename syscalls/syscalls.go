// Package syscalls implements the system-call dispatch table (spec
// component C9): one handler per int 0x67 trap, reading arguments out of
// the trapped register frame and writing the result back into EAX.
// Grounded on original_source/kernel/src/syscall.rs's handle_syscall and
// its eleven syscall_* functions, almost line for line.
package syscalls

import (
	"cpu"
	"defs"
	"fs"
	"mem"
	"proc"
	"sched"
	"stats"
)

// Syscall numbers, in the order they appear in the table.
const (
	SysRead = iota
	SysWrite
	SysOpen
	SysClose
	SysExecve
	SysFork
	SysExit
	SysWaitPID
	SysStat
	SysGetCWD
	SysChangeCWD
)

var (
	backend mem.Backend
	parser  *fs.Parser
	nextPid = defs.Pid_t(2) // pid 1 is the process Boot loads directly
)

// Counts tallies dispatched syscalls by number, zero cost when
// stats.Stats is disabled.
var Counts [SysChangeCWD + 1]stats.Counter_t

// Init wires the dispatch table into cpu's trap-0x67 handler. Called once
// during boot, after the filesystem and physical-memory backend are
// ready.
func Init(be mem.Backend, p *fs.Parser) {
	backend = be
	parser = p
	cpu.RegisterSyscall(dispatch)
}

func dispatch(f *cpu.SyscallFrame) {
	cur := sched.Current()
	f.Eax = uint32(doDispatch(cur, f.Eax, f.Ebx, f.Ecx, f.Edx))
}

func doDispatch(cur *proc.Process, num, arg0, arg1, arg2 uint32) int32 {
	if int(num) < len(Counts) {
		Counts[num].Inc()
	}
	start := cur.Acct.Now()
	defer cur.Acct.Finish(start)
	switch num {
	case SysRead:
		return rc(sysRead(cur, arg0, mem.VirtAddr(arg1), arg2))
	case SysWrite:
		return rc(sysWrite(cur, arg0, mem.VirtAddr(arg1), arg2))
	case SysOpen:
		return rc(sysOpen(cur, mem.VirtAddr(arg0), arg1))
	case SysClose:
		return rc(sysClose(cur, arg0))
	case SysExecve:
		return rc(sysExecve(cur, mem.VirtAddr(arg0), mem.VirtAddr(arg1), mem.VirtAddr(arg2)))
	case SysFork:
		return rc(sysFork(cur))
	case SysExit:
		return rc(sysExit(cur, arg0))
	case SysWaitPID:
		return rc(sysWaitPID(cur, defs.Pid_t(arg0), mem.VirtAddr(arg1), arg2))
	case SysStat:
		return rc(sysStat(cur, mem.VirtAddr(arg0), mem.VirtAddr(arg1)))
	case SysGetCWD:
		return rc(sysGetCWD(cur, mem.VirtAddr(arg0), arg1))
	case SysChangeCWD:
		return rc(sysChangeCWD(cur, mem.VirtAddr(arg0)))
	default:
		return int32(defs.EUNKNOWNSYS)
	}
}

// rc packages every syscall_* helper's (count, err) return into the
// syscall's single i32 result: the error code if one occurred, the count
// otherwise.
func rc(n int, err defs.Err_t) int32 {
	if err != 0 {
		return int32(err)
	}
	return int32(n)
}
