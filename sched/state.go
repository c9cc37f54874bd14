// Package sched implements the preemptive, single-CPU scheduler (spec
// component C8): the process table, the current-process cell, and the
// yield/resume machinery that lets a process voluntarily give up the CPU
// and later be resumed exactly where it left off. Grounded on
// original_source/kernel/src/process.rs's SchedulerState/yield_execution/
// switch_to_current_process.
package sched

import (
	"cpu"
	"defs"
	"limits"
	"proc"
	"stats"
	"sync"
	"tinfo"
	"unsafe"
)

// MaxProcs bounds the process table, matching the original's fixed
// 16-slot array and limits.Syslimit.Sysprocs's quota.
const MaxProcs = limits.MaxProcs

// ContextSwitches counts every process selected by pickNext, zero cost
// when stats.Stats is disabled.
var ContextSwitches stats.Counter_t

type state struct {
	sync.Mutex
	table   [MaxProcs]*proc.Process
	current int
}

var st state

// Install adds p to the lowest free process-table slot and returns false
// if the table is full or the system-wide process quota is exhausted.
func Install(p *proc.Process) bool {
	if !limits.Syslimit.Sysprocs.Take() {
		return false
	}
	st.Lock()
	defer st.Unlock()
	for i := range st.table {
		if st.table[i] == nil {
			st.table[i] = p
			return true
		}
	}
	limits.Syslimit.Sysprocs.Give()
	return false
}

// SetInitial installs p as both the sole process-table entry and the
// current process, bypassing round-robin selection. Called exactly once
// by the boot sequence before the first Yield or SwitchToCurrent.
func SetInitial(p *proc.Process) {
	limits.Syslimit.Sysprocs.Take()
	st.Lock()
	st.table[0] = p
	st.current = 0
	st.Unlock()
	setCurrent(p)
}

// Remove clears pid's process-table slot once it has been reaped, handing
// its quota share back to limits.Syslimit.Sysprocs.
func Remove(pid defs.Pid_t) {
	st.Lock()
	defer st.Unlock()
	for i, p := range st.table {
		if p != nil && p.Pid == pid {
			st.table[i] = nil
			limits.Syslimit.Sysprocs.Give()
			return
		}
	}
}

// Lookup returns the live process with the given pid, or nil.
func Lookup(pid defs.Pid_t) *proc.Process {
	st.Lock()
	defer st.Unlock()
	for _, p := range st.table {
		if p != nil && p.Pid == pid {
			return p
		}
	}
	return nil
}

// Current returns the process the scheduler is currently running,
// installed via tinfo's single current-execution cell.
func Current() *proc.Process {
	return (*proc.Process)(tinfo.Current())
}

func setCurrent(p *proc.Process) {
	tinfo.SetCurrent(unsafe.Pointer(p))
}

// pickNext advances st.current to the next runnable (non-zombie) slot in
// round-robin order and installs it as the current process via tinfo.
// Grounded on the "FIXME: temp" round-robin placeholder in
// yield_execution, generalized from the original's hardcoded slot 1.
func pickNext() *proc.Process {
	st.Lock()
	defer st.Unlock()
	n := len(st.table)
	for i := 1; i <= n; i++ {
		idx := (st.current + i) % n
		p := st.table[idx]
		if p != nil && !p.IsZombie() {
			st.current = idx
			setCurrent(p)
			ContextSwitches.Inc()
			return p
		}
	}
	panic("sched: no runnable process")
}

// Yield saves the calling process's full register state and resumes the
// next runnable process. When this process is next scheduled, Yield
// returns to its caller as though it were an ordinary function call: the
// double-return is implemented by yieldCore's PUSHAD/EFLAGS capture and
// a forced EAX of 0 on resume, mirroring yield_execution's inline asm.
func Yield() {
	var regs [8]uint32
	eflags, eip, firstExec := yieldCore(&regs)

	if firstExec != 0 {
		cur := Current()
		cur.Regs = proc.Regs{
			Edi: regs[0], Esi: regs[1], Ebp: regs[2], Esp: regs[3],
			Ebx: regs[4], Edx: regs[5], Ecx: regs[6], Eax: regs[7],
		}
		cur.Eip = eip
		cur.Eflags = eflags
		cur.InKernel = true

		pickNext()
		SwitchToCurrent()
	} else {
		cur := Current()
		cur.InKernel = false
	}
}

// Reschedule picks the next runnable process and resumes it without
// saving any state for the caller, for use by a process that is exiting
// and must never run again. Never returns.
func Reschedule() {
	pickNext()
	SwitchToCurrent()
}

// yieldCore captures the calling process's register file (with EAX
// forced to 0 in the snapshot) and a resume EIP into saved, eflags and
// eip, and reports 1 in firstExec when reached by an ordinary call and 0
// when reached because RingContextSwitch jumped straight back into it
// with EAX cleared.
//
//go:noescape
func yieldCore(saved *[8]uint32) (eflags, eip, firstExec uint32)

// SwitchToCurrent loads Current()'s kernel interrupt stack into the TSS,
// switches address spaces, and resumes it — at ring 0 if it was
// interrupted while already in the kernel, or at ring 3 via an IRETL
// frame otherwise. Never returns. Grounded on
// Process::switch_to_current_process.
func SwitchToCurrent() {
	cur := Current()
	cpu.SetKernelStack(uint32(cur.KernelIntrStack) + proc.KernelIntrStackSize)

	regs := [8]uint32{
		cur.Regs.Edi, cur.Regs.Esi, cur.Regs.Ebp, cur.Regs.Esp,
		cur.Regs.Ebx, cur.Regs.Edx, cur.Regs.Ecx, cur.Regs.Eax,
	}
	cr3 := uint32(cur.PD.Paddr)

	if cur.InKernel {
		cpu.RingContextSwitch(cur.Eip, cur.Eflags, &regs, cr3)
	} else {
		cpu.JumpToRing3(cur.Eip, cpu.UserCS, cur.Eflags, cpu.UserDS, &regs, cr3)
	}
}
