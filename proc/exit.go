package proc

import "defs"
import "limits"

// Exit closes every open file descriptor, unmaps all user virtual-memory
// ranges, and marks the process a zombie carrying code. The process's
// kernel interrupt stack is deliberately left mapped: the thread calling
// Exit is still executing on it, so it can only be reclaimed once the
// parent reaps this zombie and nothing is running on it anymore.
func (p *Process) Exit(code uint8) defs.Err_t {
	for i, f := range p.FDs {
		if f == nil {
			continue
		}
		if err := f.Fops.Close(); err != 0 {
			return err
		}
		p.FDs[i] = nil
		if i >= 2 {
			limits.Syslimit.Fds.Give()
		}
	}

	p.unmapAllRanges()
	p.exited = true
	p.exitCode = code
	return 0
}
