package proc

import (
	"defs"
	"mem"
)

// ReplaceWithELF unmaps every current user VM range, loads elfBytes as the
// new image, and lays out the System-V-ish startup stack argv/envp expect:
// the strings themselves, then two NULL-terminated pointer arrays, then
// (argc, argv_ptr, envp_ptr) at the lowest addresses so a fresh _start sees
// them first. Grounded on Process::replace_with_elf.
func (p *Process) ReplaceWithELF(elfBytes []byte, argv, envp []string) defs.Err_t {
	img, err := parseELF(elfBytes)
	if err != 0 {
		return err
	}

	p.unmapAllRanges()
	if err := p.initELF(img); err != 0 {
		return err
	}
	return p.layoutStartupStack(argv, envp)
}

// layoutStartupStack writes argv/envp directly into the single backing
// frame of the just-mapped user stack page and lowers Regs.Esp by the total
// bytes pushed, mirroring replace_with_elf's push_on_stack! macro exactly:
// envp strings (reversed), argv strings (reversed), the envp pointer array,
// the argv pointer array, then envp_ptr, argv_ptr, argc.
func (p *Process) layoutStartupStack(argv, envp []string) defs.Err_t {
	phys, ok, err := p.PD.TranslateVirt(UserStackVaddr)
	if err != 0 {
		return err
	}
	if !ok {
		return defs.EFAULT
	}
	frame, err := backend.Frame(phys)
	if err != 0 {
		return err
	}

	envpPtrs := make([]uint32, len(envp)+1)
	argvPtrs := make([]uint32, len(argv)+1)

	stackOff := 0
	push := func(b []byte) {
		start := mem.PGSIZE - stackOff - len(b)
		end := mem.PGSIZE - stackOff
		copy(frame[start:end], b)
		stackOff += len(b)
	}
	pushU32 := func(v uint32) {
		var b [4]byte
		b[0] = byte(v)
		b[1] = byte(v >> 8)
		b[2] = byte(v >> 16)
		b[3] = byte(v >> 24)
		push(b[:])
	}
	curVaddr := func() uint32 {
		return uint32(UserStackVaddr) + mem.PGSIZE - uint32(stackOff)
	}

	for idx := 0; idx < len(envp); idx++ {
		s := envp[len(envp)-1-idx]
		push([]byte{0})
		push([]byte(s))
		envpPtrs[idx+1] = curVaddr()
	}
	for idx := 0; idx < len(argv); idx++ {
		s := argv[len(argv)-1-idx]
		push([]byte{0})
		push([]byte(s))
		argvPtrs[idx+1] = curVaddr()
	}

	for _, ptr := range envpPtrs {
		pushU32(ptr)
	}
	envpPtr := curVaddr()

	for _, ptr := range argvPtrs {
		pushU32(ptr)
	}
	argvPtr := curVaddr()

	pushU32(envpPtr)
	pushU32(argvPtr)
	pushU32(uint32(len(argv)))

	if stackOff >= mem.PGSIZE {
		return defs.ENOMEM
	}
	p.Regs.Esp -= uint32(stackOff)
	return 0
}
