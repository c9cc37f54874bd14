package vm

import "mem"

// invlpg flushes the translation for a single page from the TLB. Its body
// is supplied by the architecture-specific assembly stub linked into the
// kernel binary, the same way the donor kernel declares hardware primitives
// (Cpuid, Get_phys, Rdtsc) as bodiless Go functions backed by runtime asm;
// this host-buildable tree keeps the declaration here so package vm has no
// import-cycle dependency on package cpu for its own page-table writes.
func invlpg(v mem.VirtAddr)
