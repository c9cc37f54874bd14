// Package cpu owns the descriptor tables (GDT/IDT/TSS), the 8259A PIC and
// 8254 PIT bring-up, and the handful of hardware primitives every ring
// transition and interrupt depends on.
package cpu

// Outb writes a byte to I/O port port.
//
//go:noescape
func Outb(port uint16, val uint8)

// Inb reads a byte from I/O port port.
//
//go:noescape
func Inb(port uint16) uint8

// Lgdt loads the GDT register from a table at base spanning limit+1 bytes.
//
//go:noescape
func Lgdt(base uint32, limit uint16)

// Lidt loads the IDT register the same way Lgdt loads the GDT register.
//
//go:noescape
func Lidt(base uint32, limit uint16)

// Ltr loads the task register with the given GDT selector.
//
//go:noescape
func Ltr(selector uint16)

// Hlt halts the processor until the next interrupt arrives.
//
//go:noescape
func Hlt()

// Cli disables maskable interrupts.
//
//go:noescape
func Cli()

// Sti enables maskable interrupts.
//
//go:noescape
func Sti()

// Rdtsc reads the time-stamp counter.
//
//go:noescape
func Rdtsc() uint64

// ReadCR3 reads the current page-directory base register, the bootloader's
// identity-mapped directory on the very first call during Boot.
//
//go:noescape
func ReadCR3() uint32
