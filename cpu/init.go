package cpu

var (
	gdt *GDT
	tss *TSS
	idt *IDT
)

// Init brings up the descriptor tables and the two legacy interrupt
// controllers: builds and loads the GDT (reloading the data segment
// registers to the new flat descriptors and the task register to the
// TSS), builds and loads the IDT, remaps the 8259A pair past the
// exception range, and programs the 8254 to fire IRQ0 at targetFreqHz.
// bootTime is the CMOS RTC reading taken once, before interrupts are
// live, so UnixTime has a base to add ticks onto.
func Init(bootTime int64) {
	tss = NewTSS()
	gdt = NewGDT()
	gdt.SetTSS(tss)
	gdt.Load()
	Ltr(TSSSel)

	idt = InitIDT()
	Register(picIRQOffset, func(*TrapFrame) { TickIRQ0() })
	idt.Load()

	InitPIC()
	InitPIT(bootTime)

	Sti()
}

// SetKernelStack points the TSS's esp0 at esp, the stack the CPU will
// switch to the next time a ring-3 process traps into the kernel. Called
// by the scheduler immediately before resuming any process.
func SetKernelStack(esp uint32) {
	tss.SetKernelStack(esp)
}
