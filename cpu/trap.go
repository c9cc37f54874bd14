package cpu

import "fmt"

import "caller"

// TrapFrame is the uniform view every interrupt presents to Go code:
// which vector fired, the hardware error code (or a synthetic 0 for
// vectors that don't push one), and the instruction the processor was
// about to execute when the interrupt landed. ReturnEIP is never pushed
// separately by a shim — it is already sitting in the hardware-pushed
// frame right under where the shim pushes Vector/ErrorCode, so the three
// fields line up as one contiguous stack frame by construction.
type TrapFrame struct {
	Vector    uint32
	ErrorCode uint32
	ReturnEIP uint32
}

// Handler processes one trapped vector.
type Handler func(frame *TrapFrame)

var handlers [idtEntries]Handler

// Register installs fn as the handler for vector, replacing whatever was
// there before. Typically called once per vector during boot.
func Register(vector int, fn Handler) {
	handlers[vector] = fn
}

var exceptionNames = map[uint32]string{
	0:  "Divide Error Exception (#DE)",
	1:  "Debug Exception (#DB)",
	2:  "NMI Interrupt",
	3:  "Breakpoint Exception (#BP)",
	4:  "Overflow Exception (#OF)",
	5:  "BOUND Range Exceeded Exception (#BR)",
	6:  "Invalid Opcode Exception (#UD)",
	7:  "Device Not Available Exception (#NM)",
	8:  "Double Fault Exception (#DF)",
	9:  "Coprocessor Segment Overrun",
	10: "Invalid TSS Exception (#TS)",
	11: "Segment Not Present (#NP)",
	12: "Stack Fault Exception (#SS)",
	13: "General Protection Exception (#GP)",
	14: "Page-Fault Exception (#PF)",
	16: "x87 FPU Floating-Point Error (#MF)",
	17: "Alignment Check Exception (#AC)",
	18: "Machine-Check Exception (#MC)",
	19: "SIMD Floating-Point Exception (#XM)",
	20: "Virtualization Exception (#VE)",
	21: "Control Protection Exception (#CP)",
}

// commonTrapHandler is called directly from every per-vector assembly
// shim with the (vector, error_code_or_0) pair it just pushed; ReturnEIP
// is read out of the same stack frame by the Go calling convention lining
// the hardware-pushed EIP up as this function's third argument.
func commonTrapHandler(vector, errcode, eip uint32) {
	frame := TrapFrame{Vector: vector, ErrorCode: errcode, ReturnEIP: eip}

	if vector >= picIRQOffset && vector < picIRQOffset+16 {
		irq := uint8(vector - picIRQOffset)
		if handleSpuriousIRQ(irq) {
			return
		}
		if h := handlers[vector]; h != nil {
			h(&frame)
		}
		SendEOI(irq)
		return
	}

	if h := handlers[vector]; h != nil {
		h(&frame)
		return
	}

	name, known := exceptionNames[vector]
	if !known {
		name = fmt.Sprintf("vector %#x", vector)
	}
	panicTrap(name, &frame)
}

// panicTrap reports a fatal, unhandled trap: the Go call chain that was
// running when the trap shim fired, followed by a disassembly of the
// instruction stream the faulting EIP pointed into.
func panicTrap(name string, frame *TrapFrame) {
	caller.Callerdump(2)
	panic(fmt.Sprintf("%s: error=%#x eip=%#x\n%s", name, frame.ErrorCode,
		frame.ReturnEIP, DisasmAround(frame.ReturnEIP)))
}
