package cpu

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/arch/x86/x86asm"
)

// Bytes decoded before/after the faulting address, enough to show the
// instruction that trapped plus a little of what follows.
const (
	disasmBytesBefore = 8
	disasmBytesAfter  = 16
)

// DisasmAround decodes the instruction stream surrounding a faulting eip
// for inclusion in a panic message. eip is read as a linear address
// directly: whatever mapped it is still live, since the page tables that
// got us here are the same ones this disassembly runs under.
func DisasmAround(eip uint32) string {
	base := eip - disasmBytesBefore
	window := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(base))), disasmBytesBefore+disasmBytesAfter)

	var lines []string
	off := 0
	for off < len(window) {
		addr := base + uint32(off)
		inst, err := x86asm.Decode(window[off:], 32)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%#x: <bad opcode>", addr))
			off++
			continue
		}
		lines = append(lines, fmt.Sprintf("%#x: %s", addr, x86asm.GNUSyntax(inst, uint64(addr), nil)))
		off += inst.Len
	}
	return strings.Join(lines, "\n")
}
