package cpu

import (
	"unsafe"

	"util"
)

// FxSave is the 512-byte legacy FXSAVE/FXRSTOR state image: x87 control/
// status/tag words, the x87/MMX register stack, XMM0-7, and reserved
// padding. Declared as uint64 words (unlike the donor's [64]uintptr,
// which is only 512 bytes on a 64-bit uintptr) since this kernel runs
// 32-bit protected mode, where uintptr is 4 bytes but FXSAVE's image size
// is fixed at 512 regardless.
type FxSave [64]uint64

// defaultFCW/defaultMXCSR are the control words every new process's saved
// FPU state starts from: round-to-nearest, every exception masked.
const (
	defaultFCW   = 0x037F
	defaultMXCSR = 0x1F80
)

// NewFxSave allocates an FXSAVE image seeded with the default control
// words, ready for the first FXRSTOR a new process sees. Panics if the
// allocator handed back something not 16-byte aligned, which FXSAVE/
// FXRSTOR require.
func NewFxSave() *FxSave {
	fx := new(FxSave)
	if uintptr(unsafe.Pointer(fx))&0xF != 0 {
		panic("cpu: FXSAVE buffer not 16-byte aligned")
	}
	raw := (*[512]byte)(unsafe.Pointer(fx))
	util.Writen(raw[:], 2, 0, defaultFCW)
	util.Writen(raw[:], 4, 24, defaultMXCSR)
	return fx
}
