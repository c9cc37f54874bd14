package proc

import (
	"defs"
	"mem"
	"util"
)

// ELF32 fields this kernel actually reads; every other header field (section
// headers, dynamic linking, relocations) is unused by a freestanding
// single-segment-model loader and left unparsed.
const (
	elfClass32    = 1
	elfDataLSB    = 1
	elfTypeExec   = 2
	elfMachineX86 = 3
	segTypeLoad   = 1
	segFlagExec   = 1
	segFlagWrite  = 2
	phdrSize      = 0x20
	ehdrMinSize   = 58
)

// elfSegment is one PT_LOAD program header: where it lives in the new
// address space, how many bytes of it come from the file (the rest is
// zero-filled up to memSize), and its permission bits.
type elfSegment struct {
	vaddr   mem.VirtAddr
	memSize uint32
	init    []byte
	write   bool
	exec    bool
}

// elfImage is a validated, minimally parsed ELF32 executable: an entry
// point and its PT_LOAD segments. Grounded on
// original_source/shared/elf_parser's ElfParser, generalized from a
// borrowing Rust struct to one slicing the same backing byte buffer.
type elfImage struct {
	entry    uint32
	segments []elfSegment
}

// parseELF validates bytes as a 32-bit little-endian ET_EXEC for the x86
// machine type and extracts its PT_LOAD segments.
func parseELF(bytes []byte) (*elfImage, defs.Err_t) {
	if len(bytes) < ehdrMinSize {
		return nil, defs.EBADELF
	}
	if string(bytes[0:4]) != "\x7fELF" {
		return nil, defs.EBADELF
	}
	if bytes[4] != elfClass32 || bytes[5] != elfDataLSB {
		return nil, defs.EBADELF
	}
	if uint16(util.Readn(bytes, 2, 16)) != elfTypeExec {
		return nil, defs.EBADELF
	}
	if uint16(util.Readn(bytes, 2, 18)) != elfMachineX86 {
		return nil, defs.EBADELF
	}

	entry := uint32(util.Readn(bytes, 4, 24))
	phoff := uint32(util.Readn(bytes, 4, 28))
	phnum := uint16(util.Readn(bytes, 2, 44))

	phend := uint64(phoff) + uint64(phnum)*phdrSize
	if phend > uint64(len(bytes)) {
		return nil, defs.EBADELF
	}

	img := &elfImage{entry: entry}
	for i := uint16(0); i < phnum; i++ {
		off := int(phoff) + int(i)*phdrSize
		if uint32(util.Readn(bytes, 4, off)) != segTypeLoad {
			continue
		}
		fileOff := uint32(util.Readn(bytes, 4, off+4))
		vaddr := uint32(util.Readn(bytes, 4, off+8))
		fileSize := uint32(util.Readn(bytes, 4, off+16))
		memSize := uint32(util.Readn(bytes, 4, off+20))
		flags := uint32(util.Readn(bytes, 4, off+24))

		segEnd := uint64(fileOff) + uint64(fileSize)
		if segEnd > uint64(len(bytes)) {
			return nil, defs.EBADELF
		}
		img.segments = append(img.segments, elfSegment{
			vaddr:   mem.VirtAddr(vaddr),
			memSize: memSize,
			init:    bytes[fileOff : fileOff+fileSize],
			write:   flags&segFlagWrite != 0,
			exec:    flags&segFlagExec != 0,
		})
	}
	return img, 0
}
