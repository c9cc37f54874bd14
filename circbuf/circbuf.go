package circbuf

import (
	"unsafe"

	"defs"
	"mem"
)

// Heap is the subset of kheap.Allocator a Circbuf_t needs to carve out and
// release its own backing storage from the kernel heap window, named here
// rather than imported directly so this package doesn't need to know
// kheap's page-granular allocation policy.
type Heap interface {
	Alloc(size uint32, align uint32) (mem.VirtAddr, defs.Err_t)
	Free(virt mem.VirtAddr, size uint32)
}

// Userio is the user-memory transfer endpoint Copyin/Copyout move bytes
// against; it is the same shape as fdops.Userio_i, restated locally so this
// package (which fdops.Confops_t embeds a Circbuf_t in) doesn't import
// fdops back.
type Userio interface {
	Uioread(dst []uint8) (int, defs.Err_t)
	Uiowrite(src []uint8) (int, defs.Err_t)
}

// Circbuf_t is a byte ring buffer lazily backed by kernel-heap memory, used
// by the console device (fdops.Confops_t) to decouple a syscall's requested
// read/write length from the keyboard/serial device's one-byte-at-a-time
// cadence. Not safe for concurrent use and references no global state.
type Circbuf_t struct {
	heap  Heap
	Buf   []uint8
	bufsz int
	base  mem.VirtAddr
	head  int
	tail  int
}

// Bufsz returns the configured buffer size.
func (cb *Circbuf_t) Bufsz() int {
	return cb.bufsz
}

// Cb_init records the buffer's capacity and the heap it will lazily
// allocate from; it is easier to handle an allocation failure at the first
// read or write than during construction.
func (cb *Circbuf_t) Cb_init(sz int, heap Heap) {
	if sz <= 0 {
		panic("bad circbuf size")
	}
	cb.heap = heap
	cb.bufsz = sz
	cb.head, cb.tail = 0, 0
}

// Cb_release returns the backing storage to the heap.
func (cb *Circbuf_t) Cb_release() {
	if cb.Buf == nil {
		return
	}
	cb.heap.Free(cb.base, uint32(cb.bufsz))
	cb.Buf = nil
	cb.head, cb.tail = 0, 0
}

// Cb_ensure guarantees that the buffer is allocated.
func (cb *Circbuf_t) Cb_ensure() defs.Err_t {
	if cb.Buf != nil {
		return 0
	}
	if cb.bufsz == 0 {
		panic("not initted")
	}
	va, err := cb.heap.Alloc(uint32(cb.bufsz), 1)
	if err != 0 {
		return err
	}
	cb.base = va
	ptr := unsafe.Pointer(uintptr(va))
	cb.Buf = unsafe.Slice((*byte)(ptr), cb.bufsz)
	return 0
}

// Full returns true when the buffer cannot accept more data.
func (cb *Circbuf_t) Full() bool {
	return cb.head-cb.tail == cb.bufsz
}

// Empty reports whether the buffer contains any data.
func (cb *Circbuf_t) Empty() bool {
	return cb.head == cb.tail
}

// Left returns the remaining capacity in bytes.
func (cb *Circbuf_t) Left() int {
	return cb.bufsz - (cb.head - cb.tail)
}

// Used returns the current number of bytes in the buffer.
func (cb *Circbuf_t) Used() int {
	return cb.head - cb.tail
}

// WriteByte appends a single byte, dropping it silently if the buffer is
// already full; the producer side (a keyboard/serial interrupt feed) has no
// useful way to apply backpressure here.
func (cb *Circbuf_t) WriteByte(b byte) defs.Err_t {
	if err := cb.Cb_ensure(); err != 0 {
		return err
	}
	if cb.Full() {
		return 0
	}
	cb.Buf[cb.head%cb.bufsz] = b
	cb.head++
	return 0
}

// Copyout_n writes up to max bytes of the buffer to dst; max of 0 means no
// limit beyond what dst itself can hold.
func (cb *Circbuf_t) Copyout_n(dst Userio, max int) (int, defs.Err_t) {
	if err := cb.Cb_ensure(); err != 0 {
		return 0, err
	}
	if cb.Empty() {
		return 0, 0
	}
	hi := cb.head % cb.bufsz
	ti := cb.tail % cb.bufsz
	c := 0
	// wraparound?
	if hi <= ti {
		src := cb.Buf[ti:]
		if max != 0 && max < len(src) {
			src = src[:max]
		}
		wrote, err := dst.Uiowrite(src)
		if err != 0 {
			return 0, err
		}
		if wrote != len(src) || wrote == max {
			cb.tail += wrote
			return wrote, 0
		}
		c += wrote
		if max != 0 {
			max -= c
		}
		ti = (cb.tail + wrote) % cb.bufsz
	}
	if ti > hi {
		panic("wut?")
	}
	src := cb.Buf[ti:hi]
	if max != 0 && max < len(src) {
		src = src[:max]
	}
	wrote, err := dst.Uiowrite(src)
	if err != 0 {
		return 0, err
	}
	c += wrote
	cb.tail += c
	return c, 0
}
