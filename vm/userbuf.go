package vm

import (
	"sync"

	"bounds"
	"defs"
	"mem"
	"res"
)

// Userbuf_t assists reading and writing user memory through a
// PageDirectory, one page at a time, so that no single Uioread/Uiowrite
// call ever holds more than one frame's content live. Each page's address
// lookup (TranslateVirt) takes pd's lock; the permission check and the
// copy that follow run without it, so an Unmap between the lookup and the
// copy is not excluded.
type Userbuf_t struct {
	pd      *PageDirectory
	backend mem.Backend
	userva  mem.VirtAddr
	len     int
	off     int
}

// Ub_init initializes the buffer over [uva, uva+ln) in the address space
// described by pd/backend.
func (ub *Userbuf_t) Ub_init(pd *PageDirectory, backend mem.Backend, uva mem.VirtAddr, ln int) {
	if ln < 0 {
		panic("negative length")
	}
	ub.pd = pd
	ub.backend = backend
	ub.userva = uva
	ub.len = ln
	ub.off = 0
}

// Remain returns the number of unread bytes left in the buffer.
func (ub *Userbuf_t) Remain() int {
	return ub.len - ub.off
}

// Totalsz reports the total size of the buffer in bytes.
func (ub *Userbuf_t) Totalsz() int {
	return ub.len
}

// Uioread copies data from user memory into dst and returns the number of
// bytes read along with an error code.
func (ub *Userbuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	return ub.tx(dst, false)
}

// Uiowrite copies data from src into user memory and returns the number of
// bytes written along with an error code.
func (ub *Userbuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	return ub.tx(src, true)
}

// tx copies the min of len(buf) or the buffer's remaining length, one page
// at a time. If an error occurs mid-transfer, ub.off is left at the last
// successfully transferred byte so the caller may resume or report a short
// count.
func (ub *Userbuf_t) tx(buf []uint8, write bool) (int, defs.Err_t) {
	ret := 0
	for len(buf) != 0 && ub.off != ub.len {
		if !res.Resadd_noblock(bounds.Bounds(bounds.B_USERBUF_T__TX)) {
			return ret, defs.ENOMEM
		}
		va := mem.VirtAddr(uint32(ub.userva) + uint32(ub.off))
		pageOff := uint32(va) & mem.PGOFFSET
		phys, ok, err := ub.pd.TranslateVirt(va)
		if err != 0 {
			return ret, err
		}
		if !ok {
			return ret, defs.EFAULT
		}
		if !ub.pd.ValidateUserRange(mem.VirtAddr(uint32(va)&^mem.PGOFFSET), 1, write) {
			return ret, defs.EFAULT
		}
		frame, err := ub.backend.Frame(phys)
		if err != 0 {
			return ret, err
		}
		chunk := frame[pageOff:]
		left := ub.len - ub.off
		if len(chunk) > left {
			chunk = chunk[:left]
		}
		var c int
		if write {
			c = copy(chunk, buf)
		} else {
			c = copy(buf, chunk)
		}
		buf = buf[c:]
		ub.off += c
		ret += c
		if c == 0 {
			return ret, defs.EFAULT
		}
	}
	return ret, 0
}

type iove_t struct {
	uva mem.VirtAddr
	sz  int
}

// Useriovec_t represents a sequence of user buffers defined by an iovec
// array in user memory.
type Useriovec_t struct {
	iovs    []iove_t
	tsz     int
	pd      *PageDirectory
	backend mem.Backend
}

// Iov_init reads niovs {uva,len} pairs from user memory starting at
// iovarn, each pair 8 bytes of address followed by 8 bytes of length.
func (iov *Useriovec_t) Iov_init(pd *PageDirectory, backend mem.Backend, iovarn mem.VirtAddr, niovs int) defs.Err_t {
	if niovs > 10 {
		return defs.EINVAL
	}
	iov.tsz = 0
	iov.iovs = make([]iove_t, niovs)
	iov.pd = pd
	iov.backend = backend

	for i := range iov.iovs {
		if !res.Resadd_noblock(bounds.Bounds(bounds.B_USERIOVEC_T_IOV_INIT)) {
			return defs.ENOMEM
		}
		const elmsz = 16
		va := mem.VirtAddr(uint32(iovarn) + uint32(i)*elmsz)
		dstva, err := userreadn(pd, backend, va, 4)
		if err != 0 {
			return err
		}
		sz, err := userreadn(pd, backend, mem.VirtAddr(uint32(va)+8), 4)
		if err != 0 {
			return err
		}
		iov.iovs[i].uva = mem.VirtAddr(dstva)
		iov.iovs[i].sz = sz
		iov.tsz += sz
	}
	return 0
}

// Remain returns the number of bytes remaining across all iovecs.
func (iov *Useriovec_t) Remain() int {
	ret := 0
	for i := range iov.iovs {
		ret += iov.iovs[i].sz
	}
	return ret
}

// Totalsz returns the total number of bytes described by the iovec array.
func (iov *Useriovec_t) Totalsz() int {
	return iov.tsz
}

func (iov *Useriovec_t) tx(buf []uint8, touser bool) (int, defs.Err_t) {
	ub := &Userbuf_t{}
	did := 0
	for len(buf) > 0 && len(iov.iovs) > 0 {
		if !res.Resadd_noblock(bounds.Bounds(bounds.B_USERIOVEC_T__TX)) {
			return did, defs.ENOMEM
		}
		ciov := &iov.iovs[0]
		ub.Ub_init(iov.pd, iov.backend, ciov.uva, ciov.sz)
		var c int
		var err defs.Err_t
		if touser {
			c, err = ub.tx(buf, true)
		} else {
			c, err = ub.tx(buf, false)
		}
		ciov.uva = mem.VirtAddr(uint32(ciov.uva) + uint32(c))
		ciov.sz -= c
		if ciov.sz == 0 {
			iov.iovs = iov.iovs[1:]
		}
		buf = buf[c:]
		did += c
		if err != 0 {
			return did, err
		}
	}
	return did, 0
}

// Uioread reads into dst from the set of user buffers and returns the
// number of bytes copied along with an error code.
func (iov *Useriovec_t) Uioread(dst []uint8) (int, defs.Err_t) {
	return iov.tx(dst, false)
}

// Uiowrite writes src to the user buffers and returns the number of bytes
// copied along with an error code.
func (iov *Useriovec_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	return iov.tx(src, true)
}

// userreadn reads an n-byte (n<=4) little-endian integer from user memory,
// used only for the {uva,len} iovec header fields above.
func userreadn(pd *PageDirectory, backend mem.Backend, va mem.VirtAddr, n int) (uint32, defs.Err_t) {
	if n < 1 || n > 4 {
		panic("bad userreadn width")
	}
	var buf [4]uint8
	ub := &Userbuf_t{}
	ub.Ub_init(pd, backend, va, n)
	if _, err := ub.Uioread(buf[:n]); err != 0 {
		return 0, err
	}
	var v uint32
	for i := 0; i < n; i++ {
		v |= uint32(buf[i]) << (8 * uint(i))
	}
	return v, 0
}

// Fakeubuf_t implements the same interface as Userbuf_t but operates on a
// plain kernel buffer, for kernel code that needs to treat internal memory
// like user memory (for example feeding a kernel-resident argv into the
// same path execve uses for a real user argv).
type Fakeubuf_t struct {
	fbuf []uint8
	len  int
}

// Fake_init sets up the fake buffer with the provided slice.
func (fb *Fakeubuf_t) Fake_init(buf []uint8) {
	fb.fbuf = buf
	fb.len = len(fb.fbuf)
}

// Remain returns the number of bytes left in the fake buffer.
func (fb *Fakeubuf_t) Remain() int {
	return len(fb.fbuf)
}

// Totalsz returns the total length of the fake buffer.
func (fb *Fakeubuf_t) Totalsz() int {
	return fb.len
}

func (fb *Fakeubuf_t) tx(buf []uint8, tofbuf bool) (int, defs.Err_t) {
	var c int
	if tofbuf {
		c = copy(fb.fbuf, buf)
	} else {
		c = copy(buf, fb.fbuf)
	}
	fb.fbuf = fb.fbuf[c:]
	return c, 0
}

// Uioread copies from the fake buffer into dst.
func (fb *Fakeubuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	return fb.tx(dst, false)
}

// Uiowrite copies src into the fake buffer.
func (fb *Fakeubuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	return fb.tx(src, true)
}

// Ubpool provides reusable Userbuf_t structures to reduce allocations on
// the hot read/write syscall path.
var Ubpool = sync.Pool{New: func() interface{} { return new(Userbuf_t) }}

// Userreadn reads an n-byte (n<=4) little-endian integer from user memory,
// the exported form of userreadn for callers outside this package (the
// syscall layer's argument marshaling, spec §4.9).
func Userreadn(pd *PageDirectory, backend mem.Backend, va mem.VirtAddr, n int) (uint32, defs.Err_t) {
	return userreadn(pd, backend, va, n)
}

// Userwriten writes val as an n-byte (n<=4) little-endian integer into user
// memory.
func Userwriten(pd *PageDirectory, backend mem.Backend, va mem.VirtAddr, n int, val uint32) defs.Err_t {
	if n < 1 || n > 4 {
		panic("bad userwriten width")
	}
	var buf [4]uint8
	for i := 0; i < n; i++ {
		buf[i] = uint8(val >> (8 * uint(i)))
	}
	ub := &Userbuf_t{}
	ub.Ub_init(pd, backend, va, n)
	_, err := ub.Uiowrite(buf[:n])
	return err
}

// Userstr reads a NUL-terminated string from user memory one byte at a
// time, failing with ETOOSMALL if no NUL appears within max bytes (spec
// §4.9's path/argv/envp string arguments).
func Userstr(pd *PageDirectory, backend mem.Backend, va mem.VirtAddr, max int) (string, defs.Err_t) {
	buf := make([]byte, 0, 64)
	ub := &Userbuf_t{}
	for i := 0; i < max; i++ {
		ub.Ub_init(pd, backend, mem.VirtAddr(uint32(va)+uint32(i)), 1)
		var b [1]byte
		if _, err := ub.Uioread(b[:]); err != 0 {
			return "", err
		}
		if b[0] == 0 {
			return string(buf), 0
		}
		buf = append(buf, b[0])
	}
	return "", defs.ETOOSMALL
}

// K2user copies a kernel-resident buffer into user memory at va ("kernel to
// user").
func K2user(pd *PageDirectory, backend mem.Backend, va mem.VirtAddr, src []byte) (int, defs.Err_t) {
	ub := &Userbuf_t{}
	ub.Ub_init(pd, backend, va, len(src))
	return ub.Uiowrite(src)
}

// User2k copies from user memory at va into a kernel-resident buffer
// ("user to kernel").
func User2k(pd *PageDirectory, backend mem.Backend, va mem.VirtAddr, dst []byte) (int, defs.Err_t) {
	ub := &Userbuf_t{}
	ub.Ub_init(pd, backend, va, len(dst))
	return ub.Uioread(dst)
}
