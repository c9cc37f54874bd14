package fdops

import "circbuf"
import "defs"
import "stat"

// KeySource supplies one blocking, already-cooked ASCII byte from the
// keyboard input stream. Package cpu's keyboard FSM implements it; this
// package only depends on the shape so fd 0's cook loop (spec §4.9's Read
// row) has no import-cycle dependency on cpu.
type KeySource interface {
	NextASCII() byte
}

// Printer writes raw bytes to the terminal/serial sink backing fd 1.
type Printer interface {
	Print(b []byte)
}

// consoleInputSize is the capacity of the line buffer fd 0's reads drain
// from, large enough for several unread lines of typed input.
const consoleInputSize = 512

// Confops_t is the console device bound to every process's fd 0 (keyboard)
// and fd 1 (terminal) at process start. Reads drain a ring buffer fed a
// line at a time from keys, so a read shorter than a full line never
// blocks past the newline that completed it.
type Confops_t struct {
	keys KeySource
	out  Printer
	in   circbuf.Circbuf_t
}

// MkConfops wires a console descriptor to a keyboard source and print
// sink, carving its input ring buffer out of heap.
func MkConfops(keys KeySource, out Printer, heap circbuf.Heap) *Confops_t {
	c := &Confops_t{keys: keys, out: out}
	c.in.Cb_init(consoleInputSize, heap)
	return c
}

// Read blocks, cooking keystrokes a line at a time, until at least one byte
// is available, then transfers up to dst's remaining length.
func (c *Confops_t) Read(dst Userio_i) (int, defs.Err_t) {
	if c.in.Empty() {
		c.fillLine()
	}
	return c.in.Copyout_n(dst, dst.Remain())
}

// fillLine blocks on keys until a complete line (or a full buffer) has been
// buffered.
func (c *Confops_t) fillLine() {
	for {
		b := c.keys.NextASCII()
		c.in.WriteByte(b)
		if b == '\n' || c.in.Full() {
			return
		}
	}
}

// Write prints src to the terminal.
func (c *Confops_t) Write(src Userio_i) (int, defs.Err_t) {
	buf := make([]byte, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return n, err
	}
	c.out.Print(buf[:n])
	return n, 0
}

// charDeviceMode is the ext2 inode-type bits for a character device,
// reused here since the console has no backing inode of its own.
const charDeviceMode = 0x2000

// Fstat reports the console as a character device.
func (c *Confops_t) Fstat(st *stat.Stat_t) defs.Err_t {
	st.Wmode(charDeviceMode)
	return 0
}

// Reopen and Close are no-ops: the console is a process-wide singleton
// with no per-reference state to release.
func (c *Confops_t) Reopen() defs.Err_t { return 0 }
func (c *Confops_t) Close() defs.Err_t  { return 0 }
