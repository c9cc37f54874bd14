package cpu

// Package-level PS/2 keyboard driver: polled scan-code-set-1 decoding with
// a line-cooked NextASCII, the shape fdops.Confops_t's fd 0 expects (spec
// §4.9's Read row). Grounded on
// original_source/kernel/src/ps2/keyboard.rs's state machine, reduced to
// the single US-layout, unextended-scancode path that reaching a cooked
// ASCII byte stream actually needs; PrtScn/Pause multi-byte sequences and
// LED/typematic configuration are not modeled.
const (
	ps2DataPort   = 0x60
	ps2StatusPort = 0x64
	ps2OutputFull = 0x1
)

const (
	scBackspace = 0x0E
	scEnter     = 0x1C
	scLShift    = 0x2A
	scRShift    = 0x36
	scReleased  = 0x80
)

// set1 maps an unshifted scan code (bit 7 clear) to its lowercase ASCII
// byte, 0 where the key has no ASCII representation this driver cooks.
var set1 = [0x60]byte{
	0x02: '1', 0x03: '2', 0x04: '3', 0x05: '4', 0x06: '5',
	0x07: '6', 0x08: '7', 0x09: '8', 0x0A: '9', 0x0B: '0',
	0x0C: '-', 0x0D: '=',
	0x10: 'q', 0x11: 'w', 0x12: 'e', 0x13: 'r', 0x14: 't',
	0x15: 'y', 0x16: 'u', 0x17: 'i', 0x18: 'o', 0x19: 'p',
	0x1E: 'a', 0x1F: 's', 0x20: 'd', 0x21: 'f', 0x22: 'g',
	0x23: 'h', 0x24: 'j', 0x25: 'k', 0x26: 'l',
	0x2C: 'z', 0x2D: 'x', 0x2E: 'c', 0x2F: 'v', 0x30: 'b',
	0x31: 'n', 0x32: 'm',
	0x39: ' ',
}

var set1Shift = [0x60]byte{
	0x02: '!', 0x03: '@', 0x04: '#', 0x05: '$', 0x06: '%',
	0x07: '^', 0x08: '&', 0x09: '*', 0x0A: '(', 0x0B: ')',
	0x0C: '_', 0x0D: '+',
	0x10: 'Q', 0x11: 'W', 0x12: 'E', 0x13: 'R', 0x14: 'T',
	0x15: 'Y', 0x16: 'U', 0x17: 'I', 0x18: 'O', 0x19: 'P',
	0x1E: 'A', 0x1F: 'S', 0x20: 'D', 0x21: 'F', 0x22: 'G',
	0x23: 'H', 0x24: 'J', 0x25: 'K', 0x26: 'L',
	0x2C: 'Z', 0x2D: 'X', 0x2E: 'C', 0x2F: 'V', 0x30: 'B',
	0x31: 'N', 0x32: 'M',
	0x39: ' ',
}

// Keyboard cooks raw PS/2 scan codes into complete lines, exactly the
// behavior fdops.KeySource's NextASCII is specified to block for.
type Keyboard struct {
	shift bool
	line  []byte
	ready []byte
}

// NewKeyboard constructs a driver with an empty line buffer.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

// NextASCII blocks, polling the PS/2 controller, until one cooked byte is
// available and returns it: a character the line buffer accumulated, or
// the newline that flushes a completed line.
func (k *Keyboard) NextASCII() byte {
	for len(k.ready) == 0 {
		sc := k.readScancode()
		k.feed(sc)
	}
	b := k.ready[0]
	k.ready = k.ready[1:]
	return b
}

func (k *Keyboard) readScancode() uint8 {
	for Inb(ps2StatusPort)&ps2OutputFull == 0 {
	}
	return Inb(ps2DataPort)
}

func (k *Keyboard) feed(sc uint8) {
	released := sc&scReleased != 0
	code := sc &^ scReleased

	switch code {
	case scLShift, scRShift:
		k.shift = !released
		return
	}
	if released {
		return
	}

	switch code {
	case scEnter:
		k.line = append(k.line, '\n')
		k.ready = append(k.ready, k.line...)
		k.line = k.line[:0]
		return
	case scBackspace:
		if len(k.line) > 0 {
			k.line = k.line[:len(k.line)-1]
		}
		return
	}

	if int(code) >= len(set1) {
		return
	}
	var ch byte
	if k.shift {
		ch = set1Shift[code]
	} else {
		ch = set1[code]
	}
	if ch == 0 {
		return
	}
	k.line = append(k.line, ch)
}
