package cpu

// Serial implements fdops.Printer over whichever BIOS-reported COM ports
// are present, writing to all of them. Grounded on
// original_source/shared/serial/src/lib.rs's init/write, translated from
// its spin-locked global into a value the kernel package owns and passes
// around explicitly.
type Serial struct {
	ports [4]uint16
}

// NewSerial programs every non-zero port in ports (the BootArgs.SerialPort
// array, read out of the BIOS data area by the bootloader) for 115200
// baud, 8 data bits, no parity, one stop bit.
func NewSerial(ports [4]uint16) *Serial {
	s := &Serial{ports: ports}
	for _, port := range s.ports {
		if port == 0 {
			continue
		}
		Outb(port+1, 0x00) // disable all interrupts
		Outb(port+3, 0x80) // enable DLAB
		Outb(port+0, 0x01) // divisor low byte: 115200 baud
		Outb(port+1, 0x00) // divisor high byte
		Outb(port+3, 0x03) // DLAB off, 8n1
		Outb(port+2, 0x00) // disable FIFO
		Outb(port+4, 0x03) // DTR/RTS
	}
	return s
}

// Print writes b to every present port, translating a bare LF into CRLF.
func (s *Serial) Print(b []byte) {
	for _, port := range s.ports {
		if port == 0 {
			continue
		}
		for _, c := range b {
			if c == '\n' {
				s.writeByte(port, '\r')
			}
			s.writeByte(port, c)
		}
	}
}

func (s *Serial) writeByte(port uint16, c byte) {
	for Inb(port+5)&0x20 == 0 {
	}
	Outb(port, c)
}
