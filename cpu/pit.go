package cpu

import "sync/atomic"

// 8254 PIT ports and mode-2 control word. Reference:
// https://www.scs.stanford.edu/10wi-cs140/pintos/specs/8254.pdf
const (
	pitChannel0DataPort = 0x40
	pitControlPort      = 0x43

	// 00 select counter 0, 11 write LSB then MSB, 010 mode 2 (rate
	// generator), 0 16-bit binary.
	pitModeRateGenerator = 0x34
)

// targetFreqHz is the interrupt rate this kernel wants from IRQ0.
const targetFreqHz = 100

// pitFreqHzNum/pitFreqHzDen is the PIT's own oscillator frequency in Hz,
// kept as an integer ratio (105/88 of 1MHz) to avoid floating point in
// the divisor calculation.
const pitFreqHzNum = 1_000_000 * 105
const pitFreqHzDen = 88

// pitDivisor is the 16-bit counter divisor that gets closest to
// targetFreqHz; a divisor of 1 is illegal in mode 2, and this constant
// ratio never produces one.
const pitDivisor = pitFreqHzNum / (pitFreqHzDen * targetFreqHz)

var ticks uint64

// bootUnixTime is set once at boot from the CMOS RTC; online time is
// added on top of it tick by tick.
var bootUnixTime int64

// InitPIT programs counter 0 as a mode-2 rate generator at pitDivisor,
// yielding IRQ0 roughly every 1/targetFreqHz seconds.
func InitPIT(bootTime int64) {
	if pitDivisor == 1 {
		panic("cpu: PIT divisor of 1 is illegal in mode 2")
	}
	bootUnixTime = bootTime
	Outb(pitControlPort, pitModeRateGenerator)
	Outb(pitChannel0DataPort, uint8(pitDivisor))
	Outb(pitChannel0DataPort, uint8(pitDivisor>>8))
}

// TickIRQ0 advances the online-time accumulator; called from the IRQ0
// handler installed on vector picIRQOffset+0.
func TickIRQ0() {
	atomic.AddUint64(&ticks, 1)
}

// Ticks returns the number of PIT ticks observed since InitPIT.
func Ticks() uint64 {
	return atomic.LoadUint64(&ticks)
}

// UnixTime returns the current wall-clock time, derived from the RTC
// reading InitPIT was given plus elapsed PIT ticks.
func UnixTime() int64 {
	return bootUnixTime + int64(Ticks())/targetFreqHz
}
