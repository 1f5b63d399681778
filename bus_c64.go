// bus_c64.go - C64-style address routing: zero page/stack, banked BASIC and
// KERNAL ROM overlays, and the $00/$01 processor-port LORAM/HIRAM/CHAREN
// bits that decide what each region reads from. Address decode here is a
// direct table lookup, not MMIO callbacks, because the overlay depends on
// a CPU-visible register rather than a device intercepting the access.
package retrocore

const (
	c64RAMSize  = 64 * 1024
	procPortDDR = 0x0000
	procPort    = 0x0001

	basicROMStart  = 0xA000
	basicROMEnd    = 0xBFFF
	ioRegionStart  = 0xD000
	ioRegionEnd    = 0xDFFF
	kernalROMStart = 0xE000
	kernalROMEnd   = 0xFFFF
)

// C64Bus implements Bus for the zero-page/BASIC/CHAREN/KERNAL overlay
// system.
type C64Bus struct {
	ram        [c64RAMSize]byte
	basicROM   []byte // 8KB, $A000-$BFFF when mapped in
	charROM    []byte // 4KB, $D000-$DFFF when mapped in and CHAREN clear
	kernalROM  []byte // 8KB, $E000-$FFFF when mapped in
	io         *ioTable
	video      Contention
	lastBusVal byte // open-bus fallback: last value driven onto the data bus
}

func NewC64Bus(basicROM, charROM, kernalROM []byte) *C64Bus {
	b := &C64Bus{
		basicROM:  basicROM,
		charROM:   charROM,
		kernalROM: kernalROM,
		io:        newIOTable(16),
	}
	b.ram[procPortDDR] = 0x2F // power-on DDR: bits 0-2,3,5 output
	b.ram[procPort] = 0x37    // power-on value: LORAM=HIRAM=CHAREN=1
	return b
}

// SetVideo registers the VIDEO chip consulted for contention on shared
// memory.
func (b *C64Bus) SetVideo(v Contention) { b.video = v }

// MapIO registers a memory-mapped chip register window in $D000-$DFFF.
func (b *C64Bus) MapIO(start, end uint32, onRead func(uint32) byte, onWrite func(uint32, byte)) {
	b.io.Map(start, end, onRead, onWrite)
}

// portBits returns the effective LORAM, HIRAM, CHAREN bits: input pins on
// the data-direction register read back as 1.
func (b *C64Bus) portBits() (loram, hiram, charen bool) {
	ddr := b.ram[procPortDDR]
	val := b.ram[procPort]
	effective := func(bit byte) bool {
		if ddr&bit == 0 {
			return true // input pin floats high
		}
		return val&bit != 0
	}
	return effective(0x01), effective(0x02), effective(0x04)
}

func (b *C64Bus) Read(addr uint32) (byte, int) {
	a := addr & 0xFFFF
	wait := 0
	if b.video != nil {
		wait = b.video.ContentionAt(a)
	}
	loram, hiram, charen := b.portBits()

	switch {
	case a <= 0x01FF, a >= 0x0200 && a <= 0x9FFF:
		return b.ram[a], wait
	case a >= basicROMStart && a <= basicROMEnd:
		if loram && hiram && b.basicROM != nil {
			return b.basicROM[a-basicROMStart], wait
		}
		return b.ram[a], wait
	case a >= ioRegionStart && a <= ioRegionEnd:
		if charen {
			if v, ok := b.io.Read(a); ok {
				b.lastBusVal = v
				return v, wait
			}
			return b.lastBusVal, wait // open bus: nothing mapped
		}
		if (loram || hiram) && b.charROM != nil {
			return b.charROM[a-ioRegionStart], wait
		}
		return b.ram[a], wait
	case a >= kernalROMStart && a <= kernalROMEnd:
		if hiram && b.kernalROM != nil {
			return b.kernalROM[a-kernalROMStart], wait
		}
		return b.ram[a], wait
	default:
		return b.ram[a], wait
	}
}

// Write always lands in RAM, even in ranges currently reading from ROM —
// the overlapped RAM stays visible to the video chip and to later bank
// switches.
func (b *C64Bus) Write(addr uint32, v byte) int {
	a := addr & 0xFFFF
	wait := 0
	if b.video != nil {
		wait = b.video.ContentionAt(a)
	}
	_, _, charen := b.portBits()
	if a >= ioRegionStart && a <= ioRegionEnd && charen {
		b.io.Write(a, v)
	}
	b.ram[a] = v
	return wait
}

func (b *C64Bus) Reset() {
	for i := range b.ram {
		b.ram[i] = 0
	}
	b.ram[procPortDDR] = 0x2F
	b.ram[procPort] = 0x37
}

// Poke/Peek give tests and the Observable surface direct RAM access
// without going through the overlay (ROM regions are exempt from the
// poke/read round trip).
func (b *C64Bus) Poke(addr uint16, v byte) { b.ram[addr] = v }
func (b *C64Bus) Peek(addr uint16) byte    { return b.ram[addr] }
