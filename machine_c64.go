// machine_c64.go - wires C64Bus+CPU6502+a VIC-II-style raster source into
// a complete machine. The C64's VIC-II is timing-compatible with the NES
// PPU's dot/scanline model closely enough that NESVideo's raster core is
// reused here against the C64's memory map, differing only in which bus
// it fetches through and in register semantics exposed via Observable.
package retrocore

type C64Machine struct {
	bus   *C64Bus
	cpu   *CPU6502
	video *NESVideo // raster-timing core shared across 8-bit raster chips
	vic   *vicRasterRegs
	cia   *CIATimer
	sched *Scheduler

	keys       map[string]bool
	queuedText []queuedKey
	frameCount int
	maxTicks   int

	obs *Observable
}

// vicRasterRegs routes the VIC-II's $D011/$D012/$D019/$D01A register
// window into NESVideo's shared raster-compare core: $D011 bit 7 is the
// compare value's 9th bit, $D012 reads back the current beam line and
// (on write) sets the low 8 compare bits, and $D019/$D01A are the
// latched-status/enable pair real 6567-family chips expose.
type vicRasterRegs struct {
	video *NESVideo

	ctrl1    byte
	rasterLo byte
	ier      byte
	irr      byte
}

func (r *vicRasterRegs) apply() {
	line := int(r.rasterLo) | int(r.ctrl1&0x80)<<1
	r.video.SetCompareScanline(line, r.ier&0x01 != 0)
}

func (r *vicRasterRegs) ReadReg(addr uint32) byte {
	switch addr & 0x3F {
	case 0x11:
		return r.ctrl1
	case 0x12:
		return byte(r.video.scanline)
	case 0x19:
		v := r.irr
		r.irr = 0
		return v
	case 0x1A:
		return r.ier
	default:
		return 0
	}
}

func (r *vicRasterRegs) WriteReg(addr uint32, v byte) {
	switch addr & 0x3F {
	case 0x11:
		r.ctrl1 = v
		r.apply()
	case 0x12:
		r.rasterLo = v
		r.apply()
	case 0x1A:
		r.ier = v & 0x0F
	case 0x19: // writing a 1 to a status bit clears it
		r.irr &^= v
	}
}

// vicIRQPeripheral latches NESVideo's raster-match pulse into $D019 so the
// CPU can see which source fired, the way a real VIC-II's IRQ status
// register works.
type vicIRQPeripheral struct{ vic *vicRasterRegs }

func (p vicIRQPeripheral) Tick() {
	if p.vic.video.RasterMatch() {
		p.vic.irr |= 0x81
	}
}

func NewC64Machine(cfg Config) (*C64Machine, error) {
	if len(cfg.KernalROM) != 0 && len(cfg.KernalROM) != 8192 {
		return nil, &ConstructionError{System: "c64", Reason: "KERNAL ROM must be 8KB"}
	}
	if len(cfg.BasicROM) != 0 && len(cfg.BasicROM) != 8192 {
		return nil, &ConstructionError{System: "c64", Reason: "BASIC ROM must be 8KB"}
	}
	bus := NewC64Bus(cfg.BasicROM, cfg.CharROM, cfg.KernalROM)
	video := NewNESVideo(bus)
	bus.SetVideo(video)
	cpu := NewCPU6502(bus)
	vic := &vicRasterRegs{video: video}
	cia := NewCIATimer()
	bus.MapIO(ioRegionStart, ioRegionStart+0x03FF, vic.ReadReg, vic.WriteReg)
	bus.MapIO(0xDC00, 0xDC0F, cia.ReadReg, cia.WriteReg)

	m := &C64Machine{bus: bus, cpu: cpu, video: video, vic: vic, cia: cia, keys: make(map[string]bool), maxTicks: cfg.maxTicks()}
	m.sched = NewScheduler(bus, cpu, video)
	m.sched.SetNMISource(func() bool { return false })
	m.sched.SetIRQSource(func() bool { return vic.irr&0x80 != 0 || cia.IRQAsserted() })
	m.sched.AddPeripheral(vicIRQPeripheral{vic: vic})
	m.sched.AddPeripheral(cia)
	m.buildObservable()
	if cfg.BootShim != nil {
		cfg.BootShim(bus)
	}
	return m, nil
}

func (m *C64Machine) buildObservable() {
	m.obs = NewObservable()
	m.obs.Register("cpu.pc", func() Value { return IntValue(uint64(m.cpu.PC)) }, func(v Value) bool { m.cpu.PC = uint16(v.Uint()); return true })
	m.obs.Register("cpu.a", func() Value { return ByteValue(m.cpu.A) }, func(v Value) bool { m.cpu.A = v.Byte(); return true })
	m.obs.Register("cpu.sp", func() Value { return ByteValue(m.cpu.SP) }, func(v Value) bool { m.cpu.SP = v.Byte(); return true })
	m.obs.Register("vic.line", func() Value { return IntValue(uint64(m.video.scanline)) }, nil)
	for addr := 0; addr < 0x10000; addr++ {
		a := uint16(addr)
		m.obs.Register(memoryPath(a), func() Value { return ByteValue(m.bus.Peek(a)) }, func(v Value) bool { m.bus.Poke(a, v.Byte()); return true })
	}
}

func memoryPath(addr uint16) string {
	const hex = "0123456789abcdef"
	buf := []byte("memory.0x0000")
	for i := 0; i < 4; i++ {
		buf[9+i] = hex[(addr>>uint(12-4*i))&0xF]
	}
	return string(buf)
}

func (m *C64Machine) Reset() {
	m.bus.Reset()
	m.video.Reset()
	m.cpu.Reset()
}

func (m *C64Machine) RunFrame() {
	m.deliverQueuedText()
	m.sched.RunFrame(m.maxTicks)
	m.frameCount++
}

func (m *C64Machine) StepInstruction()       { m.cpu.StepInstruction() }
func (m *C64Machine) FrameBuffer() []uint32  { return m.video.TakeFrame() }
func (m *C64Machine) Query(path string) (Value, bool) { return m.obs.Query(path) }
func (m *C64Machine) Poke(path string, v Value) bool   { return m.obs.Poke(path, v) }

func (m *C64Machine) LoadROM(name string, data []byte) error {
	switch name {
	case "kernal":
		if len(data) != 8192 {
			return &MediaError{Op: "load_rom", Reason: "KERNAL ROM must be 8KB"}
		}
		m.bus.kernalROM = data
	case "basic":
		if len(data) != 8192 {
			return &MediaError{Op: "load_rom", Reason: "BASIC ROM must be 8KB"}
		}
		m.bus.basicROM = data
	case "char":
		if len(data) != 4096 {
			return &MediaError{Op: "load_rom", Reason: "character ROM must be 4KB"}
		}
		m.bus.charROM = data
	default:
		return &MediaError{Op: "load_rom", Reason: "unknown ROM slot " + name}
	}
	return nil
}

func (m *C64Machine) InsertDisk(data []byte) error {
	_, err := parseDiskImage(data)
	return err
}
func (m *C64Machine) InsertTape(data []byte) error {
	_, err := parseTapeImage(data)
	return err
}

func (m *C64Machine) PressKey(name string)   { m.keys[name] = true }
func (m *C64Machine) ReleaseKey(name string) { delete(m.keys, name) }
func (m *C64Machine) QueueText(text string, atFrame int) {
	for _, ch := range []byte(text) {
		m.queuedText = append(m.queuedText, queuedKey{ch: ch, atFrame: atFrame})
	}
}
func (m *C64Machine) deliverQueuedText() {
	remaining := m.queuedText[:0]
	for _, qk := range m.queuedText {
		if qk.atFrame > m.frameCount {
			remaining = append(remaining, qk)
		}
	}
	m.queuedText = remaining
}
func (m *C64Machine) TakeAudioBuffer() []int16 { return nil }
