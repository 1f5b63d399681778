// machine_nes.go - wires BUS+CPU+VIDEO+SCHED into a complete NES machine.
// Single-owner hierarchy: NESMachine owns everything outright and nothing
// holds a back-pointer to it.
package retrocore

type NESMachine struct {
	bus   *NESBus
	cpu   *CPU6502
	video *NESVideo
	sched *Scheduler
	mapper Mapper

	keys      map[string]bool
	queuedText []queuedKey
	frameCount int
	maxTicks   int

	obs *Observable
}

type queuedKey struct {
	ch      byte
	atFrame int
}

// NewNESMachine constructs an NES machine from a raw iNES ROM image.
func NewNESMachine(cfg Config, romImage []byte) (*NESMachine, error) {
	prg, chr, mapperID, _, err := parseINES(romImage)
	if err != nil {
		return nil, err
	}
	mapper, err := newMapperFor(mapperID, prg, chr)
	if err != nil {
		return nil, err
	}

	bus := NewNESBus(mapper)
	video := NewNESVideo(bus)
	bus.AttachPPU(video)
	cpu := NewCPU6502(bus)

	m := &NESMachine{bus: bus, cpu: cpu, video: video, mapper: mapper, keys: make(map[string]bool), maxTicks: cfg.maxTicks()}
	m.sched = NewScheduler(bus, cpu, video)
	m.sched.SetNMISource(video.NMIAsserted)
	m.sched.SetIRQSource(func() bool { return false })
	m.buildObservable()
	if cfg.BootShim != nil {
		cfg.BootShim(bus)
	}
	return m, nil
}

func (m *NESMachine) buildObservable() {
	m.obs = NewObservable()
	m.obs.Register("cpu.pc", func() Value { return IntValue(uint64(m.cpu.PC)) }, func(v Value) bool { m.cpu.PC = uint16(v.Uint()); return true })
	m.obs.Register("cpu.a", func() Value { return ByteValue(m.cpu.A) }, func(v Value) bool { m.cpu.A = v.Byte(); return true })
	m.obs.Register("cpu.x", func() Value { return ByteValue(m.cpu.X) }, func(v Value) bool { m.cpu.X = v.Byte(); return true })
	m.obs.Register("cpu.y", func() Value { return ByteValue(m.cpu.Y) }, func(v Value) bool { m.cpu.Y = v.Byte(); return true })
	m.obs.Register("cpu.sp", func() Value { return ByteValue(m.cpu.SP) }, func(v Value) bool { m.cpu.SP = v.Byte(); return true })
	m.obs.Register("cpu.sr", func() Value { return ByteValue(m.cpu.SR) }, func(v Value) bool { m.cpu.SR = v.Byte(); return true })
	m.obs.Register("cpu.cycles", func() Value { return IntValue(m.cpu.Cycles) }, nil)
	m.obs.Register("ppu.scanline", func() Value { return IntValue(uint64(m.video.scanline)) }, nil)
	m.obs.Register("ppu.dot", func() Value { return IntValue(uint64(m.video.dot)) }, nil)
}

func (m *NESMachine) Reset() {
	m.bus.Reset()
	m.mapper.Reset()
	m.video.Reset()
	m.cpu.Reset()
}

func (m *NESMachine) RunFrame() {
	m.deliverQueuedText()
	m.sched.RunFrame(m.maxTicks)
	m.frameCount++
}

func (m *NESMachine) StepInstruction() { m.cpu.StepInstruction() }

func (m *NESMachine) FrameBuffer() []uint32 { return m.video.TakeFrame() }

func (m *NESMachine) Query(path string) (Value, bool) { return m.obs.Query(path) }
func (m *NESMachine) Poke(path string, v Value) bool   { return m.obs.Poke(path, v) }

func (m *NESMachine) LoadROM(name string, data []byte) error {
	prg, chr, mapperID, _, err := parseINES(data)
	if err != nil {
		return err
	}
	mapper, err := newMapperFor(mapperID, prg, chr)
	if err != nil {
		return err
	}
	m.mapper = mapper
	m.bus.mapper = mapper
	return nil
}

func (m *NESMachine) InsertDisk(data []byte) error { return &MediaError{Op: "insert_disk", Reason: "NES has no disk drive"} }
func (m *NESMachine) InsertTape(data []byte) error { return &MediaError{Op: "insert_tape", Reason: "NES has no tape deck"} }

func (m *NESMachine) PressKey(name string)   { m.keys[name] = true }
func (m *NESMachine) ReleaseKey(name string) { delete(m.keys, name) }

func (m *NESMachine) QueueText(text string, atFrame int) {
	for _, ch := range []byte(text) {
		m.queuedText = append(m.queuedText, queuedKey{ch: ch, atFrame: atFrame})
	}
}

func (m *NESMachine) deliverQueuedText() {
	remaining := m.queuedText[:0]
	for _, qk := range m.queuedText {
		if qk.atFrame > m.frameCount {
			remaining = append(remaining, qk)
		}
	}
	m.queuedText = remaining
}

func (m *NESMachine) TakeAudioBuffer() []int16 { return nil }
