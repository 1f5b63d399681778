// sched.go - the master clock: one tick loop driving VIDEO, then CPU (if
// not stalled or denied by DMA), then the remaining peripherals, with a
// fixed deterministic sub-component order each master tick.
package retrocore

// TickableCPU is the narrow surface SCHED needs from any CPU core.
type TickableCPU interface {
	Tick()
	SetIRQLine(bool)
	SetNMILine(bool)
}

// TickableVideo is the narrow surface SCHED needs from any VIDEO chip.
type TickableVideo interface {
	Tick()
	FrameReady() bool
}

// DMAUnit is a bus-slot-seeking autonomous fetcher consulted before the
// CPU advances.
type DMAUnit interface {
	NeedsBusSlot() bool
	ExecuteOneSlot(bus Bus)
}

// Peripheral is any other per-tick component (timers, CIAs, audio): ticked
// after CPU.
type Peripheral interface {
	Tick()
}

// dotsPerCPUCycle is the representative 8x dot-clock-to-CPU-cycle ratio
// for an 8-bit raster system.
const dotsPerCPUCycle = 8

// Scheduler drives one machine's tick loop. NMI/IRQ sources are polled
// each master tick via the nmiSource/irqSource callbacks the owning
// machine wires up (edge-detected with a previous-level latch for NMI).
type Scheduler struct {
	bus   Bus
	cpu   TickableCPU
	video TickableVideo
	dma   []DMAUnit
	peripherals []Peripheral

	nmiSource func() bool
	irqSource func() bool

	nmiPrev bool

	frameDone bool
}

func NewScheduler(bus Bus, cpu TickableCPU, video TickableVideo) *Scheduler {
	return &Scheduler{bus: bus, cpu: cpu, video: video}
}

func (s *Scheduler) AddDMA(d DMAUnit)               { s.dma = append(s.dma, d) }
func (s *Scheduler) AddPeripheral(p Peripheral)      { s.peripherals = append(s.peripherals, p) }
func (s *Scheduler) SetNMISource(f func() bool)      { s.nmiSource = f }
func (s *Scheduler) SetIRQSource(f func() bool)      { s.irqSource = f }

// stallReporter, when the video chip implements it, lets the chip report
// "CPU shares the bus this dot".
type stallReporter interface {
	StallCPU() bool
}

// Tick runs exactly one master tick: VIDEO's dotsPerCPUCycle dots, then
// DMA arbitration, then (if not denied) one CPU cycle, then peripherals.
func (s *Scheduler) Tick() {
	stalled := false
	for i := 0; i < dotsPerCPUCycle; i++ {
		s.video.Tick()
		if sr, ok := s.video.(stallReporter); ok && sr.StallCPU() {
			stalled = true
		}
	}

	dmaTookSlot := false
	for _, d := range s.dma {
		if d.NeedsBusSlot() {
			d.ExecuteOneSlot(s.bus)
			dmaTookSlot = true
			break
		}
	}

	if !stalled && !dmaTookSlot {
		s.cpu.Tick()
	}

	for _, p := range s.peripherals {
		p.Tick()
	}

	if s.nmiSource != nil {
		level := s.nmiSource()
		edge := level && !s.nmiPrev
		s.nmiPrev = level
		if edge {
			s.cpu.SetNMILine(true)
		} else if !level {
			s.cpu.SetNMILine(false)
		}
	}
	if s.irqSource != nil {
		s.cpu.SetIRQLine(s.irqSource())
	}

	if s.video.FrameReady() {
		s.frameDone = true
	}
}

// RunFrame ticks until VIDEO signals end-of-frame, then clears the flag —
// the host-facing frame-pump entry point.
func (s *Scheduler) RunFrame(maxTicks int) {
	s.frameDone = false
	for i := 0; i < maxTicks && !s.frameDone; i++ {
		s.Tick()
	}
}
