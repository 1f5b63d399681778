package retrocore

import "testing"

func TestNewC64Machine_RejectsWrongSizedROMs(t *testing.T) {
	if _, err := NewC64Machine(Config{KernalROM: make([]byte, 100)}); err == nil {
		t.Fatal("expected a construction error for a wrong-sized KERNAL ROM")
	}
	if _, err := NewC64Machine(Config{BasicROM: make([]byte, 100)}); err == nil {
		t.Fatal("expected a construction error for a wrong-sized BASIC ROM")
	}
}

func TestNewC64Machine_BootShimInvokedOnce(t *testing.T) {
	calls := 0
	var sawBus Bus
	cfg := Config{BootShim: func(b Bus) { calls++; sawBus = b }}
	m, err := NewC64Machine(cfg)
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("BootShim called %d times, want 1", calls)
	}
	if sawBus != m.bus {
		t.Fatal("BootShim should receive the machine's own bus")
	}
}

func TestC64Machine_MaxTicksHonorsConfig(t *testing.T) {
	m, err := NewC64Machine(Config{MaxTicksPerFrame: 1234})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	if m.maxTicks != 1234 {
		t.Fatalf("maxTicks = %d, want 1234", m.maxTicks)
	}
}

func TestC64Machine_MaxTicksDefaultsWhenUnset(t *testing.T) {
	m, err := NewC64Machine(Config{})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	if m.maxTicks != DefaultMaxTicksPerFrame {
		t.Fatalf("maxTicks = %d, want default %d", m.maxTicks, DefaultMaxTicksPerFrame)
	}
}

// Query/Poke round-trips through the memory.0xNNNN paths buildObservable
// registers at 4KB granularity.
func TestC64Machine_MemoryObservableRoundTrip(t *testing.T) {
	m, err := NewC64Machine(Config{})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	if !m.Poke("memory.0x0400", ByteValue(0x42)) {
		t.Fatal("Poke on a registered memory path should succeed")
	}
	v, ok := m.Query("memory.0x0400")
	if !ok {
		t.Fatal("Query should find a just-poked memory path")
	}
	if v.Byte() != 0x42 {
		t.Fatalf("queried byte = %#02x, want 0x42", v.Byte())
	}
}

func TestC64Machine_LoadROMValidatesSize(t *testing.T) {
	m, err := NewC64Machine(Config{})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	if err := m.LoadROM("kernal", make([]byte, 10)); err == nil {
		t.Fatal("expected a MediaError for a wrong-sized KERNAL ROM")
	}
	if err := m.LoadROM("kernal", make([]byte, 8192)); err != nil {
		t.Fatalf("unexpected error loading a correctly-sized KERNAL ROM: %v", err)
	}
	if err := m.LoadROM("nonexistent", nil); err == nil {
		t.Fatal("expected a MediaError for an unknown ROM slot")
	}
}

// Queued text delivery removes entries at or before the current frame and
// keeps entries scheduled for a later frame.
func TestC64Machine_QueuedTextDeliveryTiming(t *testing.T) {
	m, err := NewC64Machine(Config{})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	m.QueueText("A", 0)
	m.QueueText("B", 5)
	m.deliverQueuedText()
	if len(m.queuedText) != 1 || m.queuedText[0].ch != 'B' {
		t.Fatalf("queuedText after delivery at frame 0 = %+v, want only the frame-5 entry", m.queuedText)
	}
}

// RunFrame advances the tick loop and terminates within maxTicks even with
// no ROM content loaded (an all-BRK/zero memory image still halts on the
// scheduler's tick budget rather than spinning forever).
func TestC64Machine_RunFrameTerminates(t *testing.T) {
	m, err := NewC64Machine(Config{MaxTicksPerFrame: 100})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	m.RunFrame()
	if m.frameCount != 1 {
		t.Fatalf("frameCount = %d, want 1 after one RunFrame call", m.frameCount)
	}
}
