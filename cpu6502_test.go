package retrocore

import "testing"

// After reset, PC equals the word at the reset vector and SP equals the
// documented initial stack pointer.
func TestCPU6502_ResetVector(t *testing.T) {
	bus := &flatTestBus{}
	bus.setWord(resetVector6502, 0x1234)
	c := NewCPU6502(bus)
	if c.PC != 0x1234 {
		t.Fatalf("PC = %#04x, want %#04x", c.PC, 0x1234)
	}
	if c.SP != 0xFD {
		t.Fatalf("SP = %#02x, want %#02x", c.SP, 0xFD)
	}
}

// PHA then PLA round-trips the accumulator through the stack and leaves
// SP back where it started.
func TestCPU6502_PushPullRoundTrip(t *testing.T) {
	bus := &flatTestBus{}
	c := NewCPU6502(bus)
	c.PC = 0x1000
	c.SP = 0xFF
	bus.mem[0x1000] = 0x48 // PHA
	bus.mem[0x1001] = 0x68 // PLA
	c.A = 0xAB

	c.StepInstruction() // PHA
	if bus.mem[0x0100|0xFF] != 0xAB {
		t.Fatalf("stack byte = %#02x, want 0xAB", bus.mem[0x0100|0xFF])
	}
	if c.SP != 0xFE {
		t.Fatalf("SP after PHA = %#02x, want 0xFE", c.SP)
	}

	c.A = 0 // clobber so PLA must actually restore it
	c.StepInstruction() // PLA
	if c.A != 0xAB {
		t.Fatalf("A after PLA = %#02x, want 0xAB", c.A)
	}
	if c.SP != 0xFF {
		t.Fatalf("SP after PLA = %#02x, want 0xFF", c.SP)
	}
	if c.SR&zeroFlag != 0 {
		t.Fatalf("Z flag set for nonzero A")
	}
	if c.SR&negativeFlag == 0 {
		t.Fatalf("N flag clear for A with top bit set")
	}
}

// A JMP to the current PC produces the same subsequent trace as simply
// continuing execution from that address — register content is unaffected
// by the jump itself.
func TestCPU6502_JMPToSelfIsNoop(t *testing.T) {
	bus := &flatTestBus{}
	c := NewCPU6502(bus)
	c.PC = 0x2000
	bus.mem[0x2000] = 0x4C // JMP abs
	bus.mem[0x2001] = 0x00
	bus.mem[0x2002] = 0x20 // -> $2000
	wantA, wantX := c.A, c.X

	c.StepInstruction()
	if c.PC != 0x2000 {
		t.Fatalf("PC after JMP self = %#04x, want $2000", c.PC)
	}
	if c.A != wantA || c.X != wantX {
		t.Fatalf("JMP mutated registers: A=%#02x X=%#02x", c.A, c.X)
	}
}

// NMI is edge-triggered — a line that is raised, lowered, then raised
// again enters the NMI vector twice.
func TestCPU6502_NMIEdgeTriggered(t *testing.T) {
	bus := &flatTestBus{}
	bus.setWord(nmiVector6502, 0x9000)
	bus.setWord(resetVector6502, 0x1000)
	c := NewCPU6502(bus)
	bus.mem[0x1000] = 0xEA // NOP
	bus.mem[0x9000] = 0xEA // NOP (NMI handler)

	entries := 0
	raiseAndPoll := func(level bool) {
		c.SetNMILine(level)
		c.StepInstruction() // runs the NOP at c.PC, then polls at the boundary
		if c.PC == 0x9000 {
			entries++
		}
	}
	raiseAndPoll(true)
	c.PC = 0x1000 // pretend handler RTI'd back to main code
	raiseAndPoll(false)
	c.PC = 0x1000
	raiseAndPoll(true)

	if entries != 2 {
		t.Fatalf("NMI entries = %d, want 2", entries)
	}
}
