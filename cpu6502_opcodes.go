// cpu6502_opcodes.go - the 6502 opcode table: one opEntry6502 per legal
// opcode, each wired to an addressing mode and an exec body. Undocumented
// opcodes are out of scope; the table routes them to a two-cycle
// NOP-like placeholder instead of a panic so a stray illegal byte in
// test ROMs doesn't stop the machine.
package retrocore

func brDummy(c *CPU6502) {}

var opcodeTable6502 [256]opEntry6502

func reg6502(op byte, name string, mode addrMode, cycles int, exec func(*CPU6502)) {
	opcodeTable6502[op] = opEntry6502{name: name, mode: mode, cycle: cycles, exec: exec}
}

func init() {
	for i := range opcodeTable6502 {
		opcodeTable6502[i] = opEntry6502{name: "NOP", mode: amImplied, cycle: 2, exec: brDummy}
	}

	// Load/store
	reg6502(0xA9, "LDA", amImmediate, 2, execLDA)
	reg6502(0xA5, "LDA", amZeroPage, 3, execLDA)
	reg6502(0xB5, "LDA", amZeroPageX, 4, execLDA)
	reg6502(0xAD, "LDA", amAbsolute, 4, execLDA)
	reg6502(0xBD, "LDA", amAbsoluteX, 4, execLDA)
	reg6502(0xB9, "LDA", amAbsoluteY, 4, execLDA)
	reg6502(0xA1, "LDA", amIndirectX, 6, execLDA)
	reg6502(0xB1, "LDA", amIndirectY, 5, execLDA)

	reg6502(0xA2, "LDX", amImmediate, 2, execLDX)
	reg6502(0xA6, "LDX", amZeroPage, 3, execLDX)
	reg6502(0xB6, "LDX", amZeroPageY, 4, execLDX)
	reg6502(0xAE, "LDX", amAbsolute, 4, execLDX)
	reg6502(0xBE, "LDX", amAbsoluteY, 4, execLDX)

	reg6502(0xA0, "LDY", amImmediate, 2, execLDY)
	reg6502(0xA4, "LDY", amZeroPage, 3, execLDY)
	reg6502(0xB4, "LDY", amZeroPageX, 4, execLDY)
	reg6502(0xAC, "LDY", amAbsolute, 4, execLDY)
	reg6502(0xBC, "LDY", amAbsoluteX, 4, execLDY)

	reg6502(0x85, "STA", amZeroPage, 3, execSTA)
	reg6502(0x95, "STA", amZeroPageX, 4, execSTA)
	reg6502(0x8D, "STA", amAbsolute, 4, execSTA)
	reg6502(0x9D, "STA", amAbsoluteX, 5, execSTA)
	reg6502(0x99, "STA", amAbsoluteY, 5, execSTA)
	reg6502(0x81, "STA", amIndirectX, 6, execSTA)
	reg6502(0x91, "STA", amIndirectY, 6, execSTA)

	reg6502(0x86, "STX", amZeroPage, 3, execSTX)
	reg6502(0x96, "STX", amZeroPageY, 4, execSTX)
	reg6502(0x8E, "STX", amAbsolute, 4, execSTX)

	reg6502(0x84, "STY", amZeroPage, 3, execSTY)
	reg6502(0x94, "STY", amZeroPageX, 4, execSTY)
	reg6502(0x8C, "STY", amAbsolute, 4, execSTY)

	// Transfers
	reg6502(0xAA, "TAX", amImplied, 2, func(c *CPU6502) { c.X = c.A; c.setNZ(c.X) })
	reg6502(0xA8, "TAY", amImplied, 2, func(c *CPU6502) { c.Y = c.A; c.setNZ(c.Y) })
	reg6502(0x8A, "TXA", amImplied, 2, func(c *CPU6502) { c.A = c.X; c.setNZ(c.A) })
	reg6502(0x98, "TYA", amImplied, 2, func(c *CPU6502) { c.A = c.Y; c.setNZ(c.A) })
	reg6502(0xBA, "TSX", amImplied, 2, func(c *CPU6502) { c.X = c.SP; c.setNZ(c.X) })
	reg6502(0x9A, "TXS", amImplied, 2, func(c *CPU6502) { c.SP = c.X })

	// Stack
	reg6502(0x48, "PHA", amImplied, 3, func(c *CPU6502) { c.PushByte(c.A) })
	reg6502(0x08, "PHP", amImplied, 3, func(c *CPU6502) { c.PushByte(c.SR | breakFlag | unusedFlag) })
	reg6502(0x68, "PLA", amImplied, 4, func(c *CPU6502) { c.A = c.PopByte(); c.setNZ(c.A) })
	reg6502(0x28, "PLP", amImplied, 4, func(c *CPU6502) {
		c.SR = (c.PopByte() &^ breakFlag) | unusedFlag
	})

	// Arithmetic
	reg6502(0x69, "ADC", amImmediate, 2, execADC)
	reg6502(0x65, "ADC", amZeroPage, 3, execADC)
	reg6502(0x75, "ADC", amZeroPageX, 4, execADC)
	reg6502(0x6D, "ADC", amAbsolute, 4, execADC)
	reg6502(0x7D, "ADC", amAbsoluteX, 4, execADC)
	reg6502(0x79, "ADC", amAbsoluteY, 4, execADC)
	reg6502(0x61, "ADC", amIndirectX, 6, execADC)
	reg6502(0x71, "ADC", amIndirectY, 5, execADC)

	reg6502(0xE9, "SBC", amImmediate, 2, execSBC)
	reg6502(0xE5, "SBC", amZeroPage, 3, execSBC)
	reg6502(0xF5, "SBC", amZeroPageX, 4, execSBC)
	reg6502(0xED, "SBC", amAbsolute, 4, execSBC)
	reg6502(0xFD, "SBC", amAbsoluteX, 4, execSBC)
	reg6502(0xF9, "SBC", amAbsoluteY, 4, execSBC)
	reg6502(0xE1, "SBC", amIndirectX, 6, execSBC)
	reg6502(0xF1, "SBC", amIndirectY, 5, execSBC)

	reg6502(0xC9, "CMP", amImmediate, 2, execCMP)
	reg6502(0xC5, "CMP", amZeroPage, 3, execCMP)
	reg6502(0xD5, "CMP", amZeroPageX, 4, execCMP)
	reg6502(0xCD, "CMP", amAbsolute, 4, execCMP)
	reg6502(0xDD, "CMP", amAbsoluteX, 4, execCMP)
	reg6502(0xD9, "CMP", amAbsoluteY, 4, execCMP)
	reg6502(0xC1, "CMP", amIndirectX, 6, execCMP)
	reg6502(0xD1, "CMP", amIndirectY, 5, execCMP)

	reg6502(0xE0, "CPX", amImmediate, 2, execCPX)
	reg6502(0xE4, "CPX", amZeroPage, 3, execCPX)
	reg6502(0xEC, "CPX", amAbsolute, 4, execCPX)

	reg6502(0xC0, "CPY", amImmediate, 2, execCPY)
	reg6502(0xC4, "CPY", amZeroPage, 3, execCPY)
	reg6502(0xCC, "CPY", amAbsolute, 4, execCPY)

	// Logic
	reg6502(0x29, "AND", amImmediate, 2, execAND)
	reg6502(0x25, "AND", amZeroPage, 3, execAND)
	reg6502(0x35, "AND", amZeroPageX, 4, execAND)
	reg6502(0x2D, "AND", amAbsolute, 4, execAND)
	reg6502(0x3D, "AND", amAbsoluteX, 4, execAND)
	reg6502(0x39, "AND", amAbsoluteY, 4, execAND)
	reg6502(0x21, "AND", amIndirectX, 6, execAND)
	reg6502(0x31, "AND", amIndirectY, 5, execAND)

	reg6502(0x09, "ORA", amImmediate, 2, execORA)
	reg6502(0x05, "ORA", amZeroPage, 3, execORA)
	reg6502(0x15, "ORA", amZeroPageX, 4, execORA)
	reg6502(0x0D, "ORA", amAbsolute, 4, execORA)
	reg6502(0x1D, "ORA", amAbsoluteX, 4, execORA)
	reg6502(0x19, "ORA", amAbsoluteY, 4, execORA)
	reg6502(0x01, "ORA", amIndirectX, 6, execORA)
	reg6502(0x11, "ORA", amIndirectY, 5, execORA)

	reg6502(0x49, "EOR", amImmediate, 2, execEOR)
	reg6502(0x45, "EOR", amZeroPage, 3, execEOR)
	reg6502(0x55, "EOR", amZeroPageX, 4, execEOR)
	reg6502(0x4D, "EOR", amAbsolute, 4, execEOR)
	reg6502(0x5D, "EOR", amAbsoluteX, 4, execEOR)
	reg6502(0x59, "EOR", amAbsoluteY, 4, execEOR)
	reg6502(0x41, "EOR", amIndirectX, 6, execEOR)
	reg6502(0x51, "EOR", amIndirectY, 5, execEOR)

	reg6502(0x24, "BIT", amZeroPage, 3, execBIT)
	reg6502(0x2C, "BIT", amAbsolute, 4, execBIT)

	// Shifts/rotates
	reg6502(0x0A, "ASL", amAccumulator, 2, execASL)
	reg6502(0x06, "ASL", amZeroPage, 5, execASL)
	reg6502(0x16, "ASL", amZeroPageX, 6, execASL)
	reg6502(0x0E, "ASL", amAbsolute, 6, execASL)
	reg6502(0x1E, "ASL", amAbsoluteX, 7, execASL)

	reg6502(0x4A, "LSR", amAccumulator, 2, execLSR)
	reg6502(0x46, "LSR", amZeroPage, 5, execLSR)
	reg6502(0x56, "LSR", amZeroPageX, 6, execLSR)
	reg6502(0x4E, "LSR", amAbsolute, 6, execLSR)
	reg6502(0x5E, "LSR", amAbsoluteX, 7, execLSR)

	reg6502(0x2A, "ROL", amAccumulator, 2, execROL)
	reg6502(0x26, "ROL", amZeroPage, 5, execROL)
	reg6502(0x36, "ROL", amZeroPageX, 6, execROL)
	reg6502(0x2E, "ROL", amAbsolute, 6, execROL)
	reg6502(0x3E, "ROL", amAbsoluteX, 7, execROL)

	reg6502(0x6A, "ROR", amAccumulator, 2, execROR)
	reg6502(0x66, "ROR", amZeroPage, 5, execROR)
	reg6502(0x76, "ROR", amZeroPageX, 6, execROR)
	reg6502(0x6E, "ROR", amAbsolute, 6, execROR)
	reg6502(0x7E, "ROR", amAbsoluteX, 7, execROR)

	// Inc/dec
	reg6502(0xE6, "INC", amZeroPage, 5, execINC)
	reg6502(0xF6, "INC", amZeroPageX, 6, execINC)
	reg6502(0xEE, "INC", amAbsolute, 6, execINC)
	reg6502(0xFE, "INC", amAbsoluteX, 7, execINC)
	reg6502(0xC6, "DEC", amZeroPage, 5, execDEC)
	reg6502(0xD6, "DEC", amZeroPageX, 6, execDEC)
	reg6502(0xCE, "DEC", amAbsolute, 6, execDEC)
	reg6502(0xDE, "DEC", amAbsoluteX, 7, execDEC)
	reg6502(0xE8, "INX", amImplied, 2, func(c *CPU6502) { c.X++; c.setNZ(c.X) })
	reg6502(0xC8, "INY", amImplied, 2, func(c *CPU6502) { c.Y++; c.setNZ(c.Y) })
	reg6502(0xCA, "DEX", amImplied, 2, func(c *CPU6502) { c.X--; c.setNZ(c.X) })
	reg6502(0x88, "DEY", amImplied, 2, func(c *CPU6502) { c.Y--; c.setNZ(c.Y) })

	// Branches
	reg6502(0x90, "BCC", amRelative, 2, func(c *CPU6502) { c.branch(c.SR&carryFlag == 0) })
	reg6502(0xB0, "BCS", amRelative, 2, func(c *CPU6502) { c.branch(c.SR&carryFlag != 0) })
	reg6502(0xF0, "BEQ", amRelative, 2, func(c *CPU6502) { c.branch(c.SR&zeroFlag != 0) })
	reg6502(0xD0, "BNE", amRelative, 2, func(c *CPU6502) { c.branch(c.SR&zeroFlag == 0) })
	reg6502(0x30, "BMI", amRelative, 2, func(c *CPU6502) { c.branch(c.SR&negativeFlag != 0) })
	reg6502(0x10, "BPL", amRelative, 2, func(c *CPU6502) { c.branch(c.SR&negativeFlag == 0) })
	reg6502(0x50, "BVC", amRelative, 2, func(c *CPU6502) { c.branch(c.SR&overflowFlag == 0) })
	reg6502(0x70, "BVS", amRelative, 2, func(c *CPU6502) { c.branch(c.SR&overflowFlag != 0) })

	// Jumps/calls
	reg6502(0x4C, "JMP", amAbsolute, 3, func(c *CPU6502) { c.PC = c.effAddr })
	reg6502(0x6C, "JMP", amIndirect, 5, func(c *CPU6502) { c.PC = c.effAddr })
	reg6502(0x20, "JSR", amAbsolute, 6, execJSR)
	reg6502(0x60, "RTS", amImplied, 6, execRTS)
	reg6502(0x00, "BRK", amImplied, 7, execBRK)
	reg6502(0x40, "RTI", amImplied, 6, execRTI)

	// Flags
	reg6502(0x18, "CLC", amImplied, 2, func(c *CPU6502) { c.SR &^= carryFlag })
	reg6502(0x38, "SEC", amImplied, 2, func(c *CPU6502) { c.SR |= carryFlag })
	reg6502(0x58, "CLI", amImplied, 2, func(c *CPU6502) { c.SR &^= interruptFlag })
	reg6502(0x78, "SEI", amImplied, 2, func(c *CPU6502) { c.SR |= interruptFlag })
	reg6502(0xB8, "CLV", amImplied, 2, func(c *CPU6502) { c.SR &^= overflowFlag })
	reg6502(0xD8, "CLD", amImplied, 2, func(c *CPU6502) { c.SR &^= decimalFlag })
	reg6502(0xF8, "SED", amImplied, 2, func(c *CPU6502) { c.SR |= decimalFlag })

	reg6502(0xEA, "NOP", amImplied, 2, brDummy)
}

func execLDA(c *CPU6502) { c.A = c.getOperand(); c.setNZ(c.A) }
func execLDX(c *CPU6502) { c.X = c.getOperand(); c.setNZ(c.X) }
func execLDY(c *CPU6502) { c.Y = c.getOperand(); c.setNZ(c.Y) }
func execSTA(c *CPU6502) { c.write(c.effAddr, c.A) }
func execSTX(c *CPU6502) { c.write(c.effAddr, c.X) }
func execSTY(c *CPU6502) { c.write(c.effAddr, c.Y) }

func execADC(c *CPU6502) {
	v := c.getOperand()
	carry := uint16(0)
	if c.SR&carryFlag != 0 {
		carry = 1
	}
	sum := uint16(c.A) + uint16(v) + carry
	overflow := (^(uint16(c.A) ^ uint16(v)) & (uint16(c.A) ^ sum) & 0x80) != 0
	c.A = byte(sum)
	c.SR &^= carryFlag | overflowFlag
	if sum > 0xFF {
		c.SR |= carryFlag
	}
	if overflow {
		c.SR |= overflowFlag
	}
	c.setNZ(c.A)
}

func execSBC(c *CPU6502) {
	v := ^c.getOperand()
	carry := uint16(0)
	if c.SR&carryFlag != 0 {
		carry = 1
	}
	sum := uint16(c.A) + uint16(v) + carry
	overflow := (^(uint16(c.A) ^ uint16(v)) & (uint16(c.A) ^ sum) & 0x80) != 0
	c.A = byte(sum)
	c.SR &^= carryFlag | overflowFlag
	if sum > 0xFF {
		c.SR |= carryFlag
	}
	if overflow {
		c.SR |= overflowFlag
	}
	c.setNZ(c.A)
}

func compare6502(c *CPU6502, reg byte) {
	v := c.getOperand()
	result := reg - v
	c.SR &^= carryFlag | zeroFlag | negativeFlag
	if reg >= v {
		c.SR |= carryFlag
	}
	if reg == v {
		c.SR |= zeroFlag
	}
	if result&0x80 != 0 {
		c.SR |= negativeFlag
	}
}
func execCMP(c *CPU6502) { compare6502(c, c.A) }
func execCPX(c *CPU6502) { compare6502(c, c.X) }
func execCPY(c *CPU6502) { compare6502(c, c.Y) }

func execAND(c *CPU6502) { c.A &= c.getOperand(); c.setNZ(c.A) }
func execORA(c *CPU6502) { c.A |= c.getOperand(); c.setNZ(c.A) }
func execEOR(c *CPU6502) { c.A ^= c.getOperand(); c.setNZ(c.A) }

func execBIT(c *CPU6502) {
	v := c.getOperand()
	c.SR &^= zeroFlag | negativeFlag | overflowFlag
	if c.A&v == 0 {
		c.SR |= zeroFlag
	}
	c.SR |= v & (negativeFlag | overflowFlag)
}

func execASL(c *CPU6502) {
	v := c.getOperand()
	c.SR &^= carryFlag
	if v&0x80 != 0 {
		c.SR |= carryFlag
	}
	v <<= 1
	c.putResult(v)
	c.setNZ(v)
}
func execLSR(c *CPU6502) {
	v := c.getOperand()
	c.SR &^= carryFlag
	if v&0x01 != 0 {
		c.SR |= carryFlag
	}
	v >>= 1
	c.putResult(v)
	c.setNZ(v)
}
func execROL(c *CPU6502) {
	v := c.getOperand()
	oldCarry := c.SR & carryFlag
	c.SR &^= carryFlag
	if v&0x80 != 0 {
		c.SR |= carryFlag
	}
	v = v<<1 | oldCarry
	c.putResult(v)
	c.setNZ(v)
}
func execROR(c *CPU6502) {
	v := c.getOperand()
	oldCarry := (c.SR & carryFlag) << 7
	c.SR &^= carryFlag
	if v&0x01 != 0 {
		c.SR |= carryFlag
	}
	v = v>>1 | oldCarry
	c.putResult(v)
	c.setNZ(v)
}

func execINC(c *CPU6502) { v := c.getOperand() + 1; c.putResult(v); c.setNZ(v) }
func execDEC(c *CPU6502) { v := c.getOperand() - 1; c.putResult(v); c.setNZ(v) }

// branch applies the relative offset only when taken, and marks branchTake
// so tests can observe whether the branch was taken. The taken-branch and
// page-cross dummy reads happen inline here rather than as further queued
// micro-ops, so they add no Tick() of their own; only bus wait cycles they
// report are charged.
func (c *CPU6502) branch(cond bool) {
	c.branchTake = cond
	if !cond {
		return
	}
	old := c.PC
	c.PC = uint16(int32(c.PC) + int32(c.relOffset))
	if old&0xFF00 != c.PC&0xFF00 {
		c.read(old) // page-cross dummy read
	}
	c.read(old) // dummy read, always issued when the branch is taken
}

func execJSR(c *CPU6502) {
	ret := c.PC - 1
	c.PushByte(byte(ret >> 8))
	c.PushByte(byte(ret))
	c.PC = c.effAddr
}
func execRTS(c *CPU6502) {
	lo := c.PopByte()
	hi := c.PopByte()
	c.PC = uint16(hi)<<8 | uint16(lo)
	c.PC++
}
func execBRK(c *CPU6502) {
	c.PC++
	c.enterInterrupt(irqVector6502, true)
}
func execRTI(c *CPU6502) {
	c.SR = (c.PopByte() &^ breakFlag) | unusedFlag
	lo := c.PopByte()
	hi := c.PopByte()
	c.PC = uint16(hi)<<8 | uint16(lo)
}
