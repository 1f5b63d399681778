// video_nes.go - dot-accurate NES-style PPU: 341 dots per scanline,
// 8-dot background fetch groups, dot-257 sprite evaluation. Written in a
// mutex-guarded-struct, memory-mapped-register idiom consistent with the
// rest of the tree's chip models.
package retrocore

import "sync"

const (
	nesDotsPerScanline = 341
	nesScanlinesNTSC   = 262
	nesVisibleScanline = 240
	nesPrerenderLine   = 261
	nesVBlankLine      = 241
)

type spriteSlot struct {
	y, tile, attr, x byte
	index            byte
	patternLo        byte
	patternHi        byte
}

// NESVideo implements TickableVideo for the NES machine: background pipeline,
// OAM sprite evaluation (including the REQUIRED 8-sprite hardware bug),
// scroll registers, and the CPU-visible register file.
type NESVideo struct {
	mu sync.Mutex

	bus Bus // PPU's own address space: pattern tables, nametables, palette

	scanline int
	dot      int
	frameOdd bool

	// background shift pipeline
	bgShiftLo, bgShiftHi       uint16
	bgAttrShiftLo, bgAttrShiftHi uint16
	ntLatch, atLatch, ptLoLatch, ptHiLatch byte

	// scroll state
	v, t  uint16
	fineX byte
	w     bool

	// CPU-visible registers
	ctrl, mask, status byte
	oamAddr            byte
	oam                [256]byte
	readBuffer         byte

	// sprite evaluation
	secondaryOAM   [8]spriteSlot
	secondaryCount int
	spriteZeroNext bool
	spriteZeroLine bool
	evalN, evalM   int
	overflowLatch  bool

	// raster/NMI
	compareScanline int
	rasterEnabled   bool
	nmiOutput       bool
	nmiOccurred     bool

	stallCPU     bool
	frameDone    bool
	lastFetched  byte // floating-bus / snow-effect latch

	frame [256 * 240]uint32
	palette [32]byte
}

func NewNESVideo(bus Bus) *NESVideo {
	return &NESVideo{bus: bus}
}

// ContentionAt implements Contention for NESBus: the bus is shared during
// the background/sprite fetch windows (dots 1-256 and 257-320). It does
// not take v.mu: on the C64 the chip's own fetches go through C64Bus,
// which calls back here while Tick already holds the lock.
func (v *NESVideo) ContentionAt(addr uint32) int {
	if v.stallCPU {
		return 1
	}
	return 0
}

// Tick advances exactly one dot.
func (v *NESVideo) Tick() {
	v.mu.Lock()
	defer v.mu.Unlock()

	visible := v.scanline < nesVisibleScanline
	prerender := v.scanline == nesPrerenderLine

	if visible || prerender {
		v.runBackgroundPipeline()
		if v.dot == 257 {
			v.evaluateSprites()
		}
		if v.dot >= 257 && v.dot <= 320 {
			v.stallCPU = v.mask&0x18 != 0
		} else {
			v.stallCPU = v.dot >= 1 && v.dot <= 256 && v.mask&0x18 != 0
		}
		if prerender && v.dot >= 280 && v.dot <= 304 {
			v.v = (v.v &^ 0x7BE0) | (v.t & 0x7BE0)
		}
	} else {
		v.stallCPU = false
	}

	if visible && v.dot >= 1 && v.dot <= 256 {
		v.renderPixel()
	}

	if v.scanline == nesVBlankLine && v.dot == 1 {
		v.status |= 0x80
		v.nmiOccurred = true
		v.frameDone = true
	}
	if prerender && v.dot == 1 {
		v.status &^= 0x80 | 0x40 | 0x20
		v.nmiOccurred = false
	}

	if v.rasterEnabled && v.dot == 1 && v.scanline == v.compareScanline {
		// raster-match output observed by SCHED via RasterMatch()
	}

	v.dot++
	if v.dot >= nesDotsPerScanline {
		v.dot = 0
		v.scanline++
		if v.scanline > nesPrerenderLine {
			v.scanline = 0
			v.frameOdd = !v.frameOdd
		}
	}
}

// runBackgroundPipeline performs the four-phase 8-dot fetch sequence and
// shifts the pipeline registers every dot.
func (v *NESVideo) runBackgroundPipeline() {
	if (v.dot >= 1 && v.dot <= 256) || (v.dot >= 321 && v.dot <= 336) {
		switch v.dot % 8 {
		case 1:
			v.loadShiftRegisters()
			addr := 0x2000 | (v.v & 0x0FFF)
			v.ntLatch = v.fetchPPU(addr)
		case 3:
			addr := 0x23C0 | (v.v & 0x0C00) | ((v.v >> 4) & 0x38) | ((v.v >> 2) & 0x07)
			at := v.fetchPPU(addr)
			shift := ((v.v >> 4) & 4) | (v.v & 2)
			v.atLatch = (at >> shift) & 0x03
		case 5:
			base := uint16(0)
			if v.ctrl&0x10 != 0 {
				base = 0x1000
			}
			fineY := (v.v >> 12) & 0x07
			addr := base + uint16(v.ntLatch)*16 + fineY
			v.ptLoLatch = v.fetchPPU(addr)
		case 7:
			base := uint16(0)
			if v.ctrl&0x10 != 0 {
				base = 0x1000
			}
			fineY := (v.v >> 12) & 0x07
			addr := base + uint16(v.ntLatch)*16 + fineY + 8
			v.ptHiLatch = v.fetchPPU(addr)
		case 0:
			v.incrementCoarseX()
		}
	}
	if v.dot == 256 {
		v.incrementFineY()
	}
	if v.dot == 257 {
		v.v = (v.v &^ 0x041F) | (v.t & 0x041F)
	}
	if v.dot >= 1 && v.dot <= 336 {
		v.bgShiftLo <<= 1
		v.bgShiftHi <<= 1
		v.bgAttrShiftLo = v.bgAttrShiftLo<<1 | uint16(v.atLatch&1)
		v.bgAttrShiftHi = v.bgAttrShiftHi<<1 | uint16((v.atLatch>>1)&1)
	}
}

func (v *NESVideo) loadShiftRegisters() {
	v.bgShiftLo = (v.bgShiftLo & 0xFF00) | uint16(v.ptLoLatch)
	v.bgShiftHi = (v.bgShiftHi & 0xFF00) | uint16(v.ptHiLatch)
}

func (v *NESVideo) incrementCoarseX() {
	if v.v&0x001F == 31 {
		v.v &^= 0x001F
		v.v ^= 0x0400
	} else {
		v.v++
	}
}
func (v *NESVideo) incrementFineY() {
	if v.v&0x7000 != 0x7000 {
		v.v += 0x1000
	} else {
		v.v &^= 0x7000
		y := (v.v & 0x03E0) >> 5
		switch y {
		case 29:
			y = 0
			v.v ^= 0x0800
		case 31:
			y = 0
		default:
			y++
		}
		v.v = (v.v &^ 0x03E0) | (y << 5)
	}
}

func (v *NESVideo) fetchPPU(addr uint16) byte {
	b, _ := v.bus.Read(uint32(addr))
	v.lastFetched = b
	return b
}

// evaluateSprites reproduces the overflow-search hardware bug found on
// real silicon: after 8 matches, n and m both advance on a miss, so the
// comparison byte walks off Y into attribute/X/tile bytes.
func (v *NESVideo) evaluateSprites() {
	nextLine := v.scanline + 1
	height := 8
	if v.ctrl&0x20 != 0 {
		height = 16
	}
	v.secondaryCount = 0
	v.spriteZeroLine = false
	n, m := 0, 0
	for n < 64 {
		y := int(v.oam[n*4])
		if v.secondaryCount < 8 {
			if nextLine >= y && nextLine < y+height {
				slot := spriteSlot{
					y:     v.oam[n*4],
					tile:  v.oam[n*4+1],
					attr:  v.oam[n*4+2],
					x:     v.oam[n*4+3],
					index: byte(n),
				}
				v.fetchSpritePattern(&slot, nextLine, height)
				v.secondaryOAM[v.secondaryCount] = slot
				v.secondaryCount++
				if n == 0 {
					v.spriteZeroLine = true
				}
			}
			n++
			continue
		}
		// Buggy overflow search: read oam[n*4+m] as if it were Y.
		probe := int(v.oam[n*4+m])
		if nextLine >= probe && nextLine < probe+height {
			v.status |= 0x20
			m++
			if m > 3 {
				m = 0
				n++
			}
		} else {
			m++
			if m > 3 {
				m = 0
			}
			n++
		}
		if n >= 64 {
			break
		}
	}
}

// fetchSpritePattern performs the dot-257-320 sprite tile fetch for one
// matched sprite, honoring 8x16 sprite mode's tile-number-selects-bank rule.
func (v *NESVideo) fetchSpritePattern(s *spriteSlot, line, height int) {
	row := line - int(s.y)
	if s.attr&0x80 != 0 {
		row = height - 1 - row
	}
	var base uint16
	var tile byte
	if height == 16 {
		base = uint16(s.tile&0x01) * 0x1000
		tile = s.tile &^ 0x01
		if row >= 8 {
			tile++
			row -= 8
		}
	} else {
		if v.ctrl&0x08 != 0 {
			base = 0x1000
		}
		tile = s.tile
	}
	addr := base + uint16(tile)*16 + uint16(row)
	s.patternLo = v.fetchPPU(addr)
	s.patternHi = v.fetchPPU(addr + 8)
}

func (v *NESVideo) renderPixel() {
	x := v.dot - 1
	bgPixel := byte(0)
	bgOpaque := false
	if v.mask&0x08 != 0 {
		shift := uint(15 - v.fineX)
		lo := byte((v.bgShiftLo >> shift) & 1)
		hi := byte((v.bgShiftHi >> shift) & 1)
		bgPixel = hi<<1 | lo
		bgOpaque = bgPixel != 0
	}

	spritePixel := byte(0)
	spriteOpaque := false
	spritePriority := false
	isSpriteZero := false
	if v.mask&0x10 != 0 {
		for i := 0; i < v.secondaryCount; i++ {
			s := v.secondaryOAM[i]
			if x < int(s.x) || x >= int(s.x)+8 {
				continue
			}
			col := x - int(s.x)
			if s.attr&0x40 != 0 {
				col = 7 - col
			}
			lo := (s.patternLo >> uint(7-col)) & 1
			hi := (s.patternHi >> uint(7-col)) & 1
			px := hi<<1 | lo
			if px == 0 {
				continue
			}
			spritePixel = px | (s.attr&0x03)<<2
			spriteOpaque = true
			spritePriority = s.attr&0x20 != 0
			isSpriteZero = s.index == 0
			break
		}
	}

	if isSpriteZero && bgOpaque && spriteOpaque && x != 255 {
		v.status |= 0x40
	}

	var palIndex byte
	switch {
	case !bgOpaque && !spriteOpaque:
		palIndex = v.palette[0]
	case !bgOpaque && spriteOpaque:
		palIndex = v.palette[0x10+spritePixel]
	case bgOpaque && !spriteOpaque:
		palIndex = v.palette[bgPixel]
	default:
		if spritePriority {
			palIndex = v.palette[bgPixel]
		} else {
			palIndex = v.palette[0x10+spritePixel]
		}
	}
	if v.mask&0x01 != 0 {
		palIndex &= 0x30
	}
	v.frame[v.scanline*256+x] = nesRGB(palIndex, v.mask&0xE0)
}

// nesRGB resolves a 6-bit palette index plus emphasis bits to an ARGB
// pixel; emphasis attenuates the two non-emphasized channels to ~13/16.
func nesRGB(index byte, emphasis byte) uint32 {
	rgb := nesPaletteTable[index&0x3F]
	r := byte(rgb >> 16)
	g := byte(rgb >> 8)
	b := byte(rgb)
	atten := func(v byte) byte { return byte(uint16(v) * 13 / 16) }
	if emphasis&0x20 != 0 { // emphasize red: attenuate G,B
		g, b = atten(g), atten(b)
	}
	if emphasis&0x40 != 0 { // emphasize green: attenuate R,B
		r, b = atten(r), atten(b)
	}
	if emphasis&0x80 != 0 { // emphasize blue: attenuate R,G
		r, g = atten(r), atten(g)
	}
	return 0xFF000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// CPURead/CPUWrite implement ppuRegisterPort for NESBus's $2000-$2007
// window.
func (v *NESVideo) CPURead(reg int) byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch reg {
	case 2:
		r := v.status | (v.lastFetched & 0x1F)
		v.status &^= 0x80
		v.w = false
		return r
	case 4:
		return v.oam[v.oamAddr]
	case 7:
		addr := v.v & 0x3FFF
		var result byte
		if addr >= 0x3F00 {
			result = v.readPalette(addr)
			v.readBuffer = v.fetchPPU(addr - 0x1000)
		} else {
			result = v.readBuffer
			v.readBuffer = v.fetchPPU(addr)
		}
		v.advanceV()
		v.snowCorrupt(result)
		return result
	default:
		return v.lastFetched
	}
}

func (v *NESVideo) CPUWrite(reg int, val byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastFetched = val
	switch reg {
	case 0:
		v.ctrl = val
		v.t = (v.t &^ 0x0C00) | uint16(val&0x03)<<10
		v.nmiOutput = val&0x80 != 0
	case 1:
		v.mask = val
	case 3:
		v.oamAddr = val
	case 4:
		v.oam[v.oamAddr] = val
		v.oamAddr++
	case 5:
		if !v.w {
			v.t = (v.t &^ 0x001F) | uint16(val>>3)
			v.fineX = val & 0x07
		} else {
			v.t = (v.t &^ 0x73E0) | uint16(val&0x07)<<12 | uint16(val&0xF8)<<2
		}
		v.w = !v.w
	case 6:
		if !v.w {
			v.t = (v.t &^ 0x7F00) | uint16(val&0x3F)<<8
		} else {
			v.t = (v.t &^ 0x00FF) | uint16(val)
			v.v = v.t
		}
		v.w = !v.w
	case 7:
		addr := v.v & 0x3FFF
		if addr >= 0x3F00 {
			v.writePalette(addr, val)
		} else {
			v.bus.Write(uint32(addr), val)
		}
		v.advanceV()
	}
}

// snowCorrupt models the shared-bus "snow" bug: a CPU read that lands
// during an active background-fetch slot collides with the pipeline's own
// nametable fetch, so the byte the CPU just read gets latched in place of
// the real nametable byte and corrupts the next tile drawn from it.
func (v *NESVideo) snowCorrupt(cpuByte byte) {
	visible := v.scanline < nesVisibleScanline
	prerender := v.scanline == nesPrerenderLine
	inFetchWindow := (v.dot >= 1 && v.dot <= 256) || (v.dot >= 321 && v.dot <= 336)
	if (visible || prerender) && inFetchWindow && v.stallCPU {
		v.ntLatch = cpuByte
	}
}

func (v *NESVideo) advanceV() {
	if v.ctrl&0x04 != 0 {
		v.v += 32
	} else {
		v.v++
	}
}

func (v *NESVideo) readPalette(addr uint16) byte {
	i := addr & 0x1F
	if i%4 == 0 {
		i &= 0x0F
	}
	return v.palette[i]
}
func (v *NESVideo) writePalette(addr uint16, val byte) {
	i := addr & 0x1F
	if i%4 == 0 {
		i &= 0x0F
	}
	v.palette[i] = val & 0x3F
}

// NMIAsserted / RasterMatch are SCHED's interrupt-routing surface.
func (v *NESVideo) NMIAsserted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.nmiOutput && v.nmiOccurred
}
func (v *NESVideo) RasterMatch() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rasterEnabled && v.scanline == v.compareScanline && v.dot == 1
}
func (v *NESVideo) SetCompareScanline(line int, enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.compareScanline = line
	v.rasterEnabled = enabled
}

// FrameReady/TakeFrame implement the host-facing framebuffer handoff.
func (v *NESVideo) FrameReady() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frameDone
}
func (v *NESVideo) TakeFrame() []uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frameDone = false
	out := make([]uint32, len(v.frame))
	copy(out, v.frame[:])
	return out
}

// StallCPU implements sched.go's stallReporter: true while the background
// or sprite fetch pipeline is actively using the bus this dot.
func (v *NESVideo) StallCPU() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stallCPU
}

func (v *NESVideo) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	*v = NESVideo{bus: v.bus}
}
