// Package ovsim is a deterministic stand-in for an OV7670 on the host.
//
// Sensor produces the parallel-interface timing on a cyclic timeline: every
// read of VSYNC, HSYNC or PCLK advances one tick, and data reads return the
// bus value latched by the last timing read. RegisterFile answers SCCB and I2C
// register writes.
package ovsim

import (
	"camlib-go/drivers/ov7670"
)

// PatternFunc returns the byte the sensor drives for sampled byte k (0 or 1)
// of pixel (row, col).
type PatternFunc func(row, col, k int) byte

// DefaultPattern varies with every coordinate so misplaced bytes show up.
func DefaultPattern(row, col, k int) byte {
	return byte(row*7 + col*3 + k*101 + 1)
}

// Config shapes the generated signal. Zero values select defaults.
type Config struct {
	// Width is the number of ticks each level is held for.
	Width uint64
	// Pattern supplies pixel bytes.
	Pattern PatternFunc
	// SplitD7 routes bit 7 only to the D7 pin; ReadBus reports it inverted.
	SplitD7 bool
}

type sample struct {
	vsync, hsync, pclk bool
	data               byte
}

// Sensor implements ov7670.Port.
type Sensor struct {
	w       uint64
	pattern PatternFunc
	split   bool

	lineLen  uint64
	frameLen uint64

	tick     uint64
	latched  sample
	frozen   bool
	freezeAt uint64
	polls    uint64
}

const cyclesPerLine = ov7670.Width * 4

// NewSensor returns a sensor positioned at the start of a frame.
func NewSensor(cfg Config) *Sensor {
	if cfg.Width == 0 {
		cfg.Width = 1
	}
	if cfg.Pattern == nil {
		cfg.Pattern = DefaultPattern
	}
	w := cfg.Width
	s := &Sensor{w: w, pattern: cfg.Pattern, split: cfg.SplitD7}
	// gap, first pulse, gap, then the data pulse of PCLK cycles
	s.lineLen = 3*w + cyclesPerLine*2*w
	// VSYNC low, VSYNC high, lines, trailing gap
	s.frameLen = 2*w + ov7670.Height*s.lineLen + w
	return s
}

// FrameTicks is the timeline period.
func (s *Sensor) FrameTicks() uint64 { return s.frameLen }

// Tick is the number of timing reads so far.
func (s *Sensor) Tick() uint64 { return s.tick }

// Polls counts every ReadPin call, timing or not.
func (s *Sensor) Polls() uint64 { return s.polls }

// FreezeAt stops the timeline once tick t is reached; all lines then hold
// their level forever.
func (s *Sensor) FreezeAt(t uint64) {
	s.frozen = true
	s.freezeAt = t
}

// Unfreeze resumes the timeline.
func (s *Sensor) Unfreeze() { s.frozen = false }

func (s *Sensor) ReadPin(p ov7670.Pin) bool {
	s.polls++
	switch p {
	case ov7670.PinVSYNC, ov7670.PinHSYNC, ov7670.PinPCLK:
		s.advance()
	case ov7670.PinD7:
		return s.latched.data&0x80 != 0
	default:
		return false
	}
	switch p {
	case ov7670.PinVSYNC:
		return s.latched.vsync
	case ov7670.PinHSYNC:
		return s.latched.hsync
	default:
		return s.latched.pclk
	}
}

func (s *Sensor) ReadBus() byte {
	b := s.latched.data
	if s.split {
		b ^= 0x80
	}
	return b
}

func (s *Sensor) advance() {
	if s.frozen && s.tick >= s.freezeAt {
		return
	}
	s.latched = s.at(s.tick)
	s.tick++
}

func (s *Sensor) at(t uint64) sample {
	w := s.w
	t %= s.frameLen
	switch {
	case t < w:
		return sample{data: 0xff}
	case t < 2*w:
		return sample{vsync: true, data: 0xff}
	}
	t -= 2 * w
	line := t / s.lineLen
	if line >= ov7670.Height {
		return sample{data: 0xff}
	}
	t -= line * s.lineLen
	switch {
	case t < w, t >= 2*w && t < 3*w:
		return sample{data: 0xff}
	case t < 2*w:
		return sample{hsync: true, data: 0xff}
	}
	t -= 3 * w
	cycle := t / (2 * w)
	high := t%(2*w) >= w
	col, k := int(cycle/4), int(cycle%4)
	d := s.pattern(int(line), col, k&1)
	if k >= 2 || !high {
		d = ^d
	}
	return sample{hsync: true, pclk: high, data: d}
}

// Expected returns the frame the sensor would deliver.
func (s *Sensor) Expected() *ov7670.Frame {
	var f ov7670.Frame
	for y := 0; y < ov7670.Height; y++ {
		for x := 0; x < ov7670.Width; x++ {
			i := (y*ov7670.Width + x) * ov7670.BytesPerPixel
			f[i] = s.pattern(y, x, 0)
			f[i+1] = s.pattern(y, x, 1)
		}
	}
	return &f
}
