package ov7670

import "strconv"

// Pin names a single input line of the parallel interface.
type Pin uint8

const (
	PinVSYNC Pin = iota
	PinHSYNC
	PinPCLK
	PinD7
)

func (p Pin) String() string {
	switch p {
	case PinVSYNC:
		return "vsync"
	case PinHSYNC:
		return "hsync"
	case PinPCLK:
		return "pclk"
	case PinD7:
		return "d7"
	}
	return "pin(" + strconv.Itoa(int(p)) + ")"
}

// Port samples the sensor's parallel output. Each call is one raw read.
// ReadBus returns D0..D7 as wired to the data port; bit 7 is always taken
// from ReadPin(PinD7), so boards that route D7 elsewhere only need to answer
// for that pin.
type Port interface {
	ReadPin(p Pin) bool
	ReadBus() byte
}

// IRQMask masks interrupts for the duration of a capture.
type IRQMask interface {
	Disable() uintptr
	Restore(state uintptr)
}

type noIRQ struct{}

func (noIRQ) Disable() uintptr { return 0 }
func (noIRQ) Restore(uintptr)  {}

// NoIRQMask is used where nothing needs masking (hosts, tests).
var NoIRQMask IRQMask = noIRQ{}

const (
	Width         = 160
	Height        = 120
	BytesPerPixel = 2
	FrameSize     = Width * Height * BytesPerPixel
)

// Frame holds one QVGA RGB565 image, row-major, two bytes per pixel in
// arrival order.
type Frame [FrameSize]byte

// Pixel returns the 16-bit value at (row, col), first byte in the low half.
func (f *Frame) Pixel(row, col int) uint16 {
	i := (row*Width + col) * BytesPerPixel
	return uint16(f[i]) | uint16(f[i+1])<<8
}

// State is the capture state machine position.
type State uint8

const (
	StateIdle State = iota
	StateAwaitFrameStart
	StateAwaitLineStart
	StateSamplePixel
	StateFrameComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitFrameStart:
		return "await_frame_start"
	case StateAwaitLineStart:
		return "await_line_start"
	case StateSamplePixel:
		return "sample_pixel"
	case StateFrameComplete:
		return "frame_complete"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Cursor is the progress of the current capture.
type Cursor struct {
	Line   int
	Column int
	Index  int
}

// CaptureError reports where a bounded capture gave up.
type CaptureError struct {
	State  State
	Pin    Pin
	Cursor Cursor
}

func (e *CaptureError) Error() string {
	return "ov7670: timeout in " + e.State.String() + " waiting on " + e.Pin.String() +
		" (line " + strconv.Itoa(e.Cursor.Line) +
		", col " + strconv.Itoa(e.Cursor.Column) +
		", byte " + strconv.Itoa(e.Cursor.Index) + ")"
}

func (e *CaptureError) Unwrap() error { return ErrTimeout }

// Engine runs the pixel synchronisation state machine.
// SpinLimit bounds each level wait in polls; zero waits forever.
type Engine struct {
	Port      Port
	IRQ       IRQMask
	SpinLimit uint32

	state State
	cur   Cursor
}

// State returns the last state entered.
func (e *Engine) State() State { return e.state }

// Cursor returns the progress of the last capture.
func (e *Engine) Cursor() Cursor { return e.cur }

// Capture fills dst with the next complete frame. Interrupts stay masked
// until it returns.
func (e *Engine) Capture(dst *Frame) error {
	irq := e.IRQ
	if irq == nil {
		irq = NoIRQMask
	}
	st := irq.Disable()
	defer irq.Restore(st)

	e.cur = Cursor{}

	// Frame start is the falling edge of VSYNC.
	e.state = StateAwaitFrameStart
	if !e.waitWhile(PinVSYNC, false) || !e.waitWhile(PinVSYNC, true) {
		return e.timeout(PinVSYNC)
	}

	for y := 0; y < Height; y++ {
		e.state = StateAwaitLineStart
		e.cur.Line = y
		e.cur.Column = 0
		// Skip the first HSYNC pulse; data follows the second one.
		if !e.waitWhile(PinHSYNC, false) ||
			!e.waitWhile(PinHSYNC, true) ||
			!e.waitWhile(PinHSYNC, false) {
			return e.timeout(PinHSYNC)
		}

		e.state = StateSamplePixel
		for x := 0; x < Width; x++ {
			e.cur.Column = x
			for k := 0; k < BytesPerPixel; k++ {
				if !e.waitWhile(PinPCLK, false) {
					return e.timeout(PinPCLK)
				}
				dst[e.cur.Index] = e.sample()
				e.cur.Index++
				if !e.waitWhile(PinPCLK, true) {
					return e.timeout(PinPCLK)
				}
			}
			// Two unsampled clocks per pixel.
			for k := 0; k < 2; k++ {
				if !e.waitWhile(PinPCLK, false) || !e.waitWhile(PinPCLK, true) {
					return e.timeout(PinPCLK)
				}
			}
		}
	}

	e.state = StateFrameComplete
	return nil
}

func (e *Engine) sample() byte {
	b := e.Port.ReadBus() &^ 0x80
	if e.Port.ReadPin(PinD7) {
		b |= 0x80
	}
	return b
}

// waitWhile spins while p reads level. It reports false if SpinLimit polls
// pass without a change.
func (e *Engine) waitWhile(p Pin, level bool) bool {
	if e.SpinLimit == 0 {
		for e.Port.ReadPin(p) == level {
		}
		return true
	}
	for n := e.SpinLimit; n > 0; n-- {
		if e.Port.ReadPin(p) != level {
			return true
		}
	}
	return false
}

func (e *Engine) timeout(p Pin) error {
	return &CaptureError{State: e.state, Pin: p, Cursor: e.cur}
}
