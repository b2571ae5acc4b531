package ov7670_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"camlib-go/drivers/ov7670"
	"camlib-go/drivers/ov7670/ovsim"
)

type countingIRQ struct {
	disabled, restored int
	state              uintptr
}

func (c *countingIRQ) Disable() uintptr  { c.disabled++; return 0xabc }
func (c *countingIRQ) Restore(s uintptr) { c.restored++; c.state = s }

func diffFrames(t *testing.T, got, want *ov7670.Frame) {
	t.Helper()
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("byte %d (row %d col %d half %d) = %#02x, want %#02x",
				i, i/2/ov7670.Width, (i/2)%ov7670.Width, i%2, got[i], want[i])
		}
	}
}

func TestCaptureMatchesPattern(t *testing.T) {
	sim := ovsim.NewSensor(ovsim.Config{})
	irq := &countingIRQ{}
	e := &ov7670.Engine{Port: sim, IRQ: irq}
	var f ov7670.Frame
	if err := e.Capture(&f); err != nil {
		t.Fatal(err)
	}
	diffFrames(t, &f, sim.Expected())
	if e.State() != ov7670.StateFrameComplete {
		t.Fatalf("state=%v", e.State())
	}
	if c := e.Cursor(); c.Index != ov7670.FrameSize {
		t.Fatalf("cursor index %d", c.Index)
	}
	if irq.disabled != 1 || irq.restored != 1 || irq.state != 0xabc {
		t.Fatalf("irq disable=%d restore=%d state=%#x", irq.disabled, irq.restored, irq.state)
	}
}

func TestCaptureOffsets(t *testing.T) {
	// Encode the coordinates into the pixel so each offset is checked directly.
	sim := ovsim.NewSensor(ovsim.Config{Pattern: func(row, col, k int) byte {
		if k == 0 {
			return byte(row)
		}
		return byte(col)
	}})
	e := &ov7670.Engine{Port: sim}
	var f ov7670.Frame
	if err := e.Capture(&f); err != nil {
		t.Fatal(err)
	}
	for row := 0; row < ov7670.Height; row++ {
		for col := 0; col < ov7670.Width; col++ {
			i := 2 * (row*ov7670.Width + col)
			if f[i] != byte(row) || f[i+1] != byte(col) {
				t.Fatalf("(%d,%d) at %d = %d,%d", row, col, i, f[i], f[i+1])
			}
			if p := f.Pixel(row, col); p != uint16(row)|uint16(col)<<8 {
				t.Fatalf("Pixel(%d,%d)=%#04x", row, col, p)
			}
		}
	}
}

func TestCaptureIsRepeatable(t *testing.T) {
	sim := ovsim.NewSensor(ovsim.Config{})
	e := &ov7670.Engine{Port: sim}
	var a, b ov7670.Frame
	if err := e.Capture(&a); err != nil {
		t.Fatal(err)
	}
	if err := e.Capture(&b); err != nil {
		t.Fatal(err)
	}
	diffFrames(t, &b, &a)
}

func TestCaptureLevelWidths(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 4; i++ {
		w := uint64(1 + rng.Intn(4))
		sim := ovsim.NewSensor(ovsim.Config{Width: w})
		// Start somewhere in the middle of a frame.
		skip := rng.Intn(int(sim.FrameTicks()))
		for j := 0; j < skip; j++ {
			sim.ReadPin(ov7670.PinPCLK)
		}
		e := &ov7670.Engine{Port: sim}
		var f ov7670.Frame
		if err := e.Capture(&f); err != nil {
			t.Fatalf("width %d: %v", w, err)
		}
		diffFrames(t, &f, sim.Expected())
	}
}

func TestCaptureSplitD7(t *testing.T) {
	sim := ovsim.NewSensor(ovsim.Config{SplitD7: true, Pattern: func(row, col, k int) byte {
		return 0x80 | byte(row+col+k)
	}})
	e := &ov7670.Engine{Port: sim}
	var f ov7670.Frame
	if err := e.Capture(&f); err != nil {
		t.Fatal(err)
	}
	diffFrames(t, &f, sim.Expected())
}

func TestCaptureBoundedTimeout(t *testing.T) {
	cases := []struct {
		name   string
		freeze uint64
		state  ov7670.State
		pin    ov7670.Pin
	}{
		{"no vsync", 0, ov7670.StateAwaitFrameStart, ov7670.PinVSYNC},
		// Tick 3 is inside the first line gap: HSYNC stays low.
		{"no hsync", 3, ov7670.StateAwaitLineStart, ov7670.PinHSYNC},
		// Tick 8 is inside line 0's data pulse.
		{"no pclk", 8, ov7670.StateSamplePixel, ov7670.PinPCLK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sim := ovsim.NewSensor(ovsim.Config{})
			sim.FreezeAt(tc.freeze)
			irq := &countingIRQ{}
			e := &ov7670.Engine{Port: sim, IRQ: irq, SpinLimit: 1000}
			var f ov7670.Frame
			err := e.Capture(&f)
			if !errors.Is(err, ov7670.ErrTimeout) {
				t.Fatalf("err=%v, want timeout", err)
			}
			var ce *ov7670.CaptureError
			if !errors.As(err, &ce) {
				t.Fatalf("err=%T", err)
			}
			if ce.State != tc.state || ce.Pin != tc.pin {
				t.Fatalf("stuck in %v on %v, want %v on %v", ce.State, ce.Pin, tc.state, tc.pin)
			}
			if irq.restored != irq.disabled || irq.restored != 1 {
				t.Fatalf("irq not restored: disable=%d restore=%d", irq.disabled, irq.restored)
			}
		})
	}
}

func TestCaptureBoundedSucceedsOnLiveSensor(t *testing.T) {
	sim := ovsim.NewSensor(ovsim.Config{Width: 2})
	e := &ov7670.Engine{Port: sim, SpinLimit: 64}
	var f ov7670.Frame
	if err := e.Capture(&f); err != nil {
		t.Fatal(err)
	}
	diffFrames(t, &f, sim.Expected())
}

func TestDeviceInitializeAndCapture(t *testing.T) {
	rf := ovsim.NewRegisterFile()
	sim := ovsim.NewSensor(ovsim.Config{})
	clock := false
	d := ov7670.New(ov7670.NewSCCB(rf), sim, ov7670.Config{
		Settle:     time.Nanosecond,
		StartClock: func() error { clock = true; return nil },
	})
	if err := d.Initialize(); err != nil {
		t.Fatal(err)
	}
	if !clock {
		t.Fatal("clock not started")
	}
	if got := rf.Writes(); len(got) != len(ov7670.DefaultRegisters) {
		t.Fatalf("%d writes", len(got))
	}
	if rf.Reg(0x12) != 0x14 || rf.Reg(0x40) != 0xd0 {
		t.Fatalf("COM7=%#x COM15=%#x", rf.Reg(0x12), rf.Reg(0x40))
	}
	if err := d.Capture(); err != nil {
		t.Fatal(err)
	}
	diffFrames(t, d.Frame(), sim.Expected())
	if d.Captures() != 1 {
		t.Fatalf("captures=%d", d.Captures())
	}
}

func TestDeviceFrameIsOneBuffer(t *testing.T) {
	sim := ovsim.NewSensor(ovsim.Config{})
	d := ov7670.New(ov7670.NewSCCB(ovsim.NewRegisterFile()), sim, ov7670.Config{})
	view := d.Frame()
	if err := d.Capture(); err != nil {
		t.Fatal(err)
	}
	kept := *view
	if err := d.Capture(); err != nil {
		t.Fatal(err)
	}
	if d.Frame() != view {
		t.Fatal("Frame moved between captures")
	}
	diffFrames(t, &kept, sim.Expected())
	diffFrames(t, d.Frame(), sim.Expected())
}

func TestDeviceInitializeBusFailure(t *testing.T) {
	rf := ovsim.NewRegisterFile()
	rf.NackAt = 5
	d := ov7670.New(ov7670.NewSCCB(rf), ovsim.NewSensor(ovsim.Config{}), ov7670.Config{Settle: time.Nanosecond})
	err := d.Initialize()
	var ce *ov7670.ConfigError
	if !errors.As(err, &ce) || ce.Index != 5 {
		t.Fatalf("err=%v", err)
	}
	if n := len(rf.Writes()); n != 5 {
		t.Fatalf("%d writes accepted", n)
	}
	if rf.Attempts() != 6 {
		t.Fatalf("attempts=%d", rf.Attempts())
	}
}

func TestDeviceInitializeOverI2C(t *testing.T) {
	rf := ovsim.NewRegisterFile()
	rf.Absent = true
	d := ov7670.New(ov7670.NewTxWriter(rf), ovsim.NewSensor(ovsim.Config{}), ov7670.Config{Settle: time.Nanosecond})
	err := d.Initialize()
	var ce *ov7670.ConfigError
	if !errors.As(err, &ce) || ce.Index != 0 {
		t.Fatalf("err=%v, want bus failure at 0", err)
	}
	rf.Absent = false
	if err := d.Initialize(); err != nil {
		t.Fatal(err)
	}
}

func TestDeviceClockFailure(t *testing.T) {
	rf := ovsim.NewRegisterFile()
	boom := errors.New("no pwm")
	d := ov7670.New(ov7670.NewSCCB(rf), nil, ov7670.Config{StartClock: func() error { return boom }})
	if err := d.Initialize(); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if rf.Attempts() != 0 {
		t.Fatal("registers written without a clock")
	}
}
