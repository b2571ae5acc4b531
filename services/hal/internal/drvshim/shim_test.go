package drvshim

import (
	"testing"

	"camlib-go/drivers/ov7670"
	"camlib-go/services/hal/internal/core"
)

type fakeGPIO struct {
	output bool
	level  bool
	pull   core.Pull
}

func (f *fakeGPIO) Number() int { return 4 }
func (f *fakeGPIO) ConfigureInput(p core.Pull) error {
	f.output, f.pull = false, p
	f.level = p == core.PullUp
	return nil
}
func (f *fakeGPIO) ConfigureOutput(initial bool) error {
	f.output, f.level = true, initial
	return nil
}
func (f *fakeGPIO) Set(v bool) { f.level = v }
func (f *fakeGPIO) Get() bool  { return f.level }

func TestOpenDrain(t *testing.T) {
	g := &fakeGPIO{}
	l := NewOpenDrain(g)
	l.Drive()
	if !g.output || l.Get() {
		t.Fatalf("driven line: output=%v level=%v", g.output, g.level)
	}
	l.Release()
	if g.output || g.pull != core.PullUp || !l.Get() {
		t.Fatalf("released line: output=%v pull=%v level=%v", g.output, g.pull, g.level)
	}
}

type fakePort struct {
	lines    [4]bool
	bus      byte
	restored uintptr
}

func (p *fakePort) ReadPin(line uint8) bool    { return p.lines[line] }
func (p *fakePort) ReadBus() byte              { return p.bus }
func (p *fakePort) Disable() uintptr           { return 7 }
func (p *fakePort) Restore(s uintptr)          { p.restored = s }
func (p *fakePort) StartClock(hz uint32) error { return nil }
func (p *fakePort) StopClock()                 {}

func TestCameraPinOrder(t *testing.T) {
	p := &fakePort{bus: 0x5a}
	p.lines[ov7670.PinPCLK] = true
	c := NewCamera(p)
	if !c.ReadPin(ov7670.PinPCLK) || c.ReadPin(ov7670.PinVSYNC) {
		t.Fatal("pin mapping mismatch")
	}
	if c.ReadBus() != 0x5a {
		t.Fatalf("bus %#x", c.ReadBus())
	}
	c.Restore(c.Disable())
	if p.restored != 7 {
		t.Fatalf("restored %d", p.restored)
	}
}
