package drvshim

import (
	"camlib-go/drivers/ov7670"
	"camlib-go/services/hal/internal/core"
)

// Camera adapts a core.CameraPort to the ov7670 port and interrupt mask.
type Camera struct {
	p core.CameraPort
}

func NewCamera(p core.CameraPort) Camera { return Camera{p: p} }

func (c Camera) ReadPin(pin ov7670.Pin) bool { return c.p.ReadPin(uint8(pin)) }
func (c Camera) ReadBus() byte               { return c.p.ReadBus() }
func (c Camera) Disable() uintptr            { return c.p.Disable() }
func (c Camera) Restore(state uintptr)       { c.p.Restore(state) }

var (
	_ ov7670.Port    = Camera{}
	_ ov7670.IRQMask = Camera{}
)
