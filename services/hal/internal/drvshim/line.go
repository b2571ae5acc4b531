package drvshim

import (
	"camlib-go/drivers/sccb"
	"camlib-go/services/hal/internal/core"
)

// OpenDrain drives a GPIO handle as an open-drain line: released means
// input with pull-up, driven means output low.
type OpenDrain struct {
	h core.GPIOHandle
}

func NewOpenDrain(h core.GPIOHandle) OpenDrain { return OpenDrain{h: h} }

func (l OpenDrain) Release()  { _ = l.h.ConfigureInput(core.PullUp) }
func (l OpenDrain) Drive()    { _ = l.h.ConfigureOutput(false) }
func (l OpenDrain) Get() bool { return l.h.Get() }

var _ sccb.Line = OpenDrain{}
