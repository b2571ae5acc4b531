// services/hal/devices/ov7670/builder.go
package ov7670dev

import (
	"context"
	"time"

	"camlib-go/drivers/ov7670"
	"camlib-go/drivers/sccb"
	"camlib-go/errcode"
	"camlib-go/services/hal/internal/core"
	"camlib-go/services/hal/internal/drvshim"
	"camlib-go/types"
	"camlib-go/x/mathx"
	"camlib-go/x/strx"
)

func init() { core.RegisterBuilder("ov7670", builder{}) }

const (
	DefaultClockHz = 12_000_000
	minClockHz     = 10_000_000
	maxClockHz     = 48_000_000
	maxSettleUs    = 50_000
	minSCCBHz      = 10_000
	maxSCCBHz      = 400_000
)

type builder struct{}

func (builder) Build(ctx context.Context, in core.BuilderInput) (core.Device, error) {
	p, ok := in.Params.(types.CameraParams)
	if !ok || p.Camera == "" {
		return nil, errcode.InvalidParams
	}
	if p.Bus == "" && p.SCL == p.SDA {
		return nil, errcode.InvalidParams
	}
	reg := in.Res.Reg

	port, err := reg.ClaimCamera(in.ID, core.ResourceID(p.Camera))
	if err != nil {
		return nil, err
	}

	d := &Device{
		id:   in.ID,
		p:    p,
		reg:  reg,
		pub:  in.Res.Pub,
		port: port,
		dom:  strx.Coalesce(p.Domain, types.DomainVision),
		name: strx.Coalesce(p.Name, in.ID),
		jobs: make(chan jobKind, 1),
	}

	var w ov7670.RegisterWriter
	if p.Bus != "" {
		bus, err := reg.ClaimI2C(in.ID, core.ResourceID(p.Bus))
		if err != nil {
			reg.ReleaseCamera(in.ID, core.ResourceID(p.Camera))
			return nil, err
		}
		w = ov7670.NewTxWriter(bus)
		d.busName = p.Bus
	} else {
		scl, err := reg.ClaimGPIO(in.ID, p.SCL)
		if err != nil {
			reg.ReleaseCamera(in.ID, core.ResourceID(p.Camera))
			return nil, err
		}
		sda, err := reg.ClaimGPIO(in.ID, p.SDA)
		if err != nil {
			reg.ReleaseGPIO(in.ID, p.SCL)
			reg.ReleaseCamera(in.ID, core.ResourceID(p.Camera))
			return nil, err
		}
		hz := p.SCCBHz
		if hz != 0 {
			hz = mathx.Clamp(hz, minSCCBHz, maxSCCBHz)
		}
		b := sccb.New(drvshim.NewOpenDrain(scl), drvshim.NewOpenDrain(sda), sccb.Config{Frequency: hz})
		w = ov7670.NewSCCB(b)
		d.busName = "sccb"
		d.sccbHalf = b.HalfPeriod()
	}
	d.holdsBus = true

	clock := p.ClockHz
	if clock == 0 {
		clock = DefaultClockHz
	}
	clock = mathx.Clamp(clock, minClockHz, maxClockHz)
	d.clockHz = clock

	var settle time.Duration
	if p.SettleUs != 0 {
		settle = time.Duration(mathx.Clamp(p.SettleUs, 1, maxSettleUs)) * time.Microsecond
	}

	cam := drvshim.NewCamera(port)
	d.drv = ov7670.New(w, cam, ov7670.Config{
		Settle:     settle,
		SpinLimit:  p.SpinLimit,
		IRQ:        cam,
		StartClock: func() error { return port.StartClock(clock) },
	})
	return d, nil
}
