package ov7670dev

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"camlib-go/drivers/ov7670"
	"camlib-go/errcode"
	"camlib-go/services/hal/internal/core"
	"camlib-go/types"
)

// closeWait bounds how long Close waits for a capture in progress.
const closeWait = 500 * time.Millisecond

type jobKind uint8

const (
	jobConfigure jobKind = iota + 1
	jobCapture
)

type Device struct {
	id       string
	p        types.CameraParams
	busName  string
	clockHz  uint32
	sccbHalf time.Duration

	reg  core.ResourceRegistry
	pub  core.EventEmitter
	port core.CameraPort
	drv  *ov7670.Device

	dom  string
	name string
	a    core.CapAddr

	// Worker state. holdsBus is only touched by Build, the worker and
	// Close after the worker has stopped.
	holdsBus bool
	jobs     chan jobKind
	cancel   context.CancelFunc
	done     chan struct{}

	configured atomic.Bool
	timeouts   atomic.Uint32
	lastMs     atomic.Uint32

	mu   sync.Mutex
	last types.CameraFrame
	have bool
}

func (d *Device) ID() string { return d.id }

func (d *Device) Capabilities() []core.CapabilitySpec {
	return []core.CapabilitySpec{{
		Domain: d.dom,
		Kind:   types.KindCamera,
		Name:   d.name,
		Info: types.Info{
			SchemaVersion: 1,
			Driver:        "ov7670",
			Detail: types.CameraInfo{
				Sensor:    "ov7670",
				Camera:    d.p.Camera,
				Bus:       d.busName,
				Width:     ov7670.Width,
				Height:    ov7670.Height,
				Format:    "rgb565",
				Registers: len(ov7670.DefaultRegisters),
			},
		},
	}}
}

// Init starts the worker and queues sensor configuration. It does not wait
// for the register table to be written.
func (d *Device) Init(ctx context.Context) error {
	d.a = core.CapAddr{Domain: d.dom, Kind: types.KindCamera, Name: d.name}

	wctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.jobs <- jobConfigure
	go d.run(wctx)
	return nil
}

func (d *Device) Close() error {
	if d.cancel != nil {
		d.cancel()
		select {
		case <-d.done:
		case <-time.After(closeWait):
			println("[ov7670]", d.id, "capture still running at close")
			return errcode.Busy
		}
	}
	d.port.StopClock()
	d.releaseBus()
	d.reg.ReleaseCamera(d.id, core.ResourceID(d.p.Camera))
	return nil
}

func (d *Device) Control(_ core.CapAddr, verb string, _ any) (core.EnqueueResult, error) {
	switch verb {
	case "capture":
		if !d.configured.Load() {
			return core.EnqueueResult{OK: false, Error: errcode.NotReady}, nil
		}
		return d.enqueue(jobCapture), nil
	case "configure":
		if d.p.ReleaseBus && d.configured.Load() {
			// Bus already handed back.
			return core.EnqueueResult{OK: false, Error: errcode.Unsupported}, nil
		}
		return d.enqueue(jobConfigure), nil
	case "read":
		d.mu.Lock()
		f, ok := d.last, d.have
		d.mu.Unlock()
		if !ok {
			return core.EnqueueResult{OK: false, Error: errcode.NotReady}, nil
		}
		_ = d.pub.Emit(core.Event{Addr: d.a, Payload: f, TS: f.TS})
		return core.EnqueueResult{OK: true}, nil
	case "stats":
		_ = d.pub.Emit(core.Event{Addr: d.a, EventTag: "stats", Payload: d.Stats()})
		return core.EnqueueResult{OK: true}, nil
	default:
		return core.EnqueueResult{OK: false, Error: errcode.Unsupported}, nil
	}
}

// Stats is a snapshot of the capture counters.
func (d *Device) Stats() types.CaptureStats {
	d.mu.Lock()
	n := d.last.Seq
	d.mu.Unlock()
	return types.CaptureStats{
		Captures:   n,
		Timeouts:   d.timeouts.Load(),
		LastMs:     d.lastMs.Load(),
		Configured: d.configured.Load(),
	}
}

func (d *Device) enqueue(k jobKind) core.EnqueueResult {
	select {
	case d.jobs <- k:
		return core.EnqueueResult{OK: true}
	default:
		return core.EnqueueResult{OK: false, Error: errcode.Busy}
	}
}

func (d *Device) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case k := <-d.jobs:
			switch k {
			case jobConfigure:
				d.configure()
			case jobCapture:
				d.capture()
			}
		}
	}
}

func (d *Device) configure() {
	if !d.holdsBus {
		return
	}
	d.configured.Store(false)
	if err := d.drv.Initialize(); err != nil {
		println("[ov7670]", d.id, "init failed:", err.Error())
		_ = d.pub.Emit(core.Event{Addr: d.a, Err: string(errcode.MapDriverErr(err))})
		return
	}
	d.configured.Store(true)
	if d.p.ReleaseBus {
		d.releaseBus()
	}
	_ = d.pub.Emit(core.Event{Addr: d.a, EventTag: "ready"})
}

func (d *Device) capture() {
	t0 := time.Now()
	err := d.drv.Capture()
	d.lastMs.Store(uint32(time.Since(t0) / time.Millisecond))
	if err != nil {
		d.timeouts.Add(1)
		_ = d.pub.Emit(core.Event{Addr: d.a, Err: string(errcode.MapDriverErr(err))})
		return
	}

	// Subscribers keep Data; the driver buffer is refilled by the next capture.
	data := make([]byte, ov7670.FrameSize)
	copy(data, d.drv.Frame()[:])
	f := types.CameraFrame{
		Seq:    d.drv.Captures(),
		Width:  ov7670.Width,
		Height: ov7670.Height,
		Format: "rgb565",
		TS:     time.Now().UnixMilli(),
		Data:   data,
	}
	d.mu.Lock()
	d.last, d.have = f, true
	d.mu.Unlock()
	_ = d.pub.Emit(core.Event{Addr: d.a, Payload: f, TS: f.TS})
}

func (d *Device) releaseBus() {
	if !d.holdsBus {
		return
	}
	d.holdsBus = false
	if d.p.Bus != "" {
		d.reg.ReleaseI2C(d.id, core.ResourceID(d.p.Bus))
		return
	}
	d.reg.ReleaseGPIO(d.id, d.p.SCL)
	d.reg.ReleaseGPIO(d.id, d.p.SDA)
}
