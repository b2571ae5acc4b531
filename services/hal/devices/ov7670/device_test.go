//go:build !rp2040

package ov7670dev

import (
	"context"
	"testing"
	"time"

	"camlib-go/errcode"
	"camlib-go/services/hal/internal/core"
	"camlib-go/services/hal/internal/provider"
	"camlib-go/services/hal/internal/provider/setups"
	"camlib-go/types"
)

type chanEmitter chan core.Event

func (c chanEmitter) Emit(ev core.Event) bool {
	select {
	case c <- ev:
		return true
	default:
		return false
	}
}

func build(t *testing.T, reg *provider.HostRegistry, p types.CameraParams) (*Device, chanEmitter) {
	t.Helper()
	ev := make(chanEmitter, 8)
	d, err := builder{}.Build(context.Background(), core.BuilderInput{
		ID: "cam0", Type: "ov7670", Params: p,
		Res: core.Resources{Reg: reg, Pub: ev},
	})
	if err != nil {
		t.Fatal(err)
	}
	return d.(*Device), ev
}

func next(t *testing.T, ev chanEmitter) core.Event {
	t.Helper()
	select {
	case e := <-ev:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
		return core.Event{}
	}
}

func TestBuildRejectsBadParams(t *testing.T) {
	cases := []any{
		nil,
		types.CameraParams{},
		types.CameraParams{Camera: "dvp0", SCL: 3, SDA: 3},
	}
	for _, p := range cases {
		if _, err := (builder{}).Build(context.Background(), core.BuilderInput{ID: "x", Params: p}); err != errcode.InvalidParams {
			t.Fatalf("params %#v: err=%v", p, err)
		}
	}
}

func TestBuildReleasesCameraOnBusError(t *testing.T) {
	reg := provider.NewHostRegistry(setups.SelectedPlan)
	_, err := builder{}.Build(context.Background(), core.BuilderInput{
		ID: "cam0", Params: types.CameraParams{Camera: "dvp0", Bus: "i2c7"},
		Res: core.Resources{Reg: reg},
	})
	if err != errcode.UnknownBus {
		t.Fatalf("err=%v", err)
	}
	if reg.PinOwner(10) != "" {
		t.Fatal("camera pins still held")
	}
}

func TestClockClampedAndBusReleased(t *testing.T) {
	reg := provider.NewHostRegistry(setups.SelectedPlan)
	d, ev := build(t, reg, types.CameraParams{
		Camera: "dvp0", Bus: "i2c0", ClockHz: 100_000_000, SettleUs: 1, ReleaseBus: true,
	})
	if err := d.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	if e := next(t, ev); e.EventTag != "ready" {
		t.Fatalf("event %+v", e)
	}
	if got := reg.Cameras["dvp0"].ClockHz(); got != maxClockHz {
		t.Fatalf("clock %d, want %d", got, maxClockHz)
	}
	if reg.I2CUsers("i2c0") != 0 {
		t.Fatal("bus still held after init")
	}
	if r, _ := d.Control(d.a, "configure", nil); r.OK || r.Error != errcode.Unsupported {
		t.Fatalf("configure after release: %+v", r)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if reg.Cameras["dvp0"].ClockHz() != 0 || reg.PinOwner(10) != "" {
		t.Fatal("camera not released on close")
	}
}

func TestCaptureTimeoutCounts(t *testing.T) {
	reg := provider.NewHostRegistry(setups.SelectedPlan)
	d, ev := build(t, reg, types.CameraParams{Camera: "dvp0", Bus: "i2c0", SettleUs: 1, SpinLimit: 100})
	if r, _ := d.Control(d.a, "capture", nil); r.Error != errcode.NotReady {
		t.Fatalf("capture before init: %+v", r)
	}
	if err := d.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	next(t, ev) // ready
	defer d.Close()

	reg.Cameras["dvp0"].Sensor.FreezeAt(0)
	if r, _ := d.Control(d.a, "capture", nil); !r.OK {
		t.Fatalf("capture: %+v", r)
	}
	e := next(t, ev)
	if e.Err != string(errcode.Timeout) {
		t.Fatalf("event %+v, want timeout", e)
	}
	if s := d.Stats(); s.Timeouts != 1 || s.Captures != 0 {
		t.Fatalf("stats %+v", s)
	}
	if r, _ := d.Control(d.a, "read", nil); r.Error != errcode.NotReady {
		t.Fatalf("read without frame: %+v", r)
	}
}

func TestSCCBRateClamped(t *testing.T) {
	cases := []struct {
		hz   uint32
		half time.Duration
	}{
		{0, 5 * time.Microsecond},
		{1, 50 * time.Microsecond},
		{100_000, 5 * time.Microsecond},
		{1 << 31, 1250 * time.Nanosecond},
	}
	for _, tc := range cases {
		reg := provider.NewHostRegistry(setups.SelectedPlan)
		d, _ := build(t, reg, types.CameraParams{Camera: "dvp0", SCL: 2, SDA: 3, SCCBHz: tc.hz})
		if d.sccbHalf != tc.half {
			t.Fatalf("sccb_hz %d: half period %v, want %v", tc.hz, d.sccbHalf, tc.half)
		}
	}
}
