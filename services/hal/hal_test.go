//go:build !rp2040

package hal

import (
	"bytes"
	"context"
	"testing"
	"time"

	"camlib-go/bus"
	"camlib-go/drivers/ov7670"
	"camlib-go/services/hal/internal/core"
	"camlib-go/services/hal/internal/provider"
	"camlib-go/services/hal/internal/provider/setups"
	"camlib-go/types"
)

func camTopic(tail ...any) bus.Topic {
	return bus.T("hal", "cap", types.DomainVision, string(types.KindCamera), "cam0").Append(tail...)
}

type harness struct {
	t   *testing.T
	reg *provider.HostRegistry
	ui  *bus.Connection
}

func start(t *testing.T) *harness {
	t.Helper()
	b := bus.NewBus(16)
	halConn := b.NewConnection("hal")
	ui := b.NewConnection("ui")
	reg := provider.NewHostRegistry(setups.SelectedPlan)

	state := ui.Subscribe(bus.T("hal", "state"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		run(ctx, halConn, core.Resources{Reg: reg}, core.HALConfig{})
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// The loop is listening once it reports idle.
	waitPayload[types.HALState](t, state, func(s types.HALState) bool { return s.Level == "idle" })
	ui.Unsubscribe(state)
	return &harness{t: t, reg: reg, ui: ui}
}

func (h *harness) configure(p types.CameraParams) {
	h.ui.Publish(h.ui.NewMessage(bus.T("config", "hal"), types.HALConfig{
		Devices: []types.HALDevice{{ID: "cam0", Type: "ov7670", Params: p}},
	}, true))
}

func (h *harness) control(verb string, payload any) any {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rep, err := h.ui.RequestWait(ctx, h.ui.NewMessage(camTopic("control", verb), payload, false))
	if err != nil {
		h.t.Fatalf("%s: %v", verb, err)
	}
	return rep.Payload
}

func waitPayload[T any](t *testing.T, sub *bus.Subscription, ok func(T) bool) T {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case m := <-sub.Channel():
			if v, isT := m.Payload.(T); isT && ok(v) {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out on %v", sub.Topic())
			return zero
		}
	}
}

func wantError(t *testing.T, got any, code string) {
	t.Helper()
	e, ok := got.(types.ErrorReply)
	if !ok || e.Error != code {
		t.Fatalf("reply %#v, want error %q", got, code)
	}
}

func wantOK(t *testing.T, got any) {
	t.Helper()
	if r, ok := got.(types.OKReply); !ok || !r.OK {
		t.Fatalf("reply %#v, want ok", got)
	}
}

func hostParams() types.CameraParams {
	return types.CameraParams{Camera: "dvp0", Bus: "i2c0", SettleUs: 1, SpinLimit: 1 << 16}
}

func TestControlBeforeConfig(t *testing.T) {
	h := start(t)
	wantError(t, h.control("capture", nil), "hal_not_ready")
}

func TestConfigureAndCapture(t *testing.T) {
	h := start(t)
	ready := h.ui.Subscribe(camTopic("event", "ready"))
	values := h.ui.Subscribe(camTopic("value"))
	info := h.ui.Subscribe(camTopic("info"))

	h.configure(hostParams())

	ci := waitPayload[types.Info](t, info, func(types.Info) bool { return true })
	if d, ok := ci.Detail.(types.CameraInfo); !ok || d.Width != 160 || d.Height != 120 || d.Registers != 122 {
		t.Fatalf("info %#v", ci)
	}

	select {
	case <-ready.Channel():
	case <-time.After(5 * time.Second):
		t.Fatal("no ready event")
	}

	writes := h.reg.Chips["i2c0"].Writes()
	if len(writes) != len(ov7670.DefaultRegisters) {
		t.Fatalf("%d register writes", len(writes))
	}
	for i, e := range ov7670.DefaultRegisters {
		if writes[i] != e {
			t.Fatalf("write %d = %+v, want %+v", i, writes[i], e)
		}
	}
	cam := h.reg.Cameras["dvp0"]
	if cam.ClockHz() != 12_000_000 {
		t.Fatalf("xclk %d", cam.ClockHz())
	}

	wantOK(t, h.control("capture", nil))
	f := waitPayload[types.CameraFrame](t, values, func(types.CameraFrame) bool { return true })
	if f.Seq != 1 || f.Format != "rgb565" || len(f.Data) != ov7670.FrameSize {
		t.Fatalf("frame seq=%d format=%s len=%d", f.Seq, f.Format, len(f.Data))
	}
	if !bytes.Equal(f.Data, cam.Sensor.Expected()[:]) {
		t.Fatal("frame data does not match the sensor pattern")
	}
	if cam.Masked() {
		t.Fatal("interrupts left masked")
	}

	stats := h.ui.Subscribe(camTopic("event", "stats"))
	wantOK(t, h.control("stats", nil))
	s := waitPayload[types.CaptureStats](t, stats, func(types.CaptureStats) bool { return true })
	if s.Captures != 1 || !s.Configured || s.Timeouts != 0 {
		t.Fatalf("stats %+v", s)
	}

	// read re-publishes the last frame.
	wantOK(t, h.control("read", nil))
	f = waitPayload[types.CameraFrame](t, values, func(types.CameraFrame) bool { return true })
	if f.Seq != 1 {
		t.Fatalf("read seq %d", f.Seq)
	}

	wantError(t, h.control("zoom", nil), "unsupported")
}

func TestPublishedFrameOutlivesNextCapture(t *testing.T) {
	h := start(t)
	ready := h.ui.Subscribe(camTopic("event", "ready"))
	values := h.ui.Subscribe(camTopic("value"))
	h.configure(hostParams())
	select {
	case <-ready.Channel():
	case <-time.After(5 * time.Second):
		t.Fatal("no ready event")
	}
	want := h.reg.Cameras["dvp0"].Sensor.Expected()

	wantOK(t, h.control("capture", nil))
	f1 := waitPayload[types.CameraFrame](t, values, func(f types.CameraFrame) bool { return f.Seq == 1 })

	// Read frame 1 while frame 2 is being captured.
	wantOK(t, h.control("capture", nil))
	var sum uint32
	for _, b := range f1.Data {
		sum += uint32(b)
	}
	f2 := waitPayload[types.CameraFrame](t, values, func(f types.CameraFrame) bool { return f.Seq == 2 })

	if &f1.Data[0] == &f2.Data[0] {
		t.Fatal("consecutive frames share a buffer")
	}
	if !bytes.Equal(f1.Data, want[:]) || !bytes.Equal(f2.Data, want[:]) {
		t.Fatal("frame data does not match the sensor pattern")
	}
	var wantSum uint32
	for _, b := range want {
		wantSum += uint32(b)
	}
	if sum != wantSum {
		t.Fatalf("frame 1 changed under a later capture: sum %d, want %d", sum, wantSum)
	}
}

func TestPollCapture(t *testing.T) {
	h := start(t)
	ready := h.ui.Subscribe(camTopic("event", "ready"))
	values := h.ui.Subscribe(camTopic("value"))
	h.configure(hostParams())
	select {
	case <-ready.Channel():
	case <-time.After(5 * time.Second):
		t.Fatal("no ready event")
	}

	wantError(t, h.control("poll_start", types.PollStart{Verb: "capture"}), "invalid_params")
	wantOK(t, h.control("poll_start", types.PollStart{Verb: "capture", IntervalMs: 20}))
	waitPayload[types.CameraFrame](t, values, func(f types.CameraFrame) bool { return f.Seq >= 2 })
	wantOK(t, h.control("poll_stop", types.PollStop{Verb: "capture"}))
}

func TestSoftBusWithoutSensor(t *testing.T) {
	h := start(t)
	status := h.ui.Subscribe(camTopic("status"))
	h.configure(types.CameraParams{Camera: "dvp0", SCL: 2, SDA: 3, SCCBHz: 400_000, SettleUs: 1})

	st := waitPayload[types.CapabilityStatus](t, status, func(s types.CapabilityStatus) bool {
		return s.Link == types.LinkDegraded
	})
	if st.Error != "bus_failure" {
		t.Fatalf("status error %q", st.Error)
	}
	wantError(t, h.control("capture", nil), "not_ready")
	if h.reg.PinOwner(2) != "cam0" || h.reg.PinOwner(3) != "cam0" {
		t.Fatal("soft bus pins not held by the camera")
	}
}

func TestSecondCameraOnSamePort(t *testing.T) {
	h := start(t)
	ready := h.ui.Subscribe(camTopic("event", "ready"))
	h.configure(hostParams())
	select {
	case <-ready.Channel():
	case <-time.After(5 * time.Second):
		t.Fatal("no ready event")
	}
	// cam1 cannot claim dvp0; its capability never appears.
	p := hostParams()
	h.ui.Publish(h.ui.NewMessage(bus.T("config", "hal"), types.HALConfig{
		Devices: []types.HALDevice{{ID: "cam1", Type: "ov7670", Params: p}},
	}, true))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	top := bus.T("hal", "cap", types.DomainVision, string(types.KindCamera), "cam1", "control", "capture")
	rep, err := h.ui.RequestWait(ctx, h.ui.NewMessage(top, nil, false))
	if err != nil {
		t.Fatal(err)
	}
	wantError(t, rep.Payload, "unknown_capability")
}
