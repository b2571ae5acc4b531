package main

import (
	"context"
	"time"

	"camlib-go/bus"
	"camlib-go/services/config"
	"camlib-go/services/hal"
	"camlib-go/services/heartbeat"
	"camlib-go/types"
)

const deviceID = "pico_cam"

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, deviceID)
	b := bus.NewBus(4)
	halConn := b.NewConnection("hal")
	ui := b.NewConnection("ui")

	state := ui.Subscribe(bus.T("hal", "state"))
	status := ui.Subscribe(bus.T("hal", "cap", types.DomainVision, string(types.KindCamera), "+", "status"))
	frames := ui.Subscribe(bus.T("hal", "cap", types.DomainVision, string(types.KindCamera), "+", "value"))

	// The board setup publishes the camera device itself.
	go hal.Run(ctx, halConn)

	// Schedules and the heartbeat come from the embedded config once the HAL
	// has taken the board setup.
	waitReady(state, 3*time.Second)
	ui.Unsubscribe(state)
	config.NewConfigService().Start(ctx, b.NewConnection("config"))
	_ = (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))

	for {
		select {
		case m := <-status.Channel():
			if st, ok := m.Payload.(types.CapabilityStatus); ok {
				println("[main]", m.Topic.At(4).(string), string(st.Link), st.Error)
			}
		case m := <-frames.Channel():
			if f, ok := m.Payload.(types.CameraFrame); ok {
				println("[main] frame", f.Seq, "bytes", len(f.Data))
			}
		}
	}
}

// waitReady returns once the HAL reports ready or after d; a board without
// a setup never gets there on its own.
func waitReady(state *bus.Subscription, d time.Duration) {
	deadline := time.After(d)
	for {
		select {
		case m := <-state.Channel():
			if s, ok := m.Payload.(types.HALState); ok && s.Level == "ready" {
				return
			}
		case <-deadline:
			println("[main] hal not ready; applying embedded config anyway")
			return
		}
	}
}
