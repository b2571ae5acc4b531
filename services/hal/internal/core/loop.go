package core

import (
	"context"
	"time"

	"camlib-go/bus"
	"camlib-go/errcode"
	"camlib-go/types"
	"camlib-go/x/timex"
)

const (
	eventQueueLen = 16
	pollQueueLen  = 4
)

type HAL struct {
	conn *bus.Connection
	res  Resources

	// devID -> device
	dev map[string]Device
	// capability -> devID
	capIndex map[CapAddr]string

	cfgSub  *bus.Subscription
	ctrlSub *bus.Subscription

	// Single-threaded publication of device events
	evCh chan Event

	polls  chan PollReq
	poller *Poller
}

func NewHAL(conn *bus.Connection, res Resources) *HAL {
	h := &HAL{
		conn:     conn,
		res:      res,
		dev:      map[string]Device{},
		capIndex: map[CapAddr]string{},
		evCh:     make(chan Event, eventQueueLen),
		polls:    make(chan PollReq, pollQueueLen),
	}
	h.poller = NewPoller(h.polls)
	// HAL provides the emitter to devices.
	h.res.Pub = h
	return h
}

func (h *HAL) Run(ctx context.Context) {
	h.cfgSub = h.conn.Subscribe(topicConfigHAL())
	h.ctrlSub = h.conn.Subscribe(ctrlWildcard())
	defer h.conn.Unsubscribe(h.cfgSub)
	defer h.conn.Unsubscribe(h.ctrlSub)

	go h.poller.Run(ctx)

	h.pubHALState("idle", "awaiting_config")
	ready := false
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.pubHALState("stopped", "context_cancelled")
			return
		case msg := <-h.cfgSub.Channel():
			cfg, ok := msg.Payload.(types.HALConfig)
			if !ok {
				println("[hal] ignoring config with unexpected payload type")
				continue
			}
			// Additive: devices already running are left alone.
			h.applyConfig(ctx, cfg)
			if !ready {
				ready = true
				h.pubHALState("ready", "")
			}
		case m := <-h.ctrlSub.Channel():
			if !ready {
				h.replyErr(m, errcode.HALNotReady)
				continue
			}
			h.handleControl(m)
		case ev := <-h.evCh:
			// All device→HAL telemetry is published from this goroutine.
			h.handleEvent(ev)
		case pr := <-h.polls:
			if _, err := h.dispatch(pr.Addr, pr.Verb, nil); err != nil {
				println("[hal] poll", pr.Verb, "on", pr.Addr.Name, "failed:", err.Error())
			}
		}
	}
}

func (h *HAL) applyConfig(ctx context.Context, cfg types.HALConfig) {
	for i := range cfg.Devices {
		dc := cfg.Devices[i]
		if _, exists := h.dev[dc.ID]; exists {
			continue
		}
		b, ok := lookupBuilder(dc.Type)
		if !ok {
			println("[hal] no builder for type:", dc.Type, "id:", dc.ID)
			continue
		}
		dev, err := b.Build(ctx, BuilderInput{
			ID:     dc.ID,
			Type:   dc.Type,
			Params: dc.Params,
			Res:    h.res,
		})
		if err != nil {
			println("[hal] build failed for:", dc.ID, "err:", err.Error())
			continue
		}

		// Register capabilities before Init so early events have a home.
		for _, cs := range dev.Capabilities() {
			a := CapAddr{Domain: cs.Domain, Kind: cs.Kind, Name: cs.Name}
			if a.Name == "" {
				a.Name = dev.ID()
			}
			h.capIndex[a] = dev.ID()
			h.conn.Publish(h.conn.NewMessage(capInfo(a), cs.Info, true))
			h.conn.Publish(h.conn.NewMessage(
				capStatus(a),
				types.CapabilityStatus{Link: types.LinkDown, TS: timex.NowMs()},
				true,
			))
		}
		h.dev[dev.ID()] = dev

		if err := dev.Init(ctx); err != nil {
			println("[hal] init failed for:", dc.ID, "err:", err.Error())
			h.removeDevice(dev)
			continue
		}
	}

	for _, ps := range cfg.Pollers {
		a := CapAddr{Domain: ps.Domain, Kind: ps.Kind, Name: ps.Name}
		if _, ok := h.capIndex[a]; !ok {
			println("[hal] poller for unknown capability:", ps.Name)
			continue
		}
		h.poller.Upsert(a, ps.Verb,
			time.Duration(ps.IntervalMs)*time.Millisecond,
			time.Duration(ps.JitterMs)*time.Millisecond)
	}
}

func (h *HAL) removeDevice(dev Device) {
	for a, id := range h.capIndex {
		if id == dev.ID() {
			h.poller.StopAll(a)
			delete(h.capIndex, a)
			h.conn.Publish(h.conn.NewMessage(
				capStatus(a),
				types.CapabilityStatus{Link: types.LinkDown, TS: timex.NowMs(), Error: "init_failed"},
				true,
			))
		}
	}
	_ = dev.Close()
	delete(h.dev, dev.ID())
}

func (h *HAL) closeAll() {
	for id, d := range h.dev {
		if err := d.Close(); err != nil {
			println("[hal] close failed for:", id, "err:", err.Error())
		}
	}
}

func (h *HAL) handleControl(msg *bus.Message) {
	// hal/cap/<domain>/<kind>/<name>/control/<verb>
	if msg.Topic.Len() != 7 {
		h.replyErr(msg, errcode.InvalidTopic)
		return
	}
	domain, ok1 := msg.Topic.At(2).(string)
	kind, ok2 := msg.Topic.At(3).(string)
	name, ok3 := msg.Topic.At(4).(string)
	verb, ok4 := msg.Topic.At(6).(string)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		h.replyErr(msg, errcode.InvalidTopic)
		return
	}
	a := CapAddr{Domain: domain, Kind: types.Kind(kind), Name: name}

	switch verb {
	case "poll_start":
		h.pollStart(msg, a)
		return
	case "poll_stop":
		h.pollStop(msg, a)
		return
	}

	res, err := h.dispatch(a, verb, msg.Payload)
	if err != nil {
		h.replyErr(msg, errcode.Of(err))
		return
	}
	if res.OK {
		h.replyOK(msg)
		return
	}
	code := res.Error
	if code == "" {
		code = errcode.Busy
	}
	h.replyErr(msg, code)
}

func (h *HAL) dispatch(a CapAddr, verb string, payload any) (EnqueueResult, error) {
	ownerID, ok := h.capIndex[a]
	if !ok {
		return EnqueueResult{}, errcode.UnknownCapability
	}
	dev := h.dev[ownerID]
	if dev == nil {
		return EnqueueResult{}, errcode.UnknownCapability
	}
	return dev.Control(a, verb, payload)
}

func (h *HAL) pollStart(msg *bus.Message, a CapAddr) {
	if _, ok := h.capIndex[a]; !ok {
		h.replyErr(msg, errcode.UnknownCapability)
		return
	}
	p, code := As[types.PollStart](msg.Payload)
	if code != "" {
		h.replyErr(msg, code)
		return
	}
	if p.Verb == "" || p.IntervalMs == 0 {
		h.replyErr(msg, errcode.InvalidParams)
		return
	}
	h.poller.Upsert(a, p.Verb,
		time.Duration(p.IntervalMs)*time.Millisecond,
		time.Duration(p.JitterMs)*time.Millisecond)
	h.replyOK(msg)
}

func (h *HAL) pollStop(msg *bus.Message, a CapAddr) {
	p, code := As[types.PollStop](msg.Payload)
	if code != "" {
		h.replyErr(msg, code)
		return
	}
	if p.Verb == "" {
		h.poller.StopAll(a)
	} else {
		h.poller.Stop(a, p.Verb)
	}
	h.replyOK(msg)
}

func (h *HAL) handleEvent(ev Event) {
	a := ev.Addr
	ts := ev.TS
	if ts == 0 {
		ts = timex.NowMs()
	}

	// Error → retained status:degraded; nothing else.
	if ev.Err != "" {
		h.conn.Publish(h.conn.NewMessage(
			capStatus(a),
			types.CapabilityStatus{Link: types.LinkDegraded, TS: ts, Error: ev.Err},
			true,
		))
		return
	}

	if ev.EventTag != "" {
		h.conn.Publish(h.conn.NewMessage(capEventTagged(a, ev.EventTag), ev.Payload, false))
	} else {
		h.conn.Publish(h.conn.NewMessage(capValue(a), ev.Payload, true))
	}
	h.conn.Publish(h.conn.NewMessage(
		capStatus(a),
		types.CapabilityStatus{Link: types.LinkUp, TS: ts},
		true,
	))
}

func (h *HAL) pubHALState(level, status string) {
	h.conn.Publish(h.conn.NewMessage(
		topicHALState(),
		types.HALState{Level: level, Status: status, TS: timex.NowMs()},
		true,
	))
}

// ---- HAL as EventEmitter (enqueue to single publisher) ----

func (h *HAL) Emit(ev Event) bool {
	select {
	case h.evCh <- ev:
		return true
	default:
		return false
	}
}
