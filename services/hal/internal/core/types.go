package core

import (
	"context"

	"camlib-go/errcode"
	"camlib-go/types"
)

// ---- Capability & device model ----

// CapAddr is the public identity of one capability.
type CapAddr struct {
	Domain string
	Kind   types.Kind
	Name   string
}

type CapabilitySpec struct {
	Domain string
	Kind   types.Kind
	Name   string
	Info   types.Info
}

// EnqueueResult is the immediate answer to a control. OK means the request
// was accepted; the outcome arrives later as an Event.
type EnqueueResult struct {
	OK    bool
	Error errcode.Code
}

type Device interface {
	ID() string
	Capabilities() []CapabilitySpec
	Init(ctx context.Context) error
	// Control must not block.
	Control(addr CapAddr, verb string, payload any) (EnqueueResult, error)
	Close() error
}

// ---- Device → HAL telemetry (single shape) ----
// With an empty EventTag the payload is a value and goes to .../value
// (retained). With a tag it goes to .../event/<tag>. A non-empty Err only
// publishes .../status=degraded.

type Event struct {
	Addr     CapAddr
	Payload  any
	EventTag string
	Err      string
	TS       int64 // ms
}

type EventEmitter interface {
	// Emit must be non-blocking; false means the event was dropped.
	Emit(ev Event) bool
}

// ---- HAL-injected resources ----

type Resources struct {
	Reg ResourceRegistry
	Pub EventEmitter
}

type BuilderInput struct {
	ID, Type string
	Params   any
	Res      Resources
}

type Builder interface {
	Build(ctx context.Context, in BuilderInput) (Device, error)
}
