package core

import (
	"camlib-go/errcode"

	"tinygo.org/x/drivers"
)

type ResourceID string // e.g. "i2c0", "dvp0"

// ---- GPIO handles ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOHandle interface {
	Number() int
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(bool)
	Get() bool
}

// ---- Parallel camera port ----

// CameraPort is a sensor's parallel interface plus its master clock. Line
// numbers follow the driver's pin order (VSYNC, HSYNC, PCLK, D7). Reads are
// raw single samples and must be cheap enough for a per-pixel poll loop.
type CameraPort interface {
	ReadPin(line uint8) bool
	ReadBus() byte

	// Interrupt mask held for one capture.
	Disable() uintptr
	Restore(state uintptr)

	StartClock(hz uint32) error
	StopClock()
}

// ---- Unified registry interface ----

type ResourceRegistry interface {
	// Transactional buses; the returned value serialises with other users.
	ClaimI2C(devID string, id ResourceID) (drivers.I2C, error)
	ReleaseI2C(devID string, id ResourceID)

	ClaimGPIO(devID string, pin int) (GPIOHandle, error)
	ReleaseGPIO(devID string, pin int)

	// Cameras are exclusive.
	ClaimCamera(devID string, id ResourceID) (CameraPort, error)
	ReleaseCamera(devID string, id ResourceID)
}

// Short error codes
var (
	ErrUnknownPin = errcode.UnknownPin
	ErrPinInUse   = errcode.PinInUse
	ErrUnknownBus = errcode.UnknownBus
	ErrBusInUse   = errcode.BusInUse
)
