// Package ov7670 drives an OV7670 CMOS sensor: it programs the sensor over
// SCCB and captures QVGA RGB565 frames by polling the parallel output.
//
// The package touches no hardware directly. Register writes go through a
// RegisterWriter (bit-banged SCCB or a hardware I2C engine), pixel data comes
// from a Port, and interrupt masking is supplied by the caller.
package ov7670

import "time"

// Config holds device options; zero values select defaults.
type Config struct {
	// Registers is the start-up table. Nil uses DefaultRegisters.
	Registers []RegisterEntry
	// Settle is the pause after each register write.
	Settle time.Duration
	// SpinLimit bounds each level wait during capture. Zero waits forever.
	SpinLimit uint32
	// IRQ masks interrupts during capture. Nil masks nothing.
	IRQ IRQMask
	// StartClock starts the sensor master clock before configuration.
	StartClock func() error
}

// Device is one sensor with its frame buffer.
type Device struct {
	w      RegisterWriter
	cfg    Config
	eng    Engine
	frame  Frame
	frames uint32
}

// New returns a Device. The sensor is not touched until Initialize.
func New(w RegisterWriter, port Port, cfg Config) *Device {
	if cfg.Registers == nil {
		cfg.Registers = DefaultRegisters[:]
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.IRQ == nil {
		cfg.IRQ = NoIRQMask
	}
	d := &Device{w: w, cfg: cfg}
	d.eng = Engine{Port: port, IRQ: cfg.IRQ, SpinLimit: cfg.SpinLimit}
	return d
}

// Initialize starts the clock and writes the register table.
// On a rejected write it returns a *ConfigError and the sensor is left
// partially configured.
func (d *Device) Initialize() error {
	if d.cfg.StartClock != nil {
		if err := d.cfg.StartClock(); err != nil {
			return err
		}
	}
	return Configure(d.w, d.cfg.Registers, d.cfg.Settle)
}

// Capture blocks until a full frame is in the buffer returned by Frame.
func (d *Device) Capture() error {
	if err := d.eng.Capture(&d.frame); err != nil {
		return err
	}
	d.frames++
	return nil
}

// Frame returns the device buffer as a read-only view: callers must not
// write through it. Contents are undefined before the first Capture and must
// not be read while a Capture is running; copy the frame to keep it.
func (d *Device) Frame() *Frame { return &d.frame }

// Captures returns the number of completed frames.
func (d *Device) Captures() uint32 { return d.frames }

// Engine exposes the capture state machine for diagnostics.
func (d *Device) Engine() *Engine { return &d.eng }
