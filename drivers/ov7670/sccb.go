package ov7670

import "tinygo.org/x/drivers"

// Transport is a two-wire byte transport with explicit framing.
// Transmit clocks out one byte and reports whether the receiver pulled the
// acknowledge bit low.
type Transport interface {
	Start()
	Stop()
	Transmit(b byte) bool
}

// RegisterWriter performs one 3-phase register write and reports success.
type RegisterWriter interface {
	WriteRegister(addr, value byte) bool
}

// SCCB writes sensor registers over a framed Transport.
type SCCB struct {
	t Transport
}

func NewSCCB(t Transport) *SCCB { return &SCCB{t: t} }

// WriteRegister sends start, 0x42, addr, value, stop. Every byte goes out
// whatever the acknowledge bits say; the write fails if any of the three was
// not acknowledged. No retry.
// Unlike the vendor C drivers, an unacknowledged device address does not cut
// the frame short after the address byte.
func (s *SCCB) WriteRegister(addr, value byte) bool {
	s.t.Start()
	okDev := s.t.Transmit(writeAddr)
	okReg := s.t.Transmit(addr)
	okVal := s.t.Transmit(value)
	s.t.Stop()
	return okDev && okReg && okVal
}

// TxWriter writes registers through a hardware I2C engine.
type TxWriter struct {
	bus  drivers.I2C
	addr uint16
	buf  [2]byte
}

// NewTxWriter returns a writer for the sensor at the default address.
func NewTxWriter(bus drivers.I2C) *TxWriter {
	return &TxWriter{bus: bus, addr: Address}
}

func (w *TxWriter) WriteRegister(addr, value byte) bool {
	w.buf[0] = addr
	w.buf[1] = value
	return w.bus.Tx(w.addr, w.buf[:], nil) == nil
}
