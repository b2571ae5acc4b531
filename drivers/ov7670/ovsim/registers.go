package ovsim

import (
	"errors"

	"camlib-go/drivers/ov7670"

	"tinygo.org/x/drivers"
)

var ErrNack = errors.New("ovsim: nack")

var (
	_ ov7670.Transport = (*RegisterFile)(nil)
	_ drivers.I2C      = (*RegisterFile)(nil)
)

// RegisterFile is the sensor's control interface. It implements
// ov7670.Transport for framed SCCB writes and drivers.I2C for engines that
// send whole transactions.
type RegisterFile struct {
	// Absent makes the device address go unacknowledged.
	Absent bool
	// NackAt rejects the value byte of the write with this index (0-based,
	// counting attempted writes). Negative disables.
	NackAt int

	regs     [256]byte
	writes   []ov7670.RegisterEntry
	attempts int

	// transaction in progress
	phase  int
	reg    byte
	ok     bool
	opened bool
}

func NewRegisterFile() *RegisterFile {
	return &RegisterFile{NackAt: -1}
}

// Writes returns the accepted writes in order.
func (r *RegisterFile) Writes() []ov7670.RegisterEntry {
	out := make([]ov7670.RegisterEntry, len(r.writes))
	copy(out, r.writes)
	return out
}

// Attempts counts writes that reached the register byte.
func (r *RegisterFile) Attempts() int { return r.attempts }

// Reg returns the current value of a register.
func (r *RegisterFile) Reg(addr byte) byte { return r.regs[addr] }

func (r *RegisterFile) Start() {
	r.phase = 0
	r.ok = true
	r.opened = true
}

func (r *RegisterFile) Stop() {
	r.opened = false
	r.phase = 0
}

func (r *RegisterFile) Transmit(b byte) bool {
	if !r.opened {
		return false
	}
	switch r.phase {
	case 0:
		r.phase++
		if r.Absent || b != ov7670.Address<<1 {
			r.ok = false
			r.opened = false
			return false
		}
		return true
	case 1:
		r.phase++
		r.reg = b
		r.attempts++
		return true
	case 2:
		r.phase++
		if r.attempts-1 == r.NackAt {
			r.ok = false
			return false
		}
		if r.ok {
			r.store(r.reg, b)
		}
		return true
	}
	return false
}

// Tx implements drivers.I2C. A two-byte write stores a register; a one-byte
// write followed by a read returns registers from that address on.
func (r *RegisterFile) Tx(addr uint16, w, rd []byte) error {
	if r.Absent || addr != ov7670.Address {
		return ErrNack
	}
	switch {
	case len(w) == 2 && len(rd) == 0:
		r.attempts++
		if r.attempts-1 == r.NackAt {
			return ErrNack
		}
		r.store(w[0], w[1])
		return nil
	case len(w) == 1:
		a := w[0]
		for i := range rd {
			rd[i] = r.regs[a]
			a++
		}
		return nil
	}
	return ErrNack
}

func (r *RegisterFile) store(addr, value byte) {
	r.regs[addr] = value
	r.writes = append(r.writes, ov7670.RegisterEntry{Addr: addr, Value: value})
}
