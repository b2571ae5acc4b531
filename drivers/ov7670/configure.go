package ov7670

import (
	"errors"
	"time"

	"camlib-go/x/conv"
)

var (
	ErrBusFailure = errors.New("ov7670: bus failure")
	ErrTimeout    = errors.New("ov7670: timeout")
)

// DefaultSettle is the pause after each register write.
const DefaultSettle = 2 * time.Millisecond

// ConfigError reports the first table entry the sensor did not accept.
type ConfigError struct {
	Index int
	Entry RegisterEntry
}

func (e *ConfigError) Error() string {
	var n [20]byte
	h := conv.Byte2(e.Entry.Addr)
	return "ov7670: bus failure at entry " + string(conv.Itoa(n[:], int64(e.Index))) +
		" (reg 0x" + string(h[:]) + ")"
}

func (e *ConfigError) Unwrap() error { return ErrBusFailure }

// BusFailure builds the error returned when entry index failed.
func BusFailure(index int, entry RegisterEntry) *ConfigError {
	return &ConfigError{Index: index, Entry: entry}
}

// Configure writes table in order, pausing settle after each accepted write.
// It stops at the first rejected write; later entries are not sent.
func Configure(w RegisterWriter, table []RegisterEntry, settle time.Duration) error {
	if settle <= 0 {
		settle = DefaultSettle
	}
	for i, e := range table {
		if !w.WriteRegister(e.Addr, e.Value) {
			return BusFailure(i, e)
		}
		time.Sleep(settle)
	}
	return nil
}
