// Package sccb bit-bangs the OmniVision Serial Camera Control Bus over two
// open-drain GPIO lines.
//
// SCCB is I2C-shaped: start and stop conditions, 8 bits MSB first, then a
// ninth bit the slave may pull low. Writes are all this package does.
package sccb

import "time"

// Line is one open-drain signal. Release lets the pull-up take it high,
// Drive pulls it low and Get samples it.
type Line interface {
	Release()
	Drive()
	Get() bool
}

// Config holds bus timing. Zero values select defaults.
type Config struct {
	// Frequency is the SCL rate in Hz.
	Frequency uint32
	// Delay waits one half period. Nil uses time.Sleep.
	Delay func(time.Duration)
}

const DefaultFrequency = 100_000

// Bus drives SCL and SDA. It is not safe for concurrent use.
type Bus struct {
	scl, sda Line
	half     time.Duration
	delay    func(time.Duration)
}

// New returns an idle bus with both lines released.
func New(scl, sda Line, cfg Config) *Bus {
	if cfg.Frequency == 0 {
		cfg.Frequency = DefaultFrequency
	}
	if cfg.Delay == nil {
		cfg.Delay = time.Sleep
	}
	b := &Bus{
		scl:   scl,
		sda:   sda,
		half:  time.Second / (2 * time.Duration(cfg.Frequency)),
		delay: cfg.Delay,
	}
	scl.Release()
	sda.Release()
	return b
}

// HalfPeriod is the delay between clock edges.
func (b *Bus) HalfPeriod() time.Duration { return b.half }

func (b *Bus) wait() { b.delay(b.half) }

// Start issues a start condition: SDA falls while SCL is high.
// Called mid-transaction it acts as a repeated start.
func (b *Bus) Start() {
	b.sda.Release()
	b.scl.Release()
	b.wait()
	b.sda.Drive()
	b.wait()
	b.scl.Drive()
}

// Stop issues a stop condition: SDA rises while SCL is high.
func (b *Bus) Stop() {
	b.sda.Drive()
	b.wait()
	b.scl.Release()
	b.wait()
	b.sda.Release()
	b.wait()
}

// Transmit clocks out v and reports whether the slave acknowledged.
func (b *Bus) Transmit(v byte) bool {
	for i := 7; i >= 0; i-- {
		if v&(1<<i) != 0 {
			b.sda.Release()
		} else {
			b.sda.Drive()
		}
		b.wait()
		b.scl.Release()
		b.wait()
		b.scl.Drive()
	}
	// ninth bit
	b.sda.Release()
	b.wait()
	b.scl.Release()
	b.wait()
	ack := !b.sda.Get()
	b.scl.Drive()
	return ack
}
