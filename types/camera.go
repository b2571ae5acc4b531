package types

// ---- Camera capability params ----

// CameraParams configures one sensor. Bus selects a hardware I2C engine for
// register writes; when empty SCL/SDA name GPIOs for the bit-banged bus.
type CameraParams struct {
	Camera     string `json:"camera"`                // parallel port id, e.g. "dvp0"
	Bus        string `json:"bus,omitempty"`         // e.g. "i2c0"
	SCL        int    `json:"scl,omitempty"`         // GPIO, soft bus only
	SDA        int    `json:"sda,omitempty"`         // GPIO, soft bus only
	ClockHz    uint32 `json:"clock_hz,omitempty"`    // XCLK; 0 = platform default
	SCCBHz     uint32 `json:"sccb_hz,omitempty"`     // soft bus rate; 0 = 100 kHz
	SettleUs   uint32 `json:"settle_us,omitempty"`   // pause after each register write
	SpinLimit  uint32 `json:"spin_limit,omitempty"`  // 0 = wait forever for each edge
	ReleaseBus bool   `json:"release_bus,omitempty"` // hand the control bus back after init
	Domain     string `json:"domain,omitempty"`      // default "vision"
	Name       string `json:"name,omitempty"`        // default device id
}

// ---- Camera capability payloads ----

type CameraInfo struct {
	Sensor    string `json:"sensor"` // "ov7670"
	Camera    string `json:"camera"`
	Bus       string `json:"bus"` // "i2c0" or "sccb"
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"` // "rgb565"
	Registers int    `json:"registers"`
}

// CameraFrame is published as the capability value after each capture.
// Data aliases the driver buffer and is only valid until the next capture.
type CameraFrame struct {
	Seq    uint32 `json:"seq"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	TS     int64  `json:"ts_ms"`
	Data   []byte `json:"-"`
}

// CaptureStats is emitted on event/stats.
type CaptureStats struct {
	Captures   uint32 `json:"captures"`
	Timeouts   uint32 `json:"timeouts"`
	LastMs     uint32 `json:"last_ms"` // duration of the last capture
	Configured bool   `json:"configured"`
}
