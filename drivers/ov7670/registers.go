package ov7670

const (
	// 7-bit SCCB address; on the wire this is 0x42 for writes.
	Address = 0x21

	// Write address byte as it appears on the bus.
	writeAddr = Address << 1

	// --- Register sub-addresses used by the start-up table ---

	// Gain / exposure
	regBLUE  = 0x01
	regRED   = 0x02
	regVREF  = 0x03
	regAECHH = 0x10
	regCLKRC = 0x11
	regCOM7  = 0x12
	regCOM8  = 0x13

	// Window
	regHSTART = 0x17
	regHSTOP  = 0x18
	regVSTART = 0x19
	regVSTOP  = 0x1a
	regHREF   = 0x32

	// Format
	regCOM15   = 0x40
	regCOM16   = 0x41
	regABLC1   = 0xb1
	regTHL_ST  = 0xb3
	regRSVDB0  = 0xb0
	regSCALING = 0x70

	// COM7 bits
	com7Reset = 0x80
	com7QVGA  = 0x10
	com7RGB   = 0x04
)

// RegisterEntry is one (sub-address, value) write of the start-up sequence.
type RegisterEntry struct {
	Addr  byte
	Value byte
}

// DefaultRegisters brings the sensor into QVGA, RGB565 with fixed timing, gain,
// gamma and white balance. Order matters: the reset must be the first write and
// later entries rely on state set by earlier ones. Some sub-addresses appear
// twice (0x96, 0x9a); both writes are part of the sequence.
var DefaultRegisters = [...]RegisterEntry{
	{regCOM7, com7Reset},
	{regCOM7, com7QVGA | com7RGB},

	{regCOM15, 0xd0}, // RGB565, full output range
	{regRSVDB0, 0x84},

	// Hardware window, 15 fps PCLK
	{regCLKRC, 0x01}, {regHREF, 0x80}, {regHSTART, 0x17}, {regHSTOP, 0x05},
	{regVREF, 0x0a}, {regVSTART, 0x02}, {regVSTOP, 0x7a},

	// Scaling: X, Y, DCW, PCLK divider, PCLK delay
	{regSCALING, 0x3a}, {0x71, 0x35}, {0x72, 0x11}, {0x73, 0xf0},
	{0xa2, 0x02},

	// Colour matrix
	{0x4f, 0x80}, {0x50, 0x80}, {0x51, 0x00}, {0x52, 0x22},
	{0x53, 0x5e}, {0x54, 0x80}, {0x58, 0x9e},

	// Gamma curve
	{0x7a, 0x20}, {0x7b, 0x10}, {0x7c, 0x1e}, {0x7d, 0x35},
	{0x7e, 0x5a}, {0x7f, 0x69}, {0x80, 0x76}, {0x81, 0x80},
	{0x82, 0x88}, {0x83, 0x8f}, {0x84, 0x96}, {0x85, 0xa3},
	{0x86, 0xaf}, {0x87, 0xc4}, {0x88, 0xd7}, {0x89, 0xe8},

	// AGC / AEC
	{0xa5, 0x05}, {0xab, 0x07}, {0x24, 0x95}, {0x25, 0x33},
	{0x26, 0xe3}, {0x9f, 0x78}, {0xa0, 0x68}, {0xa1, 0x03},
	{0xa6, 0xd8}, {0xa7, 0xd8}, {0xa8, 0xf0}, {0xa9, 0x90},
	{0xaa, 0x94}, {regAECHH, 0x00},

	// AWB
	{0x43, 0x0a}, {0x44, 0xf0}, {0x45, 0x34}, {0x46, 0x58},
	{0x47, 0x28}, {0x48, 0x3a}, {0x59, 0x88}, {0x5a, 0x88},
	{0x5b, 0x44}, {0x5c, 0x67}, {0x5d, 0x49}, {0x5e, 0x0e},
	{0x6c, 0x0a}, {0x6d, 0x55}, {0x6e, 0x11}, {0x6f, 0x9f},
	{0x6a, 0x40}, {regBLUE, 0x40}, {regRED, 0x60}, {regCOM8, 0xe7},

	// Everything else
	{0x34, 0x11}, {0x3f, 0x00}, {0x75, 0x05}, {0x76, 0xe1},
	{0x4c, 0x00}, {0x77, 0x01}, {0xb8, 0x0a}, {regCOM16, 0x18},
	{0x3b, 0x12}, {0xa4, 0x88}, {0x96, 0x00}, {0x97, 0x30},
	{0x98, 0x20}, {0x99, 0x30}, {0x9a, 0x84}, {0x9b, 0x29},
	{0x9c, 0x03}, {0x9d, 0x4c}, {0x9e, 0x3f}, {0x78, 0x04},
	{0x0e, 0x61}, {0x0f, 0x4b}, {0x16, 0x02}, {0x1e, 0x00},
	{0x21, 0x02}, {0x22, 0x91}, {0x29, 0x07}, {0x33, 0x0b},
	{0x35, 0x0b}, {0x37, 0x1d}, {0x38, 0x71}, {0x39, 0x2a},
	{0x3c, 0x78}, {0x4d, 0x40}, {0x4e, 0x20}, {0x69, 0x00},
	{0x6b, 0x3a}, {0x74, 0x10}, {0x8d, 0x4f}, {0x8e, 0x00},
	{0x8f, 0x00}, {0x90, 0x00}, {0x91, 0x00}, {0x96, 0x00},
	{0x9a, 0x00}, {regABLC1, 0x0c}, {0xb2, 0x0e}, {regTHL_ST, 0x82},
	{0x4b, 0x01},
}

// Registers returns a copy of the start-up table.
func Registers() []RegisterEntry {
	out := make([]RegisterEntry, len(DefaultRegisters))
	copy(out, DefaultRegisters[:])
	return out
}
