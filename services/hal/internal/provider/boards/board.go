package boards

// Board describes what the PCB/SoC can do (controllers present, GPIO range).
// It must not include wiring choices (pins) or operating parameters (clock rates).
type Board struct {
	Name             string
	GPIOMin, GPIOMax int

	// Controllers present (identities only; e.g. "i2c0", "i2c1").
	I2C []string
	// PWM slices available for a sensor master clock.
	PWMSlices int
}

// Pico is the RP2040 Pico; the host simulation uses the same shape.
var Pico = Board{
	Name:      "pico",
	GPIOMin:   0,
	GPIOMax:   29,
	I2C:       []string{"i2c0", "i2c1"},
	PWMSlices: 8,
}

var SelectedBoard = Pico

// Has reports whether the board provides the named controller.
func (b Board) Has(id string) bool {
	for _, c := range b.I2C {
		if c == id {
			return true
		}
	}
	return false
}
