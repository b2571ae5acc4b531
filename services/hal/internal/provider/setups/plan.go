package setups

// ResourcePlan specifies wiring and operating parameters chosen by a setup.
// Providers consume this plan to instantiate resource owners.
type ResourcePlan struct {
	I2C    []I2CPlan
	Camera []CameraPlan
}

type I2CPlan struct {
	ID  string // e.g. "i2c0"
	SDA int    // GPIO number
	SCL int    // GPIO number
	Hz  uint32 // bus frequency
}

// CameraPlan wires a parallel camera port. D0 is the first of eight
// consecutive data GPIOs.
type CameraPlan struct {
	ID    string // e.g. "dvp0"
	D0    int
	VSYNC int
	HREF  int
	PCLK  int
	XCLK  int // PWM-capable GPIO for the master clock
}

// Pins lists every GPIO the port occupies.
func (c CameraPlan) Pins() []int {
	out := make([]int, 0, 12)
	for i := 0; i < 8; i++ {
		out = append(out, c.D0+i)
	}
	return append(out, c.VSYNC, c.HREF, c.PCLK, c.XCLK)
}
