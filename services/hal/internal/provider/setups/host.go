//go:build !rp2040

package setups

import "camlib-go/types"

// Host wiring mirrors the Pico camera board so configs can be shared; the
// provider backs each resource with a simulator.
var SelectedPlan = ResourcePlan{
	I2C: []I2CPlan{
		{ID: "i2c0", SDA: 4, SCL: 5, Hz: 100_000},
	},
	Camera: []CameraPlan{
		{ID: "dvp0", D0: 10, VSYNC: 18, HREF: 19, PCLK: 20, XCLK: 21},
	},
}

var SelectedSetup = types.HALConfig{
	Devices: []types.HALDevice{
		{ID: "cam0", Type: "ov7670", Params: types.CameraParams{
			Camera:    "dvp0",
			Bus:       "i2c0",
			SettleUs:  1,
			SpinLimit: 1 << 16,
		}},
	},
}
