//go:build rp2040 && pico_cam

package setups

import "camlib-go/types"

var SelectedPlan = ResourcePlan{
	I2C: []I2CPlan{
		// SIOC/SIOD; the sensor module carries its own pull-ups.
		{ID: "i2c0", SDA: 4, SCL: 5, Hz: 100_000},
	},
	Camera: []CameraPlan{
		{ID: "dvp0", D0: 10, VSYNC: 18, HREF: 19, PCLK: 20, XCLK: 21},
	},
}

var SelectedSetup = types.HALConfig{
	Devices: []types.HALDevice{
		{ID: "cam0", Type: "ov7670", Params: types.CameraParams{
			Camera:     "dvp0",
			Bus:        "i2c0",
			ClockHz:    12_000_000,
			SpinLimit:  1 << 20,
			ReleaseBus: true,
		}},
	},
	Pollers: []types.PollSpec{
		{Domain: types.DomainVision, Kind: types.KindCamera, Name: "cam0", Verb: "capture", IntervalMs: 1000},
	},
}
