//go:build !rp2040 || pico_cam

package provider

import "camlib-go/services/hal/internal/provider/setups"

func init() {
	SelectedPlan = setups.SelectedPlan
	InitialHALConfig = setups.SelectedSetup
}
