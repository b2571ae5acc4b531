package provider

import (
	"camlib-go/services/hal/internal/core"
	"camlib-go/services/hal/internal/provider/setups"
)

// SelectedPlan and InitialHALConfig are provided via build-tagged files
// (see setup_selected.go / setup_none.go in this package).
var (
	SelectedPlan     setups.ResourcePlan
	InitialHALConfig core.HALConfig
)

// NewResources constructs the registry from the selected plan.
func NewResources() core.Resources {
	return core.Resources{Reg: NewResourceRegistry(SelectedPlan)}
}
