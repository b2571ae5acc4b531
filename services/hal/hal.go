// services/hal/hal.go
package hal

import (
	"context"

	"camlib-go/bus"
	"camlib-go/services/hal/internal/core"
	"camlib-go/services/hal/internal/provider"

	// Device builders register themselves in init.
	_ "camlib-go/services/hal/devices/ov7670"
)

// Run starts the HAL on conn with the board's resources and blocks until ctx
// is cancelled. A board setup that carries an initial config publishes it on
// config/hal before the loop starts.
func Run(ctx context.Context, conn *bus.Connection) {
	run(ctx, conn, provider.NewResources(), provider.InitialHALConfig)
}

func run(ctx context.Context, conn *bus.Connection, res core.Resources, initial core.HALConfig) {
	if len(initial.Devices) > 0 {
		conn.Publish(conn.NewMessage(bus.T("config", "hal"), initial, true))
	}
	core.NewHAL(conn, res).Run(ctx)
}
