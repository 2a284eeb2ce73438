// Package hal wires configured motor devices to the bus.
//
// Configuration arrives as a retained types.HALConfig on config/hal. Each
// device publishes under hal/cap/<domain>/<kind>/<name>/{info,status,value}
// and accepts controls on .../control/<verb>.
package hal

import (
	"context"

	"hbridge-go/bus"
	"hbridge-go/services/hal/internal/core"
	"hbridge-go/services/hal/internal/provider"

	// Device builders register themselves.
	_ "hbridge-go/services/hal/devices/hbridge"
)

// Registry hands out pins and buses to devices.
type Registry = core.ResourceRegistry

// HostRegistry is the in-memory registry used off-target.
type HostRegistry = provider.HostRegistry

type HostConfig = provider.HostConfig

type PinFunc = core.PinFunc

const (
	FuncGPIOOut = core.FuncGPIOOut
	FuncPWM     = core.FuncPWM
)

func NewHostRegistry(cfg HostConfig) *HostRegistry { return provider.NewHostRegistry(cfg) }
func DefaultHostConfig() HostConfig                { return provider.DefaultHostConfig() }

// Run serves the HAL until ctx is cancelled. Devices are stopped and
// released before it returns.
func Run(ctx context.Context, conn *bus.Connection, reg Registry) {
	core.NewHAL(conn, reg).Run(ctx)
}
