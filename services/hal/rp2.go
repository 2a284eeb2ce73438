//go:build rp2040

package hal

import "hbridge-go/services/hal/internal/provider"

// RP2Plan is the board wiring handed to the rp2040 registry.
type RP2Plan = provider.Plan

type I2CPlan = provider.I2CPlan

type RP2Registry = provider.RP2Registry

func NewRP2Registry(plan RP2Plan) *RP2Registry { return provider.NewRP2Registry(plan) }
