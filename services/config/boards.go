package config

import "hbridge-go/types"

func intp(v int) *int { return &v }

// Built-in board profiles, keyed by the id placed under CtxDeviceKey.
//
// pico: two pair-driven motors with enables. GP2/GP3 and GP6/GP7 sit on
// different PWM slices so each motor can pick its own frequency.
var embeddedProfiles = map[string]Profile{
	"pico": {
		Domain:      "motion",
		HeartbeatMs: 10_000,
		Motors: []MotorSpec{
			{ID: "left", Type: "hbridge_pair", HBridgeParams: types.HBridgeParams{Pins: []int{2, 3}, Enable: intp(10)}},
			{ID: "right", Type: "hbridge_pair", HBridgeParams: types.HBridgeParams{Pins: []int{6, 7}, Enable: intp(11), Reverse: true}},
		},
	},
}
