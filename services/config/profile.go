package config

import (
	"hbridge-go/types"
	"hbridge-go/x/strx"
)

// Profile describes the motors wired to one board.
//
//	domain: motion
//	heartbeat_ms: 5000
//	motors:
//	  - id: left
//	    type: pair          # dirpwm | pair | 4pwm, or the full hbridge_* name
//	    pins: [2, 3]
//	    enable: 10
//	    dead_time_us: 500
//	  - id: arm
//	    type: 4pwm
//	    pins: [0, 1, 2, 3]
//	    expander: {bus: i2c0, addr: 0x40}
type Profile struct {
	Domain      string      `yaml:"domain"`
	HeartbeatMs uint32      `yaml:"heartbeat_ms,omitempty"`
	Motors      []MotorSpec `yaml:"motors"`
}

type MotorSpec struct {
	ID                  string `yaml:"id"`
	Type                string `yaml:"type"`
	types.HBridgeParams `yaml:",inline"`
}

var typeAlias = map[string]string{
	"dirpwm":         "hbridge_dirpwm",
	"pair":           "hbridge_pair",
	"4pwm":           "hbridge_4pwm",
	"hbridge_dirpwm": "hbridge_dirpwm",
	"hbridge_pair":   "hbridge_pair",
	"hbridge_4pwm":   "hbridge_4pwm",
}

// HALConfig converts the profile into the retained HAL configuration.
func (p Profile) HALConfig() types.HALConfig {
	cfg := types.HALConfig{Devices: make([]types.HALDevice, 0, len(p.Motors))}
	for _, m := range p.Motors {
		params := m.HBridgeParams
		params.Domain = strx.Coalesce(params.Domain, p.Domain)
		cfg.Devices = append(cfg.Devices, types.HALDevice{ID: m.ID, Type: m.Type, Params: params})
	}
	return cfg
}
