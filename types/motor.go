package types

// ------------------------
// H-bridge device params
// ------------------------

// HBridgeParams configures hbridge_dirpwm (Pins: dir, pwm), hbridge_pair
// (Pins: a, b) and hbridge_4pwm (Pins: s1..s4).
type HBridgeParams struct {
	Pins       []int        `json:"pins" yaml:"pins"`
	Enable     *int         `json:"enable,omitempty" yaml:"enable,omitempty"`
	Reverse    bool         `json:"reverse,omitempty" yaml:"reverse,omitempty"`
	FreqHz     uint32       `json:"freq_hz,omitempty" yaml:"freq_hz,omitempty"`
	DeadTimeUs *uint32      `json:"dead_time_us,omitempty" yaml:"dead_time_us,omitempty"` // nil => default
	Expander   *ExpanderRef `json:"expander,omitempty" yaml:"expander,omitempty"`
	Domain     string       `json:"domain,omitempty" yaml:"domain,omitempty"`
	Name       string       `json:"name,omitempty" yaml:"name,omitempty"`
}

// ExpanderRef routes Pins to PCA9685 channels on an I2C bus.
type ExpanderRef struct {
	Bus  string `json:"bus" yaml:"bus"`   // e.g. "i2c0"
	Addr uint16 `json:"addr" yaml:"addr"` // 0 => 0x40
}

// ------------------------
// Motor capability payloads
// ------------------------

type MotorInfo struct {
	Topology   string `json:"topology"` // "dirpwm", "pair", "4pwm"
	Pins       []int  `json:"pins"`
	Enable     int    `json:"enable"` // -1 when absent
	FreqHz     uint32 `json:"freq_hz"`
	DeadTimeUs uint32 `json:"dead_time_us"`
	Expander   string `json:"expander,omitempty"`
	Brake      bool   `json:"brake"`        // brake control available
	CoastOne   bool   `json:"coast_single"` // coast_single available
}

// MotorMode is the last pattern applied.
type MotorMode string

const (
	ModeStopped   MotorMode = "stopped"
	ModeForward   MotorMode = "forward"
	ModeBackward  MotorMode = "backward"
	ModeBrakeHigh MotorMode = "brake_high"
	ModeBrakeLow  MotorMode = "brake_low"
	ModeCoastOne  MotorMode = "coast_single"
	ModeRamping   MotorMode = "ramping"
)

type MotorValue struct {
	Speed   int32     `json:"speed"` // signed duty, 0 when stopped
	Percent int       `json:"percent"`
	Mode    MotorMode `json:"mode"`
	Reverse bool      `json:"reverse"`
	Switch  int       `json:"switch,omitempty"` // for coast_single
}

// Controls

// MotorGo commands a signed duty. RampMs > 0 walks there linearly.
type MotorGo struct {
	Speed  int32  `json:"speed"`
	RampMs uint32 `json:"ramp_ms,omitempty"`
}

type MotorPercent struct {
	Percent int    `json:"percent"`
	RampMs  uint32 `json:"ramp_ms,omitempty"`
}

type MotorBrake struct {
	High bool `json:"high"`
}

type MotorReverse struct {
	On bool `json:"on"`
}

type MotorCoastSingle struct {
	Switch int `json:"switch"` // 1..4
}
