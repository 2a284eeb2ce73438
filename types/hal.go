// Package types holds the payloads exchanged on the bus.
package types

// HALState is retained on hal/state.
//
// Level moves idle -> ready -> stopped. Status is empty when every
// configured device built, "build_failed" otherwise, and
// "context_cancelled" once stopped.
type HALState struct {
	Level  string `json:"level"`
	Status string `json:"status"`
	TS     int64  `json:"ts_ns"`
}

// Link is the health of one capability.
type Link string

const (
	LinkUp       Link = "up"       // last operation succeeded
	LinkDown     Link = "down"     // built but idle, or withdrawn
	LinkDegraded Link = "degraded" // last operation failed
)

// CapabilityStatus is retained on hal/cap/.../status.
type CapabilityStatus struct {
	Link  Link   `json:"link"`
	TS    int64  `json:"ts_ns"`
	Error string `json:"error,omitempty"` // errcode string
}

// Kind is the capability class in hal/cap/<domain>/<kind>/<name>.
type Kind string

const KindMotor Kind = "motor"

// HALConfig is retained on config/hal. Publishing a new one reconciles the
// running devices with it.
type HALConfig struct {
	Devices []HALDevice `json:"devices" yaml:"devices"`
}

type HALDevice struct {
	ID     string `json:"id" yaml:"id"`
	Type   string `json:"type" yaml:"type"`     // hbridge_dirpwm, hbridge_pair, hbridge_4pwm
	Params any    `json:"params" yaml:"params"` // HBridgeParams for the motor types
}

// Control replies. OK distinguishes them when decoded generically.
type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Info is retained on hal/cap/.../info.
type Info struct {
	SchemaVersion int    `json:"schema_version"`
	Driver        string `json:"driver"`
	Detail        any    `json:"detail,omitempty"` // MotorInfo for motors
}

// ServiceState is the retained link state of an auxiliary service such as
// the console.
type ServiceState struct {
	Level  string `json:"level"` // "idle", "up", "degraded", "error"
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	TS     int64  `json:"ts_ns"`
}

// HeartbeatConfig is retained on config/heartbeat.
type HeartbeatConfig struct {
	IntervalMs uint32 `json:"interval_ms" yaml:"interval_ms"` // 0 keeps the current interval
}
