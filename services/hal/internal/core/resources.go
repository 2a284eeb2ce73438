package core

import "tinygo.org/x/drivers"

type ResourceID string // e.g. "i2c0"

// ---- Pins ----

// PinFunc is the function a pin is claimed for.
type PinFunc uint8

const (
	FuncGPIOOut PinFunc = iota
	FuncPWM
)

func (f PinFunc) String() string {
	if f == FuncPWM {
		return "pwm"
	}
	return "gpio_out"
}

type GPIOHandle interface {
	Number() int
	ConfigureOutput(initial bool) error
	Set(bool)
	Get() bool
}

// PWMHandle is one PWM channel. Levels are logical, 0..top.
type PWMHandle interface {
	Number() int
	Configure(freqHz uint64, top uint16) error
	Set(level uint16)
	Level() uint16
}

// PinHandle is a claimed pin viewed through the function it was claimed for.
// AsGPIO/AsPWM panic when called for the other function.
type PinHandle interface {
	Pin() int
	AsGPIO() GPIOHandle
	AsPWM() PWMHandle
}

// ---- Device → HAL telemetry ----
// An Event is published to .../value (retained). Err, when non-empty,
// publishes only .../status=degraded.

type Event struct {
	Addr    CapAddr
	Payload any
	TS      int64 // Unix ns
	Err     string
}

type EventEmitter interface {
	// Emit must not block; false indicates a drop under pressure.
	Emit(ev Event) bool
}

// ---- HAL-injected resources ----

type Resources struct {
	Reg ResourceRegistry
	Pub EventEmitter // provided by HAL
}

type ResourceRegistry interface {
	// ClaimPin fails with errcode.UnknownPin outside the board range,
	// errcode.PinInUse when another device holds it, and errcode.Conflict
	// when a PWM slice already runs at another frequency (reported by
	// PWMHandle.Configure).
	ClaimPin(devID string, n int, fn PinFunc) (PinHandle, error)
	// ReleasePin drives the pin inactive and returns it to input. Releasing
	// a pin the device does not own is a no-op.
	ReleasePin(devID string, n int)

	ClaimI2C(devID string, id ResourceID) (drivers.I2C, error)
	ReleaseI2C(devID string, id ResourceID)
}
