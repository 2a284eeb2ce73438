// Package hbridge maps signed speed commands onto H-bridge output patterns.
//
// Three topologies share one Driver contract:
//
//	DirPWM   one direction pin and one PWM output (driver chip does the sequencing)
//	PairPWM  two complementary PWM channels, one per half bridge
//	FourPWM  four PWM outputs, one per switch
//
// An Enable decorator gates any of them with an enable pin.
//
// Switch naming follows the usual bridge drawing:
//
//	         Vcc
//	          |
//	     +----+----+
//	     |         |
//	 ---S1         S3---
//	     +--motor--+
//	 ---S2         S4---
//	     |         |
//	     +----+----+
//	          |
//	         GND
//
// S1+S2 (or S3+S4) on together shorts the supply. Every transition that could
// overlap them first drives the outgoing outputs to zero, waits the dead time,
// and only then drives the incoming outputs.
//
// Drivers are not safe for concurrent use. Callers serialise access to one
// driver; the only blocking is the dead-time wait inside a transition.
package hbridge

import (
	"math"
	"time"

	"hbridge-go/errcode"
	"hbridge-go/x/mathx"
	"hbridge-go/x/strconvx"
)

// MaxDuty is the largest duty accepted by PWM.Set (fully on).
const MaxDuty = 65535

// Construction defaults.
const (
	DefaultFreqHz   = 5000
	DefaultDeadTime = 1000 * time.Microsecond
	MaxFreqHz       = 1_000_000
)

// Speed is a signed duty command in [-MaxDuty, MaxDuty].
// Larger magnitudes are clamped to MaxDuty.
type Speed int32

const (
	// Stop means "no value": outputs released to high impedance, motor coasts.
	Stop Speed = math.MinInt32
	// Brake is the zero speed.
	Brake Speed = 0
)

func (s Speed) magnitude() uint16 {
	if s == Stop {
		return 0
	}
	return uint16(mathx.Min(mathx.Abs(int64(s)), MaxDuty))
}

func (s Speed) String() string {
	if s == Stop {
		return "stop"
	}
	return strconvx.Itoa(int(s))
}

// ---- Output contracts ----

// PWM is one duty-controlled output. Set must not block.
type PWM interface {
	Set(duty uint16)
	Release() error
}

// Pin is one digital output.
type Pin interface {
	Set(level bool)
	Release() error
}

// Provider opens raw pin numbers as outputs.
// OpenPWM returns an output already running at freqHz with duty 0.
type Provider interface {
	OpenPWM(pin int, freqHz uint32) (PWM, error)
	OpenPin(pin int, initial bool) (Pin, error)
}

// Driver is the contract shared by every topology.
type Driver interface {
	// Go runs exactly one transition for speed. Stop and 0 both stop.
	Go(speed Speed)
	Stop()
	SetReverse(on bool)
	Reverse() bool
	// Deinit releases every output, best effort. It is idempotent and
	// returns a *ReleaseError describing the outputs that failed.
	Deinit() error
	String() string
}

// Braker is implemented by drivers that can short the winding on one rail.
type Braker interface {
	BrakeHigh()
	BrakeLow()
}

// SingleCoaster is implemented by drivers that can hold one switch on alone.
type SingleCoaster interface {
	CoastSingle(n int) error
}

// ---- Output specs ----

type specKind uint8

const (
	specUnset specKind = iota
	specRaw
	specHandle
)

// PWMOut names a PWM output either by raw pin number or as a handle that the
// caller already configured. Handled outputs have no known initial state.
type PWMOut struct {
	kind specKind
	pin  int
	h    PWM
}

// PWMPin refers to a pin the driver opens through its Provider.
func PWMPin(n int) PWMOut { return PWMOut{kind: specRaw, pin: n} }

// PWMHandle adopts an already configured output.
func PWMHandle(h PWM) PWMOut { return PWMOut{kind: specHandle, pin: -1, h: h} }

// PinOut names a digital output by raw pin number or by handle.
type PinOut struct {
	kind specKind
	pin  int
	h    Pin
}

// GPIOPin names an output by MCU pin number; the factory opens it.
func GPIOPin(n int) PinOut { return PinOut{kind: specRaw, pin: n} }

// PinHandle wraps an output the caller already owns.
func PinHandle(h Pin) PinOut { return PinOut{kind: specHandle, pin: -1, h: h} }

func (o PinOut) IsZero() bool { return o.kind == specUnset }

// ---- Config ----

// Config is fixed at construction except Reverse, which has a setter.
type Config struct {
	Reverse  bool
	FreqHz   uint32
	DeadTime time.Duration
	// Sleep replaces time.Sleep for the dead-time wait.
	Sleep func(time.Duration)
}

// DefaultConfig returns 5000 Hz with a 1 ms dead time.
func DefaultConfig() Config {
	return Config{FreqHz: DefaultFreqHz, DeadTime: DefaultDeadTime}
}

func (c Config) validate(op string) error {
	if c.FreqHz == 0 || c.FreqHz > MaxFreqHz {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "frequency out of range"}
	}
	if c.DeadTime < 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "negative dead time"}
	}
	return nil
}

// ---- Shared driver state ----

type output struct {
	label  string
	rel    interface{ Release() error }
	opened bool // opened through the Provider rather than adopted
}

type bridge struct {
	kind     string
	reverse  bool
	deadTime time.Duration
	sleep    func(time.Duration)
	outs     []output
	released bool
}

func newBridge(kind string, cfg Config) bridge {
	sl := cfg.Sleep
	if sl == nil {
		sl = time.Sleep
	}
	return bridge{kind: kind, reverse: cfg.Reverse, deadTime: cfg.DeadTime, sleep: sl}
}

func (b *bridge) Reverse() bool { return b.reverse }

// SetReverse only affects later commands; outputs are not touched.
func (b *bridge) SetReverse(on bool) { b.reverse = on }

func (b *bridge) DeadTime() time.Duration { return b.deadTime }

func (b *bridge) live() bool { return !b.released }

func (b *bridge) wait() {
	if b.deadTime > 0 {
		b.sleep(b.deadTime)
	}
}

// dispatch selects the single routine for speed.
func (b *bridge) dispatch(s Speed, forward, backward func(uint16), stop func()) {
	switch {
	case s == Stop, s == 0:
		stop()
	case s > 0:
		if b.reverse {
			backward(s.magnitude())
		} else {
			forward(s.magnitude())
		}
	default:
		if b.reverse {
			forward(s.magnitude())
		} else {
			backward(s.magnitude())
		}
	}
}

func (b *bridge) deinit() error {
	if b.released {
		return nil
	}
	b.released = true
	var re *ReleaseError
	for _, o := range b.outs {
		if err := o.rel.Release(); err != nil {
			if re == nil {
				re = &ReleaseError{}
			}
			re.Failed = append(re.Failed, OutputError{Output: o.label, Err: err})
		}
	}
	if re == nil {
		return nil
	}
	return re
}

func (b *bridge) describe(extra string) string {
	return b.kind + "(" + extra + "reverse=" + strconvx.FormatBool(b.reverse) +
		", dead_time_us=" + strconvx.FormatInt(int64(b.deadTime/time.Microsecond), 10) + ")"
}

// ---- Output resolution ----

// opener resolves specs for one constructor and undoes partial work on error.
type opener struct {
	op     string
	p      Provider
	freqHz uint32
	b      *bridge
}

func (o *opener) pwm(label string, spec PWMOut) (PWM, error) {
	switch spec.kind {
	case specHandle:
		if spec.h == nil {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: o.op, Msg: label + ": nil handle"}
		}
		o.b.outs = append(o.b.outs, output{label: label, rel: spec.h})
		return spec.h, nil
	case specRaw:
		if o.p == nil {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: o.op, Msg: label + ": no provider for raw pin"}
		}
		h, err := o.p.OpenPWM(spec.pin, o.freqHz)
		if err != nil {
			return nil, &errcode.E{C: errcode.Of(err), Op: o.op, Msg: label + ": " + err.Error(), Err: err}
		}
		o.b.outs = append(o.b.outs, output{label: label, rel: h, opened: true})
		return h, nil
	default:
		return nil, &errcode.E{C: errcode.InvalidParams, Op: o.op, Msg: label + ": output not set"}
	}
}

func (o *opener) pin(label string, spec PinOut, initial bool) (Pin, error) {
	switch spec.kind {
	case specHandle:
		if spec.h == nil {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: o.op, Msg: label + ": nil handle"}
		}
		o.b.outs = append(o.b.outs, output{label: label, rel: spec.h})
		return spec.h, nil
	case specRaw:
		if o.p == nil {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: o.op, Msg: label + ": no provider for raw pin"}
		}
		h, err := o.p.OpenPin(spec.pin, initial)
		if err != nil {
			return nil, &errcode.E{C: errcode.Of(err), Op: o.op, Msg: label + ": " + err.Error(), Err: err}
		}
		o.b.outs = append(o.b.outs, output{label: label, rel: h, opened: true})
		return h, nil
	default:
		return nil, &errcode.E{C: errcode.InvalidParams, Op: o.op, Msg: label + ": output not set"}
	}
}

// abort releases the outputs this constructor opened. Adopted handles stay
// with the caller. The constructor error wins over release failures.
func (o *opener) abort() {
	for _, out := range o.b.outs {
		if out.opened {
			_ = out.rel.Release()
		}
	}
	o.b.outs = nil
	o.b.released = true
}
