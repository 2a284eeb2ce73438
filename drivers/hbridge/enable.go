package hbridge

import "hbridge-go/errcode"

// Enable gates an inner driver with an enable pin. Enable is asserted before
// the inner driver moves and de-asserted only after it has stopped.
type Enable struct {
	inner    Driver
	en       Pin
	opened   bool
	released bool
}

var _ Driver = (*Enable)(nil)

// NewEnable wraps inner. A raw enable pin is opened high; an adopted pin may
// be in any state (an active-low Signal-style wrapper is fine).
func NewEnable(p Provider, inner Driver, en PinOut) (*Enable, error) {
	const op = "hbridge.NewEnable"
	if inner == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "nil inner driver"}
	}
	e := &Enable{inner: inner}
	switch en.kind {
	case specHandle:
		if en.h == nil {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "en: nil handle"}
		}
		e.en = en.h
	case specRaw:
		if p == nil {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "en: no provider for raw pin"}
		}
		h, err := p.OpenPin(en.pin, true)
		if err != nil {
			return nil, &errcode.E{C: errcode.Of(err), Op: op, Msg: "en: " + err.Error(), Err: err}
		}
		e.en, e.opened = h, true
	default:
		return nil, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "en: output not set"}
	}
	return e, nil
}

// Inner returns the gated driver.
func (e *Enable) Inner() Driver { return e.inner }

func (e *Enable) Go(s Speed) {
	if e.released {
		return
	}
	e.en.Set(s != 0 && s != Stop)
	e.inner.Go(s)
}

func (e *Enable) Stop() {
	if e.released {
		return
	}
	e.inner.Stop()
	e.en.Set(false)
}

func (e *Enable) SetReverse(on bool) { e.inner.SetReverse(on) }
func (e *Enable) Reverse() bool      { return e.inner.Reverse() }

// BrakeHigh and BrakeLow keep the bridge enabled so the short takes effect.
// They are no-ops when the inner driver cannot brake.
func (e *Enable) BrakeHigh() { e.brake(true) }
func (e *Enable) BrakeLow()  { e.brake(false) }

func (e *Enable) brake(high bool) {
	b, ok := e.inner.(Braker)
	if e.released || !ok {
		return
	}
	e.en.Set(true)
	if high {
		b.BrakeHigh()
	} else {
		b.BrakeLow()
	}
}

func (e *Enable) CoastSingle(n int) error {
	c, ok := e.inner.(SingleCoaster)
	if !ok {
		return errcode.Unsupported
	}
	if e.released {
		return errcode.Released
	}
	e.en.Set(true)
	return c.CoastSingle(n)
}

// Deinit releases the inner driver first, then the enable pin.
func (e *Enable) Deinit() error {
	if e.released {
		return nil
	}
	e.released = true
	innerErr := e.inner.Deinit()
	var enErr error
	if err := e.en.Release(); err != nil {
		enErr = &ReleaseError{Failed: []OutputError{{Output: "en", Err: err}}}
	}
	return mergeRelease(innerErr, enErr)
}

func (e *Enable) String() string { return "Enable(" + e.inner.String() + ")" }

// ApplyBrake shorts the winding on the high or low rail when d supports it.
func ApplyBrake(d Driver, high bool) error {
	if e, ok := d.(*Enable); ok {
		if _, can := e.inner.(Braker); !can {
			return errcode.Unsupported
		}
	}
	b, ok := d.(Braker)
	if !ok {
		return errcode.Unsupported
	}
	if high {
		b.BrakeHigh()
	} else {
		b.BrakeLow()
	}
	return nil
}

// CoastSingle holds one switch on when d supports it.
func CoastSingle(d Driver, n int) error {
	c, ok := d.(SingleCoaster)
	if !ok {
		return errcode.Unsupported
	}
	return c.CoastSingle(n)
}
