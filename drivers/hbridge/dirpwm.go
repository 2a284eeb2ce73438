package hbridge

// DirPWM drives a bridge chip with one direction input and one PWM input.
//
//	| Dir | PWM | Function       |
//	|:---:|:---:|----------------|
//	|  1  | PWM | Motor forward  |
//	|  0  | PWM | Motor backward |
//	|  X  |  0  | Park brake     |
//
// The chip sequences its own switches. The driver only guarantees that the
// direction never flips while PWM is non-zero: on a direction change PWM is
// dropped to 0, the dead time elapses, then the pin flips.
type DirPWM struct {
	bridge
	dir Pin
	pwm PWM

	dirKnown bool
	dirLevel bool
}

var _ Driver = (*DirPWM)(nil)

// NewDirPWM opens dir (low at start) and pwm (duty 0 at start).
func NewDirPWM(p Provider, dir PinOut, pwm PWMOut, cfg Config) (*DirPWM, error) {
	const op = "hbridge.NewDirPWM"
	if err := cfg.validate(op); err != nil {
		return nil, err
	}
	d := &DirPWM{bridge: newBridge("DirPWM", cfg)}
	o := opener{op: op, p: p, freqHz: cfg.FreqHz, b: &d.bridge}

	var err error
	if d.dir, err = o.pin("dir", dir, false); err != nil {
		o.abort()
		return nil, err
	}
	// A freshly opened pin is known to be low.
	d.dirKnown = dir.kind == specRaw
	if d.pwm, err = o.pwm("pwm", pwm); err != nil {
		o.abort()
		return nil, err
	}
	return d, nil
}

func (d *DirPWM) Go(s Speed) {
	if !d.live() {
		return
	}
	d.dispatch(s, d.Forward, d.Backward, d.Stop)
}

func (d *DirPWM) Forward(duty uint16)  { d.drive(true, duty) }
func (d *DirPWM) Backward(duty uint16) { d.drive(false, duty) }

func (d *DirPWM) drive(level bool, duty uint16) {
	if !d.live() {
		return
	}
	if !d.dirKnown || d.dirLevel != level {
		d.pwm.Set(0)
		d.wait()
		d.dir.Set(level)
		d.dirKnown, d.dirLevel = true, level
	}
	d.pwm.Set(duty)
}

// Stop drops PWM to 0 (park brake on most chips); dir is left as is.
func (d *DirPWM) Stop() {
	if !d.live() {
		return
	}
	d.pwm.Set(0)
}

func (d *DirPWM) Deinit() error  { return d.deinit() }
func (d *DirPWM) String() string { return d.describe("") }
