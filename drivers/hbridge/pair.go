package hbridge

// PairPWM drives a bridge from two complementary PWM channels: channel A
// switches S1 with S2 as its complement, channel B switches S3 with S4. The
// peripheral inserts the dead band between a channel's own complementary
// outputs; the driver orders the two channels.
//
//	|  A  |  B  | Function                       |
//	|:---:|:---:|--------------------------------|
//	| PWM |  0  | Motor forward  (S1=PWM, S4 on) |
//	|  0  | PWM | Motor backward (S3=PWM, S2 on) |
//	|  0  |  0  | Stop: both low sides held on   |
//	|  1  |  1  | Brake on the high side         |
//
// A zero duty holds the low-side switch on, so Stop and BrakeLow settle to
// the same state on this topology.
type PairPWM struct {
	bridge
	a, b PWM
}

var (
	_ Driver = (*PairPWM)(nil)
	_ Braker = (*PairPWM)(nil)
)

// NewPairPWM opens both channels at duty 0.
func NewPairPWM(p Provider, a, b PWMOut, cfg Config) (*PairPWM, error) {
	const op = "hbridge.NewPairPWM"
	if err := cfg.validate(op); err != nil {
		return nil, err
	}
	d := &PairPWM{bridge: newBridge("PairPWM", cfg)}
	o := opener{op: op, p: p, freqHz: cfg.FreqHz, b: &d.bridge}

	var err error
	if d.a, err = o.pwm("a", a); err != nil {
		o.abort()
		return nil, err
	}
	if d.b, err = o.pwm("b", b); err != nil {
		o.abort()
		return nil, err
	}
	return d, nil
}

func (d *PairPWM) Go(s Speed) {
	if !d.live() {
		return
	}
	d.dispatch(s, d.Forward, d.Backward, d.Stop)
}

func (d *PairPWM) Forward(duty uint16) {
	if !d.live() {
		return
	}
	d.b.Set(0)
	d.wait()
	d.a.Set(duty)
}

func (d *PairPWM) Backward(duty uint16) {
	if !d.live() {
		return
	}
	d.a.Set(0)
	d.wait()
	d.b.Set(duty)
}

func (d *PairPWM) Stop() {
	if !d.live() {
		return
	}
	d.a.Set(0)
	d.b.Set(0)
	d.wait()
}

func (d *PairPWM) BrakeHigh() {
	if !d.live() {
		return
	}
	d.a.Set(0)
	d.b.Set(0)
	d.wait()
	d.a.Set(MaxDuty)
	d.b.Set(MaxDuty)
}

func (d *PairPWM) BrakeLow() { d.Stop() }

func (d *PairPWM) Deinit() error  { return d.deinit() }
func (d *PairPWM) String() string { return d.describe("") }
