package hbridge

import "hbridge-go/errcode"

// FourPWM drives each bridge switch from its own PWM output.
//
//	| PWM1 | PWM2 | PWM3 | PWM4 | Function                             |
//	|:----:|:----:|:----:|:----:|--------------------------------------|
//	|  S1  |  S2  |  S3  |  S4  |                                      |
//	|------|------|------|------|--------------------------------------|
//	|   1  |   0  |   0  |  PWM | Motor moves forward                  |
//	|   0  |  PWM |   1  |   0  | Motor moves backward                 |
//	|   0  |   0  |   0  |   0  | Motor coasts (free runs)             |
//	|   1  |   0  |   0  |   0  | Single switch on, motor coasts       |
//	|   0  |   1  |   0  |   0  | -/-                                  |
//	|   0  |   0  |   1  |   0  | -/-                                  |
//	|   0  |   0  |   0  |   1  | -/-                                  |
//	|   1  |   0  |   1  |   0  | Brakes(decelerates) on the high side |
//	|   0  |   1  |   0  |   1  | Brakes(decelerates) on the low side  |
//	|   1  |   1  |   X  |   X  | Short circuit!                       |
//	|   X  |   X  |   1  |   1  | -/-                                  |
type FourPWM struct {
	bridge
	s [4]PWM // S1..S4
}

var (
	_ Driver        = (*FourPWM)(nil)
	_ Braker        = (*FourPWM)(nil)
	_ SingleCoaster = (*FourPWM)(nil)
)

// NewFourPWM opens pwm1..pwm4 (switches S1..S4) at duty 0. Adopted handles
// may be in any state until the first transition.
func NewFourPWM(p Provider, pwm1, pwm2, pwm3, pwm4 PWMOut, cfg Config) (*FourPWM, error) {
	const op = "hbridge.NewFourPWM"
	if err := cfg.validate(op); err != nil {
		return nil, err
	}
	d := &FourPWM{bridge: newBridge("FourPWM", cfg)}
	o := opener{op: op, p: p, freqHz: cfg.FreqHz, b: &d.bridge}

	labels := [4]string{"pwm1", "pwm2", "pwm3", "pwm4"}
	for i, spec := range [4]PWMOut{pwm1, pwm2, pwm3, pwm4} {
		h, err := o.pwm(labels[i], spec)
		if err != nil {
			o.abort()
			return nil, err
		}
		d.s[i] = h
	}
	return d, nil
}

// off zeroes the listed switches (1-based) then waits the dead time.
func (d *FourPWM) off(sw ...int) {
	for _, n := range sw {
		d.s[n-1].Set(0)
	}
	d.wait()
}

func (d *FourPWM) Go(s Speed) {
	if !d.live() {
		return
	}
	d.dispatch(s, d.Forward, d.Backward, d.Stop)
}

// Forward: S1 on, S4 chops.
func (d *FourPWM) Forward(duty uint16) {
	if !d.live() {
		return
	}
	d.off(3, 2)
	d.s[0].Set(MaxDuty)
	d.s[3].Set(duty)
}

// Backward: S3 on, S2 chops.
func (d *FourPWM) Backward(duty uint16) {
	if !d.live() {
		return
	}
	d.off(1, 4)
	d.s[2].Set(MaxDuty)
	d.s[1].Set(duty)
}

// Stop floats every switch.
func (d *FourPWM) Stop() {
	if !d.live() {
		return
	}
	d.off(1, 3, 2, 4)
}

func (d *FourPWM) BrakeHigh() {
	if !d.live() {
		return
	}
	d.off(2, 4)
	d.s[0].Set(MaxDuty)
	d.s[2].Set(MaxDuty)
}

func (d *FourPWM) BrakeLow() {
	if !d.live() {
		return
	}
	d.off(1, 3)
	d.s[1].Set(MaxDuty)
	d.s[3].Set(MaxDuty)
}

func (d *FourPWM) Coast1() { d.coast(1) }
func (d *FourPWM) Coast2() { d.coast(2) }
func (d *FourPWM) Coast3() { d.coast(3) }
func (d *FourPWM) Coast4() { d.coast(4) }

// CoastSingle holds switch n (1..4) fully on with the other three off.
func (d *FourPWM) CoastSingle(n int) error {
	if n < 1 || n > 4 {
		return errcode.InvalidParams
	}
	d.coast(n)
	return nil
}

func (d *FourPWM) coast(n int) {
	if !d.live() {
		return
	}
	others := make([]int, 0, 3)
	for i := 1; i <= 4; i++ {
		if i != n {
			others = append(others, i)
		}
	}
	d.off(others...)
	d.s[n-1].Set(MaxDuty)
}

func (d *FourPWM) Deinit() error  { return d.deinit() }
func (d *FourPWM) String() string { return d.describe("") }
