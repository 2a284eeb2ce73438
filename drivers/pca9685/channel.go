package pca9685

import (
	"hbridge-go/drivers/hbridge"
	"hbridge-go/errcode"
)

var _ hbridge.Provider = (*Device)(nil)

// Channel is one claimed output. It satisfies hbridge.PWM and hbridge.Pin.
type Channel struct {
	d        *Device
	n        int
	err      error
	released bool
}

// OpenPWM claims channel pin. The first open configures the chip at freqHz;
// later opens must ask for the same frequency.
func (d *Device) OpenPWM(pin int, freqHz uint32) (hbridge.PWM, error) {
	c, err := d.claim(pin, freqHz)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// OpenPin claims channel pin as a digital output using full-on/full-off.
// An unconfigured chip is brought up at its default 200 Hz.
func (d *Device) OpenPin(pin int, initial bool) (hbridge.Pin, error) {
	c, err := d.claim(pin, 0)
	if err != nil {
		return nil, err
	}
	if initial {
		c.Set(0xFFFF)
	}
	return (*pinChannel)(c), nil
}

func (d *Device) claim(pin int, freqHz uint32) (*Channel, error) {
	const op = "pca9685.open"
	if pin < 0 || pin >= Channels {
		return nil, errcode.UnknownPin
	}
	if d.claimed[pin] {
		return nil, errcode.PinInUse
	}
	switch {
	case d.freqHz == 0:
		if freqHz == 0 {
			freqHz = 200
		}
		if err := d.Configure(freqHz); err != nil {
			return nil, err
		}
	case freqHz != 0 && freqHz != d.freqHz:
		return nil, &errcode.E{C: errcode.Conflict, Op: op, Msg: "expander already runs at another frequency"}
	}
	d.claimed[pin] = true
	return &Channel{d: d, n: pin}, nil
}

// Set writes duty. Bus errors are kept for Err.
func (c *Channel) Set(duty uint16) {
	if c.released {
		return
	}
	if err := c.d.Set(c.n, duty); err != nil {
		c.err = err
	}
}

// Err returns the last bus error seen by Set.
func (c *Channel) Err() error { return c.err }

// Number is the channel index.
func (c *Channel) Number() int { return c.n }

// Release drives the channel fully off and frees the claim.
func (c *Channel) Release() error {
	if c.released {
		return nil
	}
	c.released = true
	c.d.claimed[c.n] = false
	return c.d.Set(c.n, 0)
}

// pinChannel adapts a Channel to hbridge.Pin.
type pinChannel Channel

func (p *pinChannel) Set(level bool) {
	var v uint16
	if level {
		v = 0xFFFF
	}
	(*Channel)(p).Set(v)
}

func (p *pinChannel) Release() error { return (*Channel)(p).Release() }
