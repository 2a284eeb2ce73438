// Package pca9685 drives the NXP PCA9685 16-channel, 12-bit PWM expander.
//
// The chip has one prescaler shared by all channels, so every channel runs at
// the frequency chosen by the first Configure (or the first OpenPWM). Channels
// are exposed as hbridge outputs so an expander can back any bridge driver.
//
// NOTE: the device is not safe for concurrent use. The HAL serialises access.
package pca9685

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"

	"hbridge-go/errcode"
	"hbridge-go/x/mathx"
)

// Address is the default 7-bit address with A0..A5 tied low.
const Address = 0x40

// Channels is the number of PWM outputs.
const Channels = 16

// Frequency bounds reachable with the internal 25 MHz oscillator.
const (
	MinFreqHz = 24
	MaxFreqHz = 1526
	oscHz     = 25_000_000
)

const (
	regMode1    = 0x00
	regMode2    = 0x01
	regLED0     = 0x06
	regPrescale = 0xFE

	mode1Restart = 0x80
	mode1AI      = 0x20
	mode1Sleep   = 0x10
	mode2OutDrv  = 0x04

	fullBit = 0x10 // bit 4 of ON_H / OFF_H
)

var ErrNotConfigured = errors.New("pca9685: not configured")

// Device is one PCA9685 on an I2C bus.
type Device struct {
	bus     drivers.I2C
	Address uint16

	freqHz  uint32
	claimed [Channels]bool
	buf     [5]byte

	// Sleep waits for the oscillator after wake-up. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// New creates a Device. It does not touch the bus.
func New(bus drivers.I2C, addr uint16) *Device {
	if addr == 0 {
		addr = Address
	}
	return &Device{bus: bus, Address: addr, Sleep: time.Sleep}
}

// Prescale returns the prescaler value for freqHz, clamped to the chip range.
func Prescale(freqHz uint32) uint8 {
	if freqHz == 0 {
		return 255
	}
	p := mathx.RoundDiv(uint32(oscHz), 4096*freqHz)
	if p > 0 {
		p--
	}
	return uint8(mathx.Clamp(p, 3, 255))
}

// Configure sets the output frequency and enables auto-increment with
// totem-pole outputs. All channels are left fully off.
func (d *Device) Configure(freqHz uint32) error {
	const op = "pca9685.configure"
	if freqHz < MinFreqHz || freqHz > MaxFreqHz {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "frequency out of range"}
	}
	steps := [][2]byte{
		{regMode1, mode1Sleep | mode1AI}, // prescale is only writable asleep
		{regPrescale, Prescale(freqHz)},
		{regMode2, mode2OutDrv},
		{regMode1, mode1AI},
	}
	for _, s := range steps {
		if err := d.write(s[0], s[1]); err != nil {
			return errcode.Wrap(errcode.IO, op, err)
		}
	}
	d.Sleep(500 * time.Microsecond)
	if err := d.write(regMode1, mode1AI|mode1Restart); err != nil {
		return errcode.Wrap(errcode.IO, op, err)
	}
	for ch := 0; ch < Channels; ch++ {
		if err := d.Set(ch, 0); err != nil {
			return errcode.Wrap(errcode.IO, op, err)
		}
	}
	d.freqHz = freqHz
	return nil
}

// FreqHz reports the configured frequency, or 0.
func (d *Device) FreqHz() uint32 { return d.freqHz }

// Set writes a 16-bit duty to channel ch. 0 and 0xFFFF use the chip's
// full-off and full-on bits; other values are truncated to 12 bits.
func (d *Device) Set(ch int, duty uint16) error {
	if ch < 0 || ch >= Channels {
		return errcode.UnknownPin
	}
	var on, off uint16
	switch duty {
	case 0:
		off = fullBit << 8
	case 0xFFFF:
		on = fullBit << 8
	default:
		off = duty >> 4
	}
	d.buf[0] = byte(regLED0 + 4*ch)
	d.buf[1] = byte(on)
	d.buf[2] = byte(on >> 8)
	d.buf[3] = byte(off)
	d.buf[4] = byte(off >> 8)
	return d.bus.Tx(d.Address, d.buf[:5], nil)
}

func (d *Device) write(reg, v byte) error {
	d.buf[0], d.buf[1] = reg, v
	return d.bus.Tx(d.Address, d.buf[:2], nil)
}

func (d *Device) read(reg byte) (byte, error) {
	var r [1]byte
	d.buf[0] = reg
	err := d.bus.Tx(d.Address, d.buf[:1], r[:])
	return r[0], err
}

// Sleeping reports whether the oscillator is off.
func (d *Device) Sleeping() (bool, error) {
	m, err := d.read(regMode1)
	return m&mode1Sleep != 0, err
}
