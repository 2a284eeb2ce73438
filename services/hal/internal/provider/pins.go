package provider

import (
	"hbridge-go/errcode"
	"hbridge-go/services/hal/internal/core"
)

// pinTable tracks pin ownership and the shared frequency of each PWM slice.
// Callers hold their registry lock.
type pinTable struct {
	min, max int
	owners   map[int]pinOwner
	slices   map[int]*sliceCfg
}

type pinOwner struct {
	devID string
	fn    core.PinFunc
}

// sliceCfg is one PWM slice: both of its channels run at freqHz.
type sliceCfg struct {
	freqHz uint64
	users  int
}

func newPinTable(min, max int) pinTable {
	return pinTable{min: min, max: max, owners: map[int]pinOwner{}, slices: map[int]*sliceCfg{}}
}

// pwmSlice is the RP2040 mapping of GPIO numbers onto the 8 PWM slices.
func pwmSlice(pin int) int { return (pin >> 1) & 7 }

func (t *pinTable) claim(devID string, n int, fn core.PinFunc) error {
	switch {
	case n < t.min || n > t.max:
		return errcode.UnknownPin
	case fn != core.FuncGPIOOut && fn != core.FuncPWM:
		return errcode.Unsupported
	}
	if _, inUse := t.owners[n]; inUse {
		return errcode.PinInUse
	}
	t.owners[n] = pinOwner{devID: devID, fn: fn}
	return nil
}

// release drops devID's claim on n and reports what it was claimed for.
func (t *pinTable) release(devID string, n int) (core.PinFunc, bool) {
	o, ok := t.owners[n]
	if !ok || o.devID != devID {
		return 0, false
	}
	delete(t.owners, n)
	return o.fn, true
}

// join registers a channel on slice s at freqHz. The first user picks the
// frequency; a sole user may retune; anyone else must match. retune reports
// whether the hardware needs reprogramming.
func (t *pinTable) join(s int, freqHz uint64, joined bool) (retune bool, err error) {
	sc := t.slices[s]
	switch {
	case sc == nil || sc.users == 0:
		t.slices[s] = &sliceCfg{freqHz: freqHz, users: 1}
		return true, nil
	case !joined:
		if sc.freqHz != freqHz {
			return false, errcode.Conflict
		}
		sc.users++
		return false, nil
	case sc.freqHz != freqHz:
		if sc.users != 1 {
			return false, errcode.Conflict
		}
		sc.freqHz = freqHz
		return true, nil
	}
	return false, nil
}

// leave unregisters one channel; the last one frees the slice frequency.
func (t *pinTable) leave(s int) {
	sc := t.slices[s]
	if sc == nil {
		return
	}
	if sc.users--; sc.users <= 0 {
		delete(t.slices, s)
	}
}

func (t *pinTable) owner(n int) (string, bool) {
	o, ok := t.owners[n]
	return o.devID, ok
}
