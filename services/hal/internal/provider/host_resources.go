package provider

import (
	"sync"

	"tinygo.org/x/drivers"

	"hbridge-go/errcode"
	"hbridge-go/services/hal/internal/core"
)

var _ core.ResourceRegistry = (*HostRegistry)(nil)

// HostConfig describes the simulated board.
type HostConfig struct {
	GPIOMin, GPIOMax int
	I2C              []string // bus ids, e.g. "i2c0"
}

// DefaultHostConfig mirrors an RP2040: GPIO0..28 and two I2C buses.
func DefaultHostConfig() HostConfig {
	return HostConfig{GPIOMin: 0, GPIOMax: 28, I2C: []string{"i2c0", "i2c1"}}
}

// HostRegistry is an in-memory registry for tests and the simulator. PWM
// channels share slices (pin>>1 & 7) the way the RP2040 does, so frequency
// conflicts behave like the hardware.
type HostRegistry struct {
	mu    sync.Mutex
	table pinTable
	pins  map[int]*hostPin
	buses map[core.ResourceID]*HostI2C

	// OnWrite observes every output write (level 0/1 for GPIO).
	OnWrite func(pin int, fn core.PinFunc, level uint16)
}

func NewHostRegistry(cfg HostConfig) *HostRegistry {
	r := &HostRegistry{
		table: newPinTable(cfg.GPIOMin, cfg.GPIOMax),
		pins:  map[int]*hostPin{},
		buses: map[core.ResourceID]*HostI2C{},
	}
	for _, id := range cfg.I2C {
		r.buses[core.ResourceID(id)] = NewHostI2C()
	}
	return r
}

func (r *HostRegistry) ClaimPin(devID string, n int, fn core.PinFunc) (core.PinHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.table.claim(devID, n, fn); err != nil {
		return nil, err
	}
	p := &hostPin{r: r, n: n, fn: fn}
	r.pins[n] = p
	return p, nil
}

func (r *HostRegistry) ReleasePin(devID string, n int) {
	r.mu.Lock()
	if _, ok := r.table.release(devID, n); !ok {
		r.mu.Unlock()
		return
	}
	p := r.pins[n]
	if p.registered {
		r.table.leave(pwmSlice(n))
		p.registered = false
	}
	delete(r.pins, n)
	r.mu.Unlock()
	p.write(0)
}

func (r *HostRegistry) ClaimI2C(devID string, id core.ResourceID) (drivers.I2C, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.buses[id]
	if b == nil {
		return nil, errcode.UnknownBus
	}
	return b, nil
}

// ReleaseI2C is a no-op: buses are shared and long-lived.
func (r *HostRegistry) ReleaseI2C(string, core.ResourceID) {}

// Bus returns the simulated I2C bus id.
func (r *HostRegistry) Bus(id string) *HostI2C {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buses[core.ResourceID(id)]
}

// Owner reports the device holding pin n.
func (r *HostRegistry) Owner(n int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.owner(n)
}

// Level reports the last level written to a claimed pin.
func (r *HostRegistry) Level(n int) (uint16, bool) {
	r.mu.Lock()
	p := r.pins[n]
	r.mu.Unlock()
	if p == nil {
		return 0, false
	}
	return p.Level(), true
}

// -----------------------------------------------------------------------------
// Pin handle (GPIO and PWM views share one struct)
// -----------------------------------------------------------------------------

type hostPin struct {
	r  *HostRegistry
	n  int
	fn core.PinFunc

	mu         sync.Mutex
	level      uint16
	top        uint16
	registered bool
}

func (p *hostPin) Pin() int    { return p.n }
func (p *hostPin) Number() int { return p.n }

func (p *hostPin) AsGPIO() core.GPIOHandle {
	if p.fn != core.FuncGPIOOut {
		panic("pin not claimed for GPIO")
	}
	return hostGPIO{p}
}

func (p *hostPin) AsPWM() core.PWMHandle {
	if p.fn != core.FuncPWM {
		panic("pin not claimed for PWM")
	}
	return hostPWM{p}
}

func (p *hostPin) write(level uint16) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
	if fn := p.r.OnWrite; fn != nil {
		fn(p.n, p.fn, level)
	}
}

func (p *hostPin) Level() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

type hostGPIO struct{ *hostPin }

func (g hostGPIO) ConfigureOutput(initial bool) error {
	g.Set(initial)
	return nil
}

func (g hostGPIO) Set(b bool) {
	var v uint16
	if b {
		v = 1
	}
	g.write(v)
}

func (g hostGPIO) Get() bool { return g.hostPin.Level() != 0 }

type hostPWM struct{ *hostPin }

// Configure joins the pin's slice at freqHz.
func (w hostPWM) Configure(freqHz uint64, top uint16) error {
	r := w.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.table.join(pwmSlice(w.n), freqHz, w.registered); err != nil {
		return err
	}
	w.registered = true
	w.mu.Lock()
	w.top = top
	w.mu.Unlock()
	return nil
}

func (w hostPWM) Set(level uint16) {
	w.mu.Lock()
	if w.top != 0 && level > w.top {
		level = w.top
	}
	w.mu.Unlock()
	w.write(level)
}
