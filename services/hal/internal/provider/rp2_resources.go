//go:build rp2040

package provider

import (
	"sync"
	"time"

	"machine"

	"tinygo.org/x/drivers"

	"hbridge-go/errcode"
	"hbridge-go/services/hal/internal/core"
	"hbridge-go/x/mathx"
	"hbridge-go/x/timex"
)

var _ core.ResourceRegistry = (*RP2Registry)(nil)

// Plan is the board wiring: the usable GPIO range and the I2C buses.
type Plan struct {
	GPIOMin, GPIOMax int
	I2C              []I2CPlan
}

type I2CPlan struct {
	ID  string // "i2c0" or "i2c1"
	SDA int
	SCL int
	Hz  uint32
}

const i2cTimeout = 250 * time.Millisecond

// RP2Registry hands out RP2040 pins and I2C buses to HAL devices.
type RP2Registry struct {
	mu    sync.Mutex
	table pinTable
	pins  map[int]*rp2Pin
	buses map[core.ResourceID]*rp2Bus
}

func NewRP2Registry(plan Plan) *RP2Registry {
	r := &RP2Registry{
		table: newPinTable(plan.GPIOMin, plan.GPIOMax),
		pins:  map[int]*rp2Pin{},
		buses: map[core.ResourceID]*rp2Bus{},
	}
	for _, bp := range plan.I2C {
		b, err := openBus(bp)
		if err != nil {
			println("[hal] i2c", bp.ID, "unavailable:", err.Error())
			continue
		}
		r.buses[core.ResourceID(bp.ID)] = b
	}
	return r
}

func (r *RP2Registry) ClaimPin(devID string, n int, fn core.PinFunc) (core.PinHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var slice uint8
	if fn == core.FuncPWM {
		s, err := machine.PWMPeripheral(machine.Pin(n))
		if err != nil {
			return nil, errcode.Unsupported
		}
		slice = s
	}
	if err := r.table.claim(devID, n, fn); err != nil {
		return nil, err
	}
	p := &rp2Pin{r: r, n: n, fn: fn, hw: machine.Pin(n), slice: slice}
	r.pins[n] = p
	return p, nil
}

// ReleasePin drives the output inactive and returns the pin to input.
func (r *RP2Registry) ReleasePin(devID string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.table.release(devID, n)
	if !ok {
		return
	}
	p := r.pins[n]
	delete(r.pins, n)
	switch fn {
	case core.FuncPWM:
		p.setDuty(0)
		if p.joined {
			r.table.leave(int(p.slice))
			p.joined = false
		}
	case core.FuncGPIOOut:
		p.hw.Low()
	}
	p.hw.Configure(machine.PinConfig{Mode: machine.PinInput})
}

func (r *RP2Registry) ClaimI2C(devID string, id core.ResourceID) (drivers.I2C, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.buses[id]
	if b == nil {
		return nil, errcode.UnknownBus
	}
	return b, nil
}

// ReleaseI2C is a no-op: buses stay configured for the life of the board.
func (r *RP2Registry) ReleaseI2C(string, core.ResourceID) {}

// Close stops the I2C workers.
func (r *RP2Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, b := range r.buses {
		close(b.quit)
		delete(r.buses, id)
	}
}

// -----------------------------------------------------------------------------
// Pins
// -----------------------------------------------------------------------------

// pwmSliceHW is the subset of machine's PWM group used here.
type pwmSliceHW interface {
	Configure(cfg machine.PWMConfig) error
	Top() uint32
	Set(channel uint8, value uint32)
}

var pwmSlices = [8]pwmSliceHW{
	machine.PWM0, machine.PWM1, machine.PWM2, machine.PWM3,
	machine.PWM4, machine.PWM5, machine.PWM6, machine.PWM7,
}

// rp2Pin is one claimed pin. GPIO and PWM views share it.
type rp2Pin struct {
	r     *RP2Registry
	n     int
	fn    core.PinFunc
	hw    machine.Pin
	slice uint8

	mu     sync.Mutex
	top    uint16 // logical full scale
	hwTop  uint32
	level  uint16
	joined bool
}

func (p *rp2Pin) Pin() int    { return p.n }
func (p *rp2Pin) Number() int { return p.n }

func (p *rp2Pin) AsGPIO() core.GPIOHandle {
	if p.fn != core.FuncGPIOOut {
		panic("pin not claimed for GPIO")
	}
	return rp2GPIO{p}
}

func (p *rp2Pin) AsPWM() core.PWMHandle {
	if p.fn != core.FuncPWM {
		panic("pin not claimed for PWM")
	}
	return rp2PWM{p}
}

// channel is A for even pins and B for odd ones.
func (p *rp2Pin) channel() uint8 { return uint8(p.n & 1) }

func (p *rp2Pin) setDuty(level uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	hw := pwmSlices[p.slice]
	if p.top == 0 || p.hwTop == 0 {
		hw.Set(p.channel(), 0)
		p.level = 0
		return
	}
	level = mathx.Min(level, p.top)
	hw.Set(p.channel(), uint32(uint64(level)*uint64(p.hwTop)/uint64(p.top)))
	p.level = level
}

type rp2GPIO struct{ *rp2Pin }

// ConfigureOutput latches the level before switching direction so the pin
// does not glitch.
func (g rp2GPIO) ConfigureOutput(initial bool) error {
	g.hw.Set(initial)
	g.hw.Configure(machine.PinConfig{Mode: machine.PinOutput})
	g.hw.Set(initial)
	return nil
}

func (g rp2GPIO) Set(b bool) { g.hw.Set(b) }
func (g rp2GPIO) Get() bool  { return g.hw.Get() }

type rp2PWM struct{ *rp2Pin }

func (w rp2PWM) Configure(freqHz uint64, top uint16) error {
	freqHz = mathx.Max(freqHz, 1)
	r := w.r
	r.mu.Lock()
	retune, err := r.table.join(int(w.slice), freqHz, w.joined)
	if err == nil && retune {
		period := timex.PeriodNs(uint32(mathx.Min(freqHz, uint64(^uint32(0)))))
		err = pwmSlices[w.slice].Configure(machine.PWMConfig{Period: period})
	}
	if err == nil {
		w.joined = true
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.top = mathx.Max(top, 1)
	w.hwTop = pwmSlices[w.slice].Top()
	w.mu.Unlock()
	w.setDuty(0)
	w.hw.Configure(machine.PinConfig{Mode: machine.PinPWM})
	return nil
}

func (w rp2PWM) Set(level uint16) { w.setDuty(level) }

func (w rp2PWM) Level() uint16 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.level
}

// -----------------------------------------------------------------------------
// I2C: one goroutine per bus serialises transfers
// -----------------------------------------------------------------------------

type i2cJob struct {
	addr uint16
	w, r []byte
	done chan error
}

type rp2Bus struct {
	hw   *machine.I2C
	jobs chan i2cJob
	quit chan struct{}
}

var _ drivers.I2C = (*rp2Bus)(nil)

func openBus(bp I2CPlan) (*rp2Bus, error) {
	var hw *machine.I2C
	switch bp.ID {
	case "i2c0":
		hw = machine.I2C0
	case "i2c1":
		hw = machine.I2C1
	default:
		return nil, errcode.UnknownBus
	}
	cfg := machine.I2CConfig{SDA: machine.Pin(bp.SDA), SCL: machine.Pin(bp.SCL), Frequency: bp.Hz}
	if err := hw.Configure(cfg); err != nil {
		return nil, err
	}
	b := &rp2Bus{hw: hw, jobs: make(chan i2cJob, 16), quit: make(chan struct{})}
	go b.serve()
	return b, nil
}

func (b *rp2Bus) serve() {
	for {
		select {
		case j := <-b.jobs:
			j.done <- b.hw.Tx(j.addr, j.w, j.r)
		case <-b.quit:
			return
		}
	}
}

// Tx queues one transfer and waits for it, both within i2cTimeout.
func (b *rp2Bus) Tx(addr uint16, w, r []byte) error {
	j := i2cJob{addr: addr, w: w, r: r, done: make(chan error, 1)}
	t := time.NewTimer(i2cTimeout)
	defer t.Stop()
	select {
	case b.jobs <- j:
	case <-t.C:
		return errcode.Busy
	}
	select {
	case err := <-j.done:
		return err
	case <-t.C:
		return errcode.Timeout
	}
}
