package hbridgedev

import (
	"sync"

	"hbridge-go/drivers/hbridge"
	"hbridge-go/drivers/pca9685"
	"hbridge-go/services/hal/internal/core"
	"hbridge-go/types"
	"hbridge-go/x/strconvx"
)

// ---- MCU pins through the resource registry ----

type regProvider struct {
	reg   core.ResourceRegistry
	devID string
}

var _ hbridge.Provider = regProvider{}

func (p regProvider) OpenPWM(pin int, freqHz uint32) (hbridge.PWM, error) {
	ph, err := p.reg.ClaimPin(p.devID, pin, core.FuncPWM)
	if err != nil {
		return nil, err
	}
	h := ph.AsPWM()
	if err := h.Configure(uint64(freqHz), hbridge.MaxDuty); err != nil {
		p.reg.ReleasePin(p.devID, pin)
		return nil, err
	}
	h.Set(0)
	return &regPWM{h: h, rel: p.releaser(pin)}, nil
}

func (p regProvider) OpenPin(pin int, initial bool) (hbridge.Pin, error) {
	ph, err := p.reg.ClaimPin(p.devID, pin, core.FuncGPIOOut)
	if err != nil {
		return nil, err
	}
	g := ph.AsGPIO()
	if err := g.ConfigureOutput(initial); err != nil {
		p.reg.ReleasePin(p.devID, pin)
		return nil, err
	}
	return &regPin{g: g, rel: p.releaser(pin)}, nil
}

func (p regProvider) releaser(pin int) func() {
	var once sync.Once
	return func() { once.Do(func() { p.reg.ReleasePin(p.devID, pin) }) }
}

type regPWM struct {
	h   core.PWMHandle
	rel func()
}

func (o *regPWM) Set(duty uint16) { o.h.Set(duty) }
func (o *regPWM) Release() error  { o.rel(); return nil }

type regPin struct {
	g   core.GPIOHandle
	rel func()
}

func (o *regPin) Set(level bool) { o.g.Set(level) }
func (o *regPin) Release() error { o.rel(); return nil }

// ---- PCA9685 expanders, shared by every device on the same bus/address ----

type expKey struct {
	reg  core.ResourceRegistry
	name string
}

type expander struct {
	mu   sync.Mutex // serialises chip access across device workers
	key  expKey
	dev  *pca9685.Device
	refs int
}

var expanders = struct {
	mu sync.Mutex
	m  map[expKey]*expander
}{m: map[expKey]*expander{}}

func expanderKey(ref types.ExpanderRef) string {
	addr := ref.Addr
	if addr == 0 {
		addr = pca9685.Address
	}
	return ref.Bus + "@0x" + strconvx.FormatUint(uint64(addr), 16)
}

func acquireExpander(reg core.ResourceRegistry, devID string, ref types.ExpanderRef) (*expander, error) {
	i2c, err := reg.ClaimI2C(devID, core.ResourceID(ref.Bus))
	if err != nil {
		return nil, err
	}
	key := expKey{reg: reg, name: expanderKey(ref)}
	expanders.mu.Lock()
	defer expanders.mu.Unlock()
	e := expanders.m[key]
	if e == nil {
		e = &expander{key: key, dev: pca9685.New(i2c, ref.Addr)}
		expanders.m[key] = e
	}
	e.refs++
	return e, nil
}

func (e *expander) release(reg core.ResourceRegistry, devID string, bus string) {
	expanders.mu.Lock()
	e.refs--
	if e.refs <= 0 {
		delete(expanders.m, e.key)
	}
	expanders.mu.Unlock()
	reg.ReleaseI2C(devID, core.ResourceID(bus))
}

// expProvider opens expander channels; every chip access holds e.mu.
type expProvider struct{ e *expander }

func (p expProvider) OpenPWM(ch int, freqHz uint32) (hbridge.PWM, error) {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	h, err := p.e.dev.OpenPWM(ch, freqHz)
	if err != nil {
		return nil, err
	}
	return &lockedPWM{e: p.e, h: h}, nil
}

func (p expProvider) OpenPin(ch int, initial bool) (hbridge.Pin, error) {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	h, err := p.e.dev.OpenPin(ch, initial)
	if err != nil {
		return nil, err
	}
	return &lockedPin{e: p.e, h: h}, nil
}

type lockedPWM struct {
	e *expander
	h hbridge.PWM
}

func (o *lockedPWM) Set(duty uint16) {
	o.e.mu.Lock()
	o.h.Set(duty)
	o.e.mu.Unlock()
}

func (o *lockedPWM) Release() error {
	o.e.mu.Lock()
	defer o.e.mu.Unlock()
	return o.h.Release()
}

type lockedPin struct {
	e *expander
	h hbridge.Pin
}

func (o *lockedPin) Set(level bool) {
	o.e.mu.Lock()
	o.h.Set(level)
	o.e.mu.Unlock()
}

func (o *lockedPin) Release() error {
	o.e.mu.Lock()
	defer o.e.mu.Unlock()
	return o.h.Release()
}
