package hbridgedev

import (
	"context"
	"time"

	"hbridge-go/drivers/hbridge"
	"hbridge-go/errcode"
	"hbridge-go/services/hal/internal/core"
	"hbridge-go/types"
	"hbridge-go/x/strx"
	"hbridge-go/x/timex"
)

// Device types.
const (
	TypeDirPWM = "hbridge_dirpwm"
	TypePair   = "hbridge_pair"
	TypeFour   = "hbridge_4pwm"
)

// Expander channels cannot reach the MCU default frequency.
const expanderDefaultFreqHz = 1000

func init() {
	core.RegisterBuilder(TypeDirPWM, builder{topology: "dirpwm", pins: 2})
	core.RegisterBuilder(TypePair, builder{topology: "pair", pins: 2})
	core.RegisterBuilder(TypeFour, builder{topology: "4pwm", pins: 4})
}

type builder struct {
	topology string
	pins     int
}

func (b builder) Build(ctx context.Context, in core.BuilderInput) (core.Device, error) {
	p, code := core.As[types.HBridgeParams](in.Params)
	if code != "" {
		return nil, errcode.InvalidParams
	}
	if len(p.Pins) != b.pins {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "hbridge.build", Msg: b.topology + ": wrong pin count"}
	}

	cfg := hbridge.DefaultConfig()
	cfg.Reverse = p.Reverse
	if p.Expander != nil {
		cfg.FreqHz = strx.Coalesce(p.FreqHz, uint32(expanderDefaultFreqHz))
	} else {
		cfg.FreqHz = strx.Coalesce(p.FreqHz, uint32(hbridge.DefaultFreqHz))
	}
	if p.DeadTimeUs != nil {
		cfg.DeadTime = timex.Micros(*p.DeadTimeUs)
	}

	d := &Device{
		id:       in.ID,
		res:      in.Res,
		params:   p,
		topology: b.topology,
		deadTime: cfg.DeadTime,
		freqHz:   cfg.FreqHz,
		addr: core.CapAddr{
			Domain: strx.Coalesce(p.Domain, "motion"),
			Kind:   string(types.KindMotor),
			Name:   strx.Coalesce(p.Name, in.ID),
		},
	}

	var prov hbridge.Provider = regProvider{reg: in.Res.Reg, devID: in.ID}
	if p.Expander != nil {
		e, err := acquireExpander(in.Res.Reg, in.ID, *p.Expander)
		if err != nil {
			return nil, err
		}
		d.exp = e
		prov = expProvider{e: e}
	}

	drv, err := b.newDriver(prov, p.Pins, cfg)
	if err == nil && p.Enable != nil {
		// The enable pin always lives on the MCU.
		var en *hbridge.Enable
		en, err = hbridge.NewEnable(regProvider{reg: in.Res.Reg, devID: in.ID}, drv, hbridge.GPIOPin(*p.Enable))
		if err != nil {
			_ = drv.Deinit()
		} else {
			drv = en
		}
	}
	if err != nil {
		d.releaseExpander()
		return nil, err
	}
	d.drv = drv
	return d, nil
}

func (b builder) newDriver(prov hbridge.Provider, pins []int, cfg hbridge.Config) (hbridge.Driver, error) {
	switch b.topology {
	case "dirpwm":
		return hbridge.NewDirPWM(prov, hbridge.GPIOPin(pins[0]), hbridge.PWMPin(pins[1]), cfg)
	case "pair":
		return hbridge.NewPairPWM(prov, hbridge.PWMPin(pins[0]), hbridge.PWMPin(pins[1]), cfg)
	default:
		return hbridge.NewFourPWM(prov,
			hbridge.PWMPin(pins[0]), hbridge.PWMPin(pins[1]),
			hbridge.PWMPin(pins[2]), hbridge.PWMPin(pins[3]), cfg)
	}
}

// rampSteps picks one step per 20 ms, within 1..250.
func rampSteps(d time.Duration) uint16 {
	n := d / (20 * time.Millisecond)
	switch {
	case n < 1:
		return 1
	case n > 250:
		return 250
	}
	return uint16(n)
}
