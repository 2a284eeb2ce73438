// Package hbridgedev exposes one H-bridge motor driver as a HAL motor
// capability at hal/cap/<domain>/motor/<name>.
package hbridgedev

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"hbridge-go/drivers/hbridge"
	"hbridge-go/errcode"
	"hbridge-go/services/hal/internal/core"
	"hbridge-go/types"
	"hbridge-go/x/mathx"
	"hbridge-go/x/ramp"
	"hbridge-go/x/timex"
)

type op uint8

const (
	opGo op = iota
	opStop
	opBrake
	opReverse
	opCoastSingle
)

// closeWait bounds how long Close waits for the worker on top of the dead
// time of the transition it may be in.
const closeWait = 300 * time.Millisecond

type request struct {
	op     op
	speed  hbridge.Speed
	rampMs uint32
	flag   bool // brake high / reverse on
	n      int  // coast_single switch
}

// Device is a single-goroutine HAL device. The worker owns the driver; the
// HAL goroutine only validates and enqueues.
type Device struct {
	id       string
	addr     core.CapAddr
	res      core.Resources
	params   types.HBridgeParams
	topology string
	freqHz   uint32
	deadTime time.Duration

	drv hbridge.Driver
	exp *expander

	reqCh    chan request
	quit     chan struct{} // closed by Close
	quitOnce sync.Once
	done     chan struct{} // closed when the worker has returned
	alive    atomic.Bool
	muted    atomic.Bool // set by Close; the HAL has withdrawn the capability
	cleanup  sync.Once
	closeErr error

	// Owned by the worker only:
	speed   hbridge.Speed
	mode    types.MotorMode
	sw      int
	pending *request
}

func (d *Device) ID() string { return d.id }

func (d *Device) canBrake() bool {
	if e, ok := d.drv.(*hbridge.Enable); ok {
		_, can := e.Inner().(hbridge.Braker)
		return can
	}
	_, ok := d.drv.(hbridge.Braker)
	return ok
}

func (d *Device) canCoastSingle() bool {
	_, ok := d.drv.(hbridge.SingleCoaster)
	if e, isEn := d.drv.(*hbridge.Enable); isEn {
		_, ok = e.Inner().(hbridge.SingleCoaster)
	}
	return ok
}

func (d *Device) Capabilities() []core.CapabilitySpec {
	en := -1
	if d.params.Enable != nil {
		en = *d.params.Enable
	}
	var exp string
	if d.exp != nil {
		exp = d.exp.key.name
	}
	return []core.CapabilitySpec{{
		Domain: d.addr.Domain,
		Kind:   types.KindMotor,
		Name:   d.addr.Name,
		Info: types.Info{
			SchemaVersion: 1,
			Driver:        d.drv.String(),
			Detail: types.MotorInfo{
				Topology:   d.topology,
				Pins:       append([]int(nil), d.params.Pins...),
				Enable:     en,
				FreqHz:     d.freqHz,
				DeadTimeUs: uint32(d.deadTime / time.Microsecond),
				Expander:   exp,
				Brake:      d.canBrake(),
				CoastOne:   d.canCoastSingle(),
			},
		},
	}}
}

func (d *Device) Init(ctx context.Context) error {
	d.reqCh = make(chan request, 8)
	d.quit = make(chan struct{})
	d.done = make(chan struct{})
	d.mode = types.ModeStopped
	d.alive.Store(true)
	d.emit()
	go d.worker(ctx)
	return nil
}

// Close stops the motor and releases every output. Only the worker touches
// the driver: Close signals it and waits. If the worker is still inside a
// transition when the wait runs out, Close returns errcode.Timeout and the
// worker releases the outputs itself once it gets there.
func (d *Device) Close() error {
	if d.done == nil {
		return d.teardown() // never started
	}
	d.alive.Store(false)
	d.muted.Store(true)
	d.quitOnce.Do(func() { close(d.quit) })
	t := time.NewTimer(closeWait + 4*d.deadTime)
	defer t.Stop()
	select {
	case <-d.done:
		return d.closeErr
	case <-t.C:
		println("[hbridge]", d.id, "worker still busy at close")
		return &errcode.E{C: errcode.Timeout, Op: "hbridge.close", Msg: d.id + ": worker still busy"}
	}
}

func (d *Device) Control(_ core.CapAddr, verb string, payload any) (core.EnqueueResult, error) {
	fail := func(c errcode.Code) (core.EnqueueResult, error) {
		return core.EnqueueResult{OK: false, Error: c}, nil
	}
	var req request
	switch verb {
	case "go":
		if g, code := core.As[types.MotorGo](payload); code == "" {
			req = request{op: opGo, speed: hbridge.Speed(g.Speed), rampMs: g.RampMs}
		} else if p, code := core.As[types.MotorPercent](payload); code == "" {
			req = request{op: opGo, speed: hbridge.PercentToDuty(p.Percent), rampMs: p.RampMs}
		} else {
			return fail(errcode.InvalidPayload)
		}
	case "stop", "coast":
		req = request{op: opStop}
	case "brake":
		b, code := core.As[types.MotorBrake](payload)
		if code != "" {
			return fail(code)
		}
		if !d.canBrake() {
			return fail(errcode.Unsupported)
		}
		req = request{op: opBrake, flag: b.High}
	case "set_reverse":
		r, code := core.As[types.MotorReverse](payload)
		if code != "" {
			return fail(code)
		}
		req = request{op: opReverse, flag: r.On}
	case "coast_single":
		c, code := core.As[types.MotorCoastSingle](payload)
		if code != "" {
			return fail(code)
		}
		if !d.canCoastSingle() {
			return fail(errcode.Unsupported)
		}
		if c.Switch < 1 || c.Switch > 4 {
			return fail(errcode.InvalidParams)
		}
		req = request{op: opCoastSingle, n: c.Switch}
	default:
		return fail(errcode.Unsupported)
	}

	if !d.alive.Load() {
		return fail(errcode.Released)
	}
	select {
	case d.reqCh <- req:
		return core.EnqueueResult{OK: true}, nil
	default:
		return fail(errcode.Busy)
	}
}

// ---- Worker ----

func (d *Device) worker(ctx context.Context) {
	defer close(d.done)
	defer d.alive.Store(false)
	defer d.teardown()

	for {
		// A close wins over requests still queued behind it.
		select {
		case <-d.quit:
			return
		case <-ctx.Done():
			return
		default:
		}
		var req request
		if d.pending != nil {
			req, d.pending = *d.pending, nil
		} else {
			select {
			case <-d.quit:
				return
			case <-ctx.Done():
				return
			case req = <-d.reqCh:
			}
		}
		d.apply(ctx, req)
	}
}

func (d *Device) apply(ctx context.Context, req request) {
	switch req.op {
	case opGo:
		if req.rampMs > 0 && req.speed != hbridge.Stop {
			d.ramp(ctx, req.speed, timex.Millis(req.rampMs))
		} else {
			d.goTo(req.speed)
		}
	case opStop:
		d.goTo(hbridge.Stop)
	case opBrake:
		if err := hbridge.ApplyBrake(d.drv, req.flag); err != nil {
			d.emitErr(err)
			return
		}
		d.speed, d.sw = 0, 0
		d.mode = types.ModeBrakeLow
		if req.flag {
			d.mode = types.ModeBrakeHigh
		}
	case opReverse:
		d.drv.SetReverse(req.flag)
	case opCoastSingle:
		if err := hbridge.CoastSingle(d.drv, req.n); err != nil {
			d.emitErr(err)
			return
		}
		d.speed, d.sw, d.mode = 0, req.n, types.ModeCoastOne
	}
	d.emit()
}

func (d *Device) goTo(s hbridge.Speed) {
	d.drv.Go(s)
	d.sw = 0
	if s == hbridge.Stop || s == 0 {
		d.speed, d.mode = 0, types.ModeStopped
		return
	}
	d.speed = mathx.Clamp(s, -hbridge.MaxDuty, hbridge.MaxDuty)
	d.mode = types.ModeForward
	if s < 0 {
		d.mode = types.ModeBackward
	}
}

// ramp walks from the current speed to target. A new request cancels it and
// is applied next.
func (d *Device) ramp(ctx context.Context, target hbridge.Speed, dur time.Duration) {
	from := int32(d.speed)
	if d.mode != types.ModeForward && d.mode != types.ModeBackward {
		from = 0
	}
	d.mode = types.ModeRamping
	d.emit()

	tick := func(step time.Duration) bool {
		t := time.NewTimer(step)
		defer t.Stop()
		select {
		case <-t.C:
			return true
		case r := <-d.reqCh:
			d.pending = &r
			return false
		case <-d.quit:
			return false
		case <-ctx.Done():
			return false
		}
	}
	ramp.Linear(from, int32(target), dur, rampSteps(dur), tick, func(v int32) {
		d.goTo(hbridge.Speed(v))
	})
}

func (d *Device) value() types.MotorValue {
	return types.MotorValue{
		Speed:   int32(d.speed),
		Percent: hbridge.DutyToPercent(d.speed),
		Mode:    d.mode,
		Reverse: d.drv.Reverse(),
		Switch:  d.sw,
	}
}

func (d *Device) emit() {
	if d.muted.Load() {
		return
	}
	d.res.Pub.Emit(core.Event{Addr: d.addr, Payload: d.value(), TS: time.Now().UnixNano()})
}

func (d *Device) emitErr(err error) {
	if d.muted.Load() {
		return
	}
	d.res.Pub.Emit(core.Event{Addr: d.addr, TS: time.Now().UnixNano(), Err: string(errcode.Of(err))})
}

// teardown stops the motor and releases outputs once. It runs on the
// worker, or on the caller when the worker never started.
func (d *Device) teardown() error {
	d.cleanup.Do(func() {
		d.drv.Stop()
		d.speed, d.sw, d.mode = 0, 0, types.ModeStopped
		d.emit()
		err := d.drv.Deinit()
		var re *hbridge.ReleaseError
		if errors.As(err, &re) {
			println("[hbridge]", d.id, err.Error())
			d.emitErr(errcode.Released)
		}
		d.closeErr = err
		d.releaseExpander()
	})
	return d.closeErr
}

func (d *Device) releaseExpander() {
	if d.exp != nil {
		d.exp.release(d.res.Reg, d.id, d.params.Expander.Bus)
		d.exp = nil
	}
}
