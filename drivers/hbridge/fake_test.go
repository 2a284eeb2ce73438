package hbridge

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// event is one output write observed at virtual time at.
type event struct {
	at    time.Duration
	out   string
	level uint16
}

// rig records every write from every fake output on one virtual clock.
type rig struct {
	now    time.Duration
	events []event
	slept  []time.Duration
	pwms   map[int]*fakePWM
	pins   map[int]*fakePin

	failOpen    map[int]error
	failRelease map[string]error
}

func newRig() *rig {
	return &rig{
		pwms:        map[int]*fakePWM{},
		pins:        map[int]*fakePin{},
		failOpen:    map[int]error{},
		failRelease: map[string]error{},
	}
}

func (r *rig) sleep(d time.Duration) {
	r.slept = append(r.slept, d)
	r.now += d
}

func (r *rig) cfg() Config {
	c := DefaultConfig()
	c.Sleep = r.sleep
	return c
}

func (r *rig) record(out string, level uint16) {
	r.events = append(r.events, event{at: r.now, out: out, level: level})
}

func (r *rig) reset() { r.events, r.slept = nil, nil }

func (r *rig) OpenPWM(pin int, freqHz uint32) (PWM, error) {
	if err := r.failOpen[pin]; err != nil {
		return nil, err
	}
	p := &fakePWM{r: r, name: fmt.Sprintf("pwm%d", pin), freqHz: freqHz}
	r.pwms[pin] = p
	return p, nil
}

func (r *rig) OpenPin(pin int, initial bool) (Pin, error) {
	if err := r.failOpen[pin]; err != nil {
		return nil, err
	}
	p := &fakePin{r: r, name: fmt.Sprintf("gpio%d", pin), level: initial}
	r.pins[pin] = p
	return p, nil
}

// handle builds an adopted output that is not in the provider maps.
func (r *rig) handle(name string) *fakePWM { return &fakePWM{r: r, name: name, duty: 1234} }

type fakePWM struct {
	r        *rig
	name     string
	freqHz   uint32
	duty     uint16
	released int
}

func (p *fakePWM) Set(duty uint16) {
	p.duty = duty
	p.r.record(p.name, duty)
}

func (p *fakePWM) Release() error {
	p.released++
	p.duty = 0
	return p.r.failRelease[p.name]
}

type fakePin struct {
	r        *rig
	name     string
	level    bool
	released int
}

func (p *fakePin) Set(level bool) {
	p.level = level
	var v uint16
	if level {
		v = 1
	}
	p.r.record(p.name, v)
}

func (p *fakePin) Release() error {
	p.released++
	return p.r.failRelease[p.name]
}

// levels returns the last level written to each output, starting from init.
func levels(init map[string]uint16, evs []event) map[string]uint16 {
	out := map[string]uint16{}
	for k, v := range init {
		out[k] = v
	}
	for _, e := range evs {
		out[e.out] = e.level
	}
	return out
}

// checkInterlock walks evs and fails if the complementary outputs of a leg
// were ever non-zero together, or if an output went non-zero before its
// partner had been zero for at least dead.
func checkInterlock(t *testing.T, legs [][2]string, init map[string]uint16, evs []event, dead time.Duration) {
	t.Helper()
	cur := levels(init, nil)
	zeroSince := map[string]time.Duration{}
	for k, v := range cur {
		if v == 0 {
			zeroSince[k] = -time.Hour
		}
	}
	partner := map[string]string{}
	for _, l := range legs {
		partner[l[0]], partner[l[1]] = l[1], l[0]
	}
	for i, e := range evs {
		prev := cur[e.out]
		cur[e.out] = e.level
		if e.level == 0 {
			if prev != 0 {
				zeroSince[e.out] = e.at
			}
			continue
		}
		o, ok := partner[e.out]
		if !ok {
			continue
		}
		if cur[o] != 0 {
			t.Fatalf("event %d: %s=%d while %s=%d (shoot-through)", i, e.out, e.level, o, cur[o])
		}
		if prev == 0 {
			if since, ok := zeroSince[o]; !ok || e.at-since < dead {
				t.Fatalf("event %d: %s rose %v after %s fell, want >= %v", i, e.out, e.at-since, o, dead)
			}
		}
	}
}

var errBoom = errors.New("boom")
