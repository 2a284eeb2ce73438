package hbridge

import "testing"

func TestPairPWM_Transitions(t *testing.T) {
	r := newRig()
	d, err := NewPairPWM(r, PWMPin(10), PWMPin(11), r.cfg())
	if err != nil {
		t.Fatal(err)
	}
	a, b := r.pwms[10], r.pwms[11]

	cases := []struct {
		name string
		do   func()
		a, b uint16
	}{
		{"forward", func() { d.Go(4000) }, 4000, 0},
		{"backward", func() { d.Go(-4000) }, 0, 4000},
		{"brake_high", d.BrakeHigh, MaxDuty, MaxDuty},
		{"stop", func() { d.Go(Stop) }, 0, 0},
		{"forward_again", func() { d.Go(9) }, 9, 0},
		{"brake_low", d.BrakeLow, 0, 0},
		{"zero", func() { d.Go(0) }, 0, 0},
	}
	for _, tc := range cases {
		tc.do()
		if a.duty != tc.a || b.duty != tc.b {
			t.Fatalf("%s: a=%d b=%d, want %d %d", tc.name, a.duty, b.duty, tc.a, tc.b)
		}
	}
}

func TestPairPWM_OutgoingFirst(t *testing.T) {
	r := newRig()
	d, err := NewPairPWM(r, PWMPin(0), PWMPin(1), r.cfg())
	if err != nil {
		t.Fatal(err)
	}
	d.Go(100)
	r.reset()
	d.Go(-100)

	want := []event{
		{0, "pwm0", 0},
		{DefaultDeadTime, "pwm1", 100},
	}
	if len(r.events) != len(want) {
		t.Fatalf("events %v", r.events)
	}
	base := r.events[0].at
	for i, w := range want {
		e := r.events[i]
		if e.out != w.out || e.level != w.level || e.at-base != w.at {
			t.Fatalf("event %d = %+v, want %+v", i, e, w)
		}
	}
}

func TestPairPWM_ZeroEqualsStop(t *testing.T) {
	run := func(s Speed) []event {
		r := newRig()
		d, err := NewPairPWM(r, PWMPin(0), PWMPin(1), r.cfg())
		if err != nil {
			t.Fatal(err)
		}
		d.Go(-300)
		r.reset()
		d.Go(s)
		return r.events
	}
	z, s := run(0), run(Stop)
	if len(z) != len(s) {
		t.Fatalf("Go(0) %v vs Go(Stop) %v", z, s)
	}
	for i := range z {
		if z[i] != s[i] {
			t.Fatalf("event %d: %+v vs %+v", i, z[i], s[i])
		}
	}
}

func TestPairPWM_ReverseSwapsChannels(t *testing.T) {
	r := newRig()
	d, err := NewPairPWM(r, PWMPin(0), PWMPin(1), r.cfg())
	if err != nil {
		t.Fatal(err)
	}
	d.SetReverse(true)
	r.reset()
	d.SetReverse(true)
	if len(r.events) != 0 {
		t.Fatal("SetReverse touched outputs")
	}
	d.Go(50)
	if r.pwms[0].duty != 0 || r.pwms[1].duty != 50 {
		t.Fatalf("reverse forward: a=%d b=%d", r.pwms[0].duty, r.pwms[1].duty)
	}
	d.Go(-50)
	if r.pwms[0].duty != 50 || r.pwms[1].duty != 0 {
		t.Fatalf("reverse backward: a=%d b=%d", r.pwms[0].duty, r.pwms[1].duty)
	}
}
