package hbridge

import "testing"

func TestDirPWM_DirectionChangeOrdering(t *testing.T) {
	r := newRig()
	d, err := NewDirPWM(r, GPIOPin(2), PWMPin(3), r.cfg())
	if err != nil {
		t.Fatal(err)
	}
	dir, pwm := r.pins[2], r.pwms[3]
	if dir.level {
		t.Fatal("dir pin not opened low")
	}

	d.Go(500)
	if !dir.level || pwm.duty != 500 {
		t.Fatalf("forward: dir=%v pwm=%d", dir.level, pwm.duty)
	}

	// Same direction: only the duty changes, no wait.
	r.reset()
	d.Go(800)
	if len(r.events) != 1 || r.events[0] != (event{r.now, "pwm3", 800}) || len(r.slept) != 0 {
		t.Fatalf("same-direction events %v slept %v", r.events, r.slept)
	}

	r.reset()
	d.Go(-200)
	if len(r.events) != 3 {
		t.Fatalf("reversal events %v", r.events)
	}
	if r.events[0].out != "pwm3" || r.events[0].level != 0 {
		t.Fatalf("pwm not dropped first: %v", r.events)
	}
	if r.events[1].out != "gpio2" || r.events[1].level != 0 {
		t.Fatalf("dir not flipped second: %v", r.events)
	}
	if r.events[1].at-r.events[0].at < DefaultDeadTime {
		t.Fatalf("dir flipped %v after pwm dropped", r.events[1].at-r.events[0].at)
	}
	if r.events[2].level != 200 {
		t.Fatalf("pwm not restored: %v", r.events)
	}
}

func TestDirPWM_StopLeavesDirection(t *testing.T) {
	r := newRig()
	d, err := NewDirPWM(r, GPIOPin(2), PWMPin(3), r.cfg())
	if err != nil {
		t.Fatal(err)
	}
	d.Go(-1)
	d.Go(0)
	if r.pwms[3].duty != 0 || r.pins[2].level {
		t.Fatalf("stop: dir=%v pwm=%d", r.pins[2].level, r.pwms[3].duty)
	}
	d.Go(Stop)
	if r.pwms[3].duty != 0 {
		t.Fatal("stop sentinel left pwm on")
	}
}

func TestDirPWM_AdoptedDirSequencesFirstMove(t *testing.T) {
	r := newRig()
	dir := &fakePin{r: r, name: "dir", level: true}
	d, err := NewDirPWM(r, PinHandle(dir), PWMPin(3), r.cfg())
	if err != nil {
		t.Fatal(err)
	}
	d.Go(10)
	if len(r.slept) != 1 {
		t.Fatalf("unknown dir state should force a sequenced first move, slept %v", r.slept)
	}
	if err := d.Deinit(); err != nil {
		t.Fatal(err)
	}
	if dir.released != 1 || r.pwms[3].released != 1 {
		t.Fatal("outputs not released")
	}
}

func TestDirPWM_ReverseFlag(t *testing.T) {
	r := newRig()
	cfg := r.cfg()
	cfg.Reverse = true
	d, err := NewDirPWM(r, GPIOPin(2), PWMPin(3), cfg)
	if err != nil {
		t.Fatal(err)
	}
	d.Go(100)
	if r.pins[2].level {
		t.Fatal("reversed positive speed drove dir high")
	}
}
