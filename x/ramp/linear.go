package ramp

import (
	"time"

	"hbridge-go/x/mathx"
)

// Step applies one intermediate value.
type Step func(v int32)

// Tick waits for d and reports whether to continue (false => cancelled).
type Tick func(d time.Duration) bool

// Linear walks from cur to to in steps equal increments spread over
// duration, calling set after each tick. The final value is always to unless
// tick cancels. steps==0 or duration<=0 snaps straight to to.
// It returns the last value applied.
func Linear(cur, to int32, duration time.Duration, steps uint16, tick Tick, set Step) int32 {
	if steps == 0 || duration <= 0 || cur == to {
		set(to)
		return to
	}
	stepDur := mathx.Max(duration/time.Duration(steps), time.Millisecond)

	span := int64(to) - int64(cur)
	last := cur
	for i := int64(1); i < int64(steps); i++ {
		if !tick(stepDur) {
			return last
		}
		v := int32(int64(cur) + span*i/int64(steps))
		if v != last {
			set(v)
			last = v
		}
	}
	if !tick(stepDur) {
		return last
	}
	set(to)
	return to
}
