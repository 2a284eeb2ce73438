package hbridge

import "hbridge-go/x/mathx"

// PercentToDuty converts -100..100 percent to a signed duty, rounding half
// up and saturating at +-MaxDuty.
func PercentToDuty(p int) Speed {
	p = mathx.Clamp(p, -100, 100)
	return Speed(mathx.Clamp(mathx.FloorDiv(p*MaxDuty+50, 100), -MaxDuty, MaxDuty))
}

// DutyToPercent is the inverse of PercentToDuty. Stop maps to 0.
func DutyToPercent(d Speed) int {
	if d == Stop {
		return 0
	}
	v := mathx.Clamp(int(d), -MaxDuty, MaxDuty)
	return mathx.Clamp(mathx.FloorDiv(v*100+MaxDuty/2, MaxDuty), -100, 100)
}
