package hbridge

import "testing"

func TestPercentToDuty(t *testing.T) {
	cases := []struct {
		in   int
		want Speed
	}{
		{0, 0},
		{100, MaxDuty},
		{-100, -MaxDuty},
		{50, 32768},
		{-50, -32767},
		{1, 655},
		{150, MaxDuty},
		{-1000, -MaxDuty},
	}
	for _, tc := range cases {
		if got := PercentToDuty(tc.in); got != tc.want {
			t.Errorf("PercentToDuty(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDutyToPercent(t *testing.T) {
	cases := []struct {
		in   Speed
		want int
	}{
		{0, 0},
		{Stop, 0},
		{MaxDuty, 100},
		{-MaxDuty, -100},
		{32768, 50},
		{1 << 20, 100},
		{-(1 << 20), -100},
	}
	for _, tc := range cases {
		if got := DutyToPercent(tc.in); got != tc.want {
			t.Errorf("DutyToPercent(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestPercentRoundTrip(t *testing.T) {
	for p := -100; p <= 100; p++ {
		if got := DutyToPercent(PercentToDuty(p)); got != p {
			t.Fatalf("round trip %d -> %d -> %d", p, PercentToDuty(p), got)
		}
	}
	const tol = MaxDuty/200 + 1
	for d := Speed(-MaxDuty); d <= MaxDuty; d += 97 {
		back := PercentToDuty(DutyToPercent(d))
		if diff := back - d; diff > tol || diff < -tol {
			t.Fatalf("duty %d -> %d%% -> %d (off by %d)", d, DutyToPercent(d), back, diff)
		}
	}
}
