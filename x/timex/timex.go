// Package timex converts the integer time units used in configs and
// payloads.
package timex

import "time"

// PeriodNs is the period of freqHz in nanoseconds. 0 Hz counts as 1 Hz.
func PeriodNs(freqHz uint32) uint64 { return 1_000_000_000 / uint64(max(freqHz, 1)) }

func Micros(us uint32) time.Duration { return time.Duration(us) * time.Microsecond }
func Millis(ms uint32) time.Duration { return time.Duration(ms) * time.Millisecond }
