package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"hbridge-go/services/config"
)

const sample = `
domain: bench
motors:
  - id: left
    type: pair
    pins: [2, 3]
    enable: 10
  - id: arm
    type: 4pwm
    pins: [0, 1, 2, 3]
    freq_hz: 800
    expander: {bus: i2c0, addr: 0x41}
`

func TestSimulatorRunsProfile(t *testing.T) {
	prof, err := config.Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	s, err := startSim(context.Background(), prof, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	if got := s.Exec(ctx, "list"); got != "arm left" {
		t.Fatalf("list = %q", got)
	}
	if got := s.Exec(ctx, "motor left go 50%"); got != "ok" {
		t.Fatalf("go = %q", got)
	}
	deadline := time.Now().Add(time.Second)
	for {
		if lv, _ := s.reg.Level(2); lv == 32768 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("pin 2 never reached 50%")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := s.Exec(ctx, "motor arm brake high"); got != "ok" {
		t.Fatalf("expander brake = %q", got)
	}
	if got := s.Exec(ctx, "motor arm status"); strings.HasPrefix(got, "error") {
		t.Fatalf("status = %q", got)
	}
}
