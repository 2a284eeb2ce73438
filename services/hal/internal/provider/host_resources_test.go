package provider

import (
	"errors"
	"testing"

	"hbridge-go/errcode"
	"hbridge-go/services/hal/internal/core"
)

func TestClaimPinRules(t *testing.T) {
	r := NewHostRegistry(DefaultHostConfig())

	if _, err := r.ClaimPin("a", 29, core.FuncPWM); !errors.Is(err, errcode.UnknownPin) {
		t.Fatalf("out of range: %v", err)
	}
	if _, err := r.ClaimPin("a", 2, core.FuncPWM); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ClaimPin("b", 2, core.FuncGPIOOut); !errors.Is(err, errcode.PinInUse) {
		t.Fatalf("double claim: %v", err)
	}
	if owner, ok := r.Owner(2); !ok || owner != "a" {
		t.Fatalf("owner %q %v", owner, ok)
	}

	// Only the owner can release.
	r.ReleasePin("b", 2)
	if _, ok := r.Owner(2); !ok {
		t.Fatal("non-owner released the pin")
	}
	r.ReleasePin("a", 2)
	if _, ok := r.Owner(2); ok {
		t.Fatal("pin still owned")
	}
}

func TestWrongViewPanics(t *testing.T) {
	r := NewHostRegistry(DefaultHostConfig())
	ph, err := r.ClaimPin("a", 3, core.FuncGPIOOut)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("AsPWM on a GPIO claim did not panic")
		}
	}()
	ph.AsPWM()
}

func TestSliceFrequencyPolicy(t *testing.T) {
	r := NewHostRegistry(DefaultHostConfig())
	a, _ := r.ClaimPin("m", 4, core.FuncPWM) // slice 2 A
	b, _ := r.ClaimPin("m", 5, core.FuncPWM) // slice 2 B

	if err := a.AsPWM().Configure(5000, 65535); err != nil {
		t.Fatal(err)
	}
	// Sole user may retune.
	if err := a.AsPWM().Configure(8000, 65535); err != nil {
		t.Fatalf("sole-user retune: %v", err)
	}
	if err := b.AsPWM().Configure(5000, 65535); !errors.Is(err, errcode.Conflict) {
		t.Fatalf("mismatched sibling: %v", err)
	}
	if err := b.AsPWM().Configure(8000, 65535); err != nil {
		t.Fatal(err)
	}
	if err := a.AsPWM().Configure(1000, 65535); !errors.Is(err, errcode.Conflict) {
		t.Fatalf("shared retune: %v", err)
	}

	// Releasing both frees the slice for a new frequency.
	r.ReleasePin("m", 4)
	r.ReleasePin("m", 5)
	c, _ := r.ClaimPin("n", 4, core.FuncPWM)
	if err := c.AsPWM().Configure(1000, 65535); err != nil {
		t.Fatalf("after release: %v", err)
	}
}

func TestWritesAndRelease(t *testing.T) {
	r := NewHostRegistry(DefaultHostConfig())
	type w struct {
		pin   int
		level uint16
	}
	var seen []w
	r.OnWrite = func(pin int, _ core.PinFunc, level uint16) { seen = append(seen, w{pin, level}) }

	ph, _ := r.ClaimPin("m", 6, core.FuncPWM)
	p := ph.AsPWM()
	_ = p.Configure(1000, 1000)
	p.Set(5000) // clamped to top
	if lv, _ := r.Level(6); lv != 1000 || p.Level() != 1000 {
		t.Fatalf("level %d", lv)
	}

	gh, _ := r.ClaimPin("m", 7, core.FuncGPIOOut)
	g := gh.AsGPIO()
	_ = g.ConfigureOutput(true)
	if !g.Get() {
		t.Fatal("gpio not high")
	}

	r.ReleasePin("m", 6)
	r.ReleasePin("m", 7)
	want := []w{{6, 1000}, {7, 1}, {6, 0}, {7, 0}}
	if len(seen) != len(want) {
		t.Fatalf("writes %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("write %d = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestI2C(t *testing.T) {
	r := NewHostRegistry(DefaultHostConfig())
	if _, err := r.ClaimI2C("x", "i2c9"); !errors.Is(err, errcode.UnknownBus) {
		t.Fatalf("unknown bus: %v", err)
	}
	bus, err := r.ClaimI2C("x", "i2c0")
	if err != nil {
		t.Fatal(err)
	}
	if err := bus.Tx(0x40, []byte{0x10, 1, 2}, nil); err != nil {
		t.Fatal(err)
	}
	rd := make([]byte, 2)
	if err := bus.Tx(0x40, []byte{0x10}, rd); err != nil || rd[0] != 1 || rd[1] != 2 {
		t.Fatalf("read back %v %v", rd, err)
	}
	h := r.Bus("i2c0")
	h.Missing[0x41] = true
	if err := bus.Tx(0x41, []byte{0}, nil); err == nil {
		t.Fatal("missing device acked")
	}
	if h.Reg(0x40, 0x11) != 2 {
		t.Fatal("Reg")
	}
}
