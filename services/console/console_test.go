package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"hbridge-go/bus"
	"hbridge-go/services/hal"
	"hbridge-go/types"
	"hbridge-go/x/shmring"
)

func startHAL(t *testing.T, b *bus.Bus) *hal.HostRegistry {
	t.Helper()
	reg := hal.NewHostRegistry(hal.DefaultHostConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { hal.Run(ctx, b.NewConnection("hal"), reg); close(done) }()
	t.Cleanup(func() { cancel(); <-done })

	c := b.NewConnection("cfg")
	state := c.Subscribe(hal.TopicState())
	defer c.Unsubscribe(state)
	c.Publish(c.NewMessage(hal.TopicConfig(), types.HALConfig{Devices: []types.HALDevice{
		{ID: "left", Type: "hbridge_pair", Params: types.HBridgeParams{Pins: []int{2, 3}}},
		{ID: "arm", Type: "hbridge_4pwm", Params: types.HBridgeParams{Pins: []int{6, 7, 8, 9}}},
	}}, true))
	deadline := time.After(time.Second)
	for {
		select {
		case m := <-state.Channel():
			if st, ok := m.Payload.(types.HALState); ok && st.Level == "ready" {
				return reg
			}
		case <-deadline:
			t.Fatal("hal not ready")
		}
	}
}

// eventually retries line until the reply has prefix.
func eventually(t *testing.T, c *Console, line, prefix string) string {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		got := c.Exec(context.Background(), line)
		if strings.HasPrefix(got, prefix) {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("%q = %q, want prefix %q", line, got, prefix)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestParseErrorsStayOffTheBus(t *testing.T) {
	b := bus.NewBus(8)
	spy := b.NewConnection("spy").Subscribe(bus.T("hal", "#"))
	c := New(b.NewConnection("console"), Options{})

	for _, line := range []string{
		"motor",
		"motor left",
		"motor left go",
		"motor left go fast",
		"motor left go 10% soon",
		"motor left go 1 2 3",
		"motor left brake sideways",
		"motor left reverse maybe",
		"motor left coast5",
		"motor left stop now",
		`motor "left go 5`,
		"list everything",
		"spin left",
	} {
		if got := c.Exec(context.Background(), line); got != "error invalid_params" {
			t.Fatalf("%q = %q", line, got)
		}
	}
	select {
	case m := <-spy.Channel():
		t.Fatalf("parse error reached the bus: %v", m.Topic)
	default:
	}

	if got := c.Exec(context.Background(), "   # just a comment"); got != "" {
		t.Fatalf("comment = %q", got)
	}
	if got := c.Exec(context.Background(), "help"); !strings.Contains(got, "motor <name> go <speed|N%>") {
		t.Fatalf("help = %q", got)
	}
}

func TestParseMotor(t *testing.T) {
	cases := []struct {
		line    string
		verb    string
		payload any
	}{
		{"m go 30%", "go", types.MotorPercent{Percent: 30}},
		{"m go -100% 500", "go", types.MotorPercent{Percent: -100, RampMs: 500}},
		{"m go -20000", "go", types.MotorGo{Speed: -20000}},
		{"m coast", "coast", nil},
		{"m brake low", "brake", types.MotorBrake{High: false}},
		{"m reverse on", "set_reverse", types.MotorReverse{On: true}},
		{"m coast4", "coast_single", types.MotorCoastSingle{Switch: 4}},
	}
	for _, c := range cases {
		cmd, ok := parseMotor(strings.Fields(c.line))
		if !ok || cmd.name != "m" || cmd.verb != c.verb || cmd.payload != c.payload {
			t.Fatalf("%q -> %#v %v", c.line, cmd, ok)
		}
	}
}

func TestCommandsDriveHAL(t *testing.T) {
	b := bus.NewBus(16)
	reg := startHAL(t, b)
	c := New(b.NewConnection("console"), Options{})
	ctx := context.Background()

	if got := c.Exec(ctx, "list"); got != "arm left" {
		t.Fatalf("list = %q", got)
	}
	if got := c.Exec(ctx, "motor left go 30%"); got != "ok" {
		t.Fatalf("go = %q", got)
	}
	if got := eventually(t, c, "motor left status", "forward"); got != "forward speed=19661 percent=30 reverse=false" {
		t.Fatalf("status = %q", got)
	}
	if lv, _ := reg.Level(2); lv != 19661 {
		t.Fatalf("pin 2 = %d", lv)
	}

	if got := c.Exec(ctx, "motor left coast1"); got != "error unsupported" {
		t.Fatalf("coast1 on pair = %q", got)
	}
	if got := c.Exec(ctx, "motor left brake high"); got != "ok" {
		t.Fatalf("brake = %q", got)
	}
	eventually(t, c, "motor left status", "brake_high")

	if got := c.Exec(ctx, "motor arm coast2"); got != "ok" {
		t.Fatalf("coast2 = %q", got)
	}
	if got := eventually(t, c, "motor arm status", "coast_single"); !strings.HasSuffix(got, "switch=2") {
		t.Fatalf("status = %q", got)
	}

	if got := c.Exec(ctx, "motor ghost stop"); got != "error unknown_capability" {
		t.Fatalf("unknown motor = %q", got)
	}
	if got := c.Exec(ctx, "motor ghost status"); got != "error unknown_capability" {
		t.Fatalf("unknown status = %q", got)
	}
}

func TestRequestTimeout(t *testing.T) {
	b := bus.NewBus(4)
	c := New(b.NewConnection("console"), Options{Timeout: 20 * time.Millisecond})
	if got := c.Exec(context.Background(), "motor left stop"); got != "error timeout" {
		t.Fatalf("no hal = %q", got)
	}
}

func TestServeOverPipe(t *testing.T) {
	b := bus.NewBus(16)
	startHAL(t, b)
	c := New(b.NewConnection("console"), Options{})

	host, dev := shmring.NewPipe(256)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx, dev) }()

	io.WriteString(host, "\nmotor left stop\nmotor left reverse sideways\n")
	rd := bufio.NewReader(host)
	for _, want := range []string{"ok\n", "error invalid_params\n"} {
		got, err := rd.ReadString('\n')
		if err != nil || got != want {
			t.Fatalf("read %q %v, want %q", got, err, want)
		}
	}
	host.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("serve did not return after close")
	}
}

type flakyTransport struct {
	mu    sync.Mutex
	opens int
	dev   io.ReadWriteCloser
}

func (f *flakyTransport) Open(context.Context) (io.ReadWriteCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.opens == 1 {
		return nil, errors.New("port busy")
	}
	return f.dev, nil
}

func (f *flakyTransport) String() string { return "flaky" }

func TestRunRetriesAndPublishesState(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("console")
	states := b.NewConnection("watch").Subscribe(TopicState())

	host, dev := shmring.NewPipe(64)
	tr := &flakyTransport{dev: dev}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { New(conn, Options{}).Run(ctx, tr); close(done) }()

	var seen []string
	deadline := time.After(2 * time.Second)
	for len(seen) == 0 || seen[len(seen)-1] != "up" {
		select {
		case m := <-states.Channel():
			seen = append(seen, m.Payload.(types.ServiceState).Level)
		case <-deadline:
			t.Fatalf("states %v", seen)
		}
	}
	if len(seen) < 3 || seen[1] != "degraded" {
		t.Fatalf("states %v", seen)
	}

	io.WriteString(host, "help\n")
	if line, _ := bufio.NewReader(host).ReadString('\n'); line != "commands:\n" {
		t.Fatalf("first help line %q", line)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
