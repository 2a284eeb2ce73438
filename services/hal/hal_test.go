package hal

import (
	"context"
	"testing"
	"time"

	"hbridge-go/bus"
	"hbridge-go/types"
)

// waitReady blocks until the retained hal/state reports ready, which is
// published only after the HAL has subscribed and applied its config.
func waitReady(t *testing.T, c *bus.Connection) {
	t.Helper()
	s := c.Subscribe(TopicState())
	defer c.Unsubscribe(s)
	timeout := time.After(time.Second)
	for {
		select {
		case m := <-s.Channel():
			if st, ok := m.Payload.(types.HALState); ok && st.Level == "ready" {
				return
			}
		case <-timeout:
			t.Fatal("hal never became ready")
		}
	}
}

func TestRunDrivesConfiguredMotor(t *testing.T) {
	b := bus.NewBus(16)
	reg := NewHostRegistry(DefaultHostConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { Run(ctx, b.NewConnection("hal"), reg); close(done) }()

	c := b.NewConnection("test")
	c.Publish(c.NewMessage(TopicConfig(), types.HALConfig{Devices: []types.HALDevice{
		{ID: "m", Type: "hbridge_pair", Params: types.HBridgeParams{Pins: []int{14, 15}}},
	}}, true))

	waitReady(t, c)

	values := c.Subscribe(MotorValue("motion", "m"))
	deadline := time.Now().Add(2 * time.Second)
	for {
		rctx, rcancel := context.WithTimeout(ctx, 100*time.Millisecond)
		m, err := c.RequestWait(rctx, c.NewMessage(MotorControl("motion", "m", "go"), types.MotorGo{Speed: 1234}, false))
		rcancel()
		if err == nil {
			if _, ok := m.Payload.(types.OKReply); ok {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("go never accepted: err=%v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	timeout := time.After(time.Second)
	for {
		select {
		case m := <-values.Channel():
			if v, ok := m.Payload.(types.MotorValue); ok && v.Mode == types.ModeForward {
				if lv, _ := reg.Level(14); lv != 1234 {
					t.Fatalf("pin 14 = %d", lv)
				}
				cancel()
				<-done
				if _, held := reg.Owner(14); held {
					t.Fatal("pin 14 still claimed after shutdown")
				}
				return
			}
		case <-timeout:
			t.Fatal("no forward value")
		}
	}
}
