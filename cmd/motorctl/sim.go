package main

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"hbridge-go/bus"
	"hbridge-go/services/config"
	"hbridge-go/services/console"
	"hbridge-go/services/hal"
	"hbridge-go/services/heartbeat"
	"hbridge-go/types"
)

// simulator runs the HAL and console in process over the host registry.
type simulator struct {
	*console.Console
	reg    *hal.HostRegistry
	cancel context.CancelFunc
	done   chan struct{}
}

func startSim(parent context.Context, prof config.Profile, timeout time.Duration) (*simulator, error) {
	b := bus.NewBus(32)
	reg := hal.NewHostRegistry(hal.DefaultHostConfig())
	reg.OnWrite = func(pin int, fn hal.PinFunc, level uint16) {
		log.WithFields(log.Fields{"pin": pin, "fn": fn.String(), "level": level}).Debug("output")
	}

	ctx, cancel := context.WithCancel(parent)
	s := &simulator{reg: reg, cancel: cancel, done: make(chan struct{})}
	go func() {
		hal.Run(ctx, b.NewConnection("hal"), reg)
		close(s.done)
	}()

	mon := b.NewConnection("monitor")
	go monitor(ctx, mon, prof)
	if prof.HeartbeatMs > 0 {
		hb := &heartbeat.Service{Out: func(line string) { log.WithField("svc", "heartbeat").Info(line) }}
		_ = hb.Start(ctx, b.NewConnection("heartbeat"))
	}

	c := b.NewConnection("console")
	state := c.Subscribe(hal.TopicState())
	defer c.Unsubscribe(state)
	config.Publish(c, prof)

	t := time.NewTimer(2 * time.Second)
	defer t.Stop()
	for {
		select {
		case m := <-state.Channel():
			if st, ok := m.Payload.(types.HALState); ok && st.Level == "ready" {
				s.Console = console.New(c, console.Options{Domain: prof.Domain, Timeout: timeout})
				return s, nil
			}
		case <-t.C:
			s.Close()
			return nil, errors.New("hal did not become ready")
		}
	}
}

func (s *simulator) Close() error {
	s.cancel()
	<-s.done
	return nil
}

// monitor logs motor values and status changes.
func monitor(ctx context.Context, conn *bus.Connection, prof config.Profile) {
	domain := prof.Domain
	if domain == "" {
		domain = "motion"
	}
	values := conn.Subscribe(hal.MotorValue(domain, "+"))
	status := conn.Subscribe(hal.MotorStatus(domain, "+"))
	defer conn.Disconnect()
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-values.Channel():
			if v, ok := m.Payload.(types.MotorValue); ok {
				log.WithFields(log.Fields{
					"motor": m.Topic[4], "mode": v.Mode, "speed": v.Speed,
					"percent": v.Percent, "reverse": v.Reverse,
				}).Info("value")
			}
		case m := <-status.Channel():
			if st, ok := m.Payload.(types.CapabilityStatus); ok {
				e := log.WithFields(log.Fields{"motor": m.Topic[4], "link": st.Link})
				if st.Error != "" {
					e.WithField("error", st.Error).Warn("status")
				} else {
					e.Debug("status")
				}
			}
		}
	}
}
