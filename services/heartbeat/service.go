// Package heartbeat prints a periodic one-line summary of the HAL and
// its motors.
package heartbeat

import (
	"context"
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"hbridge-go/bus"
	"hbridge-go/services/hal"
	"hbridge-go/types"
	"hbridge-go/x/strconvx"
)

// TopicConfig carries the retained types.HeartbeatConfig.
func TopicConfig() bus.Topic { return bus.T("config", "heartbeat") }

// hal/cap/+/motor/+/value
var motorValues = bus.T("hal", "cap", "+", string(types.KindMotor), "+", "value")

const DefaultInterval = time.Second

type Service struct {
	Interval time.Duration // default DefaultInterval

	// Out receives each summary line; nil prints to the console.
	Out func(string)

	halLevel string
	motors   map[string]types.MotorValue
}

// Line renders the current summary.
func (s *Service) Line(now time.Time) string {
	var sb strings.Builder
	sb.WriteString(now.Format("15:04:05"))
	sb.WriteString(" hal=")
	if s.halLevel == "" {
		sb.WriteString("unknown")
	} else {
		sb.WriteString(s.halLevel)
	}

	names := make([]string, 0, len(s.motors))
	running := 0
	for name, v := range s.motors {
		names = append(names, name)
		if v.Mode != types.ModeStopped {
			running++
		}
	}
	slices.Sort(names)
	sb.WriteString(" motors=")
	sb.WriteString(strconvx.Itoa(len(names)))
	sb.WriteString(" running=")
	sb.WriteString(strconvx.Itoa(running))
	for _, name := range names {
		v := s.motors[name]
		if v.Mode == types.ModeStopped {
			continue
		}
		sb.WriteString(" ")
		sb.WriteString(name)
		sb.WriteString(":")
		sb.WriteString(string(v.Mode))
		sb.WriteString("@")
		sb.WriteString(strconvx.Itoa(v.Percent))
		sb.WriteString("%")
	}
	return sb.String()
}

func (s *Service) emit(line string) {
	if s.Out != nil {
		s.Out(line)
		return
	}
	println("[hb]", line)
}

func (s *Service) observe(msg *bus.Message) {
	switch p := msg.Payload.(type) {
	case types.HALState:
		s.halLevel = p.Level
	case types.MotorValue:
		// hal/cap/<domain>/motor/<name>/value
		if len(msg.Topic) != 6 {
			return
		}
		domain, _ := msg.Topic[2].(string)
		name, _ := msg.Topic[4].(string)
		s.motors[domain+"/"+name] = p
	}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(TopicConfig())
	stateSub := conn.Subscribe(hal.TopicState())
	valSub := conn.Subscribe(motorValues)
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(stateSub)
	defer conn.Unsubscribe(valSub)

	tick := time.NewTicker(s.Interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("[hb] stopping")
			return
		case t := <-tick.C:
			s.emit(s.Line(t))
		case msg := <-stateSub.Channel():
			s.observe(msg)
		case msg := <-valSub.Channel():
			s.observe(msg)
		case msg := <-cfgSub.Channel():
			hc, ok := msg.Payload.(types.HeartbeatConfig)
			if !ok || hc.IntervalMs == 0 {
				println("[hb] ignoring config payload")
				continue
			}
			s.Interval = time.Duration(hc.IntervalMs) * time.Millisecond
			tick.Reset(s.Interval)
			println("[hb] interval set to", hc.IntervalMs, "ms")
		}
	}
}

// Start runs the heartbeat until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.Interval <= 0 {
		s.Interval = DefaultInterval
	}
	s.motors = map[string]types.MotorValue{}
	go s.serviceLoop(ctx, conn)
	return nil
}
