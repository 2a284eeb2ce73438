// Package config publishes a board's motor profile as the retained HAL
// configuration.
package config

import (
	"context"
	"errors"

	"hbridge-go/bus"
	"hbridge-go/services/hal"
	"hbridge-go/services/heartbeat"
	"hbridge-go/types"
)

const serviceName = "config"

type ctxKey string

// CtxDeviceKey is the context key carrying the board id.
const CtxDeviceKey ctxKey = "device"

// EmbeddedProfileLookup allows overriding how board profiles are resolved.
var EmbeddedProfileLookup = func(device string) (Profile, bool) {
	p, ok := embeddedProfiles[device]
	return p, ok
}

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// Publish sends p as the retained HAL configuration and, when the profile
// sets one, the heartbeat interval.
func Publish(conn *bus.Connection, p Profile) {
	if p.HeartbeatMs > 0 {
		conn.Publish(conn.NewMessage(heartbeat.TopicConfig(), types.HeartbeatConfig{IntervalMs: p.HeartbeatMs}, true))
	}
	conn.Publish(conn.NewMessage(hal.TopicConfig(), p.HALConfig(), true))
}

func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}
	p, ok := EmbeddedProfileLookup(device)
	if !ok || len(p.Motors) == 0 {
		return errors.New("no embedded profile for device: " + device)
	}
	Publish(conn, p)
	return nil
}

// Start publishes the profile for the board named in ctx.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("[config]", err.Error())
		}
	}()
}
