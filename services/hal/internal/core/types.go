package core

import (
	"context"

	"hbridge-go/errcode"
	"hbridge-go/types"
)

// ---- Capability & device model ----

// CapAddr is the public address hal/cap/<domain>/<kind>/<name>.
type CapAddr struct {
	Domain string
	Kind   string
	Name   string
}

type CapabilitySpec struct {
	Domain string
	Kind   types.Kind
	Name   string
	Info   types.Info
}

// EnqueueResult is a device's verdict on one control.
// OK=false with an empty Error is reported as busy.
type EnqueueResult struct {
	OK    bool
	Error errcode.Code
}

type Device interface {
	ID() string
	Capabilities() []CapabilitySpec
	Init(ctx context.Context) error
	// Control must return promptly; long work runs on the device's own
	// goroutine and reports back through Resources.Pub.
	Control(addr CapAddr, verb string, payload any) (EnqueueResult, error)
	Close() error
}

// Builder input
type BuilderInput struct {
	ID, Type string
	Params   any
	Res      Resources
}

type Builder interface {
	Build(ctx context.Context, in BuilderInput) (Device, error)
}
