// Package errcode defines the short error codes carried in bus replies.
package errcode

import "errors"

// Code is a stable, bus-facing error identifier. It implements error so a
// bare code can be returned and compared directly.
type Code string

func (c Code) Error() string { return string(c) }

const OK Code = "ok"

// Request handling.
const (
	Busy              Code = "busy"
	Unsupported       Code = "unsupported"
	InvalidParams     Code = "invalid_params"
	InvalidPayload    Code = "invalid_payload"
	InvalidTopic      Code = "invalid_topic"
	UnknownCapability Code = "unknown_capability"
	HALNotReady       Code = "hal_not_ready"
	Timeout           Code = "timeout"
)

// Hardware resources.
const (
	UnknownBus Code = "unknown_bus"
	UnknownPin Code = "unknown_pin"
	PinInUse   Code = "pin_in_use"
	Conflict   Code = "conflict" // incompatible settings on a shared resource
	Released   Code = "released" // device or output already torn down
	IO         Code = "io_error" // bus transfer failed
)

// Error is the fallback for errors that carry no code.
const Error Code = "error"

// E attaches an operation, a message and a cause to a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is match an *E against its bare Code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap returns an *E for op with code c. The cause's text becomes the message.
func Wrap(c Code, op string, err error) *E {
	e := &E{C: c, Op: op, Err: err}
	if err != nil {
		e.Msg = err.Error()
	}
	return e
}

// Of returns the outermost code along err's wrap chain, OK for nil and
// Error when there is none.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	for ; err != nil; err = errors.Unwrap(err) {
		switch x := err.(type) {
		case Code:
			return x
		case coder:
			return x.Code()
		}
	}
	return Error
}

// Is reports whether err carries code c.
func Is(err error, c Code) bool {
	return err != nil && Of(err) == c
}
