// Package console turns text command lines into motor control requests.
//
//	motor <name> go <speed|N%> [ramp_ms]
//	motor <name> stop|coast
//	motor <name> brake high|low
//	motor <name> reverse on|off
//	motor <name> coast1..coast4
//	motor <name> status
//	list
//	help
//
// Every command answers with one line: "ok", "error <code>", or the
// requested report.
package console

import (
	"context"
	"strings"
	"time"

	"github.com/google/shlex"
	"golang.org/x/exp/slices"

	"hbridge-go/bus"
	"hbridge-go/errcode"
	"hbridge-go/services/hal"
	"hbridge-go/types"
	"hbridge-go/x/strconvx"
	"hbridge-go/x/strx"
)

const usage = `commands:
  motor <name> go <speed|N%> [ramp_ms]
  motor <name> stop|coast
  motor <name> brake high|low
  motor <name> reverse on|off
  motor <name> coast1..coast4
  motor <name> status
  list
  help`

// Options tune a Console. Zero values take defaults.
type Options struct {
	Domain  string        // capability domain, default "motion"
	Timeout time.Duration // per request, default 1s
}

type Console struct {
	conn    *bus.Connection
	domain  string
	timeout time.Duration
}

func New(conn *bus.Connection, opt Options) *Console {
	return &Console{
		conn:    conn,
		domain:  strx.Coalesce(opt.Domain, "motion"),
		timeout: strx.Coalesce(opt.Timeout, time.Second),
	}
}

// command is one parsed control request.
type command struct {
	name    string
	verb    string
	payload any
}

func errLine(c errcode.Code) string { return "error " + string(c) }

// Exec runs one line. Blank lines and comments produce "".
func (c *Console) Exec(ctx context.Context, line string) string {
	args, err := shlex.Split(line)
	if err != nil {
		return errLine(errcode.InvalidParams)
	}
	if len(args) == 0 {
		return ""
	}
	switch args[0] {
	case "help", "?":
		return usage
	case "list":
		if len(args) != 1 {
			return errLine(errcode.InvalidParams)
		}
		return c.list()
	case "motor":
	default:
		return errLine(errcode.InvalidParams)
	}
	if len(args) == 3 && args[2] == "status" {
		return c.status(args[1])
	}
	cmd, ok := parseMotor(args[1:])
	if !ok {
		return errLine(errcode.InvalidParams)
	}
	return c.send(ctx, cmd)
}

// parseMotor parses "<name> <verb> [args...]".
func parseMotor(a []string) (command, bool) {
	if len(a) < 2 || a[0] == "" {
		return command{}, false
	}
	name, verb, rest := a[0], a[1], a[2:]
	switch verb {
	case "go":
		if len(rest) < 1 || len(rest) > 2 {
			return command{}, false
		}
		var ramp uint32
		if len(rest) == 2 {
			v, err := strconvx.ParseUint(rest[1], 32)
			if err != nil {
				return command{}, false
			}
			ramp = uint32(v)
		}
		if p, isPct := strings.CutSuffix(rest[0], "%"); isPct {
			n, err := strconvx.Atoi(p)
			if err != nil {
				return command{}, false
			}
			return command{name, "go", types.MotorPercent{Percent: n, RampMs: ramp}}, true
		}
		n, err := strconvx.ParseInt(rest[0], 32)
		if err != nil {
			return command{}, false
		}
		return command{name, "go", types.MotorGo{Speed: int32(n), RampMs: ramp}}, true
	case "stop", "coast":
		if len(rest) != 0 {
			return command{}, false
		}
		return command{name, verb, nil}, true
	case "brake":
		if len(rest) != 1 || (rest[0] != "high" && rest[0] != "low") {
			return command{}, false
		}
		return command{name, "brake", types.MotorBrake{High: rest[0] == "high"}}, true
	case "reverse":
		if len(rest) != 1 || (rest[0] != "on" && rest[0] != "off") {
			return command{}, false
		}
		return command{name, "set_reverse", types.MotorReverse{On: rest[0] == "on"}}, true
	case "coast1", "coast2", "coast3", "coast4":
		if len(rest) != 0 {
			return command{}, false
		}
		return command{name, "coast_single", types.MotorCoastSingle{Switch: int(verb[5] - '0')}}, true
	}
	return command{}, false
}

func (c *Console) send(ctx context.Context, cmd command) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	msg := c.conn.NewMessage(hal.MotorControl(c.domain, cmd.name, cmd.verb), cmd.payload, false)
	reply, err := c.conn.RequestWait(ctx, msg)
	if err != nil {
		return errLine(errcode.Timeout)
	}
	switch r := reply.Payload.(type) {
	case types.OKReply:
		return "ok"
	case types.ErrorReply:
		return errLine(errcode.Code(r.Error))
	}
	return errLine(errcode.Error)
}

// retained returns the messages already held for pattern.
func (c *Console) retained(pattern bus.Topic) []*bus.Message {
	sub := c.conn.Subscribe(pattern)
	defer c.conn.Unsubscribe(sub)
	var out []*bus.Message
	for {
		select {
		case m := <-sub.Channel():
			out = append(out, m)
		default:
			return out
		}
	}
}

func (c *Console) status(name string) string {
	msgs := c.retained(hal.MotorValue(c.domain, name))
	if len(msgs) == 0 {
		return errLine(errcode.UnknownCapability)
	}
	v, ok := msgs[len(msgs)-1].Payload.(types.MotorValue)
	if !ok {
		return errLine(errcode.Error)
	}
	s := string(v.Mode) +
		" speed=" + strconvx.Itoa(int(v.Speed)) +
		" percent=" + strconvx.Itoa(v.Percent) +
		" reverse=" + strconvx.FormatBool(v.Reverse)
	if v.Switch != 0 {
		s += " switch=" + strconvx.Itoa(v.Switch)
	}
	return s
}

func (c *Console) list() string {
	var names []string
	for _, m := range c.retained(hal.MotorInfo(c.domain, "+")) {
		if n, ok := m.Topic[4].(string); ok {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "(none)"
	}
	slices.Sort(names)
	return strings.Join(names, " ")
}
