package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"hbridge-go/bus"
	"hbridge-go/types"
)

// Serve answers command lines read from rw until EOF or ctx is cancelled.
func (c *Console) Serve(ctx context.Context, rw io.ReadWriter) error {
	sc := bufio.NewScanner(rw)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		out := c.Exec(ctx, strings.TrimSpace(sc.Text()))
		if out == "" {
			continue
		}
		if _, err := io.WriteString(rw, out+"\n"); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ---- Supervised link ----

// Transport opens the byte stream the console serves, e.g. a USB serial
// port or a host pipe.
type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

// TopicState carries the retained types.ServiceState of the console link.
func TopicState() bus.Topic { return bus.T("console", "state") }

// Run serves tr until ctx is cancelled, reopening it with backoff when the
// link fails.
func (c *Console) Run(ctx context.Context, tr Transport) {
	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	c.publishState("idle", "opening", nil)
	for {
		rwc, err := tr.Open(ctx)
		if err != nil {
			delay := backoff()
			c.publishState("degraded", "open_failed_retrying", err)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		println("[console] serving on", tr.String())
		c.publishState("up", "link_established", nil)
		stop := context.AfterFunc(ctx, func() { _ = rwc.Close() })
		err = c.Serve(ctx, rwc)
		stop()
		_ = rwc.Close()

		if ctx.Err() != nil {
			c.publishState("idle", "stopped", nil)
			return
		}
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		delay := backoff()
		c.publishState("degraded", "link_lost_retrying", err)
		if !sleep(ctx, delay) {
			return
		}
	}
}

func (c *Console) publishState(level, status string, err error) {
	st := types.ServiceState{Level: level, Status: status, TS: time.Now().UnixNano()}
	if err != nil {
		st.Error = err.Error()
	}
	c.conn.Publish(c.conn.NewMessage(TopicState(), st, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Stream is a Transport over a stream that stays open for the life of the
// program, such as a USB CDC port. Closing the opened link leaves rw open.
func Stream(name string, rw io.ReadWriter) Transport { return streamTransport{name: name, rw: rw} }

type streamTransport struct {
	name string
	rw   io.ReadWriter
}

func (s streamTransport) Open(context.Context) (io.ReadWriteCloser, error) {
	return nopCloser{s.rw}, nil
}

func (s streamTransport) String() string { return s.name }

type nopCloser struct{ io.ReadWriter }

func (nopCloser) Close() error { return nil }
