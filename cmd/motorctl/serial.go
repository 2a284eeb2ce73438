package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// serialLink sends console lines to a board and collects the reply.
type serialLink struct {
	mu      sync.Mutex
	port    serial.Port
	timeout time.Duration // first reply line
	quiet   time.Duration // gap that ends a multi-line reply

	// onLog sees firmware log lines ("[tag] ...") that arrive between replies.
	onLog func(string)
}

func openSerial(name string, baud int, timeout time.Duration) (*serialLink, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	l := &serialLink{port: port, timeout: timeout, quiet: 50 * time.Millisecond}
	l.drain()
	return l, nil
}

func (l *serialLink) Close() error { return l.port.Close() }

// Exec writes line and returns the board's answer, one or more lines.
func (l *serialLink) Exec(ctx context.Context, line string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if strings.TrimSpace(line) == "" {
		return ""
	}
	if _, err := l.port.Write([]byte(line + "\n")); err != nil {
		return "error " + err.Error()
	}
	deadline := time.Now().Add(l.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	first, err := l.readReply(deadline)
	if err != nil {
		return "error timeout"
	}
	out := []string{first}
	for {
		more, err := l.readReply(time.Now().Add(l.quiet))
		if err != nil {
			break
		}
		out = append(out, more)
	}
	return strings.Join(out, "\n")
}

var errNoData = errors.New("no data")

// readReply is readLine with firmware log lines filtered out.
func (l *serialLink) readReply(deadline time.Time) (string, error) {
	for {
		line, err := l.readLine(deadline)
		if err != nil || !strings.HasPrefix(line, "[") {
			return line, err
		}
		if l.onLog != nil {
			l.onLog(line)
		}
	}
}

// readLine reads one '\n' terminated line before deadline.
func (l *serialLink) readLine(deadline time.Time) (string, error) {
	var sb strings.Builder
	var b [1]byte
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return "", errNoData
		}
		if err := l.port.SetReadTimeout(left); err != nil {
			return "", err
		}
		n, err := l.port.Read(b[:])
		if err != nil {
			return "", err
		}
		if n == 0 {
			continue
		}
		switch b[0] {
		case '\n':
			return strings.TrimRight(sb.String(), "\r"), nil
		default:
			sb.WriteByte(b[0])
		}
	}
}

// drain discards boot chatter left in the receive buffer.
func (l *serialLink) drain() {
	_ = l.port.ResetInputBuffer()
	for {
		if _, err := l.readLine(time.Now().Add(l.quiet)); err != nil {
			return
		}
	}
}
