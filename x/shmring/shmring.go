// Package shmring is a single-producer, single-consumer byte ring with
// edge-triggered readiness channels, plus blocking io adapters for console
// streams.
package shmring

import (
	"io"
	"sync"
	"sync/atomic"
)

// Ring is a single-producer, single-consumer byte ring.
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)

	readable chan struct{} // 0->>0 available edge
	writable chan struct{} // full->not full edge

	closeOnce sync.Once
	closed    chan struct{}
}

func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("shmring: size must be power of two >= 2")
	}
	return &Ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

func (r *Ring) Space() int {
	return int(r.size() - (r.wr.Load() - r.rd.Load()))
}

func (r *Ring) Available() int {
	return int(r.wr.Load() - r.rd.Load())
}

// TryWriteFrom copies as much of src as fits and never blocks.
func (r *Ring) TryWriteFrom(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	before := wr - rd
	n := int(r.size() - before)
	if n <= 0 {
		return 0
	}
	if len(src) < n {
		n = len(src)
	}

	idx := wr & r.mask
	first := int(r.size() - idx)
	if first > n {
		first = n
	}
	copy(r.buf[idx:idx+uint32(first)], src[:first])
	if second := n - first; second > 0 {
		copy(r.buf[:second], src[first:n])
	}
	r.wr.Store(wr + uint32(n))

	if before == 0 {
		signal(r.readable)
	}
	return n
}

// TryReadInto copies up to len(dst) buffered bytes and never blocks.
func (r *Ring) TryReadInto(dst []byte) int {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	n := int(wr - rd)
	if n <= 0 {
		return 0
	}
	if len(dst) < n {
		n = len(dst)
	}

	idx := rd & r.mask
	first := int(r.size() - idx)
	if first > n {
		first = n
	}
	copy(dst[:first], r.buf[idx:idx+uint32(first)])
	if second := n - first; second > 0 {
		copy(dst[first:n], r.buf[:second])
	}
	r.rd.Store(rd + uint32(n))

	if wr-rd == r.size() {
		signal(r.writable)
	}
	return n
}

func (r *Ring) Readable() <-chan struct{} { return r.readable }
func (r *Ring) Writable() <-chan struct{} { return r.writable }

// Close wakes blocked readers and writers. Buffered bytes can still be read.
func (r *Ring) Close() error {
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// ---- Blocking adapters ----

// Read blocks until at least one byte is available. After Close it drains
// what is left, then returns io.EOF.
func (r *Ring) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if n := r.TryReadInto(p); n > 0 {
			return n, nil
		}
		select {
		case <-r.readable:
		case <-r.closed:
			if n := r.TryReadInto(p); n > 0 {
				return n, nil
			}
			return 0, io.EOF
		}
	}
}

// Write blocks until all of p is buffered, or fails with io.ErrClosedPipe
// once the ring is closed.
func (r *Ring) Write(p []byte) (int, error) {
	done := 0
	for done < len(p) {
		select {
		case <-r.closed:
			return done, io.ErrClosedPipe
		default:
		}
		n := r.TryWriteFrom(p[done:])
		done += n
		if n > 0 || done == len(p) {
			continue
		}
		select {
		case <-r.writable:
		case <-r.closed:
			return done, io.ErrClosedPipe
		}
	}
	return done, nil
}

// Pipe joins two rings into a duplex stream: what one end writes, the other
// end reads.
type Pipe struct {
	rx, tx *Ring
}

// NewPipe returns both ends of a duplex stream with size bytes per direction.
func NewPipe(size int) (a, b *Pipe) {
	ab, ba := New(size), New(size)
	return &Pipe{rx: ba, tx: ab}, &Pipe{rx: ab, tx: ba}
}

func (p *Pipe) Read(b []byte) (int, error)  { return p.rx.Read(b) }
func (p *Pipe) Write(b []byte) (int, error) { return p.tx.Write(b) }

// Close ends both directions.
func (p *Pipe) Close() error {
	p.tx.Close()
	return p.rx.Close()
}
