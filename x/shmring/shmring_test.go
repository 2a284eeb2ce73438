package shmring

import (
	"bufio"
	"io"
	"testing"
	"time"
)

func TestOrderAcrossWrap(t *testing.T) {
	r := New(64)
	const N = 2000
	src := make([]byte, N)
	for i := range src {
		src[i] = byte(i)
	}

	// Small odd-sized steps force frequent wraps and partial spans.
	p := src
	dst := make([]byte, 0, N)
	for len(dst) < N {
		if len(p) > 0 {
			step := 7
			if step > len(p) {
				step = len(p)
			}
			p = p[r.TryWriteFrom(p[:step]):]
		}
		var tmp [5]byte
		n := r.TryReadInto(tmp[:])
		dst = append(dst, tmp[:n]...)
	}
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("mismatch at %d: got=%d want=%d", i, dst[i], src[i])
		}
	}
}

func TestEdges(t *testing.T) {
	r := New(4)
	select {
	case <-r.Readable():
		t.Fatal("Readable on empty ring")
	default:
	}
	if n := r.TryWriteFrom([]byte{1, 2, 3, 4, 5}); n != 4 {
		t.Fatalf("write into 4-byte ring -> %d", n)
	}
	select {
	case <-r.Readable():
	default:
		t.Fatal("expected Readable")
	}
	if r.Space() != 0 || r.Available() != 4 {
		t.Fatalf("space %d avail %d", r.Space(), r.Available())
	}
	r.TryReadInto(make([]byte, 1))
	select {
	case <-r.Writable():
	default:
		t.Fatal("expected Writable after leaving full")
	}
}

func TestBlockingWriteWaitsForReader(t *testing.T) {
	r := New(8)
	msg := []byte("motor left go 30%\n")
	errc := make(chan error, 1)
	go func() {
		_, err := r.Write(msg)
		errc <- err
	}()

	got, err := io.ReadAll(io.LimitReader(r, int64(len(msg))))
	if err != nil || string(got) != string(msg) {
		t.Fatalf("read %q %v", got, err)
	}
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
}

func TestCloseDrainsThenEOF(t *testing.T) {
	r := New(16)
	r.Write([]byte("ab"))
	r.Close()
	b := make([]byte, 8)
	if n, err := r.Read(b); n != 2 || err != nil {
		t.Fatalf("read %d %v", n, err)
	}
	if _, err := r.Read(b); err != io.EOF {
		t.Fatalf("want EOF, got %v", err)
	}
	if _, err := r.Write([]byte("c")); err != io.ErrClosedPipe {
		t.Fatalf("write after close: %v", err)
	}
}

func TestPipeDuplex(t *testing.T) {
	a, b := NewPipe(32)
	go func() {
		sc := bufio.NewScanner(b)
		for sc.Scan() {
			b.Write([]byte("echo " + sc.Text() + "\n"))
		}
	}()

	a.Write([]byte("help\n"))
	line := make(chan string, 1)
	go func() {
		s, _ := bufio.NewReader(a).ReadString('\n')
		line <- s
	}()
	select {
	case s := <-line:
		if s != "echo help\n" {
			t.Fatalf("got %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
	a.Close()
}
