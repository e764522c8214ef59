// Package serialtimelock implements a write-then-read serial protocol
// that enforces a minimum spacing between writes and reads one byte at a
// time until a per-byte timeout elapses, grounded on
// original_source/src/connector/serial/time_lock.rs.
package serialtimelock

import (
	"context"
	"sync"
	"time"

	"github.com/panduza/pza-runtime/pkg/pzaerr"
)

// Port is the slice of go.bug.st/serial.Port this driver needs.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Driver enforces a minimum delay between consecutive writes and reads
// byte-at-a-time until per-byte silence is observed.
type Driver struct {
	port     Port
	duration time.Duration

	mu sync.Mutex
	t0 time.Time
	set bool
}

// New wraps port, spacing writes at least duration apart.
func New(port Port, duration time.Duration) *Driver {
	return &Driver{port: port, duration: duration}
}

// writeTimeLocked sleeps out any remaining lock duration, writes cmd, then
// arms a fresh lock starting now.
func (d *Driver) writeTimeLocked(ctx context.Context, cmd []byte) error {
	d.mu.Lock()
	if d.set {
		elapsed := time.Since(d.t0)
		remaining := d.duration - elapsed
		d.mu.Unlock()
		if remaining > 0 {
			select {
			case <-time.After(remaining):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		d.mu.Lock()
	}
	d.set = false
	d.mu.Unlock()

	if _, err := d.port.Write(cmd); err != nil {
		return pzaerr.DriverWrap(err, "serial-time-lock: write failed")
	}

	d.mu.Lock()
	d.t0 = time.Now()
	d.set = true
	d.mu.Unlock()
	return nil
}

// readOneByOne reads one byte at a time, each with a per-byte deadline of
// duration, and returns everything accumulated before the first timeout.
// A per-byte timeout is not an error: it is how the driver detects the
// device has finished replying.
func (d *Driver) readOneByOne(ctx context.Context) []byte {
	var acc []byte
	one := make([]byte, 1)

	for {
		readCtx, cancel := context.WithTimeout(ctx, d.duration)
		n, err := readByteWithDeadline(readCtx, d.port, one)
		cancel()
		if err != nil || n == 0 {
			return acc
		}
		acc = append(acc, one[0])
	}
}

// readByteWithDeadline polls Read until ctx expires or one byte arrives.
// go.bug.st/serial.Port exposes its own SetReadTimeout; this helper keeps
// the Port interface minimal for tests so it drives the deadline itself.
func readByteWithDeadline(ctx context.Context, port Port, buf []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := port.Read(buf)
		ch <- result{n, err}
	}()

	select {
	case r := <-ch:
		return r.n, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// WriteThenRead writes cmd under the time lock, then reads the reply byte
// by byte until the device falls silent for one lock duration.
func (d *Driver) WriteThenRead(ctx context.Context, cmd []byte) ([]byte, error) {
	if err := d.writeTimeLocked(ctx, cmd); err != nil {
		return nil, err
	}
	return d.readOneByOne(ctx), nil
}
