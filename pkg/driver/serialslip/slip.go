// Package serialslip implements an RFC 1055 (SLIP) framed command/response
// driver over a serial port, accumulating partial frames across reads the
// way original_source/src/interface/serial/slip.rs does.
package serialslip

import (
	"context"

	"github.com/panduza/pza-runtime/pkg/pzaerr"
)

// Port is the slice of go.bug.st/serial.Port this driver needs: a real
// serial.Port satisfies it directly.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

const (
	frameEnd    byte = 0xC0
	frameEsc    byte = 0xDB
	frameEscEnd byte = 0xDC
	frameEscEsc byte = 0xDD
)

// Encode wraps data in RFC 1055 framing: a leading and trailing FRAME_END,
// with FRAME_END and FRAME_ESC bytes escaped in between.
func Encode(data []byte) []byte {
	out := make([]byte, 0, len(data)+2)
	out = append(out, frameEnd)
	for _, b := range data {
		switch b {
		case frameEnd:
			out = append(out, frameEsc, frameEscEnd)
		case frameEsc:
			out = append(out, frameEsc, frameEscEsc)
		default:
			out = append(out, b)
		}
	}
	out = append(out, frameEnd)
	return out
}

// Decode scans buf for one SLIP frame starting at (or after) a leading
// FRAME_END. It returns the decoded payload bytes, how many bytes of buf
// were consumed, and whether a terminating FRAME_END was found. When end
// is false the caller should keep the unconsumed remainder and append
// more data before decoding again.
func Decode(buf []byte) (decoded []byte, consumed int, end bool) {
	i := 0
	for i < len(buf) && buf[i] == frameEnd {
		i++
	}

	for i < len(buf) {
		b := buf[i]
		switch {
		case b == frameEnd:
			return decoded, i + 1, true
		case b == frameEsc:
			if i+1 >= len(buf) {
				return decoded, i, false
			}
			switch buf[i+1] {
			case frameEscEnd:
				decoded = append(decoded, frameEnd)
			case frameEscEsc:
				decoded = append(decoded, frameEsc)
			default:
				decoded = append(decoded, buf[i+1])
			}
			i += 2
		default:
			decoded = append(decoded, b)
			i++
		}
	}
	return decoded, i, false
}

const defaultReadChunk = 256

// Driver writes a SLIP-framed command and accumulates reads until a full
// reply frame has been decoded, preserving any trailing bytes (the start
// of the next frame) across calls.
type Driver struct {
	port      Port
	inBuf     []byte
	inBufSize int
}

// New wraps an already-opened serial port.
func New(port Port) *Driver {
	return &Driver{port: port, inBuf: make([]byte, 4096)}
}

// WriteThenRead encodes and writes cmd, then reads until one full SLIP
// frame has been decoded, returning its payload.
func (d *Driver) WriteThenRead(ctx context.Context, cmd []byte) ([]byte, error) {
	encoded := Encode(cmd)
	if _, err := d.port.Write(encoded); err != nil {
		return nil, pzaerr.DriverWrap(err, "slip: write failed")
	}

	chunk := make([]byte, defaultReadChunk)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, err := d.port.Read(chunk)
		if err != nil {
			return nil, pzaerr.DriverWrap(err, "slip: read failed")
		}
		if n == 0 {
			continue
		}

		if d.inBufSize+n > len(d.inBuf) {
			grown := make([]byte, 2*(d.inBufSize+n))
			copy(grown, d.inBuf[:d.inBufSize])
			d.inBuf = grown
		}
		copy(d.inBuf[d.inBufSize:], chunk[:n])
		d.inBufSize += n

		decoded, consumed, end := Decode(d.inBuf[:d.inBufSize])
		if end {
			remaining := d.inBufSize - consumed
			copy(d.inBuf, d.inBuf[consumed:d.inBufSize])
			d.inBufSize = remaining
			return decoded, nil
		}
	}
}
