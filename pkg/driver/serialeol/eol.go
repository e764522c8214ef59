// Package serialeol implements a delimiter-terminated ASCII command and
// response protocol over a serial port, grounded on
// original_source/src/interface/serial/eol.rs.
package serialeol

import (
	"bytes"
	"context"

	"github.com/panduza/pza-runtime/pkg/pzaerr"
)

// Port is the slice of go.bug.st/serial.Port this driver needs.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Driver reads and writes EOL-delimited ASCII frames.
type Driver struct {
	port Port
	eol  []byte
}

// New wraps port, terminating writes and scanning reads for eol (commonly
// "\n" or "\r\n").
func New(port Port, eol []byte) *Driver {
	return &Driver{port: port, eol: eol}
}

// Send writes cmd followed by the end-of-line delimiter.
func (d *Driver) Send(cmd []byte) error {
	payload := append(append([]byte{}, cmd...), d.eol...)
	if _, err := d.port.Write(payload); err != nil {
		return pzaerr.DriverWrap(err, "serial-eol: write failed")
	}
	return nil
}

// ReadUntil reads one byte at a time, accumulating into a buffer, until
// the trailing bytes match eol, then returns the buffer with the
// delimiter stripped.
func (d *Driver) ReadUntil(ctx context.Context) ([]byte, error) {
	var acc []byte
	one := make([]byte, 1)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, err := d.port.Read(one)
		if err != nil {
			return nil, pzaerr.DriverWrap(err, "serial-eol: read failed")
		}
		if n == 0 {
			continue
		}
		acc = append(acc, one[0])

		if len(d.eol) > 0 && len(acc) >= len(d.eol) && bytes.Equal(acc[len(acc)-len(d.eol):], d.eol) {
			return acc[:len(acc)-len(d.eol)], nil
		}
	}
}

// Ask writes cmd terminated by eol, then reads and returns a single
// reply frame with the eol suffix stripped.
func (d *Driver) Ask(ctx context.Context, cmd []byte) (string, error) {
	if err := d.Send(cmd); err != nil {
		return "", err
	}
	reply, err := d.ReadUntil(ctx)
	if err != nil {
		return "", err
	}
	return string(reply), nil
}
