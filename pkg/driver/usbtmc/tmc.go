// Package usbtmc implements the USB Test & Measurement Class bulk-transfer
// framing over github.com/google/gousb, grounded on
// original_source/src/interface/usb/tmc.rs.
package usbtmc

import (
	"context"
	"encoding/binary"

	"github.com/panduza/pza-runtime/pkg/pzaerr"
)

// msgID values from the USBTMC specification.
const (
	msgDevDepMsgOut byte = 1
	msgDevDepMsgIn  byte = 2

	bulkInHeaderSize = 12

	// ExpectedEndpointIn and ExpectedEndpointOut are the conventional
	// bulk endpoint addresses for a TMC interface. A device using other
	// addresses still works; Open only logs a warning.
	ExpectedEndpointIn  = 0x81
	ExpectedEndpointOut = 0x02
)

// Endpoint is the slice of gousb's *InEndpoint / *OutEndpoint this driver
// needs, kept narrow so tests can fake it without a real USB stack.
type Endpoint interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// EndpointWarner receives a warning when a discovered endpoint address
// does not match the conventional USBTMC address.
type EndpointWarner func(address byte, expected byte)

// Driver frames commands and responses using the USBTMC bulk protocol.
type Driver struct {
	in, out      Endpoint
	maxPacketIn  int
	bTag         byte
	onUnexpected EndpointWarner
}

// Options configures a Driver.
type Options struct {
	// MaxPacketIn is the USB IN endpoint's max packet size, used to size
	// each bulk_in read.
	MaxPacketIn int
	// OnUnexpectedEndpoint, if set, is called when the supplied endpoint
	// addresses differ from ExpectedEndpointIn/ExpectedEndpointOut.
	OnUnexpectedEndpoint EndpointWarner
}

// New wraps already-claimed IN/OUT bulk endpoints.
func New(in, out Endpoint, opts Options) *Driver {
	maxPacketIn := opts.MaxPacketIn
	if maxPacketIn <= 0 {
		maxPacketIn = 512
	}
	return &Driver{in: in, out: out, maxPacketIn: maxPacketIn, onUnexpected: opts.OnUnexpectedEndpoint}
}

// CheckEndpointAddresses warns (via Options.OnUnexpectedEndpoint) when the
// discovered addresses are not the conventional 0x81/0x02 pair.
func (d *Driver) CheckEndpointAddresses(inAddr, outAddr byte) {
	if d.onUnexpected == nil {
		return
	}
	if inAddr != ExpectedEndpointIn {
		d.onUnexpected(inAddr, ExpectedEndpointIn)
	}
	if outAddr != ExpectedEndpointOut {
		d.onUnexpected(outAddr, ExpectedEndpointOut)
	}
}

// nextBTag cycles the USBTMC transfer tag through 1..255, never 0.
func (d *Driver) nextBTag() byte {
	d.bTag = (d.bTag % 255) + 1
	return d.bTag
}

// buildDevDepMsgOut builds a DEV_DEP_MSG_OUT bulk-out packet carrying data,
// padded to a 4-byte boundary as USBTMC requires.
func buildDevDepMsgOut(bTag byte, data []byte) []byte {
	padding := (4 - (len(data) % 4)) % 4
	buf := make([]byte, bulkInHeaderSize+len(data)+padding)

	buf[0] = msgDevDepMsgOut
	buf[1] = bTag
	buf[2] = ^bTag
	buf[3] = 0x00
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(data)))
	buf[8] = 0x01 // EOM
	buf[9], buf[10], buf[11] = 0, 0, 0

	copy(buf[bulkInHeaderSize:], data)
	return buf
}

// buildDevDepMsgIn builds a DEV_DEP_MSG_IN bulk-out request asking the
// device for up to 50KB of response data.
func buildDevDepMsgIn(bTag byte) []byte {
	buf := make([]byte, bulkInHeaderSize)
	buf[0] = msgDevDepMsgIn
	buf[1] = bTag
	buf[2] = ^bTag
	buf[3] = 0x00
	binary.LittleEndian.PutUint32(buf[4:8], 1024*50)
	return buf
}

// SendCommand writes command to the device without reading a response.
func (d *Driver) SendCommand(command []byte) error {
	bTag := d.nextBTag()
	if _, err := d.out.Write(buildDevDepMsgOut(bTag, command)); err != nil {
		return pzaerr.DriverWrap(err, "usbtmc: bulk-out failed")
	}
	return nil
}

// ExecuteCommand writes command then reads the full response, following
// the bulk-out (command), bulk-out (DEV_DEP_MSG_IN request), bulk-in
// sequence and reassembling a fragmented
// reply across as many bulk-in transfers as the device needs.
func (d *Driver) ExecuteCommand(ctx context.Context, command []byte) ([]byte, error) {
	bTag := d.nextBTag()

	if _, err := d.out.Write(buildDevDepMsgOut(bTag, command)); err != nil {
		return nil, pzaerr.DriverWrap(err, "usbtmc: bulk-out failed")
	}
	if _, err := d.out.Write(buildDevDepMsgIn(bTag)); err != nil {
		return nil, pzaerr.DriverWrap(err, "usbtmc: bulk-out (request-in) failed")
	}

	var response []byte
	first := true
	remaining := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		chunk := make([]byte, d.maxPacketIn)
		n, err := d.in.Read(chunk)
		if err != nil {
			return nil, pzaerr.DriverWrap(err, "usbtmc: bulk-in failed")
		}
		data := chunk[:n]

		if first {
			transferSize := int(binary.LittleEndian.Uint32(data[4:8]))
			first = false
			remaining = transferSize + bulkInHeaderSize

			if remaining >= len(data) {
				remaining -= len(data)
				response = append(response, data[bulkInHeaderSize:]...)
			} else {
				response = append(response, data[bulkInHeaderSize:remaining]...)
				remaining = 0
			}
		} else {
			if remaining >= len(data) {
				remaining -= len(data)
				response = append(response, data...)
			} else {
				response = append(response, data[:remaining]...)
				remaining = 0
			}
		}

		if remaining == 0 {
			return response, nil
		}
	}
}
