package usbtmc

import (
	"context"
	"encoding/binary"
	"testing"
)

type fakeEndpoint struct {
	written [][]byte
	toRead  [][]byte
	readIdx int
}

func (f *fakeEndpoint) Write(p []byte) (int, error) {
	cp := append([]byte{}, p...)
	f.written = append(f.written, cp)
	return len(p), nil
}

func (f *fakeEndpoint) Read(p []byte) (int, error) {
	if f.readIdx >= len(f.toRead) {
		return 0, nil
	}
	chunk := f.toRead[f.readIdx]
	f.readIdx++
	n := copy(p, chunk)
	return n, nil
}

func bulkInPacket(bTag byte, transferSize uint32, payload []byte) []byte {
	buf := make([]byte, bulkInHeaderSize+len(payload))
	buf[0] = msgDevDepMsgIn
	buf[1] = bTag
	buf[2] = ^bTag
	binary.LittleEndian.PutUint32(buf[4:8], transferSize)
	copy(buf[bulkInHeaderSize:], payload)
	return buf
}

func TestSendCommandFramesDevDepMsgOut(t *testing.T) {
	out := &fakeEndpoint{}
	in := &fakeEndpoint{}
	d := New(in, out, Options{})

	if err := d.SendCommand([]byte("*IDN?")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.written) != 1 {
		t.Fatalf("expected 1 bulk-out write, got %d", len(out.written))
	}
	frame := out.written[0]
	if frame[0] != msgDevDepMsgOut {
		t.Errorf("msg id = %d, want %d", frame[0], msgDevDepMsgOut)
	}
	if frame[1] != 1 {
		t.Errorf("first bTag = %d, want 1", frame[1])
	}
	if frame[2] != ^byte(1) {
		t.Errorf("bTag inverse = %#x, want %#x", frame[2], ^byte(1))
	}
	size := binary.LittleEndian.Uint32(frame[4:8])
	if size != 5 {
		t.Errorf("transfer size = %d, want 5", size)
	}
	if len(frame)%4 != 0 {
		t.Errorf("frame length %d not padded to 4 bytes", len(frame))
	}
}

func TestBTagCyclesThroughRange(t *testing.T) {
	d := New(&fakeEndpoint{}, &fakeEndpoint{}, Options{})
	d.bTag = 254
	if got := d.nextBTag(); got != 255 {
		t.Errorf("got %d, want 255", got)
	}
	if got := d.nextBTag(); got != 1 {
		t.Errorf("got %d, want 1 (wrap, never 0)", got)
	}
}

func TestExecuteCommandReassemblesSinglePacketResponse(t *testing.T) {
	payload := []byte("+1.234E+00")
	out := &fakeEndpoint{}
	in := &fakeEndpoint{toRead: [][]byte{bulkInPacket(1, uint32(len(payload)), payload)}}
	d := New(in, out, Options{MaxPacketIn: 512})

	got, err := d.ExecuteCommand(context.Background(), []byte("MEAS:VOLT?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
	if len(out.written) != 2 {
		t.Fatalf("expected bulk-out + request-in writes, got %d", len(out.written))
	}
	if out.written[1][0] != msgDevDepMsgIn {
		t.Errorf("second write msg id = %d, want %d", out.written[1][0], msgDevDepMsgIn)
	}
}

func TestExecuteCommandReassemblesAcrossMultiplePackets(t *testing.T) {
	full := []byte("0123456789ABCDEF")
	first := bulkInPacket(1, uint32(len(full)), full[:8])
	second := full[8:]
	out := &fakeEndpoint{}
	in := &fakeEndpoint{toRead: [][]byte{first, second}}
	d := New(in, out, Options{MaxPacketIn: 512})

	got, err := d.ExecuteCommand(context.Background(), []byte("FETCH?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(full) {
		t.Errorf("got %q, want %q", got, full)
	}
}

func TestCheckEndpointAddressesWarnsOnUnexpected(t *testing.T) {
	var warned []byte
	d := New(&fakeEndpoint{}, &fakeEndpoint{}, Options{
		OnUnexpectedEndpoint: func(address, expected byte) {
			warned = append(warned, address)
		},
	})
	d.CheckEndpointAddresses(0x83, 0x02)
	if len(warned) != 1 || warned[0] != 0x83 {
		t.Errorf("warned = %v, want [0x83]", warned)
	}
}
