package serialslip

import (
	"context"
	"testing"
)

func TestDecodeMatchesCanonicalFrame(t *testing.T) {
	encoded := []byte{0xc0, 0x01, 0x02, 0x03, 0x04, 0x05, 0xc0, 0x04}

	decoded, consumed, end := Decode(encoded)
	if consumed != 7 {
		t.Errorf("consumed = %d, want 7", consumed)
	}
	if !end {
		t.Errorf("end = false, want true")
	}
	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	if len(decoded) != len(want) {
		t.Fatalf("decoded = %v, want %v", decoded, want)
	}
	for i := range want {
		if decoded[i] != want[i] {
			t.Errorf("decoded[%d] = %#x, want %#x", i, decoded[i], want[i])
		}
	}
}

func TestEncodeEscapesSpecialBytes(t *testing.T) {
	encoded := Encode([]byte{0xc0, 0xdb, 0x01})
	want := []byte{frameEnd, frameEsc, frameEscEnd, frameEsc, frameEscEsc, 0x01, frameEnd}
	if len(encoded) != len(want) {
		t.Fatalf("encoded = %v, want %v", encoded, want)
	}
	for i := range want {
		if encoded[i] != want[i] {
			t.Errorf("encoded[%d] = %#x, want %#x", i, encoded[i], want[i])
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0xc0, 0x00, 0xdb, 0xff, 0x10}
	encoded := Encode(payload)
	decoded, consumed, end := Decode(encoded)
	if !end || consumed != len(encoded) {
		t.Fatalf("unexpected decode result: consumed=%d end=%v", consumed, end)
	}
	if len(decoded) != len(payload) {
		t.Fatalf("decoded = %v, want %v", decoded, payload)
	}
	for i := range payload {
		if decoded[i] != payload[i] {
			t.Errorf("decoded[%d] = %#x, want %#x", i, decoded[i], payload[i])
		}
	}
}

type fakePort struct {
	chunks [][]byte
	idx    int
}

func (f *fakePort) Write(p []byte) (int, error) { return len(p), nil }

func (f *fakePort) Read(p []byte) (int, error) {
	if f.idx >= len(f.chunks) {
		return 0, nil
	}
	n := copy(p, f.chunks[f.idx])
	f.idx++
	return n, nil
}

func TestWriteThenReadAccumulatesAcrossReads(t *testing.T) {
	full := []byte{0xc0, 0x01, 0x02, 0x03, 0xc0}
	port := &fakePort{chunks: [][]byte{full[:2], full[2:]}}
	d := New(port)

	got, err := d.WriteThenRead(context.Background(), []byte{0xAA})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x01, 0x02, 0x03}
	if len(got) != len(want) {
		t.Fatalf("got = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %#x, want %#x", i, got[i], want[i])
		}
	}
}
