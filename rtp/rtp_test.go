package rtp

import (
	"bytes"
	"testing"
)

func TestBuildHeader(t *testing.T) {
	h := BuildHeader(1, 960, 42)

	if h[0] != 0x80 || h[1] != 0x78 {
		t.Fatalf("unexpected version/payload-type bytes: %x %x", h[0], h[1])
	}
	if got := uint16(h[2])<<8 | uint16(h[3]); got != 1 {
		t.Fatalf("sequence = %d, want 1", got)
	}
}

func TestFrame(t *testing.T) {
	h := BuildHeader(5, 4800, 42)
	cipher := []byte{0xde, 0xad, 0xbe, 0xef}

	out := Frame(h, cipher)

	if len(out) != HeaderSize+len(cipher) {
		t.Fatalf("len = %d, want %d", len(out), HeaderSize+len(cipher))
	}
	if !bytes.Equal(out[:HeaderSize], h[:]) {
		t.Fatalf("header not copied verbatim")
	}
	if !bytes.Equal(out[HeaderSize:], cipher) {
		t.Fatalf("ciphertext not appended verbatim")
	}
}

func TestParseRoundTrip(t *testing.T) {
	h := BuildHeader(65535, 123456, 42)

	parsed, err := Parse(h[:])
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Sequence != 65535 || parsed.Timestamp != 123456 || parsed.SSRC != 42 {
		t.Fatalf("parsed = %+v", parsed)
	}
	if parsed.HasExtension {
		t.Fatalf("HasExtension = true, want false")
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse(make([]byte, HeaderSize-1))
	if err != ErrMalformedPacket {
		t.Fatalf("err = %v, want ErrMalformedPacket", err)
	}
}

func TestParseExtensionBit(t *testing.T) {
	h := BuildHeader(1, 960, 42)
	h[0] |= extensionBit

	parsed, err := Parse(h[:])
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !parsed.HasExtension {
		t.Fatalf("HasExtension = false, want true")
	}
}

func TestMakeNonce(t *testing.T) {
	h := BuildHeader(7, 1337, 42)

	nonce := MakeNonce(h)

	if !bytes.Equal(nonce[:HeaderSize], h[:]) {
		t.Fatalf("nonce[0:12] != header")
	}
	var zeros [12]byte
	if !bytes.Equal(nonce[HeaderSize:], zeros[:]) {
		t.Fatalf("nonce[12:24] not zero")
	}
}

func TestStripExtensionNoExtension(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	if got := StripExtension(payload, false); !bytes.Equal(got, payload) {
		t.Fatalf("payload mutated when hasExtension is false")
	}
}

func TestStripExtensionOneByte(t *testing.T) {
	// One extension word (4 bytes) holding a single element: id=1, len-1=0
	// (so a 1-byte element), followed by the Opus payload.
	payload := []byte{
		0xBE, 0xDE, // profile
		0x00, 0x01, // 1 extension word (4 bytes) follows
		0x10, 0xAA, // element header (id=1,len=1) + 1 byte of data
		0x00, 0x00, // zero padding to fill the word
		0x99, 0x98, // Opus payload
	}

	got := StripExtension(payload, true)
	if !bytes.Equal(got, []byte{0x99, 0x98}) {
		t.Fatalf("StripExtension = %x, want the trailing opus bytes", got)
	}
}

func TestStripExtensionWrongProfile(t *testing.T) {
	payload := []byte{0x12, 0x34, 0x00, 0x01, 0xAA, 0xBB, 0xCC, 0xDD}
	if got := StripExtension(payload, true); !bytes.Equal(got, payload) {
		t.Fatalf("payload mutated for non-BEDE profile")
	}
}
