package voice

import (
	"testing"

	"github.com/fenwickvoice/voiceengine/opus"
	"github.com/fenwickvoice/voiceengine/rtp"
)

// newTestConnection builds a Connection with just enough state wired up
// for handleIncomingPacket: a ready shared key and (optionally) a
// decoder, bypassing Connect/the gateway entirely.
func newTestConnection(t *testing.T, key [32]byte, withDecoder bool) *Connection {
	t.Helper()

	c := &Connection{
		GuildID: 1,
		ssrc:    newSSRCMap(),
		key:     key,
		cfg:     Config{}.withDefaults(),
	}
	c.ready.Store(true)

	if withDecoder {
		dec, err := opus.NewDecoder()
		if err != nil {
			t.Skipf("opus decoder unavailable: %v", err)
		}
		c.dec = dec
	}

	return c
}

func TestHandleIncomingPacketTooShortIsDropped(t *testing.T) {
	c := newTestConnection(t, [32]byte{}, false)

	var got []VoiceReceivedEvent
	c.OnVoiceReceived(func(ev VoiceReceivedEvent) { got = append(got, ev) })

	c.handleIncomingPacket([]byte{1, 2, 3})

	if len(got) != 0 {
		t.Fatalf("expected no events for a too-short packet, got %d", len(got))
	}
}

func TestHandleIncomingPacketBadAuthIsDropped(t *testing.T) {
	var key [32]byte
	c := newTestConnection(t, key, false)

	var got []VoiceReceivedEvent
	c.OnVoiceReceived(func(ev VoiceReceivedEvent) { got = append(got, ev) })

	header := rtp.BuildHeader(1, 960, 42)
	packet := rtp.Frame(header, []byte("not a valid secretbox payload"))
	c.handleIncomingPacket(packet)

	if len(got) != 0 {
		t.Fatalf("expected no events for a packet that fails authentication, got %d", len(got))
	}
}

func TestHandleIncomingPacketResolvesSSRCAndEmits(t *testing.T) {
	enc, err := opus.NewEncoder(opus.AppVoIP)
	if err != nil {
		t.Skipf("opus encoder unavailable: %v", err)
	}

	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}

	c := newTestConnection(t, key, true)
	c.ssrc.Store(42, ID(7))

	const frameSamples = 960 // 20ms at 48kHz stereo
	pcm := make([]byte, frameSamples*2*2)
	opusPacket, err := enc.Encode(pcm, 0, len(pcm), 16)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	header := rtp.BuildHeader(5, 960, 42)
	nonce := rtp.MakeNonce(header)
	ciphertext := secretboxEncrypt(opusPacket, nonce, key)
	packet := rtp.Frame(header, ciphertext)

	var got []VoiceReceivedEvent
	c.OnVoiceReceived(func(ev VoiceReceivedEvent) { got = append(got, ev) })

	c.handleIncomingPacket(packet)

	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	ev := got[0]
	if ev.SSRC != 42 {
		t.Fatalf("SSRC = %d, want 42", ev.SSRC)
	}
	if ev.FrameLen != 20 {
		t.Fatalf("FrameLen = %d, want 20", ev.FrameLen)
	}
	// No guild-member or user cache is configured, so the id resolved
	// from the SSRC map comes back as a synthesized minimal record.
	if ev.User.ID != 7 || !ev.User.Synthesized {
		t.Fatalf("User = %+v, want synthesized user with resolved id 7", ev.User)
	}
	if len(ev.PCM) != len(pcm) {
		t.Fatalf("decoded PCM len = %d, want %d", len(ev.PCM), len(pcm))
	}
}

func TestHandleIncomingPacketUnknownSSRCSynthesizesUser(t *testing.T) {
	enc, err := opus.NewEncoder(opus.AppVoIP)
	if err != nil {
		t.Skipf("opus encoder unavailable: %v", err)
	}

	var key [32]byte
	c := newTestConnection(t, key, true)

	pcm := make([]byte, 960*2*2)
	opusPacket, err := enc.Encode(pcm, 0, len(pcm), 16)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	header := rtp.BuildHeader(1, 960, 99)
	nonce := rtp.MakeNonce(header)
	ciphertext := secretboxEncrypt(opusPacket, nonce, key)
	packet := rtp.Frame(header, ciphertext)

	var got []VoiceReceivedEvent
	c.OnVoiceReceived(func(ev VoiceReceivedEvent) { got = append(got, ev) })

	c.handleIncomingPacket(packet)

	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if !got[0].User.Synthesized {
		t.Fatalf("expected a synthesized user for an unannounced ssrc")
	}
}
