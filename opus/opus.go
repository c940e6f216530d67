// Package opus wraps github.com/hraban/opus's cgo binding to libopus for
// the fixed format this engine uses throughout: 48 kHz, 2 channels,
// 16-bit signed little-endian PCM (§4.3). Grounded on the encode/decode
// call sites in gabrielpreston-audio-orchestrator's
// internal/voice/decoder.go and processor.go.
package opus

import (
	"encoding/binary"

	hropus "github.com/hraban/opus"
	"github.com/pkg/errors"
)

// Application selects the encoder's tuning profile.
type Application int

const (
	// AppVoIP tunes for speech, the typical voice-chat profile.
	AppVoIP Application = iota
	// AppAudio tunes for general (music-grade) audio.
	AppAudio
	// AppLowDelay tunes for the lowest achievable latency.
	AppLowDelay
)

func (a Application) toHraban() hropus.Application {
	switch a {
	case AppAudio:
		return hropus.AppAudio
	case AppLowDelay:
		return hropus.AppRestrictedLowdelay
	default:
		return hropus.AppVoIP
	}
}

const (
	sampleRate = 48000
	channels   = 2
	// maxFrameSamples bounds decode output: 60ms at 48kHz stereo is the
	// largest frame size this engine supports (§4.3).
	maxFrameSamples = sampleRate / 1000 * 60
)

// ErrCodecFailure wraps any libopus error from Encode or Decode.
var ErrCodecFailure = errors.New("opus: codec failure")

// Encoder encodes 48kHz/stereo/16-bit PCM to Opus.
type Encoder struct {
	enc *hropus.Encoder
}

// NewEncoder constructs an Encoder for the given application profile.
func NewEncoder(app Application) (*Encoder, error) {
	enc, err := hropus.NewEncoder(sampleRate, channels, app.toHraban())
	if err != nil {
		return nil, errors.Wrap(err, "opus: failed to create encoder")
	}
	return &Encoder{enc: enc}, nil
}

// Encode encodes pcm[offset:offset+length] (16-bit LE stereo samples) at
// the given bitrate in kbps, returning the Opus packet bytes (§4.3).
func (e *Encoder) Encode(pcm []byte, offset, length, bitrateKbps int) ([]byte, error) {
	if err := e.enc.SetBitrate(bitrateKbps * 1000); err != nil {
		return nil, errors.Wrap(err, "opus: failed to set bitrate")
	}

	samples := bytesToInt16(pcm[offset : offset+length])

	// libopus never produces an encoded frame larger than the input PCM;
	// this bound is generous.
	out := make([]byte, length)

	n, err := e.enc.Encode(samples, out)
	if err != nil {
		return nil, errors.Wrap(ErrCodecFailure, err.Error())
	}

	return out[:n], nil
}

// Decoder decodes Opus packets back to 48kHz/stereo/16-bit PCM.
type Decoder struct {
	dec *hropus.Decoder
}

// NewDecoder constructs a Decoder.
func NewDecoder() (*Decoder, error) {
	dec, err := hropus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, errors.Wrap(err, "opus: failed to create decoder")
	}
	return &Decoder{dec: dec}, nil
}

// Decode decodes opusData[offset:offset+length] to PCM bytes. The output
// buffer is sized for the largest supported frame (60ms), and the
// returned PCM covers exactly the samples the packet decoded to (960 per
// channel for a 20ms frame); decode errors are reported as
// ErrCodecFailure.
func (d *Decoder) Decode(opusData []byte, offset, length int) ([]byte, error) {
	pcm := make([]int16, maxFrameSamples*channels)

	n, err := d.dec.Decode(opusData[offset:offset+length], pcm)
	if err != nil {
		return nil, errors.Wrap(ErrCodecFailure, err.Error())
	}

	return int16ToBytes(pcm[:n*channels]), nil
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
	}
	return out
}

func int16ToBytes(s []int16) []byte {
	out := make([]byte, len(s)*2)
	for i, v := range s {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(v))
	}
	return out
}
