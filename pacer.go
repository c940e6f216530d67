package voice

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/fenwickvoice/voiceengine/rtp"
)

// pacingStep is the fixed inter-frame wait the pacing clock anchors to,
// regardless of the caller's block_ms (§4.7: "the pacing step is set to
// ... 20 ms worth of ticks").
const pacingStep = 20 * time.Millisecond

// Send encodes, encrypts, frames, and transmits one PCM frame,
// enforcing real-time pacing against the connection's pacing clock
// (§4.7). pcm is one whole frame of 48kHz/stereo/16-bit LE samples;
// bitrateKbps of 0 uses the configured default. After Disconnect it
// returns ErrAlreadyDisposed.
func (c *Connection) Send(ctx context.Context, pcm []byte, blockMs int, bitrateKbps int) error {
	if c.disposed.Load() {
		return ErrAlreadyDisposed
	}
	if !c.ready.Load() {
		return ErrNotInitialized
	}
	if bitrateKbps <= 0 {
		bitrateKbps = c.cfg.DefaultBitrateKbps
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	key, ready := c.sharedKey()
	if !ready {
		return ErrNotInitialized
	}

	if !c.pacingSet {
		c.anchor = time.Now()
		c.step = pacingStep
		c.pacingSet = true
	}

	ssrc := c.ownSSRC.Load()
	header := rtp.BuildHeader(c.seq, c.ts, ssrc)

	opusPacket, err := c.enc.Encode(pcm, 0, len(pcm), bitrateKbps)
	if err != nil {
		return err
	}

	nonce := rtp.MakeNonce(header)
	ciphertext := secretboxEncrypt(opusPacket, nonce, key)
	frame := rtp.Frame(header, ciphertext)

	if wasPlaying := c.playback.Start(); !wasPlaying {
		if err := c.gw.SendSpeaking(ctx, true); err != nil {
			c.cfg.logError("send_speaking(true)", err)
		}
	}

	udp := c.gw.UDP()
	if udp == nil {
		return ErrCannotSend
	}
	if err := udp.Send(frame); err != nil {
		return &TransportError{Op: "udp send", Err: err}
	}

	c.seq++
	c.ts += uint32(48 * blockMs)

	c.waitNextTick()

	return nil
}

// waitNextTick busy-waits until the pacing anchor is reached, then
// advances it by one step. A busy-wait beats OS sleep jitter at 20ms
// granularity (§4.7); runtime.Gosched lets other goroutines run each
// iteration without giving up the tight-spin precision the rationale
// calls for.
func (c *Connection) waitNextTick() {
	next := c.anchor.Add(c.step)
	for time.Now().Before(next) {
		runtime.Gosched()
	}
	c.anchor = next
}

// SendSpeaking sends a speaking update (§6). Setting speaking to false
// resets the pacing anchor and completes the playback-in-progress
// signal, so the next Send starts a fresh pacing epoch (§4.7's
// stop-speaking behavior).
func (c *Connection) SendSpeaking(ctx context.Context, speaking bool) error {
	if !c.ready.Load() {
		return ErrNotInitialized
	}

	if speaking {
		c.playback.Start()
	} else {
		c.sendMu.Lock()
		c.pacingSet = false
		c.sendMu.Unlock()
		c.playback.Finish()
	}

	return c.gw.SendSpeaking(ctx, speaking)
}

// WaitForPlaybackFinish awaits the playback-in-progress signal,
// returning immediately if no play is in flight (§6).
func (c *Connection) WaitForPlaybackFinish(ctx context.Context) error {
	return c.playback.Wait(ctx)
}

// playbackSignal is the one-shot/resettable signal backing IsPlaying
// and WaitForPlaybackFinish (§9's note on task-completion sources:
// modeled as a notify-once channel rather than a finer scheduler
// primitive).
type playbackSignal struct {
	mu     sync.Mutex
	active bool
	done   chan struct{}
}

func newPlaybackSignal() *playbackSignal {
	done := make(chan struct{})
	close(done)
	return &playbackSignal{done: done}
}

// Start arms the signal if it isn't already armed, returning whether it
// was already playing so the caller can make send_speaking(true)
// idempotent (§4.7 step 5).
func (p *playbackSignal) Start() (wasPlaying bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return true
	}
	p.active = true
	p.done = make(chan struct{})
	return false
}

// Finish completes the signal if armed. Idempotent.
func (p *playbackSignal) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		p.active = false
		close(p.done)
	}
}

func (p *playbackSignal) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *playbackSignal) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}
