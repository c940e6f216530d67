package voice

import (
	"context"
	"testing"
	"time"
)

func TestPlaybackSignalIsPlayingLifecycle(t *testing.T) {
	p := newPlaybackSignal()

	if p.IsPlaying() {
		t.Fatalf("IsPlaying = true before Start")
	}

	if wasPlaying := p.Start(); wasPlaying {
		t.Fatalf("Start reported wasPlaying = true on first arm")
	}
	if !p.IsPlaying() {
		t.Fatalf("IsPlaying = false after Start")
	}

	// send_speaking(true) is idempotent: a second Start while already
	// playing must report wasPlaying = true and not re-arm the signal.
	if wasPlaying := p.Start(); !wasPlaying {
		t.Fatalf("Start reported wasPlaying = false while already playing")
	}

	p.Finish()
	if p.IsPlaying() {
		t.Fatalf("IsPlaying = true after Finish")
	}
}

func TestPlaybackSignalWaitReturnsImmediatelyWhenIdle(t *testing.T) {
	p := newPlaybackSignal()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := p.Wait(ctx); err != nil {
		t.Fatalf("Wait on idle signal: %v", err)
	}
}

func TestPlaybackSignalWaitBlocksUntilFinish(t *testing.T) {
	p := newPlaybackSignal()
	p.Start()

	done := make(chan error, 1)
	go func() {
		done <- p.Wait(context.Background())
	}()

	select {
	case <-done:
		t.Fatalf("Wait returned before Finish")
	case <-time.After(20 * time.Millisecond):
	}

	p.Finish()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Wait did not unblock after Finish")
	}
}

func TestPlaybackSignalFinishIdempotent(t *testing.T) {
	p := newPlaybackSignal()
	p.Start()
	p.Finish()
	p.Finish() // must not panic on double-close
}
