package voice

// UserSpeakingEvent is emitted when the signalling gateway reports that
// a user has started or stopped speaking (opcode 5, §4.5).
type UserSpeakingEvent struct {
	SSRC     uint32
	User     User
	Speaking bool
}

// VoiceReceivedEvent is emitted for every successfully decoded inbound
// RTP frame (§4.8).
type VoiceReceivedEvent struct {
	SSRC     uint32
	PCM      []byte
	FrameLen uint32 // milliseconds; always 20 for this engine
	User     User
}

// SocketErrorEvent is emitted whenever the WebSocket transport reports
// an I/O error (§7).
type SocketErrorEvent struct {
	Err error
}

// events is a small synchronous publish/subscribe primitive, one per
// event kind rather than the teacher's single reflection-based handler
// (see DESIGN.md's entry for events.go: slice-based subscriber lists).
// Invocation is synchronous and happens on the goroutine that raised the
// event: the gateway's dispatch loop for speaking and socket-error
// events, the receiver loop for voice-received events. Subscribers that
// need to do slow work should hand off to their own goroutine.
type events struct {
	userSpeaking []func(UserSpeakingEvent)
	voiceRecv    []func(VoiceReceivedEvent)
	socketErr    []func(SocketErrorEvent)
}

// OnUserSpeaking registers fn to be called for every UserSpeakingEvent.
// It returns a function that removes the subscription.
func (c *Connection) OnUserSpeaking(fn func(UserSpeakingEvent)) (unsubscribe func()) {
	c.evMut.Lock()
	defer c.evMut.Unlock()

	idx := len(c.ev.userSpeaking)
	c.ev.userSpeaking = append(c.ev.userSpeaking, fn)

	return func() {
		c.evMut.Lock()
		defer c.evMut.Unlock()
		if idx < len(c.ev.userSpeaking) {
			c.ev.userSpeaking[idx] = nil
		}
	}
}

// OnVoiceReceived registers fn to be called for every VoiceReceivedEvent.
func (c *Connection) OnVoiceReceived(fn func(VoiceReceivedEvent)) (unsubscribe func()) {
	c.evMut.Lock()
	defer c.evMut.Unlock()

	idx := len(c.ev.voiceRecv)
	c.ev.voiceRecv = append(c.ev.voiceRecv, fn)

	return func() {
		c.evMut.Lock()
		defer c.evMut.Unlock()
		if idx < len(c.ev.voiceRecv) {
			c.ev.voiceRecv[idx] = nil
		}
	}
}

// OnSocketError registers fn to be called for every SocketErrorEvent.
func (c *Connection) OnSocketError(fn func(SocketErrorEvent)) (unsubscribe func()) {
	c.evMut.Lock()
	defer c.evMut.Unlock()

	idx := len(c.ev.socketErr)
	c.ev.socketErr = append(c.ev.socketErr, fn)

	return func() {
		c.evMut.Lock()
		defer c.evMut.Unlock()
		if idx < len(c.ev.socketErr) {
			c.ev.socketErr[idx] = nil
		}
	}
}

func (c *Connection) emitUserSpeaking(ev UserSpeakingEvent) {
	c.evMut.RLock()
	fns := c.ev.userSpeaking
	c.evMut.RUnlock()

	for _, fn := range fns {
		if fn != nil {
			fn(ev)
		}
	}
}

func (c *Connection) emitVoiceReceived(ev VoiceReceivedEvent) {
	c.evMut.RLock()
	fns := c.ev.voiceRecv
	c.evMut.RUnlock()

	for _, fn := range fns {
		if fn != nil {
			fn(ev)
		}
	}
}

func (c *Connection) emitSocketError(ev SocketErrorEvent) {
	c.evMut.RLock()
	fns := c.ev.socketErr
	c.evMut.RUnlock()

	for _, fn := range fns {
		if fn != nil {
			fn(ev)
		}
	}
}
