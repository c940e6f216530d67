package voice

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/fenwickvoice/voiceengine/opus"
	"github.com/fenwickvoice/voiceengine/voicegateway"
)

// Server is the voice-server payload the upstream client supplies:
// the negotiated endpoint, the guild the connection belongs to, and an
// auth token (§6).
type Server struct {
	Endpoint string
	GuildID  ID
	Token    string
}

// VoiceState is the voice-state payload the upstream client supplies:
// this client's own user id and the session id the server assigned
// (§6).
type VoiceState struct {
	UserID    ID
	SessionID string
}

// Connection is the top-level entity, one per active voice channel
// (§3). Construct with NewConnection, open the signalling handshake
// with Connect, and release all resources with Disconnect. Disconnect
// is idempotent.
//
// Grounded on the teacher's voice.Connection and voice.Session: the
// field layout follows Connection's attribute list, while the
// close-once/reconnect-indirection pattern follows Session's
// mutex-guarded state plus the §9 note against replacing a transport
// object reference in place.
type Connection struct {
	cfg Config

	GuildID   ID
	ChannelID ID

	gw *voicegateway.Gateway

	evMut sync.RWMutex
	ev    events

	ssrc *ssrcMap
	enc  *opus.Encoder
	dec  *opus.Decoder

	ownSSRC atomic.Uint32

	keyMu sync.RWMutex
	key   [32]byte
	ready atomic.Bool

	readyOnce sync.Once
	readyCh   chan struct{}

	disposed atomic.Bool

	// sendMu is the send-path mutual-exclusion token (§3): at most one
	// encode-encrypt-transmit may be in flight per connection.
	sendMu sync.Mutex

	// media cursor (§3), mutated only while sendMu is held.
	seq uint16
	ts  uint32

	// pacing clock anchor (§3, §4.7): a monotonic tick count and the
	// tick-per-frame step, also only touched under sendMu.
	pacingSet bool
	anchor    time.Time
	step      time.Duration

	playback *playbackSignal

	pingMS atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewConnection constructs a Connection for the given guild/channel,
// applying cfg's defaults. Call Connect to open the signalling
// handshake.
func NewConnection(guildID, channelID ID, cfg Config) *Connection {
	cfg = cfg.withDefaults()

	c := &Connection{
		cfg:       cfg,
		GuildID:   guildID,
		ChannelID: channelID,
		ssrc:      newSSRCMap(),
		readyCh:   make(chan struct{}),
		playback:  newPlaybackSignal(),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Connect dials the signalling WebSocket and drives the state machine
// described in §4.5 toward readiness. It returns once the initial
// identify (or resume) frame has been sent; use WaitReady to block
// until the session key has been received.
func (c *Connection) Connect(ctx context.Context, server Server, state VoiceState) error {
	enc, err := opus.NewEncoder(c.cfg.Profile)
	if err != nil {
		return err
	}
	c.enc = enc

	if c.cfg.EnableIncoming {
		dec, err := opus.NewDecoder()
		if err != nil {
			return err
		}
		c.dec = dec
	}

	c.gw = voicegateway.New(voicegateway.State{
		GuildID:   uint64(server.GuildID),
		UserID:    uint64(state.UserID),
		ChannelID: uint64(c.ChannelID),
		SessionID: state.SessionID,
		Token:     server.Token,
		Endpoint:  server.Endpoint,
	}, c.cfg.DialTimeout)
	c.gw.Logger = c.cfg.Logger

	c.gw.OnReady = c.onReady
	c.gw.OnSessionDescription = c.onSessionDescription
	c.gw.OnSpeaking = c.onSpeaking
	c.gw.OnHeartbeatAck = c.onHeartbeatAck
	c.gw.OnSocketError = c.onSocketError

	return c.gw.Open(ctx)
}

// WaitReady blocks until the session key has been received and the
// connection is ready to send (§3's ready signal), or ctx is done.
func (c *Connection) WaitReady(ctx context.Context) error {
	select {
	case <-c.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connection) onReady(ev voicegateway.ReadyEvent) {
	c.ownSSRC.Store(ev.SSRC)
}

func (c *Connection) onSessionDescription(ev voicegateway.SessionDescriptionEvent) {
	c.keyMu.Lock()
	c.key = ev.SecretKey
	c.keyMu.Unlock()

	c.ready.Store(true)
	c.readyOnce.Do(func() { close(c.readyCh) })

	if c.cfg.EnableIncoming {
		go c.receiveLoop()
	}
}

func (c *Connection) onSpeaking(ev voicegateway.SpeakingEvent) {
	userID := ID(ev.UserID)
	if ev.SSRC != 0 && userID.IsValid() {
		c.ssrc.Store(ev.SSRC, userID)
	}

	c.emitUserSpeaking(UserSpeakingEvent{
		SSRC:     ev.SSRC,
		User:     c.resolveUser(userID),
		Speaking: ev.Speaking,
	})
}

func (c *Connection) onHeartbeatAck(rtt time.Duration) {
	c.pingMS.Store(rtt.Milliseconds())
}

func (c *Connection) onSocketError(err error) {
	c.emitSocketError(SocketErrorEvent{Err: err})
}

// Ping returns the most recent heartbeat round-trip time in
// milliseconds (§6).
func (c *Connection) Ping() int64 {
	return c.pingMS.Load()
}

// Channel returns the connected channel id (§6).
func (c *Connection) Channel() ID {
	return c.ChannelID
}

// IsPlaying reports whether playback is in progress, i.e. between
// send_speaking(true) (or the first Send) and send_speaking(false) or
// Disconnect (§6, §8).
func (c *Connection) IsPlaying() bool {
	return c.playback.IsPlaying()
}

func (c *Connection) sharedKey() ([32]byte, bool) {
	c.keyMu.RLock()
	defer c.keyMu.RUnlock()
	return c.key, c.ready.Load()
}

// Disconnect cancels all tasks, closes the sockets, and drops the
// codec handles. Re-entrant disposal is a no-op (§3, §5).
func (c *Connection) Disconnect() error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil
	}

	c.cancel()
	c.playback.Finish()

	var err error
	if c.gw != nil {
		err = c.gw.Close()
	}

	c.enc = nil
	c.dec = nil

	return err
}
