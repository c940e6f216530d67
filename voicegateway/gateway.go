package voicegateway

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/fenwickvoice/voiceengine/internal/backoff"
	"github.com/fenwickvoice/voiceengine/internal/heart"
	"github.com/fenwickvoice/voiceengine/transport"
)

// protocolVersion is the "v" query parameter on the signalling URL.
const protocolVersion = "3"

// Gateway runs the signalling state machine described in §4.5: it owns
// the WebSocket transport, dispatches opcodes to the registered
// callbacks, drives the heartbeat pacemaker once ready, and reconnects
// with backoff on an unexpected close.
//
// Grounded on the teacher's voice/voicegateway.Gateway, replacing its
// blocking wsutil.WaitForEvent/PacemakerLoop machinery with a single
// dispatch goroutine and typed callback fields (§9's guidance on
// re-architecting task-completion-source and mutable-field patterns).
type Gateway struct {
	state State
	dial  time.Duration

	mu  sync.RWMutex
	ws  *transport.WebSocket
	udp *transport.UDP

	ready      ReadyEvent
	pace       *heart.Pacemaker
	paceCancel context.CancelFunc

	// lifectx is canceled exactly once, by Close, so every pacemaker
	// this gateway ever starts is torn down alongside the rest of the
	// connection's tasks (§5: "a single cancellation source per
	// connection signals all tasks").
	lifectx    context.Context
	lifecancel context.CancelFunc

	disposed     atomic.Bool
	reconnecting atomic.Bool

	Logger *zap.SugaredLogger

	// OnReady fires once the Ready opcode has been processed and IP
	// discovery has completed, with the discovered local address/port
	// already sent via SelectProtocol.
	OnReady func(ReadyEvent)
	// OnSessionDescription fires once the shared key arrives.
	OnSessionDescription func(SessionDescriptionEvent)
	// OnSpeaking fires for every inbound speaking update.
	OnSpeaking func(SpeakingEvent)
	// OnHeartbeatAck fires with the round-trip time whenever op 3 or op
	// 6 is received (§4.5: "Upon op 3/6: compute ping").
	OnHeartbeatAck func(time.Duration)
	// OnInvalidated fires when the session is invalidated (opcode 9);
	// the gateway has already cleared the resume flag and re-identified
	// by the time this is called.
	OnInvalidated func()
	// OnSocketError fires for any transport-level failure, including
	// ones that trigger a reconnect.
	OnSocketError func(error)
}

// New constructs a Gateway for the given identity. state.Resume selects
// Resume over Identify on the first Open.
func New(state State, dialTimeout time.Duration) *Gateway {
	lifectx, lifecancel := context.WithCancel(context.Background())
	return &Gateway{
		state:      state,
		dial:       dialTimeout,
		Logger:     zap.NewNop().Sugar(),
		lifectx:    lifectx,
		lifecancel: lifecancel,
	}
}

// UDP returns the media socket established during IP discovery, or nil
// before Ready has been processed.
func (g *Gateway) UDP() *transport.UDP {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.udp
}

// Open dials the signalling WebSocket, identifies or resumes, and
// starts the dispatch loop. It returns once the socket is open and the
// initial identify/resume frame has been sent; readiness is reported
// asynchronously through OnReady.
func (g *Gateway) Open(ctx context.Context) error {
	host, _ := splitEndpoint(g.state.Endpoint)
	url := "wss://" + host + "/?encoding=json&v=" + protocolVersion

	dialCtx, cancel := context.WithTimeout(ctx, g.dial)
	defer cancel()

	ws := transport.NewWebSocket()
	messages, err := ws.Connect(dialCtx, url)
	if err != nil {
		return errors.Wrap(err, "voicegateway: failed to dial signalling socket")
	}

	g.mu.Lock()
	g.ws = ws
	g.mu.Unlock()

	if g.state.Resume {
		if err := g.sendResume(ctx); err != nil {
			return err
		}
	} else {
		if err := g.sendIdentify(ctx); err != nil {
			return err
		}
	}

	go g.dispatch(messages)
	return nil
}

// Close disposes the gateway: it stops the heartbeat, closes the
// WebSocket, and closes the UDP socket if one was opened. Re-entrant;
// double-close is a no-op (§5).
func (g *Gateway) Close() error {
	if !g.disposed.CompareAndSwap(false, true) {
		return nil
	}

	g.lifecancel()

	g.mu.Lock()
	ws, udp := g.ws, g.udp
	g.mu.Unlock()

	if udp != nil {
		udp.Close()
	}
	if ws != nil {
		return ws.Disconnect(1000)
	}
	return nil
}

func (g *Gateway) dispatch(messages <-chan transport.TextMessage) {
	for msg := range messages {
		if msg.Err != nil {
			g.handleClose(msg.Err)
			return
		}

		var op OP
		if err := json.Unmarshal(msg.Data, &op); err != nil {
			g.Logger.Warnw("voicegateway: malformed frame", "err", err)
			continue
		}

		if err := g.handle(op); err != nil {
			g.Logger.Warnw("voicegateway: error handling opcode", "op", op.Code, "err", err)
		}
	}
}

func (g *Gateway) handle(op OP) error {
	switch op.Code {
	case ReadyOP:
		return g.handleReady(op.Data)

	case SessionDescriptionOP:
		var ev SessionDescriptionEvent
		if err := json.Unmarshal(op.Data, &ev); err != nil {
			return errors.Wrap(err, "failed to parse session description")
		}
		if g.OnSessionDescription != nil {
			g.OnSessionDescription(ev)
		}

	case SpeakingOP:
		var ev SpeakingEvent
		if err := json.Unmarshal(op.Data, &ev); err != nil {
			return errors.Wrap(err, "failed to parse speaking update")
		}
		if g.OnSpeaking != nil {
			g.OnSpeaking(ev)
		}

	case HeartbeatOP, HeartbeatAckOP:
		rtt := time.Duration(0)
		if g.pace != nil {
			rtt = g.pace.Echo()
		}
		if g.OnHeartbeatAck != nil {
			g.OnHeartbeatAck(rtt)
		}

	case HelloOP:
		// Tolerated, ignored (§4.5).

	case InvalidatedOP:
		g.state.Resume = false
		if err := g.sendIdentify(context.Background()); err != nil {
			return err
		}
		if g.OnInvalidated != nil {
			g.OnInvalidated()
		}

	default:
		g.Logger.Warnw("voicegateway: unknown opcode", "op", op.Code)
	}

	return nil
}

func (g *Gateway) handleReady(data []byte) error {
	var ready ReadyEvent
	if err := json.Unmarshal(data, &ready); err != nil {
		return errors.Wrap(err, "failed to parse ready event")
	}

	pace := heart.NewPacemaker(
		time.Duration(ready.HeartbeatInterval)*time.Millisecond,
		func(ctx context.Context) error { return g.sendHeartbeat(ctx) },
	)
	paceCtx, paceCancel := context.WithCancel(g.lifectx)

	g.mu.Lock()
	g.ready = ready
	if g.paceCancel != nil {
		// A prior Ready (a resume after reconnect) already started a
		// pacemaker; stop it before replacing g.pace so it never keeps
		// writing heartbeats to a socket this gateway has moved on from.
		g.paceCancel()
	}
	g.pace = pace
	g.paceCancel = paceCancel
	ws := g.ws
	g.mu.Unlock()

	go func() {
		if err := pace.Run(paceCtx); err != nil {
			g.Logger.Warnw("voicegateway: heartbeat loop ended", "err", err)
			// A non-nil Run error (including heart.ErrDead, the
			// stalled-ack case in which the peer never closes the
			// socket on its own) must still force the "socket closed
			// unexpectedly" reconnect path of §4.5, or it is a no-op.
			if ws != nil {
				ws.Disconnect(1006)
			}
		}
	}()

	host, _ := splitEndpoint(g.state.Endpoint)
	udp, err := transport.Setup(host, ready.Port)
	if err != nil {
		return errors.Wrap(err, "voicegateway: failed to open udp socket")
	}

	g.mu.Lock()
	g.udp = udp
	g.mu.Unlock()

	addr, port, err := discover(udp, ready.SSRC)
	if err != nil {
		return err
	}

	if err := g.sendSelectProtocol(context.Background(), addr, port); err != nil {
		return err
	}

	// A later reconnect resumes this session rather than identifying anew.
	g.state.Resume = true

	if g.OnReady != nil {
		g.OnReady(ready)
	}
	return nil
}

func (g *Gateway) handleClose(err error) {
	g.mu.Lock()
	g.udp = nil
	g.mu.Unlock()

	if g.OnSocketError != nil {
		g.OnSocketError(err)
	}

	if g.disposed.Load() {
		return
	}

	if !g.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer g.reconnecting.Store(false)

	g.reconnect()
}

// reconnect rebuilds the WebSocket with growing backoff delays, keeping
// the current resume flag so the next Open attempts a Resume (§4.5:
// "Socket closed unexpectedly").
func (g *Gateway) reconnect() {
	timer := backoff.NewTimer(time.Second, 30*time.Second)
	defer timer.Stop()

	for {
		if g.disposed.Load() {
			return
		}

		<-timer.Next()

		ctx, cancel := context.WithTimeout(context.Background(), g.dial)
		err := g.Open(ctx)
		cancel()
		if err == nil {
			return
		}

		g.Logger.Warnw("voicegateway: reconnect attempt failed", "err", err)
	}
}

func (g *Gateway) send(ctx context.Context, code OPCode, v interface{}) error {
	g.mu.RLock()
	ws := g.ws
	g.mu.RUnlock()

	if ws == nil {
		return errors.New("voicegateway: no active websocket")
	}

	op := OP{Code: code}
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "voicegateway: failed to encode payload")
		}
		op.Data = b
	}

	b, err := json.Marshal(op)
	if err != nil {
		return errors.Wrap(err, "voicegateway: failed to encode frame")
	}

	return ws.SendText(ctx, b)
}

// splitEndpoint separates host[:port] per §6, defaulting to port 80
// when omitted.
func splitEndpoint(endpoint string) (host string, port int) {
	if idx := strings.LastIndex(endpoint, ":"); idx >= 0 {
		if p, err := strconv.Atoi(endpoint[idx+1:]); err == nil {
			return endpoint[:idx], p
		}
	}
	return endpoint, 80
}
