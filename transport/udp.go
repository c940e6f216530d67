package transport

import (
	"net"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// maxPacketSize comfortably bounds an RTP packet carrying a 20-60ms
// Opus frame plus header and secretbox MAC.
const maxPacketSize = 1400

// ErrUDPClosed is returned by Send/Receive once Close has run.
var ErrUDPClosed = errors.New("transport: udp socket is closed")

// UDP is a connected-datagram shim: setup dials a fixed peer, Send
// writes a datagram, and a background reader goroutine continuously
// drains the socket into a buffered channel so DataAvailable can report
// a non-negative backlog without a blocking read (§4.4, §4.8 step 1).
// Grounded on voice/udp/connection.go's net.Dialer-based dial, rebuilt
// around a reader goroutine instead of synchronous Read calls so the
// receiver loop can poll cooperatively.
type UDP struct {
	conn *net.UDPConn

	packets chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// Setup resolves host:port and connects a UDP socket to it.
func Setup(host string, port int) (*UDP, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, errors.Wrap(err, "transport: resolve udp addr")
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, errors.Wrap(err, "transport: dial udp")
	}

	u := &UDP{
		conn:    conn,
		packets: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
	go u.readLoop()

	return u, nil
}

func (u *UDP) readLoop() {
	defer close(u.packets)

	buf := make([]byte, maxPacketSize)
	for {
		n, err := u.conn.Read(buf)
		if err != nil {
			return
		}

		packet := make([]byte, n)
		copy(packet, buf[:n])

		select {
		case u.packets <- packet:
		case <-u.closed:
			return
		}
	}
}

// Send writes one datagram to the connected peer.
func (u *UDP) Send(b []byte) error {
	select {
	case <-u.closed:
		return ErrUDPClosed
	default:
	}

	_, err := u.conn.Write(b)
	if err != nil {
		return errors.Wrap(err, "transport: udp write failed")
	}
	return nil
}

// DataAvailable returns the number of packets currently buffered and
// ready for Receive, never blocking.
func (u *UDP) DataAvailable() int {
	return len(u.packets)
}

// Receive returns the next buffered packet, or ErrUDPClosed if the
// socket has been closed and drained. Callers are expected to check
// DataAvailable first per the receiver loop's polling design (§4.8).
func (u *UDP) Receive() ([]byte, error) {
	packet, ok := <-u.packets
	if !ok {
		return nil, ErrUDPClosed
	}
	return packet, nil
}

// Close stops the reader goroutine and closes the underlying socket. It
// is safe to call more than once.
func (u *UDP) Close() error {
	var err error
	u.closeOnce.Do(func() {
		close(u.closed)
		err = u.conn.Close()
	})
	return err
}
