package broker

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-stomp/stomp/v3"
	"github.com/gorilla/websocket"
)

// disconnectTimeout bounds the wait for the broker's RECEIPT to a
// DISCONNECT; the connection is dropped once it expires.
const disconnectTimeout = 2 * time.Second

// errSessionClosed is reported when the broker ends a session without
// an ERROR frame.
var errSessionClosed = errors.New("connection closed by broker")

// Message is one frame delivered on a subscription. Err is set when
// the broker reported a protocol-level error; the session ends after
// it.
type Message struct {
	Body []byte
	Err  error
}

// Session is an established broker connection with an active
// subscription to one topic.
type Session interface {
	// Messages delivers received messages in arrival order. It is
	// closed when the session ends.
	Messages() <-chan Message
	// Close drops the subscription and the connection. It is safe to
	// call more than once.
	Close() error
}

// Dialer opens sessions. Dial blocks until the broker handshake and
// subscription complete or ctx is cancelled.
type Dialer interface {
	Dial(ctx context.Context, topic string) (Session, error)
}

// websocketDialer speaks STOMP over a WebSocket, the way browser
// dashboards reach brokers such as Spring's message broker relay.
type websocketDialer struct {
	brokerURL  string
	host       string
	heartBeat  time.Duration
	constraint *semver.Constraints
	ws         *websocket.Dialer
}

func newWebSocketDialer(brokerURL *url.URL, heartBeat time.Duration, constraint *semver.Constraints) *websocketDialer {
	return &websocketDialer{
		brokerURL:  brokerURL.String(),
		host:       brokerURL.Hostname(),
		heartBeat:  heartBeat,
		constraint: constraint,
		ws: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			Subprotocols:     []string{"v12.stomp", "v11.stomp", "v10.stomp"},
		},
	}
}

func (d *websocketDialer) Dial(ctx context.Context, topic string) (Session, error) {
	ws, _, err := d.ws.DialContext(ctx, d.brokerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", d.brokerURL, err)
	}
	rwc := newWSConn(ws)

	// stomp.Connect is not context-aware; closing the socket unblocks
	// the handshake when ctx is cancelled.
	stopAbort := context.AfterFunc(ctx, func() { _ = rwc.Close() })
	conn, err := stomp.Connect(rwc,
		stomp.ConnOpt.Host(d.host),
		stomp.ConnOpt.HeartBeat(d.heartBeat, d.heartBeat),
		stomp.ConnOpt.DisconnectReceiptTimeout(disconnectTimeout),
	)
	stopAbort()
	if err != nil {
		_ = rwc.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("stomp connect: %w", err)
	}

	if err := d.checkVersion(conn.Version()); err != nil {
		_ = conn.MustDisconnect()
		return nil, err
	}

	sub, err := conn.Subscribe(topic, stomp.AckAuto)
	if err != nil {
		_ = conn.MustDisconnect()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	s := &stompSession{
		conn:   conn,
		sub:    sub,
		out:    make(chan Message),
		closed: make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

// checkVersion rejects brokers whose negotiated protocol version falls
// outside the configured constraint.
func (d *websocketDialer) checkVersion(v stomp.Version) error {
	if d.constraint == nil {
		return nil
	}
	ver, err := semver.NewVersion(string(v))
	if err != nil {
		return fmt.Errorf("broker protocol version %q: %w", v, err)
	}
	if !d.constraint.Check(ver) {
		return fmt.Errorf("broker protocol version %s does not satisfy %q", v, d.constraint.String())
	}
	return nil
}

type stompSession struct {
	conn *stomp.Conn
	sub  *stomp.Subscription
	out  chan Message

	closeOnce sync.Once
	closed    chan struct{}
}

func (s *stompSession) Messages() <-chan Message {
	return s.out
}

// pump converts subscription frames into Messages until the
// subscription ends, an ERROR frame arrives or the session is closed.
func (s *stompSession) pump() {
	defer close(s.out)

	for {
		select {
		case m, ok := <-s.sub.C:
			if !ok {
				return
			}

			msg := Message{Err: m.Err}
			if m.Err == nil {
				msg.Body = m.Body
			}

			select {
			case s.out <- msg:
			case <-s.closed:
				return
			}

			if m.Err != nil {
				return
			}
		case <-s.closed:
			return
		}
	}
}

// Close disconnects gracefully, waiting at most disconnectTimeout for
// the broker to confirm.
func (s *stompSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Disconnect()
	})
	return err
}
