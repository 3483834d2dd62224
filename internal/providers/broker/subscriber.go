// Package broker implements core.StreamSource on top of a STOMP
// broker reached over WebSocket. Each subscriber runs an explicit
// connect/receive/reconnect state machine with an injectable clock.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"k8s.io/utils/clock"

	"github.com/otterscale/logwatch/internal/core"
)

// Config holds the broker connection settings.
type Config struct {
	BrokerURL      string
	Topic          string
	ReconnectDelay time.Duration
	HeartBeat      time.Duration
	// Protocol is a semver constraint the negotiated STOMP version
	// must satisfy, e.g. ">= 1.1". Empty accepts any version.
	Protocol string
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithDialer replaces the WebSocket/STOMP dialer.
func WithDialer(d Dialer) SourceOption {
	return func(s *Source) { s.dialer = d }
}

// WithClock replaces the clock that times reconnect delays.
func WithClock(c clock.Clock) SourceOption {
	return func(s *Source) { s.clock = c }
}

// Source creates subscribers for one broker and topic.
type Source struct {
	topic  string
	delay  time.Duration
	dialer Dialer
	clock  clock.Clock
	log    *slog.Logger
}

var _ core.StreamSource = (*Source)(nil)

// NewSource validates cfg and returns a Source.
func NewSource(cfg Config, opts ...SourceOption) (*Source, error) {
	u, err := url.Parse(cfg.BrokerURL)
	if err != nil {
		return nil, fmt.Errorf("broker url %q: %w", cfg.BrokerURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("broker url %q: scheme must be ws or wss", cfg.BrokerURL)
	}
	if cfg.Topic == "" {
		return nil, errors.New("broker topic is required")
	}
	if cfg.ReconnectDelay <= 0 {
		return nil, errors.New("reconnect delay must be positive")
	}

	var constraint *semver.Constraints
	if cfg.Protocol != "" {
		constraint, err = semver.NewConstraint(cfg.Protocol)
		if err != nil {
			return nil, fmt.Errorf("protocol constraint %q: %w", cfg.Protocol, err)
		}
	}

	s := &Source{
		topic:  cfg.Topic,
		delay:  cfg.ReconnectDelay,
		dialer: newWebSocketDialer(u, cfg.HeartBeat, constraint),
		clock:  clock.RealClock{},
		log:    slog.Default().With("component", "broker", "topic", cfg.Topic),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewSubscriber returns an idle subscriber delivering to h.
func (s *Source) NewSubscriber(h core.StreamHandler) core.StreamSubscriber {
	return &Subscriber{
		topic:   s.topic,
		delay:   s.delay,
		dialer:  s.dialer,
		clock:   s.clock,
		handler: h,
		log:     s.log,
		state:   core.StateDisconnected,

		terminated: make(chan struct{}),
	}
}

// Subscriber owns one broker connection and its reconnect loop. The
// state is mutated only by the loop goroutine and by Deactivate;
// once Terminated, every further transition is refused.
type Subscriber struct {
	topic   string
	delay   time.Duration
	dialer  Dialer
	clock   clock.Clock
	handler core.StreamHandler
	log     *slog.Logger

	mu        sync.Mutex
	state     core.ConnectionState
	activated bool
	cancel    context.CancelFunc
	done      chan struct{}

	// terminated is closed once the first Deactivate has delivered
	// the final state change.
	terminated chan struct{}
}

var _ core.StreamSubscriber = (*Subscriber)(nil)

// State returns the current connection state.
func (s *Subscriber) State() core.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Activate starts the connect loop.
func (s *Subscriber) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activated || s.state == core.StateTerminated {
		return
	}
	s.activated = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.done)
}

// Deactivate terminates the subscriber and waits for the loop to
// exit. A pending handshake or reconnect wait is abandoned. Concurrent
// callers all return only after the termination has completed.
func (s *Subscriber) Deactivate() {
	s.mu.Lock()
	if s.state == core.StateTerminated {
		s.mu.Unlock()
		<-s.terminated
		return
	}
	s.state = core.StateTerminated
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.log.Info("subscriber terminated")
	s.handler.HandleStateChange(core.StateTerminated)
	close(s.terminated)
}

// run drives the state machine:
//
//	Connecting -> Connected -> Errored -> Reconnecting -> Connecting ...
//
// until ctx is cancelled by Deactivate.
func (s *Subscriber) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if !s.transition(core.StateConnecting) {
			return
		}

		sess, err := s.dialer.Dial(ctx, s.topic)
		if ctx.Err() != nil {
			if sess != nil {
				_ = sess.Close()
			}
			return
		}

		if err != nil {
			err = &core.StreamError{Op: "connect", Err: err}
		} else {
			err = s.receive(ctx, sess)
			if cerr := sess.Close(); cerr != nil {
				s.log.Debug("closing session", "error", cerr)
			}
			if ctx.Err() != nil {
				return
			}
		}

		if !s.fail(err) {
			return
		}
		if !s.transition(core.StateReconnecting) {
			return
		}

		s.log.Warn("stream failed, reconnecting", "error", err, "retry_in", s.delay)
		if !sleepCtx(ctx, s.clock, s.delay) {
			return
		}
	}
}

// receive delivers messages from an established session until it
// fails or ctx is cancelled. It always returns a non-nil error.
func (s *Subscriber) receive(ctx context.Context, sess Session) error {
	if !s.transition(core.StateConnected) {
		return context.Canceled
	}
	s.log.Info("subscribed")

	msgs := sess.Messages()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return &core.StreamError{Op: "receive", Err: errSessionClosed}
			}
			if msg.Err != nil {
				return &core.StreamError{Op: "receive", Err: msg.Err}
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.handler.HandleMessage(core.LogEntry(msg.Body))
		}
	}
}

// fail moves to Errored and notifies the handler. It reports false if
// the subscriber was terminated in the meantime.
func (s *Subscriber) fail(err error) bool {
	if !s.transition(core.StateErrored) {
		return false
	}
	s.handler.HandleError(err)
	return true
}

// transition sets the state unless the subscriber is terminated, then
// notifies the handler.
func (s *Subscriber) transition(to core.ConnectionState) bool {
	s.mu.Lock()
	from := s.state
	if from == core.StateTerminated {
		s.mu.Unlock()
		return false
	}
	s.state = to
	s.mu.Unlock()

	s.log.Debug("state transition", "from", from, "to", to)
	s.handler.HandleStateChange(to)
	return true
}
