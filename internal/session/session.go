// Package session implements the session state machine of spec §4.4: it
// owns the transport driver, drives connect/reconnect/fail-over, relays
// validation callbacks, and feeds decoded frames to the channel registry.
package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/skybridge-games/corenet/internal/channel"
	"github.com/skybridge-games/corenet/internal/config"
	"github.com/skybridge-games/corenet/internal/discovery"
	"github.com/skybridge-games/corenet/internal/logger"
	"github.com/skybridge-games/corenet/internal/protocol"
	"github.com/skybridge-games/corenet/internal/transport"
	"github.com/skybridge-games/corenet/internal/wire"
)

// State is one of the three states from spec §4.4's transition diagram.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// ErrNoAttemptsRemaining is returned by Connect when every configured
// connect attempt failed (spec §4.4: "socket fail, no attempts --> notify").
var ErrNoAttemptsRemaining = errors.New("session: exhausted connect attempts")

// ErrNotConnected is returned by any send/join operation attempted outside
// StateConnected.
var ErrNotConnected = errors.New("session: not connected")

// Listener receives every session-level (non-channel) event a Session
// dispatches. Channel lifecycle and message events go to channel.Listener
// instead (spec §4.5 delegates those to "the channel's own... listener").
type Listener interface {
	OnConnected()
	// OnReconnected fires in place of OnConnected when a socket close was
	// recovered via a still-valid reconnect key (spec §6 "Application
	// surface"), so the application can distinguish a resumed session from
	// a fresh one.
	OnReconnected()
	OnLoginAccepted(user wire.Identifier)
	OnLoginRejected(reason string)
	OnDisconnected()
	// OnFailOverInProgress fires when FailOver begins redirecting the
	// session to a new endpoint, before the old transport is torn down
	// (spec §6, spec §4.4 "Fail-over").
	OnFailOverInProgress()
	// OnValidationRequest receives the parsed callback list and returns
	// the same slice with Current (and, for name/text prompts, possibly
	// Default) filled in by the application; the session re-encodes and
	// sends the result (spec §4.4 "Validation flow").
	OnValidationRequest(callbacks []protocol.ValidationCallback) []protocol.ValidationCallback
	OnUserAdded(user wire.Identifier)
	OnUserDropped(user wire.Identifier)
	OnUserDisconnected(user wire.Identifier)
	OnChannelLocked(name string, user wire.Identifier)
}

// Credentials is the application-supplied validation-callback response set
// retained across a reconnect/fail-over so it can be replayed, per spec
// §4.4's "Fail-over": "the client retains credentials across the
// redirect", grounded in ClientConnectionManager.h from original_source/.
type Credentials struct {
	Callbacks []protocol.ValidationCallback
}

// Session drives one client connection to the messaging service. Its hot
// path (Poll) runs on a single cooperative thread of control per spec §5;
// a small sync.Mutex guards the handful of fields an application may read
// from another goroutine (State, UserID) between Poll calls, matching the
// teacher's network.Client's own defensive locking.
type Session struct {
	mu sync.Mutex

	cfg      *config.Config
	codec    *protocol.Codec
	driver   *transport.Driver
	registry *channel.Registry
	listener Listener

	discoveryClient discovery.Client
	policy          discovery.SelectionPolicy
	channelListener channel.Listener

	state    State
	userID   wire.Identifier
	serverID wire.Identifier

	reconnectKey    wire.Identifier
	reconnectExpiry time.Time
	reconnecting    bool
	exiting         bool

	attemptsRemaining int
	lastEndpoint      discovery.Endpoint
	lastCredentials   Credentials
}

var _ protocol.Sink = (*Session)(nil)

// Option configures optional Session collaborators at construction time.
type Option func(*Session)

// WithDiscovery sets the discovery client and endpoint-selection policy
// Connect uses when given a game name instead of a literal Endpoint.
func WithDiscovery(client discovery.Client, policy discovery.SelectionPolicy) Option {
	return func(s *Session) {
		s.discoveryClient = client
		s.policy = policy
	}
}

// WithChannelListener sets the collaborator that receives channel
// lifecycle and message events (spec §4.5). Without one, those events are
// silently dropped after the registry's own bookkeeping.
func WithChannelListener(l channel.Listener) Option {
	return func(s *Session) {
		s.channelListener = l
	}
}

// New returns a disconnected Session. cfg must not be nil; use
// config.Default() for sensible defaults.
func New(cfg *config.Config, listener Listener, opts ...Option) *Session {
	codec := protocol.NewCodec()
	s := &Session{
		cfg:      cfg,
		codec:    codec,
		listener: listener,
		state:    StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = channel.NewRegistry(codec, nil, &channelBridge{session: s})
	return s
}

// channelBridge adapts a Session to channel.Listener, forwarding to
// whatever application-supplied channel.Listener was configured via
// WithChannelListener. It reads that listener at each event, so the
// registry always holds a non-nil Listener, and events are dropped when no
// application listener was configured.
type channelBridge struct {
	session *Session
}

func (b *channelBridge) OnJoinedChannel(ch *channel.Channel) {
	if b.session.channelListener != nil {
		b.session.channelListener.OnJoinedChannel(ch)
	}
}

func (b *channelBridge) OnChannelClosed(ch *channel.Channel) {
	if b.session.channelListener != nil {
		b.session.channelListener.OnChannelClosed(ch)
	}
}

func (b *channelBridge) OnUserJoined(ch *channel.Channel, user wire.Identifier) {
	if b.session.channelListener != nil {
		b.session.channelListener.OnUserJoined(ch, user)
	}
}

func (b *channelBridge) OnUserLeft(ch *channel.Channel, user wire.Identifier) {
	if b.session.channelListener != nil {
		b.session.channelListener.OnUserLeft(ch, user)
	}
}

func (b *channelBridge) OnMessage(ch *channel.Channel, from wire.Identifier, fromServer, reliable bool, payload []byte) {
	if b.session.channelListener != nil {
		b.session.channelListener.OnMessage(ch, from, fromServer, reliable, payload)
	}
}

// State returns the session's current connection state. Safe to call from
// any goroutine.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID returns the authenticated user identifier, valid once
// OnLoginAccepted has fired.
func (s *Session) UserID() wire.Identifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Registry exposes the channel registry for application code that wants
// to enumerate joined channels directly.
func (s *Session) Registry() *channel.Registry {
	return s.registry
}

// ErrNoDiscoveryClient is returned by ConnectByGameName when the Session
// was constructed without WithDiscovery.
var ErrNoDiscoveryClient = errors.New("session: no discovery client configured")

// ConnectByGameName implements the discovery half of spec §4.4's "Connect
// algorithm": resolve gameName via the configured discovery.Client,
// narrow the result to the configured Discovery.ClassName using the
// configured selection policy, and Connect to the chosen Endpoint.
func (s *Session) ConnectByGameName(ctx context.Context, gameName string) error {
	if s.discoveryClient == nil {
		return errors.WithStack(ErrNoDiscoveryClient)
	}
	candidates, err := s.discoveryClient.Resolve(ctx, gameName)
	if err != nil {
		return errors.Wrap(err, "session: resolving game name")
	}
	ep, err := discovery.Select(candidates, s.cfg.Discovery.ClassName, s.policy)
	if err != nil {
		return errors.Wrap(err, "session: selecting endpoint")
	}
	return s.Connect(ep)
}

// Connect implements the dial half of spec §4.4's "Connect algorithm": it
// dials ep exactly as given (it does no discovery; ConnectByGameName does),
// making up to Session.ConnectAttempts attempts with Session.WaitBetweenMillis
// between them, and sends CONNECT_REQ or RECONNECT_REQ depending on
// reconnect-key validity.
func (s *Session) Connect(ep discovery.Endpoint) error {
	s.mu.Lock()
	s.exiting = false
	s.attemptsRemaining = s.cfg.Session.ConnectAttempts
	s.mu.Unlock()
	s.setState(StateConnecting)

	var lastErr error
	for {
		s.mu.Lock()
		remaining := s.attemptsRemaining
		s.mu.Unlock()
		if remaining <= 0 {
			s.setState(StateDisconnected)
			if s.listener != nil {
				s.listener.OnDisconnected()
			}
			if lastErr != nil {
				return errors.Wrap(ErrNoAttemptsRemaining, lastErr.Error())
			}
			return errors.WithStack(ErrNoAttemptsRemaining)
		}

		addr := ep.Host + ":" + strconv.Itoa(ep.Port)
		driver, err := transport.Dial("tcp", addr, s.cfg.Network.ConnectTimeout, s.cfg.Network.NoDelay, transport.MinRingCapacity)
		if err != nil {
			lastErr = err
			s.mu.Lock()
			s.attemptsRemaining--
			s.mu.Unlock()
			logger.Log.Warn("session: connect attempt failed", zap.Error(err), zap.Int("remaining", remaining-1))
			time.Sleep(time.Duration(s.cfg.Session.WaitBetweenMillis) * time.Millisecond)
			continue
		}

		s.mu.Lock()
		s.driver = driver
		s.lastEndpoint = ep
		s.mu.Unlock()
		driver.OnFrame = s.onFrame
		s.registry.SetTransmitter(driver)

		reconnected, err := s.sendConnectOrReconnect()
		if err != nil {
			_ = driver.Close()
			return err
		}

		s.setState(StateConnected)
		if s.listener != nil {
			if reconnected {
				s.listener.OnReconnected()
			} else {
				s.listener.OnConnected()
			}
		}
		return nil
	}
}

// sendConnectOrReconnect sends CONNECT_REQ or RECONNECT_REQ depending on
// reconnect-key validity, reporting which one it chose so the caller can
// fire the matching listener callback.
func (s *Session) sendConnectOrReconnect() (bool, error) {
	s.mu.Lock()
	reconnecting := s.reconnecting && time.Now().Before(s.reconnectExpiry)
	user, key := s.userID, s.reconnectKey
	s.mu.Unlock()

	if reconnecting {
		return true, s.codec.SendReconnect(s.driver, user, key)
	}
	return false, s.codec.SendLogin(s.driver)
}

// Poll drives one non-blocking pass of the underlying transport (spec §5
// "Suspension points"). The caller's external event loop invokes Poll
// repeatedly; WouldBlock-style partial I/O is handled internally and never
// surfaces as an error.
func (s *Session) Poll() error {
	s.mu.Lock()
	driver := s.driver
	s.mu.Unlock()
	if driver == nil {
		return nil
	}
	if err := driver.Poll(); err != nil {
		return s.handleDisconnect(err)
	}
	return nil
}

func (s *Session) onFrame(payload []byte) error {
	return s.codec.Decode(payload, s)
}

func (s *Session) handleDisconnect(cause error) error {
	s.mu.Lock()
	keyValid := !s.reconnectKey.IsZero() && time.Now().Before(s.reconnectExpiry)
	exiting := s.exiting
	endpoint := s.lastEndpoint
	s.mu.Unlock()

	_ = s.teardownTransport()

	if !exiting && keyValid {
		s.mu.Lock()
		s.reconnecting = true
		s.mu.Unlock()
		logger.Log.Info("session: socket closed, reconnect key still valid, retrying", zap.Error(cause))
		return s.Connect(endpoint)
	}

	s.setState(StateDisconnected)
	if s.listener != nil {
		s.listener.OnDisconnected()
	}
	return nil
}

// Disconnect tears down the session. graceful=true sets exiting so a
// socket close is not mistaken for a reconnectable failure, then closes
// the transport; per spec §4.2's outbound table, logout "issues no
// packet" — the server observes the close itself. graceful=false tears
// the transport down the same way but without first suppressing
// reconnect via exiting, i.e. a purely local teardown (spec §4.4
// "Logout").
func (s *Session) Disconnect(graceful bool) error {
	s.mu.Lock()
	s.exiting = graceful
	driver := s.driver
	s.mu.Unlock()

	if driver == nil {
		s.setState(StateDisconnected)
		return nil
	}

	errs := s.teardownTransport()
	s.registry.CloseAll()

	s.mu.Lock()
	s.reconnectKey = wire.Identifier{}
	s.reconnecting = false
	s.lastCredentials = Credentials{}
	s.mu.Unlock()

	s.setState(StateDisconnected)
	if s.listener != nil {
		s.listener.OnDisconnected()
	}
	return errs
}

func (s *Session) teardownTransport() error {
	s.mu.Lock()
	driver := s.driver
	s.driver = nil
	s.mu.Unlock()
	if driver == nil {
		return nil
	}
	return driver.Close()
}

// FailOver implements spec §4.4's "Fail-over": distinct from reconnect, it
// repeats connect + login against a new endpoint using the credentials
// already on file, without consulting a reconnect key.
func (s *Session) FailOver(ep discovery.Endpoint) error {
	if s.listener != nil {
		s.listener.OnFailOverInProgress()
	}
	_ = s.teardownTransport()
	s.mu.Lock()
	s.reconnecting = false
	s.mu.Unlock()
	return s.Connect(ep)
}

// JoinChannel requests membership in the named channel (REQ_JOIN_CHAN).
// The channel becomes usable once the channel.Listener's OnJoinedChannel
// fires.
func (s *Session) JoinChannel(name string) error {
	s.mu.Lock()
	driver := s.driver
	st := s.state
	s.mu.Unlock()
	if st != StateConnected || driver == nil {
		return errors.WithStack(ErrNotConnected)
	}
	return s.codec.SendJoinChannel(driver, name)
}

// SendValidationResponse re-encodes and transmits the application's
// filled-in callback responses (spec §4.4 "Validation flow").
func (s *Session) SendValidationResponse(callbacks []protocol.ValidationCallback) error {
	s.mu.Lock()
	driver := s.driver
	s.lastCredentials = Credentials{Callbacks: callbacks}
	s.mu.Unlock()
	if driver == nil {
		return errors.WithStack(ErrNotConnected)
	}
	return s.codec.SendValidationResponse(driver, callbacks)
}
