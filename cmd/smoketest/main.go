// Command smoketest is a headless CLI harness exercising one full
// connect -> login -> join channel -> send -> disconnect cycle against
// any TCP peer speaking the wire protocol, mirroring
// test/smokeTestClient.c from original_source/.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skybridge-games/corenet/internal/channel"
	"github.com/skybridge-games/corenet/internal/config"
	"github.com/skybridge-games/corenet/internal/discovery"
	"github.com/skybridge-games/corenet/internal/logger"
	"github.com/skybridge-games/corenet/internal/protocol"
	"github.com/skybridge-games/corenet/internal/session"
	"github.com/skybridge-games/corenet/internal/wire"
)

var (
	flagHost    = flag.String("host", "localhost", "server host (overrides config/discovery)")
	flagPort    = flag.Int("port", 0, "server port (overrides config/discovery, 0 to use discovery)")
	flagChannel = flag.String("channel", "lobby", "channel to join after login")
	flagName    = flag.String("name", "smoketest", "login name sent when the server prompts for one")
	flagMessage = flag.String("message", "hello from smoketest", "broadcast payload sent once the channel join is confirmed")
	flagTimeout = flag.Duration("wait", 10*time.Second, "how long to wait for each step before failing")
)

// result tracks pass/fail per step, printed at the end like the original
// smoke test's printResults().
type result struct {
	mu     sync.Mutex
	failed []string
}

func (r *result) fail(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, step)
}

func (r *result) report() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.failed) == 0 {
		fmt.Println("smoketest passed")
		return 0
	}
	for _, step := range r.failed {
		fmt.Printf("smoketest FAILED: %s\n", step)
	}
	fmt.Printf("smoketest failed with %d failures\n", len(r.failed))
	return 1
}

// harness implements session.Listener and channel.Listener, recording
// each lifecycle event the smoke run is waiting on.
type harness struct {
	res *result

	loggedIn   chan wire.Identifier
	joined     chan *channel.Channel
	gotMessage chan []byte
	disconnected chan struct{}
}

func newHarness(res *result) *harness {
	return &harness{
		res:          res,
		loggedIn:     make(chan wire.Identifier, 1),
		joined:       make(chan *channel.Channel, 1),
		gotMessage:   make(chan []byte, 1),
		disconnected: make(chan struct{}, 1),
	}
}

func (h *harness) OnConnected() { logger.Log.Info("connected") }

func (h *harness) OnReconnected() { logger.Log.Info("reconnected") }

func (h *harness) OnFailOverInProgress() { logger.Log.Info("failing over") }

func (h *harness) OnLoginAccepted(user wire.Identifier) {
	logger.Log.Info("login accepted", zap.String("user", user.String()))
	select {
	case h.loggedIn <- user:
	default:
	}
}

func (h *harness) OnLoginRejected(reason string) {
	logger.Log.Error("login rejected", zap.String("reason", reason))
	h.res.fail("login: " + reason)
}

func (h *harness) OnDisconnected() {
	logger.Log.Info("disconnected")
	select {
	case h.disconnected <- struct{}{}:
	default:
	}
}

func (h *harness) OnValidationRequest(callbacks []protocol.ValidationCallback) []protocol.ValidationCallback {
	for i := range callbacks {
		switch callbacks[i].Kind {
		case protocol.CallbackName:
			callbacks[i].Current = *flagName
		case protocol.CallbackPassword:
			callbacks[i].Current = *flagName
		case protocol.CallbackTextInput:
			callbacks[i].Current = callbacks[i].Default
		}
	}
	return callbacks
}

func (h *harness) OnUserAdded(wire.Identifier)        {}
func (h *harness) OnUserDropped(wire.Identifier)      {}
func (h *harness) OnUserDisconnected(wire.Identifier) {}
func (h *harness) OnChannelLocked(name string, user wire.Identifier) {
	logger.Log.Warn("channel locked", zap.String("name", name), zap.String("user", user.String()))
}

func (h *harness) OnJoinedChannel(ch *channel.Channel) {
	logger.Log.Info("joined channel", zap.String("name", ch.Name()))
	select {
	case h.joined <- ch:
	default:
	}
}

func (h *harness) OnChannelClosed(ch *channel.Channel) {
	logger.Log.Info("left channel", zap.String("name", ch.Name()))
}

func (h *harness) OnUserJoined(ch *channel.Channel, user wire.Identifier) {}
func (h *harness) OnUserLeft(ch *channel.Channel, user wire.Identifier)   {}

func (h *harness) OnMessage(ch *channel.Channel, from wire.Identifier, fromServer, reliable bool, payload []byte) {
	logger.Log.Info("channel message", zap.String("channel", ch.Name()), zap.Bool("from_server", fromServer))
	select {
	case h.gotMessage <- payload:
	default:
	}
}

func main() {
	config.ParseFlags()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	res := &result{}
	h := newHarness(res)
	opts := []session.Option{session.WithChannelListener(h)}
	if cfg.Discovery.Endpoint != "" {
		opts = append(opts, session.WithDiscovery(discovery.NewHTTPDiscoverer(cfg.Discovery.Endpoint), nil))
	}
	sess := session.New(cfg, h, opts...)

	ep := discovery.Endpoint{ClassName: cfg.Discovery.ClassName, Host: *flagHost, Port: *flagPort}
	if ep.Port == 0 {
		if cfg.Discovery.GameName != "" {
			if err := sess.ConnectByGameName(context.Background(), cfg.Discovery.GameName); err != nil {
				fmt.Fprintf(os.Stderr, "connect via discovery: %v\n", err)
				os.Exit(1)
			}
		} else {
			fmt.Fprintln(os.Stderr, "no -port given and no discovery.game_name configured")
			os.Exit(1)
		}
	} else if err := sess.Connect(ep); err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}

	// requests funnels every application send (JoinChannel, channel sends,
	// Disconnect) onto the same goroutine that calls Poll, since both sides
	// reach Driver.Transmit/pollOutbound and spec §5 forbids concurrent
	// entry into the transport driver.
	requests := make(chan sendRequest)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			case req := <-requests:
				req.done <- req.fn()
			default:
				if err := sess.Poll(); err != nil {
					logger.Log.Error("poll", zap.Error(err))
				}
			}
		}
	}()
	defer close(stop)

	submit := func(fn func() error) error {
		done := make(chan error, 1)
		requests <- sendRequest{fn: fn, done: done}
		return <-done
	}

	if !waitFor(h.loggedIn, *flagTimeout) {
		res.fail("login timed out")
		os.Exit(res.report())
	}

	if err := submit(func() error { return sess.JoinChannel(*flagChannel) }); err != nil {
		res.fail("join channel: " + err.Error())
		os.Exit(res.report())
	}

	var ch *channel.Channel
	select {
	case ch = <-h.joined:
	case <-time.After(*flagTimeout):
		res.fail("join channel timed out")
		os.Exit(res.report())
	}

	if err := submit(func() error { return ch.SendBroadcast(true, []byte(*flagMessage)) }); err != nil {
		res.fail("broadcast send: " + err.Error())
	}

	select {
	case <-h.gotMessage:
	case <-time.After(*flagTimeout):
		logger.Log.Warn("no echo received within timeout, continuing")
	}

	if err := submit(func() error { return sess.Disconnect(true) }); err != nil {
		res.fail("disconnect: " + err.Error())
	}
	select {
	case <-h.disconnected:
	case <-time.After(*flagTimeout):
		res.fail("disconnect confirmation timed out")
	}

	os.Exit(res.report())
}

// sendRequest is one application-side send (JoinChannel, a channel send,
// Disconnect) queued for the poll goroutine to run between Poll calls.
type sendRequest struct {
	fn   func() error
	done chan error
}

func waitFor(ch <-chan wire.Identifier, timeout time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}
