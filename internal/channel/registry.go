// Package channel implements the channel registry of spec §4.5: the
// id-to-handle map a session maintains for every joined channel, and the
// handles applications send through.
package channel

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/skybridge-games/corenet/internal/logger"
	"github.com/skybridge-games/corenet/internal/protocol"
	"github.com/skybridge-games/corenet/internal/wire"
)

// ErrChannelClosed is returned by any send on a Channel the registry has
// already destroyed (spec §4.5 "Sending on a destroyed channel is an
// error").
var ErrChannelClosed = errors.New("channel: send on destroyed channel")

// Listener receives channel lifecycle and message events, dispatched only
// from the driver's callback context (spec §4.5: "no concurrent access is
// permitted").
type Listener interface {
	OnJoinedChannel(ch *Channel)
	OnChannelClosed(ch *Channel)
	OnUserJoined(ch *Channel, user wire.Identifier)
	OnUserLeft(ch *Channel, user wire.Identifier)
	OnMessage(ch *Channel, from wire.Identifier, fromServer bool, reliable bool, payload []byte)
}

// Registry maps channel identifiers to handles, per spec §4.5. It is
// exercised only by the single cooperative thread of control described in
// spec §5; it carries no lock of its own.
type Registry struct {
	channels map[wire.Identifier]*Channel
	codec    *protocol.Codec
	tx       protocol.Transmitter
	listener Listener
	serverID wire.Identifier
}

// NewRegistry returns an empty registry. tx is the transport the registry's
// channels transmit through; listener receives lifecycle/message events.
func NewRegistry(codec *protocol.Codec, tx protocol.Transmitter, listener Listener) *Registry {
	return &Registry{
		channels: make(map[wire.Identifier]*Channel),
		codec:    codec,
		tx:       tx,
		listener: listener,
	}
}

// SetServerID records the session's server identifier so broadcasts whose
// sender is the server can be tagged distinctly (spec §4.5 "distinguished
// 'from server' marker").
func (r *Registry) SetServerID(id wire.Identifier) {
	r.serverID = id
}

// SetTransmitter swaps the outbound collaborator, used after a reconnect or
// fail-over establishes a new transport.Driver.
func (r *Registry) SetTransmitter(tx protocol.Transmitter) {
	r.tx = tx
}

// Lookup returns the channel for id, if any.
func (r *Registry) Lookup(id wire.Identifier) (*Channel, bool) {
	ch, ok := r.channels[id]
	return ch, ok
}

// Len reports how many channels are currently registered.
func (r *Registry) Len() int {
	return len(r.channels)
}

// CloseAll destroys every still-registered channel, firing OnChannelClosed
// for each before clearing the map. Used on session teardown (spec §3
// "Channel... destroyed on... session teardown"); unlike LEFT_CHAN this
// is a local-only close, never a server round trip.
func (r *Registry) CloseAll() {
	for id, ch := range r.channels {
		ch.closed = true
		delete(r.channels, id)
		if r.listener != nil {
			r.listener.OnChannelClosed(ch)
		}
	}
}

// HandleJoinedChan processes a JOINED_CHAN frame (spec §4.5).
func (r *Registry) HandleJoinedChan(name string, id wire.Identifier) {
	if _, exists := r.channels[id]; exists {
		logger.Log.Warn("channel: JOINED_CHAN for already-registered id, ignoring",
			zap.String("id", id.String()), zap.String("name", name))
		return
	}
	ch := &Channel{id: id, name: name, registry: r}
	r.channels[id] = ch
	if r.listener != nil {
		r.listener.OnJoinedChannel(ch)
	}
}

// HandleLeftChan processes a LEFT_CHAN frame (spec §4.5).
func (r *Registry) HandleLeftChan(id wire.Identifier) {
	ch, ok := r.channels[id]
	if !ok {
		logger.Log.Warn("channel: LEFT_CHAN for unknown id, ignoring", zap.String("id", id.String()))
		return
	}
	ch.closed = true
	delete(r.channels, id)
	if r.listener != nil {
		r.listener.OnChannelClosed(ch)
	}
}

// HandleUserJoinedChan processes a USER_JOINED_CHAN frame.
func (r *Registry) HandleUserJoinedChan(channelID, user wire.Identifier) {
	ch, ok := r.channels[channelID]
	if !ok {
		logger.Log.Error("channel: USER_JOINED_CHAN for unknown channel", zap.String("channel", channelID.String()))
		return
	}
	if r.listener != nil {
		r.listener.OnUserJoined(ch, user)
	}
}

// HandleUserLeftChan processes a USER_LEFT_CHAN frame.
func (r *Registry) HandleUserLeftChan(channelID, user wire.Identifier) {
	ch, ok := r.channels[channelID]
	if !ok {
		logger.Log.Error("channel: USER_LEFT_CHAN for unknown channel", zap.String("channel", channelID.String()))
		return
	}
	if r.listener != nil {
		r.listener.OnUserLeft(ch, user)
	}
}

// HandleUnicast dispatches a decoded RCV_UNICAST to its channel.
func (r *Registry) HandleUnicast(reliable bool, channelID, from, to wire.Identifier, payload []byte) {
	r.dispatchMessage(channelID, from, reliable, payload)
}

// HandleMulticast dispatches a decoded RCV_MULTICAST to its channel.
func (r *Registry) HandleMulticast(reliable bool, channelID, from wire.Identifier, to []wire.Identifier, payload []byte) {
	r.dispatchMessage(channelID, from, reliable, payload)
}

// HandleBroadcast dispatches a decoded RCV_BROADCAST to its channel.
func (r *Registry) HandleBroadcast(reliable bool, channelID, from wire.Identifier, payload []byte) {
	r.dispatchMessage(channelID, from, reliable, payload)
}

func (r *Registry) dispatchMessage(channelID, from wire.Identifier, reliable bool, payload []byte) {
	ch, ok := r.channels[channelID]
	if !ok {
		logger.Log.Error("channel: message for unknown channel, dropping", zap.String("channel", channelID.String()))
		return
	}
	if r.listener != nil {
		r.listener.OnMessage(ch, from, from.Equal(r.serverID), reliable, payload)
	}
}

// Channel is a live handle to a joined channel (spec §3 "Channel"). A
// Channel removed by LEFT_CHAN or CloseAll is closed; sends on it return
// ErrChannelClosed.
type Channel struct {
	id       wire.Identifier
	name     string
	registry *Registry
	closed   bool
}

// ID returns the channel's wire identifier.
func (c *Channel) ID() wire.Identifier { return c.id }

// Name returns the channel's display name, as given by JOINED_CHAN.
func (c *Channel) Name() string { return c.name }

// Closed reports whether this channel has been removed from its registry,
// by LEFT_CHAN or by CloseAll.
func (c *Channel) Closed() bool { return c.closed }

// SendUnicast transmits data to a single recipient on this channel.
func (c *Channel) SendUnicast(to wire.Identifier, reliable bool, data []byte) error {
	if c.closed {
		return errors.WithStack(ErrChannelClosed)
	}
	return c.registry.codec.SendUnicast(c.registry.tx, c.id, to, reliable, data)
}

// SendMulticast transmits data to up to 255 recipients on this channel.
func (c *Channel) SendMulticast(to []wire.Identifier, reliable bool, data []byte) error {
	if c.closed {
		return errors.WithStack(ErrChannelClosed)
	}
	return c.registry.codec.SendMulticast(c.registry.tx, c.id, to, reliable, data)
}

// SendBroadcast transmits data to every member of this channel.
func (c *Channel) SendBroadcast(reliable bool, data []byte) error {
	if c.closed {
		return errors.WithStack(ErrChannelClosed)
	}
	return c.registry.codec.SendBroadcast(c.registry.tx, c.id, reliable, data)
}

// Leave requests departure from this channel (REQ_LEAVE_CHAN). The
// channel remains registered until the server's LEFT_CHAN confirms it.
func (c *Channel) Leave() error {
	if c.closed {
		return errors.WithStack(ErrChannelClosed)
	}
	return c.registry.codec.SendLeaveChannel(c.registry.tx, c.id)
}
