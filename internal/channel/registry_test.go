package channel

import (
	"testing"

	"github.com/skybridge-games/corenet/internal/protocol"
	"github.com/skybridge-games/corenet/internal/wire"
)

type fakeTransmitter struct {
	headers  [][]byte
	payloads [][]byte
}

func (f *fakeTransmitter) Transmit(header, payload []byte) error {
	f.headers = append(f.headers, append([]byte(nil), header...))
	f.payloads = append(f.payloads, append([]byte(nil), payload...))
	return nil
}

type recordingListener struct {
	joined  []*Channel
	closed  []*Channel
	joins   []wire.Identifier
	leaves  []wire.Identifier
	msgs    []recordedMessage
}

type recordedMessage struct {
	from       wire.Identifier
	fromServer bool
	payload    []byte
}

func (l *recordingListener) OnJoinedChannel(ch *Channel)         { l.joined = append(l.joined, ch) }
func (l *recordingListener) OnChannelClosed(ch *Channel)         { l.closed = append(l.closed, ch) }
func (l *recordingListener) OnUserJoined(ch *Channel, user wire.Identifier) {
	l.joins = append(l.joins, user)
}
func (l *recordingListener) OnUserLeft(ch *Channel, user wire.Identifier) {
	l.leaves = append(l.leaves, user)
}
func (l *recordingListener) OnMessage(ch *Channel, from wire.Identifier, fromServer, reliable bool, payload []byte) {
	l.msgs = append(l.msgs, recordedMessage{from: from, fromServer: fromServer, payload: append([]byte(nil), payload...)})
}

func TestRegistryJoinLifecycle(t *testing.T) {
	tx := &fakeTransmitter{}
	listener := &recordingListener{}
	reg := NewRegistry(protocol.NewCodec(), tx, listener)

	id := wire.NewIdentifier([]byte{1, 2, 3})
	reg.HandleJoinedChan("lobby", id)

	if len(listener.joined) != 1 {
		t.Fatalf("expected 1 OnJoinedChannel call, got %d", len(listener.joined))
	}
	ch, ok := reg.Lookup(id)
	if !ok || ch.Name() != "lobby" {
		t.Fatalf("channel not registered correctly: ok=%v ch=%+v", ok, ch)
	}

	// Duplicate JOINED_CHAN is ignored, not re-registered.
	reg.HandleJoinedChan("lobby-dup", id)
	if len(listener.joined) != 1 {
		t.Fatalf("duplicate JOINED_CHAN should be ignored, got %d calls", len(listener.joined))
	}

	reg.HandleLeftChan(id)
	if len(listener.closed) != 1 {
		t.Fatalf("expected 1 OnChannelClosed call, got %d", len(listener.closed))
	}
	if !ch.Closed() {
		t.Fatal("channel should be marked closed")
	}
	if _, ok := reg.Lookup(id); ok {
		t.Fatal("channel should be removed from registry after LEFT_CHAN")
	}

	// Unknown id is logged and ignored, not a panic.
	reg.HandleLeftChan(wire.NewIdentifier([]byte{9, 9}))
}

func TestRegistryCloseAllDestroysEveryChannel(t *testing.T) {
	tx := &fakeTransmitter{}
	listener := &recordingListener{}
	reg := NewRegistry(protocol.NewCodec(), tx, listener)

	idA := wire.NewIdentifier([]byte{1})
	idB := wire.NewIdentifier([]byte{2})
	reg.HandleJoinedChan("a", idA)
	reg.HandleJoinedChan("b", idB)
	chA, _ := reg.Lookup(idA)

	reg.CloseAll()

	if reg.Len() != 0 {
		t.Fatalf("expected 0 channels after CloseAll, got %d", reg.Len())
	}
	if len(listener.closed) != 2 {
		t.Fatalf("expected 2 OnChannelClosed calls, got %d", len(listener.closed))
	}
	if !chA.Closed() {
		t.Fatal("channel should be marked closed after CloseAll")
	}
	if err := chA.SendBroadcast(true, nil); err == nil {
		t.Fatal("expected ErrChannelClosed after CloseAll")
	}
}

func TestRegistrySendOnClosedChannelErrors(t *testing.T) {
	tx := &fakeTransmitter{}
	reg := NewRegistry(protocol.NewCodec(), tx, &recordingListener{})
	id := wire.NewIdentifier([]byte{7})
	reg.HandleJoinedChan("x", id)
	ch, _ := reg.Lookup(id)
	reg.HandleLeftChan(id)

	if err := ch.SendBroadcast(true, []byte("hi")); err == nil {
		t.Fatal("expected ErrChannelClosed")
	}
	if err := ch.SendUnicast(wire.NewIdentifier([]byte{1}), true, nil); err == nil {
		t.Fatal("expected ErrChannelClosed")
	}
	if err := ch.Leave(); err == nil {
		t.Fatal("expected ErrChannelClosed")
	}
}

func TestRegistryBroadcastTagsServerSender(t *testing.T) {
	tx := &fakeTransmitter{}
	listener := &recordingListener{}
	reg := NewRegistry(protocol.NewCodec(), tx, listener)
	reg.SetServerID(wire.ServerIdentifier)

	id := wire.NewIdentifier([]byte{1})
	reg.HandleJoinedChan("lobby", id)

	reg.HandleBroadcast(true, id, wire.ServerIdentifier, []byte("hello"))
	reg.HandleBroadcast(true, id, wire.NewIdentifier([]byte{42}), []byte("hi"))

	if len(listener.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(listener.msgs))
	}
	if !listener.msgs[0].fromServer {
		t.Fatal("message from server identifier should be tagged fromServer")
	}
	if listener.msgs[1].fromServer {
		t.Fatal("message from a regular user should not be tagged fromServer")
	}
}

func TestRegistryMessageForUnknownChannelIsDropped(t *testing.T) {
	tx := &fakeTransmitter{}
	listener := &recordingListener{}
	reg := NewRegistry(protocol.NewCodec(), tx, listener)

	reg.HandleUnicast(true, wire.NewIdentifier([]byte{1}), wire.NewIdentifier([]byte{2}), wire.NewIdentifier([]byte{3}), []byte("x"))

	if len(listener.msgs) != 0 {
		t.Fatal("message for an unregistered channel must not reach the listener")
	}
}

func TestChannelSendEncodesThroughCodec(t *testing.T) {
	tx := &fakeTransmitter{}
	reg := NewRegistry(protocol.NewCodec(), tx, &recordingListener{})
	id := wire.NewIdentifier([]byte{5})
	reg.HandleJoinedChan("lobby", id)
	ch, _ := reg.Lookup(id)

	if err := ch.SendBroadcast(true, []byte("payload")); err != nil {
		t.Fatalf("SendBroadcast: %v", err)
	}
	if len(tx.payloads) != 1 || string(tx.payloads[0]) != "payload" {
		t.Fatalf("unexpected transmitted payload: %v", tx.payloads)
	}
}
