package protocol

import "github.com/skybridge-games/corenet/internal/wire"

// Sink receives the decoded form of every inbound opcode from spec §4.2's
// table. A Session implements Sink; the codec never stores a Sink
// back-reference (spec §9 "Cyclic construction") — callers pass the sink
// to Decode per invocation.
type Sink interface {
	OnUnicast(reliable bool, channel, from, to wire.Identifier, payload []byte)
	OnMulticast(reliable bool, channel, from wire.Identifier, to []wire.Identifier, payload []byte)
	OnBroadcast(reliable bool, channel, from wire.Identifier, payload []byte)
	OnValidationRequest(callbacks []ValidationCallback)
	OnLoginAccepted(user wire.Identifier)
	OnLoginRejected(reason string)
	OnUserAdded(user wire.Identifier)
	OnUserDropped(user wire.Identifier)
	OnUserJoinedChannel(channel, user wire.Identifier)
	OnUserLeftChannel(channel, user wire.Identifier)
	OnJoinedChannel(name string, channel wire.Identifier)
	OnLeftChannel(channel wire.Identifier)
	OnNewReconnectKey(key wire.Identifier, ttlSeconds int64)
	OnUserDisconnected(user wire.Identifier)
	OnServerID(user wire.Identifier)
	OnChannelLocked(name string, user wire.Identifier)
}

// Transmitter accepts one fully encoded outbound packet as a pair of byte
// ranges — a header (opcode plus fixed fields) and an optional payload —
// so the caller can emit them as a scatter-gather send without a second
// copy (spec §4.2 "Outbound encoding").
type Transmitter interface {
	Transmit(header, payload []byte) error
}
