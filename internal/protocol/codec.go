package protocol

import (
	"github.com/pkg/errors"

	"github.com/skybridge-games/corenet/internal/logger"
	"github.com/skybridge-games/corenet/internal/wire"
	"go.uber.org/zap"
)

// ErrTruncatedFrame is returned when a known opcode's payload ends before
// all of its documented fields could be parsed. Per spec §7 this is fatal
// for the session.
var ErrTruncatedFrame = errors.New("protocol: truncated frame for known opcode")

// headerScratchCapacity is the capacity of every outbound header buffer:
// the largest payload a frame may carry (65535 bytes, opcode included), so
// any header that fits in a legal frame fits in the buffer. A SEND_MULTICAST
// header with 255 recipients of 23-byte ids is 1+1+24+1+255*24 = 6147 bytes,
// and validation responses carry strings of arbitrary length.
const headerScratchCapacity = 65535

// Codec is stateless between packets, per spec §4.2. It holds only a
// buffer pool for outbound packet assembly; Decode and the Send* methods
// take their Sink/Transmitter collaborator as a parameter rather than a
// stored field (spec §9 "Cyclic construction").
type Codec struct {
	pool *wire.BufferPool
}

// NewCodec returns a Codec with its own outbound buffer pool.
func NewCodec() *Codec {
	return &Codec{pool: wire.NewBufferPool()}
}

// Decode parses exactly one frame payload (opcode plus fields) and
// dispatches the matching Sink call. Unknown opcodes are logged and
// ignored without error, per spec §4.2's "Unknown opcodes" rule; a
// truncated payload for a *known* opcode returns ErrTruncatedFrame, which
// the caller (the session) must treat as fatal.
func (c *Codec) Decode(payload []byte, sink Sink) error {
	buf := wire.Wrap(payload)
	opByte, err := buf.GetU8()
	if err != nil {
		return errors.Wrap(ErrTruncatedFrame, "empty payload")
	}
	op := Opcode(opByte)

	if err := c.decodeOp(op, buf, sink); err != nil {
		if errors.Is(err, wire.ErrBufferUnderflow) {
			return errors.Wrapf(ErrTruncatedFrame, "opcode %s", op)
		}
		return err
	}
	return nil
}

func (c *Codec) decodeOp(op Opcode, buf *wire.Buffer, sink Sink) error {
	switch op {
	case RcvUnicast:
		reliable, err := buf.GetBool()
		if err != nil {
			return err
		}
		channel, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		from, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		to, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		payload := buf.GetRemainingAsArray()
		sink.OnUnicast(reliable, channel, from, to, payload)

	case RcvMulticast:
		reliable, err := buf.GetBool()
		if err != nil {
			return err
		}
		channel, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		from, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		n, err := buf.GetU8()
		if err != nil {
			return err
		}
		to := make([]wire.Identifier, 0, n)
		for i := uint8(0); i < n; i++ {
			id, err := buf.GetIdentifier()
			if err != nil {
				return err
			}
			to = append(to, id)
		}
		payload := buf.GetRemainingAsArray()
		sink.OnMulticast(reliable, channel, from, to, payload)

	case RcvBroadcast:
		reliable, err := buf.GetBool()
		if err != nil {
			return err
		}
		channel, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		from, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		payload := buf.GetRemainingAsArray()
		sink.OnBroadcast(reliable, channel, from, payload)

	case ValidationReq:
		callbacks, err := c.decodeCallbackList(buf)
		if err != nil {
			return err
		}
		sink.OnValidationRequest(callbacks)

	case UserAccepted:
		user, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		sink.OnLoginAccepted(user)

	case UserRejected:
		reason, err := buf.GetString()
		if err != nil {
			return err
		}
		sink.OnLoginRejected(reason)

	case UserJoined:
		user, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		sink.OnUserAdded(user)

	case UserLeft:
		user, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		sink.OnUserDropped(user)

	case UserJoinedChan:
		channel, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		user, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		sink.OnUserJoinedChannel(channel, user)

	case UserLeftChan:
		channel, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		user, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		sink.OnUserLeftChannel(channel, user)

	case JoinedChan:
		channel, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		name, err := buf.GetString()
		if err != nil {
			return err
		}
		sink.OnJoinedChannel(name, channel)

	case LeftChan:
		channel, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		sink.OnLeftChannel(channel)

	case RcvReconnectKey:
		if _, err := buf.GetIdentifier(); err != nil { // user id, ignored per spec
			return err
		}
		key, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		ttl, err := buf.GetI64()
		if err != nil {
			return err
		}
		sink.OnNewReconnectKey(key, ttl)

	case DisconnectReq:
		// No-op: empty payload.

	case UserDisconnected:
		user, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		sink.OnUserDisconnected(user)

	case ServerID:
		user, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		sink.OnServerID(user)

	case ChanLocked:
		name, err := buf.GetString()
		if err != nil {
			return err
		}
		user, err := buf.GetIdentifier()
		if err != nil {
			return err
		}
		sink.OnChannelLocked(name, user)

	default:
		logger.Log.Debug("protocol: ignoring unknown opcode", zap.Uint8("opcode", uint8(op)))
	}
	return nil
}

func (c *Codec) decodeCallbackList(buf *wire.Buffer) ([]ValidationCallback, error) {
	count, err := buf.GetI32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, errors.WithStack(wire.ErrBufferUnderflow)
	}
	callbacks := make([]ValidationCallback, 0, count)
	for i := int32(0); i < count; i++ {
		cb, err := decodeCallback(buf)
		if err != nil {
			if errors.Is(err, ErrUnknownCallbackKind) {
				logger.Log.Warn("protocol: skipping unknown validation callback kind, truncating list")
				break
			}
			return nil, err
		}
		callbacks = append(callbacks, cb)
	}
	return callbacks, nil
}

// --- Outbound encoding (spec §4.2 "Outbound encoding" table) ---

func (c *Codec) newHeader() *wire.Buffer {
	return c.pool.Get(headerScratchCapacity)
}

func (c *Codec) release(buf *wire.Buffer) {
	c.pool.Put(buf)
}

// SendLogin composes and transmits a CONNECT_REQ packet.
func (c *Codec) SendLogin(tx Transmitter) error {
	buf := c.newHeader()
	defer c.release(buf)
	if err := buf.PutU8(uint8(ConnectReq)); err != nil {
		return err
	}
	return tx.Transmit(buf.Bytes(), nil)
}

// SendReconnect composes and transmits a RECONNECT_REQ packet.
func (c *Codec) SendReconnect(tx Transmitter, user, key wire.Identifier) error {
	buf := c.newHeader()
	defer c.release(buf)
	if err := buf.PutU8(uint8(ReconnectReq)); err != nil {
		return err
	}
	if err := buf.PutIdentifier(user); err != nil {
		return err
	}
	if err := buf.PutIdentifier(key); err != nil {
		return err
	}
	return tx.Transmit(buf.Bytes(), nil)
}

// SendUnicast composes SEND_UNICAST and transmits it with data as a
// separate scatter-gather range.
func (c *Codec) SendUnicast(tx Transmitter, channel, to wire.Identifier, reliable bool, data []byte) error {
	buf := c.newHeader()
	defer c.release(buf)
	if err := buf.PutU8(uint8(SendUnicast)); err != nil {
		return err
	}
	if err := buf.PutBool(reliable); err != nil {
		return err
	}
	if err := buf.PutIdentifier(channel); err != nil {
		return err
	}
	if err := buf.PutIdentifier(to); err != nil {
		return err
	}
	return tx.Transmit(buf.Bytes(), data)
}

// SendMulticast composes SEND_MULTICAST for up to 255 recipients.
func (c *Codec) SendMulticast(tx Transmitter, channel wire.Identifier, to []wire.Identifier, reliable bool, data []byte) error {
	if len(to) > 255 {
		return errors.New("protocol: multicast recipient count exceeds 255")
	}
	buf := c.newHeader()
	defer c.release(buf)
	if err := buf.PutU8(uint8(SendMulticast)); err != nil {
		return err
	}
	if err := buf.PutBool(reliable); err != nil {
		return err
	}
	if err := buf.PutIdentifier(channel); err != nil {
		return err
	}
	if err := buf.PutU8(uint8(len(to))); err != nil {
		return err
	}
	for _, id := range to {
		if err := buf.PutIdentifier(id); err != nil {
			return err
		}
	}
	return tx.Transmit(buf.Bytes(), data)
}

// SendServerMsg composes SEND_SERVER_MSG.
func (c *Codec) SendServerMsg(tx Transmitter, reliable bool, data []byte) error {
	buf := c.newHeader()
	defer c.release(buf)
	if err := buf.PutU8(uint8(SendServerMsg)); err != nil {
		return err
	}
	if err := buf.PutBool(reliable); err != nil {
		return err
	}
	return tx.Transmit(buf.Bytes(), data)
}

// SendBroadcast composes SEND_BROADCAST.
func (c *Codec) SendBroadcast(tx Transmitter, channel wire.Identifier, reliable bool, data []byte) error {
	buf := c.newHeader()
	defer c.release(buf)
	if err := buf.PutU8(uint8(SendBroadcast)); err != nil {
		return err
	}
	if err := buf.PutBool(reliable); err != nil {
		return err
	}
	if err := buf.PutIdentifier(channel); err != nil {
		return err
	}
	return tx.Transmit(buf.Bytes(), data)
}

// SendValidationResponse composes VALIDATION_RESP.
func (c *Codec) SendValidationResponse(tx Transmitter, callbacks []ValidationCallback) error {
	buf := c.newHeader()
	defer c.release(buf)
	if err := buf.PutU8(uint8(ValidationResp)); err != nil {
		return err
	}
	if err := buf.PutI32(int32(len(callbacks))); err != nil {
		return err
	}
	for _, cb := range callbacks {
		if err := encodeCallback(buf, cb); err != nil {
			return err
		}
	}
	return tx.Transmit(buf.Bytes(), nil)
}

// SendJoinChannel composes REQ_JOIN_CHAN.
func (c *Codec) SendJoinChannel(tx Transmitter, name string) error {
	buf := c.newHeader()
	defer c.release(buf)
	if err := buf.PutU8(uint8(ReqJoinChan)); err != nil {
		return err
	}
	if err := buf.PutStringByteLen(name); err != nil {
		return err
	}
	return tx.Transmit(buf.Bytes(), nil)
}

// SendLeaveChannel composes REQ_LEAVE_CHAN.
func (c *Codec) SendLeaveChannel(tx Transmitter, channel wire.Identifier) error {
	buf := c.newHeader()
	defer c.release(buf)
	if err := buf.PutU8(uint8(ReqLeaveChan)); err != nil {
		return err
	}
	if err := buf.PutIdentifier(channel); err != nil {
		return err
	}
	return tx.Transmit(buf.Bytes(), nil)
}
