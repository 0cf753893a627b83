// Package wire implements the binary primitives shared by every layer of
// the corenet protocol stack: opaque length-tagged identifiers and the
// fixed-capacity read/write byte buffer the codec and transport build on.
package wire

import "bytes"

// MaxIdentifierLength is the largest byte length a wire identifier may
// declare. The one-byte length prefix used on the wire allows up to 255,
// but the protocol never produces identifiers longer than this.
const MaxIdentifierLength = 23

// ServerIdentifier is the distinguished one-byte identifier (value 0x00)
// that denotes the server itself as a message sender, per spec §3.
var ServerIdentifier = Identifier{bytes: "\x00"}

// Identifier is an opaque, variable-length byte sequence used for user ids,
// channel ids, and reconnection keys. It is a value type: safe to copy,
// compare, and use as a map key.
type Identifier struct {
	bytes string
}

// NewIdentifier copies b into a new Identifier. b may be 0..255 bytes; the
// protocol itself never produces identifiers longer than MaxIdentifierLength
// but the wire format does not forbid it, so no length check is applied
// here (spec §6: "identifiers are one-byte-length-prefixed byte sequences
// (0-255 bytes, though practical ids are <=23 bytes)").
func NewIdentifier(b []byte) Identifier {
	return Identifier{bytes: string(b)}
}

// Bytes returns a copy of the identifier's byte content.
func (id Identifier) Bytes() []byte {
	if id.bytes == "" {
		return nil
	}
	out := make([]byte, len(id.bytes))
	copy(out, id.bytes)
	return out
}

// Len returns the identifier's byte length.
func (id Identifier) Len() int {
	return len(id.bytes)
}

// IsZero reports whether the identifier carries no bytes at all (distinct
// from ServerIdentifier, which is one zero byte).
func (id Identifier) IsZero() bool {
	return id.bytes == ""
}

// IsServer reports whether id is the distinguished server identifier.
func (id Identifier) IsServer() bool {
	return id == ServerIdentifier
}

// String renders the identifier as a hex string for logging.
func (id Identifier) String() string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, len(id.bytes)*2)
	for i := 0; i < len(id.bytes); i++ {
		b := id.bytes[i]
		out = append(out, hexdigits[b>>4], hexdigits[b&0x0f])
	}
	return string(out)
}

// Compare orders identifiers by length first, then lexicographically by
// byte content, matching spec §3's "length as primary key, byte contents
// as secondary" rule. It returns <0, 0, or >0.
func (id Identifier) Compare(other Identifier) int {
	if len(id.bytes) != len(other.bytes) {
		if len(id.bytes) < len(other.bytes) {
			return -1
		}
		return 1
	}
	return bytes.Compare([]byte(id.bytes), []byte(other.bytes))
}

// Equal reports whether two identifiers have identical byte content.
func (id Identifier) Equal(other Identifier) bool {
	return id.bytes == other.bytes
}
