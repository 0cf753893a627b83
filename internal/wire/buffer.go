package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrBufferOverflow is returned when a write would exceed the buffer's
// declared capacity. Per spec §7 this is always a programmer error: the
// codec's outbound buffers are sized to accommodate the largest legal frame.
var ErrBufferOverflow = errors.New("wire: buffer overflow")

// ErrBufferUnderflow is returned when a read needs more bytes than remain
// between the read cursor and the write cursor.
var ErrBufferUnderflow = errors.New("wire: buffer underflow")

// ErrArrayTooLong is returned by PutArray/PutStringByteLen when the payload
// exceeds the one-byte length prefix's 255-byte ceiling.
var ErrArrayTooLong = errors.New("wire: array exceeds 255 bytes")

// Buffer is a contiguous byte array with independent read and write cursors,
// per spec §4.1. Multi-byte scalars are encoded big-endian ("network byte
// order"). The invariant read <= write <= capacity holds after every
// operation.
type Buffer struct {
	data  []byte
	read  int
	write int
}

// WithCapacity returns an owned, empty Buffer able to hold up to n bytes
// before a write fails.
func WithCapacity(n int) *Buffer {
	return &Buffer{data: make([]byte, n)}
}

// Wrap returns a read-only view over b: the read cursor starts at 0, the
// write cursor (and hence length) is set to len(b). The buffer's capacity is
// len(b), which the write cursor already fills, so every write into a
// wrapped buffer fails with ErrBufferOverflow.
func Wrap(b []byte) *Buffer {
	return &Buffer{data: b, read: 0, write: len(b)}
}

// Len returns the buffer's logical length (write cursor minus origin, which
// is always 0 in this implementation).
func (b *Buffer) Len() int {
	return b.write
}

// Readable returns the number of unread bytes: write cursor minus read
// cursor.
func (b *Buffer) Readable() int {
	return b.write - b.read
}

// Remaining returns the number of bytes that can still be written before
// the buffer overflows.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.write
}

// Bytes returns the written portion of the buffer (from origin to the write
// cursor). The returned slice aliases the buffer's storage.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.write]
}

// ResetRead rewinds the read cursor to the origin, allowing the buffer's
// written content to be re-read from the start.
func (b *Buffer) ResetRead() {
	b.read = 0
}

func (b *Buffer) ensureWritable(n int) error {
	if b.Remaining() < n {
		return errors.WithStack(ErrBufferOverflow)
	}
	return nil
}

func (b *Buffer) ensureReadable(n int) error {
	if b.Readable() < n {
		return errors.WithStack(ErrBufferUnderflow)
	}
	return nil
}

// PutU8 appends one byte.
func (b *Buffer) PutU8(v uint8) error {
	if err := b.ensureWritable(1); err != nil {
		return err
	}
	b.data[b.write] = v
	b.write++
	return nil
}

// PutI32 appends a big-endian 32-bit signed integer.
func (b *Buffer) PutI32(v int32) error {
	if err := b.ensureWritable(4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b.data[b.write:], uint32(v))
	b.write += 4
	return nil
}

// PutI64 appends a big-endian 64-bit signed integer.
func (b *Buffer) PutI64(v int64) error {
	if err := b.ensureWritable(8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(b.data[b.write:], uint64(v))
	b.write += 8
	return nil
}

// PutBool appends one byte: 1 if v, else 0.
func (b *Buffer) PutBool(v bool) error {
	if v {
		return b.PutU8(1)
	}
	return b.PutU8(0)
}

// PutArray appends a one-byte length prefix followed by data. data must be
// no longer than 255 bytes.
func (b *Buffer) PutArray(data []byte) error {
	if len(data) > 255 {
		return errors.WithStack(ErrArrayTooLong)
	}
	if err := b.ensureWritable(len(data) + 1); err != nil {
		return err
	}
	if err := b.PutU8(uint8(len(data))); err != nil {
		return err
	}
	b.write += copy(b.data[b.write:], data)
	return nil
}

// PutIdentifier appends id using the one-byte-length-prefixed array
// encoding shared by user ids, channel ids, and reconnection keys.
func (b *Buffer) PutIdentifier(id Identifier) error {
	return b.PutArray(id.Bytes())
}

// PutString encodes s as UTF-8 and appends a four-byte big-endian length
// prefix followed by the encoded bytes.
func (b *Buffer) PutString(s string) error {
	data := []byte(s)
	if err := b.ensureWritable(len(data) + 4); err != nil {
		return err
	}
	if err := b.PutI32(int32(len(data))); err != nil {
		return err
	}
	b.write += copy(b.data[b.write:], data)
	return nil
}

// PutStringByteLen encodes s as UTF-8 with a one-byte length prefix (used
// for channel-name join requests, spec §4.2/§6). s must encode to no more
// than 255 bytes.
func (b *Buffer) PutStringByteLen(s string) error {
	data := []byte(s)
	if len(data) > 255 {
		return errors.WithStack(ErrArrayTooLong)
	}
	return b.PutArray(data)
}

// GetU8 reads and returns one byte.
func (b *Buffer) GetU8() (uint8, error) {
	if err := b.ensureReadable(1); err != nil {
		return 0, err
	}
	v := b.data[b.read]
	b.read++
	return v, nil
}

// GetI32 reads a big-endian 32-bit signed integer.
func (b *Buffer) GetI32() (int32, error) {
	if err := b.ensureReadable(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(b.data[b.read:])
	b.read += 4
	return int32(v), nil
}

// GetI64 reads a big-endian 64-bit signed integer.
func (b *Buffer) GetI64() (int64, error) {
	if err := b.ensureReadable(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(b.data[b.read:])
	b.read += 8
	return int64(v), nil
}

// GetBool reads one byte and reports whether it is nonzero.
func (b *Buffer) GetBool() (bool, error) {
	v, err := b.GetU8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// GetArray reads a one-byte length n followed by n bytes, returning a
// reference into the buffer's own storage. The reference must not be used
// after the buffer is reused or mutated.
func (b *Buffer) GetArray() ([]byte, error) {
	n, err := b.GetU8()
	if err != nil {
		return nil, err
	}
	if err := b.ensureReadable(int(n)); err != nil {
		return nil, err
	}
	out := b.data[b.read : b.read+int(n)]
	b.read += int(n)
	return out, nil
}

// GetIdentifier reads a one-byte-length-prefixed identifier and copies it
// out of the buffer (identifiers, unlike raw arrays, are value types that
// must outlive the buffer they were parsed from).
func (b *Buffer) GetIdentifier() (Identifier, error) {
	raw, err := b.GetArray()
	if err != nil {
		return Identifier{}, err
	}
	return NewIdentifier(raw), nil
}

// GetString reads a four-byte big-endian length n followed by n bytes,
// decoded as UTF-8.
func (b *Buffer) GetString() (string, error) {
	n, err := b.GetI32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", errors.WithStack(ErrBufferUnderflow)
	}
	if err := b.ensureReadable(int(n)); err != nil {
		return "", err
	}
	out := string(b.data[b.read : b.read+int(n)])
	b.read += int(n)
	return SanitizeUTF8(out), nil
}

// GetRemainingAsArray returns a reference to the unread tail of the buffer
// and advances the read cursor to the write cursor.
func (b *Buffer) GetRemainingAsArray() []byte {
	out := b.data[b.read:b.write]
	b.read = b.write
	return out
}
