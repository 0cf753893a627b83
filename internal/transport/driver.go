// Package transport implements the framed transport driver of spec §4.3: a
// non-blocking stream socket, a ring-buffered inbound accumulator, and an
// outbound frame queue pumped as the socket becomes writable.
package transport

import (
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/skybridge-games/corenet/internal/logger"
)

// Event identifies a readiness condition an external reactor can gate
// further wake-ups on, per spec §4.3 "Drive loop".
type Event int

const (
	EventReadable Event = 1 << iota
	EventWritable
	EventError
)

// pollQuantum bounds each non-blocking read/write attempt. The driver is
// never meant to block; this is the Go analogue of setting O_NONBLOCK on
// the socket and treating EWOULDBLOCK as "no progress, try later" — the
// same technique the teacher's network.Client.Process uses
// (SetReadDeadline(time.Now().Add(10*time.Millisecond))).
const pollQuantum = 10 * time.Millisecond

// readScratchSize is the per-Poll read chunk size.
const readScratchSize = 32 * 1024

// FrameHandler receives one fully reassembled frame payload (opcode plus
// fields, spec §4.2) as it is decoded off the wire.
type FrameHandler func(payload []byte) error

// Driver owns one stream socket and drives the spec §4.3 framing state
// machine. It implements protocol.Transmitter via Transmit.
type Driver struct {
	conn net.Conn

	in  *ringBuffer
	out []outboundEntry

	scratch []byte

	OnFrame FrameHandler

	// RegisterInterest/UnregisterInterest let an external event-loop
	// reactor gate wake-ups on buffered-input/output transitions, per
	// spec §4.3. Both are optional; Poll works standalone without them.
	RegisterInterest   func(events Event)
	UnregisterInterest func(events Event)

	polling bool
}

type outboundEntry struct {
	data []byte
	sent int
}

// NewDriver wraps an already-connected net.Conn. Use Dial to both connect
// and wrap in one step.
func NewDriver(conn net.Conn, ringCapacity int) *Driver {
	return &Driver{
		conn:    conn,
		in:      newRingBuffer(ringCapacity),
		scratch: make([]byte, readScratchSize),
	}
}

// Dial opens a non-blocking TCP connection to addr within timeout and
// returns a Driver wrapping it. NoDelay controls TCP_NODELAY via the
// standard library's TCPConn.SetNoDelay — the portable equivalent of the
// raw setsockopt call in
// original_source/csrc/cppapi/Source/Socket/Win32/Win32Socket.cpp.
func Dial(network, addr string, timeout time.Duration, noDelay bool, ringCapacity int) (*Driver, error) {
	conn, err := net.DialTimeout(network, addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(noDelay); err != nil {
			logger.Log.Warn("transport: failed to set TCP_NODELAY", zap.Error(err))
		}
		if err := tuneSocket(tcpConn, noDelay); err != nil {
			logger.Log.Debug("transport: platform socket tuning skipped", zap.Error(err))
		}
	}
	return NewDriver(conn, ringCapacity), nil
}

// Close makes a best-effort attempt to flush any still-queued outbound
// frames, then closes the underlying socket. Both the flush attempt and
// the close can independently fail (e.g. the peer has already gone away
// while frames remain queued); both failures are reported via multierr
// rather than discarding the flush error, which bare error wrapping would.
func (d *Driver) Close() error {
	if d.conn == nil {
		return nil
	}
	var errs error
	if d.PendingOutbound() {
		if err := d.pollOutbound(); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "transport: flush on close"))
		}
	}
	errs = multierr.Append(errs, d.conn.Close())
	return errs
}

// Transmit implements protocol.Transmitter. It computes the total payload
// length, writes one length prefix followed by a single copy of header and
// payload into one allocation, and enqueues the frame (spec §4.3
// "Framing").
func (d *Driver) Transmit(header, payload []byte) error {
	total := len(header) + len(payload)
	if total > MaxFrameBytes {
		return errors.WithStack(ErrFrameTooLarge)
	}
	frame := make([]byte, 4+total)
	frame[0] = byte(total >> 24)
	frame[1] = byte(total >> 16)
	frame[2] = byte(total >> 8)
	frame[3] = byte(total)
	n := copy(frame[4:], header)
	copy(frame[4+n:], payload)

	wasEmpty := len(d.out) == 0
	d.out = append(d.out, outboundEntry{data: frame})
	if wasEmpty && d.RegisterInterest != nil {
		d.RegisterInterest(EventWritable)
	}
	return nil
}

// Poll performs one non-blocking pass: drain available inbound bytes and
// decode as many complete frames as are buffered, then flush as much of
// the outbound queue as the socket will currently accept. The caller
// invokes Poll when the socket is readable, writable, or in error (spec
// §4.3 "Drive loop"). Concurrent calls to Poll on the same Driver are
// forbidden (spec §5).
func (d *Driver) Poll() error {
	if d.polling {
		return errors.New("transport: concurrent Poll call")
	}
	d.polling = true
	defer func() { d.polling = false }()

	if err := d.pollInbound(); err != nil {
		return err
	}
	return d.pollOutbound()
}

func (d *Driver) pollInbound() error {
	_ = d.conn.SetReadDeadline(time.Now().Add(pollQuantum))
	for {
		n, err := d.conn.Read(d.scratch)
		if n > 0 {
			if d.in.Avail() < n {
				return errors.New("transport: inbound accumulator full")
			}
			d.in.Append(d.scratch[:n])
		}
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				break
			}
			if err == io.EOF {
				return io.EOF
			}
			return errors.Wrap(err, "transport: read error")
		}
		if n == 0 {
			break
		}
	}
	return d.drainFrames()
}

func (d *Driver) drainFrames() error {
	for {
		payload, ok, err := d.in.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if d.OnFrame != nil {
			if err := d.OnFrame(payload); err != nil {
				return err
			}
		}
	}
}

func (d *Driver) pollOutbound() error {
	_ = d.conn.SetWriteDeadline(time.Now().Add(pollQuantum))
	for len(d.out) > 0 {
		entry := &d.out[0]
		n, err := d.conn.Write(entry.data[entry.sent:])
		if n > 0 {
			entry.sent += n
		}
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				break
			}
			return errors.Wrap(err, "transport: write error")
		}
		if entry.sent >= len(entry.data) {
			d.out = d.out[1:]
		} else {
			break
		}
	}
	if len(d.out) == 0 && d.UnregisterInterest != nil {
		d.UnregisterInterest(EventWritable)
	}
	return nil
}

// PendingOutbound reports whether any outbound frame is still queued.
func (d *Driver) PendingOutbound() bool {
	return len(d.out) > 0
}
