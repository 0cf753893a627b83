package transport

import (
	"net"
	"testing"
	"time"
)

func pipeDrivers() (*Driver, *Driver, func()) {
	client, server := net.Pipe()
	cd := NewDriver(client, MinRingCapacity)
	sd := NewDriver(server, MinRingCapacity)
	return cd, sd, func() {
		_ = cd.Close()
		_ = sd.Close()
	}
}

func TestRingBufferRoundTrip(t *testing.T) {
	r := newRingBuffer(MinRingCapacity)
	r.Append([]byte{0, 0, 0, 3, 'a', 'b', 'c'})
	payload, ok, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !ok {
		t.Fatal("expected a complete frame")
	}
	if string(payload) != "abc" {
		t.Fatalf("payload = %q, want abc", payload)
	}
	if _, ok, _ := r.Next(); ok {
		t.Fatal("expected no further frames")
	}
}

func TestRingBufferSplitDelivery(t *testing.T) {
	r := newRingBuffer(MinRingCapacity)
	full := []byte{0, 0, 0, 5, 'h', 'e', 'l', 'l', 'o'}
	for _, b := range full {
		if _, ok, err := r.Next(); ok || err != nil {
			t.Fatalf("premature frame before all bytes arrived: ok=%v err=%v", ok, err)
		}
		r.Append([]byte{b})
	}
	payload, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("Next after full delivery: ok=%v err=%v", ok, err)
	}
	if string(payload) != "hello" {
		t.Fatalf("payload = %q, want hello", payload)
	}
}

func TestRingBufferOverLengthFrameIsFatal(t *testing.T) {
	r := newRingBuffer(MinRingCapacity)
	r.Append([]byte{0, 1, 0, 0}) // length = 65536, exceeds MaxFrameBytes
	if _, _, err := r.Next(); err == nil {
		t.Fatal("expected ErrFrameTooLarge")
	}
}

func TestDriverTransmitAndPoll(t *testing.T) {
	clientDriver, serverDriver, closeBoth := pipeDrivers()
	defer closeBoth()

	received := make(chan []byte, 1)
	serverDriver.OnFrame = func(payload []byte) error {
		received <- append([]byte(nil), payload...)
		return nil
	}

	if err := clientDriver.Transmit([]byte{0x07}, []byte("payload")); err != nil {
		t.Fatalf("Transmit: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20 && clientDriver.PendingOutbound(); i++ {
			_ = clientDriver.Poll()
		}
	}()

	for i := 0; i < 20; i++ {
		_ = serverDriver.Poll()
		select {
		case payload := <-received:
			want := append([]byte{0x07}, []byte("payload")...)
			if string(payload) != string(want) {
				t.Fatalf("payload = %q, want %q", payload, want)
			}
			<-done
			return
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatal("frame was never received")
}

func TestDriverRejectsOversizedFrame(t *testing.T) {
	clientDriver, _, closeBoth := pipeDrivers()
	defer closeBoth()

	oversized := make([]byte, MaxFrameBytes+1)
	if err := clientDriver.Transmit(oversized, nil); err == nil {
		t.Fatal("expected ErrFrameTooLarge")
	}
}
