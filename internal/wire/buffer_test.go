package wire

import "testing"

func TestPutGetI32RoundTrip(t *testing.T) {
	cases := []int32{0, 1, -1, 1 << 20, -(1 << 20), 2147483647, -2147483648}
	for _, n := range cases {
		buf := WithCapacity(4)
		if err := buf.PutI32(n); err != nil {
			t.Fatalf("PutI32(%d): %v", n, err)
		}
		got, err := buf.GetI32()
		if err != nil {
			t.Fatalf("GetI32 after PutI32(%d): %v", n, err)
		}
		if got != n {
			t.Errorf("round trip: put %d, got %d", n, got)
		}
	}
}

func TestPutI32BigEndianBytes(t *testing.T) {
	buf := WithCapacity(4)
	if err := buf.PutI32(0x01020304); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x01, 0x02, 0x03, 0x04}
	got := buf.Bytes()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: want %#x, got %#x", i, want[i], got[i])
		}
	}
}

func TestPutGetI64RoundTrip(t *testing.T) {
	buf := WithCapacity(8)
	if err := buf.PutI64(-1234567890123); err != nil {
		t.Fatal(err)
	}
	got, err := buf.GetI64()
	if err != nil {
		t.Fatal(err)
	}
	if got != -1234567890123 {
		t.Errorf("got %d", got)
	}
}

func TestPutGetBool(t *testing.T) {
	buf := WithCapacity(2)
	if err := buf.PutBool(true); err != nil {
		t.Fatal(err)
	}
	if err := buf.PutBool(false); err != nil {
		t.Fatal(err)
	}
	tv, err := buf.GetBool()
	if err != nil || !tv {
		t.Fatalf("expected true, got %v err=%v", tv, err)
	}
	fv, err := buf.GetBool()
	if err != nil || fv {
		t.Fatalf("expected false, got %v err=%v", fv, err)
	}
}

func TestPutGetArray(t *testing.T) {
	buf := WithCapacity(16)
	data := []byte{1, 2, 3, 4, 5}
	if err := buf.PutArray(data); err != nil {
		t.Fatal(err)
	}
	got, err := buf.GetArray()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(data) {
		t.Fatalf("expected %d bytes, got %d", len(data), len(got))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d mismatch", i)
		}
	}
}

func TestPutArrayTooLong(t *testing.T) {
	buf := WithCapacity(512)
	data := make([]byte, 256)
	if err := buf.PutArray(data); err == nil {
		t.Fatal("expected error for array > 255 bytes")
	}
}

func TestPutGetString(t *testing.T) {
	buf := WithCapacity(64)
	if err := buf.PutString("hello"); err != nil {
		t.Fatal(err)
	}
	got, err := buf.GetString()
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
}

func TestPutStringByteLenTooLong(t *testing.T) {
	buf := WithCapacity(512)
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	if err := buf.PutStringByteLen(string(long)); err == nil {
		t.Fatal("expected error for string > 255 bytes")
	}
}

func TestGetRemainingAsArray(t *testing.T) {
	buf := WithCapacity(8)
	_ = buf.PutU8(1)
	_ = buf.PutU8(2)
	_ = buf.PutU8(3)
	buf.ResetRead()
	_, _ = buf.GetU8()
	rest := buf.GetRemainingAsArray()
	if len(rest) != 2 || rest[0] != 2 || rest[1] != 3 {
		t.Fatalf("unexpected remaining: %v", rest)
	}
	if buf.Readable() != 0 {
		t.Fatalf("expected 0 readable after GetRemainingAsArray, got %d", buf.Readable())
	}
}

func TestOverflowFailsWithoutMutating(t *testing.T) {
	buf := WithCapacity(2)
	if err := buf.PutI32(1); err == nil {
		t.Fatal("expected overflow error")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no partial write on overflow, got len %d", buf.Len())
	}
}

func TestUnderflowOnShortBuffer(t *testing.T) {
	buf := Wrap([]byte{0x01})
	if _, err := buf.GetI32(); err == nil {
		t.Fatal("expected underflow error")
	}
}

func TestWrapLengthMatchesSlice(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	buf := Wrap(data)
	if buf.Len() != len(data) {
		t.Fatalf("expected len %d, got %d", len(data), buf.Len())
	}
	if buf.Readable() != len(data) {
		t.Fatalf("expected readable %d, got %d", len(data), buf.Readable())
	}
}

func TestPutGetIdentifierRoundTrip(t *testing.T) {
	buf := WithCapacity(32)
	id := NewIdentifier([]byte{0xBE, 0xEF})
	if err := buf.PutIdentifier(id); err != nil {
		t.Fatal(err)
	}
	got, err := buf.GetIdentifier()
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(id) {
		t.Fatalf("expected %v, got %v", id, got)
	}
}
