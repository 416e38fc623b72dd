package common

import (
	"strconv"
	"testing"
	"time"
)

// ---------- TimestampID ----------

func TestTimestampID_EncodesUnixMillis(t *testing.T) {
	at := time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)
	id := TimestampID(at)
	if id != strconv.FormatInt(at.UnixMilli(), 10) {
		t.Fatalf("unexpected id: %s", id)
	}
}

func TestTimestampID_SameMillisecondCollides(t *testing.T) {
	at := time.Date(2024, 5, 17, 10, 30, 0, 500_000, time.UTC)
	bt := at.Add(200 * time.Microsecond)
	if TimestampID(at) != TimestampID(bt) {
		t.Fatalf("ids within one millisecond should collide (documented limitation)")
	}
}

// ---------- WipeByteArray ----------

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_EmptyIsNoop(t *testing.T) {
	WipeByteArray(nil)
	WipeByteArray([]byte{})
}
