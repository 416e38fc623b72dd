// Package common provides small helpers shared across the client layers:
// timestamp-derived identifiers and secure memory wiping.
package common

import (
	"strconv"
	"time"
)

// TimestampID derives an entity identifier from the given wall-clock time,
// encoded as decimal milliseconds since the Unix epoch.
//
// Two calls within the same millisecond produce the same id. This is a known
// limitation of the storage format and is kept for compatibility with data
// written by earlier versions of the app.
func TimestampID(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// WipeByteArray overwrites the contents of the given byte slice with zeros.
// Use it to clear password buffers once they are no longer needed.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
