// Package identifier provides UUID v7 generation for request and event ids.
// UUID v7 is sortable by timestamp, which keeps log correlation and store
// listings in emission order.
package identifier

import (
	"fmt"
	"math/rand"
	"time"
)

// ID represents a UUID v7 identifier.
type ID [16]byte

// NewV7 generates a new UUID v7.
// UUID v7 format (as per draft-ietf-uuidrev-rfc4122bis):
// - 48 bits: UNIX timestamp in milliseconds
// - 12 bits: random "sub_ms_seq_hi_and_version"
// - 2 bits: variant
// - 62 bits: random "sub_ms_seq_low"
func NewV7() ID {
	now := time.Now().UnixMilli()

	var id ID

	// Timestamp (48 bits, ms precision) — bytes 0-5
	id[0] = byte(now >> 40)
	id[1] = byte(now >> 32)
	id[2] = byte(now >> 24)
	id[3] = byte(now >> 16)
	id[4] = byte(now >> 8)
	id[5] = byte(now)

	// Random part (64 bits) — bytes 6-15
	// Sub-ms seq hi (4 bits) + version 0111 (4 bits) = 0x7n
	randomVal := rand.Uint64()
	id[6] = 0x70 | byte((randomVal>>56)&0x0f)

	// Variant + random (6 bits variant, 62 bits random)
	// Variant 10xxxxxx in RFC 4122
	id[7] = 0x80 | byte((randomVal>>48)&0x3f)
	id[8] = byte(randomVal >> 40)
	id[9] = byte(randomVal >> 32)
	id[10] = byte(randomVal >> 24)
	id[11] = byte(randomVal >> 16)
	id[12] = byte(randomVal >> 8)
	id[13] = byte(randomVal)

	// Final 2 random bytes
	id[14] = byte(rand.Intn(256))
	id[15] = byte(rand.Intn(256))

	return id
}

// New returns a freshly generated UUID v7 in string form.
// Convenience for callers that only need the textual id.
func New() string {
	return NewV7().String()
}

// String returns the ID in standard form: xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
func (u ID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		u[0:4],
		u[4:6],
		u[6:8],
		u[8:10],
		u[10:16],
	)
}
