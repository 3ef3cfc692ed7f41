package store

import (
	"encoding/binary"
	"math"
	"time"
)

// EncodeTime renders t as the 8-byte little-endian IEEE-754 double
// (seconds since epoch) that §6.3 reserves for CachedAt,
// ExpireFromCache, ExpiresAt, and ReadOnlyAfter metadata values. Shared
// by the cache adapter's populate stamp and every lifecycle controller,
// so it lives here rather than duplicated per package.
func EncodeTime(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(float64(t.Unix())))
	return buf
}

// EncodeSeconds is EncodeTime for a raw seconds value that is not a
// time.Time, such as an epoch deadline or the ReadOnlyAfter interval
// stored on an object. No controller calls it; the read side of every
// such value is DecodeTime.
func EncodeSeconds(seconds float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(seconds))
	return buf
}

// DecodeTime parses an 8-byte little-endian IEEE-754 double into seconds
// since epoch. Returns ErrInvalidArgs if b is not exactly 8 bytes, the
// "metadata parse error" case spec §8 says to treat as skip-this-object.
func DecodeTime(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, ErrInvalidArgs("decode_time", "metadata value is not 8 bytes")
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}
