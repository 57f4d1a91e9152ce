package pebblestore

import (
	"encoding/binary"
	"hash/crc32"
	"time"
)

// Entry encoding: enqueued_unix_nano_be8 | payload | crc32c(enqueued|payload)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func encodeEntry(enqueued time.Time, payload []byte) []byte {
	out := make([]byte, 0, 8+len(payload)+4)
	var ts int64
	if !enqueued.IsZero() {
		ts = enqueued.UnixNano()
	}
	out = appendBE8(out, uint64(ts))
	out = append(out, payload...)

	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc32.Checksum(out, castagnoli))
	return append(out, crcb[:]...)
}

func decodeEntry(b []byte) (time.Time, []byte, bool) {
	if len(b) < 8+4 {
		return time.Time{}, nil, false
	}
	body := b[:len(b)-4]
	if crc32.Checksum(body, castagnoli) != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return time.Time{}, nil, false
	}
	var enqueued time.Time
	if ts := int64(binary.BigEndian.Uint64(body[:8])); ts != 0 {
		enqueued = time.Unix(0, ts).UTC()
	}
	return enqueued, append([]byte(nil), body[8:]...), true
}
