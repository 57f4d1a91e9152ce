package pebblestore

import "encoding/binary"

// Keyspace (byte-wise, lexicographically sortable):
//   - log/{name}/m             capacity and last sequence
//   - log/{name}/e/{seq_be8}   entries
//   - pos/{key}                consumer positions

var (
	logPrefix   = []byte("log/")
	posPrefix   = []byte("pos/")
	metaSuffix  = []byte("/m")
	entryInfix  = []byte("/e/")
	seqKeyBytes = 8
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func keyMeta(name string) []byte {
	k := make([]byte, 0, len(logPrefix)+len(name)+len(metaSuffix))
	k = append(k, logPrefix...)
	k = append(k, name...)
	return append(k, metaSuffix...)
}

func entryPrefix(name string) []byte {
	k := make([]byte, 0, len(logPrefix)+len(name)+len(entryInfix)+seqKeyBytes)
	k = append(k, logPrefix...)
	k = append(k, name...)
	return append(k, entryInfix...)
}

func keyEntry(name string, seq uint64) []byte {
	return appendBE8(entryPrefix(name), seq)
}

// entryBounds returns the iterator bounds covering every entry of name.
func entryBounds(name string) (lower, upper []byte) {
	return keyEntry(name, 0), append(keyEntry(name, ^uint64(0)), 0x00)
}

func seqFromKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(k)-seqKeyBytes:])
}

func keyPosition(key string) []byte {
	k := make([]byte, 0, len(posPrefix)+len(key))
	k = append(k, posPrefix...)
	return append(k, key...)
}

// meta value: maxBytes_be8 | lastSeq_be8
func encodeMeta(maxBytes int64, lastSeq uint64) []byte {
	b := make([]byte, 0, 16)
	b = appendBE8(b, uint64(maxBytes))
	return appendBE8(b, lastSeq)
}

func decodeMeta(b []byte) (maxBytes int64, lastSeq uint64, ok bool) {
	if len(b) < 16 {
		return 0, 0, false
	}
	return int64(binary.BigEndian.Uint64(b[:8])), binary.BigEndian.Uint64(b[8:16]), true
}
