package pebblestore

import "errors"

var (
	ErrDataDirRequired   = errors.New("pebblestore: data directory is required")
	ErrCorruptEntry      = errors.New("pebblestore: entry failed checksum")
	ErrCorruptMeta       = errors.New("pebblestore: malformed log metadata")
	ErrHealthcheckFailed = errors.New("pebblestore healthcheck failed")
)
