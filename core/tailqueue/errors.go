package tailqueue

import "errors"

var (
	ErrLogStoreNil       = errors.New("log store cannot be nil")
	ErrPositionStoreNil  = errors.New("position store cannot be nil")
	ErrInvalidMaxBytes   = errors.New("max log size must be positive")
	ErrEmptyName         = errors.New("queue name cannot be empty")
	ErrLogExists         = errors.New("log already exists")
	ErrLogNotFound       = errors.New("log not found")
	ErrCursorKilled      = errors.New("cursor killed")
	ErrPositionLost      = errors.New("cursor position overwritten by newer records")
	ErrStoreClosed       = errors.New("store closed")
	ErrRecordTooLarge    = errors.New("record exceeds log capacity")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrInvalidPosition   = errors.New("invalid position")
	ErrHealthcheckFailed = errors.New("tailqueue healthcheck failed")
	ErrFailedToEncode    = errors.New("failed to encode message")
	ErrFailedToDecode    = errors.New("failed to decode message")

	// ErrCheckpointAborted is returned by a PositionStore whose failed write
	// aborted a transaction the caller attached to ctx. Receive returns it
	// instead of delivering the message, and redelivers that message next time.
	ErrCheckpointAborted = errors.New("checkpoint aborted the caller's transaction")
)
