package mongostore

import "errors"

var (
	ErrDatabaseNil       = errors.New("mongo database cannot be nil")
	ErrHealthcheckFailed = errors.New("mongostore healthcheck failed")
	ErrUnexpectedPayload = errors.New("unexpected payload type in queue document")
)
