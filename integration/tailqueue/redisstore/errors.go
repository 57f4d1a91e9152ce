package redisstore

import "errors"

var (
	ErrClientNil         = errors.New("redis client cannot be nil")
	ErrHealthcheckFailed = errors.New("redisstore healthcheck failed")
	ErrMalformedEntry    = errors.New("malformed stream entry")
)
