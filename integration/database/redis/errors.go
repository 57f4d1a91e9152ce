package redis

import "errors"

var (
	ErrEmptyConnectionURL   = errors.New("redis: empty connection URL, set REDIS_URL")
	ErrUnsupportedScheme    = errors.New("redis: connection URL must use redis:// or rediss://")
	ErrInvalidConnectionURL = errors.New("redis: invalid connection URL")
	ErrNotReady             = errors.New("redis: server did not answer PING in time")
	ErrHealthcheckFailed    = errors.New("redis healthcheck failed")
)
