package mongo

import "errors"

var (
	ErrEmptyConnectionURL     = errors.New("empty mongodb connection URL")
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	ErrHealthcheckFailed      = errors.New("mongo healthcheck failed")
)
