package pgstore

import "errors"

var ErrDBNil = errors.New("pgstore: db cannot be nil")
