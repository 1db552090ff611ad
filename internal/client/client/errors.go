package client

import "errors"

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrConflict    = errors.New("conflict")
)
