package store

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrStatNotFound  = errors.New("daily stat not found")
	ErrInvalidResult = errors.New("invalid probe result")
)
