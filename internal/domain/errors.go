package domain

import "errors"

var (
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidWhat   = errors.New("invalid description")
	ErrInvalidStatus = errors.New("invalid status")
)
