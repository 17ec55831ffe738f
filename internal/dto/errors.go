package dto

import "errors"

var (
	ErrInternalFailure = errors.New("internal failure")
	ErrNotFound        = errors.New("not found")
)
