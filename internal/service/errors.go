package service

import "errors"

var (
	ErrMissingTabID   = errors.New("missing tab id")
	ErrInvalidContext = errors.New("invalid context mode")
	ErrEmptyQuestion  = errors.New("question is empty")
)
