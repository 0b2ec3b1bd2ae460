package actor

import "errors"

var (
	ErrNotFound     = errors.New("actor: not found")
	ErrConflict     = errors.New("actor: already exists")
	ErrInvalidInput = errors.New("actor: invalid input")
	ErrUnauthorized = errors.New("actor: unauthorized")
)
