package apperrors

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrSessionNotFound       = errors.New("session not found")
	ErrInvalidWeight         = errors.New("weight must be greater than zero")
	ErrAmbiguousModification = errors.New("ingredient not present in current dish")
	ErrProviderUnavailable   = errors.New("provider temporarily unavailable")
)
