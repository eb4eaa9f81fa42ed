package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNoJob             = errors.New("no job available")
	ErrBalanceNotFound   = errors.New("balance not found")
	ErrInvalidTransition = errors.New("invalid job state transition")
	ErrRetryExhausted    = errors.New("retry attempts exhausted")
	ErrInvalidSubject    = errors.New("invalid subject")
	ErrUnknownTool       = errors.New("unknown tool")
)
