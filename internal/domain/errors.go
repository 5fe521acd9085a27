package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotReady           = errors.New("model handle not built yet")
	ErrRebuildFailed      = errors.New("context rebuild failed")
	ErrSafetyRejection    = errors.New("model declined to answer")
	ErrItemNotFound       = errors.New("item not found")
	ErrItemExists         = errors.New("item already exists")
	ErrInvalidItem        = errors.New("invalid item")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserExists         = errors.New("admin user already exists")
)

// RebuildError reports which invalidation step failed. The previous model
// handle and sessions are still in place when it is returned.
type RebuildError struct {
	Step string
	Err  error
}

func (e *RebuildError) Error() string {
	return fmt.Sprintf("rebuild %s: %v", e.Step, e.Err)
}

func (e *RebuildError) Unwrap() error { return e.Err }

func (e *RebuildError) Is(target error) bool { return target == ErrRebuildFailed }
