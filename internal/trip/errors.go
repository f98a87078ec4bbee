package trip

import (
	"errors"
	"fmt"
)

var (
	// ErrIdentityResolution marks a failure to obtain a vehicle identity.
	ErrIdentityResolution = errors.New("identity resolution failed")
	// ErrSubmission marks a rejected or failed batch or status send.
	ErrSubmission = errors.New("remote submission failed")
)

// Error records the state a trip was in when it failed.
type Error struct {
	State State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
