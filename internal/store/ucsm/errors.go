package ucsm

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	// ErrCodeAlreadyExists is returned by the plane when creating an object that is present.
	ErrCodeAlreadyExists = "103"
	// ErrCodeAuthentication is returned by aaaLogin on rejected credentials.
	ErrCodeAuthentication = "551"
	// ErrCodeNotFound is returned when a referenced object does not exist.
	ErrCodeNotFound = "102"
)

var (
	ErrNotLoggedIn     = errors.New("handle is not logged in")
	ErrLoginRejected   = errors.New("login rejected")
	ErrInvalidResponse = errors.New("invalid management plane response")
	ErrTransport       = errors.New("management plane transport error")
)

// RemoteError is a rejection reported by the management plane.
type RemoteError struct {
	Code        string
	Description string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("management plane error %s: %s", e.Code, e.Description)
}

// AsRemoteError extracts a *RemoteError from err.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}

	return nil, false
}

// IsAlreadyExists reports whether err is the plane's "object already exists" rejection.
func IsAlreadyExists(err error) bool {
	re, ok := AsRemoteError(err)
	return ok && re.Code == ErrCodeAlreadyExists
}

// IsNotFound reports whether err is the plane's "object does not exist" rejection.
func IsNotFound(err error) bool {
	re, ok := AsRemoteError(err)
	return ok && re.Code == ErrCodeNotFound
}
