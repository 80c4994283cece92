package model

import (
	"github.com/pkg/errors"
)

var (
	ErrConfig = errors.New("configuration error")

	ErrNotAuthenticated      = errors.New("UCS Credentials have not been entered.  Please login to UCS to continue.")
	ErrIncompleteCredentials = errors.New("kubam.yaml file does not include the user, password, and ip properties to login.")
	ErrNoVLANSelected        = errors.New("No vlan selected in UCS configuration.")
	ErrNoHosts               = errors.New("No hosts defined in configuration.")
	ErrNoKubamAddress        = errors.New("kubam IP address is not configured")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrStoreRead             = errors.New("configuration store read error")
	ErrStoreWrite            = errors.New("configuration store write error")
	ErrMoreHostsThanServers  = errors.New("more hosts than selected servers")
	ErrHostWithoutName       = errors.New("host record has no name")
	ErrVLANNotFound          = errors.New("vlan not found in management plane inventory")
)

// ErrorKind is the coarse classification of a failure.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindConfiguration
	KindAuthentication
	KindValidation
	KindRemote
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Error carries the classification of a failure and the pipeline stage it happened in.
// Partial is set when remote state was changed before the failure.
type Error struct {
	Kind    ErrorKind
	Stage   string
	Partial bool
	Err     error
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}

	if e.Partial {
		msg += " (state may be inconsistent, re-run to converge)"
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewConfigurationError(err error) error {
	return &Error{Kind: KindConfiguration, Err: err}
}

func NewAuthenticationError(err error) error {
	return &Error{Kind: KindAuthentication, Err: err}
}

func NewValidationError(err error) error {
	return &Error{Kind: KindValidation, Err: err}
}

func NewRemoteError(stage string, err error) error {
	return &Error{Kind: KindRemote, Stage: stage, Err: err}
}

// KindOf returns the classification of err, KindUnknown when it carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// IsPartial reports whether err describes a partially applied change.
func IsPartial(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Partial
	}

	return false
}

// AtStage returns err tagged with the pipeline stage, keeping its classification.
func AtStage(stage string, err error, partial bool) error {
	var e *Error
	if errors.As(err, &e) {
		tagged := *e
		if tagged.Stage == "" {
			tagged.Stage = stage
		}

		tagged.Partial = tagged.Partial || partial

		return &tagged
	}

	return &Error{Kind: KindUnknown, Stage: stage, Partial: partial, Err: err}
}
