package models

import "errors"

// Error kinds surfaced across the collection and processing layers. Every
// background loop classifies failures into one of these so that a single
// bad item or a single rejecting upstream never unwinds a batch.
var (
	ErrTransport        = errors.New("transport or timeout")
	ErrAuthRejected     = errors.New("upstream rejected credentials")
	ErrRateLimited      = errors.New("upstream rate limited the request")
	ErrParse            = errors.New("malformed payload")
	ErrValidationFailed = errors.New("item failed validation")
	ErrDBConflict       = errors.New("unique constraint conflict")
	ErrModelUnavailable = errors.New("model backend unavailable")
	ErrIntegrity        = errors.New("inconsistent transaction state")
)

// AdapterError wraps a collection failure with the adapter that produced it
// and the underlying error kind, one of the ErrTransport/ErrAuthRejected/
// ErrRateLimited/ErrParse sentinels above.
type AdapterError struct {
	Adapter string
	Kind    error
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Adapter + ": " + e.Kind.Error() + ": " + e.Err.Error()
	}
	return e.Adapter + ": " + e.Kind.Error()
}

func (e *AdapterError) Unwrap() error { return e.Kind }
