// Package errs defines the error taxonomy shared by every stage of the sync
// pipeline, mirroring the wrapping style the teacher's internal/s3client
// used for retry classification.
package errs

import "fmt"

// Kind identifies which of the sync engine's error categories an error
// belongs to, as described by spec.md §7.
type Kind string

const (
	Config               Kind = "config"
	Auth                 Kind = "auth"
	NotFound             Kind = "not_found"
	PermissionDenied     Kind = "permission_denied"
	IntegrityFailed      Kind = "integrity_failed"
	Transport            Kind = "transport"
	Cancelled            Kind = "cancelled"
	CapabilityUnsupported Kind = "capability_unsupported"
	Script               Kind = "script"
	Fatal                Kind = "fatal"
)

// Error is the typed error a port must preserve across every Endpoint,
// Transferrer and pipeline-stage boundary.
type Error struct {
	Kind    Kind
	Key     string
	Version string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Version != "" {
		return fmt.Sprintf("%s: %s (version %s): %s", e.Kind, e.Key, e.Version, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Key, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with the given kind and a formatted message.
func New(kind Kind, key string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Key: key, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind to an underlying error, preserving it via Unwrap.
func Wrap(kind Kind, key string, cause error) *Error {
	if cause == nil {
		return nil
	}
	if existing, ok := cause.(*Error); ok {
		return existing
	}
	return &Error{Kind: kind, Key: key, Message: cause.Error(), Cause: cause}
}

// WithVersion returns a copy of e tagged with the given version id.
func (e *Error) WithVersion(version string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Version = version
	return &cp
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if se, ok := err.(*Error); ok {
			e = se
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}

// Retryable reports whether a Kind is retriable at the transport layer,
// i.e. can be retried by the SDK-level backoff without surfacing to the
// pipeline as a terminal per-object error.
func (k Kind) Retryable() bool {
	return k == Transport
}

// PipelineFatal reports whether an error of this kind must abort the whole
// pipeline rather than just the object it was raised for (spec.md §7:
// "Script and Config are pipeline-fatal").
func (k Kind) PipelineFatal() bool {
	return k == Script || k == Config
}
