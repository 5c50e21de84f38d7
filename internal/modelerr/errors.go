// Package modelerr defines the error-kind taxonomy shared by the installer
// and reconciler, so callers can branch on Kind instead of string-matching
// messages.
package modelerr

import "fmt"

// Kind is a coarse error classification.
type Kind string

const (
	NotFound               Kind = "not_found"
	UnknownApp             Kind = "unknown_app"
	VersionNotAvailable    Kind = "version_not_available"
	PreconditionFailed     Kind = "precondition_failed"
	NetworkError           Kind = "network_error"
	DownloadFailed         Kind = "download_failed"
	IntegrityFailed        Kind = "integrity_failed"
	SizeVerificationFailed Kind = "size_verification_failed"
	UnpackFailed           Kind = "unpack_failed"
	CloneFailed            Kind = "clone_failed"
	GitError               Kind = "git_error"
	SubprocessFailed       Kind = "subprocess_failed"
	FilesystemError        Kind = "filesystem_error"
	AlreadyExists          Kind = "already_exists"
	Transient              Kind = "transient"
	UserCancelled          Kind = "user_cancelled"
	PostSetupWarning       Kind = "post_setup_warning"
	RefreshDisallowed      Kind = "refresh_disallowed"
)

// Error is the structured error value returned by installer and reconciler operations.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with the given kind and formatted message.
func New(kind Kind, stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error carrying an underlying cause.
func Wrap(kind Kind, stage string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Fatal reports whether an error of this kind should abort an installer run.
// PostSetupWarning is the sole non-fatal kind.
func Fatal(kind Kind) bool {
	return kind != PostSetupWarning
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	me, ok := err.(*Error)
	return ok && me.Kind == kind
}
