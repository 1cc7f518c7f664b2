package utils

import "fmt"

// ErrorKind is the error taxonomy from the error-handling design: each
// kind carries a distinct retry/routing policy enforced by the adapters,
// router, and scheduler (never by the error type itself).
type ErrorKind string

const (
	ErrKindTransientNetwork ErrorKind = "transient_network"
	ErrKindRateLimited      ErrorKind = "rate_limited"
	ErrKindBlocked          ErrorKind = "blocked"
	ErrKindExtractionEmpty  ErrorKind = "extraction_empty"
	ErrKindValidation       ErrorKind = "validation"
	ErrKindConfiguration    ErrorKind = "configuration"
	ErrKindInternal         ErrorKind = "internal"
)

// ScrapeError is the structured error carried across adapter/router/
// scheduler boundaries. It is never used for control flow within a single
// package, only at the boundaries named in the design notes.
type ScrapeError struct {
	Kind    ErrorKind
	Message string
	Detail  string
	Cause   error
}

func (e *ScrapeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

func (e *ScrapeError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, &ScrapeError{Kind: X}) match on kind: the target
// must carry a Kind and no Message or Detail. See KindOf for the
// common-case check.
func (e *ScrapeError) Is(target error) bool {
	other, ok := target.(*ScrapeError)
	return ok && other.Kind == e.Kind && other.Message == "" && other.Detail == ""
}

func newKind(kind ErrorKind, message, detail string, cause error) *ScrapeError {
	return &ScrapeError{Kind: kind, Message: message, Detail: detail, Cause: cause}
}

func NewTransientNetworkError(detail string, cause error) *ScrapeError {
	return newKind(ErrKindTransientNetwork, "transient network error", detail, cause)
}

func NewRateLimitedError(detail string) *ScrapeError {
	return newKind(ErrKindRateLimited, "rate limited", detail, nil)
}

func NewBlockedError(detail string) *ScrapeError {
	return newKind(ErrKindBlocked, "blocked by anti-bot measure", detail, nil)
}

func NewExtractionEmptyError(detail string) *ScrapeError {
	return newKind(ErrKindExtractionEmpty, "no jobs extracted", detail, nil)
}

func NewValidationError(detail string) *ScrapeError {
	return newKind(ErrKindValidation, "validation failed", detail, nil)
}

func NewConfigurationError(detail string) *ScrapeError {
	return newKind(ErrKindConfiguration, "configuration error", detail, nil)
}

func NewInternalError(detail string, cause error) *ScrapeError {
	return newKind(ErrKindInternal, "internal error", detail, cause)
}

// KindOf extracts the ErrorKind from err, walking the Unwrap chain. Returns
// ("", false) if err is nil or carries no ScrapeError.
func KindOf(err error) (ErrorKind, bool) {
	for err != nil {
		if se, ok := err.(*ScrapeError); ok {
			return se.Kind, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return "", false
}
