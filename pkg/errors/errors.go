// Package errors defines the failure taxonomy shared across the pipeline:
// transient errors are retried with backoff and ledgered when exhausted,
// logical errors are ledgered immediately and retried on a later run, and
// data-quality findings are not errors at all.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a 404 from the bulletin API; no bulletin was
	// published for the requested date.
	ErrNotFound = errors.New("not found")
	// ErrHTTPStatus marks a non-2xx response other than 404.
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrTimeout marks a network timeout or exhausted deadline.
	ErrTimeout = errors.New("operation timed out")
	// ErrServerLogic marks a structurally valid response that carries a
	// server-side error payload (e.g. the normas sub-resource reporting
	// "errores" for an otherwise valid bulletin).
	ErrServerLogic = errors.New("server-side logical error")
	// ErrMalformedPayload marks a response body that cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrPDFExtract marks a tender PDF that could not be fetched or read.
	ErrPDFExtract = errors.New("pdf extraction failed")
)

// PipelineError wraps a sentinel with the identifier it failed for, so
// ledger entries can be built from any error in the chain.
type PipelineError struct {
	Err        error
	Identifier string
	Detail     string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Err.Error(), e.Identifier, e.Detail)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// New builds a PipelineError around a sentinel.
func New(sentinel error, identifier, detail string) *PipelineError {
	return &PipelineError{Err: sentinel, Identifier: identifier, Detail: detail}
}

// Newf builds a PipelineError with a formatted detail message.
func Newf(sentinel error, identifier, format string, args ...any) *PipelineError {
	return &PipelineError{Err: sentinel, Identifier: identifier, Detail: fmt.Sprintf(format, args...)}
}

// Retryable reports whether the error is transient and worth retrying with
// backoff before it is ledgered.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrHTTPStatus)
}

// Kind maps an error to its ledger failure kind. Unrecognised errors are
// classified as "desconocido", matching how the harvest logs label them.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrHTTPStatus), errors.Is(err, ErrNotFound):
		return "http"
	case errors.Is(err, ErrServerLogic), errors.Is(err, ErrMalformedPayload):
		return "server_xml"
	case errors.Is(err, ErrPDFExtract):
		return "pdf"
	default:
		return "desconocido"
	}
}
