package geminiservice

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so handlers can map them to
// HTTP statuses and user-facing messages.
type ErrorKind int

const (
	// ErrUnknown is the zero value for errors that did not come from the pipeline.
	ErrUnknown ErrorKind = iota

	// ErrConfiguration means the GEMINI_API_KEY is missing. Fatal, never retried.
	ErrConfiguration

	// ErrInput means the caller supplied an empty query or neither image nor description.
	ErrInput

	// ErrRateLimited means the API returned 429 on every attempt up to the retry cap.
	ErrRateLimited

	// ErrTransport covers network failures and non-2xx statuses other than 429.
	ErrTransport

	// ErrEmptyCompletion means a 2xx reply carried no candidate text,
	// typically because safety filtering blocked the completion.
	ErrEmptyCompletion

	// ErrParse means extraction or validation could not produce a usable record.
	// The orchestrators recover from this locally with fallback data; it only
	// escapes this package through KindOf on internal paths.
	ErrParse
)

func (k ErrorKind) String() string {
	switch k {
	case ErrConfiguration:
		return "configuration"
	case ErrInput:
		return "input"
	case ErrRateLimited:
		return "rate_limited"
	case ErrTransport:
		return "transport"
	case ErrEmptyCompletion:
		return "empty_completion"
	case ErrParse:
		return "parse"
	default:
		return "unknown"
	}
}

// PipelineError is the typed failure returned by the pipeline orchestrators.
type PipelineError struct {
	Kind       ErrorKind
	StatusCode int // HTTP status from the upstream API, 0 if not applicable
	Message    string
}

func (e *PipelineError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newPipelineError(kind ErrorKind, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the ErrorKind carried by err, or ErrUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrUnknown
}
