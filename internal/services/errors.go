package services

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrEmptyQuery        = errors.New("empty query")
	ErrMalformedResponse = errors.New("malformed response")
	ErrInvalidSchema     = errors.New("invalid schema")
	ErrTransportFailure  = errors.New("transport failure")
	ErrEmptyResult       = errors.New("empty result")

	ErrSuperseded       = errors.New("search superseded by a newer submission")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrSessionNotFound  = errors.New("session not found")
)

// FetchError is the single error type surfaced by the deal fetch pipeline.
// Kind is one of the Err* sentinels above; Cause is kept for diagnostics.
type FetchError struct {
	Kind  error
	Cause error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case ErrMalformedResponse:
		return fmt.Sprintf("Gemini API Error: malformed JSON in model response: %v", e.Cause)
	case ErrInvalidSchema:
		return "Gemini API Error: received invalid data structure from model"
	case ErrTransportFailure:
		return fmt.Sprintf("Gemini API Error: %v", e.Cause)
	}
	if e.Cause != nil {
		return fmt.Sprintf("Gemini API Error: %v", e.Cause)
	}
	return "Gemini API Error: an unexpected error occurred while fetching deals"
}

func (e *FetchError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// KindName returns a short label for the kind of err, or "" if it is not one
// of the known kinds.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyQuery):
		return "EmptyQuery"
	case errors.Is(err, ErrMalformedResponse):
		return "MalformedResponse"
	case errors.Is(err, ErrInvalidSchema):
		return "InvalidSchema"
	case errors.Is(err, ErrTransportFailure):
		return "TransportFailure"
	case errors.Is(err, ErrEmptyResult):
		return "EmptyResult"
	}
	return ""
}
