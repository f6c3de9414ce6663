package recipe

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an extraction failed. Callers map kinds to
// stable codes; messages are for humans.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotARecipePage
	KindTransportFailure
	KindUnsupportedDocument
	KindInferenceRateLimited
	KindInferenceUnavailable
	KindInferenceMalformedOutput
	KindInvalidInputMedia
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotARecipePage:
		return "NotARecipePage"
	case KindTransportFailure:
		return "TransportFailure"
	case KindUnsupportedDocument:
		return "UnsupportedDocument"
	case KindInferenceRateLimited:
		return "InferenceRateLimited"
	case KindInferenceUnavailable:
		return "InferenceUnavailable"
	case KindInferenceMalformedOutput:
		return "InferenceMalformedOutput"
	case KindInvalidInputMedia:
		return "InvalidInputMedia"
	default:
		return "Unknown"
	}
}

// Stable error codes surfaced by the API.
const (
	CodeNoRecipeFound       = "ERR_NO_RECIPE_FOUND"
	CodeFetchFailed         = "ERR_FETCH_FAILED"
	CodeTimeout             = "ERR_TIMEOUT"
	CodeUnsupportedDocument = "ERR_UNSUPPORTED_DOCUMENT"
	CodeRateLimit           = "ERR_RATE_LIMIT"
	CodeAPIUnavailable      = "ERR_API_UNAVAILABLE"
	CodeAIParseFailed       = "ERR_AI_PARSE_FAILED"
	CodeInvalidFileType     = "ERR_INVALID_FILE_TYPE"
	CodeFileTooLarge        = "ERR_FILE_TOO_LARGE"
	CodeInvalidURL          = "ERR_INVALID_URL"
	CodeUnknown             = "ERR_UNKNOWN"
)

// Error is the typed failure every tier reports. RetryAfter is an opaque
// timestamp from the inference provider and is never rewritten.
type Error struct {
	Kind    ErrorKind
	Message string
	// RetryAfter is set only for KindInferenceRateLimited; zero means unknown.
	RetryAfter int64
	// Timeout marks a TransportFailure caused by the fetch deadline.
	Timeout bool
	// BadURL marks a TransportFailure rejected before any request was made.
	BadURL bool
	// TooLarge distinguishes oversized uploads from wrong MIME types.
	TooLarge bool
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Code returns the stable API code for the error.
func (e *Error) Code() string {
	if e == nil {
		return CodeUnknown
	}
	switch e.Kind {
	case KindNotARecipePage:
		return CodeNoRecipeFound
	case KindTransportFailure:
		switch {
		case e.BadURL:
			return CodeInvalidURL
		case e.Timeout:
			return CodeTimeout
		}
		return CodeFetchFailed
	case KindUnsupportedDocument:
		return CodeUnsupportedDocument
	case KindInferenceRateLimited:
		return CodeRateLimit
	case KindInferenceUnavailable:
		return CodeAPIUnavailable
	case KindInferenceMalformedOutput:
		return CodeAIParseFailed
	case KindInvalidInputMedia:
		if e.TooLarge {
			return CodeFileTooLarge
		}
		return CodeInvalidFileType
	default:
		return CodeUnknown
	}
}

// NewError builds an *Error of the given kind.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// AsError extracts an *Error from err, wrapping unknown errors as KindUnknown.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindUnknown, Message: "unexpected error", Err: err}
}

// specificity ranks kinds so the orchestrator can surface the most
// actionable failure once every tier is exhausted.
func specificity(k ErrorKind) int {
	switch k {
	case KindInferenceRateLimited:
		return 60
	case KindInferenceUnavailable:
		return 50
	case KindTransportFailure, KindInvalidInputMedia:
		return 45
	case KindInferenceMalformedOutput:
		return 40
	case KindUnsupportedDocument:
		return 30
	case KindNotARecipePage:
		return 20
	default:
		return 0
	}
}

// MoreSpecific returns whichever of a and b is more actionable; ties keep a.
func MoreSpecific(a, b *Error) *Error {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if specificity(b.Kind) > specificity(a.Kind) {
		return b
	}
	return a
}
