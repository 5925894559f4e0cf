package contracts

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument is returned when the source document has no text.
	ErrEmptyDocument = errors.New("document text is empty")
	ErrModelMissing  = errors.New("model not specified")

	ErrUnknownTier        = errors.New("unknown tier")
	ErrUnknownField       = errors.New("unknown field")
	ErrFieldLimitExceeded = errors.New("field limit exceeded")
	ErrEmptyFieldSet      = errors.New("field set is empty")
	ErrInvalidTaxonomy    = errors.New("invalid taxonomy")
	ErrInvalidChunking    = errors.New("invalid chunking parameters")

	// ErrExtractionUnavailable means every segment call failed.
	ErrExtractionUnavailable = errors.New("extraction unavailable")
	// ErrIncomplete accompanies a partial analysis after cancellation.
	ErrIncomplete = errors.New("extraction incomplete")

	ErrMalformedResponse = errors.New("malformed model response")
	ErrUnreadablePDF     = errors.New("unreadable pdf")
	ErrUnsupportedMedia  = errors.New("unsupported media type")
)

// UnknownFieldError names the custom field key that is not in the taxonomy.
type UnknownFieldError struct {
	Key string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Key)
}

func (e *UnknownFieldError) Is(target error) bool { return target == ErrUnknownField }

// FieldLimitExceededError reports a custom selection above the field limit.
type FieldLimitExceededError struct {
	Count int
	Limit int
}

func (e *FieldLimitExceededError) Error() string {
	return fmt.Sprintf("%d fields requested, at most %d allowed", e.Count, e.Limit)
}

func (e *FieldLimitExceededError) Is(target error) bool { return target == ErrFieldLimitExceeded }

// SegmentError is a failure scoped to a single segment call. It is logged
// and absorbed by the extractor.
type SegmentError struct {
	Segment int
	Err     error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d: %v", e.Segment, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// IsValidationError reports whether err was raised while validating the
// request, before any model call.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrUnknownTier,
		ErrUnknownField,
		ErrFieldLimitExceeded,
		ErrEmptyFieldSet,
		ErrEmptyDocument,
		ErrModelMissing,
		ErrInvalidChunking,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
