package attachment

import "errors"

var (
	// ErrMalformedPayload indicates the inlined payload is not a well-formed
	// base64 image data URI.
	ErrMalformedPayload = errors.New("attachment payload is malformed")
	// ErrTooLarge indicates the decoded payload exceeds the configured ceiling.
	ErrTooLarge = errors.New("attachment exceeds the size limit")
	// ErrUnsupportedType indicates a media subtype outside the image allow-list.
	ErrUnsupportedType = errors.New("attachment image type is not allowed")
	// ErrNotFound indicates no stored attachment matches the given name.
	ErrNotFound = errors.New("attachment not found")
)
