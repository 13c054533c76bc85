// Package attachment materializes inlined image payloads into the byte store
// and serves them back by reference.
package attachment

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DefaultMaxBytes is the default ceiling on decoded attachment size.
const DefaultMaxBytes int64 = 10 * 1024 * 1024

const (
	dataURIPrefix  = "data:image/"
	base64Marker   = ";base64,"
	maxSubtypeSize = 32
)

// allowedSubtypes is the image subtype allow-list. Keys are lowercase.
var allowedSubtypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// ImagePayload is a decoded, validated inline image.
type ImagePayload struct {
	// Subtype is the declared media subtype, e.g. "png".
	Subtype string
	// Mime is the canonical content type for the subtype.
	Mime string
	// Data holds the decoded bytes.
	Data []byte
}

// ParseImageDataURI validates and decodes a self-describing embedded-data
// string of the form "data:image/<subtype>;base64,<body>". Failure reasons
// are distinct and checked in order: malformed payload, decoded size over
// maxBytes, subtype outside the allow-list.
func ParseImageDataURI(payload string, maxBytes int64) (ImagePayload, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if !strings.HasPrefix(payload, dataURIPrefix) {
		return ImagePayload{}, ErrMalformedPayload
	}
	rest := payload[len(dataURIPrefix):]
	marker := strings.Index(rest, base64Marker)
	if marker <= 0 || marker > maxSubtypeSize {
		return ImagePayload{}, ErrMalformedPayload
	}
	subtype := strings.ToLower(rest[:marker])
	body := rest[marker+len(base64Marker):]
	if body == "" {
		return ImagePayload{}, ErrMalformedPayload
	}

	if int64(base64.StdEncoding.DecodedLen(len(body))) > maxBytes+base64DecodeSlack {
		return ImagePayload{}, fmt.Errorf("%w: max %d bytes", ErrTooLarge, maxBytes)
	}

	mime, ok := allowedSubtypes[subtype]
	if !ok {
		return ImagePayload{}, fmt.Errorf("%w: image/%s", ErrUnsupportedType, subtype)
	}

	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return ImagePayload{}, ErrMalformedPayload
	}
	if int64(len(data)) > maxBytes {
		return ImagePayload{}, fmt.Errorf("%w: max %d bytes", ErrTooLarge, maxBytes)
	}
	if len(data) == 0 {
		return ImagePayload{}, ErrMalformedPayload
	}
	return ImagePayload{Subtype: subtype, Mime: mime, Data: data}, nil
}

// base64DecodeSlack covers the up-to-2-byte overestimate of DecodedLen for
// padded input; the exact check re-runs on the decoded bytes.
const base64DecodeSlack = 2
