package etag

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidETag = errors.New("invalid etag format")

type ETaggable interface {
	V() string
}

const prefix = "v:"

// ETag returns the unquoted tag of obj.
func ETag(obj ETaggable) string {
	return prefix + obj.V()
}

// Header returns the quoted value for ETag response headers.
func Header(obj ETaggable) string {
	return strconv.Quote(ETag(obj))
}

func ParseETag(etag string) (string, error) {
	if !strings.HasPrefix(etag, prefix) {
		return "", ErrInvalidETag
	}
	return strings.TrimPrefix(etag, prefix), nil
}

// ParseVersion reads an If-Match header value ("v:3", v:3 or W/"v:3") into a version.
// A list or "*" is rejected: writes must name the exact version they were based on.
func ParseVersion(header string) (int64, error) {
	h := strings.TrimSpace(header)
	h = strings.TrimPrefix(h, "W/")
	if len(h) >= 2 && h[0] == '"' && h[len(h)-1] == '"' {
		h = h[1 : len(h)-1]
	}
	raw, err := ParseETag(h)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return 0, ErrInvalidETag
	}
	return v, nil
}
