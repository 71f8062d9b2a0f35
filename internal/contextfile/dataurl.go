package contextfile

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const dataURLPrefix = "data:"

// IsDataURL reports whether s looks like a base64 data: URL. It checks
// shape only; DecodeDataURL performs strict validation.
func IsDataURL(s string) bool {
	if !strings.HasPrefix(s, dataURLPrefix) {
		return false
	}
	meta, _, found := strings.Cut(s[len(dataURLPrefix):], ",")
	return found && strings.HasSuffix(meta, ";base64")
}

// EncodeDataURL encodes raw bytes as a data: URL with the given MIME type.
// The result is stable: encoding the same bytes always yields the same
// string, so stored images survive byte-for-byte round trips.
func EncodeDataURL(mimeType string, data []byte) string {
	return dataURLPrefix + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL parses a data: URL produced by EncodeDataURL (or a
// compatible external tool) and returns the MIME type and decoded bytes.
func DecodeDataURL(s string) (mimeType string, data []byte, err error) {
	if !strings.HasPrefix(s, dataURLPrefix) {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}
	meta, payload, found := strings.Cut(s[len(dataURLPrefix):], ",")
	if !found {
		return "", nil, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}
	mt, encoding, found := strings.Cut(meta, ";")
	if !found || encoding != "base64" {
		return "", nil, fmt.Errorf("%w: only base64 encoding is supported", ErrInvalidDataURL)
	}
	if mt == "" {
		return "", nil, fmt.Errorf("%w: empty media type", ErrInvalidDataURL)
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return mt, decoded, nil
}
