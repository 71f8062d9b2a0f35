package contextfile

import (
	"errors"
	"fmt"
	"strings"
)

// Kind distinguishes text content from image content.
type Kind string

const (
	// KindText is raw UTF-8 text content.
	KindText Kind = "text"
	// KindImage is image content persisted as a data: URL string.
	KindImage Kind = "image"
)

// Change operation labels published after mutations.
const (
	OpWrite  = "write"
	OpDelete = "delete"
	OpReset  = "reset"
)

// MaxNameLength caps context file names at the common filesystem limit.
const MaxNameLength = 255

// tempPrefix marks in-progress writes; List skips it and ValidateName
// reserves it.
const tempPrefix = ".ctx-tmp-"

// Store errors.
var (
	// ErrNotFound indicates the named context file does not exist.
	ErrNotFound = errors.New("context file not found")

	// ErrInvalidName indicates a name the store cannot represent on disk.
	ErrInvalidName = errors.New("invalid context file name")

	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrContentTooLarge indicates a write exceeding the configured size cap.
	ErrContentTooLarge = errors.New("content exceeds size limit")

	// ErrInvalidDataURL indicates a malformed data: URL string.
	ErrInvalidDataURL = errors.New("invalid data URL")
)

// ContextFile is a named text or image artifact within a project's context
// directory.
type ContextFile struct {
	// Name is the unique key within the directory; opaque to the store.
	Name string `json:"name"`

	// Kind is derived from content/extension, never stored separately.
	Kind Kind `json:"kind"`

	// Content is raw UTF-8 text, or the exact data: URL string for images.
	Content string `json:"content"`
}

// ValidateName checks that a name can act as a single filename. Names are
// otherwise opaque: spaces, parentheses, hyphens, underscores, and
// multi-part extensions all pass through untouched.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d bytes", ErrInvalidName, MaxNameLength)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: contains path separator", ErrInvalidName)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: contains NUL byte", ErrInvalidName)
	}
	if strings.HasPrefix(name, tempPrefix) {
		return fmt.Errorf("%w: %q prefix is reserved", ErrInvalidName, tempPrefix)
	}
	return nil
}

// DeriveKind infers a file's kind from its content and name. Data-URL
// content is always an image; otherwise the extension decides.
func DeriveKind(name, content string) Kind {
	if IsDataURL(content) {
		return KindImage
	}
	if Classify(name) == ClassImage {
		return KindImage
	}
	return KindText
}
