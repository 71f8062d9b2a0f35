package contextfile

import (
	"mime"
	"path/filepath"
	"strings"
)

// Class is the rendering category assigned by filename extension.
type Class string

const (
	// ClassMarkdown renders with a preview/raw toggle, preview first.
	ClassMarkdown Class = "markdown"
	// ClassImage renders the decoded image.
	ClassImage Class = "image"
	// ClassPlainText renders raw text only.
	ClassPlainText Class = "plaintext"
)

// DisplayMode selects between rendered preview and editable source for
// markdown files. Toggling the mode never changes stored content.
type DisplayMode string

const (
	// DisplayPreview shows rendered markdown.
	DisplayPreview DisplayMode = "preview"
	// DisplayEdit shows the editable source text.
	DisplayEdit DisplayMode = "edit"
)

// imageExtensions maps recognized image extensions to their MIME types.
var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
	".ico":  "image/x-icon",
}

// Classify assigns a rendering class from the final filename extension,
// case-insensitively. Names with no extension, an unknown extension, or
// multiple dots ("notes.md.bak") classify by the last extension only.
func Classify(name string) Class {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".md":
		return ClassMarkdown
	case imageExtensions[ext] != "":
		return ClassImage
	default:
		return ClassPlainText
	}
}

// DefaultDisplayMode returns the initial display mode for a class.
// Markdown opens in preview; everything else opens in edit.
func DefaultDisplayMode(c Class) DisplayMode {
	if c == ClassMarkdown {
		return DisplayPreview
	}
	return DisplayEdit
}

// Toggle flips between preview and edit. Only meaningful for markdown;
// other classes stay in edit.
func Toggle(c Class, m DisplayMode) DisplayMode {
	if c != ClassMarkdown {
		return DisplayEdit
	}
	if m == DisplayPreview {
		return DisplayEdit
	}
	return DisplayPreview
}

// MIMEForExtension resolves a MIME type for a filename. Known image
// extensions take priority, then the platform registry, then a generic
// binary fallback.
func MIMEForExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if mt, ok := imageExtensions[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		if base, _, err := mime.ParseMediaType(mt); err == nil {
			return base
		}
		return mt
	}
	return "application/octet-stream"
}

// ExtensionForMIME returns the canonical extension for a recognized image
// MIME type, or "" when none is known.
func ExtensionForMIME(mimeType string) string {
	base := mimeType
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		base = parsed
	}
	switch base {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	case "image/bmp":
		return ".bmp"
	case "image/x-icon", "image/vnd.microsoft.icon":
		return ".ico"
	default:
		return ""
	}
}
