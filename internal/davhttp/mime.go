package davhttp

import (
	"mime"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// contentTypeOf resolves a file's MIME type by extension first, falling
// back to a content-sniffing pass when the extension is missing or
// unknown, then defaulting to application/octet-stream.
func contentTypeOf(path string) string {
	if ext := filepath.Ext(path); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	if detected, err := mimetype.DetectFile(path); err == nil {
		return detected.String()
	}
	return "application/octet-stream"
}
