package helper

import (
	"path/filepath"
	"strings"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif"}

// IsImageFilename reports whether filename's extension is a recognized
// image type. Used by the thumbnail hook as a fallback when the caller's
// filetype metadata is absent.
func IsImageFilename(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, img := range imageExtensions {
		if ext == img {
			return true
		}
	}
	return false
}

// IsImageMIME reports whether a MIME type hint names an image.
func IsImageMIME(mime string) bool {
	return strings.HasPrefix(strings.ToLower(mime), "image/")
}

// GetMimeTypeFromExtension returns a best-guess MIME type for filename,
// falling back to application/octet-stream.
func GetMimeTypeFromExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}
