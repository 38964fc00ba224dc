package script

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

var mimeTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"avif": "image/avif",
	"txt":  "text/plain",
}

// MimeType derives the content type from a filename extension. Unsupported
// extensions are an error because the document store rejects them.
func MimeType(filename string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return "", fmt.Errorf("file %q has no extension", filename)
	}
	mt, ok := mimeTypes[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file extension %q", ext)
	}
	return mt, nil
}

// IsVideo reports whether filename names a video asset.
func IsVideo(filename string) bool {
	mt, err := MimeType(filename)
	return err == nil && strings.HasPrefix(mt, "video/")
}

// ExtensionFromURL returns the extension of the URL path, ignoring any query
// string. Hosted file URLs carry signatures in the query.
func ExtensionFromURL(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return strings.ToLower(path.Ext(u.Path))
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return strings.ToLower(path.Ext(raw))
}

// IsRemote reports whether src is a URL rather than a local filename.
func IsRemote(src string) bool {
	lower := strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
