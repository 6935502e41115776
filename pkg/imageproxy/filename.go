package imageproxy

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

// DefaultFilename is used when the URL path has no usable last segment.
const DefaultFilename = "image.png"

var extensionByType = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/webp":    ".webp",
	"image/gif":     ".gif",
	"image/avif":    ".avif",
	"image/bmp":     ".bmp",
	"image/svg+xml": ".svg",
	"image/tiff":    ".tiff",
}

// attachmentFilename derives the download filename from the last path
// segment of u. A segment without an extension gets one from contentType.
func attachmentFilename(u *url.URL, contentType string) string {
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return DefaultFilename
	}

	name = sanitizeFilename(name)
	if name == "" {
		return DefaultFilename
	}

	if path.Ext(name) == "" {
		name += extensionFor(contentType)
	}
	return name
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".png"
	}
	if ext, ok := extensionByType[strings.ToLower(mediaType)]; ok {
		return ext
	}
	return ".png"
}

// sanitizeFilename drops characters that would break the quoted
// Content-Disposition value.
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return -1
		case r == '"' || r == '\\' || r == '/':
			return '_'
		}
		return r
	}, name)
}
