package mime

import (
	"path/filepath"
	"strings"
)

var imageMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/gif",
	"image/bmp",
	"image/tiff",
}

// documentMimeTypes are rasterized from their first page.
var documentMimeTypes = []string{
	"application/pdf",
	"application/epub+zip",
	"application/x-mobipocket-ebook",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

var videoMimeTypes = []string{
	"video/mp4",
	"video/ogg",
	"video/webm",
	"video/quicktime",
	"video/x-msvideo",
	"video/x-matroska",
	"video/x-flv",
	"video/x-m4v",
}

// encodableMimeTypes can be written back out in their own format.
var encodableMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
}

var extensionMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".pdf":  "application/pdf",
	".epub": "application/epub+zip",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
}

func contains(list []string, mimeType string) bool {
	for _, m := range list {
		if mimeType == m {
			return true
		}
	}

	return false
}

func IsImageMime(mimeType string) bool {
	return contains(imageMimeTypes, mimeType)
}

func IsDocumentMime(mimeType string) bool {
	return contains(documentMimeTypes, mimeType)
}

func IsVideoMime(mimeType string) bool {
	return contains(videoMimeTypes, mimeType)
}

func IsEncodableMime(mimeType string) bool {
	return contains(encodableMimeTypes, mimeType)
}

// IsUpscalableMime reports whether a source of this type can be fed to the pipeline.
func IsUpscalableMime(mimeType string) bool {
	return IsImageMime(mimeType) || IsDocumentMime(mimeType) || IsVideoMime(mimeType)
}

// FromPath guesses a mime type from a file extension. Unknown extensions give "".
func FromPath(path string) string {
	return extensionMimeTypes[strings.ToLower(filepath.Ext(path))]
}
