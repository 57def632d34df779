package asset

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"videotube/pkg/apierror"
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".m4v": {}, ".mov": {}, ".webm": {}, ".mkv": {}, ".avi": {},
	".mpeg": {}, ".mpg": {}, ".3gp": {}, ".ogv": {}, ".ts": {},
}

// DetectContentType sniffs the first bytes of a file and falls back to the
// declared type and then the extension when sniffing is inconclusive.
func DetectContentType(head []byte, declared string, filename string) string {
	sniffed := http.DetectContentType(head)
	if sniffed != "application/octet-stream" {
		return sniffed
	}

	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "" {
		return mediaType
	}

	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}

	return sniffed
}

func IsImageMIME(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

func IsVideoMIME(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "video/")
}

// CheckVideo rejects uploads that look like neither a video by content type
// nor by extension.
func CheckVideo(contentType string, filename string) error {
	if IsVideoMIME(contentType) {
		return nil
	}
	if _, ok := videoExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return nil
	}
	return apierror.Validation("video file must be a video", filename)
}
