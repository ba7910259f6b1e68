package workflow

import (
	"net/http"
	"path/filepath"
	"strings"

	wf "github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

// imageExtensions maps extensions to media types for content the sniffer
// cannot classify, such as WebP variants it does not know.
var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// imageContentType returns the media type of an image file or INVALID_INPUT
func imageContentType(f UploadFile) (string, error) {
	if len(f.Content) == 0 {
		return "", wf.InvalidInput("file %q is empty", f.Filename)
	}

	sniffed := http.DetectContentType(f.Content)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed, nil
	}
	if sniffed == "application/octet-stream" {
		if ct, ok := imageExtensions[strings.ToLower(filepath.Ext(f.Filename))]; ok {
			return ct, nil
		}
	}
	return "", wf.InvalidInput("file %q is not an image (%s)", f.Filename, sniffed)
}
