package resource

import (
	"bytes"
	"path"
	"strings"

	"github.com/h2non/filetype"
)

// MIMEFromPath guesses media type of a graphic by its file extension. Empty
// string is returned for unknown extensions.
func MIMEFromPath(p string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	switch ext {
	case "":
		return ""
	case "svg":
		return "image/svg+xml"
	case "jpeg":
		ext = "jpg"
	case "tiff":
		ext = "tif"
	}
	if t := filetype.GetType(ext); t != filetype.Unknown {
		return t.MIME.Value
	}
	return ""
}

// SniffMIME guesses media type of a graphic by its content. Empty string is
// returned when nothing matches.
func SniffMIME(data []byte) string {
	if t, err := filetype.Image(data); err == nil && t != filetype.Unknown {
		return t.MIME.Value
	}
	if isSVG(data) {
		return "image/svg+xml"
	}
	return ""
}

// isSVG looks for svg root element within the first kilobyte.
func isSVG(data []byte) bool {
	head := data[:min(len(data), 1024)]
	head = bytes.TrimSpace(head)
	if !bytes.HasPrefix(head, []byte("<")) {
		return false
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}
