// Package drive holds the Drive entities shown on the dashboard.
package drive

import (
	"io"
	"strings"
)

// FolderMimeType identifies Drive folders.
const FolderMimeType = "application/vnd.google-apps.folder"

// Folder is a Drive folder visible to the user.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// File is a Drive file inside a folder.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
}

// IsFolder reports whether the file is itself a folder.
func (f File) IsFolder() bool { return f.MimeType == FolderMimeType }

// Content is a streamed file body. Body must be closed by the caller.
type Content struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.ReadCloser
}

// IsText reports whether the content should be rendered as text rather than
// offered as a binary download.
func IsText(mimeType string) bool {
	mt := baseType(mimeType)
	switch {
	case strings.HasPrefix(mt, "text/"):
		return true
	case mt == "application/json", mt == "application/xml", mt == "application/javascript":
		return true
	case strings.HasSuffix(mt, "+json"), strings.HasSuffix(mt, "+xml"):
		return true
	}
	return false
}

// Inline reports whether a browser may render the content in place. Markup a
// browser would execute (HTML, XHTML, SVG and other XML) is text but still
// downloads.
func Inline(mimeType string) bool {
	if !IsText(mimeType) {
		return false
	}
	mt := baseType(mimeType)
	switch {
	case mt == "text/html", mt == "text/xml", mt == "application/xml":
		return false
	case strings.HasSuffix(mt, "+xml"):
		return false
	}
	return true
}

func baseType(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}
