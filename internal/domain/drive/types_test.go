package drive

import "testing"

func TestIsText(t *testing.T) {
	cases := map[string]bool{
		"text/plain":                      true,
		"text/markdown; charset=utf-8":    true,
		"application/json":                true,
		"application/vnd.api+json":        true,
		"application/pdf":                 false,
		"image/png":                       false,
		"":                                false,
		"application/vnd.google-apps.doc": false,
	}
	for mt, want := range cases {
		if got := IsText(mt); got != want {
			t.Fatalf("IsText(%q) = %v, want %v", mt, got, want)
		}
	}
}

func TestInlineExcludesMarkup(t *testing.T) {
	cases := map[string]bool{
		"text/plain":               true,
		"text/markdown":            true,
		"application/json":         true,
		"text/html":                false,
		"TEXT/HTML; charset=utf-8": false,
		"image/svg+xml":            false,
		"application/xhtml+xml":    false,
		"application/xml":          false,
		"text/xml":                 false,
		"application/pdf":          false,
		"application/vnd.api+json": true,
		"application/atom+xml;q=1": false,
	}
	for mt, want := range cases {
		if got := Inline(mt); got != want {
			t.Fatalf("Inline(%q) = %v, want %v", mt, got, want)
		}
	}
}

func TestFileIsFolder(t *testing.T) {
	if !(File{MimeType: FolderMimeType}).IsFolder() {
		t.Fatalf("expected folder")
	}
	if (File{MimeType: "text/plain"}).IsFolder() {
		t.Fatalf("did not expect folder")
	}
}
