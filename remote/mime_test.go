package remote

import (
	"testing"

	"github.com/OMGeeky/drive-syncer/entry"
)

func TestIsNativeAppMimeType(t *testing.T) {
	tests := []struct {
		mimeType string
		want     bool
	}{
		{"application/vnd.google-apps.document", true},
		{"application/vnd.google-apps.spreadsheet", true},
		{"application/vnd.google-apps.folder", false},
		{"text/plain", false},
		{"image/png", false},
	}
	for _, test := range tests {
		if got := IsNativeAppMimeType(test.mimeType); got != test.want {
			t.Errorf("IsNativeAppMimeType(%q) = %v, want %v", test.mimeType, got, test.want)
		}
	}
}

func TestKindForMimeType(t *testing.T) {
	if got := KindForMimeType(folderMimeType); got != entry.Directory {
		t.Errorf("KindForMimeType(folder) = %v, want Directory", got)
	}
	if got := KindForMimeType("text/plain"); got != entry.RegularFile {
		t.Errorf("KindForMimeType(text/plain) = %v, want RegularFile", got)
	}
}
