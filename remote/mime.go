package remote

import "github.com/OMGeeky/drive-syncer/entry"

const folderMimeType = "application/vnd.google-apps.folder"

// nativeAppMimeTypes enumerates the Google-native document types that
// have no byte stream and are therefore dropped at ingest (spec.md §6).
var nativeAppMimeTypes = map[string]bool{
	"application/vnd.google-apps.document":    true,
	"application/vnd.google-apps.spreadsheet": true,
	"application/vnd.google-apps.drawing":     true,
	"application/vnd.google-apps.form":        true,
	"application/vnd.google-apps.presentation": true,
	"application/vnd.google-apps.drive-sdk":    true,
	"application/vnd.google-apps.script":       true,
}

// IsNativeAppMimeType reports whether mimeType identifies a cloud-native
// app document with no downloadable byte stream.
func IsNativeAppMimeType(mimeType string) bool {
	return nativeAppMimeTypes[mimeType]
}

// KindForMimeType classifies every non-filtered mime type: the Drive
// folder type becomes a Directory, everything else is a RegularFile.
func KindForMimeType(mimeType string) entry.Kind {
	if mimeType == folderMimeType {
		return entry.Directory
	}
	return entry.RegularFile
}
