// Package remote defines the Remote Client contract drive-syncer
// consumes (spec.md §6) and its Google Drive v3 implementation. Callers
// outside this package never see the gdrive SDK types directly.
package remote

import (
	"context"
	"io"
	"time"

	"github.com/OMGeeky/drive-syncer/entry"
	"github.com/OMGeeky/drive-syncer/id"
)

// Metadata is the normalized view of a remote object's attributes, as
// returned by GetMetadata, ListAll, and carried inside a FileChanged
// Change.
type Metadata struct {
	Id           id.Id
	Name         string
	Kind         entry.Kind
	Size         uint64
	Md5          string // empty for directories, or a file with no content yet
	ModifiedTime time.Time
	CreatedTime  time.Time
	Parents      []id.Id
	Trashed      bool
	MimeType     string
}

// ChangeKind discriminates the three normalized change-feed record
// shapes spec.md §2 defines.
type ChangeKind int

const (
	FileChanged ChangeKind = iota
	DriveChanged
	Removed
	UnknownChangeKind
)

// Change is a normalized record from the remote change feed.
type Change struct {
	Id   id.Id
	Kind ChangeKind
	Meta *Metadata // populated only when Kind == FileChanged
	Time time.Time
}

// ChangesPage is one page of the paginated changes-since-token stream.
type ChangesPage struct {
	Changes []Change
	// NextPageToken is set when more pages remain in this poll.
	NextPageToken string
	// NewStartPageToken is set only on the final page, and becomes the
	// token the next poll resumes from.
	NewStartPageToken string
}

// MetadataDelta is what gets pushed to the remote on rename/reparent or
// on upload-completion metadata sync. AddParents/RemoveParents are
// explicit deltas, never a wholesale parent-list rewrite — spec.md §4.2
// Upload preparation, and the Open Question resolved in SPEC_FULL.md §9.
type MetadataDelta struct {
	Name          string // empty means unchanged
	AddParents    []id.Id
	RemoveParents []id.Id
}

// Client is the external collaborator this package exists to satisfy:
// list-all, get-metadata, download, upload, update-metadata,
// get-start-page-token, changes-since. Authentication and the
// lower-level HTTP transport are out of scope (spec.md §1); this
// interface is the boundary.
type Client interface {
	// RootId returns the real id the remote reports for "root" — the
	// value the id.Resolver rewrites Sentinel to.
	RootId(ctx context.Context) (id.Id, error)
	// ListAll returns every non-trashed object owned by the
	// authenticated user. Cloud-native app documents are already
	// filtered out of this result (spec.md §6).
	ListAll(ctx context.Context) ([]Metadata, error)
	// GetMetadata fetches the current metadata for a single object.
	GetMetadata(ctx context.Context, objId id.Id) (*Metadata, error)
	// Download streams the object's content into w.
	Download(ctx context.Context, objId id.Id, w io.Writer) error
	// Upload performs a resumable upload of r (size bytes, declared
	// mimeType) as the content of objId.
	Upload(ctx context.Context, objId id.Id, r io.Reader, size int64, mimeType string) error
	// UpdateMetadata pushes a metadata delta and returns the resulting
	// metadata as confirmed by the remote.
	UpdateMetadata(ctx context.Context, objId id.Id, delta MetadataDelta) (*Metadata, error)
	// GetStartPageToken returns a token representing "now" in the change
	// feed, to be passed to the first ChangesSince call.
	GetStartPageToken(ctx context.Context) (string, error)
	// ChangesSince returns the next page of changes after token.
	ChangesSince(ctx context.Context, token string) (*ChangesPage, error)
}
