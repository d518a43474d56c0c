// Package entry holds the File Provider's authoritative per-object record
// (Entry), the parent/child graph those records live in, and the
// three-way checksum comparison used to classify conflicts during change
// integration.
package entry

import (
	"os"
	"time"

	"github.com/OMGeeky/drive-syncer/id"
)

// Kind distinguishes a Drive folder from a regular file. Cloud-native app
// documents (Google Docs, Sheets, etc.) are filtered out at ingest and
// never become an Entry; see remote.IsNativeAppMimeType.
type Kind int

const (
	RegularFile Kind = iota
	Directory
)

func (k Kind) String() string {
	if k == Directory {
		return "directory"
	}
	return "file"
}

// DirPerm and FilePerm are the default permissions synthesized for
// directories and regular files, per spec.md §3. Setattr can override
// them on a per-Entry basis afterward.
const (
	DirPerm  os.FileMode = 0755
	FilePerm os.FileMode = 0644
)

// PendingMetadata is a staged metadata diff. The Rename handler stages
// it before pushing the change to the remote and clears it once the
// remote confirms; a diff left staged by a failed push is not sent again
// by a later upload.
type PendingMetadata struct {
	Name    string  // empty means "no rename staged"
	Parents []id.Id // nil means "no reparent staged"
}

// Staged reports whether there is anything to push upstream.
func (p PendingMetadata) Staged() bool {
	return p.Name != "" || p.Parents != nil
}

// OriginalMetadata records the name and parent an entry had before its
// most recent Rename. Nothing reads it back: Rename builds its parent
// add/remove delta directly from the request's old and new parent.
type OriginalMetadata struct {
	Name    string
	Parents []id.Id
}

// Entry is the provider's authoritative record for one remote object. It
// is never indexed by id.Sentinel; every provider entry point resolves
// that alias to the real root id before touching the entry table.
type Entry struct {
	Id   id.Id
	Name string
	Kind Kind

	Size  uint64
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
	Crtime time.Time

	Perm os.FileMode
	Uid  uint32
	Gid  uint32

	// UpstreamMD5 is the last checksum the remote reported for this
	// object's content. Empty means absent (e.g. directories, or a file
	// whose metadata hasn't been fetched with a checksum yet).
	UpstreamMD5 string
	// LocalMD5 is the checksum of the local cache copy. Recomputed after
	// every successful write+sync, cleared when the local file is
	// deleted.
	LocalMD5 string

	// HasUpstreamContentChanges is carried on the entry, but no code path
	// sets or reads it. When a change-feed event reports a new md5 for an
	// untouched cache copy, change integration clears IsLocal and drops
	// the cache file instead.
	HasUpstreamContentChanges bool
	// IsLocal is true once a cache file exists for this entry.
	IsLocal bool
	// Perma pins this entry's cache file to the persistent cache
	// directory instead of the ephemeral one.
	Perma bool
	// Conflict is set when change integration finds the remote, local,
	// and cache checksums all disagree. Cleared only by the out-of-scope
	// manual-resolution flow; until then, reads, writes and size changes
	// against this entry fail with EIO.
	Conflict bool

	PendingMetadata  PendingMetadata
	OriginalMetadata OriginalMetadata
}

// NewDirectory returns a zero-value directory Entry with policy defaults.
func NewDirectory(i id.Id, name string) *Entry {
	now := time.Now()
	return &Entry{
		Id: i, Name: name, Kind: Directory,
		Perm: DirPerm, Atime: now, Mtime: now, Ctime: now, Crtime: now,
	}
}

// NewFile returns a zero-value regular-file Entry with policy defaults.
func NewFile(i id.Id, name string) *Entry {
	now := time.Now()
	return &Entry{
		Id: i, Name: name, Kind: RegularFile,
		Perm: FilePerm, Atime: now, Mtime: now, Ctime: now, Crtime: now,
	}
}

// Touch advances Mtime and Atime to now, used after every successful
// write.
func (e *Entry) Touch() {
	now := time.Now()
	e.Mtime = now
	e.Atime = now
}

// GrowTo advances Size to the larger of its current value and newSize,
// matching spec.md's "monotonic max of current size and offset+len" rule
// for in-progress writes.
func (e *Entry) GrowTo(newSize uint64) {
	if newSize > e.Size {
		e.Size = newSize
	}
}
