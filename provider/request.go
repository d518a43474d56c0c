package provider

import (
	"os"
	"time"

	"github.com/OMGeeky/drive-syncer/id"
)

// Request is sent from an adapter goroutine to the single provider task
// over a shared channel (spec.md §5 Cross-boundary transport). Each
// concrete request type carries its own capacity-1 reply channel; the
// sender blocks on it after submitting, so there is never more than one
// outstanding reply per request and no request is ever dropped.
type Request interface {
	execute(p *Provider)
}

// DirEntry is one entry returned by ReadDirRequest.
type DirEntry struct {
	Id   id.Id
	Name string
	Dir  bool
}

// Attr is the subset of entry.Entry a caller needs to build a kernel
// attribute response, copied out so the caller never touches the
// provider's authoritative *entry.Entry directly.
type Attr struct {
	Id    id.Id
	Dir   bool
	Size  uint64
	Perm  os.FileMode
	Uid   uint32
	Gid   uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
	Crtime time.Time
}

type LookupRequest struct {
	Parent id.Id
	Name   string
	Reply  chan LookupResult
}

type LookupResult struct {
	Attr Attr
	Err  error
}

func (r *LookupRequest) execute(p *Provider) { r.Reply <- p.lookup(r.Parent, r.Name) }

type GetAttrRequest struct {
	Id    id.Id
	Reply chan GetAttrResult
}

type GetAttrResult struct {
	Attr Attr
	Err  error
}

func (r *GetAttrRequest) execute(p *Provider) { r.Reply <- p.getAttr(r.Id) }

// SetAttrChanges carries only the fields the caller wants changed; a
// nil pointer means "leave as-is."
type SetAttrChanges struct {
	Size  *uint64
	Mtime *time.Time
	Atime *time.Time
	Mode  *os.FileMode
}

type SetAttrRequest struct {
	Id      id.Id
	Changes SetAttrChanges
	Reply   chan SetAttrResult
}

type SetAttrResult struct {
	Attr Attr
	Err  error
}

func (r *SetAttrRequest) execute(p *Provider) { r.Reply <- p.setAttr(r.Id, r.Changes) }

type OpenRequest struct {
	Id    id.Id
	Flags uint32
	Reply chan OpenResult
}

type OpenResult struct {
	Fh  uint64
	Err error
}

func (r *OpenRequest) execute(p *Provider) { r.Reply <- p.open(r.Id, r.Flags) }

type ReadRequest struct {
	Fh     uint64
	Offset int64
	Size   int
	Reply  chan ReadResult
}

type ReadResult struct {
	Data []byte
	Err  error
}

func (r *ReadRequest) execute(p *Provider) {
	p.read(r.Fh, r.Offset, r.Size, func(res ReadResult) { r.Reply <- res })
}

type WriteRequest struct {
	Fh     uint64
	Offset int64
	Data   []byte
	Reply  chan WriteResult
}

type WriteResult struct {
	N   int
	Err error
}

func (r *WriteRequest) execute(p *Provider) {
	p.write(r.Fh, r.Offset, r.Data, func(res WriteResult) { r.Reply <- res })
}

type ReleaseRequest struct {
	Fh    uint64
	Reply chan ReleaseResult
}

type ReleaseResult struct {
	Err error
}

func (r *ReleaseRequest) execute(p *Provider) { r.Reply <- p.release(r.Fh) }

type ReadDirRequest struct {
	Id    id.Id
	Reply chan ReadDirResult
}

type ReadDirResult struct {
	Entries []DirEntry
	Err     error
}

func (r *ReadDirRequest) execute(p *Provider) { r.Reply <- p.readDir(r.Id) }

type RenameRequest struct {
	OldParent id.Id
	OldName   string
	NewParent id.Id
	NewName   string
	Reply     chan RenameResult
}

type RenameResult struct {
	Err error
}

func (r *RenameRequest) execute(p *Provider) {
	r.Reply <- p.rename(r.OldParent, r.OldName, r.NewParent, r.NewName)
}

type StatfsRequest struct {
	Reply chan StatfsResult
}

type StatfsResult struct {
	NumEntries uint64
}

func (r *StatfsRequest) execute(p *Provider) { r.Reply <- p.statfs() }
