package provider

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/OMGeeky/drive-syncer/entry"
	"github.com/OMGeeky/drive-syncer/handle"
	"github.com/OMGeeky/drive-syncer/id"
	"github.com/OMGeeky/drive-syncer/providererr"
	"github.com/OMGeeky/drive-syncer/remote"
)

// lookup resolves name under parent, ASCII case-insensitive with
// first-match-wins among the parent's recorded children.
func (p *Provider) lookup(parent id.Id, name string) LookupResult {
	parent = p.resolver.Resolve(parent)
	if _, ok := p.entries[parent]; !ok && parent != p.resolver.AltRootId() {
		return LookupResult{Err: providererr.ErrNotFound}
	}
	for _, childId := range p.graph.Children(parent) {
		child, ok := p.entries[childId]
		if !ok {
			continue
		}
		if strings.EqualFold(child.Name, name) {
			return LookupResult{Attr: p.toAttr(child)}
		}
	}
	return LookupResult{Err: providererr.ErrNotFound}
}

func (p *Provider) getAttr(objId id.Id) GetAttrResult {
	e, err := p.lookupEntry(objId)
	if err != nil {
		return GetAttrResult{Err: err}
	}
	return GetAttrResult{Attr: p.toAttr(e)}
}

func (p *Provider) setAttr(objId id.Id, changes SetAttrChanges) SetAttrResult {
	e, err := p.lookupEntry(objId)
	if err != nil {
		return SetAttrResult{Err: err}
	}
	if changes.Mode != nil {
		e.Perm = *changes.Mode
	}
	if changes.Atime != nil {
		e.Atime = *changes.Atime
	}
	if changes.Mtime != nil {
		e.Mtime = *changes.Mtime
	}
	if changes.Size != nil {
		if e.Conflict {
			return SetAttrResult{Err: providererr.ErrIO}
		}
		if err := p.truncate(e, *changes.Size); err != nil {
			return SetAttrResult{Err: providererr.ErrIO}
		}
	}
	return SetAttrResult{Attr: p.toAttr(e)}
}

func (p *Provider) truncate(e *entry.Entry, size uint64) error {
	path, err := p.cache.Path(e.Id, e.Perma)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, entry.FilePerm)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Truncate(int64(size)); err != nil {
		return err
	}
	e.Size = size
	e.IsLocal = true
	p.scheduleUpload(e.Id)
	return nil
}

// open allocates a file handle. The underlying cache file is opened (or
// downloaded) lazily on first Read or Write, not here.
func (p *Provider) open(objId id.Id, rawFlags uint32) OpenResult {
	e, err := p.lookupEntry(objId)
	if err != nil {
		return OpenResult{Err: err}
	}
	path, err := p.cache.Path(e.Id, e.Perma)
	if err != nil {
		return OpenResult{Err: providererr.ErrInvalid}
	}
	h := &handle.Handle{Id: e.Id, Flags: handle.ParseFlags(rawFlags), Path: path}
	fh := p.handles.Alloc(h)
	return OpenResult{Fh: fh}
}

// ensureOpen lazily downloads (if absent) and opens the cache file
// backing h, per spec.md §2's "lazy download on first open." A download
// it needs to start or join runs on its own goroutine (see
// provider/download.go); cont is invoked later, from the provider task,
// once the cache file is ready to read or write — never inline when a
// download is in flight, so Run's select loop keeps servicing other
// requests in the meantime.
func (p *Provider) ensureOpen(h *handle.Handle, cont func(error)) {
	if h.File != nil {
		cont(nil)
		return
	}
	if _, err := os.Stat(h.Path); err != nil {
		if !os.IsNotExist(err) {
			cont(err)
			return
		}
		e := p.entries[h.Id]
		if e != nil && e.UpstreamMD5 != "" {
			p.startDownload(h.Id, h.Path, func(dlErr error) {
				if dlErr != nil {
					cont(dlErr)
					return
				}
				p.openCacheFile(h, cont)
			})
			return
		}
		f, err := os.OpenFile(h.Path, os.O_RDWR|os.O_CREATE, entry.FilePerm)
		if err != nil {
			cont(err)
			return
		}
		f.Close()
	}
	p.openCacheFile(h, cont)
}

// openCacheFile opens h.Path (already known to exist, with fresh
// content if a download was required) and reserves its ephemeral cache
// budget.
func (p *Provider) openCacheFile(h *handle.Handle, cont func(error)) {
	f, err := os.OpenFile(h.Path, os.O_RDWR, entry.FilePerm)
	if err != nil {
		cont(err)
		return
	}
	h.File = f
	if e := p.entries[h.Id]; e != nil && !e.Perma {
		p.cache.Reserve(h.Id, e.Size)
	}
	cont(nil)
}

func (p *Provider) read(fh uint64, offset int64, size int, cont func(ReadResult)) {
	h, err := p.handles.Get(fh)
	if err != nil {
		cont(ReadResult{Err: providererr.ErrIO})
		return
	}
	if !h.Flags.CanRead() {
		cont(ReadResult{Err: providererr.ErrInvalid})
		return
	}
	if e := p.entries[h.Id]; e != nil && e.Conflict {
		cont(ReadResult{Err: providererr.ErrIO})
		return
	}
	p.ensureOpen(h, func(err error) {
		if err != nil {
			cont(ReadResult{Err: providererr.ErrIO})
			return
		}
		buf := make([]byte, size)
		n, err := h.File.ReadAt(buf, offset)
		if err != nil && err != io.EOF {
			cont(ReadResult{Err: providererr.ErrIO})
			return
		}
		if e := p.entries[h.Id]; e != nil {
			e.Atime = time.Now()
		}
		cont(ReadResult{Data: buf[:n]})
	})
}

func (p *Provider) write(fh uint64, offset int64, data []byte, cont func(WriteResult)) {
	h, err := p.handles.Get(fh)
	if err != nil {
		cont(WriteResult{Err: providererr.ErrIO})
		return
	}
	if !h.Flags.CanWrite() {
		cont(WriteResult{Err: providererr.ErrInvalid})
		return
	}
	if e := p.entries[h.Id]; e != nil && e.Conflict {
		cont(WriteResult{Err: providererr.ErrIO})
		return
	}
	p.ensureOpen(h, func(err error) {
		if err != nil {
			cont(WriteResult{Err: providererr.ErrIO})
			return
		}
		n, err := h.File.WriteAt(data, offset)
		if err != nil {
			cont(WriteResult{Err: providererr.ErrIO})
			return
		}
		if err := h.File.Sync(); err != nil {
			cont(WriteResult{Err: providererr.ErrIO})
			return
		}
		h.Dirty = true
		if e := p.entries[h.Id]; e != nil {
			e.GrowTo(uint64(offset) + uint64(n))
			e.Touch()
			e.IsLocal = true
			sum := md5.New()
			if _, err := io.Copy(sum, io.NewSectionReader(h.File, 0, math.MaxInt64)); err == nil {
				e.LocalMD5 = hex.EncodeToString(sum.Sum(nil))
			}
		}
		cont(WriteResult{N: n})
	})
}

func (p *Provider) release(fh uint64) ReleaseResult {
	h, err := p.handles.Get(fh)
	if err != nil {
		return ReleaseResult{Err: providererr.ErrIO}
	}
	dirty := h.Dirty
	objId := h.Id
	p.handles.Remove(fh)
	if dirty {
		p.scheduleUpload(objId)
	}
	return ReleaseResult{}
}

func (p *Provider) readDir(objId id.Id) ReadDirResult {
	objId = p.resolver.Resolve(objId)
	parent, ok := p.entries[objId]
	if objId != p.resolver.AltRootId() {
		if !ok {
			return ReadDirResult{Err: providererr.ErrNotFound}
		}
		if parent.Kind != entry.Directory {
			return ReadDirResult{Err: providererr.ErrNotDir}
		}
	}
	var out []DirEntry
	for _, childId := range p.graph.Children(objId) {
		child, ok := p.entries[childId]
		if !ok {
			continue
		}
		out = append(out, DirEntry{Id: childId, Name: child.Name, Dir: child.Kind == entry.Directory})
	}
	return ReadDirResult{Entries: out}
}

func (p *Provider) rename(oldParent id.Id, oldName string, newParent id.Id, newName string) RenameResult {
	oldParent = p.resolver.Resolve(oldParent)
	newParent = p.resolver.Resolve(newParent)

	var target *entry.Entry
	for _, childId := range p.graph.Children(oldParent) {
		if c, ok := p.entries[childId]; ok && strings.EqualFold(c.Name, oldName) {
			target = c
			break
		}
	}
	if target == nil {
		return RenameResult{Err: providererr.ErrNotFound}
	}
	for _, childId := range p.graph.Children(newParent) {
		if c, ok := p.entries[childId]; ok && strings.EqualFold(c.Name, newName) && c.Id != target.Id {
			return RenameResult{Err: providererr.ErrExists}
		}
	}

	if oldParent != newParent {
		p.graph.Unlink(oldParent, target.Id)
		p.graph.Link(newParent, target.Id)
	}
	target.Name = newName
	target.PendingMetadata = entry.PendingMetadata{Name: newName, Parents: []id.Id{newParent}}
	target.OriginalMetadata = entry.OriginalMetadata{Name: oldName, Parents: []id.Id{oldParent}}

	ctx := context.Background()
	delta := remote.MetadataDelta{Name: newName}
	if oldParent != newParent {
		delta.AddParents = []id.Id{newParent}
		delta.RemoveParents = []id.Id{oldParent}
	}
	if _, err := p.remote.UpdateMetadata(ctx, target.Id, delta); err != nil {
		glog.Warningf("provider: rename metadata push for %s failed: %v", target.Id, err)
		return RenameResult{Err: providererr.ErrRemoteIO}
	}
	target.PendingMetadata = entry.PendingMetadata{}
	return RenameResult{}
}

func (p *Provider) statfs() StatfsResult {
	return StatfsResult{NumEntries: uint64(len(p.entries))}
}
