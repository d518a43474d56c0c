// Package provider implements the single-tasked coordinator that owns
// the authoritative entry table, the parent/child graph, the file
// handle table, the local cache directories, and the queue of
// in-flight remote operations (spec.md §2 File Provider). Every method
// on Provider that touches this state is only ever called from the one
// goroutine running Run; callers reach it exclusively by submitting a
// Request and blocking on its reply channel.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/OMGeeky/drive-syncer/cache"
	"github.com/OMGeeky/drive-syncer/entry"
	"github.com/OMGeeky/drive-syncer/handle"
	"github.com/OMGeeky/drive-syncer/id"
	"github.com/OMGeeky/drive-syncer/providererr"
	"github.com/OMGeeky/drive-syncer/remote"
)

// Config bundles the tunables spec.md §6 leaves to the implementer.
type Config struct {
	DebounceWindow   time.Duration
	ChangePollWindow time.Duration
	MetadataTTL      time.Duration
	FileParentID     id.Id
	Uid, Gid         uint32
}

// Provider is the coordinator. All exported request-submission methods
// are safe to call from any goroutine; everything else is private and
// runs exclusively inside Run's goroutine.
type Provider struct {
	remote remote.Client
	cache  *cache.Store
	cfg    Config

	resolver id.Resolver

	entries map[id.Id]*entry.Entry
	graph   *entry.Graph
	handles *handle.Table

	requests chan Request

	pageToken string

	scheduler *scheduler

	// downloads tracks in-flight content downloads by id, so a second
	// read/write against an id already downloading joins the same
	// background fetch instead of starting a redundant one. Background
	// download goroutines never touch this map, or any other provider
	// state, directly — they only report through downloadCompletions;
	// finishDownload, reached solely through Run's select, is what
	// drains waiters and mutates entries.
	downloads           map[id.Id]*downloadJob
	downloadCompletions chan downloadResult
}

// New constructs a Provider. Call Init before Run to perform the
// initial full listing and resolve the root id.
func New(rc remote.Client, store *cache.Store, cfg Config) *Provider {
	p := &Provider{
		remote:              rc,
		cache:               store,
		cfg:                 cfg,
		entries:             make(map[id.Id]*entry.Entry),
		graph:               entry.NewGraph(),
		handles:             handle.NewTable(),
		requests:            make(chan Request, 16),
		downloads:           make(map[id.Id]*downloadJob),
		downloadCompletions: make(chan downloadResult, 16),
	}
	p.scheduler = newScheduler(cfg.DebounceWindow, p.performUpload)
	return p
}

// Init resolves the root sentinel and performs the first full listing,
// populating the entry table and graph before Run starts serving
// requests.
func (p *Provider) Init(ctx context.Context) error {
	rootId, err := p.remote.RootId(ctx)
	if err != nil {
		return fmt.Errorf("resolving root id: %w", err)
	}
	p.resolver = id.NewResolver(rootId)

	token, err := p.remote.GetStartPageToken(ctx)
	if err != nil {
		return fmt.Errorf("getting initial change page token: %w", err)
	}
	p.pageToken = token

	all, err := p.remote.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing remote objects: %w", err)
	}
	for _, m := range all {
		p.ingest(m)
	}
	glog.Infof("provider: initial listing loaded %d entries", len(p.entries))
	return nil
}

// RootId returns the real remote id "root" resolves to, for the
// adapter's inode 1 binding.
func (p *Provider) RootId() id.Id { return p.resolver.AltRootId() }

// Submit hands req to the provider task and is safe to call
// concurrently from any adapter goroutine.
func (p *Provider) Submit(req Request) { p.requests <- req }

// Run serves requests, change-feed polls, and upload completions until
// ctx is canceled.
func (p *Provider) Run(ctx context.Context) {
	pollTicker := time.NewTicker(p.cfg.ChangePollWindow)
	defer pollTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-p.requests:
			req.execute(p)
		case <-pollTicker.C:
			if err := p.pollChanges(ctx); err != nil {
				glog.Warningf("provider: change poll failed: %v", err)
			}
		case done := <-p.scheduler.completions:
			p.finishUpload(done)
		case res := <-p.downloadCompletions:
			p.finishDownload(res)
		}
	}
}

// ingest creates or refreshes the entry for m and attaches it to the
// graph. A remote report of zero parents is attached to the resolved
// root, matching spec.md §2's "every object is reachable from root."
func (p *Provider) ingest(m remote.Metadata) *entry.Entry {
	objId := p.resolver.Resolve(m.Id)
	e, ok := p.entries[objId]
	if !ok {
		if m.Kind == entry.Directory {
			e = entry.NewDirectory(objId, m.Name)
		} else {
			e = entry.NewFile(objId, m.Name)
		}
		p.entries[objId] = e
	}
	e.Name = m.Name
	e.Kind = m.Kind
	e.Size = m.Size
	e.UpstreamMD5 = m.Md5
	e.Mtime = m.ModifiedTime
	e.Ctime = m.ModifiedTime
	if e.Crtime.IsZero() {
		e.Crtime = m.CreatedTime
	}

	parents := m.Parents
	if len(parents) == 0 {
		parents = []id.Id{p.resolver.AltRootId()}
	}
	for _, existing := range p.graph.Parents(objId) {
		found := false
		for _, want := range parents {
			if p.resolver.Resolve(want) == existing {
				found = true
				break
			}
		}
		if !found {
			p.graph.Unlink(existing, objId)
		}
	}
	for _, parent := range parents {
		p.graph.Link(p.resolver.Resolve(parent), objId)
	}
	return e
}

// remove detaches id from the graph, drops its entry, and releases any
// cache file held for it.
func (p *Provider) remove(objId id.Id) {
	p.graph.Detach(objId)
	delete(p.entries, objId)
	p.cache.Forget(objId)
}

// toAttr copies the caller-visible subset of an entry.Entry.
func (p *Provider) toAttr(e *entry.Entry) Attr {
	return Attr{
		Id:     e.Id,
		Dir:    e.Kind == entry.Directory,
		Size:   e.Size,
		Perm:   e.Perm,
		Uid:    p.cfg.Uid,
		Gid:    p.cfg.Gid,
		Atime:  e.Atime,
		Mtime:  e.Mtime,
		Ctime:  e.Ctime,
		Crtime: e.Crtime,
	}
}

func (p *Provider) lookupEntry(objId id.Id) (*entry.Entry, error) {
	objId = p.resolver.Resolve(objId)
	e, ok := p.entries[objId]
	if !ok {
		return nil, providererr.ErrNotFound
	}
	return e, nil
}
