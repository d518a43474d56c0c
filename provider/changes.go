package provider

import (
	"context"

	"github.com/golang/glog"

	"github.com/OMGeeky/drive-syncer/entry"
	"github.com/OMGeeky/drive-syncer/remote"
)

// pollChanges drains every page the remote currently has for pageToken
// and advances it, folding each change into the entry table and graph.
func (p *Provider) pollChanges(ctx context.Context) error {
	for {
		page, err := p.remote.ChangesSince(ctx, p.pageToken)
		if err != nil {
			return err
		}
		for _, c := range page.Changes {
			p.applyChange(c)
		}
		if page.NextPageToken != "" {
			p.pageToken = page.NextPageToken
			continue
		}
		if page.NewStartPageToken != "" {
			p.pageToken = page.NewStartPageToken
		}
		return nil
	}
}

func (p *Provider) applyChange(c remote.Change) {
	switch c.Kind {
	case remote.Removed:
		p.remove(p.resolver.Resolve(c.Id))
	case remote.FileChanged:
		p.applyFileChange(c)
	case remote.DriveChanged:
		glog.V(2).Infof("provider: ignoring drive-level change for %s", c.Id)
	default:
		// A change kind this implementation doesn't recognize (including
		// native-app documents, which the remote client reports as
		// UnknownChangeKind) is logged and dropped.
		glog.V(2).Infof("provider: ignoring unrecognized change kind for id %s", c.Id)
	}
}

// applyFileChange integrates one FileChanged record, classifying the
// three-way checksum comparison before trusting the remote's content
// pointer (spec.md §4.2).
func (p *Provider) applyFileChange(c remote.Change) {
	if c.Meta == nil {
		return
	}
	objId := p.resolver.Resolve(c.Meta.Id)
	if c.Meta.Trashed {
		p.remove(objId)
		return
	}

	existing, existed := p.entries[objId]
	if !existed {
		// An id not already in the entry table did not come from the
		// initial listing or a prior change; per the decision recorded
		// in SPEC_FULL.md §9, such ids are logged and dropped rather
		// than synthesized into a new Entry.
		glog.V(2).Infof("provider: ignoring change for untracked id %s", objId)
		return
	}

	class := entry.Classify(c.Meta.Md5, existing.UpstreamMD5, existing.LocalMD5)
	e := p.ingest(*c.Meta)
	switch class {
	case entry.RemoteMismatch, entry.Missing:
		// The remote moved on from under a cache copy nothing local
		// touched; drop it so the next open re-downloads.
		e.LocalMD5 = ""
		e.IsLocal = false
		p.cache.Forget(objId)
	case entry.Conflict:
		e.Conflict = true
		glog.Warningf("provider: conflict integrating change for %s", objId)
	}
}
