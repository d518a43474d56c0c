package provider

import (
	"context"
	"os"

	"github.com/golang/glog"

	"github.com/OMGeeky/drive-syncer/id"
)

// scheduleUpload snapshots the entry backing objId and hands it to the
// debounce scheduler. Must only be called from the provider task.
func (p *Provider) scheduleUpload(objId id.Id) {
	e, ok := p.entries[objId]
	if !ok {
		return
	}
	path, err := p.cache.Path(objId, e.Perma)
	if err != nil {
		glog.Warningf("provider: cannot schedule upload for %s: %v", objId, err)
		return
	}
	p.scheduler.Schedule(objId, uploadSnapshot{path: path, mimeType: "application/octet-stream"})
}

// performUpload does the actual remote I/O for objId. It runs on a
// scheduler-owned goroutine, not the provider task, so snap must carry
// everything it needs — it must never touch p.entries/p.graph/p.handles.
func (p *Provider) performUpload(objId id.Id, snap uploadSnapshot) uploadOutcome {
	f, err := os.Open(snap.path)
	if err != nil {
		return uploadOutcome{Id: objId, Err: err}
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return uploadOutcome{Id: objId, Err: err}
	}

	ctx := context.Background()
	if err := p.remote.Upload(ctx, objId, f, stat.Size(), snap.mimeType); err != nil {
		return uploadOutcome{Id: objId, Err: err}
	}
	meta, err := p.remote.GetMetadata(ctx, objId)
	return uploadOutcome{Id: objId, Meta: meta, Err: err}
}

// finishUpload applies a completed (or failed) upload's result to the
// authoritative entry. It runs on the provider task, reached only
// through Run's select on scheduler.completions.
func (p *Provider) finishUpload(outcome uploadOutcome) {
	e, ok := p.entries[outcome.Id]
	if !ok {
		return
	}
	if outcome.Err != nil {
		glog.Warningf("provider: upload of %s failed: %v", outcome.Id, outcome.Err)
		return
	}
	if outcome.Meta == nil {
		return
	}
	e.UpstreamMD5 = outcome.Meta.Md5
	e.LocalMD5 = outcome.Meta.Md5
	e.Size = outcome.Meta.Size
	e.Mtime = outcome.Meta.ModifiedTime
}
