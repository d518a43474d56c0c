package provider

import (
	"context"
	"os"

	"github.com/golang/glog"

	"github.com/OMGeeky/drive-syncer/entry"
	"github.com/OMGeeky/drive-syncer/id"
)

// downloadJob tracks the continuations waiting on one in-flight
// download. A second read/write against the same id while a
// download is already running is folded into the same job rather than
// starting a redundant fetch.
type downloadJob struct {
	waiters []func(err error)
}

// downloadResult is what a background download goroutine reports back
// through downloadCompletions once it finishes.
type downloadResult struct {
	Id  id.Id
	Err error
}

// startDownload joins objId's in-flight download if one is already
// running, or starts one on a new goroutine otherwise. cont runs later,
// from the provider task, once the download (new or joined) completes.
// The goroutine itself only ever touches path and p.remote — never
// p.entries/p.graph/p.handles — so unrelated requests keep flowing
// through Run's select loop while the fetch is outstanding.
func (p *Provider) startDownload(objId id.Id, path string, cont func(err error)) {
	if job, ok := p.downloads[objId]; ok {
		job.waiters = append(job.waiters, cont)
		return
	}
	job := &downloadJob{waiters: []func(error){cont}}
	p.downloads[objId] = job

	go func() {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, entry.FilePerm)
		if err != nil {
			p.downloadCompletions <- downloadResult{Id: objId, Err: err}
			return
		}
		defer f.Close()
		err = p.remote.Download(context.Background(), objId, f)
		p.downloadCompletions <- downloadResult{Id: objId, Err: err}
	}()
}

// finishDownload applies a completed download's result to the
// authoritative entry and releases every waiter queued for it. Reached
// only through Run's select on downloadCompletions.
func (p *Provider) finishDownload(res downloadResult) {
	job, ok := p.downloads[res.Id]
	if !ok {
		return
	}
	delete(p.downloads, res.Id)

	if res.Err != nil {
		glog.Warningf("provider: download of %s failed: %v", res.Id, res.Err)
	} else if e, ok := p.entries[res.Id]; ok {
		e.LocalMD5 = e.UpstreamMD5
		e.IsLocal = true
	}

	for _, w := range job.waiters {
		w(res.Err)
	}
}
