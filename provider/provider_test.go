package provider

import (
	"context"
	"testing"
	"time"

	"github.com/OMGeeky/drive-syncer/cache"
	"github.com/OMGeeky/drive-syncer/entry"
	"github.com/OMGeeky/drive-syncer/id"
	"github.com/OMGeeky/drive-syncer/remote"
)

// syncRead/syncWrite drive the continuation-based read/write handlers
// from a test goroutine that isn't running Run's select loop. They only
// return once cont fires, which is immediate for every case these
// helpers are used against (no download in flight); tests that need to
// observe a download in progress drive Provider.Run directly instead
// (see TestConcurrentDownloadDoesNotBlockUnrelatedRequests).
func syncRead(p *Provider, fh uint64, offset int64, size int) ReadResult {
	out := make(chan ReadResult, 1)
	p.read(fh, offset, size, func(r ReadResult) { out <- r })
	return <-out
}

func syncWrite(p *Provider, fh uint64, offset int64, data []byte) WriteResult {
	out := make(chan WriteResult, 1)
	p.write(fh, offset, data, func(r WriteResult) { out <- r })
	return <-out
}

func newTestProvider(t *testing.T) (*Provider, *remote.Fake) {
	t.Helper()
	fake := remote.NewFake()
	store, err := cache.NewStore(t.TempDir(), t.TempDir(), 1<<30)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	p := New(fake, store, Config{
		DebounceWindow:   10 * time.Millisecond,
		ChangePollWindow: time.Hour,
		Uid:              1000,
		Gid:              1000,
	})
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return p, fake
}

func TestLookupRoundTrip(t *testing.T) {
	p, fake := newTestProvider(t)
	rootId, err := fake.RootId(context.Background())
	if err != nil {
		t.Fatalf("RootId: %v", err)
	}
	fake.AddObject(remote.Metadata{
		Id: "file1", Name: "hello.txt", Kind: entry.RegularFile,
		Parents: []id.Id{rootId},
	}, []byte("hi"))
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("re-Init: %v", err)
	}

	res := p.lookup(p.RootId(), "HELLO.TXT")
	if res.Err != nil {
		t.Fatalf("lookup: %v", res.Err)
	}
	if res.Attr.Id != "file1" {
		t.Fatalf("lookup resolved to %s, want file1", res.Attr.Id)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	p, _ := newTestProvider(t)
	e := entry.NewFile("newfile", "new.txt")
	p.entries["newfile"] = e
	p.graph.Link(p.RootId(), "newfile")

	open := p.open("newfile", 0x2) // O_RDWR
	if open.Err != nil {
		t.Fatalf("open: %v", open.Err)
	}
	w := syncWrite(p, open.Fh, 0, []byte("hello world"))
	if w.Err != nil {
		t.Fatalf("write: %v", w.Err)
	}
	if w.N != len("hello world") {
		t.Fatalf("write returned n=%d, want %d", w.N, len("hello world"))
	}

	r := syncRead(p, open.Fh, 0, 5)
	if r.Err != nil {
		t.Fatalf("read: %v", r.Err)
	}
	if string(r.Data) != "hello" {
		t.Fatalf("read got %q, want %q", r.Data, "hello")
	}

	if rel := p.release(open.Fh); rel.Err != nil {
		t.Fatalf("release: %v", rel.Err)
	}
	if e.Size != uint64(len("hello world")) {
		t.Fatalf("entry size = %d, want %d", e.Size, len("hello world"))
	}
}

func TestReadPastEOFReturnsEmpty(t *testing.T) {
	p, _ := newTestProvider(t)
	e := entry.NewFile("shortfile", "short.txt")
	p.entries["shortfile"] = e
	p.graph.Link(p.RootId(), "shortfile")

	open := p.open("shortfile", 0x2)
	syncWrite(p, open.Fh, 0, []byte("ab"))

	r := syncRead(p, open.Fh, 10, 5)
	if r.Err != nil {
		t.Fatalf("read past EOF: %v", r.Err)
	}
	if len(r.Data) != 0 {
		t.Fatalf("read past EOF returned %d bytes, want 0", len(r.Data))
	}
}

func TestWritePastEOFExtendsWithGap(t *testing.T) {
	p, _ := newTestProvider(t)
	e := entry.NewFile("gapfile", "gap.txt")
	p.entries["gapfile"] = e
	p.graph.Link(p.RootId(), "gapfile")

	open := p.open("gapfile", 0x2)
	syncWrite(p, open.Fh, 0, []byte("ab"))
	w := syncWrite(p, open.Fh, 10, []byte("cd"))
	if w.Err != nil {
		t.Fatalf("write past EOF: %v", w.Err)
	}
	if e.Size != 12 {
		t.Fatalf("entry size = %d, want 12", e.Size)
	}
}

func TestSetAttrSizeRoundTrip(t *testing.T) {
	p, _ := newTestProvider(t)
	e := entry.NewFile("truncated", "t.txt")
	p.entries["truncated"] = e
	p.graph.Link(p.RootId(), "truncated")

	size := uint64(42)
	res := p.setAttr("truncated", SetAttrChanges{Size: &size})
	if res.Err != nil {
		t.Fatalf("setAttr: %v", res.Err)
	}
	if res.Attr.Size != 42 {
		t.Fatalf("setAttr size = %d, want 42", res.Attr.Size)
	}

	got := p.getAttr("truncated")
	if got.Err != nil {
		t.Fatalf("getAttr: %v", got.Err)
	}
	if got.Attr.Size != 42 {
		t.Fatalf("getAttr size = %d, want 42", got.Attr.Size)
	}
}

func TestRenameWithinSameParentIsIdempotent(t *testing.T) {
	p, fake := newTestProvider(t)
	// rename pushes the new name to the remote, so the fake must know
	// the object too.
	fake.AddObject(remote.Metadata{
		Id: "renameme", Name: "old.txt", Kind: entry.RegularFile,
		Parents: []id.Id{p.RootId()},
	}, nil)
	e := entry.NewFile("renameme", "old.txt")
	p.entries["renameme"] = e
	p.graph.Link(p.RootId(), "renameme")

	res := p.rename(p.RootId(), "old.txt", p.RootId(), "new.txt")
	if res.Err != nil {
		t.Fatalf("rename: %v", res.Err)
	}
	if e.Name != "new.txt" {
		t.Fatalf("entry name = %q, want new.txt", e.Name)
	}

	again := p.rename(p.RootId(), "new.txt", p.RootId(), "new.txt")
	if again.Err != nil {
		t.Fatalf("rename to same name: %v", again.Err)
	}
}

func TestRenameRejectsExistingDestination(t *testing.T) {
	p, _ := newTestProvider(t)
	a := entry.NewFile("a", "a.txt")
	b := entry.NewFile("b", "b.txt")
	p.entries["a"] = a
	p.entries["b"] = b
	p.graph.Link(p.RootId(), "a")
	p.graph.Link(p.RootId(), "b")

	res := p.rename(p.RootId(), "a.txt", p.RootId(), "b.txt")
	if res.Err == nil {
		t.Fatalf("rename onto existing name unexpectedly succeeded")
	}
}

func TestReadDirListsChildren(t *testing.T) {
	p, _ := newTestProvider(t)
	e := entry.NewFile("childfile", "child.txt")
	p.entries["childfile"] = e
	p.graph.Link(p.RootId(), "childfile")

	res := p.readDir(p.RootId())
	if res.Err != nil {
		t.Fatalf("readDir: %v", res.Err)
	}
	found := false
	for _, de := range res.Entries {
		if de.Name == "child.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("readDir did not include child.txt: %+v", res.Entries)
	}
}

func TestPollChangesTriggersRedownloadOnRemoteMismatch(t *testing.T) {
	p, fake := newTestProvider(t)
	rootId, err := fake.RootId(context.Background())
	if err != nil {
		t.Fatalf("RootId: %v", err)
	}
	fake.AddObject(remote.Metadata{
		Id: "file1", Name: "doc.txt", Kind: entry.RegularFile, Md5: "aaa",
		Parents: []id.Id{rootId},
	}, []byte("old content"))
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	e := p.entries[id.Id("file1")]
	e.LocalMD5 = e.UpstreamMD5
	e.IsLocal = true

	fake.PushChange(remote.Change{
		Id: "file1", Kind: remote.FileChanged,
		Meta: &remote.Metadata{
			Id: "file1", Name: "doc.txt", Kind: entry.RegularFile, Md5: "bbb",
			Parents: []id.Id{rootId},
		},
	})
	if err := p.pollChanges(context.Background()); err != nil {
		t.Fatalf("pollChanges: %v", err)
	}

	if e.UpstreamMD5 != "bbb" {
		t.Fatalf("UpstreamMD5 = %q, want bbb", e.UpstreamMD5)
	}
	if e.IsLocal {
		t.Fatal("entry still marked local after a remote-mismatch change")
	}
	if e.LocalMD5 != "" {
		t.Fatalf("LocalMD5 = %q, want cleared", e.LocalMD5)
	}
}

func TestPollChangesFlagsConflict(t *testing.T) {
	p, fake := newTestProvider(t)
	rootId, err := fake.RootId(context.Background())
	if err != nil {
		t.Fatalf("RootId: %v", err)
	}
	fake.AddObject(remote.Metadata{
		Id: "file1", Name: "doc.txt", Kind: entry.RegularFile, Md5: "aaa",
		Parents: []id.Id{rootId},
	}, []byte("old content"))
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	e := p.entries[id.Id("file1")]
	// A local edit is in progress: the cache copy already diverges from
	// the last-confirmed upstream checksum.
	e.LocalMD5 = "ccc"

	fake.PushChange(remote.Change{
		Id: "file1", Kind: remote.FileChanged,
		Meta: &remote.Metadata{
			Id: "file1", Name: "doc.txt", Kind: entry.RegularFile, Md5: "bbb",
			Parents: []id.Id{rootId},
		},
	})
	if err := p.pollChanges(context.Background()); err != nil {
		t.Fatalf("pollChanges: %v", err)
	}

	if !e.Conflict {
		t.Fatal("expected Conflict to be set when remote, local, and upstream checksums all disagree")
	}
}

func TestConcurrentDownloadDoesNotBlockUnrelatedRequests(t *testing.T) {
	p, fake := newTestProvider(t)
	rootId, err := fake.RootId(context.Background())
	if err != nil {
		t.Fatalf("RootId: %v", err)
	}
	fake.AddObject(remote.Metadata{
		Id: "slow", Name: "slow.bin", Kind: entry.RegularFile, Md5: "aaa",
		Parents: []id.Id{rootId},
	}, []byte("slow content"))
	fake.AddObject(remote.Metadata{
		Id: "fast", Name: "fast.txt", Kind: entry.RegularFile,
		Parents: []id.Id{rootId},
	}, nil)
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	fake.DownloadDelay = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	openReply := make(chan OpenResult, 1)
	p.Submit(&OpenRequest{Id: "slow", Flags: 0x0, Reply: openReply})
	open := <-openReply
	if open.Err != nil {
		t.Fatalf("open: %v", open.Err)
	}

	readReply := make(chan ReadResult, 1)
	p.Submit(&ReadRequest{Fh: open.Fh, Offset: 0, Size: 4, Reply: readReply})
	// Let the read start (and join) its download before racing the
	// unrelated request against it.
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	attrReply := make(chan GetAttrResult, 1)
	p.Submit(&GetAttrRequest{Id: "fast", Reply: attrReply})
	attr := <-attrReply
	elapsed := time.Since(start)
	if attr.Err != nil {
		t.Fatalf("getattr: %v", attr.Err)
	}
	if elapsed >= fake.DownloadDelay {
		t.Fatalf("unrelated getattr took %v while slow's download was in flight, want well under %v", elapsed, fake.DownloadDelay)
	}

	read := <-readReply
	if read.Err != nil {
		t.Fatalf("read: %v", read.Err)
	}
	if string(read.Data) != "slow" {
		t.Fatalf("read got %q, want %q", read.Data, "slow")
	}
}
