package remote

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/OMGeeky/drive-syncer/entry"
	"github.com/OMGeeky/drive-syncer/id"
)

var _ Client = (*Fake)(nil)

func TestFakeListAllExcludesRootAndTrashed(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	f.AddObject(Metadata{Id: id.Id("doc1"), Name: "doc1.txt", Kind: entry.RegularFile}, []byte("hello"))
	f.AddObject(Metadata{Id: id.Id("trashed1"), Name: "gone.txt", Kind: entry.RegularFile, Trashed: true}, nil)

	all, err := f.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 1 || all[0].Id != id.Id("doc1") {
		t.Fatalf("ListAll = %+v, want only doc1", all)
	}
}

func TestFakeDownloadUploadRoundTrip(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	f.AddObject(Metadata{Id: id.Id("doc1"), Name: "doc1.txt", Kind: entry.RegularFile}, nil)

	if err := f.Upload(ctx, id.Id("doc1"), bytes.NewReader([]byte("new content")), 11, "text/plain"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Download(ctx, id.Id("doc1"), &buf); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if buf.String() != "new content" {
		t.Fatalf("Download = %q, want %q", buf.String(), "new content")
	}
}

func TestFakeUpdateMetadataAppliesParentDelta(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	f.AddObject(Metadata{Id: id.Id("doc1"), Parents: []id.Id{"folderA"}}, nil)

	got, err := f.UpdateMetadata(ctx, id.Id("doc1"), MetadataDelta{
		AddParents:    []id.Id{"folderB"},
		RemoveParents: []id.Id{"folderA"},
	})
	if err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}
	if len(got.Parents) != 1 || got.Parents[0] != id.Id("folderB") {
		t.Fatalf("Parents = %v, want [folderB]", got.Parents)
	}
}

func TestFakeChangesSinceDrainsPending(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	f.PushChange(Change{Id: id.Id("doc1"), Kind: FileChanged, Time: time.Unix(1, 0)})
	f.PushChange(Change{Id: id.Id("doc2"), Kind: Removed, Time: time.Unix(2, 0)})

	page, err := f.ChangesSince(ctx, "0")
	if err != nil {
		t.Fatalf("ChangesSince: %v", err)
	}
	if len(page.Changes) != 2 {
		t.Fatalf("len(Changes) = %d, want 2", len(page.Changes))
	}

	page2, err := f.ChangesSince(ctx, page.NewStartPageToken)
	if err != nil {
		t.Fatalf("ChangesSince (second poll): %v", err)
	}
	if len(page2.Changes) != 0 {
		t.Fatalf("second ChangesSince returned %d changes, want 0", len(page2.Changes))
	}
}

func TestFakeGetMetadataUnknownId(t *testing.T) {
	f := NewFake()
	if _, err := f.GetMetadata(context.Background(), id.Id("nope")); err == nil {
		t.Fatal("GetMetadata on an unknown id did not return an error")
	}
}
