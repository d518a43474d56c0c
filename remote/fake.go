package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/OMGeeky/drive-syncer/entry"
	"github.com/OMGeeky/drive-syncer/id"
)

// Fake is an in-memory Client, for exercising the provider package
// without a real Drive v3 service. It is kept here, rather than under
// a _test.go file, so other packages' tests can import and drive it
// directly — the same role the teacher repo's per-backend test helpers
// play for drive.Client implementations.
type Fake struct {
	mu sync.Mutex

	root    id.Id
	objects map[id.Id]*Metadata
	content map[id.Id][]byte

	startPageToken int
	pending        []Change

	// DownloadDelay, if set, is waited out at the start of every
	// Download call, for tests exercising behavior around a slow
	// remote fetch.
	DownloadDelay time.Duration
}

// NewFake returns a Fake with a single root folder.
func NewFake() *Fake {
	root := id.Id("fakeRoot")
	f := &Fake{
		root:    root,
		objects: map[id.Id]*Metadata{},
		content: map[id.Id][]byte{},
	}
	f.objects[root] = &Metadata{Id: root, Kind: entry.Directory, MimeType: folderMimeType, ModifiedTime: time.Unix(0, 0), CreatedTime: time.Unix(0, 0)}
	return f
}

// AddObject seeds m (and, for files, its content) directly into the
// fake store, bypassing the change feed.
func (f *Fake) AddObject(m Metadata, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := m
	f.objects[m.Id] = &cp
	if content != nil {
		f.content[m.Id] = append([]byte(nil), content...)
	}
}

// PushChange enqueues a change-feed record a subsequent ChangesSince
// call will surface, and advances the fake's start page token.
func (f *Fake) PushChange(c Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startPageToken++
	f.pending = append(f.pending, c)
}

func (f *Fake) RootId(ctx context.Context) (id.Id, error) {
	return f.root, nil
}

func (f *Fake) ListAll(ctx context.Context) ([]Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Metadata
	for _, m := range f.objects {
		if m.Id == f.root || m.Trashed {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (f *Fake) GetMetadata(ctx context.Context, objId id.Id) (*Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.objects[objId]
	if !ok {
		return nil, fmt.Errorf("fake: no such object %s", objId)
	}
	cp := *m
	return &cp, nil
}

func (f *Fake) Download(ctx context.Context, objId id.Id, w io.Writer) error {
	if f.DownloadDelay > 0 {
		time.Sleep(f.DownloadDelay)
	}
	f.mu.Lock()
	content, ok := f.content[objId]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("fake: no content for %s", objId)
	}
	_, err := io.Copy(w, bytes.NewReader(content))
	return err
}

func (f *Fake) Upload(ctx context.Context, objId id.Id, r io.Reader, size int64, mimeType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[objId] = data
	if m, ok := f.objects[objId]; ok {
		m.Size = uint64(len(data))
		m.ModifiedTime = time.Unix(int64(len(f.pending)+1), 0)
	}
	return nil
}

func (f *Fake) UpdateMetadata(ctx context.Context, objId id.Id, delta MetadataDelta) (*Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.objects[objId]
	if !ok {
		return nil, fmt.Errorf("fake: no such object %s", objId)
	}
	if delta.Name != "" {
		m.Name = delta.Name
	}
	for _, add := range delta.AddParents {
		m.Parents = append(m.Parents, add)
	}
	for _, rm := range delta.RemoveParents {
		m.Parents = removeId(m.Parents, rm)
	}
	cp := *m
	return &cp, nil
}

func (f *Fake) GetStartPageToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("%d", f.startPageToken), nil
}

func (f *Fake) ChangesSince(ctx context.Context, token string) (*ChangesPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	changes := f.pending
	f.pending = nil
	return &ChangesPage{
		Changes:           changes,
		NewStartPageToken: fmt.Sprintf("%d", f.startPageToken),
	}, nil
}

func removeId(s []id.Id, v id.Id) []id.Id {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
