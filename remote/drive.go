package remote

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/jpillora/backoff"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/OMGeeky/drive-syncer/id"
)

const listFields = "nextPageToken, files(id, name, mimeType, size, md5Checksum, parents, modifiedTime, createdTime, trashed)"
const fileFields = "id, name, mimeType, size, md5Checksum, parents, modifiedTime, createdTime, trashed"

// Drive implements Client against the real Google Drive v3 API. It holds
// no authentication state of its own; the *gdrive.Service it wraps is
// constructed from an already-authenticated http.Client (see
// NewOAuthHTTPClient in oauth.go) — token acquisition and persistence
// are out of scope for this package.
type Drive struct {
	service *gdrive.Service

	// maxRetries bounds the backoff loop around transient transport
	// errors on Download, in the style of cmd/throw's retry loop
	// in the teacher repository.
	maxRetries int
}

// NewDrive wraps an already-constructed Drive v3 service.
func NewDrive(service *gdrive.Service) *Drive {
	return &Drive{service: service, maxRetries: 5}
}

// RootId fetches the real remote id of the Drive root folder.
func (d *Drive) RootId(ctx context.Context) (id.Id, error) {
	f, err := d.service.Files.Get("root").Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("fetching root metadata: %w", err)
	}
	return id.Id(f.Id), nil
}

// ListAll lists every non-trashed object owned by the authenticated
// user, paginating until exhausted, and drops cloud-native app documents
// (spec.md §6).
func (d *Drive) ListAll(ctx context.Context) ([]Metadata, error) {
	var out []Metadata
	pageToken := ""
	for {
		req := d.service.Files.List().
			Q("trashed = false and 'me' in owners").
			Fields(googleapi.Field(listFields)).
			PageSize(1000).
			Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}
		resp, err := req.Do()
		if err != nil {
			glog.Errorf("Files.List: %v", err)
			return nil, fmt.Errorf("listing files: %w", err)
		}
		for _, f := range resp.Files {
			if IsNativeAppMimeType(f.MimeType) {
				continue
			}
			out = append(out, toMetadata(f))
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return out, nil
}

// GetMetadata fetches a single object's metadata.
func (d *Drive) GetMetadata(ctx context.Context, objId id.Id) (*Metadata, error) {
	f, err := d.service.Files.Get(string(objId)).Fields(googleapi.Field(fileFields)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("getting metadata for %s: %w", objId, err)
	}
	m := toMetadata(f)
	return &m, nil
}

// Download streams objId's content into w, retrying transient transport
// failures with backoff.
func (d *Drive) Download(ctx context.Context, objId id.Id, w io.Writer) error {
	b := &backoff.Backoff{Factor: 2, Jitter: true}
	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(b.Duration())
		}
		resp, err := d.service.Files.Get(string(objId)).Context(ctx).Download()
		if err != nil {
			lastErr = fmt.Errorf("downloading %s: %w", objId, err)
			glog.Warningf("download attempt %d for %s failed: %v", attempt, objId, err)
			continue
		}
		_, copyErr := io.Copy(w, resp.Body)
		resp.Body.Close()
		if copyErr != nil {
			lastErr = fmt.Errorf("reading download stream for %s: %w", objId, copyErr)
			continue
		}
		b.Reset()
		return nil
	}
	return lastErr
}

// Upload performs a resumable upload of r as objId's new content.
func (d *Drive) Upload(ctx context.Context, objId id.Id, r io.Reader, size int64, mimeType string) error {
	f := &gdrive.File{}
	opts := []googleapi.MediaOption{googleapi.ContentType(mimeType)}
	if size >= 0 {
		opts = append(opts, googleapi.ChunkSize(googleapi.DefaultUploadChunkSize))
	}
	_, err := d.service.Files.Update(string(objId), f).Media(r, opts...).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("uploading content for %s: %w", objId, err)
	}
	return nil
}

// UpdateMetadata pushes a metadata delta (a staged rename and/or
// explicit parent add/remove) and returns the confirmed result.
//
// Per spec.md §4.2 Upload preparation, only the name is ever set on the
// pushed gdrive.File; mime type, size, timestamps, trashed fields, the
// md5 checksum, and kind are never sent, so the remote keeps its own.
// Parent changes always go through AddParents/RemoveParents, never a
// wholesale rewrite of the parents field.
func (d *Drive) UpdateMetadata(ctx context.Context, objId id.Id, delta MetadataDelta) (*Metadata, error) {
	f := &gdrive.File{}
	if delta.Name != "" {
		f.Name = delta.Name
	}
	call := d.service.Files.Update(string(objId), f).Fields(googleapi.Field(fileFields)).Context(ctx)
	if len(delta.AddParents) > 0 {
		call = call.AddParents(joinIds(delta.AddParents))
	}
	if len(delta.RemoveParents) > 0 {
		call = call.RemoveParents(joinIds(delta.RemoveParents))
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("updating metadata for %s: %w", objId, err)
	}
	m := toMetadata(resp)
	return &m, nil
}

// GetStartPageToken returns the change-feed token representing "now".
func (d *Drive) GetStartPageToken(ctx context.Context) (string, error) {
	resp, err := d.service.Changes.GetStartPageToken().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("getting start page token: %w", err)
	}
	return resp.StartPageToken, nil
}

// ChangesSince fetches the next page of changes after token.
func (d *Drive) ChangesSince(ctx context.Context, token string) (*ChangesPage, error) {
	resp, err := d.service.Changes.List(token).
		Fields(googleapi.Field("nextPageToken, newStartPageToken, changes(fileId, removed, time, changeType, file(id, name, mimeType, size, md5Checksum, parents, modifiedTime, createdTime, trashed))")).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing changes since %q: %w", token, err)
	}
	page := &ChangesPage{
		NextPageToken:     resp.NextPageToken,
		NewStartPageToken: resp.NewStartPageToken,
	}
	for _, c := range resp.Changes {
		page.Changes = append(page.Changes, toChange(c))
	}
	return page, nil
}

func toChange(c *gdrive.Change) Change {
	ch := Change{Id: id.Id(c.FileId)}
	if t, err := time.Parse(time.RFC3339, c.Time); err == nil {
		ch.Time = t
	}
	switch {
	case c.Removed:
		ch.Kind = Removed
	case c.ChangeType == "file" && c.File != nil:
		if IsNativeAppMimeType(c.File.MimeType) {
			ch.Kind = UnknownChangeKind
			return ch
		}
		m := toMetadata(c.File)
		ch.Kind = FileChanged
		ch.Meta = &m
	case c.ChangeType == "drive":
		ch.Kind = DriveChanged
	default:
		ch.Kind = UnknownChangeKind
	}
	return ch
}

func toMetadata(f *gdrive.File) Metadata {
	m := Metadata{
		Id:       id.Id(f.Id),
		Name:     f.Name,
		Kind:     KindForMimeType(f.MimeType),
		Size:     uint64(f.Size),
		Md5:      f.Md5Checksum,
		Trashed:  f.Trashed,
		MimeType: f.MimeType,
	}
	for _, p := range f.Parents {
		m.Parents = append(m.Parents, id.Id(p))
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		m.ModifiedTime = t
	}
	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		m.CreatedTime = t
	}
	return m
}

func joinIds(ids []id.Id) string {
	out := ""
	for i, v := range ids {
		if i > 0 {
			out += ","
		}
		out += string(v)
	}
	return out
}
