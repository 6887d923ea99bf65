package file

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhowden/tag"
	"go.uber.org/zap"

	"github.com/sparod/melo/internal/browser"
	"github.com/sparod/melo/internal/event"
	"github.com/sparod/melo/internal/filedb"
	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/internal/player"
	"github.com/sparod/melo/internal/vfs"
	"github.com/sparod/melo/pkg/tags"
)

// fileBrowser walks the virtual filesystem and decorates media entries with
// tags from the database, reading and caching file tags on demand.
type fileBrowser struct {
	browser.Unsupported

	log    *zap.Logger
	fs     vfs.FS
	db     *filedb.DB
	player *player.Player
	bus    *event.Bus
}

func newFileBrowser(log *zap.Logger, fs vfs.FS, db *filedb.DB, p *player.Player, bus *event.Bus) *fileBrowser {
	return &fileBrowser{log: log, fs: fs, db: db, player: p, bus: bus}
}

func (b *fileBrowser) ID() string { return BrowserID }

func (b *fileBrowser) Info() browser.Info {
	return browser.Info{
		Name:        "Files",
		Description: "Browse your media files",
		TagsSupport: true,
	}
}

// resolve maps a browser path like /music/sub/track.mp3 to the file URI of
// the entry.
func (b *fileBrowser) resolve(ctx context.Context, p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", jsonrpc.Errorf(jsonrpc.KindBadRequest, "path names no entry")
	}
	rootID, rest, _ := strings.Cut(p, "/")
	roots, err := b.fs.ListRoots(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range roots {
		if r.ID != rootID {
			continue
		}
		uri := r.URI
		if rest != "" {
			uri += "/" + rest
		}
		return uri, nil
	}
	return "", jsonrpc.Errorf(jsonrpc.KindNotFound, "unknown root %q", rootID)
}

func (b *fileBrowser) GetList(ctx context.Context, p string, params browser.ListParams) (*browser.List, error) {
	if strings.Trim(p, "/") == "" {
		return b.listRoots(ctx, p, params)
	}
	uri, err := b.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	entries, err := b.fs.ListDir(ctx, uri)
	if err != nil {
		return nil, err
	}

	items := make([]browser.Item, 0, len(entries))
	for _, e := range entries {
		item := browser.Item{ID: e.Name, Name: e.Name}
		if e.Type == vfs.EntryDir {
			item.Type = browser.TypeCategory
		} else {
			item.Type = browser.TypeMedia
			item.Actions = browser.CanAdd | browser.CanPlay
			if params.TagsMode.WithTags() || params.TagsMode.WithCaching() {
				t, err := b.mediaTags(ctx, e.URI, params.TagsMode, params.TagsFields)
				if err != nil {
					b.log.Debug("tags unavailable", zap.String("uri", e.URI), zap.Error(err))
				} else if params.TagsMode.WithTags() && t != nil && !t.IsEmpty() {
					item.Tags = t
				}
			}
		}
		items = append(items, item)
	}
	sortItems(items, params.Sort)
	total := len(items)
	items = page(items, params.Offset, params.Count)
	return &browser.List{Path: p, Items: items, Count: total}, nil
}

func (b *fileBrowser) listRoots(ctx context.Context, p string, params browser.ListParams) (*browser.List, error) {
	roots, err := b.fs.ListRoots(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]browser.Item, 0, len(roots))
	for _, r := range roots {
		item := browser.Item{ID: r.ID, Name: r.Name, Type: browser.TypeCategory}
		if r.Removable {
			item.Actions = browser.CanRemove
		}
		items = append(items, item)
	}
	total := len(items)
	items = page(items, params.Offset, params.Count)
	return &browser.List{Path: p, Items: items, Count: total}, nil
}

// mediaTags returns the tags of one media file, preferring the database and
// falling back to reading the file. Freshly read tags are cached when the
// mode asks for it.
func (b *fileBrowser) mediaTags(ctx context.Context, uri string, mode browser.TagsMode, fields tags.Fields) (*tags.Tags, error) {
	dir, file := splitURI(uri)
	info, err := b.fs.Probe(ctx, uri)
	if err != nil {
		return nil, err
	}
	if !info.Exists {
		return nil, jsonrpc.Errorf(jsonrpc.KindNotFound, "no such media")
	}

	cached, coverFile, err := b.db.GetTags(ctx, fields,
		filedb.Path(dir), filedb.File(file))
	if err == nil {
		if coverFile != "" && fields.Has(tags.FieldCoverURL) {
			cached.CoverURL = assetCoverURL(BrowserID, coverFile)
		}
		return cached, nil
	}

	t, err := readFileTags(uri)
	if err != nil {
		return nil, err
	}
	if mode.WithCaching() {
		coverFile, err := b.db.AddTags(ctx, dir, file, info.Timestamp.Unix(), *t)
		if err != nil {
			b.log.Warn("tag caching failed", zap.String("file", file), zap.Error(err))
		} else if coverFile != "" {
			t.Cover = nil
			t.CoverMIME = ""
			t.CoverURL = assetCoverURL(BrowserID, coverFile)
		}
		b.emitMediaCreated(dir, file)
	}
	out := t.Select(fields)
	return &out, nil
}

func (b *fileBrowser) GetTags(ctx context.Context, p string, fields tags.Fields) (*tags.Tags, error) {
	uri, err := b.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	return b.mediaTags(ctx, uri, browser.TagsModeFullWithCaching, fields)
}

func (b *fileBrowser) Action(ctx context.Context, p string, action browser.Action, _ map[string]any) error {
	switch action {
	case browser.ActionRemove:
		return b.fs.Eject(ctx, strings.Trim(p, "/"))
	case browser.ActionAdd, browser.ActionPlay:
	default:
		return jsonrpc.Errorf(jsonrpc.KindInvalidParams, "unsupported action")
	}

	uri, err := b.resolve(ctx, p)
	if err != nil {
		return err
	}
	name := path.Base(uri)
	t, _ := b.mediaTags(ctx, uri, browser.TagsModeFullWithCaching, tags.FieldsFull)
	if action == browser.ActionAdd {
		return b.player.Add(ctx, uri, name, t)
	}
	return b.player.Play(ctx, uri, name, t, true)
}

// GetAsset serves stored cover art.
func (b *fileBrowser) GetAsset(_ context.Context, id string) (string, error) {
	return b.db.CoverPath(id)
}

// PutMedia streams an upload into the named location, writing through a
// temporary file so partial uploads never surface.
func (b *fileBrowser) PutMedia(ctx context.Context, p string, r io.Reader) error {
	uri, err := b.resolve(ctx, p)
	if err != nil {
		return err
	}
	dest, err := uriToLocalPath(uri)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return jsonrpc.Wrap(jsonrpc.KindBackend, "create directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return jsonrpc.Wrap(jsonrpc.KindBackend, "create upload file", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()
	if _, err := io.Copy(tmp, r); err != nil {
		return jsonrpc.Wrap(jsonrpc.KindBadRequest, "upload interrupted", err)
	}
	if err := tmp.Close(); err != nil {
		return jsonrpc.Wrap(jsonrpc.KindBackend, "finish upload", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return jsonrpc.Wrap(jsonrpc.KindBackend, "store upload", err)
	}
	dir, file := splitURI(uri)
	b.emitMediaCreated(dir, file)
	return nil
}

func (b *fileBrowser) emitMediaCreated(dir string, file string) {
	if b.bus == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{
		"type": "media_created",
		"path": dir,
		"file": file,
	})
	if err != nil {
		return
	}
	b.bus.Emit(event.KindBrowser, BrowserID, payload)
}

// readFileTags extracts embedded metadata from a local media file.
func readFileTags(uri string) (*tags.Tags, error) {
	p, err := uriToLocalPath(uri)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, jsonrpc.Wrap(jsonrpc.KindNotFound, "open media", err)
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return nil, jsonrpc.Wrap(jsonrpc.KindBackend, "read tags", err)
	}
	track, totalTracks := meta.Track()
	t := &tags.Tags{
		Title:  meta.Title(),
		Artist: meta.Artist(),
		Album:  meta.Album(),
		Genre:  meta.Genre(),
		Date:   meta.Year(),
		Track:  track,
		Tracks: totalTracks,
	}
	if pic := meta.Picture(); pic != nil {
		t.Cover = pic.Data
		t.CoverMIME = pic.MIMEType
	}
	return t, nil
}

func uriToLocalPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return "", jsonrpc.Errorf(jsonrpc.KindBadRequest, "not a local file uri")
	}
	return filepath.FromSlash(u.Path), nil
}

// splitURI separates a media URI into its directory and file name. The URI
// is split textually so the scheme's double slash survives.
func splitURI(uri string) (dir string, file string) {
	trimmed := strings.TrimSuffix(uri, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[:i], trimmed[i+1:]
	}
	return "", trimmed
}

func assetCoverURL(browserID string, coverFile string) string {
	return "/asset/browser/" + browserID + "/" + coverFile
}

// sortItems orders a listing in place. Directories stay ahead of media and
// only name ordering applies to a filesystem listing.
func sortItems(items []browser.Item, s browser.Sort) {
	desc := s.Desc
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Type != b.Type {
			return a.Type == browser.TypeCategory
		}
		less := strings.ToLower(a.Name) < strings.ToLower(b.Name)
		if desc {
			return !less
		}
		return less
	})
}

// page applies offset and count to a listing. A count below zero keeps all
// remaining items.
func page(items []browser.Item, offset int, count int) []browser.Item {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if count >= 0 && count < len(items) {
		items = items[:count]
	}
	return items
}
