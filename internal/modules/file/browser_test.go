package file

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sparod/melo/internal/browser"
	"github.com/sparod/melo/internal/filedb"
	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/internal/player"
	"github.com/sparod/melo/internal/playlist"
	"github.com/sparod/melo/internal/vfs"
	"github.com/sparod/melo/pkg/tags"
	"go.uber.org/zap"
)

type fakeFS struct {
	roots   []vfs.Root
	dirs    map[string][]vfs.Entry
	ejected []string
}

func (f *fakeFS) ListRoots(context.Context) ([]vfs.Root, error) { return f.roots, nil }

func (f *fakeFS) ListDir(_ context.Context, uri string) ([]vfs.Entry, error) {
	entries, ok := f.dirs[uri]
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.KindNotFound, "no directory %q", uri)
	}
	return entries, nil
}

func (f *fakeFS) ResolveShortcut(_ context.Context, uri string) (string, error) { return uri, nil }

func (f *fakeFS) Probe(_ context.Context, uri string) (vfs.Info, error) {
	for _, entries := range f.dirs {
		for _, e := range entries {
			if e.URI == uri {
				return vfs.Info{Exists: true, Dir: e.Type == vfs.EntryDir, Timestamp: time.Unix(42, 0)}, nil
			}
		}
	}
	return vfs.Info{}, nil
}

func (f *fakeFS) Eject(_ context.Context, id string) error {
	f.ejected = append(f.ejected, id)
	return nil
}

func newBrowserFixture(t *testing.T) (*fileBrowser, *fakeFS, *filedb.DB, *fakeLibraryEngine) {
	t.Helper()
	dir := t.TempDir()
	db, err := filedb.Open(":memory:", filepath.Join(dir, "covers"), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(db.Close)

	fs := &fakeFS{
		roots: []vfs.Root{
			{ID: "music", Name: "Music", URI: "file:///srv/music"},
			{ID: "usb", Name: "USB stick", URI: "file:///media/usb", Removable: true},
		},
		dirs: map[string][]vfs.Entry{
			"file:///srv/music": {
				{Name: "zz.mp3", URI: "file:///srv/music/zz.mp3", Type: vfs.EntryFile},
				{Name: "albums", URI: "file:///srv/music/albums", Type: vfs.EntryDir},
				{Name: "aa.mp3", URI: "file:///srv/music/aa.mp3", Type: vfs.EntryFile},
			},
		},
	}

	p := player.New("player_test", "Test", nil, nil)
	engine := &fakeLibraryEngine{}
	p.SetEngine(engine)
	pl := playlist.New("playlist_test", nil, nil)
	p.BindPlaylist(pl)
	pl.BindPlayer(p)

	return newFileBrowser(zap.NewNop(), fs, db, p, nil), fs, db, engine
}

func TestFileBrowserRoots(t *testing.T) {
	b, _, _, _ := newBrowserFixture(t)
	list, err := b.GetList(context.Background(), "/", browser.ListParams{Count: -1})
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if list.Count != 2 {
		t.Fatalf("expected 2 roots, got %v", list.Items)
	}
	for _, item := range list.Items {
		if item.Type != browser.TypeCategory {
			t.Fatalf("roots must be categories: %+v", item)
		}
		removable := item.Actions&browser.CanRemove != 0
		if removable != (item.ID == "usb") {
			t.Fatalf("only the usb root is removable: %+v", item)
		}
	}
}

func TestFileBrowserListDir(t *testing.T) {
	b, _, _, _ := newBrowserFixture(t)
	list, err := b.GetList(context.Background(), "/music", browser.ListParams{Count: -1})
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if list.Count != 3 {
		t.Fatalf("expected 3 entries, got %v", list.Items)
	}
	// directories first, then media in name order
	if list.Items[0].Name != "albums" || list.Items[0].Type != browser.TypeCategory {
		t.Fatalf("expected albums first: %+v", list.Items)
	}
	if list.Items[1].Name != "aa.mp3" || list.Items[2].Name != "zz.mp3" {
		t.Fatalf("unexpected media order: %+v", list.Items)
	}
	if list.Items[1].Actions&(browser.CanAdd|browser.CanPlay) == 0 {
		t.Fatalf("media must be addable and playable")
	}

	if _, err := b.GetList(context.Background(), "/nope", browser.ListParams{Count: -1}); err == nil {
		t.Fatalf("unknown root must fail")
	}
}

func TestFileBrowserPaging(t *testing.T) {
	b, _, _, _ := newBrowserFixture(t)
	list, err := b.GetList(context.Background(), "/music", browser.ListParams{Offset: 1, Count: 1})
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if list.Count != 3 {
		t.Fatalf("count must report the full listing, got %d", list.Count)
	}
	if len(list.Items) != 1 || list.Items[0].Name != "aa.mp3" {
		t.Fatalf("unexpected page %v", list.Items)
	}
}

func TestFileBrowserCachedTags(t *testing.T) {
	b, _, db, _ := newBrowserFixture(t)
	// pre-populate the database so no file read is attempted
	if _, err := db.AddTags(context.Background(), "file:///srv/music", "aa.mp3", 42,
		tags.Tags{Title: "Cached", Artist: "Someone"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	list, err := b.GetList(context.Background(), "/music", browser.ListParams{
		Count:      -1,
		TagsMode:   browser.TagsModeFull,
		TagsFields: tags.FieldsFull,
	})
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	var found *browser.Item
	for i := range list.Items {
		if list.Items[i].Name == "aa.mp3" {
			found = &list.Items[i]
		}
	}
	if found == nil || found.Tags == nil || found.Tags.Title != "Cached" {
		t.Fatalf("expected cached tags, got %+v", found)
	}

	got, err := b.GetTags(context.Background(), "/music/aa.mp3", tags.FieldsFull)
	if err != nil {
		t.Fatalf("get tags: %v", err)
	}
	if got.Artist != "Someone" {
		t.Fatalf("unexpected tags %+v", got)
	}
}

func TestFileBrowserActionPlay(t *testing.T) {
	b, _, db, engine := newBrowserFixture(t)
	if _, err := db.AddTags(context.Background(), "file:///srv/music", "aa.mp3", 42,
		tags.Tags{Title: "Cached"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := b.Action(context.Background(), "/music/aa.mp3", browser.ActionPlay, nil); err != nil {
		t.Fatalf("action: %v", err)
	}
	if len(engine.uris) != 1 || engine.uris[0] != "file:///srv/music/aa.mp3" {
		t.Fatalf("unexpected uris %v", engine.uris)
	}
}

func TestFileBrowserEject(t *testing.T) {
	b, fs, _, _ := newBrowserFixture(t)
	if err := b.Action(context.Background(), "/usb", browser.ActionRemove, nil); err != nil {
		t.Fatalf("eject: %v", err)
	}
	if len(fs.ejected) != 1 || fs.ejected[0] != "usb" {
		t.Fatalf("unexpected ejects %v", fs.ejected)
	}
}

func TestPageHelper(t *testing.T) {
	items := []browser.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if got := page(items, 0, -1); len(got) != 3 {
		t.Fatalf("negative count keeps all, got %v", got)
	}
	if got := page(items, 2, 5); len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("offset page wrong: %v", got)
	}
	if got := page(items, 9, 1); got != nil {
		t.Fatalf("offset past the end yields nothing: %v", got)
	}
	if got := page(items, 0, 0); len(got) != 0 {
		t.Fatalf("zero count yields nothing: %v", got)
	}
}

func TestSplitURI(t *testing.T) {
	dir, file := splitURI("file:///srv/music/aa.mp3")
	if dir != "file:///srv/music" || file != "aa.mp3" {
		t.Fatalf("unexpected split %q %q", dir, file)
	}
}

func TestSortItemsDesc(t *testing.T) {
	items := []browser.Item{
		{Name: "b", Type: browser.TypeMedia},
		{Name: "a", Type: browser.TypeMedia},
		{Name: "dir", Type: browser.TypeCategory},
	}
	sortItems(items, browser.Sort{Desc: true})
	if items[0].Type != browser.TypeCategory {
		t.Fatalf("directories stay first: %v", items)
	}
	if items[1].Name != "b" || items[2].Name != "a" {
		t.Fatalf("descending name order expected: %v", items)
	}
	if strings.ToLower(items[0].Name) != "dir" {
		t.Fatalf("unexpected head %v", items[0])
	}
}
