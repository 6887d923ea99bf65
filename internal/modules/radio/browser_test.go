package radio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sparod/melo/internal/browser"
	"github.com/sparod/melo/internal/player"
	"github.com/sparod/melo/internal/playlist"
	"github.com/sparod/melo/pkg/tags"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test stations</title>
    <image><url>http://example.com/channel.png</url></image>
    <item>
      <title>Morning Jazz</title>
      <enclosure url="http://example.com/jazz.mp3" type="audio/mpeg"/>
    </item>
    <item>
      <title>Evening News</title>
      <link>http://example.com/news</link>
    </item>
    <item>
      <title>No stream here</title>
    </item>
  </channel>
</rss>`

type radioEngine struct {
	uris []string
}

func (e *radioEngine) SetURI(uri string) error { e.uris = append(e.uris, uri); return nil }
func (e *radioEngine) Play() error             { return nil }
func (e *radioEngine) Pause() error            { return nil }
func (e *radioEngine) Stop() error             { return nil }
func (e *radioEngine) Seek(int64) error        { return nil }
func (e *radioEngine) SetVolume(float64) error { return nil }
func (e *radioEngine) SetMute(bool) error      { return nil }

func newRadioFixture(t *testing.T, ttl time.Duration) (*radioBrowser, *httptest.Server, *atomic.Int64, *radioEngine) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	t.Cleanup(srv.Close)

	p := player.New("player_radio", "Radio", nil, nil)
	engine := &radioEngine{}
	p.SetEngine(engine)
	pl := playlist.New("playlist_radio", nil, nil)
	p.BindPlaylist(pl)
	pl.BindPlayer(p)

	cfg := Config{
		Feeds:      map[string]string{"test": srv.URL},
		RefreshTTL: ttl,
	}
	return newBrowser(zap.NewNop(), cfg, p), srv, &hits, engine
}

func TestRadioRootListsFeeds(t *testing.T) {
	b, _, hits, _ := newRadioFixture(t, time.Hour)
	list, err := b.GetList(context.Background(), "/", browser.ListParams{Count: -1})
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if list.Count != 1 || list.Items[0].ID != "test" || list.Items[0].Type != browser.TypeCategory {
		t.Fatalf("unexpected root %v", list.Items)
	}
	if hits.Load() != 0 {
		t.Fatalf("root listing must not fetch feeds")
	}
}

func TestRadioFeedStations(t *testing.T) {
	b, _, _, _ := newRadioFixture(t, time.Hour)
	list, err := b.GetList(context.Background(), "/test", browser.ListParams{
		Count:      -1,
		TagsMode:   browser.TagsModeFull,
		TagsFields: tags.FieldsFull,
	})
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	// the item carrying no stream url is dropped
	if list.Count != 2 {
		t.Fatalf("expected 2 stations, got %v", list.Items)
	}
	if list.Items[0].Name != "Morning Jazz" || list.Items[0].Type != browser.TypeMedia {
		t.Fatalf("unexpected station %+v", list.Items[0])
	}
	if list.Items[0].Tags == nil || list.Items[0].Tags.CoverURL != "http://example.com/channel.png" {
		t.Fatalf("channel image must back stations without their own: %+v", list.Items[0].Tags)
	}

	if _, err := b.GetList(context.Background(), "/unknown", browser.ListParams{Count: -1}); err == nil {
		t.Fatalf("unknown feed must fail")
	}
}

func TestRadioFeedCache(t *testing.T) {
	b, srv, hits, _ := newRadioFixture(t, time.Hour)
	for i := 0; i < 3; i++ {
		if _, err := b.GetList(context.Background(), "/test", browser.ListParams{Count: -1}); err != nil {
			t.Fatalf("get list: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single fetch within the ttl, got %d", hits.Load())
	}

	// expire the cache and take the feed down: the stale listing survives
	b.mu.Lock()
	cached := b.cache["test"]
	cached.fetched = time.Now().Add(-2 * time.Hour)
	b.cache["test"] = cached
	b.mu.Unlock()
	srv.Close()

	list, err := b.GetList(context.Background(), "/test", browser.ListParams{Count: -1})
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if list.Count != 2 {
		t.Fatalf("stale cache lost: %v", list.Items)
	}
}

func TestRadioSearch(t *testing.T) {
	b, _, _, _ := newRadioFixture(t, time.Hour)
	list, err := b.Search(context.Background(), "jazz", browser.ListParams{Count: -1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if list.Count != 1 || list.Items[0].ID != "test/0" {
		t.Fatalf("unexpected hits %v", list.Items)
	}

	empty, err := b.Search(context.Background(), "", browser.ListParams{Count: -1})
	if err != nil {
		t.Fatalf("empty search: %v", err)
	}
	if empty.Count != 0 {
		t.Fatalf("blank input must return nothing")
	}
}

func TestRadioGetTagsAndAction(t *testing.T) {
	b, _, _, engine := newRadioFixture(t, time.Hour)
	got, err := b.GetTags(context.Background(), "/test/0", tags.FieldsFull)
	if err != nil {
		t.Fatalf("get tags: %v", err)
	}
	if got.Title != "Morning Jazz" {
		t.Fatalf("unexpected tags %+v", got)
	}

	if err := b.Action(context.Background(), "/test/0", browser.ActionPlay, nil); err != nil {
		t.Fatalf("action: %v", err)
	}
	if len(engine.uris) != 1 || engine.uris[0] != "http://example.com/jazz.mp3" {
		t.Fatalf("unexpected uris %v", engine.uris)
	}

	if _, err := b.GetTags(context.Background(), "/test/99", tags.FieldsFull); err == nil {
		t.Fatalf("out of range station must fail")
	}
	if _, err := b.GetTags(context.Background(), "/test", tags.FieldsFull); err == nil {
		t.Fatalf("feed path names no station")
	}
	if err := b.Action(context.Background(), "/test/0", browser.ActionRemove, nil); err == nil {
		t.Fatalf("remove is not supported")
	}
}
