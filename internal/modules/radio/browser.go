package radio

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/sparod/melo/internal/browser"
	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/internal/player"
	"github.com/sparod/melo/pkg/tags"
)

// station is one playable entry of a feed.
type station struct {
	name      string
	streamURL string
	coverURL  string
}

type cachedFeed struct {
	stations []station
	fetched  time.Time
}

// radioBrowser lists configured station feeds and their streams. Feed
// contents are cached for the configured TTL.
type radioBrowser struct {
	browser.Unsupported

	log    *zap.Logger
	cfg    Config
	player *player.Player
	parser *gofeed.Parser

	mu    sync.Mutex
	cache map[string]cachedFeed
}

func newBrowser(log *zap.Logger, cfg Config, p *player.Player) *radioBrowser {
	return &radioBrowser{
		log:    log,
		cfg:    cfg,
		player: p,
		parser: gofeed.NewParser(),
		cache:  map[string]cachedFeed{},
	}
}

func (b *radioBrowser) ID() string { return BrowserID }

func (b *radioBrowser) Info() browser.Info {
	return browser.Info{
		Name:          "Radio",
		Description:   "Browse web radio stations",
		SearchSupport: true,
	}
}

// feed fetches and caches the station list of one configured feed.
func (b *radioBrowser) feed(ctx context.Context, id string) ([]station, error) {
	url, ok := b.cfg.Feeds[id]
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.KindNotFound, "unknown feed %q", id)
	}

	b.mu.Lock()
	cached, ok := b.cache[id]
	b.mu.Unlock()
	if ok && time.Since(cached.fetched) < b.cfg.RefreshTTL {
		return cached.stations, nil
	}

	parsed, err := b.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		if ok {
			// stale cache beats an empty listing while the feed is down
			b.log.Warn("feed refresh failed", zap.String("feed", id), zap.Error(err))
			return cached.stations, nil
		}
		return nil, jsonrpc.Wrap(jsonrpc.KindBackend, "fetch feed", err)
	}

	var stations []station
	for _, item := range parsed.Items {
		s := station{name: item.Title}
		for _, enc := range item.Enclosures {
			if enc.URL != "" {
				s.streamURL = enc.URL
				break
			}
		}
		if s.streamURL == "" {
			s.streamURL = item.Link
		}
		if s.streamURL == "" {
			continue
		}
		if item.Image != nil {
			s.coverURL = item.Image.URL
		} else if parsed.Image != nil {
			s.coverURL = parsed.Image.URL
		}
		stations = append(stations, s)
	}

	b.mu.Lock()
	b.cache[id] = cachedFeed{stations: stations, fetched: time.Now()}
	b.mu.Unlock()
	return stations, nil
}

func (b *radioBrowser) GetList(ctx context.Context, p string, params browser.ListParams) (*browser.List, error) {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		ids := make([]string, 0, len(b.cfg.Feeds))
		for id := range b.cfg.Feeds {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		items := make([]browser.Item, 0, len(ids))
		for _, id := range ids {
			items = append(items, browser.Item{ID: id, Name: id, Type: browser.TypeCategory})
		}
		total := len(items)
		return &browser.List{Path: p, Items: items, Count: total}, nil
	}

	id, _, _ := strings.Cut(trimmed, "/")
	stations, err := b.feed(ctx, id)
	if err != nil {
		return nil, err
	}
	items := make([]browser.Item, 0, len(stations))
	for i, s := range stations {
		item := browser.Item{
			ID:      strconv.Itoa(i),
			Name:    s.name,
			Type:    browser.TypeMedia,
			Actions: browser.CanAdd | browser.CanPlay,
		}
		if params.TagsMode.WithTags() && s.coverURL != "" && params.TagsFields.Has(tags.FieldCoverURL) {
			item.Tags = &tags.Tags{Title: s.name, CoverURL: s.coverURL}
		}
		items = append(items, item)
	}
	total := len(items)
	items = pageItems(items, params.Offset, params.Count)
	return &browser.List{Path: p, Items: items, Count: total}, nil
}

// Search matches station names across all configured feeds.
func (b *radioBrowser) Search(ctx context.Context, input string, params browser.ListParams) (*browser.List, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return &browser.List{Path: "/"}, nil
	}
	ids := make([]string, 0, len(b.cfg.Feeds))
	for id := range b.cfg.Feeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var items []browser.Item
	for _, id := range ids {
		stations, err := b.feed(ctx, id)
		if err != nil {
			b.log.Debug("feed skipped during search", zap.String("feed", id), zap.Error(err))
			continue
		}
		for i, s := range stations {
			if !strings.Contains(strings.ToLower(s.name), input) {
				continue
			}
			items = append(items, browser.Item{
				ID:      id + "/" + strconv.Itoa(i),
				Name:    s.name,
				Type:    browser.TypeMedia,
				Actions: browser.CanAdd | browser.CanPlay,
			})
		}
	}
	total := len(items)
	items = pageItems(items, params.Offset, params.Count)
	return &browser.List{Path: "/", Items: items, Count: total}, nil
}

// resolve maps a /feed/index path to its station.
func (b *radioBrowser) resolve(ctx context.Context, p string) (station, error) {
	trimmed := strings.Trim(p, "/")
	id, rest, ok := strings.Cut(trimmed, "/")
	if !ok {
		return station{}, jsonrpc.Errorf(jsonrpc.KindBadRequest, "path names no station")
	}
	index, err := strconv.Atoi(rest)
	if err != nil {
		return station{}, jsonrpc.Errorf(jsonrpc.KindBadRequest, "invalid station index %q", rest)
	}
	stations, err := b.feed(ctx, id)
	if err != nil {
		return station{}, err
	}
	if index < 0 || index >= len(stations) {
		return station{}, jsonrpc.Errorf(jsonrpc.KindNotFound, "no such station")
	}
	return stations[index], nil
}

func (b *radioBrowser) GetTags(ctx context.Context, p string, fields tags.Fields) (*tags.Tags, error) {
	s, err := b.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	t := (&tags.Tags{Title: s.name, CoverURL: s.coverURL}).Select(fields)
	return &t, nil
}

func (b *radioBrowser) Action(ctx context.Context, p string, action browser.Action, _ map[string]any) error {
	s, err := b.resolve(ctx, p)
	if err != nil {
		return err
	}
	t := &tags.Tags{Title: s.name, CoverURL: s.coverURL}
	switch action {
	case browser.ActionAdd:
		return b.player.Add(ctx, s.streamURL, s.name, t)
	case browser.ActionPlay:
		return b.player.Play(ctx, s.streamURL, s.name, t, true)
	}
	return jsonrpc.Errorf(jsonrpc.KindInvalidParams, "unsupported action")
}

func pageItems(items []browser.Item, offset int, count int) []browser.Item {
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
