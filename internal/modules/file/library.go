package file

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sparod/melo/internal/browser"
	"github.com/sparod/melo/internal/filedb"
	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/internal/player"
	"github.com/sparod/melo/pkg/tags"
)

// libraryBrowser navigates the tag database by category. Paths stack up to
// three type/id segments, each adding a filter clause, so
// /artist/3/album/7/ lists the songs of album 7 by artist 3.
type libraryBrowser struct {
	browser.Unsupported

	log    *zap.Logger
	db     *filedb.DB
	player *player.Player
}

func newLibraryBrowser(log *zap.Logger, db *filedb.DB, p *player.Player) *libraryBrowser {
	return &libraryBrowser{log: log, db: db, player: p}
}

func (b *libraryBrowser) ID() string { return LibraryID }

func (b *libraryBrowser) Info() browser.Info {
	return browser.Info{
		Name:          "Library",
		Description:   "Browse your media library",
		SearchSupport: true,
		TagsSupport:   true,
	}
}

// category names of the library root
var libraryCategories = []string{"title", "artist", "album", "genre"}

var categoryTypes = map[string]filedb.Type{
	"title":  filedb.TypeSong,
	"artist": filedb.TypeArtist,
	"album":  filedb.TypeAlbum,
	"genre":  filedb.TypeGenre,
}

// child maps a filtered category to what its children list.
var categoryChild = map[string]string{
	"genre":  "artist",
	"artist": "album",
	"album":  "title",
	"title":  "title",
}

func filterFor(category string, id int64) filedb.Filter {
	switch category {
	case "artist":
		return filedb.ArtistID(id)
	case "album":
		return filedb.AlbumID(id)
	case "genre":
		return filedb.GenreID(id)
	default:
		return filedb.SongID(id)
	}
}

// parsePath resolves a library path to the table to list and the filters to
// apply. The empty path means the category root, reported with an empty
// category name.
func parsePath(p string) (category string, listType filedb.Type, filters []filedb.Filter, err error) {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		return "", 0, nil, nil
	}
	if len(segments) > 6 {
		return "", 0, nil, jsonrpc.Errorf(jsonrpc.KindBadRequest, "path too deep")
	}
	for i := 0; i < len(segments); i += 2 {
		category = segments[i]
		if _, ok := categoryTypes[category]; !ok {
			return "", 0, nil, jsonrpc.Errorf(jsonrpc.KindBadRequest, "unknown category %q", category)
		}
		if i+1 >= len(segments) {
			// trailing bare category lists that dimension
			return category, categoryTypes[category], filters, nil
		}
		id, err := strconv.ParseInt(segments[i+1], 10, 64)
		if err != nil {
			return "", 0, nil, jsonrpc.Errorf(jsonrpc.KindBadRequest, "invalid id %q", segments[i+1])
		}
		filters = append(filters, filterFor(category, id))
	}
	child := categoryChild[category]
	return child, categoryTypes[child], filters, nil
}

func (b *libraryBrowser) GetList(ctx context.Context, p string, params browser.ListParams) (*browser.List, error) {
	category, listType, filters, err := parsePath(p)
	if err != nil {
		return nil, err
	}
	if category == "" {
		items := make([]browser.Item, 0, len(libraryCategories))
		for _, c := range libraryCategories {
			items = append(items, browser.Item{ID: c, Name: c, Type: browser.TypeCategory})
		}
		return &browser.List{Path: p, Items: items, Count: len(items)}, nil
	}
	return b.list(ctx, p, listType, filters, params)
}

func (b *libraryBrowser) Search(ctx context.Context, input string, params browser.ListParams) (*browser.List, error) {
	if strings.TrimSpace(input) == "" {
		return &browser.List{Path: "/"}, nil
	}
	return b.list(ctx, "/", filedb.TypeSong, []filedb.Filter{filedb.Match(input)}, params)
}

func (b *libraryBrowser) list(ctx context.Context, p string, listType filedb.Type, filters []filedb.Filter, params browser.ListParams) (*browser.List, error) {
	fields := params.TagsFields
	if !params.TagsMode.WithTags() {
		fields = tags.FieldsNone
	}
	count := params.Count
	if count < 0 {
		count = 0
	}
	list := &browser.List{Path: p}
	err := b.db.List(ctx, filedb.ListParams{
		Type:   listType,
		Offset: params.Offset,
		Count:  count,
		Sort:   params.Sort,
		Fields: fields,
	}, filters, func(e filedb.Entry) error {
		list.Items = append(list.Items, b.item(listType, e, fields))
		return nil
	})
	if err != nil {
		return nil, err
	}
	list.Count = len(list.Items)
	return list, nil
}

func (b *libraryBrowser) item(listType filedb.Type, e filedb.Entry, fields tags.Fields) browser.Item {
	id := strconv.FormatInt(e.ID, 10)
	if listType != filedb.TypeSong {
		return browser.Item{
			ID:      id,
			Name:    e.Name,
			Type:    browser.TypeCategory,
			Actions: browser.CanAdd | browser.CanPlay,
		}
	}
	item := browser.Item{
		ID:      id,
		Name:    e.Tags.Title,
		Type:    browser.TypeMedia,
		Actions: browser.CanAdd | browser.CanPlay,
	}
	if item.Name == "" {
		item.Name = e.File
	}
	if fields != tags.FieldsNone && !e.Tags.IsEmpty() {
		t := e.Tags
		if e.Cover != "" && fields.Has(tags.FieldCoverURL) {
			t.CoverURL = assetCoverURL(LibraryID, e.Cover)
		}
		item.Tags = &t
	}
	return item
}

func (b *libraryBrowser) GetTags(ctx context.Context, p string, fields tags.Fields) (*tags.Tags, error) {
	_, listType, filters, err := parsePath(p)
	if err != nil {
		return nil, err
	}
	if listType != filedb.TypeSong || len(filters) == 0 {
		return nil, jsonrpc.Errorf(jsonrpc.KindBadRequest, "path names no media")
	}
	t, coverFile, err := b.db.GetTags(ctx, fields, filters...)
	if err != nil {
		return nil, err
	}
	if coverFile != "" && fields.Has(tags.FieldCoverURL) {
		t.CoverURL = assetCoverURL(LibraryID, coverFile)
	}
	return t, nil
}

func (b *libraryBrowser) Action(ctx context.Context, p string, action browser.Action, _ map[string]any) error {
	if action != browser.ActionAdd && action != browser.ActionPlay {
		return jsonrpc.Errorf(jsonrpc.KindInvalidParams, "unsupported action")
	}
	_, _, filters, err := parsePath(p)
	if err != nil {
		return err
	}
	if len(filters) == 0 {
		return jsonrpc.Errorf(jsonrpc.KindBadRequest, "path names no media")
	}

	// resolve every matching song to a playable URI
	type media struct {
		uri  string
		name string
		tags tags.Tags
	}
	var all []media
	err = b.db.List(ctx, filedb.ListParams{
		Type:   filedb.TypeSong,
		Sort:   browser.Sort{Field: browser.SortTrack},
		Fields: tags.FieldsFull,
	}, filters, func(e filedb.Entry) error {
		if e.File == "" {
			return nil
		}
		name := e.Tags.Title
		if name == "" {
			name = e.File
		}
		all = append(all, media{uri: e.Path + "/" + e.File, name: name, tags: e.Tags})
		return nil
	})
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return jsonrpc.Errorf(jsonrpc.KindNotFound, "no matching media")
	}

	for i, m := range all {
		t := m.tags
		if action == browser.ActionPlay && i == 0 {
			if err := b.player.Play(ctx, m.uri, m.name, &t, true); err != nil {
				return err
			}
			continue
		}
		if err := b.player.Add(ctx, m.uri, m.name, &t); err != nil {
			return err
		}
	}
	return nil
}

// GetAsset serves stored cover art, shared with the file browser.
func (b *libraryBrowser) GetAsset(_ context.Context, id string) (string, error) {
	return b.db.CoverPath(id)
}
