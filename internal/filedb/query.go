package filedb

import (
	"context"
	"strings"

	"github.com/sparod/melo/internal/browser"
	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/pkg/tags"
)

// Type selects which table a List call walks.
type Type int

const (
	TypeSong Type = iota
	TypeArtist
	TypeAlbum
	TypeGenre
)

// Entry is one row produced by List. Dimension listings fill ID and Name;
// song listings fill File, Path, Cover and the selected Tags fields.
type Entry struct {
	ID    int64
	Name  string
	File  string
	Path  string
	Cover string
	Tags  tags.Tags
}

// Filter narrows a List query. All filters are combined with AND.
type Filter struct {
	column string
	op     string
	value  any
}

func SongID(id int64) Filter   { return Filter{"song.rowid", "=", id} }
func ArtistID(id int64) Filter { return Filter{"song.artist_id", "=", id} }
func AlbumID(id int64) Filter  { return Filter{"song.album_id", "=", id} }
func GenreID(id int64) Filter  { return Filter{"song.genre_id", "=", id} }
func Path(path string) Filter  { return Filter{"path.path", "=", path} }
func File(file string) Filter  { return Filter{"song.file", "=", file} }

// Match filters songs whose title, artist or album contains the pattern,
// case insensitively.
func Match(pattern string) Filter {
	return Filter{"", "match", "%" + escapeLike(pattern) + "%"}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(s)
}

// ListParams shapes a List query.
type ListParams struct {
	Type   Type
	Offset int
	Count  int // below 1 means no limit
	Sort   browser.Sort
	Fields tags.Fields // song listings only
}

// column expressions indexed by sort field, song listings only
var sortColumns = map[browser.SortField]string{
	browser.SortFile:   "song.file COLLATE NOCASE",
	browser.SortTitle:  "song.title COLLATE NOCASE",
	browser.SortArtist: "artist.name COLLATE NOCASE",
	browser.SortAlbum:  "album.name COLLATE NOCASE",
	browser.SortGenre:  "genre.name COLLATE NOCASE",
	browser.SortDate:   "song.date",
	browser.SortTrack:  "song.track",
	browser.SortTracks: "song.tracks",
}

type queryPlan struct {
	columns []string
	joins   []string
	scan    func(e *Entry) []any
}

// songPlan builds the column list and joins a song listing needs for the
// requested field mask. Dimension tables are joined only when a selected
// field or filter touches them.
func songPlan(fields tags.Fields, needArtist, needAlbum, needGenre bool) queryPlan {
	p := queryPlan{
		columns: []string{"song.rowid", "song.file", "path.path", "song.cover"},
		joins:   []string{"LEFT JOIN path ON path.rowid = song.path_id"},
	}
	type col struct {
		field tags.Fields
		expr  string
		join  string
		dst   func(e *Entry) any
	}
	cols := []col{
		{tags.FieldTitle, "song.title", "", func(e *Entry) any { return &e.Tags.Title }},
		{tags.FieldArtist, "artist.name",
			"LEFT JOIN artist ON artist.rowid = song.artist_id",
			func(e *Entry) any { return &e.Tags.Artist }},
		{tags.FieldAlbum, "album.name",
			"LEFT JOIN album ON album.rowid = song.album_id",
			func(e *Entry) any { return &e.Tags.Album }},
		{tags.FieldGenre, "genre.name",
			"LEFT JOIN genre ON genre.rowid = song.genre_id",
			func(e *Entry) any { return &e.Tags.Genre }},
		{tags.FieldDate, "song.date", "", func(e *Entry) any { return &e.Tags.Date }},
		{tags.FieldTrack, "song.track", "", func(e *Entry) any { return &e.Tags.Track }},
		{tags.FieldTracks, "song.tracks", "", func(e *Entry) any { return &e.Tags.Tracks }},
	}
	need := map[string]bool{
		"LEFT JOIN artist ON artist.rowid = song.artist_id": needArtist,
		"LEFT JOIN album ON album.rowid = song.album_id":    needAlbum,
		"LEFT JOIN genre ON genre.rowid = song.genre_id":    needGenre,
	}
	var dsts []func(e *Entry) any
	for _, c := range cols {
		if !fields.Has(c.field) {
			continue
		}
		p.columns = append(p.columns, c.expr)
		dsts = append(dsts, c.dst)
		if c.join != "" {
			need[c.join] = false
			p.joins = append(p.joins, c.join)
		}
	}
	for _, j := range []string{
		"LEFT JOIN artist ON artist.rowid = song.artist_id",
		"LEFT JOIN album ON album.rowid = song.album_id",
		"LEFT JOIN genre ON genre.rowid = song.genre_id",
	} {
		if need[j] {
			p.joins = append(p.joins, j)
		}
	}
	p.scan = func(e *Entry) []any {
		out := []any{&e.ID, &e.File, &e.Path, &e.Cover}
		for _, d := range dsts {
			out = append(out, d(e))
		}
		return out
	}
	return p
}

// List runs a query and invokes fn for every row. Returning an error from fn
// aborts the walk.
func (d *DB) List(ctx context.Context, params ListParams, filters []Filter, fn func(Entry) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return jsonrpc.Errorf(jsonrpc.KindBackend, "database closed")
	}

	query, args, scan := buildQuery(params, filters)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return jsonrpc.Wrap(jsonrpc.KindBackend, "query", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		if err := rows.Scan(scan(&e)...); err != nil {
			return jsonrpc.Wrap(jsonrpc.KindBackend, "scan row", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return jsonrpc.Wrap(jsonrpc.KindBackend, "walk rows", err)
	}
	return nil
}

func buildQuery(params ListParams, filters []Filter) (string, []any, func(e *Entry) []any) {
	var (
		b    strings.Builder
		args []any
		scan func(e *Entry) []any
	)

	switch params.Type {
	case TypeArtist, TypeAlbum, TypeGenre:
		table := map[Type]string{TypeArtist: "artist", TypeAlbum: "album", TypeGenre: "genre"}[params.Type]
		if len(filters) == 0 {
			b.WriteString("SELECT rowid, name FROM ")
			b.WriteString(table)
		} else {
			// filtered dimension listing, e.g. the albums of one artist
			b.WriteString("SELECT DISTINCT ")
			b.WriteString(table)
			b.WriteString(".rowid, ")
			b.WriteString(table)
			b.WriteString(".name FROM song")
			b.WriteString(" JOIN ")
			b.WriteString(table)
			b.WriteString(" ON ")
			b.WriteString(table)
			b.WriteString(".rowid = song.")
			b.WriteString(table)
			b.WriteString("_id")
			if hasColumn(filters, "path.path") {
				b.WriteString(" LEFT JOIN path ON path.rowid = song.path_id")
			}
		}
		scan = func(e *Entry) []any { return []any{&e.ID, &e.Name} }
	default:
		needArtist := hasColumn(filters, "song.artist_id") || params.Sort.Field == browser.SortArtist
		needAlbum := hasColumn(filters, "song.album_id") || params.Sort.Field == browser.SortAlbum
		needGenre := hasColumn(filters, "song.genre_id") || params.Sort.Field == browser.SortGenre
		matching := hasMatch(filters)
		plan := songPlan(params.Fields, needArtist || matching, needAlbum || matching, needGenre)
		b.WriteString("SELECT ")
		b.WriteString(strings.Join(plan.columns, ", "))
		b.WriteString(" FROM song ")
		b.WriteString(strings.Join(plan.joins, " "))
		scan = plan.scan
	}

	if len(filters) > 0 {
		b.WriteString(" WHERE ")
		for i, f := range filters {
			if i > 0 {
				b.WriteString(" AND ")
			}
			if f.op == "match" {
				b.WriteString(`(song.title LIKE ? ESCAPE '\' OR ` +
					`artist.name LIKE ? ESCAPE '\' OR ` +
					`album.name LIKE ? ESCAPE '\')`)
				args = append(args, f.value, f.value, f.value)
				continue
			}
			b.WriteString(f.column)
			b.WriteString(" ")
			b.WriteString(f.op)
			b.WriteString(" ?")
			args = append(args, f.value)
		}
	}

	if col := orderColumn(params); col != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(col)
		if params.Sort.Desc {
			b.WriteString(" DESC")
		}
	}

	if params.Count > 0 {
		b.WriteString(" LIMIT ?, ?")
		args = append(args, params.Offset, params.Count)
	} else if params.Offset > 0 {
		b.WriteString(" LIMIT ?, -1")
		args = append(args, params.Offset)
	}

	return b.String(), args, scan
}

func orderColumn(params ListParams) string {
	if params.Type != TypeSong {
		return "name COLLATE NOCASE"
	}
	return sortColumns[params.Sort.Field]
}

func hasColumn(filters []Filter, column string) bool {
	for _, f := range filters {
		if f.column == column {
			return true
		}
	}
	return false
}

func hasMatch(filters []Filter) bool {
	for _, f := range filters {
		if f.op == "match" {
			return true
		}
	}
	return false
}
