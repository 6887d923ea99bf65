// Package tags holds the media tag model shared by browsers, players and the
// library database.
package tags

import "strings"

// Fields selects which tag fields are populated or requested.
type Fields uint32

// Tag field flags.
const (
	FieldTitle Fields = 1 << iota
	FieldArtist
	FieldAlbum
	FieldGenre
	FieldDate
	FieldTrack
	FieldTracks
	FieldCover
	FieldCoverURL

	// FieldsNone selects nothing.
	FieldsNone Fields = 0
	// FieldsFull selects every field except the raw cover payload.
	FieldsFull = FieldTitle | FieldArtist | FieldAlbum | FieldGenre |
		FieldDate | FieldTrack | FieldTracks | FieldCoverURL
)

// Has reports whether all flags in mask are set.
func (f Fields) Has(mask Fields) bool {
	return f&mask == mask
}

// Normalize resolves the cover exclusivity rule: when both the raw cover and
// the cover URL are requested, the URL wins.
func (f Fields) Normalize() Fields {
	if f.Has(FieldCover) && f.Has(FieldCoverURL) {
		return f &^ FieldCover
	}
	return f
}

// ParseFields converts a list of field names to a mask. Unknown names are
// ignored. An empty list means full.
func ParseFields(names []string) Fields {
	if len(names) == 0 {
		return FieldsFull
	}
	var fields Fields
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "none":
			return FieldsNone
		case "full":
			return FieldsFull
		case "title":
			fields |= FieldTitle
		case "artist":
			fields |= FieldArtist
		case "album":
			fields |= FieldAlbum
		case "genre":
			fields |= FieldGenre
		case "date":
			fields |= FieldDate
		case "track":
			fields |= FieldTrack
		case "tracks":
			fields |= FieldTracks
		case "cover":
			fields |= FieldCover
		case "cover_url":
			fields |= FieldCoverURL
		}
	}
	return fields.Normalize()
}

// Tags carries the metadata of a single media item.
type Tags struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	Genre  string `json:"genre,omitempty"`
	Date   int    `json:"date,omitempty"`
	Track  int    `json:"track,omitempty"`
	Tracks int    `json:"tracks,omitempty"`

	// Cover holds the raw cover image, mutually exclusive with CoverURL.
	Cover     []byte `json:"cover,omitempty"`
	CoverMIME string `json:"cover_mime,omitempty"`
	CoverURL  string `json:"cover_url,omitempty"`
}

// Merge copies the populated fields of src into t. Later tags win field by
// field; empty fields in src leave t untouched.
func (t *Tags) Merge(src Tags) {
	if src.Title != "" {
		t.Title = src.Title
	}
	if src.Artist != "" {
		t.Artist = src.Artist
	}
	if src.Album != "" {
		t.Album = src.Album
	}
	if src.Genre != "" {
		t.Genre = src.Genre
	}
	if src.Date != 0 {
		t.Date = src.Date
	}
	if src.Track != 0 {
		t.Track = src.Track
	}
	if src.Tracks != 0 {
		t.Tracks = src.Tracks
	}
	if len(src.Cover) > 0 {
		t.Cover = src.Cover
		t.CoverMIME = src.CoverMIME
		t.CoverURL = ""
	}
	if src.CoverURL != "" {
		t.CoverURL = src.CoverURL
		t.Cover = nil
		t.CoverMIME = ""
	}
}

// Select returns a copy of t restricted to the requested fields.
func (t Tags) Select(fields Fields) Tags {
	fields = fields.Normalize()
	out := Tags{}
	if fields.Has(FieldTitle) {
		out.Title = t.Title
	}
	if fields.Has(FieldArtist) {
		out.Artist = t.Artist
	}
	if fields.Has(FieldAlbum) {
		out.Album = t.Album
	}
	if fields.Has(FieldGenre) {
		out.Genre = t.Genre
	}
	if fields.Has(FieldDate) {
		out.Date = t.Date
	}
	if fields.Has(FieldTrack) {
		out.Track = t.Track
	}
	if fields.Has(FieldTracks) {
		out.Tracks = t.Tracks
	}
	if fields.Has(FieldCover) {
		out.Cover = t.Cover
		out.CoverMIME = t.CoverMIME
	}
	if fields.Has(FieldCoverURL) {
		out.CoverURL = t.CoverURL
	}
	return out
}

// IsEmpty reports whether no field is populated.
func (t Tags) IsEmpty() bool {
	return t.Title == "" && t.Artist == "" && t.Album == "" && t.Genre == "" &&
		t.Date == 0 && t.Track == 0 && t.Tracks == 0 &&
		len(t.Cover) == 0 && t.CoverURL == ""
}

// CoverExt maps a cover MIME type to its file extension.
func CoverExt(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return ".png"
	default:
		return ".jpg"
	}
}
