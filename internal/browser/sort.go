package browser

import "strings"

// SortField selects the list ordering column.
type SortField int

// Sort fields.
const (
	SortNone SortField = iota
	SortFile
	SortTitle
	SortArtist
	SortAlbum
	SortGenre
	SortDate
	SortTrack
	SortTracks
)

var sortNames = map[SortField]string{
	SortNone:   "none",
	SortFile:   "file",
	SortTitle:  "title",
	SortArtist: "artist",
	SortAlbum:  "album",
	SortGenre:  "genre",
	SortDate:   "date",
	SortTrack:  "track",
	SortTracks: "tracks",
}

// Sort is a direction-carrying ordering.
type Sort struct {
	Field SortField
	Desc  bool
}

// String renders the wire form, e.g. "title" or "artist_desc".
func (s Sort) String() string {
	name, ok := sortNames[s.Field]
	if !ok {
		name = "none"
	}
	if s.Desc && s.Field != SortNone {
		return name + "_desc"
	}
	return name
}

// ParseSort converts a wire string to a sort. Unknown strings mean no
// ordering.
func ParseSort(s string) Sort {
	s = strings.ToLower(strings.TrimSpace(s))
	desc := false
	if strings.HasSuffix(s, "_desc") {
		desc = true
		s = strings.TrimSuffix(s, "_desc")
	} else {
		s = strings.TrimSuffix(s, "_asc")
	}
	for field, name := range sortNames {
		if name == s {
			return Sort{Field: field, Desc: desc}
		}
	}
	return Sort{}
}
