package browser

import "testing"

func TestParseSort(t *testing.T) {
	tests := []struct {
		in   string
		want Sort
	}{
		{"title", Sort{Field: SortTitle}},
		{"Artist_desc", Sort{Field: SortArtist, Desc: true}},
		{"track_asc", Sort{Field: SortTrack}},
		{"none", Sort{}},
		{"", Sort{}},
		{"bogus", Sort{}},
	}
	for _, tt := range tests {
		if got := ParseSort(tt.in); got != tt.want {
			t.Fatalf("%q: got %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if s := (Sort{Field: SortAlbum, Desc: true}).String(); s != "album_desc" {
		t.Fatalf("unexpected wire form %q", s)
	}
}

func TestParseTagsMode(t *testing.T) {
	if m := ParseTagsMode(""); m != TagsModeFull {
		t.Fatalf("absent means full, got %v", m)
	}
	m := ParseTagsMode("none_with_caching")
	if m.WithTags() || !m.WithCaching() {
		t.Fatalf("unexpected mode behavior %v", m)
	}
	m = ParseTagsMode("full_with_caching")
	if !m.WithTags() || !m.WithCaching() {
		t.Fatalf("unexpected mode behavior %v", m)
	}
	if ParseTagsMode("none").WithTags() {
		t.Fatalf("none must not carry tags")
	}
}

func TestParseAction(t *testing.T) {
	for in, want := range map[string]Action{"add": ActionAdd, "play": ActionPlay, "remove": ActionRemove} {
		got, ok := ParseAction(in)
		if !ok || got != want {
			t.Fatalf("%q: got %v %v", in, got, ok)
		}
	}
	if _, ok := ParseAction("eject"); ok {
		t.Fatalf("unknown action must not parse")
	}
}
