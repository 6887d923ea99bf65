package tags

import (
	"bytes"
	"testing"
)

func TestParseFields(t *testing.T) {
	if got := ParseFields(nil); got != FieldsFull {
		t.Fatalf("expected full for empty list, got %v", got)
	}
	if got := ParseFields([]string{"none", "title"}); got != FieldsNone {
		t.Fatalf("expected none to short-circuit, got %v", got)
	}
	got := ParseFields([]string{"title", "Artist", " album "})
	if !got.Has(FieldTitle | FieldArtist | FieldAlbum) {
		t.Fatalf("expected title|artist|album, got %v", got)
	}
	if got.Has(FieldGenre) {
		t.Fatalf("genre should not be selected")
	}
	if got := ParseFields([]string{"bogus"}); got != FieldsNone {
		t.Fatalf("unknown names should select nothing, got %v", got)
	}
}

func TestFieldsNormalizeCoverExclusivity(t *testing.T) {
	both := FieldCover | FieldCoverURL
	if norm := both.Normalize(); norm.Has(FieldCover) || !norm.Has(FieldCoverURL) {
		t.Fatalf("cover url should win, got %v", norm)
	}
	if norm := FieldCover.Normalize(); !norm.Has(FieldCover) {
		t.Fatalf("lone cover should survive")
	}
}

func TestMergeLaterWins(t *testing.T) {
	base := Tags{Title: "old", Artist: "a", Track: 3}
	base.Merge(Tags{Title: "new", Album: "b"})
	if base.Title != "new" || base.Artist != "a" || base.Album != "b" || base.Track != 3 {
		t.Fatalf("unexpected merge result: %+v", base)
	}
}

func TestMergeCoverExclusivity(t *testing.T) {
	got := Tags{CoverURL: "http://x/c.jpg"}
	got.Merge(Tags{Cover: []byte{1, 2}, CoverMIME: "image/png"})
	if got.CoverURL != "" || !bytes.Equal(got.Cover, []byte{1, 2}) {
		t.Fatalf("raw cover should displace url: %+v", got)
	}
	got.Merge(Tags{CoverURL: "http://x/d.jpg"})
	if got.Cover != nil || got.CoverMIME != "" || got.CoverURL != "http://x/d.jpg" {
		t.Fatalf("url should displace raw cover: %+v", got)
	}
}

func TestSelect(t *testing.T) {
	full := Tags{Title: "t", Artist: "a", Album: "al", Genre: "g",
		Date: 2001, Track: 2, Tracks: 10,
		Cover: []byte{1}, CoverMIME: "image/jpeg", CoverURL: "http://x"}
	got := full.Select(FieldTitle | FieldTrack)
	if got.Title != "t" || got.Track != 2 {
		t.Fatalf("selected fields missing: %+v", got)
	}
	if got.Artist != "" || got.Cover != nil || got.CoverURL != "" {
		t.Fatalf("unselected fields leaked: %+v", got)
	}
	got = full.Select(FieldCover | FieldCoverURL)
	if got.Cover != nil || got.CoverURL != "http://x" {
		t.Fatalf("cover exclusivity not applied: %+v", got)
	}
}

func TestIsEmpty(t *testing.T) {
	if !(Tags{}).IsEmpty() {
		t.Fatalf("zero tags should be empty")
	}
	if (Tags{Track: 1}).IsEmpty() {
		t.Fatalf("tags with track should not be empty")
	}
}

func TestCoverExt(t *testing.T) {
	if ext := CoverExt("image/PNG"); ext != ".png" {
		t.Fatalf("expected .png, got %s", ext)
	}
	if ext := CoverExt("image/jpeg"); ext != ".jpg" {
		t.Fatalf("expected .jpg, got %s", ext)
	}
}
