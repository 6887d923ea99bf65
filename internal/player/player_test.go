package player

import (
	"context"
	"errors"
	"testing"

	"github.com/sparod/melo/internal/playlist"
	"github.com/sparod/melo/pkg/tags"
)

type fakeEngine struct {
	uri    string
	ops    []string
	volume float64
	mute   bool
	err    error
}

func (e *fakeEngine) SetURI(uri string) error {
	if e.err != nil {
		return e.err
	}
	e.uri = uri
	e.ops = append(e.ops, "uri")
	return nil
}

func (e *fakeEngine) Play() error {
	if e.err != nil {
		return e.err
	}
	e.ops = append(e.ops, "play")
	return nil
}

func (e *fakeEngine) Pause() error {
	e.ops = append(e.ops, "pause")
	return nil
}

func (e *fakeEngine) Stop() error {
	e.ops = append(e.ops, "stop")
	return nil
}

func (e *fakeEngine) Seek(posMS int64) error {
	e.ops = append(e.ops, "seek")
	return nil
}

func (e *fakeEngine) SetVolume(v float64) error {
	e.volume = v
	return nil
}

func (e *fakeEngine) SetMute(mute bool) error {
	e.mute = mute
	return nil
}

func newTestPlayer(t *testing.T) (*Player, *fakeEngine, *playlist.Playlist) {
	t.Helper()
	p := New("player_test", "Test player", nil, nil)
	engine := &fakeEngine{}
	p.SetEngine(engine)
	pl := playlist.New("playlist_test", nil, nil)
	p.BindPlaylist(pl)
	pl.BindPlayer(p)
	return p, engine, pl
}

func TestPlayTransitions(t *testing.T) {
	p, engine, _ := newTestPlayer(t)
	if err := p.Play(context.Background(), "uri:a", "a", nil, true); err != nil {
		t.Fatalf("play: %v", err)
	}
	if engine.uri != "uri:a" {
		t.Fatalf("engine uri not set: %q", engine.uri)
	}
	if st := p.Status(); st.State != StateLoading || st.Name != "a" {
		t.Fatalf("expected loading, got %+v", st)
	}
	p.OnStreamStart()
	if st := p.Status(); st.State != StatePlaying {
		t.Fatalf("expected playing, got %v", st.State)
	}
}

func TestLoadStates(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	if err := p.Load(context.Background(), "uri:a", "a", nil, true, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	if st := p.Status(); st.State != StatePausedLoading {
		t.Fatalf("expected paused_loading, got %v", st.State)
	}
	p.OnStreamStart()
	if st := p.Status(); st.State != StatePaused {
		t.Fatalf("expected paused, got %v", st.State)
	}

	if err := p.Load(context.Background(), "uri:b", "b", nil, false, true); err != nil {
		t.Fatalf("load stopped: %v", err)
	}
	if st := p.Status(); st.State != StateStopped {
		t.Fatalf("expected stopped, got %v", st.State)
	}
}

func TestEngineFailureSetsError(t *testing.T) {
	p, engine, _ := newTestPlayer(t)
	engine.err = errors.New("pipeline broken")
	if err := p.Play(context.Background(), "uri:a", "a", nil, false); err == nil {
		t.Fatalf("expected error")
	}
	st := p.Status()
	if st.State != StateError || st.Error == "" {
		t.Fatalf("expected error state, got %+v", st)
	}

	// the next successful play clears the error
	engine.err = nil
	if err := p.Play(context.Background(), "uri:b", "b", nil, false); err != nil {
		t.Fatalf("play: %v", err)
	}
	if st := p.Status(); st.Error != "" || st.State != StateLoading {
		t.Fatalf("error should be cleared, got %+v", st)
	}
}

func TestSetStateValidation(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	if err := p.SetState(StatePlaying); err != nil {
		t.Fatalf("set playing: %v", err)
	}
	if err := p.SetState(StateLoading); err == nil {
		t.Fatalf("loading must not be requestable")
	}
}

func TestSetPosClamp(t *testing.T) {
	p, engine, _ := newTestPlayer(t)
	p.OnDuration(10_000)
	if err := p.SetPos(20_000); err != nil {
		t.Fatalf("set pos: %v", err)
	}
	if st := p.Status(); st.PosMS != 10_000 {
		t.Fatalf("expected clamp to duration, got %d", st.PosMS)
	}
	if err := p.SetPos(-5); err != nil {
		t.Fatalf("set pos: %v", err)
	}
	if st := p.Status(); st.PosMS != 0 {
		t.Fatalf("expected clamp to zero, got %d", st.PosMS)
	}
	if len(engine.ops) == 0 || engine.ops[len(engine.ops)-1] != "seek" {
		t.Fatalf("seek not forwarded: %v", engine.ops)
	}
}

func TestSetVolumeClamp(t *testing.T) {
	p, engine, _ := newTestPlayer(t)
	if err := p.SetVolume(1.5); err != nil {
		t.Fatalf("set volume: %v", err)
	}
	if engine.volume != 1.0 {
		t.Fatalf("expected clamp to 1, got %f", engine.volume)
	}
	if err := p.SetMute(true); err != nil {
		t.Fatalf("set mute: %v", err)
	}
	if st := p.Status(); !st.Mute || st.Volume != 1.0 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestBufferingDegradesState(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	if err := p.Play(context.Background(), "uri:a", "a", nil, false); err != nil {
		t.Fatalf("play: %v", err)
	}
	p.OnStreamStart()
	p.OnBuffering(40)
	if st := p.Status(); st.State != StateBuffering || st.BufferPercent != 40 {
		t.Fatalf("expected buffering, got %+v", st)
	}
	p.OnBuffering(100)
	if st := p.Status(); st.State != StatePlaying {
		t.Fatalf("expected playing restored, got %v", st.State)
	}

	if err := p.SetState(StatePaused); err != nil {
		t.Fatalf("pause: %v", err)
	}
	p.OnBuffering(10)
	if st := p.Status(); st.State != StatePausedBuffering {
		t.Fatalf("expected paused_buffering, got %v", st.State)
	}
	p.OnBuffering(100)
	if st := p.Status(); st.State != StatePaused {
		t.Fatalf("expected paused restored, got %v", st.State)
	}
}

func TestOnTagsMergeAndCover(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	initial := &tags.Tags{Title: "from browser", Artist: "a"}
	if err := p.Play(context.Background(), "uri:a", "a", initial, false); err != nil {
		t.Fatalf("play: %v", err)
	}
	p.OnTags(tags.Tags{Title: "from stream", Album: "al"})
	st := p.Status()
	if st.Tags == nil || st.Tags.Title != "from stream" || st.Tags.Artist != "a" || st.Tags.Album != "al" {
		t.Fatalf("unexpected merge %+v", st.Tags)
	}

	p.OnTags(tags.Tags{Cover: []byte{1, 2, 3}, CoverMIME: "image/png"})
	st = p.Status()
	if st.Tags.Cover != nil {
		t.Fatalf("raw cover must not leak into status")
	}
	if st.Tags.CoverURL != "/asset/player/player_test/cover.png" {
		t.Fatalf("unexpected cover url %q", st.Tags.CoverURL)
	}
	data, mime, ok := p.Cover()
	if !ok || mime != "image/png" || len(data) != 3 {
		t.Fatalf("cover not retained: %v %q %v", data, mime, ok)
	}
}

func TestEOSAdvancesThenStops(t *testing.T) {
	p, engine, pl := newTestPlayer(t)
	pl.Add(playlist.Item{Name: "a", URI: "uri:a"}, false)
	pl.Add(playlist.Item{Name: "b", URI: "uri:b"}, false)
	if err := pl.Play(context.Background(), "a"); err != nil {
		t.Fatalf("play a: %v", err)
	}

	p.OnEOS()
	if engine.uri != "uri:b" {
		t.Fatalf("expected advance to b, got %q", engine.uri)
	}
	if st := p.Status(); st.State != StateLoading {
		t.Fatalf("expected loading after advance, got %v", st.State)
	}

	p.OnEOS()
	if st := p.Status(); st.State != StateStopped {
		t.Fatalf("expected stop at playlist end, got %v", st.State)
	}
}

func TestPrevNextThroughPlaylist(t *testing.T) {
	p, engine, pl := newTestPlayer(t)
	pl.Add(playlist.Item{Name: "a", URI: "uri:a"}, false)
	pl.Add(playlist.Item{Name: "b", URI: "uri:b"}, false)
	if err := pl.Play(context.Background(), "b"); err != nil {
		t.Fatalf("play b: %v", err)
	}
	st := p.Status()
	if !st.HasPrev || st.HasNext {
		t.Fatalf("expected only prev from b, got %+v", st)
	}
	if err := p.Prev(context.Background()); err != nil {
		t.Fatalf("prev: %v", err)
	}
	if engine.uri != "uri:a" {
		t.Fatalf("expected a, got %q", engine.uri)
	}
	if err := p.Prev(context.Background()); err == nil {
		t.Fatalf("expected no previous media")
	}
	if err := p.Next(context.Background()); err != nil {
		t.Fatalf("next: %v", err)
	}
	if engine.uri != "uri:b" {
		t.Fatalf("expected b, got %q", engine.uri)
	}
}

func TestPrevKeepsCursorOnFailure(t *testing.T) {
	p, engine, pl := newTestPlayer(t)
	pl.Add(playlist.Item{Name: "a", URI: "uri:a"}, false)
	pl.Add(playlist.Item{Name: "b", URI: "uri:b"}, false)
	if err := pl.Play(context.Background(), "b"); err != nil {
		t.Fatalf("play b: %v", err)
	}

	engine.err = errors.New("device busy")
	if err := p.Prev(context.Background()); err == nil {
		t.Fatalf("expected engine failure")
	}
	if st := p.Status(); !st.HasPrev {
		t.Fatalf("cursor must stay on b after a failed prev, got %+v", st)
	}

	engine.err = nil
	if err := p.Prev(context.Background()); err != nil {
		t.Fatalf("prev: %v", err)
	}
	if engine.uri != "uri:a" {
		t.Fatalf("expected a, got %q", engine.uri)
	}

	engine.err = errors.New("device busy")
	if err := p.Next(context.Background()); err == nil {
		t.Fatalf("expected engine failure")
	}
	if st := p.Status(); !st.HasNext {
		t.Fatalf("cursor must stay on a after a failed next, got %+v", st)
	}
}

func TestParseState(t *testing.T) {
	if s, ok := ParseState("paused_buffering"); !ok || s != StatePausedBuffering {
		t.Fatalf("parse failed: %v %v", s, ok)
	}
	if _, ok := ParseState("bogus"); ok {
		t.Fatalf("unknown state must not parse")
	}
}
