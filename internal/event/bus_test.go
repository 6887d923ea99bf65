package event

import (
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	for _, s := range []string{"browser", "player", "playlist"} {
		if _, ok := ParseKind(s); !ok {
			t.Fatalf("expected %q to parse", s)
		}
	}
	if _, ok := ParseKind("module"); ok {
		t.Fatalf("unknown kind must not parse")
	}
}

func TestEmitSubjectMatch(t *testing.T) {
	bus := NewBus(nil)
	var got []string
	bus.AddListener(KindPlayer, "p1", func(payload []byte) error {
		got = append(got, "p1:"+string(payload))
		return nil
	})
	bus.AddListener(KindPlayer, "", func(payload []byte) error {
		got = append(got, "all:"+string(payload))
		return nil
	})
	bus.AddListener(KindBrowser, "", func(payload []byte) error {
		got = append(got, "browser:"+string(payload))
		return nil
	})

	bus.Emit(KindPlayer, "p1", []byte("a"))
	bus.Emit(KindPlayer, "p2", []byte("b"))

	want := map[string]bool{"p1:a": true, "all:a": true, "all:b": true}
	if len(got) != 3 {
		t.Fatalf("expected 3 deliveries, got %v", got)
	}
	for _, d := range got {
		if !want[d] {
			t.Fatalf("unexpected delivery %q in %v", d, got)
		}
	}
}

func TestRemoveListener(t *testing.T) {
	bus := NewBus(nil)
	count := 0
	token := bus.AddListener(KindPlaylist, "", func([]byte) error {
		count++
		return nil
	})
	bus.Emit(KindPlaylist, "x", nil)
	bus.RemoveListener(KindPlaylist, token)
	bus.Emit(KindPlaylist, "x", nil)
	if count != 1 {
		t.Fatalf("expected 1 delivery after removal, got %d", count)
	}
	bus.RemoveListener(KindPlaylist, "unknown")
}

func TestEmitDropsRejectingSink(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	bus.AddListener(KindBrowser, "b1", func([]byte) error {
		calls++
		return errors.New("closed")
	})
	bus.Emit(KindBrowser, "b1", []byte("x"))
	bus.Emit(KindBrowser, "b1", []byte("y"))
	if calls != 1 {
		t.Fatalf("rejecting sink should be removed, got %d calls", calls)
	}
}
