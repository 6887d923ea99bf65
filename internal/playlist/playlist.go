// Package playlist implements the ordered, cursor-bearing queue feeding a
// player. Items are kept newest-first: index 0 is the most recent insertion.
package playlist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sparod/melo/internal/event"
	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/pkg/tags"
)

// Controller is the playback side of the playlist/player link. It is bound
// once, after both objects exist.
type Controller interface {
	PlayURI(ctx context.Context, uri string, name string, t *tags.Tags) error
	Stop()
}

// Item is one playlist entry.
type Item struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	URI         string     `json:"uri"`
	Tags        *tags.Tags `json:"tags,omitempty"`
	CanPlay     bool       `json:"can_play"`
	CanRemove   bool       `json:"can_remove"`
}

// Playlist holds the ordered items and the cursor of the current item.
type Playlist struct {
	id  string
	log *zap.Logger
	bus *event.Bus

	mu      sync.Mutex
	items   []Item
	byName  map[string]int
	current int // index into items, -1 when no current item
	player  Controller
}

// New creates an empty playlist.
func New(id string, log *zap.Logger, bus *event.Bus) *Playlist {
	if log == nil {
		log = zap.NewNop()
	}
	return &Playlist{
		id:      id,
		log:     log,
		bus:     bus,
		byName:  map[string]int{},
		current: -1,
	}
}

// ID returns the playlist identifier.
func (p *Playlist) ID() string { return p.id }

// BindPlayer sets the playback controller. The link is set once.
func (p *Playlist) BindPlayer(c Controller) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil {
		p.player = c
	}
}

// Add inserts an item at the head. With setCurrent the cursor moves to the
// new head. Name collisions are resolved by appending _N suffixes.
func (p *Playlist) Add(item Item, setCurrent bool) string {
	p.mu.Lock()
	item.Name = p.uniqueNameLocked(item.Name)
	if item.DisplayName == "" {
		item.DisplayName = item.Name
	}
	p.items = append([]Item{item}, p.items...)
	if setCurrent {
		p.current = 0
	} else if p.current >= 0 {
		p.current++
	}
	p.reindexLocked()
	p.mu.Unlock()

	p.emit("add", item.Name)
	return item.Name
}

// GetPrev returns the URI and name of the item following the cursor, the
// historically older direction. With advance the cursor moves to it.
func (p *Playlist) GetPrev(advance bool) (uri string, name string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current < 0 || p.current+1 >= len(p.items) {
		return "", "", false
	}
	item := p.items[p.current+1]
	if advance {
		p.current++
	}
	return item.URI, item.Name, true
}

// GetNext returns the URI and name of the item preceding the cursor. With
// advance the cursor moves to it.
func (p *Playlist) GetNext(advance bool) (uri string, name string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current <= 0 {
		return "", "", false
	}
	item := p.items[p.current-1]
	if advance {
		p.current--
	}
	return item.URI, item.Name, true
}

// HasPrev reports whether an older item exists past the cursor.
func (p *Playlist) HasPrev() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current >= 0 && p.current+1 < len(p.items)
}

// HasNext reports whether a newer item exists before the cursor.
func (p *Playlist) HasNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current > 0
}

// SetCurrent moves the cursor to the named item without triggering playback.
func (p *Playlist) SetCurrent(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.byName[name]
	if !ok {
		return false
	}
	p.current = idx
	return true
}

// Play moves the cursor to the named item and starts it on the bound player.
func (p *Playlist) Play(ctx context.Context, name string) error {
	p.mu.Lock()
	idx, ok := p.byName[name]
	if !ok {
		p.mu.Unlock()
		return jsonrpc.Errorf(jsonrpc.KindNotFound, "no item %q in playlist", name)
	}
	item := p.items[idx]
	player := p.player
	p.current = idx
	p.mu.Unlock()

	if player == nil {
		return jsonrpc.Errorf(jsonrpc.KindInternal, "playlist has no player")
	}
	if err := player.PlayURI(ctx, item.URI, item.Name, item.Tags); err != nil {
		return err
	}
	p.emit("play", item.Name)
	return nil
}

// Remove deletes the named item. Removing the current item stops the player
// and clears the cursor.
func (p *Playlist) Remove(name string) error {
	p.mu.Lock()
	idx, ok := p.byName[name]
	if !ok {
		p.mu.Unlock()
		return jsonrpc.Errorf(jsonrpc.KindNotFound, "no item %q in playlist", name)
	}
	wasCurrent := idx == p.current
	p.items = append(p.items[:idx], p.items[idx+1:]...)
	switch {
	case wasCurrent:
		p.current = -1
	case idx < p.current:
		p.current--
	}
	p.reindexLocked()
	player := p.player
	p.mu.Unlock()

	if wasCurrent && player != nil {
		player.Stop()
	}
	p.emit("remove", name)
	return nil
}

// Snapshot returns a copy of the items and the current item name, if any.
func (p *Playlist) Snapshot() (items []Item, current string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	items = make([]Item, len(p.items))
	copy(items, p.items)
	if p.current >= 0 {
		current = p.items[p.current].Name
	}
	return items, current
}

func (p *Playlist) uniqueNameLocked(name string) string {
	if name == "" {
		name = "media"
	}
	if _, ok := p.byName[name]; !ok {
		return name
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if _, ok := p.byName[candidate]; !ok {
			return candidate
		}
	}
}

func (p *Playlist) reindexLocked() {
	p.byName = make(map[string]int, len(p.items))
	for i, item := range p.items {
		p.byName[item.Name] = i
	}
}

func (p *Playlist) emit(eventType string, name string) {
	if p.bus == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{"type": eventType, "name": name})
	if err != nil {
		p.log.Error("marshal playlist event", zap.Error(err))
		return
	}
	p.bus.Emit(event.KindPlaylist, p.id, payload)
}
