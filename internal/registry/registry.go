// Package registry is the plugin spine: named modules and their browsers,
// players and playlists, with thread-safe lookup and snapshot listing.
//
// Entries are reference counted. Get hands out the shared instance together
// with a release closure; the registry's own reference is the last one
// dropped on unregister, so an entity implementing Close is closed only after
// every in-flight user has released it.
package registry

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sparod/melo/internal/browser"
	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/internal/player"
	"github.com/sparod/melo/internal/playlist"
)

// ModuleInfo describes a module.
type ModuleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ConfigID    string `json:"config_id,omitempty"`
}

// Module is a grouping of browsers and players registered as a unit.
type Module interface {
	ID() string
	Info() ModuleInfo
}

type closer interface{ Close() }

// entry wraps a registered value with its reference count.
type entry[T any] struct {
	value T
	refs  int
	gone  bool
}

// Registry holds every registered instance keyed by {kind, id}.
type Registry struct {
	log *zap.Logger

	mu        sync.Mutex
	modules   map[string]*entry[Module]
	browsers  map[string]*entry[browser.Browser]
	players   map[string]*entry[*player.Player]
	playlists map[string]*entry[*playlist.Playlist]

	// per-module child id sets, same handles as the global maps
	moduleBrowsers map[string][]string
	modulePlayers  map[string][]string
}

// New creates an empty registry.
func New(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		log:            log,
		modules:        map[string]*entry[Module]{},
		browsers:       map[string]*entry[browser.Browser]{},
		players:        map[string]*entry[*player.Player]{},
		playlists:      map[string]*entry[*playlist.Playlist]{},
		moduleBrowsers: map[string][]string{},
		modulePlayers:  map[string][]string{},
	}
}

func duplicate(kind string, id string) error {
	return jsonrpc.Errorf(jsonrpc.KindConflict, "%s %q already registered", kind, id)
}

// RegisterModule adds a module.
func (r *Registry) RegisterModule(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[m.ID()]; ok {
		return duplicate("module", m.ID())
	}
	r.modules[m.ID()] = &entry[Module]{value: m, refs: 1}
	r.log.Info("module registered", zap.String("id", m.ID()))
	return nil
}

// UnregisterModule removes a module and its child registrations.
func (r *Registry) UnregisterModule(id string) {
	r.mu.Lock()
	for _, bid := range r.moduleBrowsers[id] {
		dropLocked(r.browsers, bid)
	}
	for _, pid := range r.modulePlayers[id] {
		dropLocked(r.players, pid)
	}
	delete(r.moduleBrowsers, id)
	delete(r.modulePlayers, id)
	dropLocked(r.modules, id)
	r.mu.Unlock()
	r.log.Info("module unregistered", zap.String("id", id))
}

// GetModule returns the module and a release closure.
func (r *Registry) GetModule(id string) (Module, func(), bool) {
	return get(r, r.modules, id)
}

// Modules returns a point-in-time snapshot, sorted by id.
func (r *Registry) Modules() []Module {
	return list(r, r.modules)
}

// RegisterBrowser adds a browser globally and on its owning module. Both
// registrations share the same handle.
func (r *Registry) RegisterBrowser(moduleID string, b browser.Browser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.browsers[b.ID()]; ok {
		return duplicate("browser", b.ID())
	}
	if _, ok := r.modules[moduleID]; !ok {
		return jsonrpc.Errorf(jsonrpc.KindNotFound, "no module %q", moduleID)
	}
	r.browsers[b.ID()] = &entry[browser.Browser]{value: b, refs: 1}
	r.moduleBrowsers[moduleID] = append(r.moduleBrowsers[moduleID], b.ID())
	return nil
}

// GetBrowser returns the browser and a release closure.
func (r *Registry) GetBrowser(id string) (browser.Browser, func(), bool) {
	return get(r, r.browsers, id)
}

// Browsers returns a point-in-time snapshot, sorted by id.
func (r *Registry) Browsers() []browser.Browser {
	return list(r, r.browsers)
}

// ModuleBrowserIDs returns the browser ids owned by a module.
func (r *Registry) ModuleBrowserIDs(moduleID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.moduleBrowsers[moduleID]))
	copy(ids, r.moduleBrowsers[moduleID])
	return ids
}

// RegisterPlayer adds a player globally and on its owning module.
func (r *Registry) RegisterPlayer(moduleID string, p *player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[p.ID()]; ok {
		return duplicate("player", p.ID())
	}
	if _, ok := r.modules[moduleID]; !ok {
		return jsonrpc.Errorf(jsonrpc.KindNotFound, "no module %q", moduleID)
	}
	r.players[p.ID()] = &entry[*player.Player]{value: p, refs: 1}
	r.modulePlayers[moduleID] = append(r.modulePlayers[moduleID], p.ID())
	return nil
}

// GetPlayer returns the player and a release closure.
func (r *Registry) GetPlayer(id string) (*player.Player, func(), bool) {
	return get(r, r.players, id)
}

// Players returns a point-in-time snapshot, sorted by id.
func (r *Registry) Players() []*player.Player {
	return list(r, r.players)
}

// RegisterPlaylist adds a playlist.
func (r *Registry) RegisterPlaylist(p *playlist.Playlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.playlists[p.ID()]; ok {
		return duplicate("playlist", p.ID())
	}
	r.playlists[p.ID()] = &entry[*playlist.Playlist]{value: p, refs: 1}
	return nil
}

// UnregisterPlaylist removes a playlist.
func (r *Registry) UnregisterPlaylist(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropLocked(r.playlists, id)
}

// GetPlaylist returns the playlist and a release closure.
func (r *Registry) GetPlaylist(id string) (*playlist.Playlist, func(), bool) {
	return get(r, r.playlists, id)
}

// Playlists returns a point-in-time snapshot, sorted by id.
func (r *Registry) Playlists() []*playlist.Playlist {
	return list(r, r.playlists)
}

// dropLocked releases the registry's own reference and removes the entry
// from its map. The value is closed once the last outstanding user releases.
func dropLocked[T any](m map[string]*entry[T], id string) {
	e, ok := m[id]
	if !ok {
		return
	}
	delete(m, id)
	e.gone = true
	e.refs--
	if e.refs <= 0 {
		if c, ok := any(e.value).(closer); ok {
			c.Close()
		}
	}
}

func get[T any](r *Registry, m map[string]*entry[T], id string) (T, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := m[id]
	if !ok {
		var zero T
		return zero, func() {}, false
	}
	e.refs++
	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			e.refs--
			last := e.gone && e.refs <= 0
			r.mu.Unlock()
			if last {
				if c, ok := any(e.value).(closer); ok {
					c.Close()
				}
			}
		})
	}
	return e.value, release, true
}

func list[T any](r *Registry, m map[string]*entry[T]) []T {
	r.mu.Lock()
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id].value)
	}
	r.mu.Unlock()
	return out
}
