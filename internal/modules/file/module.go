// Package file implements the local media module: a filesystem browser, a
// tag-database library browser and the local audio player with its playlist.
package file

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sparod/melo/internal/engine"
	"github.com/sparod/melo/internal/event"
	"github.com/sparod/melo/internal/filedb"
	"github.com/sparod/melo/internal/player"
	"github.com/sparod/melo/internal/playlist"
	"github.com/sparod/melo/internal/registry"
	"github.com/sparod/melo/internal/vfs"
)

// Component ids as exposed over JSON-RPC.
const (
	ModuleID   = "file"
	BrowserID  = "melo_browser_file"
	LibraryID  = "melo_library_file"
	PlayerID   = "melo_player_file"
	PlaylistID = "melo_playlist_file"
)

// Config configures the file module.
type Config struct {
	Roots     map[string]string
	DataDir   string
	Pipeline  string
	Device    string
	Crossfade time.Duration
}

// Module wires the file browsers, player and playlist into the registry for
// the lifetime of its Run loop.
type Module struct {
	log *zap.Logger
	reg *registry.Registry
	bus *event.Bus
	cfg Config
}

// NewModule creates the file module.
func NewModule(log *zap.Logger, reg *registry.Registry, bus *event.Bus, cfg Config) (*Module, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(cfg.Roots) == 0 {
		return nil, errors.New("at least one media root required")
	}
	if cfg.DataDir == "" {
		return nil, errors.New("data directory required")
	}
	return &Module{log: log, reg: reg, bus: bus, cfg: cfg}, nil
}

// ID returns the module identifier.
func (m *Module) ID() string { return ModuleID }

// Info describes the module.
func (m *Module) Info() registry.ModuleInfo {
	return registry.ModuleInfo{
		Name:        "Files",
		Description: "Browse and play local media files",
		ConfigID:    ModuleID,
	}
}

// Run registers the module's components and blocks until the context ends.
func (m *Module) Run(ctx context.Context) error {
	db, err := filedb.Open(
		filepath.Join(m.cfg.DataDir, "file", "tags.db"),
		filepath.Join(m.cfg.DataDir, "file", "covers"),
		m.log.Named("filedb"))
	if err != nil {
		return err
	}
	defer db.Close()

	fs := vfs.NewLocal(m.cfg.Roots)

	pl := playlist.New(PlaylistID, m.log.Named("playlist"), m.bus)
	p := player.New(PlayerID, "Local player", m.log.Named("player"), m.bus)
	p.BindPlaylist(pl)
	pl.BindPlayer(p)

	eng, err := engine.New(p, m.cfg.Pipeline, m.cfg.Device, m.cfg.Crossfade)
	if err != nil {
		m.log.Warn("audio engine unavailable", zap.Error(err))
	} else {
		p.SetEngine(eng)
		defer eng.Close()
	}

	if err := m.reg.RegisterModule(m); err != nil {
		return err
	}
	defer m.reg.UnregisterModule(ModuleID)

	if err := m.reg.RegisterPlaylist(pl); err != nil {
		return err
	}
	defer m.reg.UnregisterPlaylist(PlaylistID)

	if err := m.reg.RegisterPlayer(ModuleID, p); err != nil {
		return err
	}
	if err := m.reg.RegisterBrowser(ModuleID, newFileBrowser(m.log.Named("browser"), fs, db, p, m.bus)); err != nil {
		return err
	}
	if err := m.reg.RegisterBrowser(ModuleID, newLibraryBrowser(m.log.Named("library"), db, p)); err != nil {
		return err
	}

	m.log.Info("file module started", zap.Int("roots", len(m.cfg.Roots)))
	<-ctx.Done()
	p.Stop()
	return nil
}
