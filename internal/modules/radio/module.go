// Package radio implements the web radio module: a browser over configured
// station feeds and a player for the streams they carry.
package radio

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sparod/melo/internal/engine"
	"github.com/sparod/melo/internal/event"
	"github.com/sparod/melo/internal/player"
	"github.com/sparod/melo/internal/playlist"
	"github.com/sparod/melo/internal/registry"
)

// Component ids as exposed over JSON-RPC.
const (
	ModuleID   = "radio"
	BrowserID  = "melo_browser_radio"
	PlayerID   = "melo_player_radio"
	PlaylistID = "melo_playlist_radio"
)

// Config configures the radio module.
type Config struct {
	Feeds      map[string]string
	RefreshTTL time.Duration
	Pipeline   string
	Device     string
}

// Module wires the radio browser, player and playlist into the registry for
// the lifetime of its Run loop.
type Module struct {
	log *zap.Logger
	reg *registry.Registry
	bus *event.Bus
	cfg Config
}

// NewModule creates the radio module.
func NewModule(log *zap.Logger, reg *registry.Registry, bus *event.Bus, cfg Config) (*Module, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(cfg.Feeds) == 0 {
		return nil, errors.New("at least one station feed required")
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * time.Minute
	}
	return &Module{log: log, reg: reg, bus: bus, cfg: cfg}, nil
}

// ID returns the module identifier.
func (m *Module) ID() string { return ModuleID }

// Info describes the module.
func (m *Module) Info() registry.ModuleInfo {
	return registry.ModuleInfo{
		Name:        "Radio",
		Description: "Listen to web radio stations",
		ConfigID:    ModuleID,
	}
}

// Run registers the module's components and blocks until the context ends.
func (m *Module) Run(ctx context.Context) error {
	pl := playlist.New(PlaylistID, m.log.Named("playlist"), m.bus)
	p := player.New(PlayerID, "Radio player", m.log.Named("player"), m.bus)
	p.BindPlaylist(pl)
	pl.BindPlayer(p)

	eng, err := engine.New(p, m.cfg.Pipeline, m.cfg.Device, 0)
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
	if err := m.reg.RegisterBrowser(ModuleID, newBrowser(m.log.Named("browser"), m.cfg, p)); err != nil {
		return err
	}

	m.log.Info("radio module started", zap.Int("feeds", len(m.cfg.Feeds)))
	<-ctx.Done()
	p.Stop()
	return nil
}
