// Package player implements the playback state machine driving an audio
// engine and a linked playlist.
package player

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/sparod/melo/internal/event"
	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/internal/playlist"
	"github.com/sparod/melo/pkg/tags"
)

// State is the playback state.
type State int

// Playback states.
const (
	StateNone State = iota
	StateLoading
	StatePausedLoading
	StatePausedBuffering
	StatePaused
	StateBuffering
	StatePlaying
	StateStopped
	StateError
)

var stateNames = map[State]string{
	StateNone:            "none",
	StateLoading:         "loading",
	StatePausedLoading:   "paused_loading",
	StatePausedBuffering: "paused_buffering",
	StatePaused:          "paused",
	StateBuffering:       "buffering",
	StatePlaying:         "playing",
	StateStopped:         "stopped",
	StateError:           "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "none"
}

// MarshalJSON renders the wire name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ParseState converts a wire string to a state.
func ParseState(s string) (State, bool) {
	for state, name := range stateNames {
		if name == s {
			return state, true
		}
	}
	return StateNone, false
}

// Status is the observable player state.
type Status struct {
	State         State      `json:"state"`
	Name          string     `json:"name"`
	DurationMS    int64      `json:"duration_ms"`
	PosMS         int64      `json:"pos_ms"`
	Volume        float64    `json:"volume"`
	Mute          bool       `json:"mute"`
	BufferPercent int        `json:"buffer_percent"`
	Error         string     `json:"error,omitempty"`
	Tags          *tags.Tags `json:"tags,omitempty"`
	HasPrev       bool       `json:"has_prev"`
	HasNext       bool       `json:"has_next"`
}

// Engine is the audio pipeline contract. Implementations report progress
// through the Events sink installed at construction.
type Engine interface {
	SetURI(uri string) error
	Play() error
	Pause() error
	Stop() error
	Seek(posMS int64) error
	SetVolume(v float64) error
	SetMute(mute bool) error
}

// Events is the sink for engine notifications, implemented by Player.
type Events interface {
	OnStreamStart()
	OnDuration(ms int64)
	OnPosition(ms int64)
	OnTags(t tags.Tags)
	OnBuffering(percent int)
	OnEOS()
	OnError(err error)
}

// Queue is the playlist side of the player/playlist link, set once.
type Queue interface {
	Add(item playlist.Item, setCurrent bool) string
	GetPrev(advance bool) (uri string, name string, ok bool)
	GetNext(advance bool) (uri string, name string, ok bool)
	HasPrev() bool
	HasNext() bool
}

// Player binds one audio engine to its status and playlist.
type Player struct {
	id   string
	name string
	log  *zap.Logger
	bus  *event.Bus

	mu        sync.Mutex
	engine    Engine
	queue     Queue
	status    Status
	cover     []byte
	coverMIME string
}

// New creates a player with an empty status. The engine is attached with
// SetEngine once it exists, as it needs the player as its event sink.
func New(id string, name string, log *zap.Logger, bus *event.Bus) *Player {
	if log == nil {
		log = zap.NewNop()
	}
	return &Player{
		id:   id,
		name: name,
		log:  log,
		bus:  bus,
		status: Status{
			State:  StateNone,
			Name:   name,
			Volume: 1.0,
		},
	}
}

// ID returns the player identifier.
func (p *Player) ID() string { return p.id }

// Name returns the display name.
func (p *Player) Name() string { return p.name }

// SetEngine attaches the audio engine. The link is set once.
func (p *Player) SetEngine(e Engine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine == nil {
		p.engine = e
	}
}

// BindPlaylist attaches the playlist link. The link is set once.
func (p *Player) BindPlaylist(q Queue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queue == nil {
		p.queue = q
	}
}

// Status returns a copy of the current status with playlist reachability
// filled in.
func (p *Player) Status() Status {
	p.mu.Lock()
	status := p.status
	queue := p.queue
	p.mu.Unlock()
	if queue != nil {
		status.HasPrev = queue.HasPrev()
		status.HasNext = queue.HasNext()
	}
	return status
}

// Cover returns the raw cover of the current media, if the player holds one.
func (p *Player) Cover() ([]byte, string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.cover) == 0 {
		return nil, "", false
	}
	return p.cover, p.coverMIME, true
}

// Add appends the media to the linked playlist without touching playback.
func (p *Player) Add(ctx context.Context, uri string, name string, t *tags.Tags) error {
	queue := p.linkedQueue()
	if queue == nil {
		return jsonrpc.Errorf(jsonrpc.KindInternal, "player has no playlist")
	}
	queue.Add(playlist.Item{
		Name:      name,
		URI:       uri,
		Tags:      t,
		CanPlay:   true,
		CanRemove: true,
	}, true)
	p.notify()
	return nil
}

// Load prepares the media without starting playback. With insert the media
// also becomes the playlist's current entry. With startStopped the engine is
// left idle and the state is Stopped.
func (p *Player) Load(ctx context.Context, uri string, name string, t *tags.Tags, insert bool, startStopped bool) error {
	if insert {
		if queue := p.linkedQueue(); queue != nil {
			queue.Add(playlist.Item{
				Name:      name,
				URI:       uri,
				Tags:      t,
				CanPlay:   true,
				CanRemove: true,
			}, true)
		}
	}
	engine, err := p.prepare(uri, name, t)
	if err != nil {
		return err
	}
	if startStopped {
		p.setState(StateStopped)
		return nil
	}
	if err := engine.Pause(); err != nil {
		return p.engineError("pause", err)
	}
	p.setState(StatePausedLoading)
	return nil
}

// Play starts the media. With insert it also becomes the playlist's current
// entry.
func (p *Player) Play(ctx context.Context, uri string, name string, t *tags.Tags, insert bool) error {
	if insert {
		if queue := p.linkedQueue(); queue != nil {
			queue.Add(playlist.Item{
				Name:      name,
				URI:       uri,
				Tags:      t,
				CanPlay:   true,
				CanRemove: true,
			}, true)
		}
	}
	engine, err := p.prepare(uri, name, t)
	if err != nil {
		return err
	}
	if err := engine.Play(); err != nil {
		return p.engineError("play", err)
	}
	p.setState(StateLoading)
	return nil
}

// PlayURI satisfies the playlist Controller link.
func (p *Player) PlayURI(ctx context.Context, uri string, name string, t *tags.Tags) error {
	return p.Play(ctx, uri, name, t, false)
}

// Prev plays the previous (older) playlist entry.
func (p *Player) Prev(ctx context.Context) error {
	queue := p.linkedQueue()
	if queue == nil {
		return jsonrpc.Errorf(jsonrpc.KindInternal, "player has no playlist")
	}
	uri, name, ok := queue.GetPrev(false)
	if !ok {
		return jsonrpc.Errorf(jsonrpc.KindNotFound, "no previous media")
	}
	if err := p.Play(ctx, uri, name, nil, false); err != nil {
		return err
	}
	// move the cursor only once the media actually started
	queue.GetPrev(true)
	return nil
}

// Next plays the next (newer) playlist entry.
func (p *Player) Next(ctx context.Context) error {
	queue := p.linkedQueue()
	if queue == nil {
		return jsonrpc.Errorf(jsonrpc.KindInternal, "player has no playlist")
	}
	uri, name, ok := queue.GetNext(false)
	if !ok {
		return jsonrpc.Errorf(jsonrpc.KindNotFound, "no next media")
	}
	if err := p.Play(ctx, uri, name, nil, false); err != nil {
		return err
	}
	queue.GetNext(true)
	return nil
}

// SetState requests a playing, paused or stopped transition.
func (p *Player) SetState(s State) error {
	engine := p.linkedEngine()
	if engine == nil {
		return jsonrpc.Errorf(jsonrpc.KindBackend, "no audio engine")
	}
	switch s {
	case StatePlaying:
		if err := engine.Play(); err != nil {
			return p.engineError("play", err)
		}
	case StatePaused:
		if err := engine.Pause(); err != nil {
			return p.engineError("pause", err)
		}
	case StateStopped:
		if err := engine.Stop(); err != nil {
			return p.engineError("stop", err)
		}
	default:
		return jsonrpc.Errorf(jsonrpc.KindInvalidParams, "state %q cannot be requested", s)
	}
	p.setState(s)
	return nil
}

// SetPos seeks the current media.
func (p *Player) SetPos(posMS int64) error {
	engine := p.linkedEngine()
	if engine == nil {
		return jsonrpc.Errorf(jsonrpc.KindBackend, "no audio engine")
	}
	p.mu.Lock()
	if posMS < 0 {
		posMS = 0
	}
	if p.status.DurationMS > 0 && posMS > p.status.DurationMS {
		posMS = p.status.DurationMS
	}
	p.mu.Unlock()
	if err := engine.Seek(posMS); err != nil {
		return jsonrpc.Wrap(jsonrpc.KindBackend, "seek failed", err)
	}
	p.mu.Lock()
	p.status.PosMS = posMS
	p.mu.Unlock()
	p.notify()
	return nil
}

// SetVolume sets the volume, clamped to [0, 1].
func (p *Player) SetVolume(v float64) error {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	engine := p.linkedEngine()
	if engine != nil {
		if err := engine.SetVolume(v); err != nil {
			return jsonrpc.Wrap(jsonrpc.KindBackend, "set volume failed", err)
		}
	}
	p.mu.Lock()
	p.status.Volume = v
	p.mu.Unlock()
	p.notify()
	return nil
}

// SetMute sets the mute flag.
func (p *Player) SetMute(mute bool) error {
	engine := p.linkedEngine()
	if engine != nil {
		if err := engine.SetMute(mute); err != nil {
			return jsonrpc.Wrap(jsonrpc.KindBackend, "set mute failed", err)
		}
	}
	p.mu.Lock()
	p.status.Mute = mute
	p.mu.Unlock()
	p.notify()
	return nil
}

// Stop halts playback, satisfying the playlist Controller link.
func (p *Player) Stop() {
	if engine := p.linkedEngine(); engine != nil {
		if err := engine.Stop(); err != nil {
			p.log.Warn("engine stop failed", zap.Error(err))
		}
	}
	p.setState(StateStopped)
}

// prepare resets the status for a new media and points the engine at it.
func (p *Player) prepare(uri string, name string, t *tags.Tags) (Engine, error) {
	p.mu.Lock()
	engine := p.engine
	if engine == nil {
		p.mu.Unlock()
		return nil, jsonrpc.Errorf(jsonrpc.KindBackend, "no audio engine")
	}
	display := name
	if display == "" {
		display = p.name
	}
	p.status.Name = display
	p.status.DurationMS = 0
	p.status.PosMS = 0
	p.status.BufferPercent = 0
	p.status.Error = ""
	p.status.Tags = nil
	if t != nil {
		merged := *t
		p.status.Tags = &merged
	}
	p.cover = nil
	p.coverMIME = ""
	p.mu.Unlock()

	if err := engine.SetURI(uri); err != nil {
		return nil, p.engineError("set uri", err)
	}
	return engine, nil
}

func (p *Player) linkedQueue() Queue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue
}

func (p *Player) linkedEngine() Engine {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine
}

func (p *Player) setState(s State) {
	p.mu.Lock()
	p.status.State = s
	p.mu.Unlock()
	p.notify()
}

func (p *Player) engineError(op string, err error) error {
	p.mu.Lock()
	p.status.State = StateError
	p.status.Error = err.Error()
	p.mu.Unlock()
	p.notify()
	return jsonrpc.Wrap(jsonrpc.KindBackend, op+" failed", err)
}

// notify publishes the current status on the event bus.
func (p *Player) notify() {
	if p.bus == nil {
		return
	}
	status := p.Status()
	payload, err := json.Marshal(status)
	if err != nil {
		p.log.Error("marshal player status", zap.Error(err))
		return
	}
	p.bus.Emit(event.KindPlayer, p.id, payload)
}
