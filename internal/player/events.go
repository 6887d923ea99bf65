package player

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sparod/melo/pkg/tags"
)

// Engine event handling. The engine calls these from its own goroutine; each
// handler takes the player mutex, never the other way around.

// OnStreamStart moves a loading state to its steady counterpart.
func (p *Player) OnStreamStart() {
	p.mu.Lock()
	switch p.status.State {
	case StateLoading:
		p.status.State = StatePlaying
	case StatePausedLoading:
		p.status.State = StatePaused
	default:
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.notify()
}

// OnDuration records the media duration.
func (p *Player) OnDuration(ms int64) {
	p.mu.Lock()
	p.status.DurationMS = ms
	if p.status.PosMS > ms && ms > 0 {
		p.status.PosMS = ms
	}
	p.mu.Unlock()
	p.notify()
}

// OnPosition records the playback position, clamped to the known duration.
func (p *Player) OnPosition(ms int64) {
	p.mu.Lock()
	if ms < 0 {
		ms = 0
	}
	if p.status.DurationMS > 0 && ms > p.status.DurationMS {
		ms = p.status.DurationMS
	}
	p.status.PosMS = ms
	p.mu.Unlock()
	p.notify()
}

// OnTags merges new tags into the current set, later fields winning. A raw
// cover is kept aside and exposed through the player asset URL.
func (p *Player) OnTags(t tags.Tags) {
	p.mu.Lock()
	if len(t.Cover) > 0 {
		p.cover = t.Cover
		p.coverMIME = t.CoverMIME
		t.Cover = nil
		mime := t.CoverMIME
		t.CoverMIME = ""
		t.CoverURL = fmt.Sprintf("/asset/player/%s/cover%s", p.id, tags.CoverExt(mime))
	}
	if p.status.Tags == nil {
		p.status.Tags = &tags.Tags{}
	}
	p.status.Tags.Merge(t)
	p.mu.Unlock()
	p.notify()
}

// OnBuffering tracks stream buffering. Below 100 percent playback degrades
// to a buffering state; at 100 it resumes.
func (p *Player) OnBuffering(percent int) {
	p.mu.Lock()
	p.status.BufferPercent = percent
	if percent < 100 {
		switch p.status.State {
		case StatePlaying, StateLoading:
			p.status.State = StateBuffering
		case StatePaused, StatePausedLoading:
			p.status.State = StatePausedBuffering
		}
	} else {
		switch p.status.State {
		case StateBuffering:
			p.status.State = StatePlaying
		case StatePausedBuffering:
			p.status.State = StatePaused
		}
	}
	p.mu.Unlock()
	p.notify()
}

// OnEOS advances to the next playlist entry, stopping when exhausted.
func (p *Player) OnEOS() {
	if err := p.Next(context.Background()); err != nil {
		p.log.Debug("end of playlist", zap.Error(err))
		p.Stop()
	}
}

// OnError surfaces an engine failure. The next load or play clears it.
func (p *Player) OnError(err error) {
	p.mu.Lock()
	p.status.State = StateError
	p.status.Error = err.Error()
	p.mu.Unlock()
	p.log.Warn("engine error", zap.String("player", p.id), zap.Error(err))
	p.notify()
}
