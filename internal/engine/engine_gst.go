//go:build gstreamer

package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"

	"github.com/sparod/melo/internal/player"
	"github.com/sparod/melo/pkg/tags"
)

const defaultPipeline = "playbin uri={url} volume={volume}"

// Engine drives a GStreamer pipeline and feeds its bus messages back into
// the player.
type Engine struct {
	sink     player.Events
	template string
	device   string

	mu      sync.Mutex
	uri     string
	volume  float64
	muted   bool
	current *gst.Element
	stop    chan struct{}
	done    sync.WaitGroup
}

var gstInitOnce sync.Once

func New(sink player.Events, template string, device string, _ time.Duration) (*Engine, error) {
	if strings.TrimSpace(template) == "" {
		template = defaultPipeline
	}
	gstInitOnce.Do(func() {
		gst.Init(nil)
	})
	return &Engine{sink: sink, template: template, device: device, volume: 1.0}, nil
}

// SetURI tears down any running pipeline and builds a fresh one for the
// media, left in the ready state until Play or Pause.
func (e *Engine) SetURI(uri string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.teardownLocked()
	e.uri = uri

	pipeline := e.template
	pipeline = strings.ReplaceAll(pipeline, "{url}", uri)
	pipeline = strings.ReplaceAll(pipeline, "{device}", e.device)
	pipeline = strings.ReplaceAll(pipeline, "{volume}", fmt.Sprintf("%0.2f", e.effectiveVolumeLocked()))

	el, err := gst.ParseLaunch(pipeline)
	if err != nil {
		return err
	}
	e.current = el
	e.stop = make(chan struct{})
	e.done.Add(2)
	go e.watchBus(el, e.stop)
	go e.pollPosition(el, e.stop)
	return nil
}

func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return errors.New("no media loaded")
	}
	return e.current.SetState(gst.StatePlaying)
}

func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return errors.New("no media loaded")
	}
	return e.current.SetState(gst.StatePaused)
}

func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardownLocked()
	return nil
}

func (e *Engine) Seek(posMS int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return errors.New("no media loaded")
	}
	posNS := posMS * int64(time.Millisecond)
	return e.current.SeekSimple(gst.FormatTime, gst.SeekFlagFlush|gst.SeekFlagKeyUnit, posNS)
}

func (e *Engine) SetVolume(v float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
	if e.current != nil {
		_ = e.current.SetProperty("volume", e.effectiveVolumeLocked())
	}
	return nil
}

func (e *Engine) SetMute(mute bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = mute
	if e.current != nil {
		_ = e.current.SetProperty("volume", e.effectiveVolumeLocked())
	}
	return nil
}

// Close releases the running pipeline.
func (e *Engine) Close() {
	e.mu.Lock()
	e.teardownLocked()
	e.mu.Unlock()
	e.done.Wait()
}

func (e *Engine) teardownLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
	if e.current != nil {
		_ = e.current.SetState(gst.StateNull)
		e.current = nil
	}
}

func (e *Engine) effectiveVolumeLocked() float64 {
	if e.muted {
		return 0
	}
	return e.volume
}

// watchBus translates pipeline messages into player events.
func (e *Engine) watchBus(el *gst.Element, stop chan struct{}) {
	defer e.done.Done()
	bus := el.GetBus()
	for {
		select {
		case <-stop:
			return
		default:
		}
		msg := bus.TimedPop(gst.ClockTime(100 * time.Millisecond))
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageStreamStart:
			e.sink.OnStreamStart()
		case gst.MessageDurationChanged:
			if ok, dur := el.QueryDuration(gst.FormatTime); ok {
				e.sink.OnDuration(dur / int64(time.Millisecond))
			}
		case gst.MessageTag:
			if tl := msg.ParseTags(); tl != nil {
				e.sink.OnTags(tagsFromList(tl))
			}
		case gst.MessageBuffering:
			if s := msg.GetStructure(); s != nil {
				if v, err := s.GetValue("buffer-percent"); err == nil {
					if percent, ok := v.(int); ok {
						e.sink.OnBuffering(percent)
					}
				}
			}
		case gst.MessageEOS:
			e.sink.OnEOS()
		case gst.MessageError:
			e.sink.OnError(msg.ParseError())
		}
	}
}

// pollPosition reports playback progress once a second.
func (e *Engine) pollPosition(el *gst.Element, stop chan struct{}) {
	defer e.done.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if ok, pos := el.QueryPosition(gst.FormatTime); ok {
				e.sink.OnPosition(pos / int64(time.Millisecond))
			}
		}
	}
}

func tagsFromList(tl *gst.TagList) tags.Tags {
	var t tags.Tags
	if v, ok := tl.GetString(gst.TagTitle); ok {
		t.Title = v
	}
	if v, ok := tl.GetString(gst.TagArtist); ok {
		t.Artist = v
	}
	if v, ok := tl.GetString(gst.TagAlbum); ok {
		t.Album = v
	}
	if v, ok := tl.GetString(gst.TagGenre); ok {
		t.Genre = v
	}
	return t
}
