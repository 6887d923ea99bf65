//go:build !gstreamer

package engine

import (
	"errors"
	"time"

	"github.com/sparod/melo/internal/player"
)

// Engine is a stub when the gstreamer tag is not enabled.
type Engine struct{}

func New(_ player.Events, _ string, _ string, _ time.Duration) (*Engine, error) {
	return nil, errors.New("gstreamer build tag not enabled")
}

func (e *Engine) SetURI(string) error     { return errors.New("gstreamer build tag not enabled") }
func (e *Engine) Play() error             { return errors.New("gstreamer build tag not enabled") }
func (e *Engine) Pause() error            { return errors.New("gstreamer build tag not enabled") }
func (e *Engine) Stop() error             { return errors.New("gstreamer build tag not enabled") }
func (e *Engine) Seek(int64) error        { return errors.New("gstreamer build tag not enabled") }
func (e *Engine) SetVolume(float64) error { return errors.New("gstreamer build tag not enabled") }
func (e *Engine) SetMute(bool) error      { return errors.New("gstreamer build tag not enabled") }
func (e *Engine) Close()                  {}
