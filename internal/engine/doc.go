// Package engine provides the GStreamer-backed audio engine shared by the
// playback modules. Without the gstreamer build tag a stub that rejects all
// operations is compiled instead.
package engine
