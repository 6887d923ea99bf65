// Package vfs abstracts filesystem enumeration for the file browser. The
// browser only ever sees URIs, root descriptors and directory entries, so
// network shares or removable volumes can back the same contract.
package vfs

import (
	"context"
	"time"
)

// EntryType classifies a directory listing entry.
type EntryType int

const (
	EntryDir EntryType = iota
	EntryFile
)

// Root is a top-level location the browser offers, such as a configured
// media directory or a mounted volume.
type Root struct {
	ID        string
	Name      string
	URI       string
	Removable bool
}

// Entry is one child of a listed directory.
type Entry struct {
	Name string
	URI  string
	Type EntryType
}

// Info is the result of probing a URI.
type Info struct {
	Exists    bool
	Dir       bool
	Size      int64
	Timestamp time.Time
}

// FS is the virtual filesystem capability the file browser depends on.
type FS interface {
	ListRoots(ctx context.Context) ([]Root, error)
	ListDir(ctx context.Context, uri string) ([]Entry, error)
	ResolveShortcut(ctx context.Context, uri string) (string, error)
	Probe(ctx context.Context, uri string) (Info, error)
	Eject(ctx context.Context, id string) error
}
