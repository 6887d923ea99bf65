package vfs

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sparod/melo/internal/jsonrpc"
)

// Local serves configured directories as fixed roots over file:// URIs.
type Local struct {
	roots []Root
}

// NewLocal builds a Local from a name to directory mapping. Root ids are the
// map keys.
func NewLocal(dirs map[string]string) *Local {
	l := &Local{}
	for id, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			abs = dir
		}
		l.roots = append(l.roots, Root{
			ID:   id,
			Name: id,
			URI:  pathToURI(abs),
		})
	}
	sort.Slice(l.roots, func(i, j int) bool { return l.roots[i].ID < l.roots[j].ID })
	return l
}

func (l *Local) ListRoots(_ context.Context) ([]Root, error) {
	out := make([]Root, len(l.roots))
	copy(out, l.roots)
	return out, nil
}

func (l *Local) ListDir(_ context.Context, uri string) ([]Entry, error) {
	dir, err := l.uriToPath(uri)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, jsonrpc.Wrap(jsonrpc.KindNotFound, "list directory", err)
	}
	var out []Entry
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		t := EntryFile
		if e.IsDir() {
			t = EntryDir
		}
		out = append(out, Entry{
			Name: e.Name(),
			URI:  pathToURI(filepath.Join(dir, e.Name())),
			Type: t,
		})
	}
	return out, nil
}

func (l *Local) ResolveShortcut(_ context.Context, uri string) (string, error) {
	p, err := l.uriToPath(uri)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", jsonrpc.Wrap(jsonrpc.KindNotFound, "resolve shortcut", err)
	}
	return pathToURI(resolved), nil
}

func (l *Local) Probe(_ context.Context, uri string) (Info, error) {
	p, err := l.uriToPath(uri)
	if err != nil {
		return Info{}, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, nil
		}
		return Info{}, jsonrpc.Wrap(jsonrpc.KindBackend, "probe", err)
	}
	return Info{
		Exists:    true,
		Dir:       fi.IsDir(),
		Size:      fi.Size(),
		Timestamp: fi.ModTime(),
	}, nil
}

// Eject is meaningless for fixed directories.
func (l *Local) Eject(_ context.Context, id string) error {
	return jsonrpc.Errorf(jsonrpc.KindNotFound, "root %s is not removable", id)
}

// uriToPath converts a file:// URI to a local path and verifies it sits
// under one of the configured roots.
func (l *Local) uriToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return "", jsonrpc.Errorf(jsonrpc.KindBadRequest, "invalid file uri %q", uri)
	}
	p := filepath.Clean(u.Path)
	for _, r := range l.roots {
		root := filepath.Clean(strings.TrimPrefix(r.URI, "file://"))
		if p == root || strings.HasPrefix(p, root+string(filepath.Separator)) {
			return p, nil
		}
	}
	return "", jsonrpc.Errorf(jsonrpc.KindUnauthorized, "path outside configured roots")
}

func pathToURI(p string) string {
	return "file://" + filepath.ToSlash(p)
}
