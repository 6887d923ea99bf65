package filedb

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/pkg/tags"
)

// storeCover writes the cover data under its MD5 digest so identical art
// shared by many songs is stored once.
func (d *DB) storeCover(data []byte, mime string) (string, error) {
	sum := md5.Sum(data)
	name := hex.EncodeToString(sum[:]) + tags.CoverExt(mime)
	dest := filepath.Join(d.coverDir, name)
	if _, err := os.Stat(dest); err == nil {
		return name, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", jsonrpc.Wrap(jsonrpc.KindBackend, "stat cover", err)
	}
	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return "", jsonrpc.Wrap(jsonrpc.KindBackend, "write cover", err)
	}
	return name, nil
}

// CoverPath resolves a stored cover filename to its path inside the cover
// directory, rejecting names that escape it.
func (d *DB) CoverPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", jsonrpc.Errorf(jsonrpc.KindBadRequest, "invalid cover name %q", name)
	}
	p := filepath.Join(d.coverDir, name)
	if _, err := os.Stat(p); err != nil {
		return "", jsonrpc.Errorf(jsonrpc.KindNotFound, "cover %s not found", name)
	}
	return p, nil
}
