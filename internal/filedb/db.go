// Package filedb implements the on-disk media tag database shared by the
// file and library browsers: a normalized sqlite schema with interned
// artist, album, genre and path dimensions, plus a content-addressed cover
// store.
//
// The database is a rebuildable cache, not a system of record: when the
// stored user_version is behind the current schema version, every table is
// dropped and recreated.
package filedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/pkg/tags"
)

const schemaVersion = 2

const schemaSQL = `
CREATE TABLE song (
    title       TEXT,
    artist_id   INTEGER,
    album_id    INTEGER,
    genre_id    INTEGER,
    date        INTEGER,
    track       INTEGER,
    tracks      INTEGER,
    cover       TEXT,
    file        TEXT NOT NULL,
    path_id     INTEGER,
    timestamp   INTEGER
);
CREATE TABLE artist (name TEXT NOT NULL UNIQUE);
CREATE TABLE album  (name TEXT NOT NULL UNIQUE);
CREATE TABLE genre  (name TEXT NOT NULL UNIQUE);
CREATE TABLE path   (path TEXT NOT NULL UNIQUE);
CREATE UNIQUE INDEX song_identity ON song (path_id, file);
`

const dropSQL = `
DROP TABLE IF EXISTS song;
DROP TABLE IF EXISTS artist;
DROP TABLE IF EXISTS album;
DROP TABLE IF EXISTS genre;
DROP TABLE IF EXISTS path;
`

// noneValue substitutes absent string tags so every song resolves to a
// dimension row.
const noneValue = "None"

// DB wraps the sqlite handle and the cover directory. Writes are serialized
// by a mutex around the handle.
type DB struct {
	log      *zap.Logger
	coverDir string

	mu sync.Mutex
	db *sql.DB
}

// Open opens or creates the database file and the cover directory.
func Open(file string, coverDir string, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	if err := os.MkdirAll(coverDir, 0o700); err != nil {
		return nil, fmt.Errorf("create cover directory: %w", err)
	}

	handle, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{log: log, coverDir: coverDir, db: handle}
	if err := db.bootstrap(); err != nil {
		_ = handle.Close()
		return nil, err
	}
	return db, nil
}

// bootstrap checks the stored schema version and rebuilds on mismatch.
func (d *DB) bootstrap() error {
	var version int
	if err := d.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}
	if version > 0 {
		d.log.Info("rebuilding media database",
			zap.Int("stored_version", version),
			zap.Int("schema_version", schemaVersion))
	}
	if _, err := d.db.Exec(dropSQL); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	if _, err := d.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if _, err := d.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("store schema version: %w", err)
	}
	return nil
}

// Close closes the underlying handle.
func (d *DB) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db != nil {
		_ = d.db.Close()
		d.db = nil
	}
}

// CoverDir returns the cover store directory.
func (d *DB) CoverDir() string { return d.coverDir }

// internString returns the rowid of value in the named dimension table,
// inserting it first when missing. Empty values intern as "None".
func internString(tx *sql.Tx, table string, column string, value string) (int64, error) {
	if value == "" {
		value = noneValue
	}
	var id int64
	query := fmt.Sprintf("SELECT rowid FROM %s WHERE %s = ?", table, column)
	err := tx.QueryRow(query, value).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := tx.Exec(fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", table, column), value)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AddTags indexes one media file. Re-adding with an unchanged timestamp is a
// no-op. When the tags carry a raw cover it is written to the cover store and
// the stored filename returned.
func (d *DB) AddTags(ctx context.Context, path string, file string, timestamp int64, t tags.Tags) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return "", jsonrpc.Errorf(jsonrpc.KindBackend, "database closed")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", jsonrpc.Wrap(jsonrpc.KindBackend, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	pathID, err := internString(tx, "path", "path", path)
	if err != nil {
		return "", jsonrpc.Wrap(jsonrpc.KindBackend, "intern path", err)
	}

	var songID, storedTS int64
	err = tx.QueryRowContext(ctx,
		"SELECT rowid, timestamp FROM song WHERE path_id = ? AND file = ?",
		pathID, file).Scan(&songID, &storedTS)
	switch {
	case err == nil:
		if storedTS == timestamp {
			// already indexed and up to date
			var cover sql.NullString
			_ = tx.QueryRowContext(ctx,
				"SELECT cover FROM song WHERE rowid = ?", songID).Scan(&cover)
			return cover.String, tx.Commit()
		}
	case err != sql.ErrNoRows:
		return "", jsonrpc.Wrap(jsonrpc.KindBackend, "lookup song", err)
	}

	artistID, err := internString(tx, "artist", "name", t.Artist)
	if err != nil {
		return "", jsonrpc.Wrap(jsonrpc.KindBackend, "intern artist", err)
	}
	albumID, err := internString(tx, "album", "name", t.Album)
	if err != nil {
		return "", jsonrpc.Wrap(jsonrpc.KindBackend, "intern album", err)
	}
	genreID, err := internString(tx, "genre", "name", t.Genre)
	if err != nil {
		return "", jsonrpc.Wrap(jsonrpc.KindBackend, "intern genre", err)
	}

	coverFile := ""
	if len(t.Cover) > 0 {
		coverFile, err = d.storeCover(t.Cover, t.CoverMIME)
		if err != nil {
			return "", err
		}
	}

	title := t.Title
	if title == "" {
		title = noneValue
	}

	if songID == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO song (title, artist_id, album_id, genre_id, date, track,
			                   tracks, cover, file, path_id, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			title, artistID, albumID, genreID, t.Date, t.Track, t.Tracks,
			coverFile, file, pathID, timestamp)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE song SET title = ?, artist_id = ?, album_id = ?, genre_id = ?,
			                 date = ?, track = ?, tracks = ?, cover = ?, timestamp = ?
			 WHERE rowid = ?`,
			title, artistID, albumID, genreID, t.Date, t.Track, t.Tracks,
			coverFile, timestamp, songID)
	}
	if err != nil {
		return "", jsonrpc.Wrap(jsonrpc.KindBackend, "store song", err)
	}
	if err := tx.Commit(); err != nil {
		return "", jsonrpc.Wrap(jsonrpc.KindBackend, "commit", err)
	}
	return coverFile, nil
}

// GetTags returns the tag set of the first song matching the filters plus
// its stored cover filename, or a NotFound error.
func (d *DB) GetTags(ctx context.Context, fields tags.Fields, filters ...Filter) (*tags.Tags, string, error) {
	var (
		found *tags.Tags
		cover string
	)
	err := d.List(ctx, ListParams{
		Type:   TypeSong,
		Count:  1,
		Fields: fields,
	}, filters, func(e Entry) error {
		t := e.Tags
		found = &t
		cover = e.Cover
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	if found == nil {
		return nil, "", jsonrpc.Errorf(jsonrpc.KindNotFound, "no matching song")
	}
	return found, cover, nil
}
