// Package chatdb bundles the two analytics databases behind one handle: the
// message archive and the contact roster. Both files are produced by an
// external collector and may be missing or mid-replacement at any time, so
// the facade opens lazily and lets each query report availability itself.
package chatdb

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/Mymoliy/echotrace/internal/chatdb/datasource/sqlite"
	"github.com/Mymoliy/echotrace/internal/chatdb/dbm"
)

type DB struct {
	manager  *dbm.DBManager
	messages *sqlite.MessageSource
	roster   *sqlite.RosterSource
}

// Open prepares sources for the given database files and starts watching
// their directories for replacements. Missing files are not an error here:
// queries against an absent database fail individually and the analytics
// layer substitutes defaults.
func Open(archivePath, rosterPath string) (*DB, error) {
	archivePath, err := filepath.Abs(archivePath)
	if err != nil {
		return nil, err
	}
	rosterPath, err = filepath.Abs(rosterPath)
	if err != nil {
		return nil, err
	}

	manager := dbm.New(filepath.Dir(archivePath))
	manager.AddGroup(sqlite.ArchiveGroup, archivePath)
	manager.AddGroup(sqlite.RosterGroup, rosterPath)

	// The archive source caches its handle; drop it whenever the file
	// changes underneath. Roster queries open per call and need no reset.
	manager.Watch(sqlite.ArchiveGroup, func(fsnotify.Event) error {
		return manager.Reopen(sqlite.ArchiveGroup)
	})

	if err := manager.Start(); err != nil {
		return nil, err
	}

	return &DB{
		manager:  manager,
		messages: sqlite.NewMessageSource(manager),
		roster:   sqlite.NewRosterSource(manager),
	}, nil
}

func (db *DB) Messages() *sqlite.MessageSource {
	return db.messages
}

func (db *DB) Roster() *sqlite.RosterSource {
	return db.roster
}

// Fingerprint identifies the current on-disk content of both databases.
// Callers compare fingerprints across reloads to skip redundant work.
func (db *DB) Fingerprint() (string, error) {
	return db.manager.Fingerprint(sqlite.ArchiveGroup, sqlite.RosterGroup)
}

// Watch registers a callback invoked when either database file changes.
func (db *DB) Watch(callback func(fsnotify.Event) error) {
	db.manager.Watch(sqlite.ArchiveGroup, callback)
	db.manager.Watch(sqlite.RosterGroup, callback)
}

// Reload drops cached archive handles so subsequent queries reopen the
// files on disk.
func (db *DB) Reload() error {
	return db.manager.Reopen(sqlite.ArchiveGroup)
}

func (db *DB) Close() error {
	return db.manager.Close()
}
