package dbm

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/Mymoliy/echotrace/internal/errors"
)

// Group is a named set of database files managed together. Analytics groups
// hold a single file each; the slice form keeps fingerprinting and watching
// uniform if a store ever splits across files.
type Group struct {
	Name  string
	Files []string
}

// DBManager tracks the archive and roster database files: read-only handle
// cache, change notification, and content fingerprinting. The files are
// produced by an external collector, so every handle is opened read-only and
// the manager never creates or alters them.
type DBManager struct {
	dir string

	mu        sync.RWMutex
	groups    map[string]*Group
	dbs       map[string]*sql.DB
	callbacks map[string][]func(fsnotify.Event) error

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func New(dir string) *DBManager {
	return &DBManager{
		dir:       dir,
		groups:    make(map[string]*Group),
		dbs:       make(map[string]*sql.DB),
		callbacks: make(map[string][]func(fsnotify.Event) error),
		done:      make(chan struct{}),
	}
}

// AddGroup registers a named file group. Relative paths are resolved against
// the manager's base directory.
func (d *DBManager) AddGroup(name string, files ...string) {
	resolved := make([]string, 0, len(files))
	for _, f := range files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(d.dir, f)
		}
		resolved = append(resolved, filepath.Clean(f))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.groups[name] = &Group{Name: name, Files: resolved}
}

// GetDBPath returns the group's files that exist on disk.
func (d *DBManager) GetDBPath(name string) ([]string, error) {
	d.mu.RLock()
	group, ok := d.groups[name]
	d.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("db group " + name)
	}

	existing := make([]string, 0, len(group.Files))
	for _, f := range group.Files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil, errors.ErrFileNotFound
	}
	return existing, nil
}

// OpenDB returns a cached read-only handle for the group's database file,
// opening it on first use.
func (d *DBManager) OpenDB(name string) (*sql.DB, error) {
	d.mu.RLock()
	db, ok := d.dbs[name]
	d.mu.RUnlock()
	if ok {
		return db, nil
	}

	paths, err := d.GetDBPath(name)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if db, ok := d.dbs[name]; ok {
		return db, nil
	}

	db, err = sql.Open("sqlite3", "file:"+paths[0]+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, errors.StoreUnavailable(name, err)
	}
	d.dbs[name] = db
	return db, nil
}

// Reopen drops the group's cached handle so the next OpenDB call reopens the
// file. Called after an on-disk replacement of the database.
func (d *DBManager) Reopen(name string) error {
	d.mu.Lock()
	db, ok := d.dbs[name]
	if ok {
		delete(d.dbs, name)
	}
	d.mu.Unlock()

	if ok {
		if err := db.Close(); err != nil {
			return errors.StoreUnavailable(name, err)
		}
	}
	return nil
}

// Watch registers a callback invoked when a file of the named group changes.
func (d *DBManager) Watch(name string, callback func(event fsnotify.Event) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks[name] = append(d.callbacks[name], callback)
}

// Start begins watching the parent directories of all group files. Watching
// directories rather than files survives the atomic rename dance collectors
// use when republishing a database.
func (d *DBManager) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dirs := make(map[string]struct{})
	d.mu.RLock()
	for _, group := range d.groups {
		for _, f := range group.Files {
			dirs[filepath.Dir(f)] = struct{}{}
		}
	}
	d.mu.RUnlock()

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			log.Debug().Err(err).Str("dir", dir).Msg("watch dir failed")
		}
	}

	d.watcher = watcher
	go d.loop()
	return nil
}

func (d *DBManager) loop() {
	for {
		select {
		case <-d.done:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) && !event.Op.Has(fsnotify.Remove) {
				continue
			}
			d.dispatch(event)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			log.Debug().Err(err).Msg("db watcher error")
		}
	}
}

func (d *DBManager) dispatch(event fsnotify.Event) {
	changed := filepath.Clean(event.Name)

	d.mu.RLock()
	var matched []func(fsnotify.Event) error
	name := ""
	for _, group := range d.groups {
		for _, f := range group.Files {
			if f == changed {
				name = group.Name
				matched = append(matched, d.callbacks[group.Name]...)
			}
		}
	}
	d.mu.RUnlock()

	if len(matched) == 0 {
		return
	}

	log.Debug().Str("group", name).Str("file", changed).Str("op", event.Op.String()).Msg("db file changed")
	for _, callback := range matched {
		if err := callback(event); err != nil {
			log.Debug().Err(err).Str("group", name).Msg("db change callback failed")
		}
	}
}

// Close stops the watcher and closes all cached handles.
func (d *DBManager) Close() error {
	select {
	case <-d.done:
	default:
		close(d.done)
	}
	if d.watcher != nil {
		_ = d.watcher.Close()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for name, db := range d.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.dbs, name)
	}
	return firstErr
}
