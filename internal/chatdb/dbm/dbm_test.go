package dbm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Mymoliy/echotrace/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestGetDBPath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "archive.db"), "x")

	manager := New(dir)
	manager.AddGroup("archive", "archive.db")
	manager.AddGroup("roster", "roster.db")

	paths, err := manager.GetDBPath("archive")
	if err != nil {
		t.Fatalf("GetDBPath(archive): %v", err)
	}
	if len(paths) != 1 || paths[0] != filepath.Join(dir, "archive.db") {
		t.Errorf("paths = %v, want resolved archive.db", paths)
	}

	if _, err := manager.GetDBPath("roster"); !errors.IsNotFound(err) {
		t.Errorf("missing file err = %v, want not-found", err)
	}
	if _, err := manager.GetDBPath("nope"); !errors.IsNotFound(err) {
		t.Errorf("unknown group err = %v, want not-found", err)
	}
}

func TestGetDBPathKeepsAbsoluteFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	other := t.TempDir()
	abs := filepath.Join(other, "roster.db")
	writeFile(t, abs, "x")

	manager := New(dir)
	manager.AddGroup("roster", abs)

	paths, err := manager.GetDBPath("roster")
	if err != nil {
		t.Fatalf("GetDBPath: %v", err)
	}
	if len(paths) != 1 || paths[0] != abs {
		t.Errorf("paths = %v, want %q untouched", paths, abs)
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "archive.db"), "archive-v1")
	writeFile(t, filepath.Join(dir, "roster.db"), "roster-v1")

	manager := New(dir)
	manager.AddGroup("archive", "archive.db")
	manager.AddGroup("roster", "roster.db")

	fp1, err := manager.Fingerprint("archive", "roster")
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fp1 == "" {
		t.Fatal("fingerprint empty for existing files")
	}

	fp2, err := manager.Fingerprint("archive", "roster")
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fp2 != fp1 {
		t.Errorf("fingerprint unstable: %q vs %q", fp1, fp2)
	}

	stamp := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "roster.db"), stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	fp3, err := manager.Fingerprint("archive", "roster")
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fp3 == fp1 {
		t.Error("fingerprint unchanged after mtime bump")
	}

	writeFile(t, filepath.Join(dir, "archive.db"), "archive-v2-with-more-bytes")
	fp4, err := manager.Fingerprint("archive", "roster")
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fp4 == fp3 {
		t.Error("fingerprint unchanged after size change")
	}
}

func TestFingerprintSkipsMissingGroups(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "archive.db"), "x")

	manager := New(dir)
	manager.AddGroup("archive", "archive.db")
	manager.AddGroup("roster", "roster.db")

	both, err := manager.Fingerprint("archive", "roster")
	if err != nil {
		t.Fatalf("Fingerprint with missing roster: %v", err)
	}
	archiveOnly, err := manager.Fingerprint("archive")
	if err != nil {
		t.Fatalf("Fingerprint(archive): %v", err)
	}
	if both != archiveOnly {
		t.Errorf("missing group contributed to fingerprint: %q vs %q", both, archiveOnly)
	}

	empty, err := manager.Fingerprint("roster")
	if err != nil {
		t.Fatalf("Fingerprint(roster): %v", err)
	}
	if empty != "" {
		t.Errorf("fingerprint = %q for all-missing group, want empty", empty)
	}

	none, err := manager.Fingerprint()
	if err != nil || none != "" {
		t.Errorf("Fingerprint() = (%q, %v), want empty", none, err)
	}
}

func TestOpenDBCachesAndReopen(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "archive.db"), "")

	manager := New(dir)
	manager.AddGroup("archive", "archive.db")
	t.Cleanup(func() { manager.Close() })

	db1, err := manager.OpenDB("archive")
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	db2, err := manager.OpenDB("archive")
	if err != nil {
		t.Fatalf("second OpenDB: %v", err)
	}
	if db1 != db2 {
		t.Error("second OpenDB returned a different handle")
	}

	if err := manager.Reopen("archive"); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	db3, err := manager.OpenDB("archive")
	if err != nil {
		t.Fatalf("OpenDB after Reopen: %v", err)
	}
	if db3 == db1 {
		t.Error("OpenDB after Reopen returned the closed handle")
	}
}

func TestOpenDBMissingFile(t *testing.T) {
	t.Parallel()
	manager := New(t.TempDir())
	manager.AddGroup("archive", "archive.db")

	if _, err := manager.OpenDB("archive"); !errors.IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
}

func TestWatchDispatchesGroupCallbacks(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "archive.db"), "v1")

	manager := New(dir)
	manager.AddGroup("archive", "archive.db")
	events := make(chan fsnotify.Event, 8)
	manager.Watch("archive", func(event fsnotify.Event) error {
		events <- event
		return nil
	})
	if err := manager.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	writeFile(t, filepath.Join(dir, "archive.db"), "v2")

	select {
	case event := <-events:
		if filepath.Base(event.Name) != "archive.db" {
			t.Errorf("event for %q, want archive.db", event.Name)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no event within 3s")
	}
}

func TestWatchIgnoresUnrelatedFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "archive.db"), "v1")

	manager := New(dir)
	manager.AddGroup("archive", "archive.db")
	events := make(chan fsnotify.Event, 8)
	manager.Watch("archive", func(event fsnotify.Event) error {
		events <- event
		return nil
	})
	if err := manager.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	writeFile(t, filepath.Join(dir, "unrelated.txt"), "noise")

	select {
	case event := <-events:
		t.Errorf("unexpected event for %q", event.Name)
	case <-time.After(250 * time.Millisecond):
	}
}

func TestCloseIdempotent(t *testing.T) {
	t.Parallel()
	manager := New(t.TempDir())
	if err := manager.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := manager.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
