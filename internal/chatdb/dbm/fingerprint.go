package dbm

import (
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Mymoliy/echotrace/internal/errors"
)

// Fingerprint calculates a stable fingerprint for the named file groups from
// their size and modification time. Groups whose files are all missing are
// skipped; if nothing remains an empty string is returned without error.
// Reload logic compares fingerprints to skip reopening unchanged databases.
func (d *DBManager) Fingerprint(names ...string) (string, error) {
	if len(names) == 0 {
		return "", nil
	}

	type fileFingerprint struct {
		group string
		rel   string
		size  int64
		mod   int64
	}

	entries := make([]fileFingerprint, 0)

	for _, name := range names {
		paths, err := d.GetDBPath(name)
		if err != nil {
			if stderrors.Is(err, errors.ErrFileNotFound) {
				continue
			}
			return "", err
		}

		for _, p := range paths {
			info, statErr := os.Stat(p)
			if statErr != nil {
				if os.IsNotExist(statErr) {
					continue
				}
				return "", statErr
			}

			rel := p
			if relPath, relErr := filepath.Rel(d.dir, p); relErr == nil {
				rel = relPath
			}
			rel = filepath.ToSlash(rel)

			entries = append(entries, fileFingerprint{
				group: name,
				rel:   rel,
				size:  info.Size(),
				mod:   info.ModTime().UnixNano(),
			})
		}
	}

	if len(entries) == 0 {
		return "", nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].group == entries[j].group {
			return entries[i].rel < entries[j].rel
		}
		return entries[i].group < entries[j].group
	})

	hasher := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(hasher, "%s|%s|%d|%d;", e.group, e.rel, e.size, e.mod)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
