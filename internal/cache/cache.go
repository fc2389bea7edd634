// Package cache short-circuits repeated scans of an unchanged tree.
//
// A fingerprint is hashed over every file's path, size and modification
// time; when it matches the one stored next to the previous result, that
// result is reused verbatim. The cache file is read and written without
// locking, so concurrent scans of one tree must be serialized by the caller.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/phobologic/vbscan/internal/model"
)

// FileName is the default cache file, stored at the scan root.
const FileName = ".vb6_scanner_cache.json"

// Fingerprint hashes the identity of a file list. Order does not matter.
func Fingerprint(files []model.SourceFile) string {
	sorted := slices.Clone(files)
	slices.SortFunc(sorted, func(a, b model.SourceFile) int {
		switch {
		case a.RelPath < b.RelPath:
			return -1
		case a.RelPath > b.RelPath:
			return 1
		}
		return 0
	})

	h := xxh3.New()
	for _, f := range sorted {
		h.WriteString(f.RelPath)
		h.WriteString("\x00")
		h.WriteString(strconv.FormatInt(f.Size, 10))
		h.WriteString("\x00")
		h.WriteString(strconv.FormatInt(f.ModTime.UnixNano(), 10))
		h.WriteString("\n")
	}
	return hex.EncodeToString(h.Sum(nil))
}

type entry struct {
	SourceHash string          `json:"source_hash"`
	Timestamp  string          `json:"timestamp"`
	Analysis   json.RawMessage `json:"analysis"`
}

// Store is a single-entry cache file.
type Store struct {
	Path string
	// Now stamps saved entries. Defaults to time.Now.
	Now func() time.Time
}

// Load returns the cached analysis when its fingerprint equals hash. A
// missing file or a different fingerprint is a miss with a nil error; an
// unreadable or corrupt file is a miss with an error the caller may report.
func (s Store) Load(hash string) (json.RawMessage, bool, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache read: %w", err)
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false, fmt.Errorf("cache read %s: %w", s.Path, err)
	}
	if e.SourceHash != hash || len(e.Analysis) == 0 {
		return nil, false, nil
	}
	return e.Analysis, true, nil
}

// Save stores analysis under hash, replacing any previous entry.
func (s Store) Save(hash string, analysis any) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	data, err := json.Marshal(entry{
		SourceHash: hash,
		Timestamp:  now().Format(time.RFC3339),
		Analysis:   raw,
	})
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}
