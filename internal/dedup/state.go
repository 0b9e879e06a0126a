// Package dedup tracks which listings have already been seen across
// incremental collection runs and filters a new batch down to genuinely new
// rows before matching.
package dedup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	urlStateFile       = "seen_urls.json"
	thumbnailStateFile = "seen_thumbnails.json"
	productIDStateFile = "seen_product_ids.json"
)

// stateFile is the on-disk shape of one persisted identity set. Flat JSON so
// any collaborator can inspect the state without running the engine.
type stateFile struct {
	Values      []string `json:"values"`
	LastUpdated string   `json:"last_updated"`
	TotalCount  int      `json:"total_count"`
}

// State holds the three persistent identity-signal sets. Signals are only
// ever added, never removed, except by Reset.
type State struct {
	URLs       map[string]struct{}
	Thumbnails map[string]struct{}
	ProductIDs map[string]struct{}
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		URLs:       make(map[string]struct{}),
		Thumbnails: make(map[string]struct{}),
		ProductIDs: make(map[string]struct{}),
	}
}

// LoadState reads the three state files from dir. A missing or corrupt file
// degrades to an empty set with a warning; it never aborts the run and never
// touches the file on disk.
func LoadState(dir string) *State {
	s := NewState()
	s.URLs = loadSet(filepath.Join(dir, urlStateFile))
	s.Thumbnails = loadSet(filepath.Join(dir, thumbnailStateFile))
	s.ProductIDs = loadSet(filepath.Join(dir, productIDStateFile))
	return s
}

func loadSet(path string) map[string]struct{} {
	set := make(map[string]struct{})

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("dedup: unreadable state file, starting empty",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return set
	}

	var sf stateFile
	if err := json.Unmarshal(data, &sf); err != nil {
		zap.L().Warn("dedup: corrupt state file, starting empty",
			zap.String("path", path),
			zap.Error(err),
		)
		return set
	}

	for _, v := range sf.Values {
		set[v] = struct{}{}
	}
	return set
}

// Save writes the three state files back to dir. Each file is written to a
// temp file and renamed into place, so a crash mid-write leaves the previous
// valid state intact.
func (s *State) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "dedup: create state dir")
	}
	if err := saveSet(filepath.Join(dir, urlStateFile), s.URLs); err != nil {
		return err
	}
	if err := saveSet(filepath.Join(dir, thumbnailStateFile), s.Thumbnails); err != nil {
		return err
	}
	return saveSet(filepath.Join(dir, productIDStateFile), s.ProductIDs)
}

func saveSet(path string, set map[string]struct{}) error {
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)

	data, err := json.MarshalIndent(stateFile{
		Values:      values,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		TotalCount:  len(values),
	}, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "dedup: marshal state %s", path)
	}
	return writeAtomic(path, data)
}

// writeAtomic writes data to a temp file in the target directory and renames
// it into place, so a crash mid-write leaves any previous file intact.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "dedup: create temp state file for %s", path)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrapf(err, "dedup: write temp state file for %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "dedup: close temp state file for %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "dedup: replace state file %s", path)
	}
	return nil
}

// Reset removes all persisted state files from dir, including the filtering
// history.
func Reset(dir string) error {
	for _, name := range []string{urlStateFile, thumbnailStateFile, productIDStateFile, auditFile} {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return eris.Wrapf(err, "dedup: remove state file %s", path)
		}
		zap.L().Info("dedup: removed state file", zap.String("path", path))
	}
	return nil
}

// Counts returns the sizes of the three sets.
func (s *State) Counts() (urls, thumbnails, productIDs int) {
	return len(s.URLs), len(s.Thumbnails), len(s.ProductIDs)
}
