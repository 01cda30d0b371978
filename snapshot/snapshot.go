// Package snapshot writes a track's notes to <dir>/<uuid>.dat so an edit
// session survives a restart.
package snapshot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"github.com/jsphweid/rollindex/model"
	"github.com/jsphweid/rollindex/util"
)

const ext = ".dat"

type Snapshot struct {
	ID              uuid.UUID
	Name            string
	TicksPerQuarter int64
	Notes           []model.IndexedNote
	SavedAt         time.Time
}

func Path(dir string, id uuid.UUID) string {
	return filepath.Join(dir, id.String()+ext)
}

// Write stores s under its id, assigning a new id when s has none, and
// returns the file path.
func Write(dir string, s *Snapshot) (string, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.SavedAt = time.Now().UTC()
	if err := util.EnsureDir(dir); err != nil {
		return "", err
	}
	path := Path(dir, s.ID)
	if err := util.CreateBinary(path, s); err != nil {
		return "", err
	}
	return path, nil
}

func Read(path string) (Snapshot, error) {
	return util.ReadBinary[Snapshot](path)
}

// List returns the snapshot ids in dir, most recently modified first.
func List(dir string) ([]uuid.UUID, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	type found struct {
		id  uuid.UUID
		mod time.Time
	}
	var all []found
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		all = append(all, found{id, info.ModTime()})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].mod.After(all[j].mod) })

	ids := make([]uuid.UUID, len(all))
	for i, f := range all {
		ids[i] = f.id
	}
	return ids, nil
}

// Autosaver writes a snapshot once edits have been quiet for the configured
// delay. capture runs on the debounce timer's goroutine and must do its own
// locking.
type Autosaver struct {
	dir     string
	capture func() Snapshot
	log     *slog.Logger

	debounced func(f func())

	// held across capture and Write so a timer save and Flush never share
	// the temp file
	writeMu sync.Mutex

	mu      sync.Mutex
	lastErr error
	saves   int
}

func NewAutosaver(dir string, delay time.Duration, capture func() Snapshot, log *slog.Logger) *Autosaver {
	if log == nil {
		log = slog.Default()
	}
	return &Autosaver{
		dir:       dir,
		capture:   capture,
		log:       log,
		debounced: debounce.New(delay),
	}
}

// Touch schedules a save, pushing back any save already pending.
func (a *Autosaver) Touch() {
	a.debounced(func() { _ = a.Flush() })
}

// Flush saves immediately.
func (a *Autosaver) Flush() error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	s := a.capture()
	path, err := Write(a.dir, &s)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastErr = err
	if err != nil {
		a.log.Error("autosave failed", "dir", a.dir, "error", err)
		return err
	}
	a.saves++
	a.log.Debug("autosaved", "path", path, "notes", len(s.Notes))
	return nil
}

// Stats reports the number of successful saves and the last error.
func (a *Autosaver) Stats() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saves, a.lastErr
}
