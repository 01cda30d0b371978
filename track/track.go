// Package track owns the notes of one piano roll and keeps a noteindex in
// step with every edit. Callers never touch the index directly: each
// mutation below takes the note out of the index, changes it, validates
// it and files it again, restoring the old value if validation fails.
//
// A Track is not safe for concurrent use.
package track

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jsphweid/rollindex/constants"
	"github.com/jsphweid/rollindex/fraction"
	"github.com/jsphweid/rollindex/model"
	"github.com/jsphweid/rollindex/noteindex"
)

var (
	ErrNoteNotFound = errors.New("note not found")
	ErrInvalidNote  = errors.New("invalid note")
)

type Track struct {
	tpq    int64
	notes  map[model.NoteID]*model.Note
	nextID model.NoteID
	index  *noteindex.Index
	log    *slog.Logger
}

type Option func(*Track)

func WithLogger(log *slog.Logger) Option {
	return func(t *Track) {
		t.log = log
	}
}

// New returns an empty track at tpq ticks per quarter. A non-positive tpq
// uses constants.DefaultTicksPerQuarter.
func New(tpq int64, opts ...Option) *Track {
	if tpq <= 0 {
		tpq = constants.DefaultTicksPerQuarter
	}
	t := &Track{
		tpq:    tpq,
		notes:  make(map[model.NoteID]*model.Note),
		nextID: 1,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.index = noteindex.New(t, noteindex.WithLogger(t.log))
	return t
}

// Lookup resolves ids for the index.
func (t *Track) Lookup(id model.NoteID) (noteindex.Note, bool) {
	n, ok := t.notes[id]
	if !ok {
		return nil, false
	}
	return n, true
}

func (t *Track) TicksPerQuarter() int64 { return t.tpq }

func (t *Track) Len() int { return len(t.notes) }

// Validate checks the ranges every stored note must satisfy.
func Validate(n model.Note) error {
	switch {
	case n.Pitch < constants.MinPitch || n.Pitch > constants.MaxPitch:
		return fmt.Errorf("%w: pitch %d outside [%d, %d]", ErrInvalidNote, n.Pitch, constants.MinPitch, constants.MaxPitch)
	case n.Velocity < constants.MinVelocity || n.Velocity > constants.MaxVelocity:
		return fmt.Errorf("%w: velocity %d outside [%d, %d]", ErrInvalidNote, n.Velocity, constants.MinVelocity, constants.MaxVelocity)
	case n.Channel > 15:
		return fmt.Errorf("%w: channel %d", ErrInvalidNote, n.Channel)
	case n.Start.Sign() < 0:
		return fmt.Errorf("%w: start %s is negative", ErrInvalidNote, n.Start)
	case n.Duration.Sign() <= 0:
		return fmt.Errorf("%w: duration %s is not positive", ErrInvalidNote, n.Duration)
	}
	if _, err := n.End(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNote, err)
	}
	return nil
}

func (t *Track) Insert(n model.Note) (model.NoteID, error) {
	if err := Validate(n); err != nil {
		return 0, err
	}
	id := t.nextID
	t.nextID++
	t.notes[id] = &n
	t.index.Add(id, t.tpq)
	return id, nil
}

// InsertBatch validates every note before inserting any of them.
func (t *Track) InsertBatch(notes []model.Note) ([]model.NoteID, error) {
	for i, n := range notes {
		if err := Validate(n); err != nil {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}
	}
	ids := make([]model.NoteID, len(notes))
	for i := range notes {
		n := notes[i]
		ids[i] = t.nextID
		t.nextID++
		t.notes[ids[i]] = &n
	}
	t.index.AddBatch(ids, t.tpq)
	return ids, nil
}

// Load replaces the contents of the track with notes, keeping their ids.
// Nothing changes if any note is invalid or an id repeats.
func (t *Track) Load(notes []model.IndexedNote) error {
	arena := make(map[model.NoteID]*model.Note, len(notes))
	next := model.NoteID(1)
	for _, in := range notes {
		if in.ID == 0 {
			return fmt.Errorf("%w: id 0 is reserved", ErrInvalidNote)
		}
		if _, dup := arena[in.ID]; dup {
			return fmt.Errorf("%w: duplicate id %d", ErrInvalidNote, in.ID)
		}
		if err := Validate(in.Note); err != nil {
			return fmt.Errorf("note %d: %w", in.ID, err)
		}
		n := in.Note
		arena[in.ID] = &n
		if in.ID >= next {
			next = in.ID + 1
		}
	}
	t.notes = arena
	t.nextID = next
	t.Rebuild()
	t.log.Debug("track loaded", "notes", len(arena), "next_id", next)
	return nil
}

func (t *Track) Delete(id model.NoteID) error {
	if _, ok := t.notes[id]; !ok {
		return wrapNotFound(id)
	}
	t.index.Remove(id)
	delete(t.notes, id)
	return nil
}

func (t *Track) Get(id model.NoteID) (model.Note, bool) {
	n, ok := t.notes[id]
	if !ok {
		return model.Note{}, false
	}
	return *n, true
}

// Update runs fn on the stored note between an index remove and add. If fn
// fails, or leaves the note invalid, the note is restored.
func (t *Track) Update(id model.NoteID, fn func(*model.Note) error) (err error) {
	n, ok := t.notes[id]
	if !ok {
		return wrapNotFound(id)
	}
	saved := *n
	t.index.Remove(id)
	defer func() {
		if err != nil {
			*n = saved
		}
		t.index.Add(id, t.tpq)
	}()

	if err = fn(n); err != nil {
		return err
	}
	return Validate(*n)
}

func (t *Track) Move(id model.NoteID, start fraction.Fraction) error {
	return t.Update(id, func(n *model.Note) error {
		n.Start = start
		return nil
	})
}

func (t *Track) Resize(id model.NoteID, duration fraction.Fraction) error {
	return t.Update(id, func(n *model.Note) error {
		n.Duration = duration
		return nil
	})
}

func (t *Track) Transpose(id model.NoteID, semitones int) error {
	return t.Update(id, func(n *model.Note) error {
		n.Pitch += semitones
		return nil
	})
}

func (t *Track) SetVelocity(id model.NoteID, velocity int) error {
	return t.Update(id, func(n *model.Note) error {
		n.Velocity = velocity
		return nil
	})
}

// Rebuild refiles every note. Edits made through the track never need it.
func (t *Track) Rebuild() {
	t.index.Rebuild(t.IDs(), t.tpq)
}

func (t *Track) Statistics() model.Statistics {
	return t.index.Statistics()
}

// IDs are ascending.
func (t *Track) IDs() []model.NoteID {
	ids := make([]model.NoteID, 0, len(t.notes))
	for id := range t.notes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Notes copies every note out of the track, ordered by start, pitch, id.
func (t *Track) Notes() []model.IndexedNote {
	return t.collect(t.IDs())
}

func (t *Track) collect(ids []model.NoteID) []model.IndexedNote {
	res := make([]model.IndexedNote, 0, len(ids))
	for _, id := range ids {
		if n, ok := t.notes[id]; ok {
			res = append(res, model.IndexedNote{ID: id, Note: *n})
		}
	}
	sort.Slice(res, func(i, j int) bool {
		a, b := res[i], res[j]
		if c := a.Start.Cmp(b.Start); c != 0 {
			return c < 0
		}
		if a.Pitch != b.Pitch {
			return a.Pitch < b.Pitch
		}
		return a.ID < b.ID
	})
	return res
}

func wrapNotFound(id model.NoteID) error {
	return fmt.Errorf("%w: %d", ErrNoteNotFound, id)
}
