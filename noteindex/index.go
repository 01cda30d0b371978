// Package noteindex is a bucketed time x pitch index over notes owned by
// someone else. Notes are referenced by id and resolved through a Resolver;
// the index never stores or frees a note.
//
// An Index is not safe for concurrent use. Every mutation of a note's start,
// duration or pitch must be bracketed by Remove before and Add after.
package noteindex

import (
	"log/slog"
	"math"
	"time"

	"github.com/jsphweid/rollindex/constants"
	"github.com/jsphweid/rollindex/fraction"
	"github.com/jsphweid/rollindex/metrics"
	"github.com/jsphweid/rollindex/model"
)

type Note interface {
	NotePitch() int
	NoteStart() fraction.Fraction
	NoteDuration() fraction.Fraction
}

type Resolver interface {
	Lookup(id model.NoteID) (Note, bool)
}

type noteSet = map[model.NoteID]struct{}

// entry is what the index knows about a note as of its last Add. Remove
// uses the recorded buckets, so the maps stay consistent even if the note
// was mutated in between.
type entry struct {
	start, end  float64
	pitch       int
	timeBucket  int64
	pitchBucket int
}

// Cell is one (time bucket, pitch bucket) square of the spatial index.
type Cell struct {
	TimeBucket  int64
	PitchBucket int
}

func (e entry) cell() Cell {
	return Cell{e.timeBucket, e.pitchBucket}
}

type Index struct {
	resolver Resolver
	log      *slog.Logger

	timeIndex    map[int64]noteSet
	pitchIndex   map[int]noteSet
	spatialIndex map[Cell]noteSet
	all          map[model.NoteID]entry

	// longest duration ever added since the last Clear, in ticks
	maxDuration float64

	dirty       bool
	lastRebuild time.Time
}

type Option func(*Index)

func WithLogger(log *slog.Logger) Option {
	return func(i *Index) {
		i.log = log
	}
}

func New(r Resolver, opts ...Option) *Index {
	idx := &Index{
		resolver:     r,
		log:          slog.Default(),
		timeIndex:    make(map[int64]noteSet),
		pitchIndex:   make(map[int]noteSet),
		spatialIndex: make(map[Cell]noteSet),
		all:          make(map[model.NoteID]entry),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

func TimeBucket(ticks float64) int64 {
	return int64(math.Floor(clampTicks(ticks) / constants.TimeBucketSize))
}

func PitchBucket(pitch int) int {
	b := pitch / constants.PitchBucketSize
	if pitch < 0 && pitch%constants.PitchBucketSize != 0 {
		b--
	}
	return b
}

// keeps float to int64 conversions in range for absurd query bounds
func clampTicks(ticks float64) float64 {
	const limit = 1 << 60
	switch {
	case ticks > limit:
		return limit
	case ticks < -limit:
		return -limit
	}
	return ticks
}

func newEntry(n Note, tpq int64) entry {
	start := n.NoteStart().ToTicks(tpq)
	return entry{
		start:       start,
		end:         start + n.NoteDuration().ToTicks(tpq),
		pitch:       n.NotePitch(),
		timeBucket:  TimeBucket(start),
		pitchBucket: PitchBucket(n.NotePitch()),
	}
}

// Add files the note under its current buckets. Adding an id that is
// already present, or that the resolver does not know, does nothing.
func (idx *Index) Add(id model.NoteID, tpq int64) {
	if idx.add(id, tpq) {
		idx.dirty = true
		metrics.IndexedNotes.Set(float64(len(idx.all)))
	}
}

func (idx *Index) add(id model.NoteID, tpq int64) bool {
	if _, ok := idx.all[id]; ok {
		return false
	}
	n, ok := idx.resolver.Lookup(id)
	if !ok {
		idx.log.Debug("note index add skipped unknown note", "id", id)
		return false
	}

	e := newEntry(n, tpq)
	idx.all[id] = e
	insert(idx.timeIndex, e.timeBucket, id)
	insert(idx.pitchIndex, e.pitchBucket, id)
	insert(idx.spatialIndex, e.cell(), id)
	if d := e.end - e.start; d > idx.maxDuration {
		idx.maxDuration = d
	}
	return true
}

// Remove drops the note from every bucket it was filed under. Removing an
// absent id does nothing.
func (idx *Index) Remove(id model.NoteID) {
	e, ok := idx.all[id]
	if !ok {
		return
	}
	delete(idx.all, id)
	remove(idx.timeIndex, e.timeBucket, id)
	remove(idx.pitchIndex, e.pitchBucket, id)
	remove(idx.spatialIndex, e.cell(), id)
	idx.dirty = true
	metrics.IndexedNotes.Set(float64(len(idx.all)))
}

func (idx *Index) AddBatch(ids []model.NoteID, tpq int64) {
	added := 0
	for _, id := range ids {
		if idx.add(id, tpq) {
			added++
		}
	}
	if added > 0 {
		idx.dirty = true
	}
	metrics.IndexedNotes.Set(float64(len(idx.all)))
}

func (idx *Index) Clear() {
	idx.timeIndex = make(map[int64]noteSet)
	idx.pitchIndex = make(map[int]noteSet)
	idx.spatialIndex = make(map[Cell]noteSet)
	idx.all = make(map[model.NoteID]entry)
	idx.maxDuration = 0
	idx.dirty = false
	metrics.IndexedNotes.Set(0)
}

// Rebuild replaces the whole index with ids. Use it after bulk edits where
// remove/add pairs are impractical.
func (idx *Index) Rebuild(ids []model.NoteID, tpq int64) {
	start := time.Now()
	idx.Clear()
	idx.AddBatch(ids, tpq)
	idx.lastRebuild = time.Now().UTC()
	idx.dirty = false
	metrics.IndexRebuildDuration.Observe(time.Since(start).Seconds())
	idx.log.Debug("note index rebuilt",
		"notes", len(idx.all),
		"time_buckets", len(idx.timeIndex),
		"spatial_buckets", len(idx.spatialIndex),
		"took", time.Since(start))
}

func (idx *Index) Contains(id model.NoteID) bool {
	_, ok := idx.all[id]
	return ok
}

func (idx *Index) Len() int {
	return len(idx.all)
}

func (idx *Index) Statistics() model.Statistics {
	return model.Statistics{
		TotalNotes:     len(idx.all),
		TimeBuckets:    len(idx.timeIndex),
		PitchBuckets:   len(idx.pitchIndex),
		SpatialBuckets: len(idx.spatialIndex),
		IsDirty:        idx.dirty,
		LastRebuild:    idx.lastRebuild,
	}
}

func insert[K comparable](m map[K]noteSet, key K, id model.NoteID) {
	s, ok := m[key]
	if !ok {
		s = make(noteSet)
		m[key] = s
	}
	s[id] = struct{}{}
}

func remove[K comparable](m map[K]noteSet, key K, id model.NoteID) {
	s, ok := m[key]
	if !ok {
		return
	}
	delete(s, id)
	if len(s) == 0 {
		delete(m, key)
	}
}
