package track

import (
	"github.com/jsphweid/rollindex/model"
)

// The query methods return copies ordered by start, pitch, id.

func (t *Track) QueryTimeRange(startTicks, endTicks float64) []model.IndexedNote {
	return t.collect(t.index.FindInTimeRange(startTicks, endTicks))
}

func (t *Track) QueryPitchRange(minPitch, maxPitch int) []model.IndexedNote {
	return t.collect(t.index.FindInPitchRange(minPitch, maxPitch))
}

func (t *Track) QueryRect(startTicks, endTicks float64, minPitch, maxPitch int) []model.IndexedNote {
	return t.collect(t.index.FindInRect(startTicks, endTicks, minPitch, maxPitch))
}

func (t *Track) QueryViewport(startTicks, endTicks float64, minPitch, maxPitch int) []model.IndexedNote {
	return t.collect(t.index.FindInViewport(startTicks, endTicks, minPitch, maxPitch))
}

// Overlapping lists the notes on the same pitch sounding alongside id.
func (t *Track) Overlapping(id model.NoteID) ([]model.IndexedNote, error) {
	if _, ok := t.notes[id]; !ok {
		return nil, wrapNotFound(id)
	}
	return t.collect(t.index.FindOverlapping(id, t.tpq)), nil
}
