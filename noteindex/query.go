package noteindex

import (
	"math"
	"time"

	"github.com/jsphweid/rollindex/constants"
	"github.com/jsphweid/rollindex/metrics"
	"github.com/jsphweid/rollindex/model"
)

// A note occupies [start, end). A query window [startTicks, endTicks]
// matches notes that sound inside it, so a note ending exactly where the
// window begins, or starting exactly where it ends, is not a match. A
// zero-width window is a point probe and matches the note sounding there.
func overlaps(e entry, startTicks, endTicks float64) bool {
	if startTicks == endTicks {
		return e.start <= startTicks && startTicks < e.end
	}
	return e.start < endTicks && e.end > startTicks
}

func validWindow(startTicks, endTicks float64) bool {
	return !math.IsNaN(startTicks) && !math.IsNaN(endTicks) && startTicks <= endTicks
}

// timeBuckets is the bucket span a window has to visit. Notes are filed by
// start, so the span reaches back far enough to catch the longest note that
// began before the window.
func (idx *Index) timeBuckets(startTicks, endTicks float64) (int64, int64) {
	lookback := int64(math.Ceil(clampTicks(idx.maxDuration) / constants.TimeBucketSize))
	return TimeBucket(startTicks) - lookback, TimeBucket(endTicks)
}

func observe(shape string, start time.Time, n int) {
	metrics.IndexQueryDuration.WithLabelValues(shape).Observe(time.Since(start).Seconds())
	metrics.IndexQueryResults.WithLabelValues(shape).Observe(float64(n))
}

// FindInTimeRange returns the notes sounding in [startTicks, endTicks], in
// no particular order.
func (idx *Index) FindInTimeRange(startTicks, endTicks float64) []model.NoteID {
	start := time.Now()
	res := idx.findInTimeRange(startTicks, endTicks, func(entry) bool { return true })
	observe("time", start, len(res))
	return res
}

func (idx *Index) findInTimeRange(startTicks, endTicks float64, keep func(entry) bool) []model.NoteID {
	var res []model.NoteID
	if !validWindow(startTicks, endTicks) {
		return res
	}
	visit := func(notes noteSet) {
		for id := range notes {
			e := idx.all[id]
			if overlaps(e, startTicks, endTicks) && keep(e) {
				res = append(res, id)
			}
		}
	}

	lo, hi := idx.timeBuckets(startTicks, endTicks)
	// each note sits in exactly one time bucket, so no deduplication is needed
	if span := hi - lo + 1; span > int64(len(idx.timeIndex)) {
		for bucket, notes := range idx.timeIndex {
			if bucket >= lo && bucket <= hi {
				visit(notes)
			}
		}
		return res
	}
	for bucket := lo; bucket <= hi; bucket++ {
		if notes, ok := idx.timeIndex[bucket]; ok {
			visit(notes)
		}
	}
	return res
}

// FindInPitchRange returns the notes with minPitch <= pitch <= maxPitch.
func (idx *Index) FindInPitchRange(minPitch, maxPitch int) []model.NoteID {
	start := time.Now()
	var res []model.NoteID
	defer func() { observe("pitch", start, len(res)) }()
	if minPitch > maxPitch {
		return res
	}

	visit := func(notes noteSet) {
		for id := range notes {
			if p := idx.all[id].pitch; p >= minPitch && p <= maxPitch {
				res = append(res, id)
			}
		}
	}

	lo, hi := PitchBucket(minPitch), PitchBucket(maxPitch)
	if span := int64(hi) - int64(lo) + 1; span > int64(len(idx.pitchIndex)) {
		for bucket, notes := range idx.pitchIndex {
			if bucket >= lo && bucket <= hi {
				visit(notes)
			}
		}
		return res
	}
	for bucket := lo; bucket <= hi; bucket++ {
		if notes, ok := idx.pitchIndex[bucket]; ok {
			visit(notes)
		}
	}
	return res
}

// FindInRect is a time range query narrowed by pitch.
func (idx *Index) FindInRect(startTicks, endTicks float64, minPitch, maxPitch int) []model.NoteID {
	start := time.Now()
	res := idx.findInTimeRange(startTicks, endTicks, func(e entry) bool {
		return e.pitch >= minPitch && e.pitch <= maxPitch
	})
	observe("rect", start, len(res))
	return res
}

// FindInViewport walks the (time bucket, pitch bucket) grid covering the
// viewport. This is the renderer's query.
func (idx *Index) FindInViewport(startTicks, endTicks float64, minPitch, maxPitch int) []model.NoteID {
	start := time.Now()
	var res []model.NoteID
	defer func() { observe("viewport", start, len(res)) }()
	if !validWindow(startTicks, endTicks) || minPitch > maxPitch {
		return res
	}

	visit := func(notes noteSet) {
		for id := range notes {
			e := idx.all[id]
			if overlaps(e, startTicks, endTicks) && e.pitch >= minPitch && e.pitch <= maxPitch {
				res = append(res, id)
			}
		}
	}

	tlo, thi := idx.timeBuckets(startTicks, endTicks)
	plo, phi := PitchBucket(minPitch), PitchBucket(maxPitch)
	timeSpan := float64(thi - tlo + 1)
	pitchSpan := float64(phi - plo + 1)
	if timeSpan*pitchSpan > float64(len(idx.spatialIndex)) {
		for c, notes := range idx.spatialIndex {
			if c.TimeBucket >= tlo && c.TimeBucket <= thi && c.PitchBucket >= plo && c.PitchBucket <= phi {
				visit(notes)
			}
		}
		return res
	}
	for tb := tlo; tb <= thi; tb++ {
		for pb := plo; pb <= phi; pb++ {
			if notes, ok := idx.spatialIndex[Cell{tb, pb}]; ok {
				visit(notes)
			}
		}
	}
	return res
}

// FindOverlapping returns the other notes on the same pitch that sound at
// the same time as id. An id that is not indexed is resolved and measured
// at tpq.
func (idx *Index) FindOverlapping(id model.NoteID, tpq int64) []model.NoteID {
	start := time.Now()
	var res []model.NoteID
	defer func() { observe("overlap", start, len(res)) }()

	target, ok := idx.all[id]
	if !ok {
		n, found := idx.resolver.Lookup(id)
		if !found {
			return res
		}
		target = newEntry(n, tpq)
	}
	res = idx.findInTimeRange(target.start, target.end, func(e entry) bool {
		return e.pitch == target.pitch
	})
	for i, other := range res {
		if other == id {
			res = append(res[:i], res[i+1:]...)
			break
		}
	}
	return res
}
