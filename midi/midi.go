// Package midi converts between standard MIDI files and notes. Byte level
// parsing is left to gomidi.
package midi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/jsphweid/rollindex/fraction"
	"github.com/jsphweid/rollindex/model"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

var ErrUnsupportedTimeFormat = errors.New("unsupported midi time format")

func ReadMidiFile(filepath string) (*smf.SMF, error) {
	dat, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading midi file: %w", err)
	}
	return Read(bytes.NewReader(dat))
}

func Read(r io.Reader) (s *smf.SMF, e error) {
	// gomidi panics on some malformed files
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if rec := recover(); rec != nil {
			s, e = nil, fmt.Errorf("parsing midi file: %v", rec)
		}
	}()

	res, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("parsing midi file: %w", err)
	}
	return res, nil
}

type noteKey struct {
	channel uint8
	key     uint8
}

type pending struct {
	tick     int64
	velocity uint8
}

// Notes pairs note on and note off events per track, channel and key and
// returns them with the file's ticks per quarter. Overlapping notes on the
// same key are closed first in, first out; notes still sounding at the end
// of a track end there. Zero length notes are dropped.
func Notes(s *smf.SMF) ([]model.Note, int64, error) {
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || mt.Resolution() == 0 {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnsupportedTimeFormat, s.TimeFormat)
	}
	tpq := int64(mt.Resolution())

	var notes []model.Note
	emit := func(k noteKey, p pending, end int64) {
		if end <= p.tick {
			return
		}
		notes = append(notes, model.Note{
			Pitch:    int(k.key),
			Start:    fraction.FromTicks(float64(p.tick), tpq),
			Duration: fraction.FromTicks(float64(end-p.tick), tpq),
			Velocity: int(p.velocity),
			Channel:  k.channel,
		})
	}

	for _, track := range s.Tracks {
		var absTicks int64
		open := make(map[noteKey][]pending)
		closeNote := func(k noteKey) {
			q := open[k]
			if len(q) == 0 {
				return
			}
			emit(k, q[0], absTicks)
			open[k] = q[1:]
		}

		for _, event := range track {
			absTicks += int64(event.Delta)
			var channel, key, velocity uint8
			switch {
			case event.Message.GetNoteOn(&channel, &key, &velocity):
				k := noteKey{channel, key}
				if velocity == 0 {
					closeNote(k)
					continue
				}
				open[k] = append(open[k], pending{absTicks, velocity})
			case event.Message.GetNoteOff(&channel, &key, &velocity):
				closeNote(noteKey{channel, key})
			}
		}

		for k, q := range open {
			for _, p := range q {
				emit(k, p, absTicks)
			}
		}
	}

	sort.SliceStable(notes, func(i, j int) bool {
		if c := notes[i].Start.Cmp(notes[j].Start); c != 0 {
			return c < 0
		}
		return notes[i].Pitch < notes[j].Pitch
	})
	return notes, tpq, nil
}

type event struct {
	tick int64
	off  bool
	note model.Note
}

// Write encodes notes as a single track SMF1 file at tpq ticks per quarter.
// At equal ticks note offs come before note ons, so repeated notes on one
// key stay separate.
func Write(w io.Writer, notes []model.Note, tpq int64) error {
	if tpq <= 0 || tpq > math.MaxInt16 {
		return fmt.Errorf("%w: %d ticks per quarter", ErrUnsupportedTimeFormat, tpq)
	}

	events := make([]event, 0, 2*len(notes))
	for _, n := range notes {
		end, err := n.End()
		if err != nil {
			return fmt.Errorf("note at %s: %w", n.Start, err)
		}
		if n.Pitch < 0 || n.Pitch > 127 || n.Velocity < 1 || n.Velocity > 127 || n.Channel > 15 {
			return fmt.Errorf("note at %s: pitch %d velocity %d channel %d out of midi range", n.Start, n.Pitch, n.Velocity, n.Channel)
		}
		on, off := fraction.Ticks(n.Start, tpq), fraction.Ticks(end, tpq)
		if on < 0 || off > math.MaxUint32 {
			return fmt.Errorf("note at %s: ticks [%d, %d] out of range", n.Start, on, off)
		}
		events = append(events, event{on, false, n}, event{off, true, n})
	}
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.tick != b.tick {
			return a.tick < b.tick
		}
		if a.off != b.off {
			return a.off
		}
		return a.note.Pitch < b.note.Pitch
	})

	var track smf.Track
	var last int64
	for _, e := range events {
		delta := uint32(e.tick - last)
		last = e.tick
		ch, key := e.note.Channel, uint8(e.note.Pitch)
		if e.off {
			track.Add(delta, midi.NoteOff(ch, key))
		} else {
			track.Add(delta, midi.NoteOn(ch, key, uint8(e.note.Velocity)))
		}
	}
	track.Close(0)

	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(tpq)
	if err := s.Add(track); err != nil {
		return fmt.Errorf("adding track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("writing midi: %w", err)
	}
	return nil
}

func WriteFile(path string, notes []model.Note, tpq int64) error {
	var buf bytes.Buffer
	if err := Write(&buf, notes, tpq); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
